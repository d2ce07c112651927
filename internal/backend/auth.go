package backend

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"golang.org/x/crypto/bcrypt"

	"github.com/sudo-init-do/lanceo/internal/localstate"
	"github.com/sudo-init-do/lanceo/internal/remote"
	"github.com/sudo-init-do/lanceo/internal/user"
	"github.com/sudo-init-do/lanceo/pkg/logger"
)

// MinPasswordLength applies to sign-up and password reset.
const MinPasswordLength = 6

func (s *Service) loadUser(ctx context.Context, q string, arg string) (remote.AuthUser, string, error) {
	var (
		u        remote.AuthUser
		hash     string
		metadata map[string]any
		created  *time.Time
	)
	err := s.pool.QueryRow(ctx, q, arg).Scan(&u.ID, &u.Email, &hash, &metadata, &created)
	if err != nil {
		return remote.AuthUser{}, "", err
	}
	u.Metadata = metadata
	if created != nil {
		u.CreatedAt = *created
	}
	return u, hash, nil
}

const userColumns = `id::text, email, password, metadata, created_at`

func (s *Service) userByID(ctx context.Context, id string) (remote.AuthUser, string, error) {
	return s.loadUser(ctx, `SELECT `+userColumns+` FROM auth_users WHERE id = $1`, id)
}

func (s *Service) userByEmail(ctx context.Context, email string) (remote.AuthUser, string, error) {
	return s.loadUser(ctx, `SELECT `+userColumns+` FROM auth_users WHERE lower(email) = lower($1)`, strings.TrimSpace(email))
}

// GetSession validates the stored token and loads its user. A missing,
// expired or orphaned token yields a nil session and is forgotten.
func (s *Service) GetSession(ctx context.Context) (*remote.AuthSession, error) {
	sess, err := s.storedSession(ctx)
	switch {
	case errors.Is(err, ErrNoSession):
		return nil, nil
	case errors.Is(err, ErrInvalidToken), errors.Is(err, ErrUserNotFound):
		s.log.Info(ctx, "dropping stale session token", logger.Error(err))
		s.forgetToken(ctx)
		return nil, nil
	case err != nil:
		return nil, err
	}
	return sess, nil
}

func (s *Service) storedSession(ctx context.Context) (*remote.AuthSession, error) {
	tok, ok := s.tokens.Get(localstate.KeyAuthToken)
	if !ok || tok == "" {
		return nil, ErrNoSession
	}
	userID, exp, err := s.parseToken(tok, PurposeSession)
	if err != nil {
		return nil, err
	}
	u, _, err := s.userByID(ctx, userID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load session user: %w", err)
	}
	return &remote.AuthSession{AccessToken: tok, ExpiresAt: exp, User: u}, nil
}

func (s *Service) SignInWithPassword(ctx context.Context, email, password string) (*remote.AuthSession, error) {
	u, hash, err := s.userByEmail(ctx, email)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, remote.ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("sign in: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return nil, remote.ErrInvalidCredentials
	}
	sess, err := s.startSession(u)
	if err != nil {
		return nil, err
	}
	s.emitAuth(remote.AuthEvent{Kind: remote.AuthSignedIn, Session: sess})
	return sess, nil
}

// SignUp creates the account and its profiles row in one transaction and
// signs the new user in.
func (s *Service) SignUp(ctx context.Context, email, password string, metadata map[string]any) (*remote.AuthSession, error) {
	if len(password) < MinPasswordLength {
		return nil, ErrWeakPassword
	}
	if metadata == nil {
		metadata = map[string]any{}
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("sign up: begin: %w", err)
	}
	defer tx.Rollback(ctx)

	u := remote.AuthUser{Email: strings.TrimSpace(email), Metadata: metadata}
	err = tx.QueryRow(ctx, `
		INSERT INTO auth_users (email, password, metadata)
		VALUES ($1, $2, $3)
		RETURNING id::text, created_at
	`, u.Email, string(hashed), metadata).Scan(&u.ID, &u.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, remote.ErrUserExists
		}
		return nil, fmt.Errorf("sign up: insert user: %w", err)
	}

	name, _ := metadata["name"].(string)
	kind, _ := metadata["type"].(string)
	_, err = tx.Exec(ctx, `
		INSERT INTO profiles (id, name, type)
		VALUES ($1, $2, $3)
	`, u.ID, name, user.RoleFromType(kind).RemoteType())
	if err != nil {
		return nil, fmt.Errorf("sign up: insert profile: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("sign up: commit: %w", err)
	}

	if s.mailer != nil {
		if err := s.mailer.EnqueueWelcome(ctx, u.ID, u.Email, name); err != nil {
			s.log.Warn(ctx, "welcome email not queued", logger.String("user_id", u.ID), logger.Error(err))
		}
	}

	sess, err := s.startSession(u)
	if err != nil {
		return nil, err
	}
	s.emitAuth(remote.AuthEvent{Kind: remote.AuthSignedIn, Session: sess})
	return sess, nil
}

func (s *Service) startSession(u remote.AuthUser) (*remote.AuthSession, error) {
	tok, exp, err := s.issueToken(u.ID, PurposeSession, s.sessionTTL)
	if err != nil {
		return nil, err
	}
	if err := s.tokens.Set(localstate.KeyAuthToken, tok); err != nil {
		return nil, fmt.Errorf("store session token: %w", err)
	}
	return &remote.AuthSession{AccessToken: tok, ExpiresAt: exp, User: u}, nil
}

func (s *Service) forgetToken(ctx context.Context) {
	if err := s.tokens.Remove(localstate.KeyAuthToken); err != nil {
		s.log.Warn(ctx, "session token not removed", logger.Error(err))
	}
}

func (s *Service) SignOut(ctx context.Context) error {
	if err := s.tokens.Remove(localstate.KeyAuthToken); err != nil {
		return fmt.Errorf("sign out: %w", err)
	}
	s.emitAuth(remote.AuthEvent{Kind: remote.AuthSignedOut})
	return nil
}

// ResetPasswordForEmail queues a reset link. Unknown addresses succeed
// silently so callers cannot probe for accounts.
func (s *Service) ResetPasswordForEmail(ctx context.Context, email string) error {
	u, _, err := s.userByEmail(ctx, email)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("reset password: %w", err)
	}
	if s.mailer == nil {
		s.log.Warn(ctx, "password reset requested without a mailer", logger.String("user_id", u.ID))
		return nil
	}
	tok, _, err := s.issueToken(u.ID, PurposePasswordReset, s.resetTTL)
	if err != nil {
		return err
	}
	name, _ := u.Metadata["name"].(string)
	if err := s.mailer.EnqueuePasswordReset(ctx, u.ID, u.Email, name, tok); err != nil {
		return fmt.Errorf("reset password: %w", err)
	}
	return nil
}

// ResetPassword consumes a reset token and stores the new password.
func (s *Service) ResetPassword(ctx context.Context, token, newPassword string) error {
	if len(newPassword) < MinPasswordLength {
		return ErrWeakPassword
	}
	userID, _, err := s.parseToken(token, PurposePasswordReset)
	if err != nil {
		return err
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	ct, err := s.pool.Exec(ctx, `UPDATE auth_users SET password = $1 WHERE id = $2`, string(hashed), userID)
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (s *Service) OnAuthStateChange(fn func(remote.AuthEvent)) remote.Subscription {
	s.authMu.Lock()
	s.nextListener++
	id := s.nextListener
	s.authListeners[id] = fn
	s.authMu.Unlock()

	return remote.SubscriptionFunc(func() error {
		s.authMu.Lock()
		delete(s.authListeners, id)
		s.authMu.Unlock()
		return nil
	})
}

func (s *Service) emitAuth(ev remote.AuthEvent) {
	s.authMu.Lock()
	fns := make([]func(remote.AuthEvent), 0, len(s.authListeners))
	for _, fn := range s.authListeners {
		fns = append(fns, fn)
	}
	s.authMu.Unlock()
	for _, fn := range fns {
		fn(ev)
	}
}
