package session

import (
	"errors"

	"github.com/sudo-init-do/lanceo/internal/remote"
)

var (
	// ErrInvalidCredentials is returned by SignIn for a rejected email/password pair.
	ErrInvalidCredentials = remote.ErrInvalidCredentials

	// ErrNoIdentity is returned by operations that need an active session.
	ErrNoIdentity = errors.New("no active session")

	// ErrInvalidInput wraps sign-up and reset validation failures.
	ErrInvalidInput = errors.New("invalid input")
)
