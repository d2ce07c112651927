package remote

import "errors"

var (
	// ErrInvalidCredentials is returned by SignInWithPassword for an unknown email or a wrong password.
	ErrInvalidCredentials = errors.New("invalid login credentials")

	// ErrUserExists is returned by SignUp when the email is already registered.
	ErrUserExists = errors.New("user already registered")

	// ErrOffline is returned by every call of a service that has no backing store.
	ErrOffline = errors.New("remote data service unavailable")
)
