package backend

import "errors"

var (
	ErrUnknownTable  = errors.New("unknown table")
	ErrUnknownColumn = errors.New("unknown column")
	ErrNoFilter      = errors.New("update requires at least one filter")
	ErrNoSession     = errors.New("no active session")
	ErrInvalidToken  = errors.New("invalid or expired token")
	ErrWeakPassword  = errors.New("password must be at least 6 characters")
	ErrUserNotFound  = errors.New("user not found")
)
