package cache

import "errors"

var (
	// ErrValidation wraps rejected drafts and proposals. The wrapped
	// marketplace.ValidationError carries the user-facing message.
	ErrValidation = errors.New("validation failed")

	// ErrNotSignedIn is returned by mutations that need an identity.
	ErrNotSignedIn = errors.New("not signed in")

	// ErrNotFound is returned when an id is not in the cache.
	ErrNotFound = errors.New("not found")

	// ErrEmptyMessage is returned by SendMessage for blank text.
	ErrEmptyMessage = errors.New("message is empty")
)
