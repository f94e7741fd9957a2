package core

import "errors"

var (
	// ErrNotFound is returned when a code was never reserved.
	ErrNotFound = errors.New("short code not found")
	// ErrInvalidCodeShape is returned for codes that could not have been generated.
	ErrInvalidCodeShape = errors.New("invalid short code")
	// ErrSpaceExhausted is returned when every reservation attempt collided.
	ErrSpaceExhausted = errors.New("short code space exhausted")
	// ErrMalformedPayload means a stored value is corrupt.
	ErrMalformedPayload = errors.New("malformed short link payload")
	// ErrStorageFailure wraps transient backend errors.
	ErrStorageFailure = errors.New("storage failure")

	ErrInvalidURL   = errors.New("invalid url")
	ErrUserNotFound = errors.New("user not found")
	ErrUserExists   = errors.New("user already exists")
)
