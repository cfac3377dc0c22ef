package domain

import "errors"

// Sentinel errors for the application.
var (
	ErrNotFound       = errors.New("resource not found")
	ErrUnauthorized   = errors.New("unauthorized access")
	ErrForbidden      = errors.New("forbidden")
	ErrConflict       = errors.New("resource already exists")
	ErrInvalidMessage = errors.New("invalid message")
	ErrUserNotFound   = errors.New("user not found")
	ErrNoRecipient    = errors.New("no recipient found in conversation")
)
