package domain

import "errors"

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrValidationFailed   = errors.New("validation failed")
	ErrNotFound           = errors.New("not found")
	ErrUnavailable        = errors.New("service unavailable")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrNotAuthenticated   = errors.New("not authenticated")
	ErrUserExists         = errors.New("user already exists")

	// ErrRequestPending is returned when the same mutation is submitted
	// again before the first one has resolved.
	ErrRequestPending = errors.New("request already pending")
)
