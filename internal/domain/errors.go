// Package domain holds the sentinel errors shared across the data-access and
// handler layers. Callers branch with errors.Is; handlers map them to HTTP
// status codes.
package domain

import "errors"

var (
	ErrNotFound           = errors.New("resource not found")
	ErrDuplicate          = errors.New("already exists")
	ErrValidation         = errors.New("incomplete data")
	ErrForbidden          = errors.New("insufficient permissions")
	ErrInvalidCredentials = errors.New("invalid credentials")
)
