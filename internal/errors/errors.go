package errors

import "errors"

// Common error types for the admin client
var (
	// Session errors
	ErrUnauthenticated = errors.New("not authenticated")
	ErrRefreshFailed   = errors.New("session refresh failed")

	// Authorization errors
	ErrForbidden = errors.New("insufficient permissions")

	// Resource errors
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("conflict")

	// Input errors
	ErrInvalidInput    = errors.New("invalid input")
	ErrInvalidStatus   = errors.New("invalid quote status")
	ErrFileTooLarge    = errors.New("file too large")
	ErrUnsupportedFile = errors.New("unsupported file type")
)
