package handlers

const (
	ErrInvalidJSON         = "Invalid request body"
	ErrInvalidID           = "Invalid id"
	ErrUnauthorized        = "Unauthorized"
	ErrForbidden           = "Forbidden"
	ErrNotFound            = "Not found"
	ErrTooManyRequests     = "Too many requests"
	ErrInternalServerError = "Internal server error"

	// maxBodyBytes caps JSON request bodies.
	maxBodyBytes = 1 << 20
)
