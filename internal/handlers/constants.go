package handlers

const (
	// maxBodyBytes caps JSON request bodies
	maxBodyBytes = 1 << 20

	RequestIDHeader = "X-Request-ID"

	ErrInvalidJSON         = "Invalid JSON body"
	ErrUnauthorized        = "Unauthorized"
	ErrForbidden           = "Forbidden"
	ErrInternalServerError = "Internal server error"
	ErrTooManyRequests     = "Too many requests"
)
