package shared

import "fmt"

var (
	ErrNotImplemented = fmt.Errorf("not implemented")

	// Configuration errors
	ErrMissingConfig = fmt.Errorf("configuration not found")
	ErrInvalidConfig = fmt.Errorf("invalid configuration")

	// Authentication errors
	ErrAuthFailed       = fmt.Errorf("authentication failed")
	ErrNotAuthenticated = fmt.Errorf("not authenticated")
	ErrUnauthorized     = fmt.Errorf("unauthorized")
	ErrTimeout          = fmt.Errorf("operation timed out")

	// Remote document errors
	ErrDocumentNotFound   = fmt.Errorf("document not found")
	ErrAPIRequest         = fmt.Errorf("API request failed")
	ErrServiceUnavailable = fmt.Errorf("service unavailable")

	// Feed proxy errors
	ErrInvalidFeedURL = fmt.Errorf("invalid feed url")
	ErrHostNotAllowed = fmt.Errorf("feed host not allowed")
	ErrUpstream       = fmt.Errorf("upstream request failed")

	// Input validation errors
	ErrInvalidInput     = fmt.Errorf("invalid input")
	ErrInvalidMediaType = fmt.Errorf("invalid media type")
	ErrMissingArgument  = fmt.Errorf("missing required argument")
	ErrInvalidArgument  = fmt.Errorf("invalid argument")
	ErrInvalidFlag      = fmt.Errorf("invalid flag value")
)
