package shared

import "fmt"

var (
	ErrNotImplemented = fmt.Errorf("not implemented")

	// Configuration errors
	ErrMissingConfig = fmt.Errorf("configuration not found")
	ErrInvalidConfig = fmt.Errorf("invalid configuration")
	ErrInvalidKey    = fmt.Errorf("invalid encryption key")

	// Credential and authentication errors
	ErrNoCredential          = fmt.Errorf("no stored credential")
	ErrAuthenticationFailure = fmt.Errorf("ciphertext authentication failed")
	ErrRefreshFailed         = fmt.Errorf("token refresh failed")
	ErrAuthFailed            = fmt.Errorf("authentication failed")

	// Provider errors
	ErrRateLimited        = fmt.Errorf("rate limited by provider")
	ErrUpstream           = fmt.Errorf("provider request failed")
	ErrServiceUnavailable = fmt.Errorf("service unavailable")
	ErrPlaylistNotFound   = fmt.Errorf("playlist not found")

	// Export job errors
	ErrJobNotFound = fmt.Errorf("export job not found")
	ErrJobNotReady = fmt.Errorf("export job not completed")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidFlag     = fmt.Errorf("invalid flag value")

	ErrTimeout = fmt.Errorf("operation timed out")
)
