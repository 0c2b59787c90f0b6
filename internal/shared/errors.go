package shared

import "fmt"

var (
	// Configuration errors
	ErrMissingConfig      = fmt.Errorf("configuration not found")
	ErrInvalidConfig      = fmt.Errorf("invalid configuration")
	ErrMissingCredentials = fmt.Errorf("missing credentials")
	ErrInvalidCredentials = fmt.Errorf("invalid credentials")

	// API and service errors
	ErrAPIRequest         = fmt.Errorf("API request failed")
	ErrServiceUnavailable = fmt.Errorf("service unavailable")
	ErrArtistNotFound     = fmt.Errorf("artist not found")

	// Rule errors
	ErrRuleNotFound       = fmt.Errorf("rule not found")
	ErrUnknownRuleType    = fmt.Errorf("unknown rule type")
	ErrInvalidRule        = fmt.Errorf("invalid rule definition")
	ErrInvalidReleaseDate = fmt.Errorf("invalid release date")
	ErrPartialApply       = fmt.Errorf("playlist partially updated")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
)
