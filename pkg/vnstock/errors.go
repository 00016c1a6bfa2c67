package vnstock

import (
	"errors"
	"fmt"
)

// Sentinel errors.
var (
	// ErrUnknownResource is returned for a dotted path outside the dispatch table.
	ErrUnknownResource = errors.New("unknown vnstock resource")

	// ErrTermsNotAccepted is returned when the client is built without
	// accepting the upstream terms of use.
	ErrTermsNotAccepted = errors.New("vnstock terms of use not accepted")

	// ErrMissingBaseURL is returned when the client has no upstream address.
	ErrMissingBaseURL = errors.New("vnstock base url is required")

	// ErrMissingParameter is returned when a request lacks a field its
	// resource requires.
	ErrMissingParameter = errors.New("missing required parameter")

	// ErrDecode is returned when an upstream body is not a recognised table.
	ErrDecode = errors.New("decoding upstream table")
)

// UpstreamError describes a non-2xx upstream response.
type UpstreamError struct {
	Resource   Resource
	StatusCode int
	Body       string
}

func (e *UpstreamError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("upstream %s returned status %d", e.Resource, e.StatusCode)
	}
	return fmt.Sprintf("upstream %s returned status %d: %s", e.Resource, e.StatusCode, e.Body)
}

// Temporary reports whether the failure is on the upstream side.
func (e *UpstreamError) Temporary() bool {
	return e.StatusCode >= 500 || e.StatusCode == 429
}
