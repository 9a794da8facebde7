package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidQuery signals malformed search parameters.
	ErrInvalidQuery = errors.New("invalid query")
	// ErrMissingCredentials signals that a required API credential is not configured.
	ErrMissingCredentials = errors.New("places api key not configured")
	// ErrGeolocationDenied signals that the caller declined to share its location.
	ErrGeolocationDenied = errors.New("location access denied")
	// ErrLocationNotFound signals that a free-text location could not be geocoded.
	ErrLocationNotFound = errors.New("could not find that location")
	// ErrUpstreamStatus signals a non-OK status reported by an upstream API.
	ErrUpstreamStatus = errors.New("upstream returned an error status")
	// ErrUpstreamUnavailable signals a transport failure talking to an upstream API.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
	// ErrSourceTimeout signals that a source did not answer within its deadline.
	ErrSourceTimeout = errors.New("source timed out")
)

// UpstreamStatusError carries the status an upstream API answered with.
type UpstreamStatusError struct {
	Provider string
	Status   string
	Message  string
}

func (e *UpstreamStatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s status %s: %s", ErrUpstreamStatus.Error(), e.Provider, e.Status, e.Message)
	}
	return fmt.Sprintf("%s: %s status %s", ErrUpstreamStatus.Error(), e.Provider, e.Status)
}

func (e *UpstreamStatusError) Unwrap() error { return ErrUpstreamStatus }

// NewUpstreamStatus creates an upstream status error.
func NewUpstreamStatus(provider, status, message string) error {
	return &UpstreamStatusError{Provider: provider, Status: status, Message: message}
}
