// Package providers holds the error contract shared by the external
// generation clients.
package providers

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrMissingCredentials signals that a provider client was constructed
// without the credential it needs. Classified as a system fault upstream.
var ErrMissingCredentials = errors.New("provider credentials missing")

// StatusError is a non-success HTTP-style response from a provider. Only
// temporary-overload statuses are retryable; everything else is terminal for
// the issuing stage.
type StatusError struct {
	Provider   string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("%s status %d: %s", e.Provider, e.StatusCode, e.Body)
	}
	return fmt.Sprintf("%s status %d", e.Provider, e.StatusCode)
}

// Temporary reports whether the status signals transient overload or
// unavailability (rate limited or service unavailable).
func (e *StatusError) Temporary() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode == http.StatusServiceUnavailable
}

// IsTemporary reports whether err is a provider status error worth retrying.
func IsTemporary(err error) bool {
	var statusErr *StatusError
	return errors.As(err, &statusErr) && statusErr.Temporary()
}
