package clients

import "fmt"

// RemoteError carries the status and message a downstream service replied
// with, so callers can distinguish rejection from transport failure.
type RemoteError struct {
	Service    string
	StatusCode int
	Message    string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("%s service returned %d: %s", e.Service, e.StatusCode, e.Message)
}
