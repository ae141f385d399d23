package ledger

import "fmt"

// APIError reports a non-2xx response from the ledger service. When the
// response body carried a detail message it is surfaced verbatim; otherwise
// Error falls back to a generic status line. The request id ties the error
// back to the client's log records.
type APIError struct {
	Status    int
	Path      string
	Detail    string
	RequestID string
}

func (e *APIError) Error() string {
	if e == nil {
		return "api error"
	}
	if e.Detail != "" {
		return e.Detail
	}
	return fmt.Sprintf("api %s returned status %d", e.Path, e.Status)
}
