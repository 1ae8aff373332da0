package github

import (
	"encoding/json"
	"fmt"
)

// UpstreamError is a non-2xx response from the GitHub API. Status and
// body are kept for diagnostics and passed through to clients.
type UpstreamError struct {
	StatusCode int
	Body       []byte
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("github upstream returned status %d", e.StatusCode)
}

// JSONBody returns the upstream body ready for embedding in a JSON
// response: raw when the body is valid JSON, a string otherwise.
func (e *UpstreamError) JSONBody() any {
	if json.Valid(e.Body) {
		return json.RawMessage(e.Body)
	}
	return string(e.Body)
}

// NetworkError is a transport-level failure (timeout, refused
// connection, DNS), distinct from an upstream rejection.
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("github unreachable: %v", e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }
