package providers

import (
	"fmt"
	"sort"
	"strings"
)

// TransportError means the request never produced an HTTP response.
type TransportError struct {
	Provider Tag
	Err      error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: transport error: %v", e.Provider, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// ProviderError is a non-2xx answer, or a 2xx answer carrying an error payload.
type ProviderError struct {
	Provider   Tag
	StatusCode int
	Body       string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s: provider returned status %d: %s", e.Provider, e.StatusCode, e.Body)
}

type MalformedResponseError struct {
	Provider Tag
	Reason   string
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("%s: malformed response: %s", e.Provider, e.Reason)
}

type TimeoutError struct {
	Attempts int
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("generation did not finish after %d status checks", e.Attempts)
}

// JobFailedError carries the provider's own failure text.
type JobFailedError struct {
	Message string
}

func (e *JobFailedError) Error() string {
	return e.Message
}

// InvalidRequestError lists request fields rejected before any network call.
type InvalidRequestError struct {
	Fields map[string]string
}

func (e *InvalidRequestError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "invalid generation request: " + strings.Join(parts, "; ")
}

func invalid(field, msg string) *InvalidRequestError {
	return &InvalidRequestError{Fields: map[string]string{field: msg}}
}
