package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidRequest signals a malformed search request.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrUnknownApproach signals an unsupported retrieval approach key.
	ErrUnknownApproach = errors.New("unknown approach")
	// ErrTooManyApproaches signals more approaches than may run concurrently.
	ErrTooManyApproaches = errors.New("too many approaches")
	// ErrFilterRequired signals a filtered approach without a filter expression.
	ErrFilterRequired = errors.New("filter expression required")
	// ErrVectorRequired signals a vector approach without a query vector.
	ErrVectorRequired = errors.New("query vector required")
	// ErrEmptyInput signals empty text passed to an embedder.
	ErrEmptyInput = errors.New("empty input")

	// ErrRemoteService signals a failure reported by, or on the way to, a remote service.
	ErrRemoteService = errors.New("remote service error")
	// ErrMalformedResponse signals a remote response that does not match the expected schema.
	ErrMalformedResponse = errors.New("malformed response")

	// ErrSuperseded signals an invocation replaced by a newer one of the same session.
	ErrSuperseded = errors.New("invocation superseded")
)

// Remote service names used in RemoteServiceError.
const (
	ServiceEmbedding = "embedding"
	ServiceSearch    = "search"
)

// RemoteServiceError carries the HTTP status and provider message of a failed remote call.
// Status is 0 for transport failures (no response received).
type RemoteServiceError struct {
	Service string
	Status  int
	Message string
}

func (e *RemoteServiceError) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("%s service unreachable: %s", e.Service, e.Message)
	}
	return fmt.Sprintf("%s service returned %d: %s", e.Service, e.Status, e.Message)
}

func (e *RemoteServiceError) Unwrap() error { return ErrRemoteService }

// NewRemoteServiceError creates a remote service error.
func NewRemoteServiceError(service string, status int, message string) error {
	return &RemoteServiceError{Service: service, Status: status, Message: message}
}

// IsEmbeddingFailure reports whether err is a remote failure of the embedding service.
func IsEmbeddingFailure(err error) bool {
	var rse *RemoteServiceError
	return errors.As(err, &rse) && rse.Service == ServiceEmbedding
}
