package vecdemo

import (
	"errors"

	"github.com/kailas-cloud/vecdemo/internal/domain"
)

// Sentinel errors re-exported from the domain layer.
// Use errors.Is() to check.
var (
	ErrInvalidRequest    = domain.ErrInvalidRequest
	ErrUnknownApproach   = domain.ErrUnknownApproach
	ErrTooManyApproaches = domain.ErrTooManyApproaches
	ErrFilterRequired    = domain.ErrFilterRequired
	ErrRemoteService     = domain.ErrRemoteService
	ErrMalformedResponse = domain.ErrMalformedResponse
	ErrSuperseded        = domain.ErrSuperseded
)

// ErrImageSearchDisabled is returned by SearchImage when WithImageEmbedding was not given.
var ErrImageSearchDisabled = errors.New("vecdemo: image search not configured (use WithImageEmbedding and WithImageIndex)")

// RemoteServiceError carries the HTTP status and provider message of a failed remote call.
// Use errors.As() to extract it.
type RemoteServiceError = domain.RemoteServiceError

// IsEmbeddingFailure reports whether err means the query could not be vectorized.
func IsEmbeddingFailure(err error) bool {
	return domain.IsEmbeddingFailure(err)
}
