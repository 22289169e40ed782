package search

import (
	"context"

	"github.com/kailas-cloud/vecdemo/internal/domain"
	"github.com/kailas-cloud/vecdemo/internal/domain/search/payload"
	"github.com/kailas-cloud/vecdemo/internal/domain/search/result"
)

// Embedder vectorizes the query text.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}

// Searcher executes one search payload against an index.
type Searcher interface {
	Search(ctx context.Context, index string, p payload.Payload) (result.Response, error)
}
