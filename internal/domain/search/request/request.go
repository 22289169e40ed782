package request

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/kailas-cloud/vecdemo/internal/domain"
	"github.com/kailas-cloud/vecdemo/internal/domain/search/approach"
)

// MaxQueryLength is the maximum allowed query length in characters.
const MaxQueryLength = 1000

// Options holds per-invocation toggles.
type Options struct {
	Filter        string
	Captions      bool
	IncludeVector bool
}

// Request is a validated search invocation.
type Request struct {
	query      string
	approaches []approach.Approach
	opts       Options
}

// New validates and normalizes search parameters.
// An empty query is always valid: approach and filter checks are skipped and
// the invocation short-circuits to an empty outcome. With no approaches, TextOnly is used. Duplicates are dropped, first occurrence wins.
func New(query string, keys []string, opts Options) (Request, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return Request{approaches: []approach.Approach{approach.TextOnly}}, nil
	}
	if utf8.RuneCountInString(query) > MaxQueryLength {
		return Request{}, fmt.Errorf("%w: query too long (max %d chars)", domain.ErrInvalidRequest, MaxQueryLength)
	}

	approaches := make([]approach.Approach, 0, len(keys))
	seen := make(map[approach.Approach]struct{}, len(keys))
	for _, k := range keys {
		k = strings.TrimSpace(k)
		if k == "" {
			continue
		}
		a, err := approach.Parse(k)
		if err != nil {
			return Request{}, fmt.Errorf("%w: %w", domain.ErrInvalidRequest, err)
		}
		if _, dup := seen[a]; dup {
			continue
		}
		seen[a] = struct{}{}
		approaches = append(approaches, a)
	}
	if len(approaches) == 0 {
		approaches = append(approaches, approach.TextOnly)
	}
	if len(approaches) > approach.MaxSelected {
		return Request{}, fmt.Errorf("%w: %w: %d selected (max %d)",
			domain.ErrInvalidRequest, domain.ErrTooManyApproaches, len(approaches), approach.MaxSelected)
	}

	opts.Filter = strings.TrimSpace(opts.Filter)
	if _, ok := seen[approach.VectorWithFilter]; ok && opts.Filter == "" {
		return Request{}, fmt.Errorf("%w: %s: %w",
			domain.ErrInvalidRequest, approach.VectorWithFilter.Label(), domain.ErrFilterRequired)
	}

	return Request{query: query, approaches: approaches, opts: opts}, nil
}

// Query returns the trimmed query text.
func (r *Request) Query() string { return r.query }

// IsEmpty reports whether the query is empty.
func (r *Request) IsEmpty() bool { return r.query == "" }

// Approaches returns the selected approaches in selection order.
func (r *Request) Approaches() []approach.Approach { return r.approaches }

// Filter returns the filter expression for VectorWithFilter.
func (r *Request) Filter() string { return r.opts.Filter }

// Captions reports whether semantic captions and answers are requested.
func (r *Request) Captions() bool { return r.opts.Captions }

// IncludeVector reports whether the query vector should be returned to the caller.
func (r *Request) IncludeVector() bool { return r.opts.IncludeVector }
