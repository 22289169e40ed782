package approach

import (
	"fmt"

	"github.com/kailas-cloud/vecdemo/internal/domain"
)

// Approach is a retrieval strategy. The string value is the wire key.
type Approach string

// Retrieval approach constants.
const (
	TextOnly   Approach = "text"
	VectorOnly Approach = "vec"
	// VectorWithFilter is a vector query narrowed by a filter expression.
	VectorWithFilter Approach = "vecf"
	// Hybrid combines keyword and vector search in one query.
	Hybrid Approach = "hs"
	// HybridSemanticRerank is Hybrid followed by the provider's semantic reranker.
	HybridSemanticRerank Approach = "hssr"
)

// MaxSelected is the maximum number of approaches run in one invocation.
const MaxSelected = 4

var labels = map[Approach]string{
	TextOnly:             "Text Only",
	VectorOnly:           "Vectors Only",
	VectorWithFilter:     "Vectors with Filter",
	Hybrid:               "Vectors + Text (Hybrid Search)",
	HybridSemanticRerank: "Hybrid + Semantic Reranking",
}

// All returns every approach in display order.
func All() []Approach {
	return []Approach{TextOnly, VectorOnly, VectorWithFilter, Hybrid, HybridSemanticRerank}
}

// Parse converts a wire key into an Approach.
func Parse(key string) (Approach, error) {
	a := Approach(key)
	if !a.IsValid() {
		return "", fmt.Errorf("%w: %q", domain.ErrUnknownApproach, key)
	}
	return a, nil
}

// IsValid checks if the approach is one of the supported values.
func (a Approach) IsValid() bool {
	_, ok := labels[a]
	return ok
}

// Key returns the wire key.
func (a Approach) Key() string { return string(a) }

// Label returns the human-readable name.
func (a Approach) Label() string {
	if l, ok := labels[a]; ok {
		return l
	}
	return string(a)
}

// UsesText reports whether the payload carries the free-text query.
func (a Approach) UsesText() bool {
	return a == TextOnly || a == Hybrid || a == HybridSemanticRerank
}

// UsesVector reports whether the payload carries the vector block.
func (a Approach) UsesVector() bool {
	return a != TextOnly
}

// UsesFilter reports whether the payload carries a filter expression.
func (a Approach) UsesFilter() bool {
	return a == VectorWithFilter
}

// UsesSemantic reports whether the payload enables semantic reranking.
func (a Approach) UsesSemantic() bool {
	return a == HybridSemanticRerank
}
