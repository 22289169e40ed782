package payload

import (
	"fmt"

	"github.com/kailas-cloud/vecdemo/internal/domain"
	"github.com/kailas-cloud/vecdemo/internal/domain/search/approach"
)

// Neighbor counts per index type.
const (
	TextNeighbors  = 10
	ImageNeighbors = 3
)

// Semantic ranking defaults.
const (
	DefaultQueryLanguage         = "en-us"
	DefaultSemanticConfiguration = "my-semantic-config"

	extractive       = "extractive"
	semanticQuery    = "semantic"
	highlightPreTag  = "<b>"
	highlightPostTag = "</b>"
)

// Profile describes the index a payload targets.
type Profile struct {
	Name                  string // "text" or "image", used for metrics and logs
	Index                 string
	VectorField           string
	Neighbors             int
	Select                string
	SemanticConfiguration string
	QueryLanguage         string
}

// TextProfile returns the profile for a text index.
func TextProfile(index, vectorField string) Profile {
	return Profile{
		Name:                  "text",
		Index:                 index,
		VectorField:           vectorField,
		Neighbors:             TextNeighbors,
		SemanticConfiguration: DefaultSemanticConfiguration,
		QueryLanguage:         DefaultQueryLanguage,
	}
}

// ImageProfile returns the profile for an image index.
func ImageProfile(index, vectorField string) Profile {
	return Profile{
		Name:        "image",
		Index:       index,
		VectorField: vectorField,
		Neighbors:   ImageNeighbors,
		Select:      "title,imageUrl",
	}
}

// Vector is the vector query block of a payload.
type Vector struct {
	Value  []float32 `json:"value"`
	Fields string    `json:"fields"`
	K      int       `json:"k"`
}

// Payload is the search request body. Only Build produces it, so its field set
// is fully determined by the approach it was built for.
type Payload struct {
	Search                string  `json:"search,omitempty"`
	Vector                *Vector `json:"vector,omitempty"`
	Filter                string  `json:"filter,omitempty"`
	Select                string  `json:"select,omitempty"`
	Top                   int     `json:"top,omitempty"`
	QueryType             string  `json:"queryType,omitempty"`
	QueryLanguage         string  `json:"queryLanguage,omitempty"`
	SemanticConfiguration string  `json:"semanticConfiguration,omitempty"`
	Captions              string  `json:"captions,omitempty"`
	Answers               string  `json:"answers,omitempty"`
	HighlightPreTag       string  `json:"highlightPreTag,omitempty"`
	HighlightPostTag      string  `json:"highlightPostTag,omitempty"`

	approach approach.Approach
}

// Options carries per-invocation toggles.
type Options struct {
	Filter   string
	Captions bool
}

// Approach returns the approach the payload was built for.
func (p *Payload) Approach() approach.Approach { return p.approach }

// Build constructs the payload for one approach.
func Build(a approach.Approach, prof Profile, vector []float32, query string, opts Options) (Payload, error) {
	if !a.IsValid() {
		return Payload{}, fmt.Errorf("%w: %q", domain.ErrUnknownApproach, a)
	}

	p := Payload{Select: prof.Select, approach: a}

	if a.UsesText() {
		p.Search = query
	}
	if a == approach.TextOnly {
		p.Top = prof.Neighbors
	}
	if a.UsesVector() {
		if len(vector) == 0 {
			return Payload{}, fmt.Errorf("%s: %w", a.Label(), domain.ErrVectorRequired)
		}
		p.Vector = &Vector{Value: vector, Fields: prof.VectorField, K: prof.Neighbors}
	}
	if a.UsesFilter() {
		if opts.Filter == "" {
			return Payload{}, fmt.Errorf("%s: %w", a.Label(), domain.ErrFilterRequired)
		}
		p.Filter = opts.Filter
	}
	if a.UsesSemantic() {
		p.QueryType = semanticQuery
		p.QueryLanguage = orDefault(prof.QueryLanguage, DefaultQueryLanguage)
		p.SemanticConfiguration = orDefault(prof.SemanticConfiguration, DefaultSemanticConfiguration)
		if opts.Captions {
			p.Captions = extractive
			p.Answers = extractive
			p.HighlightPreTag = highlightPreTag
			p.HighlightPostTag = highlightPostTag
		}
	}

	return p, nil
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
