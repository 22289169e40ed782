package vecdemo

import (
	"github.com/kailas-cloud/vecdemo/internal/domain/search/approach"
	"github.com/kailas-cloud/vecdemo/internal/domain/search/result"
)

// Approach is a retrieval strategy.
type Approach string

// Approach constants.
const (
	ApproachText           Approach = "text"
	ApproachVector         Approach = "vec"
	ApproachVectorFilter   Approach = "vecf"
	ApproachHybrid         Approach = "hs"
	ApproachHybridSemantic Approach = "hssr"
)

// MaxApproaches is the number of approaches one invocation may run.
const MaxApproaches = approach.MaxSelected

// Label returns the human-readable approach name.
func (a Approach) Label() string { return approach.Approach(a).Label() }

// Approaches returns every approach in display order.
func Approaches() []Approach {
	all := approach.All()
	out := make([]Approach, len(all))
	for i, a := range all {
		out[i] = Approach(a)
	}
	return out
}

// SearchOptions tune one invocation.
type SearchOptions struct {
	// Approaches to run, in card order. Empty means text for SearchText and vec for SearchImage.
	Approaches []Approach
	// Filter narrows ApproachVectorFilter. Falls back to WithDefaultFilter.
	Filter        string
	Captions      bool
	IncludeVector bool
}

// Result is one aggregated invocation. Partial success is a valid result.
type Result struct {
	InvocationID string
	Query        string
	Cards        []Card
	Errors       []string
	// Vector is the query embedding, set only with SearchOptions.IncludeVector.
	Vector []float32
}

// Card holds the hits of one approach.
type Card struct {
	Approach  Approach
	Label     string
	Documents []Document
	Answer    *SemanticAnswer
}

// Document is one search hit.
type Document struct {
	ID            string
	Title         string
	Content       string
	ImageURL      string
	Category      string
	Score         float64
	RerankerScore *float64
	Snippet       string
	Captions      []Caption
}

// Caption is an extractive caption.
type Caption struct {
	Text       string
	Highlights string
}

// SemanticAnswer is an extractive answer of a reranked query.
type SemanticAnswer struct {
	Key        string
	Text       string
	Highlights string
	Score      float64
}

// HealthReport is the outcome of Client.Health.
type HealthReport struct {
	Status string
	Checks map[string]string
}

func resultFromOutcome(out *result.Outcome) Result {
	cards := make([]Card, len(out.Cards))
	for i := range out.Cards {
		c := &out.Cards[i]
		docs := make([]Document, len(c.Documents))
		for j := range c.Documents {
			docs[j] = documentFromDomain(&c.Documents[j])
		}
		card := Card{
			Approach:  Approach(c.Approach),
			Label:     c.Approach.Label(),
			Documents: docs,
		}
		if c.SemanticAnswer != nil {
			card.Answer = &SemanticAnswer{
				Key:        c.SemanticAnswer.Key,
				Text:       c.SemanticAnswer.Text,
				Highlights: c.SemanticAnswer.Highlights,
				Score:      c.SemanticAnswer.Score,
			}
		}
		cards[i] = card
	}
	errs := out.Errors
	if errs == nil {
		errs = []string{}
	}
	return Result{
		InvocationID: out.InvocationID,
		Query:        out.Query,
		Cards:        cards,
		Errors:       errs,
		Vector:       out.Vector,
	}
}

func documentFromDomain(d *result.Document) Document {
	var captions []Caption
	for _, c := range d.Captions() {
		captions = append(captions, Caption{Text: c.Text, Highlights: c.Highlights})
	}
	return Document{
		ID:            d.ID(),
		Title:         d.Title(),
		Content:       d.Content(),
		ImageURL:      d.ImageURL(),
		Category:      d.Category(),
		Score:         d.Score(),
		RerankerScore: d.RerankerScore(),
		Snippet:       d.Snippet(),
		Captions:      captions,
	}
}
