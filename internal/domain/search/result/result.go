package result

import "github.com/kailas-cloud/vecdemo/internal/domain/search/approach"

// Caption is an extractive snippet explaining why a document matched.
type Caption struct {
	Text       string
	Highlights string
}

// SemanticAnswer is an extractive answer produced by the semantic reranker.
type SemanticAnswer struct {
	Key        string
	Text       string
	Highlights string
	Score      float64
}

// Document is a single search hit. Immutable after receipt.
type Document struct {
	id            string
	title         string
	content       string
	imageURL      string
	category      string
	score         float64
	rerankerScore *float64
	captions      []Caption
}

// DocumentFields groups the known fields of a search hit.
type DocumentFields struct {
	ID            string
	Title         string
	Content       string
	ImageURL      string
	Category      string
	Score         float64
	RerankerScore *float64
	Captions      []Caption
}

// NewDocument creates a search hit.
func NewDocument(f DocumentFields) Document {
	return Document{
		id:            f.ID,
		title:         f.Title,
		content:       f.Content,
		imageURL:      f.ImageURL,
		category:      f.Category,
		score:         f.Score,
		rerankerScore: f.RerankerScore,
		captions:      f.Captions,
	}
}

// ID returns the document identifier.
func (d *Document) ID() string { return d.id }

// Title returns the document title.
func (d *Document) Title() string { return d.title }

// Content returns the document body (empty for image documents).
func (d *Document) Content() string { return d.content }

// ImageURL returns the image location (empty for text documents).
func (d *Document) ImageURL() string { return d.imageURL }

// Category returns the document category.
func (d *Document) Category() string { return d.category }

// Score returns the relevance score.
func (d *Document) Score() float64 { return d.score }

// RerankerScore returns the semantic reranker score, nil when reranking was off.
func (d *Document) RerankerScore() *float64 { return d.rerankerScore }

// Captions returns the semantic captions.
func (d *Document) Captions() []Caption { return d.captions }

// Snippet returns the best display text: caption highlights, caption text, then content.
func (d *Document) Snippet() string {
	if len(d.captions) > 0 {
		if d.captions[0].Highlights != "" {
			return d.captions[0].Highlights
		}
		if d.captions[0].Text != "" {
			return d.captions[0].Text
		}
	}
	return d.content
}

// Response is the decoded result of one search call.
type Response struct {
	Documents []Document
	Answers   []SemanticAnswer
}

// Card pairs an approach with its matched documents.
type Card struct {
	Approach       approach.Approach
	Documents      []Document
	SemanticAnswer *SemanticAnswer
}

// NewCard builds a card from a search response. The first answer, if any, becomes the card answer.
func NewCard(a approach.Approach, resp Response) Card {
	docs := resp.Documents
	if docs == nil {
		docs = []Document{}
	}
	c := Card{Approach: a, Documents: docs}
	if len(resp.Answers) > 0 {
		ans := resp.Answers[0]
		c.SemanticAnswer = &ans
	}
	return c
}

// Outcome aggregates one search invocation. Partial success is a valid outcome.
type Outcome struct {
	InvocationID string
	Query        string
	Vector       []float32
	Cards        []Card
	Errors       []string
}

// Empty returns the outcome of an empty query.
func Empty(invocationID string) Outcome {
	return Outcome{InvocationID: invocationID, Cards: []Card{}, Errors: []string{}}
}

// Partial reports whether some approaches succeeded and some failed.
func (o *Outcome) Partial() bool {
	return len(o.Cards) > 0 && len(o.Errors) > 0
}
