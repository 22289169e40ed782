package chi

import (
	"github.com/kailas-cloud/vecdemo/internal/domain/search/approach"
	"github.com/kailas-cloud/vecdemo/internal/domain/search/result"
	"github.com/kailas-cloud/vecdemo/internal/usecase/health"
)

// SearchRequest is the POST body of both search endpoints.
type SearchRequest struct {
	Query         string   `json:"query"`
	Approaches    []string `json:"approaches,omitempty"`
	Filter        string   `json:"filter,omitempty"`
	Captions      bool     `json:"captions,omitempty"`
	IncludeVector bool     `json:"include_vector,omitempty"`
	// SessionID groups invocations of one caller; a newer one supersedes the older.
	SessionID string `json:"session_id,omitempty"`
}

// SearchParams are the query parameters of GET search.
type SearchParams struct {
	Q             *string
	Approach      *[]string
	Filter        *string
	Captions      *bool
	IncludeVector *bool
	SessionID     *string
}

// SearchResponse is the aggregated outcome of one invocation.
type SearchResponse struct {
	InvocationID string         `json:"invocation_id"`
	Query        string         `json:"query"`
	Cards        []CardResponse `json:"cards"`
	Errors       []string       `json:"errors"`
	QueryVector  []float32      `json:"query_vector,omitempty"`
}

// CardResponse holds the hits of one approach.
type CardResponse struct {
	ApproachKey    string                  `json:"approach_key"`
	ApproachLabel  string                  `json:"approach_label"`
	SearchResults  []DocumentResponse      `json:"search_results"`
	SemanticAnswer *SemanticAnswerResponse `json:"semantic_answer"`
}

// DocumentResponse is one search hit.
type DocumentResponse struct {
	ID            string            `json:"id"`
	Title         string            `json:"title,omitempty"`
	Content       string            `json:"content,omitempty"`
	ImageURL      string            `json:"imageUrl,omitempty"`
	Category      string            `json:"category,omitempty"`
	Score         float64           `json:"score"`
	RerankerScore *float64          `json:"reranker_score,omitempty"`
	Snippet       string            `json:"snippet,omitempty"`
	Captions      []CaptionResponse `json:"captions,omitempty"`
}

// CaptionResponse is an extractive caption.
type CaptionResponse struct {
	Text       string `json:"text"`
	Highlights string `json:"highlights,omitempty"`
}

// SemanticAnswerResponse is the extractive answer of a reranked query.
type SemanticAnswerResponse struct {
	Key        string  `json:"key"`
	Text       string  `json:"text"`
	Highlights string  `json:"highlights,omitempty"`
	Score      float64 `json:"score"`
}

// ApproachResponse describes one retrieval approach.
type ApproachResponse struct {
	Key            string `json:"key"`
	Label          string `json:"label"`
	UsesText       bool   `json:"uses_text"`
	UsesVector     bool   `json:"uses_vector"`
	RequiresFilter bool   `json:"requires_filter"`
	Semantic       bool   `json:"semantic"`
}

// ApproachesResponse is the approach catalog.
type ApproachesResponse struct {
	Approaches    []ApproachResponse `json:"approaches"`
	MaxSelected   int                `json:"max_selected"`
	ImageEnabled  bool               `json:"image_enabled"`
	DefaultFilter string             `json:"default_filter,omitempty"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

func outcomeToResponse(out *result.Outcome) SearchResponse {
	cards := make([]CardResponse, len(out.Cards))
	for i := range out.Cards {
		cards[i] = cardToResponse(&out.Cards[i])
	}
	errs := out.Errors
	if errs == nil {
		errs = []string{}
	}
	return SearchResponse{
		InvocationID: out.InvocationID,
		Query:        out.Query,
		Cards:        cards,
		Errors:       errs,
		QueryVector:  out.Vector,
	}
}

func cardToResponse(c *result.Card) CardResponse {
	docs := make([]DocumentResponse, len(c.Documents))
	for i := range c.Documents {
		docs[i] = documentToResponse(&c.Documents[i])
	}
	resp := CardResponse{
		ApproachKey:   c.Approach.Key(),
		ApproachLabel: c.Approach.Label(),
		SearchResults: docs,
	}
	if c.SemanticAnswer != nil {
		resp.SemanticAnswer = &SemanticAnswerResponse{
			Key:        c.SemanticAnswer.Key,
			Text:       c.SemanticAnswer.Text,
			Highlights: c.SemanticAnswer.Highlights,
			Score:      c.SemanticAnswer.Score,
		}
	}
	return resp
}

func documentToResponse(d *result.Document) DocumentResponse {
	var captions []CaptionResponse
	if len(d.Captions()) > 0 {
		captions = make([]CaptionResponse, len(d.Captions()))
		for i, c := range d.Captions() {
			captions[i] = CaptionResponse{Text: c.Text, Highlights: c.Highlights}
		}
	}
	return DocumentResponse{
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

func approachToResponse(a approach.Approach) ApproachResponse {
	return ApproachResponse{
		Key:            a.Key(),
		Label:          a.Label(),
		UsesText:       a.UsesText(),
		UsesVector:     a.UsesVector(),
		RequiresFilter: a.UsesFilter(),
		Semantic:       a.UsesSemantic(),
	}
}

func healthToResponse(r health.Report) HealthResponse {
	checks := make(map[string]string, len(r.Checks))
	for name, c := range r.Checks {
		checks[name] = string(c)
	}
	return HealthResponse{Status: string(r.Status), Checks: checks}
}
