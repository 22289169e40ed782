package vecdemo

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/kailas-cloud/vecdemo/internal/domain"
	"github.com/kailas-cloud/vecdemo/internal/domain/search/approach"
	"github.com/kailas-cloud/vecdemo/internal/domain/search/request"
	"github.com/kailas-cloud/vecdemo/internal/domain/search/result"
	"github.com/kailas-cloud/vecdemo/internal/usecase/invocation"
)

// fakeAzure serves the embedding and search endpoints from one server.
// Semantic queries fail with 503.
type fakeAzure struct {
	mu       sync.Mutex
	embeds   int
	searches []map[string]any
}

func (f *fakeAzure) handler(t *testing.T) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasPrefix(r.URL.Path, "/openai/deployments/"):
			f.mu.Lock()
			f.embeds++
			f.mu.Unlock()
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"object":"list","data":[{"object":"embedding","index":0,` +
				`"embedding":[0.1,0.2,0.3]}],"model":"ada","usage":{"prompt_tokens":3,"total_tokens":3}}`))
		case strings.HasSuffix(r.URL.Path, "/docs/search"):
			var body map[string]any
			if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
				t.Errorf("decode search body: %v", err)
			}
			f.mu.Lock()
			f.searches = append(f.searches, body)
			f.mu.Unlock()
			w.Header().Set("Content-Type", "application/json")
			if body["queryType"] == "semantic" {
				w.WriteHeader(http.StatusServiceUnavailable)
				_, _ = w.Write([]byte(`{"error":{"code":"ServiceUnavailable","message":"busy"}}`))
				return
			}
			_, _ = w.Write([]byte(`{"value":[{"id":"1","title":"Doc A","content":"body","@search.score":0.9}]}`))
		default:
			http.NotFound(w, r)
		}
	})
}

func (f *fakeAzure) counts() (embeds int, searches []map[string]any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.embeds, append([]map[string]any(nil), f.searches...)
}

func newTestClient(t *testing.T, srv *httptest.Server, extra ...Option) *Client {
	t.Helper()
	opts := append([]Option{
		WithTextEmbedding(srv.URL, "embedding-ada", "aoai-key"),
		WithSearchService(srv.URL, "search-key"),
		WithTextIndex("docs"),
		WithHTTPClient(srv.Client()),
	}, extra...)
	c, err := New(opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c
}

func TestNew_MissingRequired(t *testing.T) {
	_, err := New()
	if err == nil {
		t.Fatal("expected error without options")
	}
	for _, want := range []string{"WithTextEmbedding", "WithSearchService", "WithTextIndex"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q should mention %s", err, want)
		}
	}
}

func TestNew_ImageRequiresIndex(t *testing.T) {
	_, err := New(
		WithTextEmbedding("https://aoai", "dep", "k"),
		WithSearchService("https://search", "k"),
		WithTextIndex("docs"),
		WithImageEmbedding("https://vision", "k"),
	)
	if err == nil || !strings.Contains(err.Error(), "WithImageIndex") {
		t.Fatalf("expected image index error, got %v", err)
	}
}

func TestClientOptions(t *testing.T) {
	cfg := &clientConfig{}
	WithTextEmbedding("e", "d", "k").apply(cfg)
	WithTextEmbeddingAPIVersion("2024-02-01").apply(cfg)
	if cfg.text.endpoint != "e" || cfg.text.deployment != "d" || cfg.text.apiKey != "k" || cfg.text.apiVersion != "2024-02-01" {
		t.Errorf("text embedding = %+v", cfg.text)
	}

	WithImageEmbedding("v", "vk").apply(cfg)
	WithImageModelVersion("2023-04-15").apply(cfg)
	if cfg.image.endpoint != "v" || cfg.image.apiKey != "vk" || cfg.image.modelVersion != "2023-04-15" {
		t.Errorf("image embedding = %+v", cfg.image)
	}

	cfg.textVectorField, cfg.imageVectorField = "contentVector", "imageVector"
	WithVectorFields("", "photoVector").apply(cfg)
	if cfg.textVectorField != "contentVector" || cfg.imageVectorField != "photoVector" {
		t.Errorf("vector fields = (%s, %s)", cfg.textVectorField, cfg.imageVectorField)
	}

	WithTimeout(5 * time.Second).apply(cfg)
	if cfg.timeout != 5*time.Second {
		t.Errorf("timeout = %v", cfg.timeout)
	}

	logger := slog.Default()
	WithLogger(logger).apply(cfg)
	if cfg.logger != logger {
		t.Error("expected logger to be set")
	}

	reg := prometheus.NewRegistry()
	WithPrometheus(reg).apply(cfg)
	if cfg.metricsReg != reg {
		t.Error("expected metricsReg to be set")
	}
}

func TestSearchText_EndToEnd(t *testing.T) {
	fake := &fakeAzure{}
	srv := httptest.NewServer(fake.handler(t))
	defer srv.Close()
	c := newTestClient(t, srv)

	res, err := c.SearchText(context.Background(), "scalable storage", SearchOptions{
		Approaches: []Approach{ApproachVector, ApproachHybridSemantic, ApproachText},
	})
	if err != nil {
		t.Fatalf("SearchText: %v", err)
	}

	embeds, searches := fake.counts()
	if embeds != 1 {
		t.Errorf("embedding calls: got %d, want 1", embeds)
	}
	if len(searches) != 3 {
		t.Errorf("search calls: got %d, want 3", len(searches))
	}
	if len(res.Cards) != 2 {
		t.Fatalf("cards: got %d, want 2", len(res.Cards))
	}
	if res.Cards[0].Approach != ApproachVector || res.Cards[1].Approach != ApproachText {
		t.Errorf("card order: %s, %s", res.Cards[0].Approach, res.Cards[1].Approach)
	}
	if res.Cards[0].Documents[0].Title != "Doc A" {
		t.Errorf("document: %+v", res.Cards[0].Documents[0])
	}
	want := "Hybrid + Semantic Reranking search failed: search service returned 503: busy"
	if len(res.Errors) != 1 || res.Errors[0] != want {
		t.Errorf("errors: got %v, want [%q]", res.Errors, want)
	}
	if res.Vector != nil {
		t.Error("vector must be omitted by default")
	}
}

func TestSearchText_EmptyQuery(t *testing.T) {
	fake := &fakeAzure{}
	srv := httptest.NewServer(fake.handler(t))
	defer srv.Close()
	c := newTestClient(t, srv)

	res, err := c.SearchText(context.Background(), "   ", SearchOptions{})
	if err != nil {
		t.Fatalf("SearchText: %v", err)
	}
	if len(res.Cards) != 0 || len(res.Errors) != 0 || res.Errors == nil {
		t.Errorf("expected empty non-nil result, got %+v", res)
	}
	if embeds, searches := fake.counts(); embeds != 0 || len(searches) != 0 {
		t.Error("empty query must not call remote services")
	}
}

func TestSearchText_DefaultFilter(t *testing.T) {
	fake := &fakeAzure{}
	srv := httptest.NewServer(fake.handler(t))
	defer srv.Close()
	c := newTestClient(t, srv, WithDefaultFilter("category eq 'Databases'"))

	if _, err := c.SearchText(context.Background(), "q", SearchOptions{
		Approaches: []Approach{ApproachVectorFilter},
	}); err != nil {
		t.Fatalf("SearchText: %v", err)
	}
	_, searches := fake.counts()
	if len(searches) != 1 || searches[0]["filter"] != "category eq 'Databases'" {
		t.Errorf("search body: %v", searches)
	}
}

func TestSearchText_Validation(t *testing.T) {
	fake := &fakeAzure{}
	srv := httptest.NewServer(fake.handler(t))
	defer srv.Close()
	c := newTestClient(t, srv)

	_, err := c.SearchText(context.Background(), "q", SearchOptions{Approaches: []Approach{"bm25"}})
	if !errors.Is(err, ErrInvalidRequest) || !errors.Is(err, ErrUnknownApproach) {
		t.Errorf("unknown approach: got %v", err)
	}
	_, err = c.SearchText(context.Background(), "q", SearchOptions{Approaches: []Approach{ApproachVectorFilter}})
	if !errors.Is(err, ErrFilterRequired) {
		t.Errorf("filter required: got %v", err)
	}
}

func TestSearchImage_Disabled(t *testing.T) {
	fake := &fakeAzure{}
	srv := httptest.NewServer(fake.handler(t))
	defer srv.Close()
	c := newTestClient(t, srv)

	if _, err := c.SearchImage(context.Background(), "bike", SearchOptions{}); !errors.Is(err, ErrImageSearchDisabled) {
		t.Errorf("got %v, want ErrImageSearchDisabled", err)
	}
}

func TestSearchText_EmbeddingFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"code":"401","message":"Access denied"}}`))
	}))
	defer srv.Close()
	c := newTestClient(t, srv)

	_, err := c.SearchText(context.Background(), "q", SearchOptions{})
	if !IsEmbeddingFailure(err) {
		t.Fatalf("expected embedding failure, got %v", err)
	}
	var rse *RemoteServiceError
	if !errors.As(err, &rse) || rse.Status != http.StatusUnauthorized {
		t.Errorf("remote error: %+v", rse)
	}
}

// blockingRunner blocks until the invocation context is cancelled.
type blockingRunner struct {
	started chan struct{}
}

func (b *blockingRunner) Run(ctx context.Context, _ *request.Request) (result.Outcome, error) {
	id, _ := invocation.IDFromContext(ctx)
	b.started <- struct{}{}
	<-ctx.Done()
	if errors.Is(context.Cause(ctx), domain.ErrSuperseded) {
		return result.Outcome{}, domain.ErrSuperseded
	}
	return result.Outcome{InvocationID: id, Cards: []result.Card{}, Errors: []string{}}, nil
}

func TestSession_LatestWins(t *testing.T) {
	first := &blockingRunner{started: make(chan struct{}, 1)}
	c := &Client{text: first, registry: invocation.NewRegistry()}
	s := c.Session("tab-1")

	errc := make(chan error, 1)
	go func() {
		_, err := s.SearchText(context.Background(), "old", SearchOptions{})
		errc <- err
	}()
	<-first.started

	second := &mockRunner{out: result.Outcome{
		Cards: []result.Card{{Approach: approach.TextOnly, Documents: []result.Document{}}},
	}}
	c.text = second
	res, err := s.SearchText(context.Background(), "new", SearchOptions{})
	if err != nil {
		t.Fatalf("second search: %v", err)
	}
	if len(res.Cards) != 1 {
		t.Errorf("second result cards: got %d", len(res.Cards))
	}

	select {
	case err := <-errc:
		if !errors.Is(err, ErrSuperseded) {
			t.Errorf("first search: got %v, want ErrSuperseded", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("first search was not cancelled")
	}
}

type mockRunner struct {
	out result.Outcome
	err error
}

func (m *mockRunner) Run(_ context.Context, req *request.Request) (result.Outcome, error) {
	out := m.out
	out.Query = req.Query()
	return out, m.err
}

func TestResultFromOutcome(t *testing.T) {
	score := 1.5
	out := result.Outcome{
		InvocationID: "id",
		Query:        "q",
		Cards: []result.Card{{
			Approach: approach.HybridSemanticRerank,
			Documents: []result.Document{result.NewDocument(result.DocumentFields{
				ID: "1", Content: "c", RerankerScore: &score,
				Captions: []result.Caption{{Text: "t", Highlights: "<b>t</b>"}},
			})},
			SemanticAnswer: &result.SemanticAnswer{Key: "1", Text: "a"},
		}},
	}

	res := resultFromOutcome(&out)
	card := res.Cards[0]
	if card.Approach != ApproachHybridSemantic || card.Label != "Hybrid + Semantic Reranking" {
		t.Errorf("card: %+v", card)
	}
	if card.Answer == nil || card.Answer.Text != "a" {
		t.Errorf("answer: %+v", card.Answer)
	}
	doc := card.Documents[0]
	if doc.Snippet != "<b>t</b>" || *doc.RerankerScore != 1.5 || len(doc.Captions) != 1 {
		t.Errorf("document: %+v", doc)
	}
	if res.Errors == nil {
		t.Error("errors must be non-nil")
	}
}

func TestApproaches(t *testing.T) {
	all := Approaches()
	if len(all) != 5 || all[0] != ApproachText || all[4] != ApproachHybridSemantic {
		t.Errorf("approaches: %v", all)
	}
	if ApproachHybrid.Label() != "Vectors + Text (Hybrid Search)" {
		t.Errorf("label: %s", ApproachHybrid.Label())
	}
}

func TestObserver_NilSafe(t *testing.T) {
	// nil observer should not panic.
	var obs *observer
	obs.observe("test", time.Now(), 0, nil)
	obs.observe("test", time.Now(), 0, errors.New("err"))
}

func TestObserver_WithPrometheus(t *testing.T) {
	reg := prometheus.NewRegistry()
	obs, err := newObserver(nil, reg)
	if err != nil {
		t.Fatalf("newObserver: %v", err)
	}

	obs.observe("search.text", time.Now().Add(-10*time.Millisecond), 1, nil)
	obs.observe("search.text", time.Now(), 0, errors.New("fail"))

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}

	found := map[string]int{}
	for _, f := range families {
		found[f.GetName()] = len(f.GetMetric())
	}
	if found["vecdemo_sdk_operations_total"] != 2 {
		t.Errorf("operations samples: got %d, want 2", found["vecdemo_sdk_operations_total"])
	}
	if found["vecdemo_sdk_approach_failures_total"] != 1 {
		t.Errorf("approach failure samples: got %d, want 1", found["vecdemo_sdk_approach_failures_total"])
	}
}

func TestObserver_ReusesRegistered(t *testing.T) {
	reg := prometheus.NewRegistry()
	if _, err := newObserver(nil, reg); err != nil {
		t.Fatalf("first newObserver: %v", err)
	}
	if _, err := newObserver(nil, reg); err != nil {
		t.Fatalf("second newObserver should reuse collectors: %v", err)
	}
}

func TestObserver_WithLogger(t *testing.T) {
	logger := slog.Default()
	obs, err := newObserver(logger, nil)
	if err != nil {
		t.Fatalf("newObserver: %v", err)
	}
	obs.observe("test.op", time.Now(), 0, nil)
	obs.observe("test.op", time.Now(), 0, errors.New("test error"))
}
