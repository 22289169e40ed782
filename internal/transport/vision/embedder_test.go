package vision

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/kailas-cloud/vecdemo/internal/domain"
	"github.com/kailas-cloud/vecdemo/internal/metrics"
)

func TestMain(m *testing.M) {
	metrics.RegisterEmbeddingMetrics()
	os.Exit(m.Run())
}

func TestEmbedder_Embed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/computervision/retrieval:vectorizeText" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("api-version") != "2023-02-01-preview" {
			t.Errorf("unexpected api-version: %q", q.Get("api-version"))
		}
		if q.Get("model-version") != "latest" {
			t.Errorf("unexpected model-version: %q", q.Get("model-version"))
		}
		if r.Header.Get("Ocp-Apim-Subscription-Key") != "vision-key" {
			t.Errorf("unexpected key header: %q", r.Header.Get("Ocp-Apim-Subscription-Key"))
		}

		var body vectorizeRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		if body.Text != "red bicycle" {
			t.Errorf("unexpected text: %q", body.Text)
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(vectorizeResponse{ModelVersion: "2022-04-11", Vector: []float32{0.5, -0.5, 1}})
	}))
	defer server.Close()

	emb := NewEmbedder(&Config{
		Endpoint:     server.URL + "/",
		ModelVersion: "latest",
		APIKey:       "vision-key",
		Provider:     "vision-ok",
	})

	result, err := emb.Embed(context.Background(), "red bicycle")
	if err != nil {
		t.Fatalf("Embed failed: %v", err)
	}
	if len(result.Embedding) != 3 || result.Embedding[1] != -0.5 {
		t.Errorf("unexpected vector: %v", result.Embedding)
	}

	got := testutil.ToFloat64(metrics.EmbeddingRequestsTotal.WithLabelValues("vision-ok", "latest", "success"))
	if got != 1 {
		t.Errorf("success counter = %v, expected 1", got)
	}
}

func TestEmbedder_NoModelVersion(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := r.URL.Query()["model-version"]; ok {
			t.Error("model-version must be omitted when not configured")
		}
		json.NewEncoder(w).Encode(vectorizeResponse{Vector: []float32{1}})
	}))
	defer server.Close()

	emb := NewEmbedder(&Config{Endpoint: server.URL, APIKey: "k"})
	if _, err := emb.Embed(context.Background(), "x"); err != nil {
		t.Fatalf("Embed failed: %v", err)
	}
}

func TestEmbedder_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":{"code":"401","message":"Access denied due to invalid subscription key"}}`))
	}))
	defer server.Close()

	emb := NewEmbedder(&Config{Endpoint: server.URL, APIKey: "bad", Provider: "vision-err"})
	_, err := emb.Embed(context.Background(), "x")
	if err == nil {
		t.Fatal("expected error")
	}

	var rse *domain.RemoteServiceError
	if !errors.As(err, &rse) {
		t.Fatalf("expected RemoteServiceError, got %T", err)
	}
	if rse.Service != domain.ServiceEmbedding || rse.Status != http.StatusUnauthorized {
		t.Errorf("unexpected error: %+v", rse)
	}
	if rse.Message != "Access denied due to invalid subscription key" {
		t.Errorf("unexpected message: %q", rse.Message)
	}

	got := testutil.ToFloat64(metrics.EmbeddingErrorsTotal.WithLabelValues("vision-err", "default", "api_error"))
	if got != 1 {
		t.Errorf("error counter = %v, expected 1", got)
	}
}

func TestEmbedder_PlainTextError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream timeout", http.StatusGatewayTimeout)
	}))
	defer server.Close()

	_, err := NewEmbedder(&Config{Endpoint: server.URL}).Embed(context.Background(), "x")

	var rse *domain.RemoteServiceError
	if !errors.As(err, &rse) {
		t.Fatalf("expected RemoteServiceError, got %v", err)
	}
	if rse.Status != http.StatusGatewayTimeout || rse.Message != "upstream timeout" {
		t.Errorf("unexpected error: %+v", rse)
	}
}

func TestEmbedder_MalformedResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"vector": "not-a-vector"}`))
	}))
	defer server.Close()

	_, err := NewEmbedder(&Config{Endpoint: server.URL}).Embed(context.Background(), "x")
	if !errors.Is(err, domain.ErrMalformedResponse) {
		t.Errorf("expected ErrMalformedResponse, got %v", err)
	}
	if !domain.IsEmbeddingFailure(err) {
		t.Errorf("expected embedding failure, got %v", err)
	}
}

func TestEmbedder_EmptyVector(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"modelVersion":"2022-04-11","vector":[]}`))
	}))
	defer server.Close()

	_, err := NewEmbedder(&Config{Endpoint: server.URL}).Embed(context.Background(), "x")
	if !domain.IsEmbeddingFailure(err) {
		t.Errorf("expected embedding failure, got %v", err)
	}
}

func TestEmbedder_Unreachable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := server.URL
	server.Close()

	_, err := NewEmbedder(&Config{Endpoint: url}).Embed(context.Background(), "x")

	var rse *domain.RemoteServiceError
	if !errors.As(err, &rse) {
		t.Fatalf("expected RemoteServiceError, got %v", err)
	}
	if rse.Status != 0 {
		t.Errorf("status = %d, expected 0", rse.Status)
	}
}

func TestEmbedder_Timeout(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		<-release
	}))
	defer server.Close()
	defer close(release)

	emb := NewEmbedder(&Config{Endpoint: server.URL, Timeout: 50 * time.Millisecond})
	if emb.client.Timeout != 50*time.Millisecond {
		t.Fatalf("client timeout = %v", emb.client.Timeout)
	}

	_, err := emb.Embed(context.Background(), "x")
	var rse *domain.RemoteServiceError
	if !errors.As(err, &rse) || rse.Status != 0 {
		t.Fatalf("expected unreachable RemoteServiceError, got %v", err)
	}
}

func TestNewEmbedder_DefaultTimeout(t *testing.T) {
	if got := NewEmbedder(&Config{Endpoint: "http://x"}).client.Timeout; got != DefaultTimeout {
		t.Errorf("default client timeout = %v, want %v", got, DefaultTimeout)
	}
	custom := &http.Client{}
	if got := NewEmbedder(&Config{Endpoint: "http://x", HTTPClient: custom}).client; got != custom {
		t.Error("explicit HTTP client must be used as-is")
	}
}
