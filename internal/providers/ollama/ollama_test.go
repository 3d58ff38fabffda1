package ollama

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/modelmux/modelmux/pkg/aimodel"
	"github.com/modelmux/modelmux/pkg/aimodel/aimodeltest"
)

// newTestProvider creates a Provider pointing at the given httptest server URL.
func newTestProvider(t *testing.T, serverURL string) *Provider {
	t.Helper()
	return &Provider{
		baseURL:    serverURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		limiter:    rate.NewLimiter(rate.Inf, 1),
		maxRetries: 2,
		logger:     zap.NewNop(),
	}
}

// mockOllama returns an httptest server that handles the Ollama endpoints.
func mockOllama(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()

	mux.HandleFunc("GET /", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("Ollama is running")) //nolint:errcheck
	})

	mux.HandleFunc("POST /api/chat", func(w http.ResponseWriter, r *http.Request) {
		var req chatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if req.Stream != nil && *req.Stream {
			http.Error(w, `{"error":"streaming is not supported here"}`, http.StatusBadRequest)
			return
		}
		resp := chatResponse{
			Model:           req.Model,
			Message:         chatMessage{Role: "assistant", Content: "The answer is 4."},
			Done:            true,
			PromptEvalCount: 10,
			EvalCount:       6,
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp) //nolint:errcheck
	})

	mux.HandleFunc("GET /api/tags", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"models": [{"name": "qwen2.5:14b"}, {"name": "llama3:8b"}]}`)
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestNew_InvalidURL(t *testing.T) {
	_, err := New(Config{BaseURL: "://bad"}, zap.NewNop())
	if err == nil {
		t.Fatal("expected error for invalid URL")
	}
}

func TestNew_TrimsTrailingSlash(t *testing.T) {
	p, err := New(Config{BaseURL: "http://localhost:11434/"}, zap.NewNop())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if p.baseURL != "http://localhost:11434" {
		t.Errorf("baseURL = %q, want trailing slash removed", p.baseURL)
	}
}

func TestChat_Success(t *testing.T) {
	srv := mockOllama(t)
	p := newTestProvider(t, srv.URL)

	resp, err := p.Chat(context.Background(), []aimodel.Message{
		{Role: aimodel.RoleSystem, Content: "You are helpful."},
		{Role: aimodel.RoleUser, Content: "What is 2+2?"},
	}, aimodel.WithModel("qwen2.5:14b"))
	if err != nil {
		t.Fatalf("Chat() error = %v", err)
	}
	if resp.Content != "The answer is 4." {
		t.Errorf("Content = %q", resp.Content)
	}
	if resp.Model != "qwen2.5:14b" {
		t.Errorf("Model = %q, want %q", resp.Model, "qwen2.5:14b")
	}
	if resp.Usage.TotalTokens != 16 {
		t.Errorf("TotalTokens = %d, want 16", resp.Usage.TotalTokens)
	}
	if !resp.Done {
		t.Error("Done = false, want true")
	}
}

func TestChat_DisablesStreaming(t *testing.T) {
	// The mock rejects streaming requests, so a passing Chat proves the
	// request carried stream=false.
	srv := mockOllama(t)
	p := newTestProvider(t, srv.URL)

	if _, err := p.Chat(context.Background(), []aimodel.Message{
		{Role: aimodel.RoleUser, Content: "hello"},
	}, aimodel.WithModel("qwen2.5:14b")); err != nil {
		t.Fatalf("Chat() error = %v", err)
	}
}

func TestChat_EmptyMessages(t *testing.T) {
	srv := mockOllama(t)
	p := newTestProvider(t, srv.URL)

	_, err := p.Chat(context.Background(), nil, aimodel.WithModel("qwen2.5:14b"))
	if code := aimodel.Code(err); code != aimodel.ErrCodeInvalidRequest {
		t.Errorf("error code = %q, want %q", code, aimodel.ErrCodeInvalidRequest)
	}
}

func TestHeartbeat_Success(t *testing.T) {
	srv := mockOllama(t)
	p := newTestProvider(t, srv.URL)

	if err := p.Heartbeat(context.Background()); err != nil {
		t.Errorf("Heartbeat() error = %v", err)
	}
}

func TestHeartbeat_ServerDown(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()

	p := newTestProvider(t, srv.URL)
	if err := p.Heartbeat(context.Background()); err == nil {
		t.Fatal("expected error for closed server")
	}
}

func TestListModels_Success(t *testing.T) {
	srv := mockOllama(t)
	p := newTestProvider(t, srv.URL)

	models, err := p.ListModels(context.Background())
	if err != nil {
		t.Fatalf("ListModels() error = %v", err)
	}
	if len(models) != 2 {
		t.Fatalf("ListModels() returned %d models, want 2", len(models))
	}
	if models[0] != "qwen2.5:14b" {
		t.Errorf("models[0] = %q, want %q", models[0], "qwen2.5:14b")
	}
}

func TestBuildOptions(t *testing.T) {
	opts := buildOptions(aimodel.ApplyOptions(
		aimodel.WithTemperature(0.3),
		aimodel.WithMaxTokens(100),
	))
	if opts["temperature"] != 0.3 {
		t.Errorf("temperature = %v, want 0.3", opts["temperature"])
	}
	if opts["num_predict"] != 100 {
		t.Errorf("num_predict = %v, want 100", opts["num_predict"])
	}

	if empty := buildOptions(aimodel.ApplyOptions()); len(empty) != 0 {
		t.Errorf("empty config produced options %v", empty)
	}
}

func TestMapError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode string
	}{
		{"model not found", &statusError{StatusCode: 404, Message: "model 'nope' not found"}, aimodel.ErrCodeModelNotFound},
		{"plain 404", &statusError{StatusCode: 404, Message: "not found"}, aimodel.ErrCodeInvalidRequest},
		{"server error", &statusError{StatusCode: 500, Message: "internal"}, aimodel.ErrCodeServerError},
		{"deadline exceeded", context.DeadlineExceeded, aimodel.ErrCodeTimeout},
		{"cancelled", context.Canceled, aimodel.ErrCodeTimeout},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if code := aimodel.Code(mapError(tt.err)); code != tt.wantCode {
				t.Errorf("mapError(%v) code = %q, want %q", tt.err, code, tt.wantCode)
			}
		})
	}
}

func TestContract(t *testing.T) {
	srv := mockOllama(t)
	aimodeltest.TestProviderContract(t, func() aimodel.Provider {
		return newTestProvider(t, srv.URL)
	})
}
