package openrouter

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
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
		apiKey:     "test-key",
		httpClient: &http.Client{Timeout: 10 * time.Second},
		limiter:    rate.NewLimiter(rate.Inf, 1),
		maxRetries: 2,
		logger:     zap.NewNop(),
	}
}

// completionJSON builds a minimal chat completions response body.
func completionJSON(model, content string) string {
	return fmt.Sprintf(`{
		"id": "gen-1",
		"model": %q,
		"choices": [{"message": {"role": "assistant", "content": %q}, "finish_reason": "stop"}],
		"usage": {"prompt_tokens": 10, "completion_tokens": 6, "total_tokens": 16}
	}`, model, content)
}

// mockOpenRouter returns an httptest server speaking the chat completions API.
func mockOpenRouter(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()

	mux.HandleFunc("POST /chat/completions", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer test-key" {
			http.Error(w, `{"error":{"message":"invalid api key"}}`, http.StatusUnauthorized)
			return
		}
		var req chatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, completionJSON(req.Model, "The answer is 4."))
	})

	mux.HandleFunc("GET /models", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"data": [{"id": "anthropic/claude-sonnet-4"}, {"id": "openai/gpt-4o"}]}`)
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestNew_RequiresAPIKey(t *testing.T) {
	_, err := New(Config{}, zap.NewNop())
	if err == nil {
		t.Fatal("expected error for missing api key")
	}
}

func TestChat_Success(t *testing.T) {
	srv := mockOpenRouter(t)
	p := newTestProvider(t, srv.URL)

	resp, err := p.Chat(context.Background(), []aimodel.Message{
		{Role: aimodel.RoleUser, Content: "What is 2+2?"},
	}, aimodel.WithModel("openai/gpt-4o"))
	if err != nil {
		t.Fatalf("Chat() error = %v", err)
	}
	if resp.Content != "The answer is 4." {
		t.Errorf("Content = %q", resp.Content)
	}
	if resp.Model != "openai/gpt-4o" {
		t.Errorf("Model = %q, want %q", resp.Model, "openai/gpt-4o")
	}
	if resp.Usage.TotalTokens != 16 {
		t.Errorf("TotalTokens = %d, want 16", resp.Usage.TotalTokens)
	}
	if !resp.Done {
		t.Error("Done = false, want true")
	}
}

func TestChat_RequiresModel(t *testing.T) {
	srv := mockOpenRouter(t)
	p := newTestProvider(t, srv.URL)

	_, err := p.Chat(context.Background(), []aimodel.Message{
		{Role: aimodel.RoleUser, Content: "hello"},
	})
	if code := aimodel.Code(err); code != aimodel.ErrCodeInvalidRequest {
		t.Errorf("error code = %q, want %q", code, aimodel.ErrCodeInvalidRequest)
	}
}

func TestChat_NoChoices(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /chat/completions", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"id": "gen-1", "model": "m", "choices": []}`)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	p := newTestProvider(t, srv.URL)
	_, err := p.Chat(context.Background(), []aimodel.Message{
		{Role: aimodel.RoleUser, Content: "hello"},
	}, aimodel.WithModel("m"))
	if !aimodel.IsInvalidResponseError(err) {
		t.Errorf("expected invalid-response error, got %v", err)
	}
}

func TestChat_RetriesOnServerError(t *testing.T) {
	var calls atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("POST /chat/completions", func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			http.Error(w, `{"error":{"message":"temporarily overloaded"}}`, http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, completionJSON("m", "recovered"))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	p := newTestProvider(t, srv.URL)
	resp, err := p.Chat(context.Background(), []aimodel.Message{
		{Role: aimodel.RoleUser, Content: "hello"},
	}, aimodel.WithModel("m"))
	if err != nil {
		t.Fatalf("Chat() error = %v", err)
	}
	if resp.Content != "recovered" {
		t.Errorf("Content = %q, want %q", resp.Content, "recovered")
	}
	if calls.Load() != 2 {
		t.Errorf("upstream called %d times, want 2", calls.Load())
	}
}

func TestChat_AuthenticationErrorNotRetried(t *testing.T) {
	var calls atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("POST /chat/completions", func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, `{"error":{"message":"invalid api key"}}`, http.StatusUnauthorized)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	p := newTestProvider(t, srv.URL)
	_, err := p.Chat(context.Background(), []aimodel.Message{
		{Role: aimodel.RoleUser, Content: "hello"},
	}, aimodel.WithModel("m"))
	if !aimodel.IsAuthenticationError(err) {
		t.Fatalf("expected authentication error, got %v", err)
	}
	if calls.Load() != 1 {
		t.Errorf("upstream called %d times, want 1 (no retry)", calls.Load())
	}
}

func TestHeartbeat_Success(t *testing.T) {
	srv := mockOpenRouter(t)
	p := newTestProvider(t, srv.URL)

	if err := p.Heartbeat(context.Background()); err != nil {
		t.Errorf("Heartbeat() error = %v", err)
	}
}

func TestListModels_Success(t *testing.T) {
	srv := mockOpenRouter(t)
	p := newTestProvider(t, srv.URL)

	models, err := p.ListModels(context.Background())
	if err != nil {
		t.Fatalf("ListModels() error = %v", err)
	}
	if len(models) != 2 {
		t.Fatalf("ListModels() returned %d models, want 2", len(models))
	}
	if models[0] != "anthropic/claude-sonnet-4" {
		t.Errorf("models[0] = %q", models[0])
	}
}

func TestMapError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode string
	}{
		{"unauthorized", &statusError{StatusCode: 401, Message: "bad key"}, aimodel.ErrCodeAuthentication},
		{"forbidden", &statusError{StatusCode: 403, Message: "forbidden"}, aimodel.ErrCodeAuthentication},
		{"rate limited", &statusError{StatusCode: 429, Message: "slow down"}, aimodel.ErrCodeRateLimit},
		{"model not found", &statusError{StatusCode: 404, Message: "no such model"}, aimodel.ErrCodeModelNotFound},
		{"server error", &statusError{StatusCode: 502, Message: "bad gateway"}, aimodel.ErrCodeServerError},
		{"bad request", &statusError{StatusCode: 422, Message: "bad payload"}, aimodel.ErrCodeInvalidRequest},
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

func TestMapError_Nil(t *testing.T) {
	if err := mapError(nil); err != nil {
		t.Errorf("mapError(nil) = %v, want nil", err)
	}
}

func TestContract(t *testing.T) {
	srv := mockOpenRouter(t)
	aimodeltest.TestProviderContract(t, func() aimodel.Provider {
		return newTestProvider(t, srv.URL)
	})
}
