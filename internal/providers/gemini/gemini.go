// Package gemini implements aimodel.Provider for the Google Gemini
// generateContent API.
package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/modelmux/modelmux/pkg/aimodel"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Compile-time interface guards.
var (
	_ aimodel.Provider       = (*Provider)(nil)
	_ aimodel.HealthReporter = (*Provider)(nil)
)

// Provider implements aimodel.Provider for Google Gemini.
type Provider struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	limiter    *rate.Limiter
	maxRetries int
	logger     *zap.Logger
}

// New creates a Gemini provider.
func New(cfg Config, logger *zap.Logger) (*Provider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini: api key is required")
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultConfig().BaseURL
	}
	rps := cfg.RPS
	if rps <= 0 {
		rps = DefaultConfig().RPS
	}

	return &Provider{
		baseURL:    baseURL,
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		limiter:    rate.NewLimiter(rate.Limit(rps), int(rps)+1),
		maxRetries: cfg.MaxRetries,
		logger:     logger,
	}, nil
}

// Chat creates a completion from a conversation history.
func (p *Provider) Chat(ctx context.Context, messages []aimodel.Message, opts ...aimodel.CallOption) (*aimodel.Response, error) {
	if len(messages) == 0 {
		return nil, aimodel.NewProviderError(aimodel.ErrCodeInvalidRequest, "messages must not be empty", nil)
	}

	cfg := aimodel.ApplyOptions(opts...)
	if cfg.Model == "" {
		return nil, aimodel.NewProviderError(aimodel.ErrCodeInvalidRequest, "model must be set", nil)
	}

	req := generateRequest{
		Contents: toContents(messages),
		GenerationConfig: &generationConfig{
			Temperature:     cfg.Temperature,
			MaxOutputTokens: cfg.MaxTokens,
		},
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal generate request: %w", err)
	}

	path := fmt.Sprintf("/models/%s:generateContent", cfg.Model)

	var resp generateResponse
	if err := p.doWithRetry(ctx, path, body, &resp); err != nil {
		return nil, err
	}

	if len(resp.Candidates) == 0 {
		return nil, aimodel.NewProviderError(aimodel.ErrCodeInvalidResponse, "response contained no candidates", nil)
	}

	cand := resp.Candidates[0]
	var content strings.Builder
	for _, part := range cand.Content.Parts {
		content.WriteString(part.Text)
	}

	out := &aimodel.Response{
		Content: content.String(),
		Model:   cfg.Model,
		Usage: aimodel.Usage{
			PromptTokens:     resp.UsageMetadata.PromptTokenCount,
			CompletionTokens: resp.UsageMetadata.CandidatesTokenCount,
			TotalTokens:      resp.UsageMetadata.TotalTokenCount,
		},
		Done: true,
	}

	// Gemini reports the mean token log probability; exp() of it gives
	// a 0..1 confidence signal for scoring.
	if cand.AvgLogprobs != nil {
		conf := math.Exp(*cand.AvgLogprobs)
		if conf >= 0 && conf <= 1 {
			out.Confidence = &conf
		}
	}

	return out, nil
}

// Heartbeat checks whether the Gemini API is reachable by listing models.
func (p *Provider) Heartbeat(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/models", http.NoBody)
	if err != nil {
		return mapError(err)
	}
	req.Header.Set("x-goog-api-key", p.apiKey)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return mapError(err)
	}
	resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return mapError(&statusError{StatusCode: resp.StatusCode, Message: "heartbeat failed"})
	}
	return nil
}

// ListModels returns the available Gemini model IDs.
func (p *Provider) ListModels(ctx context.Context) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/models", http.NoBody)
	if err != nil {
		return nil, mapError(err)
	}
	req.Header.Set("x-goog-api-key", p.apiKey)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, mapError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, mapError(parseStatusError(resp))
	}

	var list struct {
		Models []struct {
			Name string `json:"name"`
		} `json:"models"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&list); err != nil {
		return nil, fmt.Errorf("decode models response: %w", err)
	}

	ids := make([]string, len(list.Models))
	for i, m := range list.Models {
		ids[i] = strings.TrimPrefix(m.Name, "models/")
	}
	return ids, nil
}

// doWithRetry posts the request, retrying on retryable provider errors.
func (p *Provider) doWithRetry(ctx context.Context, path string, body []byte, out any) error {
	var lastErr error
	for attempt := 0; attempt <= p.maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(1<<(attempt-1)) * 500 * time.Millisecond
			p.logger.Debug("retrying gemini request",
				zap.Int("attempt", attempt),
				zap.Duration("backoff", backoff),
			)
			select {
			case <-ctx.Done():
				return mapError(ctx.Err())
			case <-time.After(backoff):
			}
		}

		respBody, err := p.doPost(ctx, path, body)
		if err != nil {
			lastErr = mapError(err)
			if aimodel.IsRetryable(lastErr) {
				continue
			}
			return lastErr
		}

		err = json.NewDecoder(respBody).Decode(out)
		respBody.Close()
		if err != nil {
			return aimodel.NewProviderError(aimodel.ErrCodeInvalidResponse, "decode response", err)
		}
		return nil
	}
	return lastErr
}

// doPost sends an authenticated POST request and returns the response body.
func (p *Provider) doPost(ctx context.Context, path string, body []byte) (io.ReadCloser, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", p.apiKey)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode >= 400 {
		defer resp.Body.Close()
		return nil, parseStatusError(resp)
	}

	return resp.Body, nil
}

// parseStatusError reads an error response body.
func parseStatusError(resp *http.Response) *statusError {
	var errResp struct {
		Error struct {
			Code    int    `json:"code"`
			Message string `json:"message"`
			Status  string `json:"status"`
		} `json:"error"`
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if err != nil || json.Unmarshal(data, &errResp) != nil {
		return &statusError{StatusCode: resp.StatusCode, Message: resp.Status}
	}

	msg := errResp.Error.Message
	if msg == "" {
		msg = resp.Status
	}
	return &statusError{
		StatusCode: resp.StatusCode,
		Status:     errResp.Error.Status,
		Message:    msg,
	}
}

// toContents converts messages to the Gemini contents format. Gemini
// uses "model" rather than "assistant" for the model role, and system
// prompts are passed as user turns.
func toContents(messages []aimodel.Message) []content {
	contents := make([]content, len(messages))
	for i, m := range messages {
		role := "user"
		if m.Role == aimodel.RoleAssistant {
			role = "model"
		}
		contents[i] = content{
			Role:  role,
			Parts: []part{{Text: m.Content}},
		}
	}
	return contents
}

// --- Gemini generateContent API types (internal) ---

type generateRequest struct {
	Contents         []content         `json:"contents"`
	GenerationConfig *generationConfig `json:"generationConfig,omitempty"`
}

type generationConfig struct {
	Temperature     float64 `json:"temperature,omitempty"`
	MaxOutputTokens int     `json:"maxOutputTokens,omitempty"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generateResponse struct {
	Candidates []struct {
		Content      content  `json:"content"`
		FinishReason string   `json:"finishReason"`
		AvgLogprobs  *float64 `json:"avgLogprobs,omitempty"`
	} `json:"candidates"`
	UsageMetadata struct {
		PromptTokenCount     int `json:"promptTokenCount"`
		CandidatesTokenCount int `json:"candidatesTokenCount"`
		TotalTokenCount      int `json:"totalTokenCount"`
	} `json:"usageMetadata"`
}
