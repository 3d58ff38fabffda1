package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/modelmux/modelmux/pkg/aimodel"
	"github.com/modelmux/modelmux/pkg/ensemble"
	"github.com/modelmux/modelmux/pkg/roles"
	"go.uber.org/zap"
)

// dispatcher fans a query out to a set of catalog models concurrently.
type dispatcher struct {
	provider roles.ModelProvider
	timeout  time.Duration
	sem      chan struct{}
	logger   *zap.Logger
}

func newDispatcher(provider roles.ModelProvider, cfg Config, logger *zap.Logger) *dispatcher {
	maxConcurrent := cfg.MaxConcurrent
	if maxConcurrent <= 0 {
		maxConcurrent = DefaultConfig().MaxConcurrent
	}
	return &dispatcher{
		provider: provider,
		timeout:  cfg.Timeout,
		sem:      make(chan struct{}, maxConcurrent),
		logger:   logger,
	}
}

// dispatch invokes every requested model and returns exactly one response
// per model, sorted by model id. Each goroutine writes only its own slot.
// Unknown model ids fail the whole call before any adapter is invoked.
func (d *dispatcher) dispatch(ctx context.Context, q ensemble.Query, models []string) ([]ensemble.ModelResponse, error) {
	catalog := make(map[string]roles.ModelInfo)
	for _, info := range d.provider.Models() {
		catalog[info.ID] = info
	}
	for _, id := range models {
		if _, ok := catalog[id]; !ok {
			return nil, fmt.Errorf("%w: %s", ensemble.ErrUnknownModel, id)
		}
	}

	responses := make([]ensemble.ModelResponse, len(models))
	var wg sync.WaitGroup
	for i, id := range models {
		wg.Add(1)
		go func(slot int, info roles.ModelInfo) {
			defer wg.Done()
			responses[slot] = d.invoke(ctx, q, info)
		}(i, catalog[id])
	}
	wg.Wait()

	sort.Slice(responses, func(i, j int) bool {
		return responses[i].Model < responses[j].Model
	})
	return responses, nil
}

// invoke runs one adapter call under the concurrency semaphore and the
// per-call timeout, converting any failure into an error-kind response.
func (d *dispatcher) invoke(ctx context.Context, q ensemble.Query, info roles.ModelInfo) ensemble.ModelResponse {
	select {
	case d.sem <- struct{}{}:
		defer func() { <-d.sem }()
	case <-ctx.Done():
		return d.failed(info.ID, ensemble.ErrorTimeout, ctx.Err().Error(), d.timeout)
	}

	provider, ok := d.provider.Provider(info.ID)
	if !ok {
		return d.failed(info.ID, ensemble.ErrorTransport, "adapter unavailable", 0)
	}

	callCtx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	start := time.Now()
	resp, err := provider.Chat(callCtx, buildMessages(q), aimodel.WithModel(info.UpstreamModel))
	latency := time.Since(start)

	if err != nil {
		kind := classify(err)
		if kind == ensemble.ErrorTimeout {
			latency = d.timeout
		}
		d.logger.Warn("adapter call failed",
			zap.String("model", info.ID),
			zap.String("kind", string(kind)),
			zap.Error(err),
		)
		return d.failed(info.ID, kind, err.Error(), latency)
	}

	adapterLatency.WithLabelValues(info.ID).Observe(latency.Seconds())

	out := ensemble.ModelResponse{
		Model:      info.ID,
		Content:    resp.Content,
		Latency:    latency,
		Confidence: resp.Confidence,
	}
	if out.Confidence == nil {
		out.Confidence = d.provider.Confidence(info.ID)
	}
	return out
}

func (d *dispatcher) failed(model string, kind ensemble.ErrorKind, detail string, latency time.Duration) ensemble.ModelResponse {
	adapterErrorsTotal.WithLabelValues(model, string(kind)).Inc()
	return ensemble.ModelResponse{
		Model:       model,
		ErrorKind:   kind,
		ErrorDetail: detail,
		Latency:     latency,
	}
}

// classify maps a typed provider error onto the adapter failure kinds.
func classify(err error) ensemble.ErrorKind {
	switch {
	case aimodel.IsTimeoutError(err), errors.Is(err, context.DeadlineExceeded):
		return ensemble.ErrorTimeout
	case aimodel.IsInvalidResponseError(err):
		return ensemble.ErrorInvalidResponse
	default:
		return ensemble.ErrorTransport
	}
}

// buildMessages converts a query's prior turns plus its text into the
// adapter message slice.
func buildMessages(q ensemble.Query) []aimodel.Message {
	messages := make([]aimodel.Message, 0, len(q.Context)+1)
	for _, turn := range q.Context {
		role := aimodel.RoleUser
		if turn.Role == "assistant" {
			role = aimodel.RoleAssistant
		}
		messages = append(messages, aimodel.Message{Role: role, Content: turn.Content})
	}
	return append(messages, aimodel.Message{Role: aimodel.RoleUser, Content: q.Text})
}
