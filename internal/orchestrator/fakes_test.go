package orchestrator

import (
	"context"
	"sync"

	"github.com/modelmux/modelmux/pkg/aimodel"
	"github.com/modelmux/modelmux/pkg/ensemble"
	"github.com/modelmux/modelmux/pkg/plugin"
	"github.com/modelmux/modelmux/pkg/roles"
)

// providerFunc adapts a function to aimodel.Provider.
type providerFunc func(ctx context.Context, messages []aimodel.Message, opts ...aimodel.CallOption) (*aimodel.Response, error)

func (f providerFunc) Chat(ctx context.Context, messages []aimodel.Message, opts ...aimodel.CallOption) (*aimodel.Response, error) {
	return f(ctx, messages, opts...)
}

// fakeModel is one test catalog entry.
type fakeModel struct {
	id              string
	specializations []string
	confidence      *float64
	provider        providerFunc
}

// fakeCatalog implements roles.ModelProvider over a fixed set of fakes.
type fakeCatalog struct {
	models []fakeModel
}

func (c *fakeCatalog) Provider(modelID string) (aimodel.Provider, bool) {
	for _, m := range c.models {
		if m.id == modelID {
			return m.provider, true
		}
	}
	return nil, false
}

func (c *fakeCatalog) Models() []roles.ModelInfo {
	infos := make([]roles.ModelInfo, len(c.models))
	for i, m := range c.models {
		infos[i] = roles.ModelInfo{
			ID:              m.id,
			Adapter:         "fake",
			UpstreamModel:   m.id + "-upstream",
			Specializations: m.specializations,
			Priority:        i + 1,
		}
	}
	return infos
}

func (c *fakeCatalog) Confidence(modelID string) *float64 {
	for _, m := range c.models {
		if m.id == modelID {
			return m.confidence
		}
	}
	return nil
}

// fakeLedger implements roles.PerformanceLedger over a fixed stats map.
type fakeLedger struct {
	stats map[string]ensemble.ModelStats
}

func (l *fakeLedger) Stats(_ context.Context, modelID string) ensemble.ModelStats {
	if s, ok := l.stats[modelID]; ok {
		return s
	}
	return ensemble.ModelStats{Model: modelID, AvgScore: ensemble.ColdStartScore}
}

func (l *fakeLedger) AllStats(_ context.Context) []ensemble.ModelStats {
	all := make([]ensemble.ModelStats, 0, len(l.stats))
	for _, s := range l.stats {
		all = append(all, s)
	}
	return all
}

// captureBus records published events synchronously for assertions.
type captureBus struct {
	mu     sync.Mutex
	events []plugin.Event
}

func (b *captureBus) Publish(_ context.Context, event plugin.Event) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, event)
	return nil
}

func (b *captureBus) PublishAsync(ctx context.Context, event plugin.Event) {
	_ = b.Publish(ctx, event)
}

func (b *captureBus) Subscribe(string, plugin.EventHandler) func() {
	return func() {}
}

func (b *captureBus) SubscribeAll(plugin.EventHandler) func() {
	return func() {}
}

func (b *captureBus) published() []plugin.Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]plugin.Event, len(b.events))
	copy(out, b.events)
	return out
}

// okResponse returns a provider that always succeeds with the given content.
func okResponse(content string) providerFunc {
	return func(_ context.Context, _ []aimodel.Message, opts ...aimodel.CallOption) (*aimodel.Response, error) {
		cfg := aimodel.ApplyOptions(opts...)
		return &aimodel.Response{Content: content, Model: cfg.Model, Done: true}, nil
	}
}

// failResponse returns a provider that always fails with the given error.
func failResponse(err error) providerFunc {
	return func(context.Context, []aimodel.Message, ...aimodel.CallOption) (*aimodel.Response, error) {
		return nil, err
	}
}

// blockUntilCancelled returns a provider that hangs until the call context
// expires, simulating an unresponsive upstream.
func blockUntilCancelled() providerFunc {
	return func(ctx context.Context, _ []aimodel.Message, _ ...aimodel.CallOption) (*aimodel.Response, error) {
		<-ctx.Done()
		return nil, aimodel.NewProviderError(aimodel.ErrCodeTimeout, "request timed out or cancelled", ctx.Err())
	}
}
