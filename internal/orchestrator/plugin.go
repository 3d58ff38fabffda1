// Package orchestrator implements the orchestration plugin: it routes a
// query to a set of catalog models, fans out concurrently, scores every
// response, selects a winner, and emits scoring events for the ledger.
package orchestrator

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/modelmux/modelmux/pkg/ensemble"
	"github.com/modelmux/modelmux/pkg/plugin"
	"github.com/modelmux/modelmux/pkg/roles"
	"go.uber.org/zap"
)

// Compile-time interface guards.
var (
	_ plugin.Plugin       = (*Module)(nil)
	_ plugin.HTTPProvider = (*Module)(nil)
	_ roles.Orchestrator  = (*Module)(nil)
)

// Module implements the orchestrator plugin.
type Module struct {
	logger   *zap.Logger
	cfg      Config
	bus      plugin.EventBus
	provider roles.ModelProvider
	ledger   roles.PerformanceLedger
	disp     *dispatcher
}

// New creates a new orchestrator plugin instance.
func New() *Module {
	return &Module{}
}

func (m *Module) Info() plugin.PluginInfo {
	return plugin.PluginInfo{
		Name:         "orchestrator",
		Version:      "0.2.0",
		Description:  "Multi-model dispatch, scoring, and response selection",
		Dependencies: []string{"providers", "ledger"},
		Roles:        []string{roles.RoleOrchestrator},
		Required:     true,
		APIVersion:   plugin.APIVersionCurrent,
	}
}

func (m *Module) Init(_ context.Context, deps plugin.Dependencies) error {
	m.logger = deps.Logger
	m.bus = deps.Bus

	m.cfg = DefaultConfig()
	if deps.Config != nil {
		if err := deps.Config.Unmarshal(&m.cfg); err != nil {
			return fmt.Errorf("unmarshal orchestrator config: %w", err)
		}
	}
	if m.cfg.Timeout <= 0 {
		m.cfg.Timeout = DefaultConfig().Timeout
	}

	provider, err := resolveRole[roles.ModelProvider](deps.Plugins, roles.RoleModelProvider)
	if err != nil {
		return err
	}
	m.provider = provider

	ledger, err := resolveRole[roles.PerformanceLedger](deps.Plugins, roles.RolePerformanceLedger)
	if err != nil {
		return err
	}
	m.ledger = ledger

	m.disp = newDispatcher(m.provider, m.cfg, m.logger)

	m.logger.Info("orchestrator plugin initialized",
		zap.Duration("timeout", m.cfg.Timeout),
		zap.Int("max_concurrent", m.cfg.MaxConcurrent),
		zap.Int("max_models", m.cfg.MaxModels),
	)
	return nil
}

func (m *Module) Start(_ context.Context) error {
	return nil
}

func (m *Module) Stop(_ context.Context) error {
	m.logger.Info("orchestrator plugin stopped")
	return nil
}

// Routes implements plugin.HTTPProvider.
func (m *Module) Routes() []plugin.Route {
	return []plugin.Route{
		{Method: "POST", Path: "/query", Handler: m.handleQuery},
		{Method: "POST", Path: "/feedback", Handler: m.handleFeedback},
	}
}

// Orchestrate implements roles.Orchestrator. It runs the full pipeline:
// route, dispatch, score, select, publish. Ledger unavailability never
// fails the request; only ErrUnknownModel and ErrNoViableResponse surface
// as errors.
func (m *Module) Orchestrate(ctx context.Context, q ensemble.Query) (*ensemble.Result, error) {
	dispatchesTotal.Inc()

	models := q.Models
	if len(models) == 0 {
		models = routeModels(q, m.provider.Models(), func(id string) ensemble.ModelStats {
			return m.ledger.Stats(ctx, id)
		}, m.cfg.MaxModels)
	}
	// Score comparison only runs for ensemble requests with enough
	// candidates. Everything else takes the first viable response in
	// catalog priority order.
	singleMode := !q.Ensemble || len(models) < m.cfg.MinEnsembleModels
	if q.Ensemble && singleMode {
		m.logger.Debug("ensemble request degraded to single-model selection",
			zap.Int("models", len(models)),
		)
	}

	responses, err := m.disp.dispatch(ctx, q, models)
	if err != nil {
		return nil, err
	}

	scores := make([]ensemble.ResponseScore, len(responses))
	byModel := make(map[string]ensemble.ResponseScore, len(responses))
	for i, r := range responses {
		s := scoreResponse(r, m.ledger.Stats(ctx, r.Model))
		scores[i] = s
		byModel[r.Model] = s
	}

	prio := m.priorities()
	var (
		winner ensemble.ModelResponse
		selErr error
	)
	if singleMode {
		winner, selErr = firstViable(responses, prio)
	} else {
		winner, selErr = selectWinner(responses, byModel, prio)
	}

	messageID := uuid.NewString()
	m.publishScores(ctx, messageID, responses, byModel, winner.Model, selErr == nil)

	if selErr != nil {
		return nil, selErr
	}
	selectionsTotal.WithLabelValues(winner.Model).Inc()

	sort.Slice(scores, func(i, j int) bool {
		return scores[i].Composite > scores[j].Composite
	})

	return &ensemble.Result{
		MessageID: messageID,
		Winner:    winner,
		Responses: responses,
		Scores:    scores,
		CreatedAt: time.Now().UTC(),
	}, nil
}

// publishScores emits one scored event per response. Fire-and-forget: the
// ledger catching up later must not block response delivery.
func (m *Module) publishScores(ctx context.Context, messageID string, responses []ensemble.ModelResponse, scores map[string]ensemble.ResponseScore, winnerModel string, hasWinner bool) {
	for _, r := range responses {
		m.bus.PublishAsync(ctx, plugin.Event{
			Topic:     ensemble.TopicResponseScored,
			Source:    "orchestrator",
			Timestamp: time.Now().UTC(),
			Payload: ensemble.ScoredEvent{
				MessageID: messageID,
				Model:     r.Model,
				Composite: scores[r.Model].Composite,
				LatencyMS: r.Latency.Milliseconds(),
				Selected:  hasWinner && r.Model == winnerModel,
				Failed:    r.Failed(),
			},
		})
	}
}

// priorities returns the catalog's fixed tie-break ordering.
func (m *Module) priorities() map[string]int {
	p := make(map[string]int)
	for _, info := range m.provider.Models() {
		p[info.ID] = info.Priority
	}
	return p
}

// resolveRole locates the single plugin filling a role and asserts its
// typed contract.
func resolveRole[T any](resolver plugin.PluginResolver, role string) (T, error) {
	var zero T
	if resolver == nil {
		return zero, fmt.Errorf("plugin resolver not available")
	}
	candidates := resolver.ResolveByRole(role)
	if len(candidates) == 0 {
		return zero, fmt.Errorf("no plugin fills role %q", role)
	}
	typed, ok := candidates[0].(T)
	if !ok {
		return zero, fmt.Errorf("plugin filling role %q does not implement its contract", role)
	}
	return typed, nil
}
