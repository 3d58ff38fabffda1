// Package ledger implements the performance ledger plugin: the single
// update authority for per-model statistics. It consumes scored-response
// and feedback events from the bus, keeps authoritative stats in memory,
// and persists them to SQLite so they survive restarts.
package ledger

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/modelmux/modelmux/pkg/ensemble"
	"github.com/modelmux/modelmux/pkg/plugin"
	"github.com/modelmux/modelmux/pkg/roles"
	"go.uber.org/zap"
)

// Compile-time interface guards.
var (
	_ plugin.Plugin           = (*Module)(nil)
	_ plugin.HTTPProvider     = (*Module)(nil)
	_ plugin.EventSubscriber  = (*Module)(nil)
	_ roles.PerformanceLedger = (*Module)(nil)
)

// stripeCount is the number of lock stripes. Updates for different models
// hash to different stripes and proceed in parallel.
const stripeCount = 32

// entry is the mutable ledger record for one model.
type entry struct {
	stats ensemble.ModelStats
	trend *ewma
}

// Module implements the ledger plugin.
type Module struct {
	logger *zap.Logger
	cfg    Config
	db     *store // nil when no shared store is available

	mapMu sync.RWMutex
	state map[string]*entry

	stripes [stripeCount]sync.Mutex
}

// New creates a new ledger plugin instance.
func New() *Module {
	return &Module{}
}

func (m *Module) Info() plugin.PluginInfo {
	return plugin.PluginInfo{
		Name:        "ledger",
		Version:     "0.2.0",
		Description: "Per-model performance statistics and feedback learning",
		Roles:       []string{roles.RolePerformanceLedger},
		Required:    true,
		APIVersion:  plugin.APIVersionCurrent,
	}
}

func (m *Module) Init(ctx context.Context, deps plugin.Dependencies) error {
	m.logger = deps.Logger
	m.state = make(map[string]*entry)

	m.cfg = DefaultConfig()
	if deps.Config != nil {
		if err := deps.Config.Unmarshal(&m.cfg); err != nil {
			return fmt.Errorf("unmarshal ledger config: %w", err)
		}
	}
	if m.cfg.FeedbackStep <= 0 {
		m.cfg.FeedbackStep = DefaultConfig().FeedbackStep
	}

	if deps.Store != nil {
		if err := deps.Store.Migrate(ctx, "ledger", migrations()); err != nil {
			return fmt.Errorf("migrate ledger schema: %w", err)
		}
		m.db = &store{db: deps.Store.DB()}

		persisted, err := m.db.loadAll(ctx)
		if err != nil {
			return fmt.Errorf("load model stats: %w", err)
		}
		for _, st := range persisted {
			e := &entry{stats: st, trend: newEWMA(m.cfg.TrendAlpha)}
			e.trend.seed(st.ScoreTrend, st.Invocations)
			m.state[st.Model] = e
		}
		m.logger.Info("ledger stats restored", zap.Int("models", len(persisted)))
	} else {
		m.logger.Warn("no store available; ledger stats will not survive restarts")
	}

	return nil
}

func (m *Module) Start(_ context.Context) error {
	return nil
}

func (m *Module) Stop(_ context.Context) error {
	m.logger.Info("ledger plugin stopped")
	return nil
}

// Subscriptions implements plugin.EventSubscriber. All stats mutations
// arrive through these two topics; nothing else writes the ledger.
func (m *Module) Subscriptions() []plugin.Subscription {
	return []plugin.Subscription{
		{Topic: ensemble.TopicResponseScored, Handler: m.onResponseScored},
		{Topic: ensemble.TopicFeedbackReceived, Handler: m.onFeedbackReceived},
	}
}

// Routes implements plugin.HTTPProvider.
func (m *Module) Routes() []plugin.Route {
	return []plugin.Route{
		{Method: "GET", Path: "/stats", Handler: m.handleAllStats},
		{Method: "GET", Path: "/stats/{model}", Handler: m.handleModelStats},
	}
}

// Stats implements roles.PerformanceLedger. Unseen models get cold-start
// defaults with zero invocations.
func (m *Module) Stats(_ context.Context, modelID string) ensemble.ModelStats {
	m.mapMu.RLock()
	e, ok := m.state[modelID]
	m.mapMu.RUnlock()

	if !ok {
		return coldStart(modelID)
	}

	mu := m.stripe(modelID)
	mu.Lock()
	defer mu.Unlock()
	return e.stats
}

// AllStats implements roles.PerformanceLedger.
func (m *Module) AllStats(_ context.Context) []ensemble.ModelStats {
	m.mapMu.RLock()
	models := make([]string, 0, len(m.state))
	for model := range m.state {
		models = append(models, model)
	}
	m.mapMu.RUnlock()

	sort.Strings(models)

	all := make([]ensemble.ModelStats, 0, len(models))
	for _, model := range models {
		all = append(all, m.Stats(context.Background(), model))
	}
	return all
}

// onResponseScored folds one scored observation into the model's record.
// Failed responses are recorded as 0-composite observations at the measured
// (or ceiling) latency, whatever composite the scorer published for them.
func (m *Module) onResponseScored(ctx context.Context, event plugin.Event) {
	ev, ok := event.Payload.(ensemble.ScoredEvent)
	if !ok {
		m.logger.Warn("unexpected payload on scored topic", zap.String("topic", event.Topic))
		return
	}

	composite := ev.Composite
	if ev.Failed {
		composite = 0
	}
	snapshot := m.update(ev.Model, composite, float64(ev.LatencyMS), ev.Selected)
	m.persist(ctx, snapshot)
}

// onFeedbackReceived applies a user rating: a counter bump plus a bounded
// nudge to the running average. Historical results are never rewritten.
func (m *Module) onFeedbackReceived(ctx context.Context, event plugin.Event) {
	ev, ok := event.Payload.(ensemble.FeedbackEvent)
	if !ok {
		m.logger.Warn("unexpected payload on feedback topic", zap.String("topic", event.Topic))
		return
	}

	snapshot := m.applyFeedback(ev.Model, ev.Positive)
	m.persist(ctx, snapshot)

	if m.db != nil {
		if err := m.db.insertFeedbackEvent(ctx, uuid.NewString(), ev.MessageID, ev.Model, ev.Positive); err != nil {
			m.logger.Error("failed to record feedback event", zap.Error(err))
		}
	}

	m.logger.Info("feedback applied",
		zap.String("model", ev.Model),
		zap.Bool("positive", ev.Positive),
		zap.Float64("avg_score", snapshot.AvgScore),
	)
}

// update folds one observation into a model's stats under its stripe lock
// and returns a snapshot. AvgScore and AvgLatencyMS use a cumulative mean
// (mean += (x-mean)/n), which is order-independent over a fixed set of
// observations; ScoreTrend uses an EWMA and is informational only.
func (m *Module) update(model string, composite, latencyMS float64, selected bool) ensemble.ModelStats {
	mu := m.stripe(model)
	mu.Lock()
	defer mu.Unlock()

	e := m.getOrCreate(model)

	e.stats.Invocations++
	n := float64(e.stats.Invocations)
	e.stats.AvgScore += (composite - e.stats.AvgScore) / n
	e.stats.AvgLatencyMS += (latencyMS - e.stats.AvgLatencyMS) / n
	e.stats.ScoreTrend = e.trend.update(composite)
	if selected {
		e.stats.Selections++
	}
	e.stats.UpdatedAt = time.Now().UTC()

	return e.stats
}

// applyFeedback nudges a model's average by the configured step, clamped
// to [0,10], and bumps the matching counter.
func (m *Module) applyFeedback(model string, positive bool) ensemble.ModelStats {
	mu := m.stripe(model)
	mu.Lock()
	defer mu.Unlock()

	e := m.getOrCreate(model)

	step := m.cfg.FeedbackStep
	if positive {
		e.stats.PositiveFeedback++
		e.stats.AvgScore = math.Min(10, e.stats.AvgScore+step)
	} else {
		e.stats.NegativeFeedback++
		e.stats.AvgScore = math.Max(0, e.stats.AvgScore-step)
	}
	e.stats.UpdatedAt = time.Now().UTC()

	return e.stats
}

// persist writes a stats snapshot through to SQLite. Store faults are
// logged and absorbed: in-memory stats stay authoritative for scoring.
func (m *Module) persist(ctx context.Context, snapshot ensemble.ModelStats) {
	if m.db == nil {
		return
	}
	if err := m.db.upsertStats(ctx, snapshot); err != nil {
		m.logger.Error("failed to persist model stats",
			zap.String("model", snapshot.Model),
			zap.Error(err),
		)
	}
}

// getOrCreate returns the entry for a model, creating a cold-start record
// on first sight. Callers must hold the model's stripe lock.
func (m *Module) getOrCreate(model string) *entry {
	m.mapMu.RLock()
	e, ok := m.state[model]
	m.mapMu.RUnlock()
	if ok {
		return e
	}

	m.mapMu.Lock()
	defer m.mapMu.Unlock()
	if e, ok = m.state[model]; ok {
		return e
	}
	e = &entry{stats: coldStart(model), trend: newEWMA(m.cfg.TrendAlpha)}
	m.state[model] = e
	return e
}

// stripe returns the lock guarding a model's entry.
func (m *Module) stripe(model string) *sync.Mutex {
	h := fnv.New32a()
	_, _ = h.Write([]byte(model))
	return &m.stripes[h.Sum32()%stripeCount]
}

// coldStart returns the neutral default record for an unseen model.
func coldStart(model string) ensemble.ModelStats {
	return ensemble.ModelStats{
		Model:      model,
		AvgScore:   ensemble.ColdStartScore,
		ScoreTrend: ensemble.ColdStartScore,
	}
}
