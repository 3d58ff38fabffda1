// Package providers implements the model provider plugin. It owns the model
// catalog (catalog id, adapter, upstream slug, specializations, priority)
// and the adapter instances behind it.
package providers

import (
	"context"
	"fmt"
	"sort"

	"github.com/modelmux/modelmux/internal/providers/gemini"
	"github.com/modelmux/modelmux/internal/providers/ollama"
	"github.com/modelmux/modelmux/internal/providers/openrouter"
	"github.com/modelmux/modelmux/pkg/aimodel"
	"github.com/modelmux/modelmux/pkg/plugin"
	"github.com/modelmux/modelmux/pkg/roles"
	"go.uber.org/zap"
)

// Compile-time interface guards.
var (
	_ plugin.Plugin        = (*Module)(nil)
	_ plugin.HealthChecker = (*Module)(nil)
	_ plugin.HTTPProvider  = (*Module)(nil)
	_ roles.ModelProvider  = (*Module)(nil)
)

// catalogEntry binds a catalog model to its adapter instance.
type catalogEntry struct {
	info     roles.ModelInfo
	provider aimodel.Provider
	conf     *float64
}

// Module implements the providers plugin.
type Module struct {
	logger   *zap.Logger
	cfg      ModuleConfig
	adapters map[string]aimodel.Provider // keyed by adapter type
	catalog  map[string]*catalogEntry    // keyed by catalog model id
	order    []string                    // catalog ids in priority order
}

// New creates a new providers plugin instance.
func New() *Module {
	return &Module{}
}

func (m *Module) Info() plugin.PluginInfo {
	return plugin.PluginInfo{
		Name:        "providers",
		Version:     "0.2.0",
		Description: "AI model catalog and adapters (OpenRouter, Gemini, Ollama)",
		Roles:       []string{roles.RoleModelProvider},
		Required:    true,
		APIVersion:  plugin.APIVersionCurrent,
	}
}

func (m *Module) Init(_ context.Context, deps plugin.Dependencies) error {
	m.logger = deps.Logger

	m.cfg = DefaultConfig()
	if deps.Config != nil {
		if err := deps.Config.Unmarshal(&m.cfg); err != nil {
			return fmt.Errorf("unmarshal providers config: %w", err)
		}
	}
	if len(m.cfg.Models) == 0 {
		m.cfg.Models = DefaultCatalog()
	}
	if m.cfg.OpenRouter.MaxRetries == 0 {
		m.cfg.OpenRouter.MaxRetries = m.cfg.MaxRetries
	}
	if m.cfg.Gemini.MaxRetries == 0 {
		m.cfg.Gemini.MaxRetries = m.cfg.MaxRetries
	}
	if m.cfg.Ollama.MaxRetries == 0 {
		m.cfg.Ollama.MaxRetries = m.cfg.MaxRetries
	}

	m.adapters = make(map[string]aimodel.Provider)
	m.catalog = make(map[string]*catalogEntry)
	m.order = nil

	for _, mc := range m.cfg.Models {
		adapter, err := m.adapterFor(mc.Adapter)
		if err != nil {
			m.logger.Warn("skipping catalog model: adapter unavailable",
				zap.String("model", mc.ID),
				zap.String("adapter", mc.Adapter),
				zap.Error(err),
			)
			continue
		}

		m.catalog[mc.ID] = &catalogEntry{
			info: roles.ModelInfo{
				ID:              mc.ID,
				Adapter:         mc.Adapter,
				UpstreamModel:   mc.UpstreamModel,
				Specializations: mc.Specializations,
				Priority:        mc.Priority,
			},
			provider: adapter,
			conf:     mc.Confidence,
		}
		m.order = append(m.order, mc.ID)
	}

	if len(m.catalog) == 0 {
		return fmt.Errorf("no catalog models available; configure at least one adapter")
	}

	sort.Slice(m.order, func(i, j int) bool {
		return m.catalog[m.order[i]].info.Priority < m.catalog[m.order[j]].info.Priority
	})

	m.logger.Info("providers plugin initialized",
		zap.Int("models", len(m.catalog)),
		zap.Strings("catalog", m.order),
	)
	return nil
}

func (m *Module) Start(ctx context.Context) error {
	for adapterType, adapter := range m.adapters {
		hr, ok := adapter.(aimodel.HealthReporter)
		if !ok {
			continue
		}
		if err := hr.Heartbeat(ctx); err != nil {
			m.logger.Warn("adapter not reachable; its models will fail until it comes online",
				zap.String("adapter", adapterType),
				zap.Error(err),
			)
		}
	}
	return nil
}

func (m *Module) Stop(_ context.Context) error {
	m.logger.Info("providers plugin stopped")
	return nil
}

// Health implements plugin.HealthChecker. The plugin is degraded when some
// adapters are unreachable and unhealthy when none are.
func (m *Module) Health(ctx context.Context) plugin.HealthStatus {
	total, reachable := 0, 0
	var lastErr error
	for _, adapter := range m.adapters {
		hr, ok := adapter.(aimodel.HealthReporter)
		if !ok {
			continue
		}
		total++
		if err := hr.Heartbeat(ctx); err != nil {
			lastErr = err
			continue
		}
		reachable++
	}

	switch {
	case total == 0 || reachable == total:
		return plugin.HealthStatus{Status: "healthy"}
	case reachable == 0:
		return plugin.HealthStatus{Status: "unhealthy", Message: lastErr.Error()}
	default:
		return plugin.HealthStatus{
			Status:  "degraded",
			Message: fmt.Sprintf("%d of %d adapters reachable", reachable, total),
		}
	}
}

// Provider implements roles.ModelProvider.
func (m *Module) Provider(modelID string) (aimodel.Provider, bool) {
	e, ok := m.catalog[modelID]
	if !ok {
		return nil, false
	}
	return e.provider, true
}

// Models implements roles.ModelProvider.
func (m *Module) Models() []roles.ModelInfo {
	infos := make([]roles.ModelInfo, 0, len(m.order))
	for _, id := range m.order {
		infos = append(infos, m.catalog[id].info)
	}
	return infos
}

// Confidence implements roles.ModelProvider.
func (m *Module) Confidence(modelID string) *float64 {
	e, ok := m.catalog[modelID]
	if !ok {
		return nil
	}
	return e.conf
}

// Routes implements plugin.HTTPProvider.
func (m *Module) Routes() []plugin.Route {
	return []plugin.Route{
		{Method: "GET", Path: "/models", Handler: m.handleListModels},
		{Method: "POST", Path: "/test/{model}", Handler: m.handleTestModel},
	}
}

// adapterFor returns the shared adapter instance for the given type,
// constructing it on first use.
func (m *Module) adapterFor(adapterType string) (aimodel.Provider, error) {
	if a, ok := m.adapters[adapterType]; ok {
		return a, nil
	}

	var (
		adapter aimodel.Provider
		err     error
	)
	switch adapterType {
	case "openrouter":
		adapter, err = openrouter.New(m.cfg.OpenRouter, m.logger.Named("openrouter"))
	case "gemini":
		adapter, err = gemini.New(m.cfg.Gemini, m.logger.Named("gemini"))
	case "ollama":
		adapter, err = ollama.New(m.cfg.Ollama, m.logger.Named("ollama"))
	default:
		return nil, fmt.Errorf("unknown adapter type: %s", adapterType)
	}
	if err != nil {
		return nil, err
	}

	m.adapters[adapterType] = adapter
	return adapter, nil
}
