// Package roles defines typed contracts for plugin roles.
// Plugins that fill a role (declared via PluginInfo.Roles) should implement
// the corresponding interface so callers can use type-safe access via
// PluginResolver.ResolveByRole followed by a type assertion.
package roles

import (
	"context"

	"github.com/modelmux/modelmux/pkg/aimodel"
	"github.com/modelmux/modelmux/pkg/ensemble"
)

// Role name constants match the strings used in PluginInfo.Roles.
const (
	RoleModelProvider     = "model_provider"
	RoleOrchestrator      = "orchestrator"
	RolePerformanceLedger = "performance_ledger"
)

// ModelInfo describes one catalog entry exposed by a model provider.
type ModelInfo struct {
	ID              string   `json:"id"`              // Catalog identifier: "claude", "deepseek", ...
	Adapter         string   `json:"adapter"`         // Adapter type: "openrouter", "gemini", "ollama"
	UpstreamModel   string   `json:"upstream_model"`  // Vendor model slug
	Specializations []string `json:"specializations"` // Query categories this model is strong at
	Priority        int      `json:"priority"`        // Fixed tie-break ordering (lower wins)
}

// ModelProvider is implemented by plugins that expose completion providers
// keyed by catalog model identifier.
type ModelProvider interface {
	// Provider returns the adapter for a catalog model id.
	Provider(modelID string) (aimodel.Provider, bool)

	// Models returns the catalog in fixed priority order.
	Models() []ModelInfo

	// Confidence returns the catalog's raw confidence hint for a model,
	// or nil if the entry declares none.
	Confidence(modelID string) *float64
}

// PerformanceLedger is implemented by the plugin that owns per-model
// statistics. Reads return snapshots; all writes flow through the event bus.
type PerformanceLedger interface {
	// Stats returns a snapshot of a model's statistics. Unseen models get
	// cold-start defaults with zero invocations.
	Stats(ctx context.Context, modelID string) ensemble.ModelStats

	// AllStats returns snapshots for every model seen so far, sorted by
	// model identifier.
	AllStats(ctx context.Context) []ensemble.ModelStats
}

// Orchestrator is implemented by the plugin that runs the dispatch, score,
// select pipeline.
type Orchestrator interface {
	Orchestrate(ctx context.Context, q ensemble.Query) (*ensemble.Result, error)
}
