package engine

import (
	"context"

	"github.com/woxinfeixang/strategic-space-sub001/internal/analytics"
	"github.com/woxinfeixang/strategic-space-sub001/internal/events"
	"github.com/woxinfeixang/strategic-space-sub001/internal/market"
	"github.com/woxinfeixang/strategic-space-sub001/internal/strategy"
	"github.com/woxinfeixang/strategic-space-sub001/internal/types"
)

// Lifecycle callback types for simulation phases.
// Callbacks with an error return can abort the run by returning one.

// OnRunStartCallback is called once per strategy run before the first
// tick, after the universe and the clock are known.
type OnRunStartCallback func(runID string, strategyName string, universe []string, totalTicks int) error

// OnTickCallback is called after each simulated timestamp is processed.
type OnTickCallback func(current int, total int) error

// OnRunEndCallback is called when a strategy run ends, whatever the
// outcome.
type OnRunEndCallback func(runID string, result types.RunResult)

// LifecycleCallbacks holds the lifecycle callbacks for a simulation.
// All fields are pointers - nil means no callback will be invoked.
type LifecycleCallbacks struct {
	OnRunStart *OnRunStartCallback
	OnTick     *OnTickCallback
	OnRunEnd   *OnRunEndCallback
}

// Engine replays historical bars and calendar events through loaded
// strategies and records one RunResult per strategy.
type Engine interface {
	// Initialize parses and validates the engine configuration YAML.
	Initialize(config string) error
	// SetDataSource sets the bar history provider.
	SetDataSource(provider market.DataProvider) error
	// SetEventStore sets the economic calendar source.
	SetEventStore(store events.Store) error
	// SetStrategyRegistry sets the registry LoadStrategy resolves names
	// against.
	SetStrategyRegistry(registry *strategy.Registry) error
	// SetAnalytics sets the metrics computer applied to completed runs.
	SetAnalytics(computer analytics.Analytics) error
	// SetResultsFolder sets the directory run records are written to.
	SetResultsFolder(folder string) error
	// LoadStrategy queues a named strategy with its own config YAML.
	// Call multiple times to run several strategies in one batch.
	LoadStrategy(name string, config string) error
	// Run executes every loaded strategy sequentially and returns one
	// result per strategy. The context cancels the simulation between
	// ticks.
	Run(ctx context.Context, callbacks LifecycleCallbacks) ([]types.RunResult, error)
	// GetConfigSchema returns the JSON schema of the engine configuration.
	GetConfigSchema() (string, error)
}
