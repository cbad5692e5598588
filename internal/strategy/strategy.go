package strategy

import (
	"sort"
	"time"

	"github.com/woxinfeixang/strategic-space-sub001/internal/logger"
	"github.com/woxinfeixang/strategic-space-sub001/internal/market"
	"github.com/woxinfeixang/strategic-space-sub001/internal/risk"
	"github.com/woxinfeixang/strategic-space-sub001/internal/types"
	"github.com/woxinfeixang/strategic-space-sub001/internal/venue"
	"github.com/woxinfeixang/strategic-space-sub001/pkg/errors"
)

// RuntimeContext carries the collaborators a strategy may use during a
// tick. Everything in it reflects state up to the current timestamp
// only.
type RuntimeContext struct {
	History market.DataProvider
	Venue   venue.ExecutionVenue
	Risk    *risk.Gate
	Logger  *logger.Logger
}

// Strategy is the pluggable decision logic a run executes.
type Strategy interface {
	// Initialize receives the strategy's own YAML config before the
	// first tick.
	Initialize(config string, runtime RuntimeContext) error
	// ProcessTick is called once per simulation timestamp with the
	// market view and the economic events in the current window.
	ProcessTick(now time.Time, view *types.MarketView, events []types.EconomicEvent) error
	// Name identifies the strategy in run records and logs.
	Name() string
}

// TimeframeProvider is optionally implemented by strategies that need
// series beyond the primary timeframe loaded for them.
type TimeframeProvider interface {
	RequiredTimeframes() []types.Timeframe
}

// Factory builds a fresh strategy instance per run.
type Factory func() Strategy

// Registry maps strategy names to factories. Each run gets a new
// instance so state never leaks between runs.
type Registry struct {
	factories map[string]Factory
}

func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Register adds a factory under the name its strategies report.
func (r *Registry) Register(factory Factory) error {
	name := factory().Name()
	if name == "" {
		return errors.New(errors.ErrCodeStrategyConfigError, "strategy name must not be empty")
	}

	if _, ok := r.factories[name]; ok {
		return errors.Newf(errors.ErrCodeStrategyDuplicate, "strategy %q is already registered", name)
	}

	r.factories[name] = factory

	return nil
}

// New builds a fresh instance of the named strategy.
func (r *Registry) New(name string) (Strategy, error) {
	factory, ok := r.factories[name]
	if !ok {
		return nil, errors.Newf(errors.ErrCodeStrategyNotFound, "unknown strategy %q", name)
	}

	return factory(), nil
}

// Names lists the registered strategy names sorted ascending.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}

// RegisterBuiltins registers every strategy shipped with the engine.
func RegisterBuiltins(registry *Registry) error {
	return registry.Register(func() Strategy { return NewNewsMomentum() })
}
