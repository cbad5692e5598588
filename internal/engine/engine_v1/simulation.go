package engine

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/moznion/go-optional"
	"go.uber.org/zap"

	"github.com/woxinfeixang/strategic-space-sub001/internal/analytics"
	"github.com/woxinfeixang/strategic-space-sub001/internal/config"
	"github.com/woxinfeixang/strategic-space-sub001/internal/engine"
	"github.com/woxinfeixang/strategic-space-sub001/internal/events"
	"github.com/woxinfeixang/strategic-space-sub001/internal/logger"
	"github.com/woxinfeixang/strategic-space-sub001/internal/market"
	"github.com/woxinfeixang/strategic-space-sub001/internal/risk"
	"github.com/woxinfeixang/strategic-space-sub001/internal/strategy"
	"github.com/woxinfeixang/strategic-space-sub001/internal/types"
	"github.com/woxinfeixang/strategic-space-sub001/internal/universe"
	"github.com/woxinfeixang/strategic-space-sub001/internal/venue"
	"github.com/woxinfeixang/strategic-space-sub001/pkg/errors"
)

type runPhase string

const (
	phaseCreated       runPhase = "created"
	phaseInitializing  runPhase = "initializing"
	phaseDataLoading   runPhase = "data_loading"
	phaseTimestampLoop runPhase = "timestamp_loop"
	phaseCompleted     runPhase = "completed"
	phaseFailed        runPhase = "failed"
)

type loadedStrategy struct {
	name   string
	config string
}

// SimulationEngineV1 is the shipped engine implementation. It replays
// each loaded strategy sequentially against the same configuration and
// persists one run record per strategy.
type SimulationEngineV1 struct {
	config         config.SimulationConfig
	configSnapshot string
	initialized    bool
	log            *logger.Logger
	provider       market.DataProvider
	eventStore     events.Store
	registry       *strategy.Registry
	analytics      analytics.Analytics
	resultsFolder  string
	loaded         []loadedStrategy
}

var _ engine.Engine = (*SimulationEngineV1)(nil)

func NewSimulationEngineV1() engine.Engine {
	return &SimulationEngineV1{config: config.EmptyConfig()}
}

// Initialize implements engine.Engine.
func (e *SimulationEngineV1) Initialize(configYAML string) error {
	parsed, err := config.ParseSimulationConfig(configYAML)
	if err != nil {
		return err
	}

	log, err := logger.NewLogger()
	if err != nil {
		return err
	}

	e.config = parsed
	e.configSnapshot = configYAML
	e.log = log
	e.initialized = true

	e.log.Debug("simulation engine initialized",
		zap.String("primary_timeframe", string(parsed.PrimaryTimeframe)),
		zap.Float64("initial_capital", parsed.InitialCapital),
	)

	return nil
}

// SetDataSource implements engine.Engine.
func (e *SimulationEngineV1) SetDataSource(provider market.DataProvider) error {
	if provider == nil {
		return errors.New(errors.ErrCodeInvalidParameter, "data provider must not be nil")
	}

	e.provider = provider

	return nil
}

// SetEventStore implements engine.Engine.
func (e *SimulationEngineV1) SetEventStore(store events.Store) error {
	if store == nil {
		return errors.New(errors.ErrCodeInvalidParameter, "event store must not be nil")
	}

	e.eventStore = store

	return nil
}

// SetStrategyRegistry implements engine.Engine.
func (e *SimulationEngineV1) SetStrategyRegistry(registry *strategy.Registry) error {
	if registry == nil {
		return errors.New(errors.ErrCodeInvalidParameter, "strategy registry must not be nil")
	}

	e.registry = registry

	return nil
}

// SetAnalytics implements engine.Engine.
func (e *SimulationEngineV1) SetAnalytics(computer analytics.Analytics) error {
	e.analytics = computer

	return nil
}

// SetResultsFolder implements engine.Engine.
func (e *SimulationEngineV1) SetResultsFolder(folder string) error {
	if folder == "" {
		return errors.New(errors.ErrCodeInvalidParameter, "results folder must not be empty")
	}

	e.resultsFolder = folder

	return nil
}

// LoadStrategy implements engine.Engine. The name is resolved against
// the registry at run time so registration order does not matter.
func (e *SimulationEngineV1) LoadStrategy(name string, strategyConfig string) error {
	if name == "" {
		return errors.New(errors.ErrCodeInvalidParameter, "strategy name must not be empty")
	}

	e.loaded = append(e.loaded, loadedStrategy{name: name, config: strategyConfig})

	return nil
}

// GetConfigSchema implements engine.Engine.
func (e *SimulationEngineV1) GetConfigSchema() (string, error) {
	return e.config.GenerateSchemaJSON()
}

// Run implements engine.Engine. A strategy failure terminates that
// strategy's run and is recorded on its result; remaining strategies
// still run.
func (e *SimulationEngineV1) Run(ctx context.Context, callbacks engine.LifecycleCallbacks) ([]types.RunResult, error) {
	if err := e.checkRunnable(); err != nil {
		return nil, err
	}

	results := make([]types.RunResult, 0, len(e.loaded))

	for _, loaded := range e.loaded {
		result := e.runOne(ctx, callbacks, loaded)
		results = append(results, result)

		if callbacks.OnRunEnd != nil {
			(*callbacks.OnRunEnd)(result.RunID, result)
		}
	}

	return results, nil
}

func (e *SimulationEngineV1) checkRunnable() error {
	if !e.initialized {
		return errors.New(errors.ErrCodeConfiguration, "engine is not initialized")
	}

	if e.provider == nil {
		return errors.New(errors.ErrCodeMissingParameter, "data source is not set")
	}

	if e.eventStore == nil {
		return errors.New(errors.ErrCodeMissingParameter, "event store is not set")
	}

	if e.registry == nil {
		return errors.New(errors.ErrCodeMissingParameter, "strategy registry is not set")
	}

	if e.resultsFolder == "" {
		return errors.New(errors.ErrCodeMissingParameter, "results folder is not set")
	}

	if len(e.loaded) == 0 {
		return errors.New(errors.ErrCodeMissingParameter, "no strategies loaded")
	}

	return nil
}

// runOne executes one strategy run end to end. Every exit path goes
// through finish, so exactly one result and one persisted record exist
// per run.
func (e *SimulationEngineV1) runOne(ctx context.Context, callbacks engine.LifecycleCallbacks, loaded loadedStrategy) types.RunResult {
	runID := uuid.New().String()
	builder := newResultBuilder(runID, loaded.name, e.config.InitialCapital, e.configSnapshot)
	builder.analytics = e.analytics

	e.logPhase(runID, loaded.name, phaseCreated)
	e.logPhase(runID, loaded.name, phaseInitializing)

	simVenue := venue.NewSimulatedVenue(e.config.InitialCapital, e.config.Currency, e.log)
	builder.venue = simVenue

	gate, err := risk.NewGate(e.config.Risk)
	if err != nil {
		return e.finish(builder, loaded.name, runID, func() (types.RunResult, types.RunRecord) {
			return builder.onFailure(err, nil, nil)
		})
	}

	instance, err := e.registry.New(loaded.name)
	if err != nil {
		return e.finish(builder, loaded.name, runID, func() (types.RunResult, types.RunRecord) {
			return builder.onFailure(err, nil, nil)
		})
	}

	runtime := strategy.RuntimeContext{
		History: e.provider,
		Venue:   simVenue,
		Risk:    gate,
		Logger:  e.log,
	}

	if err := instance.Initialize(loaded.config, runtime); err != nil {
		wrapped := errors.Wrapf(errors.ErrCodeStrategyInit, err, "strategy %s failed to initialize", loaded.name)

		return e.finish(builder, loaded.name, runID, func() (types.RunResult, types.RunRecord) {
			return builder.onFailure(wrapped, nil, nil)
		})
	}

	e.logPhase(runID, loaded.name, phaseDataLoading)

	calendar, err := e.loadCalendar(ctx)
	if err != nil {
		return e.finish(builder, loaded.name, runID, func() (types.RunResult, types.RunRecord) {
			return builder.onFailure(err, nil, nil)
		})
	}

	resolver := universe.NewResolver(e.log)

	symbols, err := resolver.Resolve(calendar, e.config.Symbols, e.config.CurrencySymbolMap)
	if err != nil {
		return e.finish(builder, loaded.name, runID, func() (types.RunResult, types.RunRecord) {
			return builder.onFailure(err, nil, nil)
		})
	}

	builder.universe = symbols

	series, err := e.loadSeries(symbols, instance)
	if err != nil {
		return e.finish(builder, loaded.name, runID, func() (types.RunResult, types.RunRecord) {
			return builder.onFailure(err, nil, nil)
		})
	}

	primary := make([]types.Series, 0, len(symbols))
	for _, symbol := range symbols {
		primary = append(primary, series[symbol][e.config.PrimaryTimeframe])
	}

	clock := BuildClock(primary, timePtr(e.config.StartTime), timePtr(e.config.EndTime))
	if len(clock) == 0 {
		err := errors.New(errors.ErrCodeSimulationRuntime, "no simulated timestamps within the configured range")

		return e.finish(builder, loaded.name, runID, func() (types.RunResult, types.RunRecord) {
			return builder.onFailure(err, nil, nil)
		})
	}

	if callbacks.OnRunStart != nil {
		if err := (*callbacks.OnRunStart)(runID, loaded.name, symbols, len(clock)); err != nil {
			wrapped := errors.Wrap(errors.ErrCodeCallbackFailed, "run start callback failed", err)

			return e.finish(builder, loaded.name, runID, func() (types.RunResult, types.RunRecord) {
				return builder.onFailure(wrapped, nil, nil)
			})
		}
	}

	e.logPhase(runID, loaded.name, phaseTimestampLoop)

	window := e.eventWindow()

	for i, now := range clock {
		tick := i + 1

		if err := ctx.Err(); err != nil {
			wrapped := errors.Wrapf(errors.ErrCodeSimulationCanceled, err, "simulation canceled at %s", now)

			return e.finish(builder, loaded.name, runID, func() (types.RunResult, types.RunRecord) {
				return builder.onFailure(wrapped, &now, &tick)
			})
		}

		viewBars := make(map[string]map[types.Timeframe][]types.MarketBar, len(symbols))

		for _, symbol := range symbols {
			byTf := make(map[types.Timeframe][]types.MarketBar, len(series[symbol]))

			for tf, s := range series[symbol] {
				visible := barsUpTo(s.Bars, now)
				byTf[tf] = visible

				if tf == e.config.PrimaryTimeframe && len(visible) > 0 {
					simVenue.MarkPrice(symbol, visible[len(visible)-1].Close)
				}
			}

			viewBars[symbol] = byTf
		}

		view := types.NewMarketView(e.config.PrimaryTimeframe, viewBars)
		windowed := eventsInWindow(calendar, now, window)

		tickErr := instance.ProcessTick(now, &view, windowed)

		builder.AppendEquity(now)

		if tickErr != nil {
			wrapped := errors.Wrapf(errors.ErrCodeSimulationRuntime, tickErr,
				"strategy %s failed at %s (tick %d of %d)", loaded.name, now, tick, len(clock))

			return e.finish(builder, loaded.name, runID, func() (types.RunResult, types.RunRecord) {
				return builder.onFailure(wrapped, &now, &tick)
			})
		}

		if callbacks.OnTick != nil {
			if err := (*callbacks.OnTick)(tick, len(clock)); err != nil {
				wrapped := errors.Wrap(errors.ErrCodeCallbackFailed, "tick callback failed", err)

				return e.finish(builder, loaded.name, runID, func() (types.RunResult, types.RunRecord) {
					return builder.onFailure(wrapped, &now, &tick)
				})
			}
		}
	}

	return e.finish(builder, loaded.name, runID, builder.onSuccess)
}

// loadCalendar fetches the run's event slice once, up front. Unset run
// bounds fall back to the epoch and the current wall clock.
func (e *SimulationEngineV1) loadCalendar(ctx context.Context) ([]types.EconomicEvent, error) {
	start := e.config.StartTime.TakeOr(time.Unix(0, 0).UTC())
	end := e.config.EndTime.TakeOr(time.Now().UTC())

	return e.eventStore.FilterEvents(ctx, start, end, e.config.MinImportance)
}

// loadSeries loads, validates, and repairs every (symbol, timeframe)
// series the run needs. The load window is padded backwards by the
// configured lookback so strategies have warm-up history before the
// first tick.
func (e *SimulationEngineV1) loadSeries(symbols []string, instance strategy.Strategy) (map[string]map[types.Timeframe]types.Series, error) {
	timeframes := []types.Timeframe{e.config.PrimaryTimeframe}
	timeframes = append(timeframes, e.config.ExtraTimeframes...)

	if provider, ok := instance.(strategy.TimeframeProvider); ok {
		timeframes = append(timeframes, provider.RequiredTimeframes()...)
	}

	seen := make(map[types.Timeframe]struct{})
	distinct := timeframes[:0]

	for _, tf := range timeframes {
		if _, ok := seen[tf]; ok {
			continue
		}

		seen[tf] = struct{}{}

		distinct = append(distinct, tf)
	}

	gate := market.NewQualityGate(market.GateConfig{
		MaxGapMultiple: e.config.Quality.MaxGapMultiple,
		MinRows:        e.config.Quality.MinRows,
	}, e.log)

	series := make(map[string]map[types.Timeframe]types.Series, len(symbols))

	for _, symbol := range symbols {
		series[symbol] = make(map[types.Timeframe]types.Series, len(distinct))

		for _, tf := range distinct {
			loadStart, err := e.lookbackStart(tf)
			if err != nil {
				return nil, err
			}

			result, err := e.provider.Load(symbol, tf, loadStart, e.config.EndTime)
			if err != nil {
				return nil, err
			}

			switch result.Status {
			case market.LoadNotFound:
				return nil, errors.Newf(errors.ErrCodeDataNotFound, "no series for %s %s", symbol, tf)
			case market.LoadEmpty:
				return nil, errors.Newf(errors.ErrCodeDataEmpty, "series %s %s is empty in the requested range", symbol, tf)
			case market.LoadFound:
			}

			accepted, issues := gate.Validate(result.Series)
			if !accepted {
				return nil, market.RejectionError(result.Series, issues)
			}

			repaired, _ := gate.Repair(result.Series)
			series[symbol][tf] = repaired
		}
	}

	return series, nil
}

// lookbackStart pads the configured start backwards by LookbackBars
// intervals of the given timeframe.
func (e *SimulationEngineV1) lookbackStart(tf types.Timeframe) (optional.Option[time.Time], error) {
	if e.config.StartTime.IsNone() || e.config.LookbackBars == 0 {
		return e.config.StartTime, nil
	}

	interval, err := tf.Duration()
	if err != nil {
		return optional.None[time.Time](), errors.Wrapf(errors.ErrCodeConfiguration, err, "invalid timeframe %q", tf)
	}

	padded := e.config.StartTime.Unwrap().Add(-time.Duration(e.config.LookbackBars) * interval)

	return optional.Some(padded), nil
}

// eventWindow is the visibility window for calendar events at each
// tick: the configured override, or one primary-timeframe interval.
func (e *SimulationEngineV1) eventWindow() time.Duration {
	if e.config.EventWindow.IsSome() {
		return e.config.EventWindow.Unwrap()
	}

	// Validate already proved the primary timeframe parses.
	interval, _ := e.config.PrimaryTimeframe.Duration()

	return interval
}

// finish persists the run record and logs the terminal phase. A record
// that cannot be persisted fails the run even when the simulation
// itself completed.
func (e *SimulationEngineV1) finish(builder *resultBuilder, strategyName, runID string, build func() (types.RunResult, types.RunRecord)) types.RunResult {
	result, record := build()

	if err := os.MkdirAll(e.resultsFolder, 0755); err != nil {
		result = e.persistFailure(result, errors.Wrap(errors.ErrCodeResultPersistence, "failed to create results folder", err))
	} else if err := types.WriteRunRecord(filepath.Join(e.resultsFolder, runID+".yaml"), record); err != nil {
		result = e.persistFailure(result, err)
	}

	phase := phaseCompleted
	if result.Status == types.RunStatusFailed {
		phase = phaseFailed
	}

	e.logPhase(runID, strategyName, phase)

	if result.Status == types.RunStatusFailed {
		e.log.Error("run failed",
			zap.String("run_id", runID),
			zap.String("strategy", strategyName),
			zap.String("error", result.Error),
		)
	} else {
		e.log.Info("run completed",
			zap.String("run_id", runID),
			zap.String("strategy", strategyName),
			zap.Float64("final_equity", result.FinalEquity),
			zap.Int("trades", result.TradeCount),
		)
	}

	return result
}

func (e *SimulationEngineV1) persistFailure(result types.RunResult, err error) types.RunResult {
	e.log.Error("failed to persist run record", zap.Error(err))

	result.Status = types.RunStatusFailed
	if result.Error == "" {
		result.Error = err.Error()
	}

	return result
}

func (e *SimulationEngineV1) logPhase(runID, strategyName string, phase runPhase) {
	e.log.Debug("run phase",
		zap.String("run_id", runID),
		zap.String("strategy", strategyName),
		zap.String("phase", string(phase)),
	)
}

func timePtr(v optional.Option[time.Time]) *time.Time {
	if v.IsNone() {
		return nil
	}

	t := v.Unwrap()

	return &t
}
