package strategy

import (
	"strings"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/woxinfeixang/strategic-space-sub001/internal/config"
	"github.com/woxinfeixang/strategic-space-sub001/internal/types"
	"github.com/woxinfeixang/strategic-space-sub001/pkg/errors"
)

// NewsMomentumConfig tunes the news-momentum strategy.
type NewsMomentumConfig struct {
	// OrderQuantity is the fixed size of each entry.
	OrderQuantity float64 `yaml:"order_quantity"`
	// MinImportance filters which events trigger trades.
	MinImportance int `yaml:"min_importance"`
	// SurpriseThreshold is the minimum |actual - forecast| / |forecast|
	// needed to act.
	SurpriseThreshold float64 `yaml:"surprise_threshold"`
	// HoldTicks is how many ticks a position is held before exit.
	HoldTicks int `yaml:"hold_ticks"`
}

func defaultNewsMomentumConfig() map[string]any {
	return map[string]any{
		"order_quantity":     1000.0,
		"min_importance":     3,
		"surprise_threshold": 0.05,
		"hold_ticks":         4,
	}
}

type openEntry struct {
	symbol    string
	quantity  float64
	ticksLeft int
}

// NewsMomentum trades surprise releases: when an event's actual value
// deviates from its forecast beyond a threshold, it buys the mapped
// symbol and exits a fixed number of ticks later.
type NewsMomentum struct {
	config  NewsMomentumConfig
	runtime RuntimeContext
	open    []openEntry
}

var _ Strategy = (*NewsMomentum)(nil)

func NewNewsMomentum() *NewsMomentum {
	return &NewsMomentum{}
}

// Name implements Strategy.
func (s *NewsMomentum) Name() string {
	return "news-momentum"
}

// Initialize implements Strategy. User config overlays the built-in
// defaults; omitted keys keep their default values.
func (s *NewsMomentum) Initialize(configYAML string, runtime RuntimeContext) error {
	overrides := map[string]any{}
	if configYAML != "" {
		if err := yaml.Unmarshal([]byte(configYAML), &overrides); err != nil {
			return errors.Wrap(errors.ErrCodeStrategyConfigError, "failed to parse strategy config", err)
		}
	}

	merged, err := yaml.Marshal(config.MergeLayers(defaultNewsMomentumConfig(), overrides))
	if err != nil {
		return errors.Wrap(errors.ErrCodeStrategyConfigError, "failed to merge strategy config", err)
	}

	if err := yaml.Unmarshal(merged, &s.config); err != nil {
		return errors.Wrap(errors.ErrCodeStrategyConfigError, "failed to decode strategy config", err)
	}

	if s.config.OrderQuantity <= 0 {
		return errors.New(errors.ErrCodeStrategyConfigError, "order_quantity must be positive")
	}

	if s.config.HoldTicks <= 0 {
		return errors.New(errors.ErrCodeStrategyConfigError, "hold_ticks must be positive")
	}

	s.runtime = runtime
	s.open = nil

	return nil
}

// ProcessTick implements Strategy.
func (s *NewsMomentum) ProcessTick(now time.Time, view *types.MarketView, events []types.EconomicEvent) error {
	if err := s.closeExpired(now, view); err != nil {
		return err
	}

	for _, event := range events {
		if event.Importance < s.config.MinImportance {
			continue
		}

		if !s.surprised(event) {
			continue
		}

		symbol, ok := s.symbolFor(event, view)
		if !ok {
			continue
		}

		if err := s.enter(now, view, symbol, event); err != nil {
			return err
		}
	}

	for i := range s.open {
		s.open[i].ticksLeft--
	}

	return nil
}

func (s *NewsMomentum) surprised(event types.EconomicEvent) bool {
	if event.Actual.IsNone() || event.Forecast.IsNone() {
		return false
	}

	forecast := event.Forecast.Unwrap()
	if forecast == 0 {
		return false
	}

	deviation := (event.Actual.Unwrap() - forecast) / forecast
	if deviation < 0 {
		deviation = -deviation
	}

	return deviation >= s.config.SurpriseThreshold
}

// symbolFor picks the symbol to trade for an event: its explicit symbol
// when present and simulated, otherwise the first universe symbol whose
// name contains the event currency.
func (s *NewsMomentum) symbolFor(event types.EconomicEvent, view *types.MarketView) (string, bool) {
	universe := view.Symbols()

	if event.Symbol.IsSome() {
		want := event.Symbol.Unwrap()
		for _, symbol := range universe {
			if symbol == want {
				return symbol, true
			}
		}

		return "", false
	}

	currency := strings.ToUpper(event.Currency)
	for _, symbol := range universe {
		if strings.Contains(strings.ToUpper(symbol), currency) {
			return symbol, true
		}
	}

	return "", false
}

func (s *NewsMomentum) enter(now time.Time, view *types.MarketView, symbol string, event types.EconomicEvent) error {
	latest := view.Latest(symbol, view.Primary())
	if latest.IsNone() {
		return nil
	}

	order := types.Order{
		Symbol:   symbol,
		Side:     types.OrderSideBuy,
		Quantity: s.config.OrderQuantity,
		Time:     now,
		Reason:   "news surprise on " + event.Currency,
	}

	if err := s.runtime.Risk.Approve(order, latest.Unwrap().Close, s.runtime.Venue.AccountInfo()); err != nil {
		s.runtime.Logger.Info("entry blocked by risk gate",
			zap.String("symbol", symbol),
			zap.Error(err),
		)

		return nil
	}

	if _, err := s.runtime.Venue.PlaceOrder(order); err != nil {
		if errors.HasCode(err, errors.ErrCodeInsufficientFunds) {
			s.runtime.Logger.Info("entry skipped, insufficient funds",
				zap.String("symbol", symbol),
			)

			return nil
		}

		return err
	}

	s.open = append(s.open, openEntry{
		symbol:    symbol,
		quantity:  s.config.OrderQuantity,
		ticksLeft: s.config.HoldTicks,
	})

	return nil
}

func (s *NewsMomentum) closeExpired(now time.Time, view *types.MarketView) error {
	var remaining []openEntry

	for _, entry := range s.open {
		if entry.ticksLeft > 0 {
			remaining = append(remaining, entry)

			continue
		}

		order := types.Order{
			Symbol:   entry.symbol,
			Side:     types.OrderSideSell,
			Quantity: entry.quantity,
			Time:     now,
			Reason:   "momentum hold expired",
		}

		if _, err := s.runtime.Venue.PlaceOrder(order); err != nil {
			return err
		}
	}

	s.open = remaining

	return nil
}
