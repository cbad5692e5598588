package types

import (
	"sort"

	"github.com/moznion/go-optional"
)

// MarketView is the point-in-time slice of market state handed to a
// strategy at one simulated timestamp. The bar slices share backing
// storage with the loaded series and must be treated as read-only.
type MarketView struct {
	primary Timeframe
	bars    map[string]map[Timeframe][]MarketBar
}

// NewMarketView builds a view from pre-sliced bars. The engine guarantees
// that no bar in any slice is later than the current simulated timestamp.
func NewMarketView(primary Timeframe, bars map[string]map[Timeframe][]MarketBar) MarketView {
	return MarketView{primary: primary, bars: bars}
}

// Primary is the timeframe driving the simulation clock.
func (v MarketView) Primary() Timeframe {
	return v.primary
}

// Symbols lists the symbols present in the view, sorted ascending.
func (v MarketView) Symbols() []string {
	symbols := make([]string, 0, len(v.bars))
	for symbol := range v.bars {
		symbols = append(symbols, symbol)
	}

	sort.Strings(symbols)

	return symbols
}

// Bars returns all visible bars for (symbol, timeframe), oldest first.
func (v MarketView) Bars(symbol string, tf Timeframe) []MarketBar {
	byTf, ok := v.bars[symbol]
	if !ok {
		return nil
	}

	return byTf[tf]
}

// Latest returns the most recent visible bar for (symbol, timeframe).
func (v MarketView) Latest(symbol string, tf Timeframe) optional.Option[MarketBar] {
	bars := v.Bars(symbol, tf)
	if len(bars) == 0 {
		return optional.None[MarketBar]()
	}

	return optional.Some(bars[len(bars)-1])
}
