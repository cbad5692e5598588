package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/woxinfeixang/strategic-space-sub001/internal/types"
)

type ClockTestSuite struct {
	suite.Suite
}

func TestClockSuite(t *testing.T) {
	suite.Run(t, new(ClockTestSuite))
}

func seriesWithTimes(symbol string, times ...time.Time) types.Series {
	bars := make([]types.MarketBar, 0, len(times))
	for _, t := range times {
		bars = append(bars, types.MarketBar{Symbol: symbol, Timeframe: types.TimeframeM30, Time: t})
	}

	return types.Series{Symbol: symbol, Timeframe: types.TimeframeM30, Bars: bars}
}

func (suite *ClockTestSuite) TestUnionSortedDeduplicated() {
	t0 := time.Date(2023, 6, 15, 9, 0, 0, 0, time.UTC)
	t1 := t0.Add(30 * time.Minute)
	t2 := t0.Add(60 * time.Minute)

	// GBPUSD shares t1 with EURUSD and adds t2.
	clock := BuildClock([]types.Series{
		seriesWithTimes("EURUSD", t0, t1),
		seriesWithTimes("GBPUSD", t1, t2),
	}, nil, nil)

	suite.Equal([]time.Time{t0, t1, t2}, clock)
}

func (suite *ClockTestSuite) TestBounds() {
	t0 := time.Date(2023, 6, 15, 9, 0, 0, 0, time.UTC)
	t1 := t0.Add(30 * time.Minute)
	t2 := t0.Add(60 * time.Minute)
	t3 := t0.Add(90 * time.Minute)

	clock := BuildClock([]types.Series{seriesWithTimes("EURUSD", t0, t1, t2, t3)}, &t1, &t2)
	suite.Equal([]time.Time{t1, t2}, clock)
}

func (suite *ClockTestSuite) TestEmptyInput() {
	suite.Empty(BuildClock(nil, nil, nil))
}

func (suite *ClockTestSuite) TestBarsUpTo() {
	t0 := time.Date(2023, 6, 15, 9, 0, 0, 0, time.UTC)
	series := seriesWithTimes("EURUSD", t0, t0.Add(30*time.Minute), t0.Add(60*time.Minute))

	suite.Len(barsUpTo(series.Bars, t0.Add(30*time.Minute)), 2)
	suite.Len(barsUpTo(series.Bars, t0.Add(45*time.Minute)), 2)
	suite.Len(barsUpTo(series.Bars, t0.Add(-time.Minute)), 0)
	suite.Len(barsUpTo(series.Bars, t0.Add(2*time.Hour)), 3)
}

func (suite *ClockTestSuite) TestEventsInWindow() {
	t0 := time.Date(2023, 6, 15, 12, 0, 0, 0, time.UTC)
	events := []types.EconomicEvent{
		{Time: t0.Add(-45 * time.Minute), Currency: "USD"},
		{Time: t0.Add(-15 * time.Minute), Currency: "EUR"},
		{Time: t0, Currency: "GBP"},
		{Time: t0.Add(time.Minute), Currency: "JPY"},
	}

	// Window is half-open on the left and closed on the right: an event
	// exactly window-old is excluded, one stamped now is included.
	windowed := eventsInWindow(events, t0, 30*time.Minute)
	suite.Require().Len(windowed, 2)
	suite.Equal("EUR", windowed[0].Currency)
	suite.Equal("GBP", windowed[1].Currency)

	older := eventsInWindow(events, t0, 45*time.Minute)
	suite.Require().Len(older, 2)

	wide := eventsInWindow(events, t0, time.Hour)
	suite.Len(wide, 3)
}
