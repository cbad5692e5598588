package types

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
)

type MarketTestSuite struct {
	suite.Suite
}

func TestMarketSuite(t *testing.T) {
	suite.Run(t, new(MarketTestSuite))
}

func (suite *MarketTestSuite) TestTimeframeDuration() {
	tests := []struct {
		tf       Timeframe
		expected time.Duration
	}{
		{TimeframeM1, time.Minute},
		{TimeframeM5, 5 * time.Minute},
		{TimeframeM30, 30 * time.Minute},
		{TimeframeH1, time.Hour},
		{TimeframeH4, 4 * time.Hour},
		{TimeframeD1, 24 * time.Hour},
		{TimeframeW1, 7 * 24 * time.Hour},
		{Timeframe("m15"), 15 * time.Minute},
	}

	for _, tc := range tests {
		d, err := tc.tf.Duration()
		suite.NoError(err, "timeframe %s", tc.tf)
		suite.Equal(tc.expected, d, "timeframe %s", tc.tf)
	}
}

func (suite *MarketTestSuite) TestTimeframeDurationInvalid() {
	for _, tf := range []Timeframe{"", "M", "X30", "M0", "M-5", "30M"} {
		_, err := tf.Duration()
		suite.Error(err, "timeframe %q", tf)
	}
}

func (suite *MarketTestSuite) TestMarketBarStruct() {
	now := time.Date(2023, 6, 15, 9, 30, 0, 0, time.UTC)
	bar := MarketBar{
		Symbol:    "EURUSD",
		Timeframe: TimeframeM30,
		Time:      now,
		Open:      1.10,
		High:      1.12,
		Low:       1.09,
		Close:     1.11,
		Volume:    1200,
	}

	suite.Equal("EURUSD", bar.Symbol)
	suite.Equal(now, bar.Time)
	suite.GreaterOrEqual(bar.High, bar.Open)
	suite.GreaterOrEqual(bar.High, bar.Close)
	suite.LessOrEqual(bar.Low, bar.Open)
	suite.LessOrEqual(bar.Low, bar.Close)
	suite.False(bar.HasNull())
}

func (suite *MarketTestSuite) TestMarketBarHasNull() {
	bar := MarketBar{Open: 1.0, High: 1.1, Low: 0.9, Close: math.NaN()}
	suite.True(bar.HasNull())

	bar.Close = 1.05
	suite.False(bar.HasNull())
}

func (suite *MarketTestSuite) TestSeriesIsEmpty() {
	s := Series{Symbol: "EURUSD", Timeframe: TimeframeM30}
	suite.True(s.IsEmpty())

	s.Bars = append(s.Bars, MarketBar{})
	suite.False(s.IsEmpty())
}

func (suite *MarketTestSuite) TestMarketView() {
	t1 := time.Date(2023, 6, 15, 9, 0, 0, 0, time.UTC)
	t2 := t1.Add(30 * time.Minute)
	bars := map[string]map[Timeframe][]MarketBar{
		"EURUSD": {
			TimeframeM30: {
				{Symbol: "EURUSD", Time: t1, Close: 1.10},
				{Symbol: "EURUSD", Time: t2, Close: 1.11},
			},
		},
	}

	view := NewMarketView(TimeframeM30, bars)

	suite.Equal(TimeframeM30, view.Primary())
	suite.Equal([]string{"EURUSD"}, view.Symbols())
	suite.Len(view.Bars("EURUSD", TimeframeM30), 2)
	suite.Empty(view.Bars("EURUSD", TimeframeH1))
	suite.Empty(view.Bars("GBPUSD", TimeframeM30))

	latest := view.Latest("EURUSD", TimeframeM30)
	suite.True(latest.IsSome())
	suite.Equal(1.11, latest.Unwrap().Close)

	suite.True(view.Latest("GBPUSD", TimeframeM30).IsNone())
}
