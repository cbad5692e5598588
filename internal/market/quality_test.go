package market

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/woxinfeixang/strategic-space-sub001/internal/logger"
	"github.com/woxinfeixang/strategic-space-sub001/internal/types"
	"github.com/woxinfeixang/strategic-space-sub001/pkg/errors"
)

type QualityTestSuite struct {
	suite.Suite
	gate *QualityGate
}

func TestQualitySuite(t *testing.T) {
	suite.Run(t, new(QualityTestSuite))
}

func (suite *QualityTestSuite) SetupTest() {
	log, err := logger.NewTestLogger()
	suite.Require().NoError(err)

	suite.gate = NewQualityGate(GateConfig{MaxGapMultiple: 100, MinRows: 50}, log)
}

func barAt(t time.Time, o, h, l, c float64) types.MarketBar {
	return types.MarketBar{
		Symbol:    "EURUSD",
		Timeframe: types.TimeframeM30,
		Time:      t,
		Open:      o,
		High:      h,
		Low:       l,
		Close:     c,
		Volume:    100,
	}
}

func m30Series(bars ...types.MarketBar) types.Series {
	return types.Series{Symbol: "EURUSD", Timeframe: types.TimeframeM30, Bars: bars}
}

func (suite *QualityTestSuite) regularSeries(n int) types.Series {
	start := time.Date(2023, 6, 15, 9, 0, 0, 0, time.UTC)
	bars := make([]types.MarketBar, 0, n)

	for i := 0; i < n; i++ {
		bars = append(bars, barAt(start.Add(time.Duration(i)*30*time.Minute), 1.10, 1.12, 1.09, 1.11))
	}

	return m30Series(bars...)
}

func (suite *QualityTestSuite) TestAcceptsCleanSeries() {
	accepted, issues := suite.gate.Validate(suite.regularSeries(60))
	suite.True(accepted)
	suite.Empty(issues)
}

func (suite *QualityTestSuite) TestRejectsEmptySeries() {
	accepted, issues := suite.gate.Validate(m30Series())
	suite.False(accepted)
	suite.Require().Len(issues, 1)
	suite.Equal(IssueEmptySeries, issues[0].Code)
	suite.Equal(SeverityFatal, issues[0].Severity)
}

func (suite *QualityTestSuite) TestRejectsNullValues() {
	series := suite.regularSeries(60)
	series.Bars[10].Close = math.NaN()

	accepted, issues := suite.gate.Validate(series)
	suite.False(accepted)
	suite.Require().Len(issues, 1)
	suite.Equal(IssueNullValue, issues[0].Code)
	suite.Equal(10, issues[0].BarIndex)
}

func (suite *QualityTestSuite) TestRejectsOHLCSanityViolation() {
	// Second bar has high < low.
	t0 := time.Date(2023, 6, 15, 9, 0, 0, 0, time.UTC)
	series := m30Series(
		barAt(t0, 1.10, 1.12, 1.09, 1.11),
		barAt(t0.Add(30*time.Minute), 1.13, 1.12, 1.10, 1.11),
	)

	accepted, issues := suite.gate.Validate(series)
	suite.False(accepted)
	suite.Require().NotEmpty(issues)
	suite.Equal(IssueOHLCSanity, issues[0].Code)
	suite.Equal(SeverityFatal, issues[0].Severity)
	suite.Equal(1, issues[0].BarIndex)
}

func (suite *QualityTestSuite) TestRejectsNonMonotonicTimestamps() {
	series := suite.regularSeries(10)
	series.Bars[5].Time = series.Bars[4].Time

	accepted, issues := suite.gate.Validate(series)
	suite.False(accepted)
	suite.Require().NotEmpty(issues)
	suite.Equal(IssueNonMonotonic, issues[0].Code)
}

func (suite *QualityTestSuite) TestRejectsExcessiveGap() {
	// 4000 minutes between two M30 bars is about 133x the expected
	// interval, past the 100x bound.
	t0 := time.Date(2023, 6, 15, 9, 0, 0, 0, time.UTC)
	series := m30Series(
		barAt(t0, 1.10, 1.12, 1.09, 1.11),
		barAt(t0.Add(4000*time.Minute), 1.10, 1.12, 1.09, 1.11),
	)

	accepted, issues := suite.gate.Validate(series)
	suite.False(accepted)

	var fatal *ValidationIssue

	for i := range issues {
		if issues[i].Severity == SeverityFatal {
			fatal = &issues[i]
		}
	}

	suite.Require().NotNil(fatal)
	suite.Equal(IssueExcessiveGap, fatal.Code)
}

func (suite *QualityTestSuite) TestToleratesWeekendGap() {
	// Friday 21:00 to Monday 00:00 is 51 hours: far below 100x30m.
	friday := time.Date(2023, 6, 16, 21, 0, 0, 0, time.UTC)
	monday := time.Date(2023, 6, 19, 0, 0, 0, 0, time.UTC)
	series := m30Series(
		barAt(friday.Add(-30*time.Minute), 1.10, 1.12, 1.09, 1.11),
		barAt(friday, 1.10, 1.12, 1.09, 1.11),
		barAt(monday, 1.10, 1.12, 1.09, 1.11),
	)

	accepted, issues := suite.gate.Validate(series)
	suite.True(accepted)

	for _, issue := range issues {
		suite.Equal(SeverityWarning, issue.Severity)
	}
}

func (suite *QualityTestSuite) TestWarnsOnLowRowCount() {
	accepted, issues := suite.gate.Validate(suite.regularSeries(10))
	suite.True(accepted)
	suite.Require().Len(issues, 1)
	suite.Equal(IssueLowRowCount, issues[0].Code)
	suite.Equal(SeverityWarning, issues[0].Severity)
}

func (suite *QualityTestSuite) TestWarnsOnIrregularSpacing() {
	series := suite.regularSeries(60)
	// Shift one bar by 10 minutes; still monotonic, not a gap.
	series.Bars[20].Time = series.Bars[20].Time.Add(10 * time.Minute)

	accepted, issues := suite.gate.Validate(series)
	suite.True(accepted)

	found := false

	for _, issue := range issues {
		if issue.Code == IssueIrregularSpacing {
			found = true

			suite.Equal(SeverityWarning, issue.Severity)
		}
	}

	suite.True(found)
}

func (suite *QualityTestSuite) TestRepairForwardFills() {
	series := suite.regularSeries(5)
	series.Bars[2].Close = math.NaN()
	series.Bars[3].Open = math.NaN()

	repaired, issues := suite.gate.Repair(series)

	suite.Equal(series.Bars[1].Close, repaired.Bars[2].Close)
	suite.Equal(series.Bars[2].Open, repaired.Bars[3].Open)
	suite.Len(issues, 2)

	// Original series is untouched.
	suite.True(math.IsNaN(series.Bars[2].Close))
}

func (suite *QualityTestSuite) TestRepairNoopOnCleanSeries() {
	series := suite.regularSeries(5)
	repaired, issues := suite.gate.Repair(series)

	suite.Empty(issues)
	suite.Equal(series.Bars, repaired.Bars)
}

func (suite *QualityTestSuite) TestRejectionError() {
	series := suite.regularSeries(10)
	series.Bars[3].Time = series.Bars[2].Time

	accepted, issues := suite.gate.Validate(series)
	suite.False(accepted)

	err := RejectionError(series, issues)
	suite.Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeDataQualityRejected))
	suite.Contains(err.Error(), "EURUSD")
}
