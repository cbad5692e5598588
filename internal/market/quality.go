package market

import (
	"fmt"
	"math"

	"go.uber.org/zap"

	"github.com/woxinfeixang/strategic-space-sub001/internal/logger"
	"github.com/woxinfeixang/strategic-space-sub001/internal/types"
	"github.com/woxinfeixang/strategic-space-sub001/pkg/errors"
)

// IssueSeverity classifies a validation issue.
type IssueSeverity string

const (
	SeverityWarning IssueSeverity = "warning"
	SeverityFatal   IssueSeverity = "fatal"
)

// IssueCode identifies the check a validation issue came from.
type IssueCode string

const (
	IssueEmptySeries      IssueCode = "empty_series"
	IssueNullValue        IssueCode = "null_value"
	IssueOHLCSanity       IssueCode = "ohlc_sanity"
	IssueNonMonotonic     IssueCode = "non_monotonic"
	IssueExcessiveGap     IssueCode = "excessive_gap"
	IssueIrregularSpacing IssueCode = "irregular_spacing"
	IssueLowRowCount      IssueCode = "low_row_count"
	IssueForwardFilled    IssueCode = "forward_filled"
)

// ValidationIssue is one finding from the quality gate. Fatal issues
// reject the series; warnings are logged and the series is still
// accepted.
type ValidationIssue struct {
	Severity IssueSeverity
	Code     IssueCode
	Message  string
	// BarIndex is the offending bar's position, -1 for series-level issues.
	BarIndex int
}

// GateConfig tunes the quality gate.
type GateConfig struct {
	// MaxGapMultiple is the fatal gap bound as a multiple of the
	// timeframe's expected bar interval.
	MaxGapMultiple float64
	// MinRows is the non-fatal minimum row count.
	MinRows int
}

// QualityGate validates a loaded series before the simulation trusts it.
type QualityGate struct {
	config GateConfig
	logger *logger.Logger
}

// NewQualityGate constructs a gate. A non-positive MaxGapMultiple falls
// back to 100; a non-positive MinRows falls back to 50.
func NewQualityGate(config GateConfig, log *logger.Logger) *QualityGate {
	if config.MaxGapMultiple <= 0 {
		config.MaxGapMultiple = 100
	}

	if config.MinRows <= 0 {
		config.MinRows = 50
	}

	return &QualityGate{config: config, logger: log}
}

// Validate runs the checks in order, short-circuiting on the first fatal
// failure. The returned bool reports acceptance; the issues list carries
// everything found up to that point.
func (g *QualityGate) Validate(series types.Series) (bool, []ValidationIssue) {
	var issues []ValidationIssue

	// 1. Non-empty.
	if series.IsEmpty() {
		issues = append(issues, ValidationIssue{
			Severity: SeverityFatal,
			Code:     IssueEmptySeries,
			Message:  fmt.Sprintf("series %s %s has no bars", series.Symbol, series.Timeframe),
			BarIndex: -1,
		})

		return g.report(series, false, issues)
	}

	// 2. No null OHLC values.
	for i, bar := range series.Bars {
		if bar.HasNull() {
			issues = append(issues, ValidationIssue{
				Severity: SeverityFatal,
				Code:     IssueNullValue,
				Message:  fmt.Sprintf("bar %d at %s has null OHLC values", i, bar.Time),
				BarIndex: i,
			})

			return g.report(series, false, issues)
		}
	}

	// 3. OHLC sanity: low <= open,close <= high.
	for i, bar := range series.Bars {
		if bar.Low > bar.Open || bar.Low > bar.Close || bar.High < bar.Open || bar.High < bar.Close || bar.High < bar.Low {
			issues = append(issues, ValidationIssue{
				Severity: SeverityFatal,
				Code:     IssueOHLCSanity,
				Message: fmt.Sprintf("bar %d at %s violates OHLC sanity (O=%g H=%g L=%g C=%g)",
					i, bar.Time, bar.Open, bar.High, bar.Low, bar.Close),
				BarIndex: i,
			})

			return g.report(series, false, issues)
		}
	}

	// 4. Strictly increasing timestamps.
	for i := 1; i < len(series.Bars); i++ {
		if !series.Bars[i].Time.After(series.Bars[i-1].Time) {
			issues = append(issues, ValidationIssue{
				Severity: SeverityFatal,
				Code:     IssueNonMonotonic,
				Message: fmt.Sprintf("bar %d at %s is not strictly after bar %d at %s",
					i, series.Bars[i].Time, i-1, series.Bars[i-1].Time),
				BarIndex: i,
			})

			return g.report(series, false, issues)
		}
	}

	// 5. Gap bound relative to the expected bar interval.
	expected, err := series.Timeframe.Duration()
	if err != nil {
		issues = append(issues, ValidationIssue{
			Severity: SeverityFatal,
			Code:     IssueExcessiveGap,
			Message:  fmt.Sprintf("cannot derive expected interval: %v", err),
			BarIndex: -1,
		})

		return g.report(series, false, issues)
	}

	irregular := 0

	for i := 1; i < len(series.Bars); i++ {
		delta := series.Bars[i].Time.Sub(series.Bars[i-1].Time)
		if float64(delta) > g.config.MaxGapMultiple*float64(expected) {
			issues = append(issues, ValidationIssue{
				Severity: SeverityFatal,
				Code:     IssueExcessiveGap,
				Message: fmt.Sprintf("gap of %s before bar %d exceeds %gx the expected %s interval",
					delta, i, g.config.MaxGapMultiple, expected),
				BarIndex: i,
			})

			return g.report(series, false, issues)
		}

		if delta != expected {
			irregular++
		}
	}

	if irregular > 0 {
		issues = append(issues, ValidationIssue{
			Severity: SeverityWarning,
			Code:     IssueIrregularSpacing,
			Message:  fmt.Sprintf("%d of %d intervals deviate from the expected %s spacing", irregular, len(series.Bars)-1, expected),
			BarIndex: -1,
		})
	}

	// 6. Minimum row count, warning only.
	if len(series.Bars) < g.config.MinRows {
		issues = append(issues, ValidationIssue{
			Severity: SeverityWarning,
			Code:     IssueLowRowCount,
			Message:  fmt.Sprintf("series has %d bars, below the minimum of %d", len(series.Bars), g.config.MinRows),
			BarIndex: -1,
		})
	}

	return g.report(series, true, issues)
}

// Repair forward-fills null OHLC values from the prior bar, returning a
// repaired copy and one warning per repaired column. Nulls that pass
// through Validate are fatal; Repair covers nulls introduced afterwards
// by joins and padding. The input series is never mutated.
func (g *QualityGate) Repair(series types.Series) (types.Series, []ValidationIssue) {
	repairedBars := make([]types.MarketBar, len(series.Bars))
	copy(repairedBars, series.Bars)

	filled := map[string]int{}

	for i := 1; i < len(repairedBars); i++ {
		prev := repairedBars[i-1]

		if math.IsNaN(repairedBars[i].Open) {
			repairedBars[i].Open = prev.Open
			filled["open"]++
		}

		if math.IsNaN(repairedBars[i].High) {
			repairedBars[i].High = prev.High
			filled["high"]++
		}

		if math.IsNaN(repairedBars[i].Low) {
			repairedBars[i].Low = prev.Low
			filled["low"]++
		}

		if math.IsNaN(repairedBars[i].Close) {
			repairedBars[i].Close = prev.Close
			filled["close"]++
		}
	}

	var issues []ValidationIssue

	for _, column := range []string{"open", "high", "low", "close"} {
		count, ok := filled[column]
		if !ok {
			continue
		}

		issue := ValidationIssue{
			Severity: SeverityWarning,
			Code:     IssueForwardFilled,
			Message:  fmt.Sprintf("forward-filled %d null %s values in %s %s", count, column, series.Symbol, series.Timeframe),
			BarIndex: -1,
		}
		issues = append(issues, issue)

		g.logger.Warn("forward-filled null values",
			zap.String("symbol", series.Symbol),
			zap.String("timeframe", string(series.Timeframe)),
			zap.String("column", column),
			zap.Int("count", count),
		)
	}

	return types.Series{Symbol: series.Symbol, Timeframe: series.Timeframe, Bars: repairedBars}, issues
}

// RejectionError converts the fatal issues of a rejected series into the
// error the data-loading step aborts with.
func RejectionError(series types.Series, issues []ValidationIssue) error {
	for _, issue := range issues {
		if issue.Severity == SeverityFatal {
			return errors.Newf(errors.ErrCodeDataQualityRejected,
				"series %s %s rejected: %s", series.Symbol, series.Timeframe, issue.Message)
		}
	}

	return errors.Newf(errors.ErrCodeDataQualityRejected,
		"series %s %s rejected", series.Symbol, series.Timeframe)
}

func (g *QualityGate) report(series types.Series, accepted bool, issues []ValidationIssue) (bool, []ValidationIssue) {
	for _, issue := range issues {
		field := zap.String("issue", string(issue.Code))

		switch issue.Severity {
		case SeverityFatal:
			g.logger.Error("series rejected",
				zap.String("symbol", series.Symbol),
				zap.String("timeframe", string(series.Timeframe)),
				field,
				zap.String("detail", issue.Message),
			)
		case SeverityWarning:
			g.logger.Warn("series warning",
				zap.String("symbol", series.Symbol),
				zap.String("timeframe", string(series.Timeframe)),
				field,
				zap.String("detail", issue.Message),
			)
		}
	}

	return accepted, issues
}
