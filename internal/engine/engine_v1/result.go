package engine

import (
	"time"

	"github.com/woxinfeixang/strategic-space-sub001/internal/analytics"
	"github.com/woxinfeixang/strategic-space-sub001/internal/types"
	"github.com/woxinfeixang/strategic-space-sub001/internal/venue"
)

// resultBuilder accumulates run state and produces exactly one RunResult
// through onSuccess or onFailure. Every exit path of a run goes through
// one of the two.
type resultBuilder struct {
	runID          string
	strategyName   string
	initialCapital float64
	configSnapshot string
	universe       []string
	curve          []types.EquityPoint
	venue          *venue.SimulatedVenue
	analytics      analytics.Analytics
}

func newResultBuilder(runID, strategyName string, initialCapital float64, configSnapshot string) *resultBuilder {
	return &resultBuilder{
		runID:          runID,
		strategyName:   strategyName,
		initialCapital: initialCapital,
		configSnapshot: configSnapshot,
	}
}

// AppendEquity samples the venue equity at one simulated timestamp.
func (b *resultBuilder) AppendEquity(now time.Time) {
	b.curve = append(b.curve, types.EquityPoint{
		Time:   now,
		Equity: b.venue.AccountInfo().Equity,
	})
}

func (b *resultBuilder) finalEquity() float64 {
	if len(b.curve) == 0 {
		return b.initialCapital
	}

	return b.curve[len(b.curve)-1].Equity
}

func (b *resultBuilder) totalReturn(finalEquity float64) float64 {
	if b.initialCapital == 0 {
		return 0
	}

	return (finalEquity - b.initialCapital) / b.initialCapital
}

func (b *resultBuilder) trades() []types.Trade {
	if b.venue == nil {
		return nil
	}

	return b.venue.TradeHistory()
}

// onSuccess produces the completed result and its record. Analytics are
// best effort; a metrics failure is recorded, never propagated.
func (b *resultBuilder) onSuccess() (types.RunResult, types.RunRecord) {
	finalEquity := b.finalEquity()
	trades := b.trades()

	result := types.RunResult{
		RunID:         b.runID,
		Strategy:      b.strategyName,
		Status:        types.RunStatusCompleted,
		InitialEquity: b.initialCapital,
		FinalEquity:   finalEquity,
		TotalReturn:   b.totalReturn(finalEquity),
		TradeCount:    len(trades),
	}

	record := types.RunRecord{
		Result:         result,
		CreatedAt:      time.Now().UTC(),
		ConfigSnapshot: b.configSnapshot,
		Universe:       b.universe,
		EquityCurve:    b.curve,
		Trades:         trades,
	}

	if b.analytics != nil {
		metrics, err := b.analytics.ComputeMetrics(b.curve, trades)
		if err != nil {
			record.MetricsError = err.Error()
		} else {
			record.Metrics = metrics
		}
	}

	return result, record
}

// onFailure produces the failed result, keeping whatever equity history
// and trades were collected before the failure. failedAt and failedTick
// are set only for failures inside the timestamp loop.
func (b *resultBuilder) onFailure(cause error, failedAt *time.Time, failedTick *int) (types.RunResult, types.RunRecord) {
	finalEquity := b.finalEquity()

	result := types.RunResult{
		RunID:         b.runID,
		Strategy:      b.strategyName,
		Status:        types.RunStatusFailed,
		InitialEquity: b.initialCapital,
		FinalEquity:   finalEquity,
		TotalReturn:   b.totalReturn(finalEquity),
		TradeCount:    len(b.trades()),
		Error:         cause.Error(),
		FailedAt:      failedAt,
		FailedTick:    failedTick,
	}

	record := types.RunRecord{
		Result:         result,
		CreatedAt:      time.Now().UTC(),
		ConfigSnapshot: b.configSnapshot,
		Universe:       b.universe,
		EquityCurve:    b.curve,
		Trades:         b.trades(),
	}

	return result, record
}
