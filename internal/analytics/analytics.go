package analytics

import (
	"math"

	"github.com/woxinfeixang/strategic-space-sub001/internal/types"
	"github.com/woxinfeixang/strategic-space-sub001/pkg/errors"
)

// Analytics computes summary metrics over a completed run's equity
// curve. Metric failures never fail the run; the engine records them on
// the run record instead.
type Analytics interface {
	ComputeMetrics(curve []types.EquityPoint, trades []types.Trade) (map[string]float64, error)
}

// BasicAnalytics derives return, volatility, drawdown, and win-rate
// metrics from the per-tick equity curve.
type BasicAnalytics struct{}

var _ Analytics = (*BasicAnalytics)(nil)

func NewBasicAnalytics() *BasicAnalytics {
	return &BasicAnalytics{}
}

// ComputeMetrics implements Analytics. The curve needs at least two
// points to produce per-tick returns.
func (a *BasicAnalytics) ComputeMetrics(curve []types.EquityPoint, trades []types.Trade) (map[string]float64, error) {
	if len(curve) < 2 {
		return nil, errors.Newf(errors.ErrCodeInvalidParameter,
			"equity curve has %d points, need at least 2", len(curve))
	}

	if curve[0].Equity <= 0 {
		return nil, errors.New(errors.ErrCodeInvalidParameter, "initial equity must be positive")
	}

	returns := make([]float64, 0, len(curve)-1)

	for i := 1; i < len(curve); i++ {
		prev := curve[i-1].Equity
		if prev == 0 {
			returns = append(returns, 0)

			continue
		}

		returns = append(returns, curve[i].Equity/prev-1)
	}

	metrics := map[string]float64{
		"total_return": curve[len(curve)-1].Equity/curve[0].Equity - 1,
		"volatility":   stddev(returns),
		"max_drawdown": maxDrawdown(curve),
	}

	wins, losses := 0, 0

	for _, trade := range trades {
		if trade.Order.Side != types.OrderSideSell {
			continue
		}

		if trade.PnL > 0 {
			wins++
		} else if trade.PnL < 0 {
			losses++
		}
	}

	if closed := wins + losses; closed > 0 {
		metrics["win_rate"] = float64(wins) / float64(closed)
	}

	return metrics, nil
}

func stddev(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}

	mean := 0.0
	for _, v := range values {
		mean += v
	}

	mean /= float64(len(values))

	variance := 0.0
	for _, v := range values {
		variance += (v - mean) * (v - mean)
	}

	variance /= float64(len(values) - 1)

	return math.Sqrt(variance)
}

// maxDrawdown is the largest peak-to-trough equity decline as a
// positive fraction of the peak.
func maxDrawdown(curve []types.EquityPoint) float64 {
	peak := curve[0].Equity
	worst := 0.0

	for _, point := range curve {
		if point.Equity > peak {
			peak = point.Equity
		}

		if peak > 0 {
			drawdown := (peak - point.Equity) / peak
			if drawdown > worst {
				worst = drawdown
			}
		}
	}

	return worst
}
