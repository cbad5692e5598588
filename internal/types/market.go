package types

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/moznion/go-optional"

	"github.com/woxinfeixang/strategic-space-sub001/pkg/errors"
)

// Timeframe is a bar interval label such as "M30" or "H1". The leading
// letter selects the unit (M=minute, H=hour, D=day, W=week) and the rest
// is the multiplier.
type Timeframe string

const (
	TimeframeM1  Timeframe = "M1"
	TimeframeM5  Timeframe = "M5"
	TimeframeM15 Timeframe = "M15"
	TimeframeM30 Timeframe = "M30"
	TimeframeH1  Timeframe = "H1"
	TimeframeH4  Timeframe = "H4"
	TimeframeD1  Timeframe = "D1"
	TimeframeW1  Timeframe = "W1"
)

// Duration returns the expected distance between two successive bars of
// this timeframe.
func (tf Timeframe) Duration() (time.Duration, error) {
	label := strings.ToUpper(strings.TrimSpace(string(tf)))
	if len(label) < 2 {
		return 0, errors.Newf(errors.ErrCodeInvalidParameter, "unsupported timeframe: %q", tf)
	}

	multiplier, err := strconv.Atoi(label[1:])
	if err != nil || multiplier <= 0 {
		return 0, errors.Newf(errors.ErrCodeInvalidParameter, "unsupported timeframe: %q", tf)
	}

	var unit time.Duration

	switch label[0] {
	case 'M':
		unit = time.Minute
	case 'H':
		unit = time.Hour
	case 'D':
		unit = 24 * time.Hour
	case 'W':
		unit = 7 * 24 * time.Hour
	default:
		return 0, errors.Newf(errors.ErrCodeInvalidParameter, "unsupported timeframe: %q", tf)
	}

	return time.Duration(multiplier) * unit, nil
}

// MarketBar is one OHLCV observation for (symbol, timeframe, timestamp).
// Timestamps are always UTC once a bar has entered the engine. A missing
// price field is represented as NaN so that the quality gate can detect
// and repair it.
type MarketBar struct {
	Symbol    string    `yaml:"symbol"`
	Timeframe Timeframe `yaml:"timeframe"`
	Time      time.Time `yaml:"time"`
	Open      float64   `yaml:"open"`
	High      float64   `yaml:"high"`
	Low       float64   `yaml:"low"`
	Close     float64   `yaml:"close"`
	Volume    float64   `yaml:"volume"`
}

// HasNull reports whether any of the OHLC fields is missing.
func (b MarketBar) HasNull() bool {
	return math.IsNaN(b.Open) || math.IsNaN(b.High) || math.IsNaN(b.Low) || math.IsNaN(b.Close)
}

// Series is an ordered collection of bars for one (symbol, timeframe).
type Series struct {
	Symbol    string
	Timeframe Timeframe
	Bars      []MarketBar
}

// IsEmpty reports whether the series contains no bars.
func (s Series) IsEmpty() bool {
	return len(s.Bars) == 0
}

// EconomicEvent is one macro-economic calendar entry. Events are
// immutable once loaded for a run.
type EconomicEvent struct {
	Time       time.Time
	Currency   string
	Symbol     optional.Option[string]
	Importance int
	Actual     optional.Option[float64]
	Forecast   optional.Option[float64]
	Previous   optional.Option[float64]
}

// EquityPoint is one sample of account equity, appended once per
// simulated timestamp.
type EquityPoint struct {
	Time   time.Time `yaml:"time"`
	Equity float64   `yaml:"equity"`
}
