package types

import "time"

// OrderSide is the direction of an order.
type OrderSide string

const (
	OrderSideBuy  OrderSide = "buy"
	OrderSideSell OrderSide = "sell"
)

// Order is a market order submitted by a strategy to the execution venue.
type Order struct {
	ID       string    `yaml:"id"`
	Symbol   string    `yaml:"symbol"`
	Side     OrderSide `yaml:"side"`
	Quantity float64   `yaml:"quantity"`
	Time     time.Time `yaml:"time"`
	// Reason is a free-form note from the strategy about why the order
	// was placed, carried into the trade log for diagnostics.
	Reason string `yaml:"reason,omitempty"`
}

// Trade is one executed fill recorded by the execution venue.
type Trade struct {
	Order         Order     `yaml:"order"`
	ExecutedAt    time.Time `yaml:"executed_at"`
	ExecutedQty   float64   `yaml:"executed_qty"`
	ExecutedPrice float64   `yaml:"executed_price"`
	// PnL is the realized profit and loss for this trade. Zero for
	// position-opening fills.
	PnL float64 `yaml:"pnl"`
}

// AccountInfo is a snapshot of venue account state consumed by the risk
// gate when approving orders.
type AccountInfo struct {
	// Balance is the current cash balance (excluding unrealized P&L)
	Balance float64 `yaml:"balance"`
	// Equity is the total account value (balance + market value of positions)
	Equity float64 `yaml:"equity"`
	// OpenPositions is the number of symbols with a non-zero position
	OpenPositions int `yaml:"open_positions"`
}
