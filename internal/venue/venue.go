package venue

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/woxinfeixang/strategic-space-sub001/internal/logger"
	"github.com/woxinfeixang/strategic-space-sub001/internal/types"
	"github.com/woxinfeixang/strategic-space-sub001/pkg/errors"
)

// ExecutionVenue is the order-execution contract strategies trade
// against. The simulated venue is the only shipped implementation.
type ExecutionVenue interface {
	// PlaceOrder fills a market order at the symbol's last marked price.
	PlaceOrder(order types.Order) (types.Trade, error)
	// AccountBalance returns the per-currency cash balances.
	AccountBalance() map[string]float64
	// AccountInfo returns a snapshot of cash, equity, and open positions.
	AccountInfo() types.AccountInfo
	// TradeHistory returns all fills in execution order.
	TradeHistory() []types.Trade
}

type position struct {
	quantity decimal.Decimal
	avgCost  decimal.Decimal
}

// SimulatedVenue fills market orders against the most recent close of
// each symbol. Money math runs on decimals so that repeated fills do not
// accumulate float drift.
type SimulatedVenue struct {
	currency  string
	cash      decimal.Decimal
	lastPrice map[string]decimal.Decimal
	positions map[string]position
	trades    []types.Trade
	logger    *logger.Logger
}

var _ ExecutionVenue = (*SimulatedVenue)(nil)

// NewSimulatedVenue seeds the venue with the run's initial capital.
func NewSimulatedVenue(initialCapital float64, currency string, log *logger.Logger) *SimulatedVenue {
	return &SimulatedVenue{
		currency:  currency,
		cash:      decimal.NewFromFloat(initialCapital),
		lastPrice: make(map[string]decimal.Decimal),
		positions: make(map[string]position),
		logger:    log,
	}
}

// MarkPrice records the latest close for a symbol. The engine calls this
// once per symbol per tick before the strategy runs, so fills always use
// the price as of the current timestamp, never a future one.
func (v *SimulatedVenue) MarkPrice(symbol string, close float64) {
	v.lastPrice[symbol] = decimal.NewFromFloat(close)
}

// PlaceOrder implements ExecutionVenue. Buys fail on insufficient cash;
// sells fail when the quantity exceeds the open position.
func (v *SimulatedVenue) PlaceOrder(order types.Order) (types.Trade, error) {
	if order.Quantity <= 0 {
		return types.Trade{}, errors.Newf(errors.ErrCodeOrderRejected,
			"order quantity must be positive, got %g", order.Quantity)
	}

	price, ok := v.lastPrice[order.Symbol]
	if !ok {
		return types.Trade{}, errors.Newf(errors.ErrCodeOrderRejected,
			"no price marked for %s", order.Symbol)
	}

	if order.ID == "" {
		order.ID = uuid.New().String()
	}

	quantity := decimal.NewFromFloat(order.Quantity)
	notional := price.Mul(quantity)

	switch order.Side {
	case types.OrderSideBuy:
		return v.fillBuy(order, price, quantity, notional)
	case types.OrderSideSell:
		return v.fillSell(order, price, quantity, notional)
	default:
		return types.Trade{}, errors.Newf(errors.ErrCodeOrderRejected, "unknown order side %q", order.Side)
	}
}

func (v *SimulatedVenue) fillBuy(order types.Order, price, quantity, notional decimal.Decimal) (types.Trade, error) {
	if notional.GreaterThan(v.cash) {
		return types.Trade{}, errors.Newf(errors.ErrCodeInsufficientFunds,
			"buy of %s costs %s but only %s cash is available",
			order.Symbol, notional.StringFixed(2), v.cash.StringFixed(2))
	}

	v.cash = v.cash.Sub(notional)

	held := v.positions[order.Symbol]
	newQuantity := held.quantity.Add(quantity)
	// Weighted average cost across the merged position.
	newCost := held.avgCost.Mul(held.quantity).Add(notional).Div(newQuantity)
	v.positions[order.Symbol] = position{quantity: newQuantity, avgCost: newCost}

	trade := types.Trade{
		Order:         order,
		ExecutedAt:    order.Time,
		ExecutedQty:   quantity.InexactFloat64(),
		ExecutedPrice: price.InexactFloat64(),
	}
	v.trades = append(v.trades, trade)

	v.logger.Debug("filled buy",
		zap.String("symbol", order.Symbol),
		zap.String("quantity", quantity.String()),
		zap.String("price", price.String()),
	)

	return trade, nil
}

func (v *SimulatedVenue) fillSell(order types.Order, price, quantity, notional decimal.Decimal) (types.Trade, error) {
	held := v.positions[order.Symbol]
	if quantity.GreaterThan(held.quantity) {
		return types.Trade{}, errors.Newf(errors.ErrCodeOrderRejected,
			"sell of %s %s exceeds open position %s",
			order.Symbol, quantity.String(), held.quantity.String())
	}

	v.cash = v.cash.Add(notional)
	pnl := price.Sub(held.avgCost).Mul(quantity)

	remaining := held.quantity.Sub(quantity)
	if remaining.IsZero() {
		delete(v.positions, order.Symbol)
	} else {
		v.positions[order.Symbol] = position{quantity: remaining, avgCost: held.avgCost}
	}

	trade := types.Trade{
		Order:         order,
		ExecutedAt:    order.Time,
		ExecutedQty:   quantity.InexactFloat64(),
		ExecutedPrice: price.InexactFloat64(),
		PnL:           pnl.InexactFloat64(),
	}
	v.trades = append(v.trades, trade)

	v.logger.Debug("filled sell",
		zap.String("symbol", order.Symbol),
		zap.String("quantity", quantity.String()),
		zap.String("price", price.String()),
		zap.String("pnl", pnl.String()),
	)

	return trade, nil
}

// AccountBalance implements ExecutionVenue.
func (v *SimulatedVenue) AccountBalance() map[string]float64 {
	return map[string]float64{v.currency: v.cash.InexactFloat64()}
}

// AccountInfo implements ExecutionVenue. Equity is cash plus every open
// position valued at its last marked price.
func (v *SimulatedVenue) AccountInfo() types.AccountInfo {
	equity := v.cash

	for symbol, held := range v.positions {
		if price, ok := v.lastPrice[symbol]; ok {
			equity = equity.Add(held.quantity.Mul(price))
		} else {
			equity = equity.Add(held.quantity.Mul(held.avgCost))
		}
	}

	return types.AccountInfo{
		Balance:       v.cash.InexactFloat64(),
		Equity:        equity.InexactFloat64(),
		OpenPositions: len(v.positions),
	}
}

// TradeHistory implements ExecutionVenue.
func (v *SimulatedVenue) TradeHistory() []types.Trade {
	return v.trades
}
