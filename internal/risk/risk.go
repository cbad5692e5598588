package risk

import (
	"github.com/go-playground/validator/v10"

	"github.com/woxinfeixang/strategic-space-sub001/internal/types"
	"github.com/woxinfeixang/strategic-space-sub001/pkg/errors"
)

// Config is the risk-gate configuration block of the engine config.
type Config struct {
	// MaxPositionFraction caps a single order's notional at this fraction
	// of account equity.
	MaxPositionFraction float64 `yaml:"max_position_fraction" json:"max_position_fraction" validate:"gt=0,lte=1"`
	// MaxOpenPositions caps the number of symbols with open positions.
	// Zero means unlimited.
	MaxOpenPositions int `yaml:"max_open_positions" json:"max_open_positions" validate:"gte=0"`
}

// DefaultConfig returns the gate defaults used when the config block is
// absent.
func DefaultConfig() Config {
	return Config{
		MaxPositionFraction: 0.25,
		MaxOpenPositions:    5,
	}
}

// Gate approves or rejects proposed orders. Its decisions are consumed by
// strategies; the simulation loop itself never consults it.
type Gate struct {
	config Config
}

// NewGate constructs a gate from its configuration block.
func NewGate(config Config) (*Gate, error) {
	validate := validator.New()
	if err := validate.Struct(config); err != nil {
		return nil, errors.Wrap(errors.ErrCodeConfiguration, "invalid risk config", err)
	}

	return &Gate{config: config}, nil
}

// Approve checks a proposed order against the account snapshot. The price
// is the fill price the venue would use.
func (g *Gate) Approve(order types.Order, price float64, account types.AccountInfo) error {
	if order.Quantity <= 0 {
		return errors.Newf(errors.ErrCodeRiskRejected, "order quantity must be positive, got %f", order.Quantity)
	}

	notional := order.Quantity * price
	if account.Equity > 0 && notional > g.config.MaxPositionFraction*account.Equity {
		return errors.Newf(errors.ErrCodeRiskRejected,
			"order notional %.2f exceeds %.0f%% of equity %.2f",
			notional, g.config.MaxPositionFraction*100, account.Equity)
	}

	if g.config.MaxOpenPositions > 0 && order.Side == types.OrderSideBuy && account.OpenPositions >= g.config.MaxOpenPositions {
		return errors.Newf(errors.ErrCodeRiskRejected,
			"open position limit reached (%d)", g.config.MaxOpenPositions)
	}

	return nil
}
