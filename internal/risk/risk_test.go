package risk

import (
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/woxinfeixang/strategic-space-sub001/internal/types"
	"github.com/woxinfeixang/strategic-space-sub001/pkg/errors"
)

type RiskTestSuite struct {
	suite.Suite
}

func TestRiskSuite(t *testing.T) {
	suite.Run(t, new(RiskTestSuite))
}

func (suite *RiskTestSuite) TestNewGateInvalidConfig() {
	_, err := NewGate(Config{MaxPositionFraction: 0})
	suite.Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeConfiguration))

	_, err = NewGate(Config{MaxPositionFraction: 1.5})
	suite.Error(err)
}

func (suite *RiskTestSuite) TestApproveWithinLimits() {
	gate, err := NewGate(DefaultConfig())
	suite.NoError(err)

	order := types.Order{Symbol: "EURUSD", Side: types.OrderSideBuy, Quantity: 100}
	account := types.AccountInfo{Balance: 10000, Equity: 10000, OpenPositions: 1}

	suite.NoError(gate.Approve(order, 1.10, account))
}

func (suite *RiskTestSuite) TestApproveRejectsOversizedOrder() {
	gate, err := NewGate(Config{MaxPositionFraction: 0.1, MaxOpenPositions: 5})
	suite.NoError(err)

	order := types.Order{Symbol: "EURUSD", Side: types.OrderSideBuy, Quantity: 2000}
	account := types.AccountInfo{Balance: 10000, Equity: 10000}

	err = gate.Approve(order, 1.10, account)
	suite.Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeRiskRejected))
}

func (suite *RiskTestSuite) TestApproveRejectsNonPositiveQuantity() {
	gate, err := NewGate(DefaultConfig())
	suite.NoError(err)

	order := types.Order{Symbol: "EURUSD", Side: types.OrderSideBuy, Quantity: 0}
	err = gate.Approve(order, 1.10, types.AccountInfo{Equity: 10000})
	suite.Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeRiskRejected))
}

func (suite *RiskTestSuite) TestApproveRejectsPositionLimit() {
	gate, err := NewGate(Config{MaxPositionFraction: 1, MaxOpenPositions: 2})
	suite.NoError(err)

	order := types.Order{Symbol: "EURUSD", Side: types.OrderSideBuy, Quantity: 10}
	account := types.AccountInfo{Balance: 10000, Equity: 10000, OpenPositions: 2}

	err = gate.Approve(order, 1.10, account)
	suite.Error(err)

	// Sells are allowed even at the limit: they reduce exposure.
	order.Side = types.OrderSideSell
	suite.NoError(gate.Approve(order, 1.10, account))
}
