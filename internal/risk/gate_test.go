package risk

import (
	"strings"
	"testing"

	"github.com/rxtech-lab/argo-scalper/internal/config"
	"github.com/rxtech-lab/argo-scalper/internal/logger"
	"github.com/rxtech-lab/argo-scalper/internal/types"
	"github.com/stretchr/testify/suite"
)

type GateTestSuite struct {
	suite.Suite
	log *logger.Logger
}

func TestGateSuite(t *testing.T) {
	suite.Run(t, new(GateTestSuite))
}

func (suite *GateTestSuite) SetupTest() {
	log, err := logger.NewLogger()
	suite.Require().NoError(err)
	suite.log = log
}

func (suite *GateTestSuite) newGate() *Gate {
	riskCfg := config.RiskConfig{
		RiskPerTrade: 0.01,
		MaxDailyLoss: 0.05,
		MaxDrawdown:  0.10,
		MinLotSize:   0.01,
		MaxLotSize:   1.0,
	}
	tradingCfg := config.TradingConfig{
		Symbols:        []string{"EURUSD"},
		Interval:       "1m",
		MaxPositions:   3,
		MaxDailyTrades: 5,
	}

	return NewGate(riskCfg, tradingCfg, 10000, suite.log)
}

func healthyAccount() types.AccountSnapshot {
	return types.AccountSnapshot{Balance: 10000, Equity: 10000, Margin: 0, MarginLevel: 0}
}

func confidentSignal() types.Signal {
	return types.Signal{Symbol: "EURUSD", Action: types.SignalActionBuy, Confidence: 80}
}

func (suite *GateTestSuite) TestApprovesHealthyTrade() {
	gate := suite.newGate()
	result := gate.ValidateTrade(confidentSignal(), healthyAccount(), nil)

	suite.True(result.Approved)
	suite.Empty(result.Reasons)
	suite.Empty(result.Warnings)
}

func (suite *GateTestSuite) TestEmergencyStopShortCircuits() {
	gate := suite.newGate()

	// Trip the breaker, then validate an otherwise perfect trade
	tripped := gate.EmergencyStopCheck(types.AccountSnapshot{Balance: 10000, Equity: 1000, MarginLevel: 0})
	suite.True(tripped)

	result := gate.ValidateTrade(confidentSignal(), healthyAccount(), nil)
	suite.False(result.Approved)
	suite.Require().Len(result.Reasons, 1)
	suite.Equal("Emergency stop activated", result.Reasons[0])
}

func (suite *GateTestSuite) TestHaltedRejects() {
	gate := suite.newGate()
	gate.HaltTrading(true)

	result := gate.ValidateTrade(confidentSignal(), healthyAccount(), nil)
	suite.False(result.Approved)
}

func (suite *GateTestSuite) TestPositionLimit() {
	gate := suite.newGate()
	positions := []types.Position{{Ticket: "1"}, {Ticket: "2"}, {Ticket: "3"}}

	result := gate.ValidateTrade(confidentSignal(), healthyAccount(), positions)
	suite.False(result.Approved)
	suite.Contains(result.Reasons[0], "Open positions")
}

func (suite *GateTestSuite) TestDailyTradeLimit() {
	gate := suite.newGate()
	for i := 0; i < 5; i++ {
		gate.RecordTrade()
	}

	result := gate.ValidateTrade(confidentSignal(), healthyAccount(), nil)
	suite.False(result.Approved)
	suite.Contains(result.Reasons[0], "Daily trades")
}

func (suite *GateTestSuite) TestNonPositiveBalance() {
	gate := suite.newGate()
	account := healthyAccount()
	account.Balance = 0

	result := gate.ValidateTrade(confidentSignal(), account, nil)
	suite.False(result.Approved)
}

func (suite *GateTestSuite) TestMarginLevelFloor() {
	gate := suite.newGate()

	account := healthyAccount()
	account.MarginLevel = 150

	result := gate.ValidateTrade(confidentSignal(), account, nil)
	suite.False(result.Approved)
	suite.Contains(result.Reasons[0], "Margin level")

	// Exactly 0 means "not applicable" and passes this check
	account.MarginLevel = 0
	result = gate.ValidateTrade(confidentSignal(), account, nil)
	suite.True(result.Approved)
}

func (suite *GateTestSuite) TestDailyLossLimit() {
	gate := suite.newGate()

	// balance 10000, equity 8900: 11% drawdown against a 5% limit
	account := types.AccountSnapshot{Balance: 10000, Equity: 8900, MarginLevel: 0}

	result := gate.ValidateTrade(confidentSignal(), account, nil)
	suite.False(result.Approved)
	suite.Contains(strings.ToLower(result.Reasons[0]), "daily loss")
}

func (suite *GateTestSuite) TestDailyLossWarningZone() {
	gate := suite.newGate()

	// 4% drawdown: above 0.7 * 5% = 3.5%, below the 5% limit
	account := types.AccountSnapshot{Balance: 10000, Equity: 9600, MarginLevel: 0}

	result := gate.ValidateTrade(confidentSignal(), account, nil)
	suite.True(result.Approved)
	suite.NotEmpty(result.Warnings)
}

func (suite *GateTestSuite) TestLowConfidenceWarning() {
	gate := suite.newGate()

	signal := confidentSignal()
	signal.Confidence = 40

	result := gate.ValidateTrade(signal, healthyAccount(), nil)
	suite.True(result.Approved)
	suite.NotEmpty(result.Warnings)
}

func (suite *GateTestSuite) TestHighUtilizationWarning() {
	gate := suite.newGate()

	// 2 of 3 open is below the 80% warning fraction (2 < 2.4)
	positions := []types.Position{{Ticket: "1"}, {Ticket: "2"}}
	result := gate.ValidateTrade(confidentSignal(), healthyAccount(), positions)
	suite.True(result.Approved)
	suite.Empty(result.Warnings)

	// 4 of 5 open is at the warning fraction but still under the hard limit
	gate.tradingCfg.MaxPositions = 5
	positions = append(positions, types.Position{Ticket: "3"}, types.Position{Ticket: "4"})
	result = gate.ValidateTrade(confidentSignal(), healthyAccount(), positions)
	suite.True(result.Approved)
	suite.NotEmpty(result.Warnings)
}

func (suite *GateTestSuite) TestEmergencyLatchAndReset() {
	gate := suite.newGate()

	// Margin level positive and below 50 trips the breaker
	suite.True(gate.EmergencyStopCheck(types.AccountSnapshot{Balance: 10000, Equity: 10000, MarginLevel: 40}))

	// Healthy snapshots do not clear the latch
	suite.True(gate.EmergencyStopCheck(healthyAccount()))

	gate.ResetEmergencyStop()
	suite.False(gate.EmergencyStopCheck(healthyAccount()))
}

func (suite *GateTestSuite) TestEmergencyDrawdownFromPeak() {
	gate := suite.newGate()

	// Raise the peak, then drop equity 15% below it (1.5 * 10% limit)
	suite.False(gate.EmergencyStopCheck(types.AccountSnapshot{Balance: 12000, Equity: 12000, MarginLevel: 0}))
	suite.True(gate.EmergencyStopCheck(types.AccountSnapshot{Balance: 12000, Equity: 10200, MarginLevel: 0}))
}

func (suite *GateTestSuite) TestEmergencyDailyLossExactBoundary() {
	gate := suite.newGate()

	// Just under 1.5 * 5% daily loss stays armed but untripped
	suite.False(gate.EmergencyStopCheck(types.AccountSnapshot{Balance: 9251, Equity: 9251, MarginLevel: 0}))

	// Exactly 1.5 * 5% must trip despite float rounding in the product
	suite.True(gate.EmergencyStopCheck(types.AccountSnapshot{Balance: 9250, Equity: 9250, MarginLevel: 0}))
}

func (suite *GateTestSuite) TestMarginLevelZeroNotEmergency() {
	gate := suite.newGate()
	suite.False(gate.EmergencyStopCheck(healthyAccount()))
}

func (suite *GateTestSuite) TestSessionSnapshot() {
	gate := suite.newGate()
	gate.RecordTrade()
	gate.RecordTrade()

	session := gate.Session()
	suite.Equal(2, session.SessionTrades)
	suite.Equal(2, session.DailyTrades)
	suite.Equal(10000.0, session.StartBalance)
	suite.False(session.EmergencyStopped)
}

func (suite *GateTestSuite) TestReinitialize() {
	gate := suite.newGate()
	gate.RecordTrade()
	suite.True(gate.EmergencyStopCheck(types.AccountSnapshot{Balance: 10000, Equity: 1000}))

	gate.Reinitialize(5000)

	session := gate.Session()
	suite.Equal(0, session.SessionTrades)
	suite.Equal(5000.0, session.StartBalance)
	suite.False(session.EmergencyStopped)
}
