package sim

import (
	"context"
	"testing"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-scalper/internal/broker"
	"github.com/rxtech-lab/argo-scalper/internal/types"
	"github.com/rxtech-lab/argo-scalper/pkg/errors"
	"github.com/stretchr/testify/suite"
)

type SimBrokerTestSuite struct {
	suite.Suite
	broker *Broker
	ctx    context.Context
}

func (suite *SimBrokerTestSuite) SetupTest() {
	suite.broker = NewBroker(42, 10000)
	suite.ctx = context.Background()
}

func (suite *SimBrokerTestSuite) warmUp(symbol string) []types.PriceBar {
	bars, err := suite.broker.Bars(suite.ctx, symbol, "1m", 50)
	suite.Require().NoError(err)

	return bars
}

func (suite *SimBrokerTestSuite) TestBarsAreDeterministic() {
	a := NewBroker(7, 10000)
	b := NewBroker(7, 10000)

	barsA, err := a.Bars(suite.ctx, "EURUSD", "1m", 30)
	suite.Require().NoError(err)

	barsB, err := b.Bars(suite.ctx, "EURUSD", "1m", 30)
	suite.Require().NoError(err)

	for i := range barsA {
		suite.InDelta(barsA[i].Close, barsB[i].Close, 1e-12, "bar %d", i)
	}
}

func (suite *SimBrokerTestSuite) TestBarsAreValidAndOrdered() {
	bars := suite.warmUp("EURUSD")

	suite.NoError(types.ValidateSeries(bars, 1))

	for i := 1; i < len(bars); i++ {
		suite.True(bars[i].Time.After(bars[i-1].Time), "bar %d out of order", i)
	}
}

func (suite *SimBrokerTestSuite) TestBarsAdvanceOneBarPerPoll() {
	first := suite.warmUp("EURUSD")
	second := suite.warmUp("EURUSD")

	suite.Equal(len(first), len(second))
	suite.True(second[len(second)-1].Time.After(first[len(first)-1].Time))
}

func (suite *SimBrokerTestSuite) TestRejectsInvalidInterval() {
	_, err := suite.broker.Bars(suite.ctx, "EURUSD", "fast", 10)
	suite.Require().Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidParameter))
}

func (suite *SimBrokerTestSuite) TestTickStraddlesLastClose() {
	bars := suite.warmUp("EURUSD")
	last := bars[len(bars)-1].Close

	tick, err := suite.broker.LatestTick(suite.ctx, "EURUSD")
	suite.Require().NoError(err)

	suite.Less(tick.Bid, last)
	suite.Greater(tick.Ask, last)
	suite.InDelta(last, tick.Mid(), 1e-9)
}

func (suite *SimBrokerTestSuite) TestSubmitAndClose() {
	suite.warmUp("EURUSD")

	req := broker.NewOrderRequest("EURUSD", types.PositionSideBuy, 0.10)
	result, err := suite.broker.SubmitOrder(suite.ctx, req)
	suite.Require().NoError(err)
	suite.NotEmpty(result.Ticket)
	suite.Greater(result.ExecutedPrice, 0.0)

	positions, err := suite.broker.OpenPositions(suite.ctx)
	suite.Require().NoError(err)
	suite.Len(positions, 1)
	suite.Equal("EURUSD", positions[0].Symbol)

	suite.Require().NoError(suite.broker.ClosePosition(suite.ctx, result.Ticket))

	positions, err = suite.broker.OpenPositions(suite.ctx)
	suite.Require().NoError(err)
	suite.Empty(positions)
}

func (suite *SimBrokerTestSuite) TestRejectsInvalidStops() {
	suite.warmUp("EURUSD")

	tick, err := suite.broker.LatestTick(suite.ctx, "EURUSD")
	suite.Require().NoError(err)

	req := broker.NewOrderRequest("EURUSD", types.PositionSideBuy, 0.10)
	req.StopLoss = optional.Some(tick.Ask * 1.01) // above the fill price

	_, err = suite.broker.SubmitOrder(suite.ctx, req)
	suite.Require().Error(err)

	rej := broker.AsRejection(err)
	suite.Require().NotNil(rej)
	suite.Equal(broker.RejectionInvalidStops, rej.Reason)
	suite.False(broker.IsTransient(err))
}

func (suite *SimBrokerTestSuite) TestRejectsWhenDisabled() {
	suite.warmUp("EURUSD")
	suite.broker.SetDisabled(true)

	_, err := suite.broker.SubmitOrder(suite.ctx, broker.NewOrderRequest("EURUSD", types.PositionSideBuy, 0.10))
	suite.Require().Error(err)

	rej := broker.AsRejection(err)
	suite.Require().NotNil(rej)
	suite.Equal(broker.RejectionTradingDisabled, rej.Reason)
}

func (suite *SimBrokerTestSuite) TestRejectsInsufficientFunds() {
	suite.warmUp("EURUSD")

	// 100 lots at ~1.1 needs ~110k margin against a 10k balance.
	_, err := suite.broker.SubmitOrder(suite.ctx, broker.NewOrderRequest("EURUSD", types.PositionSideBuy, 100))
	suite.Require().Error(err)

	rej := broker.AsRejection(err)
	suite.Require().NotNil(rej)
	suite.Equal(broker.RejectionInsufficientFunds, rej.Reason)
}

func (suite *SimBrokerTestSuite) TestCloseUnknownTicket() {
	suite.warmUp("EURUSD")

	err := suite.broker.ClosePosition(suite.ctx, "SIM-999999")
	suite.Require().Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodePositionNotFound))
}

func (suite *SimBrokerTestSuite) TestAccountTracksMargin() {
	suite.warmUp("EURUSD")

	before, err := suite.broker.Account(suite.ctx)
	suite.Require().NoError(err)
	suite.InDelta(10000, before.Balance, 1e-9)
	suite.Zero(before.Margin)
	suite.Zero(before.MarginLevel)

	_, err = suite.broker.SubmitOrder(suite.ctx, broker.NewOrderRequest("EURUSD", types.PositionSideBuy, 0.10))
	suite.Require().NoError(err)

	after, err := suite.broker.Account(suite.ctx)
	suite.Require().NoError(err)
	suite.Greater(after.Margin, 0.0)
	suite.Greater(after.MarginLevel, 0.0)
}

func (suite *SimBrokerTestSuite) TestInstrumentMetadataComplete() {
	meta, err := suite.broker.Instrument(suite.ctx, "EURUSD")
	suite.Require().NoError(err)
	suite.True(meta.Complete())
	suite.Equal("EURUSD", meta.Symbol)
}

func (suite *SimBrokerTestSuite) TestTickBeforeBarsFails() {
	_, err := suite.broker.LatestTick(suite.ctx, "EURUSD")
	suite.Require().Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeMarketDataUnavail))
}

func TestSimBrokerTestSuite(t *testing.T) {
	suite.Run(t, new(SimBrokerTestSuite))
}
