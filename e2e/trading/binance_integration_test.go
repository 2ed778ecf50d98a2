package trading

import (
	"context"
	"os"
	"testing"

	"github.com/rxtech-lab/argo-scalper/internal/broker/binance"
	"github.com/rxtech-lab/argo-scalper/internal/config"
	"github.com/stretchr/testify/suite"
)

// BinanceIntegrationTestSuite contains integration tests against the Binance
// spot testnet. These tests require BINANCE_TESTNET_API_KEY and
// BINANCE_TESTNET_SECRET_KEY environment variables.
type BinanceIntegrationTestSuite struct {
	suite.Suite

	broker *binance.Broker
}

func TestBinanceIntegrationSuite(t *testing.T) {
	suite.Run(t, new(BinanceIntegrationTestSuite))
}

func (suite *BinanceIntegrationTestSuite) SetupTest() {
	apiKey := os.Getenv("BINANCE_TESTNET_API_KEY")
	secretKey := os.Getenv("BINANCE_TESTNET_SECRET_KEY")

	if apiKey == "" || secretKey == "" {
		suite.T().Skip("Skipping integration test: BINANCE_TESTNET_API_KEY and BINANCE_TESTNET_SECRET_KEY not set")
	}

	b, err := binance.NewBroker(config.BinanceConfig{
		APIKey:    apiKey,
		SecretKey: secretKey,
		Testnet:   true,
	})
	suite.Require().NoError(err)
	suite.broker = b
}

func (suite *BinanceIntegrationTestSuite) TestIntegration_CheckConnection() {
	suite.NoError(suite.broker.CheckConnection(context.Background()))
}

func (suite *BinanceIntegrationTestSuite) TestIntegration_Account() {
	account, err := suite.broker.Account(context.Background())
	suite.NoError(err)
	suite.GreaterOrEqual(account.Balance, float64(0))
	suite.GreaterOrEqual(account.Equity, float64(0))
}

func (suite *BinanceIntegrationTestSuite) TestIntegration_Bars() {
	bars, err := suite.broker.Bars(context.Background(), "BTCUSDT", "1m", 20)
	suite.NoError(err)
	suite.Len(bars, 20)

	for i := 1; i < len(bars); i++ {
		suite.True(bars[i].Time.After(bars[i-1].Time))
	}
}

func (suite *BinanceIntegrationTestSuite) TestIntegration_Instrument() {
	meta, err := suite.broker.Instrument(context.Background(), "BTCUSDT")
	suite.NoError(err)
	suite.Equal("BTCUSDT", meta.Symbol)
	suite.Greater(meta.MinLot, float64(0))
}
