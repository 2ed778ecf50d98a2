package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
)

type ConfigTestSuite struct {
	suite.Suite
}

func TestConfigSuite(t *testing.T) {
	suite.Run(t, new(ConfigTestSuite))
}

const validYAML = `
strategy:
  ema_fast: 12
  ema_slow: 26
  rsi_period: 14
  rsi_overbought: 70
  rsi_oversold: 30
risk:
  risk_per_trade: 0.01
  max_daily_loss: 0.05
  max_drawdown: 0.10
  min_lot_size: 0.01
  max_lot_size: 1.0
trading:
  symbols: ["EURUSD", "GBPUSD"]
  interval: 1m
  max_positions: 3
  max_daily_trades: 10
`

func (suite *ConfigTestSuite) TestParseValid() {
	cfg, err := Parse([]byte(validYAML))
	suite.NoError(err)
	suite.NotNil(cfg)
	suite.Equal(12, cfg.Strategy.EMAFast)
	suite.Equal([]string{"EURUSD", "GBPUSD"}, cfg.Trading.Symbols)
}

func (suite *ConfigTestSuite) TestDefaultsApplied() {
	cfg, err := Parse([]byte(validYAML))
	suite.NoError(err)
	suite.Equal(DefaultMinConfidence, cfg.Strategy.MinConfidence)
	suite.Equal(DefaultCycleInterval, cfg.Trading.CycleInterval)
	suite.Equal(DefaultSignalCooldown, cfg.Trading.SignalCooldown)
}

func (suite *ConfigTestSuite) TestExplicitValuesKept() {
	yaml := validYAML + `
  cycle_interval: 2s
  signal_cooldown: 30s
`
	cfg, err := Parse([]byte(yaml))
	suite.NoError(err)
	suite.Equal(2*time.Second, cfg.Trading.CycleInterval.Std())
	suite.Equal(30*time.Second, cfg.Trading.SignalCooldown.Std())
}

func (suite *ConfigTestSuite) TestFastMustBeBelowSlow() {
	bad := `
strategy:
  ema_fast: 26
  ema_slow: 12
  rsi_period: 14
  rsi_overbought: 70
  rsi_oversold: 30
risk:
  risk_per_trade: 0.01
  max_daily_loss: 0.05
  max_drawdown: 0.10
  min_lot_size: 0.01
  max_lot_size: 1.0
trading:
  symbols: ["EURUSD"]
  interval: 1m
  max_positions: 3
  max_daily_trades: 10
`
	_, err := Parse([]byte(bad))
	suite.Error(err)
}

func (suite *ConfigTestSuite) TestMissingSymbols() {
	bad := `
strategy:
  ema_fast: 12
  ema_slow: 26
  rsi_period: 14
  rsi_overbought: 70
  rsi_oversold: 30
risk:
  risk_per_trade: 0.01
  max_daily_loss: 0.05
  max_drawdown: 0.10
  min_lot_size: 0.01
  max_lot_size: 1.0
trading:
  symbols: []
  interval: 1m
  max_positions: 3
  max_daily_trades: 10
`
	_, err := Parse([]byte(bad))
	suite.Error(err)
}

func (suite *ConfigTestSuite) TestMalformedYAML() {
	_, err := Parse([]byte("strategy: ["))
	suite.Error(err)
}

func (suite *ConfigTestSuite) TestDeclaredVersionAccepted() {
	yaml := "version: \"1.0.0\"\n" + validYAML
	cfg, err := Parse([]byte(yaml))
	suite.NoError(err)
	suite.Equal("1.0.0", cfg.Version)
}

func (suite *ConfigTestSuite) TestDeclaredVersionTooNew() {
	yaml := "version: \"2.0.0\"\n" + validYAML
	_, err := Parse([]byte(yaml))
	suite.Error(err)
	suite.Contains(err.Error(), "incompatible config version")
}
