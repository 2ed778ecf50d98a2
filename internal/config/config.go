// Package config defines the configuration surface consumed by the trading
// engine. Configuration is loaded once at startup and passed explicitly into
// each component constructor; nothing reads ambient global state. Changed
// values take effect only through engine re-initialization, never mid-cycle.
package config

import (
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rxtech-lab/argo-scalper/internal/version"
	"github.com/rxtech-lab/argo-scalper/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Default values applied by ApplyDefaults when the YAML omits a field.
const (
	DefaultMinConfidence  = 60.0
	DefaultCycleInterval  = Duration(5 * time.Second)
	DefaultSignalCooldown = Duration(60 * time.Second)
)

// Duration wraps time.Duration so YAML can carry values like "5s" or "1m30s".
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfiguration, "duration must be a string like \"5s\"", err)
	}

	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return errors.Wrapf(errors.ErrCodeInvalidConfiguration, err, "invalid duration %q", raw)
	}

	*d = Duration(parsed)

	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// StrategyConfig contains the signal generator parameters.
type StrategyConfig struct {
	EMAFast       int     `yaml:"ema_fast" json:"ema_fast" validate:"required,gt=0"`
	EMASlow       int     `yaml:"ema_slow" json:"ema_slow" validate:"required,gt=0,gtfield=EMAFast"`
	RSIPeriod     int     `yaml:"rsi_period" json:"rsi_period" validate:"required,gt=0"`
	RSIOverbought float64 `yaml:"rsi_overbought" json:"rsi_overbought" validate:"required,gt=0,lte=100"`
	RSIOversold   float64 `yaml:"rsi_oversold" json:"rsi_oversold" validate:"required,gte=0,ltfield=RSIOverbought"`
	MinConfidence float64 `yaml:"min_confidence" json:"min_confidence" validate:"gte=0,lte=100"`
}

// RiskConfig contains the risk gate and position sizing parameters.
// Fractions are expressed as decimals, e.g. 0.02 for 2%.
type RiskConfig struct {
	RiskPerTrade float64 `yaml:"risk_per_trade" json:"risk_per_trade" validate:"required,gt=0,lte=1"`
	MaxDailyLoss float64 `yaml:"max_daily_loss" json:"max_daily_loss" validate:"required,gt=0,lte=1"`
	MaxDrawdown  float64 `yaml:"max_drawdown" json:"max_drawdown" validate:"required,gt=0,lte=1"`
	MinLotSize   float64 `yaml:"min_lot_size" json:"min_lot_size" validate:"required,gt=0"`
	MaxLotSize   float64 `yaml:"max_lot_size" json:"max_lot_size" validate:"required,gtefield=MinLotSize"`
}

// TradingConfig contains the execution loop parameters.
type TradingConfig struct {
	Symbols        []string `yaml:"symbols" json:"symbols" validate:"required,min=1,dive,required"`
	Interval       string   `yaml:"interval" json:"interval" validate:"required"`
	MaxPositions   int      `yaml:"max_positions" json:"max_positions" validate:"required,gt=0"`
	MaxDailyTrades int      `yaml:"max_daily_trades" json:"max_daily_trades" validate:"required,gt=0"`
	CycleInterval  Duration `yaml:"cycle_interval" json:"cycle_interval"`
	SignalCooldown Duration `yaml:"signal_cooldown" json:"signal_cooldown"`
	// OutputPath is the root directory for session run folders and trade journals.
	// Empty disables journaling.
	OutputPath string `yaml:"output_path" json:"output_path"`
}

// BinanceConfig contains credentials for the live broker. Required only when
// running against the live gateway.
type BinanceConfig struct {
	APIKey    string `yaml:"api_key" json:"api_key"`
	SecretKey string `yaml:"secret_key" json:"secret_key"`
	// BaseURL overrides the API endpoint. Takes precedence over Testnet.
	BaseURL string `yaml:"base_url" json:"base_url"`
	Testnet bool   `yaml:"testnet" json:"testnet"`
}

// Config is the complete configuration for one engine instance.
type Config struct {
	// Version declares the config schema version this file was written
	// against. Optional; checked against version.ConfigSchemaVersion.
	Version  string         `yaml:"version" json:"version"`
	Strategy StrategyConfig `yaml:"strategy" json:"strategy" validate:"required"`
	Risk     RiskConfig     `yaml:"risk" json:"risk" validate:"required"`
	Trading  TradingConfig  `yaml:"trading" json:"trading" validate:"required"`
	Binance  BinanceConfig  `yaml:"binance" json:"binance"`
}

// LoadFromFile reads and validates a YAML configuration file.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidConfiguration, "failed to read config file", err)
	}

	return Parse(data)
}

// Parse parses and validates YAML configuration bytes.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidConfiguration, "failed to parse config", err)
	}

	if err := version.CheckConfigCompatibility(cfg.Version, version.ConfigSchemaVersion); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidConfiguration, "incompatible config version", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// ApplyDefaults fills in optional fields that the YAML omitted.
func (c *Config) ApplyDefaults() {
	if c.Strategy.MinConfidence == 0 {
		c.Strategy.MinConfidence = DefaultMinConfidence
	}

	if c.Trading.CycleInterval <= 0 {
		c.Trading.CycleInterval = DefaultCycleInterval
	}

	if c.Trading.SignalCooldown <= 0 {
		c.Trading.SignalCooldown = DefaultSignalCooldown
	}
}

// Validate validates the Config struct.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfiguration, "invalid config", err)
	}

	return nil
}
