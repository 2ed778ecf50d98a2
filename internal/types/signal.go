package types

import "time"

// SignalAction is the discrete trade decision produced by the signal generator.
type SignalAction string

const (
	// SignalActionBuy indicates a long entry candidate
	SignalActionBuy SignalAction = "BUY"
	// SignalActionSell indicates a short entry candidate
	SignalActionSell SignalAction = "SELL"
	// SignalActionHold indicates no trade this cycle
	SignalActionHold SignalAction = "HOLD"
	// SignalActionError indicates signal generation itself failed
	SignalActionError SignalAction = "ERROR"
	// SignalActionInvalidData indicates the input bar series failed validation
	SignalActionInvalidData SignalAction = "INVALID_DATA"
)

// IndicatorSnapshot holds the latest defined indicator values that backed a signal.
type IndicatorSnapshot struct {
	EMAFast float64 `yaml:"ema_fast" json:"ema_fast"`
	EMASlow float64 `yaml:"ema_slow" json:"ema_slow"`
	RSI     float64 `yaml:"rsi" json:"rsi"`
	ATR     float64 `yaml:"atr" json:"atr"`
}

// Signal is the outcome of one evaluation cycle for one symbol.
// It is created fresh each evaluation and never mutated after creation.
type Signal struct {
	Symbol     string            `yaml:"symbol" json:"symbol"`
	Time       time.Time         `yaml:"time" json:"time"`
	Action     SignalAction      `yaml:"action" json:"action"`
	Confidence float64           `yaml:"confidence" json:"confidence"`
	EntryPrice float64           `yaml:"entry_price" json:"entry_price"`
	StopLoss   float64           `yaml:"stop_loss" json:"stop_loss"`
	TakeProfit float64           `yaml:"take_profit" json:"take_profit"`
	Indicators IndicatorSnapshot `yaml:"indicators" json:"indicators"`
	Errors     []string          `yaml:"errors,omitempty" json:"errors,omitempty"`
}

// Tradeable reports whether the signal proposes an actual entry.
func (s *Signal) Tradeable() bool {
	return s.Action == SignalActionBuy || s.Action == SignalActionSell
}
