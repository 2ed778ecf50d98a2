package types

import "time"

// PositionSide is the direction of an open position.
type PositionSide string

const (
	PositionSideBuy  PositionSide = "BUY"
	PositionSideSell PositionSide = "SELL"
)

// Position represents one open position as tracked by the engine.
// The broker is authoritative; the tracked set is a cache reconciled every cycle.
type Position struct {
	Ticket     string       `json:"ticket" yaml:"ticket"`
	Symbol     string       `json:"symbol" yaml:"symbol"`
	Side       PositionSide `json:"side" yaml:"side"`
	Volume     float64      `json:"volume" yaml:"volume"`
	EntryPrice float64      `json:"entry_price" yaml:"entry_price"`
	EntryTime  time.Time    `json:"entry_time" yaml:"entry_time"`
	StopLoss   float64      `json:"stop_loss" yaml:"stop_loss"`
	TakeProfit float64      `json:"take_profit" yaml:"take_profit"`
	// Confidence is the signal confidence captured at entry
	Confidence float64 `json:"confidence" yaml:"confidence"`
}
