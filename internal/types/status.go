package types

import "time"

// EngineStatus represents the current lifecycle state of the trading engine.
type EngineStatus string

const (
	EngineStatusInitializing     EngineStatus = "initializing"
	EngineStatusRunning          EngineStatus = "running"
	EngineStatusHalted           EngineStatus = "halted"
	EngineStatusEmergencyStopped EngineStatus = "emergency_stopped"
	EngineStatusStopped          EngineStatus = "stopped"
)

// SessionStats is the risk session state exposed to read-only consumers.
type SessionStats struct {
	StartTime        time.Time `yaml:"start_time" json:"start_time"`
	StartBalance     float64   `yaml:"start_balance" json:"start_balance"`
	PeakEquity       float64   `yaml:"peak_equity" json:"peak_equity"`
	SessionTrades    int       `yaml:"session_trades" json:"session_trades"`
	DailyTrades      int       `yaml:"daily_trades" json:"daily_trades"`
	EmergencyStopped bool      `yaml:"emergency_stopped" json:"emergency_stopped"`
	TradingHalted    bool      `yaml:"trading_halted" json:"trading_halted"`
}

// SignalStats is the cumulative signal statistics owned by the signal generator.
type SignalStats struct {
	Total          int       `yaml:"total" json:"total"`
	Buys           int       `yaml:"buys" json:"buys"`
	Sells          int       `yaml:"sells" json:"sells"`
	Holds          int       `yaml:"holds" json:"holds"`
	Invalid        int       `yaml:"invalid" json:"invalid"`
	MeanConfidence float64   `yaml:"mean_confidence" json:"mean_confidence"`
	Symbols        []string  `yaml:"symbols" json:"symbols"`
	LastSignalTime time.Time `yaml:"last_signal_time" json:"last_signal_time"`
}

// EngineSnapshot is the immutable view of engine state published once per cycle.
// The engine is the single writer; presentation layers only read.
type EngineSnapshot struct {
	Status        EngineStatus    `yaml:"status" json:"status"`
	Account       AccountSnapshot `yaml:"account" json:"account"`
	Session       SessionStats    `yaml:"session" json:"session"`
	Signals       SignalStats     `yaml:"signals" json:"signals"`
	OpenPositions []Position      `yaml:"open_positions" json:"open_positions"`
	RecentSignals []Signal        `yaml:"recent_signals" json:"recent_signals"`
	UpdatedAt     time.Time       `yaml:"updated_at" json:"updated_at"`
}
