// Package risk implements the session-scoped risk gate: a validator that can
// veto or permit each proposed trade, plus the emergency-stop circuit breaker.
package risk

import (
	"fmt"
	"sync"
	"time"

	"github.com/rxtech-lab/argo-scalper/internal/config"
	"github.com/rxtech-lab/argo-scalper/internal/logger"
	"github.com/rxtech-lab/argo-scalper/internal/types"
	"go.uber.org/zap"
)

// Margin-level floors, in percent. A margin level of exactly 0 means "no
// margin exposure" and is never penalized.
const (
	marginLevelFloor          = 200.0
	emergencyMarginLevelFloor = 50.0
)

// emergencyMultiplier scales the configured loss/drawdown limits into the
// circuit-breaker thresholds. Fixed constant, intentionally not configurable:
// the breaker must always be strictly more sensitive than the configured
// limits.
const emergencyMultiplier = 1.5

// boundaryEpsilon absorbs float rounding in the threshold products so the
// breaker still trips when a loss lands exactly on a limit.
const boundaryEpsilon = 1e-9

// warningFraction of the daily-loss limit attaches a non-blocking warning.
const warningFraction = 0.7

// lowConfidenceWarning and highUtilizationWarning thresholds for approved trades.
const (
	lowConfidenceFloor     = 50.0
	highUtilizationFraction = 0.8
)

// Result is the structured outcome of one trade validation. A rejection is a
// normal control-flow value, not an error.
type Result struct {
	Approved  bool      `yaml:"approved" json:"approved"`
	Reasons   []string  `yaml:"reasons,omitempty" json:"reasons,omitempty"`
	Warnings  []string  `yaml:"warnings,omitempty" json:"warnings,omitempty"`
	CheckedAt time.Time `yaml:"checked_at" json:"checked_at"`
}

func (r *Result) reject(reason string) {
	r.Approved = false
	r.Reasons = append(r.Reasons, reason)
}

func (r *Result) warn(warning string) {
	r.Warnings = append(r.Warnings, warning)
}

// Gate enforces position, trade-count, loss, drawdown and margin limits over
// one trading session. All session state is guarded by a single lock; callers
// serialize through it.
type Gate struct {
	riskCfg    config.RiskConfig
	tradingCfg config.TradingConfig
	logger     *logger.Logger

	mu sync.Mutex

	startTime     time.Time
	startBalance  float64
	peakEquity    float64
	sessionTrades int
	dailyTrades   int
	dailyAnchor   string // calendar date the daily counter belongs to

	emergencyStop bool
	tradingHalted bool
}

// NewGate creates a risk gate for a fresh session anchored at the given
// starting balance.
func NewGate(riskCfg config.RiskConfig, tradingCfg config.TradingConfig, startBalance float64, log *logger.Logger) *Gate {
	now := time.Now()

	return &Gate{
		riskCfg:      riskCfg,
		tradingCfg:   tradingCfg,
		logger:       log,
		startTime:    now,
		startBalance: startBalance,
		peakEquity:   startBalance,
		dailyAnchor:  now.Format("2006-01-02"),
	}
}

// ValidateTrade runs the full check sequence against a proposed signal.
// Checks run in a fixed order and the first failure wins.
func (g *Gate) ValidateTrade(signal types.Signal, account types.AccountSnapshot, openPositions []types.Position) Result {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := time.Now()
	g.rolloverDailyLocked(now)

	result := Result{Approved: true, CheckedAt: now}

	if g.emergencyStop {
		result.reject("Emergency stop activated")

		return result
	}

	if g.tradingHalted {
		result.reject("Trading halted")

		return result
	}

	if len(openPositions) >= g.tradingCfg.MaxPositions {
		result.reject(fmt.Sprintf("Open positions %d at limit %d", len(openPositions), g.tradingCfg.MaxPositions))

		return result
	}

	if g.dailyTrades >= g.tradingCfg.MaxDailyTrades {
		result.reject(fmt.Sprintf("Daily trades %d at limit %d", g.dailyTrades, g.tradingCfg.MaxDailyTrades))

		return result
	}

	if account.Balance <= 0 {
		result.reject("Account balance is not positive")

		return result
	}

	if account.MarginLevel > 0 && account.MarginLevel < marginLevelFloor {
		result.reject(fmt.Sprintf("Margin level %.1f%% below %.0f%% floor", account.MarginLevel, marginLevelFloor))

		return result
	}

	if g.startBalance > 0 {
		dailyDrawdown := (g.startBalance - account.Equity) / g.startBalance

		if dailyDrawdown >= g.riskCfg.MaxDailyLoss {
			result.reject(fmt.Sprintf("Daily loss %.2f%% at limit %.2f%%",
				100*dailyDrawdown, 100*g.riskCfg.MaxDailyLoss))

			return result
		}

		if dailyDrawdown >= warningFraction*g.riskCfg.MaxDailyLoss {
			result.warn(fmt.Sprintf("Daily loss %.2f%% approaching limit %.2f%%",
				100*dailyDrawdown, 100*g.riskCfg.MaxDailyLoss))
		}
	}

	if signal.Confidence < lowConfidenceFloor {
		result.warn(fmt.Sprintf("Low signal confidence %.1f", signal.Confidence))
	}

	if float64(len(openPositions)) >= highUtilizationFraction*float64(g.tradingCfg.MaxPositions) {
		result.warn(fmt.Sprintf("Position utilization high: %d of %d", len(openPositions), g.tradingCfg.MaxPositions))
	}

	return result
}

// EmergencyStopCheck evaluates the circuit-breaker conditions against the
// account snapshot. It runs every cycle, independent of trade validation.
// Once tripped the stop stays latched until ResetEmergencyStop.
func (g *Gate) EmergencyStopCheck(account types.AccountSnapshot) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if account.Equity > g.peakEquity {
		g.peakEquity = account.Equity
	}

	if g.emergencyStop {
		return true
	}

	var reason string

	drawdownLimit := emergencyMultiplier*g.riskCfg.MaxDrawdown - boundaryEpsilon
	lossLimit := emergencyMultiplier*g.riskCfg.MaxDailyLoss - boundaryEpsilon

	switch {
	case g.peakEquity > 0 && (g.peakEquity-account.Equity)/g.peakEquity >= drawdownLimit:
		reason = fmt.Sprintf("drawdown from peak %.2f%% reached %.2f%%",
			100*(g.peakEquity-account.Equity)/g.peakEquity, 100*emergencyMultiplier*g.riskCfg.MaxDrawdown)
	case g.startBalance > 0 && (g.startBalance-account.Equity)/g.startBalance >= lossLimit:
		reason = fmt.Sprintf("daily loss %.2f%% reached %.2f%%",
			100*(g.startBalance-account.Equity)/g.startBalance, 100*emergencyMultiplier*g.riskCfg.MaxDailyLoss)
	case account.MarginLevel > 0 && account.MarginLevel < emergencyMarginLevelFloor:
		reason = fmt.Sprintf("margin level %.1f%% below %.0f%%", account.MarginLevel, emergencyMarginLevelFloor)
	default:
		return false
	}

	g.emergencyStop = true
	g.tradingHalted = true
	g.logger.Error("Emergency stop tripped",
		zap.String("reason", reason),
		zap.Float64("equity", account.Equity),
		zap.Float64("peak_equity", g.peakEquity),
	)

	return true
}

// RecordTrade increments the session and daily trade counters after a fill.
func (g *Gate) RecordTrade() {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.rolloverDailyLocked(time.Now())
	g.sessionTrades++
	g.dailyTrades++
}

// ResetEmergencyStop clears the latched emergency stop. This is the explicit
// manual acknowledgement required before trading can resume.
func (g *Gate) ResetEmergencyStop() {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.emergencyStop = false
	g.tradingHalted = false
	g.logger.Warn("Emergency stop manually reset")
}

// HaltTrading pauses new trades without tripping the emergency breaker.
func (g *Gate) HaltTrading(halt bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.tradingHalted = halt
}

// Reinitialize resets the session to a new starting balance. Existing
// counters and the emergency latch are cleared.
func (g *Gate) Reinitialize(startBalance float64) {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := time.Now()
	g.startTime = now
	g.startBalance = startBalance
	g.peakEquity = startBalance
	g.sessionTrades = 0
	g.dailyTrades = 0
	g.dailyAnchor = now.Format("2006-01-02")
	g.emergencyStop = false
	g.tradingHalted = false
}

// Session returns a read-only snapshot of the session state.
func (g *Gate) Session() types.SessionStats {
	g.mu.Lock()
	defer g.mu.Unlock()

	return types.SessionStats{
		StartTime:        g.startTime,
		StartBalance:     g.startBalance,
		PeakEquity:       g.peakEquity,
		SessionTrades:    g.sessionTrades,
		DailyTrades:      g.dailyTrades,
		EmergencyStopped: g.emergencyStop,
		TradingHalted:    g.tradingHalted,
	}
}

// rolloverDailyLocked resets the daily trade counter when the calendar date
// changes. Caller must hold the lock.
func (g *Gate) rolloverDailyLocked(now time.Time) {
	date := now.Format("2006-01-02")
	if date == g.dailyAnchor {
		return
	}

	g.logger.Info("Trading day rolled over",
		zap.String("from", g.dailyAnchor),
		zap.String("to", date),
		zap.Int("daily_trades", g.dailyTrades),
	)

	g.dailyAnchor = date
	g.dailyTrades = 0
}
