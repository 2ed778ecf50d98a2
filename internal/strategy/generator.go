// Package strategy implements the scalping signal generator: it turns an OHLC
// bar window into a BUY/SELL/HOLD decision with a confidence score and proposed
// stop-loss/take-profit levels.
package strategy

import (
	"math"
	"time"

	"github.com/rxtech-lab/argo-scalper/internal/config"
	"github.com/rxtech-lab/argo-scalper/internal/indicator"
	"github.com/rxtech-lab/argo-scalper/internal/types"
	"github.com/rxtech-lab/argo-scalper/pkg/errors"
)

// Scoring constants. Confidence is capped below 100 so no signal ever claims
// certainty.
const (
	baseConfidence      = 50.0
	maxRSIBonus         = 30.0
	rsiDistanceWeight   = 2.0
	trendBonus          = 15.0
	trendStrengthFloor  = 0.001
	confidenceCap       = 95.0
	atrStopMultiplier   = 1.5
	minStopFraction     = 0.001
	rewardRiskRatio     = 2.0
	extraWarmupBars     = 10
)

// Generator classifies bar windows into trade signals. It is stateless with
// respect to trading state; the only thing it owns is cumulative signal
// statistics.
type Generator struct {
	cfg   config.StrategyConfig
	stats *Stats
}

// NewGenerator creates a Generator from strategy configuration.
func NewGenerator(cfg config.StrategyConfig) *Generator {
	return &Generator{
		cfg:   cfg,
		stats: NewStats(),
	}
}

// MinBars returns the minimum bar window length the generator accepts.
func (g *Generator) MinBars() int {
	minLen := g.cfg.EMASlow
	if g.cfg.RSIPeriod > minLen {
		minLen = g.cfg.RSIPeriod
	}

	return minLen + extraWarmupBars
}

// Stats returns a snapshot of the cumulative signal statistics.
func (g *Generator) Stats() types.SignalStats {
	return g.stats.Snapshot()
}

// Evaluate runs one full classification over the bar window and returns a
// fresh signal. Each call is independent; nothing about the classification is
// carried across calls.
//
// The evaluation order is load-bearing: stop and target are computed from the
// pre-threshold candidate, so downstream consumers always see either a fully
// specified tradeable signal or a fully zeroed HOLD, never a partial state.
func (g *Generator) Evaluate(symbol string, bars []types.PriceBar) types.Signal {
	signal := g.evaluate(symbol, bars)
	g.stats.Record(signal)

	return signal
}

func (g *Generator) evaluate(symbol string, bars []types.PriceBar) types.Signal {
	now := time.Now()
	if len(bars) > 0 {
		now = bars[len(bars)-1].Time
	}

	// Step 1: validate the input window. A validation failure always yields a
	// terminal non-tradeable signal, never a silent default.
	if err := types.ValidateSeries(bars, g.MinBars()); err != nil {
		return types.Signal{
			Symbol: symbol,
			Time:   now,
			Action: types.SignalActionInvalidData,
			Errors: []string{err.Error()},
		}
	}

	entry := bars[len(bars)-1].Close

	// Step 2: compute indicators. Trading must never proceed on unknown
	// indicator state, so any failure downgrades to HOLD.
	snapshot, err := g.computeIndicators(bars)
	if err != nil {
		return types.Signal{
			Symbol:     symbol,
			Time:       now,
			Action:     types.SignalActionHold,
			EntryPrice: entry,
			Errors:     []string{err.Error()},
		}
	}

	// Step 3: classify.
	bullish := snapshot.EMAFast > snapshot.EMASlow
	trendStrength := math.Abs(snapshot.EMAFast-snapshot.EMASlow) / snapshot.EMASlow

	action := types.SignalActionHold
	rsiDistance := 0.0

	switch {
	case bullish && snapshot.RSI < g.cfg.RSIOversold:
		action = types.SignalActionBuy
		rsiDistance = g.cfg.RSIOversold - snapshot.RSI
	case !bullish && snapshot.RSI > g.cfg.RSIOverbought:
		action = types.SignalActionSell
		rsiDistance = snapshot.RSI - g.cfg.RSIOverbought
	}

	if action == types.SignalActionHold {
		return types.Signal{
			Symbol:     symbol,
			Time:       now,
			Action:     types.SignalActionHold,
			EntryPrice: entry,
			Indicators: snapshot,
		}
	}

	// Step 4: score the candidate.
	confidence := baseConfidence + math.Min(maxRSIBonus, rsiDistanceWeight*rsiDistance)
	if trendStrength > trendStrengthFloor {
		confidence += trendBonus
	}

	confidence = math.Min(confidence, confidenceCap)

	// Step 5: stop and target from the pre-threshold candidate.
	stopLoss, takeProfit := StopAndTarget(action, entry, snapshot.ATR)

	signal := types.Signal{
		Symbol:     symbol,
		Time:       now,
		Action:     action,
		Confidence: confidence,
		EntryPrice: entry,
		StopLoss:   stopLoss,
		TakeProfit: takeProfit,
		Indicators: snapshot,
	}

	// Step 6: threshold gate. A candidate below the confidence bar is
	// indistinguishable from no-signal to downstream consumers.
	return g.ApplyThreshold(signal)
}

// ApplyThreshold downgrades a candidate below the configured minimum
// confidence to a fully zeroed HOLD. Applying it twice yields the same record.
func (g *Generator) ApplyThreshold(signal types.Signal) types.Signal {
	if !signal.Tradeable() || signal.Confidence >= g.cfg.MinConfidence {
		return signal
	}

	signal.Action = types.SignalActionHold
	signal.Confidence = 0
	signal.StopLoss = 0
	signal.TakeProfit = 0

	return signal
}

// StopAndTarget computes the stop-loss and take-profit prices for a candidate:
// stop distance is the larger of 1.5 ATR and 0.1% of entry, and the target
// distance is twice the stop distance (fixed 2:1 reward to risk).
func StopAndTarget(action types.SignalAction, entry, atr float64) (stopLoss, takeProfit float64) {
	return StopAndTargetFloored(action, entry, atr, 0)
}

// StopAndTargetFloored is StopAndTarget with the stop distance widened to at
// least minDistance, the broker-enforced minimum between entry and stop. The
// target keeps the 2:1 reward to risk against the widened distance.
func StopAndTargetFloored(action types.SignalAction, entry, atr, minDistance float64) (stopLoss, takeProfit float64) {
	stopDistance := math.Max(atrStopMultiplier*atr, minStopFraction*entry)
	stopDistance = math.Max(stopDistance, minDistance)
	targetDistance := rewardRiskRatio * stopDistance

	if action == types.SignalActionBuy {
		return entry - stopDistance, entry + targetDistance
	}

	return entry + stopDistance, entry - targetDistance
}

// computeIndicators derives the latest defined EMA/RSI/ATR values from the
// bar window.
func (g *Generator) computeIndicators(bars []types.PriceBar) (types.IndicatorSnapshot, error) {
	closes := types.Closes(bars)

	emaFast, err := indicator.EMA(closes, g.cfg.EMAFast)
	if err != nil {
		return types.IndicatorSnapshot{}, errors.Wrap(errors.ErrCodeIndicatorCalculation, "fast EMA failed", err)
	}

	emaSlow, err := indicator.EMA(closes, g.cfg.EMASlow)
	if err != nil {
		return types.IndicatorSnapshot{}, errors.Wrap(errors.ErrCodeIndicatorCalculation, "slow EMA failed", err)
	}

	rsi, err := indicator.RSI(closes, g.cfg.RSIPeriod)
	if err != nil {
		return types.IndicatorSnapshot{}, errors.Wrap(errors.ErrCodeIndicatorCalculation, "RSI failed", err)
	}

	atr, err := indicator.ATR(bars, g.cfg.RSIPeriod)
	if err != nil {
		return types.IndicatorSnapshot{}, errors.Wrap(errors.ErrCodeIndicatorCalculation, "ATR failed", err)
	}

	// Each series passed its own all-undefined check, so the last defined
	// value exists for every one of them.
	snapshot := types.IndicatorSnapshot{}
	snapshot.EMAFast, _ = indicator.LastDefined(emaFast)
	snapshot.EMASlow, _ = indicator.LastDefined(emaSlow)
	snapshot.RSI, _ = indicator.LastDefined(rsi)
	snapshot.ATR, _ = indicator.LastDefined(atr)

	return snapshot, nil
}
