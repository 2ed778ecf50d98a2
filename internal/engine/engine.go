// Package engine runs the trading cycle: poll market data, evaluate signals,
// validate risk, size and submit orders, and publish state snapshots.
package engine

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-scalper/internal/broker"
	"github.com/rxtech-lab/argo-scalper/internal/config"
	"github.com/rxtech-lab/argo-scalper/internal/journal"
	"github.com/rxtech-lab/argo-scalper/internal/logger"
	"github.com/rxtech-lab/argo-scalper/internal/risk"
	"github.com/rxtech-lab/argo-scalper/internal/session"
	"github.com/rxtech-lab/argo-scalper/internal/sizing"
	"github.com/rxtech-lab/argo-scalper/internal/strategy"
	"github.com/rxtech-lab/argo-scalper/internal/types"
	"github.com/rxtech-lab/argo-scalper/pkg/errors"
	"go.uber.org/zap"
)

const (
	// maxSubmitRetries bounds transient-error retries per order.
	maxSubmitRetries = 3

	// maxRecentSignals is how many signals the snapshot keeps for display.
	maxRecentSignals = 20
)

// Engine coordinates the full trading cycle. It is the single writer of
// engine state; consumers read through Snapshot.
type Engine struct {
	cfg       *config.Config
	data      broker.MarketDataSource
	gateway   broker.Gateway
	generator *strategy.Generator
	gate      *risk.Gate
	sizer     *sizing.Sizer
	recorder  journal.Recorder
	session   *session.Manager
	log       *logger.Logger
	now       func() time.Time

	mu            sync.RWMutex
	status        types.EngineStatus
	account       types.AccountSnapshot
	positions     []types.Position
	recentSignals []types.Signal
	lastSignalAt  map[string]time.Time
	initialized   bool
	stopRequested chan struct{}
	stopOnce      sync.Once
}

// NewEngine creates an Engine from configuration. Wire the broker with
// SetMarketDataSource and SetGateway, then call Initialize before Run.
func NewEngine(cfg *config.Config, log *logger.Logger) *Engine {
	return &Engine{
		cfg:           cfg,
		data:          nil,
		gateway:       nil,
		generator:     strategy.NewGenerator(cfg.Strategy),
		gate:          nil,
		sizer:         sizing.NewSizer(cfg.Risk),
		recorder:      nil,
		session:       nil,
		log:           log,
		now:           time.Now,
		status:        types.EngineStatusInitializing,
		account:       types.AccountSnapshot{},
		positions:     nil,
		recentSignals: nil,
		lastSignalAt:  make(map[string]time.Time),
		initialized:   false,
		stopRequested: make(chan struct{}),
	}
}

// SetMarketDataSource sets the price data source.
func (e *Engine) SetMarketDataSource(data broker.MarketDataSource) {
	e.data = data
}

// SetGateway sets the order execution gateway.
func (e *Engine) SetGateway(gateway broker.Gateway) {
	e.gateway = gateway
}

// SetRecorder sets the trade recorder. Optional: without one, trades are not
// journaled.
func (e *Engine) SetRecorder(recorder journal.Recorder) {
	e.recorder = recorder
}

// SetSessionManager sets the session folder manager. Optional.
func (e *Engine) SetSessionManager(manager *session.Manager) {
	e.session = manager
}

// Initialize verifies wiring, checks broker connectivity, and anchors the
// risk session to the current account balance.
func (e *Engine) Initialize(ctx context.Context) error {
	if err := e.preRunCheck(); err != nil {
		return err
	}

	if err := e.gateway.CheckConnection(ctx); err != nil {
		return errors.Wrap(errors.ErrCodeEngineInitFailed, "broker connection check failed", err)
	}

	account, err := e.gateway.Account(ctx)
	if err != nil {
		return errors.Wrap(errors.ErrCodeEngineInitFailed, "failed to fetch initial account state", err)
	}

	e.gate = risk.NewGate(e.cfg.Risk, e.cfg.Trading, account.Balance, e.log)

	e.mu.Lock()
	e.account = account
	e.status = types.EngineStatusRunning
	e.initialized = true
	e.mu.Unlock()

	e.log.Info("Engine initialized",
		zap.Strings("symbols", e.cfg.Trading.Symbols),
		zap.String("interval", e.cfg.Trading.Interval),
		zap.Float64("start_balance", account.Balance),
	)

	return nil
}

func (e *Engine) preRunCheck() error {
	if e.data == nil {
		return errors.New(errors.ErrCodeEngineInitFailed, "market data source not set - call SetMarketDataSource() first")
	}

	if e.gateway == nil {
		return errors.New(errors.ErrCodeEngineInitFailed, "gateway not set - call SetGateway() first")
	}

	if len(e.cfg.Trading.Symbols) == 0 {
		return errors.New(errors.ErrCodeEngineInitFailed, "no symbols configured")
	}

	if e.cfg.Trading.Interval == "" {
		return errors.New(errors.ErrCodeEngineInitFailed, "no interval configured")
	}

	return nil
}

// Run drives the trading cycle until the context is cancelled or Stop is
// called. Both are observed at cycle boundaries: an in-flight cycle always
// completes.
func (e *Engine) Run(ctx context.Context) error {
	e.mu.RLock()
	initialized := e.initialized
	e.mu.RUnlock()

	if !initialized {
		return errors.New(errors.ErrCodeEngineNotRunning, "engine not initialized - call Initialize() first")
	}

	ticker := time.NewTicker(e.cfg.Trading.CycleInterval.Std())
	defer ticker.Stop()

	defer func() {
		e.setStatus(types.EngineStatusStopped)
		e.log.Info("Engine stopped")
	}()

	for {
		e.runCycleSafe(ctx)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-e.stopRequested:
			return nil
		case <-ticker.C:
		}
	}
}

// Stop requests a graceful shutdown. The current cycle finishes first.
func (e *Engine) Stop() {
	e.stopOnce.Do(func() {
		close(e.stopRequested)
	})
}

// Snapshot returns a copy of the current engine state.
func (e *Engine) Snapshot() types.EngineSnapshot {
	e.mu.RLock()
	defer e.mu.RUnlock()

	positions := make([]types.Position, len(e.positions))
	copy(positions, e.positions)

	signals := make([]types.Signal, len(e.recentSignals))
	copy(signals, e.recentSignals)

	var sessionStats types.SessionStats
	if e.gate != nil {
		sessionStats = e.gate.Session()
	}

	return types.EngineSnapshot{
		Status:        e.status,
		Account:       e.account,
		Session:       sessionStats,
		Signals:       e.generator.Stats(),
		OpenPositions: positions,
		RecentSignals: signals,
		UpdatedAt:     e.now(),
	}
}

// runCycleSafe runs one cycle, converting panics into logged errors so a
// single bad iteration cannot take down the engine.
func (e *Engine) runCycleSafe(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			e.log.Error("Trading cycle panicked",
				zap.Any("panic", r),
			)
		}
	}()

	e.runCycle(ctx)
}

func (e *Engine) runCycle(ctx context.Context) {
	now := e.now()

	if e.session != nil {
		if _, err := e.session.Rollover(now); err != nil {
			e.log.Warn("Session rollover failed", zap.Error(err))
		}
	}

	account, err := e.gateway.Account(ctx)
	if err != nil {
		e.log.Warn("Failed to fetch account state, skipping cycle", zap.Error(err))

		return
	}

	tripped := e.gate.EmergencyStopCheck(account)

	positions, err := e.gateway.OpenPositions(ctx)
	if err != nil {
		e.log.Warn("Failed to reconcile positions", zap.Error(err))

		positions = e.cachedPositions()
	}

	if tripped {
		e.handleEmergencyStop(ctx, positions)
		e.publish(account, positions)

		return
	}

	sessionStats := e.gate.Session()

	if !sessionStats.TradingHalted {
		for _, symbol := range e.cfg.Trading.Symbols {
			e.processSymbol(ctx, symbol, account, positions)
		}

		// Re-fetch so the snapshot reflects orders placed this cycle.
		if fresh, err := e.gateway.OpenPositions(ctx); err == nil {
			positions = fresh
		}
	}

	e.publish(account, positions)
}

// handleEmergencyStop force-closes all open positions, best effort. The gate
// stays latched until ResetEmergencyStop, so this runs once per trip.
func (e *Engine) handleEmergencyStop(ctx context.Context, positions []types.Position) {
	e.mu.RLock()
	alreadyStopped := e.status == types.EngineStatusEmergencyStopped
	e.mu.RUnlock()

	if alreadyStopped {
		return
	}

	e.setStatus(types.EngineStatusEmergencyStopped)
	e.log.Error("Emergency stop triggered, closing all positions",
		zap.Int("open_positions", len(positions)),
	)

	for _, pos := range positions {
		if err := e.gateway.ClosePosition(ctx, pos.Ticket); err != nil {
			e.log.Error("Failed to close position during emergency stop",
				zap.String("ticket", pos.Ticket),
				zap.String("symbol", pos.Symbol),
				zap.Error(err),
			)
		}
	}
}

func (e *Engine) processSymbol(ctx context.Context, symbol string, account types.AccountSnapshot, positions []types.Position) {
	if e.inCooldown(symbol) {
		return
	}

	bars, err := e.data.Bars(ctx, symbol, e.cfg.Trading.Interval, e.generator.MinBars())
	if err != nil {
		e.log.Warn("Failed to fetch bars",
			zap.String("symbol", symbol),
			zap.Error(err),
		)

		return
	}

	signal := e.generator.Evaluate(symbol, bars)
	e.rememberSignal(signal)

	if !signal.Tradeable() {
		return
	}

	// Bar closes go stale by most of a cycle on a slow interval; anchor the
	// order on the live quote before validation and sizing.
	tick, err := e.data.LatestTick(ctx, symbol)
	if err != nil {
		e.log.Warn("Failed to fetch quote",
			zap.String("symbol", symbol),
			zap.Error(err),
		)

		return
	}

	signal.EntryPrice = tick.Mid()
	signal.StopLoss, signal.TakeProfit = strategy.StopAndTarget(signal.Action, signal.EntryPrice, signal.Indicators.ATR)

	result := e.gate.ValidateTrade(signal, account, positions)
	if !result.Approved {
		e.log.Info("Trade rejected by risk gate",
			zap.String("symbol", symbol),
			zap.String("action", string(signal.Action)),
			zap.Strings("reasons", result.Reasons),
		)

		return
	}

	for _, warning := range result.Warnings {
		e.log.Warn("Risk warning",
			zap.String("symbol", symbol),
			zap.String("warning", warning),
		)
	}

	e.executeSignal(ctx, signal, account)
	e.markSignalTime(symbol)
}

// executeSignal sizes and submits the order, retrying transient failures and
// recomputing stops once if the broker rejects them.
func (e *Engine) executeSignal(ctx context.Context, signal types.Signal, account types.AccountSnapshot) {
	meta, err := e.data.Instrument(ctx, signal.Symbol)
	if err != nil {
		e.log.Warn("Failed to fetch instrument metadata, using minimum lot",
			zap.String("symbol", signal.Symbol),
			zap.Error(err),
		)

		meta = types.InstrumentMeta{Symbol: signal.Symbol}
	}

	stopDistance := math.Abs(signal.EntryPrice - signal.StopLoss)
	volume := e.sizer.Size(account.Balance, meta, stopDistance)

	var side types.PositionSide
	if signal.Action == types.SignalActionBuy {
		side = types.PositionSideBuy
	} else {
		side = types.PositionSideSell
	}

	req := broker.NewOrderRequest(signal.Symbol, side, volume)
	req.StopLoss = optional.Some(signal.StopLoss)
	req.TakeProfit = optional.Some(signal.TakeProfit)
	req.Confidence = signal.Confidence

	result, err := e.submitWithRetry(ctx, req)

	if rej := broker.AsRejection(err); rej != nil && rej.Reason == broker.RejectionInvalidStops {
		result, err = e.resubmitWithFreshStops(ctx, req, signal, meta)
	}

	switch {
	case err == nil:
		e.gate.RecordTrade()
		e.log.Info("Order filled",
			zap.String("symbol", signal.Symbol),
			zap.String("side", string(side)),
			zap.String("ticket", result.Ticket),
			zap.Float64("volume", result.ExecutedVolume),
			zap.Float64("price", result.ExecutedPrice),
			zap.Float64("confidence", signal.Confidence),
		)
		e.recordTrade(req, signal, result, types.TradeStatusFilled, "strategy_signal")

	case broker.AsRejection(err) != nil:
		rej := broker.AsRejection(err)

		if rej.Reason == broker.RejectionTradingDisabled {
			e.gate.HaltTrading(true)
			e.setStatus(types.EngineStatusHalted)
			e.log.Error("Broker reports trading disabled, halting",
				zap.String("symbol", signal.Symbol),
			)
		} else {
			e.log.Warn("Order rejected",
				zap.String("symbol", signal.Symbol),
				zap.String("reason", string(rej.Reason)),
				zap.String("message", rej.Message),
			)
		}

		e.recordTrade(req, signal, broker.OrderResult{}, types.TradeStatusRejected, string(rej.Reason))

	default:
		e.log.Error("Order submission failed",
			zap.String("symbol", signal.Symbol),
			zap.Error(err),
		)
		e.recordTrade(req, signal, broker.OrderResult{}, types.TradeStatusFailed, err.Error())
	}
}

// submitWithRetry retries transient submission errors with exponential
// backoff. Rejections are permanent: the broker has already said no.
func (e *Engine) submitWithRetry(ctx context.Context, req broker.OrderRequest) (broker.OrderResult, error) {
	var result broker.OrderResult

	operation := func() error {
		var err error

		result, err = e.gateway.SubmitOrder(ctx, req)
		if err != nil && !broker.IsTransient(err) {
			return backoff.Permanent(err)
		}

		return err
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), maxSubmitRetries), ctx)

	err := backoff.Retry(operation, policy)

	return result, err
}

// resubmitWithFreshStops recomputes stops against the live quote and the
// broker's minimum stop distance, then retries the order once. Too-tight
// stops on a fast market are the usual cause of an invalid-stops rejection.
func (e *Engine) resubmitWithFreshStops(ctx context.Context, req broker.OrderRequest, signal types.Signal, meta types.InstrumentMeta) (broker.OrderResult, error) {
	tick, err := e.data.LatestTick(ctx, signal.Symbol)
	if err != nil {
		return broker.OrderResult{}, broker.NewRejection(broker.RejectionInvalidStops,
			fmt.Sprintf("stops rejected and quote refresh failed: %v", err))
	}

	stopLoss, takeProfit := strategy.StopAndTargetFloored(signal.Action, tick.Mid(), signal.Indicators.ATR, meta.MinStopDistance)

	req.StopLoss = optional.Some(stopLoss)
	req.TakeProfit = optional.Some(takeProfit)

	e.log.Info("Retrying order with recomputed stops",
		zap.String("symbol", signal.Symbol),
		zap.Float64("stop_loss", stopLoss),
		zap.Float64("take_profit", takeProfit),
	)

	return e.gateway.SubmitOrder(ctx, req)
}

func (e *Engine) recordTrade(req broker.OrderRequest, signal types.Signal, result broker.OrderResult, status types.TradeStatus, reason string) {
	if e.recorder == nil {
		return
	}

	entryPrice := result.ExecutedPrice
	if entryPrice == 0 {
		entryPrice = signal.EntryPrice
	}

	executedAt := result.ExecutedAt
	if executedAt.IsZero() {
		executedAt = e.now()
	}

	volume := result.ExecutedVolume
	if volume == 0 {
		volume = req.Volume
	}

	trade := types.TradeRecord{
		ID:         req.ClientID,
		Ticket:     result.Ticket,
		Symbol:     req.Symbol,
		Side:       req.Side,
		Volume:     volume,
		EntryPrice: entryPrice,
		StopLoss:   req.StopLoss.TakeOr(0),
		TakeProfit: req.TakeProfit.TakeOr(0),
		Confidence: req.Confidence,
		ExecutedAt: executedAt,
		Status:     status,
		Reason:     reason,
	}

	if err := e.recorder.Record(trade); err != nil {
		e.log.Warn("Failed to record trade",
			zap.String("id", trade.ID),
			zap.Error(err),
		)
	}
}

func (e *Engine) inCooldown(symbol string) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()

	last, ok := e.lastSignalAt[symbol]
	if !ok {
		return false
	}

	return e.now().Sub(last) < e.cfg.Trading.SignalCooldown.Std()
}

func (e *Engine) markSignalTime(symbol string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.lastSignalAt[symbol] = e.now()
}

func (e *Engine) rememberSignal(signal types.Signal) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.recentSignals = append(e.recentSignals, signal)
	if len(e.recentSignals) > maxRecentSignals {
		e.recentSignals = e.recentSignals[len(e.recentSignals)-maxRecentSignals:]
	}
}

func (e *Engine) cachedPositions() []types.Position {
	e.mu.RLock()
	defer e.mu.RUnlock()

	positions := make([]types.Position, len(e.positions))
	copy(positions, e.positions)

	return positions
}

func (e *Engine) publish(account types.AccountSnapshot, positions []types.Position) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.account = account
	e.positions = positions
}

func (e *Engine) setStatus(status types.EngineStatus) {
	e.mu.Lock()
	defer e.mu.Unlock()

	// Terminal states are not overwritten by routine transitions.
	if e.status == types.EngineStatusEmergencyStopped && status == types.EngineStatusRunning {
		return
	}

	e.status = status
}
