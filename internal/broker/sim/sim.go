// Package sim provides an in-memory broker backed by a seeded random walk.
// It implements both broker contracts and is used for demo runs and tests,
// where determinism matters more than realism.
package sim

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/rxtech-lab/argo-scalper/internal/broker"
	"github.com/rxtech-lab/argo-scalper/internal/types"
	"github.com/rxtech-lab/argo-scalper/pkg/errors"
)

const (
	defaultBasePrice = 1.1000
	defaultLeverage  = 100.0

	// walkVolatility is the per-bar log-return scale of the price walk.
	walkVolatility = 0.0008

	// spreadFraction is the bid/ask spread as a fraction of price.
	spreadFraction = 0.0001
)

// Broker is a deterministic simulated broker. All methods are safe for
// concurrent use.
type Broker struct {
	mu sync.Mutex

	rng     *rand.Rand
	now     func() time.Time
	balance float64

	history   map[string][]types.PriceBar
	positions map[string]types.Position

	nextTicket int
	disabled   bool
}

// NewBroker creates a simulated broker seeded with the given value. The same
// seed and call sequence always produce the same prices and fills.
func NewBroker(seed int64, startBalance float64) *Broker {
	return &Broker{
		rng:        rand.New(rand.NewSource(seed)),
		now:        time.Now,
		balance:    startBalance,
		history:    make(map[string][]types.PriceBar),
		positions:  make(map[string]types.Position),
		nextTicket: 1,
		disabled:   false,
	}
}

// SetDisabled toggles order acceptance. New orders are rejected while
// disabled; existing positions can still be closed.
func (b *Broker) SetDisabled(disabled bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.disabled = disabled
}

// Bars returns the most recent limit bars for the symbol, extending the
// simulated walk by one bar per call once warmed up.
func (b *Broker) Bars(_ context.Context, symbol string, interval string, limit int) ([]types.PriceBar, error) {
	if limit <= 0 {
		return nil, errors.Newf(errors.ErrCodeInvalidParameter, "bar limit must be positive, got %d", limit)
	}

	step, err := time.ParseDuration(interval)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrCodeInvalidParameter, err, "invalid interval %q", interval)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	bars := b.history[symbol]

	if len(bars) < limit {
		bars = b.extendLocked(symbol, bars, step, limit-len(bars))
	} else {
		// Warmed up: the market moves one bar per poll.
		bars = b.extendLocked(symbol, bars, step, 1)
	}

	b.history[symbol] = bars

	out := make([]types.PriceBar, limit)
	copy(out, bars[len(bars)-limit:])

	return out, nil
}

// extendLocked appends n walk bars to the symbol's history.
func (b *Broker) extendLocked(symbol string, bars []types.PriceBar, step time.Duration, n int) []types.PriceBar {
	price := defaultBasePrice

	barTime := b.now().Truncate(step)
	if len(bars) > 0 {
		price = bars[len(bars)-1].Close
		barTime = bars[len(bars)-1].Time
	} else {
		barTime = barTime.Add(-time.Duration(n) * step)
	}

	for i := 0; i < n; i++ {
		open := price
		price = open * (1 + walkVolatility*b.rng.NormFloat64())

		high := open
		if price > high {
			high = price
		}

		low := open
		if price < low {
			low = price
		}

		wick := open * walkVolatility * 0.5

		barTime = barTime.Add(step)
		bars = append(bars, types.PriceBar{
			Time:   barTime,
			Open:   open,
			High:   high + wick,
			Low:    low - wick,
			Close:  price,
			Volume: 1000 + float64(b.rng.Intn(9000)),
		})
	}

	return bars
}

// LatestTick returns a quote around the last simulated close.
func (b *Broker) LatestTick(_ context.Context, symbol string) (types.Tick, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	price, err := b.lastPriceLocked(symbol)
	if err != nil {
		return types.Tick{}, err
	}

	half := price * spreadFraction / 2

	return types.Tick{
		Symbol: symbol,
		Bid:    price - half,
		Ask:    price + half,
		Time:   b.now(),
	}, nil
}

// Instrument returns fixed FX-style contract metadata.
func (b *Broker) Instrument(_ context.Context, symbol string) (types.InstrumentMeta, error) {
	return types.InstrumentMeta{
		Symbol:          symbol,
		ContractSize:    100000,
		PipValue:        10,
		MinLot:          0.01,
		MaxLot:          100,
		LotStep:         0.01,
		MinStopDistance: 0.0001,
	}, nil
}

// SubmitOrder fills a market order at the simulated price, applying the same
// rejection taxonomy a live broker would.
func (b *Broker) SubmitOrder(_ context.Context, req broker.OrderRequest) (broker.OrderResult, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.disabled {
		return broker.OrderResult{}, broker.NewRejection(broker.RejectionTradingDisabled, "trading is disabled on this account")
	}

	if req.Volume <= 0 {
		return broker.OrderResult{}, broker.NewRejection(broker.RejectionUnknown,
			fmt.Sprintf("volume must be positive, got %v", req.Volume))
	}

	price, err := b.lastPriceLocked(req.Symbol)
	if err != nil {
		return broker.OrderResult{}, err
	}

	half := price * spreadFraction / 2

	var fill float64

	switch req.Side {
	case types.PositionSideBuy:
		fill = price + half
	case types.PositionSideSell:
		fill = price - half
	default:
		return broker.OrderResult{}, errors.Newf(errors.ErrCodeInvalidOrder, "unsupported order side: %s", req.Side)
	}

	if err := validateStops(req, fill); err != nil {
		return broker.OrderResult{}, err
	}

	required := req.Volume * 100000 * fill / defaultLeverage
	if required > b.freeMarginLocked() {
		return broker.OrderResult{}, broker.NewRejection(broker.RejectionInsufficientFunds,
			fmt.Sprintf("required margin %.2f exceeds free margin", required))
	}

	ticket := fmt.Sprintf("SIM-%06d", b.nextTicket)
	b.nextTicket++

	b.positions[ticket] = types.Position{
		Ticket:     ticket,
		Symbol:     req.Symbol,
		Side:       req.Side,
		Volume:     req.Volume,
		EntryPrice: fill,
		EntryTime:  b.now(),
		StopLoss:   req.StopLoss.TakeOr(0),
		TakeProfit: req.TakeProfit.TakeOr(0),
		Confidence: req.Confidence,
	}

	return broker.OrderResult{
		Ticket:         ticket,
		ExecutedPrice:  fill,
		ExecutedVolume: req.Volume,
		ExecutedAt:     b.now(),
	}, nil
}

// validateStops rejects stops on the wrong side of the fill price.
func validateStops(req broker.OrderRequest, fill float64) error {
	sl := req.StopLoss
	tp := req.TakeProfit

	switch req.Side {
	case types.PositionSideBuy:
		if sl.IsSome() && sl.TakeOr(0) >= fill {
			return broker.NewRejection(broker.RejectionInvalidStops,
				fmt.Sprintf("buy stop loss %.5f must be below fill price %.5f", sl.TakeOr(0), fill))
		}

		if tp.IsSome() && tp.TakeOr(0) <= fill {
			return broker.NewRejection(broker.RejectionInvalidStops,
				fmt.Sprintf("buy take profit %.5f must be above fill price %.5f", tp.TakeOr(0), fill))
		}
	case types.PositionSideSell:
		if sl.IsSome() && sl.TakeOr(0) <= fill {
			return broker.NewRejection(broker.RejectionInvalidStops,
				fmt.Sprintf("sell stop loss %.5f must be above fill price %.5f", sl.TakeOr(0), fill))
		}

		if tp.IsSome() && tp.TakeOr(0) >= fill {
			return broker.NewRejection(broker.RejectionInvalidStops,
				fmt.Sprintf("sell take profit %.5f must be below fill price %.5f", tp.TakeOr(0), fill))
		}
	}

	return nil
}

// ClosePosition closes the position at the current simulated price and
// realizes its profit or loss into the balance.
func (b *Broker) ClosePosition(_ context.Context, ticket string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	pos, ok := b.positions[ticket]
	if !ok {
		return errors.Newf(errors.ErrCodePositionNotFound, "position not found: %s", ticket)
	}

	price, err := b.lastPriceLocked(pos.Symbol)
	if err != nil {
		return err
	}

	b.balance += positionPnL(pos, price)
	delete(b.positions, ticket)

	return nil
}

// OpenPositions returns all open positions.
func (b *Broker) OpenPositions(_ context.Context) ([]types.Position, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]types.Position, 0, len(b.positions))
	for _, pos := range b.positions {
		out = append(out, pos)
	}

	return out, nil
}

// Account returns the current simulated account state.
func (b *Broker) Account(_ context.Context) (types.AccountSnapshot, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	equity := b.balance

	var margin float64

	for _, pos := range b.positions {
		price, err := b.lastPriceLocked(pos.Symbol)
		if err != nil {
			continue
		}

		equity += positionPnL(pos, price)
		margin += pos.Volume * 100000 * pos.EntryPrice / defaultLeverage
	}

	var marginLevel float64
	if margin > 0 {
		marginLevel = equity / margin * 100
	}

	return types.AccountSnapshot{
		Balance:     b.balance,
		Equity:      equity,
		Margin:      margin,
		MarginLevel: marginLevel,
	}, nil
}

// CheckConnection always succeeds for the simulator.
func (b *Broker) CheckConnection(_ context.Context) error {
	return nil
}

func (b *Broker) lastPriceLocked(symbol string) (float64, error) {
	bars := b.history[symbol]
	if len(bars) == 0 {
		return 0, errors.Newf(errors.ErrCodeMarketDataUnavail, "no simulated prices for %s, fetch bars first", symbol)
	}

	return bars[len(bars)-1].Close, nil
}

func (b *Broker) freeMarginLocked() float64 {
	free := b.balance

	for _, pos := range b.positions {
		free -= pos.Volume * 100000 * pos.EntryPrice / defaultLeverage
	}

	return free
}

func positionPnL(pos types.Position, price float64) float64 {
	diff := price - pos.EntryPrice
	if pos.Side == types.PositionSideSell {
		diff = -diff
	}

	return diff * pos.Volume * 100000
}

// Ensure Broker implements both broker contracts.
var (
	_ broker.MarketDataSource = (*Broker)(nil)
	_ broker.Gateway          = (*Broker)(nil)
)
