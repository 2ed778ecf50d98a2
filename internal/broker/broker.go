// Package broker defines the market-data and order-execution contracts the
// engine trades through, plus the rejection taxonomy shared by all
// implementations.
package broker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-scalper/internal/types"
)

// MarketDataSource supplies price history, live quotes, and instrument
// contract metadata.
type MarketDataSource interface {
	// Bars returns up to limit most recent closed bars for the symbol at the
	// given interval, oldest first.
	Bars(ctx context.Context, symbol string, interval string, limit int) ([]types.PriceBar, error)
	// LatestTick returns the most recent quote for the symbol.
	LatestTick(ctx context.Context, symbol string) (types.Tick, error)
	// Instrument returns contract metadata for the symbol.
	Instrument(ctx context.Context, symbol string) (types.InstrumentMeta, error)
}

// Gateway executes orders and reports account and position state.
type Gateway interface {
	// SubmitOrder submits a market order. A broker-side rejection is returned
	// as a *RejectionError; transport failures as ordinary errors.
	SubmitOrder(ctx context.Context, req OrderRequest) (OrderResult, error)
	// ClosePosition closes the position identified by ticket at market.
	ClosePosition(ctx context.Context, ticket string) error
	// OpenPositions returns all currently open positions.
	OpenPositions(ctx context.Context) ([]types.Position, error)
	// Account returns the current account snapshot.
	Account(ctx context.Context) (types.AccountSnapshot, error)
	// CheckConnection verifies the broker is reachable and authenticated.
	CheckConnection(ctx context.Context) error
}

// OrderRequest is a market order to be submitted to a Gateway.
type OrderRequest struct {
	// ClientID is a caller-generated idempotency key for the order.
	ClientID   string
	Symbol     string
	Side       types.PositionSide
	Volume     float64
	StopLoss   optional.Option[float64]
	TakeProfit optional.Option[float64]
	Confidence float64
}

// NewOrderRequest builds an OrderRequest with a fresh ClientID.
func NewOrderRequest(symbol string, side types.PositionSide, volume float64) OrderRequest {
	return OrderRequest{
		ClientID:   uuid.NewString(),
		Symbol:     symbol,
		Side:       side,
		Volume:     volume,
		StopLoss:   optional.None[float64](),
		TakeProfit: optional.None[float64](),
		Confidence: 0,
	}
}

// OrderResult describes a filled order.
type OrderResult struct {
	Ticket         string
	ExecutedPrice  float64
	ExecutedVolume float64
	ExecutedAt     time.Time
}

// RejectionReason classifies why a broker refused an order.
type RejectionReason string

const (
	RejectionInvalidStops      RejectionReason = "invalid_stops"
	RejectionInsufficientFunds RejectionReason = "insufficient_funds"
	RejectionTradingDisabled   RejectionReason = "trading_disabled"
	RejectionUnknown           RejectionReason = "unknown"
)

// RejectionError is returned by a Gateway when the broker accepted the
// request but refused to fill it. It is distinct from transport errors, which
// may be retried as-is.
type RejectionError struct {
	Reason  RejectionReason
	Message string
}

func (e *RejectionError) Error() string {
	return fmt.Sprintf("order rejected (%s): %s", e.Reason, e.Message)
}

// NewRejection creates a RejectionError with the given reason and message.
func NewRejection(reason RejectionReason, message string) *RejectionError {
	return &RejectionError{Reason: reason, Message: message}
}

// AsRejection returns the RejectionError wrapped in err, or nil if err is not
// a rejection.
func AsRejection(err error) *RejectionError {
	var rej *RejectionError
	if errors.As(err, &rej) {
		return rej
	}

	return nil
}

// IsTransient reports whether err is worth retrying with the same request.
// Rejections are never transient: the broker evaluated the order and said no.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	return AsRejection(err) == nil
}
