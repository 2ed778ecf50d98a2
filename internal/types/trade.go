package types

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rxtech-lab/argo-scalper/pkg/errors"
)

// TradeStatus is the outcome of an order submission attempt.
type TradeStatus string

const (
	TradeStatusFilled   TradeStatus = "FILLED"
	TradeStatusRejected TradeStatus = "REJECTED"
	TradeStatusFailed   TradeStatus = "FAILED"
)

// TradeRecord is the bookkeeping record of one execution attempt,
// handed to the trade recorder after the broker responds.
type TradeRecord struct {
	ID         string       `yaml:"id" json:"id" csv:"id" validate:"required,uuid"`
	Ticket     string       `yaml:"ticket" json:"ticket" csv:"ticket"`
	Symbol     string       `yaml:"symbol" json:"symbol" csv:"symbol" validate:"required"`
	Side       PositionSide `yaml:"side" json:"side" csv:"side" validate:"required,oneof=BUY SELL"`
	Volume     float64      `yaml:"volume" json:"volume" csv:"volume" validate:"required,gt=0"`
	EntryPrice float64      `yaml:"entry_price" json:"entry_price" csv:"entry_price" validate:"gte=0"`
	StopLoss   float64      `yaml:"stop_loss" json:"stop_loss" csv:"stop_loss" validate:"gte=0"`
	TakeProfit float64      `yaml:"take_profit" json:"take_profit" csv:"take_profit" validate:"gte=0"`
	Confidence float64      `yaml:"confidence" json:"confidence" csv:"confidence" validate:"gte=0,lte=100"`
	ExecutedAt time.Time    `yaml:"executed_at" json:"executed_at" csv:"executed_at" validate:"required"`
	Status     TradeStatus  `yaml:"status" json:"status" csv:"status" validate:"required,oneof=FILLED REJECTED FAILED"`
	// Reason records why the attempt ended the way it did, e.g. "strategy_signal"
	// for fills or the broker rejection reason.
	Reason string `yaml:"reason" json:"reason" csv:"reason"`
}

// Validate validates the TradeRecord struct.
func (t *TradeRecord) Validate() error {
	validate := validator.New()
	if err := validate.Struct(t); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidParameter, "invalid trade record", err)
	}

	return nil
}
