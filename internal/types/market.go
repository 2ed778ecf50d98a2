package types

import (
	"math"
	"time"

	"github.com/rxtech-lab/argo-scalper/pkg/errors"
)

// PriceBar represents a single OHLC candlestick for one instrument.
// Bar series are ordered oldest-first and immutable once received.
type PriceBar struct {
	Time   time.Time `yaml:"time" json:"time" csv:"time"`
	Open   float64   `yaml:"open" json:"open" csv:"open"`
	High   float64   `yaml:"high" json:"high" csv:"high"`
	Low    float64   `yaml:"low" json:"low" csv:"low"`
	Close  float64   `yaml:"close" json:"close" csv:"close"`
	Volume float64   `yaml:"volume" json:"volume" csv:"volume"`
}

// Validate checks the OHLC invariants for a single bar:
// all prices positive and finite, low <= min(open, close), high >= max(open, close).
func (b *PriceBar) Validate() error {
	for _, p := range []float64{b.Open, b.High, b.Low, b.Close} {
		if math.IsNaN(p) || math.IsInf(p, 0) {
			return errors.New(errors.ErrCodeInvalidBar, "bar contains non-finite price")
		}

		if p <= 0 {
			return errors.Newf(errors.ErrCodeInvalidBar, "bar contains non-positive price %v", p)
		}
	}

	if b.High < math.Max(b.Open, b.Close) {
		return errors.Newf(errors.ErrCodeInvalidBar, "bar high %v below max(open, close)", b.High)
	}

	if b.Low > math.Min(b.Open, b.Close) {
		return errors.Newf(errors.ErrCodeInvalidBar, "bar low %v above min(open, close)", b.Low)
	}

	return nil
}

// ValidateSeries checks a bar series for use in signal generation: non-empty,
// at least minLen bars, and every bar passing its own OHLC invariants.
func ValidateSeries(bars []PriceBar, minLen int) error {
	if len(bars) == 0 {
		return errors.New(errors.ErrCodeDataValidation, "empty bar series")
	}

	if len(bars) < minLen {
		return errors.NewInsufficientDataErrorf(minLen, len(bars), "",
			"bar series too short: need %d bars, got %d", minLen, len(bars))
	}

	for i := range bars {
		if err := bars[i].Validate(); err != nil {
			return errors.Wrapf(errors.ErrCodeDataValidation, err, "invalid bar at index %d", i)
		}
	}

	return nil
}

// Closes extracts the close price series from a bar series.
func Closes(bars []PriceBar) []float64 {
	closes := make([]float64, len(bars))
	for i := range bars {
		closes[i] = bars[i].Close
	}

	return closes
}

// Tick represents the current bid/ask quote for an instrument.
type Tick struct {
	Symbol string    `yaml:"symbol" json:"symbol"`
	Bid    float64   `yaml:"bid" json:"bid"`
	Ask    float64   `yaml:"ask" json:"ask"`
	Time   time.Time `yaml:"time" json:"time"`
}

// Mid returns the midpoint between bid and ask.
func (t Tick) Mid() float64 {
	return (t.Bid + t.Ask) / 2
}

// Spread returns the bid/ask spread.
func (t Tick) Spread() float64 {
	return t.Ask - t.Bid
}
