// Package sizing converts a risk budget and a stop distance into a lot size
// under instrument contract constraints.
package sizing

import (
	"math"

	"github.com/rxtech-lab/argo-scalper/internal/config"
	"github.com/rxtech-lab/argo-scalper/internal/types"
	"github.com/shopspring/decimal"
)

// Sizer computes position sizes from the configured risk fraction.
type Sizer struct {
	cfg config.RiskConfig
}

// NewSizer creates a Sizer from risk configuration.
func NewSizer(cfg config.RiskConfig) *Sizer {
	return &Sizer{cfg: cfg}
}

// Size returns the lot size for a trade risking the configured fraction of
// balance over the given stop distance (in price terms).
//
// A non-positive stop distance or incomplete instrument metadata falls back to
// the minimum lot: a sizing ambiguity never fails the trade, which remains
// risk-capped by the gate's other checks.
func (s *Sizer) Size(balance float64, meta types.InstrumentMeta, stopDistance float64) float64 {
	return Lots(balance, s.cfg.RiskPerTrade, stopDistance, meta, s.cfg.MinLotSize, s.cfg.MaxLotSize)
}

// Lots is the pure sizing calculation:
//
//	riskAmount = balance * riskFraction
//	rawLots    = riskAmount / (stopDistance * contractSize / pipValue)
//
// rounded to the nearest lot step and clamped to the tighter of the instrument
// and configured bounds.
func Lots(balance, riskFraction, stopDistance float64, meta types.InstrumentMeta, minLot, maxLot float64) float64 {
	lo := math.Max(meta.MinLot, minLot)
	hi := math.Min(meta.MaxLot, maxLot)

	if hi <= 0 {
		hi = lo
	}

	if stopDistance <= 0 || !meta.Complete() {
		return lo
	}

	riskAmount := balance * riskFraction
	perLotRisk := stopDistance * meta.ContractSize / meta.PipValue

	rawLots := riskAmount / perLotRisk

	lots := roundToStep(rawLots, meta.LotStep)

	if lots < lo {
		return lo
	}

	if lots > hi {
		return hi
	}

	return lots
}

// roundToStep rounds lots to the nearest multiple of step using decimal
// arithmetic, so float drift cannot produce an off-step size.
func roundToStep(lots, step float64) float64 {
	d := decimal.NewFromFloat(lots)
	s := decimal.NewFromFloat(step)

	steps := d.Div(s).Round(0)

	result, _ := steps.Mul(s).Float64()

	return result
}
