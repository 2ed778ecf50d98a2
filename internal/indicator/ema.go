package indicator

import (
	"github.com/rxtech-lab/argo-scalper/pkg/errors"
)

// EMA calculates an Exponential Moving Average series over the input values.
//
// The output has the same length as the input. The first period-1 entries are
// NaN; the value at index period-1 is seeded with the SMA of the first period
// inputs, and later values use the recursive form with alpha = 2/(period+1)
// (matching pandas ewm with adjust=False).
func EMA(values []float64, period int) ([]float64, error) {
	if period <= 0 {
		return nil, errors.Newf(errors.ErrCodeInvalidPeriod, "period must be a positive integer, got %d", period)
	}

	if len(values) < period {
		return nil, errors.NewInsufficientDataErrorf(period, len(values), "",
			"EMA requires at least %d values, got %d", period, len(values))
	}

	out := undefinedSeries(len(values))

	// Seed with SMA of the first period values
	sma := 0.0
	for i := 0; i < period; i++ {
		sma += values[i]
	}

	sma /= float64(period)
	out[period-1] = sma

	alpha := 2.0 / float64(period+1)

	ema := sma
	for i := period; i < len(values); i++ {
		ema = (values[i] * alpha) + (ema * (1 - alpha))
		out[i] = ema
	}

	return checkDefined(out)
}
