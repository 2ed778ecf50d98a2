package indicator

import (
	"github.com/rxtech-lab/argo-scalper/pkg/errors"
)

// RSI calculates the Relative Strength Index series over the input values.
//
// Each defined entry is computed from the mean positive delta and mean negative
// delta over a trailing window of period deltas. When the mean loss is zero the
// RSI is defined as 100 (perfect uptrend), avoiding a divide by zero. The first
// period entries are NaN since an entry at index i needs the period deltas
// ending at i.
func RSI(values []float64, period int) ([]float64, error) {
	if period <= 0 {
		return nil, errors.Newf(errors.ErrCodeInvalidPeriod, "period must be a positive integer, got %d", period)
	}

	if len(values) < period+1 {
		return nil, errors.NewInsufficientDataErrorf(period+1, len(values), "",
			"RSI requires at least %d values, got %d", period+1, len(values))
	}

	gains := make([]float64, len(values))
	losses := make([]float64, len(values))

	for i := 1; i < len(values); i++ {
		change := values[i] - values[i-1]
		if change > 0 {
			gains[i] = change
		} else {
			losses[i] = -change
		}
	}

	out := undefinedSeries(len(values))

	for i := period; i < len(values); i++ {
		avgGain := 0.0
		avgLoss := 0.0

		for j := i - period + 1; j <= i; j++ {
			avgGain += gains[j]
			avgLoss += losses[j]
		}

		avgGain /= float64(period)
		avgLoss /= float64(period)

		if avgLoss == 0 {
			out[i] = 100

			continue
		}

		rs := avgGain / avgLoss
		out[i] = 100 - (100 / (1 + rs))
	}

	return checkDefined(out)
}
