// Package indicator implements the numeric transforms used by the signal
// generator: EMA, RSI and ATR over OHLC bar series.
//
// All functions are pure: they take a series, return a derived series of the
// same length aligned index-for-index with the input, and keep no state between
// calls. Entries inside the warm-up window are NaN; callers must check with
// math.IsNaN (or Defined) before using a value.
package indicator

import (
	"math"

	"github.com/rxtech-lab/argo-scalper/pkg/errors"
)

// Defined reports whether an indicator value is outside its warm-up window.
func Defined(v float64) bool {
	return !math.IsNaN(v)
}

// LastDefined returns the last non-NaN value of a derived series.
// ok is false when every entry is undefined.
func LastDefined(series []float64) (v float64, ok bool) {
	for i := len(series) - 1; i >= 0; i-- {
		if Defined(series[i]) {
			return series[i], true
		}
	}

	return 0, false
}

// undefinedSeries builds an all-NaN output slice of length n.
func undefinedSeries(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}

	return out
}

// checkDefined returns ErrCodeAllValuesUndefined when a computed output has no
// defined entries at all. That signals a deeper data problem, not mere warm-up.
func checkDefined(series []float64) ([]float64, error) {
	if _, ok := LastDefined(series); !ok {
		return nil, errors.New(errors.ErrCodeAllValuesUndefined, "indicator output has no defined values")
	}

	return series, nil
}
