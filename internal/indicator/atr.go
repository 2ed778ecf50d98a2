package indicator

import (
	"math"

	"github.com/rxtech-lab/argo-scalper/internal/types"
	"github.com/rxtech-lab/argo-scalper/pkg/errors"
)

// ATR calculates the Average True Range series over the input bars.
//
// The true range of a bar is max(high-low, |high-prevClose|, |low-prevClose|);
// each defined output entry is the trailing mean of the last period true
// ranges. True range needs a previous close, so the first period entries are
// NaN and at least period+1 bars are required.
func ATR(bars []types.PriceBar, period int) ([]float64, error) {
	if period <= 0 {
		return nil, errors.Newf(errors.ErrCodeInvalidPeriod, "period must be a positive integer, got %d", period)
	}

	if len(bars) < period+1 {
		return nil, errors.NewInsufficientDataErrorf(period+1, len(bars), "",
			"ATR requires at least %d bars, got %d", period+1, len(bars))
	}

	// trueRanges[i] is the true range of bar i; index 0 has no previous close.
	trueRanges := make([]float64, len(bars))
	for i := 1; i < len(bars); i++ {
		trueRanges[i] = trueRange(bars[i], bars[i-1])
	}

	out := undefinedSeries(len(bars))

	for i := period; i < len(bars); i++ {
		sum := 0.0
		for j := i - period + 1; j <= i; j++ {
			sum += trueRanges[j]
		}

		out[i] = sum / float64(period)
	}

	return checkDefined(out)
}

// trueRange calculates the true range of a bar given the previous bar.
func trueRange(current, previous types.PriceBar) float64 {
	return math.Max(
		current.High-current.Low,
		math.Max(
			math.Abs(current.High-previous.Close),
			math.Abs(current.Low-previous.Close),
		),
	)
}
