package strategy

import (
	"sort"
	"sync"
	"time"

	"github.com/rxtech-lab/argo-scalper/internal/types"
)

// Stats accumulates cumulative signal statistics across evaluations.
// It is the only mutable state the generator owns.
type Stats struct {
	mu             sync.Mutex
	total          int
	buys           int
	sells          int
	holds          int
	invalid        int
	confidenceSum  float64
	symbols        map[string]struct{}
	lastSignalTime time.Time
}

// NewStats creates an empty statistics accumulator.
func NewStats() *Stats {
	return &Stats{
		symbols: make(map[string]struct{}),
	}
}

// Record folds one generated signal into the running statistics.
func (s *Stats) Record(signal types.Signal) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.total++
	s.confidenceSum += signal.Confidence
	s.symbols[signal.Symbol] = struct{}{}
	s.lastSignalTime = signal.Time

	switch signal.Action {
	case types.SignalActionBuy:
		s.buys++
	case types.SignalActionSell:
		s.sells++
	case types.SignalActionHold:
		s.holds++
	case types.SignalActionInvalidData, types.SignalActionError:
		s.invalid++
	}
}

// Snapshot returns an immutable copy of the current statistics.
func (s *Stats) Snapshot() types.SignalStats {
	s.mu.Lock()
	defer s.mu.Unlock()

	symbols := make([]string, 0, len(s.symbols))
	for symbol := range s.symbols {
		symbols = append(symbols, symbol)
	}

	sort.Strings(symbols)

	mean := 0.0
	if s.total > 0 {
		mean = s.confidenceSum / float64(s.total)
	}

	return types.SignalStats{
		Total:          s.total,
		Buys:           s.buys,
		Sells:          s.sells,
		Holds:          s.holds,
		Invalid:        s.invalid,
		MeanConfidence: mean,
		Symbols:        symbols,
		LastSignalTime: s.lastSignalTime,
	}
}
