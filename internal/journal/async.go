package journal

import (
	"sync"

	"github.com/rxtech-lab/argo-scalper/internal/logger"
	"github.com/rxtech-lab/argo-scalper/internal/types"
	"go.uber.org/zap"
)

const defaultQueueSize = 256

// AsyncRecorder decouples trade recording from the trading cycle. Records are
// queued and written by a background goroutine; when the queue is full the
// record is dropped with a warning rather than blocking order flow.
type AsyncRecorder struct {
	inner  Recorder
	queue  chan types.TradeRecord
	logger *logger.Logger

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

// NewAsyncRecorder wraps inner with a buffered asynchronous writer.
func NewAsyncRecorder(inner Recorder, log *logger.Logger) *AsyncRecorder {
	a := &AsyncRecorder{
		inner:  inner,
		queue:  make(chan types.TradeRecord, defaultQueueSize),
		logger: log,
	}

	a.wg.Add(1)
	go a.drain()

	return a
}

func (a *AsyncRecorder) drain() {
	defer a.wg.Done()

	for trade := range a.queue {
		if err := a.inner.Record(trade); err != nil {
			a.logger.Error("Failed to record trade",
				zap.String("id", trade.ID),
				zap.String("symbol", trade.Symbol),
				zap.Error(err),
			)
		}
	}
}

// Record enqueues the trade for background persistence. Never blocks: a full
// queue drops the record with a warning.
func (a *AsyncRecorder) Record(trade types.TradeRecord) error {
	a.mu.RLock()
	defer a.mu.RUnlock()

	if a.closed {
		return nil
	}

	select {
	case a.queue <- trade:
	default:
		a.logger.Warn("Trade journal queue full, dropping record",
			zap.String("id", trade.ID),
			zap.String("symbol", trade.Symbol),
		)
	}

	return nil
}

// Close flushes queued records and closes the underlying recorder.
func (a *AsyncRecorder) Close() error {
	a.mu.Lock()

	if a.closed {
		a.mu.Unlock()

		return nil
	}

	a.closed = true
	close(a.queue)
	a.mu.Unlock()

	a.wg.Wait()

	return a.inner.Close()
}

// Ensure AsyncRecorder implements Recorder.
var _ Recorder = (*AsyncRecorder)(nil)
