package audit

import (
	"context"
	"sync"
	"time"

	"github.com/avvvet/officebuddy/internal/metrics"
	"github.com/rs/zerolog"
)

const writeTimeout = 5 * time.Second

// Writer is a write-behind queue in front of a Sink. Enqueue never blocks;
// records are dropped when the buffer is full.
type Writer struct {
	sink   Sink
	queue  chan *Record
	logger zerolog.Logger

	wg        sync.WaitGroup
	closeOnce sync.Once
	mu        sync.RWMutex
	closed    bool
}

func NewWriter(sink Sink, buffer int, logger zerolog.Logger) *Writer {
	if buffer <= 0 {
		buffer = 256
	}
	w := &Writer{
		sink:   sink,
		queue:  make(chan *Record, buffer),
		logger: logger.With().Str("component", "audit").Logger(),
	}
	w.wg.Add(1)
	go w.run()
	return w
}

// Enqueue hands a record to the background writer. It reports false when
// the record was dropped.
func (w *Writer) Enqueue(rec *Record) bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.closed {
		metrics.AuditDropped.Inc()
		return false
	}
	select {
	case w.queue <- rec:
		return true
	default:
		metrics.AuditDropped.Inc()
		w.logger.Warn().Str("session", rec.SessionID).Msg("⚠️ audit buffer full, record dropped")
		return false
	}
}

func (w *Writer) run() {
	defer w.wg.Done()
	for rec := range w.queue {
		ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
		if err := w.sink.Write(ctx, rec); err != nil {
			metrics.AuditDropped.Inc()
			w.logger.Warn().Err(err).Str("session", rec.SessionID).Msg("⚠️ audit write failed")
		}
		cancel()
	}
}

// Close stops accepting records and waits for the queue to drain
func (w *Writer) Close() {
	w.closeOnce.Do(func() {
		w.mu.Lock()
		w.closed = true
		close(w.queue)
		w.mu.Unlock()
	})
	w.wg.Wait()
}
