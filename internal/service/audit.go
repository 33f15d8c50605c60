// internal/service/audit.go
package service

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"currency-conversion/internal/models"
	"currency-conversion/pkg/metrics"
)

type AuditStore interface {
	Save(ctx context.Context, record *models.ConversionAuditRecord) error
}

// AuditWriter persists audit records in the background. Record never blocks:
// when the buffer is full the record is dropped and counted.
type AuditWriter struct {
	store        AuditStore
	records      chan *models.ConversionAuditRecord
	done         chan struct{}
	writeTimeout time.Duration
	metrics      *metrics.Metrics
	logger       *zap.Logger

	mu     sync.RWMutex
	closed bool
}

func NewAuditWriter(store AuditStore, bufferSize int, m *metrics.Metrics, logger *zap.Logger) *AuditWriter {
	if bufferSize <= 0 {
		bufferSize = 1024
	}

	w := &AuditWriter{
		store:        store,
		records:      make(chan *models.ConversionAuditRecord, bufferSize),
		done:         make(chan struct{}),
		writeTimeout: 5 * time.Second,
		metrics:      m,
		logger:       logger,
	}
	go w.run()

	return w
}

func (w *AuditWriter) Record(record *models.ConversionAuditRecord) {
	w.mu.RLock()
	defer w.mu.RUnlock()

	if w.closed {
		w.drop(record, "writer closed")
		return
	}

	select {
	case w.records <- record:
	default:
		w.drop(record, "buffer full")
	}
}

// Close stops accepting records and waits for the buffer to drain or ctx to end.
func (w *AuditWriter) Close(ctx context.Context) error {
	w.mu.Lock()
	if !w.closed {
		w.closed = true
		close(w.records)
	}
	w.mu.Unlock()

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (w *AuditWriter) run() {
	defer close(w.done)

	for record := range w.records {
		ctx, cancel := context.WithTimeout(context.Background(), w.writeTimeout)
		err := w.store.Save(ctx, record)
		cancel()

		w.metrics.AuditWritten(err)
		if err != nil {
			w.logger.Error("failed to save conversion audit record",
				zap.String("conversion_id", record.ConversionID),
				zap.Error(err))
		}
	}
}

func (w *AuditWriter) drop(record *models.ConversionAuditRecord, reason string) {
	w.metrics.AuditDropped()
	w.logger.Warn("dropped conversion audit record",
		zap.String("conversion_id", record.ConversionID),
		zap.String("reason", reason))
}
