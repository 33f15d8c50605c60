// internal/notifier/notifier.go

// Package notifier applies pushed rate updates to the shared rate store.
package notifier

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"currency-conversion/internal/currency"
	"currency-conversion/internal/models"
)

// RateUpdate is the message published on the rate updates topic.
type RateUpdate struct {
	Base      string          `json:"base"`
	Quote     string          `json:"quote"`
	Rate      decimal.Decimal `json:"rate"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// MessageReader is the subset of *kafka.Reader the notifier uses.
type MessageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// RateWriter only needs Put; the notifier never reads or deletes rates.
type RateWriter interface {
	Put(ctx context.Context, rate *models.ExchangeRate) error
}

type Config struct {
	Brokers []string
	Topic   string
	GroupID string
}

func NewKafkaReader(cfg Config) *kafka.Reader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:        cfg.Brokers,
		Topic:          cfg.Topic,
		GroupID:        cfg.GroupID,
		MinBytes:       1,
		MaxBytes:       1e6,
		CommitInterval: 0,
	})
}

// Delays between attempts to store an update the rate store rejected.
const (
	DefaultRetryBackoff = 500 * time.Millisecond
	DefaultMaxBackoff   = 30 * time.Second
)

type RateNotifier struct {
	reader       MessageReader
	store        RateWriter
	registry     *currency.Registry
	logger       *zap.Logger
	now          func() time.Time
	retryBackoff time.Duration
	maxBackoff   time.Duration
}

func NewRateNotifier(reader MessageReader, store RateWriter, registry *currency.Registry, logger *zap.Logger) *RateNotifier {
	return &RateNotifier{
		reader:   reader,
		store:    store,
		registry: registry,
		logger:   logger,
		now:      time.Now,

		retryBackoff: DefaultRetryBackoff,
		maxBackoff:   DefaultMaxBackoff,
	}
}

// Run consumes updates until ctx is cancelled. Offsets are committed after the
// rate is stored, or immediately for messages that can never be applied. A store
// failure blocks the partition and retries the same update, since committing a
// later offset would also commit past the failed one.
func (n *RateNotifier) Run(ctx context.Context) error {
	n.logger.Info("rate notifier started")

	for {
		msg, err := n.reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, io.EOF) || ctx.Err() != nil {
				n.logger.Info("rate notifier stopped")
				return nil
			}
			n.logger.Error("failed to fetch rate update", zap.Error(err))
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(time.Second):
			}
			continue
		}

		if err := n.apply(ctx, msg); err != nil {
			if !errors.Is(err, errInvalidUpdate) {
				// only cancellation ends the retry loop; the offset stays uncommitted
				n.logger.Info("rate notifier stopped",
					zap.Int64("pending_offset", msg.Offset))
				return nil
			}
			n.logger.Warn("skipping invalid rate update",
				zap.Int64("offset", msg.Offset),
				zap.Error(err))
		}

		if err := n.reader.CommitMessages(ctx, msg); err != nil {
			n.logger.Warn("failed to commit rate update offset", zap.Error(err))
		}
	}
}

var errInvalidUpdate = errors.New("invalid rate update")

func (n *RateNotifier) apply(ctx context.Context, msg kafka.Message) error {
	rate, err := n.parse(msg.Value)
	if err != nil {
		return err
	}

	if err := n.storeWithRetry(ctx, msg.Offset, rate); err != nil {
		return err
	}

	n.logger.Debug("applied pushed rate update",
		zap.String("base", rate.Base.String()),
		zap.String("quote", rate.Quote.String()),
		zap.String("rate", rate.Rate.String()))
	return nil
}

// storeWithRetry writes rate, retrying with exponential backoff until it succeeds or ctx ends.
func (n *RateNotifier) storeWithRetry(ctx context.Context, offset int64, rate *models.ExchangeRate) error {
	backoff := n.retryBackoff
	for attempt := 1; ; attempt++ {
		err := n.store.Put(ctx, rate)
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		n.logger.Error("failed to store rate update, retrying",
			zap.Int64("offset", offset),
			zap.Int("attempt", attempt),
			zap.Duration("backoff", backoff),
			zap.Error(err))

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}

		backoff *= 2
		if backoff > n.maxBackoff {
			backoff = n.maxBackoff
		}
	}
}

func (n *RateNotifier) parse(payload []byte) (*models.ExchangeRate, error) {
	var update RateUpdate
	if err := json.Unmarshal(payload, &update); err != nil {
		return nil, fmt.Errorf("%w: %v", errInvalidUpdate, err)
	}

	base, err := n.registry.Parse(update.Base)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errInvalidUpdate, err)
	}
	quote, err := n.registry.Parse(update.Quote)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errInvalidUpdate, err)
	}
	if base == quote {
		return nil, fmt.Errorf("%w: identity pair %s", errInvalidUpdate, base)
	}
	if !update.Rate.IsPositive() {
		return nil, fmt.Errorf("%w: non-positive rate %s", errInvalidUpdate, update.Rate)
	}

	updatedAt := update.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = n.now()
	}

	rate := &models.ExchangeRate{
		Base:      base,
		Quote:     quote,
		Rate:      update.Rate,
		UpdatedAt: updatedAt.UTC(),
		Source:    models.SourceLive,
	}
	if err := rate.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", errInvalidUpdate, err)
	}
	return rate, nil
}
