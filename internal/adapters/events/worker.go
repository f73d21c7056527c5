package events

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/vendora/marketplace-ledger/internal/application"
	"github.com/vendora/marketplace-ledger/internal/contracts"
	"github.com/vendora/marketplace-ledger/internal/ports"
)

// OutboxWorker periodically drains the outbox through the configured
// publishers.
type OutboxWorker struct {
	logger   *slog.Logger
	service  *application.Service
	interval time.Duration
}

func NewOutboxWorker(logger *slog.Logger, service *application.Service, interval time.Duration) *OutboxWorker {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	return &OutboxWorker{logger: logger, service: service, interval: interval}
}

func (w *OutboxWorker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		if _, err := w.service.FlushOutbox(ctx); err != nil && !errors.Is(err, context.Canceled) {
			w.logger.ErrorContext(ctx, "outbox iteration failed",
				"module", "events.outbox_worker",
				"layer", "adapter",
				"operation", "flush",
				"outcome", "failure",
				"error", err,
			)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// ConsumerWorker drains the input event stream into the application
// service. An event the service rejects goes to the DLQ instead of
// blocking the stream.
type ConsumerWorker struct {
	logger   *slog.Logger
	consumer ports.EventConsumer
	dlq      ports.DLQPublisher
	service  *application.Service
	interval time.Duration
}

func NewConsumerWorker(logger *slog.Logger, consumer ports.EventConsumer, dlq ports.DLQPublisher, service *application.Service, interval time.Duration) *ConsumerWorker {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	return &ConsumerWorker{logger: logger, consumer: consumer, dlq: dlq, service: service, interval: interval}
}

func (w *ConsumerWorker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		if err := w.processOnce(ctx); err != nil && !errors.Is(err, context.Canceled) {
			w.logger.ErrorContext(ctx, "consumer iteration failed",
				"module", "events.consumer_worker",
				"layer", "adapter",
				"operation", "process_once",
				"outcome", "failure",
				"error", err,
			)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (w *ConsumerWorker) processOnce(ctx context.Context) error {
	for {
		envelope, err := w.consumer.Receive(ctx)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		if err := w.service.HandleDomainEvent(ctx, envelope); err != nil {
			w.logger.WarnContext(ctx, "event handling failed, routing to dlq",
				"event_id", envelope.EventID,
				"event_type", envelope.EventType,
				"error", err,
			)
			now := time.Now().UTC()
			if w.dlq != nil {
				_ = w.dlq.PublishDLQ(ctx, contracts.DLQRecord{
					OriginalEvent: *envelope,
					ErrorSummary:  err.Error(),
					RetryCount:    0,
					FirstSeenAt:   now,
					LastErrorAt:   now,
					TraceID:       envelope.TraceID,
				})
			}
		}
	}
}

// RetryWorker re-dispatches failed payouts whose backoff has elapsed and
// failed refunds with budget remaining.
type RetryWorker struct {
	logger   *slog.Logger
	service  *application.Service
	interval time.Duration
}

func NewRetryWorker(logger *slog.Logger, service *application.Service, interval time.Duration) *RetryWorker {
	if interval <= 0 {
		interval = time.Minute
	}
	return &RetryWorker{logger: logger, service: service, interval: interval}
}

func (w *RetryWorker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		if dispatched, err := w.service.SweepPayoutRetries(ctx); err != nil && !errors.Is(err, context.Canceled) {
			w.logger.ErrorContext(ctx, "payout retry sweep failed",
				"module", "events.retry_worker",
				"layer", "adapter",
				"operation", "sweep_payouts",
				"outcome", "failure",
				"error", err,
			)
		} else if dispatched > 0 {
			w.logger.InfoContext(ctx, "payout retries dispatched", "count", dispatched)
		}
		if retried, err := w.service.SweepRefundRetries(ctx); err != nil && !errors.Is(err, context.Canceled) {
			w.logger.ErrorContext(ctx, "refund retry sweep failed",
				"module", "events.retry_worker",
				"layer", "adapter",
				"operation", "sweep_refunds",
				"outcome", "failure",
				"error", err,
			)
		} else if retried > 0 {
			w.logger.InfoContext(ctx, "refund retries executed", "count", retried)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
