package ports

import (
	"context"

	"github.com/vendora/marketplace-ledger/internal/contracts"
)

type DomainPublisher interface {
	PublishDomain(ctx context.Context, event contracts.EventEnvelope) error
}

type AnalyticsPublisher interface {
	PublishAnalytics(ctx context.Context, event contracts.EventEnvelope) error
}

type DLQPublisher interface {
	PublishDLQ(ctx context.Context, record contracts.DLQRecord) error
}

// EventConsumer yields the next input event, io.EOF when none is
// currently available.
type EventConsumer interface {
	Receive(ctx context.Context) (*contracts.EventEnvelope, error)
}
