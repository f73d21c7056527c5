package ports

import (
	"context"

	"github.com/shopspring/decimal"
)

// GatewayResult is the opaque outcome of a payment-provider call. Status
// is the provider's own vocabulary; callers map it through
// domain.MapGatewayStatus.
type GatewayResult struct {
	TransactionID string
	Status        string
}

// PaymentGateway executes captures and refunds against the external
// payment provider. reference is the caller's idempotency key.
type PaymentGateway interface {
	Execute(ctx context.Context, amount decimal.Decimal, currency, reference string) (GatewayResult, error)
}

// PayoutBatch is what the payout provider needs to move one batch of
// funds to a seller's bank account.
type PayoutBatch struct {
	PayoutID     string
	PayoutNumber string
	StoreID      string
	Currency     string
	Amount       decimal.Decimal
	ItemCount    int
}

// PayoutGateway dispatches a seller payout batch. Failures should be
// returned as *domain.ProviderError so the error reference and message
// survive into the payout record.
type PayoutGateway interface {
	Execute(ctx context.Context, batch PayoutBatch) (reference string, err error)
}

// PaymentLocker serializes all mutating operations on one escrow payment
// and its allocations. Release must always be called, even on error
// paths.
type PaymentLocker interface {
	Acquire(ctx context.Context, paymentID string) (release func(), err error)
}
