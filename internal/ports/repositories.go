package ports

import (
	"context"
	"time"

	"github.com/vendora/marketplace-ledger/internal/contracts"
	"github.com/vendora/marketplace-ledger/internal/domain"
)

type EscrowRepository interface {
	Create(ctx context.Context, payment domain.EscrowPayment) error
	Update(ctx context.Context, payment domain.EscrowPayment) error
	GetByID(ctx context.Context, paymentID string) (domain.EscrowPayment, error)
	GetByOrderID(ctx context.Context, orderID string) (domain.EscrowPayment, error)
	// ListEligibleAllocations returns held allocations flagged eligible
	// for payout; claim filtering is the payout repository's concern.
	ListEligibleAllocations(ctx context.Context) ([]domain.EscrowAllocation, error)
	// ListAllocationsForPeriod returns every allocation for the store
	// whose payment activity falls inside [from, to).
	ListAllocationsForPeriod(ctx context.Context, storeID string, from, to time.Time) ([]domain.EscrowAllocation, error)
}

type LedgerRepository interface {
	Append(ctx context.Context, entry domain.LedgerEntry) error
	ListByStore(ctx context.Context, storeID string) ([]domain.LedgerEntry, error)
}

type CommissionRuleRepository interface {
	Create(ctx context.Context, rule domain.CommissionRule) error
	List(ctx context.Context) ([]domain.CommissionRule, error)
}

type PayoutQuery struct {
	StoreID string
	Status  string
	Limit   int
	Offset  int
}

type PayoutRepository interface {
	Create(ctx context.Context, payout domain.SellerPayout) error
	Update(ctx context.Context, payout domain.SellerPayout) error
	GetByID(ctx context.Context, payoutID string) (domain.SellerPayout, error)
	List(ctx context.Context, query PayoutQuery) ([]domain.SellerPayout, int, error)
	ListDueForRetry(ctx context.Context, now time.Time) ([]domain.SellerPayout, error)
	// ClaimAllocation records that an allocation belongs to a payout.
	// A second claim for the same allocation returns ErrAllocationClaimed.
	ClaimAllocation(ctx context.Context, allocationID, payoutID string) error
	// ReleaseClaims frees every allocation claimed by the payout so a
	// later batch build can pick them up again.
	ReleaseClaims(ctx context.Context, payoutID string) error
}

type SettlementQuery struct {
	StoreID string
	Year    int
	Month   int
	Limit   int
	Offset  int
}

type SettlementRepository interface {
	Create(ctx context.Context, settlement domain.Settlement) error
	Update(ctx context.Context, settlement domain.Settlement) error
	GetByID(ctx context.Context, settlementID string) (domain.Settlement, error)
	// GetHead returns the highest version for (store, year, month).
	GetHead(ctx context.Context, storeID string, year, month int) (domain.Settlement, error)
	List(ctx context.Context, query SettlementQuery) ([]domain.Settlement, int, error)
}

type RefundRepository interface {
	Create(ctx context.Context, refund domain.Refund) error
	Update(ctx context.Context, refund domain.Refund) error
	GetByID(ctx context.Context, refundID string) (domain.Refund, error)
	GetByIdempotencyKey(ctx context.Context, key string) (domain.Refund, error)
	ListRetryable(ctx context.Context) ([]domain.Refund, error)
}

type InvoiceRepository interface {
	Create(ctx context.Context, invoice domain.CommissionInvoice) error
	GetByID(ctx context.Context, invoiceID string) (domain.CommissionInvoice, error)
	ListBySettlement(ctx context.Context, settlementID string) ([]domain.CommissionInvoice, error)
}

type IdempotencyRecord struct {
	Key          string
	RequestHash  string
	ResponseCode int
	ResponseBody []byte
	ExpiresAt    time.Time
}

type IdempotencyRepository interface {
	Get(ctx context.Context, key string, now time.Time) (*IdempotencyRecord, error)
	Reserve(ctx context.Context, key, requestHash string, expiresAt time.Time) error
	Complete(ctx context.Context, key string, responseCode int, responseBody []byte, at time.Time) error
}

type EventDedupRepository interface {
	IsDuplicate(ctx context.Context, eventID string, now time.Time) (bool, error)
	MarkProcessed(ctx context.Context, eventID, eventType string, expiresAt time.Time) error
}

type OutboxRecord struct {
	RecordID   string
	EventClass string
	Envelope   contracts.EventEnvelope
	CreatedAt  time.Time
	SentAt     *time.Time
}

type OutboxRepository interface {
	Enqueue(ctx context.Context, record OutboxRecord) error
	ListPending(ctx context.Context, limit int) ([]OutboxRecord, error)
	MarkSent(ctx context.Context, recordID string, at time.Time) error
}
