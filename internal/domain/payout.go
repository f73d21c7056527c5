package domain

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type PayoutStatus string

const (
	PayoutStatusScheduled  PayoutStatus = "scheduled"
	PayoutStatusProcessing PayoutStatus = "processing"
	PayoutStatusPaid       PayoutStatus = "paid"
	PayoutStatusFailed     PayoutStatus = "failed"
)

const DefaultPayoutMaxRetries = 3

// SellerPayout batches eligible allocations for one seller into a single
// payable transfer, identified by store, currency and scheduled date.
// TotalAmount is always the sum of its items.
type SellerPayout struct {
	PayoutID          string             `json:"payout_id"`
	PayoutNumber      string             `json:"payout_number"`
	StoreID           string             `json:"store_id"`
	Currency          string             `json:"currency"`
	ScheduledDate     time.Time          `json:"scheduled_date"`
	TotalAmount       decimal.Decimal    `json:"total_amount"`
	Status            PayoutStatus       `json:"status"`
	RetryCount        int                `json:"retry_count"`
	MaxRetries        int                `json:"max_retries"`
	NextRetryAt       *time.Time         `json:"next_retry_at,omitempty"`
	ProviderReference string             `json:"provider_reference,omitempty"`
	FailureReason     string             `json:"failure_reason,omitempty"`
	Items             []SellerPayoutItem `json:"items"`
	ProcessingAt      *time.Time         `json:"processing_at,omitempty"`
	PaidAt            *time.Time         `json:"paid_at,omitempty"`
	FailedAt          *time.Time         `json:"failed_at,omitempty"`
	CreatedAt         time.Time          `json:"created_at"`
	UpdatedAt         time.Time          `json:"updated_at"`
}

// SellerPayoutItem references one allocation and snapshots its payable
// amount at batch-creation time. Later allocation mutations do not change
// the snapshot.
type SellerPayoutItem struct {
	ItemID       string          `json:"item_id"`
	PayoutID     string          `json:"payout_id"`
	PaymentID    string          `json:"payment_id"`
	AllocationID string          `json:"allocation_id"`
	ShipmentID   string          `json:"shipment_id"`
	Amount       decimal.Decimal `json:"amount"`
	CreatedAt    time.Time       `json:"created_at"`
}

func NewSellerPayout(payoutID, storeID, currency string, scheduledDate time.Time, maxRetries int, now time.Time) (SellerPayout, error) {
	if strings.TrimSpace(payoutID) == "" || strings.TrimSpace(storeID) == "" {
		return SellerPayout{}, ErrInvalidInput
	}
	currency = normalizeCurrency(currency)
	if !ValidCurrency(currency) {
		return SellerPayout{}, ErrInvalidInput
	}
	if scheduledDate.IsZero() {
		return SellerPayout{}, ErrInvalidInput
	}
	if maxRetries <= 0 {
		maxRetries = DefaultPayoutMaxRetries
	}
	return SellerPayout{
		PayoutID:      payoutID,
		PayoutNumber:  PayoutNumber(storeID, currency, scheduledDate),
		StoreID:       storeID,
		Currency:      currency,
		ScheduledDate: scheduledDate,
		TotalAmount:   decimal.Zero,
		Status:        PayoutStatusScheduled,
		MaxRetries:    maxRetries,
		CreatedAt:     now,
		UpdatedAt:     now,
	}, nil
}

// PayoutNumber derives the stable batch identity from the grouping key.
// It doubles as the provider idempotency key on dispatch retries.
func PayoutNumber(storeID, currency string, scheduledDate time.Time) string {
	return fmt.Sprintf("PAYOUT-%s-%s-%s", storeID, currency, scheduledDate.Format("20060102"))
}

// AddItem claims one allocation into this batch, snapshotting its
// remaining seller payout. The payout must still be Scheduled and the
// allocation held, eligible, currency-matched and not already included.
func (p *SellerPayout) AddItem(itemID string, alloc *EscrowAllocation, now time.Time) (*SellerPayoutItem, error) {
	if p.Status != PayoutStatusScheduled {
		return nil, stateConflict("seller payout", string(p.Status), string(PayoutStatusScheduled))
	}
	if strings.TrimSpace(itemID) == "" || alloc == nil {
		return nil, ErrInvalidInput
	}
	if alloc.Status != AllocationStatusHeld {
		return nil, stateConflict("escrow allocation", string(alloc.Status), string(AllocationStatusHeld))
	}
	if !alloc.IsEligibleForPayout {
		return nil, stateConflict("escrow allocation", "not eligible", "eligible for payout")
	}
	if alloc.Currency != p.Currency {
		return nil, ErrCurrencyMismatch
	}
	if alloc.StoreID != p.StoreID {
		return nil, ErrInvalidInput
	}
	for i := range p.Items {
		if p.Items[i].AllocationID == alloc.AllocationID {
			return nil, ErrAllocationClaimed
		}
	}
	amount := alloc.RemainingSellerPayout()
	if !amount.IsPositive() {
		return nil, ErrInvalidInput
	}
	item := SellerPayoutItem{
		ItemID:       itemID,
		PayoutID:     p.PayoutID,
		PaymentID:    alloc.PaymentID,
		AllocationID: alloc.AllocationID,
		ShipmentID:   alloc.ShipmentID,
		Amount:       amount,
		CreatedAt:    now,
	}
	p.Items = append(p.Items, item)
	p.TotalAmount = p.TotalAmount.Add(amount)
	p.UpdatedAt = now
	return &p.Items[len(p.Items)-1], nil
}

// StartProcessing moves the batch into Processing, either on first
// dispatch or on a due retry.
func (p *SellerPayout) StartProcessing(now time.Time) error {
	switch p.Status {
	case PayoutStatusScheduled:
	case PayoutStatusFailed:
		if !p.IsDueForRetry(now) {
			return stateConflict("seller payout", string(p.Status), "due for retry")
		}
	default:
		return stateConflict("seller payout", string(p.Status), string(PayoutStatusScheduled))
	}
	if len(p.Items) == 0 {
		return ErrInvalidInput
	}
	p.Status = PayoutStatusProcessing
	p.ProcessingAt = &now
	p.UpdatedAt = now
	return nil
}

func (p *SellerPayout) MarkPaid(providerReference string, now time.Time) error {
	if p.Status != PayoutStatusProcessing {
		return stateConflict("seller payout", string(p.Status), string(PayoutStatusProcessing))
	}
	if strings.TrimSpace(providerReference) == "" {
		return ErrProviderReference
	}
	p.Status = PayoutStatusPaid
	p.ProviderReference = providerReference
	p.FailureReason = ""
	p.NextRetryAt = nil
	p.PaidAt = &now
	p.UpdatedAt = now
	return nil
}

// MarkFailed records a provider failure and schedules the next attempt
// with exponential backoff (4^RetryCount hours). After MaxRetries
// failures NextRetryAt is cleared and the batch needs manual
// intervention.
func (p *SellerPayout) MarkFailed(errorReference, message string, now time.Time) error {
	if p.Status != PayoutStatusProcessing {
		return stateConflict("seller payout", string(p.Status), string(PayoutStatusProcessing))
	}
	p.Status = PayoutStatusFailed
	p.ProviderReference = errorReference
	p.FailureReason = message
	p.RetryCount++
	p.FailedAt = &now
	if p.RetryCount >= p.MaxRetries {
		p.NextRetryAt = nil
	} else {
		next := now.Add(retryBackoff(p.RetryCount))
		p.NextRetryAt = &next
	}
	p.UpdatedAt = now
	return nil
}

func retryBackoff(retryCount int) time.Duration {
	return time.Duration(math.Pow(4, float64(retryCount))) * time.Hour
}

// CanRetry reports whether another automatic attempt is permitted.
func (p *SellerPayout) CanRetry() bool {
	return p.Status == PayoutStatusFailed && p.RetryCount < p.MaxRetries
}

// IsDueForRetry is true only when Failed, retries remain, and the backoff
// window has elapsed.
func (p *SellerPayout) IsDueForRetry(now time.Time) bool {
	return p.CanRetry() && p.NextRetryAt != nil && !now.Before(*p.NextRetryAt)
}
