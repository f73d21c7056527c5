package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type RefundStatus string

const (
	RefundStatusPending    RefundStatus = "pending"
	RefundStatusProcessing RefundStatus = "processing"
	RefundStatusCompleted  RefundStatus = "completed"
	RefundStatusFailed     RefundStatus = "failed"
	RefundStatusRejected   RefundStatus = "rejected"
)

const DefaultRefundMaxRetries = 3

// Refund is an independent retryable unit of work for returning money to
// a buyer. Which allocation it is applied against is recorded for the
// ledger but the workflow itself only advances the provider call.
type Refund struct {
	RefundID              string          `json:"refund_id"`
	OrderID               string          `json:"order_id"`
	PaymentID             string          `json:"payment_id"`
	ShipmentID            string          `json:"shipment_id,omitempty"`
	BuyerID               string          `json:"buyer_id"`
	Amount                decimal.Decimal `json:"amount"`
	Currency              string          `json:"currency"`
	Reason                string          `json:"reason"`
	Status                RefundStatus    `json:"status"`
	IdempotencyKey        string          `json:"idempotency_key"`
	ProviderTransactionID string          `json:"provider_transaction_id,omitempty"`
	FailureReason         string          `json:"failure_reason,omitempty"`
	RetryCount            int             `json:"retry_count"`
	MaxRetries            int             `json:"max_retries"`
	CompletedAt           *time.Time      `json:"completed_at,omitempty"`
	CreatedAt             time.Time       `json:"created_at"`
	UpdatedAt             time.Time       `json:"updated_at"`
}

func NewRefund(refundID, orderID, paymentID, shipmentID, buyerID string, amount decimal.Decimal, currency, reason string, now time.Time) (Refund, error) {
	if strings.TrimSpace(refundID) == "" || strings.TrimSpace(orderID) == "" || strings.TrimSpace(paymentID) == "" || strings.TrimSpace(buyerID) == "" {
		return Refund{}, ErrInvalidInput
	}
	if !amount.IsPositive() {
		return Refund{}, ErrInvalidInput
	}
	currency = normalizeCurrency(currency)
	if !ValidCurrency(currency) {
		return Refund{}, ErrInvalidInput
	}
	return Refund{
		RefundID:       refundID,
		OrderID:        orderID,
		PaymentID:      paymentID,
		ShipmentID:     strings.TrimSpace(shipmentID),
		BuyerID:        buyerID,
		Amount:         amount,
		Currency:       currency,
		Reason:         strings.TrimSpace(reason),
		Status:         RefundStatusPending,
		IdempotencyKey: RefundIdempotencyKey(orderID),
		MaxRetries:     DefaultRefundMaxRetries,
		CreatedAt:      now,
		UpdatedAt:      now,
	}, nil
}

// RefundIdempotencyKey is globally unique per creation so retried client
// requests do not create duplicate refund intents upstream.
func RefundIdempotencyKey(orderID string) string {
	return fmt.Sprintf("REFUND-%s-%s", orderID, uuid.NewString()[:8])
}

func (r *Refund) StartProcessing(now time.Time) error {
	if r.Status != RefundStatusPending {
		return stateConflict("refund", string(r.Status), string(RefundStatusPending))
	}
	r.Status = RefundStatusProcessing
	r.UpdatedAt = now
	return nil
}

// Complete requires a non-empty provider transaction id.
func (r *Refund) Complete(providerTransactionID string, now time.Time) error {
	if r.Status != RefundStatusProcessing {
		return stateConflict("refund", string(r.Status), string(RefundStatusProcessing))
	}
	if strings.TrimSpace(providerTransactionID) == "" {
		return ErrProviderReference
	}
	r.Status = RefundStatusCompleted
	r.ProviderTransactionID = providerTransactionID
	r.FailureReason = ""
	r.CompletedAt = &now
	r.UpdatedAt = now
	return nil
}

func (r *Refund) Fail(message string, now time.Time) error {
	if r.Status != RefundStatusProcessing {
		return stateConflict("refund", string(r.Status), string(RefundStatusProcessing))
	}
	r.Status = RefundStatusFailed
	r.FailureReason = message
	r.RetryCount++
	r.UpdatedAt = now
	return nil
}

func (r *Refund) Reject(reason string, now time.Time) error {
	if r.Status != RefundStatusPending && r.Status != RefundStatusProcessing {
		return stateConflict("refund", string(r.Status), string(RefundStatusPending))
	}
	r.Status = RefundStatusRejected
	r.FailureReason = reason
	r.UpdatedAt = now
	return nil
}

// ResetForRetry returns a failed refund to Pending, gated by the retry
// budget.
func (r *Refund) ResetForRetry(now time.Time) error {
	if r.Status != RefundStatusFailed {
		return stateConflict("refund", string(r.Status), string(RefundStatusFailed))
	}
	if r.RetryCount >= r.MaxRetries {
		return ErrRetriesExhausted
	}
	r.Status = RefundStatusPending
	r.UpdatedAt = now
	return nil
}

// CanRetry reports whether a failed refund may be retried.
func (r *Refund) CanRetry() bool {
	return r.Status == RefundStatusFailed && r.RetryCount < r.MaxRetries
}
