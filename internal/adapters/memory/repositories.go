package memory

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/vendora/marketplace-ledger/internal/domain"
	"github.com/vendora/marketplace-ledger/internal/ports"
)

// Repositories is the full map-backed persistence set. It backs local
// development and the application test suite; production wiring swaps it
// for the postgres adapters.
type Repositories struct {
	Escrows     *EscrowRepository
	Ledger      *LedgerRepository
	Rules       *CommissionRuleRepository
	Payouts     *PayoutRepository
	Settlements *SettlementRepository
	Refunds     *RefundRepository
	Invoices    *InvoiceRepository
	Idempotency *IdempotencyRepository
	EventDedup  *EventDedupRepository
	Outbox      *OutboxRepository
}

func NewRepositories() *Repositories {
	return &Repositories{
		Escrows: &EscrowRepository{
			payments: make(map[string]domain.EscrowPayment),
			byOrder:  make(map[string]string),
		},
		Ledger: &LedgerRepository{},
		Rules:  &CommissionRuleRepository{},
		Payouts: &PayoutRepository{
			payouts: make(map[string]domain.SellerPayout),
			claims:  make(map[string]string),
		},
		Settlements: &SettlementRepository{
			settlements: make(map[string]domain.Settlement),
		},
		Refunds: &RefundRepository{
			refunds: make(map[string]domain.Refund),
			byKey:   make(map[string]string),
		},
		Invoices: &InvoiceRepository{
			invoices: make(map[string]domain.CommissionInvoice),
		},
		Idempotency: &IdempotencyRepository{
			records: make(map[string]ports.IdempotencyRecord),
		},
		EventDedup: &EventDedupRepository{
			records: make(map[string]dedupRecord),
		},
		Outbox: &OutboxRepository{
			records: make(map[string]ports.OutboxRecord),
		},
	}
}

type EscrowRepository struct {
	mu       sync.RWMutex
	payments map[string]domain.EscrowPayment
	byOrder  map[string]string
	order    []string
}

func (r *EscrowRepository) Create(_ context.Context, payment domain.EscrowPayment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.payments[payment.PaymentID]; ok {
		return domain.ErrConflict
	}
	if _, ok := r.byOrder[payment.OrderID]; ok {
		return domain.ErrConflict
	}
	r.payments[payment.PaymentID] = clonePayment(payment)
	r.byOrder[payment.OrderID] = payment.PaymentID
	r.order = append(r.order, payment.PaymentID)
	return nil
}

func (r *EscrowRepository) Update(_ context.Context, payment domain.EscrowPayment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.payments[payment.PaymentID]; !ok {
		return domain.ErrNotFound
	}
	r.payments[payment.PaymentID] = clonePayment(payment)
	return nil
}

func (r *EscrowRepository) GetByID(_ context.Context, paymentID string) (domain.EscrowPayment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	payment, ok := r.payments[paymentID]
	if !ok {
		return domain.EscrowPayment{}, domain.ErrNotFound
	}
	return clonePayment(payment), nil
}

func (r *EscrowRepository) GetByOrderID(_ context.Context, orderID string) (domain.EscrowPayment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	paymentID, ok := r.byOrder[orderID]
	if !ok {
		return domain.EscrowPayment{}, domain.ErrNotFound
	}
	return clonePayment(r.payments[paymentID]), nil
}

func (r *EscrowRepository) ListEligibleAllocations(_ context.Context) ([]domain.EscrowAllocation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []domain.EscrowAllocation
	for _, paymentID := range r.order {
		payment := r.payments[paymentID]
		for i := range payment.Allocations {
			alloc := payment.Allocations[i]
			if alloc.Status == domain.AllocationStatusHeld && alloc.IsEligibleForPayout {
				out = append(out, alloc)
			}
		}
	}
	return out, nil
}

func (r *EscrowRepository) ListAllocationsForPeriod(_ context.Context, storeID string, from, to time.Time) ([]domain.EscrowAllocation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []domain.EscrowAllocation
	for _, paymentID := range r.order {
		payment := r.payments[paymentID]
		for i := range payment.Allocations {
			alloc := payment.Allocations[i]
			if alloc.StoreID != storeID {
				continue
			}
			if alloc.CreatedAt.Before(from) || !alloc.CreatedAt.Before(to) {
				continue
			}
			out = append(out, alloc)
		}
	}
	return out, nil
}

func clonePayment(payment domain.EscrowPayment) domain.EscrowPayment {
	out := payment
	out.Allocations = make([]domain.EscrowAllocation, len(payment.Allocations))
	copy(out.Allocations, payment.Allocations)
	return out
}

type LedgerRepository struct {
	mu      sync.RWMutex
	entries []domain.LedgerEntry
}

func (r *LedgerRepository) Append(_ context.Context, entry domain.LedgerEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, entry)
	return nil
}

func (r *LedgerRepository) ListByStore(_ context.Context, storeID string) ([]domain.LedgerEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []domain.LedgerEntry
	for _, entry := range r.entries {
		if entry.StoreID == storeID || (entry.StoreID == "" && storeID == "") {
			out = append(out, entry)
		}
	}
	return out, nil
}

// Entries returns the full journal, oldest first.
func (r *LedgerRepository) Entries() []domain.LedgerEntry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.LedgerEntry, len(r.entries))
	copy(out, r.entries)
	return out
}

type CommissionRuleRepository struct {
	mu    sync.RWMutex
	rules []domain.CommissionRule
}

func (r *CommissionRuleRepository) Create(_ context.Context, rule domain.CommissionRule) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.rules {
		if r.rules[i].RuleID == rule.RuleID {
			return domain.ErrConflict
		}
	}
	r.rules = append(r.rules, rule)
	return nil
}

func (r *CommissionRuleRepository) List(_ context.Context) ([]domain.CommissionRule, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.CommissionRule, len(r.rules))
	copy(out, r.rules)
	return out, nil
}

type PayoutRepository struct {
	mu      sync.RWMutex
	payouts map[string]domain.SellerPayout
	claims  map[string]string
	order   []string
}

func (r *PayoutRepository) Create(_ context.Context, payout domain.SellerPayout) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.payouts[payout.PayoutID]; ok {
		return domain.ErrConflict
	}
	r.payouts[payout.PayoutID] = clonePayout(payout)
	r.order = append(r.order, payout.PayoutID)
	return nil
}

func (r *PayoutRepository) Update(_ context.Context, payout domain.SellerPayout) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.payouts[payout.PayoutID]; !ok {
		return domain.ErrNotFound
	}
	r.payouts[payout.PayoutID] = clonePayout(payout)
	return nil
}

func (r *PayoutRepository) GetByID(_ context.Context, payoutID string) (domain.SellerPayout, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	payout, ok := r.payouts[payoutID]
	if !ok {
		return domain.SellerPayout{}, domain.ErrNotFound
	}
	return clonePayout(payout), nil
}

func (r *PayoutRepository) List(_ context.Context, query ports.PayoutQuery) ([]domain.SellerPayout, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	items := make([]domain.SellerPayout, 0, len(r.payouts))
	for _, payout := range r.payouts {
		if query.StoreID != "" && payout.StoreID != query.StoreID {
			continue
		}
		if query.Status != "" && string(payout.Status) != query.Status {
			continue
		}
		items = append(items, clonePayout(payout))
	}
	slices.SortFunc(items, func(a, b domain.SellerPayout) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	total := len(items)
	if query.Limit <= 0 {
		query.Limit = 20
	}
	if query.Offset < 0 {
		query.Offset = 0
	}
	if query.Offset >= len(items) {
		return []domain.SellerPayout{}, total, nil
	}
	end := query.Offset + query.Limit
	if end > len(items) {
		end = len(items)
	}
	out := make([]domain.SellerPayout, end-query.Offset)
	copy(out, items[query.Offset:end])
	return out, total, nil
}

func (r *PayoutRepository) ListDueForRetry(_ context.Context, now time.Time) ([]domain.SellerPayout, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []domain.SellerPayout
	for _, payoutID := range r.order {
		payout := r.payouts[payoutID]
		if payout.IsDueForRetry(now) {
			out = append(out, clonePayout(payout))
		}
	}
	return out, nil
}

func (r *PayoutRepository) ClaimAllocation(_ context.Context, allocationID, payoutID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if owner, ok := r.claims[allocationID]; ok && owner != payoutID {
		return domain.ErrAllocationClaimed
	}
	r.claims[allocationID] = payoutID
	return nil
}

func (r *PayoutRepository) ReleaseClaims(_ context.Context, payoutID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for allocationID, owner := range r.claims {
		if owner == payoutID {
			delete(r.claims, allocationID)
		}
	}
	return nil
}

func clonePayout(payout domain.SellerPayout) domain.SellerPayout {
	out := payout
	out.Items = make([]domain.SellerPayoutItem, len(payout.Items))
	copy(out.Items, payout.Items)
	return out
}

type SettlementRepository struct {
	mu          sync.RWMutex
	settlements map[string]domain.Settlement
	order       []string
}

func (r *SettlementRepository) Create(_ context.Context, settlement domain.Settlement) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.settlements[settlement.SettlementID]; ok {
		return domain.ErrConflict
	}
	for _, id := range r.order {
		existing := r.settlements[id]
		if existing.StoreID == settlement.StoreID && existing.Year == settlement.Year &&
			existing.Month == settlement.Month && existing.Version == settlement.Version {
			return domain.ErrVersionConflict
		}
	}
	r.settlements[settlement.SettlementID] = cloneSettlement(settlement)
	r.order = append(r.order, settlement.SettlementID)
	return nil
}

func (r *SettlementRepository) Update(_ context.Context, settlement domain.Settlement) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.settlements[settlement.SettlementID]; !ok {
		return domain.ErrNotFound
	}
	r.settlements[settlement.SettlementID] = cloneSettlement(settlement)
	return nil
}

func (r *SettlementRepository) GetByID(_ context.Context, settlementID string) (domain.Settlement, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	settlement, ok := r.settlements[settlementID]
	if !ok {
		return domain.Settlement{}, domain.ErrNotFound
	}
	return cloneSettlement(settlement), nil
}

func (r *SettlementRepository) GetHead(_ context.Context, storeID string, year, month int) (domain.Settlement, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var head *domain.Settlement
	for _, id := range r.order {
		settlement := r.settlements[id]
		if settlement.StoreID != storeID || settlement.Year != year || settlement.Month != month {
			continue
		}
		if head == nil || settlement.Version > head.Version {
			s := settlement
			head = &s
		}
	}
	if head == nil {
		return domain.Settlement{}, domain.ErrNotFound
	}
	return cloneSettlement(*head), nil
}

func (r *SettlementRepository) List(_ context.Context, query ports.SettlementQuery) ([]domain.Settlement, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	items := make([]domain.Settlement, 0, len(r.settlements))
	for _, settlement := range r.settlements {
		if query.StoreID != "" && settlement.StoreID != query.StoreID {
			continue
		}
		if query.Year != 0 && settlement.Year != query.Year {
			continue
		}
		if query.Month != 0 && settlement.Month != query.Month {
			continue
		}
		items = append(items, cloneSettlement(settlement))
	}
	slices.SortFunc(items, func(a, b domain.Settlement) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	total := len(items)
	if query.Limit <= 0 {
		query.Limit = 20
	}
	if query.Offset < 0 {
		query.Offset = 0
	}
	if query.Offset >= len(items) {
		return []domain.Settlement{}, total, nil
	}
	end := query.Offset + query.Limit
	if end > len(items) {
		end = len(items)
	}
	out := make([]domain.Settlement, end-query.Offset)
	copy(out, items[query.Offset:end])
	return out, total, nil
}

func cloneSettlement(settlement domain.Settlement) domain.Settlement {
	out := settlement
	out.Items = make([]domain.SettlementItem, len(settlement.Items))
	copy(out.Items, settlement.Items)
	out.Adjustments = make([]domain.SettlementAdjustment, len(settlement.Adjustments))
	copy(out.Adjustments, settlement.Adjustments)
	return out
}

type RefundRepository struct {
	mu      sync.RWMutex
	refunds map[string]domain.Refund
	byKey   map[string]string
	order   []string
}

func (r *RefundRepository) Create(_ context.Context, refund domain.Refund) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.refunds[refund.RefundID]; ok {
		return domain.ErrConflict
	}
	if _, ok := r.byKey[refund.IdempotencyKey]; ok {
		return domain.ErrConflict
	}
	r.refunds[refund.RefundID] = refund
	r.byKey[refund.IdempotencyKey] = refund.RefundID
	r.order = append(r.order, refund.RefundID)
	return nil
}

func (r *RefundRepository) Update(_ context.Context, refund domain.Refund) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.refunds[refund.RefundID]; !ok {
		return domain.ErrNotFound
	}
	r.refunds[refund.RefundID] = refund
	return nil
}

func (r *RefundRepository) GetByID(_ context.Context, refundID string) (domain.Refund, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	refund, ok := r.refunds[refundID]
	if !ok {
		return domain.Refund{}, domain.ErrNotFound
	}
	return refund, nil
}

func (r *RefundRepository) GetByIdempotencyKey(_ context.Context, key string) (domain.Refund, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	refundID, ok := r.byKey[key]
	if !ok {
		return domain.Refund{}, domain.ErrNotFound
	}
	return r.refunds[refundID], nil
}

func (r *RefundRepository) ListRetryable(_ context.Context) ([]domain.Refund, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []domain.Refund
	for _, refundID := range r.order {
		refund := r.refunds[refundID]
		if refund.CanRetry() {
			out = append(out, refund)
		}
	}
	return out, nil
}

type InvoiceRepository struct {
	mu       sync.RWMutex
	invoices map[string]domain.CommissionInvoice
	order    []string
}

func (r *InvoiceRepository) Create(_ context.Context, invoice domain.CommissionInvoice) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.invoices[invoice.InvoiceID]; ok {
		return domain.ErrConflict
	}
	for _, id := range r.order {
		if r.invoices[id].InvoiceNumber == invoice.InvoiceNumber {
			return domain.ErrConflict
		}
	}
	r.invoices[invoice.InvoiceID] = invoice
	r.order = append(r.order, invoice.InvoiceID)
	return nil
}

func (r *InvoiceRepository) GetByID(_ context.Context, invoiceID string) (domain.CommissionInvoice, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	invoice, ok := r.invoices[invoiceID]
	if !ok {
		return domain.CommissionInvoice{}, domain.ErrNotFound
	}
	return invoice, nil
}

func (r *InvoiceRepository) ListBySettlement(_ context.Context, settlementID string) ([]domain.CommissionInvoice, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []domain.CommissionInvoice
	for _, id := range r.order {
		if r.invoices[id].SettlementID == settlementID {
			out = append(out, r.invoices[id])
		}
	}
	return out, nil
}

type IdempotencyRepository struct {
	mu      sync.Mutex
	records map[string]ports.IdempotencyRecord
}

func (r *IdempotencyRepository) Get(_ context.Context, key string, now time.Time) (*ports.IdempotencyRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	record, ok := r.records[key]
	if !ok {
		return nil, nil
	}
	if now.After(record.ExpiresAt) {
		delete(r.records, key)
		return nil, nil
	}
	clone := record
	return &clone, nil
}

func (r *IdempotencyRepository) Reserve(_ context.Context, key, requestHash string, expiresAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.records[key]; ok && existing.RequestHash != requestHash {
		return domain.ErrConflict
	}
	r.records[key] = ports.IdempotencyRecord{
		Key:         key,
		RequestHash: requestHash,
		ExpiresAt:   expiresAt,
	}
	return nil
}

func (r *IdempotencyRepository) Complete(_ context.Context, key string, responseCode int, responseBody []byte, _ time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	record, ok := r.records[key]
	if !ok {
		return domain.ErrNotFound
	}
	record.ResponseCode = responseCode
	record.ResponseBody = append([]byte(nil), responseBody...)
	r.records[key] = record
	return nil
}

type dedupRecord struct {
	eventType string
	expiresAt time.Time
}

type EventDedupRepository struct {
	mu      sync.Mutex
	records map[string]dedupRecord
}

func (r *EventDedupRepository) IsDuplicate(_ context.Context, eventID string, now time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	record, ok := r.records[eventID]
	if !ok {
		return false, nil
	}
	if now.After(record.expiresAt) {
		delete(r.records, eventID)
		return false, nil
	}
	return true, nil
}

func (r *EventDedupRepository) MarkProcessed(_ context.Context, eventID, eventType string, expiresAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records[eventID] = dedupRecord{eventType: eventType, expiresAt: expiresAt}
	return nil
}

type OutboxRepository struct {
	mu      sync.Mutex
	records map[string]ports.OutboxRecord
	order   []string
}

func (r *OutboxRepository) Enqueue(_ context.Context, record ports.OutboxRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.records[record.RecordID]; ok {
		return domain.ErrConflict
	}
	r.records[record.RecordID] = record
	r.order = append(r.order, record.RecordID)
	return nil
}

func (r *OutboxRepository) ListPending(_ context.Context, limit int) ([]ports.OutboxRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if limit <= 0 {
		limit = 100
	}
	var out []ports.OutboxRecord
	for _, id := range r.order {
		record := r.records[id]
		if record.SentAt != nil {
			continue
		}
		out = append(out, record)
		if len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (r *OutboxRepository) MarkSent(_ context.Context, recordID string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	record, ok := r.records[recordID]
	if !ok {
		return domain.ErrNotFound
	}
	record.SentAt = &at
	r.records[recordID] = record
	return nil
}
