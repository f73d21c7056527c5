package postgres

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/vendora/marketplace-ledger/internal/domain"
	"github.com/vendora/marketplace-ledger/internal/ports"
)

type Repositories struct {
	Escrows     ports.EscrowRepository
	Ledger      ports.LedgerRepository
	Rules       ports.CommissionRuleRepository
	Payouts     ports.PayoutRepository
	Settlements ports.SettlementRepository
	Refunds     ports.RefundRepository
	Invoices    ports.InvoiceRepository
	Idempotency ports.IdempotencyRepository
	EventDedup  ports.EventDedupRepository
	Outbox      ports.OutboxRepository
}

func NewRepositories(db *gorm.DB) Repositories {
	return Repositories{
		Escrows:     &escrowRepository{db: db},
		Ledger:      &ledgerRepository{db: db},
		Rules:       &commissionRuleRepository{db: db},
		Payouts:     &payoutRepository{db: db},
		Settlements: &settlementRepository{db: db},
		Refunds:     &refundRepository{db: db},
		Invoices:    &invoiceRepository{db: db},
		Idempotency: &idempotencyRepository{db: db},
		EventDedup:  &eventDedupRepository{db: db},
		Outbox:      &outboxRepository{db: db},
	}
}

type escrowRepository struct {
	db *gorm.DB
}

func (r *escrowRepository) Create(ctx context.Context, payment domain.EscrowPayment) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		rec := toPaymentModel(payment)
		if err := tx.Create(&rec).Error; err != nil {
			if isUniqueViolation(err) {
				return domain.ErrConflict
			}
			return err
		}
		for i := range payment.Allocations {
			alloc := toAllocationModel(payment.Allocations[i])
			if err := tx.Create(&alloc).Error; err != nil {
				if isUniqueViolation(err) {
					return domain.ErrConflict
				}
				return err
			}
		}
		return nil
	})
}

func (r *escrowRepository) Update(ctx context.Context, payment domain.EscrowPayment) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		rec := toPaymentModel(payment)
		res := tx.Model(&escrowPaymentModel{}).Where("payment_id = ?", rec.PaymentID).Updates(map[string]any{
			"released_amount": rec.ReleasedAmount,
			"refunded_amount": rec.RefundedAmount,
			"status":          rec.Status,
			"updated_at":      rec.UpdatedAt,
		})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return domain.ErrNotFound
		}
		for i := range payment.Allocations {
			alloc := toAllocationModel(payment.Allocations[i])
			if err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "allocation_id"}},
				UpdateAll: true,
			}).Create(&alloc).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *escrowRepository) GetByID(ctx context.Context, paymentID string) (domain.EscrowPayment, error) {
	var rec escrowPaymentModel
	if err := r.db.WithContext(ctx).Where("payment_id = ?", paymentID).Take(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.EscrowPayment{}, domain.ErrNotFound
		}
		return domain.EscrowPayment{}, err
	}
	return r.loadPayment(ctx, rec)
}

func (r *escrowRepository) GetByOrderID(ctx context.Context, orderID string) (domain.EscrowPayment, error) {
	var rec escrowPaymentModel
	if err := r.db.WithContext(ctx).Where("order_id = ?", orderID).Take(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.EscrowPayment{}, domain.ErrNotFound
		}
		return domain.EscrowPayment{}, err
	}
	return r.loadPayment(ctx, rec)
}

func (r *escrowRepository) loadPayment(ctx context.Context, rec escrowPaymentModel) (domain.EscrowPayment, error) {
	var allocations []escrowAllocationModel
	if err := r.db.WithContext(ctx).
		Where("payment_id = ?", rec.PaymentID).
		Order("created_at ASC, allocation_id ASC").
		Find(&allocations).Error; err != nil {
		return domain.EscrowPayment{}, err
	}
	return toDomainPayment(rec, allocations), nil
}

func (r *escrowRepository) ListEligibleAllocations(ctx context.Context) ([]domain.EscrowAllocation, error) {
	var recs []escrowAllocationModel
	if err := r.db.WithContext(ctx).
		Where("status = ? AND is_eligible_for_payout = ?", string(domain.AllocationStatusHeld), true).
		Order("created_at ASC").
		Find(&recs).Error; err != nil {
		return nil, err
	}
	out := make([]domain.EscrowAllocation, 0, len(recs))
	for _, rec := range recs {
		out = append(out, toDomainAllocation(rec))
	}
	return out, nil
}

func (r *escrowRepository) ListAllocationsForPeriod(ctx context.Context, storeID string, from, to time.Time) ([]domain.EscrowAllocation, error) {
	var recs []escrowAllocationModel
	if err := r.db.WithContext(ctx).
		Where("store_id = ? AND created_at >= ? AND created_at < ?", storeID, from, to).
		Order("created_at ASC").
		Find(&recs).Error; err != nil {
		return nil, err
	}
	out := make([]domain.EscrowAllocation, 0, len(recs))
	for _, rec := range recs {
		out = append(out, toDomainAllocation(rec))
	}
	return out, nil
}

type ledgerRepository struct {
	db *gorm.DB
}

func (r *ledgerRepository) Append(ctx context.Context, entry domain.LedgerEntry) error {
	rec := toLedgerModel(entry)
	return r.db.WithContext(ctx).Create(&rec).Error
}

func (r *ledgerRepository) ListByStore(ctx context.Context, storeID string) ([]domain.LedgerEntry, error) {
	var recs []ledgerEntryModel
	if err := r.db.WithContext(ctx).
		Where("store_id = ?", storeID).
		Order("occurred_at ASC, entry_id ASC").
		Find(&recs).Error; err != nil {
		return nil, err
	}
	out := make([]domain.LedgerEntry, 0, len(recs))
	for _, rec := range recs {
		out = append(out, toDomainLedger(rec))
	}
	return out, nil
}

type commissionRuleRepository struct {
	db *gorm.DB
}

func (r *commissionRuleRepository) Create(ctx context.Context, rule domain.CommissionRule) error {
	rec := toRuleModel(rule)
	if err := r.db.WithContext(ctx).Create(&rec).Error; err != nil {
		if isUniqueViolation(err) {
			return domain.ErrConflict
		}
		return err
	}
	return nil
}

func (r *commissionRuleRepository) List(ctx context.Context) ([]domain.CommissionRule, error) {
	var recs []commissionRuleModel
	if err := r.db.WithContext(ctx).Order("created_at ASC").Find(&recs).Error; err != nil {
		return nil, err
	}
	out := make([]domain.CommissionRule, 0, len(recs))
	for _, rec := range recs {
		out = append(out, toDomainRule(rec))
	}
	return out, nil
}

type payoutRepository struct {
	db *gorm.DB
}

func (r *payoutRepository) Create(ctx context.Context, payout domain.SellerPayout) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		rec := toPayoutModel(payout)
		if err := tx.Create(&rec).Error; err != nil {
			if isUniqueViolation(err) {
				return domain.ErrConflict
			}
			return err
		}
		for _, item := range payout.Items {
			itemRec := sellerPayoutItemModel{
				ItemID:       item.ItemID,
				PayoutID:     item.PayoutID,
				PaymentID:    item.PaymentID,
				AllocationID: item.AllocationID,
				ShipmentID:   item.ShipmentID,
				Amount:       item.Amount,
				CreatedAt:    item.CreatedAt,
			}
			if err := tx.Create(&itemRec).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *payoutRepository) Update(ctx context.Context, payout domain.SellerPayout) error {
	rec := toPayoutModel(payout)
	res := r.db.WithContext(ctx).Model(&sellerPayoutModel{}).Where("payout_id = ?", rec.PayoutID).Updates(map[string]any{
		"total_amount":       rec.TotalAmount,
		"status":             rec.Status,
		"retry_count":        rec.RetryCount,
		"next_retry_at":      rec.NextRetryAt,
		"provider_reference": rec.ProviderReference,
		"failure_reason":     rec.FailureReason,
		"processing_at":      rec.ProcessingAt,
		"paid_at":            rec.PaidAt,
		"failed_at":          rec.FailedAt,
		"updated_at":         rec.UpdatedAt,
	})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *payoutRepository) GetByID(ctx context.Context, payoutID string) (domain.SellerPayout, error) {
	var rec sellerPayoutModel
	if err := r.db.WithContext(ctx).Where("payout_id = ?", payoutID).Take(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.SellerPayout{}, domain.ErrNotFound
		}
		return domain.SellerPayout{}, err
	}
	var items []sellerPayoutItemModel
	if err := r.db.WithContext(ctx).
		Where("payout_id = ?", payoutID).
		Order("created_at ASC, item_id ASC").
		Find(&items).Error; err != nil {
		return domain.SellerPayout{}, err
	}
	return toDomainPayout(rec, items), nil
}

func (r *payoutRepository) List(ctx context.Context, query ports.PayoutQuery) ([]domain.SellerPayout, int, error) {
	q := r.db.WithContext(ctx).Model(&sellerPayoutModel{})
	if query.StoreID != "" {
		q = q.Where("store_id = ?", query.StoreID)
	}
	if query.Status != "" {
		q = q.Where("status = ?", query.Status)
	}
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if query.Limit <= 0 {
		query.Limit = 20
	}
	if query.Offset < 0 {
		query.Offset = 0
	}
	var recs []sellerPayoutModel
	if err := q.Order("created_at DESC").Limit(query.Limit).Offset(query.Offset).Find(&recs).Error; err != nil {
		return nil, 0, err
	}
	out := make([]domain.SellerPayout, 0, len(recs))
	for _, rec := range recs {
		out = append(out, toDomainPayout(rec, nil))
	}
	return out, int(total), nil
}

func (r *payoutRepository) ListDueForRetry(ctx context.Context, now time.Time) ([]domain.SellerPayout, error) {
	var recs []sellerPayoutModel
	if err := r.db.WithContext(ctx).
		Where("status = ? AND next_retry_at IS NOT NULL AND next_retry_at <= ?", string(domain.PayoutStatusFailed), now).
		Order("next_retry_at ASC").
		Find(&recs).Error; err != nil {
		return nil, err
	}
	out := make([]domain.SellerPayout, 0, len(recs))
	for _, rec := range recs {
		out = append(out, toDomainPayout(rec, nil))
	}
	return out, nil
}

func (r *payoutRepository) ClaimAllocation(ctx context.Context, allocationID, payoutID string) error {
	rec := payoutClaimModel{
		AllocationID: allocationID,
		PayoutID:     payoutID,
		ClaimedAt:    time.Now().UTC(),
	}
	if err := r.db.WithContext(ctx).Create(&rec).Error; err != nil {
		if isUniqueViolation(err) || errors.Is(err, gorm.ErrDuplicatedKey) {
			var existing payoutClaimModel
			if lookupErr := r.db.WithContext(ctx).Where("allocation_id = ?", allocationID).Take(&existing).Error; lookupErr == nil && existing.PayoutID == payoutID {
				return nil
			}
			return domain.ErrAllocationClaimed
		}
		return err
	}
	return nil
}

func (r *payoutRepository) ReleaseClaims(ctx context.Context, payoutID string) error {
	return r.db.WithContext(ctx).
		Where("payout_id = ?", payoutID).
		Delete(&payoutClaimModel{}).Error
}

type settlementRepository struct {
	db *gorm.DB
}

func (r *settlementRepository) Create(ctx context.Context, settlement domain.Settlement) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		rec := toSettlementModel(settlement)
		if err := tx.Create(&rec).Error; err != nil {
			if isUniqueViolation(err) {
				return domain.ErrVersionConflict
			}
			return err
		}
		return r.writeChildren(tx, settlement)
	})
}

func (r *settlementRepository) Update(ctx context.Context, settlement domain.Settlement) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		rec := toSettlementModel(settlement)
		res := tx.Model(&settlementModel{}).Where("settlement_id = ?", rec.SettlementID).Updates(map[string]any{
			"gross_sales":       rec.GrossSales,
			"total_shipping":    rec.TotalShipping,
			"total_commission":  rec.TotalCommission,
			"total_refunds":     rec.TotalRefunds,
			"total_adjustments": rec.TotalAdjustments,
			"net_payable":       rec.NetPayable,
			"status":            rec.Status,
			"approved_by":       rec.ApprovedBy,
			"finalized_at":      rec.FinalizedAt,
			"approved_at":       rec.ApprovedAt,
			"exported_at":       rec.ExportedAt,
			"updated_at":        rec.UpdatedAt,
		})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return domain.ErrNotFound
		}
		if err := tx.Where("settlement_id = ?", rec.SettlementID).Delete(&settlementItemModel{}).Error; err != nil {
			return err
		}
		if err := tx.Where("settlement_id = ?", rec.SettlementID).Delete(&settlementAdjustmentModel{}).Error; err != nil {
			return err
		}
		return r.writeChildren(tx, settlement)
	})
}

func (r *settlementRepository) writeChildren(tx *gorm.DB, settlement domain.Settlement) error {
	for _, item := range settlement.Items {
		rec := settlementItemModel{
			ItemID:           item.ItemID,
			SettlementID:     item.SettlementID,
			AllocationID:     item.AllocationID,
			OrderID:          item.OrderID,
			ShipmentID:       item.ShipmentID,
			GrossAmount:      item.GrossAmount,
			ShippingAmount:   item.ShippingAmount,
			CommissionAmount: item.CommissionAmount,
			RefundedAmount:   item.RefundedAmount,
			CreatedAt:        item.CreatedAt,
		}
		if err := tx.Create(&rec).Error; err != nil {
			return err
		}
	}
	for _, adj := range settlement.Adjustments {
		rec := settlementAdjustmentModel{
			AdjustmentID: adj.AdjustmentID,
			SettlementID: adj.SettlementID,
			Amount:       adj.Amount,
			Reason:       adj.Reason,
			SourceYear:   adj.SourceYear,
			SourceMonth:  adj.SourceMonth,
			CreatedAt:    adj.CreatedAt,
		}
		if err := tx.Create(&rec).Error; err != nil {
			return err
		}
	}
	return nil
}

func (r *settlementRepository) GetByID(ctx context.Context, settlementID string) (domain.Settlement, error) {
	var rec settlementModel
	if err := r.db.WithContext(ctx).Where("settlement_id = ?", settlementID).Take(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Settlement{}, domain.ErrNotFound
		}
		return domain.Settlement{}, err
	}
	return r.loadSettlement(ctx, rec)
}

func (r *settlementRepository) GetHead(ctx context.Context, storeID string, year, month int) (domain.Settlement, error) {
	var rec settlementModel
	if err := r.db.WithContext(ctx).
		Where("store_id = ? AND year = ? AND month = ?", storeID, year, month).
		Order("version DESC").
		Take(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Settlement{}, domain.ErrNotFound
		}
		return domain.Settlement{}, err
	}
	return r.loadSettlement(ctx, rec)
}

func (r *settlementRepository) loadSettlement(ctx context.Context, rec settlementModel) (domain.Settlement, error) {
	var items []settlementItemModel
	if err := r.db.WithContext(ctx).
		Where("settlement_id = ?", rec.SettlementID).
		Order("created_at ASC, item_id ASC").
		Find(&items).Error; err != nil {
		return domain.Settlement{}, err
	}
	var adjustments []settlementAdjustmentModel
	if err := r.db.WithContext(ctx).
		Where("settlement_id = ?", rec.SettlementID).
		Order("created_at ASC, adjustment_id ASC").
		Find(&adjustments).Error; err != nil {
		return domain.Settlement{}, err
	}
	return toDomainSettlement(rec, items, adjustments), nil
}

func (r *settlementRepository) List(ctx context.Context, query ports.SettlementQuery) ([]domain.Settlement, int, error) {
	q := r.db.WithContext(ctx).Model(&settlementModel{})
	if query.StoreID != "" {
		q = q.Where("store_id = ?", query.StoreID)
	}
	if query.Year != 0 {
		q = q.Where("year = ?", query.Year)
	}
	if query.Month != 0 {
		q = q.Where("month = ?", query.Month)
	}
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if query.Limit <= 0 {
		query.Limit = 20
	}
	if query.Offset < 0 {
		query.Offset = 0
	}
	var recs []settlementModel
	if err := q.Order("created_at DESC").Limit(query.Limit).Offset(query.Offset).Find(&recs).Error; err != nil {
		return nil, 0, err
	}
	out := make([]domain.Settlement, 0, len(recs))
	for _, rec := range recs {
		out = append(out, toDomainSettlement(rec, nil, nil))
	}
	return out, int(total), nil
}

type refundRepository struct {
	db *gorm.DB
}

func (r *refundRepository) Create(ctx context.Context, refund domain.Refund) error {
	rec := toRefundModel(refund)
	if err := r.db.WithContext(ctx).Create(&rec).Error; err != nil {
		if isUniqueViolation(err) {
			return domain.ErrConflict
		}
		return err
	}
	return nil
}

func (r *refundRepository) Update(ctx context.Context, refund domain.Refund) error {
	rec := toRefundModel(refund)
	res := r.db.WithContext(ctx).Model(&refundModel{}).Where("refund_id = ?", rec.RefundID).Updates(map[string]any{
		"status":                  rec.Status,
		"provider_transaction_id": rec.ProviderTransactionID,
		"failure_reason":          rec.FailureReason,
		"retry_count":             rec.RetryCount,
		"completed_at":            rec.CompletedAt,
		"updated_at":              rec.UpdatedAt,
	})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *refundRepository) GetByID(ctx context.Context, refundID string) (domain.Refund, error) {
	var rec refundModel
	if err := r.db.WithContext(ctx).Where("refund_id = ?", refundID).Take(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Refund{}, domain.ErrNotFound
		}
		return domain.Refund{}, err
	}
	return toDomainRefund(rec), nil
}

func (r *refundRepository) GetByIdempotencyKey(ctx context.Context, key string) (domain.Refund, error) {
	var rec refundModel
	if err := r.db.WithContext(ctx).Where("idempotency_key = ?", key).Take(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Refund{}, domain.ErrNotFound
		}
		return domain.Refund{}, err
	}
	return toDomainRefund(rec), nil
}

func (r *refundRepository) ListRetryable(ctx context.Context) ([]domain.Refund, error) {
	var recs []refundModel
	if err := r.db.WithContext(ctx).
		Where("status = ? AND retry_count < max_retries", string(domain.RefundStatusFailed)).
		Order("created_at ASC").
		Find(&recs).Error; err != nil {
		return nil, err
	}
	out := make([]domain.Refund, 0, len(recs))
	for _, rec := range recs {
		out = append(out, toDomainRefund(rec))
	}
	return out, nil
}

type invoiceRepository struct {
	db *gorm.DB
}

func (r *invoiceRepository) Create(ctx context.Context, invoice domain.CommissionInvoice) error {
	rec, err := toInvoiceModel(invoice)
	if err != nil {
		return err
	}
	if err := r.db.WithContext(ctx).Create(&rec).Error; err != nil {
		if isUniqueViolation(err) {
			return domain.ErrConflict
		}
		return err
	}
	return nil
}

func (r *invoiceRepository) GetByID(ctx context.Context, invoiceID string) (domain.CommissionInvoice, error) {
	var rec commissionInvoiceModel
	if err := r.db.WithContext(ctx).Where("invoice_id = ?", invoiceID).Take(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.CommissionInvoice{}, domain.ErrNotFound
		}
		return domain.CommissionInvoice{}, err
	}
	return toDomainInvoice(rec), nil
}

func (r *invoiceRepository) ListBySettlement(ctx context.Context, settlementID string) ([]domain.CommissionInvoice, error) {
	var recs []commissionInvoiceModel
	if err := r.db.WithContext(ctx).
		Where("settlement_id = ?", settlementID).
		Order("issued_at ASC").
		Find(&recs).Error; err != nil {
		return nil, err
	}
	out := make([]domain.CommissionInvoice, 0, len(recs))
	for _, rec := range recs {
		out = append(out, toDomainInvoice(rec))
	}
	return out, nil
}

type idempotencyRepository struct {
	db *gorm.DB
}

func (r *idempotencyRepository) Get(ctx context.Context, key string, now time.Time) (*ports.IdempotencyRecord, error) {
	var rec idempotencyModel
	if err := r.db.WithContext(ctx).Where("idempotency_key = ?", key).Take(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	if now.After(rec.ExpiresAt) {
		_ = r.db.WithContext(ctx).Where("idempotency_key = ?", key).Delete(&idempotencyModel{}).Error
		return nil, nil
	}
	return &ports.IdempotencyRecord{
		Key:          rec.IdempotencyKey,
		RequestHash:  rec.RequestHash,
		ResponseCode: rec.ResponseCode,
		ResponseBody: rec.ResponseBody,
		ExpiresAt:    rec.ExpiresAt,
	}, nil
}

func (r *idempotencyRepository) Reserve(ctx context.Context, key, requestHash string, expiresAt time.Time) error {
	rec := idempotencyModel{
		IdempotencyKey: key,
		RequestHash:    requestHash,
		ExpiresAt:      expiresAt,
	}
	if err := r.db.WithContext(ctx).Create(&rec).Error; err != nil {
		if isUniqueViolation(err) || errors.Is(err, gorm.ErrDuplicatedKey) {
			var existing idempotencyModel
			if lookupErr := r.db.WithContext(ctx).Where("idempotency_key = ?", key).Take(&existing).Error; lookupErr == nil && existing.RequestHash == requestHash {
				return nil
			}
			return domain.ErrConflict
		}
		return err
	}
	return nil
}

func (r *idempotencyRepository) Complete(ctx context.Context, key string, responseCode int, responseBody []byte, _ time.Time) error {
	res := r.db.WithContext(ctx).Model(&idempotencyModel{}).Where("idempotency_key = ?", key).Updates(map[string]any{
		"response_code": responseCode,
		"response_body": responseBody,
	})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

type eventDedupRepository struct {
	db *gorm.DB
}

func (r *eventDedupRepository) IsDuplicate(ctx context.Context, eventID string, now time.Time) (bool, error) {
	var rec eventDedupModel
	if err := r.db.WithContext(ctx).Where("event_id = ?", eventID).Take(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, err
	}
	if now.After(rec.ExpiresAt) {
		_ = r.db.WithContext(ctx).Where("event_id = ?", eventID).Delete(&eventDedupModel{}).Error
		return false, nil
	}
	return true, nil
}

func (r *eventDedupRepository) MarkProcessed(ctx context.Context, eventID, eventType string, expiresAt time.Time) error {
	rec := eventDedupModel{
		EventID:   eventID,
		EventType: eventType,
		ExpiresAt: expiresAt,
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "event_id"}},
		UpdateAll: true,
	}).Create(&rec).Error
}

type outboxRepository struct {
	db *gorm.DB
}

func (r *outboxRepository) Enqueue(ctx context.Context, record ports.OutboxRecord) error {
	rec, err := toOutboxModel(record)
	if err != nil {
		return err
	}
	if err := r.db.WithContext(ctx).Create(&rec).Error; err != nil {
		if isUniqueViolation(err) {
			return domain.ErrConflict
		}
		return err
	}
	return nil
}

func (r *outboxRepository) ListPending(ctx context.Context, limit int) ([]ports.OutboxRecord, error) {
	if limit <= 0 {
		limit = 100
	}
	var recs []outboxModel
	if err := r.db.WithContext(ctx).
		Where("sent_at IS NULL").
		Order("created_at ASC").
		Limit(limit).
		Find(&recs).Error; err != nil {
		return nil, err
	}
	out := make([]ports.OutboxRecord, 0, len(recs))
	for _, rec := range recs {
		record, err := toPortsOutbox(rec)
		if err != nil {
			return nil, err
		}
		out = append(out, record)
	}
	return out, nil
}

func (r *outboxRepository) MarkSent(ctx context.Context, recordID string, at time.Time) error {
	res := r.db.WithContext(ctx).Model(&outboxModel{}).Where("record_id = ?", recordID).Update("sent_at", at)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}
