package postgres

import (
	"encoding/json"

	"github.com/vendora/marketplace-ledger/internal/contracts"
	"github.com/vendora/marketplace-ledger/internal/domain"
	"github.com/vendora/marketplace-ledger/internal/ports"
)

func toPaymentModel(p domain.EscrowPayment) escrowPaymentModel {
	return escrowPaymentModel{
		PaymentID:      p.PaymentID,
		OrderID:        p.OrderID,
		BuyerID:        p.BuyerID,
		Currency:       p.Currency,
		TotalAmount:    p.TotalAmount,
		ReleasedAmount: p.ReleasedAmount,
		RefundedAmount: p.RefundedAmount,
		Status:         string(p.Status),
		CreatedAt:      p.CreatedAt,
		UpdatedAt:      p.UpdatedAt,
	}
}

func toDomainPayment(rec escrowPaymentModel, allocations []escrowAllocationModel) domain.EscrowPayment {
	out := domain.EscrowPayment{
		PaymentID:      rec.PaymentID,
		OrderID:        rec.OrderID,
		BuyerID:        rec.BuyerID,
		Currency:       rec.Currency,
		TotalAmount:    rec.TotalAmount,
		ReleasedAmount: rec.ReleasedAmount,
		RefundedAmount: rec.RefundedAmount,
		Status:         domain.EscrowStatus(rec.Status),
		CreatedAt:      rec.CreatedAt,
		UpdatedAt:      rec.UpdatedAt,
	}
	for _, a := range allocations {
		out.Allocations = append(out.Allocations, toDomainAllocation(a))
	}
	return out
}

func toAllocationModel(a domain.EscrowAllocation) escrowAllocationModel {
	return escrowAllocationModel{
		AllocationID:             a.AllocationID,
		PaymentID:                a.PaymentID,
		OrderID:                  a.OrderID,
		StoreID:                  a.StoreID,
		ShipmentID:               a.ShipmentID,
		Currency:                 a.Currency,
		SellerAmount:             a.SellerAmount,
		ShippingAmount:           a.ShippingAmount,
		CommissionRate:           a.CommissionRate,
		CommissionAmount:         a.CommissionAmount,
		SellerPayout:             a.SellerPayout,
		RefundedAmount:           a.RefundedAmount,
		RefundedSellerAmount:     a.RefundedSellerAmount,
		RefundedCommissionAmount: a.RefundedCommissionAmount,
		Status:                   string(a.Status),
		IsEligibleForPayout:      a.IsEligibleForPayout,
		PayoutReference:          a.PayoutReference,
		RefundReference:          a.RefundReference,
		CreatedAt:                a.CreatedAt,
		UpdatedAt:                a.UpdatedAt,
	}
}

func toDomainAllocation(rec escrowAllocationModel) domain.EscrowAllocation {
	return domain.EscrowAllocation{
		AllocationID:             rec.AllocationID,
		PaymentID:                rec.PaymentID,
		OrderID:                  rec.OrderID,
		StoreID:                  rec.StoreID,
		ShipmentID:               rec.ShipmentID,
		Currency:                 rec.Currency,
		SellerAmount:             rec.SellerAmount,
		ShippingAmount:           rec.ShippingAmount,
		CommissionRate:           rec.CommissionRate,
		CommissionAmount:         rec.CommissionAmount,
		SellerPayout:             rec.SellerPayout,
		RefundedAmount:           rec.RefundedAmount,
		RefundedSellerAmount:     rec.RefundedSellerAmount,
		RefundedCommissionAmount: rec.RefundedCommissionAmount,
		Status:                   domain.AllocationStatus(rec.Status),
		IsEligibleForPayout:      rec.IsEligibleForPayout,
		PayoutReference:          rec.PayoutReference,
		RefundReference:          rec.RefundReference,
		CreatedAt:                rec.CreatedAt,
		UpdatedAt:                rec.UpdatedAt,
	}
}

func toLedgerModel(e domain.LedgerEntry) ledgerEntryModel {
	rec := ledgerEntryModel{
		EntryID:    e.EntryID,
		PaymentID:  e.PaymentID,
		StoreID:    e.StoreID,
		EntryType:  e.EntryType,
		Amount:     e.Amount,
		Currency:   e.Currency,
		OccurredAt: e.OccurredAt,
	}
	if e.AllocationID != "" {
		id := e.AllocationID
		rec.AllocationID = &id
	}
	return rec
}

func toDomainLedger(rec ledgerEntryModel) domain.LedgerEntry {
	out := domain.LedgerEntry{
		EntryID:    rec.EntryID,
		PaymentID:  rec.PaymentID,
		StoreID:    rec.StoreID,
		EntryType:  rec.EntryType,
		Amount:     rec.Amount,
		Currency:   rec.Currency,
		OccurredAt: rec.OccurredAt,
	}
	if rec.AllocationID != nil {
		out.AllocationID = *rec.AllocationID
	}
	return out
}

func toRuleModel(r domain.CommissionRule) commissionRuleModel {
	return commissionRuleModel{
		RuleID:        r.RuleID,
		Scope:         string(r.Scope),
		StoreID:       r.StoreID,
		CategoryID:    r.CategoryID,
		Rate:          r.Rate,
		IsActive:      r.IsActive,
		EffectiveFrom: r.EffectiveFrom,
		EffectiveTo:   r.EffectiveTo,
		CreatedAt:     r.CreatedAt,
	}
}

func toDomainRule(rec commissionRuleModel) domain.CommissionRule {
	return domain.CommissionRule{
		RuleID:        rec.RuleID,
		Scope:         domain.CommissionScope(rec.Scope),
		StoreID:       rec.StoreID,
		CategoryID:    rec.CategoryID,
		Rate:          rec.Rate,
		IsActive:      rec.IsActive,
		EffectiveFrom: rec.EffectiveFrom,
		EffectiveTo:   rec.EffectiveTo,
		CreatedAt:     rec.CreatedAt,
	}
}

func toPayoutModel(p domain.SellerPayout) sellerPayoutModel {
	return sellerPayoutModel{
		PayoutID:          p.PayoutID,
		PayoutNumber:      p.PayoutNumber,
		StoreID:           p.StoreID,
		Currency:          p.Currency,
		ScheduledDate:     p.ScheduledDate,
		TotalAmount:       p.TotalAmount,
		Status:            string(p.Status),
		RetryCount:        p.RetryCount,
		MaxRetries:        p.MaxRetries,
		NextRetryAt:       p.NextRetryAt,
		ProviderReference: p.ProviderReference,
		FailureReason:     p.FailureReason,
		ProcessingAt:      p.ProcessingAt,
		PaidAt:            p.PaidAt,
		FailedAt:          p.FailedAt,
		CreatedAt:         p.CreatedAt,
		UpdatedAt:         p.UpdatedAt,
	}
}

func toDomainPayout(rec sellerPayoutModel, items []sellerPayoutItemModel) domain.SellerPayout {
	out := domain.SellerPayout{
		PayoutID:          rec.PayoutID,
		PayoutNumber:      rec.PayoutNumber,
		StoreID:           rec.StoreID,
		Currency:          rec.Currency,
		ScheduledDate:     rec.ScheduledDate,
		TotalAmount:       rec.TotalAmount,
		Status:            domain.PayoutStatus(rec.Status),
		RetryCount:        rec.RetryCount,
		MaxRetries:        rec.MaxRetries,
		NextRetryAt:       rec.NextRetryAt,
		ProviderReference: rec.ProviderReference,
		FailureReason:     rec.FailureReason,
		ProcessingAt:      rec.ProcessingAt,
		PaidAt:            rec.PaidAt,
		FailedAt:          rec.FailedAt,
		CreatedAt:         rec.CreatedAt,
		UpdatedAt:         rec.UpdatedAt,
	}
	for _, item := range items {
		out.Items = append(out.Items, domain.SellerPayoutItem{
			ItemID:       item.ItemID,
			PayoutID:     item.PayoutID,
			PaymentID:    item.PaymentID,
			AllocationID: item.AllocationID,
			ShipmentID:   item.ShipmentID,
			Amount:       item.Amount,
			CreatedAt:    item.CreatedAt,
		})
	}
	return out
}

func toSettlementModel(s domain.Settlement) settlementModel {
	return settlementModel{
		SettlementID:     s.SettlementID,
		SettlementNumber: s.SettlementNumber,
		StoreID:          s.StoreID,
		Year:             s.Year,
		Month:            s.Month,
		Version:          s.Version,
		Currency:         s.Currency,
		GrossSales:       s.GrossSales,
		TotalShipping:    s.TotalShipping,
		TotalCommission:  s.TotalCommission,
		TotalRefunds:     s.TotalRefunds,
		TotalAdjustments: s.TotalAdjustments,
		NetPayable:       s.NetPayable,
		Status:           string(s.Status),
		ApprovedBy:       s.ApprovedBy,
		FinalizedAt:      s.FinalizedAt,
		ApprovedAt:       s.ApprovedAt,
		ExportedAt:       s.ExportedAt,
		CreatedAt:        s.CreatedAt,
		UpdatedAt:        s.UpdatedAt,
	}
}

func toDomainSettlement(rec settlementModel, items []settlementItemModel, adjustments []settlementAdjustmentModel) domain.Settlement {
	out := domain.Settlement{
		SettlementID:     rec.SettlementID,
		SettlementNumber: rec.SettlementNumber,
		StoreID:          rec.StoreID,
		Year:             rec.Year,
		Month:            rec.Month,
		Version:          rec.Version,
		Currency:         rec.Currency,
		GrossSales:       rec.GrossSales,
		TotalShipping:    rec.TotalShipping,
		TotalCommission:  rec.TotalCommission,
		TotalRefunds:     rec.TotalRefunds,
		TotalAdjustments: rec.TotalAdjustments,
		NetPayable:       rec.NetPayable,
		Status:           domain.SettlementStatus(rec.Status),
		ApprovedBy:       rec.ApprovedBy,
		FinalizedAt:      rec.FinalizedAt,
		ApprovedAt:       rec.ApprovedAt,
		ExportedAt:       rec.ExportedAt,
		CreatedAt:        rec.CreatedAt,
		UpdatedAt:        rec.UpdatedAt,
	}
	for _, item := range items {
		out.Items = append(out.Items, domain.SettlementItem{
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
		})
	}
	for _, adj := range adjustments {
		out.Adjustments = append(out.Adjustments, domain.SettlementAdjustment{
			AdjustmentID: adj.AdjustmentID,
			SettlementID: adj.SettlementID,
			Amount:       adj.Amount,
			Reason:       adj.Reason,
			SourceYear:   adj.SourceYear,
			SourceMonth:  adj.SourceMonth,
			CreatedAt:    adj.CreatedAt,
		})
	}
	return out
}

func toRefundModel(r domain.Refund) refundModel {
	return refundModel{
		RefundID:              r.RefundID,
		OrderID:               r.OrderID,
		PaymentID:             r.PaymentID,
		ShipmentID:            r.ShipmentID,
		BuyerID:               r.BuyerID,
		Amount:                r.Amount,
		Currency:              r.Currency,
		Reason:                r.Reason,
		Status:                string(r.Status),
		IdempotencyKey:        r.IdempotencyKey,
		ProviderTransactionID: r.ProviderTransactionID,
		FailureReason:         r.FailureReason,
		RetryCount:            r.RetryCount,
		MaxRetries:            r.MaxRetries,
		CompletedAt:           r.CompletedAt,
		CreatedAt:             r.CreatedAt,
		UpdatedAt:             r.UpdatedAt,
	}
}

func toDomainRefund(rec refundModel) domain.Refund {
	return domain.Refund{
		RefundID:              rec.RefundID,
		OrderID:               rec.OrderID,
		PaymentID:             rec.PaymentID,
		ShipmentID:            rec.ShipmentID,
		BuyerID:               rec.BuyerID,
		Amount:                rec.Amount,
		Currency:              rec.Currency,
		Reason:                rec.Reason,
		Status:                domain.RefundStatus(rec.Status),
		IdempotencyKey:        rec.IdempotencyKey,
		ProviderTransactionID: rec.ProviderTransactionID,
		FailureReason:         rec.FailureReason,
		RetryCount:            rec.RetryCount,
		MaxRetries:            rec.MaxRetries,
		CompletedAt:           rec.CompletedAt,
		CreatedAt:             rec.CreatedAt,
		UpdatedAt:             rec.UpdatedAt,
	}
}

func toInvoiceModel(inv domain.CommissionInvoice) (commissionInvoiceModel, error) {
	lines, err := json.Marshal(inv.Lines)
	if err != nil {
		return commissionInvoiceModel{}, err
	}
	return commissionInvoiceModel{
		InvoiceID:        inv.InvoiceID,
		InvoiceNumber:    inv.InvoiceNumber,
		DocType:          string(inv.DocType),
		SettlementID:     inv.SettlementID,
		SettlementNumber: inv.SettlementNumber,
		StoreID:          inv.StoreID,
		PeriodYear:       inv.PeriodYear,
		PeriodMonth:      inv.PeriodMonth,
		Currency:         inv.Currency,
		NetAmount:        inv.NetAmount,
		Lines:            lines,
		Status:           string(inv.Status),
		IssuedAt:         inv.IssuedAt,
		VoidedAt:         inv.VoidedAt,
	}, nil
}

func toDomainInvoice(rec commissionInvoiceModel) domain.CommissionInvoice {
	out := domain.CommissionInvoice{
		InvoiceID:        rec.InvoiceID,
		InvoiceNumber:    rec.InvoiceNumber,
		DocType:          domain.BillingDocType(rec.DocType),
		SettlementID:     rec.SettlementID,
		SettlementNumber: rec.SettlementNumber,
		StoreID:          rec.StoreID,
		PeriodYear:       rec.PeriodYear,
		PeriodMonth:      rec.PeriodMonth,
		Currency:         rec.Currency,
		NetAmount:        rec.NetAmount,
		Status:           domain.BillingDocStatus(rec.Status),
		IssuedAt:         rec.IssuedAt,
		VoidedAt:         rec.VoidedAt,
	}
	_ = json.Unmarshal(rec.Lines, &out.Lines)
	return out
}

func toOutboxModel(rec ports.OutboxRecord) (outboxModel, error) {
	envelope, err := json.Marshal(rec.Envelope)
	if err != nil {
		return outboxModel{}, err
	}
	return outboxModel{
		RecordID:   rec.RecordID,
		EventClass: rec.EventClass,
		Envelope:   envelope,
		CreatedAt:  rec.CreatedAt,
		SentAt:     rec.SentAt,
	}, nil
}

func toPortsOutbox(rec outboxModel) (ports.OutboxRecord, error) {
	var envelope contracts.EventEnvelope
	if err := json.Unmarshal(rec.Envelope, &envelope); err != nil {
		return ports.OutboxRecord{}, err
	}
	return ports.OutboxRecord{
		RecordID:   rec.RecordID,
		EventClass: rec.EventClass,
		Envelope:   envelope,
		CreatedAt:  rec.CreatedAt,
		SentAt:     rec.SentAt,
	}, nil
}
