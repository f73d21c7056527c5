package domain

const (
	CanonicalEventClassDomain        = "domain"
	CanonicalEventClassAnalyticsOnly = "analytics_only"
	CanonicalEventClassOps           = "ops"
)

// Input events consumed from the order/shipment service.
const (
	EventOrderPaymentConfirmed = "order.payment_confirmed"
	EventShipmentDelivered     = "shipment.delivered"
)

// Events emitted by the ledger.
const (
	EventEscrowPaymentCreated     = "escrow.payment_created"
	EventEscrowAllocationReleased = "escrow.allocation_released"
	EventEscrowRefundApplied      = "escrow.refund_applied"
	EventPayoutScheduled          = "payout.scheduled"
	EventPayoutProcessing         = "payout.processing"
	EventPayoutPaid               = "payout.paid"
	EventPayoutFailed             = "payout.failed"
	EventRefundCompleted          = "refund.completed"
	EventRefundFailed             = "refund.failed"
	EventSettlementGenerated      = "settlement.generated"
	EventSettlementFinalized      = "settlement.finalized"
	EventSettlementApproved       = "settlement.approved"
	EventSettlementExported       = "settlement.exported"
	EventInvoiceIssued            = "billing.invoice_issued"
)

func IsCanonicalInputEvent(eventType string) bool {
	switch eventType {
	case EventOrderPaymentConfirmed, EventShipmentDelivered:
		return true
	default:
		return false
	}
}

func IsCanonicalEmittedEvent(eventType string) bool {
	switch eventType {
	case EventEscrowPaymentCreated, EventEscrowAllocationReleased, EventEscrowRefundApplied,
		EventPayoutScheduled, EventPayoutProcessing, EventPayoutPaid, EventPayoutFailed,
		EventRefundCompleted, EventRefundFailed,
		EventSettlementGenerated, EventSettlementFinalized, EventSettlementApproved, EventSettlementExported,
		EventInvoiceIssued:
		return true
	default:
		return false
	}
}

func CanonicalEventClass(eventType string) string {
	switch eventType {
	case EventEscrowPaymentCreated, EventEscrowAllocationReleased, EventEscrowRefundApplied,
		EventPayoutPaid, EventPayoutFailed, EventRefundCompleted, EventRefundFailed,
		EventSettlementFinalized, EventSettlementApproved, EventInvoiceIssued:
		return CanonicalEventClassDomain
	case EventPayoutScheduled, EventPayoutProcessing, EventSettlementGenerated, EventSettlementExported:
		return CanonicalEventClassAnalyticsOnly
	default:
		return ""
	}
}

func CanonicalPartitionKeyPath(eventType string) string {
	switch eventType {
	case EventEscrowPaymentCreated, EventEscrowAllocationReleased, EventEscrowRefundApplied:
		return "data.payment_id"
	case EventPayoutScheduled, EventPayoutProcessing, EventPayoutPaid, EventPayoutFailed:
		return "data.payout_id"
	case EventRefundCompleted, EventRefundFailed:
		return "data.refund_id"
	case EventSettlementGenerated, EventSettlementFinalized, EventSettlementApproved, EventSettlementExported:
		return "data.settlement_id"
	case EventInvoiceIssued:
		return "data.invoice_id"
	default:
		return ""
	}
}
