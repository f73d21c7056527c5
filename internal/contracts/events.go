package contracts

import (
	"encoding/json"
	"time"
)

type EventEnvelope struct {
	EventID          string          `json:"event_id"`
	EventType        string          `json:"event_type"`
	EventClass       string          `json:"event_class,omitempty"`
	OccurredAt       time.Time       `json:"occurred_at"`
	PartitionKeyPath string          `json:"partition_key_path"`
	PartitionKey     string          `json:"partition_key"`
	SourceService    string          `json:"source_service"`
	TraceID          string          `json:"trace_id"`
	SchemaVersion    string          `json:"schema_version"`
	Data             json.RawMessage `json:"data"`
}

// OrderPaymentConfirmedPayload arrives from the order service when a
// buyer's payment is captured; it seeds the escrow payment and its
// per-shipment allocations.
type OrderPaymentConfirmedPayload struct {
	OrderID     string                     `json:"order_id"`
	BuyerID     string                     `json:"buyer_id"`
	TotalAmount string                     `json:"total_amount"`
	Currency    string                     `json:"currency"`
	Shipments   []OrderShipmentPayload     `json:"shipments"`
}

type OrderShipmentPayload struct {
	ShipmentID     string `json:"shipment_id"`
	StoreID        string `json:"store_id"`
	CategoryID     string `json:"category_id,omitempty"`
	SellerAmount   string `json:"seller_amount"`
	ShippingAmount string `json:"shipping_amount"`
}

type ShipmentDeliveredPayload struct {
	OrderID     string `json:"order_id"`
	ShipmentID  string `json:"shipment_id"`
	DeliveredAt string `json:"delivered_at"`
}

type EscrowPaymentCreatedPayload struct {
	PaymentID   string `json:"payment_id"`
	OrderID     string `json:"order_id"`
	BuyerID     string `json:"buyer_id"`
	TotalAmount string `json:"total_amount"`
	Currency    string `json:"currency"`
	Allocations int    `json:"allocations"`
	CreatedAt   string `json:"created_at"`
}

type AllocationReleasedPayload struct {
	PaymentID       string `json:"payment_id"`
	AllocationID    string `json:"allocation_id"`
	ShipmentID      string `json:"shipment_id"`
	StoreID         string `json:"store_id"`
	Amount          string `json:"amount"`
	PayoutReference string `json:"payout_reference"`
	ReleasedAt      string `json:"released_at"`
}

type RefundAppliedPayload struct {
	PaymentID    string `json:"payment_id"`
	AllocationID string `json:"allocation_id,omitempty"`
	ShipmentID   string `json:"shipment_id,omitempty"`
	Amount       string `json:"amount"`
	Reference    string `json:"reference"`
	AppliedAt    string `json:"applied_at"`
}

type PayoutStatePayload struct {
	PayoutID     string `json:"payout_id"`
	PayoutNumber string `json:"payout_number"`
	StoreID      string `json:"store_id"`
	Currency     string `json:"currency"`
	Amount       string `json:"amount"`
	Items        int    `json:"items"`
	Reference    string `json:"reference,omitempty"`
	Reason       string `json:"reason,omitempty"`
	RetryCount   int    `json:"retry_count,omitempty"`
	OccurredAt   string `json:"occurred_at"`
}

type RefundStatePayload struct {
	RefundID              string `json:"refund_id"`
	OrderID               string `json:"order_id"`
	PaymentID             string `json:"payment_id"`
	Amount                string `json:"amount"`
	Currency              string `json:"currency"`
	ProviderTransactionID string `json:"provider_transaction_id,omitempty"`
	Reason                string `json:"reason,omitempty"`
	RetryCount            int    `json:"retry_count,omitempty"`
	OccurredAt            string `json:"occurred_at"`
}

type SettlementStatePayload struct {
	SettlementID     string `json:"settlement_id"`
	SettlementNumber string `json:"settlement_number"`
	StoreID          string `json:"store_id"`
	Year             int    `json:"year"`
	Month            int    `json:"month"`
	Version          int    `json:"version"`
	NetPayable       string `json:"net_payable"`
	ApprovedBy       string `json:"approved_by,omitempty"`
	OccurredAt       string `json:"occurred_at"`
}

type InvoiceIssuedPayload struct {
	InvoiceID     string `json:"invoice_id"`
	InvoiceNumber string `json:"invoice_number"`
	DocType       string `json:"doc_type"`
	SettlementID  string `json:"settlement_id"`
	StoreID       string `json:"store_id"`
	NetAmount     string `json:"net_amount"`
	IssuedAt      string `json:"issued_at"`
}

type DLQRecord struct {
	OriginalEvent EventEnvelope `json:"original_event"`
	ErrorSummary  string        `json:"error_summary"`
	RetryCount    int           `json:"retry_count"`
	FirstSeenAt   time.Time     `json:"first_seen_at"`
	LastErrorAt   time.Time     `json:"last_error_at"`
	SourceTopic   string        `json:"source_topic,omitempty"`
	TraceID       string        `json:"trace_id,omitempty"`
}
