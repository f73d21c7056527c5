package postgres

import (
	"time"

	"github.com/shopspring/decimal"
)

type escrowPaymentModel struct {
	PaymentID      string          `gorm:"column:payment_id;type:uuid;primaryKey"`
	OrderID        string          `gorm:"column:order_id;uniqueIndex"`
	BuyerID        string          `gorm:"column:buyer_id"`
	Currency       string          `gorm:"column:currency"`
	TotalAmount    decimal.Decimal `gorm:"column:total_amount;type:numeric(18,4)"`
	ReleasedAmount decimal.Decimal `gorm:"column:released_amount;type:numeric(18,4)"`
	RefundedAmount decimal.Decimal `gorm:"column:refunded_amount;type:numeric(18,4)"`
	Status         string          `gorm:"column:status"`
	CreatedAt      time.Time       `gorm:"column:created_at"`
	UpdatedAt      time.Time       `gorm:"column:updated_at"`
}

func (escrowPaymentModel) TableName() string { return "escrow_payments" }

type escrowAllocationModel struct {
	AllocationID             string          `gorm:"column:allocation_id;type:uuid;primaryKey"`
	PaymentID                string          `gorm:"column:payment_id;type:uuid"`
	OrderID                  string          `gorm:"column:order_id"`
	StoreID                  string          `gorm:"column:store_id"`
	ShipmentID               string          `gorm:"column:shipment_id"`
	Currency                 string          `gorm:"column:currency"`
	SellerAmount             decimal.Decimal `gorm:"column:seller_amount;type:numeric(18,4)"`
	ShippingAmount           decimal.Decimal `gorm:"column:shipping_amount;type:numeric(18,4)"`
	CommissionRate           decimal.Decimal `gorm:"column:commission_rate;type:numeric(7,4)"`
	CommissionAmount         decimal.Decimal `gorm:"column:commission_amount;type:numeric(18,4)"`
	SellerPayout             decimal.Decimal `gorm:"column:seller_payout;type:numeric(18,4)"`
	RefundedAmount           decimal.Decimal `gorm:"column:refunded_amount;type:numeric(18,4)"`
	RefundedSellerAmount     decimal.Decimal `gorm:"column:refunded_seller_amount;type:numeric(18,4)"`
	RefundedCommissionAmount decimal.Decimal `gorm:"column:refunded_commission_amount;type:numeric(18,4)"`
	Status                   string          `gorm:"column:status"`
	IsEligibleForPayout      bool            `gorm:"column:is_eligible_for_payout"`
	PayoutReference          string          `gorm:"column:payout_reference"`
	RefundReference          string          `gorm:"column:refund_reference"`
	CreatedAt                time.Time       `gorm:"column:created_at"`
	UpdatedAt                time.Time       `gorm:"column:updated_at"`
}

func (escrowAllocationModel) TableName() string { return "escrow_allocations" }

type ledgerEntryModel struct {
	EntryID      string          `gorm:"column:entry_id;type:uuid;primaryKey"`
	PaymentID    string          `gorm:"column:payment_id;type:uuid"`
	AllocationID *string         `gorm:"column:allocation_id;type:uuid"`
	StoreID      string          `gorm:"column:store_id"`
	EntryType    string          `gorm:"column:entry_type"`
	Amount       decimal.Decimal `gorm:"column:amount;type:numeric(18,4)"`
	Currency     string          `gorm:"column:currency"`
	OccurredAt   time.Time       `gorm:"column:occurred_at"`
}

func (ledgerEntryModel) TableName() string { return "ledger_entries" }

type commissionRuleModel struct {
	RuleID        string          `gorm:"column:rule_id;type:uuid;primaryKey"`
	Scope         string          `gorm:"column:scope"`
	StoreID       string          `gorm:"column:store_id"`
	CategoryID    string          `gorm:"column:category_id"`
	Rate          decimal.Decimal `gorm:"column:rate;type:numeric(7,4)"`
	IsActive      bool            `gorm:"column:is_active"`
	EffectiveFrom *time.Time      `gorm:"column:effective_from"`
	EffectiveTo   *time.Time      `gorm:"column:effective_to"`
	CreatedAt     time.Time       `gorm:"column:created_at"`
}

func (commissionRuleModel) TableName() string { return "commission_rules" }

type sellerPayoutModel struct {
	PayoutID          string          `gorm:"column:payout_id;type:uuid;primaryKey"`
	PayoutNumber      string          `gorm:"column:payout_number"`
	StoreID           string          `gorm:"column:store_id"`
	Currency          string          `gorm:"column:currency"`
	ScheduledDate     time.Time       `gorm:"column:scheduled_date"`
	TotalAmount       decimal.Decimal `gorm:"column:total_amount;type:numeric(18,4)"`
	Status            string          `gorm:"column:status"`
	RetryCount        int             `gorm:"column:retry_count"`
	MaxRetries        int             `gorm:"column:max_retries"`
	NextRetryAt       *time.Time      `gorm:"column:next_retry_at"`
	ProviderReference string          `gorm:"column:provider_reference"`
	FailureReason     string          `gorm:"column:failure_reason"`
	ProcessingAt      *time.Time      `gorm:"column:processing_at"`
	PaidAt            *time.Time      `gorm:"column:paid_at"`
	FailedAt          *time.Time      `gorm:"column:failed_at"`
	CreatedAt         time.Time       `gorm:"column:created_at"`
	UpdatedAt         time.Time       `gorm:"column:updated_at"`
}

func (sellerPayoutModel) TableName() string { return "seller_payouts" }

type sellerPayoutItemModel struct {
	ItemID       string          `gorm:"column:item_id;type:uuid;primaryKey"`
	PayoutID     string          `gorm:"column:payout_id;type:uuid"`
	PaymentID    string          `gorm:"column:payment_id;type:uuid"`
	AllocationID string          `gorm:"column:allocation_id;type:uuid"`
	ShipmentID   string          `gorm:"column:shipment_id"`
	Amount       decimal.Decimal `gorm:"column:amount;type:numeric(18,4)"`
	CreatedAt    time.Time       `gorm:"column:created_at"`
}

func (sellerPayoutItemModel) TableName() string { return "seller_payout_items" }

type payoutClaimModel struct {
	AllocationID string    `gorm:"column:allocation_id;type:uuid;primaryKey"`
	PayoutID     string    `gorm:"column:payout_id;type:uuid"`
	ClaimedAt    time.Time `gorm:"column:claimed_at"`
}

func (payoutClaimModel) TableName() string { return "payout_allocation_claims" }

type settlementModel struct {
	SettlementID     string          `gorm:"column:settlement_id;type:uuid;primaryKey"`
	SettlementNumber string          `gorm:"column:settlement_number;uniqueIndex"`
	StoreID          string          `gorm:"column:store_id"`
	Year             int             `gorm:"column:year"`
	Month            int             `gorm:"column:month"`
	Version          int             `gorm:"column:version"`
	Currency         string          `gorm:"column:currency"`
	GrossSales       decimal.Decimal `gorm:"column:gross_sales;type:numeric(18,4)"`
	TotalShipping    decimal.Decimal `gorm:"column:total_shipping;type:numeric(18,4)"`
	TotalCommission  decimal.Decimal `gorm:"column:total_commission;type:numeric(18,4)"`
	TotalRefunds     decimal.Decimal `gorm:"column:total_refunds;type:numeric(18,4)"`
	TotalAdjustments decimal.Decimal `gorm:"column:total_adjustments;type:numeric(18,4)"`
	NetPayable       decimal.Decimal `gorm:"column:net_payable;type:numeric(18,4)"`
	Status           string          `gorm:"column:status"`
	ApprovedBy       string          `gorm:"column:approved_by"`
	FinalizedAt      *time.Time      `gorm:"column:finalized_at"`
	ApprovedAt       *time.Time      `gorm:"column:approved_at"`
	ExportedAt       *time.Time      `gorm:"column:exported_at"`
	CreatedAt        time.Time       `gorm:"column:created_at"`
	UpdatedAt        time.Time       `gorm:"column:updated_at"`
}

func (settlementModel) TableName() string { return "settlements" }

type settlementItemModel struct {
	ItemID           string          `gorm:"column:item_id;type:uuid;primaryKey"`
	SettlementID     string          `gorm:"column:settlement_id;type:uuid"`
	AllocationID     string          `gorm:"column:allocation_id;type:uuid"`
	OrderID          string          `gorm:"column:order_id"`
	ShipmentID       string          `gorm:"column:shipment_id"`
	GrossAmount      decimal.Decimal `gorm:"column:gross_amount;type:numeric(18,4)"`
	ShippingAmount   decimal.Decimal `gorm:"column:shipping_amount;type:numeric(18,4)"`
	CommissionAmount decimal.Decimal `gorm:"column:commission_amount;type:numeric(18,4)"`
	RefundedAmount   decimal.Decimal `gorm:"column:refunded_amount;type:numeric(18,4)"`
	CreatedAt        time.Time       `gorm:"column:created_at"`
}

func (settlementItemModel) TableName() string { return "settlement_items" }

type settlementAdjustmentModel struct {
	AdjustmentID string          `gorm:"column:adjustment_id;type:uuid;primaryKey"`
	SettlementID string          `gorm:"column:settlement_id;type:uuid"`
	Amount       decimal.Decimal `gorm:"column:amount;type:numeric(18,4)"`
	Reason       string          `gorm:"column:reason"`
	SourceYear   int             `gorm:"column:source_year"`
	SourceMonth  int             `gorm:"column:source_month"`
	CreatedAt    time.Time       `gorm:"column:created_at"`
}

func (settlementAdjustmentModel) TableName() string { return "settlement_adjustments" }

type refundModel struct {
	RefundID              string          `gorm:"column:refund_id;type:uuid;primaryKey"`
	OrderID               string          `gorm:"column:order_id"`
	PaymentID             string          `gorm:"column:payment_id;type:uuid"`
	ShipmentID            string          `gorm:"column:shipment_id"`
	BuyerID               string          `gorm:"column:buyer_id"`
	Amount                decimal.Decimal `gorm:"column:amount;type:numeric(18,4)"`
	Currency              string          `gorm:"column:currency"`
	Reason                string          `gorm:"column:reason"`
	Status                string          `gorm:"column:status"`
	IdempotencyKey        string          `gorm:"column:idempotency_key;uniqueIndex"`
	ProviderTransactionID string          `gorm:"column:provider_transaction_id"`
	FailureReason         string          `gorm:"column:failure_reason"`
	RetryCount            int             `gorm:"column:retry_count"`
	MaxRetries            int             `gorm:"column:max_retries"`
	CompletedAt           *time.Time      `gorm:"column:completed_at"`
	CreatedAt             time.Time       `gorm:"column:created_at"`
	UpdatedAt             time.Time       `gorm:"column:updated_at"`
}

func (refundModel) TableName() string { return "refunds" }

type commissionInvoiceModel struct {
	InvoiceID        string          `gorm:"column:invoice_id;type:uuid;primaryKey"`
	InvoiceNumber    string          `gorm:"column:invoice_number;uniqueIndex"`
	DocType          string          `gorm:"column:doc_type"`
	SettlementID     string          `gorm:"column:settlement_id;type:uuid"`
	SettlementNumber string          `gorm:"column:settlement_number"`
	StoreID          string          `gorm:"column:store_id"`
	PeriodYear       int             `gorm:"column:period_year"`
	PeriodMonth      int             `gorm:"column:period_month"`
	Currency         string          `gorm:"column:currency"`
	NetAmount        decimal.Decimal `gorm:"column:net_amount;type:numeric(18,4)"`
	Lines            []byte          `gorm:"column:lines;type:jsonb"`
	Status           string          `gorm:"column:status"`
	IssuedAt         time.Time       `gorm:"column:issued_at"`
	VoidedAt         *time.Time      `gorm:"column:voided_at"`
}

func (commissionInvoiceModel) TableName() string { return "commission_invoices" }

type idempotencyModel struct {
	IdempotencyKey string    `gorm:"column:idempotency_key;primaryKey"`
	RequestHash    string    `gorm:"column:request_hash"`
	ResponseCode   int       `gorm:"column:response_code"`
	ResponseBody   []byte    `gorm:"column:response_body"`
	ExpiresAt      time.Time `gorm:"column:expires_at"`
}

func (idempotencyModel) TableName() string { return "ledger_idempotency" }

type eventDedupModel struct {
	EventID   string    `gorm:"column:event_id;primaryKey"`
	EventType string    `gorm:"column:event_type"`
	ExpiresAt time.Time `gorm:"column:expires_at"`
}

func (eventDedupModel) TableName() string { return "ledger_event_dedup" }

type outboxModel struct {
	RecordID   string         `gorm:"column:record_id;type:uuid;primaryKey"`
	EventClass string         `gorm:"column:event_class"`
	Envelope   []byte         `gorm:"column:envelope;type:jsonb"`
	CreatedAt  time.Time      `gorm:"column:created_at"`
	SentAt     *time.Time     `gorm:"column:sent_at"`
}

func (outboxModel) TableName() string { return "ledger_outbox" }
