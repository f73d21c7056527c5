package application

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/vendora/marketplace-ledger/internal/contracts"
	"github.com/vendora/marketplace-ledger/internal/domain"
	"github.com/vendora/marketplace-ledger/internal/ports"
)

type Config struct {
	ServiceName          string
	DefaultCurrency      string
	IdempotencyTTL       time.Duration
	EventDedupTTL        time.Duration
	OutboxFlushBatchSize int
	GatewayTimeout       time.Duration
	PayoutMaxRetries     int
}

type Actor struct {
	SubjectID      string
	Role           string
	RequestID      string
	IdempotencyKey string
}

type ShipmentInput struct {
	ShipmentID     string
	StoreID        string
	CategoryID     string
	SellerAmount   decimal.Decimal
	ShippingAmount decimal.Decimal
}

type CreateEscrowPaymentInput struct {
	OrderID     string
	BuyerID     string
	TotalAmount decimal.Decimal
	Currency    string
	Shipments   []ShipmentInput
}

type AddAllocationInput struct {
	PaymentID      string
	ShipmentID     string
	StoreID        string
	CategoryID     string
	SellerAmount   decimal.Decimal
	ShippingAmount decimal.Decimal
}

type ReleaseAllocationInput struct {
	PaymentID       string
	ShipmentID      string
	PayoutReference string
}

type PartialRefundInput struct {
	PaymentID  string
	ShipmentID string
	Amount     decimal.Decimal
	Reference  string
}

type CreateRefundInput struct {
	OrderID    string
	ShipmentID string
	Amount     decimal.Decimal
	Reason     string
}

type CreateCommissionRuleInput struct {
	Scope         domain.CommissionScope
	StoreID       string
	CategoryID    string
	Rate          decimal.Decimal
	EffectiveFrom *time.Time
	EffectiveTo   *time.Time
}

type SettlementPeriodInput struct {
	StoreID string
	Year    int
	Month   int
}

type RegenerateSettlementInput struct {
	StoreID         string
	Year            int
	Month           int
	ExpectedVersion int
}

type AddAdjustmentInput struct {
	SettlementID string
	Amount       decimal.Decimal
	Reason       string
	SourceYear   int
	SourceMonth  int
}

type PayoutListOutput struct {
	Items      []domain.SellerPayout
	Pagination contracts.Pagination
}

type SettlementListOutput struct {
	Items      []domain.Settlement
	Pagination contracts.Pagination
}

type Service struct {
	cfg         Config
	escrows     ports.EscrowRepository
	ledger      ports.LedgerRepository
	rules       ports.CommissionRuleRepository
	payouts     ports.PayoutRepository
	settlements ports.SettlementRepository
	refunds     ports.RefundRepository
	invoices    ports.InvoiceRepository
	idempotency ports.IdempotencyRepository
	eventDedup  ports.EventDedupRepository
	outbox      ports.OutboxRepository
	locks       ports.PaymentLocker

	paymentGateway ports.PaymentGateway
	payoutGateway  ports.PayoutGateway

	domainEvents ports.DomainPublisher
	analytics    ports.AnalyticsPublisher
	dlq          ports.DLQPublisher
	nowFn        func() time.Time
}

type Dependencies struct {
	Config         Config
	Escrows        ports.EscrowRepository
	Ledger         ports.LedgerRepository
	Rules          ports.CommissionRuleRepository
	Payouts        ports.PayoutRepository
	Settlements    ports.SettlementRepository
	Refunds        ports.RefundRepository
	Invoices       ports.InvoiceRepository
	Idempotency    ports.IdempotencyRepository
	EventDedup     ports.EventDedupRepository
	Outbox         ports.OutboxRepository
	Locks          ports.PaymentLocker
	PaymentGateway ports.PaymentGateway
	PayoutGateway  ports.PayoutGateway
	DomainEvents   ports.DomainPublisher
	Analytics      ports.AnalyticsPublisher
	DLQ            ports.DLQPublisher
}

func NewService(deps Dependencies) *Service {
	cfg := deps.Config
	if cfg.ServiceName == "" {
		cfg.ServiceName = "marketplace-ledger"
	}
	if cfg.DefaultCurrency == "" {
		cfg.DefaultCurrency = "USD"
	}
	if cfg.IdempotencyTTL <= 0 {
		cfg.IdempotencyTTL = 7 * 24 * time.Hour
	}
	if cfg.EventDedupTTL <= 0 {
		cfg.EventDedupTTL = 7 * 24 * time.Hour
	}
	if cfg.OutboxFlushBatchSize <= 0 {
		cfg.OutboxFlushBatchSize = 100
	}
	if cfg.GatewayTimeout <= 0 {
		cfg.GatewayTimeout = 15 * time.Second
	}
	if cfg.PayoutMaxRetries <= 0 {
		cfg.PayoutMaxRetries = domain.DefaultPayoutMaxRetries
	}
	return &Service{
		cfg:            cfg,
		escrows:        deps.Escrows,
		ledger:         deps.Ledger,
		rules:          deps.Rules,
		payouts:        deps.Payouts,
		settlements:    deps.Settlements,
		refunds:        deps.Refunds,
		invoices:       deps.Invoices,
		idempotency:    deps.Idempotency,
		eventDedup:     deps.EventDedup,
		outbox:         deps.Outbox,
		locks:          deps.Locks,
		paymentGateway: deps.PaymentGateway,
		payoutGateway:  deps.PayoutGateway,
		domainEvents:   deps.DomainEvents,
		analytics:      deps.Analytics,
		dlq:            deps.DLQ,
		nowFn:          func() time.Time { return time.Now().UTC() },
	}
}
