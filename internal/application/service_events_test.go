package application_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/vendora/marketplace-ledger/internal/contracts"
	"github.com/vendora/marketplace-ledger/internal/domain"
)

func inputEnvelope(t *testing.T, eventType string, payload any) *contracts.EventEnvelope {
	t.Helper()
	data, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	return &contracts.EventEnvelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		OccurredAt:    time.Now().UTC(),
		SourceService: "order-service",
		TraceID:       "trace-1",
		SchemaVersion: "1.0",
		Data:          data,
	}
}

func paymentConfirmedPayload(orderID string) contracts.OrderPaymentConfirmedPayload {
	return contracts.OrderPaymentConfirmedPayload{
		OrderID:     orderID,
		BuyerID:     "buyer-1",
		TotalAmount: "100",
		Currency:    "USD",
		Shipments: []contracts.OrderShipmentPayload{
			{ShipmentID: "ship-1", StoreID: "store-1", CategoryID: "cat-electronics", SellerAmount: "60", ShippingAmount: "10"},
			{ShipmentID: "ship-2", StoreID: "store-2", CategoryID: "cat-books", SellerAmount: "25", ShippingAmount: "5"},
		},
	}
}

func TestHandleOrderPaymentConfirmedCreatesEscrow(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	env := inputEnvelope(t, domain.EventOrderPaymentConfirmed, paymentConfirmedPayload("order-evt-1"))
	if err := f.svc.HandleDomainEvent(ctx, env); err != nil {
		t.Fatalf("handle event: %v", err)
	}

	payment, err := f.repos.Escrows.GetByOrderID(ctx, "order-evt-1")
	if err != nil {
		t.Fatalf("load escrow by order: %v", err)
	}
	if got := payment.TotalAmount.String(); got != "100" {
		t.Fatalf("total amount = %s, want 100", got)
	}
	if len(payment.Allocations) != 2 {
		t.Fatalf("expected 2 allocations, got %d", len(payment.Allocations))
	}

	// Redelivery of the same event id is absorbed by dedup.
	if err := f.svc.HandleDomainEvent(ctx, env); err != nil {
		t.Fatalf("redelivered event: %v", err)
	}
}

func TestHandleShipmentDeliveredMarksEligible(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	created := inputEnvelope(t, domain.EventOrderPaymentConfirmed, paymentConfirmedPayload("order-evt-1"))
	if err := f.svc.HandleDomainEvent(ctx, created); err != nil {
		t.Fatalf("handle payment confirmed: %v", err)
	}

	delivered := inputEnvelope(t, domain.EventShipmentDelivered, contracts.ShipmentDeliveredPayload{
		OrderID:    "order-evt-1",
		ShipmentID: "ship-1",
	})
	if err := f.svc.HandleDomainEvent(ctx, delivered); err != nil {
		t.Fatalf("handle shipment delivered: %v", err)
	}

	payment, err := f.repos.Escrows.GetByOrderID(ctx, "order-evt-1")
	if err != nil {
		t.Fatalf("load escrow by order: %v", err)
	}
	alloc := allocationByShipment(t, payment, "ship-1")
	if !alloc.IsEligibleForPayout {
		t.Fatal("ship-1 not marked eligible for payout")
	}
	other := allocationByShipment(t, payment, "ship-2")
	if other.IsEligibleForPayout {
		t.Fatal("ship-2 marked eligible without delivery")
	}
}

func TestHandleDomainEventValidation(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	if err := f.svc.HandleDomainEvent(ctx, nil); !errors.Is(err, domain.ErrInvalidEnvelope) {
		t.Fatalf("nil envelope: got %v", err)
	}
	if err := f.svc.HandleDomainEvent(ctx, &contracts.EventEnvelope{EventType: domain.EventShipmentDelivered}); !errors.Is(err, domain.ErrInvalidEnvelope) {
		t.Fatalf("missing event id: got %v", err)
	}

	unknown := inputEnvelope(t, "order.cancelled", map[string]string{"order_id": "order-1"})
	if err := f.svc.HandleDomainEvent(ctx, unknown); !errors.Is(err, domain.ErrUnsupportedEventType) {
		t.Fatalf("unsupported type: got %v", err)
	}

	malformed := inputEnvelope(t, domain.EventOrderPaymentConfirmed, nil)
	malformed.Data = []byte("{not-json")
	if err := f.svc.HandleDomainEvent(ctx, malformed); !errors.Is(err, domain.ErrInvalidEnvelope) {
		t.Fatalf("malformed payload: got %v", err)
	}
}

func TestFlushOutboxRoutesByEventClass(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	payment := f.createPayment(t, "order-1", "key-1")
	if _, err := f.svc.MarkAllocationEligible(ctx, "order-1", "ship-1"); err != nil {
		t.Fatalf("mark eligible: %v", err)
	}
	if _, err := f.svc.BuildPayoutBatches(ctx, adminActor("")); err != nil {
		t.Fatalf("build payout batches: %v", err)
	}

	sent, err := f.svc.FlushOutbox(ctx)
	if err != nil {
		t.Fatalf("flush outbox: %v", err)
	}
	if sent != 2 {
		t.Fatalf("flushed %d records, want 2", sent)
	}

	domainEvents := f.domainPub.Events()
	if len(domainEvents) != 1 || domainEvents[0].EventType != domain.EventEscrowPaymentCreated {
		t.Fatalf("unexpected domain stream: %+v", domainEvents)
	}
	if domainEvents[0].PartitionKey != payment.PaymentID {
		t.Fatalf("partition key = %q, want payment id", domainEvents[0].PartitionKey)
	}
	if domainEvents[0].EventClass != domain.CanonicalEventClassDomain {
		t.Fatalf("event class = %q", domainEvents[0].EventClass)
	}

	analytics := f.analytics.Events()
	if len(analytics) != 1 || analytics[0].EventType != domain.EventPayoutScheduled {
		t.Fatalf("unexpected analytics stream: %+v", analytics)
	}

	// Everything was marked sent, so a second flush has nothing to do.
	again, err := f.svc.FlushOutbox(ctx)
	if err != nil {
		t.Fatalf("second flush: %v", err)
	}
	if again != 0 {
		t.Fatalf("second flush sent %d records, want 0", again)
	}
}
