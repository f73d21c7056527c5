package application

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/vendora/marketplace-ledger/internal/contracts"
	"github.com/vendora/marketplace-ledger/internal/domain"
	"github.com/vendora/marketplace-ledger/internal/ports"
)

const eventSchemaVersion = "1.0"

// enqueueDomainEvent stages an emitted event in the outbox. Events leave
// the process only through FlushOutbox so a failed publish never loses
// the record.
func (s *Service) enqueueDomainEvent(ctx context.Context, eventType, partitionKey string, payload any, traceID string) error {
	if s.outbox == nil {
		return nil
	}
	class := domain.CanonicalEventClass(eventType)
	if class == "" {
		return domain.ErrUnsupportedEventType
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	now := s.nowFn()
	return s.outbox.Enqueue(ctx, ports.OutboxRecord{
		RecordID:   uuid.NewString(),
		EventClass: class,
		Envelope: contracts.EventEnvelope{
			EventID:          uuid.NewString(),
			EventType:        eventType,
			EventClass:       class,
			OccurredAt:       now,
			PartitionKeyPath: domain.CanonicalPartitionKeyPath(eventType),
			PartitionKey:     partitionKey,
			SourceService:    s.cfg.ServiceName,
			TraceID:          traceID,
			SchemaVersion:    eventSchemaVersion,
			Data:             data,
		},
		CreatedAt: now,
	})
}

// FlushOutbox publishes pending outbox records and returns how many were
// sent. Domain events go to the domain publisher, analytics-only events
// to the analytics publisher.
func (s *Service) FlushOutbox(ctx context.Context) (int, error) {
	if s.outbox == nil {
		return 0, nil
	}
	pending, err := s.outbox.ListPending(ctx, s.cfg.OutboxFlushBatchSize)
	if err != nil {
		return 0, err
	}
	sent := 0
	for _, rec := range pending {
		switch rec.EventClass {
		case domain.CanonicalEventClassDomain:
			if s.domainEvents != nil {
				if err := s.domainEvents.PublishDomain(ctx, rec.Envelope); err != nil {
					return sent, err
				}
			}
		case domain.CanonicalEventClassAnalyticsOnly:
			if s.analytics != nil {
				if err := s.analytics.PublishAnalytics(ctx, rec.Envelope); err != nil {
					return sent, err
				}
			}
		default:
			return sent, domain.ErrUnsupportedEventClass
		}
		if err := s.outbox.MarkSent(ctx, rec.RecordID, s.nowFn()); err != nil {
			return sent, err
		}
		sent++
	}
	return sent, nil
}

// HandleDomainEvent consumes one input event from the order/shipment
// stream. Redelivered events are detected by event id and skipped.
func (s *Service) HandleDomainEvent(ctx context.Context, env *contracts.EventEnvelope) error {
	if env == nil || strings.TrimSpace(env.EventID) == "" || strings.TrimSpace(env.EventType) == "" {
		return domain.ErrInvalidEnvelope
	}
	if !domain.IsCanonicalInputEvent(env.EventType) {
		return domain.ErrUnsupportedEventType
	}
	if s.eventDedup != nil {
		dup, err := s.eventDedup.IsDuplicate(ctx, env.EventID, s.nowFn())
		if err != nil {
			return err
		}
		if dup {
			return nil
		}
	}

	var err error
	switch env.EventType {
	case domain.EventOrderPaymentConfirmed:
		err = s.handleOrderPaymentConfirmed(ctx, env)
	case domain.EventShipmentDelivered:
		err = s.handleShipmentDelivered(ctx, env)
	}
	if err != nil {
		return err
	}
	if s.eventDedup != nil {
		return s.eventDedup.MarkProcessed(ctx, env.EventID, env.EventType, s.nowFn().Add(s.cfg.EventDedupTTL))
	}
	return nil
}

func (s *Service) handleOrderPaymentConfirmed(ctx context.Context, env *contracts.EventEnvelope) error {
	var payload contracts.OrderPaymentConfirmedPayload
	if err := json.Unmarshal(env.Data, &payload); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidEnvelope, err)
	}
	total, err := decimal.NewFromString(payload.TotalAmount)
	if err != nil {
		return fmt.Errorf("%w: total_amount: %v", domain.ErrInvalidEnvelope, err)
	}
	input := CreateEscrowPaymentInput{
		OrderID:     payload.OrderID,
		BuyerID:     payload.BuyerID,
		TotalAmount: total,
		Currency:    payload.Currency,
	}
	for _, sh := range payload.Shipments {
		seller, err := decimal.NewFromString(sh.SellerAmount)
		if err != nil {
			return fmt.Errorf("%w: seller_amount: %v", domain.ErrInvalidEnvelope, err)
		}
		shipping := decimal.Zero
		if sh.ShippingAmount != "" {
			if shipping, err = decimal.NewFromString(sh.ShippingAmount); err != nil {
				return fmt.Errorf("%w: shipping_amount: %v", domain.ErrInvalidEnvelope, err)
			}
		}
		input.Shipments = append(input.Shipments, ShipmentInput{
			ShipmentID:     sh.ShipmentID,
			StoreID:        sh.StoreID,
			CategoryID:     sh.CategoryID,
			SellerAmount:   seller,
			ShippingAmount: shipping,
		})
	}
	_, err = s.CreateEscrowPayment(ctx, s.eventActor(env), input)
	if errors.Is(err, domain.ErrIdempotencyConflict) {
		// Redelivery with the same event id already created the escrow.
		return nil
	}
	return err
}

func (s *Service) handleShipmentDelivered(ctx context.Context, env *contracts.EventEnvelope) error {
	var payload contracts.ShipmentDeliveredPayload
	if err := json.Unmarshal(env.Data, &payload); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidEnvelope, err)
	}
	_, err := s.MarkAllocationEligible(ctx, payload.OrderID, payload.ShipmentID)
	return err
}

func (s *Service) eventActor(env *contracts.EventEnvelope) Actor {
	return Actor{
		SubjectID:      "system:" + env.SourceService,
		Role:           "system",
		RequestID:      env.TraceID,
		IdempotencyKey: "evt-" + env.EventID,
	}
}
