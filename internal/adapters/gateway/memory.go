package gateway

import (
	"context"
	"fmt"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/vendora/marketplace-ledger/internal/domain"
	"github.com/vendora/marketplace-ledger/internal/ports"
)

// StubPaymentGateway answers every refund call with a scripted outcome.
// Tests flip NextStatus or NextErr between calls to drive the workflow.
type StubPaymentGateway struct {
	mu         sync.Mutex
	NextStatus string
	NextErr    error
	calls      int
}

func NewStubPaymentGateway() *StubPaymentGateway {
	return &StubPaymentGateway{NextStatus: "COMPLETED"}
}

func (g *StubPaymentGateway) Execute(_ context.Context, _ decimal.Decimal, _, reference string) (ports.GatewayResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls++
	if g.NextErr != nil {
		return ports.GatewayResult{}, g.NextErr
	}
	return ports.GatewayResult{
		TransactionID: fmt.Sprintf("txn-%s-%d", reference, g.calls),
		Status:        g.NextStatus,
	}, nil
}

func (g *StubPaymentGateway) Calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls
}

// StubPayoutGateway mirrors StubPaymentGateway for batch transfers.
type StubPayoutGateway struct {
	mu      sync.Mutex
	Fail    bool
	FailMsg string
	calls   int
	batches []ports.PayoutBatch
}

func NewStubPayoutGateway() *StubPayoutGateway {
	return &StubPayoutGateway{}
}

func (g *StubPayoutGateway) Execute(_ context.Context, batch ports.PayoutBatch) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls++
	g.batches = append(g.batches, batch)
	if g.Fail {
		msg := g.FailMsg
		if msg == "" {
			msg = "transfer declined"
		}
		return "", &domain.ProviderError{Reference: fmt.Sprintf("err-%d", g.calls), Message: msg}
	}
	return fmt.Sprintf("transfer-%s-%d", batch.PayoutNumber, g.calls), nil
}

func (g *StubPayoutGateway) Calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls
}

func (g *StubPayoutGateway) Batches() []ports.PayoutBatch {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]ports.PayoutBatch, len(g.batches))
	copy(out, g.batches)
	return out
}
