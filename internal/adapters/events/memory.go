package events

import (
	"context"
	"io"
	"sync"

	"github.com/vendora/marketplace-ledger/internal/contracts"
)

type MemoryConsumer struct {
	mu     sync.Mutex
	events []contracts.EventEnvelope
}

func NewMemoryConsumer() *MemoryConsumer {
	return &MemoryConsumer{events: []contracts.EventEnvelope{}}
}

func (c *MemoryConsumer) Seed(events []contracts.EventEnvelope) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, events...)
}

func (c *MemoryConsumer) Receive(_ context.Context) (*contracts.EventEnvelope, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.events) == 0 {
		return nil, io.EOF
	}
	item := c.events[0]
	c.events = c.events[1:]
	return &item, nil
}

type MemoryDomainPublisher struct {
	mu     sync.Mutex
	events []contracts.EventEnvelope
}

func NewMemoryDomainPublisher() *MemoryDomainPublisher {
	return &MemoryDomainPublisher{events: []contracts.EventEnvelope{}}
}

func (p *MemoryDomainPublisher) PublishDomain(_ context.Context, event contracts.EventEnvelope) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *MemoryDomainPublisher) Events() []contracts.EventEnvelope {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]contracts.EventEnvelope, len(p.events))
	copy(out, p.events)
	return out
}

type MemoryAnalyticsPublisher struct {
	mu     sync.Mutex
	events []contracts.EventEnvelope
}

func NewMemoryAnalyticsPublisher() *MemoryAnalyticsPublisher {
	return &MemoryAnalyticsPublisher{events: []contracts.EventEnvelope{}}
}

func (p *MemoryAnalyticsPublisher) PublishAnalytics(_ context.Context, event contracts.EventEnvelope) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *MemoryAnalyticsPublisher) Events() []contracts.EventEnvelope {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]contracts.EventEnvelope, len(p.events))
	copy(out, p.events)
	return out
}

type MemoryDLQPublisher struct {
	mu      sync.Mutex
	records []contracts.DLQRecord
}

func NewMemoryDLQPublisher() *MemoryDLQPublisher {
	return &MemoryDLQPublisher{records: []contracts.DLQRecord{}}
}

func (p *MemoryDLQPublisher) PublishDLQ(_ context.Context, record contracts.DLQRecord) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.records = append(p.records, record)
	return nil
}

func (p *MemoryDLQPublisher) Records() []contracts.DLQRecord {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]contracts.DLQRecord, len(p.records))
	copy(out, p.records)
	return out
}
