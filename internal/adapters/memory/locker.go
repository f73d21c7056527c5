package memory

import (
	"context"
	"sync"
)

// PaymentLocker serializes escrow mutations per payment id inside one
// process. The redis locker replaces it when the service runs with more
// than one instance.
type PaymentLocker struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewPaymentLocker() *PaymentLocker {
	return &PaymentLocker{locks: make(map[string]*sync.Mutex)}
}

func (l *PaymentLocker) Acquire(_ context.Context, paymentID string) (func(), error) {
	l.mu.Lock()
	lock, ok := l.locks[paymentID]
	if !ok {
		lock = &sync.Mutex{}
		l.locks[paymentID] = lock
	}
	l.mu.Unlock()
	lock.Lock()
	return lock.Unlock, nil
}
