package application

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"strings"

	"github.com/vendora/marketplace-ledger/internal/domain"
)

func (s *Service) requireActor(actor Actor) error {
	if strings.TrimSpace(actor.SubjectID) == "" {
		return domain.ErrUnauthorized
	}
	return nil
}

func (s *Service) requireIdempotencyKey(actor Actor) error {
	if strings.TrimSpace(actor.IdempotencyKey) == "" {
		return domain.ErrIdempotencyRequired
	}
	return nil
}

// getIdempotentJSON returns the cached response for key if the request
// hash matches a completed earlier attempt.
func (s *Service) getIdempotentJSON(ctx context.Context, key, requestHash string, out any) (bool, error) {
	if s.idempotency == nil || strings.TrimSpace(key) == "" {
		return false, nil
	}
	rec, err := s.idempotency.Get(ctx, key, s.nowFn())
	if err != nil || rec == nil {
		return false, err
	}
	if rec.RequestHash != requestHash {
		return false, domain.ErrIdempotencyConflict
	}
	if len(rec.ResponseBody) == 0 {
		return false, nil
	}
	if err := json.Unmarshal(rec.ResponseBody, out); err != nil {
		return false, nil
	}
	return true, nil
}

func (s *Service) reserveIdempotency(ctx context.Context, key, requestHash string) error {
	if s.idempotency == nil {
		return nil
	}
	err := s.idempotency.Reserve(ctx, key, requestHash, s.nowFn().Add(s.cfg.IdempotencyTTL))
	if errors.Is(err, domain.ErrConflict) {
		return domain.ErrIdempotencyConflict
	}
	return err
}

func (s *Service) completeIdempotencyJSON(ctx context.Context, key string, code int, payload any) error {
	if s.idempotency == nil || strings.TrimSpace(key) == "" {
		return nil
	}
	b, _ := json.Marshal(payload)
	return s.idempotency.Complete(ctx, key, code, b, s.nowFn())
}

func hashJSON(v any) string {
	b, _ := json.Marshal(v)
	h := sha256.Sum256(b)
	return hex.EncodeToString(h[:])
}

// lockPayment serializes mutations for one escrow payment. The returned
// release is a no-op when no locker is configured.
func (s *Service) lockPayment(ctx context.Context, paymentID string) (func(), error) {
	if s.locks == nil {
		return func() {}, nil
	}
	return s.locks.Acquire(ctx, paymentID)
}
