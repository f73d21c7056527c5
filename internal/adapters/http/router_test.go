package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/vendora/marketplace-ledger/internal/adapters/events"
	"github.com/vendora/marketplace-ledger/internal/adapters/gateway"
	"github.com/vendora/marketplace-ledger/internal/adapters/memory"
	"github.com/vendora/marketplace-ledger/internal/application"
	"github.com/vendora/marketplace-ledger/internal/contracts"
	"github.com/vendora/marketplace-ledger/internal/domain"
)

func newTestService(t *testing.T) *application.Service {
	t.Helper()
	repos := memory.NewRepositories()
	return application.NewService(application.Dependencies{
		Escrows:        repos.Escrows,
		Ledger:         repos.Ledger,
		Rules:          repos.Rules,
		Payouts:        repos.Payouts,
		Settlements:    repos.Settlements,
		Refunds:        repos.Refunds,
		Invoices:       repos.Invoices,
		Idempotency:    repos.Idempotency,
		EventDedup:     repos.EventDedup,
		Outbox:         repos.Outbox,
		Locks:          memory.NewPaymentLocker(),
		PaymentGateway: gateway.NewStubPaymentGateway(),
		PayoutGateway:  gateway.NewStubPayoutGateway(),
		DomainEvents:   events.NewMemoryDomainPublisher(),
		Analytics:      events.NewMemoryAnalyticsPublisher(),
		DLQ:            events.NewMemoryDLQPublisher(),
	})
}

// newTestRouter wires the chi router the way the API binary does, with a
// global 10% commission rule seeded so escrow creation resolves a rate.
func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	svc := newTestService(t)
	seed := application.Actor{SubjectID: "seed", Role: "admin", RequestID: "req-seed"}
	if _, err := svc.CreateCommissionRule(context.Background(), seed, application.CreateCommissionRuleInput{
		Scope: domain.CommissionScopeGlobal,
		Rate:  decimal.RequireFromString("10"),
	}); err != nil {
		t.Fatalf("seed commission rule: %v", err)
	}
	return NewRouter(NewHandler(svc))
}

func doJSON(t *testing.T, router http.Handler, method, target string, body interface{}, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var rd *bytes.Reader
	if raw, ok := body.(string); ok {
		rd = bytes.NewReader([]byte(raw))
	} else if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request body: %v", err)
		}
		rd = bytes.NewReader(encoded)
	} else {
		rd = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, target, rd)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) contracts.ErrorResponse {
	t.Helper()
	var out contracts.ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode error envelope: %v (body %q)", err, rec.Body.String())
	}
	if out.Status != "error" {
		t.Fatalf("expected error status, got %q", out.Status)
	}
	return out
}

func decodeSuccess(t *testing.T, rec *httptest.ResponseRecorder, data interface{}) {
	t.Helper()
	var out contracts.SuccessResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode success envelope: %v (body %q)", err, rec.Body.String())
	}
	if out.Status != "success" {
		t.Fatalf("expected success status, got %q", out.Status)
	}
	if data != nil {
		raw, err := json.Marshal(out.Data)
		if err != nil {
			t.Fatalf("remarshal data: %v", err)
		}
		if err := json.Unmarshal(raw, data); err != nil {
			t.Fatalf("decode data payload: %v", err)
		}
	}
}

func adminHeaders(idempotencyKey string) map[string]string {
	h := map[string]string{
		"Authorization": "Bearer tok-admin",
		"X-Actor-Role":  "admin",
	}
	if idempotencyKey != "" {
		h["Idempotency-Key"] = idempotencyKey
	}
	return h
}

func escrowRequest(orderID string) contracts.CreateEscrowPaymentRequest {
	return contracts.CreateEscrowPaymentRequest{
		OrderID:     orderID,
		BuyerID:     "buyer-1",
		TotalAmount: "100",
		Currency:    "USD",
		Shipments: []contracts.CreateShipmentRequest{
			{ShipmentID: "ship-1", StoreID: "store-1", SellerAmount: "60", ShippingAmount: "10"},
			{ShipmentID: "ship-2", StoreID: "store-2", SellerAmount: "25", ShippingAmount: "5"},
		},
	}
}

func TestHealthEndpointsSkipAuth(t *testing.T) {
	t.Parallel()
	router := newTestRouter(t)
	for _, target := range []string{"/healthz", "/readyz"} {
		rec := doJSON(t, router, http.MethodGet, target, nil, nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("%s: expected 200, got %d", target, rec.Code)
		}
	}
}

func TestRequestIDIsEchoed(t *testing.T) {
	t.Parallel()
	router := newTestRouter(t)
	rec := doJSON(t, router, http.MethodGet, "/healthz", nil, map[string]string{"X-Request-Id": "req-echo-1"})
	if got := rec.Header().Get("X-Request-Id"); got != "req-echo-1" {
		t.Fatalf("expected request id echoed, got %q", got)
	}
	rec = doJSON(t, router, http.MethodGet, "/healthz", nil, nil)
	if rec.Header().Get("X-Request-Id") == "" {
		t.Fatal("expected a generated request id header")
	}
}

func TestAuthRejectsMissingAndEmptyBearer(t *testing.T) {
	t.Parallel()
	router := newTestRouter(t)
	cases := []struct {
		name    string
		headers map[string]string
	}{
		{"no header", nil},
		{"wrong scheme", map[string]string{"Authorization": "Basic abc"}},
		{"empty token", map[string]string{"Authorization": "Bearer "}},
	}
	for _, tc := range cases {
		rec := doJSON(t, router, http.MethodGet, "/v1/escrow/payments/pay-1", nil, tc.headers)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("%s: expected 401, got %d", tc.name, rec.Code)
		}
		if out := decodeError(t, rec); out.Error.Code != "unauthorized" {
			t.Fatalf("%s: expected unauthorized code, got %q", tc.name, out.Error.Code)
		}
	}
}

func TestUserRoleCannotCreateCommissionRule(t *testing.T) {
	t.Parallel()
	router := newTestRouter(t)
	rec := doJSON(t, router, http.MethodPost, "/v1/commission-rules",
		contracts.CreateCommissionRuleRequest{Scope: "global", Rate: "12"},
		map[string]string{"Authorization": "Bearer tok-user", "X-Actor-Role": "user"})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d (body %s)", rec.Code, rec.Body.String())
	}
	if out := decodeError(t, rec); out.Error.Code != "forbidden" {
		t.Fatalf("expected forbidden code, got %q", out.Error.Code)
	}
}

func TestAdminRoleInferredFromSubjectPrefix(t *testing.T) {
	t.Parallel()
	router := newTestRouter(t)
	// No X-Actor-Role header; the admin: prefix on the subject grants the role.
	rec := doJSON(t, router, http.MethodPost, "/v1/commission-rules",
		contracts.CreateCommissionRuleRequest{Scope: "store", StoreID: "store-9", Rate: "8"},
		map[string]string{"Authorization": "Bearer admin:ops-1"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d (body %s)", rec.Code, rec.Body.String())
	}
	var rule domain.CommissionRule
	decodeSuccess(t, rec, &rule)
	if rule.StoreID != "store-9" {
		t.Fatalf("expected store-9 rule, got %q", rule.StoreID)
	}
}

func TestCreateEscrowPaymentContract(t *testing.T) {
	t.Parallel()
	router := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/v1/escrow/payments", escrowRequest("order-1"), adminHeaders("key-1"))
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d (body %s)", rec.Code, rec.Body.String())
	}
	var payment domain.EscrowPayment
	decodeSuccess(t, rec, &payment)
	if payment.OrderID != "order-1" || len(payment.Allocations) != 2 {
		t.Fatalf("unexpected payment payload: %+v", payment)
	}

	// Same key, same body replays the stored payment.
	rec = doJSON(t, router, http.MethodPost, "/v1/escrow/payments", escrowRequest("order-1"), adminHeaders("key-1"))
	if rec.Code != http.StatusCreated {
		t.Fatalf("replay: expected 201, got %d (body %s)", rec.Code, rec.Body.String())
	}
	var replayed domain.EscrowPayment
	decodeSuccess(t, rec, &replayed)
	if replayed.PaymentID != payment.PaymentID {
		t.Fatalf("replay returned a different payment: %q vs %q", replayed.PaymentID, payment.PaymentID)
	}

	// Same key, different body is a conflict.
	rec = doJSON(t, router, http.MethodPost, "/v1/escrow/payments", escrowRequest("order-2"), adminHeaders("key-1"))
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d (body %s)", rec.Code, rec.Body.String())
	}
	if out := decodeError(t, rec); out.Error.Code != "idempotency_conflict" {
		t.Fatalf("expected idempotency_conflict, got %q", out.Error.Code)
	}
}

func TestCreateEscrowPaymentRequiresIdempotencyKey(t *testing.T) {
	t.Parallel()
	router := newTestRouter(t)
	rec := doJSON(t, router, http.MethodPost, "/v1/escrow/payments", escrowRequest("order-1"), adminHeaders(""))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d (body %s)", rec.Code, rec.Body.String())
	}
	if out := decodeError(t, rec); out.Error.Code != "idempotency_key_required" {
		t.Fatalf("expected idempotency_key_required, got %q", out.Error.Code)
	}
}

func TestCreateEscrowPaymentBadPayloads(t *testing.T) {
	t.Parallel()
	router := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/v1/escrow/payments", "{not json", adminHeaders("key-bad-1"))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("malformed json: expected 400, got %d", rec.Code)
	}
	if out := decodeError(t, rec); out.Error.Code != "invalid_json" {
		t.Fatalf("expected invalid_json, got %q", out.Error.Code)
	}

	badAmount := escrowRequest("order-1")
	badAmount.TotalAmount = "one hundred"
	rec = doJSON(t, router, http.MethodPost, "/v1/escrow/payments", badAmount, adminHeaders("key-bad-2"))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("bad decimal: expected 400, got %d", rec.Code)
	}
	if out := decodeError(t, rec); out.Error.Code != "invalid_amount" {
		t.Fatalf("expected invalid_amount, got %q", out.Error.Code)
	}
}

func TestCreateEscrowPaymentWithoutRuleIsUnprocessable(t *testing.T) {
	t.Parallel()
	// No commission rule seeded, so allocation rating cannot resolve.
	router := NewRouter(NewHandler(newTestService(t)))
	rec := doJSON(t, router, http.MethodPost, "/v1/escrow/payments", escrowRequest("order-1"), adminHeaders("key-1"))
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d (body %s)", rec.Code, rec.Body.String())
	}
	if out := decodeError(t, rec); out.Error.Code != "no_commission_rule" {
		t.Fatalf("expected no_commission_rule, got %q", out.Error.Code)
	}
}

func TestGetUnknownEscrowPaymentReturnsNotFound(t *testing.T) {
	t.Parallel()
	router := newTestRouter(t)
	rec := doJSON(t, router, http.MethodGet, "/v1/escrow/payments/pay-missing", nil, adminHeaders(""))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d (body %s)", rec.Code, rec.Body.String())
	}
	out := decodeError(t, rec)
	if out.Error.Code != "not_found" {
		t.Fatalf("expected not_found, got %q", out.Error.Code)
	}
	if out.Error.RequestID == "" {
		t.Fatal("expected a request id in the error payload")
	}
}

func TestMapDomainErrorTable(t *testing.T) {
	t.Parallel()
	cases := []struct {
		err    error
		status int
		code   string
	}{
		{domain.ErrUnauthorized, http.StatusUnauthorized, "unauthorized"},
		{domain.ErrForbidden, http.StatusForbidden, "forbidden"},
		{domain.ErrNotFound, http.StatusNotFound, "not_found"},
		{domain.ErrIdempotencyRequired, http.StatusBadRequest, "idempotency_key_required"},
		{domain.ErrIdempotencyConflict, http.StatusConflict, "idempotency_conflict"},
		{domain.ErrVersionConflict, http.StatusConflict, "version_conflict"},
		{domain.ErrAllocationClaimed, http.StatusConflict, "allocation_claimed"},
		{domain.ErrStateConflict, http.StatusConflict, "state_conflict"},
		{domain.ErrRetriesExhausted, http.StatusConflict, "retries_exhausted"},
		{domain.ErrReconciliation, http.StatusConflict, "reconciliation_violation"},
		{domain.ErrConflict, http.StatusConflict, "conflict"},
		{domain.ErrCurrencyMismatch, http.StatusUnprocessableEntity, "currency_mismatch"},
		{domain.ErrNoCommissionRule, http.StatusUnprocessableEntity, "no_commission_rule"},
		{domain.ErrInvalidInput, http.StatusBadRequest, "invalid_input"},
		{domain.ErrProviderReference, http.StatusBadRequest, "invalid_input"},
		{fmt.Errorf("load settlement: %w", domain.ErrNotFound), http.StatusNotFound, "not_found"},
		{fmt.Errorf("boom"), http.StatusInternalServerError, "internal_error"},
	}
	for _, tc := range cases {
		status, code := mapDomainError(tc.err)
		if status != tc.status || code != tc.code {
			t.Fatalf("%v: expected (%d, %q), got (%d, %q)", tc.err, tc.status, tc.code, status, code)
		}
	}
}
