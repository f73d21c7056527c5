package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/vendora/marketplace-ledger/internal/contracts"
	"github.com/vendora/marketplace-ledger/internal/domain"
)

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeSuccess(w http.ResponseWriter, status int, message string, data interface{}) {
	writeJSON(w, status, contracts.SuccessResponse{
		Status:  "success",
		Message: message,
		Data:    data,
	})
}

func writeError(w http.ResponseWriter, status int, code, message, requestID string) {
	writeJSON(w, status, contracts.ErrorResponse{
		Status: "error",
		Error: contracts.ErrorPayload{
			Code:      code,
			Message:   message,
			RequestID: requestID,
		},
	})
}

func mapDomainError(err error) (status int, code string) {
	switch {
	case err == nil:
		return http.StatusOK, ""
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized, "unauthorized"
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden, "forbidden"
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, domain.ErrIdempotencyRequired):
		return http.StatusBadRequest, "idempotency_key_required"
	case errors.Is(err, domain.ErrIdempotencyConflict):
		return http.StatusConflict, "idempotency_conflict"
	case errors.Is(err, domain.ErrVersionConflict):
		return http.StatusConflict, "version_conflict"
	case errors.Is(err, domain.ErrAllocationClaimed):
		return http.StatusConflict, "allocation_claimed"
	case errors.Is(err, domain.ErrStateConflict):
		return http.StatusConflict, "state_conflict"
	case errors.Is(err, domain.ErrRetriesExhausted):
		return http.StatusConflict, "retries_exhausted"
	case errors.Is(err, domain.ErrReconciliation):
		return http.StatusConflict, "reconciliation_violation"
	case errors.Is(err, domain.ErrConflict):
		return http.StatusConflict, "conflict"
	case errors.Is(err, domain.ErrCurrencyMismatch):
		return http.StatusUnprocessableEntity, "currency_mismatch"
	case errors.Is(err, domain.ErrNoCommissionRule):
		return http.StatusUnprocessableEntity, "no_commission_rule"
	case errors.Is(err, domain.ErrInvalidInput), errors.Is(err, domain.ErrProviderReference):
		return http.StatusBadRequest, "invalid_input"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}
