package http

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/vendora/marketplace-ledger/internal/application"
	"github.com/vendora/marketplace-ledger/internal/contracts"
	"github.com/vendora/marketplace-ledger/internal/domain"
	"github.com/vendora/marketplace-ledger/internal/ports"
)

func (h *Handler) createEscrowPayment(w http.ResponseWriter, r *http.Request) {
	actor := actorFromContext(r.Context())
	requestID := requestIDFromContext(r.Context())
	var req contracts.CreateEscrowPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", err.Error(), requestID)
		return
	}
	total, err := decimal.NewFromString(strings.TrimSpace(req.TotalAmount))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_amount", "total_amount is not a valid decimal", requestID)
		return
	}
	input := application.CreateEscrowPaymentInput{
		OrderID:     strings.TrimSpace(req.OrderID),
		BuyerID:     strings.TrimSpace(req.BuyerID),
		TotalAmount: total,
		Currency:    strings.TrimSpace(req.Currency),
	}
	for _, sh := range req.Shipments {
		shipment, parseErr := parseShipment(sh.ShipmentID, sh.StoreID, sh.CategoryID, sh.SellerAmount, sh.ShippingAmount)
		if parseErr != nil {
			writeError(w, http.StatusBadRequest, "invalid_amount", parseErr.Error(), requestID)
			return
		}
		input.Shipments = append(input.Shipments, shipment)
	}
	payment, err := h.service.CreateEscrowPayment(r.Context(), actor, input)
	if err != nil {
		status, code := mapDomainError(err)
		writeError(w, status, code, err.Error(), requestID)
		return
	}
	writeSuccess(w, http.StatusCreated, "", payment)
}

func parseShipment(shipmentID, storeID, categoryID, sellerAmount, shippingAmount string) (application.ShipmentInput, error) {
	seller, err := decimal.NewFromString(strings.TrimSpace(sellerAmount))
	if err != nil {
		return application.ShipmentInput{}, err
	}
	shipping := decimal.Zero
	if strings.TrimSpace(shippingAmount) != "" {
		shipping, err = decimal.NewFromString(strings.TrimSpace(shippingAmount))
		if err != nil {
			return application.ShipmentInput{}, err
		}
	}
	return application.ShipmentInput{
		ShipmentID:     strings.TrimSpace(shipmentID),
		StoreID:        strings.TrimSpace(storeID),
		CategoryID:     strings.TrimSpace(categoryID),
		SellerAmount:   seller,
		ShippingAmount: shipping,
	}, nil
}

func (h *Handler) getEscrowPayment(w http.ResponseWriter, r *http.Request) {
	payment, err := h.service.GetEscrowPayment(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		status, code := mapDomainError(err)
		writeError(w, status, code, err.Error(), requestIDFromContext(r.Context()))
		return
	}
	writeSuccess(w, http.StatusOK, "", payment)
}

func (h *Handler) addAllocation(w http.ResponseWriter, r *http.Request) {
	actor := actorFromContext(r.Context())
	requestID := requestIDFromContext(r.Context())
	var req contracts.AddAllocationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", err.Error(), requestID)
		return
	}
	shipment, err := parseShipment(req.ShipmentID, req.StoreID, req.CategoryID, req.SellerAmount, req.ShippingAmount)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_amount", err.Error(), requestID)
		return
	}
	allocation, err := h.service.AddAllocation(r.Context(), actor, application.AddAllocationInput{
		PaymentID:      chi.URLParam(r, "id"),
		ShipmentID:     shipment.ShipmentID,
		StoreID:        shipment.StoreID,
		CategoryID:     shipment.CategoryID,
		SellerAmount:   shipment.SellerAmount,
		ShippingAmount: shipment.ShippingAmount,
	})
	if err != nil {
		status, code := mapDomainError(err)
		writeError(w, status, code, err.Error(), requestID)
		return
	}
	writeSuccess(w, http.StatusCreated, "", allocation)
}

func (h *Handler) releaseAllocation(w http.ResponseWriter, r *http.Request) {
	actor := actorFromContext(r.Context())
	requestID := requestIDFromContext(r.Context())
	var req contracts.ReleaseAllocationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", err.Error(), requestID)
		return
	}
	payment, err := h.service.ReleaseAllocation(r.Context(), actor, application.ReleaseAllocationInput{
		PaymentID:       chi.URLParam(r, "id"),
		ShipmentID:      strings.TrimSpace(req.ShipmentID),
		PayoutReference: strings.TrimSpace(req.PayoutReference),
	})
	if err != nil {
		status, code := mapDomainError(err)
		writeError(w, status, code, err.Error(), requestID)
		return
	}
	writeSuccess(w, http.StatusOK, "", payment)
}

func (h *Handler) refundEscrow(w http.ResponseWriter, r *http.Request) {
	actor := actorFromContext(r.Context())
	requestID := requestIDFromContext(r.Context())
	var req contracts.RefundAllocationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", err.Error(), requestID)
		return
	}
	paymentID := chi.URLParam(r, "id")
	reference := strings.TrimSpace(req.Reference)
	shipmentID := strings.TrimSpace(req.ShipmentID)

	var payment domain.EscrowPayment
	var err error
	if shipmentID == "" {
		payment, err = h.service.RefundEscrow(r.Context(), actor, paymentID, reference)
	} else {
		payment, err = h.service.RefundAllocation(r.Context(), actor, paymentID, shipmentID, reference)
	}
	if err != nil {
		status, code := mapDomainError(err)
		writeError(w, status, code, err.Error(), requestID)
		return
	}
	writeSuccess(w, http.StatusOK, "", payment)
}

func (h *Handler) partialRefund(w http.ResponseWriter, r *http.Request) {
	actor := actorFromContext(r.Context())
	requestID := requestIDFromContext(r.Context())
	var req contracts.PartialRefundRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", err.Error(), requestID)
		return
	}
	amount, err := decimal.NewFromString(strings.TrimSpace(req.Amount))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_amount", "amount is not a valid decimal", requestID)
		return
	}
	payment, err := h.service.ApplyPartialRefund(r.Context(), actor, application.PartialRefundInput{
		PaymentID:  chi.URLParam(r, "id"),
		ShipmentID: strings.TrimSpace(req.ShipmentID),
		Amount:     amount,
		Reference:  strings.TrimSpace(req.Reference),
	})
	if err != nil {
		status, code := mapDomainError(err)
		writeError(w, status, code, err.Error(), requestID)
		return
	}
	writeSuccess(w, http.StatusOK, "", payment)
}

func (h *Handler) getStoreBalance(w http.ResponseWriter, r *http.Request) {
	balance, err := h.service.GetStoreBalance(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		status, code := mapDomainError(err)
		writeError(w, status, code, err.Error(), requestIDFromContext(r.Context()))
		return
	}
	writeSuccess(w, http.StatusOK, "", balance)
}

func (h *Handler) createRefund(w http.ResponseWriter, r *http.Request) {
	actor := actorFromContext(r.Context())
	requestID := requestIDFromContext(r.Context())
	var req contracts.CreateRefundRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", err.Error(), requestID)
		return
	}
	amount, err := decimal.NewFromString(strings.TrimSpace(req.Amount))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_amount", "amount is not a valid decimal", requestID)
		return
	}
	refund, err := h.service.CreateRefund(r.Context(), actor, application.CreateRefundInput{
		OrderID:    strings.TrimSpace(req.OrderID),
		ShipmentID: strings.TrimSpace(req.ShipmentID),
		Amount:     amount,
		Reason:     strings.TrimSpace(req.Reason),
	})
	if err != nil {
		status, code := mapDomainError(err)
		writeError(w, status, code, err.Error(), requestID)
		return
	}
	writeSuccess(w, http.StatusCreated, "", refund)
}

func (h *Handler) getRefund(w http.ResponseWriter, r *http.Request) {
	actor := actorFromContext(r.Context())
	refund, err := h.service.GetRefund(r.Context(), actor, chi.URLParam(r, "id"))
	if err != nil {
		status, code := mapDomainError(err)
		writeError(w, status, code, err.Error(), requestIDFromContext(r.Context()))
		return
	}
	writeSuccess(w, http.StatusOK, "", refund)
}

func (h *Handler) executeRefund(w http.ResponseWriter, r *http.Request) {
	actor := actorFromContext(r.Context())
	refund, err := h.service.ExecuteRefund(r.Context(), actor, chi.URLParam(r, "id"))
	if err != nil {
		status, code := mapDomainError(err)
		writeError(w, status, code, err.Error(), requestIDFromContext(r.Context()))
		return
	}
	writeSuccess(w, http.StatusOK, "", refund)
}

func (h *Handler) retryRefund(w http.ResponseWriter, r *http.Request) {
	actor := actorFromContext(r.Context())
	refund, err := h.service.RetryRefund(r.Context(), actor, chi.URLParam(r, "id"))
	if err != nil {
		status, code := mapDomainError(err)
		writeError(w, status, code, err.Error(), requestIDFromContext(r.Context()))
		return
	}
	writeSuccess(w, http.StatusOK, "", refund)
}

func (h *Handler) rejectRefund(w http.ResponseWriter, r *http.Request) {
	actor := actorFromContext(r.Context())
	requestID := requestIDFromContext(r.Context())
	var req contracts.RejectRefundRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", err.Error(), requestID)
		return
	}
	refund, err := h.service.RejectRefund(r.Context(), actor, chi.URLParam(r, "id"), strings.TrimSpace(req.Reason))
	if err != nil {
		status, code := mapDomainError(err)
		writeError(w, status, code, err.Error(), requestID)
		return
	}
	writeSuccess(w, http.StatusOK, "", refund)
}

func (h *Handler) createCommissionRule(w http.ResponseWriter, r *http.Request) {
	actor := actorFromContext(r.Context())
	requestID := requestIDFromContext(r.Context())
	var req contracts.CreateCommissionRuleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", err.Error(), requestID)
		return
	}
	rate, err := decimal.NewFromString(strings.TrimSpace(req.Rate))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_rate", "rate is not a valid decimal", requestID)
		return
	}
	input := application.CreateCommissionRuleInput{
		Scope:      domain.CommissionScope(strings.ToLower(strings.TrimSpace(req.Scope))),
		StoreID:    strings.TrimSpace(req.StoreID),
		CategoryID: strings.TrimSpace(req.CategoryID),
		Rate:       rate,
	}
	if req.EffectiveFrom != "" {
		from, parseErr := time.Parse(time.RFC3339, req.EffectiveFrom)
		if parseErr != nil {
			writeError(w, http.StatusBadRequest, "invalid_input", "effective_from must be RFC3339", requestID)
			return
		}
		input.EffectiveFrom = &from
	}
	if req.EffectiveTo != "" {
		to, parseErr := time.Parse(time.RFC3339, req.EffectiveTo)
		if parseErr != nil {
			writeError(w, http.StatusBadRequest, "invalid_input", "effective_to must be RFC3339", requestID)
			return
		}
		input.EffectiveTo = &to
	}
	rule, err := h.service.CreateCommissionRule(r.Context(), actor, input)
	if err != nil {
		status, code := mapDomainError(err)
		writeError(w, status, code, err.Error(), requestID)
		return
	}
	writeSuccess(w, http.StatusCreated, "", rule)
}

func (h *Handler) listCommissionRules(w http.ResponseWriter, r *http.Request) {
	actor := actorFromContext(r.Context())
	rules, err := h.service.ListCommissionRules(r.Context(), actor)
	if err != nil {
		status, code := mapDomainError(err)
		writeError(w, status, code, err.Error(), requestIDFromContext(r.Context()))
		return
	}
	writeSuccess(w, http.StatusOK, "", rules)
}

func (h *Handler) resolveCommission(w http.ResponseWriter, r *http.Request) {
	actor := actorFromContext(r.Context())
	requestID := requestIDFromContext(r.Context())
	query := r.URL.Query()
	amount, err := decimal.NewFromString(strings.TrimSpace(query.Get("amount")))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_amount", "amount is not a valid decimal", requestID)
		return
	}
	at := time.Now().UTC()
	if raw := strings.TrimSpace(query.Get("at")); raw != "" {
		at, err = time.Parse(time.RFC3339, raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_input", "at must be RFC3339", requestID)
			return
		}
	}
	rate, commission, err := h.service.ResolveCommission(r.Context(), actor, strings.TrimSpace(query.Get("store_id")), strings.TrimSpace(query.Get("category_id")), amount, at)
	if err != nil {
		status, code := mapDomainError(err)
		writeError(w, status, code, err.Error(), requestID)
		return
	}
	writeSuccess(w, http.StatusOK, "", map[string]interface{}{
		"rate":       rate,
		"commission": commission,
	})
}

func (h *Handler) buildPayoutBatches(w http.ResponseWriter, r *http.Request) {
	actor := actorFromContext(r.Context())
	payouts, err := h.service.BuildPayoutBatches(r.Context(), actor)
	if err != nil {
		status, code := mapDomainError(err)
		writeError(w, status, code, err.Error(), requestIDFromContext(r.Context()))
		return
	}
	writeSuccess(w, http.StatusCreated, "", payouts)
}

func (h *Handler) dispatchPayout(w http.ResponseWriter, r *http.Request) {
	actor := actorFromContext(r.Context())
	payout, err := h.service.DispatchPayout(r.Context(), actor, chi.URLParam(r, "id"))
	if err != nil {
		status, code := mapDomainError(err)
		writeError(w, status, code, err.Error(), requestIDFromContext(r.Context()))
		return
	}
	writeSuccess(w, http.StatusOK, "", payout)
}

func (h *Handler) getPayout(w http.ResponseWriter, r *http.Request) {
	actor := actorFromContext(r.Context())
	payout, err := h.service.GetPayout(r.Context(), actor, chi.URLParam(r, "id"))
	if err != nil {
		status, code := mapDomainError(err)
		writeError(w, status, code, err.Error(), requestIDFromContext(r.Context()))
		return
	}
	writeSuccess(w, http.StatusOK, "", payout)
}

func (h *Handler) listPayouts(w http.ResponseWriter, r *http.Request) {
	actor := actorFromContext(r.Context())
	query := ports.PayoutQuery{
		StoreID: strings.TrimSpace(r.URL.Query().Get("store_id")),
		Status:  strings.TrimSpace(r.URL.Query().Get("status")),
		Limit:   parseIntOrDefault(r.URL.Query().Get("limit"), 20),
		Offset:  parseIntOrDefault(r.URL.Query().Get("offset"), 0),
	}
	out, err := h.service.ListPayouts(r.Context(), actor, query)
	if err != nil {
		status, code := mapDomainError(err)
		writeError(w, status, code, err.Error(), requestIDFromContext(r.Context()))
		return
	}
	writeSuccess(w, http.StatusOK, "", map[string]interface{}{
		"items":      out.Items,
		"pagination": out.Pagination,
	})
}

func (h *Handler) generateSettlement(w http.ResponseWriter, r *http.Request) {
	actor := actorFromContext(r.Context())
	requestID := requestIDFromContext(r.Context())
	var req contracts.GenerateSettlementRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", err.Error(), requestID)
		return
	}
	settlement, err := h.service.GenerateSettlement(r.Context(), actor, application.SettlementPeriodInput{
		StoreID: strings.TrimSpace(req.StoreID),
		Year:    req.Year,
		Month:   req.Month,
	})
	if err != nil {
		status, code := mapDomainError(err)
		writeError(w, status, code, err.Error(), requestID)
		return
	}
	writeSuccess(w, http.StatusCreated, "", settlement)
}

func (h *Handler) regenerateSettlement(w http.ResponseWriter, r *http.Request) {
	actor := actorFromContext(r.Context())
	requestID := requestIDFromContext(r.Context())
	var req contracts.RegenerateSettlementRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", err.Error(), requestID)
		return
	}
	settlement, err := h.service.RegenerateSettlement(r.Context(), actor, application.RegenerateSettlementInput{
		StoreID:         strings.TrimSpace(req.StoreID),
		Year:            req.Year,
		Month:           req.Month,
		ExpectedVersion: req.ExpectedVersion,
	})
	if err != nil {
		status, code := mapDomainError(err)
		writeError(w, status, code, err.Error(), requestID)
		return
	}
	writeSuccess(w, http.StatusCreated, "", settlement)
}

func (h *Handler) getSettlement(w http.ResponseWriter, r *http.Request) {
	actor := actorFromContext(r.Context())
	settlement, err := h.service.GetSettlement(r.Context(), actor, chi.URLParam(r, "id"))
	if err != nil {
		status, code := mapDomainError(err)
		writeError(w, status, code, err.Error(), requestIDFromContext(r.Context()))
		return
	}
	writeSuccess(w, http.StatusOK, "", settlement)
}

func (h *Handler) getSettlementHead(w http.ResponseWriter, r *http.Request) {
	actor := actorFromContext(r.Context())
	query := r.URL.Query()
	settlement, err := h.service.GetSettlementHead(r.Context(), actor,
		strings.TrimSpace(query.Get("store_id")),
		parseIntOrDefault(query.Get("year"), 0),
		parseIntOrDefault(query.Get("month"), 0),
	)
	if err != nil {
		status, code := mapDomainError(err)
		writeError(w, status, code, err.Error(), requestIDFromContext(r.Context()))
		return
	}
	writeSuccess(w, http.StatusOK, "", settlement)
}

func (h *Handler) listSettlements(w http.ResponseWriter, r *http.Request) {
	actor := actorFromContext(r.Context())
	query := ports.SettlementQuery{
		StoreID: strings.TrimSpace(r.URL.Query().Get("store_id")),
		Year:    parseIntOrDefault(r.URL.Query().Get("year"), 0),
		Month:   parseIntOrDefault(r.URL.Query().Get("month"), 0),
		Limit:   parseIntOrDefault(r.URL.Query().Get("limit"), 20),
		Offset:  parseIntOrDefault(r.URL.Query().Get("offset"), 0),
	}
	out, err := h.service.ListSettlements(r.Context(), actor, query)
	if err != nil {
		status, code := mapDomainError(err)
		writeError(w, status, code, err.Error(), requestIDFromContext(r.Context()))
		return
	}
	writeSuccess(w, http.StatusOK, "", map[string]interface{}{
		"items":      out.Items,
		"pagination": out.Pagination,
	})
}

func (h *Handler) addSettlementAdjustment(w http.ResponseWriter, r *http.Request) {
	actor := actorFromContext(r.Context())
	requestID := requestIDFromContext(r.Context())
	var req contracts.AddAdjustmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", err.Error(), requestID)
		return
	}
	amount, err := decimal.NewFromString(strings.TrimSpace(req.Amount))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_amount", "amount is not a valid decimal", requestID)
		return
	}
	settlement, err := h.service.AddSettlementAdjustment(r.Context(), actor, application.AddAdjustmentInput{
		SettlementID: chi.URLParam(r, "id"),
		Amount:       amount,
		Reason:       strings.TrimSpace(req.Reason),
		SourceYear:   req.SourceYear,
		SourceMonth:  req.SourceMonth,
	})
	if err != nil {
		status, code := mapDomainError(err)
		writeError(w, status, code, err.Error(), requestID)
		return
	}
	writeSuccess(w, http.StatusOK, "", settlement)
}

func (h *Handler) finalizeSettlement(w http.ResponseWriter, r *http.Request) {
	actor := actorFromContext(r.Context())
	settlement, err := h.service.FinalizeSettlement(r.Context(), actor, chi.URLParam(r, "id"))
	if err != nil {
		status, code := mapDomainError(err)
		writeError(w, status, code, err.Error(), requestIDFromContext(r.Context()))
		return
	}
	writeSuccess(w, http.StatusOK, "", settlement)
}

func (h *Handler) approveSettlement(w http.ResponseWriter, r *http.Request) {
	actor := actorFromContext(r.Context())
	requestID := requestIDFromContext(r.Context())
	var req contracts.ApproveSettlementRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", err.Error(), requestID)
		return
	}
	settlement, err := h.service.ApproveSettlement(r.Context(), actor, chi.URLParam(r, "id"), strings.TrimSpace(req.ApprovedBy))
	if err != nil {
		status, code := mapDomainError(err)
		writeError(w, status, code, err.Error(), requestID)
		return
	}
	writeSuccess(w, http.StatusOK, "", settlement)
}

func (h *Handler) exportSettlement(w http.ResponseWriter, r *http.Request) {
	actor := actorFromContext(r.Context())
	settlement, err := h.service.ExportSettlement(r.Context(), actor, chi.URLParam(r, "id"))
	if err != nil {
		status, code := mapDomainError(err)
		writeError(w, status, code, err.Error(), requestIDFromContext(r.Context()))
		return
	}
	writeSuccess(w, http.StatusOK, "", settlement)
}

func (h *Handler) issueInvoice(w http.ResponseWriter, r *http.Request) {
	actor := actorFromContext(r.Context())
	invoice, err := h.service.IssueCommissionInvoice(r.Context(), actor, chi.URLParam(r, "id"))
	if err != nil {
		status, code := mapDomainError(err)
		writeError(w, status, code, err.Error(), requestIDFromContext(r.Context()))
		return
	}
	writeSuccess(w, http.StatusCreated, "", invoice)
}

func (h *Handler) issueCreditNote(w http.ResponseWriter, r *http.Request) {
	actor := actorFromContext(r.Context())
	requestID := requestIDFromContext(r.Context())
	var req contracts.IssueCreditNoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", err.Error(), requestID)
		return
	}
	amount, err := decimal.NewFromString(strings.TrimSpace(req.Amount))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_amount", "amount is not a valid decimal", requestID)
		return
	}
	note, err := h.service.IssueCreditNote(r.Context(), actor, chi.URLParam(r, "id"), amount, strings.TrimSpace(req.Reason))
	if err != nil {
		status, code := mapDomainError(err)
		writeError(w, status, code, err.Error(), requestID)
		return
	}
	writeSuccess(w, http.StatusCreated, "", note)
}

func (h *Handler) listSettlementInvoices(w http.ResponseWriter, r *http.Request) {
	actor := actorFromContext(r.Context())
	invoices, err := h.service.ListSettlementInvoices(r.Context(), actor, chi.URLParam(r, "id"))
	if err != nil {
		status, code := mapDomainError(err)
		writeError(w, status, code, err.Error(), requestIDFromContext(r.Context()))
		return
	}
	writeSuccess(w, http.StatusOK, "", invoices)
}

func (h *Handler) getInvoice(w http.ResponseWriter, r *http.Request) {
	actor := actorFromContext(r.Context())
	invoice, err := h.service.GetInvoice(r.Context(), actor, chi.URLParam(r, "id"))
	if err != nil {
		status, code := mapDomainError(err)
		writeError(w, status, code, err.Error(), requestIDFromContext(r.Context()))
		return
	}
	writeSuccess(w, http.StatusOK, "", invoice)
}

func parseIntOrDefault(raw string, fallback int) int {
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}
