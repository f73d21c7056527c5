package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/vendora/marketplace-ledger/internal/application"
)

type Handler struct {
	service *application.Service
}

func NewHandler(service *application.Service) *Handler {
	return &Handler{service: service}
}

func NewRouter(handler *Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(requestIDMiddleware)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) { writeSuccess(w, http.StatusOK, "ok", nil) })
	r.Get("/readyz", func(w http.ResponseWriter, _ *http.Request) { writeSuccess(w, http.StatusOK, "ready", nil) })

	r.Route("/v1", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(authMiddleware)

			r.Route("/escrow/payments", func(r chi.Router) {
				r.Post("/", handler.createEscrowPayment)
				r.Get("/{id}", handler.getEscrowPayment)
				r.Post("/{id}/allocations", handler.addAllocation)
				r.Post("/{id}/release", handler.releaseAllocation)
				r.Post("/{id}/refund", handler.refundEscrow)
				r.Post("/{id}/partial-refund", handler.partialRefund)
			})

			r.Get("/stores/{id}/balance", handler.getStoreBalance)

			r.Route("/refunds", func(r chi.Router) {
				r.Post("/", handler.createRefund)
				r.Get("/{id}", handler.getRefund)
				r.Post("/{id}/execute", handler.executeRefund)
				r.Post("/{id}/retry", handler.retryRefund)
				r.Post("/{id}/reject", handler.rejectRefund)
			})

			r.Route("/commission-rules", func(r chi.Router) {
				r.Post("/", handler.createCommissionRule)
				r.Get("/", handler.listCommissionRules)
				r.Get("/resolve", handler.resolveCommission)
			})

			r.Route("/payouts", func(r chi.Router) {
				r.Post("/build", handler.buildPayoutBatches)
				r.Get("/", handler.listPayouts)
				r.Get("/{id}", handler.getPayout)
				r.Post("/{id}/dispatch", handler.dispatchPayout)
			})

			r.Route("/settlements", func(r chi.Router) {
				r.Post("/generate", handler.generateSettlement)
				r.Post("/regenerate", handler.regenerateSettlement)
				r.Get("/", handler.listSettlements)
				r.Get("/head", handler.getSettlementHead)
				r.Get("/{id}", handler.getSettlement)
				r.Post("/{id}/adjustments", handler.addSettlementAdjustment)
				r.Post("/{id}/finalize", handler.finalizeSettlement)
				r.Post("/{id}/approve", handler.approveSettlement)
				r.Post("/{id}/export", handler.exportSettlement)
				r.Post("/{id}/invoice", handler.issueInvoice)
				r.Post("/{id}/credit-notes", handler.issueCreditNote)
				r.Get("/{id}/invoices", handler.listSettlementInvoices)
			})

			r.Get("/invoices/{id}", handler.getInvoice)
		})
	})
	return r
}
