package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vendora/marketplace-ledger/internal/domain"
	"github.com/vendora/marketplace-ledger/internal/ports"
)

// HTTPPaymentGateway calls the payment provider's refund endpoint. The
// reference doubles as the provider-side idempotency key, so the same
// request replayed after a timeout returns the original transaction.
type HTTPPaymentGateway struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

func NewHTTPPaymentGateway(baseURL, apiKey string, timeout time.Duration) *HTTPPaymentGateway {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &HTTPPaymentGateway{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: timeout},
	}
}

type gatewayRequest struct {
	Amount    string `json:"amount"`
	Currency  string `json:"currency"`
	Reference string `json:"reference"`
}

type gatewayResponse struct {
	TransactionID string `json:"transaction_id"`
	Status        string `json:"status"`
	Message       string `json:"message,omitempty"`
}

func (g *HTTPPaymentGateway) Execute(ctx context.Context, amount decimal.Decimal, currency, reference string) (ports.GatewayResult, error) {
	payload, err := json.Marshal(gatewayRequest{
		Amount:    amount.StringFixed(2),
		Currency:  currency,
		Reference: reference,
	})
	if err != nil {
		return ports.GatewayResult{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/v1/refunds", bytes.NewReader(payload))
	if err != nil {
		return ports.GatewayResult{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+g.apiKey)
	req.Header.Set("Idempotency-Key", reference)

	resp, err := g.client.Do(req)
	if err != nil {
		return ports.GatewayResult{}, &domain.ProviderError{Reference: reference, Message: err.Error()}
	}
	defer resp.Body.Close()

	var body gatewayResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return ports.GatewayResult{}, &domain.ProviderError{Reference: reference, Message: err.Error()}
	}
	if resp.StatusCode >= 500 {
		return ports.GatewayResult{}, &domain.ProviderError{
			Reference: body.TransactionID,
			Message:   fmt.Sprintf("provider returned %d: %s", resp.StatusCode, body.Message),
		}
	}
	return ports.GatewayResult{TransactionID: body.TransactionID, Status: body.Status}, nil
}

// HTTPPayoutGateway dispatches payout batches to the bank transfer
// provider.
type HTTPPayoutGateway struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

func NewHTTPPayoutGateway(baseURL, apiKey string, timeout time.Duration) *HTTPPayoutGateway {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &HTTPPayoutGateway{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: timeout},
	}
}

type payoutRequest struct {
	BatchNumber string `json:"batch_number"`
	StoreID     string `json:"store_id"`
	Currency    string `json:"currency"`
	Amount      string `json:"amount"`
	ItemCount   int    `json:"item_count"`
}

func (g *HTTPPayoutGateway) Execute(ctx context.Context, batch ports.PayoutBatch) (string, error) {
	payload, err := json.Marshal(payoutRequest{
		BatchNumber: batch.PayoutNumber,
		StoreID:     batch.StoreID,
		Currency:    batch.Currency,
		Amount:      batch.Amount.StringFixed(2),
		ItemCount:   batch.ItemCount,
	})
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/v1/transfers", bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+g.apiKey)
	req.Header.Set("Idempotency-Key", batch.PayoutNumber)

	resp, err := g.client.Do(req)
	if err != nil {
		return "", &domain.ProviderError{Reference: batch.PayoutNumber, Message: err.Error()}
	}
	defer resp.Body.Close()

	var body gatewayResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", &domain.ProviderError{Reference: batch.PayoutNumber, Message: err.Error()}
	}
	switch domain.MapGatewayStatus(body.Status) {
	case domain.GatewayStatusPaid:
		return body.TransactionID, nil
	default:
		return "", &domain.ProviderError{
			Reference: body.TransactionID,
			Message:   fmt.Sprintf("provider status %q: %s", body.Status, body.Message),
		}
	}
}
