package contracts

type SuccessResponse struct {
	Status  string      `json:"status"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

type ErrorResponse struct {
	Status string       `json:"status"`
	Error  ErrorPayload `json:"error"`
}

type ErrorPayload struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

type Pagination struct {
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
	Total  int `json:"total"`
}

type CreateEscrowPaymentRequest struct {
	OrderID     string                   `json:"order_id"`
	BuyerID     string                   `json:"buyer_id"`
	TotalAmount string                   `json:"total_amount"`
	Currency    string                   `json:"currency"`
	Shipments   []CreateShipmentRequest  `json:"shipments,omitempty"`
}

type CreateShipmentRequest struct {
	ShipmentID     string `json:"shipment_id"`
	StoreID        string `json:"store_id"`
	CategoryID     string `json:"category_id,omitempty"`
	SellerAmount   string `json:"seller_amount"`
	ShippingAmount string `json:"shipping_amount"`
}

type AddAllocationRequest struct {
	ShipmentID     string `json:"shipment_id"`
	StoreID        string `json:"store_id"`
	CategoryID     string `json:"category_id,omitempty"`
	SellerAmount   string `json:"seller_amount"`
	ShippingAmount string `json:"shipping_amount"`
}

type ReleaseAllocationRequest struct {
	ShipmentID      string `json:"shipment_id"`
	PayoutReference string `json:"payout_reference"`
}

type RefundAllocationRequest struct {
	ShipmentID string `json:"shipment_id,omitempty"`
	Reference  string `json:"reference"`
}

type PartialRefundRequest struct {
	ShipmentID string `json:"shipment_id"`
	Amount     string `json:"amount"`
	Reference  string `json:"reference"`
}

type CreateRefundRequest struct {
	OrderID    string `json:"order_id"`
	ShipmentID string `json:"shipment_id,omitempty"`
	Amount     string `json:"amount"`
	Reason     string `json:"reason"`
}

type RejectRefundRequest struct {
	Reason string `json:"reason"`
}

type CreateCommissionRuleRequest struct {
	Scope         string `json:"scope"`
	StoreID       string `json:"store_id,omitempty"`
	CategoryID    string `json:"category_id,omitempty"`
	Rate          string `json:"rate"`
	EffectiveFrom string `json:"effective_from,omitempty"`
	EffectiveTo   string `json:"effective_to,omitempty"`
}

type GenerateSettlementRequest struct {
	StoreID string `json:"store_id"`
	Year    int    `json:"year"`
	Month   int    `json:"month"`
}

type RegenerateSettlementRequest struct {
	StoreID         string `json:"store_id"`
	Year            int    `json:"year"`
	Month           int    `json:"month"`
	ExpectedVersion int    `json:"expected_version"`
}

type ApproveSettlementRequest struct {
	ApprovedBy string `json:"approved_by"`
}

type AddAdjustmentRequest struct {
	Amount      string `json:"amount"`
	Reason      string `json:"reason"`
	SourceYear  int    `json:"source_year,omitempty"`
	SourceMonth int    `json:"source_month,omitempty"`
}

type IssueCreditNoteRequest struct {
	Amount string `json:"amount"`
	Reason string `json:"reason"`
}
