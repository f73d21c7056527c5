package domain

import "strings"

// GatewayStatus is the internal view of a payment provider transaction
// state.
type GatewayStatus string

const (
	GatewayStatusPending  GatewayStatus = "pending"
	GatewayStatusPaid     GatewayStatus = "paid"
	GatewayStatusFailed   GatewayStatus = "failed"
	GatewayStatusRefunded GatewayStatus = "refunded"
	GatewayStatusUnknown  GatewayStatus = "unknown"
)

// MapGatewayStatus translates a provider-specific status string through
// the fixed keyword table. Providers that add their own vocabulary still
// land on one of the four internal states as long as they reuse the
// generic keywords.
func MapGatewayStatus(providerStatus string) GatewayStatus {
	switch strings.ToUpper(strings.TrimSpace(providerStatus)) {
	case "SUCCESS", "COMPLETED", "PAID":
		return GatewayStatusPaid
	case "PENDING", "PROCESSING":
		return GatewayStatusPending
	case "FAILED", "DECLINED", "CANCELLED":
		return GatewayStatusFailed
	case "REFUNDED", "CHARGEBACK":
		return GatewayStatusRefunded
	default:
		return GatewayStatusUnknown
	}
}
