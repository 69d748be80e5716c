package payment

import "time"

// GatewayStatus is the transaction state reported by the payment gateway
type GatewayStatus string

const (
	GatewayApproved GatewayStatus = "APPROVED"
	GatewayDeclined GatewayStatus = "DECLINED"
	GatewayVoided   GatewayStatus = "VOIDED"
	GatewayError    GatewayStatus = "ERROR"
	GatewayPending  GatewayStatus = "PENDING"
)

// IsFinal reports whether the gateway will not change the status any more.
func (s GatewayStatus) IsFinal() bool {
	switch s {
	case GatewayApproved, GatewayDeclined, GatewayVoided, GatewayError:
		return true
	default:
		return false
	}
}

// Acceptance is a legal document the customer must accept before paying.
type Acceptance struct {
	Type            string
	AcceptanceToken string
	Permalink       string
}

// CardToken is the gateway's opaque reference to a tokenized card.
type CardToken struct {
	ID        string
	Brand     string
	Last4     string
	ExpiresAt time.Time
}

// ChargeRequest describes a single charge against a tokenized card.
type ChargeRequest struct {
	Reference     string
	AmountInCents int64
	Currency      string
	CustomerEmail string
	Token         CardToken
	Installments  int

	// AcceptanceToken proves the customer accepted the gateway's terms.
	AcceptanceToken string
}

// ChargeResult is what the gateway reported for a charge.
type ChargeResult struct {
	TransactionID string
	Status        GatewayStatus
	StatusMessage string
}
