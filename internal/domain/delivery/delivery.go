package delivery

import (
	"strings"

	"github.com/cassiomorais/checkout/internal/domain/errors"
	"github.com/google/uuid"
)

// Delivery holds shipping details for an order. ID and Fee are assigned by
// the repository on save.
type Delivery struct {
	ID            uuid.UUID
	Address       string
	Country       string
	City          string
	Region        string
	PostalCode    string
	RecipientName string
	Fee           int64
}

// Validate checks that the delivery details are complete.
func (d *Delivery) Validate() error {
	required := []struct {
		field string
		value string
	}{
		{"delivery.address", d.Address},
		{"delivery.country", d.Country},
		{"delivery.city", d.City},
		{"delivery.region", d.Region},
		{"delivery.postal_code", d.PostalCode},
		{"delivery.recipient_name", d.RecipientName},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			return errors.NewValidationError(r.field, "cannot be empty")
		}
	}
	return nil
}

// FeePolicy computes the shipping fee in minor currency units.
type FeePolicy struct {
	BaseFee    int64
	RegionFees map[string]int64
}

// NewFeePolicy builds a policy. Region keys are matched case-insensitively.
func NewFeePolicy(baseFee int64, regionFees map[string]int64) FeePolicy {
	normalized := make(map[string]int64, len(regionFees))
	for region, fee := range regionFees {
		normalized[strings.ToLower(strings.TrimSpace(region))] = fee
	}
	return FeePolicy{BaseFee: baseFee, RegionFees: normalized}
}

// FeeFor returns the regional fee if one is configured, otherwise the base fee.
func (p FeePolicy) FeeFor(d *Delivery) int64 {
	if fee, ok := p.RegionFees[strings.ToLower(strings.TrimSpace(d.Region))]; ok {
		return fee
	}
	return p.BaseFee
}
