package onboarding

import (
	"errors"
	"strings"

	"github.com/example/skinwise/internal/contact"
	"github.com/example/skinwise/internal/models"
)

var (
	// ErrAddressIncomplete is returned when a required address field is blank.
	ErrAddressIncomplete = errors.New("address line, city, state and pincode are required")
	// ErrInvalidPincode is returned for anything other than a 6-digit pincode.
	ErrInvalidPincode = errors.New("pincode must be 6 digits")
)

const pincodeLength = 6

// NormalizeAddress trims every field and validates the shipping address
// collected by the wizard's address step.
func NormalizeAddress(a models.Address) (models.Address, error) {
	a.Line1 = strings.TrimSpace(a.Line1)
	a.Line2 = strings.TrimSpace(a.Line2)
	a.Landmark = strings.TrimSpace(a.Landmark)
	a.City = strings.TrimSpace(a.City)
	a.State = strings.TrimSpace(a.State)
	a.Pincode = strings.TrimSpace(a.Pincode)

	if a.Line1 == "" || a.City == "" || a.State == "" || a.Pincode == "" {
		return a, ErrAddressIncomplete
	}
	if len(a.Pincode) != pincodeLength || contact.Digits(a.Pincode) != a.Pincode {
		return a, ErrInvalidPincode
	}
	return a, nil
}

// NormalizeAddresses normalizes every address and marks the first one default
// when none is.
func NormalizeAddresses(in []models.Address) ([]models.Address, error) {
	if in == nil {
		return nil, nil
	}
	out := make([]models.Address, 0, len(in))
	hasDefault := false
	for _, a := range in {
		normalized, err := NormalizeAddress(a)
		if err != nil {
			return nil, err
		}
		hasDefault = hasDefault || normalized.IsDefault
		out = append(out, normalized)
	}
	if !hasDefault && len(out) > 0 {
		out[0].IsDefault = true
	}
	return out, nil
}
