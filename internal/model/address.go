package model

import (
	"regexp"
	"strings"
)

var zipPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9 -]{2,8}[A-Za-z0-9]$`)

// Address is a customer delivery address.
type Address struct {
	ID        string `json:"id"`
	Label     string `json:"label,omitempty"`
	Line1     string `json:"addressLine1"`
	Line2     string `json:"addressLine2,omitempty"`
	City      string `json:"city"`
	State     string `json:"state"`
	ZipCode   string `json:"zipCode"`
	IsDefault bool   `json:"isDefault"`
}

// Validate checks that the address fields are usable for delivery.
func (a Address) Validate() error {
	switch {
	case strings.TrimSpace(a.ID) == "":
		return NewDomainError(ErrCodeInvalidAddress, "Delivery address id is required")
	case strings.TrimSpace(a.Line1) == "":
		return NewDomainError(ErrCodeInvalidAddress, "Address line 1 is required")
	case strings.TrimSpace(a.City) == "":
		return NewDomainError(ErrCodeInvalidAddress, "City is required")
	case strings.TrimSpace(a.State) == "":
		return NewDomainError(ErrCodeInvalidAddress, "State is required")
	case !zipPattern.MatchString(strings.TrimSpace(a.ZipCode)):
		return NewDomainError(ErrCodeInvalidAddress, "Zip code is malformed")
	}
	return nil
}

// ValidPhone reports whether phone contains between 7 and 15 digits.
func ValidPhone(phone string) bool {
	digits := 0
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			digits++
		}
	}
	return digits >= 7 && digits <= 15
}
