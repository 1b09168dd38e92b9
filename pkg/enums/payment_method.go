package enums

import (
	"fmt"
	"strings"
)

// PaymentMethod describes how a shopper intends to settle an order.
type PaymentMethod string

const (
	PaymentMethodOnline         PaymentMethod = "ONLINE"
	PaymentMethodCashOnDelivery PaymentMethod = "CASH_ON_DELIVERY"
)

var validPaymentMethods = []PaymentMethod{
	PaymentMethodOnline,
	PaymentMethodCashOnDelivery,
}

// String implements fmt.Stringer.
func (p PaymentMethod) String() string {
	return string(p)
}

// IsValid reports whether the value is a known PaymentMethod.
func (p PaymentMethod) IsValid() bool {
	for _, candidate := range validPaymentMethods {
		if candidate == p {
			return true
		}
	}
	return false
}

// RequiresCollection reports whether the method goes through the external payment collector.
func (p PaymentMethod) RequiresCollection() bool {
	return p == PaymentMethodOnline
}

// ParsePaymentMethod converts raw input into a PaymentMethod. "COD" is accepted as an alias.
func ParsePaymentMethod(value string) (PaymentMethod, error) {
	normalized := strings.ToUpper(strings.TrimSpace(value))
	if normalized == "COD" {
		return PaymentMethodCashOnDelivery, nil
	}
	for _, candidate := range validPaymentMethods {
		if string(candidate) == normalized {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid payment method %q", value)
}
