package address

import (
	"strings"

	"github.com/angelmondragon/bookstore-storefront/pkg/types"
)

// Required fields reported back to the address-collection flow.
const (
	FieldStreet  = "street"
	FieldCity    = "city"
	FieldState   = "state"
	FieldZipCode = "zipCode"
)

// CanCheckout reports whether addr is complete enough to place an order.
// House number and country are optional.
func CanCheckout(addr types.Address) bool {
	return len(MissingFields(addr)) == 0
}

// MissingFields lists the required fields that are empty after trimming, in form order.
func MissingFields(addr types.Address) []string {
	var missing []string
	for _, field := range []struct {
		name  string
		value string
	}{
		{FieldStreet, addr.Street},
		{FieldCity, addr.City},
		{FieldState, addr.State},
		{FieldZipCode, addr.ZipCode},
	} {
		if strings.TrimSpace(field.value) == "" {
			missing = append(missing, field.name)
		}
	}
	return missing
}
