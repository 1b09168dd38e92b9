package types

import (
	"github.com/angelmondragon/bookstore-storefront/pkg/enums"
	"github.com/shopspring/decimal"
)

// PaymentOrder is the provisional, single-use record the gateway collects against.
type PaymentOrder struct {
	GatewayOrderRef string          `json:"gatewayOrderRef"`
	Amount          decimal.Decimal `json:"amount"`
	Currency        string          `json:"currency"`
	OrderID         string          `json:"orderId"`
	OrderNumber     string          `json:"orderNumber"`
}

// Order is a placed commerce order as read back by the storefront.
type Order struct {
	ID            string              `json:"orderId"`
	OrderNumber   string              `json:"orderNumber"`
	Status        enums.OrderStatus   `json:"status"`
	PaymentMethod enums.PaymentMethod `json:"paymentMethod,omitempty"`
}
