package models

import (
	"time"

	"github.com/google/uuid"
)

// CheckoutAttemptEvent is one immutable state transition of a checkout attempt.
type CheckoutAttemptEvent struct {
	ID               uuid.UUID `gorm:"column:id;type:varchar(36);primaryKey"`
	AttemptID        string    `gorm:"column:attempt_id;not null;uniqueIndex:ux_checkout_attempt_events_seq,priority:1"`
	Sequence         int       `gorm:"column:sequence;not null;uniqueIndex:ux_checkout_attempt_events_seq,priority:2"`
	SessionID        string    `gorm:"column:session_id;not null;index"`
	UserID           string    `gorm:"column:user_id"`
	State            string    `gorm:"column:state;not null"`
	PaymentMethod    string    `gorm:"column:payment_method;not null"`
	GatewayOrderRef  *string   `gorm:"column:gateway_order_ref"`
	GatewayPaymentID *string   `gorm:"column:gateway_payment_id"`
	OrderID          *string   `gorm:"column:order_id"`
	OrderNumber      *string   `gorm:"column:order_number"`
	FailureKind      *string   `gorm:"column:failure_kind"`
	FailureCode      *string   `gorm:"column:failure_code"`
	Reason           *string   `gorm:"column:reason"`
	AmountMinor      *int64    `gorm:"column:amount_minor"`
	Currency         *string   `gorm:"column:currency"`
	CreatedAt        time.Time `gorm:"column:created_at;autoCreateTime"`
}

// TableName pins the table name.
func (CheckoutAttemptEvent) TableName() string {
	return "checkout_attempt_events"
}
