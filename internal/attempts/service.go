package attempts

import (
	"context"
	"fmt"
	"strings"

	"github.com/angelmondragon/bookstore-storefront/internal/checkout"
	"github.com/angelmondragon/bookstore-storefront/pkg/db"
	"github.com/angelmondragon/bookstore-storefront/pkg/db/models"
	"github.com/google/uuid"
)

// Service records checkout transitions and reads them back for support.
type Service struct {
	repo Repository
}

// NewService wires the attempt ledger.
func NewService(repo Repository) (*Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("attempt repository required")
	}
	return &Service{repo: repo}, nil
}

// RecordTransition stores the attempt's latest transition. Replays of an already
// recorded sequence are ignored.
func (s *Service) RecordTransition(ctx context.Context, attempt checkout.Attempt) error {
	if strings.TrimSpace(attempt.ID) == "" {
		return fmt.Errorf("attempt id is required")
	}
	if len(attempt.History) == 0 {
		return fmt.Errorf("attempt %s has no transitions", attempt.ID)
	}

	event := eventFor(attempt)
	if err := s.repo.Create(ctx, event); err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil
		}
		return fmt.Errorf("record checkout transition: %w", err)
	}
	return nil
}

// History returns the recorded events of one attempt in order.
func (s *Service) History(ctx context.Context, attemptID string) ([]models.CheckoutAttemptEvent, error) {
	attemptID = strings.TrimSpace(attemptID)
	if attemptID == "" {
		return nil, fmt.Errorf("attempt id is required")
	}
	return s.repo.ListByAttemptID(ctx, attemptID)
}

// RecentForSession returns the newest events recorded for a session.
func (s *Service) RecentForSession(ctx context.Context, sessionID string, limit int) ([]models.CheckoutAttemptEvent, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return nil, fmt.Errorf("session id is required")
	}
	return s.repo.ListBySessionID(ctx, sessionID, limit)
}

func eventFor(a checkout.Attempt) *models.CheckoutAttemptEvent {
	last := a.History[len(a.History)-1]
	event := &models.CheckoutAttemptEvent{
		ID:            uuid.New(),
		AttemptID:     a.ID,
		Sequence:      len(a.History),
		SessionID:     a.SessionID,
		UserID:        a.UserID,
		State:         string(last.To),
		PaymentMethod: string(a.Method),
		CreatedAt:     last.At,
	}

	if po := a.PaymentOrder; po != nil {
		event.GatewayOrderRef = optional(po.GatewayOrderRef)
		event.OrderID = optional(po.OrderID)
		event.OrderNumber = optional(po.OrderNumber)
		event.Currency = optional(po.Currency)
	}
	if c := a.Collection; c != nil {
		amount := c.AmountMinor
		event.AmountMinor = &amount
		event.Currency = optional(c.Currency)
	}
	if sig := a.Signature; sig != nil {
		event.GatewayPaymentID = optional(sig.GatewayPaymentID)
	}
	if o := a.Order; o != nil {
		event.OrderID = optional(o.ID)
		event.OrderNumber = optional(o.OrderNumber)
	}
	if f := a.Failure; f != nil && last.To == checkout.StateFailed {
		event.FailureKind = optional(string(f.Kind))
		event.FailureCode = optional(string(f.Code))
		event.Reason = optional(f.Reason)
	}
	if last.To == checkout.StateAddressRequired && len(a.MissingFields) > 0 {
		event.Reason = optional("missing address fields: " + strings.Join(a.MissingFields, ","))
	}
	return event
}

func optional(v string) *string {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	return &v
}
