package attempts

import (
	"context"

	"github.com/angelmondragon/bookstore-storefront/pkg/db/models"
	"gorm.io/gorm"
)

// Repository persists checkout attempt events.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, event *models.CheckoutAttemptEvent) error
	ListByAttemptID(ctx context.Context, attemptID string) ([]models.CheckoutAttemptEvent, error)
	ListBySessionID(ctx context.Context, sessionID string, limit int) ([]models.CheckoutAttemptEvent, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns an attempt repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, event *models.CheckoutAttemptEvent) error {
	return r.db.WithContext(ctx).Create(event).Error
}

func (r *repository) ListByAttemptID(ctx context.Context, attemptID string) ([]models.CheckoutAttemptEvent, error) {
	var events []models.CheckoutAttemptEvent
	if err := r.db.WithContext(ctx).
		Where("attempt_id = ?", attemptID).
		Order("sequence ASC").
		Find(&events).Error; err != nil {
		return nil, err
	}
	return events, nil
}

func (r *repository) ListBySessionID(ctx context.Context, sessionID string, limit int) ([]models.CheckoutAttemptEvent, error) {
	var events []models.CheckoutAttemptEvent
	q := r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("created_at DESC").
		Order("sequence DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&events).Error; err != nil {
		return nil, err
	}
	return events, nil
}
