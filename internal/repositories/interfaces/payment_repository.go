package interfaces

import (
	"context"
	"errors"

	"momo-gateway/internal/models"
)

var ErrNotFound = errors.New("payment not found")

type PaymentRepository interface {
	Save(ctx context.Context, payment *models.Payment) error
	Get(ctx context.Context, referenceID string) (*models.Payment, error)

	// UpdateStatus never moves a payment out of a final status.
	UpdateStatus(ctx context.Context, referenceID string, update models.PaymentStatusUpdate) (*models.Payment, bool, error)
	ListPending(ctx context.Context) ([]*models.Payment, error)
}
