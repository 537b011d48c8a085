package ports

import (
	"context"

	"github.com/recarga/backend/internal/domain"
)

type LedgerRepository interface {
	Create(ctx context.Context, entry *domain.LedgerEntry) error
	GetByCard(ctx context.Context, cardNumber string, limit int) ([]domain.LedgerEntry, error)
	GetAll(ctx context.Context, limit int) ([]domain.LedgerEntry, error)
}
