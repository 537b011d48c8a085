package db

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/recarga/backend/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryLedgerRepository struct {
	entries []domain.LedgerEntry
	err     error
}

func (m *memoryLedgerRepository) Create(_ context.Context, entry *domain.LedgerEntry) error {
	if m.err != nil {
		return m.err
	}
	entry.ID = uint(len(m.entries) + 1)
	m.entries = append(m.entries, *entry)
	return nil
}

func (m *memoryLedgerRepository) GetByCard(_ context.Context, card string, _ int) ([]domain.LedgerEntry, error) {
	var out []domain.LedgerEntry
	for _, e := range m.entries {
		if e.CardNumber == card {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *memoryLedgerRepository) GetAll(context.Context, int) ([]domain.LedgerEntry, error) {
	return m.entries, nil
}

func TestLedgerSinkAppend(t *testing.T) {
	repo := &memoryLedgerRepository{}
	sink := NewLedgerSink(repo)
	assert.Equal(t, "database", sink.Name())

	req := domain.RechargeRequest{
		PaymentMethod: domain.PaymentMethodPix,
		CardNumber:    "1234",
		Amount:        decimal.RequireFromString("10.00"),
	}
	entry := domain.NewLedgerEntry("task-1", req, "Ana", time.Now())
	require.NoError(t, sink.Append(context.Background(), entry))

	got, err := repo.GetByCard(context.Background(), "1234", 0)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Ana", got[0].PayerName)
	assert.Equal(t, "task-1", got[0].TaskID)
	assert.True(t, got[0].Amount.Equal(decimal.NewFromInt(10)))
}

func TestLedgerSinkPropagatesErrors(t *testing.T) {
	boom := errors.New("connection refused")
	sink := NewLedgerSink(&memoryLedgerRepository{err: boom})

	err := sink.Append(context.Background(), domain.LedgerEntry{})
	assert.ErrorIs(t, err, boom)
}
