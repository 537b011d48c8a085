package db

import (
	"context"

	"github.com/recarga/backend/internal/core/ports"
	"github.com/recarga/backend/internal/domain"
	"github.com/recarga/backend/internal/infrastructure/logger"
	"gorm.io/gorm"
)

type ledgerRepository struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewLedgerRepository(db *gorm.DB, log *logger.Logger) ports.LedgerRepository {
	return &ledgerRepository{db: db, log: log}
}

func (r *ledgerRepository) Create(ctx context.Context, entry *domain.LedgerEntry) error {
	if err := r.db.WithContext(ctx).Create(entry).Error; err != nil {
		r.log.Errorw("ledger_repo_create_failed", "task_id", entry.TaskID, "card", entry.CardNumber, "error", err)
		return err
	}
	r.log.Infow("ledger_repo_create_ok", "id", entry.ID, "task_id", entry.TaskID)
	return nil
}

func (r *ledgerRepository) GetByCard(ctx context.Context, cardNumber string, limit int) ([]domain.LedgerEntry, error) {
	var entries []domain.LedgerEntry
	q := r.db.WithContext(ctx).Where("card_number = ?", cardNumber).Order("recorded_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&entries).Error; err != nil {
		r.log.Errorw("ledger_repo_get_by_card_failed", "card", cardNumber, "error", err)
		return nil, err
	}
	return entries, nil
}

func (r *ledgerRepository) GetAll(ctx context.Context, limit int) ([]domain.LedgerEntry, error) {
	var entries []domain.LedgerEntry
	q := r.db.WithContext(ctx).Order("recorded_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&entries).Error; err != nil {
		r.log.Errorw("ledger_repo_list_failed", "error", err)
		return nil, err
	}
	r.log.Infow("ledger_repo_list_ok", "count", len(entries))
	return entries, nil
}

// LedgerSink mirrors ledger entries into the database.
type LedgerSink struct {
	repo ports.LedgerRepository
}

func NewLedgerSink(repo ports.LedgerRepository) *LedgerSink {
	return &LedgerSink{repo: repo}
}

func (s *LedgerSink) Name() string {
	return "database"
}

func (s *LedgerSink) Append(ctx context.Context, entry domain.LedgerEntry) error {
	return s.repo.Create(ctx, &entry)
}
