package db

import (
	"github.com/recarga/backend/internal/domain"
	"gorm.io/gorm"
)

func RunMigrations(db *gorm.DB) error {
	if err := db.AutoMigrate(&domain.LedgerEntry{}); err != nil {
		return err
	}

	return createCustomIndexes(db)
}

func createCustomIndexes(db *gorm.DB) error {
	// Daily reports filter on the recording time.
	return db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_ledger_entries_recorded_at
		ON ledger_entries (recorded_at)
		WHERE deleted_at IS NULL
	`).Error
}
