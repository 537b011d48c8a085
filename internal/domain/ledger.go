package domain

import (
	"strings"
	"time"
	"unicode"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// LedgerEntry is one recorded recharge. Entries are append-only.
type LedgerEntry struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time      `gorm:"index" json:"created_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	TaskID        string          `gorm:"size:36;index" json:"task_id"`
	PayerName     string          `gorm:"size:100;not null" json:"payer_name"`
	Amount        decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"amount"`
	CardNumber    string          `gorm:"size:6;not null;index" json:"card_number"`
	PaymentMethod PaymentMethod   `gorm:"size:10;not null" json:"payment_method"`
	RecordedAt    time.Time       `gorm:"not null" json:"recorded_at"`
}

func (LedgerEntry) TableName() string {
	return "ledger_entries"
}

// MaxPayerNameLength matches the payer_name column size.
const MaxPayerNameLength = 100

// NormalizePayerName collapses whitespace runs (line breaks included) into
// single spaces, drops other control characters and truncates the result to
// MaxPayerNameLength runes.
func NormalizePayerName(name string) string {
	name = strings.Join(strings.Fields(name), " ")
	name = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, name)
	if runes := []rune(name); len(runes) > MaxPayerNameLength {
		name = strings.TrimSpace(string(runes[:MaxPayerNameLength]))
	}
	return name
}

// NewLedgerEntry builds the entry for a completed recharge. The amount is
// rounded to cents so every sink records the value typed into the portal.
func NewLedgerEntry(taskID string, req RechargeRequest, payerName string, at time.Time) LedgerEntry {
	payerName = NormalizePayerName(payerName)
	if payerName == "" {
		payerName = NormalizePayerName(req.PayerName)
	}
	return LedgerEntry{
		TaskID:        taskID,
		PayerName:     payerName,
		Amount:        req.Amount.Round(2),
		CardNumber:    req.CardNumber,
		PaymentMethod: req.PaymentMethod,
		RecordedAt:    at,
	}
}
