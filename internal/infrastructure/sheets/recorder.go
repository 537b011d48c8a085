package sheets

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/recarga/backend/internal/config"
	"github.com/recarga/backend/internal/core/ports"
	"github.com/recarga/backend/internal/domain"
	"github.com/recarga/backend/internal/infrastructure/logger"
	gsheets "google.golang.org/api/sheets/v4"
)

// TabTitleLayout is the date format used to name daily tabs.
const TabTitleLayout = "02/01/2006"

// Recorder appends PIX recharges to a per-day tab of the spreadsheet.
type Recorder struct {
	api    API
	loc    *time.Location
	now    func() time.Time
	logger *logger.Logger
	mu     sync.Mutex

	// unformatted holds tabs created here whose layout did not finish.
	unformatted map[int64]bool
}

type RecorderConfig struct {
	API      API
	Location *time.Location
	Logger   *logger.Logger
	Now      func() time.Time
}

func NewRecorder(cfg RecorderConfig) *Recorder {
	loc := cfg.Location
	if loc == nil {
		loc = time.Local
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	log := cfg.Logger
	if log == nil {
		log = logger.NewNop()
	}
	return &Recorder{api: cfg.API, loc: loc, now: now, logger: log, unformatted: make(map[int64]bool)}
}

var _ ports.LedgerSink = (*Recorder)(nil)

func (r *Recorder) Name() string {
	return "spreadsheet"
}

// FindCurrentTab returns the tab titled with today's or yesterday's date.
// Older tabs are never matched.
func FindCurrentTab(tabs []TabInfo, now time.Time) (TabInfo, bool) {
	today := now.Format(TabTitleLayout)
	yesterday := now.AddDate(0, 0, -1).Format(TabTitleLayout)
	for _, tab := range tabs {
		if tab.Title == today || tab.Title == yesterday {
			return tab, true
		}
	}
	return TabInfo{}, false
}

// GetOrCreateTab finds the current tab or creates and lays out today's.
func (r *Recorder) GetOrCreateTab(ctx context.Context) (TabInfo, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.getOrCreateTab(ctx)
}

func (r *Recorder) getOrCreateTab(ctx context.Context) (TabInfo, error) {
	now := r.now().In(r.loc)
	tabs, err := r.api.ListTabs(ctx)
	if err != nil {
		return TabInfo{}, err
	}
	if tab, ok := FindCurrentTab(tabs, now); ok {
		if r.unformatted[tab.ID] {
			r.logger.Infow("sheets_tab_layout_retry", "title", tab.Title, "sheet_id", tab.ID)
			return tab, r.layout(ctx, tab)
		}
		return tab, nil
	}

	title := now.Format(TabTitleLayout)
	tab, err := r.api.AddTab(ctx, title, TabRows, TabColumns)
	if err != nil {
		return TabInfo{}, err
	}
	r.logger.Infow("sheets_tab_created", "title", tab.Title, "sheet_id", tab.ID)
	return tab, r.layout(ctx, tab)
}

// layout writes the labels and formatting of a new tab. A failed layout is
// retried on the next lookup of the same tab.
func (r *Recorder) layout(ctx context.Context, tab TabInfo) error {
	r.unformatted[tab.ID] = true
	if err := r.api.WriteValues(ctx, "USER_ENTERED", LayoutValues(tab.Title)); err != nil {
		return fmt.Errorf("sheets: layout values for %q: %w", tab.Title, err)
	}
	if err := r.api.BatchUpdate(ctx, LayoutRequests(tab.ID)); err != nil {
		return fmt.Errorf("sheets: layout formatting for %q: %w", tab.Title, err)
	}
	delete(r.unformatted, tab.ID)
	return nil
}

// Append writes entry on the first empty row of column A of the current tab.
func (r *Recorder) Append(ctx context.Context, entry domain.LedgerEntry) error {
	if !entry.PaymentMethod.IsPix() {
		r.logger.Infow("sheets_skip_cash", "card", entry.CardNumber)
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	tab, err := r.getOrCreateTab(ctx)
	if err != nil {
		return err
	}
	row, err := r.appendToTab(ctx, tab, entry)
	if err != nil {
		return err
	}
	r.logger.Infow("sheets_append_ok", "tab", tab.Title, "row", row)
	return nil
}

func (r *Recorder) appendToTab(ctx context.Context, tab TabInfo, entry domain.LedgerEntry) (int, error) {
	column, err := r.api.ReadColumn(ctx, A1(tab.Title, "A:A"))
	if err != nil {
		return 0, err
	}
	row := len(column) + 1
	values := &gsheets.ValueRange{
		Range:  A1(tab.Title, fmt.Sprintf("A%d:C%d", row, row)),
		Values: [][]interface{}{EntryRow(entry)},
	}
	if err := r.api.WriteValues(ctx, "RAW", []*gsheets.ValueRange{values}); err != nil {
		return 0, err
	}
	return row, nil
}

// EntryRow is the A:C content for entry: upper-cased name, numeric value, card.
func EntryRow(entry domain.LedgerEntry) []interface{} {
	return []interface{}{
		strings.ToUpper(entry.PayerName),
		entry.Amount.Round(2).InexactFloat64(),
		entry.CardNumber,
	}
}

// NewFromConfig connects to the configured spreadsheet.
func NewFromConfig(ctx context.Context, cfg config.SheetsConfig, log *logger.Logger) (*Recorder, error) {
	loc := time.Local
	if cfg.Location != "" {
		l, err := time.LoadLocation(cfg.Location)
		if err != nil {
			return nil, fmt.Errorf("sheets: location %q: %w", cfg.Location, err)
		}
		loc = l
	}
	api, err := NewGoogleAPI(ctx, cfg.CredentialsFile, cfg.SpreadsheetID)
	if err != nil {
		return nil, err
	}
	return NewRecorder(RecorderConfig{API: api, Location: loc, Logger: log}), nil
}
