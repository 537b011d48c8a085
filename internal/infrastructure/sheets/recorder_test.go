package sheets

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/recarga/backend/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gsheets "google.golang.org/api/sheets/v4"
)

type fakeAPI struct {
	tabs     []TabInfo
	nextID   int64
	added    []string
	requests [][]*gsheets.Request
	writes   map[string][]*gsheets.ValueRange
	column   map[string][][]interface{}
	listErr  error

	batchErrs []error
}

func newFakeAPI(tabs ...TabInfo) *fakeAPI {
	return &fakeAPI{
		tabs:   tabs,
		nextID: 100,
		writes: make(map[string][]*gsheets.ValueRange),
		column: make(map[string][][]interface{}),
	}
}

func (f *fakeAPI) ListTabs(context.Context) ([]TabInfo, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return append([]TabInfo(nil), f.tabs...), nil
}

func (f *fakeAPI) AddTab(_ context.Context, title string, rows, cols int64) (TabInfo, error) {
	f.nextID++
	tab := TabInfo{ID: f.nextID, Title: title}
	f.tabs = append(f.tabs, tab)
	f.added = append(f.added, title)
	return tab, nil
}

func (f *fakeAPI) BatchUpdate(_ context.Context, reqs []*gsheets.Request) error {
	if len(f.batchErrs) > 0 {
		err := f.batchErrs[0]
		f.batchErrs = f.batchErrs[1:]
		return err
	}
	f.requests = append(f.requests, reqs)
	return nil
}

func (f *fakeAPI) WriteValues(_ context.Context, option string, data []*gsheets.ValueRange) error {
	f.writes[option] = append(f.writes[option], data...)
	for _, vr := range data {
		f.column[vr.Range] = vr.Values
	}
	return nil
}

func (f *fakeAPI) ReadColumn(_ context.Context, rng string) ([][]interface{}, error) {
	return f.column[rng], nil
}

var fixedNow = time.Date(2026, 10, 19, 14, 30, 0, 0, time.UTC)

func newTestRecorder(api API) *Recorder {
	return NewRecorder(RecorderConfig{
		API:      api,
		Location: time.UTC,
		Now:      func() time.Time { return fixedNow },
	})
}

func TestFindCurrentTabTodayOrYesterday(t *testing.T) {
	tabs := []TabInfo{{ID: 1, Title: "16/10/2026"}, {ID: 2, Title: "18/10/2026"}}

	tab, ok := FindCurrentTab(tabs, fixedNow)
	require.True(t, ok)
	assert.Equal(t, int64(2), tab.ID)

	_, ok = FindCurrentTab([]TabInfo{{ID: 1, Title: "17/10/2026"}}, fixedNow)
	assert.False(t, ok, "tabs older than yesterday are not reused")
}

func TestGetOrCreateTabReusesExisting(t *testing.T) {
	api := newFakeAPI(TabInfo{ID: 7, Title: "19/10/2026"})
	tab, err := newTestRecorder(api).GetOrCreateTab(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int64(7), tab.ID)
	assert.Empty(t, api.added)
	assert.Empty(t, api.requests)
}

func TestGetOrCreateTabCreatesOneWithLayout(t *testing.T) {
	api := newFakeAPI(TabInfo{ID: 1, Title: "Página1"}, TabInfo{ID: 2, Title: "10/10/2026"})
	rec := newTestRecorder(api)

	tab, err := rec.GetOrCreateTab(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "19/10/2026", tab.Title)
	assert.Equal(t, []string{"19/10/2026"}, api.added)

	require.Len(t, api.requests, 1)
	assert.Len(t, api.writes["USER_ENTERED"], 4)
	assert.Equal(t, [][]interface{}{{PixTotalFormula}}, api.column["'19/10/2026'!F4"])
	assert.Equal(t, "=SUM(B3:B1000)", PixTotalFormula)

	_, err = rec.GetOrCreateTab(context.Background())
	require.NoError(t, err)
	assert.Len(t, api.added, 1, "second lookup must find the tab just created")
}

func TestGetOrCreateTabRetriesFailedLayout(t *testing.T) {
	api := newFakeAPI()
	api.batchErrs = []error{errors.New("rate limited")}
	rec := newTestRecorder(api)

	_, err := rec.GetOrCreateTab(context.Background())
	require.Error(t, err)
	require.Len(t, api.added, 1)
	assert.Empty(t, api.requests)

	tab, err := rec.GetOrCreateTab(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "19/10/2026", tab.Title)
	assert.Len(t, api.added, 1)
	assert.Len(t, api.requests, 1)
	assert.Len(t, api.writes["USER_ENTERED"], 2*len(LayoutValues(tab.Title)))

	_, err = rec.GetOrCreateTab(context.Background())
	require.NoError(t, err)
	assert.Len(t, api.requests, 1)
}

func TestEntryRowRoundsToCents(t *testing.T) {
	row := EntryRow(domain.LedgerEntry{
		PayerName:  "Ana",
		Amount:     decimal.RequireFromString("10.005"),
		CardNumber: "1234",
	})
	assert.Equal(t, []interface{}{"ANA", 10.01, "1234"}, row)
}

func TestLayoutRequestsSummaryRows(t *testing.T) {
	reqs := LayoutRequests(42)

	var merges, widths int
	colored := 0
	for _, r := range reqs {
		if r.MergeCells != nil {
			merges++
			assert.Equal(t, int64(42), r.MergeCells.Range.SheetId)
		}
		if r.UpdateDimensionProperties != nil {
			widths++
		}
		if r.RepeatCell != nil && r.RepeatCell.Range.StartColumnIndex == 4 && r.RepeatCell.Cell.UserEnteredFormat.BackgroundColor != nil {
			colored++
		}
	}
	assert.Equal(t, 1, merges)
	assert.Equal(t, 2, widths)
	assert.Equal(t, 5, colored)
}

func TestLayoutValuesLabels(t *testing.T) {
	values := LayoutValues("19/10/2026")
	require.Len(t, values, 4)
	assert.Equal(t, "'19/10/2026'!E3:E7", values[2].Range)
	assert.Len(t, values[2].Values, 5)
	assert.Equal(t, "EM CAIXA", values[2].Values[4][0])
}

func TestAppendWritesFirstEmptyRow(t *testing.T) {
	api := newFakeAPI(TabInfo{ID: 7, Title: "19/10/2026"})
	api.column["'19/10/2026'!A:A"] = [][]interface{}{{"RECARGAS VIA PIX"}, {"NOME DO PAGADOR"}, {"ANA"}}
	rec := newTestRecorder(api)

	entry := domain.LedgerEntry{
		PayerName:     "Bruno",
		Amount:        decimal.RequireFromString("12.50"),
		CardNumber:    "1234",
		PaymentMethod: domain.PaymentMethodPix,
	}
	require.NoError(t, rec.Append(context.Background(), entry))

	raw := api.writes["RAW"]
	require.Len(t, raw, 1)
	assert.Equal(t, "'19/10/2026'!A4:C4", raw[0].Range)
	assert.Equal(t, []interface{}{"BRUNO", 12.5, "1234"}, raw[0].Values[0])
}

func TestAppendSkipsCash(t *testing.T) {
	api := newFakeAPI()
	rec := newTestRecorder(api)

	err := rec.Append(context.Background(), domain.LedgerEntry{PaymentMethod: domain.PaymentMethodCash})
	require.NoError(t, err)
	assert.Empty(t, api.added)
	assert.Empty(t, api.writes)
}

func TestAppendPropagatesLookupError(t *testing.T) {
	api := newFakeAPI()
	api.listErr = errors.New("quota exceeded")
	err := newTestRecorder(api).Append(context.Background(), domain.LedgerEntry{PaymentMethod: domain.PaymentMethodPix})
	assert.EqualError(t, err, "quota exceeded")
}

func TestA1QuotesTitle(t *testing.T) {
	assert.Equal(t, "'19/10/2026'!A:A", A1("19/10/2026", "A:A"))
	assert.Equal(t, "'it''s'!B2", A1("it's", "B2"))
}
