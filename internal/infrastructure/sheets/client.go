package sheets

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/api/option"
	gsheets "google.golang.org/api/sheets/v4"
)

// TabInfo identifies one worksheet of the spreadsheet.
type TabInfo struct {
	ID    int64
	Title string
}

// API is the slice of the Sheets service the recorder needs.
type API interface {
	ListTabs(ctx context.Context) ([]TabInfo, error)
	AddTab(ctx context.Context, title string, rows, cols int64) (TabInfo, error)
	BatchUpdate(ctx context.Context, requests []*gsheets.Request) error
	WriteValues(ctx context.Context, inputOption string, data []*gsheets.ValueRange) error
	ReadColumn(ctx context.Context, a1Range string) ([][]interface{}, error)
}

type googleAPI struct {
	srv           *gsheets.Service
	spreadsheetID string
}

// NewGoogleAPI authenticates with a service-account credential file.
func NewGoogleAPI(ctx context.Context, credentialsFile, spreadsheetID string) (API, error) {
	if spreadsheetID == "" {
		return nil, fmt.Errorf("sheets: spreadsheet id is required")
	}
	srv, err := gsheets.NewService(ctx,
		option.WithCredentialsFile(credentialsFile),
		option.WithScopes(gsheets.SpreadsheetsScope),
	)
	if err != nil {
		return nil, fmt.Errorf("sheets: create service: %w", err)
	}
	return &googleAPI{srv: srv, spreadsheetID: spreadsheetID}, nil
}

func (g *googleAPI) ListTabs(ctx context.Context) ([]TabInfo, error) {
	ss, err := g.srv.Spreadsheets.Get(g.spreadsheetID).
		Fields("sheets.properties(sheetId,title)").
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("sheets: list tabs: %w", err)
	}
	tabs := make([]TabInfo, 0, len(ss.Sheets))
	for _, sh := range ss.Sheets {
		if sh.Properties == nil {
			continue
		}
		tabs = append(tabs, TabInfo{ID: sh.Properties.SheetId, Title: sh.Properties.Title})
	}
	return tabs, nil
}

func (g *googleAPI) AddTab(ctx context.Context, title string, rows, cols int64) (TabInfo, error) {
	req := &gsheets.BatchUpdateSpreadsheetRequest{
		Requests: []*gsheets.Request{{
			AddSheet: &gsheets.AddSheetRequest{
				Properties: &gsheets.SheetProperties{
					Title: title,
					GridProperties: &gsheets.GridProperties{
						RowCount:    rows,
						ColumnCount: cols,
					},
				},
			},
		}},
	}
	resp, err := g.srv.Spreadsheets.BatchUpdate(g.spreadsheetID, req).Context(ctx).Do()
	if err != nil {
		return TabInfo{}, fmt.Errorf("sheets: add tab %q: %w", title, err)
	}
	if len(resp.Replies) == 0 || resp.Replies[0].AddSheet == nil || resp.Replies[0].AddSheet.Properties == nil {
		return TabInfo{}, fmt.Errorf("sheets: add tab %q: empty reply", title)
	}
	props := resp.Replies[0].AddSheet.Properties
	return TabInfo{ID: props.SheetId, Title: props.Title}, nil
}

func (g *googleAPI) BatchUpdate(ctx context.Context, requests []*gsheets.Request) error {
	req := &gsheets.BatchUpdateSpreadsheetRequest{Requests: requests}
	if _, err := g.srv.Spreadsheets.BatchUpdate(g.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("sheets: batch update: %w", err)
	}
	return nil
}

func (g *googleAPI) WriteValues(ctx context.Context, inputOption string, data []*gsheets.ValueRange) error {
	req := &gsheets.BatchUpdateValuesRequest{
		ValueInputOption: inputOption,
		Data:             data,
	}
	if _, err := g.srv.Spreadsheets.Values.BatchUpdate(g.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("sheets: write values: %w", err)
	}
	return nil
}

func (g *googleAPI) ReadColumn(ctx context.Context, a1Range string) ([][]interface{}, error) {
	vr, err := g.srv.Spreadsheets.Values.Get(g.spreadsheetID, a1Range).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("sheets: read %s: %w", a1Range, err)
	}
	return vr.Values, nil
}

// A1 builds a range reference on a tab, quoting the title ("19/10/2026" needs it).
func A1(tabTitle, cells string) string {
	return "'" + strings.ReplaceAll(tabTitle, "'", "''") + "'!" + cells
}
