package sheets

import (
	gsheets "google.golang.org/api/sheets/v4"
)

const (
	TabRows    = 1000
	TabColumns = 27

	TitleText       = "RECARGAS VIA PIX"
	PixTotalFormula = "=SUM(B3:B1000)"
	currencyPattern = `"R$"#,##0.00`
)

var (
	HeaderRow     = []interface{}{"NOME DO PAGADOR", "VALOR", "CARTÃO"}
	SummaryLabels = []string{"TOTAL SISTEMA", "PIX", "DINHEIRO", "SANGRIA", "EM CAIXA"}

	// SummaryColors backs E3:E7, one per label: green, orange, blue, red, white.
	SummaryColors = []*gsheets.Color{
		{Red: 0.0, Green: 1.0, Blue: 0.0},
		{Red: 1.0, Green: 0.65, Blue: 0.0},
		{Red: 0.0, Green: 0.0, Blue: 1.0},
		{Red: 1.0, Green: 0.0, Blue: 0.0},
		{Red: 1.0, Green: 1.0, Blue: 1.0},
	}

	titleColor = &gsheets.Color{Red: 0.56, Green: 0.48, Blue: 0.76}
)

// gridRange addresses rows [r0,r1) and columns [c0,c1), zero based.
func gridRange(sheetID, r0, r1, c0, c1 int64) *gsheets.GridRange {
	return &gsheets.GridRange{
		SheetId:          sheetID,
		StartRowIndex:    r0,
		EndRowIndex:      r1,
		StartColumnIndex: c0,
		EndColumnIndex:   c1,
		ForceSendFields:  []string{"SheetId", "StartRowIndex", "StartColumnIndex"},
	}
}

func solidBorders() *gsheets.Borders {
	return &gsheets.Borders{
		Top:    &gsheets.Border{Style: "SOLID"},
		Bottom: &gsheets.Border{Style: "SOLID"},
		Left:   &gsheets.Border{Style: "SOLID"},
		Right:  &gsheets.Border{Style: "SOLID"},
	}
}

func formatCells(rng *gsheets.GridRange, format *gsheets.CellFormat, fields string) *gsheets.Request {
	return &gsheets.Request{
		RepeatCell: &gsheets.RepeatCellRequest{
			Range:  rng,
			Cell:   &gsheets.CellData{UserEnteredFormat: format},
			Fields: "userEnteredFormat(" + fields + ")",
		},
	}
}

func columnWidth(sheetID, column, pixels int64) *gsheets.Request {
	return &gsheets.Request{
		UpdateDimensionProperties: &gsheets.UpdateDimensionPropertiesRequest{
			Range: &gsheets.DimensionRange{
				SheetId:         sheetID,
				Dimension:       "COLUMNS",
				StartIndex:      column,
				EndIndex:        column + 1,
				ForceSendFields: []string{"SheetId", "StartIndex"},
			},
			Properties: &gsheets.DimensionProperties{PixelSize: pixels},
			Fields:     "pixelSize",
		},
	}
}

// LayoutRequests is the one-time formatting applied to a freshly created tab.
func LayoutRequests(sheetID int64) []*gsheets.Request {
	currency := &gsheets.CellFormat{
		NumberFormat: &gsheets.NumberFormat{Type: "NUMBER", Pattern: currencyPattern},
	}

	reqs := []*gsheets.Request{
		{
			MergeCells: &gsheets.MergeCellsRequest{
				Range:     gridRange(sheetID, 0, 1, 0, 3),
				MergeType: "MERGE_ALL",
			},
		},
		formatCells(gridRange(sheetID, 0, 1, 0, 3), &gsheets.CellFormat{
			TextFormat:          &gsheets.TextFormat{Bold: true},
			HorizontalAlignment: "CENTER",
			BackgroundColor:     titleColor,
		}, "textFormat,horizontalAlignment,backgroundColor"),
		formatCells(gridRange(sheetID, 1, 2, 0, 3), &gsheets.CellFormat{
			TextFormat:          &gsheets.TextFormat{Bold: true},
			HorizontalAlignment: "CENTER",
		}, "textFormat,horizontalAlignment"),
		formatCells(gridRange(sheetID, 2, TabRows, 1, 2), currency, "numberFormat"),
		formatCells(gridRange(sheetID, 2, 7, 5, 6), currency, "numberFormat"),
	}

	for i, color := range SummaryColors {
		row := int64(2 + i)
		reqs = append(reqs,
			formatCells(gridRange(sheetID, row, row+1, 4, 5), &gsheets.CellFormat{
				BackgroundColor:     color,
				HorizontalAlignment: "CENTER",
				TextFormat:          &gsheets.TextFormat{Bold: true},
				Borders:             solidBorders(),
			}, "backgroundColor,horizontalAlignment,textFormat,borders"),
			formatCells(gridRange(sheetID, row, row+1, 5, 6), &gsheets.CellFormat{
				HorizontalAlignment: "CENTER",
				TextFormat:          &gsheets.TextFormat{Bold: true},
				Borders:             solidBorders(),
			}, "horizontalAlignment,textFormat,borders"),
		)
	}

	reqs = append(reqs,
		formatCells(gridRange(sheetID, 0, 2, 0, 3), &gsheets.CellFormat{Borders: solidBorders()}, "borders"),
		formatCells(gridRange(sheetID, 2, TabRows, 0, 3), &gsheets.CellFormat{HorizontalAlignment: "CENTER"}, "horizontalAlignment"),
		columnWidth(sheetID, 0, 465),
		columnWidth(sheetID, 4, 255),
	)
	return reqs
}

// LayoutValues fills the title, headers, summary labels and the PIX total formula.
func LayoutValues(tabTitle string) []*gsheets.ValueRange {
	labels := make([][]interface{}, 0, len(SummaryLabels))
	for _, label := range SummaryLabels {
		labels = append(labels, []interface{}{label})
	}
	return []*gsheets.ValueRange{
		{Range: A1(tabTitle, "A1"), Values: [][]interface{}{{TitleText}}},
		{Range: A1(tabTitle, "A2:C2"), Values: [][]interface{}{HeaderRow}},
		{Range: A1(tabTitle, "E3:E7"), Values: labels},
		{Range: A1(tabTitle, "F4"), Values: [][]interface{}{{PixTotalFormula}}},
	}
}
