package services

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/xuri/excelize/v2"

	"portal/internal/airtable"
)

const (
	sheetReports     = "Reports"
	sheetCompetitors = "Competitors"
)

// RenderingReportsXLSX renders reports as a workbook with one summary
// sheet and one sheet flattening every competitor score.
func RenderingReportsXLSX(reports []airtable.RenderingReport) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetReports); err != nil {
		return nil, err
	}
	if _, err := f.NewSheet(sheetCompetitors); err != nil {
		return nil, err
	}
	header, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, err
	}

	rows := [][]any{{"Company", "Client Traffic", "Client Keywords", "Client Backlinks", "Competitors", "Created"}}
	for _, r := range reports {
		rows = append(rows, []any{r.CompanyName, r.ClientTraffic, r.ClientKeywords, r.ClientBacklinks, len(r.CompetitorScores), r.CreatedTime})
	}
	if err := writeRows(f, sheetReports, rows, header); err != nil {
		return nil, err
	}

	columns := competitorColumns(reports)
	competitorRows := [][]any{append([]any{"Company"}, toAny(columns)...)}
	for _, r := range reports {
		for _, score := range r.CompetitorScores {
			row := []any{r.CompanyName}
			obj, _ := score.(map[string]any)
			for _, col := range columns {
				row = append(row, cellValue(obj[col]))
			}
			competitorRows = append(competitorRows, row)
		}
	}
	if err := writeRows(f, sheetCompetitors, competitorRows, header); err != nil {
		return nil, err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func writeRows(f *excelize.File, sheet string, rows [][]any, headerStyle int) error {
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return err
		}
	}
	if len(rows) > 0 && len(rows[0]) > 0 {
		last, err := excelize.ColumnNumberToName(len(rows[0]))
		if err != nil {
			return err
		}
		if err := f.SetColWidth(sheet, "A", last, 20); err != nil {
			return err
		}
		return f.SetRowStyle(sheet, 1, 1, headerStyle)
	}
	return nil
}

// competitorColumns is the sorted union of keys across competitor objects.
func competitorColumns(reports []airtable.RenderingReport) []string {
	seen := map[string]struct{}{}
	for _, r := range reports {
		for _, score := range r.CompetitorScores {
			if obj, ok := score.(map[string]any); ok {
				for k := range obj {
					seen[k] = struct{}{}
				}
			}
		}
	}
	cols := make([]string, 0, len(seen))
	for k := range seen {
		cols = append(cols, k)
	}
	sort.Strings(cols)
	return cols
}

func cellValue(v any) any {
	switch t := v.(type) {
	case nil, string, float64, bool:
		return t
	default:
		raw, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprint(t)
		}
		return string(raw)
	}
}

func toAny(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}
