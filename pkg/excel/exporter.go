// Package excel writes query results to .xlsx artifacts keyed by
// conversation id.
package excel

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/xuri/excelize/v2"
)

type Exporter struct {
	storagePath string
}

func NewExporter(storagePath string) *Exporter {
	return &Exporter{storagePath: storagePath}
}

// Generate writes one sheet with a header row derived from the result
// columns (sorted for a stable layout) and returns the artifact path.
func (e *Exporter) Generate(conversationId string, rows []map[string]interface{}) (string, error) {
	if err := os.MkdirAll(e.storagePath, 0o755); err != nil {
		return "", fmt.Errorf("create export dir: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)
	columns := columnOrder(rows)

	for i, col := range columns {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return "", err
		}
		if err := f.SetCellValue(sheet, cell, col); err != nil {
			return "", err
		}
	}

	for r, row := range rows {
		for c, col := range columns {
			cell, err := excelize.CoordinatesToCellName(c+1, r+2)
			if err != nil {
				return "", err
			}
			if err := f.SetCellValue(sheet, cell, cellValue(row[col])); err != nil {
				return "", err
			}
		}
	}

	path := filepath.Join(e.storagePath, fmt.Sprintf("%s.xlsx", conversationId))
	if err := f.SaveAs(path); err != nil {
		return "", fmt.Errorf("save export: %w", err)
	}

	return path, nil
}

func columnOrder(rows []map[string]interface{}) []string {
	if len(rows) == 0 {
		return nil
	}
	columns := make([]string, 0, len(rows[0]))
	for col := range rows[0] {
		columns = append(columns, col)
	}
	sort.Strings(columns)
	return columns
}

func cellValue(v interface{}) interface{} {
	if t, ok := v.(time.Time); ok {
		return t.Format(time.RFC3339)
	}
	return v
}
