package export

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/alejandrodnm/polyledger/internal/ledger"
)

const sheetName = "ledger"

// WriteXLSXFile guarda la tabla en una hoja "ledger". Los números y bools
// quedan tipados; listas y fechas se escriben como en el CSV.
func WriteXLSXFile(path string, t *ledger.Table) error {
	if t == nil {
		return fmt.Errorf("export.WriteXLSXFile: nil table")
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return fmt.Errorf("export.WriteXLSXFile: %w", err)
	}

	header := make([]any, len(t.Columns))
	for i, c := range t.Columns {
		header[i] = c
	}
	if err := f.SetSheetRow(sheetName, "A1", &header); err != nil {
		return fmt.Errorf("export.WriteXLSXFile: header: %w", err)
	}

	for i, row := range t.Rows {
		values := make([]any, len(t.Columns))
		for j, col := range t.Columns {
			values[j] = xlsxValue(row[col])
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("export.WriteXLSXFile: row %d: %w", i, err)
		}
		if err := f.SetSheetRow(sheetName, cell, &values); err != nil {
			return fmt.Errorf("export.WriteXLSXFile: row %d: %w", i, err)
		}
	}

	if err := mkdirFor(path); err != nil {
		return fmt.Errorf("export.WriteXLSXFile: %w", err)
	}
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("export.WriteXLSXFile: %w", err)
	}
	return nil
}

func xlsxValue(v any) any {
	switch x := v.(type) {
	case nil:
		return nil
	case float64, int, int64, bool, string:
		return x
	}
	return Cell(v)
}
