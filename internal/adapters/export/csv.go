package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/alejandrodnm/polyledger/internal/domain"
	"github.com/alejandrodnm/polyledger/internal/ledger"
)

// timeLayout es el formato de las columnas de fecha exportadas.
const timeLayout = "2006-01-02 15:04:05-07:00"

// WriteCSV escribe la tabla con una fila de encabezado en el orden de Columns.
// Las listas (tags) se escriben como JSON; los nulos como celda vacía.
func WriteCSV(w io.Writer, t *ledger.Table) error {
	if t == nil {
		return fmt.Errorf("export.WriteCSV: nil table")
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Columns); err != nil {
		return fmt.Errorf("export.WriteCSV: header: %w", err)
	}

	record := make([]string, len(t.Columns))
	for i, row := range t.Rows {
		for j, col := range t.Columns {
			record[j] = Cell(row[col])
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("export.WriteCSV: row %d: %w", i, err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("export.WriteCSV: %w", err)
	}
	return nil
}

// WriteCSVFile crea path (y sus directorios) y escribe la tabla.
func WriteCSVFile(path string, t *ledger.Table) error {
	f, err := create(path)
	if err != nil {
		return fmt.Errorf("export.WriteCSVFile: %w", err)
	}
	defer f.Close()

	if err := WriteCSV(f, t); err != nil {
		return err
	}
	return f.Close()
}

// ReadCSV lee una tabla exportada. Las celdas vacías son nil, "true"/"false"
// son bool y la columna tags se convierte en []string. El resto queda como
// string: ids y montos se interpretan donde se usan.
func ReadCSV(r io.Reader) (*ledger.Table, error) {
	cr := csv.NewReader(r)
	header, err := cr.Read()
	if err == io.EOF {
		return ledger.NewTable(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("export.ReadCSV: header: %w", err)
	}

	t := ledger.NewTable(header...)
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("export.ReadCSV: line %d: %w", t.Len()+2, err)
		}
		row := make(ledger.Row, len(header))
		for j, col := range header {
			row[col] = ParseCell(col, rec[j])
		}
		t.Rows = append(t.Rows, row)
	}
	return t, nil
}

// ReadCSVFile abre path y lo lee con ReadCSV.
func ReadCSVFile(path string) (*ledger.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("export.ReadCSVFile: %w", err)
	}
	defer f.Close()
	return ReadCSV(f)
}

// Cell renderiza un valor del ledger como texto.
func Cell(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case bool:
		return strconv.FormatBool(x)
	case json.Number:
		return x.String()
	case time.Time:
		if x.IsZero() {
			return ""
		}
		return x.UTC().Format(timeLayout)
	case []string:
		b, _ := json.Marshal(x)
		return string(b)
	case []any, map[string]any:
		b, err := json.Marshal(x)
		if err != nil {
			return fmt.Sprint(x)
		}
		return string(b)
	}
	return fmt.Sprint(v)
}

// ParseCell es la inversa de Cell para una celda de texto de la columna col.
func ParseCell(col, s string) any {
	if col == ledger.ColumnTags {
		return domain.ParseTagList(s)
	}
	switch s {
	case "":
		return nil
	case "true", "True":
		return true
	case "false", "False":
		return false
	}
	return s
}

func create(path string) (*os.File, error) {
	if err := mkdirFor(path); err != nil {
		return nil, err
	}
	return os.Create(path)
}

func mkdirFor(path string) error {
	if dir := filepath.Dir(path); dir != "." {
		return os.MkdirAll(dir, 0o755)
	}
	return nil
}
