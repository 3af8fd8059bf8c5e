package storage

// sqlite.go guarda el ledger de una corrida como archivo SQLite.
//
//   - Una tabla `ledger` con las columnas en el mismo orden que la Table.
//   - Columnas sin tipo: cada celda conserva su tipo (REAL, INTEGER, TEXT, NULL).
//   - Listas, fechas y bools se guardan como texto con el mismo formato que el CSV.
//   - Cada export reemplaza el archivo: un archivo por corrida.

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/alejandrodnm/polyledger/internal/adapters/export"
	"github.com/alejandrodnm/polyledger/internal/ledger"
)

const ledgerTable = "ledger"

// WriteLedgerFile escribe la tabla en una base SQLite nueva en path.
func WriteLedgerFile(path string, t *ledger.Table) error {
	return WriteLedger(context.Background(), path, t)
}

// WriteLedger es WriteLedgerFile con contexto.
func WriteLedger(ctx context.Context, path string, t *ledger.Table) error {
	if t == nil {
		return fmt.Errorf("storage.WriteLedger: nil table")
	}
	if len(t.Columns) == 0 {
		return fmt.Errorf("storage.WriteLedger: table has no columns")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("storage.WriteLedger: mkdir %q: %w", dir, err)
		}
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("storage.WriteLedger: replace %q: %w", path, err)
	}

	db, err := open(path)
	if err != nil {
		return fmt.Errorf("storage.WriteLedger: %w", err)
	}
	defer db.Close()

	cols := make([]string, len(t.Columns))
	marks := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		cols[i] = quoteIdent(c)
		marks[i] = "?"
	}
	ddl := fmt.Sprintf("CREATE TABLE %s (%s)", ledgerTable, strings.Join(cols, ", "))
	if _, err := db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("storage.WriteLedger: create table: %w", err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("storage.WriteLedger: begin tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		ledgerTable, strings.Join(cols, ", "), strings.Join(marks, ", ")))
	if err != nil {
		return fmt.Errorf("storage.WriteLedger: prepare: %w", err)
	}
	defer stmt.Close()

	args := make([]any, len(t.Columns))
	for i, row := range t.Rows {
		for j, col := range t.Columns {
			args[j] = sqlValue(row[col])
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return fmt.Errorf("storage.WriteLedger: row %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("storage.WriteLedger: commit: %w", err)
	}
	return db.Close()
}

// ReadLedgerFile lee un ledger escrito por WriteLedgerFile. Los números vuelven
// como float64 o int64 y el texto se interpreta igual que en el CSV.
func ReadLedgerFile(path string) (*ledger.Table, error) {
	return ReadLedger(context.Background(), path)
}

// ReadLedger es ReadLedgerFile con contexto.
func ReadLedger(ctx context.Context, path string) (*ledger.Table, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("storage.ReadLedger: %w", err)
	}
	db, err := open(path)
	if err != nil {
		return nil, fmt.Errorf("storage.ReadLedger: %w", err)
	}
	defer db.Close()

	rows, err := db.QueryContext(ctx, "SELECT * FROM "+ledgerTable+" ORDER BY rowid")
	if err != nil {
		return nil, fmt.Errorf("storage.ReadLedger: query: %w", err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("storage.ReadLedger: columns: %w", err)
	}

	t := ledger.NewTable(cols...)
	values := make([]any, len(cols))
	ptrs := make([]any, len(cols))
	for i := range values {
		ptrs[i] = &values[i]
	}
	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("storage.ReadLedger: scan row %d: %w", t.Len(), err)
		}
		row := make(ledger.Row, len(cols))
		for j, col := range cols {
			row[col] = goValue(col, values[j])
		}
		t.Rows = append(t.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("storage.ReadLedger: %w", err)
	}
	return t, nil
}

func open(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open %q: %w", path, err)
	}
	db.SetMaxOpenConns(1) // SQLite es single-writer
	db.SetMaxIdleConns(1)
	return db, nil
}

// sqlValue deja pasar los tipos nativos de SQLite y convierte el resto a texto.
func sqlValue(v any) any {
	switch x := v.(type) {
	case nil:
		return nil
	case float64, int, int64, string:
		return x
	}
	return export.Cell(v)
}

func goValue(col string, v any) any {
	switch x := v.(type) {
	case string:
		return export.ParseCell(col, x)
	case []byte:
		return export.ParseCell(col, string(x))
	}
	return v
}

func quoteIdent(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}
