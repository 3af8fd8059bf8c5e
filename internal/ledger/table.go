package ledger

import (
	"maps"
	"slices"
)

// Row es una fila del ledger: columna → valor. Un valor nil es null.
type Row map[string]any

// Table es el ledger en memoria que se pasa entre etapas del pipeline.
// Columns fija el orden de exportación; las filas pueden no tener todas.
type Table struct {
	Columns []string
	Rows    []Row
}

// NewTable crea una tabla vacía con las columnas dadas.
func NewTable(columns ...string) *Table {
	return &Table{Columns: slices.Clone(columns)}
}

// Len devuelve la cantidad de filas. Una tabla nil tiene cero.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// HasColumn indica si la columna existe.
func (t *Table) HasColumn(name string) bool {
	return t != nil && slices.Contains(t.Columns, name)
}

// AddColumn agrega la columna al final si no existe.
func (t *Table) AddColumn(name string) {
	if !t.HasColumn(name) {
		t.Columns = append(t.Columns, name)
	}
}

// Get devuelve el valor de la columna en la fila i, o nil.
func (t *Table) Get(i int, column string) any {
	if i < 0 || i >= t.Len() {
		return nil
	}
	return t.Rows[i][column]
}

// Set asigna el valor y registra la columna si es nueva.
func (t *Table) Set(i int, column string, v any) {
	t.AddColumn(column)
	t.Rows[i][column] = v
}

// String devuelve el valor como string, o "" si no es string.
func (t *Table) String(i int, column string) string {
	s, _ := t.Get(i, column).(string)
	return s
}

// Clone copia la tabla. Los valores de cada fila se copian superficialmente.
func (t *Table) Clone() *Table {
	if t == nil {
		return nil
	}
	out := &Table{
		Columns: slices.Clone(t.Columns),
		Rows:    make([]Row, len(t.Rows)),
	}
	for i, r := range t.Rows {
		out.Rows[i] = maps.Clone(r)
	}
	return out
}

// Concat une tablas en orden; las columnas nuevas se agregan al final.
func Concat(tables ...*Table) *Table {
	out := &Table{}
	for _, t := range tables {
		if t == nil {
			continue
		}
		for _, c := range t.Columns {
			out.AddColumn(c)
		}
		out.Rows = append(out.Rows, t.Clone().Rows...)
	}
	return out
}
