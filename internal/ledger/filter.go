package ledger

import (
	"slices"

	"github.com/alejandrodnm/polyledger/internal/domain"
)

// FilterTags devuelve las filas cuya columna tags contiene alguno de los tags
// dados. Las filas sin tags quedan afuera.
func FilterTags(t *Table, tags ...string) *Table {
	if t == nil {
		return nil
	}
	out := &Table{Columns: slices.Clone(t.Columns)}
	for _, row := range t.Rows {
		rowTags := TagsOf(row)
		for _, tag := range tags {
			if slices.Contains(rowTags, tag) {
				out.Rows = append(out.Rows, row)
				break
			}
		}
	}
	return out
}

// TagsOf lee la columna tags de una fila, sea []string o el texto de un CSV.
func TagsOf(row Row) []string {
	switch v := row[ColumnTags].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, t := range v {
			if s, ok := t.(string); ok {
				out = append(out, s)
			}
		}
		return out
	case string:
		return domain.ParseTagList(v)
	}
	return nil
}
