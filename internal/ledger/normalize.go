package ledger

import (
	"encoding/json"
	"log/slog"
	"maps"
	"slices"
	"sort"
	"time"

	"github.com/alejandrodnm/polyledger/internal/domain"
)

// Columnas derivadas por Normalize.
const (
	ColumnUSDCSize    = "usdcSize"
	ColumnActionType  = "action_type"
	ColumnDatetimeUTC = "datetime_utc"
)

// Normalize aplana los records en una tabla y agrega las columnas derivadas:
//   - price y size pasan a float64 (nil si no son numéricos)
//   - usdcSize = price × size cuando ningún record la trae
//   - action_type = type o "UNKNOWN"
//   - datetime_utc desde timestamp (unix) o, si no existe, createdAt (ISO8601)
//
// Las filas quedan ordenadas por datetime_utc ascendente, estable, con los
// nulos al final. Sin records devuelve nil.
func Normalize(records []domain.Record) *Table {
	if len(records) == 0 {
		slog.Warn("no records to normalize")
		return nil
	}

	t := FromRecords(records)

	for _, c := range []string{"price", "size"} {
		if !t.HasColumn(c) {
			continue
		}
		for _, row := range t.Rows {
			row[c] = coerceFloat(row[c])
		}
	}

	if !t.HasColumn(ColumnUSDCSize) {
		t.AddColumn(ColumnUSDCSize)
		for _, row := range t.Rows {
			price, _ := row["price"].(float64)
			size, _ := row["size"].(float64)
			row[ColumnUSDCSize] = price * size
		}
	}

	t.AddColumn(ColumnActionType)
	for _, row := range t.Rows {
		typ, _ := row["type"].(string)
		if typ == "" {
			typ = string(domain.ActivityUnknown)
		}
		row[ColumnActionType] = typ
	}

	source, parse := "", func(any) (time.Time, bool) { return time.Time{}, false }
	switch {
	case t.HasColumn("timestamp"):
		source, parse = "timestamp", unixValue
	case t.HasColumn("createdAt"):
		source, parse = "createdAt", isoValue
	}
	if source != "" {
		t.AddColumn(ColumnDatetimeUTC)
		for _, row := range t.Rows {
			if ts, ok := parse(row[source]); ok {
				row[ColumnDatetimeUTC] = ts
			} else {
				row[ColumnDatetimeUTC] = nil
			}
		}
	}

	SortByTime(t, ColumnDatetimeUTC)
	return t
}

// NormalizeActivity normaliza trades y acciones por separado, así cada fuente
// deriva su propio usdcSize, y las une ordenadas por datetime_utc. Sin
// records devuelve nil.
func NormalizeActivity(trades, actions []domain.Record) *Table {
	if len(trades) == 0 && len(actions) == 0 {
		slog.Warn("no records to normalize")
		return nil
	}
	var parts []*Table
	for _, records := range [][]domain.Record{trades, actions} {
		if len(records) > 0 {
			parts = append(parts, Normalize(records))
		}
	}
	t := Concat(parts...)
	SortByTime(t, ColumnDatetimeUTC)
	return t
}

// SortByTime ordena las filas por una columna time.Time ascendente. Es estable
// y deja al final las filas con la columna nula.
func SortByTime(t *Table, column string) {
	if t == nil {
		return
	}
	sort.SliceStable(t.Rows, func(i, j int) bool {
		a, aok := t.Rows[i][column].(time.Time)
		b, bok := t.Rows[j][column].(time.Time)
		switch {
		case aok && bok:
			return a.Before(b)
		default:
			return aok && !bok
		}
	})
}

// FromRecords aplana los records en una tabla, sin columnas derivadas.
func FromRecords(records []domain.Record) *Table {
	t := &Table{Rows: make([]Row, 0, len(records))}
	for _, rec := range records {
		row := Row{}
		flatten("", rec, row, t)
		t.Rows = append(t.Rows, row)
	}
	return t
}

// flatten copia rec en row uniendo claves anidadas con ".". Las listas se
// guardan como valor y los json.Number pasan a float64. Cada columna nueva
// se registra en t en orden de aparición.
func flatten(prefix string, rec map[string]any, row Row, t *Table) {
	for _, k := range slices.Sorted(maps.Keys(rec)) {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		switch v := rec[k].(type) {
		case map[string]any:
			if len(v) > 0 {
				flatten(key, v, row, t)
				continue
			}
		case domain.Record:
			if len(v) > 0 {
				flatten(key, v, row, t)
				continue
			}
		case json.Number:
			if f, err := v.Float64(); err == nil {
				row[key] = f
				t.AddColumn(key)
				continue
			}
		}
		row[key] = rec[k]
		t.AddColumn(key)
	}
}

func coerceFloat(v any) any {
	if f, ok := domain.ToFloat(v); ok {
		return f
	}
	return nil
}

func unixValue(v any) (time.Time, bool) {
	f, ok := domain.ToFloat(v)
	if !ok {
		return time.Time{}, false
	}
	return domain.UnixTime(f), true
}

func isoValue(v any) (time.Time, bool) {
	s, ok := v.(string)
	if !ok || s == "" {
		return time.Time{}, false
	}
	ts := domain.ParseTime(s)
	return ts, !ts.IsZero()
}
