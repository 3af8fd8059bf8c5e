package polymarket

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/alejandrodnm/polyledger/internal/domain"
)

// extractRule intenta obtener la lista de records de un valor JSON genérico.
type extractRule func(v any) ([]any, bool)

// pageRules se prueban en orden; la primera que matchea gana.
// Un array top-level tiene prioridad sobre las keys envoltorio.
var pageRules = []extractRule{
	topLevelArray,
	underKey("results"),
	underKey("items"),
	underKey("activity"),
	underKey("trades"),
	underKey("data"),
}

func topLevelArray(v any) ([]any, bool) {
	list, ok := v.([]any)
	return list, ok
}

func underKey(key string) extractRule {
	return func(v any) ([]any, bool) {
		obj, ok := v.(map[string]any)
		if !ok {
			return nil, false
		}
		list, ok := obj[key].([]any)
		return list, ok
	}
}

// decodePage decodifica el cuerpo de una página y aplica pageRules.
// Un JSON válido sin lista reconocible devuelve una página vacía.
func decodePage(raw []byte) ([]domain.Record, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("decode page: %w", err)
	}

	for _, rule := range pageRules {
		if list, ok := rule(v); ok {
			return toRecords(list), nil
		}
	}
	return []domain.Record{}, nil
}

// toRecords descarta los elementos que no son objetos.
func toRecords(list []any) []domain.Record {
	out := make([]domain.Record, 0, len(list))
	for _, item := range list {
		if obj, ok := item.(map[string]any); ok {
			out = append(out, domain.Record(obj))
		}
	}
	return out
}
