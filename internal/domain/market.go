package domain

import (
	"encoding/json"
	"strings"
	"time"
)

// MarketMetadata es la metadata de Gamma que se une al ledger por slug.
type MarketMetadata struct {
	Slug      string
	Tags      []string
	StartTime *time.Time
	Volume    *float64
}

// EmptyMetadata es el default de left join: sin tags, start_time y volume nulos.
func EmptyMetadata(slug string) MarketMetadata {
	return MarketMetadata{Slug: slug, Tags: []string{}}
}

// HasTag indica si la metadata incluye el tag dado (case-insensitive).
func (m MarketMetadata) HasTag(tag string) bool {
	for _, t := range m.Tags {
		if strings.EqualFold(t, tag) {
			return true
		}
	}
	return false
}

// ParseTagList convierte la columna tags leída de un CSV en []string.
// Acepta una lista JSON (["a","b"]) o una lista literal con comillas simples
// (['a', 'b']). Cualquier otra cosa devuelve una lista vacía.
func ParseTagList(s string) []string {
	s = strings.TrimSpace(s)
	if s == "" || s[0] != '[' || s[len(s)-1] != ']' {
		return []string{}
	}

	var out []string
	if err := json.Unmarshal([]byte(s), &out); err == nil {
		return out
	}

	inner := strings.TrimSpace(s[1 : len(s)-1])
	if inner == "" {
		return []string{}
	}
	out = make([]string, 0, strings.Count(inner, ",")+1)
	for len(inner) > 0 {
		inner = strings.TrimLeft(inner, " \t")
		if inner == "" {
			break
		}
		quote := inner[0]
		if quote != '\'' && quote != '"' {
			return []string{}
		}
		end := strings.IndexByte(inner[1:], quote)
		if end < 0 {
			return []string{}
		}
		out = append(out, inner[1:end+1])
		inner = strings.TrimLeft(inner[end+2:], " \t")
		if inner == "" {
			break
		}
		if inner[0] != ',' {
			return []string{}
		}
		inner = inner[1:]
	}
	return out
}
