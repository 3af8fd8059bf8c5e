package domain

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ActivityType es el tipo de evento on-chain que devuelve la Data API.
type ActivityType string

const (
	ActivityTrade      ActivityType = "TRADE"
	ActivitySplit      ActivityType = "SPLIT"
	ActivityMerge      ActivityType = "MERGE"
	ActivityRedeem     ActivityType = "REDEEM"
	ActivityReward     ActivityType = "REWARD"
	ActivityConversion ActivityType = "CONVERSION"
	ActivityUnknown    ActivityType = "UNKNOWN"
)

// ActivityTypes son los tipos que el fetcher de actividad acepta.
var ActivityTypes = []ActivityType{
	ActivityTrade,
	ActivitySplit,
	ActivityMerge,
	ActivityRedeem,
	ActivityReward,
	ActivityConversion,
}

// ParseActivityType convierte el campo "type" de un record. Cualquier valor
// fuera del enum devuelve ActivityUnknown.
func ParseActivityType(s string) ActivityType {
	t := ActivityType(s)
	if t.IsKnown() {
		return t
	}
	return ActivityUnknown
}

// IsKnown indica si t pertenece al enum de la API.
func (t ActivityType) IsKnown() bool {
	for _, known := range ActivityTypes {
		if t == known {
			return true
		}
	}
	return false
}

// Record es un objeto JSON tal como lo entrega la Data API.
// Solo el fetcher de trades lo muta (etiqueta "type").
type Record map[string]any

// Type devuelve el tipo del record, ActivityUnknown si falta.
func (r Record) Type() ActivityType {
	s, _ := r["type"].(string)
	return ParseActivityType(s)
}

// Lookup devuelve el primer valor no vacío entre las keys dadas.
// Un string vacío, cero numérico, false o nil cuentan como ausentes.
func (r Record) Lookup(keys ...string) (any, bool) {
	for _, k := range keys {
		v, ok := r[k]
		if ok && truthy(v) {
			return v, true
		}
	}
	return nil, false
}

// String devuelve el primer valor presente entre keys como string canónico.
func (r Record) String(keys ...string) string {
	v, ok := r.Lookup(keys...)
	if !ok {
		return ""
	}
	return Canonical(v)
}

// Float devuelve el primer valor numérico entre keys. Strings numéricos se aceptan.
func (r Record) Float(keys ...string) (float64, bool) {
	for _, k := range keys {
		v, ok := r[k]
		if !ok || v == nil {
			continue
		}
		if f, ok := ToFloat(v); ok {
			return f, true
		}
	}
	return 0, false
}

// truthy replica la semántica "a or b or c" de los payloads: los valores
// vacíos ceden al siguiente alias.
func truthy(v any) bool {
	switch x := v.(type) {
	case nil:
		return false
	case string:
		return x != ""
	case bool:
		return x
	case float64:
		return x != 0
	case int:
		return x != 0
	case int64:
		return x != 0
	case json.Number:
		f, err := x.Float64()
		return err != nil || f != 0
	}
	return true
}

// ToFloat convierte un valor JSON a float64. Devuelve false si no es numérico
// o es NaN.
func ToFloat(v any) (float64, bool) {
	var f float64
	switch x := v.(type) {
	case float64:
		f = x
	case float32:
		f = float64(x)
	case int:
		f = float64(x)
	case int64:
		f = float64(x)
	case json.Number:
		parsed, err := x.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	case bool:
		if x {
			return 1, true
		}
		return 0, true
	default:
		return 0, false
	}
	if math.IsNaN(f) {
		return 0, false
	}
	return f, true
}

// Canonical renderiza un valor JSON como string estable: enteros sin
// exponente, floats con la representación más corta.
func Canonical(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case bool:
		return strconv.FormatBool(x)
	case float64:
		if x == math.Trunc(x) && math.Abs(x) < 1e18 {
			return strconv.FormatInt(int64(x), 10)
		}
		return strconv.FormatFloat(x, 'f', -1, 64)
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case json.Number:
		if f, err := x.Float64(); err == nil {
			return Canonical(f)
		}
		return x.String()
	}
	return fmt.Sprint(v)
}

// DedupKey identifica un evento lógico aunque llegue repetido en varias páginas.
type DedupKey struct {
	TxHash    string
	LogIndex  string
	ID        string
	Timestamp string
	Type      string
	Side      string
	Price     string
}

// DedupKeyOf deriva la clave compuesta de un record. Los campos ausentes
// quedan como "".
func DedupKeyOf(r Record) DedupKey {
	return DedupKey{
		TxHash:    r.String("transactionHash", "txHash"),
		LogIndex:  r.String("logIndex", "log_index", "logindex"),
		ID:        r.String("id", "activityId", "tradeId"),
		Timestamp: r.String("timestamp", "time", "createdAt"),
		Type:      Canonical(r["type"]),
		Side:      Canonical(r["side"]),
		Price:     Canonical(r["price"]),
	}
}

// SeenSet acumula las claves ya vistas. No es seguro para uso concurrente:
// cada fetch es dueño del suyo.
type SeenSet struct {
	keys map[DedupKey]struct{}
}

// NewSeenSet crea un SeenSet vacío.
func NewSeenSet() *SeenSet {
	return &SeenSet{keys: make(map[DedupKey]struct{})}
}

// Add registra la clave. Devuelve true si no estaba.
func (s *SeenSet) Add(k DedupKey) bool {
	if _, ok := s.keys[k]; ok {
		return false
	}
	s.keys[k] = struct{}{}
	return true
}

// Has indica si la clave ya fue vista.
func (s *SeenSet) Has(k DedupKey) bool {
	_, ok := s.keys[k]
	return ok
}

// Len devuelve la cantidad de claves únicas.
func (s *SeenSet) Len() int { return len(s.keys) }

// ProxyWallet devuelve la referencia a wallet proxy/delegada del record, si existe.
func (r Record) ProxyWallet() string {
	for _, k := range []string{"proxyWallet", "proxy_wallet", "proxy"} {
		if s, ok := r[k].(string); ok && s != "" {
			return s
		}
	}
	return ""
}

// NotionalValue devuelve el valor USDC del record: el primer campo de
// notional presente, o price×size.
func NotionalValue(r Record) float64 {
	for _, k := range []string{"usdcSize", "usdSize", "value", "fillValue", "amount"} {
		v, ok := r[k]
		if !ok || v == nil {
			continue
		}
		if f, ok := ToFloat(v); ok {
			return f
		}
	}
	price, _ := r.Float("price")
	size, _ := r.Float("size")
	return price * size
}
