package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Position es el agregado por mercado que devuelven /positions y /closed-positions.
type Position struct {
	Slug         string
	ConditionID  string
	Asset        string
	Outcome      string
	OutcomeIndex int
	Title        string
	TotalBought  float64
	AvgPrice     float64
	CurPrice     float64
	RealizedPnL  float64
	CashPnL      float64
	EndDate      time.Time
	Redeemable   bool
	Active       bool
	Tags         []string
}

// Staked es el capital invertido: totalBought × avgPrice.
func (p Position) Staked() float64 {
	f, _ := decimal.NewFromFloat(p.TotalBought).Mul(decimal.NewFromFloat(p.AvgPrice)).Float64()
	return f
}

// Profit es realizedPnl + cashPnl.
func (p Position) Profit() float64 {
	return p.RealizedPnL + p.CashPnL
}

// ROI devuelve realizedPnl / staked; cashPnl no realizado queda afuera.
// Nil si no hubo capital invertido.
func (p Position) ROI() *float64 {
	staked := decimal.NewFromFloat(p.TotalBought).Mul(decimal.NewFromFloat(p.AvgPrice))
	if staked.IsZero() {
		return nil
	}
	roi, _ := decimal.NewFromFloat(p.RealizedPnL).Div(staked).Float64()
	return &roi
}

// PositionFromRecord mapea un record de posición de la Data API.
// active marca si viene de /positions; en ese caso Active = !redeemable.
func PositionFromRecord(r Record, active bool) Position {
	p := Position{
		Slug:        r.String("slug"),
		ConditionID: r.String("conditionId"),
		Asset:       r.String("asset"),
		Outcome:     r.String("outcome"),
		Title:       r.String("title"),
	}
	if v, ok := r.Float("outcomeIndex"); ok {
		p.OutcomeIndex = int(v)
	}
	p.TotalBought, _ = r.Float("totalBought")
	p.AvgPrice, _ = r.Float("avgPrice")
	p.CurPrice, _ = r.Float("curPrice")
	p.RealizedPnL, _ = r.Float("realizedPnl")
	p.CashPnL, _ = r.Float("cashPnl")
	if b, ok := r["redeemable"].(bool); ok {
		p.Redeemable = b
	}
	if s := r.String("endDate"); s != "" {
		p.EndDate = ParseTime(s)
	}
	p.Active = active && !p.Redeemable
	p.Tags = tagsOf(r["tags"])
	return p
}

// ParseTime interpreta un timestamp unix (segundos o milisegundos) o ISO8601.
// Devuelve el zero value si no lo reconoce.
func ParseTime(s string) time.Time {
	if f, ok := ToFloat(s); ok {
		return UnixTime(f)
	}
	for _, layout := range []string{
		time.RFC3339Nano, time.RFC3339,
		"2006-01-02T15:04:05.000Z", "2006-01-02 15:04:05-07",
		"2006-01-02 15:04:05Z07:00", "2006-01-02 15:04:05", "2006-01-02",
	} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}

// UnixTime convierte segundos unix a UTC. Valores > 1e12 se toman como milisegundos.
func UnixTime(v float64) time.Time {
	if v > 1e12 {
		return time.UnixMilli(int64(v)).UTC()
	}
	sec := int64(v)
	nsec := int64((v - float64(sec)) * 1e9)
	return time.Unix(sec, nsec).UTC()
}

func tagsOf(v any) []string {
	switch x := v.(type) {
	case []string:
		return x
	case []any:
		out := make([]string, 0, len(x))
		for _, t := range x {
			if s, ok := t.(string); ok && s != "" {
				out = append(out, s)
			}
		}
		return out
	case string:
		return ParseTagList(x)
	}
	return nil
}

// SubgraphPosition es un balance de la wallet en el subgraph de posiciones.
type SubgraphPosition struct {
	ID           string
	User         string
	Balance      string
	TokenID      string
	ConditionID  string
	OutcomeIndex string
}

// Closed indica si la posición ya no tiene balance.
func (p SubgraphPosition) Closed() bool {
	return p.Balance == "" || p.Balance == "0"
}

// ConditionIDs devuelve los condition ids distintos en orden de aparición.
func ConditionIDs(positions []SubgraphPosition) []string {
	seen := make(map[string]bool, len(positions))
	var ids []string
	for _, p := range positions {
		if p.ConditionID == "" || seen[p.ConditionID] {
			continue
		}
		seen[p.ConditionID] = true
		ids = append(ids, p.ConditionID)
	}
	return ids
}
