package domain

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// CLVKey identifica un par (mercado, outcome).
type CLVKey struct {
	ConditionID string
	Asset       string
}

// CLVResult es el closing-line value de un par.
type CLVResult struct {
	AvgPrice     float64
	ClosingPrice float64
	PriceCLV     float64 // closing - avg
	OddsCLV      float64 // 1/avg - 1/closing
}

// Fill es un trade propio usado para el precio medio de entrada.
type Fill struct {
	ConditionID string
	Asset       string
	Price       float64
	Size        float64
	Timestamp   time.Time
}

// Key devuelve el par del fill.
func (f Fill) Key() CLVKey {
	return CLVKey{ConditionID: f.ConditionID, Asset: f.Asset}
}

// ComputeCLV calcula el CLV de los fills previos a start. Devuelve false cuando
// no está definido: sin volumen previo, o precio medio o de cierre en cero.
func ComputeCLV(fills []Fill, start time.Time, closing float64) (CLVResult, bool) {
	sumSize := decimal.Zero
	sumNotional := decimal.Zero
	for _, f := range fills {
		if !f.Timestamp.Before(start) {
			continue
		}
		size := decimal.NewFromFloat(f.Size)
		sumSize = sumSize.Add(size)
		sumNotional = sumNotional.Add(size.Mul(decimal.NewFromFloat(f.Price)))
	}
	if sumSize.IsZero() {
		return CLVResult{}, false
	}

	avg := sumNotional.Div(sumSize)
	closePrice := decimal.NewFromFloat(closing)
	if avg.IsZero() || closePrice.IsZero() {
		return CLVResult{}, false
	}

	one := decimal.NewFromInt(1)
	odds := one.Div(avg).Sub(one.Div(closePrice))

	res := CLVResult{ClosingPrice: closing}
	res.AvgPrice, _ = avg.Float64()
	res.PriceCLV, _ = closePrice.Sub(avg).Float64()
	res.OddsCLV, _ = odds.Float64()
	return res, true
}

// CLVSummary resume la distribución de CLV de un ledger.
type CLVSummary struct {
	Count           int
	PositivePercent float64
	ZeroPercent     float64
	NegativePercent float64
	MeanOddsCLV     float64
	MedianOddsCLV   float64
}

// SummarizeCLV clasifica por signo de price CLV y agrega odds CLV.
func SummarizeCLV(results []CLVResult) CLVSummary {
	s := CLVSummary{Count: len(results)}
	if len(results) == 0 {
		return s
	}

	var pos, zero, neg int
	odds := make([]float64, 0, len(results))
	sum := 0.0
	for _, r := range results {
		switch {
		case r.PriceCLV > 0:
			pos++
		case r.PriceCLV < 0:
			neg++
		default:
			zero++
		}
		odds = append(odds, r.OddsCLV)
		sum += r.OddsCLV
	}

	n := float64(len(results))
	s.PositivePercent = float64(pos) / n * 100
	s.ZeroPercent = float64(zero) / n * 100
	s.NegativePercent = float64(neg) / n * 100
	s.MeanOddsCLV = sum / n

	sort.Float64s(odds)
	mid := len(odds) / 2
	if len(odds)%2 == 0 {
		s.MedianOddsCLV = (odds[mid-1] + odds[mid]) / 2
	} else {
		s.MedianOddsCLV = odds[mid]
	}
	return s
}
