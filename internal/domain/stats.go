package domain

import (
	"sort"

	"github.com/shopspring/decimal"
)

// DefaultExcludedTags son tags demasiado genéricos para el desglose.
var DefaultExcludedTags = []string{"Games", "Sports"}

// Summary agrega profit, volumen y ROI de un conjunto de posiciones.
type Summary struct {
	Bets   int
	Profit float64
	Volume float64
	ROI    float64 // 0 si no hubo volumen
	Units  float64 // suma de ROIs individuales (apuesta plana)
}

// Summarize calcula el resumen de las posiciones dadas.
func Summarize(positions []Position) Summary {
	profit := decimal.Zero
	volume := decimal.Zero
	units := 0.0
	for _, p := range positions {
		profit = profit.Add(decimal.NewFromFloat(p.Profit()))
		volume = volume.Add(decimal.NewFromFloat(p.Staked()))
		if roi := p.ROI(); roi != nil {
			units += *roi
		}
	}

	s := Summary{Bets: len(positions)}
	s.Profit, _ = profit.Float64()
	s.Volume, _ = volume.Float64()
	if !volume.IsZero() {
		s.ROI, _ = profit.Div(volume).Float64()
	}
	s.Units = units
	return s
}

// TagStats es el resumen de las posiciones con un tag.
type TagStats struct {
	Tag string
	Summary
}

// TagBreakdown agrupa las posiciones por tag. Descarta tags excluidos y los que
// tienen menos de minBets posiciones. Ordena por ROI descendente.
func TagBreakdown(positions []Position, minBets int, exclude []string) []TagStats {
	skip := make(map[string]bool, len(exclude))
	for _, t := range exclude {
		skip[t] = true
	}

	byTag := make(map[string][]Position)
	var order []string
	for _, p := range positions {
		for _, tag := range p.Tags {
			if tag == "" || skip[tag] {
				continue
			}
			if _, ok := byTag[tag]; !ok {
				order = append(order, tag)
			}
			byTag[tag] = append(byTag[tag], p)
		}
	}

	out := make([]TagStats, 0, len(order))
	for _, tag := range order {
		group := byTag[tag]
		if len(group) < minBets {
			continue
		}
		out = append(out, TagStats{Tag: tag, Summary: Summarize(group)})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].ROI > out[j].ROI })
	return out
}

// Report es lo que una corrida entrega al notifier.
type Report struct {
	RunID     string
	Wallet    string
	Mode      string
	Trades    int
	Actions   int
	Rows      int
	Positions Summary
	Tags      []TagStats
	CLV       *CLVSummary
	Artifact  string
}
