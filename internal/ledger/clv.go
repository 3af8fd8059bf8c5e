package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/alejandrodnm/polyledger/internal/domain"
	"github.com/alejandrodnm/polyledger/internal/metrics"
	"github.com/alejandrodnm/polyledger/internal/ports"
)

// Columnas que agrega Reconcile.
const (
	ColumnPriceCLV = "price_clv"
	ColumnOddsCLV  = "odds_clv"
)

// DefaultClosingColumn es la columna usada como precio de cierre.
const DefaultClosingColumn = "match_start_price"

// Motivos por los que un par no tiene CLV.
const (
	skipNoLedgerRow    = "no_ledger_row"
	skipNoClosingPrice = "no_closing_price"
	skipNoStartTime    = "no_start_time"
	skipNoPreStart     = "no_fills_before_start"
	skipZeroPrice      = "zero_price"
)

// Reconciler calcula el closing-line value de cada (mercado, outcome) del
// ledger a partir de los fills propios de la wallet.
type Reconciler struct {
	trades        ports.TradeProvider
	closingColumn string
}

// NewReconciler crea un Reconciler. closingColumn vacío usa match_start_price.
func NewReconciler(trades ports.TradeProvider, closingColumn string) *Reconciler {
	if closingColumn == "" {
		closingColumn = DefaultClosingColumn
	}
	return &Reconciler{trades: trades, closingColumn: closingColumn}
}

// Reconcile busca los fills de wallet en los mercados del ledger y agrega
// price_clv y odds_clv a cada fila (nil cuando no se pudo calcular).
// Si la API falla a mitad de camino se usa lo obtenido hasta ahí.
func (r *Reconciler) Reconcile(ctx context.Context, table *Table, wallet string) (*Table, error) {
	if table.Len() == 0 {
		return table, nil
	}

	if !table.HasColumn(r.closingColumn) {
		slog.Warn("closing price column missing, every pair will be skipped",
			"column", r.closingColumn,
			"reason", skipNoClosingPrice,
		)
	}

	ids := uniqueValues(table, "conditionId")
	fills, err := r.trades.FetchUserFills(ctx, wallet, ids)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("ledger.Reconcile: %w", err)
		}
		slog.Warn("fill fetch incomplete, computing with partial data", "fills", len(fills), "err", err)
	}

	results := ComputeCLVs(table, fills, r.closingColumn)

	out := table.Clone()
	out.AddColumn(ColumnPriceCLV)
	out.AddColumn(ColumnOddsCLV)
	for _, row := range out.Rows {
		row[ColumnPriceCLV], row[ColumnOddsCLV] = nil, nil
		if res, ok := results[rowKey(row)]; ok {
			row[ColumnPriceCLV] = res.PriceCLV
			row[ColumnOddsCLV] = res.OddsCLV
		}
	}

	slog.Info("clv reconciled",
		"rows", out.Len(),
		"markets", len(ids),
		"fills", len(fills),
		"computed", len(results),
	)
	return out, nil
}

// ComputeCLVs agrupa los fills por (conditionId, asset) y calcula el CLV contra
// la primera fila del ledger con ese par. Los pares sin CLV se omiten.
func ComputeCLVs(table *Table, fills []domain.Fill, closingColumn string) map[domain.CLVKey]domain.CLVResult {
	rows := make(map[domain.CLVKey]Row)
	if table != nil {
		for _, row := range table.Rows {
			if k := rowKey(row); k.ConditionID != "" {
				if _, ok := rows[k]; !ok {
					rows[k] = row
				}
			}
		}
	}

	groups := make(map[domain.CLVKey][]domain.Fill)
	var order []domain.CLVKey
	for _, f := range fills {
		k := f.Key()
		if _, ok := groups[k]; !ok {
			order = append(order, k)
		}
		groups[k] = append(groups[k], f)
	}

	skipped := make(map[string]int)
	skip := func(reason string, k domain.CLVKey) {
		skipped[reason]++
		metrics.CLVSkipped.WithLabelValues(reason).Inc()
		slog.Debug("clv skipped", "condition_id", k.ConditionID, "asset", k.Asset, "reason", reason)
	}

	out := make(map[domain.CLVKey]domain.CLVResult)
	for _, k := range order {
		row, ok := rows[k]
		if !ok {
			skip(skipNoLedgerRow, k)
			continue
		}
		closing, ok := domain.ToFloat(row[closingColumn])
		if !ok {
			skip(skipNoClosingPrice, k)
			continue
		}
		start, ok := timeValue(row[ColumnStartTime])
		if !ok {
			skip(skipNoStartTime, k)
			continue
		}
		res, ok := domain.ComputeCLV(groups[k], start, closing)
		if !ok {
			if hasVolumeBefore(groups[k], start) {
				skip(skipZeroPrice, k)
			} else {
				skip(skipNoPreStart, k)
			}
			continue
		}
		out[k] = res
	}

	if len(skipped) > 0 {
		slog.Info("clv pairs skipped", "reasons", skipped)
	}
	return out
}

// CLVSummaryOf resume las filas con price_clv calculado.
func CLVSummaryOf(t *Table) domain.CLVSummary {
	var results []domain.CLVResult
	if t != nil {
		for _, row := range t.Rows {
			price, ok := row[ColumnPriceCLV].(float64)
			if !ok {
				continue
			}
			odds, _ := row[ColumnOddsCLV].(float64)
			results = append(results, domain.CLVResult{PriceCLV: price, OddsCLV: odds})
		}
	}
	return domain.SummarizeCLV(results)
}

func rowKey(row Row) domain.CLVKey {
	cid, _ := row["conditionId"].(string)
	asset, _ := row["asset"].(string)
	return domain.CLVKey{ConditionID: cid, Asset: asset}
}

func hasVolumeBefore(fills []domain.Fill, start time.Time) bool {
	total := 0.0
	for _, f := range fills {
		if f.Timestamp.Before(start) {
			total += f.Size
		}
	}
	return total != 0
}

// timeValue acepta time.Time, *time.Time o un string (CSV importado).
func timeValue(v any) (time.Time, bool) {
	switch x := v.(type) {
	case time.Time:
		return x, !x.IsZero()
	case *time.Time:
		if x == nil {
			return time.Time{}, false
		}
		return *x, !x.IsZero()
	case string:
		t := domain.ParseTime(x)
		return t, !t.IsZero()
	}
	return time.Time{}, false
}
