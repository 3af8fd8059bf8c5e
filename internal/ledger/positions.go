package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/alejandrodnm/polyledger/internal/domain"
	"github.com/alejandrodnm/polyledger/internal/fetch"
	"github.com/alejandrodnm/polyledger/internal/ports"
)

// Columnas que agrega PositionsLoader.
const (
	ColumnActive = "active"
	ColumnStaked = "staked"
	ColumnROI    = "roi"
)

// rangeSource es lo que PositionsLoader necesita del Coordinator.
type rangeSource interface {
	FetchAll(ctx context.Context, endpoint, wallet string, workers, perWorker int) (fetch.CoordinatorResult, error)
}

// PositionsConfig define endpoints y paralelismo de la carga de posiciones.
type PositionsConfig struct {
	ClosedURL        string
	ActiveURL        string
	ClosedWorkers    int // default 20
	ActiveWorkers    int // default 1
	RecordsPerWorker int // default 250
	JoinBatch        int // default 100
}

// PositionsLoader arma el ledger de posiciones de una wallet: cerradas y
// activas, con la metadata de mercado unida.
type PositionsLoader struct {
	ranges    rangeSource
	positions ports.PositionProvider
	joiner    *Joiner
	cfg       PositionsConfig
}

// NewPositionsLoader crea un PositionsLoader. positions puede ser nil si no se
// usa LoadFromSubgraph.
func NewPositionsLoader(ranges rangeSource, positions ports.PositionProvider, joiner *Joiner, cfg PositionsConfig) *PositionsLoader {
	if cfg.ClosedWorkers <= 0 {
		cfg.ClosedWorkers = 20
	}
	if cfg.ActiveWorkers <= 0 {
		cfg.ActiveWorkers = 1
	}
	if cfg.RecordsPerWorker <= 0 {
		cfg.RecordsPerWorker = 250
	}
	if cfg.JoinBatch <= 0 {
		cfg.JoinBatch = defaultJoinBatch
	}
	return &PositionsLoader{ranges: ranges, positions: positions, joiner: joiner, cfg: cfg}
}

// Load pide /closed-positions y /positions en paralelo por rangos y devuelve
// ambas concatenadas (activas primero) con active, staked, roi y la metadata.
func (l *PositionsLoader) Load(ctx context.Context, wallet string) (*Table, error) {
	start := time.Now()

	closed, err := l.ranges.FetchAll(ctx, l.cfg.ClosedURL, wallet, l.cfg.ClosedWorkers, l.cfg.RecordsPerWorker)
	if err != nil {
		return nil, fmt.Errorf("ledger.PositionsLoader: closed positions: %w", err)
	}
	active, err := l.ranges.FetchAll(ctx, l.cfg.ActiveURL, wallet, l.cfg.ActiveWorkers, l.cfg.RecordsPerWorker)
	if err != nil {
		return nil, fmt.Errorf("ledger.PositionsLoader: active positions: %w", err)
	}

	table := l.assemble(active.Records, closed.Records)
	slog.Info("positions loaded",
		"wallet", wallet,
		"closed", len(closed.Records),
		"active", len(active.Records),
		"elapsed", time.Since(start).Round(time.Millisecond),
	)
	return l.join(ctx, table)
}

// LoadFromSubgraph descubre los mercados de la wallet en el subgraph de
// posiciones y pide el PNL por batches de condition ids.
func (l *PositionsLoader) LoadFromSubgraph(ctx context.Context, wallet string) (*Table, error) {
	if l.positions == nil {
		return nil, fmt.Errorf("ledger.PositionsLoader: no position provider configured")
	}

	balances, err := l.positions.FetchSubgraphPositions(ctx, wallet, false)
	if err != nil {
		return nil, fmt.Errorf("ledger.PositionsLoader: subgraph: %w", err)
	}
	ids := domain.ConditionIDs(balances)
	if len(ids) == 0 {
		slog.Warn("subgraph returned no markets", "wallet", wallet)
		return nil, nil
	}

	closed, err := l.positions.FetchPositionsByMarkets(ctx, wallet, ids, true)
	if err != nil {
		return nil, fmt.Errorf("ledger.PositionsLoader: closed positions: %w", err)
	}
	active, err := l.positions.FetchPositionsByMarkets(ctx, wallet, ids, false)
	if err != nil {
		return nil, fmt.Errorf("ledger.PositionsLoader: active positions: %w", err)
	}

	slog.Info("positions loaded from subgraph",
		"wallet", wallet,
		"markets", len(ids),
		"closed", len(closed),
		"active", len(active),
	)
	return l.join(ctx, l.assemble(active, closed))
}

// assemble concatena activas y cerradas. Una posición activa solo cuenta como
// tal si todavía no es redeemable; las cerradas nunca.
func (l *PositionsLoader) assemble(active, closed []domain.Record) *Table {
	activeT := FromRecords(active)
	for _, row := range activeT.Rows {
		redeemable, ok := row["redeemable"].(bool)
		row[ColumnActive] = ok && !redeemable
	}
	activeT.AddColumn(ColumnActive)

	closedT := FromRecords(closed)
	for _, row := range closedT.Rows {
		row[ColumnActive] = false
	}
	closedT.AddColumn(ColumnActive)

	t := Concat(activeT, closedT)
	t.AddColumn(ColumnStaked)
	t.AddColumn(ColumnROI)
	for _, row := range t.Rows {
		p := domain.PositionFromRecord(domain.Record(row), false)
		row[ColumnStaked] = p.Staked()
		if roi := p.ROI(); roi != nil {
			row[ColumnROI] = *roi
		} else {
			row[ColumnROI] = nil
		}
	}
	return t
}

func (l *PositionsLoader) join(ctx context.Context, t *Table) (*Table, error) {
	if t.Len() == 0 {
		slog.Warn("no positions found")
		return t, nil
	}
	if l.joiner == nil {
		return t, nil
	}
	return l.joiner.Join(ctx, t, l.cfg.JoinBatch)
}

// Positions convierte las filas del ledger en posiciones tipadas.
func Positions(t *Table) []domain.Position {
	if t == nil {
		return nil
	}
	out := make([]domain.Position, 0, len(t.Rows))
	for _, row := range t.Rows {
		p := domain.PositionFromRecord(domain.Record(row), false)
		p.Active, _ = row[ColumnActive].(bool)
		p.Tags = TagsOf(row)
		out = append(out, p)
	}
	return out
}
