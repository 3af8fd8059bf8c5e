package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/alejandrodnm/polyledger/internal/domain"
	"github.com/alejandrodnm/polyledger/internal/ledger"
	"github.com/alejandrodnm/polyledger/internal/ports"
)

// Mode selecciona qué ledger arma una corrida.
type Mode string

const (
	ModeActivity  Mode = "activity"
	ModePositions Mode = "positions"
)

// ParseMode valida el flag -mode.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case ModeActivity, ModePositions:
		return m, nil
	}
	return "", fmt.Errorf("pipeline: unknown mode %q (want activity or positions)", s)
}

// Config contiene la configuración de una corrida.
type Config struct {
	Mode       Mode
	CLV        bool     // agrega price_clv / odds_clv
	Subgraph   bool     // descubre mercados vía subgraph en modo positions
	OnlyTags   []string // filtra filas por tag (ej. Games, Sports)
	JoinBatch  int
	MinTagBets int
	InPath     string // si no está vacío, el ledger se lee de este archivo
	OutDir     string // si no está vacío, el ledger se exporta acá
	Format     string // csv | xlsx | sqlite
}

// Exporter escribe un ledger a disco.
type Exporter func(path string, t *ledger.Table) error

// Importer lee un ledger exportado.
type Importer func(path string) (*ledger.Table, error)

type activitySource interface {
	FetchAll(ctx context.Context, wallet string) (trades, actions []domain.Record, err error)
}

type positionsSource interface {
	Load(ctx context.Context, wallet string) (*ledger.Table, error)
	LoadFromSubgraph(ctx context.Context, wallet string) (*ledger.Table, error)
}

type metadataJoiner interface {
	Join(ctx context.Context, t *ledger.Table, batchSize int) (*ledger.Table, error)
}

type clvReconciler interface {
	Reconcile(ctx context.Context, t *ledger.Table, wallet string) (*ledger.Table, error)
}

// Deps agrupa los colaboradores de la corrida. Los que no use el modo
// configurado pueden quedar en nil.
type Deps struct {
	Activity   activitySource
	Positions  positionsSource
	Joiner     metadataJoiner
	Reconciler clvReconciler
	Notifier   ports.Notifier
	Export     map[string]Exporter
	Import     Importer
}

// Pipeline orquesta fetch → normalize → join → clv → export → notify.
type Pipeline struct {
	cfg  Config
	deps Deps
}

// New crea un Pipeline con todas las dependencias inyectadas.
func New(cfg Config, deps Deps) *Pipeline {
	if cfg.JoinBatch <= 0 {
		cfg.JoinBatch = 100
	}
	if cfg.MinTagBets <= 0 {
		cfg.MinTagBets = 5
	}
	if cfg.Format == "" {
		cfg.Format = "csv"
	}
	return &Pipeline{cfg: cfg, deps: deps}
}

// Result es la salida de una corrida.
type Result struct {
	Report domain.Report
	Table  *ledger.Table
}

// Run ejecuta una corrida completa para wallet.
func (p *Pipeline) Run(ctx context.Context, wallet string) (Result, error) {
	runID := uuid.NewString()
	log := slog.With("run_id", runID, "wallet", wallet, "mode", p.cfg.Mode)
	start := time.Now()
	log.Info("run starting")

	report := domain.Report{RunID: runID, Wallet: wallet, Mode: string(p.cfg.Mode)}

	table, err := p.load(ctx, wallet, &report)
	if err != nil {
		return Result{Report: report}, err
	}

	if len(p.cfg.OnlyTags) > 0 && table.Len() > 0 {
		before := table.Len()
		table = ledger.FilterTags(table, p.cfg.OnlyTags...)
		log.Info("filtered by tags", "tags", p.cfg.OnlyTags, "before", before, "after", table.Len())
	}

	if p.cfg.CLV && table.Len() > 0 {
		if p.deps.Reconciler == nil {
			return Result{Report: report}, fmt.Errorf("pipeline.Run: clv requested without reconciler")
		}
		table, err = p.deps.Reconciler.Reconcile(ctx, table, wallet)
		if err != nil {
			return Result{Report: report}, fmt.Errorf("pipeline.Run: %w", err)
		}
		summary := ledger.CLVSummaryOf(table)
		report.CLV = &summary
	}

	report.Rows = table.Len()
	if p.cfg.Mode == ModePositions {
		positions := ledger.Positions(table)
		report.Positions = domain.Summarize(positions)
		report.Tags = domain.TagBreakdown(positions, p.cfg.MinTagBets, domain.DefaultExcludedTags)
	}

	if p.cfg.OutDir != "" && table.Len() > 0 {
		path, err := p.export(table, wallet, runID)
		if err != nil {
			return Result{Report: report, Table: table}, err
		}
		report.Artifact = path
		log.Info("ledger exported", "path", path)
	}

	if p.deps.Notifier != nil {
		if err := p.deps.Notifier.Notify(ctx, report); err != nil {
			log.Warn("notifier error", "err", err)
		}
	}

	log.Info("run complete",
		"rows", report.Rows,
		"duration", time.Since(start).Round(time.Millisecond),
	)
	return Result{Report: report, Table: table}, nil
}

// load arma el ledger según el modo, o lo lee de InPath.
func (p *Pipeline) load(ctx context.Context, wallet string, report *domain.Report) (*ledger.Table, error) {
	if p.cfg.InPath != "" {
		if p.deps.Import == nil {
			return nil, fmt.Errorf("pipeline.load: no importer configured")
		}
		t, err := p.deps.Import(p.cfg.InPath)
		if err != nil {
			return nil, fmt.Errorf("pipeline.load: %w", err)
		}
		return t, nil
	}

	switch p.cfg.Mode {
	case ModeActivity:
		return p.loadActivity(ctx, wallet, report)
	case ModePositions:
		if p.deps.Positions == nil {
			return nil, fmt.Errorf("pipeline.load: no positions source configured")
		}
		var (
			t   *ledger.Table
			err error
		)
		if p.cfg.Subgraph {
			t, err = p.deps.Positions.LoadFromSubgraph(ctx, wallet)
		} else {
			t, err = p.deps.Positions.Load(ctx, wallet)
		}
		if err != nil {
			return nil, fmt.Errorf("pipeline.load: %w", err)
		}
		return t, nil
	}
	return nil, fmt.Errorf("pipeline.load: unknown mode %q", p.cfg.Mode)
}

func (p *Pipeline) loadActivity(ctx context.Context, wallet string, report *domain.Report) (*ledger.Table, error) {
	if p.deps.Activity == nil {
		return nil, fmt.Errorf("pipeline.load: no activity source configured")
	}
	trades, actions, err := p.deps.Activity.FetchAll(ctx, wallet)
	if err != nil {
		return nil, fmt.Errorf("pipeline.load: %w", err)
	}
	report.Trades, report.Actions = len(trades), len(actions)

	t := ledger.NormalizeActivity(trades, actions)
	if t == nil || !t.HasColumn("slug") || p.deps.Joiner == nil {
		return t, nil
	}
	joined, err := p.deps.Joiner.Join(ctx, t, p.cfg.JoinBatch)
	if err != nil {
		return nil, fmt.Errorf("pipeline.load: %w", err)
	}
	return joined, nil
}

func (p *Pipeline) export(t *ledger.Table, wallet, runID string) (string, error) {
	write, ok := p.deps.Export[p.cfg.Format]
	if !ok {
		return "", fmt.Errorf("pipeline.export: unsupported format %q", p.cfg.Format)
	}
	name := fmt.Sprintf("%s_%s_%s.%s", p.cfg.Mode, shortWallet(wallet), runID[:8], p.cfg.Format)
	path := filepath.Join(p.cfg.OutDir, name)
	if err := write(path, t); err != nil {
		return "", fmt.Errorf("pipeline.export: %w", err)
	}
	return path, nil
}

func shortWallet(w string) string {
	w = strings.ToLower(w)
	if len(w) > 10 {
		return w[:10]
	}
	return w
}
