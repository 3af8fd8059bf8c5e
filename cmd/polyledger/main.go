package main

import (
	"context"
	"flag"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/alejandrodnm/polyledger/config"
	"github.com/alejandrodnm/polyledger/internal/adapters/export"
	"github.com/alejandrodnm/polyledger/internal/adapters/notify"
	"github.com/alejandrodnm/polyledger/internal/adapters/polymarket"
	"github.com/alejandrodnm/polyledger/internal/adapters/storage"
	"github.com/alejandrodnm/polyledger/internal/fetch"
	"github.com/alejandrodnm/polyledger/internal/ledger"
	"github.com/alejandrodnm/polyledger/internal/metrics"
	"github.com/alejandrodnm/polyledger/internal/pipeline"
)

func main() {
	os.Exit(run())
}

// run ejecuta el CLI y devuelve el exit code. Los defers corren siempre antes
// de salir.
func run() int {
	configPath := flag.String("config", "config/config.yaml", "path to config file")
	wallet := flag.String("wallet", "", "wallet address (overrides config / POLYLEDGER_WALLET)")
	mode := flag.String("mode", "activity", "ledger to build: activity|positions")
	clv := flag.Bool("clv", false, "reconcile fills against the closing line (needs the closing price column, e.g. from an -in ledger)")
	subgraph := flag.Bool("subgraph", false, "positions mode: discover markets through the positions subgraph")
	sportsOnly := flag.Bool("sports", false, "keep only markets tagged Games or Sports")
	in := flag.String("in", "", "read the ledger from an exported .csv or .sqlite file instead of the API")
	out := flag.String("out", "", "directory to export the ledger to (empty: no export)")
	outFormat := flag.String("out-format", "csv", "export format: csv|xlsx|sqlite")
	verbose := flag.Bool("verbose", false, "set log level to debug")
	logFormat := flag.String("format", "", "log format: text|json (overrides config)")
	table := flag.Bool("table", false, "print full summary tables (default: compact 1-line)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err, "path", *configPath)
		return 1
	}

	if *verbose {
		cfg.Log.Level = "debug"
	}
	if *logFormat != "" {
		cfg.Log.Format = *logFormat
	}
	closeLog := setupLogger(cfg.Log)
	defer closeLog()

	if *wallet != "" {
		cfg.Wallet = *wallet
	}
	if cfg.Wallet == "" {
		slog.Error("no wallet given: use -wallet or POLYLEDGER_WALLET")
		return 2
	}

	runMode, err := pipeline.ParseMode(*mode)
	if err != nil {
		slog.Error("invalid mode", "err", err)
		return 2
	}

	slog.Info("polyledger starting",
		"config", *configPath,
		"wallet", cfg.Wallet,
		"mode", runMode,
		"clv", *clv,
		"workers", cfg.Fetch.Workers,
	)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	metricsSrv := metrics.NewServer(cfg.Metrics.Enabled, cfg.Metrics.Addr)
	metricsSrv.Run()
	defer func() {
		if err := metricsSrv.Stop(context.Background()); err != nil {
			slog.Warn("metrics server shutdown", "err", err)
		}
	}()

	client := polymarket.NewClient(polymarket.Config{
		DataBase:      cfg.API.DataBase,
		GammaBase:     cfg.API.GammaBase,
		SubgraphURL:   cfg.API.SubgraphURL,
		Timeout:       cfg.Timeout(),
		RateLimitBase: cfg.RateLimitBase(),
		RateLimitMax:  cfg.RateLimitMax(),
		MarketBatch:   cfg.CLV.MarketBatch,
	})
	defer client.Close()

	unbounded := fetch.NewUnbounded(client, client.Endpoint("/trades"), client.Endpoint("/activity"), fetch.UnboundedConfig{
		Limit:      cfg.Fetch.Limit,
		Sleep:      cfg.Sleep(),
		MaxPages:   cfg.Fetch.MaxPages,
		MaxRecords: cfg.Fetch.MaxRecords,
		MaxRetries: cfg.Fetch.MaxRetries,
	})
	coordinator := fetch.NewCoordinator(fetch.NewRangeFetcher(client,
		fetch.WithPageLimit(cfg.Fetch.Limit),
		fetch.WithMaxRetries(cfg.Fetch.MaxRetries),
	))
	joiner := ledger.NewJoiner(client, cfg.CacheTTL())

	runCfg := pipeline.Config{
		Mode:      runMode,
		CLV:       *clv,
		Subgraph:  *subgraph,
		JoinBatch: cfg.Join.BatchSize,
		InPath:    *in,
		OutDir:    *out,
		Format:    strings.ToLower(*outFormat),
	}
	if *sportsOnly {
		runCfg.OnlyTags = []string{"Games", "Sports"}
	}

	p := pipeline.New(runCfg, pipeline.Deps{
		Activity: fetch.NewExpander(unbounded, cfg.Fetch.MaxRecords),
		Positions: ledger.NewPositionsLoader(coordinator, client, joiner, ledger.PositionsConfig{
			ClosedURL:        client.Endpoint("/closed-positions"),
			ActiveURL:        client.Endpoint("/positions"),
			ClosedWorkers:    cfg.Fetch.Workers,
			RecordsPerWorker: cfg.Fetch.RecordsPerWorker,
			JoinBatch:        cfg.Join.BatchSize,
		}),
		Joiner:     joiner,
		Reconciler: ledger.NewReconciler(client, cfg.CLV.ClosingColumn),
		Notifier:   notify.NewConsole(*table),
		Export: map[string]pipeline.Exporter{
			"csv":    export.WriteCSVFile,
			"xlsx":   export.WriteXLSXFile,
			"sqlite": storage.WriteLedgerFile,
		},
		Import: importLedger,
	})

	start := time.Now()
	if _, err := p.Run(ctx, cfg.Wallet); err != nil {
		slog.Error("run failed", "err", err, "elapsed", time.Since(start).Round(time.Millisecond))
		return 1
	}

	slog.Info("polyledger finished", "elapsed", time.Since(start).Round(time.Millisecond))
	return 0
}

// importLedger elige el lector según la extensión del archivo.
func importLedger(path string) (*ledger.Table, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".sqlite", ".db":
		return storage.ReadLedgerFile(path)
	}
	return export.ReadCSVFile(path)
}

// setupLogger configura slog como default. Si cfg.File no está vacío, los logs
// también van a ese archivo con rotación. Devuelve la función que lo cierra.
func setupLogger(cfg config.LogConfig) func() {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	var w io.Writer = os.Stderr
	closeFn := func() {}
	if cfg.File != "" {
		rotating := &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    50, // MB
			MaxBackups: 5,
			MaxAge:     14, // días
			Compress:   true,
		}
		w = io.MultiWriter(os.Stderr, rotating)
		closeFn = func() { _ = rotating.Close() }
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	slog.SetDefault(slog.New(handler))
	return closeFn
}
