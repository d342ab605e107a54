package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"pricefill/internal/config"
	"pricefill/internal/dataprocessing"
	"pricefill/internal/infrastructure"
	"pricefill/internal/operations"
	"pricefill/pkg/contracts"
	"pricefill/pkg/contracts/domain"
)

const (
	exitOK    = 0
	exitError = 1
	exitUsage = 2
)

// cliOptions holds the parsed command line
type cliOptions struct {
	paths        config.Paths
	window       string
	noScryfall   bool
	addProductID bool
	configPath   string
	version      bool

	// set records the flags given explicitly, so config values are only overridden by them
	set map[string]bool
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func parseFlags(args []string, stderr io.Writer) (*cliOptions, error) {
	opts := &cliOptions{set: make(map[string]bool)}

	fs := flag.NewFlagSet("pricefill", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&opts.paths.Collection, "collection", "", "collection export (CSV, JSON or XLSX)")
	fs.StringVar(&opts.paths.Products, "products", "", "Cardmarket product catalogue (CSV or JSON, optionally gzipped)")
	fs.StringVar(&opts.paths.Prices, "prices", "", "Cardmarket price guide (CSV or JSON, optionally gzipped)")
	fs.StringVar(&opts.paths.Output, "output", "", "output CSV (defaults to <collection>"+config.DefaultOutputSuffix+")")
	fs.StringVar(&opts.paths.ScryfallBulk, "scryfall-bulk", "", "Scryfall bulk data used to identify printings")
	fs.BoolVar(&opts.noScryfall, "no-scryfall", false, "ignore Scryfall data and match by name, set and number only")
	fs.BoolVar(&opts.addProductID, "add-product-id", false, "append the matched Cardmarket product id")
	fs.StringVar(&opts.window, "window", config.DefaultPriceWindow, "price guide window: avg, low, trend, avg1, avg7 or avg30")
	fs.StringVar(&opts.paths.XLSX, "xlsx", "", "also write an XLSX workbook to this path")
	fs.StringVar(&opts.paths.SQLite, "sqlite", "", "also write a SQLite table to this database")
	fs.StringVar(&opts.paths.Summary, "summary", "", "write a JSON run summary to this path")
	fs.StringVar(&opts.configPath, "config", "", "YAML config file")
	fs.BoolVar(&opts.version, "version", false, "print version and exit")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	fs.Visit(func(f *flag.Flag) { opts.set[f.Name] = true })

	if opts.version {
		return opts, nil
	}
	for _, name := range []string{"collection", "products", "prices"} {
		if fs.Lookup(name).Value.String() == "" {
			return nil, fmt.Errorf("-%s is required", name)
		}
	}
	if fs.NArg() > 0 {
		return nil, fmt.Errorf("unexpected arguments: %v", fs.Args())
	}
	return opts, nil
}

// applyConfig merges the loaded configuration under the explicit flags
func applyConfig(opts *cliOptions, cfg *config.Config) (operations.PipelineOptions, error) {
	window := cfg.Enrich.Window
	if opts.set["window"] {
		window = opts.window
	}
	if !validWindow(domain.PriceWindow(window)) {
		return operations.PipelineOptions{}, fmt.Errorf("unknown price window %q", window)
	}

	paths := opts.paths
	if paths.ScryfallBulk == "" {
		paths.ScryfallBulk = cfg.Enrich.ScryfallBulk
	}
	if paths.XLSX == "" {
		paths.XLSX = cfg.Export.XLSXPath
	}
	if paths.SQLite == "" {
		paths.SQLite = cfg.Export.SQLitePath
	}

	return operations.PipelineOptions{
		Paths: config.ResolvePaths(paths, cfg.Export.OutputSuffix),
		Enrich: dataprocessing.Options{
			Window:           domain.PriceWindow(window),
			AddProductID:     opts.addProductID || cfg.Enrich.AddProductID,
			UseSupplementary: cfg.Enrich.UseScryfall && !opts.noScryfall,
		},
		BOMPrefix:   cfg.Export.BOMPrefix,
		XLSXSheet:   config.DefaultXLSXSheet,
		SQLiteTable: cfg.Export.SQLiteTable,
	}, nil
}

func validWindow(w domain.PriceWindow) bool {
	for _, known := range domain.PriceWindows {
		if w == known {
			return true
		}
	}
	return false
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	opts, err := parseFlags(args, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}
		fmt.Fprintf(stderr, "pricefill: %v\n", err)
		return exitUsage
	}
	if opts.version {
		fmt.Fprintln(stdout, contracts.GetFullVersionString())
		return exitOK
	}

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		fmt.Fprintf(stderr, "pricefill: %v\n", err)
		return exitError
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		fmt.Fprintf(stderr, "pricefill: failed to initialize logger: %v\n", err)
		return exitError
	}
	if logger == nil {
		logger = slog.Default()
	}
	defer infrastructure.CloseLogFile()

	ctx = infrastructure.EnsureTraceID(ctx)

	options, err := applyConfig(opts, cfg)
	if err != nil {
		logger.ErrorContext(ctx, "Invalid options", slog.String("error", err.Error()))
		fmt.Fprintf(stderr, "pricefill: %v\n", err)
		return exitUsage
	}

	providers, err := infrastructure.InitializeOTel(infrastructure.NewOTelConfig(cfg.Telemetry), logger)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to initialize telemetry", slog.String("error", err.Error()))
		return exitError
	}
	defer func() {
		if err := providers.Shutdown(context.Background()); err != nil {
			logger.Warn("Telemetry shutdown failed", slog.String("error", err.Error()))
		}
	}()

	tracer := operations.NewOperationTracer(providers)
	registry := operations.NewRegistry()
	if err := operations.RegisterPipeline(registry, options, tracer, logger); err != nil {
		logger.ErrorContext(ctx, "Failed to register pipeline", slog.String("error", err.Error()))
		return exitError
	}

	logger.InfoContext(ctx, "Starting price fill",
		slog.String("version", config.AppVersion),
		slog.String("collection", options.Paths.Collection),
		slog.String("products", options.Paths.Products),
		slog.String("prices", options.Paths.Prices),
		slog.String("scryfall_bulk", options.Paths.ScryfallBulk),
		slog.String("window", string(options.Enrich.Window)),
		slog.Bool("use_scryfall", options.Enrich.UseSupplementary))

	manager := operations.NewManager(registry, nil, tracer, logger)
	resp, state, err := manager.Execute(ctx, operations.OperationRequest{
		Parameters: map[string]interface{}{"window": string(options.Enrich.Window)},
	})
	if err != nil {
		logger.ErrorContext(ctx, "Price fill failed",
			slog.String("status", string(resp.Status)),
			slog.String("error", err.Error()))
		fmt.Fprintf(stderr, "pricefill: %v\n", err)
		return exitError
	}

	summary, err := operations.ContextValue[*dataprocessing.Summary](state, operations.ContextKeySummary)
	if err != nil {
		logger.ErrorContext(ctx, "Run finished without a summary", slog.String("error", err.Error()))
		return exitError
	}

	fmt.Fprintf(stdout, "Wrote %d rows -> %s\n", summary.Rows, options.Paths.Output)
	fmt.Fprintf(stdout, "Matched prices: %d\n", summary.Matched)
	fmt.Fprintf(stdout, "Unmatched rows: %d\n", summary.Unmatched)

	if counters, err := providers.CollectCounters(ctx); err == nil {
		logger.DebugContext(ctx, "Run counters", slog.Any("counters", counters))
	}
	logger.InfoContext(ctx, "Price fill completed",
		slog.Duration("duration", resp.Duration),
		slog.Int("rows", summary.Rows),
		slog.Int("matched", summary.Matched),
		slog.Float64("match_rate", summary.MatchRate()),
		slog.String("total_value", summary.TotalValue.StringFixed(2)))
	return exitOK
}
