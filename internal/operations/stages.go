package operations

import (
	"context"
	"fmt"
	"log/slog"

	"pricefill/internal/catalog"
	"pricefill/internal/config"
	"pricefill/internal/dataprocessing"
	apperrors "pricefill/internal/errors"
	"pricefill/internal/exporter"
	"pricefill/internal/infrastructure"
	"pricefill/internal/validation"
	"pricefill/pkg/contracts/domain"
)

// PipelineOptions configures the four steps of an enrichment run
type PipelineOptions struct {
	Paths       config.Paths
	Enrich      dataprocessing.Options
	BOMPrefix   bool
	XLSXSheet   string
	SQLiteTable string
}

// RegisterPipeline registers the load, index, enrich and export steps in that order
func RegisterPipeline(registry *Registry, options PipelineOptions, tracer *OperationTracer, logger *slog.Logger) error {
	steps := []Step{
		NewLoadStage(options, logger),
		NewIndexStage(options, logger),
		NewEnrichStage(options, tracer, logger),
		NewExportStage(options, logger),
	}
	for _, step := range steps {
		if err := registry.Register(step); err != nil {
			return err
		}
	}
	return nil
}

// LoadStage reads the collection and the reference datasets
type LoadStage struct {
	BaseStage
	options   PipelineOptions
	validator *validation.FileValidator
	logger    *slog.Logger
}

// NewLoadStage creates a new load step
func NewLoadStage(options PipelineOptions, logger *slog.Logger) *LoadStage {
	logger = infrastructure.WithComponent(logger, StepIDLoad)
	return &LoadStage{
		BaseStage: NewBaseStage(StepIDLoad, StepNameLoad),
		options:   options,
		validator: validation.NewFileValidator(logger),
		logger:    logger,
	}
}

// Validate checks that the required input files exist
func (s *LoadStage) Validate(state *OperationState) error {
	return s.validator.ValidateInputs(s.options.Paths)
}

// Execute reads every input into the operation context
func (s *LoadStage) Execute(ctx context.Context, state *OperationState) error {
	stepState := state.GetStage(s.ID())

	inputs := []struct {
		key  string
		path string
	}{
		{ContextKeyCollection, s.options.Paths.Collection},
		{ContextKeyProducts, s.options.Paths.Products},
		{ContextKeyPrices, s.options.Paths.Prices},
	}
	for _, input := range inputs {
		if err := ctx.Err(); err != nil {
			return err
		}
		table, err := dataprocessing.ReadTable(input.path)
		if err != nil {
			return err
		}
		s.logger.InfoContext(ctx, "Table loaded",
			slog.String("input", input.key),
			slog.String("path", input.path),
			slog.Int("rows", table.Len()),
			slog.Int("columns", len(table.Headers)),
			slog.Int("skipped", table.Skipped))
		state.SetContext(input.key, table)
		if stepState != nil {
			stepState.SetMetadata(input.key+"_rows", table.Len())
		}
	}

	prints := catalog.NewPrintIndex()
	if s.options.Enrich.UseSupplementary && s.options.Paths.ScryfallBulk != "" {
		if err := ctx.Err(); err != nil {
			return err
		}
		loaded, err := catalog.LoadPrintIndex(s.options.Paths.ScryfallBulk, s.logger)
		if err != nil {
			return err
		}
		prints = loaded
	}
	state.SetContext(ContextKeyPrintIndex, prints)
	if stepState != nil {
		stepState.SetMetadata("printings", prints.Len())
	}
	return nil
}

// IndexStage builds the product index and the price map
type IndexStage struct {
	BaseStage
	window domain.PriceWindow
	logger *slog.Logger
}

// NewIndexStage creates a new index step
func NewIndexStage(options PipelineOptions, logger *slog.Logger) *IndexStage {
	window := options.Enrich.Window
	if window == "" {
		window = domain.WindowAvg7
	}
	return &IndexStage{
		BaseStage: NewBaseStage(StepIDIndex, StepNameIndex),
		window:    window,
		logger:    infrastructure.WithComponent(logger, StepIDIndex),
	}
}

// Validate checks that the reference tables were loaded
func (s *IndexStage) Validate(state *OperationState) error {
	for _, key := range []string{ContextKeyProducts, ContextKeyPrices} {
		if _, err := ContextValue[*domain.Table](state, key); err != nil {
			return err
		}
	}
	return nil
}

// Execute builds both indices. The price guide must carry the selected window.
func (s *IndexStage) Execute(ctx context.Context, state *OperationState) error {
	productTable, err := ContextValue[*domain.Table](state, ContextKeyProducts)
	if err != nil {
		return err
	}
	priceTable, err := ContextValue[*domain.Table](state, ContextKeyPrices)
	if err != nil {
		return err
	}

	products, err := catalog.BuildProductIndex(productTable, s.logger)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	prices, err := catalog.BuildPriceMap(priceTable, s.logger)
	if err != nil {
		return err
	}
	if !prices.HasWindow(s.window) {
		return apperrors.NewValidationError(fmt.Sprintf("price guide data must include a %s price column", s.window)).
			WithContext("source", priceTable.Source).
			WithContext("window", string(s.window))
	}

	state.SetContext(ContextKeyProductIndex, products)
	state.SetContext(ContextKeyPriceMap, prices)
	if stepState := state.GetStage(s.ID()); stepState != nil {
		stepState.SetMetadata("products", products.Len())
		stepState.SetMetadata("prices", prices.Len())
	}
	return nil
}

// EnrichStage derives the price, print type and finish of every collection row
type EnrichStage struct {
	BaseStage
	options dataprocessing.Options
	tracer  *OperationTracer
	logger  *slog.Logger
}

// NewEnrichStage creates a new enrich step
func NewEnrichStage(options PipelineOptions, tracer *OperationTracer, logger *slog.Logger) *EnrichStage {
	if tracer == nil {
		tracer = NewOperationTracer(nil)
	}
	return &EnrichStage{
		BaseStage: NewBaseStage(StepIDEnrich, StepNameEnrich),
		options:   options.Enrich,
		tracer:    tracer,
		logger:    infrastructure.WithComponent(logger, StepIDEnrich),
	}
}

// Validate checks that the collection and the indices are available
func (s *EnrichStage) Validate(state *OperationState) error {
	if _, err := ContextValue[*domain.Table](state, ContextKeyCollection); err != nil {
		return err
	}
	if _, err := ContextValue[*catalog.ProductIndex](state, ContextKeyProductIndex); err != nil {
		return err
	}
	_, err := ContextValue[*catalog.PriceMap](state, ContextKeyPriceMap)
	return err
}

// Execute enriches the collection and stores the new table and its summary
func (s *EnrichStage) Execute(ctx context.Context, state *OperationState) error {
	collection, err := ContextValue[*domain.Table](state, ContextKeyCollection)
	if err != nil {
		return err
	}
	products, err := ContextValue[*catalog.ProductIndex](state, ContextKeyProductIndex)
	if err != nil {
		return err
	}
	prices, err := ContextValue[*catalog.PriceMap](state, ContextKeyPriceMap)
	if err != nil {
		return err
	}
	// the print index is optional
	prints, _ := ContextValue[*catalog.PrintIndex](state, ContextKeyPrintIndex)

	enricher := dataprocessing.NewEnricher(products, prices, prints, s.options, s.logger)
	enriched, summary, err := enricher.EnrichTable(collection)
	if err != nil {
		return err
	}

	s.tracer.RecordRows(ctx, summary.Rows, summary.Matched, summary.Unmatched)
	state.SetContext(ContextKeyEnriched, enriched)
	state.SetContext(ContextKeySummary, summary)
	if stepState := state.GetStage(s.ID()); stepState != nil {
		stepState.SetMetadata("rows", summary.Rows)
		stepState.SetMetadata("matched", summary.Matched)
		stepState.SetMetadata("unmatched", summary.Unmatched)
	}
	return nil
}

// ExportStage writes the enriched table to every configured output
type ExportStage struct {
	BaseStage
	options   PipelineOptions
	validator *validation.FileValidator
	logger    *slog.Logger
}

// NewExportStage creates a new export step
func NewExportStage(options PipelineOptions, logger *slog.Logger) *ExportStage {
	logger = infrastructure.WithComponent(logger, StepIDExport)
	return &ExportStage{
		BaseStage: NewBaseStage(StepIDExport, StepNameExport),
		options:   options,
		validator: validation.NewFileValidator(logger),
		logger:    logger,
	}
}

// Targets lists the outputs of the run; the CSV output is always first
func (s *ExportStage) Targets() []exporter.Target {
	paths := s.options.Paths
	targets := []exporter.Target{{Format: exporter.FormatCSV, Path: paths.Output}}
	if paths.XLSX != "" {
		targets = append(targets, exporter.Target{Format: exporter.FormatXLSX, Path: paths.XLSX, Name: s.options.XLSXSheet})
	}
	if paths.SQLite != "" {
		targets = append(targets, exporter.Target{Format: exporter.FormatSQLite, Path: paths.SQLite, Name: s.options.SQLiteTable})
	}
	return targets
}

// Validate checks the enriched table is present and every output path is writable
func (s *ExportStage) Validate(state *OperationState) error {
	if _, err := ContextValue[*domain.Table](state, ContextKeyEnriched); err != nil {
		return err
	}
	for _, target := range s.Targets() {
		if err := s.validator.ValidateOutputPath(target.Path); err != nil {
			return err
		}
	}
	if s.options.Paths.Summary != "" {
		return s.validator.ValidateOutputPath(s.options.Paths.Summary)
	}
	return nil
}

// Execute writes the outputs and, when configured, the JSON run summary
func (s *ExportStage) Execute(ctx context.Context, state *OperationState) error {
	enriched, err := ContextValue[*domain.Table](state, ContextKeyEnriched)
	if err != nil {
		return err
	}

	targets := s.Targets()
	if err := exporter.New(s.options.BOMPrefix, s.logger).Export(ctx, enriched, targets); err != nil {
		return err
	}

	if s.options.Paths.Summary != "" {
		summary, err := ContextValue[*dataprocessing.Summary](state, ContextKeySummary)
		if err != nil {
			return err
		}
		if err := summary.WriteJSON(s.options.Paths.Summary); err != nil {
			return apperrors.NewStorageError("failed to write run summary", err).WithContext("path", s.options.Paths.Summary)
		}
	}

	state.SetContext(ContextKeyOutputs, targets)
	s.logger.InfoContext(ctx, "Outputs written",
		slog.Int("outputs", len(targets)),
		slog.String("csv", targets[0].Path))
	return nil
}
