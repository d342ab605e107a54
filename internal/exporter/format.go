package exporter

import (
	"context"
	"fmt"
	"log/slog"

	apperrors "pricefill/internal/errors"
	"pricefill/pkg/contracts/domain"
)

// Format is an output file format
type Format string

const (
	FormatCSV    Format = "csv"
	FormatXLSX   Format = "xlsx"
	FormatSQLite Format = "sqlite"
)

// Target is one output of a run. Name is the sheet or table name; empty uses the default.
type Target struct {
	Format Format
	Path   string
	Name   string
}

// Exporter writes an enriched table to every configured target
type Exporter struct {
	csv    *CSVWriter
	bom    bool
	logger *slog.Logger
}

// New creates an exporter. bom prefixes CSV output with a UTF-8 byte order mark.
func New(bom bool, logger *slog.Logger) *Exporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Exporter{csv: NewCSVWriter(logger), bom: bom, logger: logger}
}

// Export writes table to each target in order and stops at the first failure
func (e *Exporter) Export(ctx context.Context, table *domain.Table, targets []Target) error {
	for _, target := range targets {
		if err := ctx.Err(); err != nil {
			return err
		}

		var err error
		switch target.Format {
		case FormatCSV:
			err = e.csv.WriteTable(target.Path, table, e.bom)
		case FormatXLSX:
			err = WriteWorkbook(target.Path, table, target.Name, e.logger)
		case FormatSQLite:
			err = WriteSQLite(ctx, target.Path, target.Name, table, e.logger)
		default:
			return apperrors.NewValidationError(fmt.Sprintf("unsupported export format %q", target.Format))
		}
		if err != nil {
			return apperrors.NewStorageError(fmt.Sprintf("failed to write %s output", target.Format), err).
				WithContext("path", target.Path)
		}
	}
	return nil
}
