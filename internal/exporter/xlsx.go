package exporter

import (
	"fmt"
	"log/slog"

	"github.com/xuri/excelize/v2"

	"pricefill/internal/catalog"
	"pricefill/internal/config"
	"pricefill/pkg/contracts/domain"
)

// WriteWorkbook writes the table to a single-sheet XLSX workbook.
// Price cells are stored as numbers; every other cell is text.
func WriteWorkbook(filePath string, table *domain.Table, sheet string, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	if sheet == "" {
		sheet = config.DefaultXLSXSheet
	}
	logger.Info("Writing workbook",
		slog.String("file_path", filePath),
		slog.String("sheet", sheet),
		slog.Int("record_count", table.Len()))

	if err := config.EnsureParentDir(filePath); err != nil {
		return err
	}

	f := excelize.NewFile()
	defer f.Close()
	if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}

	sw, err := f.NewStreamWriter(sheet)
	if err != nil {
		return fmt.Errorf("failed to open sheet writer: %w", err)
	}

	header := make([]any, len(table.Headers))
	for i, h := range table.Headers {
		header[i] = h
	}
	if err := sw.SetRow("A1", header); err != nil {
		return fmt.Errorf("failed to write header row: %w", err)
	}

	for i, row := range table.Rows {
		values := make([]any, len(table.Headers))
		for j, h := range table.Headers {
			values[j] = row[h]
			if h == domain.ColumnPrice {
				if price, ok := catalog.ParsePrice(row[h]); ok {
					values[j] = price.InexactFloat64()
				}
			}
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := sw.SetRow(cell, values); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+1, err)
		}
	}

	if err := sw.Flush(); err != nil {
		return fmt.Errorf("failed to flush sheet: %w", err)
	}
	if err := f.SaveAs(filePath); err != nil {
		return fmt.Errorf("failed to save workbook: %w", err)
	}
	return nil
}
