package dataprocessing

import (
	"log/slog"
	"strconv"

	"pricefill/internal/catalog"
	apperrors "pricefill/internal/errors"
	"pricefill/pkg/contracts/domain"
)

// Enricher derives price, print type and finish for collection rows
type Enricher struct {
	products *catalog.ProductIndex
	prices   *catalog.PriceMap
	prints   *catalog.PrintIndex
	options  Options
	logger   *slog.Logger
}

// NewEnricher creates an enricher over built reference indices. prints may be nil.
func NewEnricher(products *catalog.ProductIndex, prices *catalog.PriceMap, prints *catalog.PrintIndex, options Options, logger *slog.Logger) *Enricher {
	if logger == nil {
		logger = slog.Default()
	}
	if options.Window == "" {
		options.Window = domain.WindowAvg7
	}
	return &Enricher{
		products: products,
		prices:   prices,
		prints:   prints,
		options:  options,
		logger:   logger,
	}
}

// EnrichTable returns a new table holding every input row plus the enrichment columns.
// The input table is not modified.
func (e *Enricher) EnrichTable(table *domain.Table) (*domain.Table, *Summary, error) {
	cols := ResolveCollectionColumns(table)
	if cols.Name == "" {
		return nil, nil, apperrors.NewValidationError("collection must include a Name column").
			WithContext("source", table.Source).
			WithContext("headers", table.Headers)
	}

	supplementary := e.options.UseSupplementary && e.prints.Len() > 0 && cols.SupportsSupplementary()
	e.logger.Info("Enriching collection",
		slog.String("source", table.Source),
		slog.Int("rows", table.Len()),
		slog.String("window", string(e.options.Window)),
		slog.Bool("supplementary", supplementary))

	extra := []string{domain.ColumnPrice, domain.ColumnType, domain.ColumnFinish}
	if e.options.AddProductID {
		extra = append(extra, domain.ColumnProductID)
	}

	out := &domain.Table{
		Source:    table.Source,
		Headers:   table.WithColumns(extra...),
		Rows:      make([]map[string]string, 0, table.Len()),
		Delimiter: table.Delimiter,
	}
	summary := NewSummary()

	for _, row := range table.Rows {
		enrichment := e.enrichRow(row, cols, supplementary)
		summary.Add(enrichment, quantity(row, cols.Quantity))

		price, printType, finish := enrichment.Fields()
		enriched := make(map[string]string, len(row)+len(extra))
		for k, v := range row {
			enriched[k] = v
		}
		enriched[domain.ColumnPrice] = price
		enriched[domain.ColumnType] = printType
		enriched[domain.ColumnFinish] = finish
		if e.options.AddProductID {
			enriched[domain.ColumnProductID] = enrichment.ProductID
		}
		out.Rows = append(out.Rows, enriched)
	}

	e.logger.Info("Collection enriched",
		slog.Int("rows", summary.Rows),
		slog.Int("matched", summary.Matched),
		slog.Int("unmatched", summary.Unmatched),
		slog.Int("resolved", summary.Resolved))

	return out, summary, nil
}

func (e *Enricher) enrichRow(row map[string]string, cols CollectionColumns, supplementary bool) domain.Enrichment {
	var foil *bool
	if cols.Foil != "" {
		foil = domain.ParseFoil(row[cols.Foil])
	}
	finish := domain.FinishOf(foil)

	result := domain.Enrichment{MatchedBy: domain.MatchSourceNone, Finish: finish, PrintType: domain.PrintTypeNormal}

	if supplementary {
		info, ok := e.prints.Lookup(
			domain.Value(row, cols.ScryfallID),
			domain.Value(row, cols.SetCode),
			domain.Value(row, cols.Number),
			domain.Value(row, cols.Lang),
		)
		if ok {
			result.Resolved = true
			result.MatchedBy = domain.MatchSourceSupplementary
			result.PrintType = info.PrintType()
			result.ProductID = info.CardmarketID
			if price, ok := e.price(info.CardmarketID, finish); ok {
				result.Price = price
				return result
			}
		}
	}

	ids := e.products.Match(
		domain.Value(row, cols.Name),
		domain.Value(row, cols.Set),
		domain.Value(row, cols.Number),
		foil,
	)
	for _, id := range ids {
		if price, ok := e.price(id, finish); ok {
			result.Resolved = true
			result.MatchedBy = domain.MatchSourceProductIndex
			result.ProductID = id
			result.Price = price
			return result
		}
	}

	if !result.Resolved && len(ids) > 0 {
		// catalogued but not priced: still resolved, with an empty price
		result.Resolved = true
		result.MatchedBy = domain.MatchSourceProductIndex
		result.ProductID = ids[0]
	}
	if !result.Resolved {
		return domain.Enrichment{MatchedBy: domain.MatchSourceNone}
	}
	return result
}

// quantity reads the copy count of a row. Missing, unparseable or negative counts are
// one copy; an explicit zero is kept.
func quantity(row map[string]string, column string) int {
	n, err := strconv.Atoi(domain.Value(row, column))
	if err != nil || n < 0 {
		return 1
	}
	return n
}

// price renders the configured window's price for a catalog id
func (e *Enricher) price(id string, finish domain.Finish) (string, bool) {
	entry, ok := e.prices.Get(id)
	if !ok {
		return "", false
	}
	value, ok := entry.Price(e.options.Window, finish)
	if !ok {
		return "", false
	}
	return value.String(), true
}
