package catalog

import (
	"log/slog"
	"strings"

	"github.com/shopspring/decimal"

	apperrors "pricefill/internal/errors"
	"pricefill/pkg/contracts/domain"
)

// exportColumns are the column titles Cardmarket uses in its CSV price guide export
var exportColumns = map[domain.PriceWindow][2]string{
	domain.WindowAvg:   {"Avg. Sell Price", "Foil Sell"},
	domain.WindowLow:   {"Low Price", "Foil Low"},
	domain.WindowTrend: {"Trend Price", "Foil Trend"},
	domain.WindowAvg1:  {"AVG1", "Foil AVG1"},
	domain.WindowAvg7:  {"AVG7", "Foil AVG7"},
	domain.WindowAvg30: {"AVG30", "Foil AVG30"},
}

// WindowColumns returns the nonfoil and foil column aliases of a price window,
// e.g. avg7, avg_7, avg7Price, avg7_price and avg7-foil, avg7_foil, avg7Foil
func WindowColumns(w domain.PriceWindow) (nonfoil, foil []string) {
	base := string(w)
	underscored := base
	if i := strings.IndexAny(base, "0123456789"); i > 0 {
		underscored = base[:i] + "_" + base[i:]
	}

	nonfoil = []string{base, underscored, base + "Price", base + "_price"}
	foil = []string{base + "-foil", base + "_foil", base + "Foil", underscored + "_foil"}
	if cols, ok := exportColumns[w]; ok {
		nonfoil = append(nonfoil, cols[0])
		foil = append(foil, cols[1])
	}
	return nonfoil, foil
}

// ParsePrice parses a price cell. Empty or unparseable values report false.
// A decimal comma is accepted when the value has no dot.
func ParsePrice(value string) (decimal.Decimal, bool) {
	v := strings.TrimSpace(value)
	if v == "" {
		return decimal.Zero, false
	}
	if !strings.Contains(v, ".") {
		v = strings.Replace(v, ",", ".", 1)
	}
	d, err := decimal.NewFromString(v)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

// PriceMap maps catalog ids to price entries
type PriceMap struct {
	entries map[string]*domain.PriceEntry
	windows map[domain.PriceWindow]bool
	Skipped int
	Invalid int
}

// BuildPriceMap reads every recognised averaging window of a price guide.
// The table must carry an id column and at least one window column. Rows without an id
// are skipped; the last row wins for duplicate ids.
func BuildPriceMap(table *domain.Table, logger *slog.Logger) (*PriceMap, error) {
	if logger == nil {
		logger = slog.Default()
	}

	idCol := table.Column(IDColumns...)
	if idCol == "" {
		return nil, apperrors.NewValidationError("price guide data must include a product id column").
			WithContext("source", table.Source).
			WithContext("headers", table.Headers)
	}

	type windowColumns struct {
		window  domain.PriceWindow
		nonfoil string
		foil    string
	}
	var columns []windowColumns
	prices := &PriceMap{
		entries: make(map[string]*domain.PriceEntry, table.Len()),
		windows: make(map[domain.PriceWindow]bool),
	}
	for _, w := range domain.PriceWindows {
		nonfoilAliases, foilAliases := WindowColumns(w)
		wc := windowColumns{window: w, nonfoil: table.Column(nonfoilAliases...), foil: table.Column(foilAliases...)}
		if wc.nonfoil == "" && wc.foil == "" {
			continue
		}
		if wc.nonfoil != "" {
			prices.windows[w] = true
		}
		columns = append(columns, wc)
	}
	if len(columns) == 0 {
		return nil, apperrors.NewValidationError("price guide data must include at least one price window column").
			WithContext("source", table.Source).
			WithContext("headers", table.Headers)
	}

	for i, row := range table.Rows {
		id := domain.Value(row, idCol)
		if id == "" {
			prices.Skipped++
			logger.Debug("Skipping price row without id", slog.String("source", table.Source), slog.Int("row", i+1))
			continue
		}

		entry := domain.NewPriceEntry(id)
		for _, wc := range columns {
			if v, ok := prices.parse(row, wc.nonfoil); ok {
				entry.Nonfoil[wc.window] = v
			}
			if v, ok := prices.parse(row, wc.foil); ok {
				entry.Foil[wc.window] = v
			}
		}
		prices.entries[id] = entry
	}

	logger.Info("Price map built",
		slog.String("source", table.Source),
		slog.Int("entries", len(prices.entries)),
		slog.Int("windows", len(columns)),
		slog.Int("skipped", prices.Skipped),
		slog.Int("invalid_values", prices.Invalid))

	return prices, nil
}

// parse reads one price cell, counting values that are present but not numbers
func (m *PriceMap) parse(row map[string]string, column string) (decimal.Decimal, bool) {
	if column == "" {
		return decimal.Zero, false
	}
	raw := domain.Value(row, column)
	v, ok := ParsePrice(raw)
	if !ok && raw != "" {
		m.Invalid++
	}
	return v, ok
}

// Get returns the price entry for a catalog id
func (m *PriceMap) Get(id string) (*domain.PriceEntry, bool) {
	if m == nil || id == "" {
		return nil, false
	}
	entry, ok := m.entries[id]
	return entry, ok
}

// HasWindow reports whether the guide carried a nonfoil column for w
func (m *PriceMap) HasWindow(w domain.PriceWindow) bool {
	return m != nil && m.windows[w]
}

// Len returns the number of price entries
func (m *PriceMap) Len() int {
	if m == nil {
		return 0
	}
	return len(m.entries)
}
