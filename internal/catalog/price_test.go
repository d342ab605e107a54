package catalog

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "pricefill/internal/errors"
	"pricefill/pkg/contracts/domain"
)

func TestBuildPriceMap(t *testing.T) {
	t.Run("avg7 columns are kept apart from avg", func(t *testing.T) {
		prices, err := BuildPriceMap(table([]string{"idProduct", "avg7", "avg7-foil", "avg"},
			map[string]string{"idProduct": "10", "avg7": "1.11", "avg7-foil": "2.22", "avg": "9.99"},
			map[string]string{"idProduct": "11", "avg7": "3.33", "avg7-foil": ""},
		), nil)
		require.NoError(t, err)
		assert.Equal(t, 2, prices.Len())

		entry, ok := prices.Get("10")
		require.True(t, ok)
		v, ok := entry.Price(domain.WindowAvg7, domain.FinishNonfoil)
		require.True(t, ok)
		assert.Equal(t, "1.11", v.String())
		v, _ = entry.Price(domain.WindowAvg7, domain.FinishFoil)
		assert.Equal(t, "2.22", v.String())
		v, _ = entry.Price(domain.WindowAvg, domain.FinishNonfoil)
		assert.Equal(t, "9.99", v.String())

		entry, _ = prices.Get("11")
		// no foil observation falls back to nonfoil
		v, ok = entry.Price(domain.WindowAvg7, domain.FinishFoil)
		require.True(t, ok)
		assert.Equal(t, "3.33", v.String())

		assert.True(t, prices.HasWindow(domain.WindowAvg7))
		assert.True(t, prices.HasWindow(domain.WindowAvg))
		assert.False(t, prices.HasWindow(domain.WindowTrend))
	})

	t.Run("aliases and export titles", func(t *testing.T) {
		prices, err := BuildPriceMap(table([]string{"Product ID", "AVG7", "Foil AVG7", "Trend Price", "avg_30"},
			map[string]string{"Product ID": "1", "AVG7": "0,50", "Foil AVG7": "1.5", "Trend Price": "0.45", "avg_30": "n/a"},
		), nil)
		require.NoError(t, err)

		entry, ok := prices.Get("1")
		require.True(t, ok)
		assert.True(t, decimal.RequireFromString("0.5").Equal(entry.Nonfoil[domain.WindowAvg7]))
		assert.True(t, decimal.RequireFromString("1.5").Equal(entry.Foil[domain.WindowAvg7]))
		assert.True(t, decimal.RequireFromString("0.45").Equal(entry.Nonfoil[domain.WindowTrend]))
		_, has := entry.Nonfoil[domain.WindowAvg30]
		assert.False(t, has)
		assert.Equal(t, 1, prices.Invalid)
	})

	t.Run("last write wins and rows without id are skipped", func(t *testing.T) {
		prices, err := BuildPriceMap(table([]string{"id", "avg7"},
			map[string]string{"id": "1", "avg7": "1"},
			map[string]string{"id": "1", "avg7": "2"},
			map[string]string{"id": " ", "avg7": "3"},
		), nil)
		require.NoError(t, err)
		assert.Equal(t, 1, prices.Len())
		assert.Equal(t, 1, prices.Skipped)
		entry, _ := prices.Get("1")
		assert.Equal(t, "2", entry.Nonfoil[domain.WindowAvg7].String())
	})

	t.Run("missing id column", func(t *testing.T) {
		_, err := BuildPriceMap(table([]string{"avg7"}), nil)
		require.Error(t, err)
		assert.True(t, apperrors.IsType(err, apperrors.ErrTypeValidation))
	})

	t.Run("missing window columns", func(t *testing.T) {
		_, err := BuildPriceMap(table([]string{"idProduct", "idCategory"}), nil)
		require.Error(t, err)
		assert.True(t, apperrors.IsType(err, apperrors.ErrTypeValidation))
	})
}

func TestWindowColumns(t *testing.T) {
	nonfoil, foil := WindowColumns(domain.WindowAvg7)
	assert.Equal(t, []string{"avg7", "avg_7", "avg7Price", "avg7_price", "AVG7"}, nonfoil)
	assert.Equal(t, []string{"avg7-foil", "avg7_foil", "avg7Foil", "avg_7_foil", "Foil AVG7"}, foil)

	nonfoil, _ = WindowColumns(domain.WindowTrend)
	assert.Contains(t, nonfoil, "trend")
	assert.Contains(t, nonfoil, "Trend Price")
}

func TestParsePrice(t *testing.T) {
	tests := []struct {
		input string
		want  string
		ok    bool
	}{
		{"1.23", "1.23", true},
		{" 1.230 ", "1.23", true},
		{"0,15", "0.15", true},
		{"7", "7", true},
		{"", "", false},
		{"-", "", false},
		{"abc", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, ok := ParsePrice(tt.input)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, got.String())
			}
		})
	}
}

func TestPriceMapNil(t *testing.T) {
	var prices *PriceMap
	_, ok := prices.Get("1")
	assert.False(t, ok)
	assert.False(t, prices.HasWindow(domain.WindowAvg7))
	assert.Equal(t, 0, prices.Len())
}
