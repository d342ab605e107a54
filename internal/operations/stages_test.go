package operations_test

import (
	"context"
	"database/sql"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"pricefill/internal/config"
	"pricefill/internal/dataprocessing"
	apperrors "pricefill/internal/errors"
	"pricefill/internal/exporter"
	"pricefill/internal/operations"
	"pricefill/pkg/contracts/domain"
)

const (
	stageCollection = "Name;Set code;Set name;Collector number;Foil;Scryfall ID;Quantity\n" +
		"Emptiness;ECL;Lorwyn Eclipsed;222;normal;id-normal;2\n" +
		"Emptiness;ECL;Lorwyn Eclipsed;294;normal;id-borderless;1\n" +
		"\"Oko, Lorwyn Liege // Oko, Shadowmoor Scion\";ECL;Lorwyn Eclipsed;61;foil;id-oko;1\n" +
		"Unknown Card;XXX;Nowhere;1;normal;;1\n"

	stageProducts = `{"products": [
  {"idProduct": 100, "name": "Emptiness", "idExpansion": 1},
  {"idProduct": 101, "name": "Oko, Lorwyn Liege // Oko, Shadowmoor Scion", "idExpansion": 1}
]}`

	stagePrices = `{"priceGuides": [
  {"idProduct": 100, "avg7": 7.02, "avg7-foil": 7.20},
  {"idProduct": 101, "avg7": 5.26, "avg7-foil": 5.39}
]}`

	stageBulk = `[
  {"id": "id-normal", "cardmarket_id": 100, "collector_number": "222", "set": "ecl", "name": "Emptiness",
   "border_color": "black", "full_art": false, "promo_types": [], "frame_effects": [], "finishes": ["nonfoil", "foil"]},
  {"id": "id-borderless", "cardmarket_id": 100, "collector_number": "294", "set": "ecl", "name": "Emptiness",
   "border_color": "borderless", "full_art": true, "promo_types": [], "frame_effects": ["inverted"], "finishes": ["nonfoil", "foil"]},
  {"id": "id-oko", "cardmarket_id": 101, "collector_number": "61", "set": "ecl", "name": "Oko, Lorwyn Liege // Oko, Shadowmoor Scion",
   "border_color": "black", "full_art": false, "promo_types": ["promo"], "frame_effects": [], "finishes": ["nonfoil", "foil"]}
]`
)

func writeInput(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func pipelineOptions(t *testing.T) operations.PipelineOptions {
	t.Helper()
	dir := t.TempDir()
	paths := config.ResolvePaths(config.Paths{
		Collection:   writeInput(t, dir, "collection.csv", stageCollection),
		Products:     writeInput(t, dir, "products.json", stageProducts),
		Prices:       writeInput(t, dir, "prices.json", stagePrices),
		ScryfallBulk: writeInput(t, dir, "bulk.json", stageBulk),
	}, config.DefaultOutputSuffix)

	return operations.PipelineOptions{
		Paths:       paths,
		Enrich:      dataprocessing.DefaultOptions(),
		SQLiteTable: config.DefaultSQLiteTable,
	}
}

func runPipeline(t *testing.T, options operations.PipelineOptions) (*operations.OperationResponse, *operations.OperationState, error) {
	t.Helper()
	registry := operations.NewRegistry()
	require.NoError(t, operations.RegisterPipeline(registry, options, nil, nil))
	require.Equal(t, []string{
		operations.StepIDLoad, operations.StepIDIndex, operations.StepIDEnrich, operations.StepIDExport,
	}, registry.ListIDs())

	return operations.NewManager(registry, nil, nil, nil).Execute(context.Background(), operations.OperationRequest{})
}

func readOutput(t *testing.T, path string, delimiter rune) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	r := csv.NewReader(f)
	r.Comma = delimiter
	records, err := r.ReadAll()
	require.NoError(t, err)
	return records
}

func TestPipelineWithSupplementaryData(t *testing.T) {
	options := pipelineOptions(t)
	dir := filepath.Dir(options.Paths.Collection)
	options.Paths.XLSX = filepath.Join(dir, "out", "collection.xlsx")
	options.Paths.SQLite = filepath.Join(dir, "out", "collection.db")
	options.Paths.Summary = filepath.Join(dir, "out", "summary.json")

	resp, state, err := runPipeline(t, options)
	require.NoError(t, err)
	assert.Equal(t, operations.OperationStatusCompleted, resp.Status)

	records := readOutput(t, options.Paths.Output, ';')
	require.Len(t, records, 5)
	header := records[0]
	assert.Equal(t, []string{domain.ColumnPrice, domain.ColumnType, domain.ColumnFinish}, header[len(header)-3:])

	tail := func(rec []string) []string { return rec[len(rec)-3:] }
	assert.Equal(t, []string{"7.02", "normal", "nonfoil"}, tail(records[1]))
	assert.Equal(t, []string{"7.02", "borderless", "nonfoil"}, tail(records[2]))
	assert.Equal(t, []string{"5.39", "normal", "foil"}, tail(records[3]))
	assert.Equal(t, []string{"", "", ""}, tail(records[4]))
	assert.Equal(t, "Oko, Lorwyn Liege // Oko, Shadowmoor Scion", records[3][0])

	summary, err := operations.ContextValue[*dataprocessing.Summary](state, operations.ContextKeySummary)
	require.NoError(t, err)
	assert.Equal(t, 4, summary.Rows)
	assert.Equal(t, 3, summary.Matched)
	assert.Equal(t, 1, summary.Unmatched)
	assert.Equal(t, 3, summary.ByMatchSource[domain.MatchSourceSupplementary])
	assert.True(t, decimal.RequireFromString("26.45").Equal(summary.TotalValue), summary.TotalValue.String())

	data, err := os.ReadFile(options.Paths.Summary)
	require.NoError(t, err)
	var written dataprocessing.Summary
	require.NoError(t, json.Unmarshal(data, &written))
	assert.Equal(t, 3, written.Matched)
	assert.True(t, summary.TotalValue.Equal(written.TotalValue))

	assert.FileExists(t, options.Paths.XLSX)

	db, err := sql.Open("sqlite", options.Paths.SQLite)
	require.NoError(t, err)
	defer db.Close()
	var rows int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM "collection"`).Scan(&rows))
	assert.Equal(t, 4, rows)

	targets, err := operations.ContextValue[[]exporter.Target](state, operations.ContextKeyOutputs)
	require.NoError(t, err)
	require.Len(t, targets, 3)
	assert.Equal(t, exporter.FormatCSV, targets[0].Format)

	load := state.GetStage(operations.StepIDLoad)
	assert.Equal(t, 4, load.Metadata[operations.ContextKeyCollection+"_rows"])
	assert.Equal(t, 3, load.Metadata["printings"])
}

func TestPipelineWithoutSupplementaryData(t *testing.T) {
	options := pipelineOptions(t)
	options.Enrich.UseSupplementary = false
	options.Enrich.AddProductID = true

	_, state, err := runPipeline(t, options)
	require.NoError(t, err)

	records := readOutput(t, options.Paths.Output, ';')
	require.Len(t, records, 5)
	assert.Equal(t, domain.ColumnProductID, records[0][len(records[0])-1])

	tail := func(rec []string) []string { return rec[len(rec)-4:] }
	// matched by name only, so every Emptiness print gets the normal type
	assert.Equal(t, []string{"7.02", "normal", "nonfoil", "100"}, tail(records[1]))
	assert.Equal(t, []string{"7.02", "normal", "nonfoil", "100"}, tail(records[2]))
	assert.Equal(t, []string{"5.39", "normal", "foil", "101"}, tail(records[3]))
	assert.Equal(t, []string{"", "", "", ""}, tail(records[4]))

	prints, err := operations.ContextValue[interface{ Len() int }](state, operations.ContextKeyPrintIndex)
	require.NoError(t, err)
	assert.Equal(t, 0, prints.Len())
}

func TestPipelineWindowSelection(t *testing.T) {
	options := pipelineOptions(t)
	options.Paths.Prices = writeInput(t, filepath.Dir(options.Paths.Prices), "trend.csv",
		"idProduct,avg7,trend,trend-foil\n100,7.02,6.50,6.90\n101,5.26,5.00,5.10\n")
	options.Enrich.Window = domain.WindowTrend

	_, _, err := runPipeline(t, options)
	require.NoError(t, err)

	records := readOutput(t, options.Paths.Output, ';')
	price := func(rec []string) string { return rec[len(rec)-3] }
	assert.Equal(t, "6.5", price(records[1]))
	assert.Equal(t, "5.1", price(records[3]))
}

func TestPipelineMissingWindowFailsIndexStep(t *testing.T) {
	options := pipelineOptions(t)
	options.Paths.Prices = writeInput(t, filepath.Dir(options.Paths.Prices), "trend_only.csv",
		"idProduct,trend\n100,6.50\n")

	_, state, err := runPipeline(t, options)
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeValidation))
	assert.Contains(t, err.Error(), "avg7")
	assert.Equal(t, operations.StepStatusFailed, state.GetStage(operations.StepIDIndex).GetStatus())
	assert.Equal(t, operations.StepStatusSkipped, state.GetStage(operations.StepIDEnrich).GetStatus())
	assert.NoFileExists(t, options.Paths.Output)
}

func TestPipelineMissingInputFailsValidation(t *testing.T) {
	options := pipelineOptions(t)
	options.Paths.Products = filepath.Join(t.TempDir(), "missing.json")

	_, state, err := runPipeline(t, options)
	require.Error(t, err)
	assert.Equal(t, operations.ErrorTypeValidation, operations.GetErrorType(err))
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeNotFound))
	assert.Equal(t, operations.StepStatusFailed, state.GetStage(operations.StepIDLoad).GetStatus())
}

func TestExportStageTargets(t *testing.T) {
	options := operations.PipelineOptions{
		Paths:       config.Paths{Output: "out.csv", SQLite: "out.db"},
		SQLiteTable: "cards",
	}
	stage := operations.NewExportStage(options, nil)

	targets := stage.Targets()
	require.Len(t, targets, 2)
	assert.Equal(t, exporter.Target{Format: exporter.FormatCSV, Path: "out.csv"}, targets[0])
	assert.Equal(t, exporter.Target{Format: exporter.FormatSQLite, Path: "out.db", Name: "cards"}, targets[1])
}
