// Package exporter writes enriched collection tables.
//
// CSV output keeps the delimiter of the input table and can carry a UTF-8 BOM for Excel.
// XLSX output holds a single sheet with numeric price cells. SQLite output recreates one
// table whose price column is REAL.
//
//	exp := exporter.New(false, logger)
//	err := exp.Export(ctx, table, []exporter.Target{
//		{Format: exporter.FormatCSV, Path: "collection.csv.with_prices.csv"},
//		{Format: exporter.FormatSQLite, Path: "collection.db", Name: "collection"},
//	})
package exporter
