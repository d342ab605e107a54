// Package dataprocessing reads collection and reference tables and enriches collection rows
// with price, print type and finish.
//
// # Reading tables
//
// ReadTable dispatches on the file extension: delimited text (delimiter sniffed among
// comma, semicolon, tab and pipe), JSON documents, JSON Lines and XLSX workbooks. A trailing
// .gz is decompressed first.
//
//	table, err := dataprocessing.ReadTable("collection.csv")
//
// # Enrichment
//
// An Enricher joins each row against the catalog indices. A Scryfall print index, when
// loaded and usable for the collection's columns, is consulted first; the product index
// is the fallback.
//
//	enricher := dataprocessing.NewEnricher(products, prices, prints, dataprocessing.DefaultOptions(), logger)
//	out, summary, err := enricher.EnrichTable(table)
//
// The returned Summary counts matched and unmatched rows and can be written as JSON.
package dataprocessing
