package config

// Application constants - hardcoded values shared by the CLI and the pipeline
const (
	// Application Info
	AppName    = "pricefill"
	AppVersion = "1.0.0"

	// Enrichment defaults
	DefaultPriceWindow  = "avg7"
	DefaultOutputSuffix = ".with_prices.csv"
	DefaultSQLiteTable  = "collection"
	DefaultXLSXSheet    = "Collection"

	// Input sniffing
	SniffSize = 8192

	// File Paths (relative to working directory)
	DefaultLogsDir = "logs"
)

// CSVDelimiters are the delimiters considered when sniffing a delimited file, in preference order
var CSVDelimiters = []rune{',', ';', '\t', '|'}
