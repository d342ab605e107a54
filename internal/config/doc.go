// Package config loads the pricefill configuration.
//
// # Configuration Sources
//
// Configuration is loaded from the following sources in order of precedence:
//
//	1. Environment variables (highest priority)
//	2. A YAML file (pricefill.yaml or configs/pricefill.yaml, or an explicit path)
//	3. Default values from the struct tags (lowest priority)
//
// A .env file in the working directory is loaded first when present.
//
// # Environment Variables
//
// All environment variables follow the pattern PRICEFILL_<SECTION>_<KEY>:
//
//	PRICEFILL_LOGGING_LEVEL=debug
//	PRICEFILL_ENRICH_WINDOW=trend
//	PRICEFILL_EXPORT_SQLITE_PATH=out/collection.db
//
// # Paths
//
// ResolvePaths and OutputPathFor derive the output location for a run;
// the enriched CSV defaults to "<collection>.with_prices.csv".
//
// Command line flags are applied by the caller after Load and always win.
package config
