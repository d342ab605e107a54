package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// Paths contains every file path a single run touches
type Paths struct {
	Collection   string
	Products     string
	Prices       string
	ScryfallBulk string
	Output       string
	XLSX         string
	SQLite       string
	Summary      string
}

// ResolvePaths fills in the output path when it was not given and cleans the rest.
// The default output sits next to the collection file.
func ResolvePaths(p Paths, suffix string) Paths {
	clean := func(path string) string {
		if path == "" {
			return ""
		}
		return filepath.Clean(path)
	}

	resolved := Paths{
		Collection:   clean(p.Collection),
		Products:     clean(p.Products),
		Prices:       clean(p.Prices),
		ScryfallBulk: clean(p.ScryfallBulk),
		Output:       clean(p.Output),
		XLSX:         clean(p.XLSX),
		SQLite:       clean(p.SQLite),
		Summary:      clean(p.Summary),
	}
	if resolved.Output == "" {
		resolved.Output = OutputPathFor(resolved.Collection, suffix)
	}
	return resolved
}

// OutputPathFor derives the default output path by appending suffix to the collection path:
// cards.csv -> cards.csv.with_prices.csv
func OutputPathFor(collection, suffix string) string {
	if suffix == "" {
		suffix = DefaultOutputSuffix
	}
	return collection + suffix
}

// EnsureParentDir creates the directory that will hold path
func EnsureParentDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "" || dir == "." {
		return nil
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %v", dir, err)
	}

	slog.Default().Debug("Ensured directory exists", slog.String("directory", dir))
	return nil
}

// FileExists checks if a file exists
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return !os.IsNotExist(err)
}
