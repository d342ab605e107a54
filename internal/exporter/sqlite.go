package exporter

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	_ "modernc.org/sqlite"

	"pricefill/internal/catalog"
	"pricefill/internal/config"
	"pricefill/pkg/contracts/domain"
)

// WriteSQLite recreates tableName in the database at filePath and inserts every row.
// Columns are TEXT except the price column, which is REAL and NULL when blank.
func WriteSQLite(ctx context.Context, filePath, tableName string, table *domain.Table, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	if tableName == "" {
		tableName = config.DefaultSQLiteTable
	}
	logger.Info("Writing SQLite table",
		slog.String("file_path", filePath),
		slog.String("table", tableName),
		slog.Int("record_count", table.Len()))

	if err := config.EnsureParentDir(filePath); err != nil {
		return err
	}

	db, err := sql.Open("sqlite", filePath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	columns := sqliteColumns(table.Headers)
	defs := make([]string, len(columns))
	quoted := make([]string, len(columns))
	for i, c := range columns {
		colType := "TEXT"
		if table.Headers[i] == domain.ColumnPrice {
			colType = "REAL"
		}
		quoted[i] = quoteIdent(c)
		defs[i] = quoted[i] + " " + colType
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DROP TABLE IF EXISTS `+quoteIdent(tableName)); err != nil {
		return fmt.Errorf("failed to drop table: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `CREATE TABLE `+quoteIdent(tableName)+` (`+strings.Join(defs, ",")+`)`); err != nil {
		return fmt.Errorf("failed to create table: %w", err)
	}

	ph := strings.TrimRight(strings.Repeat("?,", len(columns)), ",")
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO `+quoteIdent(tableName)+` (`+strings.Join(quoted, ",")+`) VALUES (`+ph+`)`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for i, row := range table.Rows {
		args := make([]any, 0, len(columns))
		for _, h := range table.Headers {
			args = append(args, sqliteValue(h, row[h]))
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return fmt.Errorf("failed to insert row %d: %w", i+1, err)
		}
	}

	if table.HasColumn(domain.ColumnProductID) {
		idx := quoteIdent("idx_" + tableName + "_product_id")
		if _, err := tx.ExecContext(ctx, `CREATE INDEX `+idx+` ON `+quoteIdent(tableName)+` (`+quoteIdent(domain.ColumnProductID)+`)`); err != nil {
			return fmt.Errorf("failed to create index: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}
	return nil
}

// sqliteColumns returns column names that are unique ignoring case, as SQLite requires.
// Blank headers become column_N.
func sqliteColumns(headers []string) []string {
	seen := make(map[string]bool, len(headers))
	out := make([]string, len(headers))
	for i, h := range headers {
		name := strings.TrimSpace(h)
		if name == "" {
			name = fmt.Sprintf("column_%d", i+1)
		}
		candidate := name
		for n := 2; seen[strings.ToLower(candidate)]; n++ {
			candidate = fmt.Sprintf("%s_%d", name, n)
		}
		seen[strings.ToLower(candidate)] = true
		out[i] = candidate
	}
	return out
}

func sqliteValue(header, value string) any {
	if header != domain.ColumnPrice {
		return value
	}
	price, ok := catalog.ParsePrice(value)
	if !ok {
		return nil
	}
	return price.InexactFloat64()
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
