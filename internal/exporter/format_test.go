package exporter

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "pricefill/internal/errors"
)

func TestExporter_Export(t *testing.T) {
	dir := t.TempDir()
	targets := []Target{
		{Format: FormatCSV, Path: filepath.Join(dir, "out.csv")},
		{Format: FormatXLSX, Path: filepath.Join(dir, "out.xlsx")},
		{Format: FormatSQLite, Path: filepath.Join(dir, "out.db")},
	}

	require.NoError(t, New(true, nil).Export(context.Background(), enrichedTable(), targets))
	for _, target := range targets {
		assert.FileExists(t, target.Path)
	}
	assert.Contains(t, readText(t, targets[0].Path), "\ufeffName,Set code")
}

func TestExporter_Errors(t *testing.T) {
	dir := t.TempDir()

	t.Run("unsupported format", func(t *testing.T) {
		err := New(false, nil).Export(context.Background(), enrichedTable(), []Target{{Format: "pdf", Path: filepath.Join(dir, "x.pdf")}})
		require.Error(t, err)
		assert.True(t, apperrors.IsType(err, apperrors.ErrTypeValidation))
	})

	t.Run("cancelled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		err := New(false, nil).Export(ctx, enrichedTable(), []Target{{Format: FormatCSV, Path: filepath.Join(dir, "x.csv")}})
		assert.ErrorIs(t, err, context.Canceled)
		assert.NoFileExists(t, filepath.Join(dir, "x.csv"))
	})

	t.Run("write failure", func(t *testing.T) {
		// parent is a file, so the output directory cannot be created
		blocker := filepath.Join(dir, "blocker")
		require.NoError(t, New(false, nil).Export(context.Background(), enrichedTable(), []Target{{Format: FormatCSV, Path: blocker}}))

		err := New(false, nil).Export(context.Background(), enrichedTable(), []Target{{Format: FormatCSV, Path: filepath.Join(blocker, "out.csv")}})
		require.Error(t, err)
		assert.True(t, apperrors.IsType(err, apperrors.ErrTypeStorage))
	})
}
