package exporter

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pricefill/pkg/contracts/domain"
)

func enrichedTable() *domain.Table {
	return &domain.Table{
		Source:  "collection.csv",
		Headers: []string{"Name", "Set code", domain.ColumnPrice, domain.ColumnType, domain.ColumnFinish},
		Rows: []map[string]string{
			{"Name": "Emptiness", "Set code": "ECL", domain.ColumnPrice: "7.02", domain.ColumnType: "normal", domain.ColumnFinish: "nonfoil"},
			{"Name": "Oko, Lorwyn Liege // Oko, Shadowmoor Scion", "Set code": "ECL", domain.ColumnPrice: "", domain.ColumnType: "", domain.ColumnFinish: ""},
		},
		Delimiter: ',',
	}
}

func readText(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func TestCSVWriter_WriteCSV(t *testing.T) {
	tests := []struct {
		name    string
		options WriteOptions
		want    string
	}{
		{
			name:    "default comma",
			options: WriteOptions{Headers: []string{"a", "b"}, Records: [][]string{{"1", "x,y"}}},
			want:    "a,b\n1,\"x,y\"\n",
		},
		{
			name:    "semicolon",
			options: WriteOptions{Headers: []string{"a", "b"}, Records: [][]string{{"1", "x,y"}}, Delimiter: ';'},
			want:    "a;b\n1;x,y\n",
		},
		{
			name:    "bom and crlf",
			options: WriteOptions{Headers: []string{"a"}, Records: [][]string{{"1"}}, BOMPrefix: true, UseCRLF: true},
			want:    "\ufeffa\r\n1\r\n",
		},
		{
			name:    "headers only",
			options: WriteOptions{Headers: []string{"a", "b"}},
			want:    "a,b\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "out.csv")
			require.NoError(t, NewCSVWriter(nil).WriteCSV(path, tt.options))
			assert.Equal(t, tt.want, readText(t, path))
		})
	}
}

func TestCSVWriter_WriteTable(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "out.csv")

	table := enrichedTable()
	table.Delimiter = '\t'
	require.NoError(t, NewCSVWriter(nil).WriteTable(path, table, false))

	want := "Name\tSet code\tcard market price\tcard market type\tcard market finish\n" +
		"Emptiness\tECL\t7.02\tnormal\tnonfoil\n" +
		"Oko, Lorwyn Liege // Oko, Shadowmoor Scion\tECL\t\t\t\n"
	assert.Equal(t, want, readText(t, path))
}

func TestCSVWriter_ReplacesExistingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv")
	require.NoError(t, os.WriteFile(path, []byte("stale content that is longer\n"), 0644))

	require.NoError(t, NewCSVWriter(nil).WriteCSV(path, WriteOptions{Headers: []string{"a"}}))
	assert.Equal(t, "a\n", readText(t, path))
}
