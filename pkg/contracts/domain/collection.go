package domain

// Enrichment output columns appended to every collection row
const (
	ColumnPrice     = "card market price"
	ColumnType      = "card market type"
	ColumnFinish    = "card market finish"
	ColumnProductID = "card market product id"
)

// Table is a delimited or JSON table held fully in memory.
// Headers keep the source column order; each row maps a header to its raw value.
// Delimiter is zero for tables that did not come from delimited text.
// Skipped counts source records that could not be turned into a row.
type Table struct {
	Source    string              `json:"source"`
	Headers   []string            `json:"headers"`
	Rows      []map[string]string `json:"rows"`
	Delimiter rune                `json:"delimiter,omitempty"`
	Skipped   int                 `json:"skipped,omitempty"`
}

// Len returns the number of data rows
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// HasColumn reports whether the exact header is present
func (t *Table) HasColumn(name string) bool {
	if t == nil {
		return false
	}
	for _, h := range t.Headers {
		if h == name {
			return true
		}
	}
	return false
}

// Records returns the rows as string slices ordered by Headers.
// Missing cells are returned as empty strings.
func (t *Table) Records() [][]string {
	if t == nil {
		return nil
	}
	out := make([][]string, 0, len(t.Rows))
	for _, row := range t.Rows {
		rec := make([]string, len(t.Headers))
		for i, h := range t.Headers {
			rec[i] = row[h]
		}
		out = append(out, rec)
	}
	return out
}

// WithColumns returns a copy of the header list with the given columns appended,
// skipping any column already present.
func (t *Table) WithColumns(columns ...string) []string {
	headers := make([]string, 0, len(t.Headers)+len(columns))
	headers = append(headers, t.Headers...)
	for _, c := range columns {
		if !t.HasColumn(c) {
			headers = append(headers, c)
		}
	}
	return headers
}
