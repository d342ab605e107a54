package dataprocessing

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/xuri/excelize/v2"

	"pricefill/internal/config"
	apperrors "pricefill/internal/errors"
	"pricefill/pkg/contracts/domain"
)

// TableFormat is the on-disk layout of an input table
type TableFormat string

const (
	FormatCSV       TableFormat = "csv"
	FormatJSON      TableFormat = "json"
	FormatJSONLines TableFormat = "jsonl"
	FormatWorkbook  TableFormat = "xlsx"
)

// jsonContainerKeys are the keys under which exports nest their record arrays, in lookup order
var jsonContainerKeys = []string{"data", "products", "prices", "priceGuides", "priceGuide", "price_guide", "result", "results"}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// DetectFormat picks the reader for path from its extension, ignoring a trailing .gz.
// Anything unrecognised is read as delimited text.
func DetectFormat(path string) TableFormat {
	lower := strings.TrimSuffix(strings.ToLower(path), ".gz")
	switch filepath.Ext(lower) {
	case ".json":
		return FormatJSON
	case ".jsonl", ".ndjson":
		return FormatJSONLines
	case ".xlsx":
		return FormatWorkbook
	default:
		return FormatCSV
	}
}

// ReadTable loads a table from path. Gzip-compressed files are decompressed transparently.
func ReadTable(path string) (*domain.Table, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, apperrors.NewNotFoundError(fmt.Sprintf("input file %s", path)).WithContext("path", path)
		}
		return nil, apperrors.NewStorageError("failed to open input file", err).WithContext("path", path)
	}
	defer file.Close()

	var r io.Reader = file
	if strings.HasSuffix(strings.ToLower(path), ".gz") {
		gz, err := gzip.NewReader(file)
		if err != nil {
			return nil, apperrors.NewParsingError("failed to decompress input file", err).WithContext("path", path)
		}
		defer gz.Close()
		r = gz
	}

	var table *domain.Table
	switch DetectFormat(path) {
	case FormatJSON:
		table, err = ReadJSON(r, path)
	case FormatJSONLines:
		table, err = ReadJSONLines(r, path)
	case FormatWorkbook:
		table, err = ReadWorkbook(r, path)
	default:
		table, err = ReadCSV(r, path)
	}
	if err != nil {
		var appErr *apperrors.AppError
		if errors.As(err, &appErr) {
			appErr.WithContext("path", path)
			return nil, err
		}
		return nil, apperrors.NewStorageError("failed to read input file", err).WithContext("path", path)
	}
	return table, nil
}

// ReadCSV reads delimited text. The delimiter is sniffed from the start of the input,
// a UTF-8 BOM is dropped and header names are trimmed. Cell values are kept verbatim;
// short rows are padded with empty cells and surplus cells are dropped.
func ReadCSV(r io.Reader, source string) (*domain.Table, error) {
	content, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	content = bytes.TrimPrefix(content, utf8BOM)

	sample := content
	if len(sample) > config.SniffSize {
		sample = sample[:config.SniffSize]
	}
	delimiter := SniffDelimiter(sample)

	reader := csv.NewReader(bytes.NewReader(content))
	reader.Comma = delimiter
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1

	table := &domain.Table{Source: source, Delimiter: delimiter}

	header, err := reader.Read()
	if err == io.EOF {
		return table, nil
	}
	if err != nil {
		return nil, apperrors.NewParsingError("failed to read CSV header", err)
	}
	table.Headers = make([]string, len(header))
	for i, h := range header {
		table.Headers[i] = strings.TrimSpace(h)
	}

	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, apperrors.NewParsingError("failed to read CSV row", err)
		}
		row := make(map[string]string, len(table.Headers))
		for i, h := range table.Headers {
			if i < len(record) {
				row[h] = record[i]
			} else {
				row[h] = ""
			}
		}
		table.Rows = append(table.Rows, row)
	}

	return table, nil
}

// SniffDelimiter picks the candidate delimiter that splits the sampled lines most consistently.
// Delimiters inside double quotes are ignored. Comma is the fallback.
func SniffDelimiter(sample []byte) rune {
	lines := sampleLines(string(sample), 10)
	if len(lines) == 0 {
		return ','
	}

	best, bestScore := ',', 0
	for _, d := range config.CSVDelimiters {
		first := countOutsideQuotes(lines[0], d)
		if first == 0 {
			continue
		}
		consistent := 0
		for _, line := range lines {
			if countOutsideQuotes(line, d) == first {
				consistent++
			}
		}
		// consistency dominates; the field count breaks ties
		score := consistent*1000 + first
		if score > bestScore {
			best, bestScore = d, score
		}
	}
	return best
}

func sampleLines(sample string, limit int) []string {
	var lines []string
	for _, line := range strings.Split(sample, "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		lines = append(lines, line)
		if len(lines) == limit {
			break
		}
	}
	return lines
}

func countOutsideQuotes(line string, delimiter rune) int {
	count := 0
	quoted := false
	for _, c := range line {
		switch {
		case c == '"':
			quoted = !quoted
		case c == delimiter && !quoted:
			count++
		}
	}
	return count
}

// ReadJSON reads a JSON document holding an array of objects, an object wrapping such an
// array under a known container key, or an object of objects. When the input is not a
// single JSON document it is read as JSON Lines and undecodable lines are skipped.
// Keys and values are trimmed. Headers are the union of keys in order of first appearance,
// with the keys of each record taken in sorted order.
func ReadJSON(r io.Reader, source string) (*domain.Table, error) {
	content, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	content = bytes.TrimPrefix(content, utf8BOM)

	var records []any
	skipped := 0
	dec := json.NewDecoder(bytes.NewReader(content))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err == nil && !dec.More() {
		records = jsonRecords(doc)
	} else {
		records, skipped = jsonLines(content)
	}
	return jsonTable(source, records, skipped), nil
}

// ReadJSONLines reads one JSON object per line; lines that are not objects are skipped
func ReadJSONLines(r io.Reader, source string) (*domain.Table, error) {
	content, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	records, skipped := jsonLines(bytes.TrimPrefix(content, utf8BOM))
	return jsonTable(source, records, skipped), nil
}

func jsonTable(source string, records []any, skipped int) *domain.Table {
	table := &domain.Table{Source: source, Skipped: skipped}
	seen := make(map[string]bool)
	for _, rec := range records {
		obj, ok := rec.(map[string]any)
		if !ok {
			table.Skipped++
			continue
		}
		row := make(map[string]string, len(obj))
		for _, k := range sortedKeys(obj) {
			key := strings.TrimSpace(k)
			row[key] = stringify(obj[k])
			if !seen[key] {
				seen[key] = true
				table.Headers = append(table.Headers, key)
			}
		}
		table.Rows = append(table.Rows, row)
	}
	return table
}

func jsonRecords(doc any) []any {
	switch v := doc.(type) {
	case []any:
		return v
	case map[string]any:
		for _, key := range jsonContainerKeys {
			if list, ok := v[key].([]any); ok {
				return list
			}
		}
		if len(v) == 0 {
			return nil
		}
		records := make([]any, 0, len(v))
		for _, k := range sortedKeys(v) {
			if _, ok := v[k].(map[string]any); !ok {
				return nil
			}
			records = append(records, v[k])
		}
		return records
	}
	return nil
}

func jsonLines(content []byte) (records []any, skipped int) {
	for _, line := range bytes.Split(content, []byte("\n")) {
		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			continue
		}
		dec := json.NewDecoder(bytes.NewReader(line))
		dec.UseNumber()
		var obj map[string]any
		if err := dec.Decode(&obj); err != nil || obj == nil {
			skipped++
			continue
		}
		records = append(records, obj)
	}
	return records, skipped
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// stringify renders a JSON scalar the way it would appear in a CSV cell.
// Numbers keep their literal text; nested values are re-encoded as compact JSON.
func stringify(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(val)
	case json.Number:
		return val.String()
	case bool:
		if val {
			return "true"
		}
		return "false"
	default:
		encoded, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprint(val)
		}
		return string(encoded)
	}
}

// preferredSheets are tried before falling back to the first sheet with data
var preferredSheets = []string{config.DefaultXLSXSheet, "Cards", "Sheet1"}

// ReadWorkbook reads the first row of the chosen sheet as the header and every
// non-blank row below it as data
func ReadWorkbook(r io.Reader, source string) (*domain.Table, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, apperrors.NewParsingError("failed to open workbook", err)
	}
	defer f.Close()

	var rows [][]string
	sheets := append(append([]string{}, preferredSheets...), f.GetSheetList()...)
	for _, name := range sheets {
		if sheetRows, err := f.GetRows(name); err == nil && len(sheetRows) > 0 {
			rows = sheetRows
			break
		}
	}

	table := &domain.Table{Source: source}
	headerAt := -1
	for i, row := range rows {
		if !blankRow(row) {
			headerAt = i
			break
		}
	}
	if headerAt < 0 {
		return table, nil
	}

	for _, h := range rows[headerAt] {
		table.Headers = append(table.Headers, strings.TrimSpace(h))
	}
	for _, record := range rows[headerAt+1:] {
		if blankRow(record) {
			continue
		}
		row := make(map[string]string, len(table.Headers))
		for i, h := range table.Headers {
			if i < len(record) {
				row[h] = record[i]
			} else {
				row[h] = ""
			}
		}
		table.Rows = append(table.Rows, row)
	}
	return table, nil
}

func blankRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
