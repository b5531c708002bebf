package core

// loader.go turns a delimited-text or XLSX source into a Table.
//
// Loading is a pure parse: the source is read once, decoded, and the
// header is checked for blank and duplicate names. Column types are
// inferred from a leading sample of rows; a column is numeric only when
// every non-empty sampled cell parses as a number.

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

// DefaultSampleRows is how many leading rows drive column type inference.
const DefaultSampleRows = 100

// candidateDelimiters are tried, in order, when LoadOptions.Delimiter is 0.
var candidateDelimiters = []rune{',', ';', '\t', '|'}

// LoadOptions tunes table loading. The zero value is usable.
type LoadOptions struct {
	SampleRows int   // rows sampled for type inference (default 100)
	MaxBytes   int64 // reject sources larger than this; 0 disables the check
	Delimiter  rune  // 0 auto-detects from the header line
}

func (o LoadOptions) sampleRows() int {
	if o.SampleRows <= 0 {
		return DefaultSampleRows
	}
	return o.SampleRows
}

// FileSource opens the files named in a build request.
type FileSource interface {
	Open(path string) (io.ReadCloser, error)
}

// DirSource opens files from the local filesystem. When Root is set,
// relative paths resolve under Root and paths escaping Root are refused.
type DirSource struct {
	Root string
}

// Open implements FileSource.
func (d DirSource) Open(path string) (io.ReadCloser, error) {
	resolved, err := d.Resolve(path)
	if err != nil {
		return nil, err
	}
	return os.Open(resolved)
}

// Resolve returns the filesystem path Open would read.
func (d DirSource) Resolve(path string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("file not found: empty path")
	}
	if d.Root == "" {
		return path, nil
	}

	root, err := filepath.Abs(d.Root)
	if err != nil {
		return "", fmt.Errorf("resolve data directory: %w", err)
	}
	full := path
	if !filepath.IsAbs(full) {
		full = filepath.Join(root, path)
	}
	full = filepath.Clean(full)

	rel, err := filepath.Rel(root, full)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("path %q is %w", path, ErrOutsideDataDir)
	}
	return full, nil
}

// LoadTableFile opens path through src, loads it and closes it on every
// exit path. Files ending in .xlsx are read from their first sheet.
func LoadTableFile(src FileSource, path, role string, opts LoadOptions) (*Table, error) {
	rc, err := src.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s file %q: %w", role, path, err)
	}
	defer rc.Close()

	var t *Table
	if strings.EqualFold(filepath.Ext(path), ".xlsx") {
		t, err = LoadWorkbook(rc, role, opts)
	} else {
		t, err = LoadTable(rc, role, opts)
	}
	if err != nil {
		return nil, err
	}
	t.Source = path
	return t, nil
}

// LoadTable decodes delimited text from r into a Table tagged with role.
func LoadTable(r io.Reader, role string, opts LoadOptions) (*Table, error) {
	data, err := io.ReadAll(wrapSource(r, opts.MaxBytes))
	if err != nil {
		if errors.Is(err, ErrFileTooLarge) {
			return nil, malformed(role, 0, "", "%v", err)
		}
		return nil, malformed(role, 0, "", "cannot decode: %v", err)
	}

	delim := opts.Delimiter
	if delim == 0 {
		delim = detectDelimiter(data)
	}

	reader := csv.NewReader(bytes.NewReader(data))
	reader.Comma = delim
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	var (
		records [][]string
		lines   []int
	)
	for {
		rec, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, malformed(role, 0, "", "cannot decode as delimited text: %v", err)
		}
		line, _ := reader.FieldPos(0)
		records = append(records, rec)
		lines = append(lines, line)
	}
	return buildTable(records, lines, role, opts)
}

// LoadWorkbook reads the first sheet of an XLSX workbook from r.
func LoadWorkbook(r io.Reader, role string, opts LoadOptions) (*Table, error) {
	f, err := excelize.OpenReader(&sizeLimitReader{reader: r, max: opts.MaxBytes})
	if err != nil {
		if errors.Is(err, ErrFileTooLarge) {
			return nil, malformed(role, 0, "", "%v", err)
		}
		return nil, malformed(role, 0, "", "cannot decode workbook: %v", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, malformed(role, 0, "", "workbook has no sheets")
	}
	records, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, malformed(role, 0, "", "cannot decode sheet %q: %v", sheets[0], err)
	}
	lines := make([]int, len(records))
	for i := range lines {
		lines[i] = i + 1
	}
	return buildTable(records, lines, role, opts)
}

// buildTable validates the header, drops blank rows and infers types.
// lines holds the 1-based source line of each record.
func buildTable(records [][]string, lines []int, role string, opts LoadOptions) (*Table, error) {
	if len(records) == 0 {
		return nil, malformed(role, 0, "", "no header row")
	}

	header := make([]string, len(records[0]))
	seen := make(map[string]int, len(header))
	for i, h := range records[0] {
		name := CleanCell(h)
		if name == "" {
			return nil, malformed(role, lines[0], "", "header column %d is blank", i+1)
		}
		if prev, dup := seen[name]; dup {
			return nil, malformed(role, lines[0], name, "duplicate header %q (columns %d and %d)", name, prev+1, i+1)
		}
		seen[name] = i
		header[i] = name
	}

	var (
		raw      [][]string
		rowLines []int
	)
	for i, rec := range records[1:] {
		if isEmptyRow(rec) {
			continue
		}
		if len(rec) > len(header) {
			return nil, malformed(role, lines[i+1], "", "row has %d fields but the header has %d", len(rec), len(header))
		}
		cells := make([]string, len(header))
		for j := range rec {
			cells[j] = CleanCell(rec[j])
		}
		raw = append(raw, cells)
		rowLines = append(rowLines, lines[i+1])
	}
	if len(raw) == 0 {
		return nil, malformed(role, 0, "", "no data rows")
	}

	types := inferTypes(header, raw, opts.sampleRows())

	rows := make([]Row, len(raw))
	for i, cells := range raw {
		row := make(Row, len(header))
		for j, name := range header {
			row[name] = toValue(cells[j], types[name])
		}
		rows[i] = row
	}

	return &Table{
		Role:    role,
		Columns: header,
		Types:   types,
		Rows:    rows,
		Lines:   rowLines,
	}, nil
}

// inferTypes marks a column numeric when every non-empty cell in the
// sample parses as a number and at least one such cell exists.
func inferTypes(header []string, raw [][]string, sample int) map[string]ColumnType {
	if sample > len(raw) {
		sample = len(raw)
	}

	types := make(map[string]ColumnType, len(header))
	for j, name := range header {
		numeric, seen := true, false
		for _, cells := range raw[:sample] {
			if cells[j] == "" {
				continue
			}
			seen = true
			if _, ok := ParseNumber(cells[j]); !ok {
				numeric = false
				break
			}
		}
		if numeric && seen {
			types[name] = ColumnNumeric
		} else {
			types[name] = ColumnText
		}
	}
	return types
}

// toValue converts a cleaned cell. Cells of numeric columns that fail to
// parse (possible beyond the sample) stay text so builders can report them.
func toValue(cell string, typ ColumnType) Value {
	if cell == "" {
		return Null()
	}
	if typ == ColumnNumeric {
		if f, ok := ParseNumber(cell); ok {
			return NumberCell(f, cell)
		}
	}
	return Text(cell)
}

// detectDelimiter picks the candidate occurring most often in the first
// line, ignoring quoted sections. Ties keep the earlier candidate.
func detectDelimiter(data []byte) rune {
	line := data
	if i := bytes.IndexByte(data, '\n'); i >= 0 {
		line = data[:i]
	}

	counts := make(map[rune]int, len(candidateDelimiters))
	inQuotes := false
	for _, r := range string(line) {
		if r == '"' {
			inQuotes = !inQuotes
			continue
		}
		if !inQuotes {
			counts[r]++
		}
	}

	best := candidateDelimiters[0]
	for _, d := range candidateDelimiters[1:] {
		if counts[d] > counts[best] {
			best = d
		}
	}
	return best
}

func isEmptyRow(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
