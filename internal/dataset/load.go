package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Options controls how a tabular file is read.
type Options struct {
	// Delimiter for CSV. If 0, uses '\t' for .tsv files and ',' otherwise.
	Delimiter rune
	// MaxRows limits rows loaded; 0 means unlimited.
	MaxRows int
	// Numeric parsing locale. If DecimalSeparator is 0, values are parsed as-is.
	DecimalSeparator   rune
	ThousandsSeparator rune
	// XLSX sheet selection: SheetName wins, else 1-based SheetIndex, else the first sheet.
	SheetName  string
	SheetIndex int
}

// DefaultOptions returns reasonable defaults for loading a dataset.
func DefaultOptions() Options {
	return Options{}
}

// recordReader yields raw records after the header.
type recordReader interface {
	Read() ([]string, error)
	// Line is the 1-based source line of the record last returned.
	Line() int
}

// Load reads a delimited text or .xlsx file into a Table. Every column must
// be numeric; empty cells and NA/NaN/null markers are recorded as missing.
func Load(path string, opt Options) (*Table, error) {
	if strings.HasSuffix(strings.ToLower(path), ".xlsx") {
		rr, err := openXLSX(path, opt.SheetName, opt.SheetIndex)
		if err != nil {
			return nil, &InputError{Path: path, Err: err}
		}
		defer rr.Close()
		return build(path, rr, opt)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, &InputError{Path: path, Err: fmt.Errorf("open: %w", err)}
	}
	defer f.Close()
	return build(path, newCSVRecords(f, path, opt), opt)
}

// Read is Load over an already open stream of delimited text.
func Read(name string, r io.Reader, opt Options) (*Table, error) {
	return build(name, newCSVRecords(r, name, opt), opt)
}

type csvRecords struct {
	r *csv.Reader
}

func newCSVRecords(r io.Reader, name string, opt Options) *csvRecords {
	delim := opt.Delimiter
	if delim == 0 {
		delim = sniffDelimiter(name)
	}
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	cr.Comma = delim
	return &csvRecords{r: cr}
}

func (c *csvRecords) Read() ([]string, error) { return c.r.Read() }

func (c *csvRecords) Line() int {
	line, _ := c.r.FieldPos(0)
	return line
}

func build(path string, rr recordReader, opt Options) (*Table, error) {
	header, err := rr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, &InputError{Path: path, Err: fmt.Errorf("empty file: %w", ErrMalformedHeader)}
		}
		return nil, &InputError{Path: path, Line: 1, Err: fmt.Errorf("read header: %w", err)}
	}
	names, err := cleanHeader(header)
	if err != nil {
		return nil, &InputError{Path: path, Line: 1, Err: err}
	}
	ncol := len(names)
	cols := make([][]float64, ncol)

	maxRows := opt.MaxRows
	if maxRows <= 0 {
		maxRows = math.MaxInt
	}
	rows, loaded := 0, 0
	for {
		rec, err := rr.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, &InputError{Path: path, Line: rr.Line(), Err: err}
		}
		if isBlank(rec) {
			continue
		}
		rows++
		if len(rec) != ncol {
			return nil, &InputError{Path: path, Line: rr.Line(),
				Err: fmt.Errorf("%w: got %d fields, header has %d", ErrFieldCount, len(rec), ncol)}
		}
		if loaded >= maxRows {
			continue
		}
		loaded++
		for j := 0; j < ncol; j++ {
			raw := strings.TrimSpace(rec[j])
			if isMissing(raw) {
				cols[j] = append(cols[j], math.NaN())
				continue
			}
			x, ok := parseNumeric(raw, opt)
			if !ok {
				return nil, &InputError{Path: path, Line: rr.Line(), Column: names[j],
					Err: fmt.Errorf("%w: %q", ErrNotNumeric, raw)}
			}
			cols[j] = append(cols[j], x)
		}
	}
	if loaded == 0 {
		return nil, &InputError{Path: path, Err: ErrNoRows}
	}

	series := make([]Series, ncol)
	for j := range names {
		series[j] = Series{Name: names[j], Values: cols[j]}
	}
	t, err := New(filepath.Base(path), series...)
	if err != nil {
		return nil, &InputError{Path: path, Err: err}
	}
	if loaded < rows {
		t.notes = append(t.notes, fmt.Sprintf("loaded only %d/%d rows due to MaxRows", loaded, rows))
	}
	return t, nil
}

func cleanHeader(header []string) ([]string, error) {
	if len(header) == 0 {
		return nil, ErrMalformedHeader
	}
	names := make([]string, len(header))
	seen := make(map[string]int, len(header))
	for i, h := range header {
		name := strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		if name == "" {
			return nil, fmt.Errorf("%w: column %d has no name", ErrMalformedHeader, i+1)
		}
		if prev, dup := seen[name]; dup {
			return nil, fmt.Errorf("%w: %q appears in columns %d and %d", ErrMalformedHeader, name, prev+1, i+1)
		}
		seen[name] = i
		names[i] = name
	}
	return names, nil
}

func isBlank(rec []string) bool {
	for _, v := range rec {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

func isMissing(s string) bool {
	switch strings.ToLower(s) {
	case "", "na", "nan", "null":
		return true
	}
	return false
}

func sniffDelimiter(path string) rune {
	if strings.HasSuffix(strings.ToLower(path), ".tsv") {
		return '\t'
	}
	return ','
}

func parseNumeric(s string, opt Options) (float64, bool) {
	raw := strings.ReplaceAll(s, "\u00A0", " ")
	if dec := opt.DecimalSeparator; dec != 0 {
		if thou := opt.ThousandsSeparator; thou != 0 && thou != dec {
			raw = strings.ReplaceAll(raw, string(thou), "")
		}
		if dec != '.' {
			raw = strings.ReplaceAll(raw, string(dec), ".")
		}
	} else if thou := opt.ThousandsSeparator; thou != 0 && thou != '.' {
		raw = strings.ReplaceAll(raw, string(thou), "")
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
