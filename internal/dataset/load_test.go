package dataset

import (
	"errors"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return p
}

func TestLoadCSV(t *testing.T) {
	p := writeFile(t, "fit.csv", strings.Join([]string{
		"Observed,Fitted_residuals,Fitted_Values,V76",
		"110,10,100,3",
		"190,-10,200,2",
		"300,0,300,3",
	}, "\n"))

	tbl, err := Load(p, DefaultOptions())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if tbl.Name() != "fit.csv" {
		t.Fatalf("name = %q", tbl.Name())
	}
	if tbl.Rows() != 3 {
		t.Fatalf("rows = %d, want 3", tbl.Rows())
	}
	want := []string{"Observed", "Fitted_residuals", "Fitted_Values", "V76"}
	got := tbl.Columns()
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Fatalf("columns = %v, want %v", got, want)
	}
	fit, err := tbl.Column("Fitted_Values")
	if err != nil {
		t.Fatalf("Column: %v", err)
	}
	if fit[0] != 100 || fit[1] != 200 || fit[2] != 300 {
		t.Fatalf("fitted = %v", fit)
	}
	if tbl.MissingTotal() != 0 {
		t.Fatalf("missing total = %d, want 0", tbl.MissingTotal())
	}
}

func TestLoadCountsInjectedMissing(t *testing.T) {
	p := writeFile(t, "gaps.csv", strings.Join([]string{
		"a,b,c",
		"1,,3",
		"NA,2,3",
		"1,2,nan",
		"1,null,3",
	}, "\n"))

	tbl, err := Load(p, DefaultOptions())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	cases := map[string]int{"a": 1, "b": 2, "c": 1}
	for col, want := range cases {
		if got := tbl.Missing(col); got != want {
			t.Errorf("missing(%s) = %d, want %d", col, got, want)
		}
	}
	if tbl.MissingTotal() != 4 {
		t.Fatalf("missing total = %d, want 4", tbl.MissingTotal())
	}
	b, _ := tbl.Column("b")
	if !math.IsNaN(b[0]) || b[1] != 2 {
		t.Fatalf("b = %v", b)
	}
}

func TestLoadInputErrors(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		wantErr  error
		wantLine int
		wantCol  string
	}{
		{"non-numeric", "a,b\n1,2\n3,abc\n", ErrNotNumeric, 3, "b"},
		{"ragged", "a,b\n1,2\n3\n", ErrFieldCount, 3, ""},
		{"duplicate header", "a,a\n1,2\n", ErrMalformedHeader, 1, ""},
		{"blank header", "a,\n1,2\n", ErrMalformedHeader, 1, ""},
		{"header only", "a,b\n", ErrNoRows, 0, ""},
		{"empty", "", ErrMalformedHeader, 0, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := writeFile(t, "bad.csv", tt.content)
			_, err := Load(p, DefaultOptions())
			if err == nil {
				t.Fatalf("expected error")
			}
			var ie *InputError
			if !errors.As(err, &ie) {
				t.Fatalf("error %T is not *InputError: %v", err, err)
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("error = %v, want %v", err, tt.wantErr)
			}
			if ie.Line != tt.wantLine {
				t.Fatalf("line = %d, want %d", ie.Line, tt.wantLine)
			}
			if ie.Column != tt.wantCol {
				t.Fatalf("column = %q, want %q", ie.Column, tt.wantCol)
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.csv"), DefaultOptions())
	var ie *InputError
	if !errors.As(err, &ie) {
		t.Fatalf("expected InputError, got %v", err)
	}
	if !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("expected fs.ErrNotExist in chain, got %v", err)
	}
}

func TestLoadLocaleAndDelimiter(t *testing.T) {
	p := writeFile(t, "eu.tsv", "x\ty\n1.234,5\t2\n10,25\t3\n")
	opt := DefaultOptions()
	opt.DecimalSeparator = ','
	opt.ThousandsSeparator = '.'
	tbl, err := Load(p, opt)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	x, _ := tbl.Column("x")
	if x[0] != 1234.5 || x[1] != 10.25 {
		t.Fatalf("x = %v", x)
	}
}

func TestLoadMaxRowsNote(t *testing.T) {
	p := writeFile(t, "long.csv", "a\n1\n2\n3\n4\n")
	opt := DefaultOptions()
	opt.MaxRows = 2
	tbl, err := Load(p, opt)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if tbl.Rows() != 2 {
		t.Fatalf("rows = %d, want 2", tbl.Rows())
	}
	notes := tbl.Notes()
	if len(notes) != 1 || notes[0] != "loaded only 2/4 rows due to MaxRows" {
		t.Fatalf("notes = %#v", notes)
	}
}
