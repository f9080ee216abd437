package analysis

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/KaramelBytes/fitcheck-cli/internal/dataset"
	"gonum.org/v1/gonum/stat"
)

// SummaryOptions controls per-column summaries.
type SummaryOptions struct {
	// MaxLevels is the largest distinct-value count that still gets a
	// frequency table. 0 means 10.
	MaxLevels int
}

func (o SummaryOptions) maxLevels() int {
	if o.MaxLevels <= 0 {
		return 10
	}
	return o.MaxLevels
}

// ColumnSummary holds descriptive statistics for one column. Statistics are
// computed over non-missing values; Std is the sample standard deviation.
type ColumnSummary struct {
	Name    string  `json:"name"`
	Count   int     `json:"count"`
	Missing int     `json:"missing"`
	Unique  int     `json:"unique"`
	Integer bool    `json:"integer"`
	Mean    float64 `json:"mean"`
	Std     float64 `json:"std"`
	Min     float64 `json:"min"`
	P25     float64 `json:"p25"`
	P50     float64 `json:"p50"`
	P75     float64 `json:"p75"`
	Max     float64 `json:"max"`
	Skew    float64 `json:"skew"`
	// Frequencies is set when Unique <= MaxLevels, ordered by value.
	Frequencies []ValueCount `json:"frequencies,omitempty"`
}

// ValueCount is one row of a frequency table.
type ValueCount struct {
	Value float64 `json:"value"`
	Count int     `json:"count"`
}

// Summarize returns one summary per column in table order. Columns with
// missing cells raise a WarnMissingValues warning.
func Summarize(t *dataset.Table, opt SummaryOptions) ([]ColumnSummary, []Warning) {
	var warns []Warning
	out := make([]ColumnSummary, 0, len(t.Columns()))
	for _, name := range t.Columns() {
		vals, err := t.Column(name)
		if err != nil {
			continue
		}
		s, overflow := summarizeColumn(name, vals, opt.maxLevels())
		out = append(out, s)
		if len(overflow) > 0 {
			warns = append(warns, Warning{
				Kind:    WarnNonFinite,
				Column:  name,
				Count:   len(overflow),
				Message: fmt.Sprintf("column %s: %s out of float64 range; reported as 0", name, strings.Join(overflow, ", ")),
			})
		}
		if s.Missing > 0 {
			warns = append(warns, Warning{
				Kind:    WarnMissingValues,
				Column:  name,
				Count:   s.Missing,
				Rows:    listRows(nanRows(vals)),
				Message: fmt.Sprintf("column %s has %d missing value(s) out of %d rows", name, s.Missing, len(vals)),
			})
		}
	}
	return out, warns
}

// summarizeColumn also returns the names of statistics that were not finite
// and have been zeroed.
func summarizeColumn(name string, vals []float64, maxLevels int) (ColumnSummary, []string) {
	s := ColumnSummary{Name: name}
	clean := make([]float64, 0, len(vals))
	for _, v := range vals {
		if math.IsNaN(v) {
			s.Missing++
			continue
		}
		clean = append(clean, v)
	}
	s.Count = len(clean)
	if s.Count == 0 {
		return s, nil
	}

	counts := make(map[float64]int)
	s.Integer = true
	for _, v := range clean {
		counts[v]++
		if v != math.Trunc(v) {
			s.Integer = false
		}
	}
	s.Unique = len(counts)

	s.Mean = stat.Mean(clean, nil)
	if s.Count > 1 {
		s.Std = stdDev(clean)
		if s.Std > 0 {
			s.Skew = stat.Skew(rescale(clean), nil)
		}
	}
	sorted := append([]float64(nil), clean...)
	sort.Float64s(sorted)
	s.Min = sorted[0]
	s.Max = sorted[len(sorted)-1]
	s.P25 = quantile(sorted, 0.25)
	s.P50 = quantile(sorted, 0.5)
	s.P75 = quantile(sorted, 0.75)

	if s.Unique <= maxLevels {
		s.Frequencies = make([]ValueCount, 0, len(counts))
		for v, c := range counts {
			s.Frequencies = append(s.Frequencies, ValueCount{Value: v, Count: c})
		}
		sort.Slice(s.Frequencies, func(i, j int) bool { return s.Frequencies[i].Value < s.Frequencies[j].Value })
	}

	var overflow []string
	for _, f := range []struct {
		name string
		v    *float64
	}{{"mean", &s.Mean}, {"std", &s.Std}, {"min", &s.Min}, {"max", &s.Max}, {"skew", &s.Skew}, {"25%", &s.P25}, {"50%", &s.P50}, {"75%", &s.P75}} {
		if math.IsNaN(*f.v) || math.IsInf(*f.v, 0) {
			*f.v = 0
			overflow = append(overflow, f.name)
		}
	}
	return s, overflow
}

// quantile interpolates linearly at q*(n-1) over sorted values.
func quantile(sorted []float64, q float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	if q <= 0 {
		return sorted[0]
	}
	if q >= 1 {
		return sorted[len(sorted)-1]
	}
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	w := pos - float64(lo)
	return sorted[lo]*(1-w) + sorted[hi]*w
}

func nanRows(vals []float64) []int {
	var rows []int
	for i, v := range vals {
		if math.IsNaN(v) {
			rows = append(rows, i)
		}
	}
	return rows
}
