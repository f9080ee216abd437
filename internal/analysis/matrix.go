package analysis

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/KaramelBytes/fitcheck-cli/internal/dataset"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// MatrixKind names the statistic held by a Matrix.
type MatrixKind string

const (
	CorrelationKind MatrixKind = "correlation"
	CovarianceKind  MatrixKind = "covariance"
)

// Matrix is a symmetric pairwise statistic over named columns.
type Matrix struct {
	Kind    MatrixKind  `json:"kind"`
	Columns []string    `json:"columns"`
	Values  [][]float64 `json:"values"` // row-major, Values[i][j]
	// Rows is the number of rows with every column present.
	Rows int `json:"rows"`
	// Pairs holds the number of rows each entry was computed from.
	Pairs [][]int `json:"pairs"`
	// Degenerate lists zero-variance columns. Their correlation row and
	// column are zeroed rather than NaN.
	Degenerate []string `json:"degenerate,omitempty"`
	// Undefined lists "a~b" pairs whose entry could not be computed.
	Undefined []string `json:"undefined,omitempty"`
}

// PairValue is one off-diagonal matrix entry.
type PairValue struct {
	A, B  string
	Value float64
}

// At returns the entry for a pair of column names. ok is false when either
// name is unknown or the pair is listed in Undefined.
func (m *Matrix) At(a, b string) (float64, bool) {
	i, j := m.index(a), m.index(b)
	if i < 0 || j < 0 {
		return 0, false
	}
	for _, u := range m.Undefined {
		if u == a+"~"+b || u == b+"~"+a {
			return 0, false
		}
	}
	return m.Values[i][j], true
}

func (m *Matrix) index(name string) int {
	for i, c := range m.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// TopPairs returns up to n off-diagonal pairs ordered by |value| descending.
func (m *Matrix) TopPairs(n int) []PairValue {
	var pairs []PairValue
	k := len(m.Columns)
	for i := 0; i < k; i++ {
		for j := i + 1; j < k; j++ {
			pairs = append(pairs, PairValue{A: m.Columns[i], B: m.Columns[j], Value: m.Values[i][j]})
		}
	}
	sort.SliceStable(pairs, func(i, j int) bool {
		ai, aj := math.Abs(pairs[i].Value), math.Abs(pairs[j].Value)
		if ai == aj {
			return pairs[i].A+pairs[i].B < pairs[j].A+pairs[j].B
		}
		return ai > aj
	})
	if n > 0 && len(pairs) > n {
		pairs = pairs[:n]
	}
	return pairs
}

// CorrelationMatrix computes Pearson correlations among cols (all columns
// when cols is empty). Each pair uses the rows where both columns are present.
// Zero-variance and near-empty columns are flagged and zeroed; pairs that
// cannot be computed are reported as 0 and listed in Undefined.
func CorrelationMatrix(t *dataset.Table, cols []string) (*Matrix, []Warning, error) {
	names, values, warns, err := gather(t, cols)
	if err != nil {
		return nil, warns, fmt.Errorf("correlation matrix: %w", err)
	}
	k := len(names)
	m := newMatrix(CorrelationKind, names, values)
	degenerate := make([]bool, k)
	for j, v := range values {
		present := dropNaN(v)
		switch {
		case len(present) < 2:
			degenerate[j] = true
			m.Degenerate = append(m.Degenerate, names[j])
			warns = append(warns, Warning{
				Kind:    WarnInsufficientData,
				Column:  names[j],
				Count:   len(present),
				Message: fmt.Sprintf("column %s has %d value(s); its correlations are undefined and reported as 0", names[j], len(present)),
			})
		case isConstant(present):
			degenerate[j] = true
			m.Degenerate = append(m.Degenerate, names[j])
			warns = append(warns, Warning{
				Kind:    WarnZeroVariance,
				Column:  names[j],
				Message: fmt.Sprintf("column %s has zero variance; its correlations are undefined and reported as 0", names[j]),
			})
		}
	}

	sym := mat.NewSymDense(k, nil)
	for i := 0; i < k; i++ {
		for j := i; j < k; j++ {
			switch {
			case degenerate[i] || degenerate[j]:
			case i == j:
				sym.SetSym(i, i, 1)
			default:
				x, y := pairwise(values[i], values[j])
				m.Pairs[i][j], m.Pairs[j][i] = len(x), len(x)
				r, ok := correlation(x, y)
				if !ok {
					m.Undefined = append(m.Undefined, names[i]+"~"+names[j])
					continue
				}
				sym.SetSym(i, j, r)
			}
		}
	}
	m.fill(sym)
	if len(m.Undefined) > 0 {
		warns = append(warns, Warning{
			Kind:    WarnInsufficientData,
			Count:   len(m.Undefined),
			Message: fmt.Sprintf("%d column pair(s) have too few varying or finite shared rows for a correlation and are reported as 0: %s", len(m.Undefined), strings.Join(m.Undefined, ", ")),
		})
	}
	return m, warns, nil
}

// CovarianceMatrix computes sample covariances among cols (all columns when
// cols is empty), pairwise like CorrelationMatrix. The diagonal holds each
// column's sample variance.
func CovarianceMatrix(t *dataset.Table, cols []string) (*Matrix, []Warning, error) {
	names, values, warns, err := gather(t, cols)
	if err != nil {
		return nil, warns, fmt.Errorf("covariance matrix: %w", err)
	}
	k := len(names)
	m := newMatrix(CovarianceKind, names, values)
	var overflow []string
	sym := mat.NewSymDense(k, nil)
	for i := 0; i < k; i++ {
		for j := i; j < k; j++ {
			x, y := pairwise(values[i], values[j])
			m.Pairs[i][j], m.Pairs[j][i] = len(x), len(x)
			if len(x) < 2 {
				m.Undefined = append(m.Undefined, names[i]+"~"+names[j])
				continue
			}
			c := covariance(x, y)
			if math.IsNaN(c) || math.IsInf(c, 0) {
				overflow = append(overflow, names[i]+"~"+names[j])
				m.Undefined = append(m.Undefined, names[i]+"~"+names[j])
				continue
			}
			sym.SetSym(i, j, c)
		}
	}
	m.fill(sym)
	if n := len(m.Undefined) - len(overflow); n > 0 {
		warns = append(warns, Warning{
			Kind:    WarnInsufficientData,
			Count:   n,
			Message: fmt.Sprintf("%d column pair(s) share fewer than 2 rows; their covariance is reported as 0", n),
		})
	}
	if len(overflow) > 0 {
		warns = append(warns, Warning{
			Kind:    WarnNonFinite,
			Count:   len(overflow),
			Message: fmt.Sprintf("covariance overflows for %s; reported as 0", strings.Join(overflow, ", ")),
		})
	}
	return m, warns, nil
}

func newMatrix(kind MatrixKind, names []string, values [][]float64) *Matrix {
	k := len(names)
	m := &Matrix{Kind: kind, Columns: names, Pairs: make([][]int, k)}
	for i := range m.Pairs {
		m.Pairs[i] = make([]int, k)
		m.Pairs[i][i] = len(dropNaN(values[i]))
	}
	if k > 0 {
		for i := range values[0] {
			complete := true
			for j := range values {
				if math.IsNaN(values[j][i]) {
					complete = false
					break
				}
			}
			if complete {
				m.Rows++
			}
		}
	}
	return m
}

func (m *Matrix) fill(sym *mat.SymDense) {
	m.Values = make([][]float64, len(m.Columns))
	for i := range m.Values {
		m.Values[i] = mat.Row(nil, i, sym)
	}
}

// gather reads the requested columns and reports rows with a missing value
// in any of them.
func gather(t *dataset.Table, cols []string) ([]string, [][]float64, []Warning, error) {
	if len(cols) == 0 {
		cols = t.Columns()
	}
	if len(cols) == 0 {
		return nil, nil, nil, fmt.Errorf("no columns")
	}
	values := make([][]float64, len(cols))
	for j, name := range cols {
		v, err := t.Column(name)
		if err != nil {
			return nil, nil, nil, err
		}
		values[j] = v
	}
	if t.Rows() < 2 {
		return nil, nil, nil, fmt.Errorf("need at least 2 rows, have %d", t.Rows())
	}
	var incomplete []int
	for i := 0; i < t.Rows(); i++ {
		for j := range values {
			if math.IsNaN(values[j][i]) {
				incomplete = append(incomplete, i)
				break
			}
		}
	}
	var warns []Warning
	if len(incomplete) > 0 {
		warns = append(warns, Warning{
			Kind:    WarnIncompleteRows,
			Count:   len(incomplete),
			Rows:    listRows(incomplete),
			Message: fmt.Sprintf("%d row(s) have missing values; each column pair uses only the rows where both are present", len(incomplete)),
		})
	}
	return append([]string(nil), cols...), values, warns, nil
}

// pairwise returns the rows of a and b where neither is missing.
func pairwise(a, b []float64) ([]float64, []float64) {
	x := make([]float64, 0, len(a))
	y := make([]float64, 0, len(b))
	for i := range a {
		if math.IsNaN(a[i]) || math.IsNaN(b[i]) {
			continue
		}
		x = append(x, a[i])
		y = append(y, b[i])
	}
	return x, y
}

func dropNaN(vals []float64) []float64 {
	out := make([]float64, 0, len(vals))
	for _, v := range vals {
		if !math.IsNaN(v) {
			out = append(out, v)
		}
	}
	return out
}

// correlation is the Pearson r of x and y. ok is false when either side is
// constant, has fewer than 2 values or is not finite. Both sides are rescaled
// by their largest magnitude first, so very large values do not overflow.
func correlation(x, y []float64) (float64, bool) {
	if len(x) < 2 || isConstant(x) || isConstant(y) {
		return 0, false
	}
	r := stat.Correlation(rescale(x), rescale(y), nil)
	if math.IsNaN(r) || math.IsInf(r, 0) {
		return 0, false
	}
	return clamp(r, -1, 1), true
}

// covariance is the sample covariance of x and y, computed on rescaled values.
// The result is ±Inf when the true covariance is out of float64 range.
func covariance(x, y []float64) float64 {
	sx, sy := maxAbs(x), maxAbs(y)
	if sx == 0 || sy == 0 || math.IsInf(sx, 0) || math.IsInf(sy, 0) {
		return stat.Covariance(x, y, nil)
	}
	return stat.Covariance(rescale(x), rescale(y), nil) * sx * sy
}

// stdDev is the sample standard deviation, computed on rescaled values so
// that squaring very large inputs does not overflow.
func stdDev(vals []float64) float64 {
	s := maxAbs(vals)
	if s == 0 || math.IsInf(s, 0) {
		return stat.StdDev(vals, nil)
	}
	return stat.StdDev(rescale(vals), nil) * s
}

func rescale(vals []float64) []float64 {
	s := maxAbs(vals)
	if s == 0 || math.IsInf(s, 0) {
		return vals
	}
	out := make([]float64, len(vals))
	for i, v := range vals {
		out[i] = v / s
	}
	return out
}

func maxAbs(vals []float64) float64 {
	var m float64
	for _, v := range vals {
		if a := math.Abs(v); a > m {
			m = a
		}
	}
	return m
}

func isConstant(vals []float64) bool {
	if len(vals) == 0 {
		return true
	}
	for _, v := range vals[1:] {
		if v != vals[0] {
			return false
		}
	}
	return true
}

func clamp(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}
