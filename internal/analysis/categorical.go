package analysis

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/KaramelBytes/fitcheck-cli/internal/dataset"
)

// Recommendation suggests treating an integer-coded column as unordered
// categories instead of a numeric scale.
type Recommendation struct {
	Column  string    `json:"column"`
	Levels  []float64 `json:"levels"`
	Reasons []string  `json:"reasons"`
}

// ExpansionColumn names the indicator column generated for one level.
func ExpansionColumn(column string, level float64) string {
	return column + "_" + formatLevel(level)
}

// ExpandCategorical returns a new table with one 0/1 indicator column per
// level in known. For every row whose source value is in known exactly one
// indicator is 1. Rows whose value is outside known (or missing) get all
// zeros and are reported in a WarnOutOfSetCategory warning, since they
// silently break that invariant otherwise.
func ExpandCategorical(t *dataset.Table, column string, known []float64) (*dataset.Table, []Warning, error) {
	src, err := t.Column(column)
	if err != nil {
		return nil, nil, fmt.Errorf("expand %s: %w", column, err)
	}
	if len(known) == 0 {
		return nil, nil, fmt.Errorf("expand %s: no known levels", column)
	}
	seen := make(map[float64]struct{}, len(known))
	for _, v := range known {
		if math.IsNaN(v) {
			return nil, nil, fmt.Errorf("expand %s: NaN is not a valid level", column)
		}
		if _, dup := seen[v]; dup {
			return nil, nil, fmt.Errorf("expand %s: duplicate level %s", column, formatLevel(v))
		}
		seen[v] = struct{}{}
	}

	cols := make([]dataset.Series, len(known))
	index := make(map[float64]int, len(known))
	for k, v := range known {
		name := ExpansionColumn(column, v)
		if t.Has(name) {
			return nil, nil, fmt.Errorf("expand %s: column %s already exists", column, name)
		}
		cols[k] = dataset.Series{Name: name, Values: make([]float64, len(src))}
		index[v] = k
	}
	var outside []int
	for i, v := range src {
		k, ok := index[v]
		if !ok {
			outside = append(outside, i)
			continue
		}
		cols[k].Values[i] = 1
	}

	out, err := t.WithColumns(cols...)
	if err != nil {
		return nil, nil, fmt.Errorf("expand %s: %w", column, err)
	}
	var warns []Warning
	if len(outside) > 0 {
		warns = append(warns, Warning{
			Kind:    WarnOutOfSetCategory,
			Column:  column,
			Count:   len(outside),
			Rows:    listRows(outside),
			Message: fmt.Sprintf("column %s has %d row(s) outside levels {%s}; their indicators are all 0", column, len(outside), formatLevels(known)),
		})
	}
	return out, warns, nil
}

// ClassifyCategorical recommends categorical treatment when a column takes
// few distinct integer values (at least 3, at most maxLevels) and its
// frequency ordering does not follow the numeric ordering: either the most
// frequent value sits strictly inside the range, or the counts taken in
// ascending level order fall and then rise again.
func ClassifyCategorical(s ColumnSummary, maxLevels int) (Recommendation, bool) {
	if !categoricalCandidate(s, maxLevels) {
		return Recommendation{}, false
	}
	mode := s.Frequencies[0]
	counts := make([]float64, len(s.Frequencies))
	for i, vc := range s.Frequencies {
		counts[i] = float64(vc.Count)
		if vc.Count > mode.Count {
			mode = vc
		}
	}
	rec := Recommendation{Column: s.Name, Levels: levelsOf(s)}
	switch {
	case mode.Value != s.Min && mode.Value != s.Max:
		rec.Reasons = append(rec.Reasons, fmt.Sprintf(
			"most frequent value %s (n=%d) lies inside the range [%s, %s]; frequency order %s does not follow numeric order",
			formatLevel(mode.Value), mode.Count, formatLevel(s.Min), formatLevel(s.Max), frequencyOrder(s.Frequencies)))
	case !unimodal(counts):
		rec.Reasons = append(rec.Reasons, fmt.Sprintf(
			"counts by level (%s) fall and rise again; frequency order %s does not follow numeric order",
			formatCounts(s.Frequencies), frequencyOrder(s.Frequencies)))
	default:
		return Recommendation{}, false
	}
	return rec, true
}

// OrdinalEffect checks whether the mean of fitted per level of src moves in
// one direction as the level increases, as a numeric coding assumes. It
// returns the per-level means in ascending level order and a reason when
// they do not. Rows where either value is missing are skipped.
func OrdinalEffect(s ColumnSummary, src, fitted []float64, fittedName string, maxLevels int) ([]float64, string, bool) {
	if !categoricalCandidate(s, maxLevels) || len(src) != len(fitted) {
		return nil, "", false
	}
	levels := levelsOf(s)
	index := make(map[float64]int, len(levels))
	for k, v := range levels {
		index[v] = k
	}
	sums := make([]float64, len(levels))
	ns := make([]int, len(levels))
	for i, v := range src {
		k, ok := index[v]
		if !ok || math.IsNaN(fitted[i]) {
			continue
		}
		sums[k] += fitted[i]
		ns[k]++
	}
	means := make([]float64, 0, len(levels))
	used := make([]float64, 0, len(levels))
	for k := range levels {
		if ns[k] == 0 {
			continue
		}
		means = append(means, sums[k]/float64(ns[k]))
		used = append(used, levels[k])
	}
	if len(means) < 3 || monotone(means) {
		return means, "", false
	}
	parts := make([]string, len(means))
	for k := range means {
		parts[k] = fmt.Sprintf("%s: %.4g", formatLevel(used[k]), means[k])
	}
	return means, fmt.Sprintf("mean %s by level (%s) is non-monotone; the numeric coding implies an ordinal effect the data does not show",
		fittedName, strings.Join(parts, ", ")), true
}

func categoricalCandidate(s ColumnSummary, maxLevels int) bool {
	if maxLevels <= 0 {
		maxLevels = 10
	}
	return s.Integer && len(s.Frequencies) >= 3 && s.Unique <= maxLevels
}

func levelsOf(s ColumnSummary) []float64 {
	levels := make([]float64, len(s.Frequencies))
	for i, vc := range s.Frequencies {
		levels[i] = vc.Value
	}
	return levels
}

// indicatorCorrelations returns r(src == level, fitted) per level, over the
// rows where fitted is present. Undefined correlations are 0.
func indicatorCorrelations(src, fitted, levels []float64) []float64 {
	out := make([]float64, len(levels))
	fit := make([]float64, 0, len(fitted))
	for _, f := range fitted {
		if !math.IsNaN(f) {
			fit = append(fit, f)
		}
	}
	ind := make([]float64, len(fit))
	for k, level := range levels {
		n := 0
		for i, f := range fitted {
			if math.IsNaN(f) {
				continue
			}
			ind[n] = 0
			if src[i] == level {
				ind[n] = 1
			}
			n++
		}
		out[k], _ = correlation(ind, fit)
	}
	return out
}

// unimodal reports whether xs rises (or stays) and then falls (or stays),
// never falling and then rising again.
func unimodal(xs []float64) bool {
	fell := false
	for i := 1; i < len(xs); i++ {
		switch {
		case xs[i] < xs[i-1]:
			fell = true
		case xs[i] > xs[i-1] && fell:
			return false
		}
	}
	return true
}

func formatCounts(freq []ValueCount) string {
	parts := make([]string, len(freq))
	for i, vc := range freq {
		parts[i] = fmt.Sprintf("%s:%d", formatLevel(vc.Value), vc.Count)
	}
	return strings.Join(parts, " ")
}

// monotone reports whether xs is entirely non-decreasing or non-increasing.
func monotone(xs []float64) bool {
	up, down := true, true
	for i := 1; i < len(xs); i++ {
		if xs[i] < xs[i-1] {
			up = false
		}
		if xs[i] > xs[i-1] {
			down = false
		}
	}
	return up || down
}

func frequencyOrder(freq []ValueCount) string {
	byCount := append([]ValueCount(nil), freq...)
	sort.SliceStable(byCount, func(i, j int) bool { return byCount[i].Count > byCount[j].Count })
	parts := make([]string, len(byCount))
	for i, vc := range byCount {
		parts[i] = formatLevel(vc.Value)
	}
	return strings.Join(parts, ",")
}

func formatLevel(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }

func formatLevels(vs []float64) string {
	parts := make([]string, len(vs))
	for i, v := range vs {
		parts[i] = formatLevel(v)
	}
	return strings.Join(parts, ",")
}

// ParseLevels parses a comma-separated list such as "1,2,3,4".
func ParseLevels(s string) ([]float64, error) {
	var out []float64
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		v, err := strconv.ParseFloat(part, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid level %q: %w", part, err)
		}
		out = append(out, v)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no levels in %q", s)
	}
	return out, nil
}

// StrictCategories turns out-of-set warnings into an ErrOutOfSetCategory
// error. It returns nil when warns holds none.
func StrictCategories(warns []Warning) error {
	for _, w := range warns {
		if w.Kind == WarnOutOfSetCategory {
			return fmt.Errorf("%w: %s", ErrOutOfSetCategory, w.Message)
		}
	}
	return nil
}
