package analysis

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestExpandCategorical(t *testing.T) {
	tb := newTable(t, col("V", 1, 2, 3, 5, nan, 2))
	out, warns, err := ExpandCategorical(tb, "V", []float64{1, 2, 3, 4})
	require.NoError(t, err)
	require.Equal(t, []string{"V", "V_1", "V_2", "V_3", "V_4"}, out.Columns())
	require.Equal(t, []string{"V"}, tb.Columns())

	sums := make([]float64, out.Rows())
	for _, name := range []string{"V_1", "V_2", "V_3", "V_4"} {
		vals, err := out.Column(name)
		require.NoError(t, err)
		for i, v := range vals {
			require.True(t, v == 0 || v == 1)
			sums[i] += v
		}
	}
	require.Equal(t, []float64{1, 1, 1, 0, 0, 1}, sums)
	v2, _ := out.Column("V_2")
	require.Equal(t, []float64{0, 1, 0, 0, 0, 1}, v2)

	require.Len(t, warns, 1)
	require.Equal(t, WarnOutOfSetCategory, warns[0].Kind)
	require.Equal(t, 2, warns[0].Count)
	require.Equal(t, []int{3, 4}, warns[0].Rows)

	err = StrictCategories(warns)
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrOutOfSetCategory))
	require.NoError(t, StrictCategories(nil))
}

func TestExpandCategoricalErrors(t *testing.T) {
	tb := newTable(t, col("V", 1, 2), col("V_1", 0, 0))
	cases := []struct {
		name   string
		column string
		known  []float64
	}{
		{"unknown column", "W", []float64{1}},
		{"no levels", "V", nil},
		{"duplicate level", "V", []float64{1, 2, 1}},
		{"name collision", "V", []float64{1, 2}},
		{"nan level", "V", []float64{nan}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := ExpandCategorical(tb, tc.column, tc.known)
			require.Error(t, err)
		})
	}
}

func TestExpansionColumnName(t *testing.T) {
	require.Equal(t, "V76_1", ExpansionColumn("V76", 1))
	require.Equal(t, "x_2.5", ExpansionColumn("x", 2.5))
	require.Equal(t, "x_-1", ExpansionColumn("x", -1))
}

func TestClassifyCategorical(t *testing.T) {
	s := ColumnSummary{
		Name: "V76", Integer: true, Unique: 4, Min: 1, Max: 4,
		Frequencies: []ValueCount{{1, 7}, {2, 811}, {3, 1368}, {4, 29}},
	}
	rec, ok := ClassifyCategorical(s, 10)
	require.True(t, ok)
	require.Equal(t, "V76", rec.Column)
	require.Equal(t, []float64{1, 2, 3, 4}, rec.Levels)
	require.Len(t, rec.Reasons, 1)
	require.Contains(t, rec.Reasons[0], "3,2,4,1")

	edge := s
	edge.Frequencies = []ValueCount{{1, 900}, {2, 811}, {3, 100}, {4, 29}}
	_, ok = ClassifyCategorical(edge, 10)
	require.False(t, ok)

	frac := s
	frac.Integer = false
	_, ok = ClassifyCategorical(frac, 10)
	require.False(t, ok)

	two := ColumnSummary{Integer: true, Unique: 2, Min: 0, Max: 1, Frequencies: []ValueCount{{0, 5}, {1, 3}}}
	_, ok = ClassifyCategorical(two, 10)
	require.False(t, ok)

	_, ok = ClassifyCategorical(s, 3)
	require.False(t, ok)
}

func TestMonotone(t *testing.T) {
	require.True(t, monotone([]float64{1, 2, 2, 3}))
	require.True(t, monotone([]float64{3, 1, 0}))
	require.True(t, monotone(nil))
	require.False(t, monotone([]float64{0.008, -0.002, 0.002, -0.004}))
}

func TestParseLevels(t *testing.T) {
	got, err := ParseLevels("1, 2,3,,4")
	require.NoError(t, err)
	require.Equal(t, []float64{1, 2, 3, 4}, got)

	_, err = ParseLevels("1,a")
	require.Error(t, err)
	_, err = ParseLevels(" , ")
	require.Error(t, err)
}

func TestClassifyCategoricalFrequencyValley(t *testing.T) {
	s := ColumnSummary{
		Name: "V", Integer: true, Unique: 4, Min: 1, Max: 4,
		Frequencies: []ValueCount{{1, 100}, {2, 10}, {3, 50}, {4, 5}},
	}
	rec, ok := ClassifyCategorical(s, 10)
	require.True(t, ok)
	require.Equal(t, []float64{1, 2, 3, 4}, rec.Levels)
	require.Len(t, rec.Reasons, 1)
	require.Contains(t, rec.Reasons[0], "fall and rise")
	require.Contains(t, rec.Reasons[0], "1,3,2,4")
}

func TestUnimodal(t *testing.T) {
	require.True(t, unimodal([]float64{1, 5, 9, 3}))
	require.True(t, unimodal([]float64{9, 5, 5, 1}))
	require.True(t, unimodal([]float64{1, 2, 2, 3}))
	require.False(t, unimodal([]float64{100, 10, 50, 5}))
}

func TestOrdinalEffect(t *testing.T) {
	src := []float64{1, 1, 1, 1, 1, 1, 2, 2, 3, 3, 4, 4}
	effect := map[float64]float64{1: 100, 2: 300, 3: 50, 4: 250}
	fitted := make([]float64, len(src))
	for i, v := range src {
		fitted[i] = effect[v]
	}
	s := ColumnSummary{
		Name: "V", Integer: true, Unique: 4, Min: 1, Max: 4,
		Frequencies: []ValueCount{{1, 6}, {2, 2}, {3, 2}, {4, 2}},
	}
	_, ok := ClassifyCategorical(s, 10)
	require.False(t, ok)

	means, reason, bad := OrdinalEffect(s, src, fitted, "Fitted_Values", 10)
	require.True(t, bad)
	require.Equal(t, []float64{100, 300, 50, 250}, means)
	require.Contains(t, reason, "non-monotone")

	for i, v := range src {
		fitted[i] = 100 * v
	}
	fitted[0] = nan
	_, _, bad = OrdinalEffect(s, src, fitted, "Fitted_Values", 10)
	require.False(t, bad)

	_, _, bad = OrdinalEffect(s, src, fitted, "Fitted_Values", 3)
	require.False(t, bad)
}

func TestIndicatorCorrelations(t *testing.T) {
	src := []float64{1, 2, 3, 1, 2, 3}
	fitted := []float64{1, 2, 3, 1, 2, nan}
	got := indicatorCorrelations(src, fitted, []float64{1, 2, 3, 9})
	require.Len(t, got, 4)
	require.Less(t, got[0], 0.0)
	require.Greater(t, got[2], 0.0)
	require.Equal(t, 0.0, got[3])
}
