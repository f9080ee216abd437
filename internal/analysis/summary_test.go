package analysis

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSummarize(t *testing.T) {
	tb := newTable(t,
		col("a", 1, 2, 3, 4, nan),
		col("b", 0.5, 0.5, 1.5, 2.5, 3.5),
	)
	sums, warns := Summarize(tb, SummaryOptions{})
	require.Len(t, sums, 2)

	a := sums[0]
	require.Equal(t, "a", a.Name)
	require.Equal(t, 4, a.Count)
	require.Equal(t, 1, a.Missing)
	require.Equal(t, 4, a.Unique)
	require.True(t, a.Integer)
	require.InDelta(t, 2.5, a.Mean, 1e-12)
	require.InDelta(t, 1.2909944487, a.Std, 1e-9)
	require.Equal(t, 1.0, a.Min)
	require.InDelta(t, 1.75, a.P25, 1e-12)
	require.InDelta(t, 2.5, a.P50, 1e-12)
	require.InDelta(t, 3.25, a.P75, 1e-12)
	require.Equal(t, 4.0, a.Max)
	require.Equal(t, []ValueCount{{1, 1}, {2, 1}, {3, 1}, {4, 1}}, a.Frequencies)

	b := sums[1]
	require.False(t, b.Integer)
	require.Equal(t, 0, b.Missing)
	require.Equal(t, []ValueCount{{0.5, 2}, {1.5, 1}, {2.5, 1}, {3.5, 1}}, b.Frequencies)

	require.Len(t, warns, 1)
	require.Equal(t, WarnMissingValues, warns[0].Kind)
	require.Equal(t, "a", warns[0].Column)
	require.Equal(t, 1, warns[0].Count)
	require.Equal(t, []int{4}, warns[0].Rows)
}

func TestSummarizeFrequencyCutoff(t *testing.T) {
	vals := make([]float64, 20)
	for i := range vals {
		vals[i] = float64(i)
	}
	tb := newTable(t, col("x", vals...))

	sums, _ := Summarize(tb, SummaryOptions{MaxLevels: 5})
	require.Nil(t, sums[0].Frequencies)
	sums, _ = Summarize(tb, SummaryOptions{MaxLevels: 20})
	require.Len(t, sums[0].Frequencies, 20)
}

func TestSummarizeAllMissing(t *testing.T) {
	tb := newTable(t, col("x", nan, nan))
	sums, warns := Summarize(tb, SummaryOptions{})
	require.Equal(t, 0, sums[0].Count)
	require.Equal(t, 2, sums[0].Missing)
	require.Len(t, warns, 1)
}

func TestQuantile(t *testing.T) {
	sorted := []float64{10, 20, 30, 40}
	cases := []struct {
		q, want float64
	}{{0, 10}, {0.25, 17.5}, {0.5, 25}, {0.75, 32.5}, {1, 40}}
	for _, c := range cases {
		require.InDelta(t, c.want, quantile(sorted, c.q), 1e-12, "q=%v", c.q)
	}
	require.Equal(t, 0.0, quantile(nil, 0.5))
}

func TestSummarizeLargeValues(t *testing.T) {
	tb := newTable(t,
		col("x", 1e200, -1e200, 3e200, 2e200),
		col("y", 1.5e308, 1.6e308, 1.7e308, 1.6e308),
	)
	sums, warns := Summarize(tb, SummaryOptions{})
	require.InEpsilon(t, 1.7078251276599330e200, sums[0].Std, 1e-9)
	require.InDelta(t, 0, sums[1].Mean, 0)
	require.InEpsilon(t, 0.08164965809277261e308, sums[1].Std, 1e-9)

	require.Len(t, warns, 1)
	require.Equal(t, WarnNonFinite, warns[0].Kind)
	require.Equal(t, "y", warns[0].Column)
	require.Contains(t, warns[0].Message, "mean")

	_, err := json.Marshal(sums)
	require.NoError(t, err)
}
