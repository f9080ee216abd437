package analysis

import (
	"math"
	"testing"

	"github.com/KaramelBytes/fitcheck-cli/internal/dataset"
	"github.com/stretchr/testify/require"
)

func newTable(t *testing.T, cols ...dataset.Series) *dataset.Table {
	t.Helper()
	tb, err := dataset.New("test.csv", cols...)
	require.NoError(t, err)
	return tb
}

func col(name string, vals ...float64) dataset.Series {
	return dataset.Series{Name: name, Values: vals}
}

var nan = math.NaN()

// referenceTable builds a 2215-row table shaped like the regression export the
// tool was written for: relative error mean -1.59% and std ~71.7%, residuals
// uncorrelated with fitted values, an integer-coded V76 column whose most
// frequent level is interior, a V23/V34 collinear pair and a skewed V6.
func referenceTable(t *testing.T) *dataset.Table {
	t.Helper()
	const n = 2215
	fit := make([]float64, 0, n)
	z := make([]float64, 0, n)
	for q := 0; q < 553; q++ {
		fit = append(fit, 900, 900, 1100, 1100)
		z = append(z, 1, -1, 1, -1)
	}
	for i := 0; i < 3; i++ {
		fit = append(fit, 1000)
		z = append(z, 0)
	}
	res := make([]float64, n)
	obs := make([]float64, n)
	for i := range fit {
		res[i] = fit[i] * (-1.59 + 71.7*z[i]) / 100
		obs[i] = fit[i] + res[i]
	}

	// spread the levels with a stride coprime to n
	v76 := make([]float64, n)
	k := 0
	for _, lc := range []struct {
		level float64
		count int
	}{{1, 7}, {2, 811}, {3, 1368}, {4, 29}} {
		for j := 0; j < lc.count; j++ {
			v76[(k*7)%n] = lc.level
			k++
		}
	}

	v6 := make([]float64, n)
	v23 := make([]float64, n)
	v34 := make([]float64, n)
	for i := 0; i < n; i++ {
		fi := float64(i)
		v34[i] = math.Sin(fi*0.37)*10 + 50
		v23[i] = 0.8*(v34[i]-50) + math.Cos(fi*1.3)*6 + 20
		v6[i] = math.Exp(float64((i*37)%100) / 25)
	}

	tb, err := dataset.New("reference.csv",
		col("Observed", obs...),
		col("Fitted_residuals", res...),
		col("Fitted_Values", fit...),
		col("V6", v6...),
		col("V23", v23...),
		col("V34", v34...),
		col("V76", v76...),
	)
	require.NoError(t, err)
	return tb
}
