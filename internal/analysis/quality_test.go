package analysis

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func kinds(ws []Warning) []WarningKind {
	out := make([]WarningKind, len(ws))
	for i, w := range ws {
		out[i] = w.Kind
	}
	return out
}

func TestFitQualityBasic(t *testing.T) {
	q, err := FitQuality([]float64{1, -1, 1, -1}, []float64{10, 10, 20, 20}, DefaultQualityOptions())
	require.NoError(t, err)
	require.Equal(t, 4, q.Rows)
	require.Equal(t, 4, q.RelErrRows)
	require.True(t, q.RelErrMean.OK)
	require.InDelta(t, 0, q.RelErrMean.Value, 1e-12)
	require.InDelta(t, 9.128709, q.RelErrStd.Value, 1e-6)
	require.InDelta(t, 1, q.RMSE.Value, 1e-12)
	require.InDelta(t, 1, q.MAE.Value, 1e-12)
	require.InDelta(t, 15, q.FittedMean.Value, 1e-12)
	require.True(t, q.StdRatio.OK)
	require.InDelta(t, q.ResidualStd.Value/q.FittedStd.Value, q.StdRatio.Value, 1e-12)
	require.InDelta(t, q.ResidualStd.Value/15, q.MeanRatio.Value, 1e-12)
	require.True(t, q.Correlation.OK)
	require.InDelta(t, 0, q.Correlation.Value, 1e-12)
	require.False(t, q.Bias)
	require.Empty(t, q.Warnings)
}

func TestFitQualityBias(t *testing.T) {
	q, err := FitQuality([]float64{1, 2, 3, 4}, []float64{10, 20, 30, 40}, DefaultQualityOptions())
	require.NoError(t, err)
	require.InDelta(t, 1, q.Correlation.Value, 1e-12)
	require.True(t, q.Bias)
}

func TestFitQualityLengthMismatch(t *testing.T) {
	_, err := FitQuality([]float64{1, 2}, []float64{1}, DefaultQualityOptions())
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrLengthMismatch))

	_, err = FitQuality(nil, nil, DefaultQualityOptions())
	require.Error(t, err)
}

func TestFitQualityAllZero(t *testing.T) {
	q, err := FitQuality([]float64{0, 0, 0}, []float64{0, 0, 0}, DefaultQualityOptions())
	require.NoError(t, err)
	require.Equal(t, []int{0, 1, 2}, q.NearZeroRows)
	require.Equal(t, 0, q.RelErrRows)
	require.False(t, q.RelErrMean.OK)
	require.False(t, q.RelErrStd.OK)
	require.False(t, q.StdRatio.OK)
	require.False(t, q.MeanRatio.OK)
	require.False(t, q.Correlation.OK)
	require.False(t, q.Bias)
	require.Contains(t, kinds(q.Warnings), WarnNearZeroDenominator)
	require.Contains(t, kinds(q.Warnings), WarnZeroVariance)

	require.Equal(t, Poor, Judge(q, DefaultVerdictPolicy()).Grade)
}

func TestFitQualityExcludesNearZeroRows(t *testing.T) {
	q, err := FitQuality([]float64{1, 5, -1}, []float64{10, 0, 20}, DefaultQualityOptions())
	require.NoError(t, err)
	require.Equal(t, []int{1}, q.NearZeroRows)
	require.Equal(t, 2, q.RelErrRows)
	require.InDelta(t, 2.5, q.RelErrMean.Value, 1e-12)
	require.Equal(t, WarnNearZeroDenominator, q.Warnings[0].Kind)
	require.Equal(t, []int{1}, q.Warnings[0].Rows)
}

func TestFitQualitySkipsMissing(t *testing.T) {
	q, err := FitQuality([]float64{1, nan, 2}, []float64{10, 10, 20}, DefaultQualityOptions())
	require.NoError(t, err)
	require.Equal(t, 3, q.Rows)
	require.Equal(t, 2, q.RelErrRows)
	require.Equal(t, WarnIncompleteRows, q.Warnings[0].Kind)
	require.Equal(t, []int{1}, q.Warnings[0].Rows)
}

func TestFitQualityReference(t *testing.T) {
	tb := referenceTable(t)
	res, err := tb.Column("Fitted_residuals")
	require.NoError(t, err)
	fit, err := tb.Column("Fitted_Values")
	require.NoError(t, err)

	q, err := FitQuality(res, fit, DefaultQualityOptions())
	require.NoError(t, err)
	require.InDelta(t, -1.59, q.RelErrMean.Value, 1)
	require.InDelta(t, 71.7, q.RelErrStd.Value, 1)
	require.Less(t, abs(q.Correlation.Value), 0.01)
	require.False(t, q.Bias)
	require.Empty(t, q.NearZeroRows)
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}

func TestFitQualityConstantFitted(t *testing.T) {
	q, err := FitQuality([]float64{1, -1, 2}, []float64{10, 10, 10}, DefaultQualityOptions())
	require.NoError(t, err)
	require.False(t, q.StdRatio.OK)
	require.False(t, q.Correlation.OK)
	require.True(t, q.MeanRatio.OK)
	var msgs []string
	for _, w := range q.Warnings {
		if w.Kind == WarnZeroVariance {
			msgs = append(msgs, w.Message)
		}
	}
	require.Len(t, msgs, 1)
	require.Contains(t, msgs[0], "residual std / fitted std")
}

func TestFitQualityLargeResiduals(t *testing.T) {
	q, err := FitQuality([]float64{1e200, -1e200, 1e200, -1e200}, []float64{10, 10, 20, 20}, DefaultQualityOptions())
	require.NoError(t, err)
	require.True(t, q.ResidualStd.OK)
	require.InEpsilon(t, 1.1547005383792515e200, q.ResidualStd.Value, 1e-9)
	require.True(t, q.RMSE.OK)
	require.InEpsilon(t, 1e200, q.RMSE.Value, 1e-9)
	require.True(t, q.Correlation.OK)
	require.InDelta(t, 0, q.Correlation.Value, 1e-12)

	_, err = json.Marshal(q)
	require.NoError(t, err)
}
