package analysis

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"
)

// QualityOptions controls fit quality measurement.
type QualityOptions struct {
	// NearZero is the largest |fitted value| treated as a zero denominator.
	NearZero float64
	// BiasThreshold is the |r| between residuals and fitted values at or
	// above which systematic bias is flagged.
	BiasThreshold float64
}

// DefaultQualityOptions returns the thresholds used by the CLI.
func DefaultQualityOptions() QualityOptions {
	return QualityOptions{NearZero: 1e-6, BiasThreshold: 0.01}
}

// Measure is a derived figure that may be undefined, e.g. when its
// denominator is zero. Undefined measures have OK=false and Value 0.
type Measure struct {
	Value float64 `json:"value"`
	OK    bool    `json:"ok"`
}

func measured(v float64) Measure {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return Measure{}
	}
	return Measure{Value: v, OK: true}
}

// QualityReport characterizes how well fitted values track observations.
//
// Relative error is 100*residual/fitted per row and answers "how far off is a
// typical prediction"; the std ratios are global dispersion measures that do
// not blow up on small denominators.
type QualityReport struct {
	Rows         int   `json:"rows"`
	RelErrRows   int   `json:"rel_err_rows"`
	NearZeroRows []int `json:"near_zero_rows,omitempty"`

	RelErrMean   Measure `json:"rel_err_mean_pct"`
	RelErrStd    Measure `json:"rel_err_std_pct"`
	ResidualMean Measure `json:"residual_mean"`
	ResidualStd  Measure `json:"residual_std"`
	FittedMean   Measure `json:"fitted_mean"`
	FittedStd    Measure `json:"fitted_std"`
	StdRatio     Measure `json:"residual_std_over_fitted_std"`
	MeanRatio    Measure `json:"residual_std_over_fitted_mean"`
	RMSE         Measure `json:"rmse"`
	MAE          Measure `json:"mae"`
	Correlation  Measure `json:"residual_fitted_corr"`
	// Bias is set when |Correlation| >= BiasThreshold, i.e. a linear
	// adjustment of fitted values could still reduce residuals.
	Bias bool `json:"bias"`

	Warnings []Warning `json:"warnings,omitempty"`
}

// FitQuality measures fit quality from paired residuals and fitted values.
// Rows with a near-zero fitted value are excluded from relative error and
// flagged; rows with a missing value in either series are skipped.
func FitQuality(residuals, fitted []float64, opt QualityOptions) (QualityReport, error) {
	if len(residuals) != len(fitted) {
		return QualityReport{}, fmt.Errorf("fit quality: %w: %d residuals, %d fitted values", ErrLengthMismatch, len(residuals), len(fitted))
	}
	if len(residuals) == 0 {
		return QualityReport{}, fmt.Errorf("fit quality: no rows")
	}
	q := QualityReport{Rows: len(residuals)}

	res := make([]float64, 0, len(residuals))
	fit := make([]float64, 0, len(fitted))
	var incomplete []int
	var relErr []float64
	for i := range residuals {
		r, f := residuals[i], fitted[i]
		if math.IsNaN(r) || math.IsNaN(f) {
			incomplete = append(incomplete, i)
			continue
		}
		res = append(res, r)
		fit = append(fit, f)
		if math.Abs(f) <= opt.NearZero {
			q.NearZeroRows = append(q.NearZeroRows, i)
			continue
		}
		relErr = append(relErr, 100*r/f)
	}
	q.RelErrRows = len(relErr)

	if len(incomplete) > 0 {
		q.Warnings = append(q.Warnings, Warning{
			Kind:    WarnIncompleteRows,
			Count:   len(incomplete),
			Rows:    listRows(incomplete),
			Message: fmt.Sprintf("%d row(s) with a missing residual or fitted value were skipped", len(incomplete)),
		})
	}
	if len(q.NearZeroRows) > 0 {
		q.Warnings = append(q.Warnings, Warning{
			Kind:    WarnNearZeroDenominator,
			Count:   len(q.NearZeroRows),
			Rows:    listRows(q.NearZeroRows),
			Message: fmt.Sprintf("%d row(s) have |fitted value| <= %g and were excluded from relative error", len(q.NearZeroRows), opt.NearZero),
		})
	}

	switch len(relErr) {
	case 0:
	case 1:
		q.RelErrMean = measured(relErr[0])
	default:
		q.RelErrMean, q.RelErrStd = measured(stat.Mean(relErr, nil)), measured(stdDev(relErr))
	}

	n := len(res)
	if n == 0 {
		return q, nil
	}
	var sq, abs float64
	scale := maxAbs(res)
	if scale == 0 || math.IsInf(scale, 0) {
		scale = 1
	}
	for _, r := range res {
		sq += (r / scale) * (r / scale)
		abs += math.Abs(r)
	}
	q.RMSE = measured(math.Sqrt(sq/float64(n)) * scale)
	q.MAE = measured(abs / float64(n))
	q.ResidualMean = measured(stat.Mean(res, nil))
	q.FittedMean = measured(stat.Mean(fit, nil))
	if n < 2 {
		return q, nil
	}
	q.ResidualStd = measured(stdDev(res))
	q.FittedStd = measured(stdDev(fit))

	if !isConstant(fit) && q.ResidualStd.OK && q.FittedStd.OK {
		q.StdRatio = measured(q.ResidualStd.Value / q.FittedStd.Value)
	}
	switch {
	case !q.ResidualStd.OK || !q.FittedMean.OK:
	case math.Abs(q.FittedMean.Value) > opt.NearZero:
		q.MeanRatio = measured(q.ResidualStd.Value / q.FittedMean.Value)
	default:
		q.Warnings = append(q.Warnings, Warning{
			Kind:    WarnNearZeroDenominator,
			Message: "mean fitted value is near zero; residual std / fitted mean is undefined",
		})
	}

	constRes, constFit := isConstant(res), isConstant(fit)
	if constRes {
		q.Warnings = append(q.Warnings, Warning{
			Kind:    WarnZeroVariance,
			Message: "residuals have zero variance; residual/fitted correlation is undefined",
		})
	}
	if constFit {
		q.Warnings = append(q.Warnings, Warning{
			Kind:    WarnZeroVariance,
			Message: "fitted values have zero variance; residual/fitted correlation and residual std / fitted std are undefined",
		})
	}
	if !constRes && !constFit {
		if r, ok := correlation(res, fit); ok {
			q.Correlation = Measure{Value: r, OK: true}
			q.Bias = math.Abs(r) >= opt.BiasThreshold
		}
	}
	return q, nil
}
