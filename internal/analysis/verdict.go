package analysis

import (
	"fmt"
	"math"
)

// Grade is the overall model quality judgement.
type Grade string

const (
	Good     Grade = "Good"
	Marginal Grade = "Marginal"
	Poor     Grade = "Poor"
)

func (g Grade) rank() int {
	switch g {
	case Poor:
		return 2
	case Marginal:
		return 1
	default:
		return 0
	}
}

// VerdictPolicy holds the judgement thresholds. They are domain-specific
// tolerances, so every one of them is configurable.
type VerdictPolicy struct {
	// PoorRelErrStd is the relative error std (percent) above which the model is Poor.
	PoorRelErrStd float64
	// MarginalRelErrStd is the relative error std (percent) above which the model is at best Marginal.
	MarginalRelErrStd float64
	// MaxAbsRelErrMean is the largest |mean relative error| (percent) still considered unbiased.
	MaxAbsRelErrMean float64
	// BiasThreshold is the |r(residual, fitted)| at which unmodeled structure is flagged.
	BiasThreshold float64
}

// DefaultVerdictPolicy returns the policy used when nothing is configured.
func DefaultVerdictPolicy() VerdictPolicy {
	return VerdictPolicy{
		PoorRelErrStd:     70,
		MarginalRelErrStd: 35,
		MaxAbsRelErrMean:  5,
		BiasThreshold:     0.01,
	}
}

// Verdict is a grade plus the reasons that produced it.
type Verdict struct {
	Grade   Grade    `json:"grade"`
	Reasons []string `json:"reasons"`
}

// Judge grades a quality report. A near-zero mean relative error does not
// rescue a model whose per-row spread is large: the mean only says the
// predictions are centred, the spread says individual predictions are unreliable.
func Judge(q QualityReport, p VerdictPolicy) Verdict {
	v := Verdict{Grade: Good}
	worsen := func(g Grade, reason string) {
		if g.rank() > v.Grade.rank() {
			v.Grade = g
		}
		v.Reasons = append(v.Reasons, reason)
	}

	if !q.RelErrStd.OK {
		worsen(Poor, "relative error spread is undefined (too few rows with a non-zero fitted value)")
	} else {
		std := q.RelErrStd.Value
		switch {
		case std > p.PoorRelErrStd:
			reason := fmt.Sprintf("relative error std %.1f%% exceeds %.1f%%: individual predictions are unreliable", std, p.PoorRelErrStd)
			if q.RelErrMean.OK && math.Abs(q.RelErrMean.Value) <= p.MaxAbsRelErrMean {
				reason += fmt.Sprintf(" even though the mean error %.2f%% shows no systematic bias", q.RelErrMean.Value)
			}
			worsen(Poor, reason)
		case std > p.MarginalRelErrStd:
			worsen(Marginal, fmt.Sprintf("relative error std %.1f%% exceeds %.1f%%", std, p.MarginalRelErrStd))
		default:
			v.Reasons = append(v.Reasons, fmt.Sprintf("relative error std %.1f%% is within %.1f%%", std, p.MarginalRelErrStd))
		}
	}

	if q.RelErrMean.OK && math.Abs(q.RelErrMean.Value) > p.MaxAbsRelErrMean {
		worsen(Marginal, fmt.Sprintf("mean relative error %.2f%% indicates systematic over/under-prediction", q.RelErrMean.Value))
	}

	if q.Correlation.OK {
		r := q.Correlation.Value
		if math.Abs(r) >= p.BiasThreshold {
			worsen(Marginal, fmt.Sprintf("residuals correlate with fitted values (r=%.4f): unmodeled structure remains", r))
		} else {
			v.Reasons = append(v.Reasons, fmt.Sprintf("residual/fitted correlation r=%.4f: no linear bias left to recover", r))
		}
	}
	return v
}
