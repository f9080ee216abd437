package analysis

import (
	"fmt"
	"strings"
)

func (m Measure) format(verb string) string {
	if !m.OK {
		return "n/a"
	}
	return fmt.Sprintf(verb, m.Value)
}

// Markdown renders the evaluation as plain sectioned text.
func (r *Report) Markdown() string {
	var b strings.Builder
	b.WriteString("[MODEL QUALITY REPORT]\n")
	if r.Name != "" {
		b.WriteString(fmt.Sprintf("File: %s\n", r.Name))
	}
	b.WriteString(fmt.Sprintf("Run: %s\n", r.RunID))
	b.WriteString(fmt.Sprintf("Rows: %d\n", r.Rows))
	b.WriteString(fmt.Sprintf("Columns: %d (observed=%s, residual=%s, fitted=%s)\n\n", len(r.Columns), r.Roles.Observed, r.Roles.Residual, r.Roles.Fitted))

	b.WriteString("[VERDICT]\n")
	b.WriteString(fmt.Sprintf("Grade: %s\n", r.Verdict.Grade))
	for _, reason := range r.Verdict.Reasons {
		b.WriteString(fmt.Sprintf("- %s\n", reason))
	}

	q := r.Quality
	b.WriteString("\n[FIT QUALITY]\n")
	b.WriteString(fmt.Sprintf("- relative error: mean %s%%, std %s%% (over %d of %d rows)\n", q.RelErrMean.format("%.4f"), q.RelErrStd.format("%.4f"), q.RelErrRows, q.Rows))
	b.WriteString(fmt.Sprintf("- residuals: mean %s, std %s, RMSE %s, MAE %s\n", q.ResidualMean.format("%.4g"), q.ResidualStd.format("%.4g"), q.RMSE.format("%.4g"), q.MAE.format("%.4g")))
	b.WriteString(fmt.Sprintf("- fitted values: mean %s, std %s\n", q.FittedMean.format("%.4g"), q.FittedStd.format("%.4g")))
	b.WriteString(fmt.Sprintf("- residual std / fitted std: %s\n", q.StdRatio.format("%.4f")))
	b.WriteString(fmt.Sprintf("- residual std / fitted mean: %s\n", q.MeanRatio.format("%.4f")))
	b.WriteString(fmt.Sprintf("- r(residual, fitted): %s", q.Correlation.format("%.6f")))
	if q.Bias {
		b.WriteString(" (bias)")
	}
	b.WriteString("\n")

	b.WriteString("\n[SCHEMA]\n")
	for _, s := range r.Summaries {
		total := s.Count + s.Missing
		missPct := 0.0
		if total > 0 {
			missPct = float64(s.Missing) * 100.0 / float64(total)
		}
		b.WriteString(fmt.Sprintf("- %s: non-null %d, missing %.1f%%", s.Name, s.Count, missPct))
		if s.Count > 0 {
			b.WriteString(fmt.Sprintf(" | mean %.4g, std %.4g, min %.4g, 25%% %.4g, 50%% %.4g, 75%% %.4g, max %.4g",
				s.Mean, s.Std, s.Min, s.P25, s.P50, s.P75, s.Max))
		}
		if len(s.Frequencies) > 0 {
			b.WriteString("; counts: ")
			for i, vc := range s.Frequencies {
				if i > 0 {
					b.WriteString(", ")
				}
				b.WriteString(fmt.Sprintf("%s(%d)", formatLevel(vc.Value), vc.Count))
			}
		}
		b.WriteString("\n")
	}

	if r.Correlation != nil && len(r.Correlation.Columns) >= 2 {
		b.WriteString("\n[CORRELATIONS]\n")
		writePairs(&b, r.Correlation.TopPairs(10))
	}

	if len(r.Recommendations) > 0 {
		b.WriteString("\n[CATEGORICAL RECOMMENDATIONS]\n")
		for _, rec := range r.Recommendations {
			b.WriteString(fmt.Sprintf("- %s -> levels {%s}\n", rec.Column, formatLevels(rec.Levels)))
			for _, reason := range rec.Reasons {
				b.WriteString(fmt.Sprintf("  • %s\n", reason))
			}
		}
	}
	if len(r.Expansions) > 0 {
		b.WriteString("\n[EXPANSIONS]\n")
		for _, ex := range r.Expansions {
			b.WriteString(fmt.Sprintf("- %s: %s\n", ex.Column, strings.Join(ex.Columns, ", ")))
			if len(ex.FittedCorrelation) == len(ex.Columns) {
				for k, name := range ex.Columns {
					b.WriteString(fmt.Sprintf("  • %s ~ %s: r=%.4f\n", name, r.Roles.Fitted, ex.FittedCorrelation[k]))
				}
			}
		}
		if r.ExpandedCorrelation != nil {
			b.WriteString("\n[EXPANDED CORRELATIONS]\n")
			writePairs(&b, r.ExpandedCorrelation.TopPairs(10))
		}
	}

	if len(r.Hints) > 0 {
		b.WriteString("\n[HINTS]\n")
		for _, h := range r.Hints {
			b.WriteString(fmt.Sprintf("- %s\n", h.Message))
		}
	}
	if len(r.Warnings) > 0 {
		b.WriteString("\n[WARNINGS]\n")
		for _, w := range r.Warnings {
			b.WriteString(fmt.Sprintf("- [%s] %s", w.Kind, w.Message))
			if len(w.Rows) > 0 {
				b.WriteString(fmt.Sprintf(" (rows %s)", joinInts(w.Rows)))
			}
			b.WriteString("\n")
		}
	}
	if len(r.Notes) > 0 {
		b.WriteString("\n[NOTES]\n")
		for _, n := range r.Notes {
			b.WriteString(fmt.Sprintf("- %s\n", n))
		}
	}
	return b.String()
}

func writePairs(b *strings.Builder, pairs []PairValue) {
	for _, p := range pairs {
		b.WriteString(fmt.Sprintf("- %s ~ %s: r=%.3f\n", p.A, p.B, p.Value))
	}
}

func joinInts(xs []int) string {
	parts := make([]string, len(xs))
	for i, x := range xs {
		parts[i] = fmt.Sprint(x)
	}
	return strings.Join(parts, ",")
}
