package analysis

import (
	"fmt"
	"math"

	"github.com/KaramelBytes/fitcheck-cli/internal/dataset"
)

// CheckResidualIdentity verifies observed = fitted + residual row by row.
// A row fails when |obs - fit - res| > tol*max(1, |obs|). Rows with a missing
// value in any of the three columns are not checked.
func CheckResidualIdentity(t *dataset.Table, observed, fitted, residual string, tol float64) ([]Warning, error) {
	obs, err := t.Column(observed)
	if err != nil {
		return nil, fmt.Errorf("residual identity: %w", err)
	}
	fit, err := t.Column(fitted)
	if err != nil {
		return nil, fmt.Errorf("residual identity: %w", err)
	}
	res, err := t.Column(residual)
	if err != nil {
		return nil, fmt.Errorf("residual identity: %w", err)
	}
	if tol <= 0 {
		tol = 1e-6
	}

	var bad []int
	var worst float64
	for i := range obs {
		if math.IsNaN(obs[i]) || math.IsNaN(fit[i]) || math.IsNaN(res[i]) {
			continue
		}
		gap := math.Abs(obs[i] - fit[i] - res[i])
		if gap > tol*math.Max(1, math.Abs(obs[i])) {
			bad = append(bad, i)
			if gap > worst {
				worst = gap
			}
		}
	}
	if len(bad) == 0 {
		return nil, nil
	}
	return []Warning{{
		Kind:    WarnResidualIdentity,
		Column:  residual,
		Count:   len(bad),
		Rows:    listRows(bad),
		Message: fmt.Sprintf("%d row(s) violate %s = %s + %s (largest gap %g)", len(bad), observed, fitted, residual, worst),
	}}, nil
}
