package analysis

import (
	"fmt"
	"math"
	"sort"

	"github.com/KaramelBytes/fitcheck-cli/internal/dataset"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Roles names the columns that carry model output. Every other column is a
// predictor. Observed is optional.
type Roles struct {
	Observed string `json:"observed"`
	Residual string `json:"residual"`
	Fitted   string `json:"fitted"`
}

// DefaultRoles matches the column names of the usual regression export.
func DefaultRoles() Roles {
	return Roles{Observed: "Observed", Residual: "Fitted_residuals", Fitted: "Fitted_Values"}
}

func (r Roles) has(name string) bool {
	return name == r.Observed || name == r.Residual || name == r.Fitted
}

// Config parameterizes Evaluate.
type Config struct {
	Roles   Roles
	Summary SummaryOptions
	Quality QualityOptions
	Policy  VerdictPolicy

	// IdentityTolerance is the relative tolerance for observed = fitted + residual.
	IdentityTolerance float64

	// Categorical lists columns to expand with their known levels.
	Categorical map[string][]float64
	// AutoCategorical also expands every column ClassifyCategorical recommends.
	AutoCategorical bool
	// StrictCategories fails the run on out-of-set category values.
	StrictCategories bool

	CollinearityThreshold  float64
	WeakPredictorThreshold float64
	// SkewThreshold is the skewness above which a positive column gets a
	// log-transform hint.
	SkewThreshold float64

	Logger *zap.Logger
}

// DefaultConfig returns the configuration used when nothing is set. Evaluate
// also falls back to these values for zero fields of a partial Config, except
// AutoCategorical and StrictCategories whose zero value is meaningful.
func DefaultConfig() Config {
	return Config{
		Roles:                  DefaultRoles(),
		Summary:                SummaryOptions{MaxLevels: 10},
		Quality:                DefaultQualityOptions(),
		Policy:                 DefaultVerdictPolicy(),
		IdentityTolerance:      1e-6,
		AutoCategorical:        true,
		CollinearityThreshold:  0.3,
		WeakPredictorThreshold: 0.05,
		SkewThreshold:          1,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.Roles.Observed == "" {
		c.Roles.Observed = d.Roles.Observed
	}
	if c.Roles.Residual == "" {
		c.Roles.Residual = d.Roles.Residual
	}
	if c.Roles.Fitted == "" {
		c.Roles.Fitted = d.Roles.Fitted
	}
	if c.Summary.MaxLevels <= 0 {
		c.Summary.MaxLevels = d.Summary.MaxLevels
	}
	if c.Quality == (QualityOptions{}) {
		c.Quality = d.Quality
	}
	if c.Policy == (VerdictPolicy{}) {
		c.Policy = d.Policy
	}
	if c.IdentityTolerance <= 0 {
		c.IdentityTolerance = d.IdentityTolerance
	}
	if c.CollinearityThreshold <= 0 {
		c.CollinearityThreshold = d.CollinearityThreshold
	}
	if c.WeakPredictorThreshold <= 0 {
		c.WeakPredictorThreshold = d.WeakPredictorThreshold
	}
	if c.SkewThreshold <= 0 {
		c.SkewThreshold = d.SkewThreshold
	}
	return c
}

// HintKind classifies a modelling hint.
type HintKind string

const (
	HintCollinear     HintKind = "collinear"
	HintWeakPredictor HintKind = "weak_predictor"
	HintLogTransform  HintKind = "log_transform"
)

// Hint is a modelling suggestion derived from the data. Hints are advisory.
type Hint struct {
	Kind    HintKind `json:"kind"`
	Columns []string `json:"columns"`
	Value   float64  `json:"value"`
	Message string   `json:"message"`
}

// ExpansionResult describes one categorical expansion.
type ExpansionResult struct {
	Column  string    `json:"column"`
	Levels  []float64 `json:"levels"`
	Columns []string  `json:"columns"`
	// FittedCorrelation holds r(indicator, fitted) per level, in Levels order.
	FittedCorrelation []float64 `json:"fitted_correlation"`
	// Monotone is false when FittedCorrelation, taken in ascending level
	// order, rises and falls; the numeric coding then hides the effect.
	Monotone bool `json:"monotone"`
}

// Report is the full evaluation of one dataset.
type Report struct {
	RunID   string   `json:"run_id"`
	Name    string   `json:"name"`
	Rows    int      `json:"rows"`
	Columns []string `json:"columns"`
	Roles   Roles    `json:"roles"`

	Summaries   []ColumnSummary `json:"summaries"`
	Quality     QualityReport   `json:"quality"`
	Verdict     Verdict         `json:"verdict"`
	Correlation *Matrix         `json:"correlation,omitempty"`
	Covariance  *Matrix         `json:"covariance,omitempty"`

	Recommendations     []Recommendation  `json:"recommendations,omitempty"`
	Expansions          []ExpansionResult `json:"expansions,omitempty"`
	ExpandedCorrelation *Matrix           `json:"expanded_correlation,omitempty"`

	Hints    []Hint    `json:"hints,omitempty"`
	Warnings []Warning `json:"warnings,omitempty"`
	Notes    []string  `json:"notes,omitempty"`

	// Expanded is the table with all indicator columns appended, or the
	// input table when nothing was expanded.
	Expanded *dataset.Table `json:"-"`
}

// Evaluate runs the whole pipeline over t: summaries, residual identity,
// fit quality, verdict, correlation and covariance, categorical expansion
// and modelling hints. Data quality problems are collected as warnings; only
// missing role columns, too few rows or strict-mode category violations fail.
func Evaluate(t *dataset.Table, cfg Config) (*Report, error) {
	cfg = cfg.withDefaults()
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	roles := cfg.Roles
	res, err := t.Column(roles.Residual)
	if err != nil {
		return nil, fmt.Errorf("evaluate %s: residual column: %w", t.Name(), err)
	}
	fit, err := t.Column(roles.Fitted)
	if err != nil {
		return nil, fmt.Errorf("evaluate %s: fitted column: %w", t.Name(), err)
	}

	rep := &Report{
		RunID:    uuid.NewString(),
		Name:     t.Name(),
		Rows:     t.Rows(),
		Columns:  t.Columns(),
		Roles:    roles,
		Expanded: t,
	}
	rep.Notes = append(rep.Notes, t.Notes()...)
	log.Info("evaluating dataset", zap.String("name", t.Name()), zap.Int("rows", t.Rows()), zap.Int("columns", len(rep.Columns)), zap.String("run_id", rep.RunID))

	warn := func(ws []Warning) {
		for _, w := range ws {
			log.Warn(w.Message, zap.String("kind", string(w.Kind)), zap.String("column", w.Column), zap.Int("count", w.Count), zap.Ints("rows", w.Rows))
		}
		rep.Warnings = append(rep.Warnings, ws...)
	}

	summaries, ws := Summarize(t, cfg.Summary)
	rep.Summaries = summaries
	warn(ws)

	if roles.Observed != "" && t.Has(roles.Observed) {
		ws, err := CheckResidualIdentity(t, roles.Observed, roles.Fitted, roles.Residual, cfg.IdentityTolerance)
		if err != nil {
			return nil, fmt.Errorf("evaluate %s: %w", t.Name(), err)
		}
		warn(ws)
	} else {
		log.Info("observed column absent; residual identity not checked", zap.String("column", roles.Observed))
		rep.Notes = append(rep.Notes, fmt.Sprintf("observed column %q not present; residual identity not checked", roles.Observed))
	}

	q, err := FitQuality(res, fit, cfg.Quality)
	if err != nil {
		return nil, fmt.Errorf("evaluate %s: %w", t.Name(), err)
	}
	warn(q.Warnings)
	q.Warnings = nil // carried in rep.Warnings
	rep.Quality = q
	rep.Verdict = Judge(q, cfg.Policy)
	log.Debug("fit quality",
		zap.Float64("rel_err_mean", q.RelErrMean.Value),
		zap.Float64("rel_err_std", q.RelErrStd.Value),
		zap.Float64("corr", q.Correlation.Value),
		zap.String("grade", string(rep.Verdict.Grade)))

	if m, ws, err := CorrelationMatrix(t, nil); err != nil {
		rep.Notes = append(rep.Notes, fmt.Sprintf("correlation matrix skipped: %v", err))
		warn(ws)
	} else {
		rep.Correlation = m
		warn(ws)
	}
	// Covariance sees the same rows; only overflow is new.
	if m, ws, err := CovarianceMatrix(t, nil); err == nil {
		rep.Covariance = m
		for _, w := range ws {
			if w.Kind == WarnNonFinite {
				warn([]Warning{w})
			}
		}
	}

	if err := expandAll(rep, t, fit, cfg, roles, warn, log); err != nil {
		return nil, fmt.Errorf("evaluate %s: %w", t.Name(), err)
	}
	rep.Hints = hints(rep, cfg, roles)
	return rep, nil
}

func expandAll(rep *Report, t *dataset.Table, fit []float64, cfg Config, roles Roles, warn func([]Warning), log *zap.Logger) error {
	type target struct {
		column string
		levels []float64
	}
	var targets []target
	queued := map[string]bool{}
	for _, s := range rep.Summaries {
		if roles.has(s.Name) {
			continue
		}
		if levels, ok := cfg.Categorical[s.Name]; ok {
			targets = append(targets, target{s.Name, levels})
			queued[s.Name] = true
		}
		rec, ok := ClassifyCategorical(s, cfg.Summary.MaxLevels)
		if src, err := t.Column(s.Name); err == nil {
			if _, reason, bad := OrdinalEffect(s, src, fit, roles.Fitted, cfg.Summary.MaxLevels); bad {
				if !ok {
					rec, ok = Recommendation{Column: s.Name, Levels: levelsOf(s)}, true
				}
				rec.Reasons = append(rec.Reasons, reason)
			}
		}
		if ok {
			rep.Recommendations = append(rep.Recommendations, rec)
			if cfg.AutoCategorical && !queued[s.Name] {
				targets = append(targets, target{s.Name, rec.Levels})
				queued[s.Name] = true
			}
		}
	}
	// Configured columns that are roles or absent are still attempted so the
	// caller hears about the mistake.
	var extra []string
	for name := range cfg.Categorical {
		if !queued[name] {
			extra = append(extra, name)
		}
	}
	sort.Strings(extra)
	for _, name := range extra {
		targets = append(targets, target{name, cfg.Categorical[name]})
	}
	if len(targets) == 0 {
		return nil
	}

	expanded := t
	for _, tg := range targets {
		next, ws, err := ExpandCategorical(expanded, tg.column, tg.levels)
		if err != nil {
			return err
		}
		if cfg.StrictCategories {
			if err := StrictCategories(ws); err != nil {
				return err
			}
		}
		warn(ws)
		log.Info("expanded categorical column", zap.String("column", tg.column), zap.Int("levels", len(tg.levels)))
		ex := ExpansionResult{Column: tg.column, Levels: append([]float64(nil), tg.levels...)}
		for _, v := range tg.levels {
			ex.Columns = append(ex.Columns, ExpansionColumn(tg.column, v))
		}
		rep.Expansions = append(rep.Expansions, ex)
		expanded = next
	}
	rep.Expanded = expanded

	// Warnings here repeat the ones already raised on the input table, apart
	// from constant indicators for unused levels, which the summaries show.
	m, _, err := CorrelationMatrix(expanded, nil)
	if err != nil {
		rep.Notes = append(rep.Notes, fmt.Sprintf("expanded correlation matrix skipped: %v", err))
		return nil
	}
	rep.ExpandedCorrelation = m

	for i := range rep.Expansions {
		ex := &rep.Expansions[i]
		src, err := t.Column(ex.Column)
		if err != nil {
			continue
		}
		ex.FittedCorrelation = indicatorCorrelations(src, fit, ex.Levels)
		ex.Monotone = monotone(byLevel(ex.Levels, ex.FittedCorrelation))
	}
	return nil
}

// byLevel returns vals reordered by ascending level.
func byLevel(levels, vals []float64) []float64 {
	idx := make([]int, len(levels))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool { return levels[idx[a]] < levels[idx[b]] })
	out := make([]float64, len(idx))
	for i, k := range idx {
		out[i] = vals[k]
	}
	return out
}

func hints(rep *Report, cfg Config, roles Roles) []Hint {
	var out []Hint
	m := rep.Correlation
	if m != nil {
		degenerate := map[string]bool{}
		for _, d := range m.Degenerate {
			degenerate[d] = true
		}
		var preds []string
		for _, c := range m.Columns {
			if !roles.has(c) && !degenerate[c] {
				preds = append(preds, c)
			}
		}
		for _, p := range m.TopPairs(0) {
			if roles.has(p.A) || roles.has(p.B) || degenerate[p.A] || degenerate[p.B] {
				continue
			}
			if math.Abs(p.Value) >= cfg.CollinearityThreshold {
				out = append(out, Hint{
					Kind:    HintCollinear,
					Columns: []string{p.A, p.B},
					Value:   p.Value,
					Message: fmt.Sprintf("%s and %s are correlated (r=%.2f); consider dropping one or adding an interaction term", p.A, p.B, p.Value),
				})
			}
		}
		if _, ok := m.At(roles.Fitted, roles.Fitted); ok && !degenerate[roles.Fitted] {
			for _, c := range preds {
				r, ok := m.At(c, roles.Fitted)
				if ok && math.Abs(r) < cfg.WeakPredictorThreshold {
					out = append(out, Hint{
						Kind:    HintWeakPredictor,
						Columns: []string{c},
						Value:   r,
						Message: fmt.Sprintf("%s barely correlates with %s (r=%.4f); it contributes little linearly and may be dropped or interacted", c, roles.Fitted, r),
					})
				}
			}
		}
	}
	for _, s := range rep.Summaries {
		if roles.has(s.Name) || s.Count < 3 {
			continue
		}
		if s.Skew > cfg.SkewThreshold && s.Min > 0 {
			out = append(out, Hint{
				Kind:    HintLogTransform,
				Columns: []string{s.Name},
				Value:   s.Skew,
				Message: fmt.Sprintf("%s is right-skewed (skew %.2f) and strictly positive; a log transform may linearize it", s.Name, s.Skew),
			})
		}
	}
	return out
}
