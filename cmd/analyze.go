package cmd

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/KaramelBytes/fitcheck-cli/internal/analysis"
	cfgpkg "github.com/KaramelBytes/fitcheck-cli/internal/config"
	"github.com/KaramelBytes/fitcheck-cli/internal/dataset"
	"github.com/KaramelBytes/fitcheck-cli/internal/histogram"
	"github.com/KaramelBytes/fitcheck-cli/internal/utils"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// loadFlags are the input parsing flags shared by analyze, analyze-batch and expand.
type loadFlags struct {
	delimiter  string
	decimal    string
	thousands  string
	maxRows    int
	sheetName  string
	sheetIndex int
}

func (lf *loadFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&lf.delimiter, "delimiter", "", "CSV delimiter: ',' | ';' | 'tab' (default ',' or tab for .tsv)")
	cmd.Flags().StringVar(&lf.decimal, "decimal", "", "decimal separator for numbers: '.'|'comma'")
	cmd.Flags().StringVar(&lf.thousands, "thousands", "", "thousands separator for numbers: ','|'.'|'space'")
	cmd.Flags().IntVar(&lf.maxRows, "max-rows", 0, "maximum rows to load (0 = unlimited)")
	cmd.Flags().StringVar(&lf.sheetName, "sheet-name", "", "XLSX: sheet name to analyze")
	cmd.Flags().IntVar(&lf.sheetIndex, "sheet-index", 1, "XLSX: 1-based sheet index (used if --sheet-name not provided)")
}

func (lf *loadFlags) options() (dataset.Options, error) {
	opt := dataset.DefaultOptions()
	if lf.maxRows > 0 {
		opt.MaxRows = lf.maxRows
	}
	opt.SheetName = lf.sheetName
	opt.SheetIndex = lf.sheetIndex
	if lf.delimiter != "" {
		switch lf.delimiter {
		case ",":
			opt.Delimiter = ','
		case "\t", "tab":
			opt.Delimiter = '\t'
		case ";":
			opt.Delimiter = ';'
		default:
			return opt, fmt.Errorf("unsupported --delimiter: %s", lf.delimiter)
		}
	}
	// Locale separators
	switch strings.ToLower(strings.TrimSpace(lf.decimal)) {
	case ",", "comma":
		opt.DecimalSeparator = ','
	case ".", "dot":
		opt.DecimalSeparator = '.'
	case "":
	default:
		return opt, fmt.Errorf("unsupported --decimal: %s (use '.'|'comma')", lf.decimal)
	}
	switch strings.ToLower(strings.TrimSpace(lf.thousands)) {
	case ",":
		opt.ThousandsSeparator = ','
	case ".":
		opt.ThousandsSeparator = '.'
	case "space", " ":
		opt.ThousandsSeparator = ' '
	case "":
	default:
		return opt, fmt.Errorf("unsupported --thousands: %s (use ','|'.'|'space')", lf.thousands)
	}
	if opt.DecimalSeparator != 0 && opt.DecimalSeparator == opt.ThousandsSeparator {
		return opt, fmt.Errorf("--decimal and --thousands must differ")
	}
	return opt, nil
}

// evalFlags are the analysis flags shared by analyze and analyze-batch.
type evalFlags struct {
	categorical []string
	noAuto      bool
	strict      bool
	poor        float64
	marginal    float64
	residual    string
	fitted      string
	observed    string
}

func (ef *evalFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringArrayVar(&ef.categorical, "categorical", nil, "expand a column into indicators: COL=v1,v2,... (repeatable)")
	cmd.Flags().BoolVar(&ef.noAuto, "no-auto-categorical", false, "only expand columns named with --categorical")
	cmd.Flags().BoolVar(&ef.strict, "strict", false, "fail when a categorical column has values outside its levels")
	cmd.Flags().Float64Var(&ef.poor, "poor-threshold", 0, "relative error std (%) above which the model is Poor (overrides config)")
	cmd.Flags().Float64Var(&ef.marginal, "marginal-threshold", 0, "relative error std (%) above which the model is Marginal (overrides config)")
	cmd.Flags().StringVar(&ef.residual, "residual-column", "", "residual column name (overrides config)")
	cmd.Flags().StringVar(&ef.fitted, "fitted-column", "", "fitted values column name (overrides config)")
	cmd.Flags().StringVar(&ef.observed, "observed-column", "", "observed values column name (overrides config)")
}

// analysisConfig maps the global configuration and flags onto analysis.Config.
func (ef *evalFlags) analysisConfig(c *cfgpkg.Global) (analysis.Config, error) {
	ac := analysis.DefaultConfig()
	ac.Roles = analysis.Roles{Observed: c.ObservedColumn, Residual: c.ResidualColumn, Fitted: c.FittedColumn}
	ac.Summary.MaxLevels = c.MaxLevels
	ac.Quality = analysis.QualityOptions{NearZero: c.NearZero, BiasThreshold: c.BiasThreshold}
	ac.Policy = analysis.VerdictPolicy{
		PoorRelErrStd:     c.PoorRelErrStd,
		MarginalRelErrStd: c.MarginalRelErrStd,
		MaxAbsRelErrMean:  c.MaxAbsRelErrMean,
		BiasThreshold:     c.BiasThreshold,
	}
	ac.IdentityTolerance = c.IdentityTolerance
	ac.CollinearityThreshold = c.CollinearityThreshold
	ac.WeakPredictorThreshold = c.WeakPredictorThreshold
	ac.SkewThreshold = c.SkewThreshold
	ac.AutoCategorical = c.AutoCategorical && !ef.noAuto
	ac.StrictCategories = ef.strict
	ac.Logger = logger

	if ef.poor > 0 {
		ac.Policy.PoorRelErrStd = ef.poor
	}
	if ef.marginal > 0 {
		ac.Policy.MarginalRelErrStd = ef.marginal
	}
	if ac.Policy.MarginalRelErrStd > ac.Policy.PoorRelErrStd {
		return ac, fmt.Errorf("marginal threshold %g exceeds poor threshold %g", ac.Policy.MarginalRelErrStd, ac.Policy.PoorRelErrStd)
	}
	if ef.residual != "" {
		ac.Roles.Residual = ef.residual
	}
	if ef.fitted != "" {
		ac.Roles.Fitted = ef.fitted
	}
	if ef.observed != "" {
		ac.Roles.Observed = ef.observed
	}
	if len(ef.categorical) > 0 {
		ac.Categorical = make(map[string][]float64, len(ef.categorical))
		for _, spec := range ef.categorical {
			name, levels, err := parseCategorical(spec)
			if err != nil {
				return ac, err
			}
			ac.Categorical[name] = levels
		}
	}
	return ac, nil
}

// parseCategorical parses COL=v1,v2,...
func parseCategorical(s string) (string, []float64, error) {
	name, list, ok := strings.Cut(s, "=")
	name = strings.TrimSpace(name)
	if !ok || name == "" {
		return "", nil, fmt.Errorf("invalid --categorical %q (use COL=v1,v2,...)", s)
	}
	levels, err := analysis.ParseLevels(list)
	if err != nil {
		return "", nil, fmt.Errorf("invalid --categorical %q: %w", s, err)
	}
	return name, levels, nil
}

// renderReport formats a report as markdown, json or table.
func renderReport(rep *analysis.Report, format string) ([]byte, error) {
	switch strings.ToLower(format) {
	case "", "markdown", "md":
		return []byte(rep.Markdown()), nil
	case "json":
		return utils.PrettyJSON(rep)
	case "table":
		var buf bytes.Buffer
		rep.RenderTable(&buf)
		return buf.Bytes(), nil
	default:
		return nil, fmt.Errorf("unsupported --format: %s (use markdown|json|table)", format)
	}
}

// histogramPath derives the grid image path written next to a report.
func histogramPath(reportPath string) string {
	return strings.TrimSuffix(reportPath, filepath.Ext(reportPath)) + "_histograms.png"
}

var (
	anaLoad        loadFlags
	anaEval        evalFlags
	anaOutputPath  string
	anaFormat      string
	anaHistograms  string
	anaNoHist      bool
	anaBins        int
	anaExpandedOut string
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <file> [-o report]",
	Short: "Evaluate model fit quality for a CSV/TSV/XLSX export",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := args[0]
		c := currentConfig()
		opt, err := anaLoad.options()
		if err != nil {
			return err
		}
		ac, err := anaEval.analysisConfig(c)
		if err != nil {
			return err
		}
		format := c.OutputFormat
		if cmd.Flags().Changed("format") {
			format = anaFormat
		}

		t, err := dataset.Load(path, opt)
		if err != nil {
			return err
		}
		rep, err := analysis.Evaluate(t, ac)
		if err != nil {
			return err
		}
		out, err := renderReport(rep, format)
		if err != nil {
			return err
		}

		w := cmd.OutOrStdout()
		if anaOutputPath != "" {
			if err := utils.EnsureDir(filepath.Dir(anaOutputPath)); err != nil {
				return err
			}
			if err := utils.SafeWriteFile(anaOutputPath, out); err != nil {
				return fmt.Errorf("write output: %w", err)
			}
			fmt.Fprintf(w, "✓ Wrote %s report to %s (verdict: %s)\n", format, anaOutputPath, rep.Verdict.Grade)
		} else {
			fmt.Fprintln(w, string(out))
		}

		hist := anaHistograms
		if hist == "" && anaOutputPath != "" {
			hist = histogramPath(anaOutputPath)
		}
		if hist != "" && !anaNoHist {
			bins := c.HistogramBins
			if anaBins > 0 {
				bins = anaBins
			}
			if err := histogram.WriteGrid(t, hist, histogram.Options{Bins: bins}); err != nil {
				return err
			}
			logger.Info("histograms written", zap.String("path", hist), zap.Int("columns", len(t.Columns())))
			fmt.Fprintf(w, "✓ Wrote histograms to %s\n", hist)
		}

		if anaExpandedOut != "" {
			if err := writeTableCSV(rep.Expanded, anaExpandedOut); err != nil {
				return err
			}
			fmt.Fprintf(w, "✓ Wrote expanded table to %s\n", anaExpandedOut)
		}
		if n := len(rep.Warnings); n > 0 && anaOutputPath != "" {
			fmt.Fprintf(w, "⚠ %d data quality warning(s); see report\n", n)
		}
		return nil
	},
}

func writeTableCSV(t *dataset.Table, path string) error {
	var buf bytes.Buffer
	if err := t.WriteCSV(&buf); err != nil {
		return fmt.Errorf("encode csv: %w", err)
	}
	if err := utils.EnsureDir(filepath.Dir(path)); err != nil {
		return err
	}
	if err := utils.SafeWriteFile(path, buf.Bytes()); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

func init() {
	rootCmd.AddCommand(analyzeCmd)
	analyzeCmd.Flags().StringVarP(&anaOutputPath, "output", "o", "", "optional path to write the report (histograms go next to it)")
	analyzeCmd.Flags().StringVar(&anaFormat, "format", "markdown", "report format: markdown|json|table (overrides config)")
	analyzeCmd.Flags().StringVar(&anaHistograms, "histograms", "", "path of the histogram grid image (.png, .jpg or .svg)")
	analyzeCmd.Flags().BoolVar(&anaNoHist, "no-histograms", false, "do not write the histogram grid")
	analyzeCmd.Flags().IntVar(&anaBins, "bins", 0, "bins per histogram (overrides config)")
	analyzeCmd.Flags().StringVar(&anaExpandedOut, "expanded-out", "", "write the table with categorical indicator columns to this CSV")
	anaLoad.register(analyzeCmd)
	anaEval.register(analyzeCmd)
}
