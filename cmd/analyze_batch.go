package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/KaramelBytes/fitcheck-cli/internal/analysis"
	"github.com/KaramelBytes/fitcheck-cli/internal/dataset"
	"github.com/KaramelBytes/fitcheck-cli/internal/histogram"
	"github.com/KaramelBytes/fitcheck-cli/internal/utils"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	abLoad       loadFlags
	abEval       evalFlags
	abOutDir     string
	abFormat     string
	abHistograms bool
	abQuiet      bool
	abFailFast   bool
)

var analyzeBatchCmd = &cobra.Command{
	Use:   "analyze-batch <files...>",
	Short: "Evaluate multiple CSV/TSV/XLSX exports and print a verdict table",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		files := expandGlobs(args)
		if len(files) == 0 {
			return fmt.Errorf("no input files matched")
		}
		c := currentConfig()
		opt, err := abLoad.options()
		if err != nil {
			return err
		}
		ac, err := abEval.analysisConfig(c)
		if err != nil {
			return err
		}
		format := c.OutputFormat
		if cmd.Flags().Changed("format") {
			format = abFormat
		}
		if abHistograms && abOutDir == "" {
			return fmt.Errorf("--histograms requires --out-dir")
		}
		if abOutDir != "" {
			if err := utils.EnsureDir(abOutDir); err != nil {
				return err
			}
		}

		w := cmd.OutOrStdout()
		var reports []*analysis.Report
		var failed []string
		total := len(files)
		for i, path := range files {
			if !abQuiet {
				fmt.Fprintf(w, "[%d/%d] Processing %s...\n", i+1, total, filepath.Base(path))
			}
			rep, err := evaluateFile(path, opt, ac)
			if err != nil {
				if abFailFast {
					return err
				}
				logger.Error("analysis failed", zap.String("file", path), zap.Error(err))
				fmt.Fprintf(w, "✗ %s: %v\n", path, err)
				failed = append(failed, path)
				continue
			}
			reports = append(reports, rep)

			out, err := renderReport(rep, format)
			if err != nil {
				return err
			}
			if abOutDir == "" {
				if !abQuiet {
					fmt.Fprintln(w, string(out))
				}
				continue
			}
			outFile := uniquePath(abOutDir, reportBase(path), reportExt(format))
			if err := utils.SafeWriteFile(outFile, out); err != nil {
				return fmt.Errorf("write report: %w", err)
			}
			if !abQuiet {
				fmt.Fprintf(w, "✓ Wrote %s\n", outFile)
			}
			if abHistograms {
				hist := filepath.Join(abOutDir, strings.TrimSuffix(filepath.Base(outFile), reportExt(format))+"_histograms.png")
				if err := histogram.WriteGrid(rep.Expanded, hist, histogram.Options{Bins: c.HistogramBins, Columns: rep.Columns}); err != nil {
					return err
				}
				if !abQuiet {
					fmt.Fprintf(w, "✓ Wrote %s\n", hist)
				}
			}
		}

		if len(reports) > 0 {
			analysis.RenderVerdicts(w, reports)
		}
		if len(failed) > 0 {
			return fmt.Errorf("%d of %d file(s) failed: %s", len(failed), total, strings.Join(failed, ", "))
		}
		return nil
	},
}

func evaluateFile(path string, opt dataset.Options, ac analysis.Config) (*analysis.Report, error) {
	t, err := dataset.Load(path, opt)
	if err != nil {
		return nil, err
	}
	return analysis.Evaluate(t, ac)
}

// expandGlobs resolves glob patterns and literal paths, de-duplicated and sorted.
func expandGlobs(args []string) []string {
	var files []string
	seen := map[string]struct{}{}
	for _, arg := range args {
		matches, _ := filepath.Glob(arg)
		if len(matches) == 0 {
			// treat as literal path if exists
			if _, err := os.Stat(arg); err == nil {
				matches = []string{arg}
			}
		}
		for _, m := range matches {
			if _, ok := seen[m]; ok {
				continue
			}
			seen[m] = struct{}{}
			files = append(files, m)
		}
	}
	sort.Strings(files)
	return files
}

func reportBase(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func reportExt(format string) string {
	switch strings.ToLower(format) {
	case "json":
		return ".report.json"
	case "table":
		return ".report.txt"
	default:
		return ".report.md"
	}
}

// uniquePath returns dir/base+ext, or dir/base__N+ext when that already exists.
func uniquePath(dir, base, ext string) string {
	outFile := filepath.Join(dir, base+ext)
	if _, statErr := os.Stat(outFile); statErr != nil {
		return outFile
	}
	idx := 2
	for {
		cand := filepath.Join(dir, fmt.Sprintf("%s__%d%s", base, idx, ext))
		if _, err := os.Stat(cand); os.IsNotExist(err) {
			logger.Warn("existing report detected; writing alongside", zap.String("path", cand))
			return cand
		}
		idx++
	}
}

func init() {
	rootCmd.AddCommand(analyzeBatchCmd)
	analyzeBatchCmd.Flags().StringVar(&abOutDir, "out-dir", "", "directory for per-file reports (default: print to stdout)")
	analyzeBatchCmd.Flags().StringVar(&abFormat, "format", "markdown", "report format: markdown|json|table (overrides config)")
	analyzeBatchCmd.Flags().BoolVar(&abHistograms, "histograms", false, "also write a histogram grid per file into --out-dir")
	analyzeBatchCmd.Flags().BoolVar(&abQuiet, "quiet", false, "suppress progress and non-essential output")
	analyzeBatchCmd.Flags().BoolVar(&abFailFast, "fail-fast", false, "stop at the first file that fails to load or evaluate")
	abLoad.register(analyzeBatchCmd)
	abEval.register(analyzeBatchCmd)
}
