package cmd

import (
	"fmt"

	"github.com/KaramelBytes/fitcheck-cli/internal/analysis"
	"github.com/KaramelBytes/fitcheck-cli/internal/dataset"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	exLoad   loadFlags
	exColumn string
	exValues string
	exOutput string
	exStrict bool
)

var expandCmd = &cobra.Command{
	Use:   "expand <file> --column COL --values v1,v2,... -o out.csv",
	Short: "Append 0/1 indicator columns for an integer-coded categorical column",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if exColumn == "" {
			return fmt.Errorf("--column is required")
		}
		levels, err := analysis.ParseLevels(exValues)
		if err != nil {
			return fmt.Errorf("--values: %w", err)
		}
		opt, err := exLoad.options()
		if err != nil {
			return err
		}
		t, err := dataset.Load(args[0], opt)
		if err != nil {
			return err
		}
		out, warns, err := analysis.ExpandCategorical(t, exColumn, levels)
		if err != nil {
			return err
		}
		if exStrict {
			if err := analysis.StrictCategories(warns); err != nil {
				return err
			}
		}
		w := cmd.OutOrStdout()
		for _, wn := range warns {
			logger.Warn(wn.Message, zap.String("kind", string(wn.Kind)), zap.String("column", wn.Column), zap.Ints("rows", wn.Rows))
			fmt.Fprintf(w, "⚠ %s\n", wn.Message)
		}
		if exOutput == "" {
			return out.WriteCSV(w)
		}
		if err := writeTableCSV(out, exOutput); err != nil {
			return err
		}
		fmt.Fprintf(w, "✓ Wrote %d rows with %d indicator column(s) to %s\n", out.Rows(), len(levels), exOutput)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(expandCmd)
	expandCmd.Flags().StringVar(&exColumn, "column", "", "column to expand")
	expandCmd.Flags().StringVar(&exValues, "values", "", "comma-separated known levels, e.g. 1,2,3,4")
	expandCmd.Flags().StringVarP(&exOutput, "output", "o", "", "output CSV path (default: stdout)")
	expandCmd.Flags().BoolVar(&exStrict, "strict", false, "fail when a row's value is not one of --values")
	exLoad.register(expandCmd)
}
