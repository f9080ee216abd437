package analysis

import (
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// RenderTable writes the report as terminal tables: fit quality and verdict,
// then column summaries, then warnings.
func (r *Report) RenderTable(w io.Writer) {
	q := r.Quality
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetTitle(fmt.Sprintf("FIT QUALITY: %s", r.Name))
	t.AppendHeader(table.Row{"Measure", "Value"})
	t.AppendRows([]table.Row{
		{"Rows", fmt.Sprintf("%d (%d used for relative error)", q.Rows, q.RelErrRows)},
		{"Relative error mean %", q.RelErrMean.format("%.4f")},
		{"Relative error std %", q.RelErrStd.format("%.4f")},
		{"Residual std / fitted std", q.StdRatio.format("%.4f")},
		{"Residual std / fitted mean", q.MeanRatio.format("%.4f")},
		{"RMSE", q.RMSE.format("%.4g")},
		{"MAE", q.MAE.format("%.4g")},
		{"r(residual, fitted)", q.Correlation.format("%.6f")},
	})
	t.AppendSeparator()
	t.AppendRow(table.Row{"Verdict", r.Verdict.Grade})
	for _, reason := range r.Verdict.Reasons {
		t.AppendRow(table.Row{"", reason})
	}
	t.SetColumnConfigs([]table.ColumnConfig{{Number: 2, WidthMax: 80}})
	t.Render()

	s := table.NewWriter()
	s.SetOutputMirror(w)
	s.SetTitle("COLUMNS")
	s.AppendHeader(table.Row{"Column", "Count", "Missing", "Mean", "Std", "Min", "25%", "50%", "75%", "Max"})
	for _, c := range r.Summaries {
		s.AppendRow(table.Row{c.Name, c.Count, c.Missing,
			num(c.Mean), num(c.Std), num(c.Min), num(c.P25), num(c.P50), num(c.P75), num(c.Max)})
	}
	cfgs := make([]table.ColumnConfig, 0, 9)
	for n := 2; n <= 10; n++ {
		cfgs = append(cfgs, table.ColumnConfig{Number: n, Align: text.AlignRight})
	}
	s.SetColumnConfigs(cfgs)
	s.Render()

	if len(r.Warnings) == 0 && len(r.Hints) == 0 {
		return
	}
	ww := table.NewWriter()
	ww.SetOutputMirror(w)
	ww.SetTitle("WARNINGS AND HINTS")
	ww.AppendHeader(table.Row{"Kind", "Message"})
	for _, x := range r.Warnings {
		ww.AppendRow(table.Row{x.Kind, x.Message})
	}
	if len(r.Warnings) > 0 && len(r.Hints) > 0 {
		ww.AppendSeparator()
	}
	for _, h := range r.Hints {
		ww.AppendRow(table.Row{h.Kind, h.Message})
	}
	ww.SetColumnConfigs([]table.ColumnConfig{{Number: 2, WidthMax: 100}})
	ww.Render()
}

// RenderVerdicts writes one row per report, as printed at the end of a batch run.
func RenderVerdicts(w io.Writer, reports []*Report) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetTitle("VERDICTS")
	t.AppendHeader(table.Row{"File", "Rows", "Rel. err mean %", "Rel. err std %", "r(res, fit)", "Grade"})
	for _, r := range reports {
		q := r.Quality
		t.AppendRow(table.Row{r.Name, r.Rows, q.RelErrMean.format("%.2f"), q.RelErrStd.format("%.2f"), q.Correlation.format("%.4f"), r.Verdict.Grade})
	}
	t.Render()
}

func num(v float64) string { return fmt.Sprintf("%.4g", v) }
