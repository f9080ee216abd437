// Package histogram draws per-column histograms of a dataset on one image.
package histogram

import (
	"bytes"
	"fmt"
	"io"
	"math"
	"path/filepath"
	"strings"

	"github.com/KaramelBytes/fitcheck-cli/internal/dataset"
	"github.com/KaramelBytes/fitcheck-cli/internal/utils"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"
	"gonum.org/v1/plot/vg/vgsvg"
)

// Options controls the histogram grid.
type Options struct {
	// Bins per histogram. 0 means 10.
	Bins int
	// Columns to draw, in order. Empty means every column.
	Columns []string
	// Width and Height of one grid cell. 0 means 3 inches.
	Width, Height vg.Length
}

// Grid returns the rows and columns of the most nearly square grid holding n cells.
func Grid(n int) (rows, cols int) {
	if n <= 0 {
		return 0, 0
	}
	cols = int(math.Ceil(math.Sqrt(float64(n))))
	rows = (n + cols - 1) / cols
	return rows, cols
}

// WriteGrid draws one histogram per column and writes the grid to path.
// The format follows the extension: .png, .jpg/.jpeg or .svg.
func WriteGrid(t *dataset.Table, path string, opt Options) error {
	var buf bytes.Buffer
	if err := Render(t, &buf, formatOf(path), opt); err != nil {
		return err
	}
	return utils.SafeWriteFile(path, buf.Bytes())
}

// Render draws the grid in the given format ("png", "jpg" or "svg") to w.
func Render(t *dataset.Table, w io.Writer, format string, opt Options) error {
	switch format {
	case "png", "jpg", "svg":
	default:
		return fmt.Errorf("unsupported histogram format %q (use .png, .jpg or .svg)", format)
	}
	names := opt.Columns
	if len(names) == 0 {
		names = t.Columns()
	}
	if len(names) == 0 {
		return fmt.Errorf("histogram: no columns")
	}
	bins := opt.Bins
	if bins <= 0 {
		bins = 10
	}
	cw, ch := opt.Width, opt.Height
	if cw <= 0 {
		cw = 3 * vg.Inch
	}
	if ch <= 0 {
		ch = 3 * vg.Inch
	}

	rows, cols := Grid(len(names))
	plots := make([][]*plot.Plot, rows)
	for j := range plots {
		plots[j] = make([]*plot.Plot, cols)
		for i := range plots[j] {
			k := j*cols + i
			if k >= len(names) {
				p := plot.New()
				p.HideAxes()
				plots[j][i] = p
				continue
			}
			p, err := columnPlot(t, names[k], bins)
			if err != nil {
				return err
			}
			plots[j][i] = p
		}
	}

	width, height := cw*vg.Length(cols), ch*vg.Length(rows)
	var (
		canvas vg.CanvasSizer
		write  func(io.Writer) (int64, error)
	)
	switch format {
	case "svg":
		c := vgsvg.New(width, height)
		canvas, write = c, c.WriteTo
	default:
		img := vgimg.New(width, height)
		canvas = img
		if format == "jpg" {
			write = vgimg.JpegCanvas{Canvas: img}.WriteTo
		} else {
			write = vgimg.PngCanvas{Canvas: img}.WriteTo
		}
	}

	dc := draw.New(canvas)
	tiles := draw.Tiles{
		Rows:      rows,
		Cols:      cols,
		PadX:      vg.Millimeter * 4,
		PadY:      vg.Millimeter * 4,
		PadTop:    vg.Millimeter * 2,
		PadBottom: vg.Millimeter * 2,
		PadLeft:   vg.Millimeter * 2,
		PadRight:  vg.Millimeter * 2,
	}
	canvases := plot.Align(plots, tiles, dc)
	for j := range plots {
		for i := range plots[j] {
			plots[j][i].Draw(canvases[j][i])
		}
	}
	if _, err := write(w); err != nil {
		return fmt.Errorf("write histogram image: %w", err)
	}
	return nil
}

func columnPlot(t *dataset.Table, name string, bins int) (*plot.Plot, error) {
	vals, err := t.Column(name)
	if err != nil {
		return nil, fmt.Errorf("histogram: %w", err)
	}
	clean := make(plotter.Values, 0, len(vals))
	for _, v := range vals {
		if !math.IsNaN(v) {
			clean = append(clean, v)
		}
	}
	p := plot.New()
	p.Title.Text = name
	if len(clean) == 0 {
		p.Title.Text = name + " (no data)"
		return p, nil
	}
	h, err := plotter.NewHist(clean, bins)
	if err != nil {
		return nil, fmt.Errorf("histogram %s: %w", name, err)
	}
	p.Add(h)
	return p, nil
}

func formatOf(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		return "png"
	case ".jpg", ".jpeg":
		return "jpg"
	case ".svg":
		return "svg"
	default:
		return strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	}
}
