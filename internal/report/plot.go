package report

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"

	"github.com/GoSim-25-26J-441/sweep-core/internal/result"
	"github.com/GoSim-25-26J-441/sweep-core/internal/variable"
)

var (
	ErrNoData          = errors.New("no data points to plot")
	ErrUnknownVariable = errors.New("variable not present in results")
	ErrUnknownMetric   = errors.New("metric not present in results")
)

// ChartOptions describes a metric-versus-parameter chart.
type ChartOptions struct {
	// X is the swept variable on the horizontal axis.
	X string
	// Metric is the metric on the vertical axis.
	Metric string
	Title  string
	LogY   bool
	Width  vg.Length
	Height vg.Length
}

// Series is one line of the chart: the points sharing every other varying
// parameter.
type Series struct {
	Label  string
	Points plotter.XYs
}

// BuildSeries groups results into lines along opts.X. Results missing the
// metric are left out.
func BuildSeries(m *result.Minimized, opts ChartOptions) ([]Series, error) {
	if m.Len() == 0 {
		return nil, ErrNoData
	}
	found := false
	for _, name := range m.Variants {
		if name == opts.X {
			found = true
			break
		}
	}
	if !found {
		return nil, fmt.Errorf("%w: %q is not a varying parameter", ErrUnknownVariable, opts.X)
	}

	var order []string
	groups := make(map[string]*Series)
	for _, row := range m.Rows {
		y, ok := row.Metrics[opts.Metric]
		if !ok {
			continue
		}
		x, _ := row.Variant.Get(opts.X)

		rest := make(map[string]bool, len(m.Variants))
		for _, name := range m.Variants {
			rest[name] = name != opts.X
		}
		label := seriesLabel(row.Variant.Select(rest))
		s, ok := groups[label]
		if !ok {
			s = &Series{Label: label}
			groups[label] = s
			order = append(order, label)
		}
		s.Points = append(s.Points, plotter.XY{X: x.Value, Y: y})
	}
	if len(order) == 0 {
		return nil, fmt.Errorf("%w: %q", ErrUnknownMetric, opts.Metric)
	}

	out := make([]Series, len(order))
	for i, label := range order {
		s := groups[label]
		sort.Slice(s.Points, func(a, b int) bool { return s.Points[a].X < s.Points[b].X })
		out[i] = *s
	}
	return out, nil
}

func seriesLabel(s variable.Snapshot) string {
	if s.IsEmpty() {
		return ""
	}
	label := ""
	for i, v := range s.Vars() {
		if i > 0 {
			label += ", "
		}
		label += v.String()
	}
	return label
}

// Plot renders the chart to path. The image format follows the extension.
func Plot(path string, m *result.Minimized, opts ChartOptions) error {
	series, err := BuildSeries(m, opts)
	if err != nil {
		return err
	}

	p := plot.New()
	p.Title.Text = opts.Title
	if p.Title.Text == "" {
		p.Title.Text = fmt.Sprintf("%s vs %s", opts.Metric, opts.X)
	}
	p.X.Label.Text = xLabel(m, opts.X)
	p.Y.Label.Text = opts.Metric
	if opts.LogY {
		for _, s := range series {
			for _, pt := range s.Points {
				if pt.Y <= 0 {
					return fmt.Errorf("log scale needs positive values, %s has %v", opts.Metric, pt.Y)
				}
			}
		}
		p.Y.Scale = plot.LogScale{}
		p.Y.Tick.Marker = plot.LogTicks{}
	}
	p.Add(plotter.NewGrid())

	for i, s := range series {
		if len(s.Points) == 0 {
			continue
		}
		line, points, err := plotter.NewLinePoints(s.Points)
		if err != nil {
			return fmt.Errorf("series %q: %w", s.Label, err)
		}
		c := plotutil.Color(i)
		line.Color = c
		line.Width = vg.Points(1)
		points.Color = c
		points.Shape = plotutil.Shape(i)
		p.Add(line, points)
		if s.Label != "" {
			p.Legend.Add(s.Label, line, points)
		}
	}
	p.Legend.Top = true
	p.Legend.Left = false
	p.Legend.XOffs = -10
	p.Legend.YOffs = -10

	width, height := opts.Width, opts.Height
	if width == 0 {
		width = 8 * vg.Inch
	}
	if height == 0 {
		height = 5 * vg.Inch
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create plot directory: %w", err)
	}
	if err := p.Save(width, height, path); err != nil {
		return fmt.Errorf("failed to save plot %s: %w", path, err)
	}
	return nil
}

func xLabel(m *result.Minimized, name string) string {
	if len(m.Rows) == 0 {
		return name
	}
	v, ok := m.Rows[0].Variant.Get(name)
	if !ok {
		return name
	}
	return v.DisplayName()
}
