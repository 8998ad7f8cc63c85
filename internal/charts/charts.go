// Package charts renders derived views as SVG images with gonum/plot.
package charts

import (
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/JonMunkholm/eurometrics/internal/core"
)

// Default image size.
const (
	Width  = 8 * vg.Inch
	Height = 4 * vg.Inch
)

// Bin counts used by the explorer and inflation pages.
const (
	ExplorerBins  = 30
	InflationBins = 20
)

// ErrNoData is returned when there is nothing to draw.
var ErrNoData = errors.New("no data to plot")

func newPlot(title, xLabel, yLabel string) *plot.Plot {
	p := plot.New()
	p.Title.Text = title
	p.Title.TextStyle.Font.Size = vg.Points(14)
	p.X.Label.Text = xLabel
	p.Y.Label.Text = yLabel
	p.Add(plotter.NewGrid())
	return p
}

func render(w io.Writer, p *plot.Plot) error {
	wt, err := p.WriterTo(Width, Height, "svg")
	if err != nil {
		return fmt.Errorf("render svg: %w", err)
	}
	if _, err := wt.WriteTo(w); err != nil {
		return fmt.Errorf("write svg: %w", err)
	}
	return nil
}

// yearTicks labels the X axis with whole years only.
type yearTicks struct{}

func (yearTicks) Ticks(min, max float64) []plot.Tick {
	var ticks []plot.Tick
	step := math.Max(1, math.Ceil((max-min)/10))
	for y := math.Ceil(min); y <= max; y += step {
		ticks = append(ticks, plot.Tick{Value: y, Label: strconv.Itoa(int(y))})
	}
	return ticks
}

// Lines draws one line per series against years.
func Lines(w io.Writer, title, yLabel string, series []core.Series) error {
	p := newPlot(title, "Year", yLabel)
	p.X.Tick.Marker = yearTicks{}

	drawn := 0
	for i, s := range series {
		if len(s.Points) == 0 {
			continue
		}
		xys := make(plotter.XYs, len(s.Points))
		for j, pt := range s.Points {
			xys[j].X = float64(pt.Year)
			xys[j].Y = pt.Value
		}
		line, points, err := plotter.NewLinePoints(xys)
		if err != nil {
			return fmt.Errorf("series %s: %w", s.Name, err)
		}
		line.Color = plotutil.Color(i)
		line.Width = vg.Points(2)
		points.Color = plotutil.Color(i)
		points.Shape = draw.CircleGlyph{}
		p.Add(line, points)
		p.Legend.Add(s.Name, line)
		drawn++
	}
	if drawn == 0 {
		return ErrNoData
	}
	p.Legend.Top = true
	return render(w, p)
}

// Bars draws one bar per label.
func Bars(w io.Writer, title, yLabel string, labels []string, values []float64) error {
	if len(values) == 0 || len(labels) != len(values) {
		return ErrNoData
	}
	p := newPlot(title, "", yLabel)

	bars, err := plotter.NewBarChart(plotter.Values(values), vg.Points(20))
	if err != nil {
		return fmt.Errorf("bar chart: %w", err)
	}
	bars.Color = plotutil.Color(0)
	bars.LineStyle.Width = vg.Length(0)
	p.Add(bars)
	p.NominalX(labels...)
	return render(w, p)
}

// Histogram draws the distribution of values in the given number of bins.
func Histogram(w io.Writer, title, xLabel string, values []float64, bins int) error {
	if len(values) == 0 {
		return ErrNoData
	}
	p := newPlot(title, xLabel, "Count")

	h, err := plotter.NewHist(plotter.Values(values), bins)
	if err != nil {
		return fmt.Errorf("histogram: %w", err)
	}
	h.FillColor = plotutil.Color(0)
	p.Add(h)
	return render(w, p)
}

// BoxPlots draws one box per region.
func BoxPlots(w io.Writer, title, yLabel string, groups []core.Group) error {
	var names []string
	p := newPlot(title, "", yLabel)
	for _, g := range groups {
		if len(g.Values) == 0 {
			continue
		}
		box, err := plotter.NewBoxPlot(vg.Points(20), float64(len(names)), plotter.Values(g.Values))
		if err != nil {
			return fmt.Errorf("box %s: %w", g.Region, err)
		}
		box.FillColor = plotutil.Color(len(names))
		p.Add(box)
		names = append(names, g.Region)
	}
	if len(names) == 0 {
		return ErrNoData
	}
	p.NominalX(names...)
	return render(w, p)
}

// Scatter draws one colour per region. Glyph size follows population where
// a point carries one.
func Scatter(w io.Writer, title, xLabel, yLabel string, points []core.ScatterPoint) error {
	if len(points) == 0 {
		return ErrNoData
	}
	p := newPlot(title, xLabel, yLabel)

	maxSize := 0.0
	for _, pt := range points {
		if pt.Size != nil {
			maxSize = math.Max(maxSize, *pt.Size)
		}
	}

	order := []string{}
	byRegion := make(map[string][]core.ScatterPoint)
	for _, pt := range points {
		if _, ok := byRegion[pt.Region]; !ok {
			order = append(order, pt.Region)
		}
		byRegion[pt.Region] = append(byRegion[pt.Region], pt)
	}

	for i, region := range order {
		group := byRegion[region]
		xys := make(plotter.XYs, len(group))
		for j, pt := range group {
			xys[j].X, xys[j].Y = pt.X, pt.Y
		}
		s, err := plotter.NewScatter(xys)
		if err != nil {
			return fmt.Errorf("scatter %s: %w", region, err)
		}
		c := plotutil.Color(i)
		s.GlyphStyleFunc = func(j int) draw.GlyphStyle {
			radius := vg.Points(4)
			if size := group[j].Size; size != nil && maxSize > 0 {
				radius = vg.Points(3 + 9*math.Sqrt(*size/maxSize))
			}
			return draw.GlyphStyle{Color: c, Radius: radius, Shape: draw.CircleGlyph{}}
		}
		p.Add(s)
		name := region
		if name == "" {
			name = core.AllRegions
		}
		p.Legend.Add(name, s)
	}
	p.Legend.Top = true
	return render(w, p)
}

// heatGrid adapts a core.Heatmap to plotter.GridXYZ; columns are years,
// rows are regions.
type heatGrid struct {
	h core.Heatmap
}

func (g heatGrid) Dims() (c, r int) { return len(g.h.Years), len(g.h.Regions) }
func (g heatGrid) X(c int) float64  { return float64(c) }
func (g heatGrid) Y(r int) float64  { return float64(r) }

func (g heatGrid) Z(c, r int) float64 {
	if v := g.h.Values[r][c]; v != nil {
		return *v
	}
	return math.NaN()
}

// Heatmap draws region by year mean values.
func Heatmap(w io.Writer, title string, h core.Heatmap) error {
	hasValue := false
	for _, row := range h.Values {
		for _, v := range row {
			hasValue = hasValue || v != nil
		}
	}
	if !hasValue {
		return ErrNoData
	}

	p := newPlot(title, "Year", "")
	hm := plotter.NewHeatMap(heatGrid{h: h}, palette.Heat(12, 1))
	if hm.Max == hm.Min {
		hm.Max = hm.Min + 1
	}
	p.Add(hm)

	years := make([]string, len(h.Years))
	for i, y := range h.Years {
		years[i] = strconv.Itoa(y)
	}
	p.NominalX(years...)
	p.NominalY(h.Regions...)
	return render(w, p)
}
