// Package chart provides data-carrying chart artifacts the analyzers
// attach to their results. Rendering is injected: each chart holds the
// values it describes and delegates Plot to a caller-supplied Render
// function, so the engine carries no dependency on a plotting library.
package chart

import "errors"

// ErrNoRenderer is returned by Plot when no renderer has been
// attached.
var ErrNoRenderer = errors.New("no renderer attached")

// Histogram describes a binned distribution of one variable.
type Histogram struct {
	Name   string
	Values []float64
	Bins   int
	Render func(*Histogram) error
}

// NewHistogram creates a histogram artifact. Bins defaults to 10 when
// non-positive.
func NewHistogram(title string, values []float64, bins int) *Histogram {
	if bins <= 0 {
		bins = 10
	}
	return &Histogram{Name: title, Values: append([]float64(nil), values...), Bins: bins}
}

func (h *Histogram) Title() string { return h.Name }

func (h *Histogram) Plot() error {
	if h.Render == nil {
		return ErrNoRenderer
	}
	return h.Render(h)
}

// BoxPlot describes the five-number summary view of one variable.
type BoxPlot struct {
	Name   string
	Values []float64
	Render func(*BoxPlot) error
}

func NewBoxPlot(title string, values []float64) *BoxPlot {
	return &BoxPlot{Name: title, Values: append([]float64(nil), values...)}
}

func (b *BoxPlot) Title() string { return b.Name }

func (b *BoxPlot) Plot() error {
	if b.Render == nil {
		return ErrNoRenderer
	}
	return b.Render(b)
}

// Bar describes labeled bar heights, e.g. category value counts.
type Bar struct {
	Name   string
	Labels []string
	Values []float64
	Render func(*Bar) error
}

func NewBar(title string, labels []string, values []float64) *Bar {
	return &Bar{
		Name:   title,
		Labels: append([]string(nil), labels...),
		Values: append([]float64(nil), values...),
	}
}

func (b *Bar) Title() string { return b.Name }

func (b *Bar) Plot() error {
	if b.Render == nil {
		return ErrNoRenderer
	}
	return b.Render(b)
}

// Line describes an x/y line plot, e.g. an elbow curve.
type Line struct {
	Name   string
	X, Y   []float64
	XLabel string
	YLabel string
	Render func(*Line) error
}

func NewLine(title string, x, y []float64, xLabel, yLabel string) *Line {
	return &Line{
		Name:   title,
		X:      append([]float64(nil), x...),
		Y:      append([]float64(nil), y...),
		XLabel: xLabel,
		YLabel: yLabel,
	}
}

func (l *Line) Title() string { return l.Name }

func (l *Line) Plot() error {
	if l.Render == nil {
		return ErrNoRenderer
	}
	return l.Render(l)
}

// Scatter describes a 2-D or 3-D point cloud, optionally grouped by
// integer labels (cluster assignments).
type Scatter struct {
	Name    string
	X, Y, Z []float64
	Labels  []int
	XLabel  string
	YLabel  string
	Render  func(*Scatter) error
}

func NewScatter(title string, x, y []float64, labels []int, xLabel, yLabel string) *Scatter {
	return &Scatter{
		Name:   title,
		X:      append([]float64(nil), x...),
		Y:      append([]float64(nil), y...),
		Labels: append([]int(nil), labels...),
		XLabel: xLabel,
		YLabel: yLabel,
	}
}

func (s *Scatter) Title() string { return s.Name }

func (s *Scatter) Plot() error {
	if s.Render == nil {
		return ErrNoRenderer
	}
	return s.Render(s)
}

// Heatmap describes a labeled matrix, e.g. a correlation matrix.
type Heatmap struct {
	Name   string
	Rows   []string
	Cols   []string
	Matrix [][]float64
	Render func(*Heatmap) error
}

func NewHeatmap(title string, rows, cols []string, matrix [][]float64) *Heatmap {
	copied := make([][]float64, len(matrix))
	for i, row := range matrix {
		copied[i] = append([]float64(nil), row...)
	}
	return &Heatmap{
		Name:   title,
		Rows:   append([]string(nil), rows...),
		Cols:   append([]string(nil), cols...),
		Matrix: copied,
	}
}

func (h *Heatmap) Title() string { return h.Name }

func (h *Heatmap) Plot() error {
	if h.Render == nil {
		return ErrNoRenderer
	}
	return h.Render(h)
}

// Dendrogram describes a hierarchical clustering tree through its
// linkage matrix (rows of [cluster a, cluster b, distance, size]).
type Dendrogram struct {
	Name    string
	Linkage [][]float64
	Render  func(*Dendrogram) error
}

func NewDendrogram(title string, linkage [][]float64) *Dendrogram {
	copied := make([][]float64, len(linkage))
	for i, row := range linkage {
		copied[i] = append([]float64(nil), row...)
	}
	return &Dendrogram{Name: title, Linkage: copied}
}

func (d *Dendrogram) Title() string { return d.Name }

func (d *Dendrogram) Plot() error {
	if d.Render == nil {
		return ErrNoRenderer
	}
	return d.Render(d)
}
