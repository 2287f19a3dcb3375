package chart

import (
	"errors"
	"testing"
)

func TestHistogram(t *testing.T) {
	values := []float64{1, 2, 3}
	h := NewHistogram("ages", values, 0)

	if h.Title() != "ages" {
		t.Errorf("unexpected title %q", h.Title())
	}
	if h.Bins != 10 {
		t.Errorf("bins should default to 10, got %d", h.Bins)
	}

	// Inputs are copied
	values[0] = 99
	if h.Values[0] != 1 {
		t.Error("histogram should not share the input slice")
	}
}

func TestPlotWithoutRenderer(t *testing.T) {
	charts := []interface {
		Title() string
		Plot() error
	}{
		NewHistogram("h", []float64{1}, 5),
		NewBoxPlot("b", []float64{1}),
		NewBar("bar", []string{"a"}, []float64{1}),
		NewLine("l", []float64{1}, []float64{2}, "x", "y"),
		NewScatter("s", []float64{1}, []float64{2}, nil, "x", "y"),
		NewHeatmap("hm", []string{"r"}, []string{"c"}, [][]float64{{1}}),
		NewDendrogram("d", [][]float64{{0, 1, 0.5, 2}}),
	}

	for _, c := range charts {
		if err := c.Plot(); !errors.Is(err, ErrNoRenderer) {
			t.Errorf("%s: Plot without renderer should return ErrNoRenderer, got %v", c.Title(), err)
		}
	}
}

func TestPlotDelegatesToRenderer(t *testing.T) {
	called := false
	h := NewHistogram("h", []float64{1, 2}, 4)
	h.Render = func(got *Histogram) error {
		called = true
		if got != h {
			t.Error("renderer should receive the chart itself")
		}
		return nil
	}

	if err := h.Plot(); err != nil {
		t.Fatalf("Plot failed: %v", err)
	}
	if !called {
		t.Error("Plot should invoke the renderer")
	}
}

func TestHeatmapCopiesMatrix(t *testing.T) {
	matrix := [][]float64{{1, 2}, {3, 4}}
	h := NewHeatmap("m", []string{"a", "b"}, []string{"x", "y"}, matrix)

	matrix[0][0] = 99
	if h.Matrix[0][0] != 1 {
		t.Error("heatmap should deep-copy the matrix")
	}
}

func TestScatterLabels(t *testing.T) {
	s := NewScatter("s", []float64{1, 2}, []float64{3, 4}, []int{0, 1}, "x", "y")

	if len(s.Labels) != 2 || s.Labels[1] != 1 {
		t.Errorf("labels not carried: %v", s.Labels)
	}
	if s.XLabel != "x" || s.YLabel != "y" {
		t.Errorf("axis labels not carried: %q %q", s.XLabel, s.YLabel)
	}
}
