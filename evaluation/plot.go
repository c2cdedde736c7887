package evaluation

import (
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"

	"github.com/YuminosukeSato/scistream/pkg/errors"
)

// Series is a named learning curve, usually one per evaluated learner.
type Series struct {
	Name  string
	Curve []Point
}

// Metric picks the plotted value from a Point.
type Metric func(Point) float64

// Predefined metrics for PlotCurves.
var (
	MetricAccuracy         Metric = func(p Point) float64 { return p.Accuracy }
	MetricWindowedAccuracy Metric = func(p Point) float64 { return p.WindowedAccuracy }
	MetricKappa            Metric = func(p Point) float64 { return p.Kappa }
	MetricMSE              Metric = func(p Point) float64 { return p.MSE }
)

// MetricByName resolves "accuracy", "windowed_accuracy", "kappa" or "mse".
func MetricByName(name string) (Metric, error) {
	switch name {
	case "accuracy":
		return MetricAccuracy, nil
	case "windowed_accuracy":
		return MetricWindowedAccuracy, nil
	case "kappa":
		return MetricKappa, nil
	case "mse":
		return MetricMSE, nil
	}
	return nil, errors.NewValidationError("metric", "unknown metric", name)
}

// PlotCurves draws one line per series and saves the image to path. The
// format follows the file extension (png, svg, pdf, ...).
func PlotCurves(path, title, yLabel string, metric Metric, series ...Series) error {
	if len(series) == 0 {
		return errors.WithStack(errors.ErrEmptyData)
	}
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "Instances"
	p.Y.Label.Text = yLabel

	lines := make([]interface{}, 0, 2*len(series))
	for _, s := range series {
		pts := make(plotter.XYs, len(s.Curve))
		for i, pt := range s.Curve {
			pts[i].X = float64(pt.Instances)
			pts[i].Y = metric(pt)
		}
		lines = append(lines, s.Name, pts)
	}
	if err := plotutil.AddLinePoints(p, lines...); err != nil {
		return errors.Wrap(err, "add curve")
	}
	if err := p.Save(8*vg.Inch, 4*vg.Inch, path); err != nil {
		return errors.Wrapf(err, "save plot %s", path)
	}
	return nil
}
