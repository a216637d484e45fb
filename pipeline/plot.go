package pipeline

import (
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	bankmlErrors "github.com/banktools/bankml/pkg/errors"
)

// SaveCostHistory renders the training loss curve to a PNG at path.
func SaveCostHistory(history []float64, title, path string) error {
	if len(history) == 0 {
		return bankmlErrors.NewValueError("pipeline.SaveCostHistory", "empty cost history")
	}

	pts := make(plotter.XYs, len(history))
	for i, c := range history {
		pts[i].X = float64(i)
		pts[i].Y = c
	}

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "Iteration"
	p.Y.Label.Text = "Loss"

	line, err := plotter.NewLine(pts)
	if err != nil {
		return bankmlErrors.Wrap(err, "pipeline.SaveCostHistory")
	}
	p.Add(line)
	p.Add(plotter.NewGrid())

	return bankmlErrors.Wrap(p.Save(8*vg.Inch, 5*vg.Inch, path), "pipeline.SaveCostHistory")
}
