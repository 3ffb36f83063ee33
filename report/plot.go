package report

import (
	"fmt"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/YuminosukeSato/gbtune/pkg/errors"
)

// SaveROCPlot draws the report's ROC curve with the chance diagonal and the
// Youden-optimal point. The image format follows the file extension (.png,
// .svg, .pdf, ...).
func SaveROCPlot(r *EvaluationReport, path string) error {
	if r == nil || len(r.ROC) == 0 {
		return errors.NewValueError("SaveROCPlot", "report has no ROC curve")
	}

	p := plot.New()
	p.Title.Text = "ROC curve"
	p.X.Label.Text = "False positive rate"
	p.Y.Label.Text = "True positive rate"
	p.X.Min, p.X.Max = 0, 1
	p.Y.Min, p.Y.Max = 0, 1
	p.Add(plotter.NewGrid())

	pts := make(plotter.XYs, len(r.ROC))
	for i, pt := range r.ROC {
		pts[i].X, pts[i].Y = pt.FPR, pt.TPR
	}
	curve, err := plotter.NewLine(pts)
	if err != nil {
		return errors.Wrap(err, "build ROC line")
	}
	curve.LineStyle.Width = vg.Points(1.5)

	chance, err := plotter.NewLine(plotter.XYs{{X: 0, Y: 0}, {X: 1, Y: 1}})
	if err != nil {
		return errors.Wrap(err, "build chance line")
	}
	chance.LineStyle.Dashes = []vg.Length{vg.Points(4), vg.Points(4)}

	optimal, err := plotter.NewScatter(plotter.XYs{{X: 1 - r.Optimal.Specificity, Y: r.Optimal.Sensitivity}})
	if err != nil {
		return errors.Wrap(err, "build optimal point")
	}
	optimal.GlyphStyle.Radius = vg.Points(3)

	p.Add(curve, chance, optimal)
	p.Legend.Add(fmt.Sprintf("AUC %.3f [%.3f, %.3f]", r.AUC.AUC, r.AUC.Lower, r.AUC.Upper), curve)
	p.Legend.Add(fmt.Sprintf("Youden J %.3f at %.3g", r.Optimal.YoudenJ, r.Optimal.Threshold), optimal)
	p.Legend.Top = false
	p.Legend.Left = false

	// Rendering runs inside the font and image backends; a panic there
	// surfaces as a PanicError.
	return errors.SafeExecute("report.SaveROCPlot", func() error {
		if err := p.Save(5*vg.Inch, 5*vg.Inch, path); err != nil {
			return errors.Wrapf(err, "save ROC plot %s", path)
		}
		return nil
	})
}
