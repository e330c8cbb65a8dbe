// Package chart renders joint angle graphs of a movement session against the
// reference curves it was scored with.
package chart

import (
	"errors"
	"fmt"
	"io"
	"time"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"

	"github.com/ayusman/gymcoach/internal/form"
	"github.com/ayusman/gymcoach/internal/phase"
)

// Default image size.
const (
	DefaultWidth  = 8 * vg.Inch
	DefaultHeight = 4 * vg.Inch
)

// referenceStep is the sampling interval of reference lines.
const referenceStep = 50 * time.Millisecond

// ErrNoSession is returned when there is nothing to plot.
var ErrNoSession = errors.New("no session to plot")

// SessionPlot builds a plot with one solid line per observed signal and a
// dashed line for its reference curve, stretched to the session duration.
func SessionPlot(sess *phase.Session, p *form.Profile) (*plot.Plot, error) {
	if sess == nil || len(sess.Samples) == 0 {
		return nil, ErrNoSession
	}

	pl := plot.New()
	pl.Title.Text = fmt.Sprintf("%s: last rep (%.1fs)", p.Name, sess.Duration().Seconds())
	pl.X.Label.Text = "Time (s)"
	pl.Y.Label.Text = "Angle (deg)"
	pl.Y.Min = 0
	pl.Y.Max = 185

	d := sess.Duration()
	for i, name := range sess.Signals {
		offsets, angles, ok := sess.Series(name)
		if !ok || len(offsets) == 0 {
			continue
		}

		pts := make(plotter.XYs, len(offsets))
		for j := range offsets {
			pts[j] = plotter.XY{X: offsets[j].Seconds(), Y: angles[j]}
		}
		line, err := plotter.NewLine(pts)
		if err != nil {
			return nil, fmt.Errorf("signal %s: %w", name, err)
		}
		line.Width = vg.Points(1.5)
		line.Color = plotutil.Color(i)
		pl.Add(line)
		pl.Legend.Add(name, line)

		ref, ok := p.Curves[name]
		if !ok || d <= 0 {
			continue
		}
		refLine, err := plotter.NewLine(referencePoints(ref, d))
		if err != nil {
			return nil, fmt.Errorf("reference %s: %w", name, err)
		}
		refLine.Width = vg.Points(1)
		refLine.Color = plotutil.Color(i)
		refLine.Dashes = []vg.Length{vg.Points(4), vg.Points(3)}
		pl.Add(refLine)
		pl.Legend.Add(name+" (reference)", refLine)
	}

	pl.Legend.Top = true
	pl.Legend.Left = false
	pl.Legend.XOffs = -10
	pl.Legend.YOffs = -10
	pl.Add(plotter.NewGrid())

	return pl, nil
}

// referencePoints samples c stretched to span d.
func referencePoints(c form.Curve, d time.Duration) plotter.XYs {
	scale := float64(c.Duration()) / float64(d)
	var pts plotter.XYs
	for t := time.Duration(0); t <= d; t += referenceStep {
		pts = append(pts, plotter.XY{
			X: t.Seconds(),
			Y: c.At(time.Duration(float64(t) * scale)),
		})
	}
	return pts
}

// WritePNG renders the session plot as a PNG image.
func WritePNG(w io.Writer, sess *phase.Session, p *form.Profile, width, height vg.Length) error {
	pl, err := SessionPlot(sess, p)
	if err != nil {
		return err
	}
	wt, err := pl.WriterTo(width, height, "png")
	if err != nil {
		return fmt.Errorf("render chart: %w", err)
	}
	_, err = wt.WriteTo(w)
	return err
}
