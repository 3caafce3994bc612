package bench

import (
	"encoding/csv"
	"io"
	"strconv"

	"github.com/cockroachdb/errors"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
)

var csvHeader = []string{"Structure", "Config", "TestType", "Ops", "LatencyNs", "MemMB", "HeapObjects"}

func itoa(n int) string { return strconv.Itoa(n) }

// WriteCSV writes one row per result.
func (r Report) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return errors.Wrap(err, "bench: csv")
	}
	for _, res := range r.Results {
		err := cw.Write([]string{
			res.Index,
			res.Config,
			string(res.Operation),
			itoa(res.Ops),
			strconv.FormatInt(res.LatencyNs, 10),
			strconv.FormatUint(res.MemMB, 10),
			strconv.FormatUint(res.Objects, 10),
		})
		if err != nil {
			return errors.Wrap(err, "bench: csv")
		}
	}
	cw.Flush()
	return errors.Wrap(cw.Error(), "bench: csv")
}

// Plot saves a grouped bar chart of ns/op per operation for each index.
// The image format follows the file extension.
func (r Report) Plot(path string) error {
	ops := []Operation{OpGet, OpSeek}
	p := plot.New()
	p.Title.Text = "Lookup latency"
	p.Y.Label.Text = "ns/op"

	width := vg.Points(20)
	for i, name := range []string{TreeIndex, ReferenceIndex, ListIndex} {
		vals := make(plotter.Values, len(ops))
		for j, op := range ops {
			for _, res := range r.Results {
				if res.Index == name && res.Operation == op {
					vals[j] = float64(res.LatencyNs)
				}
			}
		}
		bars, err := plotter.NewBarChart(vals, width)
		if err != nil {
			return errors.Wrap(err, "bench: plot")
		}
		bars.LineStyle.Width = vg.Length(0)
		bars.Color = plotutil.Color(i)
		bars.Offset = vg.Length(i-1) * width
		p.Add(bars)
		p.Legend.Add(name, bars)
	}
	p.Legend.Top = true
	names := make([]string, len(ops))
	for i, op := range ops {
		names[i] = string(op)
	}
	p.NominalX(names...)

	return errors.Wrap(p.Save(5*vg.Inch, 3*vg.Inch, path), "bench: save plot")
}
