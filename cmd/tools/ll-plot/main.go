// Command ll-plot renders a pair's log-likelihood curve over the candidate
// generation counts as a PNG, reading from a results database.
package main

import (
	"flag"
	"fmt"
	"log"
	"sort"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/banshee-data/ancestry.report/internal/db"
)

func main() {
	dbPath := flag.String("db", "results.db", "results database")
	indv1 := flag.String("indv1", "", "first individual identifier")
	indv2 := flag.String("indv2", "", "second individual identifier")
	out := flag.String("o", "ll-curve.png", "output PNG path")
	flag.Parse()

	if *indv1 == "" || *indv2 == "" {
		log.Fatal("both -indv1 and -indv2 are required")
	}

	database, err := db.NewDB(*dbPath)
	if err != nil {
		log.Fatalf("failed to open results database: %v", err)
	}
	defer database.Close()

	res, err := database.GetPairResult(*indv1, *indv2)
	if err != nil {
		log.Fatalf("failed to fetch pair result: %v", err)
	}
	if len(res.LLCurve) == 0 {
		log.Fatalf("no likelihood curve stored for %s:%s", *indv1, *indv2)
	}

	ds := make([]int, 0, len(res.LLCurve))
	for d := range res.LLCurve {
		ds = append(ds, d)
	}
	sort.Ints(ds)

	pts := make(plotter.XYs, 0, len(ds))
	for _, d := range ds {
		pts = append(pts, plotter.XY{X: float64(d), Y: res.LLCurve[d]})
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("Log-likelihood: %s / %s", res.Indiv1, res.Indiv2)
	p.X.Label.Text = "combined generations d"
	p.Y.Label.Text = "log-likelihood"

	line, err := plotter.NewLine(pts)
	if err != nil {
		log.Fatalf("failed to build line: %v", err)
	}
	line.Width = vg.Points(1)
	p.Add(line, plotter.NewGrid())
	p.Add(mleMarker(res, pts))

	if err := p.Save(6*vg.Inch, 4*vg.Inch, *out); err != nil {
		log.Fatalf("failed to save plot: %v", err)
	}
	log.Printf("wrote %s", *out)
}

// mleMarker highlights the point estimate on the curve.
func mleMarker(res *db.StoredResult, pts plotter.XYs) plot.Plotter {
	if res.DEst == nil {
		return plotter.NewGrid()
	}
	for _, pt := range pts {
		if int(pt.X) == *res.DEst {
			scatter, err := plotter.NewScatter(plotter.XYs{pt})
			if err == nil {
				scatter.Radius = vg.Points(3)
				return scatter
			}
		}
	}
	return plotter.NewGrid()
}
