package api

import (
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strconv"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/banshee-data/ancestry.report/internal/db"
	"github.com/banshee-data/ancestry.report/internal/httputil"
)

// Server exposes stored estimation results over HTTP. It is a read-only
// surface: estimation happens in the CLI pipeline, never in a handler.
type Server struct {
	db *db.DB
}

func NewServer(database *db.DB) *Server {
	return &Server{db: database}
}

func (s *Server) ServeMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/results", s.listResults)
	mux.HandleFunc("/api/pair", s.getPair)
	mux.HandleFunc("/report", s.renderReport)
	mux.HandleFunc("/", s.homeHandler)
	return mux
}

func (s *Server) homeHandler(w http.ResponseWriter, r *http.Request) {
	w.Write([]byte("ancestry.report results server\n"))
}

// listResults returns live results, newest first. Query params:
//   - limit (optional, default 100)
func (s *Server) listResults(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	limit := 100
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			httputil.BadRequest(w, "invalid limit")
			return
		}
		limit = n
	}
	results, err := s.db.ListResults(limit)
	if err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("failed to list results: %v", err))
		return
	}
	httputil.WriteJSONOK(w, results)
}

// getPair returns the live result for one pair, with its likelihood curve
// and segments. Query params: indv1, indv2 (order irrelevant).
func (s *Server) getPair(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	indv1 := r.URL.Query().Get("indv1")
	indv2 := r.URL.Query().Get("indv2")
	if indv1 == "" || indv2 == "" {
		httputil.BadRequest(w, "indv1 and indv2 are required")
		return
	}
	res, err := s.db.GetPairResult(indv1, indv2)
	if errors.Is(err, sql.ErrNoRows) {
		httputil.NotFound(w, "no result for pair")
		return
	}
	if err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("failed to fetch pair result: %v", err))
		return
	}
	httputil.WriteJSONOK(w, res)
}

// renderReport renders an HTML chart. Without query params it shows a
// histogram of estimated generation counts across all live results; with
// indv1/indv2 it shows that pair's log-likelihood curve over d.
func (s *Server) renderReport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	indv1 := r.URL.Query().Get("indv1")
	indv2 := r.URL.Query().Get("indv2")
	if indv1 != "" && indv2 != "" {
		s.renderLikelihoodCurve(w, indv1, indv2)
		return
	}
	s.renderHistogram(w)
}

func (s *Server) renderLikelihoodCurve(w http.ResponseWriter, indv1, indv2 string) {
	res, err := s.db.GetPairResult(indv1, indv2)
	if errors.Is(err, sql.ErrNoRows) {
		httputil.NotFound(w, "no result for pair")
		return
	}
	if err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("failed to fetch pair result: %v", err))
		return
	}

	ds := make([]int, 0, len(res.LLCurve))
	for d := range res.LLCurve {
		ds = append(ds, d)
	}
	sort.Ints(ds)

	xAxis := make([]string, 0, len(ds))
	points := make([]opts.LineData, 0, len(ds))
	for _, d := range ds {
		xAxis = append(xAxis, strconv.Itoa(d))
		points = append(points, opts.LineData{Value: res.LLCurve[d]})
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{
			Title:    fmt.Sprintf("Log-likelihood by generation count: %s / %s", res.Indiv1, res.Indiv2),
			Subtitle: fmt.Sprintf("n=%d segments, %.1f cM shared", res.N, res.TotalCM),
		}),
		charts.WithXAxisOpts(opts.XAxis{Name: "d"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "log-likelihood"}),
	)
	line.SetXAxis(xAxis).AddSeries("LL(d)", points)

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := line.Render(w); err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("failed to render chart: %v", err))
	}
}

func (s *Server) renderHistogram(w http.ResponseWriter) {
	results, err := s.db.ListResults(0)
	if err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("failed to list results: %v", err))
		return
	}

	counts := map[int]int{}
	maxD := 0
	significant := 0
	for _, res := range results {
		if res.DEst == nil {
			continue
		}
		significant++
		counts[*res.DEst]++
		if *res.DEst > maxD {
			maxD = *res.DEst
		}
	}

	xAxis := make([]string, 0, maxD)
	values := make([]opts.BarData, 0, maxD)
	for d := 1; d <= maxD; d++ {
		xAxis = append(xAxis, strconv.Itoa(d))
		values = append(values, opts.BarData{Value: counts[d]})
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{
			Title:    "Estimated generation counts",
			Subtitle: fmt.Sprintf("%d significant pairs of %d stored", significant, len(results)),
		}),
		charts.WithXAxisOpts(opts.XAxis{Name: "d"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "pairs"}),
	)
	bar.SetXAxis(xAxis).AddSeries("pairs", values)

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := bar.Render(w); err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("failed to render chart: %v", err))
	}
}
