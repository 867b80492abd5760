package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/banshee-data/ancestry.report/internal/db"
	"github.com/banshee-data/ancestry.report/internal/estimate"
	"github.com/banshee-data/ancestry.report/internal/segments"
)

func testServer(t *testing.T) *Server {
	t.Helper()
	database, err := db.NewDB(filepath.Join(t.TempDir(), "results.db"))
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	batch := &estimate.Batch{
		RunID: "run-1",
		Results: []*estimate.Result{
			{
				Pair: "ann:bob", Indiv1: "ann", Indiv2: "bob",
				D: 4, Related: true, MaxLogLik: -20, NullLogLik: -35,
				LRT: 30, PValue: 3e-7, N: 3, TotalCM: 47.5,
				RelEst1: "1st Cousin", RelEst2: "1st Cousin",
				Likelihoods: []estimate.Alternative{
					{D: 1, LogLik: -60}, {D: 2, LogLik: -40},
					{D: 3, LogLik: -25}, {D: 4, LogLik: -20},
				},
			},
			{
				Pair: "cid:dee", Indiv1: "cid", Indiv2: "dee",
				D: 9, Related: false, MaxLogLik: -12, NullLogLik: -12.2,
				LRT: 0.4, PValue: 0.82, N: 1, TotalCM: 5,
				Likelihoods: []estimate.Alternative{{D: 9, LogLik: -12}},
			},
		},
	}
	segLists := map[segments.PairKey][]segments.Segment{
		"ann:bob": {{Indiv1: "ann", Indiv2: "bob", Chromosome: 2, BPStart: 1, BPEnd: 9, LengthCM: 12.5}},
	}
	if _, err := database.InsertBatch(batch, segLists, db.KeepPolicy{KeepInsignificant: true}); err != nil {
		t.Fatalf("failed to seed test database: %v", err)
	}
	return NewServer(database)
}

func get(t *testing.T, mux *http.ServeMux, url string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, url, nil))
	return rec
}

func TestListResultsHandler(t *testing.T) {
	mux := testServer(t).ServeMux()

	rec := get(t, mux, "/api/results")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}
	var results []db.StoredResult
	if err := json.Unmarshal(rec.Body.Bytes(), &results); err != nil {
		t.Fatalf("response is not JSON: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}

	rec = get(t, mux, "/api/results?limit=1")
	if err := json.Unmarshal(rec.Body.Bytes(), &results); err != nil || len(results) != 1 {
		t.Errorf("limit=1 returned %d results (err=%v)", len(results), err)
	}

	if rec := get(t, mux, "/api/results?limit=bogus"); rec.Code != http.StatusBadRequest {
		t.Errorf("bogus limit: status = %d, want 400", rec.Code)
	}
}

func TestGetPairHandler(t *testing.T) {
	mux := testServer(t).ServeMux()

	rec := get(t, mux, "/api/pair?indv1=bob&indv2=ann")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body)
	}
	var res db.StoredResult
	if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
		t.Fatalf("response is not JSON: %v", err)
	}
	if res.Indiv1 != "ann" || res.Indiv2 != "bob" {
		t.Errorf("pair = (%q, %q), want canonical (ann, bob)", res.Indiv1, res.Indiv2)
	}
	if res.DEst == nil || *res.DEst != 4 {
		t.Errorf("DEst = %v, want 4", res.DEst)
	}
	if len(res.LLCurve) != 4 || len(res.Segments) != 1 {
		t.Errorf("details missing: %d lls, %d segments", len(res.LLCurve), len(res.Segments))
	}

	if rec := get(t, mux, "/api/pair?indv1=no&indv2=body"); rec.Code != http.StatusNotFound {
		t.Errorf("unknown pair: status = %d, want 404", rec.Code)
	}
	if rec := get(t, mux, "/api/pair?indv1=ann"); rec.Code != http.StatusBadRequest {
		t.Errorf("missing indv2: status = %d, want 400", rec.Code)
	}
}

func TestReportHandlers(t *testing.T) {
	mux := testServer(t).ServeMux()

	rec := get(t, mux, "/report")
	if rec.Code != http.StatusOK {
		t.Fatalf("histogram: status = %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("histogram Content-Type = %q", ct)
	}
	if !strings.Contains(rec.Body.String(), "Estimated generation counts") {
		t.Error("histogram title missing from rendered chart")
	}

	rec = get(t, mux, "/report?indv1=ann&indv2=bob")
	if rec.Code != http.StatusOK {
		t.Fatalf("pair curve: status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Log-likelihood") {
		t.Error("curve title missing from rendered chart")
	}

	if rec := get(t, mux, "/report?indv1=no&indv2=body"); rec.Code != http.StatusNotFound {
		t.Errorf("unknown pair: status = %d, want 404", rec.Code)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	mux := testServer(t).ServeMux()
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/results", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", rec.Code)
	}
}
