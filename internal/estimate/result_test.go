package estimate

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// A single long segment on a sparse background is overwhelming evidence of
// recent shared ancestry. The toy genome (one autosome, near-zero background
// sharing) keeps the count terms from swamping the length evidence.
func TestEstimatePairSingleLongSegment(t *testing.T) {
	p := DefaultParams()
	p.Lambda = 0.01
	p.RecombRate = 0.01
	p.Autosomes = 1
	m := testModel(t, p)

	res, err := EstimatePair(m, stat(50), Options{ConfidenceIntervals: true})
	if err != nil {
		t.Fatalf("EstimatePair failed: %v", err)
	}
	if !res.Related {
		t.Errorf("50 cM segment not flagged related (p = %g)", res.PValue)
	}
	if res.NoSharing {
		t.Error("NoSharing set despite an observed segment")
	}
	if res.D > 3 {
		t.Errorf("d̂ = %d, want a close relationship (≤ 3)", res.D)
	}
	if res.LowerD > res.D || res.UpperD < res.D {
		t.Errorf("interval [%d, %d] does not contain d̂ = %d", res.LowerD, res.UpperD, res.D)
	}
	if res.N != 1 || res.TotalCM != 50 {
		t.Errorf("statistic echoed wrong: n=%d total=%g", res.N, res.TotalCM)
	}
}

// Zero observed segments: the estimate degrades gracefully to the most
// distant hypothesis, flagged as absence of sharing rather than relationship.
func TestEstimatePairZeroSegments(t *testing.T) {
	m := testModel(t, DefaultParams())

	res, err := EstimatePair(m, stat(), Options{})
	if err != nil {
		t.Fatalf("n=0 must be estimable: %v", err)
	}
	if res.Related {
		t.Error("no sharing must never be significant evidence of relationship")
	}
	if !res.NoSharing {
		t.Error("NoSharing not set for n=0")
	}
	if res.D != DefaultMaxD {
		t.Errorf("d̂ = %d, want %d (smallest expected count)", res.D, DefaultMaxD)
	}
	if res.PValue != 1 {
		t.Errorf("p = %g, want 1", res.PValue)
	}
	if res.RelEst1 != "" || res.RelEst2 != "" {
		t.Error("relationship labels must be empty for an insignificant pair")
	}
}

// Moderate sharing: a dozen mid-length segments. The estimate lands in the
// middle of the hypothesis range and the test statistic must be reproducible
// from the reported log-likelihoods alone.
func TestEstimatePairModerateSharing(t *testing.T) {
	m := testModel(t, DefaultParams())
	st := stat(6, 6, 6, 6, 6, 6, 6, 6, 6, 6, 6, 6)

	res, err := EstimatePair(m, st, Options{ConfidenceIntervals: true})
	if err != nil {
		t.Fatalf("EstimatePair failed: %v", err)
	}
	if res.D <= 2 || res.D >= DefaultMaxD {
		t.Errorf("d̂ = %d, want a mid-range estimate", res.D)
	}
	if len(res.Likelihoods) != DefaultMaxD {
		t.Fatalf("logged %d alternatives, want %d", len(res.Likelihoods), DefaultMaxD)
	}

	// Λ recomputed from the logged curve and null.
	maxLL := math.Inf(-1)
	for _, alt := range res.Likelihoods {
		if alt.LogLik > maxLL {
			maxLL = alt.LogLik
		}
	}
	if want := 2 * (maxLL - res.NullLogLik); !almostEqual(res.LRT, want, 1e-9) {
		t.Errorf("LRT = %g, not reproducible from logged values (want %g)", res.LRT, want)
	}
	if !almostEqual(res.MaxLogLik, maxLL, 1e-9) {
		t.Errorf("MaxLogLik = %g, logged maximum is %g", res.MaxLogLik, maxLL)
	}
}

func TestEstimatePairDeterministic(t *testing.T) {
	m := testModel(t, DefaultParams())
	st := stat(3.5, 4, 7, 9.25, 18, 33)
	opts := Options{ConfidenceIntervals: true}

	first, err := EstimatePair(m, st, opts)
	if err != nil {
		t.Fatalf("EstimatePair failed: %v", err)
	}
	second, err := EstimatePair(m, st, opts)
	if err != nil {
		t.Fatalf("EstimatePair failed on rerun: %v", err)
	}
	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("identical input produced different results (-first +second):\n%s", diff)
	}
}

func TestEstimatePairLabelsRelatedPairs(t *testing.T) {
	p := DefaultParams()
	p.Lambda = 0.01
	p.RecombRate = 0.01
	p.Autosomes = 1
	m := testModel(t, p)

	st := stat(45, 50)
	st.Pair = "alice:bob"

	res, err := EstimatePair(m, st, Options{
		BirthYears: map[string]int{"alice": 1950, "bob": 1952},
	})
	if err != nil {
		t.Fatalf("EstimatePair failed: %v", err)
	}
	if !res.Related {
		t.Fatalf("expected a significant relationship (p = %g)", res.PValue)
	}
	if res.Indiv1 != "alice" || res.Indiv2 != "bob" {
		t.Errorf("pair split = (%q, %q)", res.Indiv1, res.Indiv2)
	}
	if res.RelEst1 == "" || res.RelEst2 == "" {
		t.Errorf("expected relationship labels, got (%q, %q)", res.RelEst1, res.RelEst2)
	}
}

// The adjusted first-degree model must not hold on to d=2 when a plain
// hypothesis explains the data as well.
func TestEstimatePairFirstDegreeDemotion(t *testing.T) {
	base := DefaultParams()
	adj := base
	adj.FirstDegreeAdjust = true

	st := stat(5, 8, 14, 20, 26, 31, 44, 52, 60, 71)

	plain, err := EstimatePair(testModel(t, base), st, Options{})
	if err != nil {
		t.Fatalf("EstimatePair failed: %v", err)
	}
	adjusted, err := EstimatePair(testModel(t, adj), st, Options{})
	if err != nil {
		t.Fatalf("EstimatePair failed: %v", err)
	}
	if adjusted.D == 2 && plain.D != 2 {
		// The adjustment may only keep d=2 when it beats the runner-up by
		// more than its extra parameters justify.
		runner, ok := bestExcludingD(adjusted.Likelihoods, 2)
		if !ok {
			t.Fatal("no runner-up alternative recorded")
		}
		if adjusted.MaxLogLik <= runner.LogLik+tieTolerance {
			t.Errorf("d=2 kept without improvement over the runner-up (d=%d)", runner.D)
		}
	}
}
