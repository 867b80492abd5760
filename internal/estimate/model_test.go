package estimate

import (
	"math"
	"testing"

	"github.com/banshee-data/ancestry.report/internal/segments"
)

func testModel(t *testing.T, p Params) *Model {
	t.Helper()
	m, err := NewModel(p)
	if err != nil {
		t.Fatalf("NewModel failed: %v", err)
	}
	return m
}

func stat(lengths ...float64) *segments.SharedStatistic {
	st := &segments.SharedStatistic{Pair: "a:b", N: len(lengths), Lengths: lengths}
	for _, l := range lengths {
		st.TotalCM += l
	}
	return st
}

func almostEqual(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}

func TestParamsValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Params)
	}{
		{"theta below min length", func(p *Params) { p.Theta = p.MinCM }},
		{"non-positive lambda", func(p *Params) { p.Lambda = 0 }},
		{"non-positive recomb rate", func(p *Params) { p.RecombRate = -1 }},
		{"zero autosomes", func(p *Params) { p.Autosomes = 0 }},
		{"empty hypothesis space", func(p *Params) { p.MaxD = 0 }},
		{"alpha at 1", func(p *Params) { p.Alpha = 1 }},
		{"negative min length", func(p *Params) { p.MinCM = -2 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := DefaultParams()
			tc.mutate(&p)
			if _, err := NewModel(p); err == nil {
				t.Fatal("expected DegenerateModelError, got nil")
			} else if _, ok := err.(*DegenerateModelError); !ok {
				t.Fatalf("expected *DegenerateModelError, got %T", err)
			}
		})
	}

	if err := DefaultParams().Validate(); err != nil {
		t.Fatalf("default params should validate: %v", err)
	}
}

func TestLogPoissonMatchesClosedForm(t *testing.T) {
	for _, rate := range []float64{0.5, 3, 13.73} {
		for n := 0; n < 10; n++ {
			lg, _ := math.Lgamma(float64(n + 1))
			want := float64(n)*math.Log(rate) - rate - lg
			got := logPoisson(rate, n)
			if !almostEqual(got, want, 1e-9) {
				t.Errorf("logPoisson(%g, %d) = %g, want %g", rate, n, got, want)
			}
		}
	}
}

func TestBackgroundDensity(t *testing.T) {
	p := DefaultParams()
	p.MinCM, p.Theta, p.Lambda = 1, 2, 3
	m := testModel(t, p)

	// At the truncation boundary the density is 1/(theta-t).
	if got, want := m.logFp(1), math.Log(1.0/(2-1)); !almostEqual(got, want, 1e-12) {
		t.Errorf("logFp(t) = %g, want %g", got, want)
	}
	if got, want := m.logFp(2), -1/(2.0-1)-math.Log(2.0-1); !almostEqual(got, want, 1e-12) {
		t.Errorf("logFp(t+1) = %g, want %g", got, want)
	}
}

func TestAncestralDensity(t *testing.T) {
	p := DefaultParams()
	p.MinCM, p.Theta, p.Lambda = 3, 4, 5
	p.Autosomes, p.RecombRate = 1, 2
	p.MaxD = 100
	m := testModel(t, p)

	// At d=100 the exponential scale is 1 cM, so the density at i = t+2
	// is e^-2 with no normalization trailing behind.
	got, extra := m.logFa(5, 100)
	if extra {
		t.Fatal("no extra parameter expected without the first-degree adjustment")
	}
	if want := -2.0; !almostEqual(got, want, 1e-12) {
		t.Errorf("logFa(5, 100) = %g, want %g", got, want)
	}

	got, _ = m.logFa(6, 1)
	if want := -3.0/100 - math.Log(100); !almostEqual(got, want, 1e-12) {
		t.Errorf("logFa(6, 1) = %g, want %g", got, want)
	}
}

func TestExpectedSegmentsMatchesFormula(t *testing.T) {
	p := DefaultParams()
	m := testModel(t, p)
	for d := 1; d <= p.MaxD; d++ {
		df := float64(d)
		want := 2 * (p.RecombRate*df + float64(p.Autosomes)) * math.Exp(-df*p.MinCM/100) / math.Exp2(df-1)
		if got := m.ExpectedSegments(d); !almostEqual(got, want, 1e-9) {
			t.Errorf("ExpectedSegments(%d) = %g, want %g", d, got, want)
		}
	}
}

// Expected segment counts must decay with genealogical distance across the
// configured range, for the defaults and for perturbed parameters.
func TestExpectedSegmentsMonotonicDecay(t *testing.T) {
	paramSets := []Params{DefaultParams()}

	p := DefaultParams()
	p.MinCM, p.Theta = 5, 6
	paramSets = append(paramSets, p)

	p = DefaultParams()
	p.RecombRate, p.Autosomes = 20, 19
	p.MaxD = 20
	paramSets = append(paramSets, p)

	for _, params := range paramSets {
		m := testModel(t, params)
		for d := 1; d < params.MaxD; d++ {
			if m.ExpectedSegments(d) < m.ExpectedSegments(d+1) {
				t.Errorf("expected count increased from d=%d (%g) to d=%d (%g)",
					d, m.ExpectedSegments(d), d+1, m.ExpectedSegments(d+1))
			}
		}
	}
}

func TestNullLogLik(t *testing.T) {
	p := DefaultParams()
	p.MinCM, p.Theta, p.Lambda = 1, 2, 3
	m := testModel(t, p)

	st := stat(4, 5, 6, 7, 8, 10)
	got, err := m.NullLogLik(st)
	if err != nil {
		t.Fatalf("NullLogLik failed: %v", err)
	}
	want := logPoisson(3, 6)
	for _, l := range st.Lengths {
		want += m.logFp(l)
	}
	if !almostEqual(got, want, 1e-12) {
		t.Errorf("NullLogLik = %g, want %g", got, want)
	}
}

func TestNullLogLikZeroSegments(t *testing.T) {
	m := testModel(t, DefaultParams())
	st := stat()
	got, err := m.NullLogLik(st)
	if err != nil {
		t.Fatalf("NullLogLik must handle n=0: %v", err)
	}
	// Only the count term contributes.
	if want := logPoisson(DefaultLambda, 0); !almostEqual(got, want, 1e-12) {
		t.Errorf("NullLogLik(n=0) = %g, want %g", got, want)
	}
}

func TestNullLogLikDegenerate(t *testing.T) {
	m := testModel(t, DefaultParams())
	st := stat(math.Inf(1))
	if _, err := m.NullLogLik(st); err == nil {
		t.Fatal("expected DegenerateModelError for non-finite statistic")
	} else if _, ok := err.(*DegenerateModelError); !ok {
		t.Fatalf("expected *DegenerateModelError, got %T", err)
	}
}

// AltLogLik must equal the brute-force maximum over every split of the
// sorted lengths into background prefix and ancestral suffix.
func TestAltLogLikMatchesBruteForce(t *testing.T) {
	p := DefaultParams()
	p.MinCM, p.Theta, p.Lambda = 2.5, 3.197036753, 13.73
	m := testModel(t, p)

	st := stat(3, 4, 4.5, 5, 9, 12, 30)
	for d := 1; d <= p.MaxD; d++ {
		want := math.Inf(-1)
		wantNP := 0
		for np := 0; np <= st.N; np++ {
			ll := logPoisson(p.Lambda, np) + logPoisson(m.ancestralRate(d), st.N-np)
			for i := 0; i < np; i++ {
				ll += m.logFp(st.Lengths[i])
			}
			for i := np; i < st.N; i++ {
				fa, _ := m.logFa(st.Lengths[i], d)
				ll += fa
			}
			if ll > want {
				want, wantNP = ll, np
			}
		}
		got := m.AltLogLik(st, d)
		if !almostEqual(got.LogLik, want, 1e-9) {
			t.Errorf("AltLogLik(d=%d) = %g, want %g", d, got.LogLik, want)
		}
		if got.NBackground != wantNP {
			t.Errorf("AltLogLik(d=%d) attributed %d to background, want %d", d, got.NBackground, wantNP)
		}
	}
}

func TestAltLogLikZeroSegments(t *testing.T) {
	m := testModel(t, DefaultParams())
	st := stat()
	for d := 1; d <= DefaultMaxD; d++ {
		alt := m.AltLogLik(st, d)
		want := logPoisson(DefaultLambda, 0) + logPoisson(m.ancestralRate(d), 0)
		if !almostEqual(alt.LogLik, want, 1e-12) {
			t.Errorf("AltLogLik(n=0, d=%d) = %g, want %g", d, alt.LogLik, want)
		}
	}
}

func TestFirstDegreeAdjustment(t *testing.T) {
	p := DefaultParams()
	p.FirstDegreeAdjust = true
	m := testModel(t, p)

	// The adjusted count model applies only at d=2.
	df := 2.0
	want := 0.75*float64(p.Autosomes) + 2*df*p.RecombRate*0.75*0.25
	if got := m.ancestralRate(2); !almostEqual(got, want, 1e-9) {
		t.Errorf("adjusted ancestralRate(2) = %g, want %g", got, want)
	}
	unadjusted := testModel(t, DefaultParams())
	if got := m.ancestralRate(3); !almostEqual(got, unadjusted.ancestralRate(3), 1e-12) {
		t.Errorf("ancestralRate(3) changed under the first-degree adjustment")
	}

	// A long segment at d=2 crosses the expected-crossover spacing (50 cM),
	// so the Erlang shape exceeds 1 and introduces an extra parameter.
	if _, extra := m.logFa(120, 2); !extra {
		t.Error("expected an extra shape parameter for a 120 cM segment at d=2")
	}
	if _, extra := m.logFa(10, 2); extra {
		t.Error("unexpected extra parameter for a 10 cM segment at d=2")
	}
}
