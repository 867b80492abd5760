package estimate

import (
	"math"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/banshee-data/ancestry.report/internal/segments"
)

// Model evaluates the log-likelihood of a pair's shared-segment statistic
// under the null hypothesis (population background sharing only) and under
// the alternative hypothesis of a relationship at combined generation count
// d. All arithmetic is in log-space; per-segment densities are summed, never
// multiplied, so many small probabilities cannot underflow.
//
// Null hypothesis:
//
//	LL0(n, s) = ln Pois(n; λ) + Σᵢ ln fp(sᵢ)
//	fp(i)     = exp(-(i-t)/(θ-t)) / (θ-t)
//
// Alternative at d, with the n segments split into np background segments
// (the shortest np, s sorted ascending) and n-np ancestral segments:
//
//	fa(i; d)  = exp(-d(i-t)/100) / (100/d)
//	λa(d)     = a·(r·d + c)·e^(-d·t/100) / 2^(d-1)
//	LLr(d)    = max over np of ln Pois(np; λ) + ln Pois(n-np; λa(d))
//	            + Σ background ln fp + Σ ancestral ln fa
//
// The length densities are truncated below at t and renormalized over the
// observable support; segments shorter than t never reach the model.
type Model struct {
	params Params
}

// NewModel validates p and returns a model. A *DegenerateModelError is
// returned for parameters under which the likelihood is undefined.
func NewModel(p Params) (*Model, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &Model{params: p}, nil
}

// Params returns the configuration the model was built with.
func (m *Model) Params() Params { return m.params }

// logPoisson is the Poisson log-pmf at count n with the given rate.
func logPoisson(rate float64, n int) float64 {
	return distuv.Poisson{Lambda: rate}.LogProb(float64(n))
}

// logFp is the log-density of a background segment of length i, truncated
// below at t.
func (m *Model) logFp(i float64) float64 {
	t, theta := m.params.MinCM, m.params.Theta
	return -(i-t)/(theta-t) - math.Log(theta-t)
}

// logFa is the log-density of an ancestral segment of length i under
// generation count d. The second return reports whether the first-degree
// adjustment introduced an additional shape parameter for this segment.
func (m *Model) logFa(i float64, d int) (float64, bool) {
	t := m.params.MinCM
	df := float64(d)
	lp := -df * (i - t) / 100

	if m.params.FirstDegreeAdjust && d == 2 {
		// Erlang-shaped density for full siblings: a shared region may be
		// the union of k adjacent IBD segments. k̂ is the ML shape estimate.
		kHat := math.Floor(i/(100/df)) + 1
		extra := kHat > 1
		if i > t {
			lp += (kHat - 1) * math.Log(i-t)
		} else {
			lp += -math.Exp2(20) // log(0) guard at the truncation boundary
		}
		lp += -lgammaAt(kHat) - kHat*math.Log(100/df)
		return lp, extra
	}
	return lp - math.Log(100/df), false
}

// lgammaAt is ln Γ(k), i.e. ln((k-1)!) for integer k.
func lgammaAt(k float64) float64 {
	v, _ := math.Lgamma(k)
	return v
}

// ancestralRate is λa(d): the expected number of observable segments
// inherited from the shared ancestors. It decays roughly by half per
// additional meiosis, tempered by genome length and the detectability
// threshold.
func (m *Model) ancestralRate(d int) float64 {
	p := m.params
	df := float64(d)
	if p.FirstDegreeAdjust && d == 2 {
		return 0.75*float64(p.Autosomes) + 2*df*p.RecombRate*0.75*0.25
	}
	pDetect := math.Exp(-df * p.MinCM / 100)
	return sharedAncestors * (p.RecombRate*df + float64(p.Autosomes)) * pDetect / math.Exp2(df-1)
}

// NullLogLik evaluates the background-only hypothesis. n = 0 is a valid
// statistic: the count term alone carries the likelihood.
func (m *Model) NullLogLik(st *segments.SharedStatistic) (float64, error) {
	ll := logPoisson(m.params.Lambda, st.N)
	for _, length := range st.Lengths {
		ll += m.logFp(length)
	}
	if math.IsNaN(ll) || math.IsInf(ll, 0) {
		return 0, &DegenerateModelError{Reason: "null log-likelihood is not finite"}
	}
	return ll, nil
}

// Alternative is the evaluated likelihood of one relationship hypothesis.
type Alternative struct {
	D           int     `json:"d"`
	LogLik      float64 `json:"ll"`
	NBackground int     `json:"n_background"` // segments attributed to population sharing
	ExtraParams int     `json:"-"`            // extra shape parameters introduced by adjustments
}

// AltLogLik evaluates the relationship hypothesis at d, maximizing over the
// unobserved split between background and ancestral segments. st.Lengths
// must be ascending (the aggregator guarantees it); the background subset is
// always a prefix of the sorted lengths because fp decays slower than fa.
func (m *Model) AltLogLik(st *segments.SharedStatistic, d int) Alternative {
	n := st.N

	// Prefix sums of background log-densities and suffix sums of ancestral
	// log-densities, so each split costs O(1).
	fpPrefix := make([]float64, n+1)
	faSuffix := make([]float64, n+1)
	extraSuffix := make([]int, n+1)
	for i := 0; i < n; i++ {
		fpPrefix[i+1] = fpPrefix[i] + m.logFp(st.Lengths[i])
	}
	for i := n - 1; i >= 0; i-- {
		fa, extra := m.logFa(st.Lengths[i], d)
		faSuffix[i] = faSuffix[i+1] + fa
		extraSuffix[i] = extraSuffix[i+1]
		if extra {
			extraSuffix[i]++
		}
	}

	rate := m.ancestralRate(d)
	best := Alternative{D: d, LogLik: math.Inf(-1)}
	for np := 0; np <= n; np++ {
		ll := logPoisson(m.params.Lambda, np) +
			logPoisson(rate, n-np) +
			fpPrefix[np] + faSuffix[np]
		if ll > best.LogLik {
			best = Alternative{D: d, LogLik: ll, NBackground: np, ExtraParams: extraSuffix[np]}
		}
	}
	return best
}

// ExpectedSegments returns λa(d) for reporting.
func (m *Model) ExpectedSegments(d int) float64 {
	return m.ancestralRate(d)
}
