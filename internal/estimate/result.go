package estimate

import (
	"github.com/banshee-data/ancestry.report/internal/segments"
)

// Options selects optional per-pair outputs.
type Options struct {
	// ConfidenceIntervals enables the profile-likelihood interval on d.
	ConfidenceIntervals bool
	// BirthYears maps individual identifiers to birth years, used to orient
	// asymmetric relationship labels (parent vs child). Missing entries fall
	// back to a parity-based default.
	BirthYears map[string]int
}

// Result is the packaged estimate for one pair. It is immutable once
// assembled and deterministic: identical inputs always produce an identical
// Result.
type Result struct {
	Pair   segments.PairKey `json:"pair"`
	Indiv1 string           `json:"indv1"`
	Indiv2 string           `json:"indv2"`

	// D is the maximum-likelihood combined generation count. When Related
	// is false it is reported but not statistically distinguishable from no
	// relationship; when NoSharing is true it only indicates the absence of
	// detectable sharing, not a confirmed distant relationship.
	D         int  `json:"d_est"`
	Related   bool `json:"related"`
	NoSharing bool `json:"no_sharing"`

	MaxLogLik  float64 `json:"max_ll"`
	NullLogLik float64 `json:"null_ll"`
	LRT        float64 `json:"lrt"`
	PValue     float64 `json:"p_value"`

	// Profile-likelihood interval on D; zero when not requested.
	LowerD int `json:"lower_d,omitempty"`
	UpperD int `json:"upper_d,omitempty"`

	N           int     `json:"n"`
	TotalCM     float64 `json:"total_cm"`
	NBackground int     `json:"n_background"`

	// Likelihoods is the full per-d curve from the estimator's search,
	// kept so Λ and the interval are reproducible from logged values.
	Likelihoods []Alternative `json:"lls"`

	// Consanguinity labels from each individual's perspective; empty when
	// the pair is not significantly related.
	RelEst1 string `json:"rel_est1,omitempty"`
	RelEst2 string `json:"rel_est2,omitempty"`
}

// EstimatePair runs the full per-pair pipeline: null likelihood, exhaustive
// search over d, likelihood-ratio test, optional confidence interval, and
// assembly. A *DegenerateModelError is returned when the null likelihood
// cannot be evaluated; the error is attributed to this pair only.
func EstimatePair(m *Model, st *segments.SharedStatistic, opts Options) (*Result, error) {
	nullLL, err := m.NullLogLik(st)
	if err != nil {
		return nil, err
	}

	alts := m.Search(st)
	best := BestAlternative(alts)
	if !finite(best.LogLik) {
		return nil, &DegenerateModelError{Reason: "maximum log-likelihood is not finite"}
	}

	// First-degree relationships are easy to overcall: only keep d = 2 if
	// its adjusted model beats the runner-up by more than its extra
	// parameters justify.
	if m.params.FirstDegreeAdjust && best.D == 2 {
		if second, ok := bestExcludingD(alts, 2); ok {
			keep := false
			if best.ExtraParams > 0 {
				_, _, keep = LRTest(best.LogLik, second.LogLik, m.params.Alpha, best.ExtraParams)
			} else {
				keep = best.LogLik > second.LogLik+tieTolerance
			}
			if !keep {
				best = second
			}
		}
	}

	lambda, pValue, related := LRTest(best.LogLik, nullLL, m.params.Alpha, lrTestDF)

	indiv1, indiv2 := st.Pair.Split()
	res := &Result{
		Pair:        st.Pair,
		Indiv1:      indiv1,
		Indiv2:      indiv2,
		D:           best.D,
		Related:     related,
		NoSharing:   st.N == 0,
		MaxLogLik:   best.LogLik,
		NullLogLik:  nullLL,
		LRT:         lambda,
		PValue:      pValue,
		N:           st.N,
		TotalCM:     st.TotalCM,
		NBackground: best.NBackground,
		Likelihoods: alts,
	}

	if opts.ConfidenceIntervals {
		res.LowerD, res.UpperD = ConfidenceInterval(alts, best.LogLik, m.params.Alpha)
	}

	if related {
		dob1, ok1 := opts.BirthYears[indiv1]
		dob2, ok2 := opts.BirthYears[indiv2]
		if !ok1 || !ok2 {
			// Without birth years, pick the parity default: an even d can
			// be a same-generation relationship, an odd d cannot.
			dob1 = 0
			if best.D%2 == 0 {
				dob2 = 0
			} else {
				dob2 = 31
			}
		}
		res.RelEst1, res.RelEst2 = PotentialRelationship(best.D, dob1, dob2)
	}

	return res, nil
}
