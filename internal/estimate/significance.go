package estimate

import (
	"math"

	"gonum.org/v1/gonum/stat/distuv"
)

// lrTestDF is the parameter-count difference between the relationship
// hypothesis (d plus the background/ancestral split) and the null.
const lrTestDF = 2

// LRTest performs a likelihood-ratio test of the alternative against the
// null. The statistic Λ = 2·(llAlt − llNull) is referred to a chi-squared
// distribution with df degrees of freedom; the null is rejected when the
// upper tail probability falls below alpha.
func LRTest(llAlt, llNull, alpha float64, df int) (lambda, pValue float64, reject bool) {
	lambda = 2 * (llAlt - llNull)
	if lambda <= 0 {
		// The alternative fits no better than the null; the tail
		// probability saturates at 1.
		return lambda, 1, false
	}
	chi2 := distuv.ChiSquared{K: float64(df)}
	pValue = chi2.Survival(lambda)
	return lambda, pValue, pValue < alpha
}

// ConfidenceInterval returns the profile-likelihood interval on d: the
// smallest and largest d whose likelihood-ratio statistic against the
// maximum is not rejected at alpha. No model re-evaluation happens here;
// the alternatives from the estimator's search are reused. The interval
// always contains the MLE itself (its statistic is zero) and is reported as
// a closed range, so it is contiguous over the candidate set.
func ConfidenceInterval(alts []Alternative, maxLogLik, alpha float64) (lowerD, upperD int) {
	for _, alt := range alts {
		if _, _, reject := LRTest(maxLogLik, alt.LogLik, alpha, lrTestDF); reject {
			continue
		}
		if lowerD == 0 || alt.D < lowerD {
			lowerD = alt.D
		}
		if alt.D > upperD {
			upperD = alt.D
		}
	}
	return lowerD, upperD
}

// finite reports whether v is a usable log-likelihood.
func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
