package estimate

import (
	"github.com/banshee-data/ancestry.report/internal/segments"
)

// tieTolerance bounds how close two log-likelihoods must be before the
// estimator treats them as tied. Ties resolve to the smaller d: the closer
// relationship is the more conservative point estimate.
const tieTolerance = 1e-9

// Search evaluates every relationship hypothesis d ∈ {1..MaxD} against the
// statistic and returns the alternatives in ascending d order. The
// hypothesis space is small and the surface need not be unimodal, so the
// search is exhaustive rather than gradient-based.
func (m *Model) Search(st *segments.SharedStatistic) []Alternative {
	alts := make([]Alternative, 0, m.params.MaxD)
	for d := 1; d <= m.params.MaxD; d++ {
		alts = append(alts, m.AltLogLik(st, d))
	}
	return alts
}

// BestAlternative picks the maximum-likelihood alternative. Walking in
// ascending d order and replacing only on an improvement beyond
// tieTolerance makes the smallest tied d win.
func BestAlternative(alts []Alternative) Alternative {
	best := alts[0]
	for _, alt := range alts[1:] {
		if alt.LogLik > best.LogLik+tieTolerance {
			best = alt
		}
	}
	return best
}

// bestExcludingD is used by the first-degree check: the strongest
// alternative whose d differs from the excluded value.
func bestExcludingD(alts []Alternative, exclude int) (Alternative, bool) {
	var best Alternative
	found := false
	for _, alt := range alts {
		if alt.D == exclude {
			continue
		}
		if !found || alt.LogLik > best.LogLik+tieTolerance {
			best = alt
			found = true
		}
	}
	return best, found
}
