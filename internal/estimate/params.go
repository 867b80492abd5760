package estimate

import "fmt"

// Default population-model constants. The length and count parameters are
// empirical estimates for segments above 2.5 cM (Huff et al. 2011); the
// recombination rate and autosome count are for humans. All of them are
// plain configuration: nothing in the model hardcodes them.
const (
	DefaultMinCM      = 2.5         // minimum segment length t, in cM
	DefaultTheta      = 3.197036753 // mean population segment length, in cM
	DefaultLambda     = 13.73       // mean population shared-segment count
	DefaultRecombRate = 35.2548101  // recombination events per haploid genome per generation
	DefaultAutosomes  = 22
	DefaultMaxD       = 10
	DefaultAlpha      = 0.05

	// sharedAncestors is the number of common ancestors assumed by the
	// alternative hypothesis (two, i.e. relationship through a couple).
	sharedAncestors = 2
)

// Params holds every constant the sharing model depends on. The zero value
// is invalid; start from DefaultParams. Params is passed by value into the
// model so concurrent estimation never observes mutation.
type Params struct {
	MinCM      float64 // t: segments below this length are unobservable
	Theta      float64 // mean population segment length (cM), must exceed MinCM
	Lambda     float64 // mean population shared-segment count
	RecombRate float64 // r: expected recombinations per haploid genome per generation
	Autosomes  int     // c: autosome count
	MaxD       int     // largest combined generation count hypothesized
	Alpha      float64 // significance level for the likelihood-ratio test

	// FirstDegreeAdjust enables the adjusted count and length models for
	// first-degree (d = 2) relationships.
	FirstDegreeAdjust bool
}

// DefaultParams returns the human defaults.
func DefaultParams() Params {
	return Params{
		MinCM:      DefaultMinCM,
		Theta:      DefaultTheta,
		Lambda:     DefaultLambda,
		RecombRate: DefaultRecombRate,
		Autosomes:  DefaultAutosomes,
		MaxD:       DefaultMaxD,
		Alpha:      DefaultAlpha,
	}
}

// DegenerateModelError reports a model that cannot be evaluated: invalid
// configuration, or a non-finite null likelihood for a pair. It is fatal
// for the affected pair but never for the batch.
type DegenerateModelError struct {
	Reason string
}

func (e *DegenerateModelError) Error() string {
	return "degenerate sharing model: " + e.Reason
}

// Validate rejects parameter combinations under which the likelihood is
// undefined (log of a non-positive number, empty hypothesis space, or a
// meaningless significance level).
func (p Params) Validate() error {
	switch {
	case p.MinCM <= 0:
		return &DegenerateModelError{Reason: fmt.Sprintf("minimum segment length must be positive, got %g", p.MinCM)}
	case p.Theta <= p.MinCM:
		return &DegenerateModelError{Reason: fmt.Sprintf("theta (%g) must exceed the minimum segment length (%g)", p.Theta, p.MinCM)}
	case p.Lambda <= 0:
		return &DegenerateModelError{Reason: fmt.Sprintf("lambda must be positive, got %g", p.Lambda)}
	case p.RecombRate <= 0:
		return &DegenerateModelError{Reason: fmt.Sprintf("recombination rate must be positive, got %g", p.RecombRate)}
	case p.Autosomes < 1:
		return &DegenerateModelError{Reason: fmt.Sprintf("autosome count must be at least 1, got %d", p.Autosomes)}
	case p.MaxD < 1:
		return &DegenerateModelError{Reason: fmt.Sprintf("maximum generation count must be at least 1, got %d", p.MaxD)}
	case p.Alpha <= 0 || p.Alpha >= 1:
		return &DegenerateModelError{Reason: fmt.Sprintf("alpha must be in (0,1), got %g", p.Alpha)}
	}
	return nil
}
