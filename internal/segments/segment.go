package segments

import "fmt"

// Segment is one IBD stretch reported by the upstream matcher for a pair of
// individuals. Lengths are genetic lengths in centimorgans, positions are
// physical base-pair coordinates.
type Segment struct {
	Indiv1     string
	Indiv2     string
	Chromosome int
	BPStart    int64
	BPEnd      int64
	LengthCM   float64
}

// PairKey identifies an unordered pair of individuals. (A,B) and (B,A)
// canonicalize to the same key.
type PairKey string

// NewPairKey returns the canonical key for two individual identifiers,
// lexicographically ordered and joined with ":".
func NewPairKey(a, b string) PairKey {
	if b < a {
		a, b = b, a
	}
	return PairKey(a + ":" + b)
}

// Split returns the two individual identifiers in canonical order.
func (p PairKey) Split() (string, string) {
	for i := 0; i < len(p); i++ {
		if p[i] == ':' {
			return string(p[:i]), string(p[i+1:])
		}
	}
	return string(p), ""
}

// SharedStatistic is the per-pair sufficient statistic for the sharing
// model: segment count, total shared genetic length, and the individual
// segment lengths sorted ascending. The ascending order is load-bearing:
// the mixture likelihood attributes a prefix of the sorted lengths to
// background sharing.
type SharedStatistic struct {
	Pair    PairKey
	N       int
	TotalCM float64
	Lengths []float64
}

// MalformedSegmentError reports an input record that fails validation.
// The record is rejected and surfaced, never silently dropped, so that
// per-pair counts stay explainable.
type MalformedSegmentError struct {
	Line   int // 1-based input line, 0 if unknown
	Reason string
	Seg    Segment
}

func (e *MalformedSegmentError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("malformed segment at line %d (%s:%s): %s", e.Line, e.Seg.Indiv1, e.Seg.Indiv2, e.Reason)
	}
	return fmt.Sprintf("malformed segment (%s:%s): %s", e.Seg.Indiv1, e.Seg.Indiv2, e.Reason)
}

// Validate checks a segment for the malformations the aggregator rejects:
// empty individual identifiers, an inverted base-pair range, or a
// non-positive genetic length.
func (s Segment) Validate() error {
	switch {
	case s.Indiv1 == "" || s.Indiv2 == "":
		return &MalformedSegmentError{Reason: "empty individual identifier", Seg: s}
	case s.BPEnd < s.BPStart:
		return &MalformedSegmentError{Reason: fmt.Sprintf("inverted position range %d..%d", s.BPStart, s.BPEnd), Seg: s}
	case s.LengthCM <= 0:
		return &MalformedSegmentError{Reason: fmt.Sprintf("non-positive genetic length %g", s.LengthCM), Seg: s}
	}
	return nil
}
