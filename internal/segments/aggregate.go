package segments

import "sort"

// AggregateResult carries the per-pair statistics together with the
// rejected records from one aggregation pass. Rejections never abort the
// pass; the caller decides whether to treat them as fatal.
type AggregateResult struct {
	Stats    map[PairKey]*SharedStatistic
	Rejected []*MalformedSegmentError
}

// Aggregate groups segments by unordered pair, drops segments shorter than
// minCM and returns the per-pair sufficient statistics. Input order is
// irrelevant and duplicate records are kept as reported (the upstream
// matcher already dedupes bidirectional pairs; if it does not, the inflated
// count is its bug to fix, not ours to hide).
//
// Segments failing Validate are collected in Rejected and excluded from
// every statistic.
func Aggregate(segs []Segment, minCM float64) AggregateResult {
	res := AggregateResult{Stats: make(map[PairKey]*SharedStatistic)}
	for _, seg := range segs {
		if err := seg.Validate(); err != nil {
			res.Rejected = append(res.Rejected, err.(*MalformedSegmentError))
			continue
		}
		if seg.LengthCM < minCM {
			continue
		}
		key := NewPairKey(seg.Indiv1, seg.Indiv2)
		st, ok := res.Stats[key]
		if !ok {
			st = &SharedStatistic{Pair: key}
			res.Stats[key] = st
		}
		st.N++
		st.TotalCM += seg.LengthCM
		st.Lengths = append(st.Lengths, seg.LengthCM)
	}
	for _, st := range res.Stats {
		sort.Float64s(st.Lengths)
	}
	return res
}

// GroupByPair buckets validated segments by unordered pair without
// filtering or summarizing. Used by the persistence layer, which stores the
// raw segment list alongside each estimate.
func GroupByPair(segs []Segment, minCM float64) map[PairKey][]Segment {
	out := make(map[PairKey][]Segment)
	for _, seg := range segs {
		if seg.Validate() != nil || seg.LengthCM < minCM {
			continue
		}
		key := NewPairKey(seg.Indiv1, seg.Indiv2)
		out[key] = append(out[key], seg)
	}
	for _, list := range out {
		sort.Slice(list, func(i, j int) bool {
			if list[i].Chromosome != list[j].Chromosome {
				return list[i].Chromosome < list[j].Chromosome
			}
			return list[i].BPStart < list[j].BPStart
		})
	}
	return out
}
