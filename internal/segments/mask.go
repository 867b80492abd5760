package segments

// Genomic region masking. Certain regions of the autosomes produce
// systematically inflated IBD calls; segments overlapping them are trimmed
// or dropped before estimation. Regions and lengths follow Huff et al. 2014
// (Table 3): 14 regions totalling 119.92 cM, each at least 5 cM.

// maskBufferBP is how far a segment must extend beyond each end of a masked
// region before it counts as spanning rather than contained.
const maskBufferBP int64 = 1_000_000

type maskedRegion struct {
	lowBP  int64
	highBP int64
	cm     float64
}

// maskedRegions is indexed by chromosome number (1-22).
var maskedRegions = map[int][]maskedRegion{
	1:  {{118434520, 153401108, 9.95}},
	2:  {{85304243, 99558013, 6.53}, {132695025, 141442636, 9.16}, {192352906, 198110229, 5.04}},
	8:  {{10428647, 13469693, 7.96}},
	9:  {{38293483, 72605261, 8.15}},
	10: {{44555093, 53240188, 7.58}},
	15: {{20060673, 25145260, 10.46}, {27115823, 30295750, 9.29}},
	16: {{19393068, 24031556, 6.18}},
	17: {{59518083, 64970531, 6.23}, {77186666, 78417478, 5.66}},
	21: {{16344186, 19375168, 6.91}},
	22: {{16051881, 25095451, 20.82}},
}

// TotalMaskedCM returns the summed genetic length of all masked regions.
func TotalMaskedCM() float64 {
	var total float64
	for _, regions := range maskedRegions {
		for _, r := range regions {
			total += r.cm
		}
	}
	return total
}

// MaskSegments adjusts segment lengths for masked genomic regions and
// drops segments that fall entirely inside one or whose adjusted length
// falls below minCM. Segments are value copies; callers keep their inputs.
//
// Policy per region overlap, matching the masking rules the region table
// was calibrated with:
//   - segment inside region (within the buffer): dropped
//   - segment spanning the region and both buffers: masked cM subtracted
//   - partial overlap: length scaled by the unmasked fraction and the
//     physical range truncated at the region boundary
func MaskSegments(segs []Segment, minCM float64) []Segment {
	out := make([]Segment, 0, len(segs))
	for _, s := range segs {
		for _, r := range maskedRegions[s.Chromosome] {
			low, high := r.lowBP, r.highBP
			switch {
			case s.BPStart > low-maskBufferBP && s.BPEnd < high+maskBufferBP:
				s.LengthCM = 0
			case s.BPStart <= low-maskBufferBP && s.BPEnd >= high+maskBufferBP:
				s.LengthCM -= r.cm
			case low <= s.BPStart && s.BPStart <= high && high < s.BPEnd:
				ratio := float64(s.BPEnd-high) / float64(s.BPEnd-s.BPStart)
				s.LengthCM = roundCM(s.LengthCM * ratio)
				s.BPStart = high
			case high >= s.BPEnd && s.BPEnd >= low && low > s.BPStart:
				ratio := float64(low-s.BPStart) / float64(s.BPEnd-s.BPStart)
				s.LengthCM = roundCM(s.LengthCM * ratio)
				s.BPEnd = low
			default:
				continue
			}
			break
		}
		if s.LengthCM >= minCM {
			out = append(out, s)
		}
	}
	return out
}

// roundCM rounds to two decimal places, the precision of the region table.
func roundCM(v float64) float64 {
	if v < 0 {
		return float64(int64(v*100-0.5)) / 100
	}
	return float64(int64(v*100+0.5)) / 100
}
