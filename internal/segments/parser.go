package segments

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
)

// GERMLINE matchfile column layout; see the GERMLINE documentation for the
// full 15-column format. Only the columns the estimator needs are decoded.
const (
	colIndiv1        = 1
	colIndiv2        = 3
	colChrom         = 4
	colBPStart       = 5
	colBPEnd         = 6
	colLength        = 10
	colUnit          = 11
	matchfileColumns = 15
)

// ReadOptions controls matchfile parsing.
type ReadOptions struct {
	// Haploscores marks inputs carrying an extra trailing haploscore
	// column, which is discarded.
	Haploscores bool
	// User, when non-empty, keeps only segments involving that individual.
	User string
}

// ReadMatchfile parses a GERMLINE matchfile from r. Malformed lines are
// returned as MalformedSegmentError values alongside the good segments;
// a single bad line never aborts the read.
func ReadMatchfile(r io.Reader, opts ReadOptions) ([]Segment, []*MalformedSegmentError, error) {
	var (
		segs     []Segment
		rejected []*MalformedSegmentError
	)
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		fields := strings.Fields(text)
		if opts.Haploscores && len(fields) > 0 {
			fields = fields[:len(fields)-1]
		}
		seg, err := parseMatchLine(fields, line)
		if err != nil {
			rejected = append(rejected, err)
			continue
		}
		if opts.User != "" && seg.Indiv1 != opts.User && seg.Indiv2 != opts.User {
			continue
		}
		if err := seg.Validate(); err != nil {
			merr := err.(*MalformedSegmentError)
			merr.Line = line
			rejected = append(rejected, merr)
			continue
		}
		segs = append(segs, seg)
	}
	if err := scanner.Err(); err != nil {
		return nil, nil, fmt.Errorf("failed to read matchfile: %w", err)
	}
	return segs, rejected, nil
}

// ReadMatchfilePath opens and parses a matchfile from disk.
func ReadMatchfilePath(path string, opts ReadOptions) ([]Segment, []*MalformedSegmentError, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open matchfile: %w", err)
	}
	defer f.Close()
	return ReadMatchfile(f, opts)
}

func parseMatchLine(fields []string, line int) (Segment, *MalformedSegmentError) {
	var seg Segment
	if len(fields) != matchfileColumns {
		return seg, &MalformedSegmentError{Line: line, Reason: fmt.Sprintf("expected %d columns, got %d", matchfileColumns, len(fields))}
	}
	seg.Indiv1 = fields[colIndiv1]
	seg.Indiv2 = fields[colIndiv2]

	chrom, err := strconv.Atoi(fields[colChrom])
	if err != nil {
		return seg, &MalformedSegmentError{Line: line, Reason: "unparseable chromosome " + fields[colChrom], Seg: seg}
	}
	seg.Chromosome = chrom

	start, err := strconv.ParseInt(fields[colBPStart], 10, 64)
	if err != nil {
		return seg, &MalformedSegmentError{Line: line, Reason: "unparseable start position " + fields[colBPStart], Seg: seg}
	}
	seg.BPStart = start

	end, err := strconv.ParseInt(fields[colBPEnd], 10, 64)
	if err != nil {
		return seg, &MalformedSegmentError{Line: line, Reason: "unparseable end position " + fields[colBPEnd], Seg: seg}
	}
	seg.BPEnd = end

	length, err := strconv.ParseFloat(fields[colLength], 64)
	if err != nil {
		return seg, &MalformedSegmentError{Line: line, Reason: "unparseable genetic length " + fields[colLength], Seg: seg}
	}
	seg.LengthCM = length

	if unit := fields[colUnit]; unit != "cM" {
		return seg, &MalformedSegmentError{Line: line, Reason: "unsupported length unit " + unit, Seg: seg}
	}
	return seg, nil
}

// MergeNearby merges segments on the same chromosome of the same pair that
// are separated by at most gapBP base pairs. Genetic lengths add; the
// physical range extends to cover both. A negative gap disables merging.
func MergeNearby(segs []Segment, gapBP int64) []Segment {
	if gapBP < 0 || len(segs) < 2 {
		return segs
	}
	sorted := make([]Segment, len(segs))
	copy(sorted, segs)
	sort.Slice(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		ka, kb := NewPairKey(a.Indiv1, a.Indiv2), NewPairKey(b.Indiv1, b.Indiv2)
		if ka != kb {
			return ka < kb
		}
		if a.Chromosome != b.Chromosome {
			return a.Chromosome < b.Chromosome
		}
		return a.BPStart < b.BPStart
	})

	out := sorted[:0]
	for _, seg := range sorted {
		if len(out) > 0 {
			last := &out[len(out)-1]
			if NewPairKey(last.Indiv1, last.Indiv2) == NewPairKey(seg.Indiv1, seg.Indiv2) &&
				last.Chromosome == seg.Chromosome &&
				seg.BPStart-last.BPEnd <= gapBP {
				last.LengthCM += seg.LengthCM
				if seg.BPEnd > last.BPEnd {
					last.BPEnd = seg.BPEnd
				}
				continue
			}
		}
		out = append(out, seg)
	}
	return out
}
