package estimate

import (
	"fmt"
	"math"
	"strconv"
)

// Consanguinity labels for a combined generation count. The map is keyed by
// d and then by generation offset between the two individuals (negative:
// the first individual is in an older generation). Built once at package
// init for d up to relMapMaxD.

const (
	relMapMaxD  = 20
	yearsPerGen = 30
)

var relMap = buildRelMap(relMapMaxD)

// PotentialRelationship names the likely relationship for a significant
// estimate d, oriented by birth years (dob2 − dob1 bins the generation
// offset at 30 years per generation). Both perspectives are returned; empty
// strings mean no label exists for that d/offset combination.
func PotentialRelationship(d int, dob1, dob2 int) (string, string) {
	genBin := 0
	if d != 0 {
		genBin = int(math.Floor(float64(dob2-dob1+yearsPerGen/2) / yearsPerGen))
	}
	bins, ok := relMap[d]
	if !ok {
		return "", ""
	}
	name, ok := bins[genBin]
	if !ok {
		return "", ""
	}
	// Close odd-offset relationships are ambiguous in direction (aunt/uncle
	// vs niece/nephew); report both readings.
	if genBin%2 != 0 && d < 5 {
		both := name + " or " + bins[-genBin]
		return both, both
	}
	return bins[-genBin], name
}

func buildRelMap(maxD int) map[int]map[int]string {
	m := map[int]map[int]string{
		0: {0: "Identical Twins or Duplication"},
		1: {-1: "Parent", 1: "Child"},
		2: {-2: "Grandparent", 0: "Sibling", 2: "Grandchild"},
		3: {-3: "Great Grandparent", -1: "Aunt/Uncle", 1: "Niece/Nephew", 3: "Great Grandchild"},
	}
	for d := 4; d <= maxD; d++ {
		bins := map[int]string{}
		k := 1
		if d%2 == 0 {
			k = 2
			bins[0] = ordinal(d/2-1) + " Cousin"
		}
		for i := k; i <= d; i += 2 {
			var older, younger string
			switch {
			case i == d:
				older = ordinal(i-2) + " Great Grand"
				younger = older + "child"
				older += "parent"
			case i == d-2:
				if i-2 > 1 {
					older = ordinal(i-2) + " "
				}
				older += "Great "
				if i-2 > 0 {
					older += "Grand "
				}
				younger = older + "Niece/Nephew"
				older += "Aunt/Uncle"
			default:
				older = ordinal(d/2-1-i/2) + " Cousin " + timesWord(i) + " "
				if i > 3 {
					older += "Times "
				}
				older += "Removed"
				younger = older
			}
			bins[-i] = older
			bins[i] = younger
		}
		m[d] = bins
	}
	return m
}

// ordinal renders n as "1st", "2nd", "3rd", "4th", …
func ordinal(n int) string {
	suffix := "th"
	i := n
	if n >= 20 {
		i = n % 10
	}
	switch i {
	case 1:
		suffix = "st"
	case 2:
		suffix = "nd"
	case 3:
		suffix = "rd"
	}
	return strconv.Itoa(n) + suffix
}

var smallNumberWords = []string{
	"Zero", "One", "Two", "Three", "Four", "Five", "Six", "Seven", "Eight",
	"Nine", "Ten", "Eleven", "Twelve", "Thirteen", "Fourteen", "Fifteen",
	"Sixteen", "Seventeen", "Eighteen", "Nineteen", "Twenty",
}

// timesWord renders a removal count: "Once", "Twice", "Thrice", then the
// spelled-out number (followed by "Times" at the call site).
func timesWord(n int) string {
	switch n {
	case 1:
		return "Once"
	case 2:
		return "Twice"
	case 3:
		return "Thrice"
	}
	if n >= 0 && n < len(smallNumberWords) {
		return smallNumberWords[n]
	}
	return fmt.Sprintf("%d", n)
}
