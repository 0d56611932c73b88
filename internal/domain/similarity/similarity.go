package similarity

import (
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
)

// Score compares a supplier name with a vendor label and returns a value in
// [0,1]. It is the larger of the token overlap (shared tokens over the union)
// and the character edit-distance ratio of the normalized strings.
// Empty input on either side scores 0.
func Score(supplier, vendor string) float64 {
	a := Tokens(supplier)
	b := Tokens(vendor)
	if len(a) == 0 || len(b) == 0 {
		return 0
	}

	return clamp(max(TokenOverlap(a, b), EditRatio(join(a), join(b))))
}

// TokenOverlap returns the Jaccard index of two token lists.
func TokenOverlap(a, b []string) float64 {
	set := make(map[string]int, len(a)+len(b))
	for _, t := range a {
		set[t] |= 1
	}
	for _, t := range b {
		set[t] |= 2
	}
	if len(set) == 0 {
		return 0
	}

	shared := 0
	for _, v := range set {
		if v == 3 {
			shared++
		}
	}
	return float64(shared) / float64(len(set))
}

// EditRatio returns 1 - levenshtein(a, b) / max(len(a), len(b)) in runes.
func EditRatio(a, b string) float64 {
	longest := max(utf8.RuneCountInString(a), utf8.RuneCountInString(b))
	if longest == 0 {
		return 0
	}
	dist := levenshtein.ComputeDistance(a, b)
	return clamp(1 - float64(dist)/float64(longest))
}

func join(tokens []string) string {
	n := 0
	for _, t := range tokens {
		n += len(t) + 1
	}
	buf := make([]byte, 0, n)
	for i, t := range tokens {
		if i > 0 {
			buf = append(buf, ' ')
		}
		buf = append(buf, t...)
	}
	return string(buf)
}

func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
