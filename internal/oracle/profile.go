package oracle

import (
	"math"
	"strings"
	"unicode/utf8"

	"enzyflow/internal/sequence"
)

// Profile scores a sequence on a 1–5 scale for display.
type Profile struct {
	Hydrophobicity float64 `json:"hydrophobicity"`
	Charge         float64 `json:"charge"`
	Stability      float64 `json:"stability"`
}

// SequenceProfile rates mean hydropathy, net charge at pH 7 and the
// aliphatic-to-flexible residue ratio.
func SequenceProfile(seq string) Profile {
	n := utf8.RuneCountInString(seq)
	if n == 0 {
		return Profile{Hydrophobicity: 3, Charge: 3, Stability: 3}
	}
	var sum float64
	for _, r := range seq {
		sum += sequence.Hydropathy(r)
	}
	count := func(set string) int {
		c := 0
		for _, r := range seq {
			if strings.ContainsRune(set, r) {
				c++
			}
		}
		return c
	}
	net := float64(count("RK") - count("DE"))
	aliphatic := float64(count("AVLI"))
	flexible := float64(count("GS"))

	return Profile{
		Hydrophobicity: round(clampScore(3+sum/float64(n)), 1),
		Charge:         round(clampScore(3+net/5), 1),
		Stability:      round(clampScore(aliphatic/(flexible+1)*3), 1),
	}
}

func clampScore(v float64) float64 {
	return math.Min(5, math.Max(1, v))
}
