// Package sequence holds amino-acid sequence utilities: residue validation,
// point mutations and variant lineage naming.
package sequence

import (
	"errors"
	"fmt"
	"strings"
)

// Alphabet lists the 20 standard amino acids in proposal order.
const Alphabet = "ARNDCQEGHILKMFPSTWYV"

var ErrInvalidResidue = errors.New("invalid residue")

// InvalidResidue locates a character outside Alphabet. Position is 1-based.
type InvalidResidue struct {
	Position int  `json:"position"`
	Residue  rune `json:"residue"`
}

func (r InvalidResidue) Error() string {
	return fmt.Sprintf("%v %q at position %d", ErrInvalidResidue, r.Residue, r.Position)
}

func (r InvalidResidue) Unwrap() error { return ErrInvalidResidue }

func IsStandard(r rune) bool {
	return r < 128 && strings.IndexByte(Alphabet, byte(r)) >= 0
}

// Normalize upper-cases seq and strips whitespace.
func Normalize(seq string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\t', '\n', '\r':
			return -1
		}
		if r >= 'a' && r <= 'z' {
			return r - 'a' + 'A'
		}
		return r
	}, seq)
}

// Validate reports every residue outside the standard alphabet.
func Validate(seq string) []InvalidResidue {
	var out []InvalidResidue
	pos := 0
	for _, r := range seq {
		pos++
		if !IsStandard(r) {
			out = append(out, InvalidResidue{Position: pos, Residue: r})
		}
	}
	return out
}

// kyteDoolittle is the Kyte–Doolittle hydropathy scale.
var kyteDoolittle = map[rune]float64{
	'A': 1.8, 'R': -4.5, 'N': -3.5, 'D': -3.5, 'C': 2.5,
	'Q': -3.5, 'E': -3.5, 'G': -0.4, 'H': -3.2, 'I': 4.5,
	'L': 3.8, 'K': -3.9, 'M': 1.9, 'F': 2.8, 'P': -1.6,
	'S': -0.8, 'T': -0.7, 'W': -0.9, 'Y': -1.3, 'V': 4.2,
}

// Hydropathy returns the Kyte–Doolittle score of r. Residues outside the
// standard alphabet score 0.
func Hydropathy(r rune) float64 {
	return kyteDoolittle[r]
}
