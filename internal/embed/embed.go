// Package embed turns sequences into fixed-width feature vectors.
package embed

import (
	"context"
	"errors"
	"math"
	"strings"
	"unicode/utf8"

	"enzyflow/internal/sequence"
)

var ErrEmptySequence = errors.New("cannot embed empty sequence")

// Embedder is read-only after construction and safe for concurrent use.
type Embedder interface {
	Dim() int
	Embed(ctx context.Context, seq string) ([]float64, error)
}

// compositionExtras counts the descriptors appended after the 20 residue
// fractions.
const compositionExtras = 4

// CompositionEmbedder maps a sequence to its residue composition followed by
// normalized mean hydropathy, net charge density, the aliphatic-to-flexible
// ratio and log length.
type CompositionEmbedder struct{}

func (CompositionEmbedder) Dim() int { return len(sequence.Alphabet) + compositionExtras }

func (e CompositionEmbedder) Embed(ctx context.Context, seq string) ([]float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	n := utf8.RuneCountInString(seq)
	if n == 0 {
		return nil, ErrEmptySequence
	}
	vec := make([]float64, e.Dim())
	var hydro, charge, aliphatic, flexible float64
	for _, r := range seq {
		if i := strings.IndexRune(sequence.Alphabet, r); i >= 0 {
			vec[i]++
		}
		hydro += sequence.Hydropathy(r)
		switch r {
		case 'R', 'K':
			charge++
		case 'D', 'E':
			charge--
		case 'A', 'V', 'L', 'I':
			aliphatic++
		case 'G', 'S':
			flexible++
		}
	}
	fn := float64(n)
	for i := range sequence.Alphabet {
		vec[i] /= fn
	}
	base := len(sequence.Alphabet)
	vec[base] = (hydro/fn + 4.5) / 9
	vec[base+1] = charge / fn
	vec[base+2] = aliphatic / (flexible + 1)
	vec[base+3] = math.Log(fn)
	return vec, nil
}
