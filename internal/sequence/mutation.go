package sequence

import (
	"errors"
	"fmt"
	"math/rand"
	"regexp"
	"strconv"
	"sync"
	"unicode/utf8"
)

var (
	ErrInvalidMutation = errors.New("invalid mutation")
	ErrEmptySequence   = errors.New("empty sequence")
)

// Mutation is a single substitution. Position is 1-based.
type Mutation struct {
	Original    byte
	Position    int
	Replacement byte
}

func (m Mutation) String() string {
	return fmt.Sprintf("%c%d%c", m.Original, m.Position, m.Replacement)
}

var mutationPattern = regexp.MustCompile(`^([A-Z])([1-9][0-9]*)([A-Z])$`)

// ParseMutation parses the {original}{position}{replacement} descriptor.
func ParseMutation(desc string) (Mutation, error) {
	m := mutationPattern.FindStringSubmatch(desc)
	if m == nil {
		return Mutation{}, fmt.Errorf("%w: descriptor %q", ErrInvalidMutation, desc)
	}
	pos, err := strconv.Atoi(m[2])
	if err != nil {
		return Mutation{}, fmt.Errorf("%w: position %q: %v", ErrInvalidMutation, m[2], err)
	}
	return Mutation{Original: m[1][0], Position: pos, Replacement: m[3][0]}, nil
}

// Apply substitutes the residue, refusing positions out of range and
// residues that do not match the descriptor's original.
func (m Mutation) Apply(seq string) (string, error) {
	if err := checkASCII(seq); err != nil {
		return "", err
	}
	idx := m.Position - 1
	if idx < 0 || idx >= len(seq) {
		return "", fmt.Errorf("%w: position %d outside sequence of length %d", ErrInvalidMutation, m.Position, len(seq))
	}
	if seq[idx] != m.Original {
		return "", fmt.Errorf("%w: expected %c at position %d, found %c", ErrInvalidMutation, m.Original, m.Position, seq[idx])
	}
	b := []byte(seq)
	b[idx] = m.Replacement
	return string(b), nil
}

// Apply parses desc and applies it to seq.
func Apply(seq, desc string) (string, error) {
	m, err := ParseMutation(desc)
	if err != nil {
		return "", err
	}
	return m.Apply(seq)
}

// PointMutator proposes uniformly random single substitutions. It is safe
// for concurrent use.
type PointMutator struct {
	mu  sync.Mutex
	rng *rand.Rand
}

func NewPointMutator(rng *rand.Rand) *PointMutator {
	if rng == nil {
		rng = rand.New(rand.NewSource(1))
	}
	return &PointMutator{rng: rng}
}

// Propose returns seq with one position replaced by a different standard
// residue.
func (p *PointMutator) Propose(seq string) (string, Mutation, error) {
	if seq == "" {
		return "", Mutation{}, ErrEmptySequence
	}
	if err := checkASCII(seq); err != nil {
		return "", Mutation{}, err
	}
	p.mu.Lock()
	pos := p.rng.Intn(len(seq))
	orig := seq[pos]
	repl := Alphabet[p.rng.Intn(len(Alphabet))]
	for repl == orig {
		repl = Alphabet[p.rng.Intn(len(Alphabet))]
	}
	p.mu.Unlock()

	m := Mutation{Original: orig, Position: pos + 1, Replacement: repl}
	b := []byte(seq)
	b[pos] = repl
	return string(b), m, nil
}

// checkASCII rejects sequences with multi-byte characters. Positions are
// byte offsets, so a substitution must not split a rune.
func checkASCII(seq string) error {
	for i := 0; i < len(seq); i++ {
		if seq[i] >= utf8.RuneSelf {
			r, _ := utf8.DecodeRuneInString(seq[i:])
			return fmt.Errorf("%w: non-ASCII residue %q at byte %d", ErrInvalidMutation, r, i+1)
		}
	}
	return nil
}
