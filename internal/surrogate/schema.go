// Package surrogate predicts reaction yield from a sequence embedding and the
// reaction environment.
package surrogate

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrSchemaMismatch is returned whenever a feature set does not line up with
// the schema a model was trained on.
var ErrSchemaMismatch = errors.New("feature schema mismatch")

type SlotKind string

const (
	SlotEmbedding SlotKind = "embedding"
	SlotOneHot    SlotKind = "onehot"
	SlotNumeric   SlotKind = "numeric"
)

const (
	FeatureTemperature = "temperature"
	FeaturePH          = "ph"
	substratePrefix    = "substrate="
)

// Slot is one named, typed position in a feature vector.
type Slot struct {
	Name     string   `json:"name"`
	Kind     SlotKind `json:"kind"`
	Category string   `json:"category,omitempty"`
}

// Schema is the ordered feature layout fixed at training time. Order:
// embedding dims, substrate one-hots, temperature, pH.
type Schema struct {
	Slots []Slot `json:"slots"`
}

// Input is the typed form of one prediction request.
type Input struct {
	Embedding   []float64 `json:"embedding"`
	Temperature float64   `json:"temperature"`
	PH          float64   `json:"ph"`
	Substrate   string    `json:"substrate"`
}

func EmbeddingFeature(i int) string { return fmt.Sprintf("dim_%d", i) }

func SubstrateFeature(name string) string { return substratePrefix + name }

// NewSchema builds the layout for the given embedding width and substrate
// vocabulary. Substrates are de-duplicated and sorted.
func NewSchema(embeddingDim int, substrates []string) (Schema, error) {
	if embeddingDim <= 0 {
		return Schema{}, fmt.Errorf("%w: embedding width %d", ErrSchemaMismatch, embeddingDim)
	}
	uniq := map[string]struct{}{}
	for _, s := range substrates {
		s = strings.TrimSpace(s)
		if s == "" {
			return Schema{}, fmt.Errorf("%w: empty substrate name", ErrSchemaMismatch)
		}
		uniq[s] = struct{}{}
	}
	if len(uniq) == 0 {
		return Schema{}, fmt.Errorf("%w: no substrates", ErrSchemaMismatch)
	}
	names := make([]string, 0, len(uniq))
	for s := range uniq {
		names = append(names, s)
	}
	sort.Strings(names)

	slots := make([]Slot, 0, embeddingDim+len(names)+2)
	for i := 0; i < embeddingDim; i++ {
		slots = append(slots, Slot{Name: EmbeddingFeature(i), Kind: SlotEmbedding})
	}
	for _, s := range names {
		slots = append(slots, Slot{Name: SubstrateFeature(s), Kind: SlotOneHot, Category: s})
	}
	slots = append(slots,
		Slot{Name: FeatureTemperature, Kind: SlotNumeric},
		Slot{Name: FeaturePH, Kind: SlotNumeric},
	)
	return Schema{Slots: slots}, nil
}

// Validate checks a schema loaded from an artifact.
func (s Schema) Validate() error {
	if len(s.Slots) == 0 {
		return fmt.Errorf("%w: empty schema", ErrSchemaMismatch)
	}
	seen := map[string]struct{}{}
	var hasTemp, hasPH bool
	for i, slot := range s.Slots {
		if _, dup := seen[slot.Name]; dup {
			return fmt.Errorf("%w: duplicate slot %q", ErrSchemaMismatch, slot.Name)
		}
		seen[slot.Name] = struct{}{}
		switch slot.Kind {
		case SlotEmbedding:
		case SlotOneHot:
			if slot.Category == "" || slot.Name != SubstrateFeature(slot.Category) {
				return fmt.Errorf("%w: malformed one-hot slot %d %q", ErrSchemaMismatch, i, slot.Name)
			}
		case SlotNumeric:
			hasTemp = hasTemp || slot.Name == FeatureTemperature
			hasPH = hasPH || slot.Name == FeaturePH
		default:
			return fmt.Errorf("%w: slot %q has unknown kind %q", ErrSchemaMismatch, slot.Name, slot.Kind)
		}
	}
	if !hasTemp || !hasPH {
		return fmt.Errorf("%w: temperature and ph slots are required", ErrSchemaMismatch)
	}
	return nil
}

func (s Schema) Len() int { return len(s.Slots) }

func (s Schema) Names() []string {
	out := make([]string, len(s.Slots))
	for i, slot := range s.Slots {
		out[i] = slot.Name
	}
	return out
}

func (s Schema) EmbeddingDim() int {
	n := 0
	for _, slot := range s.Slots {
		if slot.Kind == SlotEmbedding {
			n++
		}
	}
	return n
}

func (s Schema) Substrates() []string {
	var out []string
	for _, slot := range s.Slots {
		if slot.Kind == SlotOneHot {
			out = append(out, slot.Category)
		}
	}
	return out
}

// Vector lays out a typed input. The embedding width must match and the
// substrate must be one the schema was trained with.
func (s Schema) Vector(in Input) ([]float64, error) {
	if got, want := len(in.Embedding), s.EmbeddingDim(); got != want {
		return nil, fmt.Errorf("%w: embedding width %d, want %d", ErrSchemaMismatch, got, want)
	}
	out := make([]float64, len(s.Slots))
	matched := false
	e := 0
	for i, slot := range s.Slots {
		switch slot.Kind {
		case SlotEmbedding:
			out[i] = in.Embedding[e]
			e++
		case SlotOneHot:
			if slot.Category == in.Substrate {
				out[i] = 1
				matched = true
			}
		case SlotNumeric:
			switch slot.Name {
			case FeatureTemperature:
				out[i] = in.Temperature
			case FeaturePH:
				out[i] = in.PH
			default:
				return nil, fmt.Errorf("%w: typed input has no value for %q", ErrSchemaMismatch, slot.Name)
			}
		}
	}
	if !matched {
		return nil, fmt.Errorf("%w: unknown substrate %q", ErrSchemaMismatch, in.Substrate)
	}
	return out, nil
}

// VectorFromNamed lays out a name→value map. Absent one-hot slots are zero;
// any other absent slot or any name the schema does not know is an error.
func (s Schema) VectorFromNamed(features map[string]float64) ([]float64, error) {
	index := make(map[string]int, len(s.Slots))
	for i, slot := range s.Slots {
		index[slot.Name] = i
	}
	var unknown []string
	for name := range features {
		if _, ok := index[name]; !ok {
			unknown = append(unknown, name)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return nil, fmt.Errorf("%w: unknown features %v", ErrSchemaMismatch, unknown)
	}
	out := make([]float64, len(s.Slots))
	for i, slot := range s.Slots {
		v, ok := features[slot.Name]
		if !ok {
			if slot.Kind == SlotOneHot {
				continue
			}
			return nil, fmt.Errorf("%w: missing feature %q", ErrSchemaMismatch, slot.Name)
		}
		out[i] = v
	}
	return out, nil
}
