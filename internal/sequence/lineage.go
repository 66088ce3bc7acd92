package sequence

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"

	"enzyflow/internal/model"
)

// ErrMissingLineage means neither the record nor its direct parent carries
// a sequence.
var ErrMissingLineage = errors.New("missing lineage")

var variantPattern = regexp.MustCompile(`^(.*)_v(\d+)_AI$`)

// ParentID strips a trailing _v<N>_AI suffix.
func ParentID(id string) (string, bool) {
	m := variantPattern.FindStringSubmatch(id)
	if m == nil || m[1] == "" {
		return "", false
	}
	return m[1], true
}

// Generation returns N for ids ending in _v<N>_AI and 0 otherwise.
func Generation(id string) int {
	m := variantPattern.FindStringSubmatch(id)
	if m == nil {
		return 0
	}
	n, err := strconv.Atoi(m[2])
	if err != nil {
		return 0
	}
	return n
}

// NextVariantID names the next generation derived from id.
func NextVariantID(id string) string {
	if root, ok := ParentID(id); ok {
		return fmt.Sprintf("%s_v%d_AI", root, Generation(id)+1)
	}
	return id + "_v1_AI"
}

// Lookup fetches a record by id. found is false for unknown ids.
type Lookup func(ctx context.Context, id string) (rec model.EnzymeRecord, found bool, err error)

// Resolution reports where a resolved sequence came from.
type Resolution struct {
	Sequence   string
	SourceID   string
	FromParent bool
}

// ResolveSequence returns the record's own sequence, else its direct
// parent's. It never looks further up the lineage.
func ResolveSequence(ctx context.Context, lookup Lookup, id string) (Resolution, error) {
	rec, found, err := lookup(ctx, id)
	if err != nil {
		return Resolution{}, err
	}
	if found && rec.Sequence != "" {
		return Resolution{Sequence: rec.Sequence, SourceID: id}, nil
	}

	parentID := ""
	if found && rec.ParentID != "" {
		parentID = rec.ParentID
	} else if p, ok := ParentID(id); ok {
		parentID = p
	}
	if parentID == "" {
		return Resolution{}, fmt.Errorf("%w: %s has no sequence and no parent", ErrMissingLineage, id)
	}

	parent, pfound, err := lookup(ctx, parentID)
	if err != nil {
		return Resolution{}, err
	}
	if !pfound || parent.Sequence == "" {
		return Resolution{}, fmt.Errorf("%w: %s and parent %s have no sequence", ErrMissingLineage, id, parentID)
	}
	return Resolution{Sequence: parent.Sequence, SourceID: parentID, FromParent: true}, nil
}
