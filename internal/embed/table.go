package embed

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

var (
	ErrUnknownID   = errors.New("no embedding for id")
	ErrTableFormat = errors.New("malformed embedding table")
)

// Table is a precomputed embedding feed keyed by enzyme id.
type Table struct {
	dim  int
	rows map[string][]float64
	ids  []string
}

// ReadTable parses CSV with header `id,dim_0,...,dim_{n-1}`.
func ReadTable(r io.Reader) (*Table, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("%w: header: %v", ErrTableFormat, err)
	}
	if len(header) < 2 || strings.TrimSpace(header[0]) != "id" {
		return nil, fmt.Errorf("%w: first column must be id", ErrTableFormat)
	}
	for i, name := range header[1:] {
		if strings.TrimSpace(name) != fmt.Sprintf("dim_%d", i) {
			return nil, fmt.Errorf("%w: column %d is %q, want dim_%d", ErrTableFormat, i+1, name, i)
		}
	}

	t := &Table{dim: len(header) - 1, rows: map[string][]float64{}}
	line := 1
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", ErrTableFormat, line, err)
		}
		id := strings.TrimSpace(rec[0])
		if _, dup := t.rows[id]; dup {
			return nil, fmt.Errorf("%w: duplicate id %q on line %d", ErrTableFormat, id, line)
		}
		vec := make([]float64, t.dim)
		for i, raw := range rec[1:] {
			v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
			if err != nil {
				return nil, fmt.Errorf("%w: line %d dim_%d: %v", ErrTableFormat, line, i, err)
			}
			vec[i] = v
		}
		t.rows[id] = vec
		t.ids = append(t.ids, id)
	}
	return t, nil
}

func (t *Table) Dim() int { return t.dim }

func (t *Table) Len() int { return len(t.ids) }

// IDs returns ids in file order.
func (t *Table) IDs() []string { return append([]string(nil), t.ids...) }

// Lookup returns a copy of the vector for id.
func (t *Table) Lookup(id string) ([]float64, error) {
	v, ok := t.rows[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownID, id)
	}
	return append([]float64(nil), v...), nil
}

// WriteTable writes vectors in the format ReadTable accepts.
func WriteTable(w io.Writer, dim int, ids []string, vectors [][]float64) error {
	if len(ids) != len(vectors) {
		return fmt.Errorf("%w: %d ids for %d vectors", ErrTableFormat, len(ids), len(vectors))
	}
	cw := csv.NewWriter(w)
	header := make([]string, 0, dim+1)
	header = append(header, "id")
	for i := 0; i < dim; i++ {
		header = append(header, fmt.Sprintf("dim_%d", i))
	}
	if err := cw.Write(header); err != nil {
		return err
	}
	for i, id := range ids {
		if len(vectors[i]) != dim {
			return fmt.Errorf("%w: vector for %s has width %d, want %d", ErrTableFormat, id, len(vectors[i]), dim)
		}
		row := make([]string, 0, dim+1)
		row = append(row, id)
		for _, v := range vectors[i] {
			row = append(row, strconv.FormatFloat(v, 'g', -1, 64))
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// Precomputed serves Table rows for known sequences and falls back to
// another embedder for everything else.
type Precomputed struct {
	Table    *Table
	BySeq    map[string]string
	Fallback Embedder
}

func (p Precomputed) Dim() int { return p.Table.Dim() }

func (p Precomputed) Embed(ctx context.Context, seq string) ([]float64, error) {
	if id, ok := p.BySeq[seq]; ok {
		return p.Table.Lookup(id)
	}
	if p.Fallback == nil {
		return nil, fmt.Errorf("%w: sequence not in table", ErrUnknownID)
	}
	if p.Fallback.Dim() != p.Table.Dim() {
		return nil, fmt.Errorf("%w: fallback width %d, table width %d", ErrTableFormat, p.Fallback.Dim(), p.Table.Dim())
	}
	return p.Fallback.Embed(ctx, seq)
}
