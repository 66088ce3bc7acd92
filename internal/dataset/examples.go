package dataset

import (
	"context"
	"fmt"

	"enzyflow/internal/embed"
	"enzyflow/internal/model"
	"enzyflow/internal/surrogate"
)

// Examples joins samples to their records' sequence embeddings. Each
// distinct sequence is embedded once.
func Examples(ctx context.Context, samples []Sample, records []model.EnzymeRecord, e embed.Embedder) ([]surrogate.Example, error) {
	seqByID := make(map[string]string, len(records))
	for _, r := range records {
		seqByID[r.ID] = r.Sequence
	}
	vecs := map[string][]float64{}
	out := make([]surrogate.Example, 0, len(samples))
	for _, s := range samples {
		seq, ok := seqByID[s.ID]
		if !ok {
			return nil, fmt.Errorf("sample references unknown enzyme %q", s.ID)
		}
		vec, ok := vecs[seq]
		if !ok {
			var err error
			vec, err = e.Embed(ctx, seq)
			if err != nil {
				return nil, fmt.Errorf("embed %s: %w", s.ID, err)
			}
			vecs[seq] = vec
		}
		out = append(out, surrogate.Example{
			Input: surrogate.Input{
				Embedding:   vec,
				Temperature: s.Temperature,
				PH:          s.PH,
				Substrate:   s.Substrate,
			},
			Yield: s.Yield,
		})
	}
	return out, nil
}
