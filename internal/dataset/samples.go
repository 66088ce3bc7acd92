package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"enzyflow/internal/model"
)

var sampleColumns = []string{"id", "temp", "ph", "substrate", "yield", "kcat_base", "Km_base", "enzyme_type"}

func WriteSamples(w io.Writer, samples []Sample) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(sampleColumns); err != nil {
		return err
	}
	f := func(v float64) string { return strconv.FormatFloat(v, 'g', -1, 64) }
	for _, s := range samples {
		row := []string{s.ID, f(s.Temperature), f(s.PH), s.Substrate, f(s.Yield), f(s.Kcat), f(s.Km), string(s.Specificity)}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func ReadSamples(r io.Reader) ([]Sample, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("%w: header: %v", ErrRecordFormat, err)
	}
	if len(header) != len(sampleColumns) {
		return nil, fmt.Errorf("%w: sample header has %d columns, want %d", ErrRecordFormat, len(header), len(sampleColumns))
	}
	for i, name := range sampleColumns {
		if strings.TrimSpace(header[i]) != name {
			return nil, fmt.Errorf("%w: sample column %d is %q, want %q", ErrRecordFormat, i, header[i], name)
		}
	}
	var out []Sample
	line := 1
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", ErrRecordFormat, line, err)
		}
		var nums [5]float64
		for i, idx := range []int{1, 2, 4, 5, 6} {
			v, err := strconv.ParseFloat(strings.TrimSpace(row[idx]), 64)
			if err != nil {
				return nil, fmt.Errorf("%w: line %d %s: %v", ErrRecordFormat, line, sampleColumns[idx], err)
			}
			nums[i] = v
		}
		out = append(out, Sample{
			ID:          strings.TrimSpace(row[0]),
			Temperature: nums[0],
			PH:          nums[1],
			Substrate:   strings.TrimSpace(row[3]),
			Yield:       nums[2],
			Kcat:        nums[3],
			Km:          nums[4],
			Specificity: model.ParseSpecificity(row[7]),
		})
	}
	return out, nil
}
