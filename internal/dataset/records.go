package dataset

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"enzyflow/internal/model"
	"enzyflow/internal/sequence"
)

var ErrRecordFormat = errors.New("malformed enzyme records")

// RecordColumns is the header ReadEnzymeRecords requires. Numeric cells may
// be empty; they read as zero and Populate fills them.
var RecordColumns = []string{"id", "accession", "sequence", "specificity", "kcat", "Km", "Ki", "t_opt", "ph_opt", "organism"}

var optionalColumns = []string{"source_type", "parent_id"}

// ReadEnzymeRecords parses the kinetics CSV. Column order is free; extra
// columns are ignored.
func ReadEnzymeRecords(r io.Reader) ([]model.EnzymeRecord, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = -1
	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("%w: header: %v", ErrRecordFormat, err)
	}
	col := map[string]int{}
	for i, name := range header {
		col[strings.TrimSpace(name)] = i
	}
	var missing []string
	for _, name := range RecordColumns {
		if _, ok := col[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: missing columns %v", ErrRecordFormat, missing)
	}

	var out []model.EnzymeRecord
	seen := map[string]struct{}{}
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
		cell := func(name string) string {
			i, ok := col[name]
			if !ok || i >= len(row) {
				return ""
			}
			return strings.TrimSpace(row[i])
		}
		num := func(name string) (float64, error) {
			raw := cell(name)
			if raw == "" || strings.EqualFold(raw, "nan") {
				return 0, nil
			}
			v, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				return 0, fmt.Errorf("%w: line %d %s: %v", ErrRecordFormat, line, name, err)
			}
			return v, nil
		}

		rec := model.EnzymeRecord{
			ID:          cell("id"),
			Accession:   cell("accession"),
			Sequence:    sequence.Normalize(cell("sequence")),
			Specificity: model.ParseSpecificity(cell("specificity")),
			Organism:    cell("organism"),
			Source:      cell(optionalColumns[0]),
			ParentID:    cell(optionalColumns[1]),
		}
		if rec.ID == "" {
			return nil, fmt.Errorf("%w: line %d: empty id", ErrRecordFormat, line)
		}
		if _, dup := seen[rec.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate id %q on line %d", ErrRecordFormat, rec.ID, line)
		}
		seen[rec.ID] = struct{}{}
		rec.Generation = sequence.Generation(rec.ID)

		fields := []*float64{&rec.Kinetics.Kcat, &rec.Kinetics.Km, &rec.Kinetics.Ki, &rec.Kinetics.TOpt, &rec.Kinetics.PHOpt}
		for i, name := range []string{"kcat", "Km", "Ki", "t_opt", "ph_opt"} {
			v, err := num(name)
			if err != nil {
				return nil, err
			}
			*fields[i] = v
		}
		out = append(out, rec)
	}
	return out, nil
}

// WriteEnzymeRecords writes records in the layout ReadEnzymeRecords reads.
func WriteEnzymeRecords(w io.Writer, records []model.EnzymeRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(append(append([]string(nil), RecordColumns...), optionalColumns...)); err != nil {
		return err
	}
	f := func(v float64) string { return strconv.FormatFloat(v, 'g', -1, 64) }
	for _, r := range records {
		k := r.Kinetics
		row := []string{
			r.ID, r.Accession, r.Sequence, string(r.Specificity),
			f(k.Kcat), f(k.Km), f(k.Ki), f(k.TOpt), f(k.PHOpt),
			r.Organism, r.Source, r.ParentID,
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadFASTA parses sequence-only records. The id is the first token of the
// header line; kinetics are left empty for Populate.
func ReadFASTA(r io.Reader) ([]model.EnzymeRecord, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 4*1024*1024)
	var (
		out  []model.EnzymeRecord
		cur  *model.EnzymeRecord
		body strings.Builder
		line int
	)
	flush := func() error {
		if cur == nil {
			return nil
		}
		cur.Sequence = sequence.Normalize(body.String())
		if cur.Sequence == "" {
			return fmt.Errorf("%w: record %q has no sequence", ErrRecordFormat, cur.ID)
		}
		out = append(out, *cur)
		body.Reset()
		return nil
	}
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, ";") {
			continue
		}
		if strings.HasPrefix(text, ">") {
			if err := flush(); err != nil {
				return nil, err
			}
			fields := strings.Fields(text[1:])
			if len(fields) == 0 {
				return nil, fmt.Errorf("%w: line %d: empty FASTA header", ErrRecordFormat, line)
			}
			cur = &model.EnzymeRecord{
				ID:          fields[0],
				Specificity: model.SpecificityOther,
				Generation:  sequence.Generation(fields[0]),
			}
			continue
		}
		if cur == nil {
			return nil, fmt.Errorf("%w: line %d: sequence before header", ErrRecordFormat, line)
		}
		body.WriteString(text)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if err := flush(); err != nil {
		return nil, err
	}
	return out, nil
}
