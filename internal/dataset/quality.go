package dataset

import (
	"fmt"
	"io"
	"sort"

	"enzyflow/internal/model"
)

type Gate struct {
	Name   string `json:"name"`
	Passed bool   `json:"passed"`
	Value  int    `json:"value"`
}

type QualityReport struct {
	Total   int                       `json:"total"`
	Classes map[model.Specificity]int `json:"classes"`
	Missing map[string]int            `json:"missing"`
	Gates   []Gate                    `json:"gates"`
	Passed  bool                      `json:"passed"`
}

// Minimum class counts a training set needs.
const (
	MinBetaGlucosidase   = 20
	MinCellobiohydrolase = 10
	MinEndoglucanase     = 50
)

// Quality checks class balance and missing values.
func Quality(records []model.EnzymeRecord) QualityReport {
	r := QualityReport{
		Total:   len(records),
		Classes: map[model.Specificity]int{},
		Missing: map[string]int{},
	}
	for _, rec := range records {
		r.Classes[rec.Specificity]++
		if rec.Accession == "" {
			r.Missing["accession"]++
		}
		if rec.Sequence == "" {
			r.Missing["sequence"]++
		}
		if rec.Kinetics.Kcat == 0 {
			r.Missing["kcat"]++
		}
		if rec.Kinetics.Km == 0 {
			r.Missing["Km"]++
		}
		if rec.Kinetics.Ki == 0 {
			r.Missing["Ki"]++
		}
	}
	bg := r.Classes[model.SpecificityBetaGlucosidase]
	cbh := r.Classes[model.SpecificityCellobiohydrolase]
	eg := r.Classes[model.SpecificityCellulase]
	r.Gates = []Gate{
		{Name: fmt.Sprintf("BG >= %d", MinBetaGlucosidase), Passed: bg >= MinBetaGlucosidase, Value: bg},
		{Name: fmt.Sprintf("CBH >= %d", MinCellobiohydrolase), Passed: cbh >= MinCellobiohydrolase, Value: cbh},
		{Name: fmt.Sprintf("EG >= %d", MinEndoglucanase), Passed: eg >= MinEndoglucanase, Value: eg},
		{Name: "No missing kcat", Passed: r.Missing["kcat"] == 0, Value: r.Missing["kcat"]},
		{Name: "No missing Km", Passed: r.Missing["Km"] == 0, Value: r.Missing["Km"]},
	}
	r.Passed = true
	for _, g := range r.Gates {
		r.Passed = r.Passed && g.Passed
	}
	return r
}

// WriteMarkdown renders the report as a small markdown document.
func (r QualityReport) WriteMarkdown(w io.Writer) error {
	classes := make([]string, 0, len(r.Classes))
	for c := range r.Classes {
		classes = append(classes, string(c))
	}
	sort.Strings(classes)

	if _, err := fmt.Fprintf(w, "# Dataset Quality Report\n\n- Total records: %d\n\n## Class Distribution\n\n| Specificity | Count |\n|:---|---:|\n", r.Total); err != nil {
		return err
	}
	for _, c := range classes {
		if _, err := fmt.Fprintf(w, "| %s | %d |\n", c, r.Classes[model.Specificity(c)]); err != nil {
			return err
		}
	}
	if _, err := fmt.Fprint(w, "\n## Quality Gates\n\n| Check | Status | Value |\n|:---|:---:|---:|\n"); err != nil {
		return err
	}
	for _, g := range r.Gates {
		status := "FAIL"
		if g.Passed {
			status = "PASS"
		}
		if _, err := fmt.Fprintf(w, "| %s | %s | %d |\n", g.Name, status, g.Value); err != nil {
			return err
		}
	}
	return nil
}
