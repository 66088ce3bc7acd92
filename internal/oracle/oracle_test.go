package oracle

import (
	"testing"

	"enzyflow/internal/model"
)

func TestGroundTruthKnownSequences(t *testing.T) {
	cases := []struct {
		seq  string
		want model.KineticParams
	}{
		{"MKVLLAGSTWYRDEQNHCIPAAAVVV", model.KineticParams{Kcat: 19.06, Km: 23.53, Ki: 46.94, TOpt: 56.2, PHOpt: 8.0}},
		{"ACDEFGHIKLMNPQRSTVWY", model.KineticParams{Kcat: 5.88, Km: 28.22, Ki: 47.6, TOpt: 53.4, PHOpt: 5.5}},
		// Shorter than ten residues: neutral properties.
		{"MKV", model.KineticParams{Kcat: 9.05, Km: 25.5, Ki: 44.62, TOpt: 55.0, PHOpt: 6.0}},
		{"", Fallback},
	}
	for _, c := range cases {
		if got := GroundTruth(c.seq); got != c.want {
			t.Fatalf("GroundTruth(%q) = %+v want %+v", c.seq, got, c.want)
		}
	}
}

func TestGroundTruthIsPure(t *testing.T) {
	seqs := []string{"MKVLLAGSTWYRDEQNHCIP", "GGGGGGGGGGGGGGGG", "IIIIVVVVLLLLFFFF", "DEDEDEDEKRKRKRKR"}
	for _, s := range seqs {
		a := GroundTruth(s)
		b := GroundTruth(string([]byte(s)))
		if a != b {
			t.Fatalf("expected identical output for %q: %+v vs %+v", s, a, b)
		}
	}
}

func TestGroundTruthBounds(t *testing.T) {
	for _, s := range []string{"IIIIIIIIIIIIIIII", "RRRRRRRRRRRRRRRR", "MKVLLAGSTWYRDEQNHCIP"} {
		p := GroundTruth(s)
		if p.Kcat < 0.1 || p.Kcat > 20 {
			t.Fatalf("%q: kcat out of range: %f", s, p.Kcat)
		}
		if p.Km < 0.5 || p.Ki < p.Km {
			t.Fatalf("%q: unexpected Km/Ki: %f/%f", s, p.Km, p.Ki)
		}
		if p.TOpt < 40 || p.TOpt > 70 || p.PHOpt < 4 || p.PHOpt > 8 {
			t.Fatalf("%q: optimum out of range: %f/%f", s, p.TOpt, p.PHOpt)
		}
	}
}

type countingObserver struct{ calls, invalid int }

func (c *countingObserver) ObserveOracle(n int) {
	c.calls++
	c.invalid += n
}

func TestEvaluateReportsInvalidResidues(t *testing.T) {
	obs := &countingObserver{}
	o := New(nil)
	o.Observer = obs

	params, invalid := o.Evaluate("MKXVLLAGSTWY")
	if len(invalid) != 1 || invalid[0].Position != 3 || invalid[0].Residue != 'X' {
		t.Fatalf("unexpected invalid residues: %+v", invalid)
	}
	want := model.KineticParams{Kcat: 6.31, Km: 22.03, Ki: 36.55, TOpt: 57.1, PHOpt: 5.3}
	if params != want {
		t.Fatalf("non-standard residue should score zero: got %+v want %+v", params, want)
	}
	if _, invalid := o.Evaluate("MKVLLAGSTWY"); len(invalid) != 0 {
		t.Fatalf("expected clean sequence, got %+v", invalid)
	}
	if obs.calls != 2 || obs.invalid != 1 {
		t.Fatalf("unexpected observer counts: %+v", obs)
	}
}

func TestSequenceProfile(t *testing.T) {
	if got := SequenceProfile(""); got != (Profile{3, 3, 3}) {
		t.Fatalf("unexpected empty profile: %+v", got)
	}
	if got := SequenceProfile("MKVLLAGSTWYRDEQNHCIPAAAVVV"); got != (Profile{3.4, 3.0, 5}) {
		t.Fatalf("unexpected profile: %+v", got)
	}
	if got := SequenceProfile("KKKKKRRRRRAVLI"); got != (Profile{1, 5, 5}) {
		t.Fatalf("unexpected charged profile: %+v", got)
	}
}
