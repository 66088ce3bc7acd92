package design

import (
	"context"
	"strings"
	"testing"
)

func TestFixedCandidates(t *testing.T) {
	if got := (FixedCandidates{}).Candidates(10, 3, 5, startSeq); got != 10 {
		t.Fatalf("expected fixed candidates=10, got=%d", got)
	}
}

func TestLinearDecayCandidates(t *testing.T) {
	p := LinearDecayCandidates{MinCandidates: 2}
	if got := p.Candidates(10, 0, 5, startSeq); got != 10 {
		t.Fatalf("expected round0 candidates=10, got=%d", got)
	}
	if got := p.Candidates(10, 3, 5, startSeq); got != 4 {
		t.Fatalf("expected round3 candidates=4, got=%d", got)
	}
	if got := p.Candidates(10, 9, 5, startSeq); got != 2 {
		t.Fatalf("expected clamped candidates=2, got=%d", got)
	}
}

func TestLengthScaledCandidates(t *testing.T) {
	p := LengthScaledCandidates{Scale: 100, MaxCandidates: 30}
	if got := p.Candidates(10, 0, 1, strings.Repeat("A", 100)); got != 20 {
		t.Fatalf("expected scaled candidates=20, got=%d", got)
	}
	if got := p.Candidates(10, 0, 1, strings.Repeat("A", 1000)); got != 30 {
		t.Fatalf("expected capped candidates=30, got=%d", got)
	}
}

func TestCandidatePolicyFromConfig(t *testing.T) {
	for _, name := range []string{"", "fixed", "linear_decay", "length_scaled"} {
		if _, err := CandidatePolicyFromConfig(name, 2); err != nil {
			t.Fatalf("%q policy: %v", name, err)
		}
	}
	if _, err := CandidatePolicyFromConfig("unknown", 1); err == nil {
		t.Fatal("expected unknown policy error")
	}
}

func TestLoopAppliesCandidatePolicy(t *testing.T) {
	loop := newLoop(wScorer{}, &countingEvaluator{}, 4)
	loop.Candidates = 8
	loop.Policy = LinearDecayCandidates{MinCandidates: 1}
	h, err := loop.Run(context.Background(), NewSession("run-p", "E1", startSeq), testEnv, 4)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	want := []int{0, 8, 6, 4, 2}
	if len(h.Candidates) != len(want) {
		t.Fatalf("expected %d candidate sets, got %d", len(want), len(h.Candidates))
	}
	for r, n := range want {
		if len(h.Candidates[r]) != n {
			t.Fatalf("round %d: expected %d candidates, got %d", r, n, len(h.Candidates[r]))
		}
	}
}
