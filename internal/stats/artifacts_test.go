package stats

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"enzyflow/internal/kinetics"
	"enzyflow/internal/model"
)

func historyFixture(runID string) model.DesignHistory {
	return model.DesignHistory{
		VersionedRecord: model.VersionedRecord{SchemaVersion: 1, CodecVersion: 1},
		RunID:           runID,
		StartSequence:   "MKVLLAG",
		Environment:     model.Environment{Temperature: 50, PH: 5, Substrate: "Cellulose"},
		Rounds: []model.DesignRound{
			{Round: 0, Yield: 0.41, BestYield: 0.41, Kcat: 1.2, Mutation: "Initial", Kind: model.RoundInitial},
			{Round: 1, Yield: 0.45, BestYield: 0.45, Kcat: 1.4, Mutation: "K2W", Kind: model.RoundNewBest},
			{Round: 2, Yield: 0.39, BestYield: 0.45, Kcat: 1.1, Mutation: "L4A", Kind: model.RoundExploration},
		},
		BestSequence: "MWVLLAG",
		BestYield:    0.45,
		CreatedAt:    time.Date(2026, 2, 10, 10, 0, 0, 0, time.UTC),
	}
}

func TestWriteAndReadDesignArtifacts(t *testing.T) {
	baseDir := t.TempDir()
	h := historyFixture("run-123")

	runDir, err := WriteDesignArtifacts(baseDir, h)
	if err != nil {
		t.Fatalf("write artifacts: %v", err)
	}
	for _, file := range []string{"history.json", "rounds.csv"} {
		if _, err := os.Stat(filepath.Join(runDir, file)); err != nil {
			t.Fatalf("expected file %s: %v", file, err)
		}
	}

	got, ok, err := ReadDesignHistory(baseDir, "run-123")
	if err != nil || !ok {
		t.Fatalf("read history: ok=%t err=%v", ok, err)
	}
	if got.BestSequence != h.BestSequence || len(got.Rounds) != 3 || !got.CreatedAt.Equal(h.CreatedAt) {
		t.Fatalf("unexpected history: %+v", got)
	}

	rounds, ok, err := ReadRounds(baseDir, "run-123")
	if err != nil || !ok {
		t.Fatalf("read rounds: ok=%t err=%v", ok, err)
	}
	for i := range rounds {
		if rounds[i] != h.Rounds[i] {
			t.Fatalf("round %d mismatch: got=%+v want=%+v", i, rounds[i], h.Rounds[i])
		}
	}

	if _, ok, err := ReadDesignHistory(baseDir, "missing"); err != nil || ok {
		t.Fatalf("expected missing history; ok=%t err=%v", ok, err)
	}
	if _, err := WriteDesignArtifacts(baseDir, model.DesignHistory{}); err == nil {
		t.Fatal("expected run id error")
	}
}

func TestExportRunArtifactsCopiesOptionalFiles(t *testing.T) {
	baseDir := t.TempDir()
	outDir := filepath.Join(t.TempDir(), "exports")

	runDir, err := WriteDesignArtifacts(baseDir, historyFixture("run-1"))
	if err != nil {
		t.Fatalf("write artifacts: %v", err)
	}
	exported, err := ExportRunArtifacts(baseDir, "run-1", outDir)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if _, err := os.Stat(filepath.Join(exported, "lineage.json")); !os.IsNotExist(err) {
		t.Fatalf("expected no lineage export yet, got %v", err)
	}

	if err := WriteLineage(runDir, []model.LineageRecord{{EnzymeID: "E1_v1_AI", ParentID: "E1", Generation: 1, Mutation: "K2W"}}); err != nil {
		t.Fatalf("write lineage: %v", err)
	}
	wt, mut := 3600.0, 1800.0
	reduction := 50.0
	if _, err := WriteBenchmarkArtifacts(baseDir, "run-1", kinetics.Comparison{Mode: kinetics.TargetTheoretical, Target: 50, WildType: &wt, Mutant: &mut, Reduction: &reduction}); err != nil {
		t.Fatalf("write benchmark: %v", err)
	}
	exported, err = ExportRunArtifacts(baseDir, "run-1", outDir)
	if err != nil {
		t.Fatalf("export with extras: %v", err)
	}
	for _, file := range []string{"lineage.json", "benchmark.json"} {
		if _, err := os.Stat(filepath.Join(exported, file)); err != nil {
			t.Fatalf("expected exported %s: %v", file, err)
		}
	}

	lineage, ok, err := ReadLineage(baseDir, "run-1")
	if err != nil || !ok || len(lineage) != 1 || lineage[0].ParentID != "E1" {
		t.Fatalf("unexpected lineage: %+v ok=%t err=%v", lineage, ok, err)
	}
	cmp, ok, err := ReadBenchmark(baseDir, "run-1")
	if err != nil || !ok || cmp.Reduction == nil || *cmp.Reduction != 50 {
		t.Fatalf("unexpected benchmark: %+v ok=%t err=%v", cmp, ok, err)
	}

	if _, err := ExportRunArtifacts(baseDir, "missing", outDir); err == nil {
		t.Fatal("expected error for unknown run")
	}
}

func TestBenchmarkOnlyRunExportsAndIndexes(t *testing.T) {
	baseDir := t.TempDir()
	wt := 7200.0
	if _, err := WriteBenchmarkArtifacts(baseDir, "bench-1", kinetics.Comparison{Mode: kinetics.TargetTheoretical, Target: 5, WildType: &wt}); err != nil {
		t.Fatalf("write benchmark: %v", err)
	}
	env := model.Environment{Temperature: 50, PH: 5, Substrate: "Cellulose"}
	if err := AppendRunIndex(baseDir, BenchmarkIndexEntry("bench-1", env, time.Date(2026, 2, 10, 9, 0, 0, 0, time.UTC))); err != nil {
		t.Fatalf("append: %v", err)
	}

	exported, err := ExportRunArtifacts(baseDir, "bench-1", t.TempDir())
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if _, err := os.Stat(filepath.Join(exported, "benchmark.json")); err != nil {
		t.Fatalf("expected exported benchmark.json: %v", err)
	}
	if _, err := os.Stat(filepath.Join(exported, "history.json")); !os.IsNotExist(err) {
		t.Fatalf("expected no history.json for a benchmark run, got %v", err)
	}

	entries, err := ListRunIndex(baseDir)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(entries) != 1 || entries[0].Kind != RunKindBenchmark || entries[0].Rounds != 0 {
		t.Fatalf("unexpected index: %+v", entries)
	}

	if err := os.MkdirAll(filepath.Join(baseDir, "empty"), 0o755); err != nil {
		t.Fatal(err)
	}
	if _, err := ExportRunArtifacts(baseDir, "empty", t.TempDir()); err == nil {
		t.Fatal("expected error for a run without artifacts")
	}
}

func TestRunIndexAppendListAndUpsert(t *testing.T) {
	baseDir := t.TempDir()

	first := IndexEntry(historyFixture("run-1"))
	if err := AppendRunIndex(baseDir, first); err != nil {
		t.Fatalf("append run-1: %v", err)
	}
	second := IndexEntry(historyFixture("run-2"))
	second.CreatedAtUTC = "2026-02-10T11:00:00Z"
	if err := AppendRunIndex(baseDir, second); err != nil {
		t.Fatalf("append run-2: %v", err)
	}

	entries, err := ListRunIndex(baseDir)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(entries) != 2 || entries[0].RunID != "run-2" || entries[1].RunID != "run-1" {
		t.Fatalf("unexpected order: %+v", entries)
	}
	if entries[1].Rounds != 3 || entries[1].BestYield != 0.45 || entries[1].CreatedAtUTC != "2026-02-10T10:00:00Z" {
		t.Fatalf("unexpected summary: %+v", entries[1])
	}

	first.BestYield = 0.9
	first.CreatedAtUTC = "2026-02-10T12:00:00Z"
	if err := AppendRunIndex(baseDir, first); err != nil {
		t.Fatalf("upsert run-1: %v", err)
	}
	entries, err = ListRunIndex(baseDir)
	if err != nil {
		t.Fatalf("list after upsert: %v", err)
	}
	if len(entries) != 2 || entries[0].RunID != "run-1" || entries[0].BestYield != 0.9 {
		t.Fatalf("unexpected upsert result: %+v", entries)
	}
}

func TestRunIndexEqualTimestampPrefersLaterAppend(t *testing.T) {
	baseDir := t.TempDir()
	ts := "2026-02-10T12:00:00Z"

	if err := AppendRunIndex(baseDir, RunIndexEntry{RunID: "run-a", CreatedAtUTC: ts}); err != nil {
		t.Fatalf("append run-a: %v", err)
	}
	if err := AppendRunIndex(baseDir, RunIndexEntry{RunID: "run-b", CreatedAtUTC: ts}); err != nil {
		t.Fatalf("append run-b: %v", err)
	}
	entries, err := ListRunIndex(baseDir)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(entries) != 2 || entries[0].RunID != "run-b" {
		t.Fatalf("expected latest appended run-b first, got %+v", entries)
	}
}
