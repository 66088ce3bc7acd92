package stats

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"enzyflow/internal/kinetics"
	"enzyflow/internal/model"
)

const (
	runIndexFile  = "run_index.json"
	historyFile   = "history.json"
	roundsFile    = "rounds.csv"
	lineageFile   = "lineage.json"
	benchmarkFile = "benchmark.json"
)

// Run kinds recorded in the run index.
const (
	RunKindDesign    = "design"
	RunKindBenchmark = "benchmark"
)

var roundsHeader = []string{"round", "mutation", "kind", "yield", "best_yield", "kcat"}

type RunIndexEntry struct {
	RunID        string  `json:"run_id"`
	Kind         string  `json:"kind,omitempty"`
	Rounds       int     `json:"rounds"`
	BestYield    float64 `json:"best_yield"`
	Temperature  float64 `json:"temperature"`
	PH           float64 `json:"ph"`
	Substrate    string  `json:"substrate,omitempty"`
	CreatedAtUTC string  `json:"created_at_utc"`
}

// IndexEntry summarizes a history for the run index.
func IndexEntry(h model.DesignHistory) RunIndexEntry {
	return RunIndexEntry{
		RunID:        h.RunID,
		Kind:         RunKindDesign,
		Rounds:       len(h.Rounds),
		BestYield:    h.BestYield,
		Temperature:  h.Environment.Temperature,
		PH:           h.Environment.PH,
		Substrate:    h.Environment.Substrate,
		CreatedAtUTC: h.CreatedAt.UTC().Format("2006-01-02T15:04:05Z"),
	}
}

// BenchmarkIndexEntry summarizes a stored benchmark for the run index.
func BenchmarkIndexEntry(runID string, env model.Environment, createdAt time.Time) RunIndexEntry {
	return RunIndexEntry{
		RunID:        runID,
		Kind:         RunKindBenchmark,
		Temperature:  env.Temperature,
		PH:           env.PH,
		Substrate:    env.Substrate,
		CreatedAtUTC: createdAt.UTC().Format("2006-01-02T15:04:05Z"),
	}
}

// WriteDesignArtifacts writes history.json and rounds.csv under
// baseDir/<run id> and returns that directory.
func WriteDesignArtifacts(baseDir string, history model.DesignHistory) (string, error) {
	if strings.TrimSpace(history.RunID) == "" {
		return "", fmt.Errorf("run id is required")
	}
	runDir := filepath.Join(baseDir, history.RunID)
	if err := os.MkdirAll(runDir, 0o755); err != nil {
		return "", err
	}
	if err := writeJSON(filepath.Join(runDir, historyFile), history); err != nil {
		return "", err
	}
	if err := writeRounds(filepath.Join(runDir, roundsFile), history.Rounds); err != nil {
		return "", err
	}
	return runDir, nil
}

func ReadDesignHistory(baseDir, runID string) (model.DesignHistory, bool, error) {
	var h model.DesignHistory
	ok, err := readJSON(filepath.Join(baseDir, runID, historyFile), &h)
	return h, ok, err
}

func WriteLineage(runDir string, lineage []model.LineageRecord) error {
	return writeJSON(filepath.Join(runDir, lineageFile), lineage)
}

func ReadLineage(baseDir, runID string) ([]model.LineageRecord, bool, error) {
	var out []model.LineageRecord
	ok, err := readJSON(filepath.Join(baseDir, runID, lineageFile), &out)
	return out, ok, err
}

// WriteBenchmarkArtifacts writes benchmark.json under baseDir/<run id>
// and returns that directory.
func WriteBenchmarkArtifacts(baseDir, runID string, cmp kinetics.Comparison) (string, error) {
	if strings.TrimSpace(runID) == "" {
		return "", fmt.Errorf("run id is required")
	}
	runDir := filepath.Join(baseDir, runID)
	if err := os.MkdirAll(runDir, 0o755); err != nil {
		return "", err
	}
	if err := writeJSON(filepath.Join(runDir, benchmarkFile), cmp); err != nil {
		return "", err
	}
	return runDir, nil
}

func ReadBenchmark(baseDir, runID string) (kinetics.Comparison, bool, error) {
	var cmp kinetics.Comparison
	ok, err := readJSON(filepath.Join(baseDir, runID, benchmarkFile), &cmp)
	return cmp, ok, err
}

func writeRounds(path string, rounds []model.DesignRound) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := writer.Write(roundsHeader); err != nil {
		return err
	}
	for _, r := range rounds {
		if err := writer.Write([]string{
			strconv.Itoa(r.Round),
			r.Mutation,
			string(r.Kind),
			strconv.FormatFloat(r.Yield, 'f', -1, 64),
			strconv.FormatFloat(r.BestYield, 'f', -1, 64),
			strconv.FormatFloat(r.Kcat, 'f', -1, 64),
		}); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// ReadRounds parses rounds.csv of one run.
func ReadRounds(baseDir, runID string) ([]model.DesignRound, bool, error) {
	file, err := os.Open(filepath.Join(baseDir, runID, roundsFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, err
	}
	defer file.Close()

	reader := csv.NewReader(file)
	header, err := reader.Read()
	if err != nil {
		if err == io.EOF {
			return []model.DesignRound{}, true, nil
		}
		return nil, false, err
	}
	if len(header) != len(roundsHeader) {
		return nil, false, fmt.Errorf("rounds header must have %d columns, got %d", len(roundsHeader), len(header))
	}

	var rounds []model.DesignRound
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, false, err
		}
		r, err := parseRound(record)
		if err != nil {
			return nil, false, err
		}
		rounds = append(rounds, r)
	}
	return rounds, true, nil
}

func parseRound(record []string) (model.DesignRound, error) {
	round, err := strconv.Atoi(record[0])
	if err != nil {
		return model.DesignRound{}, fmt.Errorf("round: %w", err)
	}
	var vals [3]float64
	for i := range vals {
		v, err := strconv.ParseFloat(record[3+i], 64)
		if err != nil {
			return model.DesignRound{}, fmt.Errorf("round %d %s: %w", round, roundsHeader[3+i], err)
		}
		vals[i] = v
	}
	return model.DesignRound{
		Round:     round,
		Mutation:  record[1],
		Kind:      model.RoundKind(record[2]),
		Yield:     vals[0],
		BestYield: vals[1],
		Kcat:      vals[2],
	}, nil
}

func AppendRunIndex(baseDir string, entry RunIndexEntry) error {
	if entry.RunID == "" {
		return fmt.Errorf("run id is required")
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return err
	}

	index, err := ListRunIndex(baseDir)
	if err != nil {
		return err
	}
	for i := range index {
		if index[i].RunID == entry.RunID {
			index[i] = entry
			return writeJSON(filepath.Join(baseDir, runIndexFile), index)
		}
	}
	index = append(index, entry)
	return writeJSON(filepath.Join(baseDir, runIndexFile), index)
}

// ListRunIndex returns runs newest first.
func ListRunIndex(baseDir string) ([]RunIndexEntry, error) {
	var entries []RunIndexEntry
	ok, err := readJSON(filepath.Join(baseDir, runIndexFile), &entries)
	if err != nil {
		return nil, err
	}
	if !ok {
		return []RunIndexEntry{}, nil
	}

	type indexedEntry struct {
		entry RunIndexEntry
		idx   int
	}
	indexed := make([]indexedEntry, len(entries))
	for i := range entries {
		indexed[i] = indexedEntry{entry: entries[i], idx: i}
	}
	sort.Slice(indexed, func(i, j int) bool {
		if indexed[i].entry.CreatedAtUTC == indexed[j].entry.CreatedAtUTC {
			// Later appends win ties.
			return indexed[i].idx > indexed[j].idx
		}
		return indexed[i].entry.CreatedAtUTC > indexed[j].entry.CreatedAtUTC
	})

	sorted := make([]RunIndexEntry, 0, len(indexed))
	for _, item := range indexed {
		sorted = append(sorted, item.entry)
	}
	return sorted, nil
}

// ExportRunArtifacts copies the artifacts of a design or benchmark run
// into outDir. A run with none of the known files is an error.
func ExportRunArtifacts(baseDir, runID, outDir string) (string, error) {
	if runID == "" {
		return "", fmt.Errorf("run id is required")
	}
	src := filepath.Join(baseDir, runID)
	if _, err := os.Stat(src); err != nil {
		return "", err
	}
	dst := filepath.Join(outDir, runID)
	if err := os.MkdirAll(dst, 0o755); err != nil {
		return "", err
	}

	copied := 0
	for _, file := range []string{historyFile, roundsFile, lineageFile, benchmarkFile} {
		err := copyFile(filepath.Join(src, file), filepath.Join(dst, file))
		switch {
		case err == nil:
			copied++
		case !errors.Is(err, os.ErrNotExist):
			return "", err
		}
	}
	if copied == 0 {
		return "", fmt.Errorf("run %s has no artifacts", runID)
	}
	return dst, nil
}

func writeJSON(path string, value any) error {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	return os.WriteFile(path, data, 0o644)
}

func readJSON(path string, dst any) (bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return false, fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}
	return true, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Sync()
}
