package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"enzyflow/internal/model"
	"enzyflow/internal/screening"
	"enzyflow/internal/stats"
)

const testSequence = "MKVLLAGSTWYRDEQNHCIPMKVLLAGSTWYRDEQNHCIP"

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--log-level", "error"}, args...))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func writeRecords(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "enzymes.csv")
	csv := "id,accession,sequence,specificity,kcat,Km,Ki,t_opt,ph_opt,organism\n" +
		"EG1,P1," + testSequence + ",Cellulase,,,,,,T. reesei\n" +
		"EG2,P2,MSTGGAAKKLLPPEEDDNNQQRRHHWWYYFFCCIIVVMM,Cellulase,3,1.5,9,55,5,\n" +
		"BG1,P3,MWWWLLIIVVAAGGSSTTKKRRDDEEQQNNHHCCPPFFYY,Beta-glucosidase,60,1,3,50,5,\n"
	require.NoError(t, os.WriteFile(path, []byte(csv), 0o644))
	return path
}

func TestRejectsUnknownFormat(t *testing.T) {
	_, err := execute(t, "--format", "yaml", "oracle", testSequence)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid format")
}

func TestParseParams(t *testing.T) {
	p, err := parseParams("10, 1,10,50,5")
	require.NoError(t, err)
	assert.Equal(t, model.KineticParams{Kcat: 10, Km: 1, Ki: 10, TOpt: 50, PHOpt: 5}, p)

	_, err = parseParams("10,1,10")
	assert.Error(t, err)
	_, err = parseParams("a,1,10,50,5")
	assert.Error(t, err)
}

func TestOracleJSON(t *testing.T) {
	out, err := execute(t, "--format", "json", "oracle", testSequence)
	require.NoError(t, err)
	var res struct {
		Params model.KineticParams `json:"params"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Greater(t, res.Params.Kcat, 0.0)
	assert.Greater(t, res.Params.Km, 0.0)
}

func TestApplyMutation(t *testing.T) {
	out, err := execute(t, "apply-mutation", "MKV", "K2A")
	require.NoError(t, err)
	assert.Equal(t, "MAV\n", out)

	_, err = execute(t, "apply-mutation", "MKV", "W2A")
	assert.Error(t, err)
}

func TestMutateIsSeeded(t *testing.T) {
	a, err := execute(t, "mutate", "--seed", "5", testSequence)
	require.NoError(t, err)
	b, err := execute(t, "mutate", "--seed", "5", testSequence)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestSimulateJSON(t *testing.T) {
	out, err := execute(t, "--format", "json", "simulate", "--steps", "10", "--duration", "3600")
	require.NoError(t, err)
	var trace model.SimulationTrace
	require.NoError(t, json.Unmarshal([]byte(out), &trace))
	assert.Equal(t, []string{"S", "P"}, trace.Species)
	require.Len(t, trace.Samples, 11)
	assert.Equal(t, 3600.0, trace.Samples[10].Time)
}

func TestCascadeWithBiomassPreset(t *testing.T) {
	out, err := execute(t, "cascade", "--biomass", "rice_straw", "--pretreatment", "steam_explosion")
	require.NoError(t, err)
	assert.Contains(t, out, "glucose yield")

	_, err = execute(t, "cascade", "--biomass", "seaweed")
	assert.Error(t, err)
}

func TestBenchmarkFasterMutant(t *testing.T) {
	out, err := execute(t, "--format", "json", "benchmark", "--wt", "10,1,10,50,5", "--mut", "20,1,10,50,5", "--fraction", "0.05")
	require.NoError(t, err)
	var cmp struct {
		Reduction *float64 `json:"reduction_pct"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &cmp))
	require.NotNil(t, cmp.Reduction)
	assert.Greater(t, *cmp.Reduction, 0.0)
}

func TestBenchmarkStoresArtifacts(t *testing.T) {
	artifacts := t.TempDir()
	_, err := execute(t, "--artifacts", artifacts, "benchmark", "--wt", "10,1,10,50,5", "--mut", "20,1,10,50,5", "--fraction", "0.05")
	require.NoError(t, err)

	entries, err := stats.ListRunIndex(artifacts)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, stats.RunKindBenchmark, entries[0].Kind)
	runID := entries[0].RunID

	cmp, found, err := stats.ReadBenchmark(artifacts, runID)
	require.NoError(t, err)
	require.True(t, found)
	require.NotNil(t, cmp.Reduction)

	export := t.TempDir()
	out, err := execute(t, "--artifacts", artifacts, "history", runID, "--export", export)
	require.NoError(t, err)
	assert.Contains(t, out, "benchmark "+runID)
	assert.FileExists(t, filepath.Join(export, runID, "benchmark.json"))
}

func TestScreenPlate(t *testing.T) {
	out, err := execute(t, "--format", "json", "screen", "--records", writeRecords(t), "--size", "3", "--seed", "2")
	require.NoError(t, err)
	var plate []screening.Pair
	require.NoError(t, json.Unmarshal([]byte(out), &plate))
	require.Len(t, plate, 3)
	for _, p := range plate {
		assert.Contains(t, []string{"EG1", "EG2"}, p.EG)
		assert.Equal(t, "BG1", p.BG)
	}

	_, err = execute(t, "screen")
	assert.ErrorIs(t, err, screening.ErrNoEnzymes)
}

func TestDatasetThenTrain(t *testing.T) {
	dir := t.TempDir()
	records := writeRecords(t)
	samples := filepath.Join(dir, "samples.csv")
	quality := filepath.Join(dir, "quality.md")

	_, err := execute(t, "dataset", "--records", records, "--out", samples, "--quality", quality,
		"--temps", "40,50,60", "--phs", "4,5,6", "--substrates", "Cellulose")
	require.NoError(t, err)
	assert.FileExists(t, samples)
	assert.FileExists(t, quality)

	modelPath := filepath.Join(dir, "model.json")
	out, err := execute(t, "--format", "json", "train", "--records", records, "--samples", samples, "--model-out", modelPath)
	require.NoError(t, err)
	assert.Contains(t, out, `"train_size"`)
	assert.FileExists(t, modelPath)

	out, err = execute(t, "--format", "json", "optimize", "--model", modelPath, "--sequence", testSequence, "--temp", "50", "--ph", "5")
	require.NoError(t, err)
	assert.Contains(t, out, "AI Predicted Structural Improvement")
}

func TestOptimizeWithoutSurrogate(t *testing.T) {
	_, err := execute(t, "optimize", "--sequence", testSequence)
	assert.Error(t, err)
}

func TestDesignWritesArtifactsAndHistoryReadsThem(t *testing.T) {
	artifacts := t.TempDir()
	out, err := execute(t, "--format", "json", "--artifacts", artifacts,
		"design", "--start", testSequence, "--rounds", "2", "--candidates", "4", "--seed", "3")
	require.NoError(t, err)

	var sum struct {
		History model.DesignHistory `json:"history"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &sum))
	require.Len(t, sum.History.Rounds, 3)
	assert.Equal(t, model.RoundInitial, sum.History.Rounds[0].Kind)

	entries, err := stats.ListRunIndex(artifacts)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, sum.History.RunID, entries[0].RunID)

	// A fresh process has an empty memory store, so history falls back
	// to the artifact directory.
	export := t.TempDir()
	out, err = execute(t, "--artifacts", artifacts, "history", sum.History.RunID, "--export", export)
	require.NoError(t, err)
	assert.Contains(t, out, "best yield")
	assert.FileExists(t, filepath.Join(export, sum.History.RunID, "rounds.csv"))

	_, err = execute(t, "history", "missing-run")
	assert.Error(t, err)

	out, err = execute(t, "--artifacts", artifacts, "history")
	require.NoError(t, err)
	assert.Contains(t, out, sum.History.RunID)
}

func TestEnvFlagDefaults(t *testing.T) {
	var f envFlags
	cmd := &cobra.Command{Use: "env"}
	f.bind(cmd)
	require.NoError(t, cmd.ParseFlags([]string{"--particle-size", "1"}))

	env, s0, err := f.env()
	require.NoError(t, err)
	assert.Zero(t, s0)
	assert.Equal(t, 0.7, env.Crystallinity)
	assert.Equal(t, model.BiomassGrass, env.BiomassType)
	require.NotNil(t, env.ParticleSize)
	assert.Equal(t, 1.0, *env.ParticleSize)
}
