//go:build sqlite

package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"enzyflow/internal/model"
)

func TestSQLiteStorePersistsAcrossCommands(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "enzyflow.db")
	store := []string{"--store", "sqlite", "--db-path", dbPath}

	out, err := execute(t, append(store, "--format", "json",
		"design", "--records", writeRecords(t), "--start-id", "EG1", "--rounds", "3", "--candidates", "20", "--seed", "9")...)
	require.NoError(t, err)
	_, err = os.Stat(dbPath)
	require.NoError(t, err)

	var sum struct {
		History  model.DesignHistory  `json:"history"`
		Promoted []model.EnzymeRecord `json:"promoted"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &sum))

	out, err = execute(t, append(store, "--format", "json", "history", sum.History.RunID)...)
	require.NoError(t, err)
	var got struct {
		History model.DesignHistory   `json:"history"`
		Lineage []model.LineageRecord `json:"lineage"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, sum.History.Rounds, got.History.Rounds)
	assert.Len(t, got.Lineage, len(sum.Promoted))

	// Promoted variants are stored and can seed a later run.
	if len(sum.Promoted) > 0 {
		_, err = execute(t, append(store, "design", "--start-id", sum.Promoted[0].ID, "--rounds", "1")...)
		require.NoError(t, err)
	}

	out, err = execute(t, append(store, "history")...)
	require.NoError(t, err)
	assert.Contains(t, out, sum.History.RunID)
}
