package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"enzyflow/internal/config"
	"enzyflow/internal/model"
	"enzyflow/pkg/enzyflow"
)

const wildType = "MKVLLAGSTWYRDEQNHCIPMKVLLAGSTWYRDEQNHCIP"

func newTestServer(t *testing.T) (*Server, *enzyflow.Client) {
	t.Helper()
	client, err := enzyflow.New(context.Background(), enzyflow.Options{
		Config:   config.Default(),
		Registry: prometheus.NewRegistry(),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return New(client), client
}

func do(t *testing.T, app *fiber.App, method, path string, body any) (int, []byte) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	out, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, out
}

func TestHealthAndMetrics(t *testing.T) {
	s, _ := newTestServer(t)
	code, _ := do(t, s.App(), http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, code)

	do(t, s.App(), http.MethodPost, "/api/v1/simulate/single", kineticsBody(10))
	code, body := do(t, s.App(), http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Contains(t, string(body), "enzyflow_simulations_total")
}

func kineticsBody(kcat float64) map[string]any {
	return map[string]any{
		"params":      model.KineticParams{Kcat: kcat, Km: 1, Ki: 10, TOpt: 50, PHOpt: 5},
		"environment": model.Environment{Temperature: 50, PH: 5},
	}
}

func TestSimulateSingle(t *testing.T) {
	s, _ := newTestServer(t)
	code, body := do(t, s.App(), http.MethodPost, "/api/v1/simulate/single", kineticsBody(10))
	require.Equal(t, http.StatusOK, code, string(body))

	var trace model.SimulationTrace
	require.NoError(t, json.Unmarshal(body, &trace))
	assert.Equal(t, []string{"S", "P"}, trace.Species)
	assert.Len(t, trace.Samples, 101)
}

func TestSimulateIntegrationFailureIs422(t *testing.T) {
	s, _ := newTestServer(t)
	code, body := do(t, s.App(), http.MethodPost, "/api/v1/simulate/single", kineticsBody(-1))
	assert.Equal(t, http.StatusUnprocessableEntity, code)
	assert.Contains(t, string(body), "integration failure")
}

func TestSimulateCascade(t *testing.T) {
	s, _ := newTestServer(t)
	p := model.KineticParams{Kcat: 10, Km: 1, Ki: 10, TOpt: 50, PHOpt: 5}
	code, body := do(t, s.App(), http.MethodPost, "/api/v1/simulate/cascade", map[string]any{
		"first":       p,
		"second":      p,
		"environment": model.Environment{Temperature: 50, PH: 5},
	})
	require.Equal(t, http.StatusOK, code, string(body))
	var trace model.SimulationTrace
	require.NoError(t, json.Unmarshal(body, &trace))
	assert.Equal(t, []string{"S", "C2", "G"}, trace.Species)
}

func TestBadBodyIs400(t *testing.T) {
	s, _ := newTestServer(t)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/oracle", strings.NewReader("{"))
	req.Header.Set("Content-Type", "application/json")
	resp, err := s.App().Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	code, _ := do(t, s.App(), http.MethodPost, "/api/v1/oracle", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestOracleAndMutations(t *testing.T) {
	s, _ := newTestServer(t)
	code, body := do(t, s.App(), http.MethodPost, "/api/v1/oracle", map[string]any{"sequence": wildType})
	require.Equal(t, http.StatusOK, code)
	var oracle enzyflow.OracleResult
	require.NoError(t, json.Unmarshal(body, &oracle))
	assert.Greater(t, oracle.Params.Kcat, 0.0)

	code, body = do(t, s.App(), http.MethodPost, "/api/v1/mutations", map[string]any{"sequence": wildType, "seed": 3})
	require.Equal(t, http.StatusOK, code)
	var mut enzyflow.MutationResult
	require.NoError(t, json.Unmarshal(body, &mut))

	code, body = do(t, s.App(), http.MethodPost, "/api/v1/mutations/apply", map[string]any{"sequence": wildType, "mutation": mut.Mutation})
	require.Equal(t, http.StatusOK, code)
	var applied enzyflow.MutationResult
	require.NoError(t, json.Unmarshal(body, &applied))
	assert.Equal(t, mut.Sequence, applied.Sequence)

	code, _ = do(t, s.App(), http.MethodPost, "/api/v1/mutations/apply", map[string]any{"sequence": wildType, "mutation": "W1A"})
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestDesignRunLifecycle(t *testing.T) {
	s, _ := newTestServer(t)
	code, body := do(t, s.App(), http.MethodPost, "/api/v1/design/runs", enzyflow.DesignRequest{
		StartSequence: wildType,
		Environment:   model.Environment{Temperature: 50, PH: 5, Substrate: "Cellulose"},
		Rounds:        2,
	})
	require.Equal(t, http.StatusCreated, code, string(body))
	var summary enzyflow.DesignSummary
	require.NoError(t, json.Unmarshal(body, &summary))
	require.Len(t, summary.History.Rounds, 3)

	code, body = do(t, s.App(), http.MethodGet, "/api/v1/design/runs/"+summary.History.RunID, nil)
	require.Equal(t, http.StatusOK, code)
	var got struct {
		History model.DesignHistory `json:"history"`
	}
	require.NoError(t, json.Unmarshal(body, &got))
	assert.Equal(t, summary.History.BestYield, got.History.BestYield)

	code, body = do(t, s.App(), http.MethodGet, "/api/v1/design/runs", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, string(body), summary.History.RunID)

	code, _ = do(t, s.App(), http.MethodGet, "/api/v1/design/runs/unknown", nil)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestOptimizeErrors(t *testing.T) {
	s, client := newTestServer(t)
	_, err := client.ImportEnzymes(context.Background(), []model.EnzymeRecord{
		{ID: "E1", Sequence: wildType, Specificity: model.SpecificityCellulase},
	})
	require.NoError(t, err)

	code, _ := do(t, s.App(), http.MethodPost, "/api/v1/optimize", enzyflow.OptimizeRequest{EnzymeID: "E1"})
	assert.Equal(t, http.StatusConflict, code, "no surrogate loaded")

	code, _ = do(t, s.App(), http.MethodPost, "/api/v1/optimize", enzyflow.OptimizeRequest{EnzymeID: "GHOST_v1_AI"})
	assert.Equal(t, http.StatusBadRequest, code, "missing lineage")
}

func TestScreeningPlate(t *testing.T) {
	s, client := newTestServer(t)
	code, _ := do(t, s.App(), http.MethodGet, "/api/v1/screening/plate?size=4", nil)
	assert.Equal(t, http.StatusNotFound, code)

	_, err := client.ImportEnzymes(context.Background(), []model.EnzymeRecord{
		{ID: "E1", Sequence: wildType, Specificity: model.SpecificityCellulase},
	})
	require.NoError(t, err)
	code, body := do(t, s.App(), http.MethodGet, "/api/v1/screening/plate?size=4&seed=2", nil)
	require.Equal(t, http.StatusOK, code)
	var out struct {
		Plate []map[string]any `json:"plate"`
	}
	require.NoError(t, json.Unmarshal(body, &out))
	assert.Len(t, out.Plate, 4)
}

func TestInvalidRequestsAre400(t *testing.T) {
	s, _ := newTestServer(t)
	params := model.KineticParams{Kcat: 10, Km: 1, Ki: 10, TOpt: 50, PHOpt: 5}
	cases := []struct {
		name string
		path string
		body any
	}{
		{"design without start", "/api/v1/design/runs", map[string]any{}},
		{"design negative rounds", "/api/v1/design/runs", enzyflow.DesignRequest{StartSequence: wildType, Rounds: -1}},
		{"optimize without sequence", "/api/v1/optimize", map[string]any{}},
		{"benchmark fraction above one", "/api/v1/benchmark", enzyflow.BenchmarkRequest{WildType: params, Mutant: params, Fraction: 2}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			code, body := do(t, s.App(), http.MethodPost, tc.path, tc.body)
			assert.Equal(t, http.StatusBadRequest, code, string(body))
		})
	}
}
