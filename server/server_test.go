package server

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rushteam/gradekit/config"
	"github.com/rushteam/gradekit/core"
	"github.com/rushteam/gradekit/dataset"
	"github.com/rushteam/gradekit/metrics"
	"github.com/rushteam/gradekit/service"
)

const riskArtifact = `{
  "kind": "decision_tree",
  "classes": [0, 1],
  "tree": {
    "children_left":  [1, -1, -1],
    "children_right": [2, -1, -1],
    "feature":        [0, -2, -2],
    "threshold":      [59.5, -2, -2],
    "value":          [[5, 5], [1, 4], [4, 1]]
  },
  "feature_meta": {"feature_columns": ["math_score", "reading_score", "writing_score"]}
}`

func newServer(t *testing.T) *httptest.Server {
	t.Helper()
	path := filepath.Join(t.TempDir(), "risk.json")
	require.NoError(t, os.WriteFile(path, []byte(riskArtifact), 0o644))
	cfg := &config.AppConfig{
		Models: []config.ModelConfig{{Name: "at_risk", Kind: core.KindRisk, Artifact: path}},
	}
	cfg.ApplyDefaults()

	records := []core.StudentRecord{
		{Gender: "female", RaceEthnicity: "group A", ParentEdu: "high school", Lunch: "standard", PrepCourse: "none", MathScore: 40, ReadingScore: 50, WritingScore: 45},
		{Gender: "male", RaceEthnicity: "group D", ParentEdu: "master's degree", Lunch: "standard", PrepCourse: "completed", MathScore: 88, ReadingScore: 90, WritingScore: 85},
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	m := metrics.New()
	p, err := service.New(context.Background(), cfg,
		service.WithDataset(dataset.New(records, 60)),
		service.WithLogger(logger),
		service.WithMetrics(m))
	require.NoError(t, err)

	srv := httptest.NewServer(New(p, m.Handler(), logger).Routes())
	t.Cleanup(srv.Close)
	return srv
}

func TestPredictEndpoint(t *testing.T) {
	srv := newServer(t)

	body := `{"model":"at_risk","record":{"gender":"female","race/ethnicity":"group B","parent_edu":"some college","lunch":"standard","prep_course":"none","math_score":45,"reading_score":60,"writing_score":55}}`
	resp, err := http.Post(srv.URL+"/predict", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var res core.Result
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&res))
	assert.True(t, res.AtRisk)
	assert.Equal(t, core.StatusFull, res.Status)
	assert.NotEmpty(t, res.Attributions)
}

func TestPredictEndpoint_Errors(t *testing.T) {
	srv := newServer(t)

	tests := []struct {
		name   string
		body   string
		status int
		code   string
	}{
		{"bad json", `{`, http.StatusBadRequest, core.ErrorCodeInvalidInput},
		{"no record", `{"model":"at_risk"}`, http.StatusBadRequest, core.ErrorCodeInvalidInput},
		{"bad extent", `{"model":"at_risk","extent":"global","record":{}}`, http.StatusBadRequest, core.ErrorCodeInvalidInput},
		{"unknown model", `{"model":"nope","record":{"gender":"male","race/ethnicity":"group A","parent_edu":"high school","lunch":"standard","prep_course":"none","math_score":1,"reading_score":1,"writing_score":1}}`, http.StatusNotFound, core.ErrorCodeNotFound},
		{"score out of range", `{"model":"at_risk","record":{"gender":"male","race/ethnicity":"group A","parent_edu":"high school","lunch":"standard","prep_course":"none","math_score":150,"reading_score":1,"writing_score":1}}`, http.StatusBadRequest, core.ErrorCodeInvalidInput},
		{"no feast", `{"model":"at_risk","student_id":"s-1"}`, http.StatusNotImplemented, core.ErrorCodeNotSupported},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := http.Post(srv.URL+"/predict", "application/json", strings.NewReader(tt.body))
			require.NoError(t, err)
			defer resp.Body.Close()
			assert.Equal(t, tt.status, resp.StatusCode)
			var e errorResponse
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&e))
			assert.Equal(t, tt.code, e.Code)
		})
	}
}

func TestGlobalAndSchemaEndpoints(t *testing.T) {
	srv := newServer(t)

	resp, err := http.Post(srv.URL+"/explain/global", "application/json", strings.NewReader(`{"model":"at_risk","top_n":2}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var global struct {
		Importance []struct {
			Feature string `json:"feature"`
		} `json:"importance"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&global))
	require.Len(t, global.Importance, 2)
	assert.Equal(t, "math_score", global.Importance[0].Feature)

	resp2, err := http.Get(srv.URL + "/schema/at_risk")
	require.NoError(t, err)
	defer resp2.Body.Close()
	var schema struct {
		Features []string `json:"features"`
	}
	require.NoError(t, json.NewDecoder(resp2.Body).Decode(&schema))
	assert.Equal(t, []string{"math_score", "reading_score", "writing_score"}, schema.Features)

	for _, path := range []string{"/healthz", "/metrics", "/models"} {
		r, err := http.Get(srv.URL + path)
		require.NoError(t, err)
		r.Body.Close()
		assert.Equal(t, http.StatusOK, r.StatusCode, path)
	}
}
