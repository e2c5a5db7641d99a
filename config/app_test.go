package config_test

import (
	"context"
	"testing"
	"time"

	"github.com/rushteam/gradekit/config"
	_ "github.com/rushteam/gradekit/config/builders"
	"github.com/rushteam/gradekit/core"
	"github.com/rushteam/gradekit/postprocess"
	"github.com/rushteam/gradekit/recommend"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `
models:
  - name: performance
    kind: label
    artifact: models/dt.json
    labels: models/labels.json
  - name: at_risk
    kind: risk
    artifact: models/risk.json
dataset:
  path: data/students.csv
load_timeout: 5s
pipeline:
  - type: postprocess.topk
    config: {k: 5}
  - type: recommend.rules
    config:
      defaults: true
      fallback: ""
      rules:
        - name: lunch
          when: record.lunch == "free/reduced"
          message: Check meal support eligibility.
`

func noEnv(string) (string, bool) { return "", false }

func TestParse(t *testing.T) {
	cfg, err := config.Parse([]byte(sample), noEnv)
	require.NoError(t, err)

	assert.Equal(t, config.SourceFile, cfg.Source)
	require.Len(t, cfg.Models, 2)
	assert.Equal(t, "models/labels.json", cfg.Specs()[0].Labels)
	assert.Equal(t, core.KindRisk, cfg.Specs()[1].Kind)
	assert.Equal(t, 60.0, cfg.Dataset.RiskThreshold)
	assert.Equal(t, 100, cfg.Explain.BackgroundSize)
	assert.Equal(t, 4, cfg.Explain.GlobalWorkers)
	assert.Equal(t, 5*time.Second, cfg.LoadTimeout)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, ":8080", cfg.Server.Addr)
	require.Len(t, cfg.Pipeline, 2)
}

func TestParse_EnvOverrides(t *testing.T) {
	env := map[string]string{
		"GRADEKIT_SOURCE":            "redis",
		"GRADEKIT_REDIS_ADDR":        "localhost:6379",
		"GRADEKIT_STRICT_CATEGORIES": "true",
		"GRADEKIT_LOG_LEVEL":         "debug",
		"GRADEKIT_BACKGROUND_SIZE":   "50",
	}
	cfg, err := config.Parse([]byte(sample), func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	})
	require.NoError(t, err)
	assert.Equal(t, config.SourceRedis, cfg.Source)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.True(t, cfg.StrictCategories)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, 50, cfg.Explain.BackgroundSize)
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"no models", "dataset: {path: x.csv}\n"},
		{"bad kind", "models: [{name: a, kind: score, artifact: a.json}]\ndataset: {path: x.csv}\n"},
		{"duplicate", "models: [{name: a, kind: risk, artifact: a.json}, {name: a, kind: risk, artifact: b.json}]\ndataset: {path: x.csv}\n"},
		{"no artifact", "models: [{name: a, kind: risk}]\ndataset: {path: x.csv}\n"},
		{"no dataset", "models: [{name: a, kind: risk, artifact: a.json}]\n"},
		{"redis without addr", "source: redis\nmodels: [{name: a, kind: risk, artifact: a.json}]\ndataset: {path: x.csv}\n"},
		{"unknown node", "models: [{name: a, kind: risk, artifact: a.json}]\ndataset: {path: x.csv}\npipeline: [{type: rerank.diversity}]\n"},
		{"bad yaml", "models: [\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := config.Parse([]byte(tt.yaml), noEnv)
			assert.Error(t, err)
		})
	}
}

func TestDefaultPipeline_Builds(t *testing.T) {
	assert.Equal(t, []string{"postprocess.clip", "postprocess.topk", "recommend.rules"}, config.SupportedTypes())

	pl, err := buildDefault()
	require.NoError(t, err)
	require.Len(t, pl, 3)
	assert.Equal(t, &postprocess.TopKNode{K: 10}, pl[0])
	assert.Equal(t, &postprocess.ClipNode{Epsilon: 0.01}, pl[1])
	node, ok := pl[2].(*recommend.Node)
	require.True(t, ok)
	assert.Len(t, node.Recommender.Rules(), len(recommend.DefaultRules()))
}

func TestConfiguredPipeline_Runs(t *testing.T) {
	cfg, err := config.Parse([]byte(sample), noEnv)
	require.NoError(t, err)

	factory := config.DefaultFactory()
	nodes := make([]any, 0)
	for _, nc := range cfg.Pipeline {
		n, err := factory.Build(nc.Type, nc.Config)
		require.NoError(t, err)
		nodes = append(nodes, n)
	}
	rec := nodes[1].(*recommend.Node)
	assert.Len(t, rec.Recommender.Rules(), 3)

	p := core.NewPrediction(core.StudentRecord{Lunch: "free/reduced", PrepCourse: "completed"})
	out, err := rec.Process(context.Background(), &core.RequestContext{}, p)
	require.NoError(t, err)
	assert.Equal(t, []string{"Check meal support eligibility."}, out.Recommendations)
}

func buildDefault() ([]any, error) {
	factory := config.DefaultFactory()
	var out []any
	for _, nc := range config.DefaultPipeline() {
		n, err := factory.Build(nc.Type, nc.Config)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, nil
}
