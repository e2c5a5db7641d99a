package feature

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/rushteam/gradekit/core"
	"github.com/rushteam/gradekit/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const metaJSON = `{
  "feature_columns": ["math_score", "reading_score", "writing_score", "gender_male"],
  "feature_count": 4,
  "label_column": "performance",
  "model_version": "v1"
}`

func TestParseFeatureMetadata(t *testing.T) {
	meta, err := ParseFeatureMetadata([]byte(metaJSON))
	require.NoError(t, err)
	assert.Equal(t, 4, len(meta.FeatureColumns))
	assert.Equal(t, "performance", meta.LabelColumn)

	tests := []struct {
		name string
		data string
	}{
		{"empty columns", `{"feature_columns": []}`},
		{"count mismatch", `{"feature_columns": ["a","b"], "feature_count": 3}`},
		{"duplicate", `{"feature_columns": ["a","a"]}`},
		{"bad json", `{`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseFeatureMetadata([]byte(tt.data))
			assert.Error(t, err)
		})
	}
}

func TestBuildFeatureVector(t *testing.T) {
	meta, err := ParseFeatureMetadata([]byte(metaJSON))
	require.NoError(t, err)
	vec, err := meta.BuildFeatureVector(map[string]float64{"math_score": 50, "other": 1})
	require.NoError(t, err)
	assert.Equal(t, []float64{50, 0, 0, 0}, vec.Values())
	assert.Equal(t, []string{"reading_score", "writing_score", "gender_male"},
		meta.GetMissingFeatures(map[string]float64{"math_score": 50}))
}

func TestMetadataLoaders(t *testing.T) {
	ctx := context.Background()

	t.Run("file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "feature_meta.json")
		require.NoError(t, os.WriteFile(path, []byte(metaJSON), 0o644))
		meta, err := NewFileMetadataLoader().Load(ctx, path)
		require.NoError(t, err)
		assert.Equal(t, "v1", meta.ModelVersion)

		_, err = NewFileMetadataLoader().Load(ctx, filepath.Join(t.TempDir(), "missing.json"))
		assert.Error(t, err)
	})

	t.Run("http", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/meta" {
				http.NotFound(w, r)
				return
			}
			_, _ = w.Write([]byte(metaJSON))
		}))
		defer srv.Close()

		loader := NewHTTPMetadataLoaderWithClient(srv.Client())
		meta, err := loader.Load(ctx, srv.URL+"/meta")
		require.NoError(t, err)
		assert.Len(t, meta.FeatureColumns, 4)

		_, err = loader.Load(ctx, srv.URL+"/nope")
		assert.Error(t, err)

		meta, err = NewFileMetadataLoader().Load(ctx, srv.URL+"/meta")
		require.NoError(t, err)
		assert.Len(t, meta.FeatureColumns, 4)
	})

	t.Run("store", func(t *testing.T) {
		s := store.NewMemoryStore()
		require.NoError(t, s.Set(ctx, store.MetaKey("label"), []byte(metaJSON)))
		meta, err := NewStoreMetadataLoader(s).Load(ctx, store.MetaKey("label"))
		require.NoError(t, err)
		assert.Equal(t, "performance", meta.LabelColumn)

		_, err = NewStoreMetadataLoader(s).Load(ctx, store.MetaKey("risk"))
		require.Error(t, err)
		assert.True(t, core.IsStoreNotFound(err))
	})
}

func TestSchemaRegistry(t *testing.T) {
	meta, err := ParseFeatureMetadata([]byte(metaJSON))
	require.NoError(t, err)
	reg, err := NewSchemaRegistry(map[string]*FeatureMetadata{"label": meta})
	require.NoError(t, err)

	schema, err := reg.SchemaFor("label")
	require.NoError(t, err)
	schema[0] = "mutated"
	again, _ := reg.SchemaFor("label")
	assert.Equal(t, "math_score", again[0])

	meta.FeatureColumns[0] = "mutated"
	again, _ = reg.SchemaFor("label")
	assert.Equal(t, "math_score", again[0], "registry must not alias loaded metadata")

	_, err = reg.SchemaFor("missing")
	assert.True(t, core.IsNotFound(err))
	assert.Equal(t, []string{"label"}, reg.Models())

	_, err = NewSchemaRegistry(map[string]*FeatureMetadata{"bad": {}})
	assert.True(t, core.IsModelLoad(err))
}

func TestFeatureScaler(t *testing.T) {
	rows := [][]float64{{1, 10}, {3, 10}}
	s, err := FitScaler([]string{"a", "b"}, rows)
	require.NoError(t, err)
	assert.InDelta(t, 2.0, s.Params[0].Mean, 1e-12)
	assert.InDelta(t, 1.0, s.Params[0].Std, 1e-12)
	assert.Equal(t, 0.0, s.Params[1].Std)

	z := s.Transform([]float64{3, 10})
	assert.InDeltaSlice(t, []float64{1, 0}, z, 1e-12)
	assert.InDeltaSlice(t, []float64{3, 10}, s.Inverse(z), 1e-12)

	_, err = FitScaler([]string{"a"}, nil)
	assert.Error(t, err)
}

func TestComputeStatistics(t *testing.T) {
	st := ComputeStatistics([]float64{4, 2, 6})
	assert.InDelta(t, 4.0, st.Mean, 1e-12)
	assert.InDelta(t, 2.0, st.Std, 1e-12)
	assert.Equal(t, 2.0, st.Min)
	assert.Equal(t, 6.0, st.Max)
	assert.Equal(t, FeatureStatistics{}, ComputeStatistics(nil))
}
