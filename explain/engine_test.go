package explain

import (
	"context"
	"math"
	"testing"

	"github.com/rushteam/gradekit/core"
	"github.com/rushteam/gradekit/feature"
	"github.com/rushteam/gradekit/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLinearExplainer_Exact(t *testing.T) {
	bg := testBackground(t)
	mean := bg.Mean()

	t.Run("binary", func(t *testing.T) {
		lr, err := model.NewLogisticModel("lr", []string{"0", "1"}, [][]float64{{0.05, -0.02, 0.7}}, []float64{-1})
		require.NoError(t, err)
		ex, err := New(lr, bg)
		require.NoError(t, err)
		assert.Equal(t, MethodLinear, ex.Method())

		x := []float64{45, 60, 1}
		phi1, base1, err := ex.Attribute(x, 1)
		require.NoError(t, err)
		coef, _ := lr.LinearTerms()
		for i := range x {
			assert.InDelta(t, coef[0][i]*(x[i]-mean[i]), phi1[i], 1e-12)
		}
		var sum float64
		for _, p := range phi1 {
			sum += p
		}
		assert.InDelta(t, lr.Margins(x)[0]-base1, sum, 1e-12)
		assert.InDelta(t, lr.Margins(mean)[0], base1, 1e-12)

		phi0, base0, err := ex.Attribute(x, 0)
		require.NoError(t, err)
		for i := range phi0 {
			assert.InDelta(t, -phi1[i], phi0[i], 1e-12)
		}
		assert.InDelta(t, -base1, base0, 1e-12)
	})

	t.Run("multiclass", func(t *testing.T) {
		coef := [][]float64{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}}
		lr, err := model.NewLogisticModel("lr3", []string{"a", "b", "c"}, coef, []float64{0, 0, 0})
		require.NoError(t, err)
		ex, err := New(lr, bg)
		require.NoError(t, err)

		phi, _, err := ex.Attribute([]float64{45, 60, 1}, 1)
		require.NoError(t, err)
		assert.InDeltaSlice(t, []float64{0, 60 - mean[1], 0}, phi, 1e-12)
	})
}

func TestNew_UnsupportedModel(t *testing.T) {
	rpc, err := model.NewRPCModel("remote", "http://localhost:0", []string{"0", "1"}, testSchema, 0)
	require.NoError(t, err)
	_, err = New(rpc, testBackground(t))
	require.Error(t, err)
	assert.True(t, core.IsExplainerConstruction(err))

	g, err := model.NewGateway("remote", core.KindRisk, rpc, &feature.FeatureMetadata{FeatureColumns: testSchema}, nil)
	require.NoError(t, err)
	engine := NewEngine(g, testBackground(t))
	_, err = engine.ExplainLocal(vector(t, 45, 60, 1), 1)
	assert.True(t, core.IsExplainerConstruction(err))
}

func TestEngine_ExplainLocal(t *testing.T) {
	engine := NewEngine(treeGateway(t, core.KindRisk), testBackground(t))
	_, err := engine.Explainer()
	require.NoError(t, err)
	assert.Equal(t, 1, engine.TargetClass(0), "risk models explain the positive class")

	v := vector(t, 45, 60, 1)
	a, err := engine.ExplainLocal(v, 1)
	require.NoError(t, err)
	b, err := engine.ExplainLocal(v, 1)
	require.NoError(t, err)
	assert.Equal(t, a, b, "explanations must be deterministic")

	require.Len(t, a.Attributions, len(testSchema))
	for i := 1; i < len(a.Attributions); i++ {
		prev, cur := math.Abs(a.Attributions[i-1].Score), math.Abs(a.Attributions[i].Score)
		assert.GreaterOrEqual(t, prev, cur)
	}

	label := NewEngine(treeGateway(t, core.KindLabel), testBackground(t))
	assert.Equal(t, 0, label.TargetClass(0), "label models explain the predicted class")
}

func TestEngine_SchemaMismatch(t *testing.T) {
	engine := NewEngine(treeGateway(t, core.KindRisk), testBackground(t))
	other, err := core.NewFeatureVector([]string{"reading_score", "math_score", "prep_course_none"}, []float64{1, 2, 3})
	require.NoError(t, err)

	_, err = engine.ExplainLocal(other, 1)
	require.Error(t, err)
	assert.True(t, core.IsSchemaMismatch(err))

	ex, _ := engine.Explainer()
	_, err = ExplainGlobal(context.Background(), ex, []core.FeatureVector{other}, GlobalOptions{})
	assert.True(t, core.IsSchemaMismatch(err))
}

func TestNewBackground(t *testing.T) {
	var vs []core.FeatureVector
	for i := 0; i < 10; i++ {
		vs = append(vs, vector(t, float64(i), 0, 0))
	}
	bg, err := NewBackground(vs, 4)
	require.NoError(t, err)
	assert.Equal(t, 4, bg.Len())
	assert.Equal(t, [][]float64{{0, 0, 0}, {2, 0, 0}, {5, 0, 0}, {7, 0, 0}}, bg.rows)
	assert.InDelta(t, 3.5, bg.Mean()[0], 1e-12)

	again, err := NewBackground(vs, 4)
	require.NoError(t, err)
	assert.Equal(t, bg.rows, again.rows)

	_, err = NewBackground(nil, 4)
	assert.Error(t, err)

	mixed := append(vs[:1:1], core.FeatureVector{})
	_, err = NewBackground(mixed, 0)
	assert.True(t, core.IsSchemaMismatch(err))
}
