package explain

import (
	"context"
	"testing"

	"github.com/rushteam/gradekit/core"
	"github.com/rushteam/gradekit/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTreeExplainer_MatchesBruteForce(t *testing.T) {
	tree := testTree()
	require.NoError(t, tree.Prepare(2, 3))
	bg := testBackground(t)
	ex, err := NewTreeExplainer([]*model.DecisionTree{tree}, 2, bg)
	require.NoError(t, err)

	inputs := [][]float64{
		{45, 60, 1},
		{85, 20, 0},
		{70, 70, 0},
		{40, 40, 1},
	}
	for _, x := range inputs {
		for class := 0; class < 2; class++ {
			phi, base, err := ex.Attribute(x, class)
			require.NoError(t, err)

			f := func(z []float64) float64 { return tree.Proba(z)[class] }
			want := bruteForceShap(f, x, bg.rows)
			assert.InDeltaSlice(t, want, phi, 1e-12, "x=%v class=%d", x, class)

			var sum float64
			for _, p := range phi {
				sum += p
			}
			assert.InDelta(t, f(x)-base, sum, 1e-12, "efficiency x=%v class=%d", x, class)
		}
	}
}

func TestTreeExplainer_ForestAveragesTrees(t *testing.T) {
	bg := testBackground(t)
	stump := &model.DecisionTree{
		ChildrenLeft:  []int{1, -1, -1},
		ChildrenRight: []int{2, -1, -1},
		Feature:       []int{1, -2, -2},
		Threshold:     []float64{50, -2, -2},
		Value:         [][]float64{{1, 1}, {0, 1}, {1, 0}},
	}
	rf, err := model.NewRandomForestModel("rf", []string{"0", "1"}, 3, []*model.DecisionTree{testTree(), stump})
	require.NoError(t, err)

	ex, err := New(rf, bg)
	require.NoError(t, err)
	assert.Equal(t, MethodTree, ex.Method())

	x := []float64{45, 60, 1}
	phi, base, err := ex.Attribute(x, 1)
	require.NoError(t, err)

	f := func(z []float64) float64 {
		p, _ := rf.PredictProba(context.Background(), z)
		return p[1]
	}
	assert.InDeltaSlice(t, bruteForceShap(f, x, bg.rows), phi, 1e-12)

	var sum float64
	for _, p := range phi {
		sum += p
	}
	assert.InDelta(t, f(x)-base, sum, 1e-12)
}

func TestTreeExplainer_SamePathHasNoAttribution(t *testing.T) {
	tree := testTree()
	require.NoError(t, tree.Prepare(2, 3))
	bg, err := NewBackground([]core.FeatureVector{vector(t, 45, 60, 1)}, 0)
	require.NoError(t, err)
	ex, err := NewTreeExplainer([]*model.DecisionTree{tree}, 2, bg)
	require.NoError(t, err)

	phi, _, err := ex.Attribute([]float64{30, 90, 0}, 1)
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 0, 0}, phi)
}

func TestTreeExplainer_BadInput(t *testing.T) {
	tree := testTree()
	require.NoError(t, tree.Prepare(2, 3))
	ex, err := NewTreeExplainer([]*model.DecisionTree{tree}, 2, testBackground(t))
	require.NoError(t, err)

	_, _, err = ex.Attribute([]float64{1, 2}, 1)
	assert.Error(t, err)
	_, _, err = ex.Attribute([]float64{1, 2, 3}, 2)
	assert.Error(t, err)

	_, err = NewTreeExplainer(nil, 2, testBackground(t))
	assert.Error(t, err)
}
