package explain

import (
	"testing"

	"github.com/rushteam/gradekit/core"
	"github.com/rushteam/gradekit/feature"
	"github.com/rushteam/gradekit/model"
	"github.com/stretchr/testify/require"
)

var testSchema = []string{"math_score", "reading_score", "prep_course_none"}

// testTree 在 math_score 上分裂两次，用于覆盖同一特征重复出现在路径上的情况
func testTree() *model.DecisionTree {
	return &model.DecisionTree{
		ChildrenLeft:  []int{1, 3, 5, -1, -1, 7, -1, -1, -1},
		ChildrenRight: []int{2, 4, 6, -1, -1, 8, -1, -1, -1},
		Feature:       []int{0, 1, 0, -2, -2, 2, -2, -2, -2},
		Threshold:     []float64{50, 50, 80, -2, -2, 0.5, -2, -2, -2},
		Value: [][]float64{
			{1, 1}, {1, 1}, {1, 1},
			{0.9, 0.1}, {0.6, 0.4},
			{1, 1},
			{0.1, 0.9}, {0.3, 0.7}, {0.5, 0.5},
		},
	}
}

func vector(t *testing.T, values ...float64) core.FeatureVector {
	t.Helper()
	v, err := core.NewFeatureVector(testSchema, values)
	require.NoError(t, err)
	return v
}

func testBackground(t *testing.T) *Background {
	t.Helper()
	bg, err := NewBackground([]core.FeatureVector{
		vector(t, 40, 40, 1),
		vector(t, 60, 70, 0),
		vector(t, 90, 30, 1),
		vector(t, 55, 55, 1),
	}, 0)
	require.NoError(t, err)
	return bg
}

func treeGateway(t *testing.T, kind string) *model.Gateway {
	t.Helper()
	clf, err := model.NewDecisionTreeModel("dt", []string{"0", "1"}, len(testSchema), testTree())
	require.NoError(t, err)
	g, err := model.NewGateway("dt", kind, clf, &feature.FeatureMetadata{FeatureColumns: testSchema}, nil)
	require.NoError(t, err)
	return g
}

// bruteForceShap 按定义枚举全部联盟计算 interventional Shapley 值
func bruteForceShap(f func([]float64) float64, x []float64, bg [][]float64) []float64 {
	m := len(x)
	phi := make([]float64, m)
	fact := factorials(m)
	for _, r := range bg {
		value := func(mask int) float64 {
			z := make([]float64, m)
			for j := 0; j < m; j++ {
				if mask&(1<<j) != 0 {
					z[j] = x[j]
				} else {
					z[j] = r[j]
				}
			}
			return f(z)
		}
		for i := 0; i < m; i++ {
			for mask := 0; mask < 1<<m; mask++ {
				if mask&(1<<i) != 0 {
					continue
				}
				size := 0
				for j := 0; j < m; j++ {
					if mask&(1<<j) != 0 {
						size++
					}
				}
				w := fact[size] * fact[m-size-1] / fact[m]
				phi[i] += w * (value(mask|1<<i) - value(mask))
			}
		}
	}
	for i := range phi {
		phi[i] /= float64(len(bg))
	}
	return phi
}
