package model

import (
	"testing"

	"github.com/rushteam/gradekit/core"
	"github.com/rushteam/gradekit/feature"
	"github.com/stretchr/testify/require"
)

var testSchema = []string{"math_score", "reading_score", "writing_score", "prep_course_none"}

const riskArtifactJSON = `{
  "kind": "decision_tree",
  "classes": [0, 1],
  "tree": {
    "children_left":  [1, -1, 3, -1, -1],
    "children_right": [2, -1, 4, -1, -1],
    "feature":        [0, -2, 3, -2, -2],
    "threshold":      [59.5, -2, 0.5, -2, -2],
    "value":          [[65, 35], [10, 30], [55, 5], [40, 0], [15, 5]]
  },
  "feature_meta": {"feature_columns": ["math_score", "reading_score", "writing_score", "prep_course_none"]}
}`

const labelArtifactJSON = `{
  "kind": "decision_tree",
  "classes": [0, 1, 2],
  "tree": {
    "children_left":  [1, -1, -1],
    "children_right": [2, -1, -1],
    "feature":        [1, -2, -2],
    "threshold":      [70, -2, -2],
    "value":          [[1, 1, 1], [0.2, 0.1, 0.7], [0.1, 0.8, 0.1]]
  },
  "feature_meta": {"feature_columns": ["math_score", "reading_score", "writing_score", "prep_course_none"]},
  "label_encoder": {"classes": ["Average", "Good", "Poor"]}
}`

func riskTree() *DecisionTree {
	return &DecisionTree{
		ChildrenLeft:  []int{1, -1, 3, -1, -1},
		ChildrenRight: []int{2, -1, 4, -1, -1},
		Feature:       []int{0, -2, 3, -2, -2},
		Threshold:     []float64{59.5, -2, 0.5, -2, -2},
		Value:         [][]float64{{65, 35}, {10, 30}, {55, 5}, {40, 0}, {15, 5}},
	}
}

func testMeta() *feature.FeatureMetadata {
	return &feature.FeatureMetadata{FeatureColumns: append([]string(nil), testSchema...)}
}

func vec(t *testing.T, values ...float64) core.FeatureVector {
	t.Helper()
	v, err := core.NewFeatureVector(testSchema, values)
	require.NoError(t, err)
	return v
}

func riskGateway(t *testing.T) *Gateway {
	t.Helper()
	clf, err := NewDecisionTreeModel("risk", []string{"0", "1"}, len(testSchema), riskTree())
	require.NoError(t, err)
	g, err := NewGateway("risk", core.KindRisk, clf, testMeta(), nil)
	require.NoError(t, err)
	return g
}
