package model

import (
	"context"
	"fmt"
)

// DecisionTree 是 sklearn tree_ 结构的平行数组表示。
// 节点 i 为叶子当且仅当 ChildrenLeft[i] == -1；
// 内部节点按 x[Feature[i]] <= Threshold[i] 走左子树，否则走右子树。
// Value[i] 为节点上各类别的样本数（或占比），加载时归一化为概率。
type DecisionTree struct {
	ChildrenLeft  []int       `json:"children_left"`
	ChildrenRight []int       `json:"children_right"`
	Feature       []int       `json:"feature"`
	Threshold     []float64   `json:"threshold"`
	Value         [][]float64 `json:"value"`
}

const leafChild = -1

// Prepare 校验结构并把 Value 归一化为概率（原地修改）。
func (t *DecisionTree) Prepare(nClasses, nFeatures int) error {
	n := len(t.ChildrenLeft)
	if n == 0 {
		return fmt.Errorf("decision tree: no nodes")
	}
	if len(t.ChildrenRight) != n || len(t.Feature) != n || len(t.Threshold) != n || len(t.Value) != n {
		return fmt.Errorf("decision tree: inconsistent node arrays (%d/%d/%d/%d/%d)",
			n, len(t.ChildrenRight), len(t.Feature), len(t.Threshold), len(t.Value))
	}
	for i := 0; i < n; i++ {
		if len(t.Value[i]) != nClasses {
			return fmt.Errorf("decision tree: node %d has %d class values, want %d", i, len(t.Value[i]), nClasses)
		}
		if t.IsLeaf(i) {
			if t.ChildrenRight[i] != leafChild {
				return fmt.Errorf("decision tree: node %d has only one child", i)
			}
			normalize(t.Value[i])
			continue
		}
		l, r := t.ChildrenLeft[i], t.ChildrenRight[i]
		if l <= i || r <= i || l >= n || r >= n {
			return fmt.Errorf("decision tree: node %d has invalid children (%d, %d)", i, l, r)
		}
		if f := t.Feature[i]; f < 0 || (nFeatures > 0 && f >= nFeatures) {
			return fmt.Errorf("decision tree: node %d splits on feature %d out of range", i, f)
		}
		normalize(t.Value[i])
	}
	return nil
}

func normalize(v []float64) {
	var sum float64
	for _, x := range v {
		sum += x
	}
	if sum <= 0 {
		return
	}
	for i := range v {
		v[i] /= sum
	}
}

// IsLeaf 判断节点是否为叶子
func (t *DecisionTree) IsLeaf(node int) bool {
	return t.ChildrenLeft[node] == leafChild
}

// NumNodes 返回节点数
func (t *DecisionTree) NumNodes() int { return len(t.ChildrenLeft) }

// Next 返回 x 在内部节点 node 上走向的子节点
func (t *DecisionTree) Next(node int, x []float64) int {
	if x[t.Feature[node]] <= t.Threshold[node] {
		return t.ChildrenLeft[node]
	}
	return t.ChildrenRight[node]
}

// Leaf 返回 x 落入的叶子节点
func (t *DecisionTree) Leaf(x []float64) int {
	node := 0
	for !t.IsLeaf(node) {
		node = t.Next(node, x)
	}
	return node
}

// Proba 返回 x 所在叶子的类别概率（副本）
func (t *DecisionTree) Proba(x []float64) []float64 {
	return append([]float64(nil), t.Value[t.Leaf(x)]...)
}

// LeafValue 返回叶子节点某个类别的概率
func (t *DecisionTree) LeafValue(node, class int) float64 {
	return t.Value[node][class]
}

// DecisionTreeModel 是单棵决策树分类器
type DecisionTreeModel struct {
	name      string
	classes   []string
	nFeatures int
	tree      *DecisionTree
}

// NewDecisionTreeModel 创建决策树分类器，tree 会被校验并归一化
func NewDecisionTreeModel(name string, classes []string, nFeatures int, tree *DecisionTree) (*DecisionTreeModel, error) {
	if len(classes) < 2 {
		return nil, fmt.Errorf("decision tree %s: need at least 2 classes, got %d", name, len(classes))
	}
	if tree == nil {
		return nil, fmt.Errorf("decision tree %s: missing tree", name)
	}
	if err := tree.Prepare(len(classes), nFeatures); err != nil {
		return nil, fmt.Errorf("decision tree %s: %w", name, err)
	}
	return &DecisionTreeModel{
		name:      name,
		classes:   append([]string(nil), classes...),
		nFeatures: nFeatures,
		tree:      tree,
	}, nil
}

func (m *DecisionTreeModel) Name() string           { return m.name }
func (m *DecisionTreeModel) Kind() string           { return KindDecisionTree }
func (m *DecisionTreeModel) Classes() []string      { return append([]string(nil), m.classes...) }
func (m *DecisionTreeModel) NumFeatures() int       { return m.nFeatures }
func (m *DecisionTreeModel) Trees() []*DecisionTree { return []*DecisionTree{m.tree} }

func (m *DecisionTreeModel) PredictProba(_ context.Context, x []float64) ([]float64, error) {
	if err := checkWidth(m.name, m.nFeatures, x); err != nil {
		return nil, err
	}
	return m.tree.Proba(x), nil
}

// RandomForestModel 是随机森林分类器：各树概率取平均（与 sklearn 一致）
type RandomForestModel struct {
	name      string
	classes   []string
	nFeatures int
	trees     []*DecisionTree
}

// NewRandomForestModel 创建随机森林分类器
func NewRandomForestModel(name string, classes []string, nFeatures int, trees []*DecisionTree) (*RandomForestModel, error) {
	if len(classes) < 2 {
		return nil, fmt.Errorf("random forest %s: need at least 2 classes, got %d", name, len(classes))
	}
	if len(trees) == 0 {
		return nil, fmt.Errorf("random forest %s: no trees", name)
	}
	for i, t := range trees {
		if t == nil {
			return nil, fmt.Errorf("random forest %s: tree %d is nil", name, i)
		}
		if err := t.Prepare(len(classes), nFeatures); err != nil {
			return nil, fmt.Errorf("random forest %s: tree %d: %w", name, i, err)
		}
	}
	return &RandomForestModel{
		name:      name,
		classes:   append([]string(nil), classes...),
		nFeatures: nFeatures,
		trees:     trees,
	}, nil
}

func (m *RandomForestModel) Name() string      { return m.name }
func (m *RandomForestModel) Kind() string      { return KindRandomForest }
func (m *RandomForestModel) Classes() []string { return append([]string(nil), m.classes...) }
func (m *RandomForestModel) NumFeatures() int  { return m.nFeatures }

func (m *RandomForestModel) Trees() []*DecisionTree {
	return append([]*DecisionTree(nil), m.trees...)
}

func (m *RandomForestModel) PredictProba(_ context.Context, x []float64) ([]float64, error) {
	if err := checkWidth(m.name, m.nFeatures, x); err != nil {
		return nil, err
	}
	out := make([]float64, len(m.classes))
	for _, t := range m.trees {
		leaf := t.Leaf(x)
		for k := range out {
			out[k] += t.LeafValue(leaf, k)
		}
	}
	for k := range out {
		out[k] /= float64(len(m.trees))
	}
	return out, nil
}

func checkWidth(name string, want int, x []float64) error {
	if want > 0 && len(x) != want {
		return fmt.Errorf("model %s: got %d features, want %d", name, len(x), want)
	}
	return nil
}
