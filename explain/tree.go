package explain

import (
	"fmt"

	"github.com/rushteam/gradekit/core"
	"github.com/rushteam/gradekit/model"
)

// TreeExplainer 计算决策树（集成）的精确 interventional SHAP 值。
//
// 对每个背景样本 r，价值函数为 v(S) = f(x_S, r_S̄)。沿树同时追踪 x 与 r 的路径：
// 两者走向相同则无需决策；否则分裂特征要么"取自 x"（进入集合 X），要么"取自 r"（进入集合 R）。
// 到达叶子时，对 X 中每个特征加上 v·W(|X|-1, |R|)，对 R 中每个特征减去 v·W(|X|, |R|-1)，
// 其中 W(a, b) = a!·b!/(a+b+1)!。
// 结果对背景样本与各棵树取平均，满足 sum(phi) = f(x) - E[f(r)]。
type TreeExplainer struct {
	trees    []*model.DecisionTree
	nClasses int
	bg       *Background
	fact     []float64

	// base[c] 为背景集上类别 c 的平均输出
	base []float64
}

// NewTreeExplainer 创建树归因器，预先计算各类别的基线
func NewTreeExplainer(trees []*model.DecisionTree, nClasses int, bg *Background) (*TreeExplainer, error) {
	if len(trees) == 0 {
		return nil, core.NewDomainError(core.ModuleExplain, core.ErrorCodeExplainerConstruction,
			"tree explainer: no trees")
	}
	e := &TreeExplainer{
		trees:    trees,
		nClasses: nClasses,
		bg:       bg,
		fact:     factorials(bg.Width() + 1),
		base:     make([]float64, nClasses),
	}
	for _, r := range bg.rows {
		for _, t := range trees {
			leaf := t.Leaf(r)
			for c := 0; c < nClasses; c++ {
				e.base[c] += t.LeafValue(leaf, c)
			}
		}
	}
	norm := float64(len(bg.rows) * len(trees))
	for c := range e.base {
		e.base[c] /= norm
	}
	return e, nil
}

func (e *TreeExplainer) Method() string   { return MethodTree }
func (e *TreeExplainer) Schema() []string { return e.bg.Schema() }

// BaseValue 返回类别 c 的基线
func (e *TreeExplainer) BaseValue(class int) float64 { return e.base[class] }

func (e *TreeExplainer) Attribute(x []float64, class int) ([]float64, float64, error) {
	if len(x) != e.bg.Width() {
		return nil, 0, fmt.Errorf("tree explainer: got %d features, want %d", len(x), e.bg.Width())
	}
	if err := checkClass(class, e.nClasses); err != nil {
		return nil, 0, err
	}

	phi := make([]float64, len(x))
	w := &walker{
		x:     x,
		class: class,
		fact:  e.fact,
		inX:   make([]bool, len(x)),
		inR:   make([]bool, len(x)),
		phi:   phi,
	}
	for _, t := range e.trees {
		w.tree = t
		for _, r := range e.bg.rows {
			w.r = r
			w.walk(0, 0, 0)
		}
	}
	norm := float64(len(e.bg.rows) * len(e.trees))
	for i := range phi {
		phi[i] /= norm
	}
	return phi, e.base[class], nil
}

// walker 是单次 (tree, x, r) 遍历的状态，inX / inR 在递归中回溯复用。
type walker struct {
	tree  *model.DecisionTree
	x, r  []float64
	class int
	fact  []float64
	inX   []bool
	inR   []bool
	phi   []float64
}

func (w *walker) walk(node, nx, nr int) {
	t := w.tree
	if t.IsLeaf(node) {
		v := t.LeafValue(node, w.class)
		if v == 0 {
			return
		}
		if nx > 0 {
			pos := v * w.weight(nx-1, nr)
			for i, in := range w.inX {
				if in {
					w.phi[i] += pos
				}
			}
		}
		if nr > 0 {
			neg := v * w.weight(nx, nr-1)
			for i, in := range w.inR {
				if in {
					w.phi[i] -= neg
				}
			}
		}
		return
	}

	xc, rc := t.Next(node, w.x), t.Next(node, w.r)
	if xc == rc {
		w.walk(xc, nx, nr)
		return
	}
	f := t.Feature[node]
	switch {
	case w.inX[f]:
		w.walk(xc, nx, nr)
	case w.inR[f]:
		w.walk(rc, nx, nr)
	default:
		w.inX[f] = true
		w.walk(xc, nx+1, nr)
		w.inX[f] = false

		w.inR[f] = true
		w.walk(rc, nx, nr+1)
		w.inR[f] = false
	}
}

// weight 返回 a!·b!/(a+b+1)!
func (w *walker) weight(a, b int) float64 {
	return w.fact[a] * w.fact[b] / w.fact[a+b+1]
}

func factorials(n int) []float64 {
	f := make([]float64, n+1)
	f[0] = 1
	for i := 1; i <= n; i++ {
		f[i] = f[i-1] * float64(i)
	}
	return f
}
