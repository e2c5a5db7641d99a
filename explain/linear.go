package explain

import (
	"fmt"

	"github.com/rushteam/gradekit/core"
)

// LinearExplainer 计算线性模型在 margin 空间的精确 SHAP 值（特征独立假设）：
//
//	phi_i = w_k,i * (x_i - E[x_i])
//
// 二分类时系数只有一行（正类）；解释类别 0 时取相反数。
type LinearExplainer struct {
	coef       [][]float64
	intercepts []float64
	nClasses   int
	bg         *Background
	mean       []float64
}

// NewLinearExplainer 创建线性归因器
func NewLinearExplainer(coef [][]float64, intercepts []float64, nClasses int, bg *Background) (*LinearExplainer, error) {
	rows := nClasses
	if nClasses == 2 {
		rows = 1
	}
	if len(coef) != rows || len(intercepts) != rows {
		return nil, core.NewDomainError(core.ModuleExplain, core.ErrorCodeExplainerConstruction,
			fmt.Sprintf("linear explainer: want %d coef rows, got %d", rows, len(coef)))
	}
	for k, row := range coef {
		if len(row) != bg.Width() {
			return nil, core.NewDomainError(core.ModuleExplain, core.ErrorCodeExplainerConstruction,
				fmt.Sprintf("linear explainer: coef row %d has %d values, background has %d features", k, len(row), bg.Width()))
		}
	}
	return &LinearExplainer{
		coef:       coef,
		intercepts: intercepts,
		nClasses:   nClasses,
		bg:         bg,
		mean:       bg.Mean(),
	}, nil
}

func (e *LinearExplainer) Method() string   { return MethodLinear }
func (e *LinearExplainer) Schema() []string { return e.bg.Schema() }

func (e *LinearExplainer) Attribute(x []float64, class int) ([]float64, float64, error) {
	if len(x) != e.bg.Width() {
		return nil, 0, fmt.Errorf("linear explainer: got %d features, want %d", len(x), e.bg.Width())
	}
	if err := checkClass(class, e.nClasses); err != nil {
		return nil, 0, err
	}

	row, sign := class, 1.0
	if e.nClasses == 2 {
		row = 0
		if class == 0 {
			sign = -1
		}
	}
	w := e.coef[row]
	phi := make([]float64, len(x))
	base := e.intercepts[row]
	for i := range x {
		phi[i] = sign * w[i] * (x[i] - e.mean[i])
		base += w[i] * e.mean[i]
	}
	return phi, sign * base, nil
}
