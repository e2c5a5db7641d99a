package explain

import (
	"github.com/rushteam/gradekit/core"
	"github.com/rushteam/gradekit/model"
)

// Engine 绑定一个模型与其归因器。归因器在创建时构建一次；
// 构建失败时记录错误，之后每次归因都返回同一个错误（预测本身不受影响）。
type Engine struct {
	gateway   *model.Gateway
	explainer Explainer
	err       error
}

// NewEngine 为模型构建归因器
func NewEngine(g *model.Gateway, bg *Background) *Engine {
	e := &Engine{gateway: g}
	e.explainer, e.err = New(g.Classifier(), bg)
	if e.err == nil && !equalStrings(e.explainer.Schema(), g.Schema()) {
		e.explainer = nil
		e.err = core.NewSchemaMismatch(core.ModuleExplain, g.Schema(), bg.Schema())
	}
	return e
}

// Explainer 返回归因器或构建错误
func (e *Engine) Explainer() (Explainer, error) {
	return e.explainer, e.err
}

// Gateway 返回绑定的模型
func (e *Engine) Gateway() *model.Gateway { return e.gateway }

// TargetClass 返回应当被解释的类别：
// risk 模型解释正类（at-risk），label 模型解释被预测的类别。
func (e *Engine) TargetClass(predicted int) int {
	if e.gateway.Kind() == core.KindRisk && e.gateway.PositiveClass() >= 0 {
		return e.gateway.PositiveClass()
	}
	return predicted
}

// ExplainLocal 计算单条记录的局部归因
func (e *Engine) ExplainLocal(v core.FeatureVector, class int) (Explanation, error) {
	if e.err != nil {
		return Explanation{}, e.err
	}
	return ExplainLocal(e.explainer, v, class)
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
