// Package explain 计算特征归因（SHAP 值）。
//
// 归因方法按模型能力选择，而不是按模型类型：
//   - 暴露决策树结构（TreeEnsemble）的模型使用 TreeExplainer（精确的 interventional Tree SHAP）
//   - 暴露线性系数（LinearModel）的模型使用 LinearExplainer
//   - 其他模型（如远程 RPC 模型）无法构建归因器，返回 EXPLAINER_CONSTRUCTION
package explain

import (
	"fmt"

	"github.com/rushteam/gradekit/core"
	"github.com/rushteam/gradekit/model"
)

// 归因方法
const (
	MethodTree   = "tree"
	MethodLinear = "linear"
)

// TreeEnsemble 是可暴露决策树结构的模型（决策树、随机森林）。
// 模型输出为各树叶子概率的平均值。
type TreeEnsemble interface {
	Trees() []*model.DecisionTree
}

// LinearModel 是可暴露线性系数的模型（逻辑回归）。
// 二分类时 coef 只有一行，对应正类（下标 1）的 margin。
type LinearModel interface {
	LinearTerms() (coef [][]float64, intercepts []float64)
}

// Explanation 是一次局部归因的结果
type Explanation struct {
	// Attributions 按 |score| 降序（同分按特征名升序）
	Attributions core.AttributionSet
	// BaseValue 是背景集上的期望输出（树模型为概率，线性模型为 margin）
	BaseValue float64
	// Class 是被解释的类别下标
	Class int
}

// Explainer 计算单条特征向量对某个类别的归因。
// 构建后只读，可被多个 goroutine 并发使用；对相同输入输出确定。
type Explainer interface {
	Method() string
	Schema() []string

	// Attribute 返回与 schema 同序的原始归因值与基线
	Attribute(x []float64, class int) ([]float64, float64, error)
}

// New 按模型能力构建归因器
func New(clf model.Classifier, bg *Background) (Explainer, error) {
	if bg == nil || bg.Len() == 0 {
		return nil, core.NewDomainError(core.ModuleExplain, core.ErrorCodeExplainerConstruction,
			fmt.Sprintf("explainer for %s: empty background", clf.Name()))
	}
	if n := clf.NumFeatures(); n > 0 && n != bg.Width() {
		return nil, core.NewDomainError(core.ModuleExplain, core.ErrorCodeExplainerConstruction,
			fmt.Sprintf("explainer for %s: background has %d features, model expects %d", clf.Name(), bg.Width(), n))
	}
	nClasses := len(clf.Classes())

	switch m := clf.(type) {
	case TreeEnsemble:
		return NewTreeExplainer(m.Trees(), nClasses, bg)
	case LinearModel:
		coef, intercepts := m.LinearTerms()
		return NewLinearExplainer(coef, intercepts, nClasses, bg)
	default:
		return nil, core.NewDomainError(core.ModuleExplain, core.ErrorCodeExplainerConstruction,
			fmt.Sprintf("explainer for %s: model kind %q exposes neither trees nor linear terms", clf.Name(), clf.Kind()))
	}
}

// ExplainLocal 校验 schema 后计算归因并排序
func ExplainLocal(ex Explainer, v core.FeatureVector, class int) (Explanation, error) {
	schema := ex.Schema()
	if !v.SchemaEquals(schema) {
		return Explanation{}, core.NewSchemaMismatch(core.ModuleExplain, schema, v.Names())
	}
	phi, base, err := ex.Attribute(v.Values(), class)
	if err != nil {
		return Explanation{}, err
	}
	return Explanation{
		Attributions: core.NewAttributionSet(schema, phi),
		BaseValue:    base,
		Class:        class,
	}, nil
}

func checkClass(class, nClasses int) error {
	if class < 0 || class >= nClasses {
		return core.NewDomainError(core.ModuleExplain, core.ErrorCodeInvalidInput,
			fmt.Sprintf("explain: class %d out of range [0,%d)", class, nClasses))
	}
	return nil
}
