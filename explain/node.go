package explain

import (
	"context"

	"github.com/rushteam/gradekit/core"
	"github.com/rushteam/gradekit/pipeline"
	"github.com/rushteam/gradekit/pkg/utils"
)

// LocalNode 是局部归因节点：仅当请求要求 ExplainLocal 时计算归因。
// 归因失败不会中断链路，结果被标记为 partial，预测部分照常返回。
type LocalNode struct {
	Engine *Engine

	// OnError 归因失败时的回调（可选），用于监控
	OnError func(model string, err error)
}

func (n *LocalNode) Name() string        { return "explain.local" }
func (n *LocalNode) Kind() pipeline.Kind { return pipeline.KindExplain }

func (n *LocalNode) Process(
	_ context.Context,
	rctx *core.RequestContext,
	p *core.Prediction,
) (*core.Prediction, error) {
	if rctx == nil || rctx.Extent != core.ExplainLocal {
		return p, nil
	}

	exp, err := n.Engine.ExplainLocal(p.Vector, p.ExplainClass)
	if err != nil {
		p.ExplainErr = err
		p.PutLabel("explain", utils.Label{Value: "failed", Source: "explain"})
		if n.OnError != nil {
			n.OnError(rctx.Model, err)
		}
		return p, nil
	}

	method := ""
	if ex, _ := n.Engine.Explainer(); ex != nil {
		method = ex.Method()
	}
	p.Raw = exp.Attributions
	p.Display = exp.Attributions.Clone()
	p.BaseValue = exp.BaseValue
	p.Explained = true
	p.PutLabel("explain", utils.Label{Value: method, Source: "explain"})
	return p, nil
}
