// Package predict 提供预测阶段的 Node：调用 model.Gateway 并把结果写回 Prediction。
package predict

import (
	"context"
	"fmt"

	"github.com/rushteam/gradekit/core"
	"github.com/rushteam/gradekit/model"
	"github.com/rushteam/gradekit/pipeline"
	"github.com/rushteam/gradekit/pkg/utils"
)

// LabelNode 预测表现等级。
// - 写入 labels：predict_model
// - 归因类别为被预测的类别
type LabelNode struct {
	Gateway *model.Gateway
}

func (n *LabelNode) Name() string        { return "predict.label" }
func (n *LabelNode) Kind() pipeline.Kind { return pipeline.KindPredict }

func (n *LabelNode) Process(
	ctx context.Context,
	_ *core.RequestContext,
	p *core.Prediction,
) (*core.Prediction, error) {
	if n.Gateway == nil {
		return nil, fmt.Errorf("predict.label: nil gateway")
	}
	out, err := n.Gateway.PredictLabel(ctx, p.Vector)
	if err != nil {
		return nil, err
	}
	p.Kind = core.KindLabel
	p.Label = out.Label
	p.Confidence = out.Confidence
	p.HasConfidence = len(out.Probabilities) > 0
	p.Classes = out.Classes
	p.Probabilities = out.Probabilities
	p.ExplainClass = out.ClassIndex
	p.PutLabel("predict_model", utils.Label{Value: n.Gateway.Name(), Source: "predict"})
	return p, nil
}

// RiskNode 预测 at-risk。
// - 写入 labels：predict_model
// - 归因类别固定为正类（at-risk），与预测结果无关，便于不同学生之间比较
type RiskNode struct {
	Gateway *model.Gateway
}

func (n *RiskNode) Name() string        { return "predict.risk" }
func (n *RiskNode) Kind() pipeline.Kind { return pipeline.KindPredict }

func (n *RiskNode) Process(
	ctx context.Context,
	_ *core.RequestContext,
	p *core.Prediction,
) (*core.Prediction, error) {
	if n.Gateway == nil {
		return nil, fmt.Errorf("predict.risk: nil gateway")
	}
	out, err := n.Gateway.PredictRisk(ctx, p.Vector)
	if err != nil {
		return nil, err
	}
	p.Kind = core.KindRisk
	p.AtRisk = out.AtRisk
	p.Label = out.Classes[out.ClassIndex]
	p.Confidence = out.Confidence
	p.HasConfidence = len(out.Probabilities) > 0
	p.Classes = out.Classes
	p.Probabilities = out.Probabilities
	p.ExplainClass = n.Gateway.PositiveClass()
	p.PutLabel("predict_model", utils.Label{Value: n.Gateway.Name(), Source: "predict"})
	return p, nil
}

// New 按模型类型返回对应的预测节点。
func New(g *model.Gateway) (pipeline.Node, error) {
	switch g.Kind() {
	case core.KindLabel:
		return &LabelNode{Gateway: g}, nil
	case core.KindRisk:
		return &RiskNode{Gateway: g}, nil
	default:
		return nil, core.NewDomainError(core.ModulePipeline, core.ErrorCodeNotSupported,
			fmt.Sprintf("predict: unknown model kind %q", g.Kind()))
	}
}
