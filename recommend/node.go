package recommend

import (
	"context"
	"strconv"

	"github.com/rushteam/gradekit/core"
	"github.com/rushteam/gradekit/pipeline"
	"github.com/rushteam/gradekit/pkg/utils"
)

// Node 把建议写入 Prediction.Recommendations。
// 没有归因时（未请求归因或归因失败）top 为空，仍会按记录字段规则给出建议。
type Node struct {
	Recommender *Recommender
}

func (n *Node) Name() string        { return "recommend.rules" }
func (n *Node) Kind() pipeline.Kind { return pipeline.KindPostProcess }

func (n *Node) Process(
	_ context.Context,
	_ *core.RequestContext,
	p *core.Prediction,
) (*core.Prediction, error) {
	if n.Recommender == nil {
		return p, nil
	}
	recs, err := n.Recommender.RecommendPrediction(p)
	if err != nil {
		return nil, err
	}
	p.Recommendations = recs
	p.PutLabel("recommend", utils.Label{Value: strconv.Itoa(len(recs)), Source: "rule"})
	return p, nil
}
