// Package postprocess 提供归因结果的展示修饰节点。
// 只修改 Prediction.Display，Prediction.Raw 保持完整、未截断。
package postprocess

import (
	"context"
	"strconv"

	"github.com/rushteam/gradekit/core"
	"github.com/rushteam/gradekit/pipeline"
	"github.com/rushteam/gradekit/pkg/utils"
)

// TopKNode 保留绝对值最大的前 K 个归因。
// 通常放在 explain.local 之后、recommend.rules 之前：
//
//	nodes:
//	  - type: postprocess.topk
//	    config: {k: 10}
//	  - type: postprocess.clip
//	    config: {epsilon: 0.01}
type TopKNode struct {
	// K <= 0 时不截断
	K int
}

func (n *TopKNode) Name() string        { return "postprocess.topk" }
func (n *TopKNode) Kind() pipeline.Kind { return pipeline.KindPostProcess }

func (n *TopKNode) Process(
	_ context.Context,
	_ *core.RequestContext,
	p *core.Prediction,
) (*core.Prediction, error) {
	if !p.Explained || n.K <= 0 || len(p.Display) <= n.K {
		return p, nil
	}
	p.Display = p.Display.Top(n.K)
	p.PutLabel("postprocess", utils.Label{Value: "topk=" + strconv.Itoa(n.K), Source: "postprocess"})
	return p, nil
}
