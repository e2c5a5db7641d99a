package postprocess

import (
	"context"
	"strconv"

	"github.com/rushteam/gradekit/core"
	"github.com/rushteam/gradekit/pipeline"
	"github.com/rushteam/gradekit/pkg/utils"
)

// ClipNode 把 |score| < Epsilon 的展示归因置为 0，顺序不变。
type ClipNode struct {
	Epsilon float64
}

func (n *ClipNode) Name() string        { return "postprocess.clip" }
func (n *ClipNode) Kind() pipeline.Kind { return pipeline.KindPostProcess }

func (n *ClipNode) Process(
	_ context.Context,
	_ *core.RequestContext,
	p *core.Prediction,
) (*core.Prediction, error) {
	if !p.Explained || n.Epsilon <= 0 {
		return p, nil
	}
	p.Display = p.Display.Clip(n.Epsilon)
	p.PutLabel("postprocess", utils.Label{
		Value:  "clip=" + strconv.FormatFloat(n.Epsilon, 'g', -1, 64),
		Source: "postprocess",
	})
	return p, nil
}
