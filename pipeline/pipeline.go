package pipeline

import (
	"context"
	"fmt"

	"github.com/rushteam/gradekit/core"
)

// Pipeline 把一次预测拆成可组合的 Node 链。
// Pipeline 本身无状态，可被多个请求并发复用（前提是各 Node 只读共享数据）。
type Pipeline struct {
	Nodes []Node
}

// New 以给定节点创建 Pipeline。
func New(nodes ...Node) *Pipeline {
	return &Pipeline{Nodes: nodes}
}

// Append 返回追加了 nodes 的新 Pipeline，不修改原 Pipeline。
func (p *Pipeline) Append(nodes ...Node) *Pipeline {
	all := make([]Node, 0, len(p.Nodes)+len(nodes))
	all = append(all, p.Nodes...)
	all = append(all, nodes...)
	return &Pipeline{Nodes: all}
}

// Run 依次执行各 Node；任一 Node 出错即中止。
func (p *Pipeline) Run(
	ctx context.Context,
	rctx *core.RequestContext,
	pred *core.Prediction,
) (*core.Prediction, error) {
	cur := pred
	for _, node := range p.Nodes {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		next, err := node.Process(ctx, rctx, cur)
		if err != nil {
			return nil, fmt.Errorf("node %s: %w", node.Name(), err)
		}
		cur = next
	}
	return cur, nil
}
