package feature

import (
	"context"
	"strconv"

	"github.com/rushteam/gradekit/core"
	"github.com/rushteam/gradekit/pipeline"
	"github.com/rushteam/gradekit/pkg/utils"
)

// EncodeNode 是编码节点：校验原始记录，再按模型 schema 编码为特征向量。
// 记录越界（分数不在 [0,100]、类别为空）返回 INVALID_INPUT，不会进入模型。
type EncodeNode struct {
	Encoder *RecordEncoder
	Schema  []string

	// OnReport 编码完成后的回调（可选），用于上报补 0 列等监控数据
	OnReport func(model string, report core.EncodeReport)
}

// NewEncodeNode 创建编码节点，schema 会被拷贝。
func NewEncodeNode(encoder *RecordEncoder, schema []string) *EncodeNode {
	if encoder == nil {
		encoder = NewRecordEncoder()
	}
	return &EncodeNode{
		Encoder: encoder,
		Schema:  append([]string(nil), schema...),
	}
}

func (n *EncodeNode) Name() string        { return "feature.encode" }
func (n *EncodeNode) Kind() pipeline.Kind { return pipeline.KindEncode }

func (n *EncodeNode) Process(
	_ context.Context,
	rctx *core.RequestContext,
	p *core.Prediction,
) (*core.Prediction, error) {
	validate := p.Record.Validate
	if n.Encoder.Strict() {
		validate = p.Record.ValidateStrict
	}
	if err := validate(); err != nil {
		return nil, err
	}

	vec, report, err := n.Encoder.Encode(p.Record, n.Schema)
	if err != nil {
		return nil, err
	}
	p.Vector = vec
	p.Encode = report
	p.PutLabel("encode", utils.Label{
		Value:  "zero_filled=" + strconv.Itoa(len(report.ZeroFilled)),
		Source: "encode",
	})
	if n.OnReport != nil {
		model := ""
		if rctx != nil {
			model = rctx.Model
		}
		n.OnReport(model, report)
	}
	return p, nil
}
