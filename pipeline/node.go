package pipeline

import (
	"context"

	"github.com/rushteam/gradekit/core"
)

// Kind 用于标记 Node 类型，方便观测/治理/编排（例如按阶段打点）。
type Kind string

const (
	KindEncode      Kind = "encode"      // 编码阶段：校验记录并按 schema 生成特征向量
	KindPredict     Kind = "predict"     // 预测阶段：调用模型得到标签或 at-risk
	KindExplain     Kind = "explain"     // 归因阶段：计算局部归因
	KindPostProcess Kind = "postprocess" // 后处理阶段：Top-K、截断、建议等结果修饰
)

// Node 是 Pipeline 的最小可扩展单元。
// 统一采用"输入 Prediction -> 输出 Prediction"的形态，每个 Node 只填充自己负责的字段。
type Node interface {
	Name() string
	Kind() Kind

	Process(
		ctx context.Context,
		rctx *core.RequestContext,
		p *core.Prediction,
	) (*core.Prediction, error)
}
