package core

import "github.com/rushteam/gradekit/pkg/utils"

// ExplainExtent 决定一次预测请求是否计算局部归因。
type ExplainExtent int

const (
	// ExplainNone 仅预测，不计算归因
	ExplainNone ExplainExtent = iota
	// ExplainLocal 预测并计算该记录的局部归因
	ExplainLocal
)

func (e ExplainExtent) String() string {
	switch e {
	case ExplainNone:
		return "none"
	case ExplainLocal:
		return "local"
	default:
		return "unknown"
	}
}

// ParseExplainExtent 解析 "none" / "local"，空字符串视为 local。
func ParseExplainExtent(s string) (ExplainExtent, error) {
	switch s {
	case "", "local":
		return ExplainLocal, nil
	case "none":
		return ExplainNone, nil
	default:
		return ExplainNone, NewDomainError(ModulePipeline, ErrorCodeInvalidInput, "unknown explain extent: "+s)
	}
}

// RequestContext 承载一次预测请求的上下文，贯穿整个 Pipeline 透传。
type RequestContext struct {
	RequestID string
	Model     string
	Extent    ExplainExtent

	// Labels 是请求级标签，可驱动 Pipeline 行为
	Labels map[string]utils.Label

	// Params 请求级参数（如 top_k 覆盖值）
	Params map[string]any
}

// PutLabel 写入请求级 Label。
func (rctx *RequestContext) PutLabel(key string, lbl utils.Label) {
	if rctx.Labels == nil {
		rctx.Labels = make(map[string]utils.Label)
	}
	if old, ok := rctx.Labels[key]; ok {
		rctx.Labels[key] = utils.MergeLabel(old, lbl)
		return
	}
	rctx.Labels[key] = lbl
}

// GetLabel 获取请求级 Label。
func (rctx *RequestContext) GetLabel(key string) (utils.Label, bool) {
	if rctx.Labels == nil {
		return utils.Label{}, false
	}
	lbl, ok := rctx.Labels[key]
	return lbl, ok
}
