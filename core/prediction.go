package core

import "github.com/rushteam/gradekit/pkg/utils"

// 预测类型
const (
	KindLabel = "label" // 输出表现等级标签
	KindRisk  = "risk"  // 输出 at-risk 二分类
)

// Prediction 是预测链路中的统一承载结构：原始记录、特征、模型输出、归因与建议。
// 只在一次请求内由各 Node 依次填充，最终通过 Freeze 生成不可变的 Result。
type Prediction struct {
	Record StudentRecord
	Vector FeatureVector
	Encode EncodeReport

	Kind          string
	Label         string
	AtRisk        bool
	Confidence    float64
	HasConfidence bool
	Classes       []string
	Probabilities []float64

	// ExplainClass 是归因所针对的类别下标（label 模型为预测类别，risk 模型为正类）
	ExplainClass int
	// Raw 是完整、未截断、未裁剪的归因
	Raw AttributionSet
	// Display 是用于展示的归因（经 Top-K / Clip 处理）
	Display   AttributionSet
	BaseValue float64
	Explained bool

	// ExplainErr 记录归因失败原因；非空时结果状态为 partial
	ExplainErr error

	Recommendations []string

	Labels map[string]utils.Label
}

// EncodeReport 记录编码过程中被补 0 的 schema 列与被 schema 丢弃的展开列。
type EncodeReport struct {
	ZeroFilled []string `json:"zero_filled,omitempty"`
	Dropped    []string `json:"dropped,omitempty"`
}

// NewPrediction 由原始记录创建预测承载结构。
func NewPrediction(record StudentRecord) *Prediction {
	return &Prediction{
		Record: record,
		Labels: make(map[string]utils.Label),
	}
}

// PutLabel 写入 Label；若已存在同名 key，则按默认 Merge 规则累积。
func (p *Prediction) PutLabel(key string, lbl utils.Label) {
	if p.Labels == nil {
		p.Labels = make(map[string]utils.Label)
	}
	if old, ok := p.Labels[key]; ok {
		p.Labels[key] = utils.MergeLabel(old, lbl)
		return
	}
	p.Labels[key] = lbl
}
