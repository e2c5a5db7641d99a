package core

// 结果状态
const (
	StatusFull           = "full"            // 预测与归因均成功
	StatusPartial        = "partial"         // 预测成功，归因失败
	StatusPredictionOnly = "prediction_only" // 请求未要求归因
)

// Result 是一次预测请求的最终输出，交给展示层后不再修改。
type Result struct {
	ID            string        `json:"id"`
	Model         string        `json:"model"`
	Kind          string        `json:"kind"`
	Label         string        `json:"label,omitempty"`
	AtRisk        bool          `json:"at_risk"`
	Confidence    float64       `json:"confidence"`
	HasConfidence bool          `json:"has_confidence"`
	Classes       []string      `json:"classes,omitempty"`
	Probabilities []float64     `json:"probabilities,omitempty"`
	Record        StudentRecord `json:"record"`

	Attributions    AttributionSet `json:"attributions,omitempty"`
	RawAttributions AttributionSet `json:"raw_attributions,omitempty"`
	BaseValue       float64        `json:"base_value"`
	Recommendations []string       `json:"recommendations,omitempty"`

	ZeroFilled   []string `json:"zero_filled,omitempty"`
	Status       string   `json:"status"`
	ExplainError string   `json:"explain_error,omitempty"`
}

// Freeze 由 Prediction 生成 Result，所有切片均为副本。
func (p *Prediction) Freeze(id, model string) *Result {
	res := &Result{
		ID:              id,
		Model:           model,
		Kind:            p.Kind,
		Label:           p.Label,
		AtRisk:          p.AtRisk,
		Confidence:      p.Confidence,
		HasConfidence:   p.HasConfidence,
		Classes:         append([]string(nil), p.Classes...),
		Probabilities:   append([]float64(nil), p.Probabilities...),
		Record:          p.Record,
		Attributions:    p.Display.Clone(),
		RawAttributions: p.Raw.Clone(),
		BaseValue:       p.BaseValue,
		Recommendations: append([]string(nil), p.Recommendations...),
		ZeroFilled:      append([]string(nil), p.Encode.ZeroFilled...),
	}
	switch {
	case p.ExplainErr != nil:
		res.Status = StatusPartial
		res.ExplainError = p.ExplainErr.Error()
	case p.Explained:
		res.Status = StatusFull
	default:
		res.Status = StatusPredictionOnly
	}
	return res
}

// TopAttribution 返回展示用归因中的第一个；无归因时 ok=false。
func (r *Result) TopAttribution() (Attribution, bool) {
	return r.Attributions.First()
}
