package model

import (
	"context"
	"fmt"
	"strings"

	"github.com/rushteam/gradekit/core"
	"github.com/rushteam/gradekit/feature"
)

// LabelPrediction 是表现等级预测结果
type LabelPrediction struct {
	Label         string
	ClassIndex    int
	Confidence    float64
	Classes       []string // 解码后的类别标签
	Probabilities []float64
}

// RiskPrediction 是 at-risk 预测结果
type RiskPrediction struct {
	AtRisk        bool
	ClassIndex    int
	Confidence    float64 // 被预测类别的概率
	Classes       []string
	Probabilities []float64
}

// Gateway 持有一个已加载的分类器及其 schema 与（可选的）标签编码器。
// 只加载一次，之后只读，可被多个 goroutine 共享。
type Gateway struct {
	name   string
	kind   string // core.KindLabel / core.KindRisk
	clf    Classifier
	meta   *feature.FeatureMetadata
	labels *LabelEncoder

	classLabels []string
	positive    int
}

// NewGateway 组装 Gateway 并校验分类器、schema 与标签编码器是否一致。
func NewGateway(name, kind string, clf Classifier, meta *feature.FeatureMetadata, labels *LabelEncoder) (*Gateway, error) {
	if kind != core.KindLabel && kind != core.KindRisk {
		return nil, fmt.Errorf("gateway %s: unknown kind %q", name, kind)
	}
	if clf == nil {
		return nil, fmt.Errorf("gateway %s: nil classifier", name)
	}
	if err := meta.Validate(); err != nil {
		return nil, fmt.Errorf("gateway %s: %w", name, err)
	}
	if n := clf.NumFeatures(); n > 0 && n != len(meta.FeatureColumns) {
		return nil, fmt.Errorf("gateway %s: classifier expects %d features, schema has %d", name, n, len(meta.FeatureColumns))
	}

	classes := clf.Classes()
	classLabels := make([]string, len(classes))
	for i, c := range classes {
		classLabels[i] = c
		if labels == nil {
			continue
		}
		decoded, err := labels.DecodeClass(c)
		if err != nil {
			return nil, fmt.Errorf("gateway %s: %w", name, err)
		}
		classLabels[i] = decoded
	}

	return &Gateway{
		name:        name,
		kind:        kind,
		clf:         clf,
		meta:        meta.Clone(),
		labels:      labels,
		classLabels: classLabels,
		positive:    positiveClass(classes),
	}, nil
}

// positiveClass 返回二分类中代表 at-risk 的类别下标：优先识别 1/true，否则取第二个类别。
func positiveClass(classes []string) int {
	for i, c := range classes {
		switch strings.ToLower(c) {
		case "1", "true", "at_risk", "at risk", "yes":
			return i
		}
	}
	if len(classes) == 2 {
		return 1
	}
	return -1
}

func (g *Gateway) Name() string           { return g.name }
func (g *Gateway) Kind() string           { return g.kind }
func (g *Gateway) Classifier() Classifier { return g.clf }

// Schema 返回模型特征列（副本）
func (g *Gateway) Schema() []string { return g.meta.Schema() }

// Metadata 返回特征元数据（副本）
func (g *Gateway) Metadata() *feature.FeatureMetadata { return g.meta.Clone() }

// ClassLabels 返回解码后的类别标签（副本）
func (g *Gateway) ClassLabels() []string { return append([]string(nil), g.classLabels...) }

// PositiveClass 返回 at-risk 类别下标，非二分类时为 -1
func (g *Gateway) PositiveClass() int { return g.positive }

// checkSchema 校验特征向量的名称与顺序
func (g *Gateway) checkSchema(v core.FeatureVector) error {
	if !v.SchemaEquals(g.meta.FeatureColumns) {
		return core.NewSchemaMismatch(core.ModuleModel, g.meta.FeatureColumns, v.Names())
	}
	return nil
}

// PredictProba 校验 schema 后返回各类别概率
func (g *Gateway) PredictProba(ctx context.Context, v core.FeatureVector) ([]float64, error) {
	if err := g.checkSchema(v); err != nil {
		return nil, err
	}
	probs, err := g.clf.PredictProba(ctx, v.Values())
	if err != nil {
		return nil, core.WrapDomainError(core.ModuleModel, core.ErrorCodeUnavailable, err, "model %s: predict", g.name)
	}
	return probs, nil
}

// PredictLabel 预测表现等级：取概率最大的类别（并列取第一个），经标签编码器解码。
func (g *Gateway) PredictLabel(ctx context.Context, v core.FeatureVector) (LabelPrediction, error) {
	probs, err := g.PredictProba(ctx, v)
	if err != nil {
		return LabelPrediction{}, err
	}
	idx := argmax(probs)
	return LabelPrediction{
		Label:         g.classLabels[idx],
		ClassIndex:    idx,
		Confidence:    probs[idx],
		Classes:       g.ClassLabels(),
		Probabilities: probs,
	}, nil
}

// PredictRisk 预测 at-risk：仅支持二分类模型，取概率最大的类别（并列取第一个），
// 置信度为被预测类别的概率。
func (g *Gateway) PredictRisk(ctx context.Context, v core.FeatureVector) (RiskPrediction, error) {
	if len(g.classLabels) != 2 {
		return RiskPrediction{}, core.NewDomainError(core.ModuleModel, core.ErrorCodeNotSupported,
			fmt.Sprintf("model %s: risk prediction needs a binary classifier, got %d classes", g.name, len(g.classLabels)))
	}
	probs, err := g.PredictProba(ctx, v)
	if err != nil {
		return RiskPrediction{}, err
	}
	idx := argmax(probs)
	return RiskPrediction{
		AtRisk:        idx == g.positive,
		ClassIndex:    idx,
		Confidence:    probs[idx],
		Classes:       g.ClassLabels(),
		Probabilities: probs,
	}, nil
}
