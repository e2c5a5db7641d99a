package feature

import (
	"sort"

	"github.com/rushteam/gradekit/core"
)

// RecordEncoder 把 StudentRecord 编码为与模型 schema 完全一致的特征向量：
//  1. 每个类别字段展开为 "{field}_{value}" = 1（OneHotEncoder）
//  2. 分数字段原样保留
//  3. 对 schema 中的每一列取展开值，缺失填 0
//
// 输出的名称与顺序恒等于 schema。无状态，可并发使用。
type RecordEncoder struct {
	onehot *OneHotEncoder
	strict bool
	// known 是训练数据全部类别展开后的列名，严格模式下据此拒绝未知类别
	known map[string]struct{}
}

// EncoderOption 编码器选项
type EncoderOption func(*RecordEncoder)

// WithStrictCategories 开启严格模式：类别取值不在 core.KnownCategories 中时返回 INVALID_INPUT，
// 而不是默认的"全部哑变量为 0"。
func WithStrictCategories(strict bool) EncoderOption {
	return func(e *RecordEncoder) {
		e.strict = strict
	}
}

// NewRecordEncoder 创建记录编码器
func NewRecordEncoder(opts ...EncoderOption) *RecordEncoder {
	e := &RecordEncoder{onehot: NewOneHotEncoder(core.CategoricalFields)}
	for _, opt := range opts {
		opt(e)
	}
	e.known = make(map[string]struct{})
	for _, col := range e.TrainingColumns() {
		e.known[col] = struct{}{}
	}
	return e
}

// Strict 返回是否为严格模式
func (e *RecordEncoder) Strict() bool { return e.strict }

// TrainingColumns 返回训练数据集上 get_dummies 的完整列集合：
// 全部已知类别的独热列，其后是三科分数。
func (e *RecordEncoder) TrainingColumns() []string {
	return append(e.onehot.Columns(core.KnownCategories), core.ScoreFields...)
}

// Expand 返回记录展开后的全部列（类别独热 + 原始分数）。
func (e *RecordEncoder) Expand(record core.StudentRecord) map[string]float64 {
	raw := make(map[string]any, len(core.CategoricalFields))
	for _, c := range record.Categoricals() {
		raw[c.Field] = c.Value
	}
	expanded := e.onehot.EncodeFeatures(raw)
	for name, v := range record.Scores() {
		expanded[name] = v
	}
	return expanded
}

// Encode 按 schema 对齐编码。
// 默认模式下对任意记录都不会失败（schema 本身有问题除外）；严格模式下未知类别返回 INVALID_INPUT。
func (e *RecordEncoder) Encode(record core.StudentRecord, schema []string) (core.FeatureVector, core.EncodeReport, error) {
	var report core.EncodeReport
	if len(schema) == 0 {
		return core.FeatureVector{}, report, core.NewDomainError(core.ModuleFeature, core.ErrorCodeInvalidInput,
			"encode: empty schema")
	}
	if e.strict {
		for _, c := range record.Categoricals() {
			if _, ok := e.known[e.onehot.ColumnName(c.Field, c.Value)]; !ok {
				return core.FeatureVector{}, report, core.NewDomainError(core.ModuleFeature, core.ErrorCodeInvalidInput,
					"encode: unknown "+c.Field+" category "+c.Value)
			}
		}
	}

	expanded := e.Expand(record)
	meta := &FeatureMetadata{FeatureColumns: schema}
	report.ZeroFilled = meta.GetMissingFeatures(expanded)
	inSchema := make(map[string]struct{}, len(schema))
	for _, name := range schema {
		inSchema[name] = struct{}{}
	}
	for name := range expanded {
		if _, ok := inSchema[name]; !ok {
			report.Dropped = append(report.Dropped, name)
		}
	}
	sort.Strings(report.Dropped)

	vec, err := meta.BuildFeatureVector(expanded)
	if err != nil {
		return core.FeatureVector{}, report, err
	}
	return vec, report, nil
}
