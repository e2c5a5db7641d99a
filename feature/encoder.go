package feature

import (
	"fmt"
	"sort"
)

// Encoder 是类别特征编码器接口
// 所有编码都需要特征名才能正确编码（展开后的列名由特征名与取值共同决定）
type Encoder interface {
	// EncodeWithKey 编码单个值（指定特征名）
	EncodeWithKey(key string, value any) map[string]float64
	// EncodeFeatures 编码特征字典（批量编码），只处理编码器负责的字段
	EncodeFeatures(features map[string]any) map[string]float64
}

// OneHotEncoder One-Hot 编码（独热编码）
// 列名规则与 pandas.get_dummies 一致："{field}_{value}"，被选中的取值为 1。
// 与固定类别表的编码不同，这里不预先枚举类别：只输出出现的取值，
// 未出现在模型 schema 中的列由 RecordEncoder 统一补 0。
type OneHotEncoder struct {
	Fields    []string // 需要展开的类别字段
	Separator string   // 字段名与取值之间的分隔符，默认 "_"
}

// NewOneHotEncoder 创建 One-Hot 编码器
func NewOneHotEncoder(fields []string) *OneHotEncoder {
	return &OneHotEncoder{
		Fields:    append([]string(nil), fields...),
		Separator: "_",
	}
}

// ColumnName 返回展开后的列名
func (e *OneHotEncoder) ColumnName(field string, value any) string {
	return fmt.Sprintf("%s%s%v", field, e.Separator, value)
}

// EncodeWithKey 编码单个值（指定特征名）
func (e *OneHotEncoder) EncodeWithKey(key string, value any) map[string]float64 {
	return map[string]float64{e.ColumnName(key, value): 1.0}
}

// EncodeFeatures 编码特征字典，只展开 Fields 中的字段
func (e *OneHotEncoder) EncodeFeatures(features map[string]any) map[string]float64 {
	encoded := make(map[string]float64)
	for _, field := range e.Fields {
		v, ok := features[field]
		if !ok {
			continue
		}
		for ek, ev := range e.EncodeWithKey(field, v) {
			encoded[ek] = ev
		}
	}
	return encoded
}

// Columns 返回 categories 全量展开后的列名（字段按 Fields 顺序，取值按字典序），
// 用于生成训练时的完整列集合。
func (e *OneHotEncoder) Columns(categories map[string][]string) []string {
	var cols []string
	for _, field := range e.Fields {
		values := append([]string(nil), categories[field]...)
		sort.Strings(values)
		for _, v := range values {
			cols = append(cols, e.ColumnName(field, v))
		}
	}
	return cols
}
