package core

import "fmt"

// FeatureVector 是按模型 schema 顺序排列的数值特征。
// names 与 values 一一对应；构造后只读，访问器均返回副本。
type FeatureVector struct {
	names  []string
	values []float64
}

// NewFeatureVector 创建特征向量，要求 names 与 values 等长且 names 无重复。
func NewFeatureVector(names []string, values []float64) (FeatureVector, error) {
	if len(names) != len(values) {
		return FeatureVector{}, NewDomainError(ModuleFeature, ErrorCodeInvalidInput,
			fmt.Sprintf("feature vector: %d names but %d values", len(names), len(values)))
	}
	seen := make(map[string]struct{}, len(names))
	for _, n := range names {
		if _, ok := seen[n]; ok {
			return FeatureVector{}, NewDomainError(ModuleFeature, ErrorCodeInvalidInput,
				fmt.Sprintf("feature vector: duplicate feature %q", n))
		}
		seen[n] = struct{}{}
	}
	return FeatureVector{
		names:  append([]string(nil), names...),
		values: append([]float64(nil), values...),
	}, nil
}

// Len 返回特征数。
func (v FeatureVector) Len() int { return len(v.names) }

// Names 返回特征名（副本）。
func (v FeatureVector) Names() []string { return append([]string(nil), v.names...) }

// Values 返回特征值（副本）。
func (v FeatureVector) Values() []float64 { return append([]float64(nil), v.values...) }

// At 返回第 i 个特征值。
func (v FeatureVector) At(i int) float64 { return v.values[i] }

// NameAt 返回第 i 个特征名。
func (v FeatureVector) NameAt(i int) string { return v.names[i] }

// Get 按特征名取值。
func (v FeatureVector) Get(name string) (float64, bool) {
	for i, n := range v.names {
		if n == name {
			return v.values[i], true
		}
	}
	return 0, false
}

// Map 返回 map 形式（丢失顺序，仅用于展示/调试）。
func (v FeatureVector) Map() map[string]float64 {
	m := make(map[string]float64, len(v.names))
	for i, n := range v.names {
		m[n] = v.values[i]
	}
	return m
}

// SchemaEquals 判断特征名集合与顺序是否与 schema 完全一致。
func (v FeatureVector) SchemaEquals(schema []string) bool {
	if len(schema) != len(v.names) {
		return false
	}
	for i, n := range schema {
		if v.names[i] != n {
			return false
		}
	}
	return true
}
