package feature

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/rushteam/gradekit/core"
)

// FeatureMetadata 特征元数据，对应 feature_meta.json。
// FeatureColumns 即模型训练时的 feature_names_in_，决定特征向量的名称与顺序。
type FeatureMetadata struct {
	// FeatureColumns 特征列名列表（按顺序）
	FeatureColumns []string `json:"feature_columns"`
	// FeatureCount 特征数量（可选，非 0 时必须等于 len(FeatureColumns)）
	FeatureCount int `json:"feature_count"`
	// LabelColumn 标签列名
	LabelColumn string `json:"label_column"`
	// ModelVersion 模型版本
	ModelVersion string `json:"model_version"`
	// Normalized 是否使用了特征标准化
	Normalized bool `json:"normalized"`
	// CreatedAt 创建时间
	CreatedAt string `json:"created_at"`
}

// Validate 校验元数据：列非空、无重复、feature_count 与列数一致。
func (m *FeatureMetadata) Validate() error {
	if m == nil || len(m.FeatureColumns) == 0 {
		return fmt.Errorf("feature_columns 为空")
	}
	if m.FeatureCount != 0 && m.FeatureCount != len(m.FeatureColumns) {
		return fmt.Errorf("feature_count=%d 与 feature_columns 数量 %d 不一致", m.FeatureCount, len(m.FeatureColumns))
	}
	seen := make(map[string]struct{}, len(m.FeatureColumns))
	for _, col := range m.FeatureColumns {
		if col == "" {
			return fmt.Errorf("feature_columns 含空列名")
		}
		if _, ok := seen[col]; ok {
			return fmt.Errorf("feature_columns 含重复列 %q", col)
		}
		seen[col] = struct{}{}
	}
	return nil
}

// Schema 返回特征列（副本）
func (m *FeatureMetadata) Schema() []string {
	return append([]string(nil), m.FeatureColumns...)
}

// Clone 深拷贝
func (m *FeatureMetadata) Clone() *FeatureMetadata {
	if m == nil {
		return nil
	}
	c := *m
	c.FeatureColumns = m.Schema()
	return &c
}

// ParseFeatureMetadata 解析并校验 feature_meta.json 内容
func ParseFeatureMetadata(data []byte) (*FeatureMetadata, error) {
	var meta FeatureMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("解析特征元数据失败: %w", err)
	}
	if err := meta.Validate(); err != nil {
		return nil, fmt.Errorf("特征元数据无效: %w", err)
	}
	return &meta, nil
}

// LoadFeatureMetadataFromFile 从文件加载特征元数据
//
// 用法：
//
//	meta, err := feature.LoadFeatureMetadataFromFile("models/label/feature_meta.json")
//	if err != nil {
//	    return err
//	}
//	fmt.Printf("特征列: %v\n", meta.FeatureColumns)
func LoadFeatureMetadataFromFile(path string) (*FeatureMetadata, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("读取特征元数据文件失败: %w", err)
	}
	return ParseFeatureMetadata(data)
}

// GetMissingFeatures 返回 features 中缺失的特征列
func (m *FeatureMetadata) GetMissingFeatures(features map[string]float64) []string {
	var missing []string
	for _, col := range m.FeatureColumns {
		if _, ok := features[col]; !ok {
			missing = append(missing, col)
		}
	}
	return missing
}

// BuildFeatureVector 按 feature_columns 顺序构建特征向量，缺失值填充为 0。
//
// 用法：
//
//	vec, err := meta.BuildFeatureVector(expanded)
//	// vec.Names() == meta.FeatureColumns
func (m *FeatureMetadata) BuildFeatureVector(features map[string]float64) (core.FeatureVector, error) {
	values := make([]float64, len(m.FeatureColumns))
	for i, col := range m.FeatureColumns {
		if v, ok := features[col]; ok {
			values[i] = v
		}
	}
	return core.NewFeatureVector(m.FeatureColumns, values)
}
