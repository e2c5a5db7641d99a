package model

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/rushteam/gradekit/core"
	"github.com/rushteam/gradekit/feature"
	"github.com/rushteam/gradekit/pkg/conv"
)

// Artifact 是导出的预训练模型（JSON）。
//
// 示例（决策树）：
//
//	{
//	  "kind": "decision_tree",
//	  "classes": [0, 1, 2, 3, 4],
//	  "tree": {"children_left": [...], "children_right": [...], "feature": [...], "threshold": [...], "value": [...]},
//	  "feature_meta": {"feature_columns": [...]},
//	  "label_encoder": {"classes": ["Average", "Excellent", "Good", "Poor", "Very Good"]}
//	}
//
// feature_meta / label_encoder 可内嵌，也可通过 Spec 单独指定来源。
type Artifact struct {
	Kind      string `json:"kind"`
	Classes   []any  `json:"classes"`
	NFeatures int    `json:"n_features,omitempty"`

	Tree   *DecisionTree   `json:"tree,omitempty"`
	Trees  []*DecisionTree `json:"trees,omitempty"`
	Linear *LinearParams   `json:"linear,omitempty"`

	Endpoint  string `json:"endpoint,omitempty"`
	TimeoutMs int    `json:"timeout_ms,omitempty"`

	FeatureMeta  *feature.FeatureMetadata `json:"feature_meta,omitempty"`
	LabelEncoder *LabelEncoder            `json:"label_encoder,omitempty"`
}

// LinearParams 线性模型参数
type LinearParams struct {
	Coef      [][]float64 `json:"coef"`
	Intercept []float64   `json:"intercept"`
}

// ParseArtifact 解析模型产物 JSON
func ParseArtifact(data []byte) (*Artifact, error) {
	var a Artifact
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("解析模型产物失败: %w", err)
	}
	if a.Kind == "" {
		return nil, fmt.Errorf("模型产物缺少 kind")
	}
	return &a, nil
}

// ClassNames 返回类别取值的字符串形式（数字按 %v 格式化，true/false 转为 1/0）
func (a *Artifact) ClassNames() []string {
	return conv.SliceAnyToString(a.Classes)
}

// Build 按 kind 构建分类器，schema 为模型特征列（用于确定特征数与远程请求的特征名）。
func (a *Artifact) Build(name string, schema []string) (Classifier, error) {
	classes := a.ClassNames()
	if len(classes) != len(a.Classes) {
		return nil, fmt.Errorf("model %s: classes must be strings, numbers or booleans", name)
	}
	nFeatures := a.NFeatures
	if nFeatures == 0 {
		nFeatures = len(schema)
	}
	if len(schema) > 0 && nFeatures != len(schema) {
		return nil, fmt.Errorf("model %s: n_features=%d but schema has %d columns", name, nFeatures, len(schema))
	}

	switch a.Kind {
	case KindDecisionTree:
		return NewDecisionTreeModel(name, classes, nFeatures, a.Tree)
	case KindRandomForest:
		return NewRandomForestModel(name, classes, nFeatures, a.Trees)
	case KindLogisticRegression:
		if a.Linear == nil {
			return nil, fmt.Errorf("model %s: missing linear params", name)
		}
		m, err := NewLogisticModel(name, classes, a.Linear.Coef, a.Linear.Intercept)
		if err != nil {
			return nil, err
		}
		if nFeatures != m.NumFeatures() {
			return nil, fmt.Errorf("model %s: coef width %d, want %d", name, m.NumFeatures(), nFeatures)
		}
		return m, nil
	case KindRemote:
		return NewRPCModel(name, a.Endpoint, classes, schema, time.Duration(a.TimeoutMs)*time.Millisecond)
	default:
		return nil, core.NewDomainError(core.ModuleModel, core.ErrorCodeNotSupported,
			fmt.Sprintf("model %s: unsupported kind %q", name, a.Kind))
	}
}

// ArtifactLoader 模型产物加载器接口，source 为文件路径或存储 key
type ArtifactLoader interface {
	Load(ctx context.Context, source string) (*Artifact, error)
}

// LabelLoader 标签编码器加载器接口
type LabelLoader interface {
	Load(ctx context.Context, source string) (*LabelEncoder, error)
}

// FileArtifactLoader 从本地文件加载模型产物
type FileArtifactLoader struct{}

func NewFileArtifactLoader() *FileArtifactLoader { return &FileArtifactLoader{} }

func (l *FileArtifactLoader) Load(_ context.Context, path string) (*Artifact, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("读取模型产物失败: %w", err)
	}
	return ParseArtifact(data)
}

// FileLabelLoader 从本地文件加载标签编码器
type FileLabelLoader struct{}

func NewFileLabelLoader() *FileLabelLoader { return &FileLabelLoader{} }

func (l *FileLabelLoader) Load(_ context.Context, path string) (*LabelEncoder, error) {
	return LoadLabelEncoder(path)
}

// StoreArtifactLoader 从 core.Store（如 Redis）加载模型产物
type StoreArtifactLoader struct {
	store core.Store
}

func NewStoreArtifactLoader(s core.Store) *StoreArtifactLoader {
	return &StoreArtifactLoader{store: s}
}

func (l *StoreArtifactLoader) Load(ctx context.Context, key string) (*Artifact, error) {
	data, err := l.store.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("从 %s 读取模型产物失败 (key=%s): %w", l.store.Name(), key, err)
	}
	return ParseArtifact(data)
}

// StoreLabelLoader 从 core.Store 加载标签编码器
type StoreLabelLoader struct {
	store core.Store
}

func NewStoreLabelLoader(s core.Store) *StoreLabelLoader {
	return &StoreLabelLoader{store: s}
}

func (l *StoreLabelLoader) Load(ctx context.Context, key string) (*LabelEncoder, error) {
	data, err := l.store.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("从 %s 读取标签编码器失败 (key=%s): %w", l.store.Name(), key, err)
	}
	return ParseLabelEncoder(data)
}
