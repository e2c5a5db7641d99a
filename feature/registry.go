package feature

import (
	"fmt"
	"sort"

	"github.com/rushteam/gradekit/core"
)

// SchemaRegistry 维护 模型名 → 特征元数据 的映射。
// 构建后不可变，可被多个 goroutine 并发读取。
type SchemaRegistry struct {
	metas map[string]*FeatureMetadata
}

// NewSchemaRegistry 由已加载的元数据构建注册表，元数据会被校验并深拷贝。
func NewSchemaRegistry(metas map[string]*FeatureMetadata) (*SchemaRegistry, error) {
	r := &SchemaRegistry{metas: make(map[string]*FeatureMetadata, len(metas))}
	for name, meta := range metas {
		if err := meta.Validate(); err != nil {
			return nil, core.WrapDomainError(core.ModuleFeature, core.ErrorCodeModelLoad, err,
				"schema registry: model %q", name)
		}
		r.metas[name] = meta.Clone()
	}
	return r, nil
}

// SchemaFor 返回模型的特征列（副本）。
func (r *SchemaRegistry) SchemaFor(model string) ([]string, error) {
	meta, ok := r.metas[model]
	if !ok {
		return nil, core.NewDomainError(core.ModuleFeature, core.ErrorCodeNotFound,
			fmt.Sprintf("schema registry: unknown model %q", model))
	}
	return meta.Schema(), nil
}

// Metadata 返回模型的完整元数据（副本）。
func (r *SchemaRegistry) Metadata(model string) (*FeatureMetadata, bool) {
	meta, ok := r.metas[model]
	if !ok {
		return nil, false
	}
	return meta.Clone(), true
}

// Models 返回已注册的模型名（升序）。
func (r *SchemaRegistry) Models() []string {
	names := make([]string, 0, len(r.metas))
	for n := range r.metas {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
