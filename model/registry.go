package model

import (
	"context"
	"fmt"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/rushteam/gradekit/core"
	"github.com/rushteam/gradekit/feature"
)

// Spec 描述一个待加载的模型。
type Spec struct {
	Name     string // 模型名（请求中引用）
	Kind     string // core.KindLabel / core.KindRisk
	Artifact string // 模型产物来源（文件路径或存储 key）
	Meta     string // feature_meta 来源，为空时使用产物内嵌的 feature_meta
	Labels   string // 标签编码器来源，为空时使用产物内嵌的 label_encoder（可都没有）
}

// Loaders 聚合各类产物的加载器
type Loaders struct {
	Artifacts ArtifactLoader
	Metadata  feature.MetadataLoader
	Labels    LabelLoader
}

// FileLoaders 返回基于本地文件的加载器
func FileLoaders() Loaders {
	return Loaders{
		Artifacts: NewFileArtifactLoader(),
		Metadata:  feature.NewFileMetadataLoader(),
		Labels:    NewFileLabelLoader(),
	}
}

// StoreLoaders 返回基于 core.Store（如 Redis）的加载器
func StoreLoaders(s core.Store) Loaders {
	return Loaders{
		Artifacts: NewStoreArtifactLoader(s),
		Metadata:  feature.NewStoreMetadataLoader(s),
		Labels:    NewStoreLabelLoader(s),
	}
}

// LoadGateway 加载单个模型。任何失败都返回 MODEL_LOAD 错误。
func LoadGateway(ctx context.Context, spec Spec, loaders Loaders) (*Gateway, error) {
	wrap := func(err error, what string) error {
		return core.WrapDomainError(core.ModuleModel, core.ErrorCodeModelLoad, err, "load model %s: %s", spec.Name, what)
	}

	art, err := loaders.Artifacts.Load(ctx, spec.Artifact)
	if err != nil {
		return nil, wrap(err, "artifact")
	}

	meta := art.FeatureMeta
	if spec.Meta != "" {
		if meta, err = loaders.Metadata.Load(ctx, spec.Meta); err != nil {
			return nil, wrap(err, "feature meta")
		}
	}
	if meta == nil {
		return nil, wrap(fmt.Errorf("no feature_meta source"), "feature meta")
	}
	if err := meta.Validate(); err != nil {
		return nil, wrap(err, "feature meta")
	}

	labels := art.LabelEncoder
	if spec.Labels != "" {
		if labels, err = loaders.Labels.Load(ctx, spec.Labels); err != nil {
			return nil, wrap(err, "label encoder")
		}
	}

	clf, err := art.Build(spec.Name, meta.FeatureColumns)
	if err != nil {
		return nil, wrap(err, "build classifier")
	}
	g, err := NewGateway(spec.Name, spec.Kind, clf, meta, labels)
	if err != nil {
		return nil, wrap(err, "gateway")
	}
	return g, nil
}

// Registry 持有全部已加载的模型，构建后只读。
type Registry struct {
	gateways map[string]*Gateway
}

// NewRegistry 并行加载全部模型；任何一个失败则整体失败（不会返回部分可用的注册表）。
func NewRegistry(ctx context.Context, specs []Spec, loaders Loaders) (*Registry, error) {
	seen := make(map[string]struct{}, len(specs))
	for _, s := range specs {
		if s.Name == "" {
			return nil, core.NewDomainError(core.ModuleModel, core.ErrorCodeModelLoad, "load model: empty name")
		}
		if _, ok := seen[s.Name]; ok {
			return nil, core.NewDomainError(core.ModuleModel, core.ErrorCodeModelLoad,
				fmt.Sprintf("load model: duplicate name %q", s.Name))
		}
		seen[s.Name] = struct{}{}
	}

	gateways := make([]*Gateway, len(specs))
	g, gctx := errgroup.WithContext(ctx)
	for i, spec := range specs {
		g.Go(func() error {
			gw, err := LoadGateway(gctx, spec, loaders)
			if err != nil {
				return err
			}
			gateways[i] = gw
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return NewRegistryFromGateways(gateways...), nil
}

// NewRegistryFromGateways 由已构建的 Gateway 创建注册表（测试或嵌入式使用）
func NewRegistryFromGateways(gateways ...*Gateway) *Registry {
	r := &Registry{gateways: make(map[string]*Gateway, len(gateways))}
	for _, gw := range gateways {
		r.gateways[gw.Name()] = gw
	}
	return r
}

// Get 按名称获取模型
func (r *Registry) Get(name string) (*Gateway, error) {
	gw, ok := r.gateways[name]
	if !ok {
		return nil, core.NewDomainError(core.ModuleModel, core.ErrorCodeNotFound,
			fmt.Sprintf("unknown model %q", name))
	}
	return gw, nil
}

// Names 返回已加载的模型名（升序）
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.gateways))
	for n := range r.gateways {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Schemas 生成 schema 注册表
func (r *Registry) Schemas() (*feature.SchemaRegistry, error) {
	metas := make(map[string]*feature.FeatureMetadata, len(r.gateways))
	for name, gw := range r.gateways {
		metas[name] = gw.Metadata()
	}
	return feature.NewSchemaRegistry(metas)
}
