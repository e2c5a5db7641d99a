// Package service 组装模型、归因器与预测链路，对外提供预测与解释 API。
//
// Predictor 在 New 中一次性构建全部只读状态（模型、schema、归因基线、Pipeline），
// 之后的请求只读共享数据，可并发调用。
package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/rushteam/gradekit/config"
	_ "github.com/rushteam/gradekit/config/builders"
	"github.com/rushteam/gradekit/core"
	"github.com/rushteam/gradekit/dataset"
	"github.com/rushteam/gradekit/explain"
	"github.com/rushteam/gradekit/feast"
	"github.com/rushteam/gradekit/feature"
	"github.com/rushteam/gradekit/metrics"
	"github.com/rushteam/gradekit/model"
	"github.com/rushteam/gradekit/pipeline"
	"github.com/rushteam/gradekit/predict"
	"github.com/rushteam/gradekit/store"
)

// Option 配置 Predictor
type Option func(*Predictor)

// WithLogger 设置日志，默认 slog.Default()
func WithLogger(logger *slog.Logger) Option {
	return func(p *Predictor) { p.logger = logger }
}

// WithMetrics 设置监控指标，默认新建一个独立 Registry 的 Metrics
func WithMetrics(m *metrics.Metrics) Option {
	return func(p *Predictor) { p.metrics = m }
}

// WithDataset 直接使用已加载的数据集（忽略 dataset.path）
func WithDataset(ds *dataset.Dataset) Option {
	return func(p *Predictor) { p.dataset = ds }
}

// WithLoaders 覆盖模型产物加载器（忽略 source）
func WithLoaders(l model.Loaders) Option {
	return func(p *Predictor) { p.loaders = &l }
}

// WithRecordSource 设置按学生 ID 取记录的来源（忽略 feast 配置）
func WithRecordSource(src *feast.RecordSource) Option {
	return func(p *Predictor) { p.records = src }
}

// head 是单个模型的预测链路及其归因引擎
type head struct {
	gateway  *model.Gateway
	engine   *explain.Engine
	pipeline *pipeline.Pipeline
}

// Predictor 是不可变的预测服务对象
type Predictor struct {
	cfg     *config.AppConfig
	logger  *slog.Logger
	metrics *metrics.Metrics

	registry *model.Registry
	schemas  *feature.SchemaRegistry
	dataset  *dataset.Dataset
	heads    map[string]*head

	// bgEncoder 用于数据集与全局归因输入，不受 strict_categories 影响
	bgEncoder *feature.RecordEncoder

	loaders *model.Loaders
	store   core.Store
	records *feast.RecordSource
	feastc  feast.Client
}

// New 加载全部模型与数据集并构建预测链路。任何加载失败都返回错误，不返回部分可用的 Predictor。
func New(ctx context.Context, cfg *config.AppConfig, opts ...Option) (*Predictor, error) {
	if cfg == nil {
		return nil, core.NewDomainError(core.ModuleService, core.ErrorCodeInvalidInput, "service: nil config")
	}
	p := &Predictor{
		cfg:       cfg,
		heads:     make(map[string]*head, len(cfg.Models)),
		bgEncoder: feature.NewRecordEncoder(),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	if p.metrics == nil {
		p.metrics = metrics.New()
	}

	if err := p.init(ctx); err != nil {
		p.Close()
		return nil, err
	}
	p.logger.Info("predictor ready",
		slog.Any("models", p.registry.Names()),
		slog.Int("dataset_rows", p.dataset.Len()),
		slog.String("source", cfg.Source))
	return p, nil
}

func (p *Predictor) init(ctx context.Context) error {
	cfg := p.cfg
	if cfg.LoadTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.LoadTimeout)
		defer cancel()
	}

	loaders, err := p.resolveLoaders(ctx)
	if err != nil {
		return err
	}
	start := time.Now()
	if p.registry, err = model.NewRegistry(ctx, cfg.Specs(), loaders); err != nil {
		return err
	}
	if p.schemas, err = p.registry.Schemas(); err != nil {
		return err
	}
	p.logger.Debug("models loaded", slog.Duration("elapsed", time.Since(start)))

	if p.dataset == nil {
		if p.dataset, err = dataset.Load(cfg.Dataset.Path, dataset.Options{RiskThreshold: cfg.Dataset.RiskThreshold}); err != nil {
			return err
		}
	}
	if p.dataset.Len() == 0 {
		return core.NewDomainError(core.ModuleService, core.ErrorCodeInvalidInput, "service: dataset is empty, no attribution background")
	}

	tail, err := pipeline.BuildNodes(cfg.Pipeline, config.DefaultFactory())
	if err != nil {
		return fmt.Errorf("service: build pipeline: %w", err)
	}

	encoder := feature.NewRecordEncoder(feature.WithStrictCategories(cfg.StrictCategories))
	for _, name := range p.registry.Names() {
		gw, _ := p.registry.Get(name)
		h, err := p.buildHead(gw, encoder, tail)
		if err != nil {
			return err
		}
		p.heads[name] = h
	}

	if p.records == nil && cfg.Feast.Endpoint != "" {
		client, err := feast.NewGrpcClientFromEndpoint(cfg.Feast.Endpoint, cfg.Feast.Project)
		if err != nil {
			return core.WrapDomainError(core.ModuleService, core.ErrorCodeUnavailable, err, "service: feast client")
		}
		p.feastc = client
		p.records = &feast.RecordSource{
			Client:      client,
			Project:     cfg.Feast.Project,
			FeatureView: cfg.Feast.FeatureView,
			EntityKey:   cfg.Feast.EntityKey,
		}
	}
	return nil
}

func (p *Predictor) resolveLoaders(ctx context.Context) (model.Loaders, error) {
	if p.loaders != nil {
		return *p.loaders, nil
	}
	switch p.cfg.Source {
	case config.SourceRedis:
		rs, err := store.NewRedisStore(ctx, p.cfg.Redis.Addr, p.cfg.Redis.Password, p.cfg.Redis.DB)
		if err != nil {
			return model.Loaders{}, core.WrapDomainError(core.ModuleService, core.ErrorCodeUnavailable, err, "service: redis")
		}
		p.store = rs
		return model.StoreLoaders(rs), nil
	default:
		return model.FileLoaders(), nil
	}
}

// buildHead 构建 encode → predict → explain.local → tail 链路
func (p *Predictor) buildHead(gw *model.Gateway, encoder *feature.RecordEncoder, tail *pipeline.Pipeline) (*head, error) {
	schema := gw.Schema()
	vectors, err := p.encodeAll(p.dataset.Records(), schema)
	if err != nil {
		return nil, fmt.Errorf("service: background for %s: %w", gw.Name(), err)
	}
	bg, err := explain.NewBackground(vectors, p.cfg.Explain.BackgroundSize)
	if err != nil {
		return nil, fmt.Errorf("service: background for %s: %w", gw.Name(), err)
	}
	engine := explain.NewEngine(gw, bg)
	if _, err := engine.Explainer(); err != nil {
		// 归因不可用时仍然提供预测，请求结果为 partial
		p.logger.Warn("explainer unavailable", slog.String("model", gw.Name()), slog.Any("error", err))
	}

	predictNode, err := predict.New(gw)
	if err != nil {
		return nil, err
	}
	encodeNode := feature.NewEncodeNode(encoder, schema)
	encodeNode.OnReport = p.metrics.ZeroFilled
	explainNode := &explain.LocalNode{Engine: engine, OnError: p.onExplainError}

	return &head{
		gateway:  gw,
		engine:   engine,
		pipeline: pipeline.New(encodeNode, predictNode, explainNode).Append(tail.Nodes...),
	}, nil
}

func (p *Predictor) onExplainError(model string, err error) {
	p.metrics.ExplainFailed(model, err)
	p.logger.Warn("local explanation failed", slog.String("model", model), slog.Any("error", err))
}

func (p *Predictor) encodeAll(records []core.StudentRecord, schema []string) ([]core.FeatureVector, error) {
	out := make([]core.FeatureVector, len(records))
	for i, r := range records {
		if err := r.Validate(); err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		v, _, err := p.bgEncoder.Encode(r, schema)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		out[i] = v
	}
	return out, nil
}

func (p *Predictor) lookup(name string) (*head, error) {
	h, ok := p.heads[name]
	if !ok {
		return nil, core.NewDomainError(core.ModuleService, core.ErrorCodeNotFound,
			fmt.Sprintf("unknown model %q", name))
	}
	return h, nil
}

// RunPrediction 对一条记录执行预测，extent 为 ExplainLocal 时同时计算局部归因。
// 校验失败返回 DomainError；归因失败返回 status=partial 的结果。
func (p *Predictor) RunPrediction(ctx context.Context, record core.StudentRecord, modelName string, extent core.ExplainExtent) (*core.Result, error) {
	h, err := p.lookup(modelName)
	if err != nil {
		return nil, err
	}
	rctx := &core.RequestContext{
		RequestID: uuid.NewString(),
		Model:     modelName,
		Extent:    extent,
	}
	start := time.Now()
	pred, err := h.pipeline.Run(ctx, rctx, core.NewPrediction(record))
	if err != nil {
		p.metrics.ObservePredictionError(modelName, err)
		p.logger.Debug("prediction failed",
			slog.String("request_id", rctx.RequestID),
			slog.String("model", modelName),
			slog.Any("error", err))
		return nil, err
	}
	res := pred.Freeze(rctx.RequestID, modelName)
	p.metrics.ObservePrediction(res, extent, time.Since(start))
	return res, nil
}

// ExplainGlobal 计算一批记录的全局特征重要性；records 为空时使用整个数据集。
// risk 模型解释正类，label 模型解释每条记录的预测类别。
func (p *Predictor) ExplainGlobal(ctx context.Context, modelName string, records []core.StudentRecord) ([]explain.FeatureImportance, error) {
	h, err := p.lookup(modelName)
	if err != nil {
		return nil, err
	}
	out, err := p.explainGlobal(ctx, h, records)
	p.metrics.ObserveGlobal(modelName, err)
	if err != nil {
		p.logger.Warn("global explanation failed", slog.String("model", modelName), slog.Any("error", err))
	}
	return out, err
}

func (p *Predictor) explainGlobal(ctx context.Context, h *head, records []core.StudentRecord) ([]explain.FeatureImportance, error) {
	ex, err := h.engine.Explainer()
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		records = p.dataset.Records()
	}
	vectors, err := p.encodeAll(records, h.gateway.Schema())
	if err != nil {
		return nil, err
	}
	gw := h.gateway
	return explain.ExplainGlobal(ctx, ex, vectors, explain.GlobalOptions{
		Workers: p.cfg.Explain.GlobalWorkers,
		Class: func(ctx context.Context, v core.FeatureVector) (int, error) {
			if gw.Kind() == core.KindRisk {
				return h.engine.TargetClass(0), nil
			}
			lp, err := gw.PredictLabel(ctx, v)
			if err != nil {
				return 0, err
			}
			return h.engine.TargetClass(lp.ClassIndex), nil
		},
	})
}

// SchemaFor 返回模型的特征 schema（有序列名）
func (p *Predictor) SchemaFor(modelName string) ([]string, error) {
	return p.schemas.SchemaFor(modelName)
}

// Models 返回已加载的模型名（升序）
func (p *Predictor) Models() []string { return p.registry.Names() }

// Dataset 返回会话数据集（只读）
func (p *Predictor) Dataset() *dataset.Dataset { return p.dataset }

// RecordsByID 通过 Feast 在线特征按学生 ID 获取记录
func (p *Predictor) RecordsByID(ctx context.Context, ids []string) ([]core.StudentRecord, error) {
	if p.records == nil {
		return nil, core.NewDomainError(core.ModuleService, core.ErrorCodeNotSupported, "service: no online record source configured")
	}
	return p.records.GetRecords(ctx, ids)
}

// Close 释放外部连接
func (p *Predictor) Close() error {
	var first error
	if p.store != nil {
		if err := p.store.Close(); err != nil {
			first = err
		}
	}
	if p.feastc != nil {
		if err := p.feastc.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
