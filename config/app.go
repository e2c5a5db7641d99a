package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/rushteam/gradekit/core"
	"github.com/rushteam/gradekit/model"
	"github.com/rushteam/gradekit/pipeline"
)

// 产物来源
const (
	SourceFile  = "file"
	SourceRedis = "redis"
)

// AppConfig 是应用配置（YAML）。
//
// 示例：
//
//	source: file
//	models:
//	  - name: performance
//	    kind: label
//	    artifact: models/decision_tree.json
//	    labels: models/performance_label_encoder.json
//	  - name: at_risk
//	    kind: risk
//	    artifact: models/at_risk_model.json
//	dataset:
//	  path: data/students_cleaned.csv
//	explain:
//	  background_size: 100
//	pipeline:
//	  - type: postprocess.topk
//	    config: {k: 10}
//	  - type: postprocess.clip
//	    config: {epsilon: 0.01}
//	  - type: recommend.rules
type AppConfig struct {
	Source           string                `yaml:"source"`
	Models           []ModelConfig         `yaml:"models"`
	Dataset          DatasetConfig         `yaml:"dataset"`
	Explain          ExplainConfig         `yaml:"explain"`
	StrictCategories bool                  `yaml:"strict_categories"`
	LoadTimeout      time.Duration         `yaml:"load_timeout"`
	Pipeline         []pipeline.NodeConfig `yaml:"pipeline"`
	Redis            RedisConfig           `yaml:"redis"`
	Feast            FeastConfig           `yaml:"feast"`
	Log              LogConfig             `yaml:"log"`
	Server           ServerConfig          `yaml:"server"`
}

// ModelConfig 描述一个模型（与 model.Spec 对应）
type ModelConfig struct {
	Name     string `yaml:"name"`
	Kind     string `yaml:"kind"` // label / risk
	Artifact string `yaml:"artifact"`
	Meta     string `yaml:"meta"`
	Labels   string `yaml:"labels"`
}

// Spec 转为 model.Spec
func (m ModelConfig) Spec() model.Spec {
	return model.Spec{Name: m.Name, Kind: m.Kind, Artifact: m.Artifact, Meta: m.Meta, Labels: m.Labels}
}

type DatasetConfig struct {
	Path          string  `yaml:"path"`
	RiskThreshold float64 `yaml:"risk_threshold"`
}

type ExplainConfig struct {
	BackgroundSize int `yaml:"background_size"`
	GlobalWorkers  int `yaml:"global_workers"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// FeastConfig 配置学生记录的 Feast 在线特征来源（可选）
type FeastConfig struct {
	Endpoint    string `yaml:"endpoint"` // host:port
	Project     string `yaml:"project"`
	FeatureView string `yaml:"feature_view"`
	EntityKey   string `yaml:"entity_key"`
}

type LogConfig struct {
	Level  string `yaml:"level"`  // debug / info / warn / error
	Format string `yaml:"format"` // json / text
}

type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// Load 读取 YAML 配置，应用环境变量覆盖与默认值，并校验。
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(data, os.LookupEnv)
}

// Parse 解析 YAML 配置，lookup 用于读取环境变量覆盖（测试中可替换）。
func Parse(data []byte, lookup func(string) (string, bool)) (*AppConfig, error) {
	var cfg AppConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.ApplyEnv(lookup)
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ApplyEnv 应用 GRADEKIT_* 环境变量覆盖
func (c *AppConfig) ApplyEnv(lookup func(string) (string, bool)) {
	if lookup == nil {
		return
	}
	getEnv := func(key string, dst *string) {
		if v, ok := lookup(key); ok {
			*dst = v
		}
	}
	getEnv("GRADEKIT_SOURCE", &c.Source)
	getEnv("GRADEKIT_DATASET", &c.Dataset.Path)
	getEnv("GRADEKIT_REDIS_ADDR", &c.Redis.Addr)
	getEnv("GRADEKIT_REDIS_PASSWORD", &c.Redis.Password)
	getEnv("GRADEKIT_FEAST_ENDPOINT", &c.Feast.Endpoint)
	getEnv("GRADEKIT_LOG_LEVEL", &c.Log.Level)
	getEnv("GRADEKIT_LOG_FORMAT", &c.Log.Format)
	getEnv("GRADEKIT_ADDR", &c.Server.Addr)
	if v, ok := lookup("GRADEKIT_STRICT_CATEGORIES"); ok {
		if b, err := strconv.ParseBool(v); err == nil {
			c.StrictCategories = b
		}
	}
	if v, ok := lookup("GRADEKIT_BACKGROUND_SIZE"); ok {
		if n, err := strconv.Atoi(v); err == nil {
			c.Explain.BackgroundSize = n
		}
	}
}

// ApplyDefaults 填充未配置的字段
func (c *AppConfig) ApplyDefaults() {
	d := &core.DefaultPipelineConfig{}
	if c.Source == "" {
		c.Source = SourceFile
	}
	if c.Dataset.RiskThreshold <= 0 {
		c.Dataset.RiskThreshold = d.DefaultRiskThreshold()
	}
	if c.Explain.BackgroundSize <= 0 {
		c.Explain.BackgroundSize = d.DefaultBackgroundSize()
	}
	if c.Explain.GlobalWorkers <= 0 {
		c.Explain.GlobalWorkers = d.DefaultGlobalWorkers()
	}
	if c.LoadTimeout <= 0 {
		c.LoadTimeout = d.DefaultLoadTimeout()
	}
	if c.Pipeline == nil {
		c.Pipeline = DefaultPipeline()
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "json"
	}
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Feast.EntityKey == "" {
		c.Feast.EntityKey = "student_id"
	}
}

// DefaultPipeline 返回默认尾部节点：Top-10、0.01 截断、内置建议规则
func DefaultPipeline() []pipeline.NodeConfig {
	d := &core.DefaultPipelineConfig{}
	return []pipeline.NodeConfig{
		{Type: "postprocess.topk", Config: map[string]any{"k": d.DefaultTopK()}},
		{Type: "postprocess.clip", Config: map[string]any{"epsilon": d.DefaultClipEpsilon()}},
		{Type: "recommend.rules"},
	}
}

// Validate 校验配置
func (c *AppConfig) Validate() error {
	if len(c.Models) == 0 {
		return fmt.Errorf("config: no models configured")
	}
	seen := map[string]struct{}{}
	for i, m := range c.Models {
		if m.Name == "" {
			return fmt.Errorf("config: models[%d]: empty name", i)
		}
		if _, ok := seen[m.Name]; ok {
			return fmt.Errorf("config: duplicate model %q", m.Name)
		}
		seen[m.Name] = struct{}{}
		if m.Kind != core.KindLabel && m.Kind != core.KindRisk {
			return fmt.Errorf("config: model %s: kind must be %q or %q, got %q", m.Name, core.KindLabel, core.KindRisk, m.Kind)
		}
		if m.Artifact == "" {
			return fmt.Errorf("config: model %s: empty artifact", m.Name)
		}
	}
	switch c.Source {
	case SourceFile:
	case SourceRedis:
		if c.Redis.Addr == "" {
			return fmt.Errorf("config: source redis requires redis.addr")
		}
	default:
		return fmt.Errorf("config: unknown source %q", c.Source)
	}
	if c.Dataset.Path == "" {
		return fmt.Errorf("config: dataset.path is required (attribution background)")
	}
	return ValidateNodes(c.Pipeline)
}

// Specs 返回全部模型的加载描述
func (c *AppConfig) Specs() []model.Spec {
	out := make([]model.Spec, len(c.Models))
	for i, m := range c.Models {
		out[i] = m.Spec()
	}
	return out
}
