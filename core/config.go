package core

import "time"

// PipelineConfig 是预测与归因链路的配置接口，用于提供默认值。
type PipelineConfig interface {
	// DefaultTopK 返回默认保留的 Top-K 归因特征数
	DefaultTopK() int

	// DefaultClipEpsilon 返回展示用的噪声截断阈值，|score| 小于该值的归因展示为 0
	DefaultClipEpsilon() float64

	// DefaultRiskThreshold 返回 at-risk 平均分阈值（低于即为 at-risk）
	DefaultRiskThreshold() float64

	// DefaultBackgroundSize 返回归因基线（background set）的最大样本数
	DefaultBackgroundSize() int

	// DefaultGlobalWorkers 返回全局归因批任务的并发数
	DefaultGlobalWorkers() int

	// DefaultLoadTimeout 返回模型加载的超时时间
	DefaultLoadTimeout() time.Duration
}

// DefaultPipelineConfig 是默认的链路配置实现。
type DefaultPipelineConfig struct{}

func (c *DefaultPipelineConfig) DefaultTopK() int {
	return 10
}

func (c *DefaultPipelineConfig) DefaultClipEpsilon() float64 {
	return 0.01
}

func (c *DefaultPipelineConfig) DefaultRiskThreshold() float64 {
	return 60
}

func (c *DefaultPipelineConfig) DefaultBackgroundSize() int {
	return 100
}

func (c *DefaultPipelineConfig) DefaultGlobalWorkers() int {
	return 4
}

func (c *DefaultPipelineConfig) DefaultLoadTimeout() time.Duration {
	return 30 * time.Second
}
