// Package metrics 以 Prometheus 指标暴露预测链路的运行情况。
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rushteam/gradekit/core"
)

const namespace = "gradekit"

// Metrics 汇总预测、归因与编码相关的指标。零值不可用，请使用 New。
type Metrics struct {
	registry *prometheus.Registry

	predictions     *prometheus.CounterVec
	latency         *prometheus.HistogramVec
	explainFailures *prometheus.CounterVec
	zeroFilled      *prometheus.CounterVec
	globalRuns      *prometheus.CounterVec
}

// New 创建指标并注册到独立的 Registry（避免与全局默认 Registry 冲突）
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		predictions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "predictions_total",
			Help:      "Predictions by model, kind and result status (or error code).",
		}, []string{"model", "kind", "status"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "prediction_duration_seconds",
			Help:      "End-to-end prediction latency including attribution.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 14),
		}, []string{"model", "extent"}),
		explainFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "explain_failures_total",
			Help:      "Attribution failures by model and error code.",
		}, []string{"model", "code"}),
		zeroFilled: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "zero_filled_columns_total",
			Help:      "Schema columns filled with 0 during encoding, by model and column.",
		}, []string{"model", "column"}),
		globalRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "global_explanations_total",
			Help:      "Global attribution batch runs by model and outcome.",
		}, []string{"model", "outcome"}),
	}
	m.registry.MustRegister(m.predictions, m.latency, m.explainFailures, m.zeroFilled, m.globalRuns)
	return m
}

// Registry 返回底层 Registry
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler 返回 /metrics 的 HTTP handler
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObservePrediction 记录一次成功的预测
func (m *Metrics) ObservePrediction(res *core.Result, extent core.ExplainExtent, d time.Duration) {
	m.predictions.WithLabelValues(res.Model, res.Kind, res.Status).Inc()
	m.latency.WithLabelValues(res.Model, extent.String()).Observe(d.Seconds())
}

// ObservePredictionError 记录一次失败的预测，status 为错误码
func (m *Metrics) ObservePredictionError(model string, err error) {
	m.predictions.WithLabelValues(model, "", errorCode(err)).Inc()
}

// ExplainFailed 记录归因失败
func (m *Metrics) ExplainFailed(model string, err error) {
	m.explainFailures.WithLabelValues(model, errorCode(err)).Inc()
}

// ZeroFilled 记录编码时被补 0 的 schema 列
func (m *Metrics) ZeroFilled(model string, report core.EncodeReport) {
	for _, col := range report.ZeroFilled {
		m.zeroFilled.WithLabelValues(model, col).Inc()
	}
}

// ObserveGlobal 记录一次全局归因批任务
func (m *Metrics) ObserveGlobal(model string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = errorCode(err)
	}
	m.globalRuns.WithLabelValues(model, outcome).Inc()
}

func errorCode(err error) string {
	if de := core.GetDomainError(err); de != nil {
		return de.Code
	}
	if err != nil {
		return core.ErrorCodeInternalError
	}
	return ""
}
