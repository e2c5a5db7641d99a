package model

import (
	"context"
	"fmt"
	"math"
)

// LogisticModel 实现逻辑回归分类器（sklearn LogisticRegression 的 coef_ / intercept_）。
//
// 预测原理：
//  1. 线性加权求和: z_k = Intercept_k + sum(Coef_k,i * x_i)
//  2. 二分类（Coef 只有一行）: P(1) = sigmoid(z_0)，P(0) = 1 - P(1)
//  3. 多分类: P = softmax(z)
type LogisticModel struct {
	name      string
	classes   []string
	Coef      [][]float64
	Intercept []float64
}

// NewLogisticModel 创建逻辑回归分类器
func NewLogisticModel(name string, classes []string, coef [][]float64, intercept []float64) (*LogisticModel, error) {
	if len(classes) < 2 {
		return nil, fmt.Errorf("logistic %s: need at least 2 classes, got %d", name, len(classes))
	}
	rows := len(classes)
	if len(classes) == 2 {
		rows = 1
	}
	if len(coef) != rows || len(intercept) != rows {
		return nil, fmt.Errorf("logistic %s: want %d coef rows and intercepts, got %d/%d", name, rows, len(coef), len(intercept))
	}
	width := len(coef[0])
	if width == 0 {
		return nil, fmt.Errorf("logistic %s: empty coefficients", name)
	}
	for k, row := range coef {
		if len(row) != width {
			return nil, fmt.Errorf("logistic %s: coef row %d has %d values, want %d", name, k, len(row), width)
		}
	}
	return &LogisticModel{
		name:      name,
		classes:   append([]string(nil), classes...),
		Coef:      coef,
		Intercept: intercept,
	}, nil
}

func (m *LogisticModel) Name() string      { return m.name }
func (m *LogisticModel) Kind() string      { return KindLogisticRegression }
func (m *LogisticModel) Classes() []string { return append([]string(nil), m.classes...) }
func (m *LogisticModel) NumFeatures() int  { return len(m.Coef[0]) }

// LinearTerms 返回系数与截距（供线性归因使用）
func (m *LogisticModel) LinearTerms() ([][]float64, []float64) {
	return m.Coef, m.Intercept
}

// Margins 返回各行的线性输出 z
func (m *LogisticModel) Margins(x []float64) []float64 {
	z := make([]float64, len(m.Coef))
	for k, row := range m.Coef {
		s := m.Intercept[k]
		for i, w := range row {
			s += w * x[i]
		}
		z[k] = s
	}
	return z
}

func (m *LogisticModel) PredictProba(_ context.Context, x []float64) ([]float64, error) {
	if err := checkWidth(m.name, m.NumFeatures(), x); err != nil {
		return nil, err
	}
	z := m.Margins(x)
	if len(z) == 1 {
		p := sigmoid(z[0])
		return []float64{1 - p, p}, nil
	}
	return softmax(z), nil
}

func sigmoid(z float64) float64 {
	return 1 / (1 + math.Exp(-z))
}

func softmax(z []float64) []float64 {
	maxZ := z[argmax(z)]
	out := make([]float64, len(z))
	var sum float64
	for i, v := range z {
		out[i] = math.Exp(v - maxZ)
		sum += out[i]
	}
	for i := range out {
		out[i] /= sum
	}
	return out
}
