package feature

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// ScalerParams 标准化参数
type ScalerParams struct {
	// Mean 均值
	Mean float64 `json:"mean"`
	// Std 标准差（总体标准差，与 sklearn StandardScaler 一致）
	Std float64 `json:"std"`
}

// FeatureScaler 特征标准化器（Z-score），每列对应一个 ScalerParams。
// 公式: z = (x - μ) / σ，σ 为 0 时只做中心化。
type FeatureScaler struct {
	Columns []string       `json:"columns"`
	Params  []ScalerParams `json:"params"`
}

// FitScaler 按列拟合标准化参数，rows 为行优先矩阵。
func FitScaler(columns []string, rows [][]float64) (*FeatureScaler, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("fit scaler: no rows")
	}
	params := make([]ScalerParams, len(columns))
	col := make([]float64, len(rows))
	for j := range columns {
		for i, row := range rows {
			if len(row) != len(columns) {
				return nil, fmt.Errorf("fit scaler: row %d has %d values, want %d", i, len(row), len(columns))
			}
			col[i] = row[j]
		}
		mean, variance := stat.PopMeanVariance(col, nil)
		params[j] = ScalerParams{Mean: mean, Std: math.Sqrt(variance)}
	}
	return &FeatureScaler{Columns: append([]string(nil), columns...), Params: params}, nil
}

// Transform 标准化一行，返回新切片
func (s *FeatureScaler) Transform(row []float64) []float64 {
	out := make([]float64, len(row))
	for j, v := range row {
		p := s.Params[j]
		out[j] = v - p.Mean
		if p.Std > 0 {
			out[j] /= p.Std
		}
	}
	return out
}

// TransformAll 标准化多行
func (s *FeatureScaler) TransformAll(rows [][]float64) [][]float64 {
	out := make([][]float64, len(rows))
	for i, row := range rows {
		out[i] = s.Transform(row)
	}
	return out
}

// Inverse 反标准化一行
func (s *FeatureScaler) Inverse(row []float64) []float64 {
	out := make([]float64, len(row))
	for j, v := range row {
		p := s.Params[j]
		if p.Std > 0 {
			v *= p.Std
		}
		out[j] = v + p.Mean
	}
	return out
}

// FeatureStatistics 单列统计量
type FeatureStatistics struct {
	Mean   float64 `json:"mean"`
	Std    float64 `json:"std"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Median float64 `json:"median"`
	P25    float64 `json:"p25"`
	P75    float64 `json:"p75"`
}

// ComputeStatistics 计算单列统计量（Std 为样本标准差）
func ComputeStatistics(values []float64) FeatureStatistics {
	if len(values) == 0 {
		return FeatureStatistics{}
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	mean, std := stat.MeanStdDev(sorted, nil)
	if len(sorted) < 2 {
		std = 0
	}
	return FeatureStatistics{
		Mean:   mean,
		Std:    std,
		Min:    sorted[0],
		Max:    sorted[len(sorted)-1],
		Median: stat.Quantile(0.5, stat.LinInterp, sorted, nil),
		P25:    stat.Quantile(0.25, stat.LinInterp, sorted, nil),
		P75:    stat.Quantile(0.75, stat.LinInterp, sorted, nil),
	}
}
