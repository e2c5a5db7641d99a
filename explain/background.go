package explain

import (
	"fmt"

	"github.com/rushteam/gradekit/core"
)

// Background 是归因的参照样本集，会话内构建一次后固定不变。
type Background struct {
	schema []string
	rows   [][]float64
	mean   []float64
}

// NewBackground 由特征向量构建背景集；超过 max 行时按固定步长抽样（确定性）。
// max <= 0 表示不抽样。
func NewBackground(vectors []core.FeatureVector, max int) (*Background, error) {
	if len(vectors) == 0 {
		return nil, fmt.Errorf("background: no rows")
	}
	schema := vectors[0].Names()
	for i, v := range vectors {
		if !v.SchemaEquals(schema) {
			return nil, core.NewSchemaMismatch(core.ModuleExplain, schema, vectors[i].Names())
		}
	}

	picked := strideSample(len(vectors), max)
	rows := make([][]float64, len(picked))
	mean := make([]float64, len(schema))
	for i, idx := range picked {
		rows[i] = vectors[idx].Values()
		for j, x := range rows[i] {
			mean[j] += x
		}
	}
	for j := range mean {
		mean[j] /= float64(len(rows))
	}
	return &Background{schema: schema, rows: rows, mean: mean}, nil
}

// strideSample 返回 n 个下标中按步长均匀抽取的 max 个
func strideSample(n, max int) []int {
	if max <= 0 || n <= max {
		out := make([]int, n)
		for i := range out {
			out[i] = i
		}
		return out
	}
	out := make([]int, max)
	for i := range out {
		out[i] = i * n / max
	}
	return out
}

// Len 返回样本数
func (b *Background) Len() int { return len(b.rows) }

// Width 返回特征数
func (b *Background) Width() int { return len(b.schema) }

// Schema 返回特征列（副本）
func (b *Background) Schema() []string { return append([]string(nil), b.schema...) }

// Mean 返回各特征均值（副本）
func (b *Background) Mean() []float64 { return append([]float64(nil), b.mean...) }
