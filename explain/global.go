package explain

import (
	"context"
	"math"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/rushteam/gradekit/core"
)

// FeatureImportance 是全局特征重要性：各样本归因绝对值的平均
type FeatureImportance struct {
	Feature      string  `json:"feature"`
	MeanAbsScore float64 `json:"mean_abs_score"`
}

// GlobalOptions 全局归因选项
type GlobalOptions struct {
	// Workers 并发数，<= 0 时为 4
	Workers int
	// Class 返回每个样本应被解释的类别；为 nil 时全部解释类别 0
	Class func(ctx context.Context, v core.FeatureVector) (int, error)
	// TopN 只返回前 N 个特征，<= 0 时全部返回
	TopN int
}

// ExplainGlobal 对一批特征向量计算全局重要性（mean |phi|），按重要性降序、同分按特征名升序。
// 以可取消的批任务运行：ctx 取消或任一样本失败时不返回任何结果。
func ExplainGlobal(ctx context.Context, ex Explainer, vectors []core.FeatureVector, opts GlobalOptions) ([]FeatureImportance, error) {
	schema := ex.Schema()
	for _, v := range vectors {
		if !v.SchemaEquals(schema) {
			return nil, core.NewSchemaMismatch(core.ModuleExplain, schema, v.Names())
		}
	}
	workers := opts.Workers
	if workers <= 0 {
		workers = 4
	}

	perRow := make([][]float64, len(vectors))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, v := range vectors {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			class := 0
			if opts.Class != nil {
				c, err := opts.Class(gctx, v)
				if err != nil {
					return err
				}
				class = c
			}
			phi, _, err := ex.Attribute(v.Values(), class)
			if err != nil {
				return err
			}
			perRow[i] = phi
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	out := make([]FeatureImportance, len(schema))
	for j, name := range schema {
		out[j].Feature = name
		if len(perRow) == 0 {
			continue
		}
		var sum float64
		for _, phi := range perRow {
			sum += math.Abs(phi[j])
		}
		out[j].MeanAbsScore = sum / float64(len(perRow))
	}
	sort.SliceStable(out, func(a, b int) bool {
		if out[a].MeanAbsScore != out[b].MeanAbsScore {
			return out[a].MeanAbsScore > out[b].MeanAbsScore
		}
		return out[a].Feature < out[b].Feature
	})
	if opts.TopN > 0 && opts.TopN < len(out) {
		out = out[:opts.TopN]
	}
	return out, nil
}
