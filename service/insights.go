package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/rushteam/gradekit/cluster"
	"github.com/rushteam/gradekit/core"
	"github.com/rushteam/gradekit/dataset"
	"github.com/rushteam/gradekit/model"
)

// ClusterPersonas 对数据集做学生画像聚类，k <= 0 时使用默认的 4 个画像。
func (p *Predictor) ClusterPersonas(k int) (*cluster.Personas, error) {
	var km *cluster.KMeans
	if k > 0 {
		km = cluster.NewKMeans(k)
	}
	return cluster.ClusterStudents(p.dataset.Records(), km)
}

// CompareModels 在数据集上评估全部模型并按准确率排序。
// label 模型以 performance 列为真实值，risk 模型以 at_risk 列为真实值。
func (p *Predictor) CompareModels(ctx context.Context) ([]*model.Evaluation, error) {
	rows := p.dataset.Rows
	evals := make([]*model.Evaluation, 0, len(p.heads))
	for _, name := range p.registry.Names() {
		gw := p.heads[name].gateway
		vectors, err := p.encodeAll(p.dataset.Records(), gw.Schema())
		if err != nil {
			return nil, err
		}
		truth := make([]string, len(rows))
		for i, r := range rows {
			if truth[i], err = truthLabel(gw, r); err != nil {
				return nil, err
			}
		}
		ev, err := gw.Evaluate(ctx, vectors, truth)
		if err != nil {
			return nil, fmt.Errorf("service: compare %s: %w", name, err)
		}
		p.logger.Debug("model evaluated", slog.String("model", name), slog.Float64("accuracy", ev.Accuracy))
		evals = append(evals, ev)
	}
	return model.Compare(evals), nil
}

func truthLabel(gw *model.Gateway, r dataset.Row) (string, error) {
	if gw.Kind() == core.KindLabel {
		return r.Performance, nil
	}
	classes := gw.ClassLabels()
	pos := gw.PositiveClass()
	if pos < 0 || len(classes) != 2 {
		return "", core.NewDomainError(core.ModuleService, core.ErrorCodeNotSupported,
			fmt.Sprintf("service: risk model %s is not binary", gw.Name()))
	}
	if r.AtRisk {
		return classes[pos], nil
	}
	return classes[1-pos], nil
}

// Insights 按类别字段分组统计 at-risk 比例
func (p *Predictor) Insights(field string, f dataset.Filter) ([]dataset.GroupStat, error) {
	return p.dataset.Filter(f).GroupRisk(field)
}

// Summary 返回（过滤后）数据集的汇总统计
func (p *Predictor) Summary(f dataset.Filter) dataset.Summary {
	return p.dataset.Filter(f).Summarize()
}

// Trends 返回（过滤后）数据集按学期的各科平均分；数据集没有 term 列时返回 NOT_FOUND。
func (p *Predictor) Trends(f dataset.Filter) ([]dataset.TermTrend, error) {
	if !p.dataset.HasTerms() {
		return nil, core.NewDomainError(core.ModuleService, core.ErrorCodeNotFound, "service: dataset has no term column")
	}
	return p.dataset.Filter(f).TermTrends(), nil
}

// ExportCSV 以 CSV 写出（过滤后）数据集，含派生列与学期列
func (p *Predictor) ExportCSV(w io.Writer, f dataset.Filter) error {
	return p.dataset.Filter(f).WriteCSV(w)
}
