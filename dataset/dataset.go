// Package dataset 加载学生成绩数据集（CSV / XLSX），补齐派生列，并提供筛选与分组统计。
package dataset

import (
	"fmt"
	"sort"

	"github.com/rushteam/gradekit/core"
	"github.com/rushteam/gradekit/feature"
)

// 派生列
const (
	ColumnAverageScore = "average_score"
	ColumnPerformance  = "performance"
	ColumnAtRisk       = "at_risk"
	ColumnTerm         = "term"
)

// 表现等级，按分数从低到高
const (
	PerformancePoor      = "Poor"
	PerformanceAverage   = "Average"
	PerformanceGood      = "Good"
	PerformanceVeryGood  = "Very Good"
	PerformanceExcellent = "Excellent"
)

// PerformanceLevels 按从低到高列出表现等级
var PerformanceLevels = []string{
	PerformancePoor,
	PerformanceAverage,
	PerformanceGood,
	PerformanceVeryGood,
	PerformanceExcellent,
}

// DefaultRiskThreshold 平均分低于该值即为 at-risk
const DefaultRiskThreshold = 60.0

// PerformanceBand 按平均分返回表现等级
func PerformanceBand(avg float64) string {
	switch {
	case avg < 60:
		return PerformancePoor
	case avg < 70:
		return PerformanceAverage
	case avg < 80:
		return PerformanceGood
	case avg < 90:
		return PerformanceVeryGood
	default:
		return PerformanceExcellent
	}
}

// Row 是一条记录及其派生列
type Row struct {
	Record       core.StudentRecord `json:"record"`
	AverageScore float64            `json:"average_score"`
	Performance  string             `json:"performance"`
	AtRisk       bool               `json:"at_risk"`
	Term         string             `json:"term,omitempty"`
}

// Derive 由原始记录计算派生列
func Derive(record core.StudentRecord, riskThreshold float64) Row {
	avg := record.AverageScore()
	return Row{
		Record:       record,
		AverageScore: avg,
		Performance:  PerformanceBand(avg),
		AtRisk:       avg < riskThreshold,
	}
}

// Dataset 是加载后的数据集，只读。
type Dataset struct {
	Rows []Row
}

// New 由记录构建数据集，派生列按阈值计算
func New(records []core.StudentRecord, riskThreshold float64) *Dataset {
	rows := make([]Row, len(records))
	for i, r := range records {
		rows[i] = Derive(r, riskThreshold)
	}
	return &Dataset{Rows: rows}
}

// Len 返回行数
func (d *Dataset) Len() int { return len(d.Rows) }

// Records 返回原始记录
func (d *Dataset) Records() []core.StudentRecord {
	out := make([]core.StudentRecord, len(d.Rows))
	for i, r := range d.Rows {
		out[i] = r.Record
	}
	return out
}

// Filter 是按类别字段的等值筛选，空值或 "All" 表示不限。
type Filter struct {
	Gender        string `json:"gender,omitempty"`
	PrepCourse    string `json:"prep_course,omitempty"`
	RaceEthnicity string `json:"race/ethnicity,omitempty"`
	Lunch         string `json:"lunch,omitempty"`
	ParentEdu     string `json:"parent_edu,omitempty"`
}

func (f Filter) match(r core.StudentRecord) bool {
	eq := func(want, got string) bool { return want == "" || want == "All" || want == got }
	return eq(f.Gender, r.Gender) &&
		eq(f.PrepCourse, r.PrepCourse) &&
		eq(f.RaceEthnicity, r.RaceEthnicity) &&
		eq(f.Lunch, r.Lunch) &&
		eq(f.ParentEdu, r.ParentEdu)
}

// Filter 返回满足筛选条件的新数据集（行顺序不变）
func (d *Dataset) Filter(f Filter) *Dataset {
	out := &Dataset{}
	for _, r := range d.Rows {
		if f.match(r.Record) {
			out.Rows = append(out.Rows, r)
		}
	}
	return out
}

// Values 返回某个字段出现过的全部取值（升序）
func (d *Dataset) Values(field string) ([]string, error) {
	seen := map[string]struct{}{}
	for _, r := range d.Rows {
		v, ok := r.Record.Field(field)
		if !ok {
			return nil, unknownField(field)
		}
		seen[v] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for v := range seen {
		out = append(out, v)
	}
	sort.Strings(out)
	return out, nil
}

// GroupStat 是按某个字段分组后的 at-risk 统计
type GroupStat struct {
	Value       string  `json:"value"`
	Total       int     `json:"total"`
	AtRiskCount int     `json:"at_risk_count"`
	AtRiskRate  float64 `json:"at_risk_rate"`
}

// GroupRisk 按类别字段分组统计 at-risk 人数与比例，分组按取值升序。
func (d *Dataset) GroupRisk(field string) ([]GroupStat, error) {
	if !isCategorical(field) {
		return nil, unknownField(field)
	}
	groups := map[string]*GroupStat{}
	for _, r := range d.Rows {
		v, _ := r.Record.Field(field)
		g, ok := groups[v]
		if !ok {
			g = &GroupStat{Value: v}
			groups[v] = g
		}
		g.Total++
		if r.AtRisk {
			g.AtRiskCount++
		}
	}
	out := make([]GroupStat, 0, len(groups))
	for _, g := range groups {
		g.AtRiskRate = float64(g.AtRiskCount) / float64(g.Total)
		out = append(out, *g)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Value < out[j].Value })
	return out, nil
}

// Summary 是数据集概览
type Summary struct {
	Total                 int                                  `json:"total"`
	AverageScore          float64                              `json:"average_score"`
	AtRiskCount           int                                  `json:"at_risk_count"`
	MostCommonPerformance string                               `json:"most_common_performance"`
	PerformanceCounts     map[string]int                       `json:"performance_counts"`
	Scores                map[string]feature.FeatureStatistics `json:"scores"`
}

// Summarize 计算概览：人数、平均分、at-risk 人数、各等级人数与各科统计量。
// 出现次数最多的等级并列时取等级较低者。
func (d *Dataset) Summarize() Summary {
	s := Summary{
		Total:             len(d.Rows),
		PerformanceCounts: map[string]int{},
		Scores:            map[string]feature.FeatureStatistics{},
	}
	if len(d.Rows) == 0 {
		return s
	}

	cols := map[string][]float64{}
	var avgs []float64
	for _, r := range d.Rows {
		avgs = append(avgs, r.AverageScore)
		if r.AtRisk {
			s.AtRiskCount++
		}
		s.PerformanceCounts[r.Performance]++
		for name, v := range r.Record.Scores() {
			cols[name] = append(cols[name], v)
		}
	}
	s.AverageScore = feature.ComputeStatistics(avgs).Mean
	for name, values := range cols {
		s.Scores[name] = feature.ComputeStatistics(values)
	}
	s.Scores[ColumnAverageScore] = feature.ComputeStatistics(avgs)

	best := -1
	for _, level := range PerformanceLevels {
		if n := s.PerformanceCounts[level]; n > best {
			best = n
			s.MostCommonPerformance = level
		}
	}
	return s
}

// TermTrend 是某学期某科目的平均分
type TermTrend struct {
	Term    string  `json:"term"`
	Subject string  `json:"subject"`
	Mean    float64 `json:"mean"`
}

// HasTerms 判断是否有行带学期信息
func (d *Dataset) HasTerms() bool {
	for _, r := range d.Rows {
		if r.Term != "" {
			return true
		}
	}
	return false
}

// TermTrends 按 (学期, 科目) 计算平均分；数据集没有 term 列时返回空。
// 结果按学期、科目升序。
func (d *Dataset) TermTrends() []TermTrend {
	type key struct{ term, subject string }
	sums := map[key]float64{}
	counts := map[key]int{}
	for _, r := range d.Rows {
		if r.Term == "" {
			continue
		}
		for name, v := range r.Record.Scores() {
			k := key{r.Term, name}
			sums[k] += v
			counts[k]++
		}
	}
	out := make([]TermTrend, 0, len(sums))
	for k, sum := range sums {
		out = append(out, TermTrend{Term: k.term, Subject: k.subject, Mean: sum / float64(counts[k])})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Term != out[j].Term {
			return out[i].Term < out[j].Term
		}
		return out[i].Subject < out[j].Subject
	})
	return out
}

// ScoreMatrix 返回三科分数矩阵（行优先，列顺序同 core.ScoreFields）
func (d *Dataset) ScoreMatrix() [][]float64 {
	out := make([][]float64, len(d.Rows))
	for i, r := range d.Rows {
		out[i] = []float64{float64(r.Record.MathScore), float64(r.Record.ReadingScore), float64(r.Record.WritingScore)}
	}
	return out
}

func isCategorical(field string) bool {
	for _, f := range core.CategoricalFields {
		if f == field {
			return true
		}
	}
	return false
}

func unknownField(field string) error {
	return core.NewDomainError(core.ModuleDataset, core.ErrorCodeInvalidInput,
		fmt.Sprintf("dataset: unknown column %q", field))
}
