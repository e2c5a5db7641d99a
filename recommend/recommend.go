// Package recommend 根据最重要的归因与原始记录生成学习建议。
//
// 建议规则是 CEL 表达式（见 pkg/dsl），规则在创建 Recommender 时编译一次，
// 之后 Recommend 是纯函数：相同的输入总是得到相同顺序的建议。
package recommend

import (
	"fmt"
	"strings"

	"github.com/rushteam/gradekit/core"
	"github.com/rushteam/gradekit/pkg/dsl"
)

// DefaultFallback 是没有任何规则命中时的建议
const DefaultFallback = "Your study pattern looks well balanced!"

// Subjects 是可从特征名中识别的科目关键字（按匹配优先级）
var Subjects = []string{"math", "reading", "writing"}

// Rule 是一条建议规则。
// Message 中的 {subject} 会被替换为最重要归因对应的科目（首字母大写），
// {label} 替换为预测标签。
type Rule struct {
	Name    string `yaml:"name" json:"name"`
	When    string `yaml:"when" json:"when"`
	Message string `yaml:"message" json:"message"`
}

// DefaultRules 返回内置规则：最重要的归因是某一科目时建议加强该科目；未参加备考课程时建议报名。
func DefaultRules() []Rule {
	return []Rule{
		{
			Name:    "focus_subject",
			When:    `top.feature.contains("math") || top.feature.contains("reading") || top.feature.contains("writing")`,
			Message: "Focus more on {subject}. Allocate at least 5 extra study hours/week.",
		},
		{
			Name:    "prep_course",
			When:    `record.prep_course == "none"`,
			Message: "Enroll in a test prep course for improved performance.",
		},
	}
}

type compiledRule struct {
	Rule
	prg *dsl.Program
}

// Recommender 持有编译后的规则，只读，可并发使用。
type Recommender struct {
	rules    []compiledRule
	fallback string
}

// Option 配置 Recommender
type Option func(*Recommender)

// WithFallback 设置没有规则命中时的建议，空字符串表示不返回任何建议。
func WithFallback(msg string) Option {
	return func(r *Recommender) { r.fallback = msg }
}

// New 编译规则；任一规则编译失败则返回错误。
func New(rules []Rule, opts ...Option) (*Recommender, error) {
	r := &Recommender{fallback: DefaultFallback}
	for _, opt := range opts {
		opt(r)
	}
	for i, rule := range rules {
		if rule.Message == "" {
			return nil, fmt.Errorf("recommend rule %d (%s): empty message", i, rule.Name)
		}
		prg, err := dsl.Compile(rule.When)
		if err != nil {
			return nil, fmt.Errorf("recommend rule %d (%s): %w", i, rule.Name, err)
		}
		r.rules = append(r.rules, compiledRule{Rule: rule, prg: prg})
	}
	return r, nil
}

// Default 返回使用内置规则的 Recommender
func Default() *Recommender {
	r, err := New(DefaultRules())
	if err != nil {
		panic(err)
	}
	return r
}

// Rules 返回规则（副本）
func (r *Recommender) Rules() []Rule {
	out := make([]Rule, len(r.rules))
	for i, cr := range r.rules {
		out[i] = cr.Rule
	}
	return out
}

// Recommend 由归因（按 |score| 降序）与原始记录生成建议。
func (r *Recommender) Recommend(top core.AttributionSet, record core.StudentRecord) ([]string, error) {
	return r.recommend(top, record, nil)
}

// RecommendPrediction 与 Recommend 相同，但规则还可以引用 prediction 与 label 变量。
// 使用完整的原始归因，不受展示截断影响。
func (r *Recommender) RecommendPrediction(p *core.Prediction) ([]string, error) {
	return r.recommend(p.Raw, p.Record, p)
}

func (r *Recommender) recommend(top core.AttributionSet, record core.StudentRecord, p *core.Prediction) ([]string, error) {
	input := dsl.BuildInput(record, top, p)
	subject := ""
	if first, ok := top.First(); ok {
		subject = SubjectOf(first.Feature)
	}
	label := ""
	if p != nil {
		label = p.Label
	}

	var out []string
	for _, rule := range r.rules {
		ok, err := rule.prg.Eval(input)
		if err != nil {
			return nil, fmt.Errorf("recommend rule %s: %w", rule.Name, err)
		}
		if !ok {
			continue
		}
		msg := strings.ReplaceAll(rule.Message, "{subject}", subject)
		msg = strings.ReplaceAll(msg, "{label}", label)
		out = append(out, msg)
	}
	if len(out) == 0 && r.fallback != "" {
		out = append(out, r.fallback)
	}
	return out, nil
}

// SubjectOf 返回特征名中包含的科目（首字母大写），没有则返回 ""。
func SubjectOf(feature string) string {
	for _, s := range Subjects {
		if strings.Contains(feature, s) {
			return strings.ToUpper(s[:1]) + s[1:]
		}
	}
	return ""
}
