// Package builders 注册内置尾部节点的配置构建器。
package builders

import (
	"fmt"

	"github.com/rushteam/gradekit/config"
	"github.com/rushteam/gradekit/core"
	"github.com/rushteam/gradekit/pipeline"
	"github.com/rushteam/gradekit/pkg/conv"
	"github.com/rushteam/gradekit/postprocess"
	"github.com/rushteam/gradekit/recommend"
)

func init() {
	config.Register("postprocess.topk", BuildTopKNode)
	config.Register("postprocess.clip", BuildClipNode)
	config.Register("recommend.rules", BuildRecommendNode)
}

var defaults = &core.DefaultPipelineConfig{}

// BuildTopKNode 配置：k（默认 10）
func BuildTopKNode(cfg map[string]any) (pipeline.Node, error) {
	k := conv.ConfigGetInt64(cfg, "k", int64(defaults.DefaultTopK()))
	if k < 0 {
		return nil, fmt.Errorf("postprocess.topk: k must be >= 0, got %d", k)
	}
	return &postprocess.TopKNode{K: int(k)}, nil
}

// BuildClipNode 配置：epsilon（默认 0.01）
func BuildClipNode(cfg map[string]any) (pipeline.Node, error) {
	eps := conv.ConfigGetFloat64(cfg, "epsilon", defaults.DefaultClipEpsilon())
	if eps < 0 {
		return nil, fmt.Errorf("postprocess.clip: epsilon must be >= 0, got %v", eps)
	}
	return &postprocess.ClipNode{Epsilon: eps}, nil
}

// BuildRecommendNode 配置：
//
//	rules:            # 可选，自定义规则
//	  - name: prep_course
//	    when: record.prep_course == "none"
//	    message: Enroll in a test prep course for improved performance.
//	defaults: true    # 是否在自定义规则之前保留内置规则（未配置 rules 时总是使用内置规则）
//	fallback: "..."   # 没有规则命中时的建议，"" 表示不返回
func BuildRecommendNode(cfg map[string]any) (pipeline.Node, error) {
	var rules []recommend.Rule
	raw, _ := cfg["rules"].([]any)
	if len(raw) == 0 || conv.ConfigGet(cfg, "defaults", false) {
		rules = append(rules, recommend.DefaultRules()...)
	}
	for i, r := range raw {
		m, ok := r.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("recommend.rules: rule %d is not a map", i)
		}
		rules = append(rules, recommend.Rule{
			Name:    conv.ConfigGet(m, "name", fmt.Sprintf("rule_%d", i)),
			When:    conv.ConfigGet(m, "when", ""),
			Message: conv.ConfigGet(m, "message", ""),
		})
	}

	var opts []recommend.Option
	if fb, ok := cfg["fallback"].(string); ok {
		opts = append(opts, recommend.WithFallback(fb))
	}
	rec, err := recommend.New(rules, opts...)
	if err != nil {
		return nil, err
	}
	return &recommend.Node{Recommender: rec}, nil
}
