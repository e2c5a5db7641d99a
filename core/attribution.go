package core

import (
	"math"
	"sort"
)

// Attribution 是单个特征的带符号归因分（SHAP 风格）。
type Attribution struct {
	Feature string  `json:"feature"`
	Score   float64 `json:"score"`
}

// AttributionSet 是按 |Score| 降序排列的归因列表。
type AttributionSet []Attribution

// NewAttributionSet 由特征名与归因分构建并排序。
func NewAttributionSet(names []string, scores []float64) AttributionSet {
	set := make(AttributionSet, len(names))
	for i, n := range names {
		set[i] = Attribution{Feature: n, Score: scores[i]}
	}
	set.Sort()
	return set
}

// Sort 按 |Score| 降序排序；绝对值相同时按特征名升序，保证结果稳定可复现。
func (s AttributionSet) Sort() {
	sort.SliceStable(s, func(i, j int) bool {
		ai, aj := math.Abs(s[i].Score), math.Abs(s[j].Score)
		if ai != aj {
			return ai > aj
		}
		return s[i].Feature < s[j].Feature
	})
}

// Clone 返回副本。
func (s AttributionSet) Clone() AttributionSet {
	if s == nil {
		return nil
	}
	return append(AttributionSet(nil), s...)
}

// Top 返回前 k 个（副本）；k <= 0 或 k 超过长度时返回全部。
func (s AttributionSet) Top(k int) AttributionSet {
	if k <= 0 || k >= len(s) {
		return s.Clone()
	}
	return append(AttributionSet(nil), s[:k]...)
}

// Clip 返回副本，|Score| < epsilon 的归因置为 0（仅用于展示）。
func (s AttributionSet) Clip(epsilon float64) AttributionSet {
	out := s.Clone()
	for i := range out {
		if math.Abs(out[i].Score) < epsilon {
			out[i].Score = 0
		}
	}
	return out
}

// First 返回第一个归因（绝对值最大），为空时 ok=false。
func (s AttributionSet) First() (Attribution, bool) {
	if len(s) == 0 {
		return Attribution{}, false
	}
	return s[0], true
}

// Sum 返回所有归因分之和。
func (s AttributionSet) Sum() float64 {
	var total float64
	for _, a := range s {
		total += a.Score
	}
	return total
}
