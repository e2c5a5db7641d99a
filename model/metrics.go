package model

import (
	"context"
	"fmt"
	"sort"

	"github.com/rushteam/gradekit/core"
)

// ClassReport 单个类别的分类指标（对应 sklearn classification_report 的一行）
type ClassReport struct {
	Class     string  `json:"class"`
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
	F1        float64 `json:"f1"`
	Support   int     `json:"support"`
}

// Evaluation 模型在一批样本上的评估结果
type Evaluation struct {
	Model      string        `json:"model"`
	Accuracy   float64       `json:"accuracy"`
	Classes    []string      `json:"classes"`
	Confusion  [][]int       `json:"confusion"` // 行为真实类别，列为预测类别
	Report     []ClassReport `json:"report"`
	MacroF1    float64       `json:"macro_f1"`
	WeightedF1 float64       `json:"weighted_f1"`
	Samples    int           `json:"samples"`
}

// Evaluate 由真实标签与预测标签计算准确率、混淆矩阵与各类别指标。
// 没有预测样本的类别 precision 记为 0（与 sklearn zero_division=0 一致）。
func Evaluate(name string, classes, yTrue, yPred []string) (*Evaluation, error) {
	if len(yTrue) != len(yPred) {
		return nil, fmt.Errorf("evaluate %s: %d labels but %d predictions", name, len(yTrue), len(yPred))
	}
	if len(yTrue) == 0 {
		return nil, fmt.Errorf("evaluate %s: no samples", name)
	}
	index := make(map[string]int, len(classes))
	for i, c := range classes {
		index[c] = i
	}

	confusion := make([][]int, len(classes))
	for i := range confusion {
		confusion[i] = make([]int, len(classes))
	}
	correct := 0
	for i := range yTrue {
		t, ok := index[yTrue[i]]
		if !ok {
			return nil, fmt.Errorf("evaluate %s: unknown true label %q", name, yTrue[i])
		}
		p, ok := index[yPred[i]]
		if !ok {
			return nil, fmt.Errorf("evaluate %s: unknown predicted label %q", name, yPred[i])
		}
		confusion[t][p]++
		if t == p {
			correct++
		}
	}

	ev := &Evaluation{
		Model:     name,
		Accuracy:  float64(correct) / float64(len(yTrue)),
		Classes:   append([]string(nil), classes...),
		Confusion: confusion,
		Samples:   len(yTrue),
	}
	for k, c := range classes {
		var tp, fp, fn int
		tp = confusion[k][k]
		for j := range classes {
			if j == k {
				continue
			}
			fp += confusion[j][k]
			fn += confusion[k][j]
		}
		r := ClassReport{Class: c, Support: tp + fn}
		if tp+fp > 0 {
			r.Precision = float64(tp) / float64(tp+fp)
		}
		if tp+fn > 0 {
			r.Recall = float64(tp) / float64(tp+fn)
		}
		if r.Precision+r.Recall > 0 {
			r.F1 = 2 * r.Precision * r.Recall / (r.Precision + r.Recall)
		}
		ev.Report = append(ev.Report, r)
		ev.MacroF1 += r.F1
		ev.WeightedF1 += r.F1 * float64(r.Support)
	}
	ev.MacroF1 /= float64(len(classes))
	ev.WeightedF1 /= float64(len(yTrue))
	return ev, nil
}

// Evaluate 在一批特征向量上评估模型，truth 为解码后的真实类别标签。
func (g *Gateway) Evaluate(ctx context.Context, vectors []core.FeatureVector, truth []string) (*Evaluation, error) {
	if len(vectors) != len(truth) {
		return nil, fmt.Errorf("evaluate %s: %d vectors but %d labels", g.name, len(vectors), len(truth))
	}
	preds := make([]string, len(vectors))
	for i, v := range vectors {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		probs, err := g.PredictProba(ctx, v)
		if err != nil {
			return nil, err
		}
		preds[i] = g.classLabels[argmax(probs)]
	}
	return Evaluate(g.name, g.classLabels, truth, preds)
}

// Compare 按准确率降序排列评估结果（准确率相同按模型名升序），返回新切片。
func Compare(evals []*Evaluation) []*Evaluation {
	out := append([]*Evaluation(nil), evals...)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Accuracy != out[j].Accuracy {
			return out[i].Accuracy > out[j].Accuracy
		}
		return out[i].Model < out[j].Model
	})
	return out
}
