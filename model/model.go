package model

import "context"

// 分类器类型
const (
	KindDecisionTree       = "decision_tree"
	KindRandomForest       = "random_forest"
	KindLogisticRegression = "logistic_regression"
	KindRemote             = "remote"
)

// Classifier 是预训练分类器的最小抽象：输入按 schema 排列的特征，输出各类别概率。
// 具体实现可以是本地模型（决策树/随机森林/逻辑回归）或远程 RPC 服务。
//
// 归因能力不在此接口中声明：explain 包按能力（Trees / LinearTerms）识别可解释的模型。
type Classifier interface {
	Name() string
	Kind() string

	// Classes 返回类别取值（字符串形式），顺序与 PredictProba 输出一致
	Classes() []string

	// NumFeatures 返回模型期望的特征数，未知时返回 0
	NumFeatures() int

	// PredictProba 返回各类别概率，长度等于 len(Classes())
	PredictProba(ctx context.Context, x []float64) ([]float64, error)
}

// argmax 返回最大值下标；并列时取第一个。
func argmax(values []float64) int {
	best := 0
	for i := 1; i < len(values); i++ {
		if values[i] > values[best] {
			best = i
		}
	}
	return best
}
