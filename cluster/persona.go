package cluster

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/rushteam/gradekit/core"
	"github.com/rushteam/gradekit/feature"
)

// DefaultPersonas 按质心平均分从低到高命名（k = 4 时使用）
var DefaultPersonas = []string{"Struggling", "Improving", "Consistent Performer", "High Achiever"}

// Cluster 是一个画像簇
type Cluster struct {
	ID       int                `json:"id"`
	Persona  string             `json:"persona"`
	Size     int                `json:"size"`
	Centroid map[string]float64 `json:"centroid"` // 原始分数尺度
	Mean     float64            `json:"mean"`     // 质心三科平均分
}

// Personas 是聚类结果：簇 ID 按质心平均分升序编号
type Personas struct {
	Clusters []Cluster `json:"clusters"`
	// Assignments[i] 是第 i 个学生所属的簇 ID
	Assignments []int `json:"assignments"`

	scaler *feature.FeatureScaler
	fit    *Fit
	remap  []int
}

// Persona 返回第 i 个学生的画像名
func (p *Personas) Persona(i int) string {
	return p.Clusters[p.Assignments[i]].Persona
}

// Assign 把一条新记录分配到最近的簇
func (p *Personas) Assign(r core.StudentRecord) Cluster {
	x := p.scaler.Transform(scoreRow(r))
	return p.Clusters[p.remap[p.fit.Predict(x)]]
}

// ClusterStudents 对三科成绩标准化后做 k-means 聚类，并按质心平均分命名画像。
// k 为 4 时使用 DefaultPersonas，否则命名为 "Cluster N"。
func ClusterStudents(records []core.StudentRecord, km *KMeans) (*Personas, error) {
	if km == nil {
		km = NewKMeans(len(DefaultPersonas))
	}
	rows := make([][]float64, len(records))
	for i, r := range records {
		rows[i] = scoreRow(r)
	}
	scaler, err := feature.FitScaler(core.ScoreFields, rows)
	if err != nil {
		return nil, fmt.Errorf("cluster: %w", err)
	}
	fit, err := km.Fit(scaler.TransformAll(rows))
	if err != nil {
		return nil, fmt.Errorf("cluster: %w", err)
	}

	type ranked struct {
		orig     int
		centroid []float64
		mean     float64
	}
	order := make([]ranked, len(fit.Centroids))
	for k, c := range fit.Centroids {
		raw := scaler.Inverse(c)
		order[k] = ranked{orig: k, centroid: raw, mean: stat.Mean(raw, nil)}
	}
	sort.SliceStable(order, func(i, j int) bool { return order[i].mean < order[j].mean })

	remap := make([]int, len(order))
	clusters := make([]Cluster, len(order))
	for id, o := range order {
		remap[o.orig] = id
		centroid := make(map[string]float64, len(core.ScoreFields))
		for j, name := range core.ScoreFields {
			centroid[name] = o.centroid[j]
		}
		clusters[id] = Cluster{ID: id, Persona: personaName(id, len(order)), Centroid: centroid, Mean: o.mean}
	}
	assignments := make([]int, len(records))
	for i, l := range fit.Labels {
		assignments[i] = remap[l]
		clusters[remap[l]].Size++
	}
	return &Personas{
		Clusters:    clusters,
		Assignments: assignments,
		scaler:      scaler,
		fit:         fit,
		remap:       remap,
	}, nil
}

func personaName(id, k int) string {
	if k == len(DefaultPersonas) {
		return DefaultPersonas[id]
	}
	return fmt.Sprintf("Cluster %d", id)
}

func scoreRow(r core.StudentRecord) []float64 {
	return []float64{float64(r.MathScore), float64(r.ReadingScore), float64(r.WritingScore)}
}
