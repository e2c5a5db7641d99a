package cluster

import (
	"testing"

	"github.com/rushteam/gradekit/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func student(m, r, w int) core.StudentRecord {
	return core.StudentRecord{
		Gender: "female", RaceEthnicity: "group B", ParentEdu: "high school",
		Lunch: "standard", PrepCourse: "none",
		MathScore: m, ReadingScore: r, WritingScore: w,
	}
}

// 四个分离良好的分数段
func students() []core.StudentRecord {
	var out []core.StudentRecord
	for i := 0; i < 5; i++ {
		out = append(out,
			student(90+i, 92+i, 91+i),
			student(30+i, 32+i, 28+i),
			student(70+i, 71+i, 69+i),
			student(50+i, 52+i, 51+i),
		)
	}
	return out
}

func TestClusterStudents_Personas(t *testing.T) {
	records := students()
	p, err := ClusterStudents(records, nil)
	require.NoError(t, err)
	require.Len(t, p.Clusters, 4)

	for id, c := range p.Clusters {
		assert.Equal(t, id, c.ID)
		assert.Equal(t, DefaultPersonas[id], c.Persona)
		assert.Equal(t, 5, c.Size)
		if id > 0 {
			assert.Less(t, p.Clusters[id-1].Mean, c.Mean)
		}
	}

	assert.Equal(t, "High Achiever", p.Persona(0))
	assert.Equal(t, "Struggling", p.Persona(1))
	assert.Equal(t, "Consistent Performer", p.Persona(2))
	assert.Equal(t, "Improving", p.Persona(3))

	assert.Equal(t, "High Achiever", p.Assign(student(97, 95, 99)).Persona)
	assert.Equal(t, "Struggling", p.Assign(student(20, 25, 22)).Persona)
}

func TestClusterStudents_Deterministic(t *testing.T) {
	a, err := ClusterStudents(students(), nil)
	require.NoError(t, err)
	b, err := ClusterStudents(students(), nil)
	require.NoError(t, err)
	assert.Equal(t, a.Assignments, b.Assignments)
	assert.Equal(t, a.Clusters, b.Clusters)
}

func TestClusterStudents_OtherK(t *testing.T) {
	p, err := ClusterStudents(students(), NewKMeans(2))
	require.NoError(t, err)
	require.Len(t, p.Clusters, 2)
	assert.Equal(t, "Cluster 0", p.Clusters[0].Persona)
	assert.Equal(t, "Cluster 1", p.Clusters[1].Persona)
	assert.Equal(t, 20, p.Clusters[0].Size+p.Clusters[1].Size)
}

func TestKMeans_Errors(t *testing.T) {
	_, err := NewKMeans(0).Fit([][]float64{{1}})
	assert.Error(t, err)
	_, err = NewKMeans(3).Fit([][]float64{{1}, {2}})
	assert.Error(t, err)
	_, err = NewKMeans(1).Fit([][]float64{{1, 2}, {3}})
	assert.Error(t, err)
	_, err = ClusterStudents(nil, nil)
	assert.Error(t, err)
}

func TestKMeans_SimpleFit(t *testing.T) {
	points := [][]float64{{0, 0}, {0, 1}, {10, 10}, {10, 11}}
	fit, err := NewKMeans(2).Fit(points)
	require.NoError(t, err)
	assert.Equal(t, fit.Labels[0], fit.Labels[1])
	assert.Equal(t, fit.Labels[2], fit.Labels[3])
	assert.NotEqual(t, fit.Labels[0], fit.Labels[2])
	assert.InDelta(t, 1.0, fit.Inertia, 1e-9)
}
