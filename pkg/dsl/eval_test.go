package dsl

import (
	"testing"

	"github.com/rushteam/gradekit/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleRecord() core.StudentRecord {
	return core.StudentRecord{
		Gender:        "female",
		RaceEthnicity: "group B",
		ParentEdu:     "bachelor's degree",
		Lunch:         "standard",
		PrepCourse:    "none",
		MathScore:     72,
		ReadingScore:  72,
		WritingScore:  74,
	}
}

func TestProgram_Eval(t *testing.T) {
	top := core.AttributionSet{{Feature: "math_score", Score: -0.4}, {Feature: "lunch_standard", Score: 0.1}}
	p := core.NewPrediction(sampleRecord())
	p.Kind = core.KindRisk
	p.AtRisk = true

	tests := []struct {
		expr string
		want bool
	}{
		{`record.prep_course == "none"`, true},
		{`record.math_score >= 70`, true},
		{`top.feature.contains("math")`, true},
		{`top.feature.contains("reading")`, false},
		{`top.score < 0.0`, true},
		{`prediction.at_risk && record.lunch == "standard"`, true},
	}
	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			prg, err := Compile(tt.expr)
			require.NoError(t, err)
			got, err := prg.Eval(BuildInput(sampleRecord(), top, p))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestProgram_EmptyTop(t *testing.T) {
	prg, err := Compile(`top.feature.contains("math")`)
	require.NoError(t, err)
	got, err := prg.Eval(BuildInput(sampleRecord(), nil, nil))
	require.NoError(t, err)
	assert.False(t, got)
}

func TestCompile_Errors(t *testing.T) {
	_, err := Compile(`record.math_score >`)
	assert.Error(t, err)

	_, err = Compile(`1 + 2`)
	assert.Error(t, err)
}
