package dataset

import (
	"bytes"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"

	"github.com/rushteam/gradekit/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleCSV = `gender,race/ethnicity,parental level of education,lunch,test preparation course,math score,reading score,writing score
female,group B,bachelor's degree,standard,none,72,72,74
female,group C,some college,standard,completed,69,90,88
male,group A,associate's degree,free/reduced,none,47,57,44
male,group C,some college,standard,none,76,78,75
female,group B,high school,free/reduced,none,55.0,60,58
`

func TestPerformanceBand(t *testing.T) {
	tests := []struct {
		avg  float64
		want string
	}{
		{0, PerformancePoor},
		{59.99, PerformancePoor},
		{60, PerformanceAverage},
		{69.9, PerformanceAverage},
		{70, PerformanceGood},
		{80, PerformanceVeryGood},
		{89.99, PerformanceVeryGood},
		{90, PerformanceExcellent},
		{100, PerformanceExcellent},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, PerformanceBand(tt.avg), "avg=%v", tt.avg)
	}
}

func TestReadCSV_DerivesColumns(t *testing.T) {
	ds, err := ReadCSV(strings.NewReader(sampleCSV), Options{})
	require.NoError(t, err)
	require.Equal(t, 5, ds.Len())

	first := ds.Rows[0]
	assert.Equal(t, "bachelor's degree", first.Record.ParentEdu)
	assert.Equal(t, "none", first.Record.PrepCourse)
	assert.InDelta(t, 72.6667, first.AverageScore, 1e-4)
	assert.Equal(t, PerformanceGood, first.Performance)
	assert.False(t, first.AtRisk)

	third := ds.Rows[2]
	assert.InDelta(t, 49.3333, third.AverageScore, 1e-4)
	assert.Equal(t, PerformancePoor, third.Performance)
	assert.True(t, third.AtRisk)

	assert.Equal(t, 55, ds.Rows[4].Record.MathScore)
}

func TestReadCSV_ExistingDerivedColumns(t *testing.T) {
	data := "gender,race/ethnicity,parent_edu,lunch,prep_course,math_score,reading_score,writing_score,performance,at_risk\n" +
		"female,group B,high school,standard,none,72,72,74,Average,1\n"

	ds, err := ReadCSV(strings.NewReader(data), Options{})
	require.NoError(t, err)
	assert.Equal(t, PerformanceAverage, ds.Rows[0].Performance)
	assert.True(t, ds.Rows[0].AtRisk)

	ds, err = ReadCSV(strings.NewReader(data), Options{Recompute: true})
	require.NoError(t, err)
	assert.Equal(t, PerformanceGood, ds.Rows[0].Performance)
	assert.False(t, ds.Rows[0].AtRisk)
}

func TestReadCSV_Errors(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"missing column", "gender,lunch\nfemale,standard\n"},
		{"bad score", "gender,race/ethnicity,parent_edu,lunch,prep_course,math_score,reading_score,writing_score\nfemale,group B,high school,standard,none,abc,72,74\n"},
		{"out of range", "gender,race/ethnicity,parent_edu,lunch,prep_course,math_score,reading_score,writing_score\nfemale,group B,high school,standard,none,150,72,74\n"},
		{"bad at_risk", "gender,race/ethnicity,parent_edu,lunch,prep_course,math_score,reading_score,writing_score,at_risk\nfemale,group B,high school,standard,none,50,72,74,maybe\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadCSV(strings.NewReader(tt.data), Options{})
			require.Error(t, err)
			assert.True(t, core.IsInvalidInput(err), err.Error())
		})
	}
}

func TestReadXLSX(t *testing.T) {
	f := excelize.NewFile()
	rows := [][]any{
		{"Gender", "Race/Ethnicity", "Parent_Edu", "Lunch", "Prep_Course", "Math_Score", "Reading_Score", "Writing_Score"},
		{"female", "group B", "high school", "standard", "none", 40, 50, 45},
		{"male", "group D", "master's degree", "standard", "completed", 95, 92, 90},
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &row))
	}
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)

	ds, err := ReadXLSX(bytes.NewReader(buf.Bytes()), Options{})
	require.NoError(t, err)
	require.Equal(t, 2, ds.Len())
	assert.True(t, ds.Rows[0].AtRisk)
	assert.Equal(t, PerformanceExcellent, ds.Rows[1].Performance)
	assert.Equal(t, "master's degree", ds.Rows[1].Record.ParentEdu)
}

func TestFilterAndGroupRisk(t *testing.T) {
	ds, err := ReadCSV(strings.NewReader(sampleCSV), Options{})
	require.NoError(t, err)

	females := ds.Filter(Filter{Gender: "female", Lunch: "All"})
	assert.Equal(t, 3, females.Len())
	assert.Equal(t, 1, ds.Filter(Filter{Gender: "male", PrepCourse: "none", RaceEthnicity: "group A"}).Len())
	assert.Equal(t, 5, ds.Len(), "filter does not modify the dataset")

	groups, err := ds.GroupRisk(core.FieldLunch)
	require.NoError(t, err)
	assert.Equal(t, []GroupStat{
		{Value: "free/reduced", Total: 2, AtRiskCount: 2, AtRiskRate: 1},
		{Value: "standard", Total: 3, AtRiskCount: 0, AtRiskRate: 0},
	}, groups)

	_, err = ds.GroupRisk(core.FieldMathScore)
	assert.True(t, core.IsInvalidInput(err))

	values, err := ds.Values(core.FieldRaceEthnicity)
	require.NoError(t, err)
	assert.Equal(t, []string{"group A", "group B", "group C"}, values)
}

func TestSummarize(t *testing.T) {
	ds, err := ReadCSV(strings.NewReader(sampleCSV), Options{})
	require.NoError(t, err)

	s := ds.Summarize()
	assert.Equal(t, 5, s.Total)
	assert.Equal(t, 2, s.AtRiskCount)
	assert.Equal(t, map[string]int{PerformancePoor: 2, PerformanceGood: 2, PerformanceVeryGood: 1}, s.PerformanceCounts)
	assert.Equal(t, PerformancePoor, s.MostCommonPerformance, "ties resolve to the lower level")
	assert.InDelta(t, (72+69+47+76+55)/5.0, s.Scores[core.FieldMathScore].Mean, 1e-9)
	assert.Equal(t, 47.0, s.Scores[core.FieldMathScore].Min)

	empty := (&Dataset{}).Summarize()
	assert.Equal(t, 0, empty.Total)
}

func TestTermTrendsAndWriteCSV(t *testing.T) {
	data := "gender,race/ethnicity,parent_edu,lunch,prep_course,math_score,reading_score,writing_score,term\n" +
		"female,group B,high school,standard,none,60,70,80,Term 1\n" +
		"male,group B,high school,standard,none,80,70,60,Term 1\n" +
		"male,group B,high school,standard,none,90,90,90,Term 2\n"
	ds, err := ReadCSV(strings.NewReader(data), Options{})
	require.NoError(t, err)

	trends := ds.TermTrends()
	require.Len(t, trends, 6)
	assert.Equal(t, TermTrend{Term: "Term 1", Subject: core.FieldMathScore, Mean: 70}, trends[0])
	assert.Equal(t, TermTrend{Term: "Term 2", Subject: core.FieldWritingScore, Mean: 90}, trends[5])

	var buf bytes.Buffer
	require.NoError(t, ds.WriteCSV(&buf))
	back, err := ReadCSV(&buf, Options{})
	require.NoError(t, err)
	assert.Equal(t, ds.Records(), back.Records())
	assert.Equal(t, ds.Rows[2].Performance, back.Rows[2].Performance)
	assert.Equal(t, "Term 2", back.Rows[2].Term)
	assert.Equal(t, trends, back.TermTrends())

	buf.Reset()
	require.NoError(t, New(ds.Records(), 60).WriteCSV(&buf))
	assert.NotContains(t, strings.SplitN(buf.String(), "\n", 2)[0], ColumnTerm)
}
