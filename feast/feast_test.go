package feast

import (
	"context"
	"errors"
	"testing"

	"github.com/feast-dev/feast/sdk/go/protos/feast/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rushteam/gradekit/core"
)

type fakeClient struct {
	rows map[string]map[string]any
	err  error
	last *GetOnlineFeaturesRequest
}

func (f *fakeClient) GetOnlineFeatures(_ context.Context, req *GetOnlineFeaturesRequest) (*GetOnlineFeaturesResponse, error) {
	f.last = req
	if f.err != nil {
		return nil, f.err
	}
	out := &GetOnlineFeaturesResponse{}
	for _, row := range req.EntityRows {
		id, _ := row["student_id"].(string)
		out.FeatureVectors = append(out.FeatureVectors, FeatureVector{Values: f.rows[id], EntityRow: row})
	}
	return out, nil
}

func (f *fakeClient) Close() error { return nil }

func studentFeatures(math float64) map[string]any {
	return map[string]any{
		"student_profile:gender":         "female",
		"student_profile:race_ethnicity": "group B",
		"student_profile:parent_edu":     "some college",
		"student_profile:lunch":          "standard",
		"student_profile:prep_course":    "none",
		"student_profile:math_score":     math,
		"student_profile:reading_score":  float64(70),
		"student_profile:writing_score":  float64(68),
	}
}

func TestRecordSource_GetRecords(t *testing.T) {
	client := &fakeClient{rows: map[string]map[string]any{
		"s-1": studentFeatures(55),
		"s-2": studentFeatures(91.6),
	}}
	src := &RecordSource{Client: client, Project: "school", FeatureView: "student_profile"}

	recs, err := src.GetRecords(context.Background(), []string{"s-1", "s-2"})
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "group B", recs[0].RaceEthnicity)
	assert.Equal(t, 55, recs[0].MathScore)
	assert.Equal(t, 92, recs[1].MathScore)
	assert.Equal(t, "school", client.last.Project)
	assert.Contains(t, client.last.Features, "student_profile:race_ethnicity")
	assert.Len(t, client.last.Features, 8)
}

func TestRecordSource_Errors(t *testing.T) {
	missing := studentFeatures(50)
	delete(missing, "student_profile:lunch")
	outOfRange := studentFeatures(150)

	tests := []struct {
		name  string
		rows  map[string]map[string]any
		err   error
		check func(error) bool
	}{
		{"missing feature", map[string]map[string]any{"s-1": missing}, nil, core.IsNotFound},
		{"out of range", map[string]map[string]any{"s-1": outOfRange}, nil, core.IsInvalidInput},
		{"client error", nil, errors.New("dial tcp: refused"), core.IsUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := &RecordSource{Client: &fakeClient{rows: tt.rows, err: tt.err}, FeatureView: "student_profile"}
			_, err := src.GetRecords(context.Background(), []string{"s-1"})
			require.Error(t, err)
			assert.True(t, tt.check(err), err.Error())
		})
	}

	_, err := (&RecordSource{}).GetRecords(context.Background(), []string{"s-1"})
	assert.True(t, core.IsUnavailable(err))
}

func TestFromSDKValue(t *testing.T) {
	tests := []struct {
		name string
		in   *types.Value
		want any
	}{
		{"nil", nil, nil},
		{"string", &types.Value{Val: &types.Value_StringVal{StringVal: "male"}}, "male"},
		{"int64", &types.Value{Val: &types.Value_Int64Val{Int64Val: 72}}, float64(72)},
		{"int32", &types.Value{Val: &types.Value_Int32Val{Int32Val: 5}}, float64(5)},
		{"double", &types.Value{Val: &types.Value_DoubleVal{DoubleVal: 0.5}}, 0.5},
		{"bool", &types.Value{Val: &types.Value_BoolVal{BoolVal: true}}, float64(1)},
		{"unset", &types.Value{}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, fromSDKValue(tt.in))
		})
	}
}

func TestToSDKValue(t *testing.T) {
	assert.Equal(t, "s-1", toSDKValue("s-1").GetStringVal())
	assert.Equal(t, int64(7), toSDKValue(7).GetInt64Val())
	assert.Equal(t, 1.5, toSDKValue(1.5).GetDoubleVal())
	assert.True(t, toSDKValue(true).GetBoolVal())
}

func TestParseEndpoint(t *testing.T) {
	tests := []struct {
		in   string
		host string
		port int
	}{
		{"localhost:6566", "localhost", 6566},
		{"grpc://feast.svc:6565", "feast.svc", 6565},
		{"feast.svc", "feast.svc", 0},
	}
	for _, tt := range tests {
		host, port := parseEndpoint(tt.in)
		assert.Equal(t, tt.host, host)
		assert.Equal(t, tt.port, port)
	}
}
