package feast

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/rushteam/gradekit/core"
	"github.com/rushteam/gradekit/pkg/conv"
)

// RecordSource 通过 Feast 在线特征读取学生记录。
// 每个记录字段对应 FeatureView 中的一个特征，"/" 替换为 "_"（如 race_ethnicity）。
type RecordSource struct {
	Client      Client
	Project     string
	FeatureView string

	// EntityKey 实体键名，默认 student_id
	EntityKey string
}

// FeatureRef 返回记录字段对应的特征引用。
func (s *RecordSource) FeatureRef(field string) string {
	return s.FeatureView + ":" + strings.ReplaceAll(field, "/", "_")
}

func (s *RecordSource) entityKey() string {
	if s.EntityKey == "" {
		return "student_id"
	}
	return s.EntityKey
}

// GetRecords 按实体 ID 批量获取学生记录，顺序与 ids 一致。
// 任一实体缺少特征返回 NOT_FOUND；取值越界返回 INVALID_INPUT。
func (s *RecordSource) GetRecords(ctx context.Context, ids []string) ([]core.StudentRecord, error) {
	if s.Client == nil {
		return nil, core.NewDomainError(core.ModuleStore, core.ErrorCodeUnavailable, "feast: client is nil")
	}
	if len(ids) == 0 {
		return nil, nil
	}
	fields := append(append([]string(nil), core.CategoricalFields...), core.ScoreFields...)
	refs := make([]string, len(fields))
	for i, f := range fields {
		refs[i] = s.FeatureRef(f)
	}
	rows := make([]map[string]any, len(ids))
	for i, id := range ids {
		rows[i] = map[string]any{s.entityKey(): id}
	}

	resp, err := s.Client.GetOnlineFeatures(ctx, &GetOnlineFeaturesRequest{
		Features:   refs,
		EntityRows: rows,
		Project:    s.Project,
	})
	if err != nil {
		return nil, core.WrapDomainError(core.ModuleStore, core.ErrorCodeUnavailable, err, "feast: get online features")
	}
	if len(resp.FeatureVectors) != len(ids) {
		return nil, core.NewDomainError(core.ModuleStore, core.ErrorCodeInternalError,
			fmt.Sprintf("feast: expected %d rows, got %d", len(ids), len(resp.FeatureVectors)))
	}

	out := make([]core.StudentRecord, len(ids))
	for i, fv := range resp.FeatureVectors {
		rec, err := s.toRecord(ids[i], fv.Values)
		if err != nil {
			return nil, err
		}
		out[i] = rec
	}
	return out, nil
}

func (s *RecordSource) toRecord(id string, values map[string]any) (core.StudentRecord, error) {
	str := func(field string) (string, error) {
		v, ok := values[s.FeatureRef(field)]
		if !ok {
			return "", core.NewDomainError(core.ModuleStore, core.ErrorCodeNotFound,
				fmt.Sprintf("feast: student %s has no feature %s", id, s.FeatureRef(field)))
		}
		return fmt.Sprint(v), nil
	}
	num := func(field string) (int, error) {
		v, ok := values[s.FeatureRef(field)]
		if !ok {
			return 0, core.NewDomainError(core.ModuleStore, core.ErrorCodeNotFound,
				fmt.Sprintf("feast: student %s has no feature %s", id, s.FeatureRef(field)))
		}
		f, ok := conv.ToFloat64(v)
		if !ok {
			return 0, core.NewDomainError(core.ModuleStore, core.ErrorCodeInvalidInput,
				fmt.Sprintf("feast: student %s feature %s is not numeric", id, s.FeatureRef(field)))
		}
		return int(math.Round(f)), nil
	}

	var rec core.StudentRecord
	var err error
	if rec.Gender, err = str(core.FieldGender); err != nil {
		return rec, err
	}
	if rec.RaceEthnicity, err = str(core.FieldRaceEthnicity); err != nil {
		return rec, err
	}
	if rec.ParentEdu, err = str(core.FieldParentEdu); err != nil {
		return rec, err
	}
	if rec.Lunch, err = str(core.FieldLunch); err != nil {
		return rec, err
	}
	if rec.PrepCourse, err = str(core.FieldPrepCourse); err != nil {
		return rec, err
	}
	if rec.MathScore, err = num(core.FieldMathScore); err != nil {
		return rec, err
	}
	if rec.ReadingScore, err = num(core.FieldReadingScore); err != nil {
		return rec, err
	}
	if rec.WritingScore, err = num(core.FieldWritingScore); err != nil {
		return rec, err
	}
	if err := rec.Validate(); err != nil {
		return rec, fmt.Errorf("feast: student %s: %w", id, err)
	}
	return rec, nil
}
