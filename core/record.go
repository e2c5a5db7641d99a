package core

import (
	"fmt"
	"strconv"
	"strings"
)

// 数据集中的列名，与训练时 pd.get_dummies 生成的列名前缀一致。
const (
	FieldGender        = "gender"
	FieldRaceEthnicity = "race/ethnicity"
	FieldParentEdu     = "parent_edu"
	FieldLunch         = "lunch"
	FieldPrepCourse    = "prep_course"
	FieldMathScore     = "math_score"
	FieldReadingScore  = "reading_score"
	FieldWritingScore  = "writing_score"
)

// CategoricalFields 按固定顺序列出类别字段。
var CategoricalFields = []string{
	FieldGender,
	FieldRaceEthnicity,
	FieldParentEdu,
	FieldLunch,
	FieldPrepCourse,
}

// ScoreFields 按固定顺序列出分数字段。
var ScoreFields = []string{
	FieldMathScore,
	FieldReadingScore,
	FieldWritingScore,
}

// KnownCategories 是每个类别字段的已知取值（训练数据集中出现过的全部类别）。
// 仅在严格模式下用于拒绝未知类别，默认模式下未知类别按"全部哑变量为 0"处理。
var KnownCategories = map[string][]string{
	FieldGender:        {"female", "male"},
	FieldRaceEthnicity: {"group A", "group B", "group C", "group D", "group E"},
	FieldParentEdu: {
		"associate's degree",
		"bachelor's degree",
		"high school",
		"master's degree",
		"some college",
		"some high school",
	},
	FieldLunch:      {"free/reduced", "standard"},
	FieldPrepCourse: {"completed", "none"},
}

// 分数取值范围
const (
	MinScore = 0
	MaxScore = 100
)

// StudentRecord 是一条学生原始记录。
// 值类型，构造后不再修改；链路中各 Node 只读取，不回写。
type StudentRecord struct {
	Gender        string `json:"gender" yaml:"gender"`
	RaceEthnicity string `json:"race/ethnicity" yaml:"race/ethnicity"`
	ParentEdu     string `json:"parent_edu" yaml:"parent_edu"`
	Lunch         string `json:"lunch" yaml:"lunch"`
	PrepCourse    string `json:"prep_course" yaml:"prep_course"`
	MathScore     int    `json:"math_score" yaml:"math_score"`
	ReadingScore  int    `json:"reading_score" yaml:"reading_score"`
	WritingScore  int    `json:"writing_score" yaml:"writing_score"`
}

// CategoricalValue 是一个 (字段, 取值) 对。
type CategoricalValue struct {
	Field string
	Value string
}

// Categoricals 按 CategoricalFields 顺序返回类别字段。
func (r StudentRecord) Categoricals() []CategoricalValue {
	return []CategoricalValue{
		{Field: FieldGender, Value: r.Gender},
		{Field: FieldRaceEthnicity, Value: r.RaceEthnicity},
		{Field: FieldParentEdu, Value: r.ParentEdu},
		{Field: FieldLunch, Value: r.Lunch},
		{Field: FieldPrepCourse, Value: r.PrepCourse},
	}
}

// Scores 返回分数字段（key 为列名）。
func (r StudentRecord) Scores() map[string]float64 {
	return map[string]float64{
		FieldMathScore:    float64(r.MathScore),
		FieldReadingScore: float64(r.ReadingScore),
		FieldWritingScore: float64(r.WritingScore),
	}
}

// AverageScore 返回三科平均分。
func (r StudentRecord) AverageScore() float64 {
	return float64(r.MathScore+r.ReadingScore+r.WritingScore) / 3
}

// Validate 校验记录字段是否在定义域内：分数在 [0,100]，类别字段非空。
// 返回 INVALID_INPUT 类型的 DomainError。
func (r StudentRecord) Validate() error {
	for _, f := range ScoreFields {
		v := r.score(f)
		if v < MinScore || v > MaxScore {
			return NewDomainError(ModuleFeature, ErrorCodeInvalidInput,
				fmt.Sprintf("invalid record: %s=%d out of range [%d,%d]", f, v, MinScore, MaxScore))
		}
	}
	for _, c := range r.Categoricals() {
		if strings.TrimSpace(c.Value) == "" {
			return NewDomainError(ModuleFeature, ErrorCodeInvalidInput,
				fmt.Sprintf("invalid record: %s is empty", c.Field))
		}
	}
	return nil
}

// ValidateStrict 在 Validate 的基础上要求类别取值属于 KnownCategories。
func (r StudentRecord) ValidateStrict() error {
	if err := r.Validate(); err != nil {
		return err
	}
	for _, c := range r.Categoricals() {
		if !IsKnownCategory(c.Field, c.Value) {
			return NewDomainError(ModuleFeature, ErrorCodeInvalidInput,
				fmt.Sprintf("invalid record: unknown %s category %q", c.Field, c.Value))
		}
	}
	return nil
}

// IsKnownCategory 判断类别取值是否在已知取值中。
func IsKnownCategory(field, value string) bool {
	for _, v := range KnownCategories[field] {
		if v == value {
			return true
		}
	}
	return false
}

// Field 按列名取原始值（字符串形式），供规则 DSL 与分组统计使用。
func (r StudentRecord) Field(name string) (string, bool) {
	switch name {
	case FieldGender:
		return r.Gender, true
	case FieldRaceEthnicity:
		return r.RaceEthnicity, true
	case FieldParentEdu:
		return r.ParentEdu, true
	case FieldLunch:
		return r.Lunch, true
	case FieldPrepCourse:
		return r.PrepCourse, true
	case FieldMathScore, FieldReadingScore, FieldWritingScore:
		return strconv.Itoa(r.score(name)), true
	default:
		return "", false
	}
}

// AsMap 返回记录的 map 形式（类别为 string，分数为 int64），供 CEL 表达式使用。
func (r StudentRecord) AsMap() map[string]any {
	return map[string]any{
		FieldGender:        r.Gender,
		FieldRaceEthnicity: r.RaceEthnicity,
		FieldParentEdu:     r.ParentEdu,
		FieldLunch:         r.Lunch,
		FieldPrepCourse:    r.PrepCourse,
		FieldMathScore:     int64(r.MathScore),
		FieldReadingScore:  int64(r.ReadingScore),
		FieldWritingScore:  int64(r.WritingScore),
	}
}

func (r StudentRecord) score(field string) int {
	switch field {
	case FieldMathScore:
		return r.MathScore
	case FieldReadingScore:
		return r.ReadingScore
	case FieldWritingScore:
		return r.WritingScore
	}
	return 0
}
