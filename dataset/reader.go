package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/rushteam/gradekit/core"
)

// columnAliases 把常见的原始列名（如 Kaggle 原始数据集的列名）映射到标准列名
var columnAliases = map[string]string{
	"race_ethnicity":              core.FieldRaceEthnicity,
	"race":                        core.FieldRaceEthnicity,
	"ethnicity":                   core.FieldRaceEthnicity,
	"parental_level_of_education": core.FieldParentEdu,
	"parent_education":            core.FieldParentEdu,
	"test_preparation_course":     core.FieldPrepCourse,
	"test_prep":                   core.FieldPrepCourse,
}

var requiredColumns = append(append([]string(nil), core.CategoricalFields...), core.ScoreFields...)

// Options 控制派生列的计算
type Options struct {
	// RiskThreshold 平均分阈值，<= 0 时使用 DefaultRiskThreshold
	RiskThreshold float64
	// Recompute 为 true 时忽略文件中已有的派生列，总是重新计算
	Recompute bool
}

func (o Options) threshold() float64 {
	if o.RiskThreshold <= 0 {
		return DefaultRiskThreshold
	}
	return o.RiskThreshold
}

// Load 按扩展名（.csv / .xlsx）加载数据集文件
func Load(path string, opts Options) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open dataset: %w", err)
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return ReadCSV(f, opts)
	case ".xlsx":
		return ReadXLSX(f, opts)
	default:
		return nil, core.NewDomainError(core.ModuleDataset, core.ErrorCodeNotSupported,
			fmt.Sprintf("dataset: unsupported file type %q", filepath.Ext(path)))
	}
}

// ReadCSV 读取 CSV（首行为表头）
func ReadCSV(r io.Reader, opts Options) (*Dataset, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	var rows [][]string
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv: %w", err)
		}
		rows = append(rows, row)
	}
	return parseTable(header, rows, opts)
}

// ReadXLSX 读取 Excel 工作簿的第一个工作表（首行为表头）
func ReadXLSX(r io.Reader, opts Options) (*Dataset, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open xlsx: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, core.NewDomainError(core.ModuleDataset, core.ErrorCodeInvalidInput, "dataset: workbook has no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet %s: %w", sheets[0], err)
	}
	if len(rows) == 0 {
		return nil, core.NewDomainError(core.ModuleDataset, core.ErrorCodeInvalidInput, "dataset: empty sheet")
	}
	return parseTable(rows[0], rows[1:], opts)
}

// NormalizeColumn 把列名规范化为标准列名：小写、空白转下划线、别名替换
func NormalizeColumn(name string) string {
	key := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))
	key = strings.Join(strings.Fields(key), "_")
	if alias, ok := columnAliases[key]; ok {
		return alias
	}
	return key
}

func parseTable(header []string, rows [][]string, opts Options) (*Dataset, error) {
	index := make(map[string]int, len(header))
	for i, h := range header {
		index[NormalizeColumn(h)] = i
	}
	var missing []string
	for _, col := range requiredColumns {
		if _, ok := index[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, core.NewDomainError(core.ModuleDataset, core.ErrorCodeInvalidInput,
			fmt.Sprintf("dataset: missing columns %v", missing))
	}

	ds := &Dataset{Rows: make([]Row, 0, len(rows))}
	for n, raw := range rows {
		if blank(raw) {
			continue
		}
		line := n + 2
		cell := func(col string) (string, bool) {
			i, ok := index[col]
			if !ok || i >= len(raw) {
				return "", false
			}
			return strings.TrimSpace(raw[i]), true
		}
		get := func(col string) string {
			v, _ := cell(col)
			return v
		}

		rec := core.StudentRecord{
			Gender:        get(core.FieldGender),
			RaceEthnicity: get(core.FieldRaceEthnicity),
			ParentEdu:     get(core.FieldParentEdu),
			Lunch:         get(core.FieldLunch),
			PrepCourse:    get(core.FieldPrepCourse),
		}
		var err error
		if rec.MathScore, err = parseScore(get(core.FieldMathScore)); err != nil {
			return nil, rowError(line, core.FieldMathScore, err)
		}
		if rec.ReadingScore, err = parseScore(get(core.FieldReadingScore)); err != nil {
			return nil, rowError(line, core.FieldReadingScore, err)
		}
		if rec.WritingScore, err = parseScore(get(core.FieldWritingScore)); err != nil {
			return nil, rowError(line, core.FieldWritingScore, err)
		}
		if err := rec.Validate(); err != nil {
			return nil, rowError(line, "", err)
		}

		row := Derive(rec, opts.threshold())
		row.Term = get(ColumnTerm)
		if !opts.Recompute {
			if v, ok := cell(ColumnPerformance); ok && v != "" {
				row.Performance = v
			}
			if v, ok := cell(ColumnAtRisk); ok && v != "" {
				if row.AtRisk, err = parseBool(v); err != nil {
					return nil, rowError(line, ColumnAtRisk, err)
				}
			}
		}
		ds.Rows = append(ds.Rows, row)
	}
	return ds, nil
}

// parseScore 接受 "72" 与 "72.0" 两种写法，四舍五入为整数
func parseScore(s string) (int, error) {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	return int(math.Round(f)), nil
}

func parseBool(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "1", "1.0", "true", "yes":
		return true, nil
	case "0", "0.0", "false", "no":
		return false, nil
	}
	return false, fmt.Errorf("invalid boolean %q", s)
}

func blank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

func rowError(line int, col string, err error) error {
	msg := fmt.Sprintf("dataset: line %d", line)
	if col != "" {
		msg += " column " + col
	}
	return core.WrapDomainError(core.ModuleDataset, core.ErrorCodeInvalidInput, err, "%s", msg)
}

// WriteCSV 以标准列名写出数据集（含派生列）；存在学期信息时追加 term 列。
func (d *Dataset) WriteCSV(w io.Writer) error {
	withTerm := d.HasTerms()
	cw := csv.NewWriter(w)
	header := append(append([]string(nil), requiredColumns...), ColumnAverageScore, ColumnPerformance, ColumnAtRisk)
	if withTerm {
		header = append(header, ColumnTerm)
	}
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, r := range d.Rows {
		rec := r.Record
		atRisk := "0"
		if r.AtRisk {
			atRisk = "1"
		}
		line := []string{
			rec.Gender, rec.RaceEthnicity, rec.ParentEdu, rec.Lunch, rec.PrepCourse,
			strconv.Itoa(rec.MathScore), strconv.Itoa(rec.ReadingScore), strconv.Itoa(rec.WritingScore),
			strconv.FormatFloat(r.AverageScore, 'f', 2, 64), r.Performance, atRisk,
		}
		if withTerm {
			line = append(line, r.Term)
		}
		if err := cw.Write(line); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
