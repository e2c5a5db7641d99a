package dsl

import (
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"

	"github.com/rushteam/gradekit/core"
)

var (
	// celEnv 是全局的 CEL 环境，线程安全，可复用
	celEnv     *cel.Env
	celEnvErr  error
	celEnvOnce sync.Once
)

// initCELEnv 初始化 CEL 环境，定义变量
func initCELEnv() (*cel.Env, error) {
	return cel.NewEnv(
		cel.Variable("record", cel.MapType(cel.StringType, cel.DynType)),
		cel.Variable("top", cel.MapType(cel.StringType, cel.DynType)),
		cel.Variable("prediction", cel.MapType(cel.StringType, cel.DynType)),
		cel.Variable("label", cel.MapType(cel.StringType, cel.DynType)),
	)
}

func getCELEnv() (*cel.Env, error) {
	celEnvOnce.Do(func() {
		celEnv, celEnvErr = initCELEnv()
	})
	return celEnv, celEnvErr
}

// Program 是编译后的布尔表达式，可被多个 goroutine 并发求值。
//
// 表达式语法（CEL 标准语法），可用变量：
//   - record：原始记录，如 record.prep_course == "none" / record.math_score < 50
//   - top：最重要的归因，top.feature（无归因时为 ""）与 top.score
//   - prediction：kind / label / at_risk / confidence
//   - label：链路 Label 的 value，如 label.explain == "tree"
//
// 示例：
//   - `top.feature.contains("math")`
//   - `prediction.at_risk && record.lunch == "free/reduced"`
type Program struct {
	expr string
	prg  cel.Program
}

// Compile 编译表达式，要求输出为 bool。
func Compile(expr string) (*Program, error) {
	env, err := getCELEnv()
	if err != nil {
		return nil, fmt.Errorf("cel env: %w", err)
	}
	ast, issues := env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("compile %q: %w", expr, issues.Err())
	}
	if ast.OutputType() != cel.BoolType && ast.OutputType() != cel.DynType {
		return nil, fmt.Errorf("compile %q: expression must return bool, got %s", expr, ast.OutputType())
	}
	prg, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("program %q: %w", expr, err)
	}
	return &Program{expr: expr, prg: prg}, nil
}

// String 返回原始表达式
func (p *Program) String() string { return p.expr }

// Eval 对输入求值，返回布尔结果。
func (p *Program) Eval(input map[string]any) (bool, error) {
	out, _, err := p.prg.Eval(input)
	if err != nil {
		return false, fmt.Errorf("eval %q: %w", p.expr, err)
	}
	result, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("eval %q: expression must return boolean, got %T", p.expr, out.Value())
	}
	return result, nil
}

// BuildInput 由记录、最重要归因与预测结果构建表达式输入。
func BuildInput(record core.StudentRecord, top core.AttributionSet, p *core.Prediction) map[string]any {
	topMap := map[string]any{"feature": "", "score": 0.0}
	if first, ok := top.First(); ok {
		topMap["feature"] = first.Feature
		topMap["score"] = first.Score
	}

	prediction := map[string]any{
		"kind":       "",
		"label":      "",
		"at_risk":    false,
		"confidence": 0.0,
	}
	labels := map[string]any{}
	if p != nil {
		prediction["kind"] = p.Kind
		prediction["label"] = p.Label
		prediction["at_risk"] = p.AtRisk
		prediction["confidence"] = p.Confidence
		for k, v := range p.Labels {
			labels[k] = v.Value
		}
	}

	return map[string]any{
		"record":     record.AsMap(),
		"top":        topMap,
		"prediction": prediction,
		"label":      labels,
	}
}
