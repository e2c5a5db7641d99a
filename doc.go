// Package gradekit 是学生成绩预测与可解释性工具包。
//
// 设计要点：
// - Pipeline-first: 一次预测由 Node 串联（Encode → Predict → Explain → PostProcess）
// - Schema-first: 特征向量的列名与顺序恒等于模型 schema，不一致即报 SCHEMA_MISMATCH
// - Labels-first: labels 全链路透传与标准化 merge，记录每个节点做了什么
package gradekit

import "github.com/rushteam/gradekit/pipeline"

// 轻量 facade：便于直接 import "gradekit" 使用核心抽象。
type Pipeline = pipeline.Pipeline
type Node = pipeline.Node
type Kind = pipeline.Kind

const (
	KindEncode      = pipeline.KindEncode
	KindPredict     = pipeline.KindPredict
	KindExplain     = pipeline.KindExplain
	KindPostProcess = pipeline.KindPostProcess
)
