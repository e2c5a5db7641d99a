package model

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// RPCModel 通过 HTTP 调用外部模型服务（如托管 sklearn / XGBoost 的 predict_proba 服务）。
// 远程模型不暴露内部结构，因此不支持归因。
type RPCModel struct {
	name     string
	classes  []string
	features []string
	Endpoint string // 例如 "http://localhost:8080/predict_proba"
	Timeout  time.Duration
	Client   *http.Client
}

// NewRPCModel 创建远程模型，features 为请求中携带的特征名（即模型 schema）
func NewRPCModel(name, endpoint string, classes, features []string, timeout time.Duration) (*RPCModel, error) {
	if endpoint == "" {
		return nil, fmt.Errorf("rpc model %s: empty endpoint", name)
	}
	if len(classes) < 2 {
		return nil, fmt.Errorf("rpc model %s: need at least 2 classes, got %d", name, len(classes))
	}
	if timeout == 0 {
		timeout = 5 * time.Second
	}
	return &RPCModel{
		name:     name,
		classes:  append([]string(nil), classes...),
		features: append([]string(nil), features...),
		Endpoint: endpoint,
		Timeout:  timeout,
		Client:   &http.Client{Timeout: timeout},
	}, nil
}

func (m *RPCModel) Name() string      { return m.name }
func (m *RPCModel) Kind() string      { return KindRemote }
func (m *RPCModel) Classes() []string { return append([]string(nil), m.classes...) }
func (m *RPCModel) NumFeatures() int  { return len(m.features) }

// PredictProba 调用远程模型服务（单条，内部调用批量接口）。
func (m *RPCModel) PredictProba(ctx context.Context, x []float64) ([]float64, error) {
	probs, err := m.PredictProbaBatch(ctx, [][]float64{x})
	if err != nil {
		return nil, err
	}
	return probs[0], nil
}

// PredictProbaBatch 调用远程模型服务进行批量预测。
// 请求格式（JSON）：
//
//	{"feature_names": ["gender_female", ...], "instances": [[1, 0, ...], ...]}
//
// 响应格式（JSON）：
//
//	{"probabilities": [[0.1, 0.9], ...]}
func (m *RPCModel) PredictProbaBatch(ctx context.Context, instances [][]float64) ([][]float64, error) {
	if len(instances) == 0 {
		return [][]float64{}, nil
	}
	for i, x := range instances {
		if err := checkWidth(m.name, m.NumFeatures(), x); err != nil {
			return nil, fmt.Errorf("instance %d: %w", i, err)
		}
	}

	jsonData, err := json.Marshal(map[string]any{
		"feature_names": m.features,
		"instances":     instances,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.Endpoint, bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("rpc call: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("rpc error: status=%d, read body failed: %w", resp.StatusCode, err)
		}
		return nil, fmt.Errorf("rpc error: status=%d, body=%s", resp.StatusCode, string(body))
	}

	var result struct {
		Probabilities [][]float64 `json:"probabilities"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	if len(result.Probabilities) != len(instances) {
		return nil, fmt.Errorf("response count mismatch: expected %d, got %d", len(instances), len(result.Probabilities))
	}
	for i, p := range result.Probabilities {
		if len(p) != len(m.classes) {
			return nil, fmt.Errorf("response %d: expected %d probabilities, got %d", i, len(m.classes), len(p))
		}
	}
	return result.Probabilities, nil
}
