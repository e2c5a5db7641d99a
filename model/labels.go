package model

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
)

// LabelEncoder 对应 sklearn LabelEncoder：Classes[i] 是编码 i 对应的原始标签。
type LabelEncoder struct {
	Classes []string `json:"classes"`
}

// NewLabelEncoder 创建标签编码器，classes 不能为空且不能重复
func NewLabelEncoder(classes []string) (*LabelEncoder, error) {
	if len(classes) == 0 {
		return nil, fmt.Errorf("label encoder: no classes")
	}
	seen := make(map[string]struct{}, len(classes))
	for _, c := range classes {
		if _, ok := seen[c]; ok {
			return nil, fmt.Errorf("label encoder: duplicate class %q", c)
		}
		seen[c] = struct{}{}
	}
	return &LabelEncoder{Classes: append([]string(nil), classes...)}, nil
}

// LoadLabelEncoder 从 JSON 文件加载，格式：{"classes": ["Average", "Excellent", ...]}
func LoadLabelEncoder(path string) (*LabelEncoder, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("读取标签编码器失败: %w", err)
	}
	return ParseLabelEncoder(data)
}

// ParseLabelEncoder 解析标签编码器 JSON
func ParseLabelEncoder(data []byte) (*LabelEncoder, error) {
	var raw LabelEncoder
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("解析标签编码器失败: %w", err)
	}
	return NewLabelEncoder(raw.Classes)
}

// Decode 把编码转为原始标签
func (e *LabelEncoder) Decode(code int) (string, error) {
	if code < 0 || code >= len(e.Classes) {
		return "", fmt.Errorf("label encoder: code %d out of range [0,%d)", code, len(e.Classes))
	}
	return e.Classes[code], nil
}

// DecodeClass 把模型输出的类别取值（编码的字符串形式，如 "3"）转为原始标签
func (e *LabelEncoder) DecodeClass(class string) (string, error) {
	code, err := strconv.Atoi(class)
	if err != nil {
		return "", fmt.Errorf("label encoder: class %q is not an integer code", class)
	}
	return e.Decode(code)
}

// Encode 把原始标签转为编码
func (e *LabelEncoder) Encode(label string) (int, error) {
	for i, c := range e.Classes {
		if c == label {
			return i, nil
		}
	}
	return 0, fmt.Errorf("label encoder: unknown label %q", label)
}
