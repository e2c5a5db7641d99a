package store

import (
	"context"
	"fmt"
	"os"

	"github.com/rushteam/gradekit/core"
)

// ModelFiles 是一个模型在本地的产物文件，Meta 与 Labels 可为空
type ModelFiles struct {
	Artifact string
	Meta     string
	Labels   string
}

// Publish 把本地模型产物写入 Store，返回写入的 key（产物、元数据、标签编码器的顺序）。
// 之后以 source: redis 启动时，models[].artifact 填 ArtifactKey(model) 即可。
func Publish(ctx context.Context, s core.Store, model string, files ModelFiles) ([]string, error) {
	if files.Artifact == "" {
		return nil, fmt.Errorf("publish %s: empty artifact path", model)
	}
	pairs := []struct{ key, path string }{
		{ArtifactKey(model), files.Artifact},
		{MetaKey(model), files.Meta},
		{LabelsKey(model), files.Labels},
	}
	var keys []string
	for _, p := range pairs {
		if p.path == "" {
			continue
		}
		data, err := os.ReadFile(p.path)
		if err != nil {
			return keys, fmt.Errorf("publish %s: %w", model, err)
		}
		if err := s.Set(ctx, p.key, data); err != nil {
			return keys, fmt.Errorf("publish %s: set %s: %w", model, p.key, err)
		}
		keys = append(keys, p.key)
	}
	return keys, nil
}
