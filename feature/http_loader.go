package feature

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// maxMetadataBytes 限制 feature_meta.json 响应体大小
const maxMetadataBytes = 1 << 20

// HTTPMetadataLoader 从 HTTP(S) 地址拉取 feature_meta.json，
// 常见于远程模型服务与其训练期 schema 一起托管的场景。
type HTTPMetadataLoader struct {
	client *http.Client
}

// NewHTTPMetadataLoader 创建加载器，timeout 为 0 时使用 10s
//
//	loader := feature.NewHTTPMetadataLoader(5 * time.Second)
//	meta, err := loader.Load(ctx, "http://models.internal/at_risk/feature_meta.json")
func NewHTTPMetadataLoader(timeout time.Duration) *HTTPMetadataLoader {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return NewHTTPMetadataLoaderWithClient(&http.Client{Timeout: timeout})
}

// NewHTTPMetadataLoaderWithClient 复用已有的 http.Client
func NewHTTPMetadataLoaderWithClient(client *http.Client) *HTTPMetadataLoader {
	return &HTTPMetadataLoader{client: client}
}

// Load 拉取并解析 feature_meta；非 200 响应视为失败
func (l *HTTPMetadataLoader) Load(ctx context.Context, url string) (*FeatureMetadata, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("feature meta %s: %w", url, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("feature meta %s: %w", url, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxMetadataBytes))
	if err != nil {
		return nil, fmt.Errorf("feature meta %s: read body: %w", url, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("feature meta %s: status %d", url, resp.StatusCode)
	}
	return ParseFeatureMetadata(data)
}
