package feature

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rushteam/gradekit/core"
)

// MetadataLoader 特征元数据加载器接口
// 支持从不同来源加载特征元数据（本地文件、HTTP 接口、KV 存储等）
type MetadataLoader interface {
	// Load 加载特征元数据
	// source 是数据源标识（文件路径、URL、存储 key 等）
	Load(ctx context.Context, source string) (*FeatureMetadata, error)
}

// FileMetadataLoader 本地文件特征元数据加载器。
// source 以 http:// 或 https:// 开头时改走 HTTP（远程模型服务常与 feature_meta 一起托管）。
type FileMetadataLoader struct {
	http *HTTPMetadataLoader
}

// NewFileMetadataLoader 创建本地文件特征元数据加载器
func NewFileMetadataLoader() *FileMetadataLoader {
	return &FileMetadataLoader{http: NewHTTPMetadataLoader(10 * time.Second)}
}

// Load 从本地文件（或 URL）加载特征元数据
func (l *FileMetadataLoader) Load(ctx context.Context, source string) (*FeatureMetadata, error) {
	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		return l.http.Load(ctx, source)
	}
	return LoadFeatureMetadataFromFile(source)
}

// StoreMetadataLoader 从 core.Store（如 Redis）加载特征元数据，source 为存储 key。
type StoreMetadataLoader struct {
	store core.Store
}

// NewStoreMetadataLoader 创建基于 KV 存储的加载器
//
// 用法：
//
//	rs, _ := store.NewRedisStore(ctx, "localhost:6379", "", 0)
//	loader := feature.NewStoreMetadataLoader(rs)
//	meta, err := loader.Load(ctx, store.MetaKey("label"))
func NewStoreMetadataLoader(s core.Store) *StoreMetadataLoader {
	return &StoreMetadataLoader{store: s}
}

// Load 从存储读取 feature_meta.json 内容
func (l *StoreMetadataLoader) Load(ctx context.Context, key string) (*FeatureMetadata, error) {
	data, err := l.store.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("从 %s 读取特征元数据失败 (key=%s): %w", l.store.Name(), key, err)
	}
	return ParseFeatureMetadata(data)
}
