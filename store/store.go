package store

import "fmt"

// 注意：此包只包含实现，接口定义在 core 包（core.Store）。
//
// 模型相关数据按以下 key 布局存放：
//
//	gradekit:model:{name}:artifact   模型产物（JSON）
//	gradekit:model:{name}:meta       feature_meta.json
//	gradekit:model:{name}:labels     label encoder（JSON）

// KeyPrefix 是所有 key 的公共前缀
const KeyPrefix = "gradekit"

// ArtifactKey 返回模型产物的 key
func ArtifactKey(model string) string {
	return fmt.Sprintf("%s:model:%s:artifact", KeyPrefix, model)
}

// MetaKey 返回特征元数据的 key
func MetaKey(model string) string {
	return fmt.Sprintf("%s:model:%s:meta", KeyPrefix, model)
}

// LabelsKey 返回标签编码器的 key
func LabelsKey(model string) string {
	return fmt.Sprintf("%s:model:%s:labels", KeyPrefix, model)
}
