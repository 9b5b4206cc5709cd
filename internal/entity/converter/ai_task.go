package converter

import (
	"aistudio/internal/entity/db"
	"aistudio/internal/entity/dto"
	"strings"
)

const defaultTaskSize = "1:1"

// AITaskToItem 将任务转换为客户端视图，urls 为已提取的媒体链接。
func AITaskToItem(t *db.AITask, urls []string) dto.AITaskItem {
	if t == nil {
		return dto.AITaskItem{}
	}
	if urls == nil {
		urls = []string{}
	}
	item := dto.AITaskItem{
		ID:          t.ID,
		Status:      string(t.Status),
		MediaType:   string(t.MediaType),
		Provider:    t.Provider,
		Model:       t.Model,
		Scene:       t.Scene,
		Type:        TaskTypeLabel(t.Scene),
		Prompt:      t.Prompt,
		Size:        TaskSize(t),
		TaskID:      t.TaskID,
		CostCredits: t.CostCredits,
		URLs:        urls,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
	if t.CreditID != nil {
		item.CreditID = *t.CreditID
	}
	if len(urls) > 0 {
		item.MainURL = urls[0]
	}
	return item
}

// TaskTypeLabel 根据场景返回展示用的任务类型。
func TaskTypeLabel(scene string) string {
	switch strings.ToLower(strings.TrimSpace(scene)) {
	case "image-to-image":
		return "Image to Image"
	case "text-to-video":
		return "Text to Video"
	case "image-to-video":
		return "Image to Video"
	default:
		return "Text to Image"
	}
}

// TaskSize 读取 options 中的尺寸，依次尝试 size 与 aspect_ratio。
func TaskSize(t *db.AITask) string {
	if t == nil {
		return defaultTaskSize
	}
	for _, key := range []string{"size", "aspect_ratio", "aspectRatio"} {
		if v := strings.TrimSpace(t.Options.String(key)); v != "" {
			return v
		}
	}
	return defaultTaskSize
}
