package common

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// JSONMap 以 JSON 文本存储任意键值，用于积分 metadata 与任务选项。
type JSONMap map[string]any

func (m JSONMap) Value() (driver.Value, error) {
	if len(m) == 0 {
		return "{}", nil
	}
	raw, err := json.Marshal(map[string]any(m))
	if err != nil {
		return nil, fmt.Errorf("encode json map: %w", err)
	}
	return string(raw), nil
}

// Scan 兼容驱动返回的 []byte 与 string，空值解码为空 map。
func (m *JSONMap) Scan(value any) error {
	var raw []byte
	switch v := value.(type) {
	case nil:
		*m = nil
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("unsupported type for JSONMap: %T", value)
	}
	if len(raw) == 0 {
		*m = JSONMap{}
		return nil
	}
	return json.Unmarshal(raw, (*map[string]any)(m))
}

// String 返回键对应的字符串值，不存在或类型不符时返回空串。
func (m JSONMap) String(key string) string {
	v, _ := m[key].(string)
	return v
}

// Meta 是分页元数据。
type Meta struct {
	Page     int64 `json:"page"`
	PageSize int64 `json:"page_size"`
	Total    int64 `json:"total"`
}

// BaseParams 是列表接口共用的分页参数。
type BaseParams struct {
	PageSize int64 `json:"page_size" form:"page_size"`
	Page     int64 `json:"page" form:"page"`
}

// MediaType 是生成任务的媒体类型。
type MediaType string

const (
	MediaImage MediaType = "image"
	MediaVideo MediaType = "video"
	MediaMusic MediaType = "music"
)

func (m MediaType) Valid() bool {
	switch m {
	case MediaImage, MediaVideo, MediaMusic:
		return true
	}
	return false
}
