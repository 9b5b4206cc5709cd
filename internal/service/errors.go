package service

import "errors"

var (
	// ErrTaskNotFound 表示任务不存在或不属于当前用户。
	ErrTaskNotFound = errors.New("task not found")
	// ErrPromptRequired 表示生成请求缺少提示词。
	ErrPromptRequired = errors.New("prompt required")
	// ErrInvalidMediaType 表示未知的媒体类型。
	ErrInvalidMediaType = errors.New("invalid media type")
	ErrUnauthenticated  = errors.New("authentication required")
)
