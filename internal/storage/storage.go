package storage

import (
	"aistudio/internal/config"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	TypeLocal = "local"
	TypeS3    = "s3"
	TypeOSS   = "oss"
	TypeCOS   = "cos"
	TypeR2    = "r2"
)

// remoteUploadTimeout 限制 OSS/COS 单次上传，视频结果可能较大。
const remoteUploadTimeout = 5 * time.Minute

var errEmptyMedia = errors.New("storage: empty media payload")

// MediaObject 是一份从服务商转存的生成结果。
//
// 对象 key 由 MediaType、Provider、TaskID、Index 与 CreatedAt 的日期确定，
// 同一任务同一位置的结果重复转存时直接复用已有对象。
type MediaObject struct {
	MediaType   string
	Provider    string
	TaskID      string
	Index       int
	Extension   string
	ContentType string
	Data        []byte
	CreatedAt   time.Time
}

// Storage 持久化生成结果，返回对象 key，并能把 key 转换为可公开访问的地址。
type Storage interface {
	Put(ctx context.Context, obj MediaObject) (string, error)
	URL(key string) string
}

// LocalBaseDirProvider 由可以直接通过 HTTP 提供目录的后端实现。
type LocalBaseDirProvider interface {
	LocalBaseDir() string
}

// NewStorage 根据 STORAGE_TYPE 选择后端。
func NewStorage(cfg config.Config) (Storage, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.StorageType)) {
	case "", TypeLocal:
		return NewLocalStorage(cfg.StorageLocalDir, cfg.StoragePublicBaseURL)
	case TypeS3:
		return NewS3Storage(cfg)
	case TypeOSS:
		return NewOSSStorage(cfg)
	case TypeCOS:
		return NewCOSStorage(cfg)
	case TypeR2:
		return NewR2Storage(cfg)
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", cfg.StorageType)
	}
}

// prepare 校验对象并计算带前缀的 key。
func prepare(ctx context.Context, obj MediaObject, prefix string) (string, error) {
	if len(obj.Data) == 0 {
		return "", errEmptyMedia
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	key := MediaKey(obj)
	if prefix != "" {
		key = joinPrefix(prefix, key)
	}
	return key, nil
}
