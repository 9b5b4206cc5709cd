package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// LocalStorage 把转存的媒体写到本地目录，由 HTTP 服务在 publicBase 下提供。
type LocalStorage struct {
	baseDir    string
	publicBase string
}

// NewLocalStorage 创建本地存储，目录不存在时自动创建。
func NewLocalStorage(baseDir, publicBase string) (*LocalStorage, error) {
	baseDir = strings.TrimSpace(baseDir)
	if baseDir == "" {
		baseDir = "datas/media"
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}
	publicBase = strings.TrimRight(strings.TrimSpace(publicBase), "/")
	if publicBase == "" {
		publicBase = "/files"
	}
	return &LocalStorage{baseDir: baseDir, publicBase: publicBase}, nil
}

func (s *LocalStorage) LocalBaseDir() string {
	return s.baseDir
}

// Put 写入对象。文件先写到同目录的临时文件再改名，并发转存同一 key 时不会读到半个文件。
func (s *LocalStorage) Put(ctx context.Context, obj MediaObject) (string, error) {
	key, err := prepare(ctx, obj, "")
	if err != nil {
		return "", err
	}
	absPath := filepath.Join(s.baseDir, filepath.FromSlash(key))
	if info, err := os.Stat(absPath); err == nil && !info.IsDir() {
		return key, nil
	}

	dir := filepath.Dir(absPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".upload-*")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(obj.Data); err != nil {
		tmp.Close()
		return "", fmt.Errorf("write file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("close file: %w", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return "", fmt.Errorf("chmod file: %w", err)
	}
	if err := os.Rename(tmpName, absPath); err != nil {
		return "", fmt.Errorf("rename file: %w", err)
	}
	return key, nil
}

func (s *LocalStorage) URL(key string) string {
	return joinURL(s.publicBase, key)
}

var _ Storage = (*LocalStorage)(nil)
var _ LocalBaseDirProvider = (*LocalStorage)(nil)
