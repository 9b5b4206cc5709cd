package storage

import (
	"fmt"
	"mime"
	"path"
	"strings"
	"time"
)

// MediaKey 返回 <media>/<yyyy>/<mm>/<dd>/ai-<media>-<provider>-<yyyymmdd>-<task>-<idx>.<ext>。
func MediaKey(obj MediaObject) string {
	created := obj.CreatedAt.UTC()
	if obj.CreatedAt.IsZero() {
		created = time.Now().UTC()
	}
	media := sanitizeSegment(obj.MediaType)
	if media == "" {
		media = "misc"
	}
	provider := sanitizeSegment(obj.Provider)
	if provider == "" {
		provider = "generic"
	}
	task := strings.Trim(sanitizeSegment(strings.ReplaceAll(obj.TaskID, " ", "-")), "-_")
	if task == "" {
		task = fmt.Sprintf("%d", created.UnixNano())
	}

	name := fmt.Sprintf("ai-%s-%s-%s-%s-%d.%s",
		media, provider, created.Format("20060102"), task, obj.Index, normalizeExtension(obj.Extension))
	return path.Join(media, created.Format("2006/01/02"), name)
}

func sanitizeSegment(value string) string {
	value = strings.TrimSpace(value)
	var b strings.Builder
	b.Grow(len(value))
	for i := 0; i < len(value); i++ {
		ch := value[i]
		switch {
		case ch >= 'a' && ch <= 'z', ch >= '0' && ch <= '9', ch == '-', ch == '_':
			b.WriteByte(ch)
		case ch >= 'A' && ch <= 'Z':
			b.WriteByte(ch + 'a' - 'A')
		}
	}
	return b.String()
}

func normalizeExtension(ext string) string {
	ext = sanitizeSegment(strings.TrimPrefix(strings.TrimSpace(ext), "."))
	if ext == "" {
		return "bin"
	}
	return ext
}

// contentType 优先使用下载时拿到的类型，否则按扩展名推断。
func contentType(obj MediaObject) string {
	if ct := strings.TrimSpace(obj.ContentType); ct != "" && ct != "application/octet-stream" {
		return ct
	}
	if ct := mime.TypeByExtension("." + normalizeExtension(obj.Extension)); ct != "" {
		return ct
	}
	return "application/octet-stream"
}

func joinPrefix(prefix, key string) string {
	cleanPrefix := trimPrefix(prefix)
	if cleanPrefix == "" {
		return strings.TrimLeft(key, "/")
	}
	return path.Join(cleanPrefix, strings.TrimLeft(key, "/"))
}

func trimPrefix(prefix string) string {
	return strings.Trim(strings.TrimSpace(prefix), "/")
}

// joinURL 拼接公开访问前缀和对象 key，key 只包含安全字符，不做编码。
func joinURL(base, key string) string {
	key = strings.TrimLeft(strings.TrimSpace(key), "/")
	base = strings.TrimRight(strings.TrimSpace(base), "/")
	if key == "" {
		return base
	}
	if base == "" {
		return "/" + key
	}
	return base + "/" + key
}

// publicBaseOr 返回配置的绝对公开地址；相对路径（本地默认值）对远端后端没有意义，改用桶地址。
func publicBaseOr(configured, fallback string) string {
	configured = strings.TrimSpace(configured)
	lower := strings.ToLower(configured)
	if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") {
		return strings.TrimRight(configured, "/")
	}
	return strings.TrimRight(fallback, "/")
}

// ExtensionFromURL guesses a media extension from the last path segment of
// rawURL, returning fallback when none is recognised.
func ExtensionFromURL(rawURL, fallback string) string {
	trimmed := rawURL
	if idx := strings.IndexAny(trimmed, "?#"); idx >= 0 {
		trimmed = trimmed[:idx]
	}
	ext := strings.ToLower(strings.TrimPrefix(path.Ext(trimmed), "."))
	switch ext {
	case "jpg", "jpeg", "png", "webp", "gif", "bmp", "mp4", "mov", "webm", "mp3", "wav":
		return ext
	default:
		return fallback
	}
}
