package utils

import (
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var ErrEmptyMediaPayload = errors.New("empty media payload")

// MediaPayload 是解码后的内联媒体。
type MediaPayload struct {
	Data      []byte
	MimeType  string
	Extension string
}

// DecodeMediaPayload 解码 data URL 或裸 base64。声明的 mime 无法识别时按内容嗅探，
// 仍无法识别的扩展名记为 bin。
func DecodeMediaPayload(payload string) (MediaPayload, error) {
	mimeType, body := SplitDataURL(strings.TrimSpace(payload))
	body = strings.TrimSpace(body)
	if body == "" {
		return MediaPayload{}, ErrEmptyMediaPayload
	}

	data, err := decodeBase64(body)
	if err != nil {
		return MediaPayload{}, fmt.Errorf("decode media payload: %w", err)
	}

	ext := ExtensionFromMime(mimeType)
	if ext == "" {
		mimeType = http.DetectContentType(data)
		ext = ExtensionFromMime(mimeType)
	}
	if ext == "" {
		ext = "bin"
	}
	return MediaPayload{Data: data, MimeType: mimeType, Extension: ext}, nil
}

// 部分上游返回不带填充的 base64
func decodeBase64(body string) ([]byte, error) {
	if strings.HasSuffix(body, "=") || len(body)%4 == 0 {
		return base64.StdEncoding.DecodeString(body)
	}
	return base64.RawStdEncoding.DecodeString(body)
}
