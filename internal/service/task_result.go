package service

import (
	"aistudio/internal/entity"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// taskResult 描述写入 ai_tasks.task_result 的结果文档。
type taskResult struct {
	Status      entity.AITaskStatus
	URLs        []string
	SourceURLs  []string
	Error       string
	Raw         []byte
	PersistedAt time.Time
}

// encode 生成 {status, imageUrls, sourceImageUrls, error, persistedAt, rawData}。
// rawData 为合法 JSON 时原样嵌入，否则按字符串保存。
func (r taskResult) encode() (string, error) {
	doc := "{}"
	var err error
	if doc, err = sjson.Set(doc, "status", string(r.Status)); err != nil {
		return "", err
	}
	if len(r.URLs) > 0 {
		if doc, err = sjson.Set(doc, "imageUrls", r.URLs); err != nil {
			return "", err
		}
	}
	if len(r.SourceURLs) > 0 {
		if doc, err = sjson.Set(doc, "sourceImageUrls", r.SourceURLs); err != nil {
			return "", err
		}
	}
	if msg := strings.TrimSpace(r.Error); msg != "" {
		if doc, err = sjson.Set(doc, "error", msg); err != nil {
			return "", err
		}
	}
	if !r.PersistedAt.IsZero() {
		if doc, err = sjson.Set(doc, "persistedAt", r.PersistedAt.UTC().Format(time.RFC3339)); err != nil {
			return "", err
		}
	}
	if raw := strings.TrimSpace(string(r.Raw)); raw != "" {
		if gjson.Valid(raw) {
			doc, err = sjson.SetRaw(doc, "rawData", raw)
		} else {
			doc, err = sjson.Set(doc, "rawData", raw)
		}
		if err != nil {
			return "", err
		}
	}
	return doc, nil
}

// storedResultURLs 读取已写入结果文档的 imageUrls，不是本服务写入的文档时返回 nil。
func storedResultURLs(taskResult string) []string {
	if strings.TrimSpace(taskResult) == "" || !gjson.Valid(taskResult) {
		return nil
	}
	list := gjson.Get(taskResult, "imageUrls")
	if !list.IsArray() {
		return nil
	}
	seen := make(map[string]struct{})
	var urls []string
	for _, item := range list.Array() {
		u := strings.TrimSpace(item.String())
		if u == "" {
			continue
		}
		if _, ok := seen[u]; ok {
			continue
		}
		seen[u] = struct{}{}
		urls = append(urls, u)
	}
	return urls
}
