package service

import (
	"aistudio/internal/entity"
	"aistudio/internal/storage"
	"aistudio/internal/utils"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/alitto/pond/v2"
	"github.com/sirupsen/logrus"
)

const (
	mediaDownloadTimeout = 60 * time.Second
	maxMediaBytes        = 200 << 20
)

// PersistRequest 描述一次需要转存的任务结果。
type PersistRequest struct {
	TaskID    string
	Provider  string
	MediaType entity.MediaType
	URLs      []string
}

// PersistResult 保持输入顺序：转存成功的位置替换为存储地址，失败的位置保留原地址。
type PersistResult struct {
	URLs      []string
	Persisted int
	Errors    []string
}

// MediaPersister 把服务商返回的临时地址复制到配置的存储后端。
type MediaPersister struct {
	store  storage.Storage
	hosts  []string
	client *http.Client
	pool   pond.Pool
	now    func() time.Time
}

// NewMediaPersister 创建转存器。hosts 中的子串命中 URL 时认为该地址是临时地址。
func NewMediaPersister(store storage.Storage, hosts []string, workers int) *MediaPersister {
	if workers <= 0 {
		workers = 4
	}
	normalized := make([]string, 0, len(hosts))
	for _, h := range hosts {
		if h = strings.ToLower(strings.TrimSpace(h)); h != "" {
			normalized = append(normalized, h)
		}
	}
	return &MediaPersister{
		store:  store,
		hosts:  normalized,
		client: &http.Client{Timeout: mediaDownloadTimeout},
		pool:   pond.NewPool(workers),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Stop waits for in-flight copies and releases the worker pool.
func (m *MediaPersister) Stop() {
	if m == nil || m.pool == nil {
		return
	}
	m.pool.StopAndWait()
}

// ShouldPersist 判断地址是否需要转存：内联 data URL、命中配置的主机，
// 或服务商预测结果路径（/predictions/）。
func (m *MediaPersister) ShouldPersist(rawURL string) bool {
	if m == nil {
		return false
	}
	trimmed := strings.TrimSpace(rawURL)
	if utils.IsDataURL(trimmed) {
		return true
	}
	lower := strings.ToLower(trimmed)
	if !strings.HasPrefix(lower, "http://") && !strings.HasPrefix(lower, "https://") {
		return false
	}
	if strings.Contains(lower, "/predictions/") {
		return true
	}
	for _, h := range m.hosts {
		if strings.Contains(lower, h) {
			return true
		}
	}
	return false
}

// Persist 并发转存需要转存的地址。单个地址失败不会影响其他地址。
func (m *MediaPersister) Persist(ctx context.Context, req PersistRequest) PersistResult {
	result := PersistResult{URLs: append([]string(nil), req.URLs...)}
	if m == nil || m.store == nil || len(req.URLs) == 0 {
		return result
	}

	errs := make([]error, len(req.URLs))
	stored := make([]string, len(req.URLs))
	tasks := make([]pond.Task, 0, len(req.URLs))
	for idx, u := range req.URLs {
		if !m.ShouldPersist(u) {
			continue
		}
		idx, u := idx, u
		tasks = append(tasks, m.pool.Submit(func() {
			stored[idx], errs[idx] = m.persistOne(ctx, req, idx, u)
		}))
	}
	for _, task := range tasks {
		_ = task.Wait()
	}

	for idx := range req.URLs {
		switch {
		case errs[idx] != nil:
			result.Errors = append(result.Errors, fmt.Sprintf("%d: %v", idx, errs[idx]))
			logrus.WithError(errs[idx]).WithFields(logrus.Fields{
				"task_id":  req.TaskID,
				"provider": req.Provider,
				"index":    idx,
			}).Warn("media_persist_failed")
		case stored[idx] != "":
			result.URLs[idx] = stored[idx]
			result.Persisted++
		}
	}
	return result
}

func (m *MediaPersister) persistOne(ctx context.Context, req PersistRequest, idx int, rawURL string) (string, error) {
	media, err := m.fetch(ctx, rawURL, req.MediaType)
	if err != nil {
		return "", err
	}
	media.MediaType = string(req.MediaType)
	media.Provider = req.Provider
	media.TaskID = req.TaskID
	media.Index = idx
	media.CreatedAt = m.now()

	key, err := m.store.Put(ctx, media)
	if err != nil {
		return "", fmt.Errorf("store media: %w", err)
	}
	return m.store.URL(key), nil
}

// fetch 下载或解码一份结果，返回待写入的数据、扩展名与内容类型。
func (m *MediaPersister) fetch(ctx context.Context, rawURL string, mediaType entity.MediaType) (storage.MediaObject, error) {
	trimmed := strings.TrimSpace(rawURL)
	if utils.IsDataURL(trimmed) {
		payload, err := utils.DecodeMediaPayload(trimmed)
		if err != nil {
			return storage.MediaObject{}, err
		}
		return storage.MediaObject{Data: payload.Data, Extension: payload.Extension, ContentType: payload.MimeType}, nil
	}

	reqCtx, cancel := context.WithTimeout(ctx, mediaDownloadTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, trimmed, nil)
	if err != nil {
		return storage.MediaObject{}, fmt.Errorf("create request: %w", err)
	}
	resp, err := m.client.Do(req)
	if err != nil {
		return storage.MediaObject{}, fmt.Errorf("download media: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return storage.MediaObject{}, fmt.Errorf("download media http %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxMediaBytes+1))
	if err != nil {
		return storage.MediaObject{}, fmt.Errorf("read media body: %w", err)
	}
	if len(data) > maxMediaBytes {
		return storage.MediaObject{}, fmt.Errorf("media exceeds %d bytes", maxMediaBytes)
	}
	if len(data) == 0 {
		return storage.MediaObject{}, fmt.Errorf("empty media body")
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}
	ext := storage.ExtensionFromURL(trimmed, "")
	if ext == "" {
		ext = utils.ExtensionFromMime(contentType)
	}
	if ext == "" {
		ext = "jpg"
		if mediaType == entity.MediaVideo {
			ext = "mp4"
		}
	}
	return storage.MediaObject{Data: data, Extension: ext, ContentType: contentType}, nil
}
