package storage

import (
	"aistudio/internal/config"
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/tencentyun/cos-go-sdk-v5"
)

type cosStorage struct {
	client     *cos.Client
	prefix     string
	publicBase string
}

// NewCOSStorage 使用 STORAGE_COS_BUCKET_URL 与密钥连接腾讯云 COS。
func NewCOSStorage(cfg config.Config) (Storage, error) {
	baseURL := strings.TrimSpace(cfg.StorageCOSBucketURL)
	if baseURL == "" {
		return nil, errors.New("storage: missing COS bucket URL")
	}
	parsedURL, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("storage: parse COS bucket URL: %w", err)
	}

	secretID := strings.TrimSpace(cfg.StorageCOSSecretID)
	secretKey := strings.TrimSpace(cfg.StorageCOSSecretKey)
	if secretID == "" || secretKey == "" {
		return nil, errors.New("storage: missing COS credentials")
	}

	client := cos.NewClient(&cos.BaseURL{BucketURL: parsedURL}, &http.Client{
		Transport: &cos.AuthorizationTransport{SecretID: secretID, SecretKey: secretKey},
		Timeout:   remoteUploadTimeout,
	})

	return &cosStorage{
		client:     client,
		prefix:     trimPrefix(cfg.StorageCOSPrefix),
		publicBase: publicBaseOr(cfg.StoragePublicBaseURL, baseURL),
	}, nil
}

// URL 返回对象的公开地址，未配置 STORAGE_PUBLIC_BASE_URL 时使用桶地址。
func (s *cosStorage) URL(key string) string {
	return joinURL(s.publicBase, key)
}

// Put 上传对象；HEAD 命中时复用已有对象。
func (s *cosStorage) Put(ctx context.Context, obj MediaObject) (string, error) {
	key, err := prepare(ctx, obj, s.prefix)
	if err != nil {
		return "", err
	}

	resp, err := s.client.Object.Head(ctx, key, nil)
	closeCOSBody(resp)
	if err == nil {
		return key, nil
	}
	if !cos.IsNotFoundError(err) {
		return "", fmt.Errorf("head object: %w", err)
	}

	header := http.Header{}
	header.Set("x-cos-meta-task-id", obj.TaskID)
	header.Set("x-cos-meta-provider", obj.Provider)
	resp, err = s.client.Object.Put(ctx, key, bytes.NewReader(obj.Data), &cos.ObjectPutOptions{
		ObjectPutHeaderOptions: &cos.ObjectPutHeaderOptions{
			ContentType:   contentType(obj),
			ContentLength: int64(len(obj.Data)),
			CacheControl:  mediaCacheControl,
			XCosMetaXXX:   &header,
		},
	})
	closeCOSBody(resp)
	if err != nil {
		return "", fmt.Errorf("put object %s: %w", key, err)
	}
	return key, nil
}

func closeCOSBody(resp *cos.Response) {
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
}

var _ Storage = (*cosStorage)(nil)
