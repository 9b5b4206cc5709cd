package storage

import (
	"aistudio/internal/config"
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aliyun/aliyun-oss-go-sdk/oss"
)

type ossStorage struct {
	bucket     *oss.Bucket
	prefix     string
	publicBase string
}

// NewOSSStorage 连接阿里云 OSS，STORAGE_OSS_ENDPOINT 不带桶名。
func NewOSSStorage(cfg config.Config) (Storage, error) {
	endpoint := strings.TrimSpace(cfg.StorageOSSEndpoint)
	if endpoint == "" {
		return nil, errors.New("storage: missing OSS endpoint")
	}
	bucketName := strings.TrimSpace(cfg.StorageOSSBucket)
	if bucketName == "" {
		return nil, errors.New("storage: missing OSS bucket")
	}
	accessKey := strings.TrimSpace(cfg.StorageOSSAccessKeyID)
	secretKey := strings.TrimSpace(cfg.StorageOSSAccessKeySecret)
	if accessKey == "" || secretKey == "" {
		return nil, errors.New("storage: missing OSS credentials")
	}

	client, err := oss.New(endpoint, accessKey, secretKey, oss.Timeout(10, int64(remoteUploadTimeout/time.Second)))
	if err != nil {
		return nil, fmt.Errorf("storage: create OSS client: %w", err)
	}
	bucket, err := client.Bucket(bucketName)
	if err != nil {
		return nil, fmt.Errorf("storage: open OSS bucket: %w", err)
	}

	return &ossStorage{
		bucket:     bucket,
		prefix:     trimPrefix(cfg.StorageOSSPrefix),
		publicBase: publicBaseOr(cfg.StoragePublicBaseURL, ossBucketURL(endpoint, bucketName)),
	}, nil
}

// ossBucketURL 返回 https://<bucket>.<endpoint> 形式的默认访问地址。
func ossBucketURL(endpoint, bucket string) string {
	host := strings.TrimPrefix(strings.TrimPrefix(endpoint, "https://"), "http://")
	return "https://" + bucket + "." + strings.TrimRight(host, "/")
}

// URL 返回对象的公开地址。
func (s *ossStorage) URL(key string) string {
	return joinURL(s.publicBase, key)
}

// Put 上传对象；对象已存在时复用。
func (s *ossStorage) Put(ctx context.Context, obj MediaObject) (string, error) {
	key, err := prepare(ctx, obj, s.prefix)
	if err != nil {
		return "", err
	}

	exists, err := s.bucket.IsObjectExist(key, oss.WithContext(ctx))
	if err != nil {
		return "", fmt.Errorf("check object: %w", err)
	}
	if exists {
		return key, nil
	}

	err = s.bucket.PutObject(key, bytes.NewReader(obj.Data),
		oss.WithContext(ctx),
		oss.ContentType(contentType(obj)),
		oss.CacheControl(mediaCacheControl),
		oss.Meta("task-id", obj.TaskID),
		oss.Meta("provider", obj.Provider),
	)
	if err != nil {
		return "", fmt.Errorf("put object %s: %w", key, err)
	}
	return key, nil
}

var _ Storage = (*ossStorage)(nil)
