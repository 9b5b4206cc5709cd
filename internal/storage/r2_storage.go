package storage

import (
	"aistudio/internal/config"
	"errors"
	"fmt"
	"strings"
)

// NewR2Storage 通过 S3 兼容协议连接 Cloudflare R2。
// R2 的 API 地址不能公开访问，生产环境需要 STORAGE_PUBLIC_BASE_URL 指向绑定的域名。
func NewR2Storage(cfg config.Config) (Storage, error) {
	bucket := strings.TrimSpace(cfg.StorageR2Bucket)
	if bucket == "" {
		return nil, errors.New("storage: missing R2 bucket")
	}
	endpoint, err := r2Endpoint(cfg.StorageR2Endpoint, cfg.StorageR2AccountID)
	if err != nil {
		return nil, err
	}
	region := strings.TrimSpace(cfg.StorageR2Region)
	if region == "" {
		region = "auto"
	}

	client, err := newS3Client(s3ClientOptions{
		Region:          region,
		Endpoint:        endpoint,
		AccessKeyID:     cfg.StorageR2AccessKeyID,
		SecretAccessKey: cfg.StorageR2SecretAccessKey,
		ForcePathStyle:  true,
	})
	if err != nil {
		return nil, fmt.Errorf("storage: create R2 client: %w", err)
	}

	return &remoteS3Storage{
		client:     client,
		bucket:     bucket,
		prefix:     trimPrefix(cfg.StorageR2Prefix),
		publicBase: publicBaseOr(cfg.StoragePublicBaseURL, s3BucketURL(endpoint, region, bucket, true)),
	}, nil
}

// r2Endpoint 优先使用显式配置的地址，否则由账号 ID 拼出默认地址。
func r2Endpoint(endpoint, accountID string) (string, error) {
	if endpoint = strings.TrimSpace(endpoint); endpoint != "" {
		return endpoint, nil
	}
	accountID = strings.TrimSpace(accountID)
	if accountID == "" {
		return "", errors.New("storage: missing R2 endpoint or account id")
	}
	return fmt.Sprintf("https://%s.r2.cloudflarestorage.com", accountID), nil
}
