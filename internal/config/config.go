package config

import (
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/sirupsen/logrus"
)

const (
	RefundFailureProceed = "proceed"
	RefundFailureBlock   = "block"
)

type Config struct {
	HTTPPort string `env:"HTTP_PORT" envDefault:"8080"`

	DBType     string `env:"DBType" envDefault:"sqlite"`
	DSNURL     string `env:"DSN_URL" envDefault:""`
	DBUser     string `env:"DBUser" envDefault:""`
	DBPassword string `env:"DBPassword" envDefault:""`
	DBAddr     string `env:"DBAddr" envDefault:""`
	DBName     string `env:"DBName" envDefault:"aistudio"`
	DBPath     string `env:"DBPath" envDefault:"datas/aistudio.db"`
	DBPort     string `env:"DBPort" envDefault:"3306"`

	StorageType          string `env:"STORAGE_TYPE" envDefault:"local"`
	StorageLocalDir      string `env:"STORAGE_LOCAL_DIR" envDefault:"datas/media"`
	StoragePublicBaseURL string `env:"STORAGE_PUBLIC_BASE_URL" envDefault:"/files"`

	// S3 兼容存储配置
	StorageS3Region          string `env:"STORAGE_S3_REGION"`
	StorageS3Bucket          string `env:"STORAGE_S3_BUCKET"`
	StorageS3Prefix          string `env:"STORAGE_S3_PREFIX"`
	StorageS3Endpoint        string `env:"STORAGE_S3_ENDPOINT"`
	StorageS3AccessKeyID     string `env:"STORAGE_S3_ACCESS_KEY_ID"`
	StorageS3SecretAccessKey string `env:"STORAGE_S3_SECRET_ACCESS_KEY"`
	StorageS3SessionToken    string `env:"STORAGE_S3_SESSION_TOKEN"`
	StorageS3ForcePathStyle  bool   `env:"STORAGE_S3_FORCE_PATH_STYLE" envDefault:"false"`

	// 阿里云 OSS 存储配置
	StorageOSSEndpoint        string `env:"STORAGE_OSS_ENDPOINT"`
	StorageOSSBucket          string `env:"STORAGE_OSS_BUCKET"`
	StorageOSSPrefix          string `env:"STORAGE_OSS_PREFIX"`
	StorageOSSAccessKeyID     string `env:"STORAGE_OSS_ACCESS_KEY_ID"`
	StorageOSSAccessKeySecret string `env:"STORAGE_OSS_ACCESS_KEY_SECRET"`

	// 腾讯云 COS 存储配置
	StorageCOSBucketURL string `env:"STORAGE_COS_BUCKET_URL"`
	StorageCOSPrefix    string `env:"STORAGE_COS_PREFIX"`
	StorageCOSSecretID  string `env:"STORAGE_COS_SECRET_ID"`
	StorageCOSSecretKey string `env:"STORAGE_COS_SECRET_KEY"`

	// Cloudflare R2 存储配置
	StorageR2AccountID       string `env:"STORAGE_R2_ACCOUNT_ID"`
	StorageR2Endpoint        string `env:"STORAGE_R2_ENDPOINT"`
	StorageR2Region          string `env:"STORAGE_R2_REGION" envDefault:"auto"`
	StorageR2Bucket          string `env:"STORAGE_R2_BUCKET"`
	StorageR2Prefix          string `env:"STORAGE_R2_PREFIX"`
	StorageR2AccessKeyID     string `env:"STORAGE_R2_ACCESS_KEY_ID"`
	StorageR2SecretAccessKey string `env:"STORAGE_R2_SECRET_ACCESS_KEY"`

	JWTSecret            string `env:"JWT_SECRET" envDefault:"dev-secret-change-me"`
	JWTIssuer            string `env:"JWT_ISSUER" envDefault:"aistudio"`
	JWTExpirationMinutes int    `env:"JWT_EXPIRATION_MINUTES" envDefault:"1440"`

	// 首个用户注册后是否继续开放注册
	RegistrationOpen bool `env:"REGISTRATION_OPEN" envDefault:"true"`
	// 服务商回调共享密钥，为空时不校验
	CallbackSecret string `env:"AI_CALLBACK_SECRET"`

	// 积分账本
	RefundFailureMode    string `env:"LEDGER_REFUND_FAILURE_MODE" envDefault:"proceed"`
	ReconcileCron        string `env:"LEDGER_RECONCILE_CRON" envDefault:"@every 5m"`
	ReconcileBatchSize   int    `env:"LEDGER_RECONCILE_BATCH" envDefault:"50"`
	DefaultSignupCredits int64  `env:"DEFAULT_SIGNUP_CREDITS" envDefault:"0"`
	SignupCreditsDays    int    `env:"SIGNUP_CREDITS_VALID_DAYS" envDefault:"0"`

	SessionLookupTimeoutMS int `env:"SESSION_LOOKUP_TIMEOUT_MS" envDefault:"3000"`

	// 结果提取与媒体转存
	ExtractorExcludedHosts []string `env:"EXTRACTOR_EXCLUDED_HOSTS" envSeparator:","`
	MediaPersistHosts      []string `env:"MEDIA_PERSIST_HOSTS" envSeparator:"," envDefault:"wavespeed"`
	MediaPersistWorkers    int      `env:"MEDIA_PERSIST_WORKERS" envDefault:"4"`
}

// SessionLookupTimeout returns the bounded wait used by optional-auth lookups.
func (c Config) SessionLookupTimeout() time.Duration {
	if c.SessionLookupTimeoutMS <= 0 {
		return 3 * time.Second
	}
	return time.Duration(c.SessionLookupTimeoutMS) * time.Millisecond
}

// BlockOnRefundFailure reports whether a failed refund aborts the task update.
func (c Config) BlockOnRefundFailure() bool {
	return strings.EqualFold(strings.TrimSpace(c.RefundFailureMode), RefundFailureBlock)
}

func ParseConfig() (Config, error) {
	var Conf Config
	err := env.Parse(&Conf)
	if err != nil {
		logrus.WithError(err).Error("env.Parse error")
		return Config{}, err
	}
	logrus.WithFields(logrus.Fields{
		"db_type":      Conf.DBType,
		"storage_type": Conf.StorageType,
		"refund_mode":  Conf.RefundFailureMode,
	}).Debug("config_loaded")
	return Conf, nil
}
