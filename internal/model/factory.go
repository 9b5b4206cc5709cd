package model

import (
	"aistudio/internal/config"
	"aistudio/internal/model/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/gorm/schema"
)

const (
	DBTypeMySQL    = "mysql"
	DBTypeSQLite   = "sqlite"
	DBTypePostgres = "postgres"

	defaultSQLitePath = "datas/aistudio.db"
)

// ErrDatabaseNotConfigured 表示没有配置 DBType。积分账本必须落库，因此不存在无数据库的运行模式。
var ErrDatabaseNotConfigured = errors.New("database is not configured")

// InitRepository 打开数据库、迁移表结构并返回仓库。
func InitRepository(cfg *config.Config) (Repository, error) {
	dbType := strings.ToLower(strings.TrimSpace(cfg.DBType))
	if dbType == "" {
		return nil, ErrDatabaseNotConfigured
	}

	dialector, err := dialectorFor(dbType, cfg)
	if err != nil {
		return nil, err
	}
	db, err := openGormDB(dialector, dbType)
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", dbType, err)
	}
	if err := sql.AutoMigrate(db); err != nil {
		return nil, fmt.Errorf("migrate schema: %w", err)
	}

	logrus.WithField("db_type", dbType).Info("repository_ready")
	return sql.NewGormRepository(db, sql.WithBlockOnRefundFailure(cfg.BlockOnRefundFailure())), nil
}

func dialectorFor(dbType string, cfg *config.Config) (gorm.Dialector, error) {
	switch dbType {
	case DBTypeMySQL:
		dsn := cfg.DSNURL
		if dsn == "" {
			dsn = fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
				cfg.DBUser, cfg.DBPassword, cfg.DBAddr, cfg.DBPort, cfg.DBName)
		}
		return mysql.Open(dsn), nil
	case DBTypePostgres:
		dsn := cfg.DSNURL
		if dsn == "" {
			dsn = fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable TimeZone=UTC",
				cfg.DBAddr, cfg.DBUser, cfg.DBPassword, cfg.DBName, cfg.DBPort)
		}
		return postgres.Open(dsn), nil
	case DBTypeSQLite:
		dsn, err := sqliteDSN(cfg.DBPath)
		if err != nil {
			return nil, err
		}
		return sqlite.Open(dsn), nil
	default:
		return nil, fmt.Errorf("unsupported database type: %s", dbType)
	}
}

// sqliteDSN 确保数据库目录存在。SQLite 不支持 SELECT ... FOR UPDATE，
// 写事务改用 BEGIN IMMEDIATE 串行化，扣费时不会出现两个事务读到同一余额。
func sqliteDSN(path string) (string, error) {
	if path == "" {
		path = defaultSQLitePath
	}
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", fmt.Errorf("create sqlite directory %q: %w", dir, err)
		}
	}
	if strings.Contains(path, "?") {
		return path, nil
	}
	return path + "?_busy_timeout=5000&_txlock=immediate", nil
}

func openGormDB(dialector gorm.Dialector, dbType string) (*gorm.DB, error) {
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.New(logrus.StandardLogger(), logger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
		}),
		NowFunc:                                  func() time.Time { return time.Now().UTC() },
		DisableForeignKeyConstraintWhenMigrating: true,
		TranslateError:                           true,
		NamingStrategy:                           schema.NamingStrategy{SingularTable: true},
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	if dbType == DBTypeSQLite {
		// 单文件数据库，多连接只会互相等待写锁
		sqlDB.SetMaxOpenConns(4)
	} else {
		sqlDB.SetMaxOpenConns(100)
	}
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetConnMaxLifetime(time.Hour)
	return db, nil
}
