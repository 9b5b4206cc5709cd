package sql

import (
	"aistudio/internal/entity"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var errNotInitialised = errors.New("repository not initialised")

// GormRepository implements Repository using GORM
type GormRepository struct {
	db  *gorm.DB
	now func() time.Time

	// blockOnRefundFailure 为 true 时退款失败会中止任务状态更新
	blockOnRefundFailure bool
}

// Option customises a GormRepository.
type Option func(*GormRepository)

// WithBlockOnRefundFailure makes a failed refund abort the surrounding task update.
func WithBlockOnRefundFailure(block bool) Option {
	return func(r *GormRepository) {
		r.blockOnRefundFailure = block
	}
}

// WithClock overrides the time source used for expiry checks.
func WithClock(now func() time.Time) Option {
	return func(r *GormRepository) {
		if now != nil {
			r.now = now
		}
	}
}

// NewGormRepository creates a new repository instance
func NewGormRepository(db *gorm.DB, opts ...Option) *GormRepository {
	r := &GormRepository{db: db, now: time.Now}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// AutoMigrate 迁移所有表结构
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&entity.DbUser{},
		&entity.DbCredit{},
		&entity.DbAITask{},
		&entity.DbModelPrice{},
	)
}

func (r *GormRepository) currentTime() time.Time {
	return r.now().UTC()
}

// forUpdate 对查询加行锁；SQLite 方言会忽略该子句。
func forUpdate(tx *gorm.DB) *gorm.DB {
	return tx.Clauses(clause.Locking{Strength: "UPDATE"})
}

func normalizePage(page, pageSize int64) (int, int) {
	p, size := 1, 20
	if page > 0 {
		p = int(page)
	}
	if pageSize > 0 {
		size = int(pageSize)
	}
	if size > 100 {
		size = 100
	}
	return p, size
}

// calculatePagination calculates pagination metrics
func (r *GormRepository) calculatePagination(totalCount int64, page, pageSize int) *entity.Meta {
	if pageSize <= 0 {
		pageSize = 20
	}
	if page <= 0 {
		page = 1
	}

	return &entity.Meta{
		Total:    totalCount,
		Page:     int64(page),
		PageSize: int64(pageSize),
	}
}
