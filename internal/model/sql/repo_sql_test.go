package sql

import (
	"aistudio/internal/entity"
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestRepository(t *testing.T, opts ...Option) (*GormRepository, *gorm.DB) {
	t.Helper()

	dsn := "file:" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		NowFunc:        func() time.Time { return time.Now().UTC() },
		TranslateError: true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, AutoMigrate(db))

	opts = append([]Option{WithClock(func() time.Time { return testNow })}, opts...)
	return NewGormRepository(db, opts...), db
}

type grantSpec struct {
	credits   int64
	expiresIn time.Duration // 0 means never expires
	age       time.Duration
}

func seedGrant(t *testing.T, repo *GormRepository, userID string, g grantSpec) *entity.DbCredit {
	t.Helper()

	credit := &entity.DbCredit{
		UserID:           userID,
		Credits:          g.credits,
		TransactionScene: "gift",
		CreatedAt:        testNow.Add(-time.Hour - g.age),
	}
	if g.expiresIn != 0 {
		expires := testNow.Add(g.expiresIn)
		credit.ExpiresAt = &expires
	}
	require.NoError(t, repo.GrantCredits(context.Background(), credit))
	return credit
}

func reloadCredit(t *testing.T, repo *GormRepository, id string) *entity.DbCredit {
	t.Helper()
	credit, err := repo.GetCredit(context.Background(), id)
	require.NoError(t, err)
	return credit
}

func countRows(t *testing.T, db *gorm.DB, model interface{}, query string, args ...interface{}) int64 {
	t.Helper()
	var count int64
	require.NoError(t, db.Model(model).Where(query, args...).Count(&count).Error)
	return count
}
