package service

import (
	"aistudio/internal/entity"
	sqlrepo "aistudio/internal/model/sql"
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

func newTestRepo(t *testing.T, opts ...sqlrepo.Option) *sqlrepo.GormRepository {
	t.Helper()
	repo, _ := newTestRepoWithDB(t, opts...)
	return repo
}

func newTestRepoWithDB(t *testing.T, opts ...sqlrepo.Option) (*sqlrepo.GormRepository, *gorm.DB) {
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

	require.NoError(t, sqlrepo.AutoMigrate(db))
	opts = append([]sqlrepo.Option{sqlrepo.WithClock(func() time.Time { return testNow })}, opts...)
	return sqlrepo.NewGormRepository(db, opts...), db
}

func grantTo(t *testing.T, repo *sqlrepo.GormRepository, userID string, credits int64) *entity.DbCredit {
	t.Helper()
	credit := &entity.DbCredit{
		UserID:           userID,
		Credits:          credits,
		TransactionScene: entity.CreditSceneGift,
		CreatedAt:        testNow.Add(-time.Hour),
	}
	require.NoError(t, repo.GrantCredits(context.Background(), credit))
	return credit
}

func remaining(t *testing.T, repo *sqlrepo.GormRepository, creditID string) int64 {
	t.Helper()
	credit, err := repo.GetCredit(context.Background(), creditID)
	require.NoError(t, err)
	return credit.RemainingCredits
}
