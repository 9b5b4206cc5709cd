package service

import (
	"aistudio/internal/entity"
	"aistudio/internal/entity/dto"
	"aistudio/internal/ledger"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestCreditServiceGrant(t *testing.T) {
	repo := newTestRepo(t)
	credits := NewCreditService(repo)
	credits.now = func() time.Time { return testNow }
	ctx := context.Background()

	grant, err := credits.Grant(ctx, dto.GrantCreditsRequest{UserID: " user-1 ", Credits: 30, ValidDays: 30})
	require.NoError(t, err)
	require.Equal(t, "user-1", grant.UserID)
	require.Equal(t, entity.CreditSceneGift, grant.TransactionScene)
	require.NotNil(t, grant.ExpiresAt)
	require.True(t, grant.ExpiresAt.Equal(testNow.AddDate(0, 0, 30)))

	explicit := testNow.Add(2 * time.Hour)
	grant, err = credits.Grant(ctx, dto.GrantCreditsRequest{UserID: "user-1", Credits: 5, ExpiresAt: &explicit, ValidDays: 30, Scene: entity.CreditScenePayment})
	require.NoError(t, err)
	require.True(t, grant.ExpiresAt.Equal(explicit))

	balance, err := credits.Balance(ctx, "user-1")
	require.NoError(t, err)
	require.Equal(t, int64(35), balance)

	_, err = credits.Grant(ctx, dto.GrantCreditsRequest{UserID: "", Credits: 5})
	require.ErrorIs(t, err, ledger.ErrMissingUser)
	_, err = credits.Grant(ctx, dto.GrantCreditsRequest{UserID: "user-1", Credits: 0})
	require.ErrorIs(t, err, ledger.ErrInvalidCreditAmount)
}

func TestCreditServiceBalanceForAnonymousIsZero(t *testing.T) {
	credits := NewCreditService(newTestRepo(t))
	balance, err := credits.Balance(context.Background(), "  ")
	require.NoError(t, err)
	require.Zero(t, balance)
}

func TestCreditServiceSignupBonus(t *testing.T) {
	repo := newTestRepo(t)
	credits := NewCreditService(repo)
	ctx := context.Background()
	user := &entity.DbUser{ID: "user-1", Email: "a@example.com"}

	require.NoError(t, credits.GrantSignupBonus(ctx, user, 0, 0))
	balance, err := credits.Balance(ctx, user.ID)
	require.NoError(t, err)
	require.Zero(t, balance)

	require.NoError(t, credits.GrantSignupBonus(ctx, user, 15, 0))
	list, err := credits.List(ctx, dto.CreditQuery{UserID: user.ID})
	require.NoError(t, err)
	require.Len(t, list.Credits, 1)
	require.Equal(t, entity.CreditSceneSignup, list.Credits[0].TransactionScene)
	require.Equal(t, int64(15), list.Credits[0].RemainingCredits)
}

func TestCreditServiceRefundAndAttachBalances(t *testing.T) {
	repo := newTestRepo(t)
	credits := NewCreditService(repo)
	ctx := context.Background()
	grantTo(t, repo, "user-1", 10)

	entry, err := repo.ConsumeCredits(ctx, entity.ConsumeCreditsRequest{UserID: "user-1", Credits: 7})
	require.NoError(t, err)

	users := credits.AttachBalances(ctx, []dto.UserSummary{{ID: "user-1"}, {ID: "user-2"}})
	require.Equal(t, int64(3), *users[0].Credits)
	require.Equal(t, int64(0), *users[1].Credits)

	refunded, err := credits.Refund(ctx, entry.ID)
	require.NoError(t, err)
	require.True(t, refunded)
	refunded, err = credits.Refund(ctx, entry.ID)
	require.NoError(t, err)
	require.False(t, refunded)

	users = credits.AttachBalances(ctx, []dto.UserSummary{{ID: "user-1"}})
	require.Equal(t, int64(10), *users[0].Credits)
}
