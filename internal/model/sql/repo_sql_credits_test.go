package sql

import (
	"aistudio/internal/entity"
	"aistudio/internal/ledger"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestConsumeCreditsFromSingleGrant(t *testing.T) {
	repo, _ := newTestRepository(t)
	ctx := context.Background()
	grant := seedGrant(t, repo, "user-1", grantSpec{credits: 10})

	entry, err := repo.ConsumeCredits(ctx, entity.ConsumeCreditsRequest{UserID: "user-1", Credits: 4, Scene: "text-to-image"})
	require.NoError(t, err)

	require.Equal(t, int64(-4), entry.Credits)
	require.Equal(t, entity.TransactionTypeConsume, entry.TransactionType)
	require.Equal(t, entity.ConsumedDetail{{CreditID: grant.ID, CreditsConsumed: 4}}, entry.ConsumedDetail)
	require.Equal(t, int64(6), reloadCredit(t, repo, grant.ID).RemainingCredits)

	stored := reloadCredit(t, repo, entry.ID)
	require.Equal(t, entity.CreditStatusActive, stored.Status)
	require.Equal(t, int64(4), stored.ConsumedDetail.Total())
}

func TestConsumeCreditsDrawsEarliestExpiryFirst(t *testing.T) {
	repo, _ := newTestRepository(t)
	ctx := context.Background()
	forever := seedGrant(t, repo, "user-1", grantSpec{credits: 100, age: 48 * time.Hour})
	later := seedGrant(t, repo, "user-1", grantSpec{credits: 5, expiresIn: 48 * time.Hour, age: 24 * time.Hour})
	sooner := seedGrant(t, repo, "user-1", grantSpec{credits: 3, expiresIn: 24 * time.Hour})

	entry, err := repo.ConsumeCredits(ctx, entity.ConsumeCreditsRequest{UserID: "user-1", Credits: 6})
	require.NoError(t, err)

	require.Equal(t, entity.ConsumedDetail{
		{CreditID: sooner.ID, CreditsConsumed: 3},
		{CreditID: later.ID, CreditsConsumed: 3},
	}, entry.ConsumedDetail)
	require.Equal(t, int64(0), reloadCredit(t, repo, sooner.ID).RemainingCredits)
	require.Equal(t, int64(2), reloadCredit(t, repo, later.ID).RemainingCredits)
	require.Equal(t, int64(100), reloadCredit(t, repo, forever.ID).RemainingCredits)
}

func TestConsumeCreditsNeverExpiringGrantsByCreationOrder(t *testing.T) {
	repo, _ := newTestRepository(t)
	older := seedGrant(t, repo, "user-1", grantSpec{credits: 3, age: time.Hour})
	newer := seedGrant(t, repo, "user-1", grantSpec{credits: 5})

	_, err := repo.ConsumeCredits(context.Background(), entity.ConsumeCreditsRequest{UserID: "user-1", Credits: 6})
	require.NoError(t, err)

	require.Equal(t, int64(0), reloadCredit(t, repo, older.ID).RemainingCredits)
	require.Equal(t, int64(2), reloadCredit(t, repo, newer.ID).RemainingCredits)
}

func TestConsumeCreditsInsufficientLeavesLedgerUntouched(t *testing.T) {
	repo, db := newTestRepository(t)
	ctx := context.Background()
	first := seedGrant(t, repo, "user-1", grantSpec{credits: 2})
	second := seedGrant(t, repo, "user-1", grantSpec{credits: 1})
	expired := seedGrant(t, repo, "user-1", grantSpec{credits: 50, expiresIn: -time.Minute})

	_, err := repo.ConsumeCredits(ctx, entity.ConsumeCreditsRequest{UserID: "user-1", Credits: 5})
	require.Error(t, err)
	require.True(t, errors.Is(err, ledger.ErrInsufficientCredits))

	var insufficient *ledger.InsufficientCreditsError
	require.True(t, errors.As(err, &insufficient))
	require.Equal(t, int64(5), insufficient.Required)
	require.Equal(t, int64(3), insufficient.Available)

	require.Equal(t, int64(2), reloadCredit(t, repo, first.ID).RemainingCredits)
	require.Equal(t, int64(1), reloadCredit(t, repo, second.ID).RemainingCredits)
	require.Equal(t, int64(50), reloadCredit(t, repo, expired.ID).RemainingCredits)
	require.Zero(t, countRows(t, db, &entity.DbCredit{}, "transaction_type = ?", entity.TransactionTypeConsume))
}

func TestConsumeCreditsRejectsInvalidRequests(t *testing.T) {
	repo, _ := newTestRepository(t)
	ctx := context.Background()

	tests := []struct {
		name string
		req  entity.ConsumeCreditsRequest
		want error
	}{
		{name: "zero amount", req: entity.ConsumeCreditsRequest{UserID: "user-1"}, want: ledger.ErrInvalidCreditAmount},
		{name: "negative amount", req: entity.ConsumeCreditsRequest{UserID: "user-1", Credits: -3}, want: ledger.ErrInvalidCreditAmount},
		{name: "missing user", req: entity.ConsumeCreditsRequest{Credits: 1}, want: ledger.ErrMissingUser},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := repo.ConsumeCredits(ctx, tt.req)
			require.ErrorIs(t, err, tt.want)
		})
	}
}

func TestRefundConsumptionRestoresGrantsOnce(t *testing.T) {
	repo, _ := newTestRepository(t)
	ctx := context.Background()
	sooner := seedGrant(t, repo, "user-1", grantSpec{credits: 3, expiresIn: time.Hour})
	later := seedGrant(t, repo, "user-1", grantSpec{credits: 5, expiresIn: 2 * time.Hour})

	entry, err := repo.ConsumeCredits(ctx, entity.ConsumeCreditsRequest{UserID: "user-1", Credits: 6})
	require.NoError(t, err)

	refunded, err := repo.RefundConsumption(ctx, entry.ID)
	require.NoError(t, err)
	require.True(t, refunded)
	require.Equal(t, int64(3), reloadCredit(t, repo, sooner.ID).RemainingCredits)
	require.Equal(t, int64(5), reloadCredit(t, repo, later.ID).RemainingCredits)

	stored := reloadCredit(t, repo, entry.ID)
	require.Equal(t, entity.CreditStatusDeleted, stored.Status)
	require.NotNil(t, stored.DeletedAt)

	refunded, err = repo.RefundConsumption(ctx, entry.ID)
	require.NoError(t, err)
	require.False(t, refunded)
	require.Equal(t, int64(3), reloadCredit(t, repo, sooner.ID).RemainingCredits)
	require.Equal(t, int64(5), reloadCredit(t, repo, later.ID).RemainingCredits)
}

func TestRefundConsumptionRejectsGrantRows(t *testing.T) {
	repo, _ := newTestRepository(t)
	grant := seedGrant(t, repo, "user-1", grantSpec{credits: 3})

	_, err := repo.RefundConsumption(context.Background(), grant.ID)
	require.ErrorIs(t, err, ledger.ErrNotConsumption)
}

func TestLedgerConservation(t *testing.T) {
	repo, db := newTestRepository(t)
	ctx := context.Background()
	grants := []*entity.DbCredit{
		seedGrant(t, repo, "user-1", grantSpec{credits: 4, expiresIn: time.Hour}),
		seedGrant(t, repo, "user-1", grantSpec{credits: 7, expiresIn: 3 * time.Hour}),
		seedGrant(t, repo, "user-1", grantSpec{credits: 9}),
	}

	var entries []*entity.DbCredit
	for _, amount := range []int64{3, 5, 2, 6} {
		entry, err := repo.ConsumeCredits(ctx, entity.ConsumeCreditsRequest{UserID: "user-1", Credits: amount})
		require.NoError(t, err)
		entries = append(entries, entry)
	}
	_, err := repo.RefundConsumption(ctx, entries[1].ID)
	require.NoError(t, err)
	_, err = repo.ConsumeCredits(ctx, entity.ConsumeCreditsRequest{UserID: "user-1", Credits: 100})
	require.ErrorIs(t, err, ledger.ErrInsufficientCredits)

	var active []entity.DbCredit
	require.NoError(t, db.Where("transaction_type = ? AND status = ?", entity.TransactionTypeConsume, entity.CreditStatusActive).Find(&active).Error)
	drawn := map[string]int64{}
	for _, entry := range active {
		require.Equal(t, -entry.Credits, entry.ConsumedDetail.Total())
		for _, draw := range entry.ConsumedDetail {
			drawn[draw.CreditID] += draw.CreditsConsumed
		}
	}

	for _, g := range grants {
		stored := reloadCredit(t, repo, g.ID)
		require.GreaterOrEqual(t, stored.RemainingCredits, int64(0))
		require.Equal(t, stored.Credits, stored.RemainingCredits+drawn[g.ID], "grant %s", g.ID)
	}
}

func TestSumRemainingCreditsByUsersCountsOnlySpendableGrants(t *testing.T) {
	repo, db := newTestRepository(t)
	ctx := context.Background()

	seedGrant(t, repo, "user-1", grantSpec{credits: 5})
	seedGrant(t, repo, "user-1", grantSpec{credits: 8, expiresIn: time.Hour})
	seedGrant(t, repo, "user-1", grantSpec{credits: 7, expiresIn: -time.Hour})
	deleted := seedGrant(t, repo, "user-1", grantSpec{credits: 9})
	require.NoError(t, db.Model(&entity.DbCredit{}).Where("id = ?", deleted.ID).
		Update("status", entity.CreditStatusDeleted).Error)
	softDeleted := seedGrant(t, repo, "user-1", grantSpec{credits: 6})
	require.NoError(t, db.Model(&entity.DbCredit{}).Where("id = ?", softDeleted.ID).
		Update("deleted_at", testNow.Add(-time.Minute)).Error)

	seedGrant(t, repo, "user-2", grantSpec{credits: 4})
	_, err := repo.ConsumeCredits(ctx, entity.ConsumeCreditsRequest{UserID: "user-2", Credits: 4})
	require.NoError(t, err)

	seedGrant(t, repo, "user-3", grantSpec{credits: 11})

	balances, err := repo.SumRemainingCreditsByUsers(ctx, []string{"user-1", "user-2", "user-3", "user-4", "user-1", " "})
	require.NoError(t, err)
	require.Equal(t, map[string]int64{
		"user-1": 13,
		"user-2": 0,
		"user-3": 11,
		"user-4": 0,
	}, balances)

	single, err := repo.GetRemainingCredits(ctx, "user-1")
	require.NoError(t, err)
	require.Equal(t, int64(13), single)
}

func TestGrantCreditsValidation(t *testing.T) {
	repo, _ := newTestRepository(t)
	ctx := context.Background()

	require.ErrorIs(t, repo.GrantCredits(ctx, &entity.DbCredit{UserID: "user-1"}), ledger.ErrInvalidCreditAmount)
	require.ErrorIs(t, repo.GrantCredits(ctx, &entity.DbCredit{Credits: 5}), ledger.ErrMissingUser)

	grant := &entity.DbCredit{UserID: "user-1", Credits: 5, RemainingCredits: 1, TransactionType: entity.TransactionTypeConsume}
	require.NoError(t, repo.GrantCredits(ctx, grant))
	stored := reloadCredit(t, repo, grant.ID)
	require.Equal(t, entity.TransactionTypeGrant, stored.TransactionType)
	require.Equal(t, int64(5), stored.RemainingCredits)
	require.NotEmpty(t, stored.TransactionNo)
}

func TestListCreditsFiltersByUserAndType(t *testing.T) {
	repo, _ := newTestRepository(t)
	ctx := context.Background()
	seedGrant(t, repo, "user-1", grantSpec{credits: 5})
	seedGrant(t, repo, "user-2", grantSpec{credits: 5})
	_, err := repo.ConsumeCredits(ctx, entity.ConsumeCreditsRequest{UserID: "user-1", Credits: 2})
	require.NoError(t, err)

	all, meta, err := repo.ListCredits(ctx, &entity.CreditQuery{UserID: "user-1"})
	require.NoError(t, err)
	require.Len(t, all, 2)
	require.Equal(t, int64(2), meta.Total)

	consumes, _, err := repo.ListCredits(ctx, &entity.CreditQuery{UserID: "user-1", TransactionType: entity.TransactionTypeConsume})
	require.NoError(t, err)
	require.Len(t, consumes, 1)
	require.Equal(t, int64(-2), consumes[0].Credits)
}
