package sql

import (
	"aistudio/internal/entity"
	"aistudio/internal/ledger"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// eligibleGrants 限定为在 now 时刻可消耗的积分包。消费与余额统计共用同一条件。
func eligibleGrants(now time.Time) func(*gorm.DB) *gorm.DB {
	return func(q *gorm.DB) *gorm.DB {
		return q.
			Where("transaction_type = ?", entity.TransactionTypeGrant).
			Where("status = ?", entity.CreditStatusActive).
			Where("deleted_at IS NULL").
			Where("remaining_credits > 0").
			Where("(expires_at IS NULL OR expires_at > ?)", now)
	}
}

// consumptionOrder 先到期的先扣，永不过期的最后扣，同等条件按创建顺序。
const consumptionOrder = "CASE WHEN expires_at IS NULL THEN 1 ELSE 0 END ASC, expires_at ASC, created_at ASC, id ASC"

// GrantCredits inserts a new grant row.
func (r *GormRepository) GrantCredits(ctx context.Context, credit *entity.DbCredit) error {
	if r == nil || r.db == nil {
		return errNotInitialised
	}
	if credit == nil {
		return fmt.Errorf("credit is nil")
	}
	credit.UserID = strings.TrimSpace(credit.UserID)
	if credit.UserID == "" {
		return ledger.ErrMissingUser
	}
	if credit.Credits <= 0 {
		return ledger.ErrInvalidCreditAmount
	}
	credit.TransactionType = entity.TransactionTypeGrant
	credit.RemainingCredits = credit.Credits
	credit.Status = entity.CreditStatusActive
	credit.ConsumedDetail = nil
	if credit.ExpiresAt != nil {
		expires := credit.ExpiresAt.UTC()
		credit.ExpiresAt = &expires
	}
	return r.db.WithContext(ctx).Create(credit).Error
}

// ConsumeCredits draws req.Credits from the user's eligible grants and records
// the consumption, all inside one transaction.
func (r *GormRepository) ConsumeCredits(ctx context.Context, req entity.ConsumeCreditsRequest) (*entity.DbCredit, error) {
	if r == nil || r.db == nil {
		return nil, errNotInitialised
	}

	var entry *entity.DbCredit
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		entry, err = r.consumeInTx(tx, req)
		return err
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

func (r *GormRepository) consumeInTx(tx *gorm.DB, req entity.ConsumeCreditsRequest) (*entity.DbCredit, error) {
	userID := strings.TrimSpace(req.UserID)
	if userID == "" {
		return nil, ledger.ErrMissingUser
	}
	if req.Credits <= 0 {
		return nil, ledger.ErrInvalidCreditAmount
	}

	now := r.currentTime()
	var grants []entity.DbCredit
	if err := forUpdate(tx).
		Scopes(eligibleGrants(now)).
		Where("user_id = ?", userID).
		Order(consumptionOrder).
		Find(&grants).Error; err != nil {
		return nil, fmt.Errorf("load grants: %w", err)
	}

	plan, err := ledger.PlanDraws(userID, grants, req.Credits)
	if err != nil {
		return nil, err
	}

	for _, draw := range plan {
		result := tx.Model(&entity.DbCredit{}).
			Where("id = ? AND remaining_credits >= ?", draw.CreditID, draw.CreditsConsumed).
			Update("remaining_credits", gorm.Expr("remaining_credits - ?", draw.CreditsConsumed))
		if result.Error != nil {
			return nil, fmt.Errorf("draw from grant %s: %w", draw.CreditID, result.Error)
		}
		if result.RowsAffected == 0 {
			return nil, fmt.Errorf("draw from grant %s: %w", draw.CreditID, ledger.ErrConcurrentConsumption)
		}
	}

	entry := &entity.DbCredit{
		UserID:           userID,
		UserEmail:        req.UserEmail,
		TransactionType:  entity.TransactionTypeConsume,
		TransactionScene: req.Scene,
		Credits:          -req.Credits,
		RemainingCredits: 0,
		Description:      req.Description,
		Status:           entity.CreditStatusActive,
		ConsumedDetail:   plan,
		Metadata:         req.Metadata,
	}
	if err := tx.Create(entry).Error; err != nil {
		return nil, fmt.Errorf("insert consumption: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"user_id":   userID,
		"credit_id": entry.ID,
		"credits":   req.Credits,
		"grants":    len(plan),
	}).Info("credits_consumed")
	return entry, nil
}

// RefundConsumption restores every draw of an active consumption to its grant
// and marks the consumption deleted. Refunding an already deleted consumption
// is a no-op and reports false.
func (r *GormRepository) RefundConsumption(ctx context.Context, creditID string) (bool, error) {
	if r == nil || r.db == nil {
		return false, errNotInitialised
	}

	var refunded bool
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		refunded, err = r.refundInTx(tx, creditID)
		return err
	})
	return refunded, err
}

func (r *GormRepository) refundInTx(tx *gorm.DB, creditID string) (bool, error) {
	creditID = strings.TrimSpace(creditID)
	if creditID == "" {
		return false, fmt.Errorf("credit id is required")
	}

	var entry entity.DbCredit
	if err := forUpdate(tx).Where("id = ?", creditID).First(&entry).Error; err != nil {
		return false, err
	}
	if entry.TransactionType != entity.TransactionTypeConsume {
		return false, ledger.ErrNotConsumption
	}
	if !entry.IsActive() {
		return false, nil
	}

	now := r.currentTime()
	marked := tx.Model(&entity.DbCredit{}).
		Where("id = ? AND status = ?", entry.ID, entity.CreditStatusActive).
		Updates(map[string]interface{}{
			"status":     entity.CreditStatusDeleted,
			"deleted_at": now,
		})
	if marked.Error != nil {
		return false, fmt.Errorf("mark consumption deleted: %w", marked.Error)
	}
	if marked.RowsAffected == 0 {
		return false, nil
	}

	for _, draw := range entry.ConsumedDetail {
		if draw.CreditsConsumed <= 0 {
			continue
		}
		result := tx.Model(&entity.DbCredit{}).
			Where("id = ? AND transaction_type = ?", draw.CreditID, entity.TransactionTypeGrant).
			Update("remaining_credits", gorm.Expr("remaining_credits + ?", draw.CreditsConsumed))
		if result.Error != nil {
			return false, fmt.Errorf("restore grant %s: %w", draw.CreditID, result.Error)
		}
		if result.RowsAffected == 0 {
			return false, fmt.Errorf("restore grant %s: %w", draw.CreditID, ledger.ErrRefundTargetMissing)
		}
	}

	logrus.WithFields(logrus.Fields{
		"user_id":   entry.UserID,
		"credit_id": entry.ID,
		"credits":   entry.ConsumedDetail.Total(),
	}).Info("credits_refunded")
	return true, nil
}

// GetCredit loads one ledger row.
func (r *GormRepository) GetCredit(ctx context.Context, id string) (*entity.DbCredit, error) {
	if r == nil || r.db == nil {
		return nil, errNotInitialised
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, fmt.Errorf("credit id is required")
	}
	var credit entity.DbCredit
	if err := r.db.WithContext(ctx).First(&credit, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to load credit: %w", err)
	}
	return &credit, nil
}

// ListCredits returns the paginated ledger history, newest first.
func (r *GormRepository) ListCredits(ctx context.Context, params *entity.CreditQuery) ([]entity.DbCredit, *entity.Meta, error) {
	if r == nil || r.db == nil {
		return nil, nil, errNotInitialised
	}

	query := r.db.WithContext(ctx).Model(&entity.DbCredit{})
	page, pageSize := 1, 20
	if params != nil {
		if trimmed := strings.TrimSpace(params.UserID); trimmed != "" {
			query = query.Where("user_id = ?", trimmed)
		}
		if trimmed := strings.TrimSpace(params.TransactionType); trimmed != "" {
			query = query.Where("transaction_type = ?", trimmed)
		}
		if trimmed := strings.TrimSpace(params.Status); trimmed != "" {
			query = query.Where("status = ?", trimmed)
		}
		page, pageSize = normalizePage(params.Page, params.PageSize)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, nil, err
	}

	var credits []entity.DbCredit
	if err := query.Order("created_at DESC, id DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&credits).Error; err != nil {
		return nil, nil, err
	}
	return credits, r.calculatePagination(total, page, pageSize), nil
}

// GetRemainingCredits returns the spendable balance of one user.
func (r *GormRepository) GetRemainingCredits(ctx context.Context, userID string) (int64, error) {
	balances, err := r.SumRemainingCreditsByUsers(ctx, []string{userID})
	if err != nil {
		return 0, err
	}
	return balances[strings.TrimSpace(userID)], nil
}

type userBalance struct {
	UserID string
	Total  int64
}

// SumRemainingCreditsByUsers aggregates spendable balances for many users in
// one grouped query. Users without eligible grants map to 0.
func (r *GormRepository) SumRemainingCreditsByUsers(ctx context.Context, userIDs []string) (map[string]int64, error) {
	if r == nil || r.db == nil {
		return nil, errNotInitialised
	}

	ids := make([]string, 0, len(userIDs))
	balances := make(map[string]int64, len(userIDs))
	for _, id := range userIDs {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, seen := balances[id]; seen {
			continue
		}
		balances[id] = 0
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return balances, nil
	}

	var rows []userBalance
	if err := r.db.WithContext(ctx).
		Model(&entity.DbCredit{}).
		Scopes(eligibleGrants(r.currentTime())).
		Select("user_id, COALESCE(SUM(remaining_credits), 0) AS total").
		Where("user_id IN ?", ids).
		Group("user_id").
		Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("aggregate balances: %w", err)
	}
	for _, row := range rows {
		balances[row.UserID] = row.Total
	}
	return balances, nil
}
