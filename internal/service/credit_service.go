package service

import (
	"aistudio/internal/entity"
	"aistudio/internal/entity/converter"
	"aistudio/internal/entity/dto"
	"aistudio/internal/ledger"
	"aistudio/internal/model"
	"context"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// CreditService 负责积分发放、查询与退款。
type CreditService struct {
	repo model.Repository
	now  func() time.Time
}

func NewCreditService(repo model.Repository) *CreditService {
	return &CreditService{
		repo: repo,
		now:  func() time.Time { return time.Now().UTC() },
	}
}

// Grant 发放一笔积分。ExpiresAt 优先于 ValidDays；两者都为空时永不过期。
func (s *CreditService) Grant(ctx context.Context, req dto.GrantCreditsRequest) (*entity.DbCredit, error) {
	userID := strings.TrimSpace(req.UserID)
	if userID == "" {
		return nil, ledger.ErrMissingUser
	}
	if req.Credits <= 0 {
		return nil, ledger.ErrInvalidCreditAmount
	}

	scene := strings.TrimSpace(req.Scene)
	if scene == "" {
		scene = entity.CreditSceneGift
	}
	credit := &entity.DbCredit{
		UserID:           userID,
		UserEmail:        strings.TrimSpace(req.UserEmail),
		OrderNo:          strings.TrimSpace(req.OrderNo),
		SubscriptionNo:   strings.TrimSpace(req.SubscriptionNo),
		TransactionScene: scene,
		Credits:          req.Credits,
		Description:      strings.TrimSpace(req.Description),
		Metadata:         req.Metadata,
	}
	switch {
	case req.ExpiresAt != nil:
		expires := req.ExpiresAt.UTC()
		credit.ExpiresAt = &expires
	case req.ValidDays > 0:
		expires := s.now().AddDate(0, 0, req.ValidDays)
		credit.ExpiresAt = &expires
	}

	if err := s.repo.GrantCredits(ctx, credit); err != nil {
		return nil, err
	}
	logrus.WithFields(logrus.Fields{
		"credit_id": credit.ID,
		"user_id":   userID,
		"credits":   credit.Credits,
		"scene":     scene,
	}).Info("credits_granted")
	return credit, nil
}

// GrantSignupBonus 为新用户发放注册赠送积分，credits<=0 时不发放。
func (s *CreditService) GrantSignupBonus(ctx context.Context, user *entity.DbUser, credits int64, validDays int) error {
	if user == nil || credits <= 0 {
		return nil
	}
	_, err := s.Grant(ctx, dto.GrantCreditsRequest{
		UserID:      user.ID,
		UserEmail:   user.Email,
		Credits:     credits,
		Scene:       entity.CreditSceneSignup,
		Description: "Signup bonus",
		ValidDays:   validDays,
	})
	return err
}

// Balance 返回用户当前可用积分。
func (s *CreditService) Balance(ctx context.Context, userID string) (int64, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return 0, nil
	}
	return s.repo.GetRemainingCredits(ctx, userID)
}

// List 返回用户的积分流水。
func (s *CreditService) List(ctx context.Context, query dto.CreditQuery) (*dto.CreditListResponse, error) {
	credits, meta, err := s.repo.ListCredits(ctx, &query)
	if err != nil {
		return nil, err
	}
	return &dto.CreditListResponse{Credits: converter.CreditsToItems(credits), Meta: meta}, nil
}

// Refund 退还一笔扣费。重复退款返回 false。
func (s *CreditService) Refund(ctx context.Context, creditID string) (bool, error) {
	return s.repo.RefundConsumption(ctx, strings.TrimSpace(creditID))
}

// AttachBalances 为用户列表填充可用积分。查询失败时记录日志并保持为空。
func (s *CreditService) AttachBalances(ctx context.Context, users []dto.UserSummary) []dto.UserSummary {
	if len(users) == 0 {
		return users
	}
	ids := make([]string, 0, len(users))
	for _, u := range users {
		ids = append(ids, u.ID)
	}
	balances, err := s.repo.SumRemainingCreditsByUsers(ctx, ids)
	if err != nil {
		logrus.WithError(err).WithField("users", len(ids)).Warn("aggregate balances failed")
		return users
	}
	for i := range users {
		balance := balances[users[i].ID]
		users[i].Credits = &balance
	}
	return users
}
