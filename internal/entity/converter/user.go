package converter

import (
	"aistudio/internal/entity/db"
	"aistudio/internal/entity/dto"
)

// UserToSummary 生成对外的用户摘要，不包含密码哈希。credits 为 nil 表示未查询余额。
func UserToSummary(u *db.User, credits *int64) dto.UserSummary {
	if u == nil {
		return dto.UserSummary{}
	}
	summary := dto.UserSummary{
		ID:          u.ID,
		Email:       u.Email,
		DisplayName: u.DisplayName,
		Role:        u.Role,
		IsActive:    u.IsActive,
		CreatedAt:   u.CreatedAt,
		UpdatedAt:   u.UpdatedAt,
	}
	if credits != nil {
		balance := *credits
		summary.Credits = &balance
	}
	return summary
}

// UsersToSummaries 批量转换，余额由 CreditService.AttachBalances 一次性聚合填充。
func UsersToSummaries(users []db.User) []dto.UserSummary {
	summaries := make([]dto.UserSummary, len(users))
	for i := range users {
		summaries[i] = UserToSummary(&users[i], nil)
	}
	return summaries
}
