package service

import (
	"aistudio/internal/entity"
	"aistudio/internal/entity/converter"
	"aistudio/internal/entity/dto"
	"aistudio/internal/model"
	"context"
	"time"
)

const (
	defaultOverviewDays = 7
	maxOverviewDays     = 90
	overviewRecentLimit = 10
)

// OverviewService 汇总管理后台首页数据。
type OverviewService struct {
	repo    model.Repository
	tasks   *TaskService
	credits *CreditService
	now     func() time.Time
}

func NewOverviewService(repo model.Repository, tasks *TaskService, credits *CreditService) *OverviewService {
	return &OverviewService{
		repo:    repo,
		tasks:   tasks,
		credits: credits,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Overview 返回最近 days 天的用户与任务统计。
func (s *OverviewService) Overview(ctx context.Context, days int) (*dto.AdminOverview, error) {
	if days <= 0 {
		days = defaultOverviewDays
	}
	if days > maxOverviewDays {
		days = maxOverviewDays
	}
	since := s.now().AddDate(0, 0, -days)

	totalUsers, err := s.repo.CountUsers(ctx)
	if err != nil {
		return nil, err
	}
	newUsers, err := s.repo.CountUsersSince(ctx, since)
	if err != nil {
		return nil, err
	}
	counts, err := s.repo.CountAITasksByStatus(ctx, since)
	if err != nil {
		return nil, err
	}

	overview := &dto.AdminOverview{
		Days:          days,
		TotalUsers:    totalUsers,
		NewUsers:      newUsers,
		TasksByStatus: counts,
	}
	for _, c := range counts {
		overview.Tasks += c.Count
		if c.Status == string(entity.AITaskSuccess) {
			overview.TaskSuccess += c.Count
		}
	}

	recent, err := s.tasks.History(ctx, Viewer{Admin: true}, dto.AITaskQuery{
		BaseParams: entity.BaseParams{Page: 1, PageSize: overviewRecentLimit},
		IncludeAll: true,
	})
	if err != nil {
		return nil, err
	}
	overview.RecentTasks = recent.Tasks

	users, err := s.repo.ListRecentUsers(ctx, overviewRecentLimit)
	if err != nil {
		return nil, err
	}
	overview.RecentUsers = s.credits.AttachBalances(ctx, converter.UsersToSummaries(users))
	return overview, nil
}
