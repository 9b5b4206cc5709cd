package model

import (
	"aistudio/internal/entity"
	"context"
	"time"
)

// Repository 定义数据库操作接口
type Repository interface {
	// 用户管理
	CreateUser(ctx context.Context, user *entity.DbUser) error
	UpdateUser(ctx context.Context, id string, updates entity.UserUpdates) error
	GetUserByEmail(ctx context.Context, email string) (*entity.DbUser, error)
	GetUserByID(ctx context.Context, id string) (*entity.DbUser, error)
	ListUsers(ctx context.Context, params *entity.UserQuery) ([]entity.DbUser, *entity.Meta, error)
	DeleteUser(ctx context.Context, id string) error
	CountUsers(ctx context.Context) (int64, error)
	CountUsersSince(ctx context.Context, since time.Time) (int64, error)
	ListRecentUsers(ctx context.Context, limit int) ([]entity.DbUser, error)

	// 积分账本
	GrantCredits(ctx context.Context, credit *entity.DbCredit) error
	ConsumeCredits(ctx context.Context, req entity.ConsumeCreditsRequest) (*entity.DbCredit, error)
	RefundConsumption(ctx context.Context, creditID string) (bool, error)
	GetCredit(ctx context.Context, id string) (*entity.DbCredit, error)
	ListCredits(ctx context.Context, params *entity.CreditQuery) ([]entity.DbCredit, *entity.Meta, error)
	GetRemainingCredits(ctx context.Context, userID string) (int64, error)
	SumRemainingCreditsByUsers(ctx context.Context, userIDs []string) (map[string]int64, error)

	// 生成任务
	CreateAITask(ctx context.Context, task *entity.DbAITask) error
	UpdateAITask(ctx context.Context, id string, updates entity.AITaskUpdates) (*entity.DbAITask, error)
	GetAITask(ctx context.Context, id string) (*entity.DbAITask, error)
	GetAITaskByTaskID(ctx context.Context, provider, taskID string) (*entity.DbAITask, error)
	ListAITasks(ctx context.Context, params *entity.AITaskQuery) ([]entity.DbAITask, *entity.Meta, error)
	ListUnrefundedFailedTasks(ctx context.Context, limit int) ([]entity.DbAITask, error)
	CountAITasksByStatus(ctx context.Context, since time.Time) ([]entity.TaskStatusCount, error)

	// 模型价格
	ListModelPrices(ctx context.Context, includeInactive bool) ([]entity.DbModelPrice, error)
	GetModelPrice(ctx context.Context, modelID string) (*entity.DbModelPrice, error)
	CreateModelPrice(ctx context.Context, price *entity.DbModelPrice) error
	UpdateModelPrice(ctx context.Context, modelID string, updates entity.ModelPriceUpdates) error
}
