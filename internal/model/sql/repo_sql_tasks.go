package sql

import (
	"aistudio/internal/entity"
	"aistudio/internal/ledger"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const promptPreviewRunes = 200

// CreateAITask 在同一事务中写入任务并按 CostCredits 扣费。
// 余额不足时整个事务回滚，任务不会落库。
func (r *GormRepository) CreateAITask(ctx context.Context, task *entity.DbAITask) error {
	if r == nil || r.db == nil {
		return errNotInitialised
	}
	if task == nil {
		return fmt.Errorf("task is nil")
	}
	task.UserID = strings.TrimSpace(task.UserID)
	if task.UserID == "" {
		return ledger.ErrMissingUser
	}
	if task.CostCredits < 0 {
		return ledger.ErrInvalidCreditAmount
	}
	if task.Status == "" {
		task.Status = entity.AITaskPending
	}
	if !task.Status.Valid() {
		return ledger.ErrInvalidTaskStatus
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		task.CreditID = nil
		if err := tx.Create(task).Error; err != nil {
			return fmt.Errorf("insert task: %w", err)
		}
		if task.CostCredits == 0 {
			return nil
		}

		entry, err := r.consumeInTx(tx, entity.ConsumeCreditsRequest{
			UserID:      task.UserID,
			Credits:     task.CostCredits,
			Scene:       task.Scene,
			Description: taskChargeDescription(task),
			Metadata:    taskChargeMetadata(task),
		})
		if err != nil {
			return err
		}
		if err := tx.Model(&entity.DbAITask{}).
			Where("id = ?", task.ID).
			Update("credit_id", entry.ID).Error; err != nil {
			return fmt.Errorf("link consumption: %w", err)
		}
		task.CreditID = &entry.ID
		return nil
	})
	if err != nil {
		task.CreditID = nil
		return err
	}
	return nil
}

func taskChargeDescription(task *entity.DbAITask) string {
	return fmt.Sprintf("AI %s generation: %s/%s, scene: %s", task.MediaType, task.Provider, task.Model, task.Scene)
}

func taskChargeMetadata(task *entity.DbAITask) entity.JSONMap {
	prompt := task.Prompt
	if utf8.RuneCountInString(prompt) > promptPreviewRunes {
		prompt = string([]rune(prompt)[:promptPreviewRunes])
	}
	meta := entity.JSONMap{
		"type":      "ai-task",
		"taskId":    task.ID,
		"mediaType": string(task.MediaType),
		"provider":  task.Provider,
		"model":     task.Model,
		"scene":     task.Scene,
		"prompt":    prompt,
	}
	if len(task.Options) > 0 {
		meta["options"] = map[string]interface{}(task.Options)
	}
	return meta
}

// UpdateAITask applies a lifecycle update. When the update moves the task to
// failed and names a consumption, that consumption is refunded in the same
// transaction before the task row changes.
func (r *GormRepository) UpdateAITask(ctx context.Context, id string, updates entity.AITaskUpdates) (*entity.DbAITask, error) {
	if r == nil || r.db == nil {
		return nil, errNotInitialised
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, fmt.Errorf("task id is required")
	}
	if updates.Status != nil && !updates.Status.Valid() {
		return nil, fmt.Errorf("%w: %q", ledger.ErrInvalidTaskStatus, *updates.Status)
	}

	var updated entity.DbAITask
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var current entity.DbAITask
		if err := forUpdate(tx).Where("id = ? AND deleted_at IS NULL", id).First(&current).Error; err != nil {
			return err
		}
		if updates.Status != nil && !current.Status.CanTransitionTo(*updates.Status) {
			if current.Status.Terminal() {
				return fmt.Errorf("%w: %s -> %s", ledger.ErrTaskTerminal, current.Status, *updates.Status)
			}
			return fmt.Errorf("%w: %s -> %s", ledger.ErrInvalidTransition, current.Status, *updates.Status)
		}

		if updates.Status != nil && *updates.Status == entity.AITaskFailed &&
			updates.CreditID != nil && strings.TrimSpace(*updates.CreditID) != "" {
			if err := r.refundForFailedTask(tx, id, *updates.CreditID); err != nil {
				return err
			}
		}

		if values := updates.ToMap(); len(values) > 0 {
			if err := tx.Model(&entity.DbAITask{}).Where("id = ?", id).Updates(values).Error; err != nil {
				return fmt.Errorf("update task: %w", err)
			}
		}
		return tx.First(&updated, "id = ?", id).Error
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// refundForFailedTask runs the refund inside a savepoint. Unless the repository
// is configured to block, a refund error is logged and the status update goes
// on; the reconciler retries such refunds later.
func (r *GormRepository) refundForFailedTask(tx *gorm.DB, taskID, creditID string) error {
	refund := func(inner *gorm.DB) error {
		_, err := r.refundInTx(inner, creditID)
		return err
	}

	if r.blockOnRefundFailure {
		if err := refund(tx); err != nil {
			return fmt.Errorf("refund consumption %s: %w", creditID, err)
		}
		return nil
	}

	if err := tx.Transaction(refund); err != nil {
		logrus.WithError(err).WithFields(logrus.Fields{
			"task_id":   taskID,
			"credit_id": creditID,
		}).Error("refund_failed")
	}
	return nil
}

// GetAITask loads a task by its id.
func (r *GormRepository) GetAITask(ctx context.Context, id string) (*entity.DbAITask, error) {
	if r == nil || r.db == nil {
		return nil, errNotInitialised
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, fmt.Errorf("task id is required")
	}
	var task entity.DbAITask
	if err := r.db.WithContext(ctx).Where("deleted_at IS NULL").First(&task, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to load task: %w", err)
	}
	return &task, nil
}

// GetAITaskByTaskID loads a task by the provider-side task id.
func (r *GormRepository) GetAITaskByTaskID(ctx context.Context, provider, taskID string) (*entity.DbAITask, error) {
	if r == nil || r.db == nil {
		return nil, errNotInitialised
	}
	taskID = strings.TrimSpace(taskID)
	if taskID == "" {
		return nil, fmt.Errorf("provider task id is required")
	}
	query := r.db.WithContext(ctx).Where("task_id = ? AND deleted_at IS NULL", taskID)
	if trimmed := strings.TrimSpace(provider); trimmed != "" {
		query = query.Where("provider = ?", trimmed)
	}
	var task entity.DbAITask
	if err := query.Order("created_at DESC").First(&task).Error; err != nil {
		return nil, err
	}
	return &task, nil
}

// ListAITasks returns paginated tasks, newest first.
func (r *GormRepository) ListAITasks(ctx context.Context, params *entity.AITaskQuery) ([]entity.DbAITask, *entity.Meta, error) {
	if r == nil || r.db == nil {
		return nil, nil, errNotInitialised
	}

	query := r.db.WithContext(ctx).Model(&entity.DbAITask{}).Where("deleted_at IS NULL")
	page, pageSize := 1, 20
	if params != nil {
		if !params.IncludeAll {
			query = query.Where("user_id = ?", strings.TrimSpace(params.UserID))
		}
		if trimmed := strings.ToLower(strings.TrimSpace(params.Status)); trimmed != "" && trimmed != "all" {
			query = query.Where("status = ?", trimmed)
		}
		if trimmed := strings.ToLower(strings.TrimSpace(params.MediaType)); trimmed != "" {
			query = query.Where("media_type = ?", trimmed)
		}
		page, pageSize = normalizePage(params.Page, params.PageSize)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, nil, err
	}

	var tasks []entity.DbAITask
	if err := query.Order("created_at DESC, id DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&tasks).Error; err != nil {
		return nil, nil, err
	}
	return tasks, r.calculatePagination(total, page, pageSize), nil
}

// ListUnrefundedFailedTasks finds failed tasks whose consumption is still
// active, i.e. the refund was skipped or failed.
func (r *GormRepository) ListUnrefundedFailedTasks(ctx context.Context, limit int) ([]entity.DbAITask, error) {
	if r == nil || r.db == nil {
		return nil, errNotInitialised
	}
	if limit <= 0 {
		limit = 50
	}

	var tasks []entity.DbAITask
	err := r.db.WithContext(ctx).
		Model(&entity.DbAITask{}).
		Select("ai_tasks.*").
		Joins("JOIN credits ON credits.id = ai_tasks.credit_id").
		Where("ai_tasks.status = ?", entity.AITaskFailed).
		Where("ai_tasks.deleted_at IS NULL").
		Where("credits.transaction_type = ?", entity.TransactionTypeConsume).
		Where("credits.status = ?", entity.CreditStatusActive).
		Order("ai_tasks.updated_at ASC").
		Limit(limit).
		Find(&tasks).Error
	if err != nil {
		return nil, err
	}
	return tasks, nil
}

// CountAITasksByStatus groups tasks created at or after since by status.
func (r *GormRepository) CountAITasksByStatus(ctx context.Context, since time.Time) ([]entity.TaskStatusCount, error) {
	if r == nil || r.db == nil {
		return nil, errNotInitialised
	}
	var counts []entity.TaskStatusCount
	if err := r.db.WithContext(ctx).
		Model(&entity.DbAITask{}).
		Select("status, COUNT(*) AS count").
		Where("deleted_at IS NULL AND created_at >= ?", since.UTC()).
		Group("status").
		Order("status ASC").
		Scan(&counts).Error; err != nil {
		return nil, err
	}
	return counts, nil
}
