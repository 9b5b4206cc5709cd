package db

import (
	"aistudio/internal/entity/common"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AITaskStatus 表示生成任务的生命周期状态。
type AITaskStatus string

const (
	AITaskPending    AITaskStatus = "pending"
	AITaskProcessing AITaskStatus = "processing"
	AITaskSuccess    AITaskStatus = "success"
	AITaskFailed     AITaskStatus = "failed"
)

// Valid reports whether s is a known lifecycle status.
func (s AITaskStatus) Valid() bool {
	switch s {
	case AITaskPending, AITaskProcessing, AITaskSuccess, AITaskFailed:
		return true
	}
	return false
}

// Terminal reports whether no further transitions are allowed from s.
func (s AITaskStatus) Terminal() bool {
	return s == AITaskSuccess || s == AITaskFailed
}

// CanTransitionTo 校验状态机：pending → processing → success/failed，
// 终态只允许重复写入同一状态。
func (s AITaskStatus) CanTransitionTo(next AITaskStatus) bool {
	if !next.Valid() {
		return false
	}
	if s == next {
		return true
	}
	switch s {
	case AITaskPending:
		return true
	case AITaskProcessing:
		return next != AITaskPending
	default:
		return false
	}
}

// AITask 记录一次 AI 生成请求。
type AITask struct {
	ID        string     `gorm:"primaryKey;type:varchar(36)" json:"id"`
	CreatedAt time.Time  `gorm:"index" json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	DeletedAt *time.Time `gorm:"column:deleted_at;index" json:"deleted_at,omitempty"`

	UserID    string           `gorm:"column:user_id;type:varchar(36);index;not null" json:"user_id"`
	MediaType common.MediaType `gorm:"column:media_type;type:varchar(32);not null" json:"media_type"`
	Provider  string           `gorm:"column:provider;type:varchar(64);index" json:"provider"`
	Model     string           `gorm:"column:model;type:varchar(255)" json:"model"`
	Scene     string           `gorm:"column:scene;type:varchar(64)" json:"scene"`
	Prompt    string           `gorm:"column:prompt;type:text" json:"prompt"`
	Options   common.JSONMap   `gorm:"column:options;type:text" json:"options,omitempty"`

	Status AITaskStatus `gorm:"column:status;type:varchar(32);index;not null" json:"status"`
	// TaskID 是服务商侧的任务标识，提交成功后才有值。
	TaskID string `gorm:"column:task_id;type:varchar(255);index" json:"task_id"`

	TaskInfo   string `gorm:"column:task_info;type:text" json:"task_info,omitempty"`
	TaskResult string `gorm:"column:task_result;type:text" json:"task_result,omitempty"`
	// RawData 保存服务商最近一次回调或轮询的原始载荷。
	RawData string `gorm:"column:raw_data;type:text" json:"raw_data,omitempty"`

	CostCredits int64   `gorm:"column:cost_credits;not null;default:0" json:"cost_credits"`
	CreditID    *string `gorm:"column:credit_id;type:varchar(36);index" json:"credit_id,omitempty"`
}

// TableName 指定表名。
func (AITask) TableName() string {
	return "ai_tasks"
}

// BeforeCreate 为新任务生成 UUID 并设置初始状态。
func (t *AITask) BeforeCreate(tx *gorm.DB) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.Status == "" {
		t.Status = AITaskPending
	}
	return nil
}
