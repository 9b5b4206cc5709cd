package dto

import (
	"aistudio/internal/entity/common"
	"encoding/json"
	"time"
)

// GenerateRequest 创建一个生成任务并按模型价格扣费。
type GenerateRequest struct {
	MediaType string         `json:"media_type"`
	Provider  string         `json:"provider" binding:"required"`
	Model     string         `json:"model" binding:"required"`
	Prompt    string         `json:"prompt" binding:"required"`
	Scene     string         `json:"scene"`
	Options   common.JSONMap `json:"options"`
	// TaskID 由已经完成服务商提交的调用方传入。
	TaskID   string          `json:"task_id,omitempty"`
	TaskInfo json.RawMessage `json:"task_info,omitempty"`
}

// TaskStatusUpdateRequest 是服务商回调或轮询结果。
type TaskStatusUpdateRequest struct {
	Status     string          `json:"status" binding:"required"`
	TaskID     string          `json:"task_id,omitempty"`
	TaskInfo   json.RawMessage `json:"task_info,omitempty"`
	TaskResult json.RawMessage `json:"task_result,omitempty"`
	Error      string          `json:"error,omitempty"`
}

// AITaskQuery 用于分页查询生成任务。
type AITaskQuery struct {
	common.BaseParams
	UserID     string `json:"-" form:"-" query:"-"`
	IncludeAll bool   `json:"-" form:"-" query:"-"`
	Status     string `json:"status" form:"status" query:"status"`
	MediaType  string `json:"media_type" form:"media_type" query:"media_type"`
}

// AITaskItem 是返回给客户端的任务视图，包含提取出的媒体链接。
type AITaskItem struct {
	ID          string    `json:"id"`
	Status      string    `json:"status"`
	MediaType   string    `json:"media_type"`
	Provider    string    `json:"provider"`
	Model       string    `json:"model"`
	Scene       string    `json:"scene"`
	Type        string    `json:"type"`
	Prompt      string    `json:"prompt"`
	Size        string    `json:"size"`
	TaskID      string    `json:"task_id,omitempty"`
	CostCredits int64     `json:"cost_credits"`
	CreditID    string    `json:"credit_id,omitempty"`
	URLs        []string  `json:"urls"`
	MainURL     string    `json:"main_url,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// AITaskListResponse 是任务列表。
type AITaskListResponse struct {
	Tasks []AITaskItem `json:"tasks"`
	Meta  *common.Meta `json:"meta"`
}

// GenerateResponse 返回新建任务与扣费后的余额。
type GenerateResponse struct {
	Task             AITaskItem `json:"task"`
	RemainingCredits int64      `json:"remaining_credits"`
}

// TaskStatusCount 是按状态分组的任务计数。
type TaskStatusCount struct {
	Status string `json:"status"`
	Count  int64  `json:"count"`
}

// AdminOverview 汇总近期用户与生成任务数据。
type AdminOverview struct {
	Days          int               `json:"days"`
	TotalUsers    int64             `json:"total_users"`
	NewUsers      int64             `json:"new_users"`
	Tasks         int64             `json:"tasks"`
	TaskSuccess   int64             `json:"task_success"`
	TasksByStatus []TaskStatusCount `json:"tasks_by_status"`
	RecentTasks   []AITaskItem      `json:"recent_tasks"`
	RecentUsers   []UserSummary     `json:"recent_users"`
}
