package entity

// UserUpdates 用户更新字段
type UserUpdates struct {
	DisplayName  *string
	Role         *string
	PasswordHash *string
	IsActive     *bool
}

// ToMap 转换为 GORM 更新 map（内部使用）
func (u UserUpdates) ToMap() map[string]interface{} {
	updates := make(map[string]interface{})
	if u.DisplayName != nil {
		updates["display_name"] = *u.DisplayName
	}
	if u.Role != nil {
		updates["role"] = *u.Role
	}
	if u.PasswordHash != nil {
		updates["password_hash"] = *u.PasswordHash
	}
	if u.IsActive != nil {
		updates["is_active"] = *u.IsActive
	}
	return updates
}

// IsEmpty 检查是否没有任何更新字段
func (u UserUpdates) IsEmpty() bool {
	return len(u.ToMap()) == 0
}

// AITaskUpdates 生成任务更新字段。
// Status 为 failed 且 CreditID 非空时，更新前会先退还该次扣费。
type AITaskUpdates struct {
	Status     *AITaskStatus
	TaskID     *string
	TaskInfo   *string
	TaskResult *string
	RawData    *string
	CreditID   *string
}

// ToMap 转换为 GORM 更新 map（内部使用）
func (u AITaskUpdates) ToMap() map[string]interface{} {
	updates := make(map[string]interface{})
	if u.Status != nil {
		updates["status"] = string(*u.Status)
	}
	if u.TaskID != nil {
		updates["task_id"] = *u.TaskID
	}
	if u.TaskInfo != nil {
		updates["task_info"] = *u.TaskInfo
	}
	if u.TaskResult != nil {
		updates["task_result"] = *u.TaskResult
	}
	if u.RawData != nil {
		updates["raw_data"] = *u.RawData
	}
	if u.CreditID != nil {
		updates["credit_id"] = *u.CreditID
	}
	return updates
}

// IsEmpty 检查是否没有任何更新字段
func (u AITaskUpdates) IsEmpty() bool {
	return len(u.ToMap()) == 0
}

// ModelPriceUpdates 模型价格更新字段
type ModelPriceUpdates struct {
	Name         *string
	TextCredits  *int64
	ImageCredits *int64
	IsActive     *bool
}

// ToMap 转换为 GORM 更新 map（内部使用）
func (u ModelPriceUpdates) ToMap() map[string]interface{} {
	updates := make(map[string]interface{})
	if u.Name != nil {
		updates["name"] = *u.Name
	}
	if u.TextCredits != nil {
		updates["text_credits"] = *u.TextCredits
	}
	if u.ImageCredits != nil {
		updates["image_credits"] = *u.ImageCredits
	}
	if u.IsActive != nil {
		updates["is_active"] = *u.IsActive
	}
	return updates
}

// IsEmpty 检查是否没有任何更新字段
func (u ModelPriceUpdates) IsEmpty() bool {
	return len(u.ToMap()) == 0
}
