package entity

import "aistudio/internal/entity/dto"

type UserSummary = dto.UserSummary
type UserQuery = dto.UserQuery
type CreditQuery = dto.CreditQuery
type AITaskQuery = dto.AITaskQuery
type GrantCreditsRequest = dto.GrantCreditsRequest
type ConsumeCreditsRequest = dto.ConsumeCreditsRequest
type TaskStatusCount = dto.TaskStatusCount
