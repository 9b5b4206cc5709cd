package entity

// Re-export common and db types so callers can depend on a single package.

import (
	"aistudio/internal/entity/common"
	"aistudio/internal/entity/db"
)

// Type aliases for common types
type JSONMap = common.JSONMap
type Meta = common.Meta
type BaseParams = common.BaseParams
type MediaType = common.MediaType

// Type aliases for persisted models
type DbUser = db.User
type DbCredit = db.Credit
type DbAITask = db.AITask
type DbModelPrice = db.ModelPrice
type ConsumedItem = db.ConsumedItem
type ConsumedDetail = db.ConsumedDetail
type AITaskStatus = db.AITaskStatus

var IsAdminRole = db.IsAdminRole

// Constants
const (
	MediaImage = common.MediaImage
	MediaVideo = common.MediaVideo
	MediaMusic = common.MediaMusic

	UserRoleSuperAdmin = db.UserRoleSuperAdmin
	UserRoleAdmin      = db.UserRoleAdmin
	UserRoleUser       = db.UserRoleUser

	TransactionTypeGrant   = db.TransactionTypeGrant
	TransactionTypeConsume = db.TransactionTypeConsume
	CreditStatusActive     = db.CreditStatusActive
	CreditStatusDeleted    = db.CreditStatusDeleted

	CreditScenePayment      = db.CreditScenePayment
	CreditSceneSubscription = db.CreditSceneSubscription
	CreditSceneRenewal      = db.CreditSceneRenewal
	CreditSceneGift         = db.CreditSceneGift
	CreditSceneAward        = db.CreditSceneAward
	CreditSceneSignup       = db.CreditSceneSignup

	AITaskPending    = db.AITaskPending
	AITaskProcessing = db.AITaskProcessing
	AITaskSuccess    = db.AITaskSuccess
	AITaskFailed     = db.AITaskFailed
)
