package db

import (
	"aistudio/internal/entity/common"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cast"
	"gorm.io/gorm"
)

const (
	TransactionTypeGrant   = "grant"
	TransactionTypeConsume = "consume"

	CreditStatusActive  = "active"
	CreditStatusDeleted = "deleted"

	CreditScenePayment      = "payment"
	CreditSceneSubscription = "subscription"
	CreditSceneRenewal      = "renewal"
	CreditSceneGift         = "gift"
	CreditSceneAward        = "award"
	CreditSceneSignup       = "signup"
)

// Credit 是积分账本中的一行。
// transaction_type=grant 的行是可消耗的积分包，consume 的行记录一次扣费及其来源明细。
type Credit struct {
	ID        string     `gorm:"primaryKey;type:varchar(36)" json:"id"`
	CreatedAt time.Time  `gorm:"index:idx_credit_consume_fifo,priority:6" json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	DeletedAt *time.Time `gorm:"column:deleted_at;index" json:"deleted_at,omitempty"`

	UserID    string `gorm:"column:user_id;type:varchar(36);not null;index:idx_credit_consume_fifo,priority:1" json:"user_id"`
	UserEmail string `gorm:"column:user_email;type:varchar(255)" json:"user_email"`

	OrderNo        string `gorm:"column:order_no;type:varchar(64);index" json:"order_no,omitempty"`
	SubscriptionNo string `gorm:"column:subscription_no;type:varchar(64);index" json:"subscription_no,omitempty"`
	TransactionNo  string `gorm:"column:transaction_no;type:varchar(64);uniqueIndex;not null" json:"transaction_no"`

	TransactionType  string `gorm:"column:transaction_type;type:varchar(32);not null;index:idx_credit_consume_fifo,priority:3" json:"transaction_type"`
	TransactionScene string `gorm:"column:transaction_scene;type:varchar(64)" json:"transaction_scene"`

	// Credits 为正数表示发放，负数表示消耗。
	Credits          int64  `gorm:"column:credits;not null" json:"credits"`
	RemainingCredits int64  `gorm:"column:remaining_credits;not null;default:0;index:idx_credit_consume_fifo,priority:4" json:"remaining_credits"`
	Description      string `gorm:"column:description;type:text" json:"description"`

	ExpiresAt *time.Time `gorm:"column:expires_at;index:idx_credit_consume_fifo,priority:5" json:"expires_at,omitempty"`
	Status    string     `gorm:"column:status;type:varchar(32);not null;default:active;index:idx_credit_consume_fifo,priority:2" json:"status"`

	ConsumedDetail ConsumedDetail `gorm:"column:consumed_detail;type:text" json:"consumed_detail,omitempty"`
	Metadata       common.JSONMap `gorm:"column:metadata;type:text" json:"metadata,omitempty"`
}

// TableName 指定表名。
func (Credit) TableName() string {
	return "credits"
}

// BeforeCreate 填充主键与流水号。
func (c *Credit) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.TransactionNo == "" {
		c.TransactionNo = NewTransactionNo()
	}
	if c.Status == "" {
		c.Status = CreditStatusActive
	}
	return nil
}

// IsGrant reports whether the row is a spendable grant.
func (c *Credit) IsGrant() bool {
	return c != nil && c.TransactionType == TransactionTypeGrant
}

// IsActive reports whether the row has not been soft-deleted.
func (c *Credit) IsActive() bool {
	return c != nil && c.Status == CreditStatusActive && c.DeletedAt == nil
}

// Spendable 判断积分包在 now 时刻是否可被消耗。
func (c *Credit) Spendable(now time.Time) bool {
	if !c.IsGrant() || !c.IsActive() || c.RemainingCredits <= 0 {
		return false
	}
	return c.ExpiresAt == nil || c.ExpiresAt.After(now)
}

// NewTransactionNo 生成全局唯一的流水号。
func NewTransactionNo() string {
	return uuid.NewString()
}

// ConsumedItem 记录一次扣费从某个积分包中扣除的数量。
type ConsumedItem struct {
	CreditID        string `json:"creditId"`
	CreditsConsumed int64  `json:"creditsConsumed"`
}

// ConsumedDetail 以 JSON 文本存储扣费明细，顺序即扣除顺序。
type ConsumedDetail []ConsumedItem

// Total 返回明细中扣除数量之和。
func (d ConsumedDetail) Total() int64 {
	var total int64
	for _, item := range d {
		total += item.CreditsConsumed
	}
	return total
}

// Value 实现 driver.Valuer 接口。
func (d ConsumedDetail) Value() (driver.Value, error) {
	if len(d) == 0 {
		return "[]", nil
	}
	raw, err := json.Marshal([]ConsumedItem(d))
	if err != nil {
		return nil, err
	}
	return string(raw), nil
}

// Scan 实现 sql.Scanner 接口。
// 旧数据里 creditsConsumed 可能以字符串存储，这里统一转换为整数。
func (d *ConsumedDetail) Scan(value interface{}) error {
	if value == nil {
		*d = nil
		return nil
	}

	var raw []byte
	switch v := value.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("unsupported type for ConsumedDetail: %T", value)
	}
	parsed, err := ParseConsumedDetail(raw)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// ParseConsumedDetail 宽松地解析扣费明细。
func ParseConsumedDetail(raw []byte) (ConsumedDetail, error) {
	if len(raw) == 0 {
		return ConsumedDetail{}, nil
	}
	var items []map[string]interface{}
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("parse consumed detail: %w", err)
	}
	out := make(ConsumedDetail, 0, len(items))
	for _, item := range items {
		id := cast.ToString(firstPresent(item, "creditId", "credit_id"))
		if id == "" {
			continue
		}
		amount, err := cast.ToInt64E(firstPresent(item, "creditsConsumed", "credits_consumed"))
		if err != nil {
			return nil, fmt.Errorf("parse consumed amount for %s: %w", id, err)
		}
		out = append(out, ConsumedItem{CreditID: id, CreditsConsumed: amount})
	}
	return out, nil
}

func firstPresent(m map[string]interface{}, keys ...string) interface{} {
	for _, key := range keys {
		if v, ok := m[key]; ok && v != nil {
			return v
		}
	}
	return nil
}
