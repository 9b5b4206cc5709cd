// Package ledger holds the credit ledger rules shared by storage backends:
// error values, grant eligibility and the greedy draw plan.
package ledger

import (
	"aistudio/internal/entity/db"
	"errors"
	"fmt"
	"time"
)

var (
	ErrInvalidCreditAmount   = errors.New("credit amount must be positive")
	ErrInsufficientCredits   = errors.New("insufficient credits")
	ErrConcurrentConsumption = errors.New("grant balance changed during consumption")
	ErrNotConsumption        = errors.New("credit entry is not a consumption")
	ErrRefundTargetMissing   = errors.New("refund target grant not found")
	ErrInvalidTaskStatus     = errors.New("invalid task status")
	ErrTaskTerminal          = errors.New("task already in terminal status")
	ErrInvalidTransition     = errors.New("invalid task status transition")
	ErrMissingUser           = errors.New("user id is required")
)

// InsufficientCreditsError 说明余额不足时所需与可用的积分。
type InsufficientCreditsError struct {
	UserID    string
	Required  int64
	Available int64
}

func (e *InsufficientCreditsError) Error() string {
	return fmt.Sprintf("insufficient credits for user %s: required %d, available %d", e.UserID, e.Required, e.Available)
}

func (e *InsufficientCreditsError) Unwrap() error {
	return ErrInsufficientCredits
}

// Spendable filters grants down to those that can be drawn at now.
func Spendable(grants []db.Credit, now time.Time) []db.Credit {
	out := make([]db.Credit, 0, len(grants))
	for _, g := range grants {
		if g.Spendable(now) {
			out = append(out, g)
		}
	}
	return out
}

// Available 返回积分包的剩余积分之和。
func Available(grants []db.Credit) int64 {
	var total int64
	for _, g := range grants {
		if g.RemainingCredits > 0 {
			total += g.RemainingCredits
		}
	}
	return total
}

// PlanDraws 按给定顺序贪心地从积分包中扣除 amount。
// grants 必须已按消耗优先级排序（先到期的在前，永不过期的在后）。
// 余额不足时返回 *InsufficientCreditsError，且不产生任何扣除计划。
func PlanDraws(userID string, grants []db.Credit, amount int64) (db.ConsumedDetail, error) {
	if amount <= 0 {
		return nil, ErrInvalidCreditAmount
	}
	if available := Available(grants); available < amount {
		return nil, &InsufficientCreditsError{UserID: userID, Required: amount, Available: available}
	}

	left := amount
	plan := make(db.ConsumedDetail, 0, len(grants))
	for _, g := range grants {
		if left == 0 {
			break
		}
		if g.RemainingCredits <= 0 {
			continue
		}
		take := g.RemainingCredits
		if take > left {
			take = left
		}
		plan = append(plan, db.ConsumedItem{CreditID: g.ID, CreditsConsumed: take})
		left -= take
	}
	return plan, nil
}
