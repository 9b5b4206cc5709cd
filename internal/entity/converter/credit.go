package converter

import (
	"aistudio/internal/entity/db"
	"aistudio/internal/entity/dto"
)

// CreditToItem converts a ledger row to its client view.
func CreditToItem(c *db.Credit) dto.CreditItem {
	if c == nil {
		return dto.CreditItem{}
	}
	item := dto.CreditItem{
		ID:               c.ID,
		TransactionNo:    c.TransactionNo,
		TransactionType:  c.TransactionType,
		TransactionScene: c.TransactionScene,
		Credits:          c.Credits,
		RemainingCredits: c.RemainingCredits,
		Description:      c.Description,
		Status:           c.Status,
		ExpiresAt:        c.ExpiresAt,
		CreatedAt:        c.CreatedAt,
	}
	for _, draw := range c.ConsumedDetail {
		item.ConsumedFrom = append(item.ConsumedFrom, dto.CreditDraw{
			CreditID: draw.CreditID,
			Credits:  draw.CreditsConsumed,
		})
	}
	return item
}

// CreditsToItems converts a slice of ledger rows.
func CreditsToItems(credits []db.Credit) []dto.CreditItem {
	items := make([]dto.CreditItem, len(credits))
	for i := range credits {
		items[i] = CreditToItem(&credits[i])
	}
	return items
}
