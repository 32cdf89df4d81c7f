package domain

import "time"

// SavedCard is a verified payment card reference issued by the gateway.
// The record id is a deterministic composite of (UserID, CardID), so
// re-saving the same gateway card converges on the same document.
// Cards are never hard-deleted.
type SavedCard struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	CardID    string    `json:"cardId"`
	CardMask  string    `json:"cardMask"`
	CardType  string    `json:"cardType"`
	IsDefault bool      `json:"isDefault"`
	IsDeleted bool      `json:"isDeleted"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// CardRecordID builds the composite document id for a saved card.
func CardRecordID(userID, cardID string) string {
	return userID + "_" + cardID
}
