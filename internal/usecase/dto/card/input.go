package carddto

type SaveCardInput struct {
	UserID   string
	CardID   string
	CardMask string
	CardType string
}

type SetDefaultCardInput struct {
	UserID       string
	CardRecordID string
}
