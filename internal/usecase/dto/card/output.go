package carddto

type SaveCardOutput struct {
	CardRecordID string
	IsDefault    bool
}
