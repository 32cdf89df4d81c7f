package kafka

type OrderCompletedEvent struct {
	OrderID     string  `json:"order_id"`
	OrderNumber string  `json:"order_number"`
	InvoiceID   string  `json:"invoice_id"`
	BuyerID     string  `json:"buyer_id"`
	TotalAmount float64 `json:"total_amount"`
	Status      string  `json:"status"`
}

type CardEvent struct {
	CardRecordID string `json:"card_record_id"`
	UserID       string `json:"user_id"`
	Action       string `json:"action"` // "saved", "default_set", "deleted"
	IsDefault    bool   `json:"is_default"`
}
