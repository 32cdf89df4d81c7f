package orderdto

type CompleteOrderOutput struct {
	OrderID          string
	OrderNumber      string
	AlreadyCompleted bool
}
