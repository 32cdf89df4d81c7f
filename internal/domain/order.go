package domain

import "time"

type OrderStatus string

const (
	StatusPaid      OrderStatus = "paid"
	StatusShipped   OrderStatus = "shipped"
	StatusDelivered OrderStatus = "delivered"
	StatusCanceled  OrderStatus = "canceled"
)

const ProductStatusSold = "sold"

// PendingOrder is a provisional purchase intent, keyed by the gateway-issued
// invoice id and held until the payment callback arrives. The product fields
// are a snapshot taken at checkout and stay authoritative for the final
// order even if the live product changes afterwards.
type PendingOrder struct {
	InvoiceID       string    `json:"invoiceId"`
	ProductID       string    `json:"productId"`
	ProductName     string    `json:"productName"`
	ProductPrice    float64   `json:"productPrice"`
	ProductImage    string    `json:"productImage"`
	ProductCategory string    `json:"productCategory"`
	DeliveryAddress string    `json:"deliveryAddress"`
	Amount          float64   `json:"amount"`
	DeliveryFee     float64   `json:"deliveryFee"`
	TotalAmount     float64   `json:"totalAmount"`
	BuyerID         string    `json:"buyerId"`
	BuyerName       string    `json:"buyerName"`
	BuyerPhone      string    `json:"buyerPhone"`
	CreatedAt       time.Time `json:"createdAt"`
}

// Order is the durable record produced by the finalizer. Written once with
// status "paid"; afterwards only soft-delete and status transitions touch it.
type Order struct {
	ID              string      `json:"id"`
	OrderNumber     string      `json:"orderNumber"`
	InvoiceID       string      `json:"invoiceId"`
	ProductID       string      `json:"productId"`
	ProductName     string      `json:"productName"`
	ProductPrice    float64     `json:"productPrice"`
	ProductImage    string      `json:"productImage"`
	ProductCategory string      `json:"productCategory"`
	DeliveryAddress string      `json:"deliveryAddress"`
	Amount          float64     `json:"amount"`
	DeliveryFee     float64     `json:"deliveryFee"`
	TotalAmount     float64     `json:"totalAmount"`
	BuyerID         string      `json:"buyerId"`
	BuyerName       string      `json:"buyerName"`
	BuyerPhone      string      `json:"buyerPhone"`
	Status          OrderStatus `json:"status"`
	IsDeleted       bool        `json:"isDeleted"`
	CreatedAt       time.Time   `json:"createdAt"`
	UpdatedAt       time.Time   `json:"updatedAt"`
}
