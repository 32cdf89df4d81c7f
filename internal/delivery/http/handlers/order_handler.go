package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/tgmarket/order-service/internal/domain"
	"github.com/tgmarket/order-service/internal/usecase"
)

type OrderHandler struct {
	orderUsecase   usecase.OrderUsecase
	pendingUsecase usecase.PendingOrderUsecase
}

func NewOrderHandler(orderUsecase usecase.OrderUsecase, pendingUsecase usecase.PendingOrderUsecase) *OrderHandler {
	return &OrderHandler{
		orderUsecase:   orderUsecase,
		pendingUsecase: pendingUsecase,
	}
}

type SavePendingOrderRequest struct {
	InvoiceID       string  `json:"invoice_id"`
	ProductID       string  `json:"product_id"`
	ProductName     string  `json:"product_name"`
	ProductPrice    float64 `json:"product_price"`
	ProductImage    string  `json:"product_image"`
	ProductCategory string  `json:"product_category"`
	DeliveryAddress string  `json:"delivery_address"`
	Amount          float64 `json:"amount"`
	DeliveryFee     float64 `json:"delivery_fee"`
	TotalAmount     float64 `json:"total_amount"`
	BuyerID         string  `json:"buyer_id"`
	BuyerName       string  `json:"buyer_name"`
	BuyerPhone      string  `json:"buyer_phone"`
}

func (h *OrderHandler) RegisterRoutes(e *echo.Echo) {
	e.POST("/v1/orders/pending", h.savePending)
	e.GET("/v1/orders/pending/:invoiceId", h.getPending)
	e.GET("/v1/orders/:id", h.detail)
	e.GET("/v1/users/:userId/orders", h.listByBuyer)
	e.DELETE("/v1/orders/:id", h.softDelete)
}

// savePending stores the checkout intent before the caller redirects the
// user to the payment gateway.
func (h *OrderHandler) savePending(c echo.Context) error {
	var req SavePendingOrderRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}

	err := h.pendingUsecase.SavePendingOrder(c.Request().Context(), &domain.PendingOrder{
		InvoiceID:       req.InvoiceID,
		ProductID:       req.ProductID,
		ProductName:     req.ProductName,
		ProductPrice:    req.ProductPrice,
		ProductImage:    req.ProductImage,
		ProductCategory: req.ProductCategory,
		DeliveryAddress: req.DeliveryAddress,
		Amount:          req.Amount,
		DeliveryFee:     req.DeliveryFee,
		TotalAmount:     req.TotalAmount,
		BuyerID:         req.BuyerID,
		BuyerName:       req.BuyerName,
		BuyerPhone:      req.BuyerPhone,
	})
	if err != nil {
		return writeError(c, err)
	}

	return c.NoContent(http.StatusCreated)
}

func (h *OrderHandler) getPending(c echo.Context) error {
	pending, err := h.pendingUsecase.GetPendingOrder(c.Request().Context(), c.Param("invoiceId"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, pending)
}

func (h *OrderHandler) detail(c echo.Context) error {
	order, err := h.orderUsecase.GetOrderByID(c.Request().Context(), c.Param("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, order)
}

func (h *OrderHandler) listByBuyer(c echo.Context) error {
	orders, err := h.orderUsecase.GetOrdersByBuyerID(c.Request().Context(), c.Param("userId"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, orders)
}

func (h *OrderHandler) softDelete(c echo.Context) error {
	if err := h.orderUsecase.SoftDeleteOrder(c.Request().Context(), c.Param("id")); err != nil {
		return writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
