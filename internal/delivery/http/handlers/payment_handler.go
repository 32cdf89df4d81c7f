package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/tgmarket/order-service/internal/usecase"
)

// PaymentHandler receives the payment gateway callback. The gateway only
// reports the invoice id; everything else comes from the pending order.
type PaymentHandler struct {
	orderUsecase usecase.OrderUsecase
}

func NewPaymentHandler(orderUsecase usecase.OrderUsecase) *PaymentHandler {
	return &PaymentHandler{orderUsecase: orderUsecase}
}

type PaymentCallbackRequest struct {
	InvoiceID string `json:"invoice_id"`
}

type PaymentCallbackResponse struct {
	OrderID          string `json:"order_id"`
	OrderNumber      string `json:"order_number"`
	AlreadyCompleted bool   `json:"already_completed"`
}

func (h *PaymentHandler) RegisterRoutes(e *echo.Echo) {
	e.POST("/v1/payments/callback", h.callback)
}

func (h *PaymentHandler) callback(c echo.Context) error {
	var req PaymentCallbackRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}

	out, err := h.orderUsecase.CompleteOrderFromPending(c.Request().Context(), req.InvoiceID)
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, PaymentCallbackResponse{
		OrderID:          out.OrderID,
		OrderNumber:      out.OrderNumber,
		AlreadyCompleted: out.AlreadyCompleted,
	})
}
