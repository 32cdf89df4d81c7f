package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/tgmarket/order-service/internal/usecase"
	carddto "github.com/tgmarket/order-service/internal/usecase/dto/card"
)

type CardHandler struct {
	cardUsecase usecase.CardUsecase
}

func NewCardHandler(cardUsecase usecase.CardUsecase) *CardHandler {
	return &CardHandler{cardUsecase: cardUsecase}
}

type SaveCardRequest struct {
	UserID   string `json:"user_id"`
	CardID   string `json:"card_id"`
	CardMask string `json:"card_mask"`
	CardType string `json:"card_type"`
}

type SaveCardResponse struct {
	CardRecordID string `json:"card_record_id"`
	IsDefault    bool   `json:"is_default"`
}

func (h *CardHandler) RegisterRoutes(e *echo.Echo) {
	e.POST("/v1/cards", h.save)
	e.GET("/v1/users/:userId/cards", h.list)
	e.GET("/v1/users/:userId/cards/default", h.getDefault)
	e.PUT("/v1/users/:userId/cards/:cardRecordId/default", h.setDefault)
	e.DELETE("/v1/cards/:cardRecordId", h.delete)
}

func (h *CardHandler) save(c echo.Context) error {
	var req SaveCardRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}

	out, err := h.cardUsecase.SaveCard(c.Request().Context(), &carddto.SaveCardInput{
		UserID:   req.UserID,
		CardID:   req.CardID,
		CardMask: req.CardMask,
		CardType: req.CardType,
	})
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, SaveCardResponse{
		CardRecordID: out.CardRecordID,
		IsDefault:    out.IsDefault,
	})
}

func (h *CardHandler) list(c echo.Context) error {
	cards, err := h.cardUsecase.GetUserCards(c.Request().Context(), c.Param("userId"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, cards)
}

func (h *CardHandler) getDefault(c echo.Context) error {
	card, err := h.cardUsecase.GetDefaultCard(c.Request().Context(), c.Param("userId"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, card)
}

func (h *CardHandler) setDefault(c echo.Context) error {
	err := h.cardUsecase.SetDefaultCard(c.Request().Context(), &carddto.SetDefaultCardInput{
		UserID:       c.Param("userId"),
		CardRecordID: c.Param("cardRecordId"),
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *CardHandler) delete(c echo.Context) error {
	if err := h.cardUsecase.DeleteCard(c.Request().Context(), c.Param("cardRecordId")); err != nil {
		return writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
