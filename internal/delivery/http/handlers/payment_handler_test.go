package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tgmarket/order-service/internal/domain"
	"github.com/tgmarket/order-service/internal/infrastructure/memory"
	"github.com/tgmarket/order-service/internal/usecase"
)

func doJSON(e *echo.Echo, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func newPaymentTestServer(t *testing.T) (*echo.Echo, *memory.DocumentStore) {
	t.Helper()
	store := memory.NewDocumentStore()
	pending := usecase.NewDefaultPendingOrderUsecase(store)
	orderUsecase := usecase.NewDefaultOrderUsecase(store, pending, nil, nil, nil)

	e := echo.New()
	NewPaymentHandler(orderUsecase).RegisterRoutes(e)
	return e, store
}

func seedPendingOrder(t *testing.T, store *memory.DocumentStore, invoiceID string) {
	t.Helper()
	ctx := context.Background()

	err := store.Set(ctx, domain.CollectionProducts, "p1", map[string]any{
		"name":   "Vintage camera",
		"status": "available",
	})
	require.NoError(t, err)

	pending := usecase.NewDefaultPendingOrderUsecase(store)
	err = pending.SavePendingOrder(ctx, &domain.PendingOrder{
		InvoiceID:   invoiceID,
		ProductID:   "p1",
		ProductName: "Vintage camera",
		TotalAmount: 1000,
		BuyerID:     "u1",
	})
	require.NoError(t, err)
}

func TestPaymentCallback_CompletesOrder(t *testing.T) {
	e, store := newPaymentTestServer(t)
	seedPendingOrder(t, store, "inv-001")

	rec := doJSON(e, http.MethodPost, "/v1/payments/callback", `{"invoice_id":"inv-001"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp PaymentCallbackResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.OrderID)
	assert.Regexp(t, `^\d{6}-\d{5}$`, resp.OrderNumber)
	assert.False(t, resp.AlreadyCompleted)

	doc, err := store.Get(context.Background(), domain.CollectionProducts, "p1")
	require.NoError(t, err)
	assert.Equal(t, domain.ProductStatusSold, doc.Data["status"])
}

func TestPaymentCallback_RetryReturnsSameOrder(t *testing.T) {
	e, store := newPaymentTestServer(t)
	seedPendingOrder(t, store, "inv-001")

	rec := doJSON(e, http.MethodPost, "/v1/payments/callback", `{"invoice_id":"inv-001"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var first PaymentCallbackResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &first))

	rec = doJSON(e, http.MethodPost, "/v1/payments/callback", `{"invoice_id":"inv-001"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var second PaymentCallbackResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &second))

	assert.Equal(t, first.OrderID, second.OrderID)
	assert.True(t, second.AlreadyCompleted)
}

func TestPaymentCallback_UnknownInvoiceIs404(t *testing.T) {
	e, _ := newPaymentTestServer(t)

	rec := doJSON(e, http.MethodPost, "/v1/payments/callback", `{"invoice_id":"inv-404"}`)
	require.Equal(t, http.StatusNotFound, rec.Code)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, domain.ErrPendingOrderNotFound.Error(), resp.Error)
}

func TestPaymentCallback_MissingInvoiceIs400(t *testing.T) {
	e, _ := newPaymentTestServer(t)

	rec := doJSON(e, http.MethodPost, "/v1/payments/callback", `{"invoice_id":""}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPaymentCallback_MalformedBodyIs400(t *testing.T) {
	e, _ := newPaymentTestServer(t)

	rec := doJSON(e, http.MethodPost, "/v1/payments/callback", `{not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
