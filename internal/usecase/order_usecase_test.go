package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tgmarket/order-service/internal/domain"
	"github.com/tgmarket/order-service/internal/infrastructure/kafka"
	"github.com/tgmarket/order-service/internal/infrastructure/memory"
)

type recordingOrderPublisher struct {
	events []kafka.OrderCompletedEvent
	err    error
}

func (p *recordingOrderPublisher) PublishOrderCompleted(event kafka.OrderCompletedEvent) error {
	p.events = append(p.events, event)
	return p.err
}

// failingStore makes writes to selected collections fail.
type failingStore struct {
	domain.DocumentStore
	failSet    map[string]bool
	failUpdate map[string]bool
}

func (s *failingStore) Set(ctx context.Context, collection, id string, fields map[string]any) error {
	if s.failSet[collection] {
		return domain.ErrStoreUnavailable
	}
	return s.DocumentStore.Set(ctx, collection, id, fields)
}

func (s *failingStore) Update(ctx context.Context, collection, id string, fields map[string]any) error {
	if s.failUpdate[collection] {
		return domain.ErrStoreUnavailable
	}
	return s.DocumentStore.Update(ctx, collection, id, fields)
}

func newOrderUsecase(store domain.DocumentStore) *DefaultOrderUsecase {
	pending := NewDefaultPendingOrderUsecase(store)
	return NewDefaultOrderUsecase(store, pending, nil, nil, nil)
}

func seedProduct(t *testing.T, store domain.DocumentStore, productID string) {
	t.Helper()
	err := store.Set(context.Background(), domain.CollectionProducts, productID, map[string]any{
		"name":   "Vintage camera",
		"status": "available",
	})
	require.NoError(t, err)
}

func productStatus(t *testing.T, store domain.DocumentStore, productID string) string {
	t.Helper()
	doc, err := store.Get(context.Background(), domain.CollectionProducts, productID)
	require.NoError(t, err)
	status, _ := doc.Data["status"].(string)
	return status
}

func TestCompleteOrderFromPending(t *testing.T) {
	store := memory.NewDocumentStore()
	uc := newOrderUsecase(store)
	ctx := context.Background()

	seedProduct(t, store, "p1")
	require.NoError(t, uc.PendingOrders.SavePendingOrder(ctx, testPendingOrder("inv-001")))

	out, err := uc.CompleteOrderFromPending(ctx, "inv-001")
	require.NoError(t, err)
	require.NotEmpty(t, out.OrderID)
	assert.False(t, out.AlreadyCompleted)
	assert.Regexp(t, `^\d{6}-\d{5}$`, out.OrderNumber)

	order, err := uc.GetOrderByID(ctx, out.OrderID)
	require.NoError(t, err)
	assert.Equal(t, "inv-001", order.InvoiceID)
	assert.Equal(t, domain.StatusPaid, order.Status)
	assert.False(t, order.IsDeleted)
	assert.Equal(t, "p1", order.ProductID)
	assert.Equal(t, float64(1000), order.TotalAmount)
	assert.Equal(t, "u1", order.BuyerID)

	// The pending order is consumed and the product marked sold.
	_, err = uc.PendingOrders.GetPendingOrder(ctx, "inv-001")
	assert.ErrorIs(t, err, domain.ErrPendingOrderNotFound)
	assert.Equal(t, domain.ProductStatusSold, productStatus(t, store, "p1"))
}

func TestCompleteOrderFromPending_MissingInvoice(t *testing.T) {
	store := memory.NewDocumentStore()
	uc := newOrderUsecase(store)
	ctx := context.Background()

	_, err := uc.CompleteOrderFromPending(ctx, "does-not-exist")
	assert.ErrorIs(t, err, domain.ErrPendingOrderNotFound)

	docs, err := store.QueryEquals(ctx, domain.CollectionOrders)
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestCompleteOrderFromPending_RetryIsIdempotent(t *testing.T) {
	store := memory.NewDocumentStore()
	uc := newOrderUsecase(store)
	ctx := context.Background()

	seedProduct(t, store, "p1")
	require.NoError(t, uc.PendingOrders.SavePendingOrder(ctx, testPendingOrder("inv-001")))

	first, err := uc.CompleteOrderFromPending(ctx, "inv-001")
	require.NoError(t, err)

	second, err := uc.CompleteOrderFromPending(ctx, "inv-001")
	require.NoError(t, err)
	assert.True(t, second.AlreadyCompleted)
	assert.Equal(t, first.OrderID, second.OrderID)

	docs, err := store.QueryEquals(ctx, domain.CollectionOrders,
		domain.Predicate{Field: "invoiceId", Value: "inv-001"})
	require.NoError(t, err)
	assert.Len(t, docs, 1)
}

func TestCompleteOrderFromPending_ResumesAfterPartialRun(t *testing.T) {
	store := memory.NewDocumentStore()
	uc := newOrderUsecase(store)
	ctx := context.Background()

	seedProduct(t, store, "p1")
	require.NoError(t, uc.PendingOrders.SavePendingOrder(ctx, testPendingOrder("inv-001")))

	// Simulate a crash right after the order write: the order exists, the
	// product and the pending record were never touched.
	stale := domain.Order{
		ID:          "order-1",
		OrderNumber: GenerateOrderNumber(),
		InvoiceID:   "inv-001",
		ProductID:   "p1",
		Status:      domain.StatusPaid,
	}
	fields, err := domain.EncodeFields(stale)
	require.NoError(t, err)
	require.NoError(t, store.Set(ctx, domain.CollectionOrders, stale.ID, fields))

	out, err := uc.CompleteOrderFromPending(ctx, "inv-001")
	require.NoError(t, err)
	assert.True(t, out.AlreadyCompleted)
	assert.Equal(t, "order-1", out.OrderID)

	_, err = uc.PendingOrders.GetPendingOrder(ctx, "inv-001")
	assert.ErrorIs(t, err, domain.ErrPendingOrderNotFound)
	assert.Equal(t, domain.ProductStatusSold, productStatus(t, store, "p1"))
}

func TestCompleteOrderFromPending_OrderWriteFailureKeepsPending(t *testing.T) {
	store := &failingStore{
		DocumentStore: memory.NewDocumentStore(),
		failSet:       map[string]bool{domain.CollectionOrders: true},
	}
	uc := newOrderUsecase(store)
	ctx := context.Background()

	require.NoError(t, uc.PendingOrders.SavePendingOrder(ctx, testPendingOrder("inv-001")))

	_, err := uc.CompleteOrderFromPending(ctx, "inv-001")
	assert.ErrorIs(t, err, domain.ErrOrderWriteFailed)

	// Pending order survives so the gateway callback can be retried.
	pending, err := uc.PendingOrders.GetPendingOrder(ctx, "inv-001")
	require.NoError(t, err)
	assert.Equal(t, "inv-001", pending.InvoiceID)
}

func TestCompleteOrderFromPending_ProductFailureIsNonFatal(t *testing.T) {
	store := &failingStore{
		DocumentStore: memory.NewDocumentStore(),
		failUpdate:    map[string]bool{domain.CollectionProducts: true},
	}
	uc := newOrderUsecase(store)
	ctx := context.Background()

	require.NoError(t, uc.PendingOrders.SavePendingOrder(ctx, testPendingOrder("inv-001")))

	out, err := uc.CompleteOrderFromPending(ctx, "inv-001")
	require.NoError(t, err)
	assert.NotEmpty(t, out.OrderID)

	_, err = uc.PendingOrders.GetPendingOrder(ctx, "inv-001")
	assert.ErrorIs(t, err, domain.ErrPendingOrderNotFound)
}

func TestProductRepairQueue_RetriesUntilSuccess(t *testing.T) {
	store := &failingStore{
		DocumentStore: memory.NewDocumentStore(),
		failUpdate:    map[string]bool{domain.CollectionProducts: true},
	}
	queue := NewProductRepairQueue(store, nil)
	ctx := context.Background()

	seedProduct(t, store, "p1")

	queue.process(ctx, productRepairTask{ProductID: "p1", Attempt: 1})
	assert.NotEqual(t, domain.ProductStatusSold, productStatus(t, store, "p1"))

	// The store recovers; the next attempt lands.
	store.failUpdate = nil
	queue.process(ctx, productRepairTask{ProductID: "p1", Attempt: 2})
	assert.Equal(t, domain.ProductStatusSold, productStatus(t, store, "p1"))
}

func TestCompleteOrderFromPending_PublishesEventInline(t *testing.T) {
	store := memory.NewDocumentStore()
	pending := NewDefaultPendingOrderUsecase(store)
	pub := &recordingOrderPublisher{}
	uc := NewDefaultOrderUsecase(store, pending, pub, nil, nil)
	ctx := context.Background()

	seedProduct(t, store, "p1")
	require.NoError(t, pending.SavePendingOrder(ctx, testPendingOrder("inv-001")))

	out, err := uc.CompleteOrderFromPending(ctx, "inv-001")
	require.NoError(t, err)

	// The event is on the wire before the call returns.
	require.Len(t, pub.events, 1)
	assert.Equal(t, out.OrderID, pub.events[0].OrderID)
	assert.Equal(t, "inv-001", pub.events[0].InvoiceID)
	assert.Equal(t, string(domain.StatusPaid), pub.events[0].Status)
}

func TestCompleteOrderFromPending_PublishFailureDoesNotFailCompletion(t *testing.T) {
	store := memory.NewDocumentStore()
	pending := NewDefaultPendingOrderUsecase(store)
	pub := &recordingOrderPublisher{err: errors.New("broker down")}
	uc := NewDefaultOrderUsecase(store, pending, pub, nil, nil)
	ctx := context.Background()

	seedProduct(t, store, "p1")
	require.NoError(t, pending.SavePendingOrder(ctx, testPendingOrder("inv-001")))

	out, err := uc.CompleteOrderFromPending(ctx, "inv-001")
	require.NoError(t, err)
	assert.NotEmpty(t, out.OrderID)
}

func TestGetOrdersByBuyerID_ExcludesSoftDeleted(t *testing.T) {
	store := memory.NewDocumentStore()
	uc := newOrderUsecase(store)
	ctx := context.Background()

	require.NoError(t, uc.PendingOrders.SavePendingOrder(ctx, testPendingOrder("inv-001")))
	require.NoError(t, uc.PendingOrders.SavePendingOrder(ctx, testPendingOrder("inv-002")))

	first, err := uc.CompleteOrderFromPending(ctx, "inv-001")
	require.NoError(t, err)
	_, err = uc.CompleteOrderFromPending(ctx, "inv-002")
	require.NoError(t, err)

	orders, err := uc.GetOrdersByBuyerID(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, orders, 2)

	require.NoError(t, uc.SoftDeleteOrder(ctx, first.OrderID))

	orders, err = uc.GetOrdersByBuyerID(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, orders, 1)

	// Soft-deleted order is still retrievable by id.
	order, err := uc.GetOrderByID(ctx, first.OrderID)
	require.NoError(t, err)
	assert.True(t, order.IsDeleted)
}

func TestSoftDeleteOrder_Unknown(t *testing.T) {
	uc := newOrderUsecase(memory.NewDocumentStore())
	err := uc.SoftDeleteOrder(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrOrderNotFound)
}

func TestGetOrderByID_Unknown(t *testing.T) {
	uc := newOrderUsecase(memory.NewDocumentStore())
	_, err := uc.GetOrderByID(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrOrderNotFound)
}
