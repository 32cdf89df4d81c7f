package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/tgmarket/order-service/internal/domain"
	"github.com/tgmarket/order-service/internal/infrastructure/kafka"
	"github.com/tgmarket/order-service/internal/infrastructure/metrics"
	orderdto "github.com/tgmarket/order-service/internal/usecase/dto/order"
)

type OrderUsecase interface {
	CompleteOrderFromPending(ctx context.Context, invoiceID string) (*orderdto.CompleteOrderOutput, error)
	GetOrderByID(ctx context.Context, orderID string) (*domain.Order, error)
	GetOrdersByBuyerID(ctx context.Context, buyerID string) ([]*domain.Order, error)
	SoftDeleteOrder(ctx context.Context, orderID string) error
}

// OrderEventPublisher pushes order lifecycle events to the message broker.
type OrderEventPublisher interface {
	PublishOrderCompleted(event kafka.OrderCompletedEvent) error
}

type DefaultOrderUsecase struct {
	Store         domain.DocumentStore
	PendingOrders PendingOrderUsecase
	Publisher     OrderEventPublisher
	Metrics       *metrics.OrderMetrics
	Repair        *ProductRepairQueue
}

func NewDefaultOrderUsecase(
	store domain.DocumentStore,
	pendingOrders PendingOrderUsecase,
	publisher OrderEventPublisher,
	orderMetrics *metrics.OrderMetrics,
	repair *ProductRepairQueue) *DefaultOrderUsecase {

	return &DefaultOrderUsecase{
		Store:         store,
		PendingOrders: pendingOrders,
		Publisher:     publisher,
		Metrics:       orderMetrics,
		Repair:        repair,
	}
}

// CompleteOrderFromPending turns a confirmed payment into a durable order:
// write the order, mark the product sold, drop the pending record. The order
// write is the success signal; the product update is repaired asynchronously
// if it fails. An order already existing for the invoice makes the call an
// idempotent success, so gateway retries and crash re-runs never duplicate
// an order.
func (uc *DefaultOrderUsecase) CompleteOrderFromPending(ctx context.Context, invoiceID string) (*orderdto.CompleteOrderOutput, error) {
	if invoiceID == "" {
		return nil, fmt.Errorf("%w: invoiceId is required", domain.ErrValidation)
	}
	started := time.Now()

	existing, err := uc.findOrderByInvoiceID(ctx, invoiceID)
	if err != nil {
		uc.recordError("idempotency_check")
		return nil, err
	}
	if existing != nil {
		// A crash after the order write can leave the product update and the
		// pending delete unfinished; resume them instead of duplicating.
		if existing.ProductID != "" {
			uc.markProductSold(ctx, existing.ProductID)
		}
		if err := uc.PendingOrders.DeletePendingOrder(ctx, invoiceID); err != nil {
			slog.Error("failed to drop stale pending order", "invoice_id", invoiceID, "error", err.Error())
		}
		return &orderdto.CompleteOrderOutput{
			OrderID:          existing.ID,
			OrderNumber:      existing.OrderNumber,
			AlreadyCompleted: true,
		}, nil
	}

	pending, err := uc.PendingOrders.GetPendingOrder(ctx, invoiceID)
	if err != nil {
		if errors.Is(err, domain.ErrPendingOrderNotFound) {
			uc.recordError("pending_not_found")
		}
		return nil, err
	}

	now := time.Now()
	order := domain.Order{
		ID:              uuid.NewString(),
		OrderNumber:     GenerateOrderNumber(),
		InvoiceID:       invoiceID,
		ProductID:       pending.ProductID,
		ProductName:     pending.ProductName,
		ProductPrice:    pending.ProductPrice,
		ProductImage:    pending.ProductImage,
		ProductCategory: pending.ProductCategory,
		DeliveryAddress: pending.DeliveryAddress,
		Amount:          pending.Amount,
		DeliveryFee:     pending.DeliveryFee,
		TotalAmount:     pending.TotalAmount,
		BuyerID:         pending.BuyerID,
		BuyerName:       pending.BuyerName,
		BuyerPhone:      pending.BuyerPhone,
		Status:          domain.StatusPaid,
		IsDeleted:       false,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	fields, err := domain.EncodeFields(order)
	if err != nil {
		return nil, err
	}
	if err := uc.Store.Set(ctx, domain.CollectionOrders, order.ID, fields); err != nil {
		// Pending order left intact so the caller can retry.
		uc.recordError("order_write")
		return nil, fmt.Errorf("%w: %v", domain.ErrOrderWriteFailed, err)
	}

	if order.ProductID != "" {
		uc.markProductSold(ctx, order.ProductID)
	}

	if err := uc.PendingOrders.DeletePendingOrder(ctx, invoiceID); err != nil {
		// Order is durable; the idempotency guard finishes cleanup on retry.
		slog.Error("failed to delete pending order after completion",
			"invoice_id", invoiceID, "order_id", order.ID, "error", err.Error())
	}

	if uc.Metrics != nil {
		uc.Metrics.RecordOrderCompleted(order.TotalAmount)
		uc.Metrics.RecordOrderCompletionDuration(time.Since(started).Seconds())
	}
	uc.publishOrderCompleted(order)

	return &orderdto.CompleteOrderOutput{
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
	}, nil
}

func (uc *DefaultOrderUsecase) GetOrderByID(ctx context.Context, orderID string) (*domain.Order, error) {
	if orderID == "" {
		return nil, fmt.Errorf("%w: order id is required", domain.ErrValidation)
	}

	doc, err := uc.Store.Get(ctx, domain.CollectionOrders, orderID)
	if err != nil {
		if errors.Is(err, domain.ErrDocumentNotFound) {
			return nil, domain.ErrOrderNotFound
		}
		return nil, err
	}

	var order domain.Order
	if err := domain.DecodeDocument(doc, &order); err != nil {
		return nil, err
	}
	order.ID = doc.ID
	return &order, nil
}

// GetOrdersByBuyerID lists the buyer's orders, newest first.
// Soft-deleted orders are excluded.
func (uc *DefaultOrderUsecase) GetOrdersByBuyerID(ctx context.Context, buyerID string) ([]*domain.Order, error) {
	if buyerID == "" {
		return nil, fmt.Errorf("%w: buyerId is required", domain.ErrValidation)
	}

	docs, err := uc.Store.QueryEquals(ctx, domain.CollectionOrders,
		domain.Predicate{Field: "buyerId", Value: buyerID})
	if err != nil {
		return nil, err
	}

	orders := make([]*domain.Order, 0, len(docs))
	for _, doc := range docs {
		var order domain.Order
		if err := domain.DecodeDocument(doc, &order); err != nil {
			return nil, err
		}
		order.ID = doc.ID
		if !order.IsDeleted {
			orders = append(orders, &order)
		}
	}
	sort.Slice(orders, func(i, j int) bool {
		return orders[i].CreatedAt.After(orders[j].CreatedAt)
	})
	return orders, nil
}

func (uc *DefaultOrderUsecase) SoftDeleteOrder(ctx context.Context, orderID string) error {
	if orderID == "" {
		return fmt.Errorf("%w: order id is required", domain.ErrValidation)
	}

	err := uc.Store.Update(ctx, domain.CollectionOrders, orderID, map[string]any{
		"isDeleted": true,
		"updatedAt": time.Now(),
	})
	if errors.Is(err, domain.ErrDocumentNotFound) {
		return domain.ErrOrderNotFound
	}
	return err
}

func (uc *DefaultOrderUsecase) findOrderByInvoiceID(ctx context.Context, invoiceID string) (*domain.Order, error) {
	docs, err := uc.Store.QueryEquals(ctx, domain.CollectionOrders,
		domain.Predicate{Field: "invoiceId", Value: invoiceID})
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, nil
	}

	var order domain.Order
	if err := domain.DecodeDocument(docs[0], &order); err != nil {
		return nil, err
	}
	order.ID = docs[0].ID
	return &order, nil
}

// markProductSold flips the product status. Failures never fail the
// completion call; transient errors go to the repair queue.
func (uc *DefaultOrderUsecase) markProductSold(ctx context.Context, productID string) {
	err := uc.Store.Update(ctx, domain.CollectionProducts, productID, map[string]any{
		"status":    domain.ProductStatusSold,
		"updatedAt": time.Now(),
	})
	if err == nil {
		if uc.Metrics != nil {
			uc.Metrics.RecordProductRepair("inline")
		}
		return
	}

	if errors.Is(err, domain.ErrDocumentNotFound) {
		slog.Error("product missing, cannot mark sold", "product_id", productID)
		uc.recordError("product_missing")
		return
	}

	slog.Error("failed to mark product sold, scheduling repair",
		"product_id", productID, "error", err.Error())
	if uc.Repair != nil {
		uc.Repair.Enqueue(productID)
	}
	uc.recordError("product_update")
}

// publishOrderCompleted publishes inline; a broker failure is logged and
// never fails the completed order.
func (uc *DefaultOrderUsecase) publishOrderCompleted(order domain.Order) {
	if uc.Publisher == nil {
		return
	}
	event := kafka.OrderCompletedEvent{
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
		InvoiceID:   order.InvoiceID,
		BuyerID:     order.BuyerID,
		TotalAmount: order.TotalAmount,
		Status:      string(order.Status),
	}
	if err := uc.Publisher.PublishOrderCompleted(event); err != nil {
		slog.Error("failed to publish kafka OrderCompletedEvent", "order_id", event.OrderID, "error", err.Error())
	}
}

func (uc *DefaultOrderUsecase) recordError(errorType string) {
	if uc.Metrics != nil {
		uc.Metrics.RecordOrderError(errorType)
	}
}
