package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/tgmarket/order-service/internal/domain"
)

type PendingOrderUsecase interface {
	SavePendingOrder(ctx context.Context, pending *domain.PendingOrder) error
	GetPendingOrder(ctx context.Context, invoiceID string) (*domain.PendingOrder, error)
	DeletePendingOrder(ctx context.Context, invoiceID string) error
}

type DefaultPendingOrderUsecase struct {
	Store domain.DocumentStore
}

func NewDefaultPendingOrderUsecase(store domain.DocumentStore) *DefaultPendingOrderUsecase {
	return &DefaultPendingOrderUsecase{
		Store: store,
	}
}

// SavePendingOrder upserts the purchase intent under its invoice id.
// A retried checkout for the same invoice replaces the stale record.
func (uc *DefaultPendingOrderUsecase) SavePendingOrder(ctx context.Context, pending *domain.PendingOrder) error {
	if pending == nil || pending.InvoiceID == "" {
		return fmt.Errorf("%w: invoiceId is required", domain.ErrValidation)
	}
	if pending.TotalAmount < 0 {
		return fmt.Errorf("%w: totalAmount must not be negative", domain.ErrValidation)
	}
	if pending.CreatedAt.IsZero() {
		pending.CreatedAt = time.Now()
	}

	fields, err := domain.EncodeFields(pending)
	if err != nil {
		return err
	}
	return uc.Store.Set(ctx, domain.CollectionPendingOrders, pending.InvoiceID, fields)
}

func (uc *DefaultPendingOrderUsecase) GetPendingOrder(ctx context.Context, invoiceID string) (*domain.PendingOrder, error) {
	if invoiceID == "" {
		return nil, fmt.Errorf("%w: invoiceId is required", domain.ErrValidation)
	}

	doc, err := uc.Store.Get(ctx, domain.CollectionPendingOrders, invoiceID)
	if err != nil {
		if errors.Is(err, domain.ErrDocumentNotFound) {
			return nil, domain.ErrPendingOrderNotFound
		}
		return nil, err
	}

	var pending domain.PendingOrder
	if err := domain.DecodeDocument(doc, &pending); err != nil {
		return nil, err
	}
	pending.InvoiceID = doc.ID
	return &pending, nil
}

// DeletePendingOrder is idempotent; deleting an absent record is a no-op.
func (uc *DefaultPendingOrderUsecase) DeletePendingOrder(ctx context.Context, invoiceID string) error {
	if invoiceID == "" {
		return fmt.Errorf("%w: invoiceId is required", domain.ErrValidation)
	}
	return uc.Store.Delete(ctx, domain.CollectionPendingOrders, invoiceID)
}
