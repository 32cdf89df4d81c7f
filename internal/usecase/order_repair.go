package usecase

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/tgmarket/order-service/internal/domain"
	"github.com/tgmarket/order-service/internal/infrastructure/metrics"
)

const (
	repairQueueSize   = 128
	repairMaxAttempts = 5
	repairBackoff     = 2 * time.Second
)

type productRepairTask struct {
	ProductID string
	Attempt   int
}

// ProductRepairQueue retries product "sold" updates that failed during order
// completion. Attempts are bounded; a product that keeps failing is logged
// and dropped for manual follow-up.
type ProductRepairQueue struct {
	Store   domain.DocumentStore
	Metrics *metrics.OrderMetrics

	tasks chan productRepairTask
}

func NewProductRepairQueue(store domain.DocumentStore, orderMetrics *metrics.OrderMetrics) *ProductRepairQueue {
	return &ProductRepairQueue{
		Store:   store,
		Metrics: orderMetrics,
		tasks:   make(chan productRepairTask, repairQueueSize),
	}
}

func (q *ProductRepairQueue) Enqueue(productID string) {
	q.enqueue(productRepairTask{ProductID: productID, Attempt: 1})
}

// StartWorker drains the queue until ctx is canceled.
func (q *ProductRepairQueue) StartWorker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case task := <-q.tasks:
			q.process(ctx, task)
		}
	}
}

func (q *ProductRepairQueue) process(ctx context.Context, task productRepairTask) {
	err := q.Store.Update(ctx, domain.CollectionProducts, task.ProductID, map[string]any{
		"status":    domain.ProductStatusSold,
		"updatedAt": time.Now(),
	})
	if err == nil {
		slog.Info("product status repaired", "product_id", task.ProductID, "attempt", task.Attempt)
		q.record("repaired")
		return
	}

	if errors.Is(err, domain.ErrDocumentNotFound) {
		slog.Error("product missing during repair, dropping task", "product_id", task.ProductID)
		q.record("missing")
		return
	}

	if task.Attempt >= repairMaxAttempts {
		slog.Error("giving up on product repair",
			"product_id", task.ProductID, "attempts", task.Attempt, "error", err.Error())
		q.record("gave_up")
		return
	}

	slog.Warn("product repair attempt failed, retrying",
		"product_id", task.ProductID, "attempt", task.Attempt, "error", err.Error())
	q.record("retry")

	// Linear backoff between attempts.
	next := productRepairTask{ProductID: task.ProductID, Attempt: task.Attempt + 1}
	go func() {
		timer := time.NewTimer(time.Duration(task.Attempt) * repairBackoff)
		defer timer.Stop()
		select {
		case <-ctx.Done():
		case <-timer.C:
			q.enqueue(next)
		}
	}()
}

func (q *ProductRepairQueue) enqueue(task productRepairTask) {
	select {
	case q.tasks <- task:
	default:
		slog.Error("product repair queue full, dropping task", "product_id", task.ProductID)
		q.record("dropped")
	}
}

func (q *ProductRepairQueue) record(result string) {
	if q.Metrics != nil {
		q.Metrics.RecordProductRepair(result)
	}
}
