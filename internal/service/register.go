package service

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/google/uuid"
	"github.com/kasirku/pos-sync-backend/internal/model"
	"github.com/kasirku/pos-sync-backend/internal/repository"
)

// RegisterService is the sale-completion path. It must keep working
// with no connectivity: the sale is persisted and queued locally, and
// the orchestrator is only nudged when the store looks reachable.
type RegisterService struct {
	Repo         *repository.Store
	Queue        *QueueService
	Monitor      *ConnectionMonitor
	Orchestrator *Orchestrator
}

func NewRegisterService(repo *repository.Store, queue *QueueService, monitor *ConnectionMonitor, orch *Orchestrator) *RegisterService {
	return &RegisterService{Repo: repo, Queue: queue, Monitor: monitor, Orchestrator: orch}
}

var ErrEmptyOrder = errors.New("order has no items")

// CompleteSale persists a finished sale, decrements local stock with an
// audit movement per line, queues the export and nudges the sync loop
// when online. The enqueue error is surfaced, never swallowed: a sale
// that is not queued would silently never reach the remote store.
func (r *RegisterService) CompleteSale(ctx context.Context, o *model.Order) (*model.PendingAction, error) {
	if len(o.Items) == 0 {
		return nil, ErrEmptyOrder
	}
	if o.Reference == "" {
		o.Reference = uuid.NewString()
	}
	if o.Status == "" {
		o.Status = model.OrderStatusPaid
	}
	if o.Total == 0 {
		for _, item := range o.Items {
			o.Total += item.Price * float64(item.Quantity)
		}
	}

	if err := r.Repo.CreateOrder(ctx, o); err != nil {
		return nil, fmt.Errorf("persist sale: %w", err)
	}

	for _, item := range o.Items {
		if err := r.decrementStock(ctx, &item, o.Reference); err != nil {
			// the sale itself is committed; stock drift will be caught
			// by the next reconcile
			log.Printf("[register] stock decrement for sale %s: %v", o.Reference, err)
		}
	}

	action, err := r.Queue.EnqueueOrderExport(ctx, o)
	if err != nil {
		return nil, fmt.Errorf("queue sale %s: %w", o.Reference, err)
	}

	if r.Monitor != nil && r.Monitor.Online() && r.Orchestrator != nil {
		r.Orchestrator.TriggerNow()
	}
	return action, nil
}

func (r *RegisterService) decrementStock(ctx context.Context, item *model.OrderItem, reference string) error {
	if item.VariantID != nil {
		v, err := r.Repo.GetVariantByID(ctx, *item.VariantID)
		if err != nil || v == nil || !v.ManageStock {
			return err
		}
		mv := &model.StockMovement{
			OwnerKey:  v.InventoryKey(),
			Delta:     -item.Quantity,
			Reason:    model.MovementSale,
			Reference: reference,
		}
		return r.Repo.SetVariantQuantity(ctx, v.ID, v.StockQuantity-item.Quantity, mv)
	}
	if item.ProductID != nil {
		p, err := r.Repo.GetProductByID(ctx, *item.ProductID)
		if err != nil || p == nil || !p.ManageStock {
			return err
		}
		mv := &model.StockMovement{
			OwnerKey:  p.InventoryKey(),
			Delta:     -item.Quantity,
			Reason:    model.MovementSale,
			Reference: reference,
		}
		return r.Repo.SetProductQuantity(ctx, p.ID, p.StockQuantity-item.Quantity, mv)
	}
	return nil
}
