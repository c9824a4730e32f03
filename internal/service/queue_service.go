package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/kasirku/pos-sync-backend/internal/model"
	"github.com/kasirku/pos-sync-backend/internal/remote"
	"github.com/kasirku/pos-sync-backend/internal/repository"
)

// OrderExporter is the slice of OrderSyncService the queue needs.
type OrderExporter interface {
	ExportOrder(ctx context.Context, orderID int64) error
}

// QueueService owns the offline action queue: the register appends to
// it on every completed sale, the orchestrator drains it when the
// remote store is reachable.
type QueueService struct {
	Repo        *repository.Store
	Orders      OrderExporter
	MaxAttempts int
	RetryWindow time.Duration
}

func NewQueueService(repo *repository.Store, orders OrderExporter, maxAttempts int, retryWindow time.Duration) *QueueService {
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	if retryWindow <= 0 {
		retryWindow = 24 * time.Hour
	}
	return &QueueService{Repo: repo, Orders: orders, MaxAttempts: maxAttempts, RetryWindow: retryWindow}
}

// EnqueueOrderExport records a sale for transmission. A persistence
// failure is returned to the caller; swallowing it would lose a
// completed sale.
func (q *QueueService) EnqueueOrderExport(ctx context.Context, o *model.Order) (*model.PendingAction, error) {
	payload, err := json.Marshal(model.OrderActionPayload{OrderID: o.ID, Reference: o.Reference})
	if err != nil {
		return nil, err
	}
	op := model.OpCreate
	if o.ExternalID != nil {
		op = model.OpUpdate
	}
	a := &model.PendingAction{
		ID:         uuid.NewString(),
		EntityType: model.EntityOrder,
		Operation:  op,
		Payload:    payload,
		Status:     model.ActionPending,
		CreatedAt:  time.Now().UTC(),
	}
	if err := q.Repo.EnqueueAction(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

// Drain walks the pending order actions once, in insertion order, and
// exports each through the order service. Outcomes per item:
//
//   - success: the entry is deleted
//   - network or auth failure: entry released unchanged and the drain
//     stops. The call never reached the remote (or needs an operator),
//     so the attempt is not charged against the item
//   - validation or conflict: the item itself is bad, parked as failed
//   - server or unknown failure: attempts+1, parked as failed once the
//     attempt budget or the retry window runs out
func (q *QueueService) Drain(ctx context.Context) (processed, failed int, err error) {
	// a previous drain that died mid-flight leaves inflight rows no
	// selector would ever pick up again; rescue them first
	requeued, err := q.Repo.RequeueInflightActions(ctx)
	if err != nil {
		return 0, 0, err
	}
	if requeued > 0 {
		log.Printf("[sync] requeued %d interrupted actions", requeued)
	}

	batch, err := q.Repo.PendingActions(ctx, model.EntityOrder, 500)
	if err != nil {
		return 0, 0, err
	}
	if len(batch) == 0 {
		return 0, 0, nil
	}
	log.Printf("[sync] draining %d pending order actions", len(batch))

	for i := range batch {
		a := &batch[i]
		if ctx.Err() != nil {
			return processed, failed, ctx.Err()
		}
		if err := q.Repo.MarkActionInflight(ctx, a.ID); err != nil {
			// claimed or removed since we listed it
			continue
		}

		exportErr := q.processAction(ctx, a)
		if exportErr == nil {
			if err := q.Repo.CompleteAction(ctx, a.ID); err != nil {
				return processed, failed, err
			}
			processed++
			continue
		}

		kind := remote.Kind(exportErr)
		switch {
		case ctx.Err() != nil || kind == remote.KindNetwork:
			if err := q.Repo.ReleaseAction(ctx, a.ID, a.Attempts, exportErr.Error()); err != nil {
				return processed, failed, err
			}
			return processed, failed, exportErr

		case kind == remote.KindAuth:
			// stop retrying entirely, surface to the operator
			if err := q.Repo.ReleaseAction(ctx, a.ID, a.Attempts, exportErr.Error()); err != nil {
				return processed, failed, err
			}
			return processed, failed, exportErr

		case kind == remote.KindValidation || kind == remote.KindConflict:
			if err := q.Repo.FailAction(ctx, a.ID, a.Attempts, exportErr.Error()); err != nil {
				return processed, failed, err
			}
			failed++

		default:
			attempts := a.Attempts + 1
			exhausted := attempts >= q.MaxAttempts || time.Since(a.CreatedAt) > q.RetryWindow
			if exhausted {
				log.Printf("[sync] action %s exhausted after %d attempts: %s", a.ID, attempts, exportErr)
				if err := q.Repo.FailAction(ctx, a.ID, attempts, exportErr.Error()); err != nil {
					return processed, failed, err
				}
			} else {
				if err := q.Repo.ReleaseAction(ctx, a.ID, attempts, exportErr.Error()); err != nil {
					return processed, failed, err
				}
			}
			failed++
		}
	}
	return processed, failed, nil
}

func (q *QueueService) processAction(ctx context.Context, a *model.PendingAction) error {
	switch a.EntityType {
	case model.EntityOrder:
		var p model.OrderActionPayload
		if err := json.Unmarshal(a.Payload, &p); err != nil {
			return &remote.Error{Kind: remote.KindValidation, Message: fmt.Sprintf("malformed payload: %v", err), Err: err}
		}
		return q.Orders.ExportOrder(ctx, p.OrderID)
	default:
		return &remote.Error{Kind: remote.KindValidation, Message: fmt.Sprintf("unsupported entity type %q", a.EntityType)}
	}
}

// PendingCount and FailedCount back the register display; both hit the
// status index, not a table scan.
func (q *QueueService) PendingCount(ctx context.Context) (int, error) {
	return q.Repo.CountActions(ctx, model.ActionPending)
}

func (q *QueueService) FailedCount(ctx context.Context) (int, error) {
	return q.Repo.CountActions(ctx, model.ActionFailed)
}
