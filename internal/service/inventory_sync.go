package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/kasirku/pos-sync-backend/internal/model"
	"github.com/kasirku/pos-sync-backend/internal/remote"
	"github.com/kasirku/pos-sync-backend/internal/repository"
)

// InventorySyncService reconciles stock quantities between the two
// sides. The authoritative quantity is whichever side last observed a
// physical change; a difference is never overwritten silently, the
// delta lands in stock_movements attributed to the remote sync first.
type InventorySyncService struct {
	Repo   *repository.Store
	Client *remote.Client
}

func NewInventorySyncService(repo *repository.Store, client *remote.Client) *InventorySyncService {
	return &InventorySyncService{Repo: repo, Client: client}
}

// SnapshotDelta is the reconciliation arithmetic: the movement that
// turns the local observation into the remote one.
func SnapshotDelta(local, remoteSnap model.InventorySnapshot) int {
	return remoteSnap.Quantity - local.Quantity
}

// Reconcile pulls the remote catalog once and aligns every synced,
// stock-managed product and variant with the remote quantity.
func (s *InventorySyncService) Reconcile(ctx context.Context) (*model.SyncRun, error) {
	run, err := s.Repo.BeginSyncRun(ctx, model.EntityInventory, model.DirectionImport)
	if err != nil {
		return nil, err
	}

	raws, err := s.Client.GetAll(ctx, "products", nil)
	if err != nil {
		return s.abortRun(ctx, run, err)
	}

	remoteByID := make(map[int64]remote.Product, len(raws))
	for _, raw := range raws {
		var rp remote.Product
		if err := json.Unmarshal(raw, &rp); err != nil {
			continue
		}
		remoteByID[rp.ID] = rp
	}

	products, err := s.Repo.ListSyncedProducts(ctx)
	if err != nil {
		return s.abortRun(ctx, run, err)
	}

	now := time.Now().UTC()
	var errs []string
	for i := range products {
		p := &products[i]
		if !p.ManageStock {
			continue
		}
		rp, ok := remoteByID[*p.ExternalID]
		if !ok || rp.StockQuantity == nil {
			continue
		}

		localSnap := model.InventorySnapshot{OwnerKey: p.InventoryKey(), Quantity: p.StockQuantity, Source: "local", ObservedAt: now}
		remoteSnap := model.InventorySnapshot{OwnerKey: p.InventoryKey(), Quantity: *rp.StockQuantity, Source: "remote", ObservedAt: now}

		delta := SnapshotDelta(localSnap, remoteSnap)
		if delta == 0 {
			run.Processed++
			continue
		}

		mv := &model.StockMovement{
			OwnerKey:  p.InventoryKey(),
			Delta:     delta,
			Reason:    model.MovementRemoteSync,
			Reference: fmt.Sprintf("reconcile run %d", run.ID),
		}
		if err := s.Repo.SetProductQuantity(ctx, p.ID, remoteSnap.Quantity, mv); err != nil {
			run.Failed++
			errs = append(errs, fmt.Sprintf("product %d: %v", p.ID, err))
			continue
		}
		log.Printf("[sync] reconciled %s: %d -> %d (delta %+d)", p.InventoryKey(), localSnap.Quantity, remoteSnap.Quantity, delta)
		run.Processed++
	}

	if err := s.reconcileVariants(ctx, run, products, now, &errs); err != nil {
		run.ErrorSummary = summarize(errs)
		return s.abortRun(ctx, run, err)
	}

	run.Status = model.RunCompleted
	if run.Failed > 0 {
		run.Status = model.RunPartial
	}
	run.ErrorSummary = summarize(errs)
	if err := s.Repo.FinishSyncRun(ctx, run); err != nil {
		return run, err
	}
	return run, nil
}

// reconcileVariants aligns stock-managed variants grouped by parent, so
// each parent's variation listing is fetched at most once per cycle.
// Only a connectivity failure aborts; a per-variant save error is
// charged to the run and the walk continues.
func (s *InventorySyncService) reconcileVariants(ctx context.Context, run *model.SyncRun, products []model.Product, now time.Time, errs *[]string) error {
	variants, err := s.Repo.ListSyncedVariants(ctx)
	if err != nil {
		return err
	}

	productByID := make(map[int64]*model.Product, len(products))
	for i := range products {
		productByID[products[i].ID] = &products[i]
	}

	byParent := make(map[int64][]model.Variant)
	for _, v := range variants {
		if !v.ManageStock {
			continue
		}
		if _, ok := productByID[v.ProductID]; !ok {
			// parent never synced, no remote id to look up variations by
			continue
		}
		byParent[v.ProductID] = append(byParent[v.ProductID], v)
	}

	for parentID, vs := range byParent {
		parent := productByID[parentID]
		raws, err := s.Client.GetAll(ctx, fmt.Sprintf("products/%d/variations", *parent.ExternalID), nil)
		if err != nil {
			return err
		}

		remoteByID := make(map[int64]remote.Variation, len(raws))
		for _, raw := range raws {
			var rv remote.Variation
			if err := json.Unmarshal(raw, &rv); err != nil {
				continue
			}
			remoteByID[rv.ID] = rv
		}

		for i := range vs {
			v := &vs[i]
			rv, ok := remoteByID[*v.ExternalID]
			if !ok || rv.StockQuantity == nil {
				continue
			}

			localSnap := model.InventorySnapshot{OwnerKey: v.InventoryKey(), Quantity: v.StockQuantity, Source: "local", ObservedAt: now}
			remoteSnap := model.InventorySnapshot{OwnerKey: v.InventoryKey(), Quantity: *rv.StockQuantity, Source: "remote", ObservedAt: now}

			delta := SnapshotDelta(localSnap, remoteSnap)
			if delta == 0 {
				run.Processed++
				continue
			}

			mv := &model.StockMovement{
				OwnerKey:  v.InventoryKey(),
				Delta:     delta,
				Reason:    model.MovementRemoteSync,
				Reference: fmt.Sprintf("reconcile run %d", run.ID),
			}
			if err := s.Repo.SetVariantQuantity(ctx, v.ID, remoteSnap.Quantity, mv); err != nil {
				run.Failed++
				*errs = append(*errs, fmt.Sprintf("variant %d: %v", v.ID, err))
				continue
			}
			log.Printf("[sync] reconciled %s: %d -> %d (delta %+d)", v.InventoryKey(), localSnap.Quantity, remoteSnap.Quantity, delta)
			run.Processed++
		}
	}
	return nil
}

func (s *InventorySyncService) abortRun(ctx context.Context, run *model.SyncRun, cause error) (*model.SyncRun, error) {
	if run.Processed > 0 {
		run.Status = model.RunPartial
	} else {
		run.Status = model.RunFailed
	}
	if run.ErrorSummary == "" {
		run.ErrorSummary = cause.Error()
	}
	if err := s.Repo.FinishSyncRun(ctx, run); err != nil {
		log.Printf("[sync] finish run %d: %v", run.ID, err)
	}
	return run, cause
}
