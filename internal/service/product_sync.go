package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strconv"
	"strings"

	"github.com/kasirku/pos-sync-backend/internal/model"
	"github.com/kasirku/pos-sync-backend/internal/remote"
	"github.com/kasirku/pos-sync-backend/internal/repository"
)

// ProductSyncService pulls the remote catalog into the local store.
// Remote is authoritative for name, description, price and status; a
// differing stock quantity is reconciled through a stock movement, not
// silently overwritten.
type ProductSyncService struct {
	Repo   *repository.Store
	Client *remote.Client
}

func NewProductSyncService(repo *repository.Store, client *remote.Client) *ProductSyncService {
	return &ProductSyncService{Repo: repo, Client: client}
}

// ImportAll drains every remote product page and upserts each record
// keyed by external id. One malformed record does not abort the batch;
// a network failure does, leaving already-processed items committed.
func (s *ProductSyncService) ImportAll(ctx context.Context) (*model.SyncRun, error) {
	run, err := s.Repo.BeginSyncRun(ctx, model.EntityProduct, model.DirectionImport)
	if err != nil {
		return nil, err
	}

	items, err := s.Client.GetAll(ctx, "products", nil)
	if err != nil {
		return s.abortRun(ctx, run, err)
	}
	log.Printf("[sync] product import: %d remote records", len(items))

	var errs []string
	for _, raw := range items {
		var rp remote.Product
		if err := json.Unmarshal(raw, &rp); err != nil {
			run.Failed++
			errs = append(errs, fmt.Sprintf("decode product: %v", err))
			continue
		}
		if rp.ID == 0 || rp.Name == "" {
			run.Failed++
			errs = append(errs, fmt.Sprintf("product %d missing required fields", rp.ID))
			continue
		}

		if err := s.importOne(ctx, &rp); err != nil {
			if remote.Kind(err) == remote.KindNetwork {
				run.ErrorSummary = summarize(append(errs, err.Error()))
				return s.abortRun(ctx, run, err)
			}
			run.Failed++
			errs = append(errs, fmt.Sprintf("product %d: %v", rp.ID, err))
			continue
		}
		run.Processed++
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

// importOne upserts a single product and then its variations, each in
// its own transaction. Variations sync only after the parent succeeds
// so they can hang off the parent's fresh local id.
func (s *ProductSyncService) importOne(ctx context.Context, rp *remote.Product) error {
	existing, err := s.Repo.GetProductByExternalID(ctx, rp.ID)
	if err != nil {
		return err
	}

	p := existing
	if p == nil {
		p = &model.Product{}
	}
	p.ExternalID = &rp.ID
	p.SKU = rp.SKU
	p.Name = rp.Name
	p.Description = rp.Description
	p.Price = parsePrice(rp.Price)
	p.RegularPrice = parsePrice(rp.RegularPrice)
	p.Status = rp.Status
	p.ManageStock = rp.ManageStock

	var mv *model.StockMovement
	if rp.StockQuantity != nil {
		if existing != nil && *rp.StockQuantity != existing.StockQuantity {
			mv = &model.StockMovement{
				OwnerKey:  existing.InventoryKey(),
				Delta:     *rp.StockQuantity - existing.StockQuantity,
				Reason:    model.MovementRemoteSync,
				Reference: fmt.Sprintf("import product %d", rp.ID),
			}
		}
		p.StockQuantity = *rp.StockQuantity
	}

	if err := s.Repo.SaveImportedProduct(ctx, p, mv); err != nil {
		return err
	}

	if len(rp.Variations) == 0 {
		return nil
	}
	return s.importVariations(ctx, p, rp.ID)
}

func (s *ProductSyncService) importVariations(ctx context.Context, parent *model.Product, remoteProductID int64) error {
	raws, err := s.Client.GetAll(ctx, fmt.Sprintf("products/%d/variations", remoteProductID), nil)
	if err != nil {
		return err
	}

	for _, raw := range raws {
		var rv remote.Variation
		if err := json.Unmarshal(raw, &rv); err != nil {
			log.Printf("[sync] skip malformed variation of product %d: %v", remoteProductID, err)
			continue
		}
		if rv.ID == 0 {
			continue
		}

		existing, err := s.Repo.GetVariantByExternalID(ctx, rv.ID)
		if err != nil {
			return err
		}
		v := existing
		if v == nil {
			v = &model.Variant{ProductID: parent.ID}
		}
		v.ExternalID = &rv.ID
		v.SKU = rv.SKU
		v.Price = parsePrice(rv.Price)
		v.ManageStock = rv.ManageStock
		v.Attributes = joinAttributes(rv.Attributes)

		var mv *model.StockMovement
		if rv.StockQuantity != nil {
			if existing != nil && *rv.StockQuantity != existing.StockQuantity {
				mv = &model.StockMovement{
					OwnerKey:  existing.InventoryKey(),
					Delta:     *rv.StockQuantity - existing.StockQuantity,
					Reason:    model.MovementRemoteSync,
					Reference: fmt.Sprintf("import variation %d", rv.ID),
				}
			}
			v.StockQuantity = *rv.StockQuantity
		}

		if err := s.Repo.SaveImportedVariant(ctx, v, mv); err != nil {
			return err
		}
	}
	return nil
}

func joinAttributes(attrs []remote.Attribute) string {
	parts := make([]string, 0, len(attrs))
	for _, a := range attrs {
		parts = append(parts, a.Name+"="+a.Option)
	}
	return strings.Join(parts, ", ")
}

// parsePrice tolerates the remote API's string-typed prices.
func parsePrice(s string) float64 {
	if s == "" {
		return 0
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return f
}

func (s *ProductSyncService) abortRun(ctx context.Context, run *model.SyncRun, cause error) (*model.SyncRun, error) {
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

// summarize joins per-item errors into a bounded audit string.
func summarize(errs []string) string {
	if len(errs) == 0 {
		return ""
	}
	joined := strings.Join(errs, "; ")
	if len(joined) > 500 {
		joined = joined[:500] + "..."
	}
	return joined
}
