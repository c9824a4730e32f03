package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/url"
	"strconv"

	"github.com/kasirku/pos-sync-backend/internal/model"
	"github.com/kasirku/pos-sync-backend/internal/remote"
	"github.com/kasirku/pos-sync-backend/internal/repository"
)

// OrderSyncService pushes register sales to the remote store and pulls
// back remote status changes on already-exported orders.
type OrderSyncService struct {
	Repo   *repository.Store
	Client *remote.Client
}

func NewOrderSyncService(repo *repository.Store, client *remote.Client) *OrderSyncService {
	return &OrderSyncService{Repo: repo, Client: client}
}

// ExportOrder synchronizes one local order outward. When the order has
// no ExternalID yet the remote store is first searched by the client
// reference: a retried export whose earlier attempt actually succeeded
// (response lost, crash before the completed transition) adopts the
// existing remote order instead of creating a duplicate.
func (s *OrderSyncService) ExportOrder(ctx context.Context, orderID int64) error {
	o, err := s.Repo.GetOrderByID(ctx, orderID)
	if err != nil {
		return err
	}
	if o == nil {
		return &remote.Error{Kind: remote.KindValidation, Message: fmt.Sprintf("order %d no longer exists locally", orderID)}
	}

	if o.ExternalID == nil {
		found, err := s.findRemoteByReference(ctx, o.Reference)
		if err != nil {
			return err
		}
		if found != nil {
			log.Printf("[sync] order %s already exists remotely as %d, adopting", o.Reference, found.ID)
			if err := s.Repo.SetOrderExternalID(ctx, o.ID, found.ID); err != nil {
				return err
			}
			o.ExternalID = &found.ID
		}
	}

	payload, err := s.toRemote(ctx, o)
	if err != nil {
		return err
	}

	if o.ExternalID == nil {
		body, err := s.Client.Post(ctx, "orders", payload)
		if err != nil {
			return err
		}
		var created remote.Order
		if err := json.Unmarshal(body, &created); err != nil {
			return &remote.Error{Kind: remote.KindUnknown, Message: fmt.Sprintf("decode created order: %v", err), Err: err}
		}
		if created.ID == 0 {
			return &remote.Error{Kind: remote.KindUnknown, Message: "remote store returned no order id"}
		}
		return s.Repo.SetOrderExternalID(ctx, o.ID, created.ID)
	}

	if _, err := s.Client.Put(ctx, fmt.Sprintf("orders/%d", *o.ExternalID), payload); err != nil {
		return err
	}
	return s.Repo.TouchOrderSyncedAt(ctx, o.ID)
}

// findRemoteByReference asks the remote store for an order carrying the
// register reference in its metadata.
func (s *OrderSyncService) findRemoteByReference(ctx context.Context, reference string) (*remote.Order, error) {
	params := url.Values{}
	params.Set("search", reference)
	body, err := s.Client.Get(ctx, "orders", params)
	if err != nil {
		return nil, err
	}
	var orders []remote.Order
	if err := json.Unmarshal(body, &orders); err != nil {
		return nil, &remote.Error{Kind: remote.KindUnknown, Message: fmt.Sprintf("decode order search: %v", err), Err: err}
	}
	for i := range orders {
		if orders[i].Reference() == reference {
			return &orders[i], nil
		}
	}
	return nil, nil
}

// toRemote maps a local order to the remote wire shape. Line items
// reference remote product/variation ids when the local item has been
// synced; otherwise they travel as named ad hoc lines.
func (s *OrderSyncService) toRemote(ctx context.Context, o *model.Order) (*remote.Order, error) {
	ro := &remote.Order{
		Status:        model.RemoteOrderStatus(o.Status),
		PaymentMethod: model.RemotePaymentMethod(o.PaymentMethod),
		Total:         strconv.FormatFloat(o.Total, 'f', 2, 64),
		SetPaid:       o.Status == model.OrderStatusPaid || o.Status == model.OrderStatusCompleted,
		MetaData:      []remote.MetaData{{Key: remote.MetaKeyReference, Value: o.Reference}},
	}

	if o.CustomerID != nil {
		c, err := s.Repo.GetCustomerByID(ctx, *o.CustomerID)
		if err != nil {
			return nil, err
		}
		if c != nil && c.ExternalID != nil {
			ro.CustomerID = *c.ExternalID
		}
	}

	for _, item := range o.Items {
		li := remote.LineItem{
			Name:     item.Name,
			Quantity: item.Quantity,
			Total:    strconv.FormatFloat(item.Price*float64(item.Quantity), 'f', 2, 64),
		}
		if item.ProductID != nil {
			p, err := s.Repo.GetProductByID(ctx, *item.ProductID)
			if err != nil {
				return nil, err
			}
			if p != nil && p.ExternalID != nil {
				li.ProductID = *p.ExternalID
			}
		}
		if item.VariantID != nil {
			v, err := s.Repo.GetVariantByID(ctx, *item.VariantID)
			if err != nil {
				return nil, err
			}
			if v != nil && v.ExternalID != nil {
				li.VariationID = *v.ExternalID
			}
		}
		ro.LineItems = append(ro.LineItems, li)
	}
	return ro, nil
}

// ImportAll pulls remote status changes (refunds, cancellations) back
// onto orders that already exist on both sides. Local-only orders are
// untouched; the register stays authoritative for them.
func (s *OrderSyncService) ImportAll(ctx context.Context) (*model.SyncRun, error) {
	run, err := s.Repo.BeginSyncRun(ctx, model.EntityOrder, model.DirectionImport)
	if err != nil {
		return nil, err
	}

	orders, err := s.Repo.ListSyncedOrders(ctx)
	if err != nil {
		return s.abortRun(ctx, run, err)
	}

	var errs []string
	for _, o := range orders {
		body, err := s.Client.Get(ctx, fmt.Sprintf("orders/%d", *o.ExternalID), nil)
		if err != nil {
			if remote.Kind(err) == remote.KindNetwork {
				run.ErrorSummary = summarize(append(errs, err.Error()))
				return s.abortRun(ctx, run, err)
			}
			run.Failed++
			errs = append(errs, fmt.Sprintf("order %d: %v", o.ID, err))
			continue
		}

		var ro remote.Order
		if err := json.Unmarshal(body, &ro); err != nil {
			run.Failed++
			errs = append(errs, fmt.Sprintf("order %d: decode: %v", o.ID, err))
			continue
		}

		if localStatus := model.LocalOrderStatus(ro.Status); localStatus != o.Status {
			if err := s.Repo.UpdateOrderStatus(ctx, o.ID, localStatus); err != nil {
				run.Failed++
				errs = append(errs, fmt.Sprintf("order %d: %v", o.ID, err))
				continue
			}
			log.Printf("[sync] order %d status %s -> %s from remote", o.ID, o.Status, localStatus)
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

func (s *OrderSyncService) abortRun(ctx context.Context, run *model.SyncRun, cause error) (*model.SyncRun, error) {
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
