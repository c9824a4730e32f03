package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/kasirku/pos-sync-backend/internal/model"
	"github.com/kasirku/pos-sync-backend/internal/remote"
	"github.com/kasirku/pos-sync-backend/internal/repository"
)

// CustomerSyncService pulls remote customers into the local store.
type CustomerSyncService struct {
	Repo   *repository.Store
	Client *remote.Client
}

func NewCustomerSyncService(repo *repository.Store, client *remote.Client) *CustomerSyncService {
	return &CustomerSyncService{Repo: repo, Client: client}
}

func (s *CustomerSyncService) ImportAll(ctx context.Context) (*model.SyncRun, error) {
	run, err := s.Repo.BeginSyncRun(ctx, model.EntityCustomer, model.DirectionImport)
	if err != nil {
		return nil, err
	}

	items, err := s.Client.GetAll(ctx, "customers", nil)
	if err != nil {
		return s.abortRun(ctx, run, err)
	}
	log.Printf("[sync] customer import: %d remote records", len(items))

	var errs []string
	for _, raw := range items {
		var rc remote.Customer
		if err := json.Unmarshal(raw, &rc); err != nil {
			run.Failed++
			errs = append(errs, fmt.Sprintf("decode customer: %v", err))
			continue
		}
		if rc.ID == 0 || rc.Email == "" {
			run.Failed++
			errs = append(errs, fmt.Sprintf("customer %d missing required fields", rc.ID))
			continue
		}

		if err := s.importOne(ctx, &rc); err != nil {
			run.Failed++
			errs = append(errs, fmt.Sprintf("customer %d: %v", rc.ID, err))
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

func (s *CustomerSyncService) importOne(ctx context.Context, rc *remote.Customer) error {
	existing, err := s.Repo.GetCustomerByExternalID(ctx, rc.ID)
	if err != nil {
		return err
	}

	c := existing
	if c == nil {
		c = &model.Customer{}
	}
	c.ExternalID = &rc.ID
	c.Email = rc.Email
	c.FirstName = rc.FirstName
	c.LastName = rc.LastName
	c.Phone = rc.Billing.Phone

	return s.Repo.SaveImportedCustomer(ctx, c)
}

func (s *CustomerSyncService) abortRun(ctx context.Context, run *model.SyncRun, cause error) (*model.SyncRun, error) {
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
