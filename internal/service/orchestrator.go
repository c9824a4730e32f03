package service

import (
	"context"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/kasirku/pos-sync-backend/internal/model"
	"github.com/kasirku/pos-sync-backend/internal/repository"
)

const settingLastImportAt = "last_import_at"

type queueDrainer interface {
	Drain(ctx context.Context) (processed, failed int, err error)
}

type importRunner interface {
	ImportAll(ctx context.Context) (*model.SyncRun, error)
}

type reconcileRunner interface {
	Reconcile(ctx context.Context) (*model.SyncRun, error)
}

// Toggles enables sync per entity type independently.
type Toggles struct {
	Orders    bool
	Products  bool
	Customers bool
	Inventory bool
}

// Orchestrator is the single entry point for a sync cycle. Manual
// "sync now", the periodic tick and the reconnection event all funnel
// into Run, which is single-flight: a request while a cycle is already
// running is a no-op, not queued; the next trigger picks up whatever
// is left.
type Orchestrator struct {
	Repo      *repository.Store
	Queue     queueDrainer
	Products  importRunner
	Customers importRunner
	Orders    importRunner
	Inventory reconcileRunner

	Toggles        Toggles
	ImportInterval time.Duration

	running atomic.Bool
	trigger chan struct{}
}

func NewOrchestrator(repo *repository.Store, queue queueDrainer, products, customers, orders importRunner, inventory reconcileRunner, toggles Toggles, importInterval time.Duration) *Orchestrator {
	if importInterval <= 0 {
		importInterval = 6 * time.Hour
	}
	return &Orchestrator{
		Repo:           repo,
		Queue:          queue,
		Products:       products,
		Customers:      customers,
		Orders:         orders,
		Inventory:      inventory,
		Toggles:        toggles,
		ImportInterval: importInterval,
		trigger:        make(chan struct{}, 1),
	}
}

// Run executes one sync cycle. Returns false when another cycle was
// already in flight. Each step fails independently: an import error
// does not block the drain before it or the reconcile after it.
func (o *Orchestrator) Run(ctx context.Context) bool {
	if !o.running.CompareAndSwap(false, true) {
		log.Println("[sync] run already in progress, skipping")
		return false
	}
	defer o.running.Store(false)

	log.Println("[sync] cycle start")

	// step 1: push queued sales out, strictly in creation order
	if o.Toggles.Orders {
		o.drainQueue(ctx)
	}

	// step 2: pull catalog and customers on the coarser import cadence
	if o.importDue(ctx) {
		o.runImports(ctx)
	}

	// step 3: align stock quantities
	if o.Toggles.Inventory {
		if _, err := o.Inventory.Reconcile(ctx); err != nil {
			log.Printf("[sync] inventory reconcile: %v", err)
		}
	}

	log.Println("[sync] cycle done")
	return true
}

func (o *Orchestrator) drainQueue(ctx context.Context) {
	run, err := o.Repo.BeginSyncRun(ctx, model.EntityOrder, model.DirectionExport)
	if err != nil {
		log.Printf("[sync] begin drain run: %v", err)
		return
	}
	processed, failed, drainErr := o.Queue.Drain(ctx)
	run.Processed = processed
	run.Failed = failed
	switch {
	case drainErr != nil && processed == 0:
		run.Status = model.RunFailed
		run.ErrorSummary = drainErr.Error()
	case drainErr != nil || failed > 0:
		run.Status = model.RunPartial
		if drainErr != nil {
			run.ErrorSummary = drainErr.Error()
		}
	default:
		run.Status = model.RunCompleted
	}
	if err := o.Repo.FinishSyncRun(ctx, run); err != nil {
		log.Printf("[sync] finish drain run: %v", err)
	}
	if drainErr != nil {
		log.Printf("[sync] queue drain stopped: %v", drainErr)
	}
}

// runImports runs the enabled entity imports in parallel; they touch
// disjoint tables. Order drains stay sequential, imports need not.
func (o *Orchestrator) runImports(ctx context.Context) {
	type step struct {
		name   string
		runner importRunner
	}
	var steps []step
	if o.Toggles.Products {
		steps = append(steps, step{"products", o.Products})
	}
	if o.Toggles.Customers {
		steps = append(steps, step{"customers", o.Customers})
	}
	if o.Toggles.Orders {
		steps = append(steps, step{"orders", o.Orders})
	}
	if len(steps) == 0 {
		return
	}

	var wg sync.WaitGroup
	for _, st := range steps {
		wg.Add(1)
		go func(st step) {
			defer wg.Done()
			if _, err := st.runner.ImportAll(ctx); err != nil {
				log.Printf("[sync] %s import: %v", st.name, err)
			}
		}(st)
	}
	wg.Wait()

	if err := o.Repo.SetSetting(ctx, settingLastImportAt, time.Now().UTC().Format(time.RFC3339)); err != nil {
		log.Printf("[sync] record import time: %v", err)
	}
}

// importDue reports whether the coarser import cadence has elapsed.
func (o *Orchestrator) importDue(ctx context.Context) bool {
	raw, err := o.Repo.GetSetting(ctx, settingLastImportAt)
	if err != nil {
		log.Printf("[sync] read import time: %v", err)
		return true
	}
	if raw == "" {
		return true
	}
	last, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return true
	}
	return time.Since(last) >= o.ImportInterval
}

// StartScheduler drives Run from a periodic tick and from TriggerNow
// until ctx is canceled.
func (o *Orchestrator) StartScheduler(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 30 * time.Minute
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			case <-o.trigger:
			}
			o.Run(ctx)
		}
	}()
}

// TriggerNow requests a cycle without blocking; a trigger while one is
// already queued collapses into it.
func (o *Orchestrator) TriggerNow() {
	select {
	case o.trigger <- struct{}{}:
	default:
	}
}

func (o *Orchestrator) Running() bool { return o.running.Load() }
