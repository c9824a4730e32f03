package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kasirku/pos-sync-backend/internal/model"
	"github.com/kasirku/pos-sync-backend/internal/repository"
)

// ISyncOrchestrator is the orchestrator surface the handlers need; a
// mock stands in during tests.
type ISyncOrchestrator interface {
	TriggerNow()
	Running() bool
}

// IConnectionMonitor exposes connectivity for display.
type IConnectionMonitor interface {
	Status() string
	LastChange() time.Time
}

type SyncHandler struct {
	Repo         *repository.Store
	Orchestrator ISyncOrchestrator
	Monitor      IConnectionMonitor
}

func NewSyncHandler(repo *repository.Store, orch ISyncOrchestrator, monitor IConnectionMonitor) *SyncHandler {
	return &SyncHandler{Repo: repo, Orchestrator: orch, Monitor: monitor}
}

// TriggerSync starts a cycle in the background. Requesting a sync while
// one is running is not an error; the requests collapse.
// POST /api/v1/sync/now
func (h *SyncHandler) TriggerSync(c *gin.Context) {
	h.Orchestrator.TriggerNow()
	c.JSON(http.StatusAccepted, gin.H{"message": "sync requested"})
}

// GetStatus returns the register display summary.
// GET /api/v1/sync/status
func (h *SyncHandler) GetStatus(c *gin.Context) {
	ctx := c.Request.Context()

	pending, err := h.Repo.CountActions(ctx, model.ActionPending)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	failed, err := h.Repo.CountActions(ctx, model.ActionFailed)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	lastSync, err := h.Repo.LastSyncTime(ctx)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, model.SyncStatus{
		Connection:   h.Monitor.Status(),
		PendingCount: pending,
		FailedCount:  failed,
		LastSyncAt:   lastSync,
		SyncRunning:  h.Orchestrator.Running(),
	})
}

// GetSyncRuns returns the recent audit trail.
// GET /api/v1/sync/runs?limit=20
func (h *SyncHandler) GetSyncRuns(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit parameter"})
		return
	}
	runs, err := h.Repo.ListSyncRuns(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, runs)
}

// GetQueue lists queue entries, optionally filtered by status.
// GET /api/v1/sync/queue?status=failed
func (h *SyncHandler) GetQueue(c *gin.Context) {
	status := c.Query("status")
	switch status {
	case "", model.ActionPending, model.ActionInflight, model.ActionFailed:
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid status parameter"})
		return
	}
	actions, err := h.Repo.ListActions(c.Request.Context(), status, 200)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if actions == nil {
		actions = []model.PendingAction{}
	}
	c.JSON(http.StatusOK, actions)
}

// RetryQueueItem requeues a failed entry with a fresh attempt budget.
// POST /api/v1/sync/queue/:id/retry
func (h *SyncHandler) RetryQueueItem(c *gin.Context) {
	id := c.Param("id")
	if err := h.Repo.RetryFailedAction(c.Request.Context(), id); err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	h.Orchestrator.TriggerNow()
	c.JSON(http.StatusOK, gin.H{"message": "queued for retry"})
}

// DismissQueueItem drops a failed entry after operator review. Pending
// work cannot be dismissed from here; it would lose a sale.
// DELETE /api/v1/sync/queue/:id
func (h *SyncHandler) DismissQueueItem(c *gin.Context) {
	ctx := c.Request.Context()
	id := c.Param("id")

	action, err := h.Repo.GetAction(ctx, id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if action == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "queue item not found"})
		return
	}
	if action.Status != model.ActionFailed {
		c.JSON(http.StatusConflict, gin.H{"error": "only failed items can be dismissed"})
		return
	}
	if err := h.Repo.DeleteAction(ctx, id); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "dismissed"})
}
