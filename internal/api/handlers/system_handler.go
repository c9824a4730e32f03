package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kasirku/pos-sync-backend/internal/remote"
)

// IConnectionProber runs the configuration-time store probe.
type IConnectionProber interface {
	TestConnection(ctx context.Context) (*remote.StoreInfo, error)
}

type SystemHandler struct {
	Prober  IConnectionProber
	Monitor IConnectionMonitor
}

func NewSystemHandler(prober IConnectionProber, monitor IConnectionMonitor) *SystemHandler {
	return &SystemHandler{Prober: prober, Monitor: monitor}
}

// CheckConnection performs a live probe against the remote store and
// reports its version and currency. Used from the settings screen, not
// on the sync hot path.
// GET /api/v1/system/connection
func (h *SystemHandler) CheckConnection(c *gin.Context) {
	info, err := h.Prober.TestConnection(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{
			"reachable":  false,
			"connection": h.Monitor.Status(),
			"error":      err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"reachable":  true,
		"connection": h.Monitor.Status(),
		"store":      info,
	})
}
