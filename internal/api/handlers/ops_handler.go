package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/yoockh/labourline/internal/services"
)

// OpsHandler serves the admin endpoints for dead-lettered finalizations.
type OpsHandler struct {
	failures services.FailureService
	log      *logrus.Logger
}

func NewOpsHandler(failures services.FailureService, log *logrus.Logger) *OpsHandler {
	return &OpsHandler{failures: failures, log: log}
}

func (h *OpsHandler) ListFailures(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	out, err := h.failures.ListUnresolved(c.Request.Context(), limit)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": out, "count": len(out)})
}

func (h *OpsHandler) ReplayFailure(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	id, ok := pathID(c, "id", "OpsHandler.ReplayFailure")
	if !ok {
		return
	}

	if err := h.failures.Replay(c.Request.Context(), id); err != nil {
		writeError(c, err)
		return
	}

	h.log.WithFields(logrus.Fields{"failure_id": id, "user_id": userID}).Info("pipeline failure replayed")
	c.JSON(http.StatusAccepted, gin.H{"failure_id": id, "status": "queued"})
}
