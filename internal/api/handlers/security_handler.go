package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/fleetdesk/backend/internal/api/middleware"
	"github.com/fleetdesk/backend/internal/audit"
	"github.com/fleetdesk/backend/internal/cerberus"
	"github.com/fleetdesk/backend/internal/models"
	"github.com/fleetdesk/backend/internal/services"
)

const (
	defaultListLimit = 50
	maxListLimit     = 1000
)

// SecurityHandler exposes the audit ledger and the stored block decisions.
type SecurityHandler struct {
	ledger *audit.Ledger
	svc    *services.SecurityService
}

func NewSecurityHandler(ledger *audit.Ledger, svc *services.SecurityService) *SecurityHandler {
	return &SecurityHandler{ledger: ledger, svc: svc}
}

// GetViolations returns the newest violations, ?limit= bounded.
func (h *SecurityHandler) GetViolations(c *gin.Context) {
	limit, ok := parseLimit(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"violations": h.ledger.Violations(limit)})
}

// ClearViolations empties the ledger. Active blocks stay in force.
func (h *SecurityHandler) ClearViolations(c *gin.Context) {
	h.ledger.Clear(c.Request.Context())
	h.audit(c, "clear_violations", "")
	c.Status(http.StatusNoContent)
}

func (h *SecurityHandler) GetMetrics(c *gin.Context) {
	c.JSON(http.StatusOK, h.ledger.Metrics())
}

func (h *SecurityHandler) GetBlocks(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"blocks": h.ledger.Blocked()})
}

// Unblock lifts an active block early.
func (h *SecurityHandler) Unblock(c *gin.Context) {
	id := c.Param("id")
	if !h.ledger.Unblock(id) {
		c.JSON(http.StatusNotFound, gin.H{"error": "no active block for identifier"})
		return
	}
	actor := cerberus.ActorFrom(c)
	if err := h.svc.RecordUnblock(id, actor.Identifier(), actor.ClientIP); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *SecurityHandler) GetDecisions(c *gin.Context) {
	limit, ok := parseLimit(c)
	if !ok {
		return
	}
	decisions, err := h.svc.ListDecisions(limit)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"decisions": decisions})
}

func (h *SecurityHandler) audit(c *gin.Context, action, details string) {
	actor := cerberus.ActorFrom(c)
	if err := h.svc.LogAudit(&models.SecurityAudit{Actor: actor.Identifier(), Action: action, Details: details}); err != nil {
		middleware.GetRequestLogger(c).WithError(err).Warn("failed to store security audit")
	}
}

func parseLimit(c *gin.Context) (int, bool) {
	raw := c.Query("limit")
	if raw == "" {
		return defaultListLimit, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
		return 0, false
	}
	return min(n, maxListLimit), true
}
