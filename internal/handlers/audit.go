package handlers

import (
	"net/http"

	"helpdesk/internal/apperr"
	"helpdesk/internal/guard"
	"helpdesk/internal/models"

	"github.com/gin-gonic/gin"
)

const auditLimit = 200

// ListAuditLogs — последние записи журнала своей компании, только для администратора.
func (h *Handler) ListAuditLogs(c *gin.Context) {
	q := h.tenant(c)
	if e := c.Query("entity"); e != "" {
		q = q.Where("entity = ?", e)
	}

	var logs []models.AuditLog
	if err := q.Order("created_at desc, id desc").Limit(auditLimit).Find(&logs).Error; err != nil {
		fail(c, guard.StaffHomePath, apperr.Persistence(err))
		return
	}

	render(c, http.StatusOK, "audit_list", gin.H{"logs": logs})
}
