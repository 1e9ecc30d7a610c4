package handlers

import (
	"net/http"
	"time"

	"helpdesk/internal/apperr"
	"helpdesk/internal/guard"
	"helpdesk/internal/models"

	"github.com/gin-gonic/gin"
)

const notificationsPath = "/notifications"

func (h *Handler) ListNotifications(c *gin.Context) {
	q := h.tenant(c)
	if isTrue(c.Query("unread")) {
		q = q.Where("read_at IS NULL")
	}

	var list []models.Notification
	if err := q.Order("created_at desc, id desc").Limit(100).Find(&list).Error; err != nil {
		fail(c, guard.StaffHomePath, apperr.Persistence(err))
		return
	}
	render(c, http.StatusOK, "notifications", gin.H{"notifications": list})
}

func (h *Handler) MarkNotificationRead(c *gin.Context) {
	n := guard.Row[models.Notification](c)
	if n.ReadAt != nil {
		c.Redirect(http.StatusFound, notificationsPath)
		return
	}

	err := h.tenant(c).Model(&models.Notification{}).
		Where("id = ?", n.ID).
		Update("read_at", time.Now()).Error
	if err != nil {
		fail(c, notificationsPath, apperr.Persistence(err))
		return
	}
	c.Redirect(http.StatusFound, notificationsPath)
}
