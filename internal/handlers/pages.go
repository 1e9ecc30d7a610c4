package handlers

import (
	"net/http"

	"helpdesk/internal/guard"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
)

// IndexPage отправляет вошедшего сотрудника к тикетам, остальных на вход.
func IndexPage(c *gin.Context) {
	sess := sessions.Default(c)
	if _, ok := sess.Get("user_id").(uint); ok {
		c.Redirect(http.StatusFound, guard.StaffHomePath)
		return
	}
	c.Redirect(http.StatusFound, guard.StaffLoginPath)
}

func Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
