package handlers

import (
	"helpdesk/internal/flash"
	"helpdesk/internal/guard"

	"github.com/gin-gonic/gin"
)

// render — обёртка над c.JSON: во все страницы прокидывает текущего пользователя
// и одноразовые сообщения. Вёрстка живёт отдельно и читает эти данные.
func render(c *gin.Context, status int, view string, data gin.H) {
	if data == nil {
		data = gin.H{}
	}
	data["view"] = view
	data["flash"] = flash.Pop(c)

	if caller := guard.From(c); caller != nil {
		data["CurrentUser"] = gin.H{
			"id":         caller.ID,
			"kind":       caller.Kind,
			"name":       caller.Name,
			"role":       caller.Role,
			"company_id": caller.CompanyID,
		}
		data["IsAdmin"] = caller.IsAdmin()
	}

	c.JSON(status, data)
}
