package handlers

import (
	"net/http"

	"helpdesk/internal/crypto"
	"helpdesk/internal/database"
	"helpdesk/internal/flash"
	"helpdesk/internal/guard"
	"helpdesk/internal/models"
	"helpdesk/internal/notify"
	"helpdesk/internal/session"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// Handler — общие зависимости обработчиков форм и страниц.
type Handler struct {
	DB       *gorm.DB
	Cipher   *crypto.Cipher
	Sessions *session.Store
	Signer   *session.Signer
	Notifier *notify.Notifier

	UploadDir    string
	CookieSecure bool
}

// succeed — успешный исход мутации: сообщение во flash и редирект.
func succeed(c *gin.Context, target, msg string) {
	flash.Success(c, msg)
	c.Redirect(http.StatusFound, guard.Link(c, target))
}

// fail — то же для ошибки; сами правила в guard.Fail.
func fail(c *gin.Context, target string, err error) {
	guard.Fail(c, target, err)
}

func (h *Handler) audit(c *gin.Context, entity string, entityID uint, action, details string) {
	caller := guard.From(c)
	if caller == nil {
		return
	}
	database.CreateAuditLog(h.DB.WithContext(c.Request.Context()), models.AuditLog{
		CompanyID: caller.CompanyID,
		ActorType: caller.AuthorType(),
		ActorID:   caller.ID,
		Entity:    entity,
		EntityID:  entityID,
		Action:    action,
		Details:   details,
	})
}

// tenant — запрос, ограниченный арендатором вызывающего.
func (h *Handler) tenant(c *gin.Context) *gorm.DB {
	return database.Tenant(h.DB.WithContext(c.Request.Context()), guard.From(c).CompanyID)
}
