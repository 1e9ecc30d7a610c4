package server

import (
	"helpdesk/internal/config"
	"helpdesk/internal/guard"
	"helpdesk/internal/handlers"
	"helpdesk/internal/middleware"
	"helpdesk/internal/models"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
)

type Deps struct {
	Config  *config.Config
	Handler *handlers.Handler
	Guard   *guard.Guard
	Limiter middleware.Limiter
}

func NewRouter(d Deps) *gin.Engine {
	cfg, h, g := d.Config, d.Handler, d.Guard
	db := h.DB

	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestID(), middleware.Logger())

	store := cookie.NewStore([]byte(cfg.SessionSecret))
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   7 * 24 * 3600,
		HttpOnly: true,
		Secure:   cfg.CookieSecure,
	})
	r.Use(sessions.Sessions("helpdesk_session", store))

	// ГЛАВНАЯ
	r.GET("/", handlers.IndexPage)
	r.GET("/health", handlers.Health)

	// ВХОД СОТРУДНИКОВ
	r.GET("/signup", handlers.ShowSignup)
	r.POST("/signup", middleware.LoginThrottle(d.Limiter, "/signup"), h.Signup)
	r.GET("/login", handlers.ShowLogin)
	r.POST("/login", middleware.LoginThrottle(d.Limiter, guard.StaffLoginPath), h.Login)
	r.POST("/logout", handlers.Logout)

	staff := r.Group("/")
	staff.Use(g.RequireStaff())

	// КОМПАНИЯ: создать можно и без арендатора
	staff.GET("/company/new", handlers.ShowNewCompany)
	staff.POST("/company", h.CreateCompany)

	auth := staff.Group("/")
	auth.Use(guard.RequireTenant())
	admin := guard.RequireAdmin()

	auth.GET("/company", h.ShowCompany)
	auth.POST("/company/edit", admin, h.UpdateCompany)

	// СОТРУДНИКИ
	auth.GET("/staff", h.ListStaff)
	auth.POST("/staff/new", admin, h.CreateStaff)
	auth.POST("/staff/:id/delete", admin, guard.Scoped[models.User](db, "id", "/staff"), h.DeleteStaff)

	// КЛИЕНТЫ (логины портала)
	auth.GET("/clients", h.ListClients)
	auth.POST("/clients/new", admin, h.CreateClient)
	auth.POST("/clients/:id/edit", admin, guard.Scoped[models.ClientCredential](db, "id", "/clients"), h.UpdateClient)
	auth.POST("/clients/:id/delete", admin, guard.Scoped[models.ClientCredential](db, "id", "/clients"), h.DeleteClient)

	// ОРГАНИЗАЦИИ КЛИЕНТОВ
	clientCompany := guard.Scoped[models.ClientCompanyProfile](db, "id", "/client-companies")
	auth.GET("/client-companies", h.ListClientCompanies)
	auth.GET("/client-companies/:id", clientCompany, h.ShowClientCompany)
	auth.POST("/client-companies/new", h.CreateClientCompany)
	auth.POST("/client-companies/:id/edit", clientCompany, h.UpdateClientCompany)
	auth.POST("/client-companies/:id/delete", admin, clientCompany, h.DeleteClientCompany)

	// ТИКЕТЫ
	ticket := guard.Scoped[models.SupportTicket](db, "id", guard.StaffHomePath)
	auth.GET("/tickets", h.ListTickets)
	auth.GET("/tickets/:id", ticket, h.ShowTicket)
	auth.POST("/tickets/new", h.CreateTicket)
	auth.POST("/tickets/:id/edit", ticket, h.UpdateTicket)
	auth.POST("/tickets/:id/delete", admin, ticket, h.DeleteTicket)
	auth.POST("/tickets/:id/comments", ticket, h.AddComment)
	auth.POST("/tickets/:id/comments/:comment_id/delete", ticket, h.DeleteComment)
	auth.GET("/tickets/:id/attachments/:attachment_id", ticket, h.DownloadAttachment)

	// ВЫЕЗДЫ
	onsite := guard.Scoped[models.OnsiteSupportRecord](db, "id", "/onsite")
	auth.GET("/onsite", h.ListOnsite)
	auth.GET("/onsite/export", h.ExportOnsite)
	auth.POST("/onsite/new", h.CreateOnsite)
	auth.POST("/onsite/:id/edit", onsite, h.UpdateOnsite)
	auth.POST("/onsite/:id/delete", onsite, h.DeleteOnsite)

	// ОБОРУДОВАНИЕ
	equipment := guard.Scoped[models.EquipmentInventoryItem](db, "id", "/equipment")
	auth.GET("/equipment", h.ListEquipment)
	auth.GET("/equipment/export", h.ExportEquipment)
	auth.POST("/equipment/new", h.CreateEquipment)
	auth.POST("/equipment/:id/edit", equipment, h.UpdateEquipment)
	auth.POST("/equipment/:id/delete", admin, equipment, h.DeleteEquipment)

	// УВЕДОМЛЕНИЯ
	auth.GET("/notifications", h.ListNotifications)
	auth.POST("/notifications/:id/read", guard.Scoped[models.Notification](db, "id", "/notifications"), h.MarkNotificationRead)

	// АУДИТ
	auth.GET("/audit", admin, h.ListAuditLogs)

	// ПОРТАЛ КЛИЕНТА
	r.GET("/portal/login", handlers.ShowClientLogin)
	r.POST("/portal/login", middleware.LoginThrottle(d.Limiter, guard.ClientLoginPath), h.ClientLogin)

	portal := r.Group("/portal")
	portal.Use(g.RequireClient())
	portal.POST("/logout", h.ClientLogout)
	portal.GET("/tickets", h.ListMyTickets)
	portal.GET("/tickets/:id", h.ShowMyTicket)
	portal.POST("/tickets/new", h.CreateMyTicket)
	portal.POST("/tickets/:id/close", h.CloseMyTicket)
	portal.POST("/tickets/:id/comments", h.AddMyComment)
	portal.POST("/tickets/:id/comments/:comment_id/delete", h.DeleteMyComment)
	portal.GET("/tickets/:id/attachments/:attachment_id", h.DownloadMyAttachment)
	portal.GET("/onsite", h.ListMyOnsite)
	portal.GET("/onsite/export", h.ExportMyOnsite)

	return r
}
