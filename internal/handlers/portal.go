package handlers

import (
	"fmt"
	"net/http"
	"strconv"

	"helpdesk/internal/apperr"
	"helpdesk/internal/guard"
	"helpdesk/internal/models"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

func portalTicketPath(id uint) string {
	return guard.ClientHomePath + "/" + strconv.FormatUint(uint64(id), 10)
}

// clientTicket — тикет из :id, только если им владеет текущий клиент.
func (h *Handler) clientTicket(c *gin.Context) (*models.SupportTicket, bool) {
	id, err := guard.ParseID(c.Param("id"))
	if err != nil {
		fail(c, guard.ClientHomePath, err)
		return nil, false
	}
	var ticket models.SupportTicket
	if err := guard.LoadClientTicket(c.Request.Context(), h.DB, guard.From(c), id, &ticket); err != nil {
		fail(c, guard.ClientHomePath, err)
		return nil, false
	}
	return &ticket, true
}

func (h *Handler) ListMyTickets(c *gin.Context) {
	caller := guard.From(c)

	var tickets []models.SupportTicket
	err := h.tenant(c).
		Where("client_credential_id = ?", caller.ID).
		Order("created_at desc").
		Find(&tickets).Error
	if err != nil {
		fail(c, guard.ClientLoginPath, apperr.Persistence(err))
		return
	}
	render(c, http.StatusOK, "portal_tickets", gin.H{"tickets": tickets})
}

// ShowMyTicket — внутренние комментарии клиенту не показываются.
func (h *Handler) ShowMyTicket(c *gin.Context) {
	ticket, ok := h.clientTicket(c)
	if !ok {
		return
	}
	comments, err := h.loadComments(c, ticket.ID, false)
	if err != nil {
		fail(c, guard.ClientHomePath, err)
		return
	}
	ticket.Comments = comments
	render(c, http.StatusOK, "portal_ticket_detail", gin.H{"ticket": ticket})
}

func (h *Handler) CreateMyTicket(c *gin.Context) {
	caller := guard.From(c)
	ctx := c.Request.Context()

	title := formText(c, "title")
	priority := models.TicketPriority(formText(c, "priority"))
	if priority == "" {
		priority = models.PriorityMedium
	}
	if title == "" {
		fail(c, guard.ClientHomePath, apperr.Invalid("Укажите тему обращения"))
		return
	}
	if !priority.Valid() {
		fail(c, guard.ClientHomePath, apperr.Invalid("Неверный приоритет"))
		return
	}

	clientID := caller.ID
	ticket := models.SupportTicket{
		CompanyID:          caller.CompanyID,
		ClientCredentialID: &clientID,
		Title:              title,
		Description:        formText(c, "description"),
		Status:             models.TicketOpen,
		Priority:           priority,
	}
	if err := h.DB.WithContext(ctx).Create(&ticket).Error; err != nil {
		fail(c, guard.ClientHomePath, apperr.Persistence(fmt.Errorf("create ticket: %w", err)))
		return
	}

	h.Notifier.TicketCreated(ctx, &ticket)
	h.audit(c, "ticket", ticket.ID, "create", "Клиент создал тикет: "+ticket.Title)
	succeed(c, portalTicketPath(ticket.ID), "Обращение создано")
}

func (h *Handler) CloseMyTicket(c *gin.Context) {
	ticket, ok := h.clientTicket(c)
	if !ok {
		return
	}
	back := portalTicketPath(ticket.ID)
	if ticket.Status == models.TicketClosed {
		succeed(c, back, "Обращение уже закрыто")
		return
	}

	prev := ticket.Status
	ticket.Status = models.TicketClosed
	setResolvedAt(ticket)

	err := h.DB.WithContext(c.Request.Context()).
		Model(&models.SupportTicket{}).
		Where("id = ?", ticket.ID).
		Updates(map[string]any{"status": ticket.Status, "resolved_at": ticket.ResolvedAt}).Error
	if err != nil {
		fail(c, back, apperr.Persistence(err))
		return
	}

	h.Notifier.TicketStatusChanged(c.Request.Context(), ticket, prev)
	h.audit(c, "ticket", ticket.ID, "update", "Клиент закрыл тикет")
	succeed(c, back, "Обращение закрыто")
}

// myOnsite — выезды, привязанные к клиенту или к его организации.
func (h *Handler) myOnsite(c *gin.Context) *gorm.DB {
	caller := guard.From(c)
	q := h.tenant(c)
	if caller.ClientCompanyID != nil {
		return q.Where("(client_credential_id = ? OR client_company_id = ?)", caller.ID, *caller.ClientCompanyID)
	}
	return q.Where("client_credential_id = ?", caller.ID)
}

func (h *Handler) ListMyOnsite(c *gin.Context) {
	var records []models.OnsiteSupportRecord
	if err := h.myOnsite(c).Order("work_date desc").Find(&records).Error; err != nil {
		fail(c, guard.ClientHomePath, apperr.Persistence(err))
		return
	}
	render(c, http.StatusOK, "portal_onsite", gin.H{"records": onsiteViews(records)})
}
