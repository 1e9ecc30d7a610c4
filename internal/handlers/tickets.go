package handlers

import (
	"fmt"
	"net/http"
	"os"
	"strconv"
	"time"

	"helpdesk/internal/apperr"
	"helpdesk/internal/guard"
	"helpdesk/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

const ticketsPath = guard.StaffHomePath

func ticketPath(id uint) string {
	return ticketsPath + "/" + strconv.FormatUint(uint64(id), 10)
}

func (h *Handler) ListTickets(c *gin.Context) {
	q := h.tenant(c).Preload("ClientCredential")

	if s := c.Query("status"); s != "" {
		if !models.TicketStatus(s).Valid() {
			fail(c, ticketsPath, apperr.Invalid("Неверный статус"))
			return
		}
		q = q.Where("status = ?", s)
	}
	if p := c.Query("priority"); p != "" {
		if !models.TicketPriority(p).Valid() {
			fail(c, ticketsPath, apperr.Invalid("Неверный приоритет"))
			return
		}
		q = q.Where("priority = ?", p)
	}

	var tickets []models.SupportTicket
	if err := q.Order("created_at desc").Find(&tickets).Error; err != nil {
		fail(c, ticketsPath, apperr.Persistence(err))
		return
	}
	render(c, http.StatusOK, "tickets_list", gin.H{"tickets": tickets})
}

// ShowTicket — сотрудник видит и внутренние комментарии.
func (h *Handler) ShowTicket(c *gin.Context) {
	ticket := guard.Row[models.SupportTicket](c)

	comments, err := h.loadComments(c, ticket.ID, true)
	if err != nil {
		fail(c, ticketsPath, err)
		return
	}
	ticket.Comments = comments

	if ticket.ClientCredentialID != nil {
		var cred models.ClientCredential
		if err := h.tenant(c).First(&cred, *ticket.ClientCredentialID).Error; err == nil {
			ticket.ClientCredential = &cred
		}
	}
	render(c, http.StatusOK, "ticket_detail", gin.H{"ticket": ticket})
}

func (h *Handler) CreateTicket(c *gin.Context) {
	caller := guard.From(c)
	ctx := c.Request.Context()

	title := formText(c, "title")
	priority := models.TicketPriority(formText(c, "priority"))
	if priority == "" {
		priority = models.PriorityMedium
	}
	if title == "" {
		fail(c, ticketsPath, apperr.Invalid("Укажите тему тикета"))
		return
	}
	if !priority.Valid() {
		fail(c, ticketsPath, apperr.Invalid("Неверный приоритет"))
		return
	}

	client, err := parseRef(c, "client_credential_id")
	if err != nil {
		fail(c, ticketsPath, err)
		return
	}
	if client.setsID() {
		if err := guard.CheckReference[models.ClientCredential](ctx, h.DB, caller, client.ID); err != nil {
			fail(c, ticketsPath, err)
			return
		}
	}
	assignee, err := parseRef(c, "assigned_to")
	if err != nil {
		fail(c, ticketsPath, err)
		return
	}
	if assignee.setsID() {
		if err := guard.CheckReference[models.User](ctx, h.DB, caller, assignee.ID); err != nil {
			fail(c, ticketsPath, err)
			return
		}
	}

	creator := caller.ID
	ticket := models.SupportTicket{
		CompanyID:       caller.CompanyID,
		CreatedByUserID: &creator,
		Title:           title,
		Description:     formText(c, "description"),
		Status:          models.TicketOpen,
		Priority:        priority,
	}
	client.apply(&ticket.ClientCredentialID)
	assignee.apply(&ticket.AssignedToUserID)

	if err := h.DB.WithContext(ctx).Create(&ticket).Error; err != nil {
		fail(c, ticketsPath, apperr.Persistence(fmt.Errorf("create ticket: %w", err)))
		return
	}

	h.Notifier.TicketCreated(ctx, &ticket)
	h.audit(c, "ticket", ticket.ID, "create", "Создан тикет: "+ticket.Title)
	succeed(c, ticketPath(ticket.ID), "Тикет создан")
}

// UpdateTicket — статус, приоритет, исполнитель; тема и описание, если пришли.
func (h *Handler) UpdateTicket(c *gin.Context) {
	caller := guard.From(c)
	ticket := guard.Row[models.SupportTicket](c)
	ctx := c.Request.Context()
	back := ticketPath(ticket.ID)

	prevStatus := ticket.Status

	if v, ok := formField(c, "status"); ok && v != "" {
		status := models.TicketStatus(v)
		if !status.Valid() {
			fail(c, back, apperr.Invalid("Неверный статус"))
			return
		}
		ticket.Status = status
	}
	if v, ok := formField(c, "priority"); ok && v != "" {
		priority := models.TicketPriority(v)
		if !priority.Valid() {
			fail(c, back, apperr.Invalid("Неверный приоритет"))
			return
		}
		ticket.Priority = priority
	}
	if v, ok := formField(c, "title"); ok {
		if v == "" {
			fail(c, back, apperr.Invalid("Тема тикета не может быть пустой"))
			return
		}
		ticket.Title = v
	}
	if v, ok := formField(c, "description"); ok {
		ticket.Description = v
	}

	assignee, err := parseRef(c, "assigned_to")
	if err != nil {
		fail(c, back, err)
		return
	}
	if assignee.setsID() {
		if err := guard.CheckReference[models.User](ctx, h.DB, caller, assignee.ID); err != nil {
			fail(c, back, err)
			return
		}
	}
	assignee.apply(&ticket.AssignedToUserID)

	if ticket.Status != prevStatus {
		setResolvedAt(ticket)
	}

	if err := h.DB.WithContext(ctx).Omit("ClientCredential", "Comments").Save(ticket).Error; err != nil {
		fail(c, back, apperr.Persistence(err))
		return
	}

	if ticket.Status != prevStatus {
		h.Notifier.TicketStatusChanged(ctx, ticket, prevStatus)
	}
	h.audit(c, "ticket", ticket.ID, "update",
		fmt.Sprintf("Тикет обновлён: статус %s, приоритет %s", ticket.Status, ticket.Priority))
	succeed(c, back, "Тикет сохранён")
}

// DeleteTicket удаляет тикет вместе с комментариями и вложениями, файлы — с диска.
func (h *Handler) DeleteTicket(c *gin.Context) {
	ticket := guard.Row[models.SupportTicket](c)

	var attachments []models.TicketAttachment
	err := h.DB.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("ticket_id = ?", ticket.ID).Find(&attachments).Error; err != nil {
			return err
		}
		if err := tx.Where("ticket_id = ?", ticket.ID).Delete(&models.TicketAttachment{}).Error; err != nil {
			return err
		}
		if err := tx.Where("ticket_id = ?", ticket.ID).Delete(&models.TicketComment{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.SupportTicket{}, ticket.ID).Error
	})
	if err != nil {
		fail(c, ticketsPath, apperr.Persistence(err))
		return
	}

	for _, a := range attachments {
		if err := os.Remove(a.StoragePath); err != nil && !os.IsNotExist(err) {
			log.Warn().Err(err).Str("path", a.StoragePath).Msg("remove attachment file")
		}
	}

	h.audit(c, "ticket", ticket.ID, "delete", "Удалён тикет: "+ticket.Title)
	succeed(c, ticketsPath, "Тикет удалён")
}

func setResolvedAt(t *models.SupportTicket) {
	switch t.Status {
	case models.TicketResolved, models.TicketClosed:
		now := time.Now()
		t.ResolvedAt = &now
	default:
		t.ResolvedAt = nil
	}
}

func (h *Handler) loadComments(c *gin.Context, ticketID uint, withInternal bool) ([]models.TicketComment, error) {
	q := h.DB.WithContext(c.Request.Context()).
		Preload("Attachments").
		Where("ticket_id = ?", ticketID)
	if !withInternal {
		q = q.Where("is_internal = ?", false)
	}
	var comments []models.TicketComment
	if err := q.Order("created_at asc").Find(&comments).Error; err != nil {
		return nil, apperr.Persistence(err)
	}
	return comments, nil
}
