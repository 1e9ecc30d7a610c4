package handlers

import (
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	"helpdesk/internal/apperr"
	"helpdesk/internal/guard"
	"helpdesk/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

const maxAttachmentSize = 10 << 20

// AddComment — комментарий сотрудника, может быть внутренним.
func (h *Handler) AddComment(c *gin.Context) {
	ticket := guard.Row[models.SupportTicket](c)
	h.addComment(c, ticket, isTrue(c.PostForm("is_internal")), ticketPath(ticket.ID))
}

// DeleteComment — путь управления тикетом: сотрудник удаляет любой комментарий тикета своей компании.
func (h *Handler) DeleteComment(c *gin.Context) {
	ticket := guard.Row[models.SupportTicket](c)
	back := ticketPath(ticket.ID)

	comment, err := h.loadComment(c, ticket.ID)
	if err != nil {
		fail(c, back, err)
		return
	}
	h.deleteComment(c, comment, back)
}

func (h *Handler) AddMyComment(c *gin.Context) {
	ticket, ok := h.clientTicket(c)
	if !ok {
		return
	}
	h.addComment(c, ticket, false, portalTicketPath(ticket.ID))
}

// DeleteMyComment — клиент удаляет только свой комментарий.
func (h *Handler) DeleteMyComment(c *gin.Context) {
	ticket, ok := h.clientTicket(c)
	if !ok {
		return
	}
	back := portalTicketPath(ticket.ID)

	comment, err := h.loadComment(c, ticket.ID)
	if err != nil {
		fail(c, back, err)
		return
	}
	caller := guard.From(c)
	if comment.AuthorType != models.AuthorClient || comment.AuthorID != caller.ID {
		fail(c, back, apperr.Denied("Можно удалять только свои комментарии"))
		return
	}
	h.deleteComment(c, comment, back)
}

func (h *Handler) DownloadAttachment(c *gin.Context) {
	ticket := guard.Row[models.SupportTicket](c)
	h.sendAttachment(c, ticket.ID, true)
}

func (h *Handler) DownloadMyAttachment(c *gin.Context) {
	ticket, ok := h.clientTicket(c)
	if !ok {
		return
	}
	h.sendAttachment(c, ticket.ID, false)
}

func (h *Handler) addComment(c *gin.Context, ticket *models.SupportTicket, internal bool, back string) {
	caller := guard.From(c)

	body := formText(c, "body")
	if body == "" {
		fail(c, back, apperr.Invalid("Комментарий не может быть пустым"))
		return
	}

	file, err := c.FormFile("attachment")
	switch {
	case err == nil:
	case errors.Is(err, http.ErrMissingFile), errors.Is(err, http.ErrNotMultipart):
		file = nil
	default:
		fail(c, back, apperr.Invalid("Не удалось прочитать вложение"))
		return
	}
	if file != nil && file.Size > maxAttachmentSize {
		fail(c, back, apperr.Invalid("Вложение больше 10 МБ"))
		return
	}

	comment := models.TicketComment{
		TicketID:   ticket.ID,
		AuthorID:   caller.ID,
		AuthorType: caller.AuthorType(),
		Body:       body,
		IsInternal: internal,
	}
	var savedPath string
	err = h.DB.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&comment).Error; err != nil {
			return fmt.Errorf("create comment: %w", err)
		}
		if file == nil {
			return nil
		}
		att, err := h.storeAttachment(c, file, &comment)
		if err != nil {
			return err
		}
		savedPath = att.StoragePath
		return tx.Create(att).Error
	})
	if err != nil {
		if savedPath != "" {
			_ = os.Remove(savedPath)
		}
		fail(c, back, apperr.Persistence(err))
		return
	}

	h.audit(c, "comment", comment.ID, "create", "Комментарий к тикету #"+strconv.FormatUint(uint64(ticket.ID), 10))
	succeed(c, back, "Комментарий добавлен")
}

func (h *Handler) storeAttachment(c *gin.Context, file *multipart.FileHeader, comment *models.TicketComment) (*models.TicketAttachment, error) {
	dir := filepath.Join(h.UploadDir, strconv.FormatUint(uint64(comment.TicketID), 10))
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}

	name := filepath.Base(file.Filename)
	path := filepath.Join(dir, uuid.NewString()+"_"+name)
	if err := c.SaveUploadedFile(file, path); err != nil {
		return nil, fmt.Errorf("save attachment: %w", err)
	}

	return &models.TicketAttachment{
		CommentID:   comment.ID,
		TicketID:    comment.TicketID,
		FileName:    name,
		StoragePath: path,
		ContentType: file.Header.Get("Content-Type"),
		Size:        file.Size,
	}, nil
}

func (h *Handler) loadComment(c *gin.Context, ticketID uint) (*models.TicketComment, error) {
	id, err := guard.ParseID(c.Param("comment_id"))
	if err != nil {
		return nil, err
	}
	var comment models.TicketComment
	err = h.DB.WithContext(c.Request.Context()).
		Where("id = ? AND ticket_id = ?", id, ticketID).
		First(&comment).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("Комментарий не найден")
	}
	if err != nil {
		return nil, apperr.Persistence(err)
	}
	return &comment, nil
}

func (h *Handler) deleteComment(c *gin.Context, comment *models.TicketComment, back string) {
	var attachments []models.TicketAttachment
	err := h.DB.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("comment_id = ?", comment.ID).Find(&attachments).Error; err != nil {
			return err
		}
		if err := tx.Where("comment_id = ?", comment.ID).Delete(&models.TicketAttachment{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.TicketComment{}, comment.ID).Error
	})
	if err != nil {
		fail(c, back, apperr.Persistence(err))
		return
	}
	for _, a := range attachments {
		if err := os.Remove(a.StoragePath); err != nil && !os.IsNotExist(err) {
			log.Warn().Err(err).Str("path", a.StoragePath).Msg("remove attachment file")
		}
	}

	h.audit(c, "comment", comment.ID, "delete", "Удалён комментарий")
	succeed(c, back, "Комментарий удалён")
}

func (h *Handler) sendAttachment(c *gin.Context, ticketID uint, withInternal bool) {
	id, err := guard.ParseID(c.Param("attachment_id"))
	if err != nil {
		fail(c, ticketsPath, err)
		return
	}

	q := h.DB.WithContext(c.Request.Context()).
		Table("ticket_attachments").
		Select("ticket_attachments.*").
		Joins("JOIN ticket_comments ON ticket_comments.id = ticket_attachments.comment_id").
		Where("ticket_attachments.id = ? AND ticket_attachments.ticket_id = ?", id, ticketID).
		Where("ticket_attachments.deleted_at IS NULL")
	if !withInternal {
		q = q.Where("ticket_comments.is_internal = ?", false)
	}

	var att models.TicketAttachment
	err = q.Take(&att).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		fail(c, ticketsPath, apperr.NotFound("Вложение не найдено"))
		return
	}
	if err != nil {
		fail(c, ticketsPath, apperr.Persistence(err))
		return
	}
	c.FileAttachment(att.StoragePath, att.FileName)
}
