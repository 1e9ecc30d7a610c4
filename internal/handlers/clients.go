package handlers

import (
	"fmt"
	"net/http"

	"helpdesk/internal/apperr"
	"helpdesk/internal/crypto"
	"helpdesk/internal/guard"
	"helpdesk/internal/models"

	"github.com/gin-gonic/gin"
)

const clientsPath = "/clients"

func (h *Handler) ListClients(c *gin.Context) {
	var creds []models.ClientCredential
	err := h.tenant(c).
		Preload("ClientCompany").
		Order("username asc").
		Find(&creds).Error
	if err != nil {
		fail(c, guard.StaffHomePath, apperr.Persistence(err))
		return
	}
	render(c, http.StatusOK, "clients_list", gin.H{"clients": creds})
}

func (h *Handler) CreateClient(c *gin.Context) {
	caller := guard.From(c)
	ctx := c.Request.Context()

	username := formText(c, "username")
	password := c.PostForm("password")
	role := models.ClientRole(formText(c, "role"))
	if role == "" {
		role = models.ClientRoleClient
	}

	switch {
	case len(username) < 3:
		fail(c, clientsPath, apperr.Invalid("Логин должен быть не короче 3 символов"))
		return
	case len(password) < minPasswordLen:
		fail(c, clientsPath, apperr.Invalid("Пароль должен быть не короче 6 символов"))
		return
	case !role.Valid():
		fail(c, clientsPath, apperr.Invalid("Неверная роль клиента"))
		return
	}

	ref, err := parseRef(c, "client_company_id")
	if err != nil {
		fail(c, clientsPath, err)
		return
	}
	if ref.setsID() {
		if err := guard.CheckReference[models.ClientCompanyProfile](ctx, h.DB, caller, ref.ID); err != nil {
			fail(c, clientsPath, err)
			return
		}
	}
	if err := h.checkUsername(c, username, 0); err != nil {
		fail(c, clientsPath, err)
		return
	}

	hash, err := crypto.HashPassword(password)
	if err != nil {
		fail(c, clientsPath, apperr.Persistence(err))
		return
	}
	cred := models.ClientCredential{
		CompanyID:    caller.CompanyID,
		Username:     username,
		PasswordHash: hash,
		Role:         role,
		IsActive:     true,
	}
	if v, ok := formField(c, "is_active"); ok {
		cred.IsActive = isTrue(v)
	}
	ref.apply(&cred.ClientCompanyID)

	if err := h.DB.WithContext(ctx).Create(&cred).Error; err != nil {
		fail(c, clientsPath, apperr.Persistence(fmt.Errorf("create client credential: %w", err)))
		return
	}

	h.audit(c, "client", cred.ID, "create", "Создан клиент "+cred.Username)
	succeed(c, clientsPath, "Клиент создан")
}

// UpdateClient — пустой пароль оставляет старый. Деактивация закрывает все сессии клиента.
func (h *Handler) UpdateClient(c *gin.Context) {
	caller := guard.From(c)
	cred := guard.Row[models.ClientCredential](c)
	ctx := c.Request.Context()

	if username, ok := formField(c, "username"); ok && username != cred.Username {
		if len(username) < 3 {
			fail(c, clientsPath, apperr.Invalid("Логин должен быть не короче 3 символов"))
			return
		}
		if err := h.checkUsername(c, username, cred.ID); err != nil {
			fail(c, clientsPath, err)
			return
		}
		cred.Username = username
	}

	if password := c.PostForm("password"); password != "" {
		if len(password) < minPasswordLen {
			fail(c, clientsPath, apperr.Invalid("Пароль должен быть не короче 6 символов"))
			return
		}
		hash, err := crypto.HashPassword(password)
		if err != nil {
			fail(c, clientsPath, apperr.Persistence(err))
			return
		}
		cred.PasswordHash = hash
	}

	if v, ok := formField(c, "role"); ok {
		role := models.ClientRole(v)
		if !role.Valid() {
			fail(c, clientsPath, apperr.Invalid("Неверная роль клиента"))
			return
		}
		cred.Role = role
	}

	wasActive := cred.IsActive
	if v, ok := formField(c, "is_active"); ok {
		cred.IsActive = isTrue(v)
	}

	ref, err := parseRef(c, "client_company_id")
	if err != nil {
		fail(c, clientsPath, err)
		return
	}
	if ref.setsID() {
		if err := guard.CheckReference[models.ClientCompanyProfile](ctx, h.DB, caller, ref.ID); err != nil {
			fail(c, clientsPath, err)
			return
		}
	}
	ref.apply(&cred.ClientCompanyID)
	cred.ClientCompany = nil

	if err := h.DB.WithContext(ctx).Save(cred).Error; err != nil {
		fail(c, clientsPath, apperr.Persistence(err))
		return
	}
	if wasActive && !cred.IsActive {
		if err := h.Sessions.RevokeAll(ctx, cred.ID); err != nil {
			fail(c, clientsPath, err)
			return
		}
	}

	h.audit(c, "client", cred.ID, "update", "Изменён клиент "+cred.Username)
	succeed(c, clientsPath, "Клиент сохранён")
}

// DeleteClient запрещён, пока на клиента ссылаются тикеты.
func (h *Handler) DeleteClient(c *gin.Context) {
	cred := guard.Row[models.ClientCredential](c)
	ctx := c.Request.Context()

	var tickets int64
	err := h.tenant(c).Model(&models.SupportTicket{}).
		Where("client_credential_id = ?", cred.ID).
		Count(&tickets).Error
	if err != nil {
		fail(c, clientsPath, apperr.Persistence(err))
		return
	}
	if tickets > 0 {
		fail(c, clientsPath, apperr.Invalid(fmt.Sprintf("У клиента есть тикеты (%d), удаление невозможно", tickets)))
		return
	}

	if err := h.Sessions.RevokeAll(ctx, cred.ID); err != nil {
		fail(c, clientsPath, err)
		return
	}
	if err := h.tenant(c).Delete(&models.ClientCredential{}, cred.ID).Error; err != nil {
		fail(c, clientsPath, apperr.Persistence(err))
		return
	}

	h.audit(c, "client", cred.ID, "delete", "Удалён клиент "+cred.Username)
	succeed(c, clientsPath, "Клиент удалён")
}

func (h *Handler) checkUsername(c *gin.Context, username string, exceptID uint) error {
	var count int64
	err := h.tenant(c).Model(&models.ClientCredential{}).
		Where("LOWER(username) = LOWER(?) AND id <> ?", username, exceptID).
		Count(&count).Error
	if err != nil {
		return apperr.Persistence(err)
	}
	if count > 0 {
		return apperr.Invalid("Клиент с таким логином уже существует")
	}
	return nil
}
