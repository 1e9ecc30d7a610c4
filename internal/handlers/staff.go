package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"helpdesk/internal/apperr"
	"helpdesk/internal/crypto"
	"helpdesk/internal/guard"
	"helpdesk/internal/models"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// ListStaff — только подтверждённые сотрудники своей компании.
func (h *Handler) ListStaff(c *gin.Context) {
	var users []models.User
	err := h.tenant(c).
		Where("email_confirmed = ?", true).
		Order("full_name").
		Find(&users).Error
	if err != nil {
		fail(c, guard.StaffHomePath, apperr.Persistence(err))
		return
	}
	render(c, http.StatusOK, "staff_list", gin.H{"staff": users})
}

func (h *Handler) CreateStaff(c *gin.Context) {
	caller := guard.From(c)

	email := strings.ToLower(formText(c, "email"))
	password := c.PostForm("password")
	fullName := formText(c, "full_name")
	userType := models.UserType(formText(c, "user_type"))
	if userType == "" {
		userType = models.UserStaff
	}

	switch {
	case !validEmail(email):
		fail(c, "/staff", apperr.Invalid("Некорректный email"))
		return
	case len(password) < minPasswordLen:
		fail(c, "/staff", apperr.Invalid("Пароль должен быть не короче 6 символов"))
		return
	case fullName == "":
		fail(c, "/staff", apperr.Invalid("Укажите имя"))
		return
	case !userType.Valid():
		fail(c, "/staff", apperr.Invalid("Неверный тип пользователя"))
		return
	}

	db := h.DB.WithContext(c.Request.Context())
	var count int64
	if err := db.Model(&models.User{}).Where("email = ?", email).Count(&count).Error; err != nil {
		fail(c, "/staff", apperr.Persistence(err))
		return
	}
	if count > 0 {
		fail(c, "/staff", apperr.Invalid("Пользователь с таким email уже существует"))
		return
	}

	hash, err := crypto.HashPassword(password)
	if err != nil {
		fail(c, "/staff", apperr.Persistence(err))
		return
	}
	companyID := caller.CompanyID
	user := models.User{
		Email:          email,
		PasswordHash:   hash,
		FullName:       fullName,
		UserType:       userType,
		CompanyID:      &companyID,
		EmailConfirmed: true,
	}
	if err := db.Create(&user).Error; err != nil {
		fail(c, "/staff", apperr.Persistence(fmt.Errorf("create staff: %w", err)))
		return
	}

	h.audit(c, "user", user.ID, "create", "Добавлен сотрудник "+user.Email)
	succeed(c, "/staff", "Сотрудник добавлен")
}

// DeleteStaff удаляет учётную запись полностью, не мягко.
func (h *Handler) DeleteStaff(c *gin.Context) {
	caller := guard.From(c)
	user := guard.Row[models.User](c)

	if user.ID == caller.ID {
		fail(c, "/staff", apperr.Invalid("Нельзя удалить самого себя"))
		return
	}

	ctx := c.Request.Context()
	var company models.Company
	if err := h.DB.WithContext(ctx).First(&company, caller.CompanyID).Error; err != nil {
		fail(c, "/staff", apperr.Persistence(err))
		return
	}
	if company.OwnerID == user.ID {
		fail(c, "/staff", apperr.Invalid("Нельзя удалить владельца компании"))
		return
	}

	// ссылки на сотрудника обнуляются вместе с удалением
	err := h.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		refs := []struct {
			model  any
			column string
		}{
			{&models.SupportTicket{}, "assigned_to_user_id"},
			{&models.SupportTicket{}, "created_by_user_id"},
			{&models.OnsiteSupportRecord{}, "technician_id"},
		}
		for _, r := range refs {
			err := tx.Model(r.model).
				Where("company_id = ? AND "+r.column+" = ?", caller.CompanyID, user.ID).
				Update(r.column, nil).Error
			if err != nil {
				return err
			}
		}
		return tx.Unscoped().Delete(&models.User{}, user.ID).Error
	})
	if err != nil {
		fail(c, "/staff", apperr.Persistence(fmt.Errorf("delete staff %d: %w", user.ID, err)))
		return
	}

	h.audit(c, "user", user.ID, "delete", "Удалён сотрудник "+user.Email)
	succeed(c, "/staff", "Сотрудник удалён")
}
