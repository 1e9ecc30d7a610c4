package handlers

import (
	"fmt"
	"net/http"
	"unicode/utf8"

	"helpdesk/internal/apperr"
	"helpdesk/internal/database"
	"helpdesk/internal/guard"
	"helpdesk/internal/models"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

func ShowNewCompany(c *gin.Context) {
	render(c, http.StatusOK, "company_new", nil)
}

// CreateCompany — сотрудник без компании создаёт её и становится владельцем.
func (h *Handler) CreateCompany(c *gin.Context) {
	caller := guard.From(c)
	if caller.HasTenant() {
		fail(c, guard.StaffHomePath, apperr.Denied("Вы уже состоите в компании"))
		return
	}

	name := formText(c, "name")
	if utf8.RuneCountInString(name) < 2 {
		fail(c, guard.CompanyNewPath, apperr.Invalid("Название компании должно быть не короче 2 символов"))
		return
	}

	company := models.Company{
		Name:        name,
		Description: formText(c, "description"),
		OwnerID:     caller.ID,
	}
	err := h.DB.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&company).Error; err != nil {
			return fmt.Errorf("create company: %w", err)
		}
		return tx.Model(&models.User{}).Where("id = ?", caller.ID).Updates(map[string]any{
			"company_id": company.ID,
			"user_type":  models.UserAdmin,
		}).Error
	})
	if err != nil {
		fail(c, guard.CompanyNewPath, apperr.Persistence(err))
		return
	}

	database.CreateAuditLog(h.DB, models.AuditLog{
		CompanyID: company.ID,
		ActorType: models.AuthorStaff,
		ActorID:   caller.ID,
		Entity:    "company",
		EntityID:  company.ID,
		Action:    "create",
		Details:   "Создана компания " + company.Name,
	})
	succeed(c, guard.StaffHomePath, "Компания создана")
}

func (h *Handler) ShowCompany(c *gin.Context) {
	var company models.Company
	if err := h.DB.WithContext(c.Request.Context()).First(&company, guard.From(c).CompanyID).Error; err != nil {
		fail(c, guard.StaffHomePath, apperr.Persistence(err))
		return
	}
	render(c, http.StatusOK, "company", gin.H{"company": company})
}

func (h *Handler) UpdateCompany(c *gin.Context) {
	caller := guard.From(c)

	updates := map[string]any{}
	if name, ok := formField(c, "name"); ok {
		if utf8.RuneCountInString(name) < 2 {
			fail(c, "/company", apperr.Invalid("Название компании должно быть не короче 2 символов"))
			return
		}
		updates["name"] = name
	}
	if desc, ok := formField(c, "description"); ok {
		updates["description"] = desc
	}
	if len(updates) == 0 {
		succeed(c, "/company", "Изменений нет")
		return
	}

	err := h.DB.WithContext(c.Request.Context()).
		Model(&models.Company{}).
		Where("id = ?", caller.CompanyID).
		Updates(updates).Error
	if err != nil {
		fail(c, "/company", apperr.Persistence(err))
		return
	}

	h.audit(c, "company", caller.CompanyID, "update", "Изменены данные компании")
	succeed(c, "/company", "Данные компании сохранены")
}
