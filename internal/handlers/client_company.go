package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"helpdesk/internal/apperr"
	"helpdesk/internal/database"
	"helpdesk/internal/guard"
	"helpdesk/internal/models"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

const clientCompaniesPath = "/client-companies"

func (h *Handler) ListClientCompanies(c *gin.Context) {
	var list []models.ClientCompanyProfile
	if err := h.tenant(c).Order("name asc").Find(&list).Error; err != nil {
		fail(c, guard.StaffHomePath, apperr.Persistence(err))
		return
	}
	render(c, http.StatusOK, "client_companies_list", gin.H{"client_companies": list})
}

// ShowClientCompany — карточка организации клиента со всем, что к ней привязано.
func (h *Handler) ShowClientCompany(c *gin.Context) {
	profile := guard.Row[models.ClientCompanyProfile](c)

	var (
		creds     []models.ClientCredential
		equipment []models.EquipmentInventoryItem
		onsite    []models.OnsiteSupportRecord
	)
	q := func() *gorm.DB { return h.tenant(c).Where("client_company_id = ?", profile.ID) }
	if err := q().Order("username").Find(&creds).Error; err != nil {
		fail(c, clientCompaniesPath, apperr.Persistence(err))
		return
	}
	if err := q().Order("device_name").Find(&equipment).Error; err != nil {
		fail(c, clientCompaniesPath, apperr.Persistence(err))
		return
	}
	if err := q().Order("work_date desc").Find(&onsite).Error; err != nil {
		fail(c, clientCompaniesPath, apperr.Persistence(err))
		return
	}

	render(c, http.StatusOK, "client_company_detail", gin.H{
		"client_company": profile,
		"credentials":    creds,
		"equipment":      equipment,
		"onsite":         onsiteViews(onsite),
	})
}

func (h *Handler) CreateClientCompany(c *gin.Context) {
	name := formText(c, "name")
	contactEmail := formText(c, "contact_email")

	if name == "" {
		fail(c, clientCompaniesPath, apperr.Invalid("Укажите название организации"))
		return
	}
	if contactEmail != "" && !validEmail(contactEmail) {
		fail(c, clientCompaniesPath, apperr.Invalid("Некорректный email"))
		return
	}

	// --- уникальность названия внутри компании ---
	if err := h.checkClientCompanyName(c, name, 0); err != nil {
		fail(c, clientCompaniesPath, err)
		return
	}

	profile := models.ClientCompanyProfile{
		CompanyID:    guard.From(c).CompanyID,
		Name:         name,
		ContactEmail: contactEmail,
		ContactPhone: formText(c, "contact_phone"),
		Address:      formText(c, "address"),
		Notes:        formText(c, "notes"),
	}
	if err := h.DB.WithContext(c.Request.Context()).Create(&profile).Error; err != nil {
		fail(c, clientCompaniesPath, apperr.Persistence(fmt.Errorf("create client company: %w", err)))
		return
	}

	h.audit(c, "client_company", profile.ID, "create", "Создана организация клиента: "+profile.Name)
	succeed(c, clientCompaniesPath, "Организация добавлена")
}

func (h *Handler) UpdateClientCompany(c *gin.Context) {
	profile := guard.Row[models.ClientCompanyProfile](c)

	if name, ok := formField(c, "name"); ok {
		if name == "" {
			fail(c, clientCompaniesPath, apperr.Invalid("Название организации не может быть пустым"))
			return
		}
		if !strings.EqualFold(name, profile.Name) {
			if err := h.checkClientCompanyName(c, name, profile.ID); err != nil {
				fail(c, clientCompaniesPath, err)
				return
			}
		}
		profile.Name = name
	}
	if email, ok := formField(c, "contact_email"); ok {
		if email != "" && !validEmail(email) {
			fail(c, clientCompaniesPath, apperr.Invalid("Некорректный email"))
			return
		}
		profile.ContactEmail = email
	}
	if v, ok := formField(c, "contact_phone"); ok {
		profile.ContactPhone = v
	}
	if v, ok := formField(c, "address"); ok {
		profile.Address = v
	}
	if v, ok := formField(c, "notes"); ok {
		profile.Notes = v
	}

	if err := h.DB.WithContext(c.Request.Context()).Save(profile).Error; err != nil {
		fail(c, clientCompaniesPath, apperr.Persistence(err))
		return
	}

	h.audit(c, "client_company", profile.ID, "update", "Изменена организация клиента: "+profile.Name)
	succeed(c, clientCompaniesPath, "Организация сохранена")
}

// DeleteClientCompany отвязывает от организации логины, оборудование и выезды,
// а затем удаляет её.
func (h *Handler) DeleteClientCompany(c *gin.Context) {
	profile := guard.Row[models.ClientCompanyProfile](c)
	companyID := guard.From(c).CompanyID

	err := h.DB.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		for _, m := range []any{&models.ClientCredential{}, &models.EquipmentInventoryItem{}, &models.OnsiteSupportRecord{}} {
			err := database.Tenant(tx, companyID).Model(m).
				Where("client_company_id = ?", profile.ID).
				Update("client_company_id", nil).Error
			if err != nil {
				return fmt.Errorf("detach %T: %w", m, err)
			}
		}
		return database.Tenant(tx, companyID).Delete(&models.ClientCompanyProfile{}, profile.ID).Error
	})
	if err != nil {
		fail(c, clientCompaniesPath, apperr.Persistence(err))
		return
	}

	h.audit(c, "client_company", profile.ID, "delete", "Удалена организация клиента: "+profile.Name)
	succeed(c, clientCompaniesPath, "Организация удалена")
}

func (h *Handler) checkClientCompanyName(c *gin.Context, name string, exceptID uint) error {
	var count int64
	err := h.tenant(c).Model(&models.ClientCompanyProfile{}).
		Where("LOWER(name) = LOWER(?) AND id <> ?", name, exceptID).
		Count(&count).Error
	if err != nil {
		return apperr.Persistence(err)
	}
	if count > 0 {
		return apperr.Invalid("Организация с таким названием уже существует")
	}
	return nil
}
