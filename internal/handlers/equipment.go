package handlers

import (
	"fmt"
	"net/http"

	"helpdesk/internal/apperr"
	"helpdesk/internal/guard"
	"helpdesk/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

const equipmentPath = "/equipment"

type equipmentView struct {
	models.EquipmentInventoryItem
	HasPassword bool `json:"has_password"`
}

// ListEquipment — пароль в ответ не попадает, только признак его наличия.
func (h *Handler) ListEquipment(c *gin.Context) {
	q := h.tenant(c).Preload("ClientCompany")
	if s := c.Query("status"); s != "" {
		q = q.Where("status = ?", s)
	}

	var items []models.EquipmentInventoryItem
	if err := q.Order("device_name asc").Find(&items).Error; err != nil {
		fail(c, guard.StaffHomePath, apperr.Persistence(err))
		return
	}

	views := make([]equipmentView, 0, len(items))
	for _, it := range items {
		views = append(views, equipmentView{EquipmentInventoryItem: it, HasPassword: it.LoginPassword != ""})
	}
	render(c, http.StatusOK, "equipment_list", gin.H{"equipment": views})
}

func (h *Handler) CreateEquipment(c *gin.Context) {
	caller := guard.From(c)

	item := models.EquipmentInventoryItem{
		CompanyID:     caller.CompanyID,
		DeviceName:    formText(c, "device_name"),
		DeviceType:    formText(c, "device_type"),
		Address:       formText(c, "address"),
		LoginUsername: formText(c, "login_username"),
		Status:        models.EquipmentStatus(formText(c, "status")),
		Location:      formText(c, "location"),
		Description:   formText(c, "description"),
	}
	if item.Status == "" {
		item.Status = models.EquipmentActive
	}
	if err := validateEquipment(&item); err != nil {
		fail(c, equipmentPath, err)
		return
	}
	if err := h.bindEquipmentCompany(c, &item); err != nil {
		fail(c, equipmentPath, err)
		return
	}
	if err := h.setEquipmentPassword(c, &item); err != nil {
		fail(c, equipmentPath, err)
		return
	}

	if err := h.DB.WithContext(c.Request.Context()).Create(&item).Error; err != nil {
		fail(c, equipmentPath, apperr.Persistence(fmt.Errorf("create equipment: %w", err)))
		return
	}

	h.audit(c, "equipment", item.ID, "create", "Добавлено оборудование "+item.DeviceName)
	succeed(c, equipmentPath, "Оборудование добавлено")
}

// UpdateEquipment — пустой пароль в форме оставляет сохранённый.
func (h *Handler) UpdateEquipment(c *gin.Context) {
	item := guard.Row[models.EquipmentInventoryItem](c)

	fields := map[string]*string{
		"device_name":    &item.DeviceName,
		"device_type":    &item.DeviceType,
		"address":        &item.Address,
		"login_username": &item.LoginUsername,
		"location":       &item.Location,
		"description":    &item.Description,
	}
	for name, dst := range fields {
		if v, ok := formField(c, name); ok {
			*dst = v
		}
	}
	if v, ok := formField(c, "status"); ok && v != "" {
		item.Status = models.EquipmentStatus(v)
	}
	if err := validateEquipment(item); err != nil {
		fail(c, equipmentPath, err)
		return
	}
	if err := h.bindEquipmentCompany(c, item); err != nil {
		fail(c, equipmentPath, err)
		return
	}
	if err := h.setEquipmentPassword(c, item); err != nil {
		fail(c, equipmentPath, err)
		return
	}

	item.ClientCompany = nil
	if err := h.DB.WithContext(c.Request.Context()).Save(item).Error; err != nil {
		fail(c, equipmentPath, apperr.Persistence(err))
		return
	}

	h.audit(c, "equipment", item.ID, "update", "Изменено оборудование "+item.DeviceName)
	succeed(c, equipmentPath, "Оборудование сохранено")
}

func (h *Handler) DeleteEquipment(c *gin.Context) {
	item := guard.Row[models.EquipmentInventoryItem](c)

	if err := h.tenant(c).Delete(&models.EquipmentInventoryItem{}, item.ID).Error; err != nil {
		fail(c, equipmentPath, apperr.Persistence(err))
		return
	}

	h.audit(c, "equipment", item.ID, "delete", "Удалено оборудование "+item.DeviceName)
	succeed(c, equipmentPath, "Оборудование удалено")
}

func validateEquipment(item *models.EquipmentInventoryItem) error {
	if item.DeviceName == "" {
		return apperr.Invalid("Укажите название устройства")
	}
	if !item.Status.Valid() {
		return apperr.Invalid("Неверный статус оборудования")
	}
	return nil
}

func (h *Handler) bindEquipmentCompany(c *gin.Context, item *models.EquipmentInventoryItem) error {
	ref, err := parseRef(c, "client_company_id")
	if err != nil {
		return err
	}
	if ref.setsID() {
		err := guard.CheckReference[models.ClientCompanyProfile](c.Request.Context(), h.DB, guard.From(c), ref.ID)
		if err != nil {
			return err
		}
	}
	ref.apply(&item.ClientCompanyID)
	return nil
}

// setEquipmentPassword шифрует новый пароль; в базу открытый текст не попадает.
// Без нового пароля старое значение в устаревшем формате перешифровывается в v1.
func (h *Handler) setEquipmentPassword(c *gin.Context, item *models.EquipmentInventoryItem) error {
	password := c.PostForm("login_password")
	if password == "" {
		if !h.Cipher.NeedsUpgrade(item.LoginPassword) {
			return nil
		}
		plain, err := h.Cipher.Decrypt(item.LoginPassword)
		if err != nil {
			log.Warn().Err(err).Uint("equipment_id", item.ID).Msg("legacy equipment password left as is")
			return nil
		}
		password = plain
	}
	enc, err := h.Cipher.Encrypt(password)
	if err != nil {
		return apperr.Persistence(fmt.Errorf("encrypt equipment password: %w", err))
	}
	item.LoginPassword = enc
	return nil
}
