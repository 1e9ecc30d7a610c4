package handlers

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"helpdesk/internal/apperr"
	"helpdesk/internal/export"
	"helpdesk/internal/guard"
	"helpdesk/internal/models"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// ExportOnsite — выгрузка для сотрудников, с колонкой организации клиента.
func (h *Handler) ExportOnsite(c *gin.Context) {
	h.exportOnsite(c, h.tenant(c).Preload("ClientCompany"), true, onsitePath)
}

// ExportMyOnsite — выгрузка клиента, только его выезды.
func (h *Handler) ExportMyOnsite(c *gin.Context) {
	h.exportOnsite(c, h.myOnsite(c), false, "/portal/onsite")
}

func (h *Handler) exportOnsite(c *gin.Context, q *gorm.DB, withClientCompany bool, back string) {
	filter, err := export.ParseFilter(c.Query("filter_type"), c.Query("start_date"), c.Query("end_date"), time.Now())
	if err != nil {
		fail(c, back, err)
		return
	}

	var records []models.OnsiteSupportRecord
	err = filter.Apply(q.Preload("ClientCredential")).
		Order("work_date asc, id asc").
		Find(&records).Error
	if err != nil {
		fail(c, back, apperr.Persistence(err))
		return
	}

	buf, err := export.OnsiteWorkbook(records, withClientCompany)
	if err != nil {
		fail(c, back, apperr.Persistence(err))
		return
	}
	sendWorkbook(c, fmt.Sprintf("onsite_%s.xlsx", filter.Suffix()), buf)
}

// ExportEquipment — пароли в открытом виде только администратору и только по include_credentials=true.
func (h *Handler) ExportEquipment(c *gin.Context) {
	withCredentials := isTrue(c.Query("include_credentials")) && guard.From(c).IsAdmin()

	var items []models.EquipmentInventoryItem
	err := h.tenant(c).
		Preload("ClientCompany").
		Order("device_name asc").
		Find(&items).Error
	if err != nil {
		fail(c, equipmentPath, apperr.Persistence(err))
		return
	}

	buf, err := export.EquipmentWorkbook(items, h.Cipher, withCredentials)
	if err != nil {
		fail(c, equipmentPath, apperr.Persistence(err))
		return
	}

	if withCredentials {
		h.audit(c, "equipment", 0, "export", "Выгрузка оборудования с паролями")
	}
	sendWorkbook(c, "equipment.xlsx", buf)
}

func sendWorkbook(c *gin.Context, name string, buf *bytes.Buffer) {
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, name))
	c.Data(http.StatusOK, export.ContentType, buf.Bytes())
}
