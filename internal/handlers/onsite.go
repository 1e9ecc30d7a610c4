package handlers

import (
	"fmt"
	"net/http"

	"helpdesk/internal/apperr"
	"helpdesk/internal/guard"
	"helpdesk/internal/models"

	"github.com/gin-gonic/gin"
)

const onsitePath = "/onsite"

type onsiteView struct {
	models.OnsiteSupportRecord
	TotalHours *string `json:"total_hours"`
}

func onsiteViews(records []models.OnsiteSupportRecord) []onsiteView {
	out := make([]onsiteView, 0, len(records))
	for _, r := range records {
		v := onsiteView{OnsiteSupportRecord: r}
		if hours, ok := r.TotalHours(); ok {
			v.TotalHours = &hours
		}
		out = append(out, v)
	}
	return out
}

func (h *Handler) ListOnsite(c *gin.Context) {
	var records []models.OnsiteSupportRecord
	err := h.tenant(c).
		Preload("ClientCompany").
		Preload("ClientCredential").
		Order("work_date desc, id desc").
		Find(&records).Error
	if err != nil {
		fail(c, guard.StaffHomePath, apperr.Persistence(err))
		return
	}
	render(c, http.StatusOK, "onsite_list", gin.H{"records": onsiteViews(records)})
}

func (h *Handler) CreateOnsite(c *gin.Context) {
	caller := guard.From(c)
	techID := caller.ID

	rec := models.OnsiteSupportRecord{
		CompanyID:    caller.CompanyID,
		TechnicianID: &techID,
		WorkDate:     formText(c, "work_date"),
		CheckInTime:  formText(c, "check_in_time"),
		CheckOutTime: formText(c, "check_out_time"),
		JobDetails:   formText(c, "job_details"),
	}
	if err := h.bindOnsiteRefs(c, &rec); err != nil {
		fail(c, onsitePath, err)
		return
	}
	if err := validateOnsite(&rec); err != nil {
		fail(c, onsitePath, err)
		return
	}

	if err := h.DB.WithContext(c.Request.Context()).Create(&rec).Error; err != nil {
		fail(c, onsitePath, apperr.Persistence(fmt.Errorf("create onsite record: %w", err)))
		return
	}

	h.audit(c, "onsite", rec.ID, "create", "Выезд "+rec.WorkDate)
	succeed(c, onsitePath, "Выезд добавлен")
}

func (h *Handler) UpdateOnsite(c *gin.Context) {
	rec := guard.Row[models.OnsiteSupportRecord](c)

	if v, ok := formField(c, "work_date"); ok {
		rec.WorkDate = v
	}
	if v, ok := formField(c, "check_in_time"); ok {
		rec.CheckInTime = v
	}
	if v, ok := formField(c, "check_out_time"); ok {
		rec.CheckOutTime = v
	}
	if v, ok := formField(c, "job_details"); ok {
		rec.JobDetails = v
	}
	if err := h.bindOnsiteRefs(c, rec); err != nil {
		fail(c, onsitePath, err)
		return
	}
	if err := validateOnsite(rec); err != nil {
		fail(c, onsitePath, err)
		return
	}

	rec.ClientCompany, rec.ClientCredential = nil, nil
	if err := h.DB.WithContext(c.Request.Context()).Save(rec).Error; err != nil {
		fail(c, onsitePath, apperr.Persistence(err))
		return
	}

	h.audit(c, "onsite", rec.ID, "update", "Выезд "+rec.WorkDate)
	succeed(c, onsitePath, "Выезд сохранён")
}

func (h *Handler) DeleteOnsite(c *gin.Context) {
	rec := guard.Row[models.OnsiteSupportRecord](c)

	if err := h.tenant(c).Delete(&models.OnsiteSupportRecord{}, rec.ID).Error; err != nil {
		fail(c, onsitePath, apperr.Persistence(err))
		return
	}

	h.audit(c, "onsite", rec.ID, "delete", "Выезд "+rec.WorkDate)
	succeed(c, onsitePath, "Выезд удалён")
}

// bindOnsiteRefs проверяет, что клиент, организация и техник из формы принадлежат той же компании.
func (h *Handler) bindOnsiteRefs(c *gin.Context, rec *models.OnsiteSupportRecord) error {
	ctx := c.Request.Context()
	caller := guard.From(c)

	cred, err := parseRef(c, "client_credential_id")
	if err != nil {
		return err
	}
	if cred.setsID() {
		if err := guard.CheckReference[models.ClientCredential](ctx, h.DB, caller, cred.ID); err != nil {
			return err
		}
	}
	company, err := parseRef(c, "client_company_id")
	if err != nil {
		return err
	}
	if company.setsID() {
		if err := guard.CheckReference[models.ClientCompanyProfile](ctx, h.DB, caller, company.ID); err != nil {
			return err
		}
	}
	tech, err := parseRef(c, "technician_id")
	if err != nil {
		return err
	}
	if tech.setsID() {
		if err := guard.CheckReference[models.User](ctx, h.DB, caller, tech.ID); err != nil {
			return err
		}
	}

	cred.apply(&rec.ClientCredentialID)
	company.apply(&rec.ClientCompanyID)
	tech.apply(&rec.TechnicianID)
	return nil
}

func validateOnsite(rec *models.OnsiteSupportRecord) error {
	switch {
	case !validDate(rec.WorkDate):
		return apperr.Invalid("Дата выезда должна быть в формате ГГГГ-ММ-ДД")
	case rec.JobDetails == "":
		return apperr.Invalid("Опишите выполненные работы")
	case rec.CheckInTime != "" && !validTime(rec.CheckInTime):
		return apperr.Invalid("Время прихода должно быть в формате ЧЧ:ММ")
	case rec.CheckOutTime != "" && !validTime(rec.CheckOutTime):
		return apperr.Invalid("Время ухода должно быть в формате ЧЧ:ММ")
	}
	return nil
}
