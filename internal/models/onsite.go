package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04"
)

// OnsiteSupportRecord — журнал выезда. Время — строки HH:MM, часы считаются при чтении.
type OnsiteSupportRecord struct {
	gorm.Model
	CompanyID          uint   `gorm:"index;not null"`
	ClientCredentialID *uint  `gorm:"index"`
	ClientCompanyID    *uint  `gorm:"index"`
	TechnicianID       *uint  `gorm:"index"`
	WorkDate           string `gorm:"size:10;not null;index"`
	CheckInTime        string `gorm:"size:5"`
	CheckOutTime       string `gorm:"size:5"`
	JobDetails         string `gorm:"type:text;not null"`

	ClientCompany    *ClientCompanyProfile `json:",omitempty"`
	ClientCredential *ClientCredential     `json:",omitempty"`
}

// TotalHours возвращает отработанные часы с двумя знаками ("8.00").
// Если нет одного из времён или формат неверный — ok=false.
// Уход раньше прихода считается переходом через полночь.
func (r OnsiteSupportRecord) TotalHours() (string, bool) {
	return TotalHours(r.CheckInTime, r.CheckOutTime)
}

func TotalHours(checkIn, checkOut string) (string, bool) {
	if checkIn == "" || checkOut == "" {
		return "", false
	}
	in, err := time.Parse(TimeLayout, checkIn)
	if err != nil {
		return "", false
	}
	out, err := time.Parse(TimeLayout, checkOut)
	if err != nil {
		return "", false
	}

	d := out.Sub(in)
	if d < 0 {
		d += 24 * time.Hour
	}
	minutes := decimal.NewFromInt(int64(d / time.Minute))
	return minutes.Div(decimal.NewFromInt(60)).StringFixed(2), true
}
