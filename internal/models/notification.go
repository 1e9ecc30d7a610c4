package models

import (
	"time"

	"gorm.io/gorm"
)

type Notification struct {
	gorm.Model
	CompanyID uint   `gorm:"index;not null"`
	TicketID  uint   `gorm:"index"`
	Kind      string `gorm:"size:50;not null"`
	Message   string `gorm:"type:text"`
	ReadAt    *time.Time
}
