package models

import "gorm.io/gorm"

// Company — арендатор. Всё остальное привязано к нему через company_id.
type Company struct {
	gorm.Model
	Name        string `gorm:"size:255;not null"`
	Description string `gorm:"type:text"`
	OwnerID     uint   `gorm:"index"`
}
