package models

import "gorm.io/gorm"

type EquipmentStatus string

const (
	EquipmentActive      EquipmentStatus = "active"
	EquipmentInactive    EquipmentStatus = "inactive"
	EquipmentMaintenance EquipmentStatus = "maintenance"
)

func (s EquipmentStatus) Valid() bool {
	switch s {
	case EquipmentActive, EquipmentInactive, EquipmentMaintenance:
		return true
	}
	return false
}

// EquipmentInventoryItem — LoginPassword хранится только в зашифрованном виде.
type EquipmentInventoryItem struct {
	gorm.Model
	CompanyID       uint            `gorm:"index;not null"`
	ClientCompanyID *uint           `gorm:"index"`
	DeviceName      string          `gorm:"size:255;not null"`
	DeviceType      string          `gorm:"size:100"`
	Address         string          `gorm:"size:255"` // IP или URL
	LoginUsername   string          `gorm:"size:255"`
	LoginPassword   string          `gorm:"type:text" json:"-"`
	Status          EquipmentStatus `gorm:"type:varchar(20);not null"`
	Location        string          `gorm:"size:255"`
	Description     string          `gorm:"type:text"`

	ClientCompany *ClientCompanyProfile `json:",omitempty"`
}
