package models

import (
	"time"

	"gorm.io/gorm"
)

type ClientRole string

const (
	ClientRoleClient  ClientRole = "client"
	ClientRoleManager ClientRole = "manager"
)

func (r ClientRole) Valid() bool {
	return r == ClientRoleClient || r == ClientRoleManager
}

// ClientCredential — логин внешнего клиента. Username уникален в пределах компании.
type ClientCredential struct {
	gorm.Model
	CompanyID       uint       `gorm:"index;not null"`
	Username        string     `gorm:"size:100;not null"`
	PasswordHash    string     `gorm:"not null" json:"-"`
	Role            ClientRole `gorm:"type:varchar(20);not null"`
	IsActive        bool       `gorm:"not null"`
	ClientCompanyID *uint      `gorm:"index"`

	ClientCompany *ClientCompanyProfile `json:",omitempty"`
}

// ClientSession живёт 24 часа и удаляется физически при выходе.
type ClientSession struct {
	ID        uint      `gorm:"primaryKey"`
	ClientID  uint      `gorm:"index;not null"`
	Token     string    `gorm:"uniqueIndex;size:255;not null" json:"-"`
	ExpiresAt time.Time `gorm:"not null"`
	CreatedAt time.Time
}

// ClientCompanyProfile — организация клиента, группирует оборудование и выезды.
type ClientCompanyProfile struct {
	gorm.Model
	CompanyID    uint   `gorm:"index;not null"`
	Name         string `gorm:"size:255;not null"`
	ContactEmail string `gorm:"size:255"`
	ContactPhone string `gorm:"size:50"`
	Address      string `gorm:"size:255"`
	Notes        string `gorm:"type:text"`
}
