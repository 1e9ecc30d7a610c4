package models

import "gorm.io/gorm"

type UserType string

const (
	UserAdmin UserType = "admin"
	UserStaff UserType = "staff"
)

func (t UserType) Valid() bool {
	return t == UserAdmin || t == UserStaff
}

// User — сотрудник. Без компании может только создать свою.
type User struct {
	gorm.Model
	Email          string   `gorm:"uniqueIndex;size:255;not null"`
	PasswordHash   string   `gorm:"not null" json:"-"`
	FullName       string   `gorm:"size:255"`
	UserType       UserType `gorm:"type:varchar(20);not null"`
	CompanyID      *uint    `gorm:"index"`
	EmailConfirmed bool     `gorm:"not null;default:false"`
}
