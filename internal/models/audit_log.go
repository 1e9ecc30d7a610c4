package models

import "time"

type AuditLog struct {
	ID        uint      `gorm:"primaryKey"`
	CreatedAt time.Time `gorm:"index"`

	CompanyID uint       `gorm:"index"`
	ActorType AuthorType `gorm:"type:varchar(20);not null"` // staff / client
	ActorID   uint

	Entity   string `gorm:"size:50;not null"` // "ticket", "equipment", ...
	EntityID uint
	Action   string `gorm:"size:50;not null"` // "create", "update", "delete"
	Details  string `gorm:"type:text"`
}
