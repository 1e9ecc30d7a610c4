package models

import (
	"time"

	"gorm.io/gorm"
)

type TicketStatus string
type TicketPriority string
type AuthorType string

const (
	TicketOpen       TicketStatus = "open"
	TicketInProgress TicketStatus = "in_progress"
	TicketResolved   TicketStatus = "resolved"
	TicketClosed     TicketStatus = "closed"

	PriorityLow    TicketPriority = "low"
	PriorityMedium TicketPriority = "medium"
	PriorityHigh   TicketPriority = "high"

	AuthorClient AuthorType = "client"
	AuthorStaff  AuthorType = "staff"
)

func (s TicketStatus) Valid() bool {
	switch s {
	case TicketOpen, TicketInProgress, TicketResolved, TicketClosed:
		return true
	}
	return false
}

func (p TicketPriority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

type SupportTicket struct {
	gorm.Model
	CompanyID          uint           `gorm:"index;not null"`
	ClientCredentialID *uint          `gorm:"index"`
	CreatedByUserID    *uint          `gorm:"index"`
	AssignedToUserID   *uint          `gorm:"index"`
	Title              string         `gorm:"size:255;not null"`
	Description        string         `gorm:"type:text"`
	Status             TicketStatus   `gorm:"type:varchar(20);not null;index"`
	Priority           TicketPriority `gorm:"type:varchar(20);not null;index"`
	ResolvedAt         *time.Time

	ClientCredential *ClientCredential `json:",omitempty"`
	Comments         []TicketComment   `gorm:"foreignKey:TicketID" json:",omitempty"`
}

// TicketComment — внутренние (IsInternal) клиенту не показываются.
type TicketComment struct {
	gorm.Model
	TicketID   uint       `gorm:"index;not null"`
	AuthorID   uint       `gorm:"not null"`
	AuthorType AuthorType `gorm:"type:varchar(20);not null"`
	Body       string     `gorm:"type:text;not null"`
	IsInternal bool       `gorm:"not null;default:false"`

	Attachments []TicketAttachment `gorm:"foreignKey:CommentID" json:",omitempty"`
}

// TicketAttachment хранит путь к файлу, не содержимое.
type TicketAttachment struct {
	gorm.Model
	CommentID   uint   `gorm:"index;not null"`
	TicketID    uint   `gorm:"index;not null"`
	FileName    string `gorm:"size:255;not null"`
	StoragePath string `gorm:"size:512;not null" json:"-"`
	ContentType string `gorm:"size:100"`
	Size        int64
}
