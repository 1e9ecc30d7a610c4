package models

// All — порядок миграции.
func All() []any {
	return []any{
		&Company{},
		&User{},
		&ClientCompanyProfile{},
		&ClientCredential{},
		&ClientSession{},
		&SupportTicket{},
		&TicketComment{},
		&TicketAttachment{},
		&OnsiteSupportRecord{},
		&EquipmentInventoryItem{},
		&AuditLog{},
		&Notification{},
	}
}
