package database

import (
	"helpdesk/internal/models"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// CreateAuditLog пишет запись журнала. Отдельная запись после основной:
// ошибка только логируется и основную операцию не откатывает.
func CreateAuditLog(db *gorm.DB, entry models.AuditLog) {
	if db == nil {
		return
	}
	if err := db.Create(&entry).Error; err != nil {
		log.Error().Err(err).
			Str("entity", entry.Entity).
			Uint("entity_id", entry.EntityID).
			Str("action", entry.Action).
			Msg("audit log write failed")
	}
}
