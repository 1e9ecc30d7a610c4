package database

import (
	"fmt"
	"time"

	"helpdesk/internal/crypto"
	"helpdesk/internal/models"

	"github.com/rs/zerolog/log"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Open подключается к Postgres с повторными попытками.
func Open(dsn string) (*gorm.DB, error) {
	var (
		db  *gorm.DB
		err error
	)

	const maxAttempts = 10
	for i := 1; i <= maxAttempts; i++ {
		log.Info().Int("attempt", i).Int("max", maxAttempts).Msg("connecting to database")

		db, err = gorm.Open(postgres.Open(dsn), &gorm.Config{
			Logger: logger.Default.LogMode(logger.Warn),
		})
		if err == nil {
			log.Info().Msg("connected to database")
			return db, nil
		}

		log.Warn().Err(err).Msg("database connection failed")
		time.Sleep(2 * time.Second)
	}

	return nil, fmt.Errorf("connect after %d attempts: %w", maxAttempts, err)
}

func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(models.All()...); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

// SeedAdmin создаёт администратора без компании, если задан ADMIN_EMAIL
// и такого пользователя ещё нет. Компанию он создаёт сам после входа.
func SeedAdmin(db *gorm.DB, email, password string) error {
	if email == "" {
		return nil
	}
	if len(password) < 6 {
		return fmt.Errorf("bootstrap admin password is too short")
	}

	var count int64
	if err := db.Model(&models.User{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return fmt.Errorf("check bootstrap admin: %w", err)
	}
	if count > 0 {
		// уже есть
		return nil
	}

	hash, err := crypto.HashPassword(password)
	if err != nil {
		return fmt.Errorf("hash bootstrap admin password: %w", err)
	}

	admin := models.User{
		Email:          email,
		PasswordHash:   hash,
		FullName:       "Administrator",
		UserType:       models.UserAdmin,
		EmailConfirmed: true,
	}
	if err := db.Create(&admin).Error; err != nil {
		return fmt.Errorf("create bootstrap admin: %w", err)
	}

	log.Info().Str("email", email).Msg("created bootstrap admin")
	return nil
}
