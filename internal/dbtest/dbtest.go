// Package dbtest поднимает in-memory SQLite с полной схемой для тестов.
package dbtest

import (
	"fmt"
	"strings"
	"testing"

	"helpdesk/internal/crypto"
	"helpdesk/internal/database"
	"helpdesk/internal/models"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func Open(t *testing.T) *gorm.DB {
	t.Helper()
	crypto.BcryptCost = bcrypt.MinCost

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", name)), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, database.Migrate(db))
	return db
}

// Tenant — компания с администратором.
type Tenant struct {
	Company models.Company
	Admin   models.User
}

func SeedTenant(t *testing.T, db *gorm.DB, name, adminEmail string) Tenant {
	t.Helper()

	hash, err := crypto.HashPassword("secret123")
	require.NoError(t, err)

	admin := models.User{
		Email:          adminEmail,
		PasswordHash:   hash,
		FullName:       name + " admin",
		UserType:       models.UserAdmin,
		EmailConfirmed: true,
	}
	require.NoError(t, db.Create(&admin).Error)

	company := models.Company{Name: name, OwnerID: admin.ID}
	require.NoError(t, db.Create(&company).Error)

	admin.CompanyID = &company.ID
	require.NoError(t, db.Save(&admin).Error)

	return Tenant{Company: company, Admin: admin}
}

func SeedStaff(t *testing.T, db *gorm.DB, companyID uint, email string) models.User {
	t.Helper()

	hash, err := crypto.HashPassword("secret123")
	require.NoError(t, err)
	u := models.User{
		Email:          email,
		PasswordHash:   hash,
		FullName:       email,
		UserType:       models.UserStaff,
		CompanyID:      &companyID,
		EmailConfirmed: true,
	}
	require.NoError(t, db.Create(&u).Error)
	return u
}

func SeedClient(t *testing.T, db *gorm.DB, companyID uint, username, password string) models.ClientCredential {
	t.Helper()

	hash, err := crypto.HashPassword(password)
	require.NoError(t, err)
	cc := models.ClientCredential{
		CompanyID:    companyID,
		Username:     username,
		PasswordHash: hash,
		Role:         models.ClientRoleClient,
		IsActive:     true,
	}
	require.NoError(t, db.Create(&cc).Error)
	return cc
}
