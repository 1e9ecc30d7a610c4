package guard

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"helpdesk/internal/apperr"
	"helpdesk/internal/database"
	"helpdesk/internal/models"

	"gorm.io/gorm"
)

var errNotFound = apperr.NotFound("Запись не найдена")

func ParseID(s string) (uint, error) {
	id, err := strconv.ParseUint(s, 10, 64)
	if err != nil || id == 0 {
		return 0, errNotFound
	}
	return uint(id), nil
}

// LoadScoped читает строку по id только внутри арендатора вызывающего.
// Чужая строка и несуществующая возвращают одну и ту же ошибку.
func LoadScoped[T any](ctx context.Context, db *gorm.DB, c *Caller, id uint, dest *T) error {
	if err := CheckTenant(c); err != nil {
		return err
	}
	err := db.WithContext(ctx).
		Scopes(database.ForCompany(c.CompanyID)).
		Where("id = ?", id).
		First(dest).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return errNotFound
	}
	if err != nil {
		return apperr.Persistence(fmt.Errorf("load %T %d: %w", dest, id, err))
	}
	return nil
}

// LoadClientTicket — тикет, которым владеет клиент (его client_credential_id).
func LoadClientTicket(ctx context.Context, db *gorm.DB, c *Caller, id uint, dest *models.SupportTicket) error {
	if c == nil || c.Kind != KindClient {
		return apperr.ErrAuthenticationMissing
	}
	err := db.WithContext(ctx).
		Scopes(database.ForCompany(c.CompanyID)).
		Where("id = ? AND client_credential_id = ?", id, c.ID).
		First(dest).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return errNotFound
	}
	if err != nil {
		return apperr.Persistence(fmt.Errorf("load client ticket %d: %w", id, err))
	}
	return nil
}

// CheckReference проверяет, что внешний ключ из формы указывает на строку того же арендатора.
func CheckReference[T any](ctx context.Context, db *gorm.DB, c *Caller, id uint) error {
	var row T
	return LoadScoped(ctx, db, c, id, &row)
}
