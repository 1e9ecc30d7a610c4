package guard

import (
	"context"
	"errors"
	"fmt"

	"helpdesk/internal/apperr"
	"helpdesk/internal/models"

	"gorm.io/gorm"
)

type CallerKind string

const (
	KindStaff  CallerKind = "staff"
	KindClient CallerKind = "client"
)

// Caller — кто выполняет запрос и к какому арендатору он относится.
type Caller struct {
	Kind      CallerKind
	ID        uint
	CompanyID uint
	Role      string
	Name      string

	// только для клиента
	ClientCompanyID *uint
	SessionToken    string
	// сессия пришла из query/формы, а не из cookie
	LegacyLink bool
}

func (c *Caller) IsAdmin() bool {
	return c != nil && c.Kind == KindStaff && c.Role == string(models.UserAdmin)
}

func (c *Caller) AuthorType() models.AuthorType {
	if c.Kind == KindClient {
		return models.AuthorClient
	}
	return models.AuthorStaff
}

func (c *Caller) HasTenant() bool {
	return c != nil && c.CompanyID != 0
}

// ResolveStaff: users.id -> users.company_id.
func ResolveStaff(ctx context.Context, db *gorm.DB, userID uint) (*Caller, error) {
	if userID == 0 {
		return nil, apperr.ErrAuthenticationMissing
	}

	var u models.User
	err := db.WithContext(ctx).First(&u, userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.ErrAuthenticationMissing
	}
	if err != nil {
		return nil, apperr.Persistence(fmt.Errorf("load user %d: %w", userID, err))
	}

	c := &Caller{
		Kind: KindStaff,
		ID:   u.ID,
		Role: string(u.UserType),
		Name: u.FullName,
	}
	if u.CompanyID != nil {
		c.CompanyID = *u.CompanyID
	}
	return c, nil
}

// ClientCaller строит Caller из уже проверенной учётной записи клиента.
func ClientCaller(cred *models.ClientCredential, token string) *Caller {
	return &Caller{
		Kind:            KindClient,
		ID:              cred.ID,
		CompanyID:       cred.CompanyID,
		Role:            string(cred.Role),
		Name:            cred.Username,
		ClientCompanyID: cred.ClientCompanyID,
		SessionToken:    token,
	}
}

func CheckTenant(c *Caller) error {
	if c == nil {
		return apperr.ErrAuthenticationMissing
	}
	if !c.HasTenant() {
		return apperr.Denied("Сначала создайте компанию или попросите администратора добавить вас")
	}
	return nil
}

func CheckAdmin(c *Caller) error {
	if err := CheckTenant(c); err != nil {
		return err
	}
	if !c.IsAdmin() {
		return apperr.Denied("Действие доступно только администратору")
	}
	return nil
}
