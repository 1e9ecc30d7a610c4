package session

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"helpdesk/internal/apperr"
	"helpdesk/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// TTL — срок жизни клиентской сессии, продления нет.
const TTL = 24 * time.Hour

var errInvalid = apperr.Unauthenticated("Сессия истекла или недействительна, войдите снова")

// Store выдаёт и проверяет сессии клиентского портала.
// Истёкшие строки не удаляются фоном: их просто перестаёт принимать Validate.
type Store struct {
	db  *gorm.DB
	now func() time.Time
}

func NewStore(db *gorm.DB, now func() time.Time) *Store {
	if now == nil {
		now = time.Now
	}
	return &Store{db: db, now: now}
}

func (s *Store) Now() time.Time { return s.now() }

// NewToken — base64("<client_id>:<unix_nano>:<uuid>"). Это не подпись, а случайный
// идентификатор: подпись добавляет cookie-слой (см. Signer).
func NewToken(clientID uint, now time.Time) string {
	raw := fmt.Sprintf("%d:%d:%s", clientID, now.UnixNano(), uuid.NewString())
	return base64.URLEncoding.EncodeToString([]byte(raw))
}

func (s *Store) Issue(ctx context.Context, clientID uint) (*models.ClientSession, error) {
	now := s.now()
	sess := &models.ClientSession{
		ClientID:  clientID,
		Token:     NewToken(clientID, now),
		ExpiresAt: now.Add(TTL),
		CreatedAt: now,
	}
	if err := s.db.WithContext(ctx).Create(sess).Error; err != nil {
		return nil, apperr.Persistence(fmt.Errorf("create client session: %w", err))
	}
	return sess, nil
}

// Validate пропускает запрос, только если сессия есть, токен совпадает точно,
// now < expires_at и учётная запись клиента активна.
func (s *Store) Validate(ctx context.Context, clientID uint, token string) (*models.ClientCredential, error) {
	if clientID == 0 || token == "" {
		return nil, errInvalid
	}

	var sess models.ClientSession
	err := s.db.WithContext(ctx).
		Where("client_id = ? AND token = ?", clientID, token).
		First(&sess).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errInvalid
	}
	if err != nil {
		return nil, apperr.Persistence(fmt.Errorf("load client session: %w", err))
	}
	if !s.now().Before(sess.ExpiresAt) {
		return nil, errInvalid
	}

	var cred models.ClientCredential
	err = s.db.WithContext(ctx).
		Where("id = ? AND is_active = ?", clientID, true).
		First(&cred).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errInvalid
	}
	if err != nil {
		return nil, apperr.Persistence(fmt.Errorf("load client credential: %w", err))
	}
	return &cred, nil
}

func (s *Store) Revoke(ctx context.Context, clientID uint, token string) error {
	err := s.db.WithContext(ctx).
		Where("client_id = ? AND token = ?", clientID, token).
		Delete(&models.ClientSession{}).Error
	if err != nil {
		return apperr.Persistence(fmt.Errorf("delete client session: %w", err))
	}
	return nil
}

// RevokeAll — при удалении или деактивации клиента.
func (s *Store) RevokeAll(ctx context.Context, clientID uint) error {
	err := s.db.WithContext(ctx).
		Where("client_id = ?", clientID).
		Delete(&models.ClientSession{}).Error
	if err != nil {
		return apperr.Persistence(fmt.Errorf("delete client sessions: %w", err))
	}
	return nil
}
