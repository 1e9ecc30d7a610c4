package session

import (
	"errors"
	"fmt"
	"time"

	"helpdesk/internal/models"

	"github.com/golang-jwt/jwt/v5"
)

const CookieName = "client_token"

type Claims struct {
	ClientID uint   `json:"cid"`
	Token    string `json:"sid"`
	jwt.RegisteredClaims
}

// Signer подписывает пару (client_id, token) для HTTP-only cookie,
// чтобы токен не ходил в URL.
type Signer struct {
	secret []byte
	now    func() time.Time
}

func NewSigner(secret string, now func() time.Time) *Signer {
	if now == nil {
		now = time.Now
	}
	return &Signer{secret: []byte(secret), now: now}
}

func (s *Signer) Sign(sess *models.ClientSession) (string, error) {
	claims := Claims{
		ClientID: sess.ClientID,
		Token:    sess.Token,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   fmt.Sprintf("%d", sess.ClientID),
			IssuedAt:  jwt.NewNumericDate(sess.CreatedAt),
			ExpiresAt: jwt.NewNumericDate(sess.ExpiresAt),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

func (s *Signer) Parse(raw string) (uint, string, error) {
	if raw == "" {
		return 0, "", errors.New("empty client token")
	}

	claims := &Claims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return 0, "", fmt.Errorf("parse client token: %w", err)
	}
	if claims.ClientID == 0 || claims.Token == "" {
		return 0, "", errors.New("client token has no session")
	}
	return claims.ClientID, claims.Token, nil
}
