package crypto

import (
	"crypto/subtle"
	"encoding/base64"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// BcryptCost можно снизить в тестах.
var BcryptCost = bcrypt.DefaultCost

func HashPassword(password string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(password), BcryptCost)
	return string(b), err
}

// VerifyPassword проверяет пароль. Кроме bcrypt понимает старые записи клиентов,
// где вместо хеша лежал base64 пароля; для них legacy=true и хеш надо перезаписать.
func VerifyPassword(password, stored string) (ok, legacy bool) {
	if isBcrypt(stored) {
		return bcrypt.CompareHashAndPassword([]byte(stored), []byte(password)) == nil, false
	}
	enc := base64.StdEncoding.EncodeToString([]byte(password))
	return subtle.ConstantTimeCompare([]byte(enc), []byte(stored)) == 1, true
}

// CheckPassword — только bcrypt. Для сотрудников старого формата не было.
func CheckPassword(password, stored string) bool {
	return isBcrypt(stored) && bcrypt.CompareHashAndPassword([]byte(stored), []byte(password)) == nil
}

func isBcrypt(s string) bool {
	return strings.HasPrefix(s, "$2a$") || strings.HasPrefix(s, "$2b$") || strings.HasPrefix(s, "$2y$")
}
