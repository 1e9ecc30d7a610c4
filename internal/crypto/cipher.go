package crypto

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/md5"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"golang.org/x/crypto/hkdf"
)

const (
	ivSize  = 12
	tagSize = 16

	schemeV1 = "v1:"

	saltedPrefix = "Salted__"
)

var (
	ErrMalformed     = errors.New("ciphertext is malformed")
	ErrUnknownScheme = errors.New("ciphertext scheme is not recognised")
	ErrDecrypt       = errors.New("ciphertext cannot be decrypted with the configured key")
)

// Cipher шифрует пароли оборудования.
//
// Новые значения пишутся только в формате v1: "v1:" + base64(iv | tag | ct), AES-256-GCM.
// Для старых данных читаются ещё два формата: тот же iv|tag|ct без префикса на отдельном
// ключе и OpenSSL-конверт "Salted__" (AES-256-CBC, EVP_BytesToKey/MD5) на парольной фразе.
type Cipher struct {
	key        []byte
	legacyKey  []byte
	passphrase []byte
}

// NewCipher выводит ключ v1 из секрета через HKDF-SHA256.
// legacyKey необязателен, но если задан — ровно 32 байта.
func NewCipher(secret, legacyKey string) (*Cipher, error) {
	if secret == "" {
		return nil, errors.New("encryption secret is empty")
	}
	if legacyKey != "" && len(legacyKey) != 32 {
		return nil, errors.New("legacy key must be 32 bytes")
	}

	key := make([]byte, 32)
	kdf := hkdf.New(sha256.New, []byte(secret), nil, []byte("helpdesk equipment credentials v1"))
	if _, err := io.ReadFull(kdf, key); err != nil {
		return nil, fmt.Errorf("derive key: %w", err)
	}

	c := &Cipher{key: key, passphrase: []byte(secret)}
	if legacyKey != "" {
		c.legacyKey = []byte(legacyKey)
	}
	return c, nil
}

// Encrypt возвращает "" для пустого пароля.
func (c *Cipher) Encrypt(plaintext string) (string, error) {
	if plaintext == "" {
		return "", nil
	}
	raw, err := sealGCM(c.key, []byte(plaintext))
	if err != nil {
		return "", err
	}
	return schemeV1 + base64.StdEncoding.EncodeToString(raw), nil
}

func (c *Cipher) Decrypt(value string) (string, error) {
	if value == "" {
		return "", nil
	}

	if strings.HasPrefix(value, schemeV1) {
		raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(value, schemeV1))
		if err != nil {
			return "", ErrMalformed
		}
		return openGCM(c.key, raw)
	}

	raw, err := base64.StdEncoding.DecodeString(value)
	if err != nil {
		return "", ErrUnknownScheme
	}
	if bytes.HasPrefix(raw, []byte(saltedPrefix)) {
		return openSalted(c.passphrase, raw)
	}
	if c.legacyKey != nil {
		return openGCM(c.legacyKey, raw)
	}
	return "", ErrUnknownScheme
}

// NeedsUpgrade — true для значений в старых форматах.
func (c *Cipher) NeedsUpgrade(value string) bool {
	return value != "" && !strings.HasPrefix(value, schemeV1)
}

func sealGCM(key, plaintext []byte) ([]byte, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	iv := make([]byte, ivSize)
	if _, err := io.ReadFull(rand.Reader, iv); err != nil {
		return nil, err
	}

	// Seal отдаёт ct|tag, храним iv|tag|ct
	sealed := gcm.Seal(nil, iv, plaintext, nil)
	ct, tag := sealed[:len(sealed)-tagSize], sealed[len(sealed)-tagSize:]

	out := make([]byte, 0, ivSize+tagSize+len(ct))
	out = append(out, iv...)
	out = append(out, tag...)
	out = append(out, ct...)
	return out, nil
}

func openGCM(key, raw []byte) (string, error) {
	if len(raw) < ivSize+tagSize {
		return "", ErrMalformed
	}
	gcm, err := newGCM(key)
	if err != nil {
		return "", err
	}

	iv, tag, ct := raw[:ivSize], raw[ivSize:ivSize+tagSize], raw[ivSize+tagSize:]
	sealed := make([]byte, 0, len(ct)+tagSize)
	sealed = append(sealed, ct...)
	sealed = append(sealed, tag...)

	plain, err := gcm.Open(nil, iv, sealed, nil)
	if err != nil {
		return "", ErrDecrypt
	}
	return string(plain), nil
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCMWithNonceSize(block, ivSize)
}

func openSalted(passphrase, raw []byte) (string, error) {
	if len(raw) < 16+aes.BlockSize || (len(raw)-16)%aes.BlockSize != 0 {
		return "", ErrMalformed
	}
	salt, data := raw[8:16], raw[16:]

	key, iv := evpBytesToKey(passphrase, salt, 32, aes.BlockSize)
	block, err := aes.NewCipher(key)
	if err != nil {
		return "", err
	}

	plain := make([]byte, len(data))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(plain, data)

	plain, err = pkcs7Unpad(plain)
	if err != nil || !utf8.Valid(plain) {
		return "", ErrDecrypt
	}
	return string(plain), nil
}

// evpBytesToKey — вывод ключа OpenSSL (MD5, одна итерация).
func evpBytesToKey(pass, salt []byte, keyLen, ivLen int) ([]byte, []byte) {
	var (
		out  []byte
		prev []byte
	)
	for len(out) < keyLen+ivLen {
		h := md5.New()
		h.Write(prev)
		h.Write(pass)
		h.Write(salt)
		prev = h.Sum(nil)
		out = append(out, prev...)
	}
	return out[:keyLen], out[keyLen : keyLen+ivLen]
}

func pkcs7Unpad(b []byte) ([]byte, error) {
	if len(b) == 0 {
		return nil, ErrDecrypt
	}
	n := int(b[len(b)-1])
	if n == 0 || n > aes.BlockSize || n > len(b) {
		return nil, ErrDecrypt
	}
	for _, p := range b[len(b)-n:] {
		if int(p) != n {
			return nil, ErrDecrypt
		}
	}
	return b[:len(b)-n], nil
}
