package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	AppEnv     string
	LogLevel   string
	ServerPort string

	DBDSN string

	SessionSecret string
	CookieSecure  bool

	EncryptionSecret    string
	EncryptionLegacyKey string

	// старый формат client_id/session в query-строке
	ClientLegacyQuerySession bool

	NATSURL string

	RedisAddr     string
	RedisPassword string

	LoginRateLimit  int
	LoginRateWindow time.Duration

	UploadDir string

	AdminEmail    string
	AdminPassword string
}

// Load читает .env (если есть) и переменные окружения.
// Без DB_DSN, SESSION_SECRET и ENCRYPTION_SECRET сервис не стартует.
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("APP_ENV", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("SERVER_PORT", "8080")
	v.SetDefault("COOKIE_SECURE", false)
	v.SetDefault("CLIENT_LEGACY_QUERY_SESSION", false)
	v.SetDefault("LOGIN_RATE_LIMIT", 10)
	v.SetDefault("LOGIN_RATE_WINDOW", time.Minute)
	v.SetDefault("UPLOAD_DIR", "./uploads")

	cfg := &Config{
		AppEnv:                   v.GetString("APP_ENV"),
		LogLevel:                 v.GetString("LOG_LEVEL"),
		ServerPort:               v.GetString("SERVER_PORT"),
		DBDSN:                    v.GetString("DB_DSN"),
		SessionSecret:            v.GetString("SESSION_SECRET"),
		CookieSecure:             v.GetBool("COOKIE_SECURE"),
		EncryptionSecret:         v.GetString("ENCRYPTION_SECRET"),
		EncryptionLegacyKey:      v.GetString("ENCRYPTION_LEGACY_KEY"),
		ClientLegacyQuerySession: v.GetBool("CLIENT_LEGACY_QUERY_SESSION"),
		NATSURL:                  v.GetString("NATS_URL"),
		RedisAddr:                v.GetString("REDIS_ADDR"),
		RedisPassword:            v.GetString("REDIS_PASSWORD"),
		LoginRateLimit:           v.GetInt("LOGIN_RATE_LIMIT"),
		LoginRateWindow:          v.GetDuration("LOGIN_RATE_WINDOW"),
		UploadDir:                v.GetString("UPLOAD_DIR"),
		AdminEmail:               v.GetString("ADMIN_EMAIL"),
		AdminPassword:            v.GetString("ADMIN_PASSWORD"),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	var missing []string
	if strings.TrimSpace(c.DBDSN) == "" {
		missing = append(missing, "DB_DSN")
	}
	if strings.TrimSpace(c.SessionSecret) == "" {
		missing = append(missing, "SESSION_SECRET")
	}
	if strings.TrimSpace(c.EncryptionSecret) == "" {
		missing = append(missing, "ENCRYPTION_SECRET")
	}
	if len(missing) > 0 {
		return fmt.Errorf("required settings are not set: %s", strings.Join(missing, ", "))
	}

	if len(c.SessionSecret) < 32 {
		return errors.New("SESSION_SECRET must be at least 32 bytes")
	}
	if c.EncryptionLegacyKey != "" && len(c.EncryptionLegacyKey) != 32 {
		return errors.New("ENCRYPTION_LEGACY_KEY must be exactly 32 bytes")
	}
	if c.LoginRateLimit <= 0 {
		c.LoginRateLimit = 10
	}
	if c.LoginRateWindow <= 0 {
		c.LoginRateWindow = time.Minute
	}
	return nil
}

func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}
