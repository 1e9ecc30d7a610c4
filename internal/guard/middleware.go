package guard

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"helpdesk/internal/apperr"
	"helpdesk/internal/flash"
	"helpdesk/internal/session"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

const (
	callerKey = "guard.caller"
	rowKey    = "guard.row"

	StaffLoginPath  = "/login"
	StaffHomePath   = "/tickets"
	CompanyNewPath  = "/company/new"
	ClientLoginPath = "/portal/login"
	ClientHomePath  = "/portal/tickets"
)

// Guard — цепочка проверок перед обработчиком: кто вызывает, какой арендатор,
// какая роль, принадлежит ли строка арендатору.
type Guard struct {
	DB       *gorm.DB
	Sessions *session.Store
	Signer   *session.Signer

	// принимать client_id/session из query/формы (старые ссылки)
	LegacyQuerySession bool
}

func From(c *gin.Context) *Caller {
	v, ok := c.Get(callerKey)
	if !ok {
		return nil
	}
	caller, _ := v.(*Caller)
	return caller
}

func SetCaller(c *gin.Context, caller *Caller) {
	c.Set(callerKey, caller)
}

// RequireStaff — сотрудник из cookie-сессии. Компания не обязательна.
func (g *Guard) RequireStaff() gin.HandlerFunc {
	return func(c *gin.Context) {
		sess := sessions.Default(c)
		uid, _ := sess.Get("user_id").(uint)

		caller, err := ResolveStaff(c.Request.Context(), g.DB, uid)
		if err != nil {
			if apperr.KindOf(err) == apperr.KindAuthenticationMissing && uid != 0 {
				// пользователя удалили — сессия больше не нужна
				sess.Clear()
				_ = sess.Save()
			}
			Fail(c, StaffLoginPath, err)
			return
		}
		SetCaller(c, caller)
		c.Next()
	}
}

// RequireTenant без компании всегда уводит на её создание, в том числе с GET.
func RequireTenant() gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := CheckTenant(From(c)); err != nil {
			if apperr.KindOf(err) == apperr.KindAuthenticationMissing {
				Fail(c, StaffLoginPath, err)
				return
			}
			redirect(c, CompanyNewPath, apperr.PublicMessage(err))
			return
		}
		c.Next()
	}
}

func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := CheckAdmin(From(c)); err != nil {
			Fail(c, StaffHomePath, err)
			return
		}
		c.Next()
	}
}

// RequireClient — клиент по подписанной cookie; при включённом режиме совместимости
// ещё и по client_id + session из query или формы.
func (g *Guard) RequireClient() gin.HandlerFunc {
	return func(c *gin.Context) {
		clientID, token, legacy, ok := g.clientCredentials(c)
		if !ok {
			Fail(c, ClientLoginPath, apperr.ErrAuthenticationMissing)
			return
		}

		cred, err := g.Sessions.Validate(c.Request.Context(), clientID, token)
		if err != nil {
			Fail(c, ClientLoginPath, err)
			return
		}
		caller := ClientCaller(cred, token)
		caller.LegacyLink = legacy
		SetCaller(c, caller)
		c.Next()
	}
}

// clientCredentials возвращает client_id, токен и признак того, что они пришли
// не из cookie.
func (g *Guard) clientCredentials(c *gin.Context) (uint, string, bool, bool) {
	if raw, err := c.Cookie(session.CookieName); err == nil && raw != "" {
		if cid, tok, err := g.Signer.Parse(raw); err == nil {
			return cid, tok, false, true
		}
	}
	if !g.LegacyQuerySession {
		return 0, "", false, false
	}

	idStr := c.Query("client_id")
	if idStr == "" {
		idStr = c.PostForm("client_id")
	}
	token := c.Query("session")
	if token == "" {
		token = c.PostForm("session")
	}
	id, err := ParseID(idStr)
	if err != nil || token == "" {
		return 0, "", false, false
	}
	return id, token, true, true
}

// Link дописывает client_id и session к адресу портала, если клиент пришёл по
// старой ссылке без cookie.
func Link(c *gin.Context, target string) string {
	caller := From(c)
	if caller == nil || !caller.LegacyLink || !strings.HasPrefix(target, "/portal/") || target == ClientLoginPath {
		return target
	}
	q := url.Values{}
	q.Set("client_id", strconv.FormatUint(uint64(caller.ID), 10))
	q.Set("session", caller.SessionToken)
	sep := "?"
	if strings.Contains(target, "?") {
		sep = "&"
	}
	return target + sep + q.Encode()
}

// Scoped грузит строку из параметра маршрута в пределах арендатора до запуска
// обработчика. Обработчик берёт её через Row[T].
func Scoped[T any](db *gorm.DB, param, fallback string) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := ParseID(c.Param(param))
		if err != nil {
			Fail(c, fallback, err)
			return
		}
		row := new(T)
		if err := LoadScoped(c.Request.Context(), db, From(c), id, row); err != nil {
			Fail(c, fallback, err)
			return
		}
		c.Set(rowKey, row)
		c.Next()
	}
}

func Row[T any](c *gin.Context) *T {
	v, ok := c.Get(rowKey)
	if !ok {
		return nil
	}
	row, _ := v.(*T)
	return row
}

// Fail завершает запрос. POST — сообщение во flash и редирект на target,
// GET — JSON с кодом. Детали сбоев хранилища остаются в логе.
func Fail(c *gin.Context, target string, err error) {
	kind := apperr.KindOf(err)
	if kind == apperr.KindPersistenceFailure {
		log.Error().Err(err).
			Str("request_id", c.GetString("request_id")).
			Str("path", c.FullPath()).
			Msg("persistence failure")
	}

	msg := apperr.PublicMessage(err)
	if c.Request.Method == http.MethodGet && kind != apperr.KindAuthenticationMissing {
		c.AbortWithStatusJSON(statusFor(kind), gin.H{"error": msg})
		return
	}

	redirect(c, target, msg)
}

func redirect(c *gin.Context, target, msg string) {
	flash.Error(c, msg)
	c.Redirect(http.StatusFound, Link(c, target))
	c.Abort()
}

func statusFor(k apperr.Kind) int {
	switch k {
	case apperr.KindAuthenticationMissing:
		return http.StatusUnauthorized
	case apperr.KindAuthorizationDenied:
		return http.StatusForbidden
	case apperr.KindValidationFailed:
		return http.StatusBadRequest
	case apperr.KindNotFound:
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}
