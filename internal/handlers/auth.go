package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"helpdesk/internal/apperr"
	"helpdesk/internal/crypto"
	"helpdesk/internal/guard"
	"helpdesk/internal/models"
	"helpdesk/internal/session"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

var errBadLogin = apperr.Invalid("Неверный логин или пароль")

func ShowLogin(c *gin.Context) {
	render(c, http.StatusOK, "login", nil)
}

func ShowSignup(c *gin.Context) {
	render(c, http.StatusOK, "signup", nil)
}

// Signup — регистрация администратора. Компании у него пока нет,
// поэтому после входа он попадает на /company/new.
func (h *Handler) Signup(c *gin.Context) {
	email := strings.ToLower(formText(c, "email"))
	password := c.PostForm("password")
	fullName := formText(c, "full_name")

	if !validEmail(email) {
		fail(c, "/signup", apperr.Invalid("Некорректный email"))
		return
	}
	if len(password) < minPasswordLen {
		fail(c, "/signup", apperr.Invalid("Пароль должен быть не короче 6 символов"))
		return
	}
	if fullName == "" {
		fail(c, "/signup", apperr.Invalid("Укажите имя"))
		return
	}

	db := h.DB.WithContext(c.Request.Context())
	var count int64
	if err := db.Model(&models.User{}).Where("email = ?", email).Count(&count).Error; err != nil {
		fail(c, "/signup", apperr.Persistence(err))
		return
	}
	if count > 0 {
		fail(c, "/signup", apperr.Invalid("Пользователь уже существует"))
		return
	}

	hash, err := crypto.HashPassword(password)
	if err != nil {
		fail(c, "/signup", apperr.Persistence(err))
		return
	}
	user := models.User{
		Email:          email,
		PasswordHash:   hash,
		FullName:       fullName,
		UserType:       models.UserAdmin,
		EmailConfirmed: true,
	}
	if err := db.Create(&user).Error; err != nil {
		fail(c, "/signup", apperr.Persistence(fmt.Errorf("create user: %w", err)))
		return
	}

	sess := sessions.Default(c)
	sess.Set("user_id", user.ID)
	_ = sess.Save()

	succeed(c, guard.CompanyNewPath, "Аккаунт создан")
}

func (h *Handler) Login(c *gin.Context) {
	email := strings.ToLower(formText(c, "email"))
	password := c.PostForm("password")

	var user models.User
	err := h.DB.WithContext(c.Request.Context()).Where("email = ?", email).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		fail(c, guard.StaffLoginPath, errBadLogin)
		return
	}
	if err != nil {
		fail(c, guard.StaffLoginPath, apperr.Persistence(err))
		return
	}
	if !crypto.CheckPassword(password, user.PasswordHash) {
		fail(c, guard.StaffLoginPath, errBadLogin)
		return
	}

	sess := sessions.Default(c)
	sess.Set("user_id", user.ID)
	_ = sess.Save()

	target := guard.StaffHomePath
	if user.CompanyID == nil {
		target = guard.CompanyNewPath
	}
	c.Redirect(http.StatusFound, target)
}

func Logout(c *gin.Context) {
	sess := sessions.Default(c)
	sess.Clear()
	_ = sess.Save()
	c.Redirect(http.StatusFound, guard.StaffLoginPath)
}

func ShowClientLogin(c *gin.Context) {
	render(c, http.StatusOK, "portal_login", nil)
}

// ClientLogin — вход клиента. Логин уникален (без учёта регистра) только внутри компании, поэтому
// перебираем активные учётные записи с этим логином и берём ту, где подошёл пароль.
// Старые base64-пароли после успешного входа сразу перехешируются в bcrypt.
func (h *Handler) ClientLogin(c *gin.Context) {
	username := formText(c, "username")
	password := c.PostForm("password")
	if username == "" || password == "" {
		fail(c, guard.ClientLoginPath, errBadLogin)
		return
	}

	ctx := c.Request.Context()
	db := h.DB.WithContext(ctx)

	var creds []models.ClientCredential
	if err := db.Where("LOWER(username) = LOWER(?) AND is_active = ?", username, true).Find(&creds).Error; err != nil {
		fail(c, guard.ClientLoginPath, apperr.Persistence(err))
		return
	}

	var cred *models.ClientCredential
	var legacy bool
	for i := range creds {
		if ok, isLegacy := crypto.VerifyPassword(password, creds[i].PasswordHash); ok {
			cred, legacy = &creds[i], isLegacy
			break
		}
	}
	if cred == nil {
		fail(c, guard.ClientLoginPath, errBadLogin)
		return
	}

	if legacy {
		if hash, err := crypto.HashPassword(password); err == nil {
			if err := db.Model(cred).Update("password_hash", hash).Error; err != nil {
				log.Warn().Err(err).Uint("client_id", cred.ID).Msg("rehash legacy client password")
			}
		}
	}

	sess, err := h.Sessions.Issue(ctx, cred.ID)
	if err != nil {
		fail(c, guard.ClientLoginPath, err)
		return
	}
	signed, err := h.Signer.Sign(sess)
	if err != nil {
		fail(c, guard.ClientLoginPath, apperr.Persistence(err))
		return
	}
	h.setClientCookie(c, signed, int(session.TTL.Seconds()))

	c.Redirect(http.StatusFound, guard.ClientHomePath)
}

func (h *Handler) ClientLogout(c *gin.Context) {
	caller := guard.From(c)
	if err := h.Sessions.Revoke(c.Request.Context(), caller.ID, caller.SessionToken); err != nil {
		log.Error().Err(err).Uint("client_id", caller.ID).Msg("revoke client session")
	}
	h.setClientCookie(c, "", -1)
	c.Redirect(http.StatusFound, guard.ClientLoginPath)
}

func (h *Handler) setClientCookie(c *gin.Context, value string, maxAge int) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(session.CookieName, value, maxAge, "/", "", h.CookieSecure, true)
}
