package handlers

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"helpdesk/internal/apperr"
	"helpdesk/internal/models"

	"github.com/gin-gonic/gin"
)

const minPasswordLen = 6

var emailRe = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

func formText(c *gin.Context, name string) string {
	return strings.TrimSpace(c.PostForm(name))
}

// formField — значение и признак того, что поле вообще пришло.
// Отсутствующее поле при обновлении ничего не меняет.
func formField(c *gin.Context, name string) (string, bool) {
	v, ok := c.GetPostForm(name)
	return strings.TrimSpace(v), ok
}

func isTrue(v string) bool {
	return v == "true" || v == "on"
}

func validEmail(s string) bool {
	return emailRe.MatchString(s)
}

func validDate(s string) bool {
	_, err := time.Parse(models.DateLayout, s)
	return err == nil
}

func validTime(s string) bool {
	_, err := time.Parse(models.TimeLayout, s)
	return err == nil && len(s) == 5
}

// refUpdate — необязательная ссылка из формы.
// "none"/"unassigned" очищают ссылку: пустое поле в форме нельзя отличить от отсутствующего.
type refUpdate struct {
	Present bool
	Clear   bool
	ID      uint
}

func parseRef(c *gin.Context, name string) (refUpdate, error) {
	v, ok := formField(c, name)
	if !ok || v == "" {
		return refUpdate{}, nil
	}
	if v == "none" || v == "unassigned" {
		return refUpdate{Present: true, Clear: true}, nil
	}
	id, err := strconv.ParseUint(v, 10, 64)
	if err != nil || id == 0 {
		return refUpdate{}, apperr.Invalid("Некорректная ссылка в поле " + name)
	}
	return refUpdate{Present: true, ID: uint(id)}, nil
}

// apply пишет ссылку в поле модели, если она пришла.
func (r refUpdate) apply(dst **uint) {
	if !r.Present {
		return
	}
	if r.Clear {
		*dst = nil
		return
	}
	id := r.ID
	*dst = &id
}

func (r refUpdate) setsID() bool {
	return r.Present && !r.Clear
}
