// Package flash хранит одноразовые сообщения в подписанной cookie-сессии
// вместо query-параметра: текст не попадает в URL, историю и Referer.
package flash

import (
	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

const (
	KindSuccess = "success"
	KindError   = "error"
)

type Message struct {
	Kind string `json:"kind"`
	Text string `json:"text"`
}

func Success(c *gin.Context, text string) { add(c, KindSuccess, text) }

func Error(c *gin.Context, text string) { add(c, KindError, text) }

func add(c *gin.Context, kind, text string) {
	sess := sessions.Default(c)
	sess.AddFlash(text, kind)
	if err := sess.Save(); err != nil {
		log.Error().Err(err).Msg("flash save failed")
	}
}

// Pop отдаёт накопленные сообщения и очищает их.
func Pop(c *gin.Context) []Message {
	sess := sessions.Default(c)

	var out []Message
	for _, kind := range []string{KindError, KindSuccess} {
		for _, f := range sess.Flashes(kind) {
			if s, ok := f.(string); ok {
				out = append(out, Message{Kind: kind, Text: s})
			}
		}
	}
	if len(out) > 0 {
		if err := sess.Save(); err != nil {
			log.Error().Err(err).Msg("flash save failed")
		}
	}
	return out
}
