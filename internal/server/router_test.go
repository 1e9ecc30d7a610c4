package server

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"helpdesk/internal/config"
	"helpdesk/internal/dbtest"
	"helpdesk/internal/guard"
	"helpdesk/internal/handlers"
	"helpdesk/internal/middleware"
	"helpdesk/internal/session"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func newTestRouter(t *testing.T) *gin.Engine {
	gin.SetMode(gin.TestMode)
	db := dbtest.Open(t)
	sessions := session.NewStore(db, nil)
	signer := session.NewSigner("0123456789abcdef0123456789abcdef", nil)

	return NewRouter(Deps{
		Config:  &config.Config{SessionSecret: "0123456789abcdef0123456789abcdef"},
		Handler: &handlers.Handler{DB: db, Sessions: sessions, Signer: signer},
		Guard:   &guard.Guard{DB: db, Sessions: sessions, Signer: signer},
		Limiter: middleware.NewMemoryLimiter(100, time.Minute),
	})
}

func TestRouter_PublicAndProtected(t *testing.T) {
	r := newTestRouter(t)

	tests := []struct {
		method, path string
		code         int
		location     string
	}{
		{http.MethodGet, "/health", http.StatusOK, ""},
		{http.MethodGet, "/login", http.StatusOK, ""},
		{http.MethodGet, "/portal/login", http.StatusOK, ""},
		{http.MethodGet, "/", http.StatusFound, "/login"},
		{http.MethodGet, "/tickets", http.StatusFound, "/login"},
		{http.MethodPost, "/equipment/new", http.StatusFound, "/login"},
		{http.MethodGet, "/audit", http.StatusFound, "/login"},
		{http.MethodGet, "/portal/tickets", http.StatusFound, "/portal/login"},
		{http.MethodPost, "/portal/tickets/new", http.StatusFound, "/portal/login"},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(tt.method, tt.path, nil))
			assert.Equal(t, tt.code, w.Code)
			if tt.location != "" {
				assert.Equal(t, tt.location, w.Header().Get("Location"))
			}
			assert.NotEmpty(t, w.Header().Get("X-Request-Id"))
		})
	}
}
