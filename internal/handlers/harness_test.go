package handlers_test

import (
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	"helpdesk/internal/config"
	"helpdesk/internal/crypto"
	"helpdesk/internal/dbtest"
	"helpdesk/internal/guard"
	"helpdesk/internal/handlers"
	"helpdesk/internal/middleware"
	"helpdesk/internal/notify"
	"helpdesk/internal/server"
	"helpdesk/internal/session"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const testSecret = "0123456789abcdef0123456789abcdef"

type published struct {
	subject string
	data    []byte
}

type fakePublisher struct {
	events []published
}

func (p *fakePublisher) Publish(subject string, data []byte) error {
	p.events = append(p.events, published{subject, data})
	return nil
}

type app struct {
	t      *testing.T
	db     *gorm.DB
	router *gin.Engine
	cipher *crypto.Cipher
	pub    *fakePublisher
	now    time.Time
}

func newApp(t *testing.T, opts ...func(*guard.Guard)) *app {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := dbtest.Open(t)
	cipher, err := crypto.NewCipher("enc-secret", "")
	require.NoError(t, err)

	a := &app{t: t, db: db, cipher: cipher, pub: &fakePublisher{}, now: time.Now()}
	clock := func() time.Time { return a.now }

	sessions := session.NewStore(db, clock)
	signer := session.NewSigner(testSecret, clock)
	cfg := &config.Config{SessionSecret: testSecret}

	g := &guard.Guard{DB: db, Sessions: sessions, Signer: signer}
	for _, opt := range opts {
		opt(g)
	}

	a.router = server.NewRouter(server.Deps{
		Config: cfg,
		Handler: &handlers.Handler{
			DB:        db,
			Cipher:    cipher,
			Sessions:  sessions,
			Signer:    signer,
			Notifier:  notify.New(db, a.pub),
			UploadDir: t.TempDir(),
		},
		Guard:   g,
		Limiter: middleware.NewMemoryLimiter(1000, time.Minute),
	})
	return a
}

// browser хранит cookie между запросами, как настоящий браузер.
type browser struct {
	app     *app
	cookies map[string]*http.Cookie
}

func (a *app) browser() *browser {
	return &browser{app: a, cookies: map[string]*http.Cookie{}}
}

func (b *browser) request(method, path string, form url.Values) *http.Request {
	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}
	req := httptest.NewRequest(method, path, body)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	for _, ck := range b.cookies {
		req.AddCookie(ck)
	}
	return req
}

func (b *browser) send(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	b.app.router.ServeHTTP(w, req)
	for _, ck := range w.Result().Cookies() {
		if ck.MaxAge < 0 || ck.Value == "" {
			delete(b.cookies, ck.Name)
			continue
		}
		b.cookies[ck.Name] = ck
	}
	return w
}

func (b *browser) get(path string) *httptest.ResponseRecorder {
	return b.send(b.request(http.MethodGet, path, nil))
}

func (b *browser) post(path string, form url.Values) *httptest.ResponseRecorder {
	if form == nil {
		form = url.Values{}
	}
	return b.send(b.request(http.MethodPost, path, form))
}

func (b *browser) postMultipart(path string, fields map[string]string, fileField, fileName, content string) *httptest.ResponseRecorder {
	var buf strings.Builder
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		_ = mw.WriteField(k, v)
	}
	fw, err := mw.CreateFormFile(fileField, fileName)
	require.NoError(b.app.t, err)
	_, _ = io.WriteString(fw, content)
	require.NoError(b.app.t, mw.Close())

	req := b.request(http.MethodPost, path, nil)
	req.Body = io.NopCloser(strings.NewReader(buf.String()))
	req.ContentLength = int64(buf.Len())
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return b.send(req)
}

// flashes — сообщения, которые покажет следующая страница.
func (b *browser) flashes(path string) []map[string]string {
	w := b.get(path)
	var body struct {
		Flash []map[string]string `json:"flash"`
	}
	require.NoError(b.app.t, json.Unmarshal(w.Body.Bytes(), &body))
	return body.Flash
}

func (b *browser) loginStaff(email string) {
	w := b.post("/login", url.Values{"email": {email}, "password": {"secret123"}})
	require.Equal(b.app.t, http.StatusFound, w.Code)
	require.NotEqual(b.app.t, guard.StaffLoginPath, w.Header().Get("Location"))
}

func (b *browser) loginClient(username, password string) {
	w := b.post("/portal/login", url.Values{"username": {username}, "password": {password}})
	require.Equal(b.app.t, http.StatusFound, w.Code)
	require.Equal(b.app.t, guard.ClientHomePath, w.Header().Get("Location"))
	require.Contains(b.app.t, b.cookies, session.CookieName)
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), v))
}

func idPath(prefix string, id uint, suffix string) string {
	return prefix + "/" + sid(id) + suffix
}

func sid(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}
