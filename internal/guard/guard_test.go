package guard

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"helpdesk/internal/apperr"
	"helpdesk/internal/dbtest"
	"helpdesk/internal/models"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveStaff(t *testing.T) {
	db := dbtest.Open(t)
	acme := dbtest.SeedTenant(t, db, "Acme", "admin@acme.test")
	ctx := context.Background()

	c, err := ResolveStaff(ctx, db, acme.Admin.ID)
	require.NoError(t, err)
	assert.Equal(t, acme.Company.ID, c.CompanyID)
	assert.True(t, c.IsAdmin())
	assert.Equal(t, models.AuthorStaff, c.AuthorType())

	_, err = ResolveStaff(ctx, db, 0)
	assert.True(t, errors.Is(err, apperr.ErrAuthenticationMissing))
	_, err = ResolveStaff(ctx, db, 9999)
	assert.True(t, errors.Is(err, apperr.ErrAuthenticationMissing))
}

func TestCheckAdmin(t *testing.T) {
	assert.True(t, errors.Is(CheckAdmin(nil), apperr.ErrAuthenticationMissing))
	assert.True(t, errors.Is(CheckAdmin(&Caller{Kind: KindStaff, Role: "admin"}), apperr.ErrAuthorizationDenied))
	assert.True(t, errors.Is(CheckAdmin(&Caller{Kind: KindStaff, Role: "staff", CompanyID: 1}), apperr.ErrAuthorizationDenied))
	assert.True(t, errors.Is(CheckAdmin(&Caller{Kind: KindClient, Role: "admin", CompanyID: 1}), apperr.ErrAuthorizationDenied))
	assert.NoError(t, CheckAdmin(&Caller{Kind: KindStaff, Role: "admin", CompanyID: 1}))
}

func TestLoadScoped_OtherTenantLooksMissing(t *testing.T) {
	db := dbtest.Open(t)
	acme := dbtest.SeedTenant(t, db, "Acme", "admin@acme.test")
	globex := dbtest.SeedTenant(t, db, "Globex", "admin@globex.test")
	ctx := context.Background()

	item := models.EquipmentInventoryItem{CompanyID: acme.Company.ID, DeviceName: "router", Status: models.EquipmentActive}
	require.NoError(t, db.Create(&item).Error)

	acmeCaller := &Caller{Kind: KindStaff, ID: acme.Admin.ID, CompanyID: acme.Company.ID, Role: "admin"}
	globexCaller := &Caller{Kind: KindStaff, ID: globex.Admin.ID, CompanyID: globex.Company.ID, Role: "admin"}

	var got models.EquipmentInventoryItem
	require.NoError(t, LoadScoped(ctx, db, acmeCaller, item.ID, &got))
	assert.Equal(t, "router", got.DeviceName)

	errForeign := LoadScoped(ctx, db, globexCaller, item.ID, &got)
	errMissing := LoadScoped(ctx, db, globexCaller, 99999, &got)
	assert.True(t, errors.Is(errForeign, apperr.ErrNotFound))
	assert.Equal(t, apperr.PublicMessage(errMissing), apperr.PublicMessage(errForeign))

	err := LoadScoped(ctx, db, &Caller{Kind: KindStaff, ID: 1}, item.ID, &got)
	assert.True(t, errors.Is(err, apperr.ErrAuthorizationDenied))

	assert.NoError(t, CheckReference[models.EquipmentInventoryItem](ctx, db, acmeCaller, item.ID))
	assert.Error(t, CheckReference[models.EquipmentInventoryItem](ctx, db, globexCaller, item.ID))
}

func TestLoadClientTicket_Ownership(t *testing.T) {
	db := dbtest.Open(t)
	acme := dbtest.SeedTenant(t, db, "Acme", "admin@acme.test")
	bob := dbtest.SeedClient(t, db, acme.Company.ID, "bob", "pw123456")
	eve := dbtest.SeedClient(t, db, acme.Company.ID, "eve", "pw123456")
	ctx := context.Background()

	ticket := models.SupportTicket{
		CompanyID:          acme.Company.ID,
		ClientCredentialID: &bob.ID,
		Title:              "printer",
		Status:             models.TicketOpen,
		Priority:           models.PriorityHigh,
	}
	require.NoError(t, db.Create(&ticket).Error)

	var got models.SupportTicket
	require.NoError(t, LoadClientTicket(ctx, db, ClientCaller(&bob, "tok"), ticket.ID, &got))
	assert.True(t, errors.Is(LoadClientTicket(ctx, db, ClientCaller(&eve, "tok"), ticket.ID, &got), apperr.ErrNotFound))
	assert.Error(t, LoadClientTicket(ctx, db, &Caller{Kind: KindStaff, CompanyID: acme.Company.ID}, ticket.ID, &got))
}

func TestParseID(t *testing.T) {
	id, err := ParseID("15")
	require.NoError(t, err)
	assert.EqualValues(t, 15, id)

	for _, bad := range []string{"", "0", "-1", "abc", "1.5"} {
		_, err := ParseID(bad)
		assert.Error(t, err, bad)
	}
}

func TestScoped_Middleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db := dbtest.Open(t)
	acme := dbtest.SeedTenant(t, db, "Acme", "admin@acme.test")
	globex := dbtest.SeedTenant(t, db, "Globex", "admin@globex.test")

	rec := models.ClientCompanyProfile{CompanyID: acme.Company.ID, Name: "Initech"}
	require.NoError(t, db.Create(&rec).Error)

	newRouter := func(companyID uint) *gin.Engine {
		r := gin.New()
		r.Use(sessions.Sessions("t", cookie.NewStore([]byte("0123456789abcdef0123456789abcdef"))))
		r.Use(func(c *gin.Context) {
			SetCaller(c, &Caller{Kind: KindStaff, ID: 1, CompanyID: companyID, Role: "staff"})
		})
		h := func(c *gin.Context) {
			c.String(http.StatusOK, Row[models.ClientCompanyProfile](c).Name)
		}
		r.GET("/x/:id", Scoped[models.ClientCompanyProfile](db, "id", "/x"), h)
		r.POST("/x/:id", Scoped[models.ClientCompanyProfile](db, "id", "/x"), h)
		return r
	}

	w := httptest.NewRecorder()
	newRouter(acme.Company.ID).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x/"+itoa(rec.ID), nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Initech", w.Body.String())

	w = httptest.NewRecorder()
	newRouter(globex.Company.ID).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x/"+itoa(rec.ID), nil))
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = httptest.NewRecorder()
	newRouter(globex.Company.ID).ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/x/"+itoa(rec.ID), nil))
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/x", w.Header().Get("Location"))
}

func itoa(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}
