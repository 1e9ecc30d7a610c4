package handlers_test

import (
	"net/http"
	"net/url"
	"testing"

	"helpdesk/internal/dbtest"
	"helpdesk/internal/flash"
	"helpdesk/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type acmeRows struct {
	equipment models.EquipmentInventoryItem
	onsite    models.OnsiteSupportRecord
	client    models.ClientCredential
	profile   models.ClientCompanyProfile
	ticket    models.SupportTicket
	comment   models.TicketComment
	staff     models.User
	note      models.Notification
}

func seedAcme(t *testing.T, a *app, companyID uint) acmeRows {
	t.Helper()
	var r acmeRows

	r.profile = models.ClientCompanyProfile{CompanyID: companyID, Name: "Roga i Kopyta"}
	require.NoError(t, a.db.Create(&r.profile).Error)

	r.client = dbtest.SeedClient(t, a.db, companyID, "bob", "pw123456")
	r.staff = dbtest.SeedStaff(t, a.db, companyID, "staff@acme.test")

	r.equipment = models.EquipmentInventoryItem{CompanyID: companyID, DeviceName: "router", Status: models.EquipmentActive}
	require.NoError(t, a.db.Create(&r.equipment).Error)

	r.onsite = models.OnsiteSupportRecord{CompanyID: companyID, WorkDate: "2024-05-10", JobDetails: "replace switch"}
	require.NoError(t, a.db.Create(&r.onsite).Error)

	r.ticket = models.SupportTicket{
		CompanyID:          companyID,
		ClientCredentialID: &r.client.ID,
		Title:              "printer",
		Status:             models.TicketOpen,
		Priority:           models.PriorityLow,
	}
	require.NoError(t, a.db.Create(&r.ticket).Error)

	r.comment = models.TicketComment{TicketID: r.ticket.ID, AuthorID: r.client.ID, AuthorType: models.AuthorClient, Body: "help"}
	require.NoError(t, a.db.Create(&r.comment).Error)

	r.note = models.Notification{CompanyID: companyID, TicketID: r.ticket.ID, Kind: "ticket_created", Message: "new"}
	require.NoError(t, a.db.Create(&r.note).Error)
	return r
}

func TestMutations_CrossTenantRejectedAndRowUnchanged(t *testing.T) {
	a := newApp(t)
	acme := dbtest.SeedTenant(t, a.db, "Acme", "admin@acme.test")
	dbtest.SeedTenant(t, a.db, "Globex", "admin@globex.test")
	rows := seedAcme(t, a, acme.Company.ID)

	intruder := a.browser()
	intruder.loginStaff("admin@globex.test")

	cases := []struct {
		name     string
		path     string
		form     url.Values
		fallback string
		check    func(t *testing.T)
	}{
		{
			name: "equipment edit", path: idPath("/equipment", rows.equipment.ID, "/edit"),
			form: url.Values{"device_name": {"hacked"}}, fallback: "/equipment",
			check: func(t *testing.T) {
				var got models.EquipmentInventoryItem
				require.NoError(t, a.db.First(&got, rows.equipment.ID).Error)
				assert.Equal(t, "router", got.DeviceName)
			},
		},
		{
			name: "equipment delete", path: idPath("/equipment", rows.equipment.ID, "/delete"), fallback: "/equipment",
			check: func(t *testing.T) { assertExists(t, a, &models.EquipmentInventoryItem{}, rows.equipment.ID) },
		},
		{
			name: "onsite edit", path: idPath("/onsite", rows.onsite.ID, "/edit"),
			form: url.Values{"job_details": {"nothing"}}, fallback: "/onsite",
			check: func(t *testing.T) {
				var got models.OnsiteSupportRecord
				require.NoError(t, a.db.First(&got, rows.onsite.ID).Error)
				assert.Equal(t, "replace switch", got.JobDetails)
			},
		},
		{
			name: "onsite delete", path: idPath("/onsite", rows.onsite.ID, "/delete"), fallback: "/onsite",
			check: func(t *testing.T) { assertExists(t, a, &models.OnsiteSupportRecord{}, rows.onsite.ID) },
		},
		{
			name: "client edit", path: idPath("/clients", rows.client.ID, "/edit"),
			form: url.Values{"is_active": {"false"}}, fallback: "/clients",
			check: func(t *testing.T) {
				var got models.ClientCredential
				require.NoError(t, a.db.First(&got, rows.client.ID).Error)
				assert.True(t, got.IsActive)
			},
		},
		{
			name: "client delete", path: idPath("/clients", rows.client.ID, "/delete"), fallback: "/clients",
			check: func(t *testing.T) { assertExists(t, a, &models.ClientCredential{}, rows.client.ID) },
		},
		{
			name: "client company edit", path: idPath("/client-companies", rows.profile.ID, "/edit"),
			form: url.Values{"name": {"Mine now"}}, fallback: "/client-companies",
			check: func(t *testing.T) {
				var got models.ClientCompanyProfile
				require.NoError(t, a.db.First(&got, rows.profile.ID).Error)
				assert.Equal(t, "Roga i Kopyta", got.Name)
			},
		},
		{
			name: "client company delete", path: idPath("/client-companies", rows.profile.ID, "/delete"), fallback: "/client-companies",
			check: func(t *testing.T) { assertExists(t, a, &models.ClientCompanyProfile{}, rows.profile.ID) },
		},
		{
			name: "ticket edit", path: idPath("/tickets", rows.ticket.ID, "/edit"),
			form: url.Values{"status": {"closed"}}, fallback: "/tickets",
			check: func(t *testing.T) {
				var got models.SupportTicket
				require.NoError(t, a.db.First(&got, rows.ticket.ID).Error)
				assert.Equal(t, models.TicketOpen, got.Status)
			},
		},
		{
			name: "ticket comment", path: idPath("/tickets", rows.ticket.ID, "/comments"),
			form: url.Values{"body": {"spam"}}, fallback: "/tickets",
			check: func(t *testing.T) {
				var n int64
				a.db.Model(&models.TicketComment{}).Where("ticket_id = ?", rows.ticket.ID).Count(&n)
				assert.EqualValues(t, 1, n)
			},
		},
		{
			name: "ticket comment delete", path: idPath("/tickets", rows.ticket.ID, "/comments/"+sid(rows.comment.ID)+"/delete"), fallback: "/tickets",
			check: func(t *testing.T) { assertExists(t, a, &models.TicketComment{}, rows.comment.ID) },
		},
		{
			name: "ticket delete", path: idPath("/tickets", rows.ticket.ID, "/delete"), fallback: "/tickets",
			check: func(t *testing.T) { assertExists(t, a, &models.SupportTicket{}, rows.ticket.ID) },
		},
		{
			name: "staff delete", path: idPath("/staff", rows.staff.ID, "/delete"), fallback: "/staff",
			check: func(t *testing.T) { assertExists(t, a, &models.User{}, rows.staff.ID) },
		},
		{
			name: "notification read", path: idPath("/notifications", rows.note.ID, "/read"), fallback: "/notifications",
			check: func(t *testing.T) {
				var got models.Notification
				require.NoError(t, a.db.First(&got, rows.note.ID).Error)
				assert.Nil(t, got.ReadAt)
			},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := intruder.post(tc.path, tc.form)
			require.Equal(t, http.StatusFound, w.Code)
			assert.Equal(t, tc.fallback, w.Header().Get("Location"))

			msgs := intruder.flashes("/notifications")
			require.NotEmpty(t, msgs)
			assert.Equal(t, flash.KindError, msgs[0]["kind"])
			assert.Equal(t, "Запись не найдена или недоступна", msgs[0]["text"])

			tc.check(t)
		})
	}
}

func TestReads_CrossTenantLooksMissing(t *testing.T) {
	a := newApp(t)
	acme := dbtest.SeedTenant(t, a.db, "Acme", "admin@acme.test")
	dbtest.SeedTenant(t, a.db, "Globex", "admin@globex.test")
	rows := seedAcme(t, a, acme.Company.ID)

	intruder := a.browser()
	intruder.loginStaff("admin@globex.test")

	w := intruder.get(idPath("/tickets", rows.ticket.ID, ""))
	assert.Equal(t, http.StatusNotFound, w.Code)
	missing := intruder.get("/tickets/999999")
	assert.Equal(t, http.StatusNotFound, missing.Code)
	assert.Equal(t, missing.Body.String(), w.Body.String())

	w = intruder.get(idPath("/client-companies", rows.profile.ID, ""))
	assert.Equal(t, http.StatusNotFound, w.Code)

	var list struct {
		Tickets   []models.SupportTicket          `json:"tickets"`
		Equipment []models.EquipmentInventoryItem `json:"equipment"`
	}
	decode(t, intruder.get("/tickets"), &list)
	assert.Empty(t, list.Tickets)
	decode(t, intruder.get("/equipment"), &list)
	assert.Empty(t, list.Equipment)
}

func TestReferences_MustBelongToTenant(t *testing.T) {
	a := newApp(t)
	acme := dbtest.SeedTenant(t, a.db, "Acme", "admin@acme.test")
	globex := dbtest.SeedTenant(t, a.db, "Globex", "admin@globex.test")
	rows := seedAcme(t, a, acme.Company.ID)

	foreign := models.ClientCompanyProfile{CompanyID: globex.Company.ID, Name: "Foreign"}
	require.NoError(t, a.db.Create(&foreign).Error)
	foreignUser := dbtest.SeedStaff(t, a.db, globex.Company.ID, "spy@globex.test")

	admin := a.browser()
	admin.loginStaff("admin@acme.test")

	w := admin.post(idPath("/equipment", rows.equipment.ID, "/edit"), url.Values{
		"device_name":       {"renamed"},
		"client_company_id": {sid(foreign.ID)},
	})
	require.Equal(t, http.StatusFound, w.Code)
	var item models.EquipmentInventoryItem
	require.NoError(t, a.db.First(&item, rows.equipment.ID).Error)
	assert.Equal(t, "router", item.DeviceName)
	assert.Nil(t, item.ClientCompanyID)

	w = admin.post(idPath("/tickets", rows.ticket.ID, "/edit"), url.Values{"assigned_to": {sid(foreignUser.ID)}})
	require.Equal(t, http.StatusFound, w.Code)
	var ticket models.SupportTicket
	require.NoError(t, a.db.First(&ticket, rows.ticket.ID).Error)
	assert.Nil(t, ticket.AssignedToUserID)

	before := countRows(t, a, &models.SupportTicket{})
	admin.post("/tickets/new", url.Values{"title": {"x"}, "client_credential_id": {"424242"}})
	assert.Equal(t, before, countRows(t, a, &models.SupportTicket{}))
}

func TestCreate_MissingRequiredFieldsCreateNothing(t *testing.T) {
	a := newApp(t)
	acme := dbtest.SeedTenant(t, a.db, "Acme", "admin@acme.test")
	dbtest.SeedClient(t, a.db, acme.Company.ID, "bob", "pw123456")

	ticket := models.SupportTicket{CompanyID: acme.Company.ID, Title: "t", Status: models.TicketOpen, Priority: models.PriorityLow}
	require.NoError(t, a.db.Create(&ticket).Error)

	admin := a.browser()
	admin.loginStaff("admin@acme.test")
	client := a.browser()
	client.loginClient("bob", "pw123456")

	cases := []struct {
		name  string
		b     *browser
		path  string
		form  url.Values
		model any
	}{
		{"ticket without title", admin, "/tickets/new", url.Values{"description": {"d"}}, &models.SupportTicket{}},
		{"ticket with bad priority", admin, "/tickets/new", url.Values{"title": {"t"}, "priority": {"urgent"}}, &models.SupportTicket{}},
		{"portal ticket without title", client, "/portal/tickets/new", url.Values{"priority": {"high"}}, &models.SupportTicket{}},
		{"client short username", admin, "/clients/new", url.Values{"username": {"bo"}, "password": {"pw123456"}}, &models.ClientCredential{}},
		{"client short password", admin, "/clients/new", url.Values{"username": {"carol"}, "password": {"123"}}, &models.ClientCredential{}},
		{"client duplicate username", admin, "/clients/new", url.Values{"username": {"bob"}, "password": {"pw123456"}}, &models.ClientCredential{}},
		{"client company without name", admin, "/client-companies/new", url.Values{"notes": {"n"}}, &models.ClientCompanyProfile{}},
		{"onsite without details", admin, "/onsite/new", url.Values{"work_date": {"2024-05-01"}}, &models.OnsiteSupportRecord{}},
		{"onsite bad date", admin, "/onsite/new", url.Values{"work_date": {"01.05.2024"}, "job_details": {"x"}}, &models.OnsiteSupportRecord{}},
		{"onsite bad time", admin, "/onsite/new", url.Values{"work_date": {"2024-05-01"}, "job_details": {"x"}, "check_in_time": {"9am"}}, &models.OnsiteSupportRecord{}},
		{"equipment without name", admin, "/equipment/new", url.Values{"login_password": {"p"}}, &models.EquipmentInventoryItem{}},
		{"equipment bad status", admin, "/equipment/new", url.Values{"device_name": {"r"}, "status": {"broken"}}, &models.EquipmentInventoryItem{}},
		{"staff bad email", admin, "/staff/new", url.Values{"email": {"nope"}, "password": {"secret123"}, "full_name": {"N"}}, &models.User{}},
		{"staff short password", admin, "/staff/new", url.Values{"email": {"n@acme.test"}, "password": {"123"}, "full_name": {"N"}}, &models.User{}},
		{"comment without body", admin, idPath("/tickets", ticket.ID, "/comments"), url.Values{"body": {"  "}}, &models.TicketComment{}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			before := countRows(t, a, tc.model)
			w := tc.b.post(tc.path, tc.form)
			require.Equal(t, http.StatusFound, w.Code)
			assert.Equal(t, before, countRows(t, a, tc.model))
		})
	}
}

func TestAdminOnlyMutations(t *testing.T) {
	a := newApp(t)
	acme := dbtest.SeedTenant(t, a.db, "Acme", "admin@acme.test")
	rows := seedAcme(t, a, acme.Company.ID)

	staff := a.browser()
	staff.loginStaff("staff@acme.test")

	w := staff.post(idPath("/equipment", rows.equipment.ID, "/delete"), nil)
	require.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/tickets", w.Header().Get("Location"))
	assertExists(t, a, &models.EquipmentInventoryItem{}, rows.equipment.ID)

	msgs := staff.flashes("/notifications")
	require.NotEmpty(t, msgs)
	assert.Equal(t, "Действие доступно только администратору", msgs[0]["text"])

	before := countRows(t, a, &models.ClientCredential{})
	staff.post("/clients/new", url.Values{"username": {"carol"}, "password": {"pw123456"}})
	assert.Equal(t, before, countRows(t, a, &models.ClientCredential{}))

	assert.Equal(t, http.StatusForbidden, staff.get("/audit").Code)
}

func assertExists(t *testing.T, a *app, model any, id uint) {
	t.Helper()
	var n int64
	require.NoError(t, a.db.Model(model).Where("id = ?", id).Count(&n).Error)
	assert.EqualValues(t, 1, n)
}

func countRows(t *testing.T, a *app, model any) int64 {
	t.Helper()
	var n int64
	require.NoError(t, a.db.Model(model).Count(&n).Error)
	return n
}
