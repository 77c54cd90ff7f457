package handlers_test

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/lromero/commerce-api/internal/handlers"
	"github.com/lromero/commerce-api/internal/models"
)

func userTestApp(session models.Session, users *fakeUserStore, uploads *fakeUploader, mail *fakeMailer) *fiber.App {
	h := handlers.NewUserHandler(users, uploads, mail, "noreply@commerce.test")
	app := fiber.New()
	app.Get("/api/users", withSession(session), h.GetUsers)
	app.Delete("/api/users/inactive", withSession(session), h.DeleteInactive)
	app.Delete("/api/users/:uid", withSession(session), h.DeleteUser)
	app.Put("/api/users/premium/:uid", withSession(session), h.AdminRoleUpdate)
	app.Put("/api/users/role", withSession(session), h.UpdateRole)
	app.Post("/api/users/profilepic", withSession(session), h.UploadProfilePic)
	return app
}

func userSession() models.Session {
	return models.Session{
		UserID: primitive.NewObjectID().Hex(),
		Email:  "a@x.com",
		Role:   models.RoleUser,
	}
}

// upgradeRequest builds a multipart PUT /api/users/role with the given role
// field and one document part per file name.
func upgradeRequest(t *testing.T, role string, fileNames []string) *http.Request {
	t.Helper()
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	require.NoError(t, w.WriteField("role", role))
	for _, name := range fileNames {
		fw, err := w.CreateFormFile("documents", name)
		require.NoError(t, err)
		_, err = fw.Write([]byte("document payload"))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPut, "/api/users/role", body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func TestUpdateRole_PremiumWithThreeDocuments(t *testing.T) {
	session := userSession()
	users := newFakeUserStore()
	app := userTestApp(session, users, &fakeUploader{}, &fakeMailer{})

	names := []string{"id.pdf", "address.pdf", "bank.pdf"}
	resp, err := app.Test(upgradeRequest(t, models.RolePremium, names), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	require.Len(t, users.roleChanges, 1)
	assert.Equal(t, roleChange{UserID: session.UserID, Role: models.RolePremium}, users.roleChanges[0])

	docs := users.attachedDocs[session.UserID]
	require.Len(t, docs, 3)
	for i, name := range names {
		assert.Equal(t, name, docs[i].DocName)
		assert.Equal(t, "documents/1700000000000_"+name, docs[i].DocReference)
	}
}

// A premium request with fewer than three documents still changes the role
// but attaches nothing, and the caller sees no error.
func TestUpdateRole_PremiumWithTwoDocuments(t *testing.T) {
	session := userSession()
	users := newFakeUserStore()
	app := userTestApp(session, users, &fakeUploader{}, &fakeMailer{})

	resp, err := app.Test(upgradeRequest(t, models.RolePremium, []string{"id.pdf", "address.pdf"}), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	require.Len(t, users.roleChanges, 1)
	assert.Equal(t, models.RolePremium, users.roleChanges[0].Role)
	assert.Empty(t, users.attachedDocs[session.UserID])
}

func TestUpdateRole_TooManyDocuments(t *testing.T) {
	session := userSession()
	users := newFakeUserStore()
	app := userTestApp(session, users, &fakeUploader{}, &fakeMailer{})

	names := []string{"a.pdf", "b.pdf", "c.pdf", "d.pdf"}
	resp, err := app.Test(upgradeRequest(t, models.RolePremium, names), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Empty(t, users.roleChanges, "rejected upload must not change the role")
}

func TestUpdateRole_NonPremiumAttachesNothing(t *testing.T) {
	session := userSession()
	users := newFakeUserStore()
	app := userTestApp(session, users, &fakeUploader{}, &fakeMailer{})

	resp, err := app.Test(upgradeRequest(t, models.RoleUser, nil), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, users.roleChanges, 1)
	assert.Empty(t, users.attachedDocs[session.UserID])
}

func TestUploadProfilePic(t *testing.T) {
	session := userSession()
	users := newFakeUserStore()
	app := userTestApp(session, users, &fakeUploader{}, &fakeMailer{})

	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	fw, err := w.CreateFormFile("profilePic", "me.png")
	require.NoError(t, err)
	_, err = fw.Write([]byte("png bytes"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/users/profilepic", body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	pic, ok := users.profilePics[session.UserID]
	require.True(t, ok)
	assert.Equal(t, "me.png", pic.OriginalName)
	assert.Equal(t, "profiles/1700000000000_me.png", pic.Filename)
}

func adminSession() models.Session {
	return models.Session{
		UserID: primitive.NewObjectID().Hex(),
		Email:  "admin@x.com",
		Role:   models.RoleAdmin,
	}
}

func TestDeleteInactive_SendsNoticesThenDeletes(t *testing.T) {
	users := newFakeUserStore()
	users.inactive = []models.User{
		{ID: primitive.NewObjectID(), Email: "old1@x.com", LastConnection: time.Now().Add(-72 * time.Hour)},
		{ID: primitive.NewObjectID(), Email: "old2@x.com", LastConnection: time.Now().Add(-96 * time.Hour)},
	}
	mail := &fakeMailer{}
	app := userTestApp(adminSession(), users, &fakeUploader{}, mail)

	req := httptest.NewRequest(http.MethodDelete, "/api/users/inactive", nil)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	require.Len(t, mail.sent, 2)
	recipients := []string{mail.sent[0].To, mail.sent[1].To}
	assert.ElementsMatch(t, []string{"old1@x.com", "old2@x.com"}, recipients)
	for _, m := range mail.sent {
		assert.Equal(t, "Account Deletion Notice", m.Subject)
	}
	assert.Equal(t, 1, users.bulkDeletes)

	var payload struct {
		Deleted int64 `json:"deleted"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
	assert.Equal(t, int64(2), payload.Deleted)
}

func TestDeleteInactive_MailFailureAbortsDeletion(t *testing.T) {
	users := newFakeUserStore()
	users.inactive = []models.User{
		{ID: primitive.NewObjectID(), Email: "old1@x.com"},
	}
	mail := &fakeMailer{err: errUpstream}
	app := userTestApp(adminSession(), users, &fakeUploader{}, mail)

	req := httptest.NewRequest(http.MethodDelete, "/api/users/inactive", nil)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Zero(t, users.bulkDeletes)
}

func TestDeleteInactive_RequiresAdmin(t *testing.T) {
	users := newFakeUserStore()
	users.inactive = []models.User{{ID: primitive.NewObjectID(), Email: "old1@x.com"}}
	mail := &fakeMailer{}
	app := userTestApp(userSession(), users, &fakeUploader{}, mail)

	req := httptest.NewRequest(http.MethodDelete, "/api/users/inactive", nil)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Empty(t, mail.sent)
	assert.Zero(t, users.bulkDeletes)
}

func TestDeleteUser_RequiresAdmin(t *testing.T) {
	users := newFakeUserStore()
	app := userTestApp(userSession(), users, &fakeUploader{}, &fakeMailer{})

	req := httptest.NewRequest(http.MethodDelete, "/api/users/"+primitive.NewObjectID().Hex(), nil)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Empty(t, users.deletedIDs)
}

func TestDeleteUser_AsAdmin(t *testing.T) {
	users := newFakeUserStore()
	app := userTestApp(adminSession(), users, &fakeUploader{}, &fakeMailer{})

	target := primitive.NewObjectID().Hex()
	req := httptest.NewRequest(http.MethodDelete, "/api/users/"+target, nil)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, []string{target}, users.deletedIDs)
}

func TestAdminRoleUpdate(t *testing.T) {
	users := newFakeUserStore()
	app := userTestApp(adminSession(), users, &fakeUploader{}, &fakeMailer{})

	target := primitive.NewObjectID().Hex()
	body := bytes.NewBufferString(`{"role":"premium"}`)
	req := httptest.NewRequest(http.MethodPut, "/api/users/premium/"+target, body)
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, users.roleChanges, 1)
	assert.Equal(t, roleChange{UserID: target, Role: models.RolePremium}, users.roleChanges[0])
}
