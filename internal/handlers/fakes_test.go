package handlers_test

import (
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/lromero/commerce-api/internal/domain"
	"github.com/lromero/commerce-api/internal/mailer"
	"github.com/lromero/commerce-api/internal/middleware"
	"github.com/lromero/commerce-api/internal/models"
)

// withSession injects a session into the request locals, standing in for the
// auth middleware.
func withSession(s models.Session) fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.Locals(middleware.SessionKey, s)
		return c.Next()
	}
}

type roleChange struct {
	UserID string
	Role   string
}

// fakeUserStore satisfies handlers.UserStore and services.UserStore.
type fakeUserStore struct {
	usersByEmail map[string]models.User
	inactive     []models.User

	roleChanges     []roleChange
	attachedDocs    map[string][]models.Document
	profilePics     map[string]models.StoredFile
	resetTokens     map[string]string
	resetExpiries   map[string]time.Time
	passwords       map[string]string
	lastConnections map[string]time.Time
	deletedIDs      []string
	bulkDeletes     int

	deleteInactiveErr error
}

func newFakeUserStore(users ...models.User) *fakeUserStore {
	s := &fakeUserStore{
		usersByEmail:    map[string]models.User{},
		attachedDocs:    map[string][]models.Document{},
		profilePics:     map[string]models.StoredFile{},
		resetTokens:     map[string]string{},
		resetExpiries:   map[string]time.Time{},
		passwords:       map[string]string{},
		lastConnections: map[string]time.Time{},
	}
	for _, u := range users {
		s.usersByEmail[u.Email] = u
	}
	return s
}

func (s *fakeUserStore) GetUserByID(_ context.Context, id string) (models.User, error) {
	for _, u := range s.usersByEmail {
		if u.ID.Hex() == id {
			return u, nil
		}
	}
	return models.User{}, domain.ErrNotFound
}

func (s *fakeUserStore) GetUserByEmail(_ context.Context, email string) (models.User, error) {
	u, ok := s.usersByEmail[email]
	if !ok {
		return models.User{}, domain.ErrNotFound
	}
	return u, nil
}

func (s *fakeUserStore) GetAllUsers(_ context.Context) ([]models.User, error) {
	var all []models.User
	for _, u := range s.usersByEmail {
		all = append(all, u)
	}
	return all, nil
}

func (s *fakeUserStore) CreateUser(_ context.Context, user models.User) (models.User, error) {
	if _, exists := s.usersByEmail[user.Email]; exists {
		return models.User{}, domain.ErrDuplicate
	}
	user.ID = primitive.NewObjectID()
	s.usersByEmail[user.Email] = user
	return user, nil
}

func (s *fakeUserStore) UpdateUserRole(_ context.Context, id, role string) error {
	s.roleChanges = append(s.roleChanges, roleChange{UserID: id, Role: role})
	return nil
}

func (s *fakeUserStore) UpdateLastConnection(_ context.Context, id string, t time.Time) error {
	s.lastConnections[id] = t
	return nil
}

func (s *fakeUserStore) AttachDocuments(_ context.Context, id string, docs []models.Document) error {
	s.attachedDocs[id] = append(s.attachedDocs[id], docs...)
	return nil
}

func (s *fakeUserStore) SetProfilePic(_ context.Context, id string, pic models.StoredFile) error {
	s.profilePics[id] = pic
	return nil
}

func (s *fakeUserStore) SetResetToken(_ context.Context, id, token string, expires time.Time) error {
	s.resetTokens[id] = token
	s.resetExpiries[id] = expires
	return nil
}

func (s *fakeUserStore) UserByResetToken(_ context.Context, token string) (models.User, error) {
	for id, stored := range s.resetTokens {
		if stored == token && s.resetExpiries[id].After(time.Now()) {
			u, err := s.GetUserByID(context.Background(), id)
			if err != nil {
				return models.User{}, err
			}
			return u, nil
		}
	}
	return models.User{}, domain.ErrNotFound
}

func (s *fakeUserStore) UpdatePassword(_ context.Context, id, hash string) error {
	s.passwords[id] = hash
	return nil
}

func (s *fakeUserStore) FindInactiveUsers(_ context.Context) ([]models.User, error) {
	return s.inactive, nil
}

func (s *fakeUserStore) DeleteInactiveUsers(_ context.Context) (int64, error) {
	if s.deleteInactiveErr != nil {
		return 0, s.deleteInactiveErr
	}
	s.bulkDeletes++
	return int64(len(s.inactive)), nil
}

func (s *fakeUserStore) DeleteUserByID(_ context.Context, id string) error {
	s.deletedIDs = append(s.deletedIDs, id)
	return nil
}

// fakeMailer records sent messages; an optional error makes every send fail.
type fakeMailer struct {
	sent []mailer.Message
	err  error
}

func (m *fakeMailer) Send(msg mailer.Message) error {
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, msg)
	return nil
}

// fakeUploader derives deterministic stored names from the original names.
type fakeUploader struct {
	saveErr error
}

func (u *fakeUploader) SaveDocuments(_ context.Context, files []*multipart.FileHeader) ([]models.StoredFile, error) {
	if u.saveErr != nil {
		return nil, u.saveErr
	}
	stored := make([]models.StoredFile, len(files))
	for i, fh := range files {
		stored[i] = models.StoredFile{
			Filename:     fmt.Sprintf("documents/1700000000000_%s", fh.Filename),
			OriginalName: fh.Filename,
		}
	}
	return stored, nil
}

func (u *fakeUploader) SaveProfilePic(_ context.Context, file *multipart.FileHeader) (models.StoredFile, error) {
	if u.saveErr != nil {
		return models.StoredFile{}, u.saveErr
	}
	return models.StoredFile{
		Filename:     fmt.Sprintf("profiles/1700000000000_%s", file.Filename),
		OriginalName: file.Filename,
	}, nil
}

// fakeProductStore records calls and replies with configured results.
type fakeProductStore struct {
	page      models.ProductPage
	product   models.Product
	createErr error
	deleteErr error
	updateErr error
	getErr    error

	lastQuery   models.ProductQuery
	lastSession models.Session
	lastInput   models.ProductInput
	lastPatch   map[string]any
	deletedIDs  []string
}

func (s *fakeProductStore) GetAllProducts(_ context.Context, q models.ProductQuery) (models.ProductPage, error) {
	s.lastQuery = q
	page := s.page
	page.Query = q
	return page, nil
}

func (s *fakeProductStore) GetProductByID(_ context.Context, id string) (models.Product, error) {
	if s.getErr != nil {
		return models.Product{}, s.getErr
	}
	return s.product, nil
}

func (s *fakeProductStore) CreateProduct(_ context.Context, session models.Session, in models.ProductInput) (models.Product, error) {
	s.lastSession = session
	s.lastInput = in
	if s.createErr != nil {
		return models.Product{}, s.createErr
	}
	return models.Product{ID: primitive.NewObjectID(), Title: in.Title}, nil
}

func (s *fakeProductStore) UpdateProduct(_ context.Context, id string, patch map[string]any) error {
	s.lastPatch = patch
	return s.updateErr
}

func (s *fakeProductStore) DeleteProduct(_ context.Context, session models.Session, id string) error {
	s.lastSession = session
	if s.deleteErr != nil {
		return s.deleteErr
	}
	s.deletedIDs = append(s.deletedIDs, id)
	return nil
}

var errUpstream = errors.New("upstream failure")
