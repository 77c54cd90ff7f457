package handlers

import (
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/lromero/commerce-api/internal/domain"
	"github.com/lromero/commerce-api/internal/mailer"
	"github.com/lromero/commerce-api/internal/middleware"
	"github.com/lromero/commerce-api/internal/models"
	"github.com/lromero/commerce-api/internal/storage"
	"github.com/lromero/commerce-api/internal/utils"
)

// maxUpgradeDocuments is both the upload cap and the count required for a
// complete premium upgrade.
const maxUpgradeDocuments = 3

// UserStore is the slice of the user DAO the handlers need. *dao.UserDAO
// satisfies it; tests substitute fakes.
type UserStore interface {
	GetUserByID(ctx context.Context, id string) (models.User, error)
	GetUserByEmail(ctx context.Context, email string) (models.User, error)
	GetAllUsers(ctx context.Context) ([]models.User, error)
	UpdateUserRole(ctx context.Context, id, role string) error
	AttachDocuments(ctx context.Context, id string, docs []models.Document) error
	SetProfilePic(ctx context.Context, id string, pic models.StoredFile) error
	SetResetToken(ctx context.Context, id, token string, expires time.Time) error
	UserByResetToken(ctx context.Context, token string) (models.User, error)
	UpdatePassword(ctx context.Context, id, hash string) error
	FindInactiveUsers(ctx context.Context) ([]models.User, error)
	DeleteInactiveUsers(ctx context.Context) (int64, error)
	DeleteUserByID(ctx context.Context, id string) error
}

type UserHandler struct {
	users    UserStore
	uploads  storage.Uploader
	mail     mailer.Sender
	mailFrom string
}

func NewUserHandler(users UserStore, uploads storage.Uploader, mail mailer.Sender, mailFrom string) *UserHandler {
	return &UserHandler{users: users, uploads: uploads, mail: mail, mailFrom: mailFrom}
}

func (h *UserHandler) GetUsers(c *fiber.Ctx) error {
	users, err := h.users.GetAllUsers(c.Context())
	if err != nil {
		return serverError(c, err, "list users")
	}
	return c.JSON(users)
}

// DeleteInactive mails a deletion notice to every inactive user, then bulk
// deletes them. The notices are not compensable: if the delete fails after
// the fan-out, they have already gone out.
func (h *UserHandler) DeleteInactive(c *fiber.Ctx) error {
	session, ok := middleware.SessionFrom(c)
	if !ok || session.Role != models.RoleAdmin {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Access denied. Admins only."})
	}

	inactive, err := h.users.FindInactiveUsers(c.Context())
	if err != nil {
		return serverError(c, err, "find inactive users")
	}

	tasks := make([]func() error, len(inactive))
	for i, user := range inactive {
		to := user.Email
		tasks[i] = func() error {
			return h.mail.Send(mailer.Message{
				From:    h.mailFrom,
				To:      to,
				Subject: "Account Deletion Notice",
				Text:    "Account has been deleted due to inactivity.",
			})
		}
	}
	for i, err := range utils.RunParallel(tasks) {
		if err != nil {
			log.Error().Err(err).Str("to", inactive[i].Email).Msg("send deletion notice")
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "server error"})
		}
	}

	deleted, err := h.users.DeleteInactiveUsers(c.Context())
	if err != nil {
		return serverError(c, err, "delete inactive users")
	}
	return c.JSON(fiber.Map{"status": "success", "deleted": deleted})
}

func (h *UserHandler) DeleteUser(c *fiber.Ctx) error {
	session, ok := middleware.SessionFrom(c)
	if !ok || session.Role != models.RoleAdmin {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Access denied. Admins only."})
	}

	err := h.users.DeleteUserByID(c.Context(), c.Params("uid"))
	if errors.Is(err, domain.ErrNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "User not found"})
	}
	if err != nil {
		return serverError(c, err, "delete user")
	}
	return c.JSON(fiber.Map{"status": "success", "message": "User deleted"})
}

// AdminRoleUpdate applies a role change to an arbitrary target user,
// unconditionally.
func (h *UserHandler) AdminRoleUpdate(c *fiber.Ctx) error {
	session, ok := middleware.SessionFrom(c)
	if !ok || session.Role != models.RoleAdmin {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Access denied. Admins only."})
	}

	var request struct {
		Role string `json:"role" form:"role"`
	}
	if err := c.BodyParser(&request); err != nil || request.Role == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Missing role"})
	}

	err := h.users.UpdateUserRole(c.Context(), c.Params("uid"), request.Role)
	if errors.Is(err, domain.ErrNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "User not found"})
	}
	if err != nil {
		return serverError(c, err, "admin role update")
	}
	return c.JSON(fiber.Map{"status": "success", "role": request.Role})
}

// UpdateRole is the self-service upgrade: up to three "documents" uploads are
// stored, the role is set from the form, and the document references are
// attached only when the new role is premium and exactly three documents were
// uploaded. A premium request with fewer documents still changes the role but
// attaches nothing; the gap is only logged.
func (h *UserHandler) UpdateRole(c *fiber.Ctx) error {
	session, ok := middleware.SessionFrom(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Missing session"})
	}

	var files []*multipart.FileHeader
	if form, err := c.MultipartForm(); err == nil && form != nil {
		files = form.File["documents"]
	}
	if len(files) > maxUpgradeDocuments {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": fmt.Sprintf("At most %d documents are accepted", maxUpgradeDocuments),
		})
	}

	stored, err := h.uploads.SaveDocuments(c.Context(), files)
	if err != nil {
		log.Error().Err(err).Msg("upload documents")
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Error uploading documents"})
	}

	newRole := c.FormValue("role")
	if newRole == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Missing role"})
	}
	if err := h.users.UpdateUserRole(c.Context(), session.UserID, newRole); err != nil {
		return serverError(c, err, "update user role")
	}

	if newRole == models.RolePremium && len(stored) == maxUpgradeDocuments {
		docs := make([]models.Document, len(stored))
		for i, sf := range stored {
			docs[i] = models.Document{DocName: sf.OriginalName, DocReference: sf.Filename}
		}
		if err := h.users.AttachDocuments(c.Context(), session.UserID, docs); err != nil {
			return serverError(c, err, "attach documents")
		}
		return c.JSON(fiber.Map{"status": "success", "role": newRole, "documents": docs})
	}

	if newRole == models.RolePremium {
		log.Warn().
			Str("user_id", session.UserID).
			Int("documents", len(stored)).
			Msg("premium upgrade requires 3 documents; role changed without attachments")
	}
	return c.JSON(fiber.Map{"status": "success", "role": newRole})
}

// UploadProfilePic stores a single "profilePic" upload and attaches its
// reference to the session user.
func (h *UserHandler) UploadProfilePic(c *fiber.Ctx) error {
	session, ok := middleware.SessionFrom(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Missing session"})
	}

	fh, err := c.FormFile("profilePic")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Error uploading profile picture"})
	}

	stored, err := h.uploads.SaveProfilePic(c.Context(), fh)
	if err != nil {
		log.Error().Err(err).Msg("upload profile picture")
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Error uploading profile picture"})
	}

	if err := h.users.SetProfilePic(c.Context(), session.UserID, stored); err != nil {
		return serverError(c, err, "update profile picture")
	}
	return c.JSON(fiber.Map{"status": "success", "profile_pic": stored})
}
