package handlers

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/lromero/commerce-api/internal/domain"
	"github.com/lromero/commerce-api/internal/mailer"
	"github.com/lromero/commerce-api/internal/middleware"
	"github.com/lromero/commerce-api/internal/services"
)

const (
	sessionCookie    = "session_token"
	oauthStateCookie = "oauth_state"
	resetTokenTTL    = time.Hour
)

// SessionHandler covers registration, login/logout, the OAuth flow and
// password recovery.
type SessionHandler struct {
	auth     *services.AuthService
	oauth    *services.GitHubOAuth
	users    UserStore
	mail     mailer.Sender
	mailFrom string
	baseURL  string
}

func NewSessionHandler(auth *services.AuthService, oauth *services.GitHubOAuth, users UserStore, mail mailer.Sender, mailFrom, baseURL string) *SessionHandler {
	return &SessionHandler{auth: auth, oauth: oauth, users: users, mail: mail, mailFrom: mailFrom, baseURL: baseURL}
}

func (h *SessionHandler) Register(c *fiber.Ctx) error {
	var request services.RegisterInput
	if err := c.BodyParser(&request); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	user, err := h.auth.Register(c.Context(), request)
	if errors.Is(err, domain.ErrDuplicate) || errors.Is(err, domain.ErrValidation) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	if err != nil {
		return serverError(c, err, "register user")
	}

	return c.JSON(fiber.Map{"message": "User registered successfully", "user": user})
}

func (h *SessionHandler) Login(c *fiber.Ctx) error {
	var request struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.BodyParser(&request); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	token, session, err := h.auth.Login(c.Context(), request.Email, request.Password)
	if errors.Is(err, domain.ErrInvalidCredentials) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"status": "error", "error": "Invalid credentials"})
	}
	if err != nil {
		return serverError(c, err, "login user")
	}

	c.Cookie(&fiber.Cookie{
		Name:     sessionCookie,
		Value:    token,
		Expires:  time.Now().Add(24 * time.Hour),
		HTTPOnly: true,
	})
	return c.JSON(fiber.Map{"status": "success", "token": token, "user": session})
}

func (h *SessionHandler) Logout(c *fiber.Ctx) error {
	c.Cookie(&fiber.Cookie{
		Name:     sessionCookie,
		Value:    "",
		Expires:  time.Now().Add(-time.Hour),
		HTTPOnly: true,
	})
	return c.JSON(fiber.Map{"message": "Logged out"})
}

// Current echoes the session snapshot restored by the auth middleware.
func (h *SessionHandler) Current(c *fiber.Ctx) error {
	session, ok := middleware.SessionFrom(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Missing session"})
	}
	return c.JSON(session)
}

func (h *SessionHandler) GithubLogin(c *fiber.Ctx) error {
	state, err := randomToken(16)
	if err != nil {
		return serverError(c, err, "generate oauth state")
	}
	c.Cookie(&fiber.Cookie{
		Name:     oauthStateCookie,
		Value:    state,
		Expires:  time.Now().Add(10 * time.Minute),
		HTTPOnly: true,
	})
	return c.Redirect(h.oauth.LoginURL(state))
}

// GithubCallback finishes the handshake. Any failure redirects back to login
// instead of surfacing an error page.
func (h *SessionHandler) GithubCallback(c *fiber.Ctx) error {
	state := c.Query("state")
	if state == "" || state != c.Cookies(oauthStateCookie) {
		log.Warn().Msg("github callback with mismatched state")
		return c.Redirect("/api/sessions/login")
	}

	user, err := h.oauth.Callback(c.Context(), c.Query("code"))
	if err != nil {
		log.Error().Err(err).Msg("github callback")
		return c.Redirect("/api/sessions/login")
	}

	token, err := h.auth.TokenForUser(user)
	if err != nil {
		log.Error().Err(err).Msg("github callback token")
		return c.Redirect("/api/sessions/login")
	}

	c.Cookie(&fiber.Cookie{
		Name:     sessionCookie,
		Value:    token,
		Expires:  time.Now().Add(24 * time.Hour),
		HTTPOnly: true,
	})
	return c.Redirect("/api/products")
}

// PasswordRecover starts password recovery: for a known email it stores a
// fresh 40-hex-char token with a one hour expiry and mails the recovery link.
// An unknown email is reported as data, not as an error status.
func (h *SessionHandler) PasswordRecover(c *fiber.Ctx) error {
	var request struct {
		Email string `json:"email"`
	}
	if err := c.BodyParser(&request); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	user, err := h.users.GetUserByEmail(c.Context(), request.Email)
	if errors.Is(err, domain.ErrNotFound) {
		return c.JSON(fiber.Map{"status": "error", "error": "User not found"})
	}
	if err != nil {
		return serverError(c, err, "recovery lookup")
	}

	token, err := randomToken(20)
	if err != nil {
		return serverError(c, err, "generate recovery token")
	}
	if err := h.users.SetResetToken(c.Context(), user.ID.Hex(), token, time.Now().Add(resetTokenTTL)); err != nil {
		return serverError(c, err, "store recovery token")
	}

	link := fmt.Sprintf("%s/api/sessions/passrecover/%s", h.baseURL, token)
	err = h.mail.Send(mailer.Message{
		From:    h.mailFrom,
		To:      user.Email,
		Subject: "Password recovery",
		Text:    fmt.Sprintf("Click the following link to recover your password: %s", link),
		HTML:    fmt.Sprintf(`Click the following link to recover your password: <a href="%s">%s</a>`, link, link),
	})
	if err != nil {
		return serverError(c, err, "send recovery mail")
	}

	return c.JSON(fiber.Map{"status": "success", "message": "Recovery email sent"})
}

// PasswordReset consumes a recovery token and sets the new password.
func (h *SessionHandler) PasswordReset(c *fiber.Ctx) error {
	var request struct {
		Password string `json:"password"`
	}
	if err := c.BodyParser(&request); err != nil || request.Password == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	user, err := h.users.UserByResetToken(c.Context(), c.Params("token"))
	if errors.Is(err, domain.ErrNotFound) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"status": "error", "error": "Invalid or expired token"})
	}
	if err != nil {
		return serverError(c, err, "reset token lookup")
	}

	hash, err := services.HashPassword(request.Password)
	if err != nil {
		return serverError(c, err, "hash new password")
	}
	if err := h.users.UpdatePassword(c.Context(), user.ID.Hex(), hash); err != nil {
		return serverError(c, err, "update password")
	}

	return c.JSON(fiber.Map{"status": "success", "message": "Password updated"})
}

func randomToken(bytes int) (string, error) {
	buf := make([]byte, bytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

func serverError(c *fiber.Ctx, err error, msg string) error {
	log.Error().Err(err).Msg(msg)
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "server error"})
}
