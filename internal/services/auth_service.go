package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/crypto/bcrypt"

	"github.com/lromero/commerce-api/internal/domain"
	"github.com/lromero/commerce-api/internal/models"
)

// UserStore is the slice of the user DAO the auth services need.
type UserStore interface {
	GetUserByEmail(ctx context.Context, email string) (models.User, error)
	CreateUser(ctx context.Context, user models.User) (models.User, error)
	UpdateLastConnection(ctx context.Context, id string, t time.Time) error
}

// HashPassword hashes a password using bcrypt.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(hash), err
}

// VerifyPassword compares a plain password with a hashed password.
func VerifyPassword(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// SessionForUser builds the session-scoped snapshot of a user.
func SessionForUser(u models.User) models.Session {
	return models.Session{
		UserID:    u.ID.Hex(),
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Age:       u.Age,
		Email:     u.Email,
		Role:      u.Role,
		Cart:      u.Cart.Hex(),
	}
}

type RegisterInput struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Age       int    `json:"age"`
	Email     string `json:"email"`
	Password  string `json:"password"`
}

type AuthService struct {
	users  UserStore
	secret []byte
	ttl    time.Duration
}

func NewAuthService(users UserStore, secret string, ttl time.Duration) *AuthService {
	return &AuthService{users: users, secret: []byte(secret), ttl: ttl}
}

// Register creates a user with role "user" and a fresh cart reference.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (models.User, error) {
	if in.Email == "" || in.Password == "" {
		return models.User{}, fmt.Errorf("email and password are required: %w", domain.ErrValidation)
	}

	hash, err := HashPassword(in.Password)
	if err != nil {
		return models.User{}, fmt.Errorf("hash password: %w", err)
	}

	user := models.User{
		FirstName:      in.FirstName,
		LastName:       in.LastName,
		Age:            in.Age,
		Email:          in.Email,
		Password:       hash,
		Role:           models.RoleUser,
		LastConnection: time.Now(),
		Cart:           primitive.NewObjectID(),
	}
	return s.users.CreateUser(ctx, user)
}

// Login verifies credentials, records last_connection = now and returns the
// signed session token together with the session snapshot. Any mismatch,
// unknown email included, reports invalid credentials.
func (s *AuthService) Login(ctx context.Context, email, password string) (string, models.Session, error) {
	user, err := s.users.GetUserByEmail(ctx, email)
	if errors.Is(err, domain.ErrNotFound) {
		return "", models.Session{}, domain.ErrInvalidCredentials
	}
	if err != nil {
		return "", models.Session{}, fmt.Errorf("login lookup: %w", err)
	}

	if !VerifyPassword(password, user.Password) {
		return "", models.Session{}, domain.ErrInvalidCredentials
	}

	if err := s.users.UpdateLastConnection(ctx, user.ID.Hex(), time.Now()); err != nil {
		return "", models.Session{}, fmt.Errorf("record last connection: %w", err)
	}

	token, err := s.TokenForUser(user)
	if err != nil {
		return "", models.Session{}, err
	}
	return token, SessionForUser(user), nil
}

// TokenForUser signs a session token carrying the full session snapshot.
func (s *AuthService) TokenForUser(u models.User) (string, error) {
	claims := jwt.MapClaims{
		"user_id":    u.ID.Hex(),
		"first_name": u.FirstName,
		"last_name":  u.LastName,
		"age":        u.Age,
		"email":      u.Email,
		"role":       u.Role,
		"cart":       u.Cart.Hex(),
		"exp":        time.Now().Add(s.ttl).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign session token: %w", err)
	}
	return signed, nil
}
