package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/oauth2"
	githuboauth "golang.org/x/oauth2/github"

	"github.com/lromero/commerce-api/internal/domain"
	"github.com/lromero/commerce-api/internal/models"
)

const githubUserURL = "https://api.github.com/user"

// GitHubOAuth performs the external identity handshake and maps the GitHub
// profile onto a local user, creating one on first login.
type GitHubOAuth struct {
	conf  *oauth2.Config
	users UserStore
}

func NewGitHubOAuth(clientID, clientSecret, callbackURL string, users UserStore) *GitHubOAuth {
	return &GitHubOAuth{
		conf: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  callbackURL,
			Scopes:       []string{"user:email"},
			Endpoint:     githuboauth.Endpoint,
		},
		users: users,
	}
}

// LoginURL is the provider authorize URL the client gets redirected to.
func (s *GitHubOAuth) LoginURL(state string) string {
	return s.conf.AuthCodeURL(state)
}

type githubProfile struct {
	Login string `json:"login"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Callback exchanges the authorization code, fetches the GitHub profile and
// returns the matching local user, creating it when the email is unknown.
func (s *GitHubOAuth) Callback(ctx context.Context, code string) (models.User, error) {
	token, err := s.conf.Exchange(ctx, code)
	if err != nil {
		return models.User{}, fmt.Errorf("exchange oauth code: %w", err)
	}

	profile, err := s.fetchProfile(ctx, token)
	if err != nil {
		return models.User{}, err
	}

	email := profile.Email
	if email == "" {
		// GitHub hides the email for private profiles; fall back to the
		// noreply address so the account still has a stable unique key.
		email = profile.Login + "@users.noreply.github.com"
	}

	user, err := s.users.GetUserByEmail(ctx, email)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return models.User{}, fmt.Errorf("oauth user lookup: %w", err)
	}

	first, last := splitName(profile.Name, profile.Login)
	return s.users.CreateUser(ctx, models.User{
		FirstName:      first,
		LastName:       last,
		Email:          email,
		Role:           models.RoleUser,
		LastConnection: time.Now(),
		Cart:           primitive.NewObjectID(),
	})
}

func (s *GitHubOAuth) fetchProfile(ctx context.Context, token *oauth2.Token) (githubProfile, error) {
	client := s.conf.Client(ctx, token)
	resp, err := client.Get(githubUserURL)
	if err != nil {
		return githubProfile{}, fmt.Errorf("fetch github profile: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return githubProfile{}, fmt.Errorf("fetch github profile: status %d", resp.StatusCode)
	}

	var profile githubProfile
	if err := json.NewDecoder(resp.Body).Decode(&profile); err != nil {
		return githubProfile{}, fmt.Errorf("decode github profile: %w", err)
	}
	return profile, nil
}

func splitName(fullName, fallback string) (first, last string) {
	fullName = strings.TrimSpace(fullName)
	if fullName == "" {
		return fallback, ""
	}
	parts := strings.SplitN(fullName, " ", 2)
	if len(parts) == 1 {
		return parts[0], ""
	}
	return parts[0], parts[1]
}
