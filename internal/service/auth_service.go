package service

import (
	"context"
	"regexp"
	"time"

	"fintrack/internal/domain"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const (
	// sessionTTL bounds how long a login stays valid.
	sessionTTL = 24 * time.Hour

	bcryptCost = 12

	usernameMin = 3
	usernameMax = 50
	passwordMin = 8
	passwordMax = 100
	emailMax    = 255
)

var (
	usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)
	emailPattern    = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
)

// AuthService owns account lifecycle and cookie sessions.
type AuthService struct {
	users    domain.UserRepository
	sessions domain.SessionRepository
}

func NewAuthService(users domain.UserRepository, sessions domain.SessionRepository) *AuthService {
	return &AuthService{users: users, sessions: sessions}
}

func validateRegistration(username, email, password string) error {
	switch {
	case len(username) < usernameMin || len(username) > usernameMax:
		return domain.ErrInvalidInput
	case !usernamePattern.MatchString(username):
		return domain.ErrInvalidInput
	case len(email) > emailMax || !emailPattern.MatchString(email):
		return domain.ErrInvalidInput
	case len(password) < passwordMin || len(password) > passwordMax:
		return domain.ErrInvalidInput
	}
	return nil
}

func (s *AuthService) Register(ctx context.Context, username, email, password string) (*domain.User, error) {
	if err := validateRegistration(username, email, password); err != nil {
		return nil, err
	}

	if _, err := s.users.GetByUsername(ctx, username); err == nil {
		return nil, domain.ErrUsernameExists
	}
	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return nil, domain.ErrEmailExists
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return nil, err
	}

	user := &domain.User{
		Username:     username,
		Email:        email,
		PasswordHash: string(hash),
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// Login verifies credentials and opens a session. Unknown usernames and bad
// passwords return the same error, so responses cannot enumerate accounts.
func (s *AuthService) Login(ctx context.Context, username, password string) (*domain.Session, *domain.User, error) {
	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		return nil, nil, domain.ErrInvalidCredentials
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return nil, nil, domain.ErrInvalidCredentials
	}

	session := &domain.Session{
		UserID:    user.ID,
		Token:     uuid.NewString(),
		ExpiresAt: time.Now().Add(sessionTTL),
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, nil, err
	}
	return session, user, nil
}

func (s *AuthService) Logout(ctx context.Context, token string) error {
	return s.sessions.Delete(ctx, token)
}

func (s *AuthService) ValidateSession(ctx context.Context, token string) (*domain.Session, error) {
	return s.sessions.GetByToken(ctx, token)
}

func (s *AuthService) GetUserByID(ctx context.Context, userID string) (*domain.User, error) {
	return s.users.GetByID(ctx, userID)
}
