package services

import (
	"context"
	"errors"
	"strings"

	"github.com/AnshRaj112/inkwell-backend/internal/apperr"
	"github.com/AnshRaj112/inkwell-backend/internal/models"
	"github.com/AnshRaj112/inkwell-backend/internal/repository"
	"github.com/AnshRaj112/inkwell-backend/pkg/utils"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// SessionStore issues and resolves bearer tokens.
type SessionStore interface {
	Create(ctx context.Context, userID uuid.UUID) (string, error)
	Validate(ctx context.Context, token string) (uuid.UUID, bool, error)
	Invalidate(ctx context.Context, token string) error
}

// AccountService handles signup, signin and signout.
type AccountService struct {
	users    repository.Users
	sessions SessionStore
	log      *zap.Logger
}

func NewAccountService(users repository.Users, sessions SessionStore, log *zap.Logger) *AccountService {
	return &AccountService{users: users, sessions: sessions, log: log}
}

// Signup creates an account and signs it in.
func (s *AccountService) Signup(ctx context.Context, username, password, name string) (*models.User, string, error) {
	const op = "services.Signup"

	for _, err := range []error{utils.ValidateUsername(username), utils.ValidatePassword(password), utils.ValidateName(name)} {
		if err != nil {
			return nil, "", apperr.Validation(op, err.Error())
		}
	}

	hash, err := utils.HashPassword(password)
	if err != nil {
		return nil, "", logUnexpected(s.log, op, err)
	}
	u := &models.User{
		ID:           uuid.New(),
		Username:     utils.NormalizeUsername(username),
		Name:         strings.TrimSpace(name),
		PasswordHash: hash,
	}
	if err := s.users.CreateUser(ctx, u); err != nil {
		if errors.Is(err, repository.ErrUsernameTaken) {
			return nil, "", apperr.Conflict(op, "Username is already taken")
		}
		return nil, "", logUnexpected(s.log, op, err)
	}

	token, err := s.sessions.Create(ctx, u.ID)
	if err != nil {
		return nil, "", logUnexpected(s.log, op, err)
	}
	s.log.Info("user signed up", zap.String("user_id", u.ID.String()))
	return u, token, nil
}

// Signin checks credentials and starts a new session. Unknown users and wrong
// passwords give the same error.
func (s *AccountService) Signin(ctx context.Context, username, password string) (*models.User, string, error) {
	const op = "services.Signin"
	invalid := apperr.Unauthenticated(op, "Invalid username or password")

	u, err := s.users.GetUserByUsername(ctx, utils.NormalizeUsername(username))
	if apperr.Is(err, apperr.KindNotFound) {
		return nil, "", invalid
	}
	if err != nil {
		return nil, "", logUnexpected(s.log, op, err)
	}

	ok, err := utils.VerifyPassword(password, u.PasswordHash)
	if err != nil {
		return nil, "", logUnexpected(s.log, op, err)
	}
	if !ok {
		return nil, "", invalid
	}

	token, err := s.sessions.Create(ctx, u.ID)
	if err != nil {
		return nil, "", logUnexpected(s.log, op, err)
	}
	return u, token, nil
}

func (s *AccountService) Signout(ctx context.Context, token string) error {
	if err := s.sessions.Invalidate(ctx, token); err != nil {
		return logUnexpected(s.log, "services.Signout", err)
	}
	return nil
}

// Authenticate resolves a bearer token to an active user id.
func (s *AccountService) Authenticate(ctx context.Context, token string) (uuid.UUID, error) {
	const op = "services.Authenticate"
	userID, ok, err := s.sessions.Validate(ctx, token)
	if err != nil {
		return uuid.Nil, logUnexpected(s.log, op, err)
	}
	if !ok {
		return uuid.Nil, apperr.Unauthenticated(op, "Authentication required")
	}
	return userID, nil
}

func (s *AccountService) Me(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	u, err := s.users.GetUser(ctx, userID)
	if err != nil {
		return nil, logUnexpected(s.log, "services.Me", err)
	}
	return u, nil
}
