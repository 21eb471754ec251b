package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/tazhibayda/selectshop/internal/domain"
	"github.com/tazhibayda/selectshop/internal/helper"
	"github.com/tazhibayda/selectshop/internal/queue"
	"github.com/tazhibayda/selectshop/internal/repo"
	"github.com/tazhibayda/selectshop/internal/security"
	"go.uber.org/zap"
)

type SignupInput struct {
	Username   string
	Password   string
	Email      string
	Admin      bool
	AdminToken string
}

// UserService covers username/password accounts.
type UserService struct {
	users      UserStore
	issuer     TokenIssuer
	events     queue.Publisher
	adminToken string
	log        *zap.Logger
	now        func() time.Time
}

func NewUserService(users UserStore, issuer TokenIssuer, events queue.Publisher, adminToken string, logger *zap.Logger) *UserService {
	if events == nil {
		events = queue.NewNoop()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UserService{users: users, issuer: issuer, events: events, adminToken: adminToken, log: logger, now: time.Now}
}

func (s *UserService) Signup(ctx context.Context, in SignupInput) (*domain.User, error) {
	username := strings.TrimSpace(in.Username)
	email := domain.NormalizeEmail(in.Email)
	if username == "" || !strings.Contains(email, "@") || len(in.Password) < 8 {
		return nil, fmt.Errorf("%w: invalid username, email or weak password", ErrValidation)
	}

	role := domain.RoleUser
	if in.Admin {
		if s.adminToken == "" || subtle.ConstantTimeCompare([]byte(in.AdminToken), []byte(s.adminToken)) != 1 {
			return nil, fmt.Errorf("%w: wrong admin token", ErrForbidden)
		}
		role = domain.RoleAdmin
	}

	hash, err := security.HashPassword(in.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	now := s.now().UTC()
	u := &domain.User{
		Username:     username,
		PasswordHash: hash,
		Email:        email,
		Role:         role,
		CreatedAt:    now,
		ModifiedAt:   now,
	}
	if err := s.users.CreateUser(ctx, u); err != nil {
		if errors.Is(err, repo.ErrDuplicate) {
			return nil, fmt.Errorf("%w: username or email taken", ErrDuplicateAccount)
		}
		return nil, fmt.Errorf("%w: %w", ErrPersistence, err)
	}

	if err := s.events.Publish(ctx, queue.KeyUserRegistered, queue.UserRegistered{
		UserID: u.ID.Hex(), Username: u.Username, Email: u.Email, Via: "signup",
	}, helper.RequestID(ctx)); err != nil {
		s.log.Warn("publish event", zap.String("key", queue.KeyUserRegistered), zap.Error(err))
	}
	return u, nil
}

// Login checks a password and returns a session token.
func (s *UserService) Login(ctx context.Context, username, password string) (string, error) {
	u, err := s.users.FindUserByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return "", ErrInvalidCredentials
		}
		return "", fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	if !security.CheckPassword(u.PasswordHash, password) {
		return "", ErrInvalidCredentials
	}
	tok, err := s.issuer.Issue(u.Username, u.Role)
	if err != nil {
		return "", fmt.Errorf("issue token: %w", err)
	}

	if err := s.events.Publish(ctx, queue.KeyUserLoggedIn, queue.UserLoggedIn{
		UserID: u.ID.Hex(), Username: u.Username, Via: "password",
	}, helper.RequestID(ctx)); err != nil {
		s.log.Warn("publish event", zap.String("key", queue.KeyUserLoggedIn), zap.Error(err))
	}
	return tok, nil
}

// Me resolves the user a session token was issued for.
func (s *UserService) Me(ctx context.Context, username string) (*domain.User, error) {
	u, err := s.users.FindUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	return u, nil
}
