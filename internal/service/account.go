package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/tazhibayda/selectshop/internal/domain"
	"github.com/tazhibayda/selectshop/internal/helper"
	"github.com/tazhibayda/selectshop/internal/repo"
	"github.com/tazhibayda/selectshop/internal/security"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// UserStore is the persistence the account flows need. *repo.Store satisfies it.
type UserStore interface {
	FindUserByKakaoID(ctx context.Context, kakaoID int64) (*domain.User, error)
	FindUserByEmail(ctx context.Context, email string) (*domain.User, error)
	FindUserByUsername(ctx context.Context, username string) (*domain.User, error)
	FindUserByID(ctx context.Context, id primitive.ObjectID) (*domain.User, error)
	CreateUser(ctx context.Context, u *domain.User) error
	LinkKakaoID(ctx context.Context, id primitive.ObjectID, kakaoID int64) error
}

type DecisionKind int

const (
	DecisionReuse DecisionKind = iota
	DecisionLink
	DecisionCreate
)

func (k DecisionKind) String() string {
	switch k {
	case DecisionReuse:
		return "reused"
	case DecisionLink:
		return "linked"
	case DecisionCreate:
		return "created"
	}
	return "unknown"
}

// Decision says what provisioning has to commit. User is nil for DecisionCreate.
type Decision struct {
	Kind DecisionKind
	User *domain.User
}

// Decide picks the account for a Kakao profile. byKakao and byEmail are the
// lookup results, nil when nothing was found.
func Decide(info domain.KakaoUserInfo, byKakao, byEmail *domain.User) Decision {
	if byKakao != nil {
		return Decision{Kind: DecisionReuse, User: byKakao}
	}
	if byEmail != nil {
		return Decision{Kind: DecisionLink, User: byEmail}
	}
	return Decision{Kind: DecisionCreate}
}

type AccountService struct {
	users UserStore
	log   *zap.Logger
	now   func() time.Time
}

func NewAccountService(users UserStore, logger *zap.Logger) *AccountService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AccountService{users: users, log: logger, now: time.Now}
}

// Provision returns the local account for a Kakao profile, linking or creating
// it when needed.
func (s *AccountService) Provision(ctx context.Context, info domain.KakaoUserInfo) (*domain.User, DecisionKind, error) {
	info.Email = domain.NormalizeEmail(info.Email)
	byKakao, err := s.lookup(s.users.FindUserByKakaoID(ctx, info.ID))
	if err != nil {
		return nil, 0, err
	}
	var byEmail *domain.User
	if byKakao == nil {
		if byEmail, err = s.lookup(s.users.FindUserByEmail(ctx, info.Email)); err != nil {
			return nil, 0, err
		}
	}

	d := Decide(info, byKakao, byEmail)
	u, err := s.commit(ctx, info, d)
	if err != nil {
		return nil, d.Kind, err
	}
	s.log.Info("kakao account provisioned",
		zap.String("decision", d.Kind.String()),
		zap.String("user_id", u.ID.Hex()),
		zap.Int64("kakao_id", info.ID),
		zap.String("email_hash", helper.Hash8(info.Email)),
	)
	return u, d.Kind, nil
}

func (s *AccountService) lookup(u *domain.User, err error) (*domain.User, error) {
	switch {
	case err == nil:
		return u, nil
	case errors.Is(err, repo.ErrNotFound):
		return nil, nil
	default:
		return nil, fmt.Errorf("%w: %w", ErrPersistence, err)
	}
}

func (s *AccountService) commit(ctx context.Context, info domain.KakaoUserInfo, d Decision) (*domain.User, error) {
	switch d.Kind {
	case DecisionReuse:
		return d.User, nil
	case DecisionLink:
		if err := s.users.LinkKakaoID(ctx, d.User.ID, info.ID); err != nil {
			return nil, storeErr(err)
		}
		linked := *d.User
		kakaoID := info.ID
		linked.KakaoID = &kakaoID
		return &linked, nil
	default:
		hash, err := security.HashPassword(uuid.NewString())
		if err != nil {
			return nil, fmt.Errorf("hash password: %w", err)
		}
		kakaoID := info.ID
		now := s.now().UTC()
		u := &domain.User{
			Username:     info.Nickname,
			PasswordHash: hash,
			Email:        info.Email,
			Role:         domain.RoleUser,
			KakaoID:      &kakaoID,
			CreatedAt:    now,
			ModifiedAt:   now,
		}
		if err := s.users.CreateUser(ctx, u); err != nil {
			return nil, storeErr(err)
		}
		return u, nil
	}
}

// storeErr maps write failures. A link that matches nothing means a
// concurrent login linked the user first.
func storeErr(err error) error {
	if errors.Is(err, repo.ErrDuplicate) || errors.Is(err, repo.ErrNotFound) {
		return fmt.Errorf("%w: %w", ErrDuplicateAccount, err)
	}
	return fmt.Errorf("%w: %w", ErrPersistence, err)
}
