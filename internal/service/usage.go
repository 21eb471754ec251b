package service

import (
	"context"
	"fmt"
	"time"

	"github.com/tazhibayda/selectshop/internal/domain"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type UsageStore interface {
	AddAPIUseTime(ctx context.Context, userID primitive.ObjectID, username string, ms int64) error
	ListAPIUseTimes(ctx context.Context) ([]domain.APIUseTime, error)
}

// UsageService accumulates per-user API time.
type UsageService struct {
	store UsageStore
}

func NewUsageService(store UsageStore) *UsageService {
	return &UsageService{store: store}
}

func (s *UsageService) Record(ctx context.Context, u *domain.User, elapsed time.Duration) error {
	if err := s.store.AddAPIUseTime(ctx, u.ID, u.Username, elapsed.Milliseconds()); err != nil {
		return fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	return nil
}

func (s *UsageService) List(ctx context.Context, caller *domain.User) ([]domain.APIUseTime, error) {
	if !caller.IsAdmin() {
		return nil, ErrForbidden
	}
	list, err := s.store.ListAPIUseTimes(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	return list, nil
}
