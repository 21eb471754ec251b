package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/tazhibayda/selectshop/internal/domain"
	"github.com/tazhibayda/selectshop/internal/repo"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type ProductStore interface {
	CreateProduct(ctx context.Context, p *domain.Product) error
	FindProductByID(ctx context.Context, id primitive.ObjectID) (*domain.Product, error)
	UpdateMyPrice(ctx context.Context, id primitive.ObjectID, myPrice int) (*domain.Product, error)
	ListProductsByUser(ctx context.Context, userID primitive.ObjectID, p repo.Page) (*repo.ProductPage, error)
	ListProducts(ctx context.Context, p repo.Page) (*repo.ProductPage, error)
}

type ProductInput struct {
	Title  string
	Image  string
	Link   string
	LPrice int
}

type ProductService struct {
	products ProductStore
	now      func() time.Time
}

func NewProductService(products ProductStore) *ProductService {
	return &ProductService{products: products, now: time.Now}
}

func (s *ProductService) Create(ctx context.Context, owner *domain.User, in ProductInput) (*domain.Product, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" || in.LPrice < 0 {
		return nil, fmt.Errorf("%w: title required, lprice must not be negative", ErrValidation)
	}
	now := s.now().UTC()
	p := &domain.Product{
		UserID:     owner.ID,
		Title:      title,
		Image:      in.Image,
		Link:       in.Link,
		LPrice:     in.LPrice,
		CreatedAt:  now,
		ModifiedAt: now,
	}
	if err := s.products.CreateProduct(ctx, p); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	return p, nil
}

// UpdateMyPrice sets the wish price. Only the owner may change it.
func (s *ProductService) UpdateMyPrice(ctx context.Context, owner *domain.User, id primitive.ObjectID, myPrice int) (*domain.Product, error) {
	if myPrice < domain.MinMyPrice {
		return nil, fmt.Errorf("%w: myprice must be at least %d", ErrValidation, domain.MinMyPrice)
	}
	p, err := s.products.FindProductByID(ctx, id)
	if err != nil {
		return nil, productErr(err)
	}
	if p.UserID != owner.ID {
		return nil, fmt.Errorf("%w: product belongs to another user", ErrForbidden)
	}
	updated, err := s.products.UpdateMyPrice(ctx, id, myPrice)
	if err != nil {
		return nil, productErr(err)
	}
	return updated, nil
}

func (s *ProductService) ListMine(ctx context.Context, owner *domain.User, p repo.Page) (*repo.ProductPage, error) {
	page, err := s.products.ListProductsByUser(ctx, owner.ID, p)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	return page, nil
}

// ListAll is the admin view over every user's products.
func (s *ProductService) ListAll(ctx context.Context, caller *domain.User, p repo.Page) (*repo.ProductPage, error) {
	if !caller.IsAdmin() {
		return nil, ErrForbidden
	}
	page, err := s.products.ListProducts(ctx, p)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	return page, nil
}

func productErr(err error) error {
	if errors.Is(err, repo.ErrNotFound) {
		return ErrProductNotFound
	}
	return fmt.Errorf("%w: %w", ErrPersistence, err)
}
