package repo

import (
	"context"
	"errors"
	"time"

	"github.com/tazhibayda/selectshop/internal/domain"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Page selects a slice of a sorted listing. Number is zero based.
type Page struct {
	Number int
	Size   int
	SortBy string
	Asc    bool
}

var sortFields = map[string]string{
	"id":         "_id",
	"title":      "title",
	"lprice":     "lprice",
	"createdAt":  "created_at",
	"modifiedAt": "modified_at",
}

func (p Page) normalize() Page {
	if p.Size <= 0 || p.Size > 100 {
		p.Size = 10
	}
	if p.Number < 0 {
		p.Number = 0
	}
	if _, ok := sortFields[p.SortBy]; !ok {
		p.SortBy = "id"
	}
	return p
}

func (p Page) findOptions() *options.FindOptions {
	p = p.normalize()
	dir := -1
	if p.Asc {
		dir = 1
	}
	return options.Find().
		SetSkip(int64(p.Number * p.Size)).
		SetLimit(int64(p.Size)).
		SetSort(bson.D{{Key: sortFields[p.SortBy], Value: dir}})
}

// ProductPage is one page of products plus the total count for the filter.
type ProductPage struct {
	Items []domain.Product `json:"content"`
	Total int64            `json:"totalElements"`
	Page  int              `json:"number"`
	Size  int              `json:"size"`
}

func (s *Store) ensureProductIndexes(ctx context.Context) error {
	_, err := s.colProducts.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}},
		Options: options.Index().SetName("user_created_desc"),
	})
	return err
}

func (s *Store) CreateProduct(ctx context.Context, p *domain.Product) error {
	now := time.Now().UTC()
	p.CreatedAt, p.ModifiedAt = now, now
	res, err := s.colProducts.InsertOne(ctx, p)
	if err != nil {
		return err
	}
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		p.ID = oid
	}
	return nil
}

func (s *Store) FindProductByID(ctx context.Context, id primitive.ObjectID) (*domain.Product, error) {
	var p domain.Product
	err := s.colProducts.FindOne(ctx, bson.M{"_id": id}).Decode(&p)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *Store) UpdateMyPrice(ctx context.Context, id primitive.ObjectID, myPrice int) (*domain.Product, error) {
	res := s.colProducts.FindOneAndUpdate(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"myprice": myPrice, "modified_at": time.Now().UTC()}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	)
	var p domain.Product
	if err := res.Decode(&p); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (s *Store) ListProductsByUser(ctx context.Context, userID primitive.ObjectID, p Page) (*ProductPage, error) {
	return s.listProducts(ctx, bson.M{"user_id": userID}, p)
}

func (s *Store) ListProducts(ctx context.Context, p Page) (*ProductPage, error) {
	return s.listProducts(ctx, bson.M{}, p)
}

func (s *Store) listProducts(ctx context.Context, filter bson.M, p Page) (*ProductPage, error) {
	p = p.normalize()
	total, err := s.colProducts.CountDocuments(ctx, filter)
	if err != nil {
		return nil, err
	}
	cur, err := s.colProducts.Find(ctx, filter, p.findOptions())
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := []domain.Product{}
	for cur.Next(ctx) {
		var item domain.Product
		if err := cur.Decode(&item); err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	if err := cur.Err(); err != nil {
		return nil, err
	}
	return &ProductPage{Items: out, Total: total, Page: p.Number, Size: p.Size}, nil
}
