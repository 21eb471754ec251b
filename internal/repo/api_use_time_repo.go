package repo

import (
	"context"

	"github.com/tazhibayda/selectshop/internal/domain"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func (s *Store) ensureUseTimeIndexes(ctx context.Context) error {
	_, err := s.colUseTimes.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "user_id", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("uniq_user"),
	})
	return err
}

// AddAPIUseTime adds ms to the user's running total, creating the record on first use.
func (s *Store) AddAPIUseTime(ctx context.Context, userID primitive.ObjectID, username string, ms int64) error {
	_, err := s.colUseTimes.UpdateOne(ctx,
		bson.M{"user_id": userID},
		bson.M{
			"$inc":         bson.M{"total_time": ms},
			"$setOnInsert": bson.M{"username": username},
		},
		options.Update().SetUpsert(true),
	)
	return err
}

func (s *Store) ListAPIUseTimes(ctx context.Context) ([]domain.APIUseTime, error) {
	cur, err := s.colUseTimes.Find(ctx, bson.M{},
		options.Find().SetSort(bson.D{{Key: "total_time", Value: -1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := []domain.APIUseTime{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}
