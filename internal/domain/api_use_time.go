package domain

import "go.mongodb.org/mongo-driver/bson/primitive"

// APIUseTime accumulates how long a user's API calls took, in milliseconds.
type APIUseTime struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"-"`
	UserID    primitive.ObjectID `bson:"user_id"       json:"user_id"`
	Username  string             `bson:"username"      json:"username"`
	TotalTime int64              `bson:"total_time"    json:"total_time"`
}

func (a *APIUseTime) AddUseTime(ms int64) { a.TotalTime += ms }
