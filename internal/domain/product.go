package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MinMyPrice is the lowest wish price a user may set on a product.
const MinMyPrice = 100

type Product struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID     primitive.ObjectID `bson:"user_id"       json:"-"`
	Title      string             `bson:"title"         json:"title"`
	Image      string             `bson:"image"         json:"image"`
	Link       string             `bson:"link"          json:"link"`
	LPrice     int                `bson:"lprice"        json:"lprice"`
	MyPrice    int                `bson:"myprice"       json:"myprice"`
	CreatedAt  time.Time          `bson:"created_at"    json:"created_at"`
	ModifiedAt time.Time          `bson:"modified_at"   json:"modified_at"`
}
