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
	"gopkg.in/DataDog/dd-trace-go.v1/ddtrace/tracer"
)

var (
	ErrNotFound  = errors.New("not found")
	ErrDuplicate = errors.New("duplicate key")
)

type Store struct {
	Client *mongo.Client
	DB     *mongo.Database

	colUsers    *mongo.Collection
	colProducts *mongo.Collection
	colUseTimes *mongo.Collection
}

func NewStore(ctx context.Context, uri, dbname string) (*Store, error) {
	cli, err := mongo.Connect(ctx, options.Client().
		ApplyURI(uri).
		SetRetryWrites(true).
		SetMaxPoolSize(50),
	)
	if err != nil {
		return nil, err
	}
	if err := cli.Ping(ctx, nil); err != nil {
		_ = cli.Disconnect(ctx)
		return nil, err
	}
	db := cli.Database(dbname)
	return &Store{
		Client:      cli,
		DB:          db,
		colUsers:    db.Collection("users"),
		colProducts: db.Collection("products"),
		colUseTimes: db.Collection("api_use_times"),
	}, nil
}

func (s *Store) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return s.Client.Ping(ctx, nil)
}

func (s *Store) Close(ctx context.Context) error {
	return s.Client.Disconnect(ctx)
}

// EnsureIndexes creates the unique indexes that back the one-account-per-email
// and one-account-per-kakao-id rules. Concurrent logins rely on them.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	// only documents that carry a kakao_id take part in its uniqueness
	kakaoOpts := options.Index().SetUnique(true).SetName("uniq_kakao_id").
		SetPartialFilterExpression(bson.M{"kakao_id": bson.M{"$exists": true}})

	_, err := s.colUsers.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "username", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_username"),
		},
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_email"),
		},
		{
			Keys:    bson.D{{Key: "kakao_id", Value: 1}},
			Options: kakaoOpts,
		},
	})
	if err != nil {
		return err
	}
	if err := s.ensureProductIndexes(ctx); err != nil {
		return err
	}
	return s.ensureUseTimeIndexes(ctx)
}

func IsDup(err error) bool {
	var we mongo.WriteException
	if errors.As(err, &we) {
		for _, e := range we.WriteErrors {
			if e.Code == 11000 {
				return true
			}
		}
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) && ce.Code == 11000 {
		return true
	}
	return false
}

func (s *Store) findUser(ctx context.Context, op string, filter bson.M) (*domain.User, error) {
	sp, ctx := tracer.StartSpanFromContext(ctx, "mongo.user."+op)
	defer sp.Finish()

	var u domain.User
	err := s.colUsers.FindOne(ctx, filter).Decode(&u)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		sp.SetTag("error", err)
		return nil, err
	}
	return &u, nil
}

func (s *Store) FindUserByKakaoID(ctx context.Context, kakaoID int64) (*domain.User, error) {
	return s.findUser(ctx, "find_by_kakao_id", bson.M{"kakao_id": kakaoID})
}

func (s *Store) FindUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	return s.findUser(ctx, "find_by_email", bson.M{"email": email})
}

func (s *Store) FindUserByUsername(ctx context.Context, username string) (*domain.User, error) {
	return s.findUser(ctx, "find_by_username", bson.M{"username": username})
}

func (s *Store) FindUserByID(ctx context.Context, id primitive.ObjectID) (*domain.User, error) {
	return s.findUser(ctx, "find_by_id", bson.M{"_id": id})
}

func (s *Store) CreateUser(ctx context.Context, u *domain.User) error {
	sp, ctx := tracer.StartSpanFromContext(ctx, "mongo.user.insert",
		tracer.Tag("role", string(u.Role)),
	)
	defer sp.Finish()

	now := time.Now().UTC()
	u.CreatedAt, u.ModifiedAt = now, now
	res, err := s.colUsers.InsertOne(ctx, u)
	if IsDup(err) {
		return ErrDuplicate
	}
	if err != nil {
		sp.SetTag("error", err)
		return err
	}
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		u.ID = oid
	}
	return nil
}

// LinkKakaoID attaches kakaoID to a user that has none yet. A user that is
// already linked is never relinked: ErrNotFound is returned instead.
func (s *Store) LinkKakaoID(ctx context.Context, id primitive.ObjectID, kakaoID int64) error {
	sp, ctx := tracer.StartSpanFromContext(ctx, "mongo.user.link_kakao")
	defer sp.Finish()

	res, err := s.colUsers.UpdateOne(ctx,
		bson.M{"_id": id, "kakao_id": bson.M{"$exists": false}},
		bson.M{"$set": bson.M{"kakao_id": kakaoID, "modified_at": time.Now().UTC()}},
	)
	if IsDup(err) {
		return ErrDuplicate
	}
	if err != nil {
		sp.SetTag("error", err)
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}
