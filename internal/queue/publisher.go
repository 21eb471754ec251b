package queue

import "context"

const (
	KeyUserRegistered = "user.registered"
	KeyUserLinked     = "user.linked"
	KeyUserLoggedIn   = "user.loggedin"
)

type Publisher interface {
	Publish(ctx context.Context, key string, event any, reqID string) error
	Close() error
}

type NoopPub struct{}

func NewNoop() Publisher { return NoopPub{} }

func (NoopPub) Publish(ctx context.Context, key string, event any, reqID string) error {
	return nil
}
func (NoopPub) Close() error { return nil }

type UserRegistered struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Via      string `json:"via"` // "signup" | "kakao"
}

type UserLinked struct {
	UserID  string `json:"user_id"`
	KakaoID int64  `json:"kakao_id"`
}

type UserLoggedIn struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	Via      string `json:"via"`
}
