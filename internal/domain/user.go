package domain

import (
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Role string

const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

func (r Role) Valid() bool { return r == RoleUser || r == RoleAdmin }

// Authority is the role name carried in session tokens.
func (r Role) Authority() string { return "ROLE_" + string(r) }

// RoleFromAuthority is the inverse of Authority.
func RoleFromAuthority(a string) (Role, bool) {
	switch a {
	case RoleUser.Authority():
		return RoleUser, true
	case RoleAdmin.Authority():
		return RoleAdmin, true
	}
	return "", false
}

type User struct {
	ID           primitive.ObjectID `bson:"_id,omitempty"      json:"id"`
	Username     string             `bson:"username"           json:"username"`
	PasswordHash string             `bson:"password_hash"      json:"-"`
	Email        string             `bson:"email"              json:"email"`
	Role         Role               `bson:"role"               json:"role"`
	KakaoID      *int64             `bson:"kakao_id,omitempty" json:"kakao_id,omitempty"` // set once, on first Kakao login
	CreatedAt    time.Time          `bson:"created_at"         json:"created_at"`
	ModifiedAt   time.Time          `bson:"modified_at"        json:"modified_at"`
}

func (u *User) IsAdmin() bool { return u.Role == RoleAdmin }

// NormalizeEmail is the stored form of an email address. Lookups and inserts
// must both go through it; the unique index compares bytes.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// KakaoUserInfo is the profile returned by the Kakao user API. Never persisted.
type KakaoUserInfo struct {
	ID       int64
	Nickname string
	Email    string
}
