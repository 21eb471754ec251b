package security

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/tazhibayda/selectshop/internal/domain"
)

var ErrInvalidToken = errors.New("invalid token")

// Claims is the session token body: sub is the username, auth the role authority.
type Claims struct {
	Auth string `json:"auth"`
	jwt.RegisteredClaims
}

func (c *Claims) Username() string { return c.Subject }

func (c *Claims) Role() (domain.Role, bool) { return domain.RoleFromAuthority(c.Auth) }

// Signer issues and verifies session tokens, HS256 with a shared secret or
// RS256 with the active key of a KeyManager.
type Signer struct {
	secret []byte
	keys   *KeyManager
	ttl    time.Duration
	now    func() time.Time
}

func NewHS256Signer(secret string, ttl time.Duration) *Signer {
	return &Signer{secret: []byte(secret), ttl: ttl, now: time.Now}
}

func NewRS256Signer(km *KeyManager, ttl time.Duration) *Signer {
	return &Signer{keys: km, ttl: ttl, now: time.Now}
}

func (s *Signer) Issue(username string, role domain.Role) (string, error) {
	now := s.now()
	c := Claims{
		Auth: role.Authority(),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   username,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}
	if s.keys != nil {
		t := jwt.NewWithClaims(jwt.SigningMethodRS256, c)
		t.Header["kid"] = s.keys.Active.Kid
		return t.SignedString(s.keys.Active.Private)
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	return t.SignedString(s.secret)
}

func (s *Signer) Parse(token string) (*Claims, error) {
	var (
		keyfunc jwt.Keyfunc
		method  string
	)
	if s.keys != nil {
		method = jwt.SigningMethodRS256.Alg()
		keyfunc = func(t *jwt.Token) (interface{}, error) {
			kid, _ := t.Header["kid"].(string)
			if pk, ok := s.keys.PublicByKid(kid); ok {
				return pk, nil
			}
			return nil, errors.New("unknown kid")
		}
	} else {
		method = jwt.SigningMethodHS256.Alg()
		keyfunc = func(*jwt.Token) (interface{}, error) { return s.secret, nil }
	}

	c := &Claims{}
	t, err := jwt.ParseWithClaims(token, c, keyfunc,
		jwt.WithValidMethods([]string{method}),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return nil, errors.Join(ErrInvalidToken, err)
	}
	if !t.Valid || c.Subject == "" {
		return nil, ErrInvalidToken
	}
	return c, nil
}
