package http_test

import (
	"context"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/tazhibayda/selectshop/internal/domain"
	api "github.com/tazhibayda/selectshop/internal/http"
	"github.com/tazhibayda/selectshop/internal/oauth"
	"github.com/tazhibayda/selectshop/internal/repo"
	"github.com/tazhibayda/selectshop/internal/security"
	"github.com/tazhibayda/selectshop/internal/service"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type fakeUsers struct {
	signer *security.Signer
	users  map[string]*domain.User
}

func (f *fakeUsers) Signup(ctx context.Context, in service.SignupInput) (*domain.User, error) {
	if _, ok := f.users[in.Username]; ok {
		return nil, service.ErrDuplicateAccount
	}
	u := &domain.User{ID: primitive.NewObjectID(), Username: in.Username, Email: in.Email, Role: domain.RoleUser}
	f.users[in.Username] = u
	return u, nil
}

func (f *fakeUsers) Login(ctx context.Context, username, password string) (string, error) {
	u, ok := f.users[username]
	if !ok || password != "password1" {
		return "", service.ErrInvalidCredentials
	}
	return f.signer.Issue(u.Username, u.Role)
}

func (f *fakeUsers) Me(ctx context.Context, username string) (*domain.User, error) {
	u, ok := f.users[username]
	if !ok {
		return nil, service.ErrInvalidCredentials
	}
	return u, nil
}

type fakeKakaoLogin struct {
	token string
	err   error
	codes []string
}

func (f *fakeKakaoLogin) Login(ctx context.Context, code string) (string, error) {
	f.codes = append(f.codes, code)
	return f.token, f.err
}

type fakeProducts struct {
	err   error
	items []domain.Product
}

func (f *fakeProducts) Create(ctx context.Context, owner *domain.User, in service.ProductInput) (*domain.Product, error) {
	if f.err != nil {
		return nil, f.err
	}
	p := domain.Product{ID: primitive.NewObjectID(), UserID: owner.ID, Title: in.Title, LPrice: in.LPrice}
	f.items = append(f.items, p)
	return &p, nil
}

func (f *fakeProducts) UpdateMyPrice(ctx context.Context, owner *domain.User, id primitive.ObjectID, myPrice int) (*domain.Product, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &domain.Product{ID: id, MyPrice: myPrice}, nil
}

func (f *fakeProducts) ListMine(ctx context.Context, owner *domain.User, p repo.Page) (*repo.ProductPage, error) {
	return &repo.ProductPage{Items: f.items, Total: int64(len(f.items)), Page: p.Number, Size: p.Size}, nil
}

func (f *fakeProducts) ListAll(ctx context.Context, caller *domain.User, p repo.Page) (*repo.ProductPage, error) {
	return f.ListMine(ctx, caller, p)
}

type fakeUsage struct {
	mu       sync.Mutex
	recorded map[string]int
}

func (f *fakeUsage) Record(ctx context.Context, u *domain.User, elapsed time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.recorded[u.Username]++
	return nil
}

func (f *fakeUsage) List(ctx context.Context, caller *domain.User) ([]domain.APIUseTime, error) {
	return []domain.APIUseTime{{Username: "kim", TotalTime: 42}}, nil
}

func (f *fakeUsage) count(username string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.recorded[username]
}

type okPinger struct{}

func (okPinger) Ping(ctx context.Context) error { return nil }

type testEnv struct {
	Router   *gin.Engine
	Handler  *api.Handler
	Signer   *security.Signer
	Kakao    *fakeKakaoLogin
	Provider *oauth.Kakao
	Products *fakeProducts
	Usage    *fakeUsage
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	signer := security.NewHS256Signer("test-secret", time.Hour)
	users := &fakeUsers{signer: signer, users: map[string]*domain.User{
		"kim":  {ID: primitive.NewObjectID(), Username: "kim", Email: "kim@x.com", Role: domain.RoleUser},
		"boss": {ID: primitive.NewObjectID(), Username: "boss", Email: "boss@x.com", Role: domain.RoleAdmin},
	}}
	provider := oauth.NewKakao(oauth.KakaoConfig{
		ClientID:    "client-abc",
		RedirectURI: "http://localhost/api/user/kakao/callback",
		AuthURL:     "https://kauth.example",
		StateSecret: "state-secret",
	}, nil)
	env := &testEnv{
		Signer:   signer,
		Kakao:    &fakeKakaoLogin{token: "tok-session"},
		Provider: provider,
		Products: &fakeProducts{},
		Usage:    &fakeUsage{recorded: map[string]int{}},
	}
	env.Handler = &api.Handler{
		Health:        okPinger{},
		Tokens:        signer,
		KakaoURL:      provider,
		Kakao:         env.Kakao,
		Users:         users,
		Products:      env.Products,
		Usage:         env.Usage,
		LoginRedirect: "/shop",
		TokenTTL:      time.Hour,
	}
	env.Router = api.NewRouter(env.Handler, prometheus.NewRegistry())
	return env
}

func (e *testEnv) token(t *testing.T, username string, role domain.Role) string {
	t.Helper()
	tok, err := e.Signer.Issue(username, role)
	if err != nil {
		t.Fatal(err)
	}
	return tok
}

func (e *testEnv) do(method, path, body string, hdr map[string]string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range hdr {
		req.Header.Set(k, v)
	}
	e.Router.ServeHTTP(w, req)
	return w
}

func bearer(tok string) map[string]string {
	return map[string]string{"Authorization": "Bearer " + tok}
}
