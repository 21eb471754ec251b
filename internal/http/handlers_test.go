package http_test

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/tazhibayda/selectshop/internal/domain"
	api "github.com/tazhibayda/selectshop/internal/http"
	"github.com/tazhibayda/selectshop/internal/oauth"
	"github.com/tazhibayda/selectshop/internal/security"
	"github.com/tazhibayda/selectshop/internal/service"
)

type errBody struct {
	ErrorMessage string `json:"errorMessage"`
	StatusCode   int    `json:"statusCode"`
}

func decodeErr(t *testing.T, body []byte) errBody {
	t.Helper()
	var e errBody
	if err := json.Unmarshal(body, &e); err != nil {
		t.Fatalf("error body %q: %v", body, err)
	}
	return e
}

func Test_KakaoCallback_SetsSessionAndRedirects(t *testing.T) {
	env := newTestEnv(t)

	w := env.do("GET", "/api/user/kakao/callback?code=abc123", "", nil)
	if w.Code != http.StatusFound {
		t.Fatalf("code=%d body=%s", w.Code, w.Body.String())
	}
	if loc := w.Header().Get("Location"); loc != "/shop" {
		t.Fatalf("location = %q", loc)
	}
	if got := w.Header().Get("Authorization"); got != "Bearer tok-session" {
		t.Fatalf("authorization header = %q", got)
	}
	cookie := w.Result().Cookies()
	if len(cookie) != 1 || cookie[0].Name != "Authorization" || !cookie[0].HttpOnly {
		t.Fatalf("cookies = %+v", cookie)
	}
	if v, _ := url.QueryUnescape(cookie[0].Value); v != "Bearer tok-session" {
		t.Fatalf("cookie value = %q", v)
	}
	if len(env.Kakao.codes) != 1 || env.Kakao.codes[0] != "abc123" {
		t.Fatalf("codes = %v", env.Kakao.codes)
	}
}

func Test_KakaoCallback_ErrorMapping(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		msg    string
	}{
		{"provider down", fmt.Errorf("%w: dial tcp: refused", oauth.ErrProviderCommunication), http.StatusBadGateway, "kakao login failed"},
		{"bad provider json", fmt.Errorf("%w: missing id", oauth.ErrProviderResponseFormat), http.StatusBadGateway, "kakao login failed"},
		{"storage down", fmt.Errorf("%w: mongo timeout", service.ErrPersistence), http.StatusBadGateway, "kakao login failed"},
		{"lost race", fmt.Errorf("%w: E11000", service.ErrDuplicateAccount), http.StatusConflict, "account already exists"},
		{"empty code", oauth.ErrInvalidCode, http.StatusBadRequest, "authorization code is required"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			env := newTestEnv(t)
			env.Kakao.err = c.err

			w := env.do("GET", "/api/user/kakao/callback?code=abc123", "", nil)
			if w.Code != c.status {
				t.Fatalf("code=%d body=%s", w.Code, w.Body.String())
			}
			e := decodeErr(t, w.Body.Bytes())
			if e.ErrorMessage != c.msg || e.StatusCode != c.status {
				t.Fatalf("body = %+v", e)
			}
			if w.Header().Get("Authorization") != "" {
				t.Fatal("session set on failure")
			}
		})
	}
}

func Test_KakaoLoginPage_StateRoundTrip(t *testing.T) {
	env := newTestEnv(t)

	w := env.do("GET", "/api/user/kakao/login", "", nil)
	if w.Code != http.StatusFound {
		t.Fatalf("code=%d", w.Code)
	}
	u, err := url.Parse(w.Header().Get("Location"))
	if err != nil || u.Host != "kauth.example" {
		t.Fatalf("location = %v (%v)", u, err)
	}
	state := u.Query().Get("state")
	if !env.Provider.VerifyState(state) {
		t.Fatalf("state %q not verifiable", state)
	}

	w = env.do("GET", "/api/user/kakao/callback?code=abc123&state="+url.QueryEscape(state), "", nil)
	if w.Code != http.StatusFound {
		t.Fatalf("callback with valid state: %d %s", w.Code, w.Body.String())
	}

	w = env.do("GET", "/api/user/kakao/callback?code=abc123&state=forged.AAAA", "", nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("forged state: %d %s", w.Code, w.Body.String())
	}
	if len(env.Kakao.codes) != 1 {
		t.Fatalf("login ran for forged state: %v", env.Kakao.codes)
	}
}

func Test_KakaoCallback_RequireState(t *testing.T) {
	env := newTestEnv(t)
	env.Handler.RequireState = true

	w := env.do("GET", "/api/user/kakao/callback?code=abc123", "", nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("bare code: %d %s", w.Code, w.Body.String())
	}
	if len(env.Kakao.codes) != 0 {
		t.Fatalf("login ran without state: %v", env.Kakao.codes)
	}

	state := env.Provider.MakeState("nonce-2")
	w = env.do("GET", "/api/user/kakao/callback?code=abc123&state="+url.QueryEscape(state), "", nil)
	if w.Code != http.StatusFound {
		t.Fatalf("callback with state: %d %s", w.Code, w.Body.String())
	}
	if len(env.Kakao.codes) != 1 {
		t.Fatalf("codes = %v", env.Kakao.codes)
	}
}

func Test_UserInfo_HeaderAndCookie(t *testing.T) {
	env := newTestEnv(t)
	tok := env.token(t, "kim", domain.RoleUser)

	if w := env.do("GET", "/api/user-info", "", nil); w.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous: %d", w.Code)
	}
	if w := env.do("GET", "/api/user-info", "", bearer("garbage")); w.Code != http.StatusUnauthorized {
		t.Fatalf("bad token: %d", w.Code)
	}

	w := env.do("GET", "/api/user-info", "", bearer(tok))
	if w.Code != http.StatusOK {
		t.Fatalf("header: %d %s", w.Code, w.Body.String())
	}
	var info struct {
		Username string `json:"username"`
		IsAdmin  bool   `json:"isAdmin"`
	}
	_ = json.Unmarshal(w.Body.Bytes(), &info)
	if info.Username != "kim" || info.IsAdmin {
		t.Fatalf("info = %+v", info)
	}

	cookie := map[string]string{"Cookie": "Authorization=" + url.QueryEscape("Bearer "+tok)}
	if w := env.do("GET", "/api/user-info", "", cookie); w.Code != http.StatusOK {
		t.Fatalf("cookie: %d %s", w.Code, w.Body.String())
	}
	if env.Usage.count("kim") != 2 {
		t.Fatalf("api use time recorded %d times", env.Usage.count("kim"))
	}
}

func Test_Signup_Login(t *testing.T) {
	env := newTestEnv(t)

	w := env.do("POST", "/api/user/signup", `{"username":"lee","password":"password1","email":"lee@x.com"}`, nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("signup: %d %s", w.Code, w.Body.String())
	}
	if strings.Contains(w.Body.String(), "password") {
		t.Fatalf("password leaked: %s", w.Body.String())
	}
	w = env.do("POST", "/api/user/signup", `{"username":"lee","password":"password1","email":"lee@x.com"}`, nil)
	if w.Code != http.StatusConflict {
		t.Fatalf("dup signup: %d", w.Code)
	}
	if w := env.do("POST", "/api/user/signup", `{"username":`, nil); w.Code != http.StatusBadRequest {
		t.Fatalf("bad json: %d", w.Code)
	}

	w = env.do("POST", "/api/user/login", `{"username":"lee","password":"password1"}`, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("login: %d %s", w.Code, w.Body.String())
	}
	var lr struct{ Token string }
	if err := json.Unmarshal(w.Body.Bytes(), &lr); err != nil || lr.Token == "" {
		t.Fatalf("login body %s: %v", w.Body.String(), err)
	}
	if w.Header().Get("Authorization") != "Bearer "+lr.Token {
		t.Fatal("login must set the Authorization header")
	}

	w = env.do("POST", "/api/user/login", `{"username":"lee","password":"nope"}`, nil)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("wrong password: %d", w.Code)
	}
	if e := decodeErr(t, w.Body.Bytes()); e.ErrorMessage != "invalid credentials" {
		t.Fatalf("body = %+v", e)
	}
}

func Test_Products(t *testing.T) {
	env := newTestEnv(t)
	h := bearer(env.token(t, "kim", domain.RoleUser))

	w := env.do("POST", "/api/products", `{"title":"keyboard","lprice":35000}`, h)
	if w.Code != http.StatusCreated {
		t.Fatalf("create: %d %s", w.Code, w.Body.String())
	}
	id := env.Products.items[0].ID.Hex()

	if w := env.do("PUT", "/api/products/"+id, `{"myprice":20000}`, h); w.Code != http.StatusOK {
		t.Fatalf("update: %d %s", w.Code, w.Body.String())
	}
	if w := env.do("PUT", "/api/products/not-an-id", `{"myprice":20000}`, h); w.Code != http.StatusNotFound {
		t.Fatalf("bad id: %d", w.Code)
	}

	env.Products.err = fmt.Errorf("%w: myprice must be at least 100", service.ErrValidation)
	w = env.do("PUT", "/api/products/"+id, `{"myprice":1}`, h)
	if w.Code != http.StatusBadRequest || !strings.Contains(w.Body.String(), "at least 100") {
		t.Fatalf("min price: %d %s", w.Code, w.Body.String())
	}
	env.Products.err = service.ErrForbidden
	if w := env.do("PUT", "/api/products/"+id, `{"myprice":200}`, h); w.Code != http.StatusForbidden {
		t.Fatalf("not owner: %d", w.Code)
	}
	env.Products.err = errors.New("mongo: server selection timeout")
	w = env.do("PUT", "/api/products/"+id, `{"myprice":200}`, h)
	if w.Code != http.StatusInternalServerError || strings.Contains(w.Body.String(), "mongo") {
		t.Fatalf("internal: %d %s", w.Code, w.Body.String())
	}
	env.Products.err = nil

	w = env.do("GET", "/api/products?page=1&size=5&sortBy=lprice&isAsc=true", "", h)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"totalElements":1`) {
		t.Fatalf("list: %d %s", w.Code, w.Body.String())
	}
	if w := env.do("GET", "/api/products?page=0", "", h); w.Code != http.StatusBadRequest {
		t.Fatalf("page 0: %d", w.Code)
	}
}

func Test_AdminRoutes(t *testing.T) {
	env := newTestEnv(t)
	user := bearer(env.token(t, "kim", domain.RoleUser))
	admin := bearer(env.token(t, "boss", domain.RoleAdmin))

	for _, path := range []string{"/api/admin/products", "/api/admin/api-use-time"} {
		if w := env.do("GET", path, "", user); w.Code != http.StatusForbidden {
			t.Fatalf("%s as user: %d", path, w.Code)
		}
		if w := env.do("GET", path, "", admin); w.Code != http.StatusOK {
			t.Fatalf("%s as admin: %d %s", path, w.Code, w.Body.String())
		}
	}
}

func Test_RateLimit(t *testing.T) {
	env := newTestEnv(t)
	env.Handler.Limiter = api.NewMemoryLimiter(2, time.Minute)
	env.Router = api.NewRouter(env.Handler, prometheus.NewRegistry())

	body := `{"username":"kim","password":"password1"}`
	for i := 0; i < 2; i++ {
		if w := env.do("POST", "/api/user/login", body, nil); w.Code != http.StatusOK {
			t.Fatalf("attempt %d: %d", i, w.Code)
		}
	}
	w := env.do("POST", "/api/user/login", body, nil)
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("third attempt: %d", w.Code)
	}
}

func Test_JWKSAndHealth(t *testing.T) {
	env := newTestEnv(t)

	if w := env.do("GET", "/.well-known/jwks.json", "", nil); w.Code != http.StatusNotFound {
		t.Fatalf("jwks without keys: %d", w.Code)
	}
	env.Handler.JWKS = func() security.JWKSet {
		return security.JWKSet{Keys: []security.JWK{{Kty: "RSA", Kid: "kidA", Alg: "RS256", Use: "sig"}}}
	}
	w := env.do("GET", "/.well-known/jwks.json", "", nil)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"kid":"kidA"`) {
		t.Fatalf("jwks: %d %s", w.Code, w.Body.String())
	}

	w = env.do("GET", "/healthz", "", map[string]string{"X-Request-ID": "req-7"})
	if w.Code != http.StatusOK || w.Header().Get("X-Request-ID") != "req-7" {
		t.Fatalf("healthz: %d %v", w.Code, w.Header())
	}
	if w := env.do("GET", "/metrics", "", nil); w.Code != http.StatusOK {
		t.Fatalf("metrics: %d", w.Code)
	}
}
