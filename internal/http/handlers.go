package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/tazhibayda/selectshop/internal/domain"
	"github.com/tazhibayda/selectshop/internal/repo"
	"github.com/tazhibayda/selectshop/internal/security"
	"github.com/tazhibayda/selectshop/internal/service"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type TokenParser interface {
	Parse(token string) (*security.Claims, error)
}

// KakaoAuth builds the consent redirect. *oauth.Kakao satisfies it.
type KakaoAuth interface {
	AuthURL(state string) string
	MakeState(raw string) string
	VerifyState(state string) bool
}

type KakaoLogin interface {
	Login(ctx context.Context, code string) (string, error)
}

type UserAPI interface {
	Signup(ctx context.Context, in service.SignupInput) (*domain.User, error)
	Login(ctx context.Context, username, password string) (string, error)
	Me(ctx context.Context, username string) (*domain.User, error)
}

type ProductAPI interface {
	Create(ctx context.Context, owner *domain.User, in service.ProductInput) (*domain.Product, error)
	UpdateMyPrice(ctx context.Context, owner *domain.User, id primitive.ObjectID, myPrice int) (*domain.Product, error)
	ListMine(ctx context.Context, owner *domain.User, p repo.Page) (*repo.ProductPage, error)
	ListAll(ctx context.Context, caller *domain.User, p repo.Page) (*repo.ProductPage, error)
}

type UsageAPI interface {
	Record(ctx context.Context, u *domain.User, elapsed time.Duration) error
	List(ctx context.Context, caller *domain.User) ([]domain.APIUseTime, error)
}

type Pinger interface {
	Ping(ctx context.Context) error
}

type Handler struct {
	Health   Pinger
	Tokens   TokenParser
	KakaoURL KakaoAuth
	Kakao    KakaoLogin
	Users    UserAPI
	Products ProductAPI
	Usage    UsageAPI
	Limiter  Limiter
	JWKS     func() security.JWKSet // nil with HS256

	LoginRedirect string
	TokenTTL      time.Duration
	SecureCookie  bool
	RequireState  bool // reject callbacks that did not start at /api/user/kakao/login
	Log           *zap.Logger
}

// setSession hands the token to the browser as header and cookie.
func (h *Handler) setSession(c *gin.Context, token string) {
	c.Header(authHeader, bearerPrefix+token)
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(authHeader, bearerPrefix+token, int(h.TokenTTL.Seconds()), "/", "", h.SecureCookie, true)
}

// KakaoLoginPage godoc
// @Summary Start Kakao login
// @Tags kakao
// @Success 302
// @Router /api/user/kakao/login [get]
func (h *Handler) KakaoLoginPage(c *gin.Context) {
	c.Redirect(http.StatusFound, h.KakaoURL.AuthURL(h.KakaoURL.MakeState(uuid.NewString())))
}

// KakaoCallback godoc
// @Summary Kakao OAuth callback
// @Description Exchanges the authorization code, provisions the account and sets the session token.
// @Tags kakao
// @Param code query string true "authorization code"
// @Param state query string false "state issued by /api/user/kakao/login"
// @Success 302
// @Failure 400 {object} apiError
// @Failure 409 {object} apiError
// @Failure 502 {object} apiError
// @Router /api/user/kakao/callback [get]
func (h *Handler) KakaoCallback(c *gin.Context) {
	state := c.Query("state")
	if state == "" && h.RequireState {
		_ = c.Error(fmt.Errorf("%w: missing state", errBadRequest))
		return
	}
	if state != "" && !h.KakaoURL.VerifyState(state) {
		_ = c.Error(fmt.Errorf("%w: invalid state", errBadRequest))
		return
	}
	tok, err := h.Kakao.Login(c.Request.Context(), c.Query("code"))
	if err != nil {
		_ = c.Error(fmt.Errorf("%w: %w", errKakaoLogin, err))
		return
	}
	h.setSession(c, tok)
	c.Redirect(http.StatusFound, h.LoginRedirect)
}

type signupReq struct {
	Username   string `json:"username"`
	Password   string `json:"password"`
	Email      string `json:"email"`
	Admin      bool   `json:"admin"`
	AdminToken string `json:"adminToken"`
}

// Signup godoc
// @Summary Register with username and password
// @Tags user
// @Accept json
// @Produce json
// @Param payload body signupReq true "signup"
// @Success 201 {object} domain.User
// @Failure 400 {object} apiError
// @Failure 403 {object} apiError
// @Failure 409 {object} apiError
// @Router /api/user/signup [post]
func (h *Handler) Signup(c *gin.Context) {
	var in signupReq
	if err := c.ShouldBindJSON(&in); err != nil {
		_ = c.Error(fmt.Errorf("%w: invalid json", errBadRequest))
		return
	}
	u, err := h.Users.Signup(c.Request.Context(), service.SignupInput{
		Username:   in.Username,
		Password:   in.Password,
		Email:      in.Email,
		Admin:      in.Admin,
		AdminToken: in.AdminToken,
	})
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, u)
}

type loginReq struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResp struct {
	Token string `json:"token"`
}

// Login godoc
// @Summary Login with username and password
// @Tags user
// @Accept json
// @Produce json
// @Param payload body loginReq true "login"
// @Success 200 {object} loginResp
// @Failure 401 {object} apiError
// @Failure 429 {object} apiError
// @Router /api/user/login [post]
func (h *Handler) Login(c *gin.Context) {
	var in loginReq
	if err := c.ShouldBindJSON(&in); err != nil {
		_ = c.Error(fmt.Errorf("%w: invalid json", errBadRequest))
		return
	}
	tok, err := h.Users.Login(c.Request.Context(), in.Username, in.Password)
	if err != nil {
		_ = c.Error(err)
		return
	}
	h.setSession(c, tok)
	c.JSON(http.StatusOK, loginResp{Token: tok})
}

type userInfoResp struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	IsAdmin  bool   `json:"isAdmin"`
}

// UserInfo godoc
// @Summary Current user
// @Tags user
// @Security BearerAuth
// @Produce json
// @Success 200 {object} userInfoResp
// @Failure 401 {object} apiError
// @Router /api/user-info [get]
func (h *Handler) UserInfo(c *gin.Context) {
	u, _ := currentUser(c)
	c.JSON(http.StatusOK, userInfoResp{Username: u.Username, Email: u.Email, IsAdmin: u.IsAdmin()})
}

// JWKSet godoc
// @Summary Public signing keys
// @Tags auth
// @Produce json
// @Success 200 {object} security.JWKSet
// @Router /.well-known/jwks.json [get]
func (h *Handler) JWKSet(c *gin.Context) {
	if h.JWKS == nil {
		c.JSON(http.StatusNotFound, apiError{"no public keys", http.StatusNotFound})
		return
	}
	c.Header("Cache-Control", "public, max-age=300")
	c.JSON(http.StatusOK, h.JWKS())
}

func (h *Handler) Healthz(c *gin.Context) {
	if err := h.Health.Ping(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
