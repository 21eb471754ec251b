package oauth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tazhibayda/selectshop/internal/domain"
	"github.com/tazhibayda/selectshop/internal/helper"
	applog "github.com/tazhibayda/selectshop/internal/log"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"gopkg.in/DataDog/dd-trace-go.v1/ddtrace/tracer"
)

var (
	ErrInvalidCode            = errors.New("kakao: empty authorization code")
	ErrInvalidToken           = errors.New("kakao: empty access token")
	ErrProviderCommunication  = errors.New("kakao: provider communication failed")
	ErrProviderResponseFormat = errors.New("kakao: unexpected provider response")
)

const (
	DefaultAuthURL = "https://kauth.kakao.com"
	DefaultAPIURL  = "https://kapi.kakao.com"

	defaultTimeout = 10 * time.Second
	maxBody        = 1 << 20
)

type KakaoConfig struct {
	ClientID     string
	ClientSecret string // optional, only sent when set
	RedirectURI  string
	AuthURL      string // host of /oauth/authorize and /oauth/token
	APIURL       string // host of /v2/user/me
	Timeout      time.Duration
	StateSecret  string
}

// Kakao talks to the Kakao OAuth and user APIs.
type Kakao struct {
	cfg      *oauth2.Config
	apiURL   string
	http     *http.Client
	stateKey []byte
	log      *zap.Logger
}

func NewKakao(c KakaoConfig, logger *zap.Logger) *Kakao {
	if c.AuthURL == "" {
		c.AuthURL = DefaultAuthURL
	}
	if c.APIURL == "" {
		c.APIURL = DefaultAPIURL
	}
	if c.Timeout <= 0 {
		c.Timeout = defaultTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	authBase := strings.TrimRight(c.AuthURL, "/")
	return &Kakao{
		cfg: &oauth2.Config{
			ClientID:     c.ClientID,
			ClientSecret: c.ClientSecret,
			RedirectURL:  c.RedirectURI,
			Endpoint: oauth2.Endpoint{
				AuthURL:   authBase + "/oauth/authorize",
				TokenURL:  authBase + "/oauth/token",
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		apiURL:   strings.TrimRight(c.APIURL, "/"),
		http:     &http.Client{Timeout: c.Timeout},
		stateKey: []byte(c.StateSecret),
		log:      logger.Named("kakao"),
	}
}

// AuthURL is the Kakao consent page the browser is sent to.
func (k *Kakao) AuthURL(state string) string {
	return k.cfg.AuthCodeURL(state)
}

// ExchangeToken trades an authorization code for an access token
// (POST /oauth/token, form encoded, grant_type=authorization_code).
func (k *Kakao) ExchangeToken(ctx context.Context, code string) (string, error) {
	if strings.TrimSpace(code) == "" {
		return "", ErrInvalidCode
	}
	sp, ctx := tracer.StartSpanFromContext(ctx, "kakao.token")
	defer sp.Finish()

	tok, err := k.cfg.Exchange(context.WithValue(ctx, oauth2.HTTPClient, k.http), code)
	if err != nil {
		err = classifyExchange(err)
		sp.SetTag("error", err)
		return "", err
	}
	return tok.AccessToken, nil
}

func classifyExchange(err error) error {
	var re *oauth2.RetrieveError
	if errors.As(err, &re) {
		status := 0
		if re.Response != nil {
			status = re.Response.StatusCode
		}
		return fmt.Errorf("%w: token endpoint status %d", ErrProviderCommunication, status)
	}
	var ue *url.Error
	if errors.As(err, &ue) {
		return fmt.Errorf("%w: %w", ErrProviderCommunication, err)
	}
	// oauth2 reports bad JSON and a missing access_token as plain errors
	return fmt.Errorf("%w: %w", ErrProviderResponseFormat, err)
}

type kakaoProfile struct {
	ID         *int64 `json:"id"`
	Properties struct {
		Nickname string `json:"nickname"`
	} `json:"properties"`
	KakaoAccount struct {
		Email string `json:"email"`
	} `json:"kakao_account"`
}

// FetchProfile reads the user behind accessToken (POST /v2/user/me, Bearer auth).
func (k *Kakao) FetchProfile(ctx context.Context, accessToken string) (domain.KakaoUserInfo, error) {
	if accessToken == "" {
		return domain.KakaoUserInfo{}, ErrInvalidToken
	}
	sp, ctx := tracer.StartSpanFromContext(ctx, "kakao.user_me")
	defer sp.Finish()

	info, err := k.fetchProfile(ctx, accessToken)
	if err != nil {
		sp.SetTag("error", err)
		return domain.KakaoUserInfo{}, err
	}

	applog.WithDD(ctx, k.log).Info("kakao profile fetched",
		zap.Int64("kakao_id", info.ID),
		zap.String("email_hash", helper.Hash8(info.Email)),
		zap.String("token_hash", helper.Hash8(accessToken)),
	)
	return info, nil
}

func (k *Kakao) fetchProfile(ctx context.Context, accessToken string) (domain.KakaoUserInfo, error) {
	client := &http.Client{
		Timeout: k.http.Timeout,
		Transport: &oauth2.Transport{
			Base:   k.http.Transport,
			Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken, TokenType: "Bearer"}),
		},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, k.apiURL+"/v2/user/me", nil)
	if err != nil {
		return domain.KakaoUserInfo{}, fmt.Errorf("%w: %w", ErrProviderCommunication, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded;charset=utf-8")

	resp, err := client.Do(req)
	if err != nil {
		return domain.KakaoUserInfo{}, fmt.Errorf("%w: %w", ErrProviderCommunication, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return domain.KakaoUserInfo{}, fmt.Errorf("%w: read body: %w", ErrProviderCommunication, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return domain.KakaoUserInfo{}, fmt.Errorf("%w: user endpoint status %d", ErrProviderCommunication, resp.StatusCode)
	}

	var p kakaoProfile
	if err := json.Unmarshal(body, &p); err != nil {
		return domain.KakaoUserInfo{}, fmt.Errorf("%w: %w", ErrProviderResponseFormat, err)
	}
	switch {
	case p.ID == nil:
		return domain.KakaoUserInfo{}, fmt.Errorf("%w: missing id", ErrProviderResponseFormat)
	case p.Properties.Nickname == "":
		return domain.KakaoUserInfo{}, fmt.Errorf("%w: missing properties.nickname", ErrProviderResponseFormat)
	case p.KakaoAccount.Email == "":
		return domain.KakaoUserInfo{}, fmt.Errorf("%w: missing kakao_account.email", ErrProviderResponseFormat)
	}
	return domain.KakaoUserInfo{
		ID:       *p.ID,
		Nickname: p.Properties.Nickname,
		Email:    p.KakaoAccount.Email,
	}, nil
}
