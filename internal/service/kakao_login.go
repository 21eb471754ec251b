package service

import (
	"context"
	"fmt"

	"github.com/tazhibayda/selectshop/internal/domain"
	"github.com/tazhibayda/selectshop/internal/helper"
	applog "github.com/tazhibayda/selectshop/internal/log"
	"github.com/tazhibayda/selectshop/internal/metrics"
	"github.com/tazhibayda/selectshop/internal/queue"
	"go.uber.org/zap"
	"gopkg.in/DataDog/dd-trace-go.v1/ddtrace/tracer"
)

// KakaoProvider is the remote half of the login. *oauth.Kakao satisfies it.
type KakaoProvider interface {
	ExchangeToken(ctx context.Context, code string) (string, error)
	FetchProfile(ctx context.Context, accessToken string) (domain.KakaoUserInfo, error)
}

// TokenIssuer signs session tokens. *security.Signer satisfies it.
type TokenIssuer interface {
	Issue(username string, role domain.Role) (string, error)
}

type KakaoService struct {
	provider KakaoProvider
	accounts *AccountService
	issuer   TokenIssuer
	events   queue.Publisher
	log      *zap.Logger
}

func NewKakaoService(p KakaoProvider, accounts *AccountService, issuer TokenIssuer, events queue.Publisher, logger *zap.Logger) *KakaoService {
	if events == nil {
		events = queue.NewNoop()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &KakaoService{provider: p, accounts: accounts, issuer: issuer, events: events, log: logger}
}

// Login runs code -> access token -> profile -> account -> session token.
// Any failing stage stops the chain.
func (s *KakaoService) Login(ctx context.Context, code string) (string, error) {
	sp, ctx := tracer.StartSpanFromContext(ctx, "kakao.login")
	defer sp.Finish()

	tok, u, kind, err := s.login(ctx, code)
	if err != nil {
		sp.SetTag("error", err)
		metrics.KakaoLogins.WithLabelValues("failed").Inc()
		applog.WithDD(ctx, s.log).Warn("kakao login failed", zap.Error(err))
		return "", err
	}
	metrics.KakaoLogins.WithLabelValues(kind.String()).Inc()
	s.publish(ctx, u, kind)
	return tok, nil
}

func (s *KakaoService) login(ctx context.Context, code string) (string, *domain.User, DecisionKind, error) {
	access, err := s.provider.ExchangeToken(ctx, code)
	if err != nil {
		return "", nil, 0, err
	}
	info, err := s.provider.FetchProfile(ctx, access)
	if err != nil {
		return "", nil, 0, err
	}
	u, kind, err := s.accounts.Provision(ctx, info)
	if err != nil {
		return "", nil, 0, err
	}
	tok, err := s.issuer.Issue(u.Username, u.Role)
	if err != nil {
		return "", nil, 0, fmt.Errorf("issue token: %w", err)
	}
	return tok, u, kind, nil
}

// publish never fails the login; the account is already committed.
func (s *KakaoService) publish(ctx context.Context, u *domain.User, kind DecisionKind) {
	reqID := helper.RequestID(ctx)
	emit := func(key string, ev any) {
		if err := s.events.Publish(ctx, key, ev, reqID); err != nil {
			applog.WithDD(ctx, s.log).Warn("publish event",
				zap.String("key", key), zap.String("user_id", u.ID.Hex()), zap.Error(err))
		}
	}

	switch kind {
	case DecisionCreate:
		emit(queue.KeyUserRegistered, queue.UserRegistered{
			UserID: u.ID.Hex(), Username: u.Username, Email: u.Email, Via: "kakao",
		})
	case DecisionLink:
		emit(queue.KeyUserLinked, queue.UserLinked{UserID: u.ID.Hex(), KakaoID: *u.KakaoID})
	}
	emit(queue.KeyUserLoggedIn, queue.UserLoggedIn{UserID: u.ID.Hex(), Username: u.Username, Via: "kakao"})
}
