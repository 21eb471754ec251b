package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/tazhibayda/selectshop/docs"
	"github.com/tazhibayda/selectshop/internal/config"
	api "github.com/tazhibayda/selectshop/internal/http"
	applog "github.com/tazhibayda/selectshop/internal/log"
	"github.com/tazhibayda/selectshop/internal/metrics"
	"github.com/tazhibayda/selectshop/internal/oauth"
	"github.com/tazhibayda/selectshop/internal/queue"
	"github.com/tazhibayda/selectshop/internal/repo"
	"github.com/tazhibayda/selectshop/internal/security"
	"github.com/tazhibayda/selectshop/internal/service"
	"go.uber.org/zap"
	"gopkg.in/DataDog/dd-trace-go.v1/ddtrace/tracer"
)

// @title Selectshop API
// @version 0.1.0
// @description Kakao login, product watch list and API usage for selectshop.
// @schemes http https
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	logger, err := applog.Init(cfg.Production())
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	if cfg.Production() {
		tracer.Start(tracer.WithService("selectshop"), tracer.WithEnv(cfg.AppEnv))
		defer tracer.Stop()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	store, err := repo.NewStore(ctx, cfg.MongoURI, cfg.MongoDB)
	if err != nil {
		logger.Fatal("mongo connect", zap.Error(err))
	}
	defer store.Close(context.Background())
	if err := store.EnsureIndexes(ctx); err != nil {
		logger.Fatal("mongo indexes", zap.Error(err))
	}

	var limiter api.Limiter = api.NewMemoryLimiter(cfg.RateLimitPerMin, time.Minute)
	if cfg.RedisAddr != "" {
		rds := repo.NewRedis(cfg.RedisAddr)
		if err := rds.Ping(ctx); err != nil {
			logger.Fatal("redis ping", zap.Error(err))
		}
		defer rds.Close()
		limiter = &api.RedisLimiter{R: rds, Limit: cfg.RateLimitPerMin, Window: time.Minute}
	}

	pub := queue.NewNoop()
	if cfg.RabbitURL != "" {
		if pub, err = queue.NewRabbit(cfg.RabbitURL, cfg.RabbitExchange); err != nil {
			logger.Fatal("rabbit publisher", zap.Error(err))
		}
	}
	defer pub.Close()

	var (
		signer *security.Signer
		jwks   func() security.JWKSet
	)
	if cfg.RS256() {
		km, err := security.NewKeyManager(cfg.JWTActiveKid, cfg.JWTActiveKey, cfg.JWTNextKid, cfg.JWTNextKey)
		if err != nil {
			logger.Fatal("jwt keys", zap.Error(err))
		}
		signer, jwks = security.NewRS256Signer(km, cfg.JWTTTL), km.JWKS
	} else {
		signer = security.NewHS256Signer(cfg.JWTSecret, cfg.JWTTTL)
	}

	kakao := oauth.NewKakao(cfg.Kakao(), logger)
	users := service.NewUserService(store, signer, pub, cfg.AdminToken, logger)
	accounts := service.NewAccountService(store, logger)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics.MustRegister(reg)

	docs.SwaggerInfo.BasePath = "/"

	h := &api.Handler{
		Health:        store,
		Tokens:        signer,
		KakaoURL:      kakao,
		Kakao:         service.NewKakaoService(kakao, accounts, signer, pub, logger),
		Users:         users,
		Products:      service.NewProductService(store),
		Usage:         service.NewUsageService(store),
		Limiter:       limiter,
		JWKS:          jwks,
		LoginRedirect: cfg.LoginRedirect,
		TokenTTL:      cfg.JWTTTL,
		SecureCookie:  cfg.Production(),
		RequireState:  cfg.KakaoRequireState,
		Log:           logger,
	}
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           api.NewRouter(h, reg),
		ReadHeaderTimeout: 10 * time.Second,
	}

	srvErr := make(chan error, 1)
	go func() { srvErr <- srv.ListenAndServe() }()
	applog.Infof("selectshop listening on :%s", cfg.Port)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)

	select {
	case s := <-sig:
		logger.Info("shutting down", zap.String("signal", s.String()))
	case err := <-srvErr:
		if !errors.Is(err, http.ErrServerClosed) {
			applog.Errorf("server error: %v", err)
		}
	}

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("shutdown", zap.Error(err))
	}
}
