package http

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"
)

func NewRouter(h *Handler, reg prometheus.Gatherer) *gin.Engine {
	if h.Log == nil {
		h.Log = zap.NewNop()
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestID(), Trace("selectshop"), Metrics(), AccessLog(h.Log), ErrorHandler(h.Log))

	r.GET("/healthz", h.Healthz)
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))
	r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	r.GET("/.well-known/jwks.json", h.JWKSet)

	auth := Auth(h.Tokens, h.Users)

	api := r.Group("/api", APIUseTime(h.Usage, h.Log))
	{
		api.GET("/user/kakao/login", h.KakaoLoginPage)
		api.GET("/user/kakao/callback", RateLimit(h.Limiter, "kakao", h.Log), h.KakaoCallback)
		api.POST("/user/signup", h.Signup)
		api.POST("/user/login", RateLimit(h.Limiter, "login", h.Log), h.Login)
		api.GET("/user-info", auth, h.UserInfo)

		api.POST("/products", auth, h.CreateProduct)
		api.PUT("/products/:id", auth, h.UpdateMyPrice)
		api.GET("/products", auth, h.ListProducts)
	}
	admin := api.Group("/admin", auth, RequireAdmin())
	{
		admin.GET("/products", h.AdminListProducts)
		admin.GET("/api-use-time", h.AdminAPIUseTime)
	}
	return r
}
