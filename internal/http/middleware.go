package http

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/tazhibayda/selectshop/internal/domain"
	"github.com/tazhibayda/selectshop/internal/helper"
	applog "github.com/tazhibayda/selectshop/internal/log"
	"github.com/tazhibayda/selectshop/internal/metrics"
	"github.com/tazhibayda/selectshop/internal/security"
	"github.com/tazhibayda/selectshop/internal/service"
	"go.uber.org/zap"
)

const (
	requestIDHeader = "X-Request-ID"
	authHeader      = "Authorization"
	bearerPrefix    = "Bearer "
	userKey         = "user"
)

func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(requestIDHeader, id)
		c.Header(requestIDHeader, id)
		c.Request = c.Request.WithContext(helper.WithRequestID(c.Request.Context(), id))
		c.Next()
	}
}

func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		metrics.InFlight.Inc()
		defer metrics.InFlight.Dec()
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		metrics.ReqDuration.WithLabelValues(route, c.Request.Method).Observe(time.Since(start).Seconds())
		metrics.RequestsTotal.WithLabelValues(route, c.Request.Method, strconv.Itoa(c.Writer.Status())).Inc()
	}
}

// AccessLog writes one line per request.
func AccessLog(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		applog.WithDD(c.Request.Context(), logger).Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("elapsed", time.Since(start)),
			zap.String("request_id", c.GetString(requestIDHeader)),
		)
	}
}

// ErrorHandler renders the last error a handler attached with c.Error.
func ErrorHandler(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}
		err := c.Errors.Last().Err
		resp := toAPIError(err)
		l := applog.WithDD(c.Request.Context(), logger, zap.String("request_id", c.GetString(requestIDHeader)))
		if resp.StatusCode >= http.StatusInternalServerError {
			l.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
		} else {
			l.Debug("request rejected", zap.Int("status", resp.StatusCode), zap.Error(err))
		}
		c.JSON(resp.StatusCode, resp)
	}
}

// Auth accepts a Bearer token from the Authorization header or cookie and
// loads the user it was issued for.
func Auth(tokens TokenParser, users UserAPI) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := c.GetHeader(authHeader)
		if raw == "" {
			raw, _ = c.Cookie(authHeader)
		}
		if !strings.HasPrefix(raw, bearerPrefix) {
			abort(c, errUnauthorized)
			return
		}
		claims, err := tokens.Parse(strings.TrimSpace(raw[len(bearerPrefix):]))
		if err != nil {
			abort(c, errUnauthorized)
			return
		}
		u, err := users.Me(c.Request.Context(), claims.Username())
		if err != nil {
			abort(c, err)
			return
		}
		c.Set(userKey, u)
		c.Next()
	}
}

func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		u, ok := currentUser(c)
		if !ok || !u.IsAdmin() {
			abort(c, service.ErrForbidden)
			return
		}
		c.Next()
	}
}

// APIUseTime adds the handling time of authenticated calls to the caller's total.
func APIUseTime(usage UsageAPI, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		u, ok := currentUser(c)
		if !ok {
			return
		}
		if err := usage.Record(c.Request.Context(), u, time.Since(start)); err != nil {
			logger.Warn("record api use time", zap.String("user_id", u.ID.Hex()), zap.Error(err))
		}
	}
}

func currentUser(c *gin.Context) (*domain.User, bool) {
	v, ok := c.Get(userKey)
	if !ok {
		return nil, false
	}
	u, ok := v.(*domain.User)
	return u, ok
}

func abort(c *gin.Context, err error) {
	_ = c.Error(err)
	c.Abort()
}

var _ TokenParser = (*security.Signer)(nil)
