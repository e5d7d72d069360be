package httpapi

import (
	"net/http"
	"runtime/debug"
	"time"

	goGrant "github.com/MrEthical07/goGrant"
	"github.com/MrEthical07/goGrant/internal/logging"
	"github.com/MrEthical07/goGrant/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	requestIDHeader = "X-Request-ID"
	authResultKey   = "gogrant.auth"
	loggerKey       = "gogrant.logger"
)

// RequestLogger tags each request with an id, reusing a valid incoming
// X-Request-ID, and logs its completion. The id and client IP are attached
// to the request context for the engine.
func RequestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(requestIDHeader)
		if _, err := uuid.Parse(requestID); err != nil {
			requestID = uuid.NewString()
		}
		c.Header(requestIDHeader, requestID)

		reqLogger := logging.WithRequestID(logger, requestID)
		c.Set(loggerKey, reqLogger)

		ctx := goGrant.WithRequestID(c.Request.Context(), requestID)
		ctx = goGrant.WithClientIP(ctx, c.ClientIP())
		c.Request = c.Request.WithContext(ctx)

		start := time.Now()
		c.Next()

		reqLogger.Info("request completed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		)
	}
}

// Recovery turns a handler panic into a 500 and logs the stack.
func Recovery(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if rec := recover(); rec != nil {
				requestLogger(c, logger).Error("panic recovered",
					zap.Any("panic", rec),
					zap.ByteString("stack", debug.Stack()),
					zap.String("method", c.Request.Method),
					zap.String("path", c.Request.URL.Path),
				)
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
			}
		}()
		c.Next()
	}
}

// RequireAuth authorizes the bearer token for requiredScope and stores the
// result for AuthResult.
func RequireAuth(engine *goGrant.Engine, requiredScope string) gin.HandlerFunc {
	return func(c *gin.Context) {
		bearer, ok := middleware.BearerToken(c.GetHeader("Authorization"))
		if !ok {
			abortWithError(c, goGrant.ErrUnauthenticated)
			return
		}

		res, err := engine.Authorize(c.Request.Context(), bearer, requiredScope)
		if err != nil {
			abortWithError(c, err)
			return
		}
		c.Set(authResultKey, res)
		c.Next()
	}
}

// RequireRole must follow RequireAuth.
func RequireRole(engine *goGrant.Engine, role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		res, ok := AuthResult(c)
		if !ok {
			abortWithError(c, goGrant.ErrUnauthenticated)
			return
		}
		if err := engine.RequireRole(c.Request.Context(), res.User, role); err != nil {
			abortWithError(c, err)
			return
		}
		c.Next()
	}
}

// AuthResult returns the result stored by RequireAuth.
func AuthResult(c *gin.Context) (*goGrant.AuthResult, bool) {
	v, ok := c.Get(authResultKey)
	if !ok {
		return nil, false
	}
	res, ok := v.(*goGrant.AuthResult)
	return res, ok
}

func requestLogger(c *gin.Context, fallback *zap.Logger) *zap.Logger {
	if v, ok := c.Get(loggerKey); ok {
		if l, ok := v.(*zap.Logger); ok {
			return l
		}
	}
	return fallback
}
