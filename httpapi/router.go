package httpapi

import (
	"net/http"

	goGrant "github.com/MrEthical07/goGrant"
	"github.com/MrEthical07/goGrant/metrics/export/prometheus"
	"github.com/MrEthical07/goGrant/scope"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// AdminRole guards GET /admin/audit-check.
const AdminRole = "admin"

// Options tunes NewRouter. The zero value logs nothing and serves engine
// metrics on /metrics.
type Options struct {
	Logger *zap.Logger
	// Metrics replaces the /metrics handler. Nil serves the engine's own
	// metrics through the Prometheus collector.
	Metrics http.Handler
	// DisableMetrics removes /metrics.
	DisableMetrics bool
}

// NewRouter mounts every route on a new gin engine.
func NewRouter(engine *goGrant.Engine, opts Options) *gin.Engine {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("http")

	h := &handler{engine: engine, logger: logger}

	r := gin.New()
	r.Use(Recovery(logger), RequestLogger(logger))

	auth := r.Group("/auth")
	{
		auth.POST("/login", h.login)
		auth.POST("/refresh", h.refresh)
		auth.POST("/logout", h.logout)
		auth.POST("/password-reset/request", h.requestPasswordReset)
		auth.POST("/password-reset/confirm", h.confirmPasswordReset)
	}

	r.GET("/dashboard", RequireAuth(engine, scope.Read), h.dashboard)
	r.GET("/admin/audit-check", RequireAuth(engine, scope.Read), RequireRole(engine, AdminRole), h.auditCheck)

	r.GET("/healthz", h.healthz)
	if !opts.DisableMetrics {
		metrics := opts.Metrics
		if metrics == nil {
			metrics = prometheus.Handler(engine)
		}
		r.GET("/metrics", gin.WrapH(metrics))
	}
	return r
}
