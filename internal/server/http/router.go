// Package http exposes the console's server API: token issuance, provider
// catalogs, health, and metrics.
package http

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"aria/internal/catalog"
	"aria/internal/logging"
	"aria/internal/observability"
	"aria/internal/rtc"
)

// RouterConfig controls the HTTP surface.
type RouterConfig struct {
	AllowedOrigins []string
	Verbose        bool
}

// RouterDeps are the collaborators behind the endpoints.
type RouterDeps struct {
	Issuer  *rtc.Issuer
	Catalog catalog.Catalog
	Metrics *observability.MetricsCollector
	Logger  logging.Logger
}

// methodsByPath backs the Allow header on 405 responses.
var methodsByPath = map[string]string{
	"/api/token":     http.MethodPost,
	"/api/providers": http.MethodGet,
	"/api/health":    http.MethodGet,
	"/metrics":       http.MethodGet,
}

// NewRouter assembles the gin engine with CORS, recovery, request logging,
// and method gating.
func NewRouter(cfg RouterConfig, deps RouterDeps) *gin.Engine {
	if !cfg.Verbose {
		gin.SetMode(gin.ReleaseMode)
	}
	logger := logging.OrNop(deps.Logger)

	engine := gin.New()
	engine.Use(gin.Recovery(), requestLogger(logger))

	corsCfg := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) == 1 && cfg.AllowedOrigins[0] == "*" {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = cfg.AllowedOrigins
	}
	corsCfg.AllowHeaders = append(corsCfg.AllowHeaders, "Authorization")
	engine.Use(cors.New(corsCfg))

	engine.HandleMethodNotAllowed = true
	engine.NoMethod(func(c *gin.Context) {
		if allow, ok := methodsByPath[c.Request.URL.Path]; ok {
			c.Header("Allow", allow)
		}
		c.String(http.StatusMethodNotAllowed, "Method Not Allowed")
	})

	tokenHandler := NewTokenHandler(deps.Issuer, deps.Metrics)
	engine.POST("/api/token", tokenHandler.Handle)
	engine.GET("/api/providers", providersHandler(deps.Catalog))
	engine.GET("/api/health", healthHandler(time.Now()))
	if deps.Metrics != nil {
		engine.GET("/metrics", gin.WrapH(deps.Metrics.Handler()))
	}
	return engine
}

// requestLogger emits one line per request.
func requestLogger(logger logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug("%s %s -> %d (%s)",
			c.Request.Method, c.Request.URL.Path, c.Writer.Status(), time.Since(start))
	}
}

func providersHandler(cat catalog.Catalog) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, cat)
	}
}

func healthHandler(startTime time.Time) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":         "ok",
			"uptime_seconds": int64(time.Since(startTime).Seconds()),
		})
	}
}
