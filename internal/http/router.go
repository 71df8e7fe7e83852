package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/thinkbank-worker/internal/http/handlers"
	"github.com/yungbote/thinkbank-worker/internal/http/middleware"
	"github.com/yungbote/thinkbank-worker/internal/pkg/logger"
)

type RouterConfig struct {
	Log           *logger.Logger
	HealthHandler *handlers.HealthHandler
	// Metrics serves /metrics when set.
	Metrics http.Handler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger(cfg.Log))

	health := cfg.HealthHandler
	if health == nil {
		health = handlers.NewHealthHandler(nil)
	}
	r.GET("/healthz", health.HealthCheck)
	r.GET("/readyz", health.ReadyCheck)
	if cfg.Metrics != nil {
		r.GET("/metrics", gin.WrapH(cfg.Metrics))
	}
	return r
}
