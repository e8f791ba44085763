package http

import (
	stdhttp "net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/droprelay/internal/config"
	"github.com/vovakirdan/droprelay/internal/metrics"
	"github.com/vovakirdan/droprelay/internal/store"
)

// NewServer builds an HTTP server with the relay routes. history may be nil,
// in which case /api/history is not registered.
func NewServer(hub Hub, history store.HistoryStore, m *metrics.Metrics, cfg *config.Config, logger *zerolog.Logger) *stdhttp.Server {
	mux := stdhttp.NewServeMux()
	// gin's response writer cannot be hijacked once the upgrade headers are written.
	mux.Handle("/ws", NewWSHandler(hub, m, cfg, logger))
	mux.Handle("/", newCORS(cfg.AllowedOrigins).Handler(newRouter(hub, history, m, cfg, logger)))

	return &stdhttp.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
}

func newRouter(hub Hub, history store.HistoryStore, m *metrics.Metrics, cfg *config.Config, logger *zerolog.Logger) *gin.Engine {
	if cfg.LogLevel != "debug" && cfg.LogLevel != "trace" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(LoggerMiddleware(logger))

	router.GET("/health", healthHandler)
	router.GET("/metrics", gin.WrapH(m.Handler()))

	api := NewAPIHandlers(hub, history, logger)
	apiGroup := router.Group("/api")
	apiGroup.GET("/stats", api.Stats)
	if history != nil {
		apiGroup.GET("/history", api.History)
	}
	return router
}

func healthHandler(c *gin.Context) {
	c.String(stdhttp.StatusOK, "ok")
}
