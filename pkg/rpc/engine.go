package rpc

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// EngineOptions configures the HTTP engine built around a Server.
type EngineOptions struct {
	// AllowedOrigins lists CORS origins. Empty allows every origin.
	AllowedOrigins []string
	// Path overrides DefaultPath.
	Path string
}

// NewEngine builds a gin engine serving srv with logging, recovery and CORS.
func NewEngine(srv *Server, logger *zap.Logger, opts EngineOptions) *gin.Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := gin.New()
	r.Use(LoggerMiddleware(logger), RecoveryMiddleware(logger))

	corsCfg := cors.DefaultConfig()
	if len(opts.AllowedOrigins) == 0 {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = opts.AllowedOrigins
	}
	corsCfg.AllowHeaders = append(corsCfg.AllowHeaders, ActorHeader)
	corsCfg.MaxAge = 12 * time.Hour
	r.Use(cors.New(corsCfg))

	path := opts.Path
	if path == "" {
		path = DefaultPath
	}
	srv.Mount(r, path)
	return r
}
