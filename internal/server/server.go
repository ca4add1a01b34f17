package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"time"

	"github.com/genaker/agento/internal/config"
	"github.com/genaker/agento/pkg/logger"
	"github.com/gin-contrib/cors"
	ginlogger "github.com/gin-contrib/logger"
	"github.com/gin-contrib/static"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Server struct {
	listenAddr string
	ginEngine  *gin.Engine
	inner      *http.Server
	logger     *zap.Logger
}

func NewServer(cfg *config.Config, zl *zap.Logger) (*Server, error) {
	if cfg.Server == nil {
		return nil, errors.New("server config is missing")
	}
	if zl == nil {
		zl = logger.GetLogger()
	}

	gin.SetMode(getGinMode(cfg.Environment, cfg.Server.Debug))
	r := gin.New()

	// Setup logger middleware
	r.Use(ginlogger.SetLogger(
		ginlogger.WithUTC(true),
		ginlogger.WithSkipPath([]string{"/health"}),
	))

	// Setup CORS middleware
	r.Use(cors.New(
		cors.Config{
			AllowMethods:     []string{"GET", "POST", "OPTIONS"},
			AllowOrigins:     []string{"*"},
			AllowHeaders:     []string{"*"},
			ExposeHeaders:    []string{"*"},
			AllowCredentials: true,
			MaxAge:           300,
		},
	))

	// Generated videos are linked as <media base url>/media/video/...
	mediaDir := filepath.Join(cfg.BasePath, "pub", "media")
	r.Use(static.Serve("/media", static.LocalFile(mediaDir, false)))

	r.Use(gin.CustomRecovery(func(c *gin.Context, recovered any) {
		zl.Error("panic while handling request",
			zap.String("path", c.Request.URL.Path),
			zap.Any("panic", recovered),
		)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Internal server error"})
	}))

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "Endpoint not found"})
	})

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	return &Server{
		listenAddr: addr,
		ginEngine:  r,
		logger:     zl,
		inner: &http.Server{
			Handler: r,
			Addr:    addr,
		},
	}, nil
}

// Handler exposes the router, mostly for tests.
func (s *Server) Handler() http.Handler {
	return s.ginEngine
}

func (s *Server) Start() error {
	s.logger.Info("starting image server", zap.String("addr", s.listenAddr))
	if err := s.inner.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return nil
}

func (s *Server) Stop(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	s.logger.Info("stopping image server")

	return s.inner.Shutdown(ctx)
}

func getGinMode(env string, debug bool) string {
	if debug {
		return gin.DebugMode
	}

	switch env {
	case "dev":
		return gin.DebugMode
	case "test":
		return gin.TestMode
	default:
		return gin.ReleaseMode
	}
}
