// Package mockserver imitates the Gemini long-running prediction API closely
// enough for the video and image generators to run end to end offline.
package mockserver

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/logger"
	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"
)

const (
	DefaultCompleteAfter = 5 * time.Second
	operationTTL         = time.Hour
)

type Server struct {
	completeAfter time.Duration
	operations    *cache.Cache
	now           func() time.Time
	logger        *zap.Logger
	ginEngine     *gin.Engine
	inner         *http.Server
}

type Option func(s *Server)

// WithCompleteAfter sets how long an operation stays pending.
func WithCompleteAfter(d time.Duration) Option {
	return func(s *Server) {
		s.completeAfter = d
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Server) {
		s.now = now
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

func New(opts ...Option) *Server {
	s := &Server{
		completeAfter: DefaultCompleteAfter,
		operations:    cache.New(operationTTL, 10*time.Minute),
		now:           time.Now,
		logger:        zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}

	r := gin.New()
	r.Use(logger.SetLogger(logger.WithUTC(true)))
	r.Use(gin.Recovery())

	r.POST("/*path", s.submit)
	r.GET("/*path", s.get)
	r.NoRoute(func(c *gin.Context) {
		abort(c, http.StatusNotFound, "Endpoint not found")
	})

	s.ginEngine = r
	return s
}

func (s *Server) Handler() http.Handler {
	return s.ginEngine
}

func (s *Server) Start(host string, port int) error {
	s.inner = &http.Server{
		Addr:    fmt.Sprintf("%s:%d", host, port),
		Handler: s.ginEngine,
	}

	s.logger.Info("mock Gemini API listening",
		zap.String("addr", s.inner.Addr),
		zap.String("api_base_url", fmt.Sprintf("http://%s/v1beta", s.inner.Addr)),
		zap.Duration("complete_after", s.completeAfter),
	)

	return s.inner.ListenAndServe()
}

func (s *Server) Stop(ctx context.Context) error {
	if s.inner == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	return s.inner.Shutdown(ctx)
}

func abort(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, gin.H{
		"error": gin.H{
			"code":    status,
			"message": message,
		},
	})
}
