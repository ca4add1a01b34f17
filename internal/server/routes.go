package server

import (
	"github.com/genaker/agento/internal/api"
	"github.com/genaker/agento/internal/app"
	"github.com/gin-gonic/gin"
)

func (s *Server) SetupRoutes(app *app.App) {
	s.ginEngine.GET("/health", handlerWrapper(app, api.Health))

	s.ginEngine.POST("/generate", handlerWrapper(app, api.GenerateImage))
	s.ginEngine.GET("/images/:filename", handlerWrapper(app, api.GetImage))

	s.ginEngine.POST("/videos/generate", handlerWrapper(app, api.GenerateVideo))
}

func handlerWrapper(app *app.App, f func(c *gin.Context)) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		ctx.Set("app", app)
		f(ctx)
	}
}
