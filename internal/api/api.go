package api

import (
	"errors"
	"net/http"

	"github.com/genaker/agento/internal/app"
	"github.com/genaker/agento/internal/gemini"
	"github.com/genaker/agento/internal/services/video"
	"github.com/genaker/agento/internal/utils/mediautil"
	"github.com/gin-gonic/gin"
)

const serviceName = "agento-image-server"

func Health(c *gin.Context) {
	app := c.MustGet("app").(*app.App)
	_, err := app.APIKey("")

	c.JSON(http.StatusOK, gin.H{
		"status":        "healthy",
		"service":       serviceName,
		"api_available": err == nil,
	})
}

func failure(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"success": false, "error": message})
}

// statusFor maps generation errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case gemini.IsSafetyFilterError(err):
		return http.StatusUnprocessableEntity
	case errors.Is(err, mediautil.ErrSourceNotFound),
		errors.Is(err, mediautil.ErrEmptySource),
		errors.Is(err, video.ErrSourceNotFound):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
