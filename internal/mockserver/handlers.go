package mockserver

import (
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"
)

type operation struct {
	name      string
	createdAt time.Time
	image     bool
	assetID   string
}

func (s *Server) submit(c *gin.Context) {
	if !strings.Contains(c.Request.URL.Path, ":predictLongRunning") {
		abort(c, http.StatusNotFound, "Endpoint not found")
		return
	}

	body, err := io.ReadAll(c.Request.Body)
	if err != nil || !gjson.ValidBytes(body) {
		abort(c, http.StatusBadRequest, "Invalid JSON")
		return
	}

	if c.GetHeader("x-goog-api-key") == "" && c.Query("key") == "" {
		abort(c, http.StatusUnauthorized, "API key required")
		return
	}

	instance := gjson.GetBytes(body, "instances.0")
	op := &operation{
		name:      "operations/" + uuid.NewString(),
		createdAt: s.now(),
		image:     instance.Get("modelImage").Exists() && instance.Get("lookImage").Exists(),
		assetID:   uuid.NewString(),
	}
	s.operations.Set(op.name, op, cache.DefaultExpiration)

	s.logger.Debug("operation submitted", zap.String("operation", op.name), zap.Bool("image", op.image))
	c.JSON(http.StatusOK, gin.H{"name": op.name, "done": false})
}

func (s *Server) get(c *gin.Context) {
	parts := strings.Split(strings.Trim(c.Request.URL.Path, "/"), "/")

	for i, part := range parts {
		if part != "operations" {
			continue
		}
		if i+1 >= len(parts) {
			abort(c, http.StatusNotFound, "Operation ID not found")
			return
		}
		s.getOperation(c, strings.Join(parts[i:], "/"))
		return
	}

	if len(parts) > 1 {
		switch parts[0] {
		case "videos":
			c.Data(http.StatusOK, "video/mp4", mockMP4)
			return
		case "images":
			c.Data(http.StatusOK, "image/png", mockPNG)
			return
		}
	}

	abort(c, http.StatusNotFound, "Endpoint not found")
}

func (s *Server) getOperation(c *gin.Context, name string) {
	value, ok := s.operations.Get(name)
	if !ok {
		abort(c, http.StatusNotFound, "Operation not found")
		return
	}

	op := value.(*operation)
	if s.now().Sub(op.createdAt) < s.completeAfter {
		c.JSON(http.StatusOK, gin.H{"name": name, "done": false})
		return
	}

	baseURL := "http://" + c.Request.Host
	var response gin.H
	if op.image {
		response = gin.H{
			"generateImageResponse": gin.H{
				"generatedSamples": []gin.H{{
					"image": gin.H{"uri": baseURL + "/images/" + op.assetID, "mimeType": "image/png"},
				}},
			},
		}
	} else {
		response = gin.H{
			"generateVideoResponse": gin.H{
				"generatedSamples": []gin.H{{
					"video": gin.H{"uri": baseURL + "/videos/" + op.assetID, "mimeType": "video/mp4"},
				}},
			},
		}
	}

	c.JSON(http.StatusOK, gin.H{"name": name, "done": true, "response": response})
}
