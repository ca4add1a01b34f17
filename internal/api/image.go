package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/genaker/agento/internal/app"
	"github.com/genaker/agento/internal/services/filestorage"
	"github.com/genaker/agento/internal/services/imagegen"
	"github.com/genaker/agento/internal/utils/pathutil"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type GenerateImageRequest struct {
	ModelImage string `json:"model_image"`
	LookImage  string `json:"look_image"`
	Prompt     string `json:"prompt"`
	APIKey     string `json:"api_key"`
}

func GenerateImage(c *gin.Context) {
	app := c.MustGet("app").(*app.App)

	data := GenerateImageRequest{}
	if err := c.ShouldBindJSON(&data); err != nil {
		if errors.Is(err, io.EOF) {
			failure(c, http.StatusBadRequest, "No JSON payload provided")
			return
		}
		failure(c, http.StatusBadRequest, "failed to parse request body")
		return
	}

	if data.ModelImage == "" {
		failure(c, http.StatusBadRequest, "model_image is required")
		return
	}
	if data.Prompt == "" {
		failure(c, http.StatusBadRequest, "prompt is required")
		return
	}

	apiKey, err := app.APIKey(data.APIKey)
	if err != nil {
		failure(c, http.StatusInternalServerError, "API key not configured")
		return
	}

	svc, err := app.ImageService(apiKey, app.LookbookDir())
	if err != nil {
		failure(c, http.StatusInternalServerError, err.Error())
		return
	}

	ctx := c.Request.Context()
	op, err := svc.Generate(ctx, data.ModelImage, data.LookImage, data.Prompt)
	if err != nil {
		app.Logger.Error("image generation failed", zap.Error(err))
		failure(c, statusFor(err), err.Error())
		return
	}

	if !op.Done {
		c.JSON(http.StatusOK, op)
		return
	}

	name := imagegen.DescriptiveFilename(data.ModelImage, data.LookImage, data.Prompt, time.Now())
	savedPath, err := svc.SaveAsset(ctx, op, name)
	if err != nil {
		app.Logger.Error("failed to save generated image", zap.Error(err))
		failure(c, statusFor(err), err.Error())
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"status":     "completed",
		"saved_path": savedPath,
		"filename":   filepath.Base(savedPath),
		"message":    fmt.Sprintf("Image generated and saved to %s", savedPath),
		"input": gin.H{
			"model_image": data.ModelImage,
			"look_image":  data.LookImage,
			"prompt":      data.Prompt,
		},
	})
}

func GetImage(c *gin.Context) {
	filename := c.Param("filename")
	app := c.MustGet("app").(*app.App)

	storage := filestorage.NewLocalFileStorage(app.LookbookDir(), "")
	file, err := storage.ResolveFile(filename)
	if err != nil {
		if errors.Is(err, filestorage.ErrFileNotFound) || errors.Is(err, pathutil.ErrPathEscapesRoot) {
			failure(c, http.StatusNotFound, fmt.Sprintf("Image %s not found", filename))
			return
		}
		failure(c, http.StatusInternalServerError, err.Error())
		return
	}

	mtype, err := mimetype.DetectFile(file)
	if err != nil {
		failure(c, http.StatusInternalServerError, err.Error())
		return
	}

	c.Header("Content-Type", mtype.String())
	c.File(file)
}
