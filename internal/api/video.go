package api

import (
	"net/http"

	"github.com/genaker/agento/internal/app"
	"github.com/genaker/agento/internal/services/video"
	"github.com/genaker/agento/internal/utils/webhookutil"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const webhookAttempts = 3

type GenerateVideoRequest struct {
	video.Request
	APIKey     string `json:"api_key"`
	WebhookURL string `json:"webhook_url"`
}

func GenerateVideo(c *gin.Context) {
	app := c.MustGet("app").(*app.App)

	data := GenerateVideoRequest{}
	if err := c.ShouldBindJSON(&data); err != nil {
		failure(c, http.StatusBadRequest, "failed to parse request body")
		return
	}

	if data.ImagePath == "" {
		failure(c, http.StatusBadRequest, "image_path is required")
		return
	}
	if data.Prompt == "" {
		failure(c, http.StatusBadRequest, "prompt is required")
		return
	}
	if data.AspectRatio == "" {
		data.AspectRatio = video.DefaultAspectRatio
	}

	svc, err := app.VideoService(data.APIKey)
	if err != nil {
		failure(c, http.StatusInternalServerError, err.Error())
		return
	}

	if data.WebhookURL == "" {
		outcome := svc.Run(c.Request.Context(), data.Request)
		status := http.StatusOK
		if !outcome.Success {
			status = statusFor(outcome.Err)
		}
		c.JSON(status, outcome)
		return
	}

	submission, err := svc.Generate(c.Request.Context(), data.ImagePath, data.Prompt, data.AspectRatio, data.Silent)
	if err != nil {
		failure(c, statusFor(err), err.Error())
		return
	}

	if submission.FromCache {
		c.JSON(http.StatusOK, &video.Outcome{
			ImagePath: data.ImagePath,
			Success:   true,
			Status:    video.StatusCompleted,
			VideoURL:  submission.VideoURL,
			VideoPath: submission.VideoPath,
			Cached:    true,
		})
		return
	}

	go pollAndNotify(app, svc, data, submission)

	c.JSON(http.StatusAccepted, &video.Outcome{
		ImagePath:     data.ImagePath,
		Success:       true,
		Status:        video.StatusProcessing,
		OperationName: submission.OperationName,
	})
}

// pollAndNotify finishes a submission outside the request and reports the
// outcome to the caller's webhook. It stops when the app shuts down.
func pollAndNotify(app *app.App, svc *video.Service, data GenerateVideoRequest, submission *video.Submission) {
	ctx := app.Context()
	outcome := &video.Outcome{
		ImagePath:     data.ImagePath,
		OperationName: submission.OperationName,
	}

	result, err := svc.PollAndSave(ctx, submission.OperationName, submission.CacheKey)
	if err != nil {
		app.Logger.Error("video generation failed", zap.String("operation", submission.OperationName), zap.Error(err))
		outcome.Error = err.Error()
	} else {
		outcome.Success = true
		outcome.Status = result.Status
		outcome.VideoURL = result.VideoURL
		outcome.VideoPath = result.VideoPath
		outcome.EmbedURL = result.EmbedURL
		outcome.PublicURL = result.PublicURL
	}

	if err := webhookutil.InvokeWithRetries(ctx, data.WebhookURL, outcome, webhookAttempts); err != nil {
		app.Logger.Error("failed to invoke webhook", zap.String("url", data.WebhookURL), zap.Error(err))
	}
}
