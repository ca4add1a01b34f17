package app

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/genaker/agento/internal/config"
	"github.com/genaker/agento/internal/gemini"
	"github.com/genaker/agento/internal/services/filestorage"
	"github.com/genaker/agento/internal/services/fileuploader"
	"github.com/genaker/agento/internal/services/imagegen"
	"github.com/genaker/agento/internal/services/video"
	"github.com/genaker/agento/internal/utils/randutil"
	"github.com/genaker/agento/pkg/logger"

	"github.com/vbauerster/mpb/v7"
	"go.uber.org/zap"
	"google.golang.org/genai"
)

type App struct {
	config       *config.Config
	ctx          context.Context
	cancelFunc   context.CancelFunc
	fileuploader *fileuploader.Uploader
	progress     *mpb.Progress

	Logger *zap.Logger
}

// Option funcs used to initialize the App struct
type OptionFunc func(app *App) error

func WithLogger(logger *zap.Logger) OptionFunc {
	return func(app *App) error {
		app.Logger = logger
		return nil
	}
}

// WithFileUploader mirrors saved media to S3 when a bucket is configured.
func WithFileUploader() OptionFunc {
	return func(app *App) error {
		if app.config.S3 == nil {
			return nil
		}

		storage, err := filestorage.NewS3FileStorage(app.config.S3)
		if err != nil {
			return err
		}
		app.fileuploader = fileuploader.NewFileUploader(storage, 4)
		return nil
	}
}

// WithDownloadProgress renders download progress bars on w. All clients
// built by the app draw into the same container.
func WithDownloadProgress(w io.Writer) OptionFunc {
	return func(app *App) error {
		app.progress = gemini.NewProgress(app.ctx, w)
		return nil
	}
}

func NewApp(cfg *config.Config, options ...OptionFunc) (*App, error) {
	ctx, cancel := context.WithCancel(context.Background())

	app := &App{
		ctx:        ctx,
		config:     cfg,
		cancelFunc: cancel,
	}

	for _, opt := range options {
		if err := opt(app); err != nil {
			cancel()
			return nil, err
		}
	}

	if app.Logger == nil {
		l, err := logger.InitLogger(cfg)
		if err != nil {
			cancel()
			return nil, err
		}
		app.Logger = l
	}

	return app, nil
}

func (app *App) Close() {
	if app.progress != nil {
		app.progress.Wait()
	}
	app.cancelFunc()

	if app.fileuploader != nil {
		app.fileuploader.Stop()
	}

	_ = app.Logger.Sync()
}

func (app *App) Config() *config.Config {
	return app.config
}

func (app *App) Context() context.Context {
	return app.ctx
}

func (app *App) Uploader() *fileuploader.Uploader {
	return app.fileuploader
}

// APIKey prefers the explicit key over the configured one.
func (app *App) APIKey(explicit string) (string, error) {
	key := strings.TrimSpace(explicit)
	if key == "" && app.config.Gemini != nil {
		key = app.config.Gemini.APIKey
	}
	if key == "" {
		return "", config.ErrAPIKeyMissing
	}

	return key, nil
}

func (app *App) geminiClient(apiKey string, maxDownloadBytes int64) (*gemini.Client, error) {
	key, err := app.APIKey(apiKey)
	if err != nil {
		return nil, err
	}

	app.Logger.Debug("using gemini api",
		zap.String("base_url", app.config.Gemini.APIBaseURL),
		zap.String("api_key", randutil.MaskString(key, 4, 4)),
	)

	opts := []gemini.Option{
		gemini.WithLogger(app.Logger.Named("gemini")),
		gemini.WithRetry(3, time.Second),
		gemini.WithMaxDownloadBytes(maxDownloadBytes),
	}
	if app.progress != nil {
		opts = append(opts, gemini.WithProgress(app.progress))
	}

	return gemini.NewClient(key, app.config.Gemini.APIBaseURL, opts...)
}

// VideoService builds a video generator storing into <base>/pub/media/video.
func (app *App) VideoService(apiKey string) (*video.Service, error) {
	cfg := app.config
	client, err := app.geminiClient(apiKey, cfg.Video.MaxDownloadBytes)
	if err != nil {
		return nil, err
	}

	opts := []video.Option{
		video.WithLogger(app.Logger.Named("video")),
		video.WithModel(cfg.Gemini.VideoModel),
		video.WithPolling(cfg.Video.MaxWait, cfg.Video.PollInterval),
	}
	if app.fileuploader != nil {
		opts = append(opts, video.WithMirror(app.fileuploader))
	}

	return video.NewService(client, filestorage.NewMediaStorage(cfg), opts...), nil
}

// ImageService builds an image generator saving into outputDir.
func (app *App) ImageService(apiKey, outputDir string) (*imagegen.Service, error) {
	cfg := app.config
	client, err := app.geminiClient(apiKey, 0)
	if err != nil {
		return nil, err
	}

	opts := []imagegen.Option{
		imagegen.WithLogger(app.Logger.Named("imagegen")),
		imagegen.WithModel(cfg.Gemini.ImageModel),
		imagegen.WithBackend(cfg.Image.Backend),
		imagegen.WithPolling(cfg.Image.MaxWait, cfg.Image.PollInterval),
		imagegen.WithMaxInputDimension(cfg.Image.MaxInputDimension),
	}

	if cfg.Image.Backend != config.ImageBackendHTTP {
		sdk, err := app.GenAIClient(app.ctx, apiKey)
		if err != nil {
			return nil, err
		}
		opts = append(opts, imagegen.WithContentGenerator(sdk.Models))
	}

	storage := filestorage.NewLocalFileStorage(outputDir, "")
	return imagegen.NewService(client, storage, opts...), nil
}

// ImageOutputDir is where the image CLI saves results: <image.base_path>/<image.output_dir>.
func (app *App) ImageOutputDir() string {
	return filepath.Join(app.config.Image.BasePath, app.config.Image.OutputDir)
}

// LookbookDir is where the image server saves results.
func (app *App) LookbookDir() string {
	return filepath.Join(app.config.BasePath, "pub", "media", "lookbook")
}

// GenAIClient returns an SDK client for the Gemini API. A custom API base URL
// is honoured so the SDK can be pointed at a proxy.
func (app *App) GenAIClient(ctx context.Context, apiKey string) (*genai.Client, error) {
	key, err := app.APIKey(apiKey)
	if err != nil {
		return nil, err
	}

	clientConfig := &genai.ClientConfig{
		APIKey:  key,
		Backend: genai.BackendGeminiAPI,
	}
	if base := app.config.Gemini.APIBaseURL; base != "" && base != config.DefaultAPIBaseURL {
		clientConfig.HTTPOptions = genai.HTTPOptions{BaseURL: strings.TrimSuffix(base, "/v1beta") + "/"}
	}

	client, err := genai.NewClient(ctx, clientConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return client, nil
}
