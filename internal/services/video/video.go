// Package video turns a still image into a short clip with the Veo
// long-running prediction API and keeps the results in a hash-addressed cache.
package video

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gammazero/workerpool"
	"go.uber.org/zap"

	"github.com/genaker/agento/internal/config"
	"github.com/genaker/agento/internal/gemini"
	"github.com/genaker/agento/internal/services/filestorage"
	"github.com/genaker/agento/internal/utils/hashutil"
	"github.com/genaker/agento/internal/utils/mediautil"
)

const videoFolder = "video"

var ErrSourceNotFound = errors.New("source image not found")

// Client is the subset of the Gemini client used to generate videos.
type Client interface {
	Submit(ctx context.Context, model string, request *gemini.PredictRequest) (*gemini.Operation, error)
	Poll(ctx context.Context, name string, maxWait, interval time.Duration) (*gemini.Operation, error)
	Download(ctx context.Context, uri string, w io.Writer) (int64, error)
}

// Mirror copies saved videos to public storage.
type Mirror interface {
	UploadAndWait(ctx context.Context, file filestorage.FileInfo) (string, error)
}

type Service struct {
	client       Client
	storage      *filestorage.LocalFileStorage
	loader       *mediautil.Loader
	mirror       Mirror
	logger       *zap.Logger
	model        string
	maxWait      time.Duration
	pollInterval time.Duration
}

type Option func(s *Service)

func WithLogger(logger *zap.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithModel(model string) Option {
	return func(s *Service) {
		if model != "" {
			s.model = model
		}
	}
}

func WithPolling(maxWait, interval time.Duration) Option {
	return func(s *Service) {
		if maxWait > 0 {
			s.maxWait = maxWait
		}
		if interval > 0 {
			s.pollInterval = interval
		}
	}
}

func WithMirror(mirror Mirror) Option {
	return func(s *Service) {
		s.mirror = mirror
	}
}

func WithLoader(loader *mediautil.Loader) Option {
	return func(s *Service) {
		s.loader = loader
	}
}

// NewService stores videos below storage, which is expected to be rooted at
// the media directory (<base>/pub/media).
func NewService(client Client, storage *filestorage.LocalFileStorage, opts ...Option) *Service {
	s := &Service{
		client:       client,
		storage:      storage,
		loader:       mediautil.NewLoader(0),
		logger:       zap.NewNop(),
		model:        config.DefaultVideoModel,
		maxWait:      300 * time.Second,
		pollInterval: 10 * time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}

	return s
}

// ResolveImagePath maps an image reference onto the media directory.
// Absolute paths and URLs are kept; a leading "pub/media/" is dropped.
func (s *Service) ResolveImagePath(imagePath string) string {
	if mediautil.IsURL(imagePath) || filepath.IsAbs(imagePath) {
		return imagePath
	}

	imagePath = strings.TrimPrefix(imagePath, "pub/media/")
	return filepath.Join(s.storage.Root(), strings.TrimLeft(imagePath, "/"))
}

// CacheKey identifies a generation by image content, prompt and aspect ratio.
func CacheKey(image []byte, prompt, aspectRatio string) string {
	imageHash := hashutil.MD5Hex(image)
	return hashutil.MD5Hex([]byte(imageHash + ":" + prompt + ":" + aspectRatio))
}

func videoName(key string) string {
	return videoFolder + "/veo_" + key + ".mp4"
}

// CachedVideo returns the saved video for key, or nil when there is none.
func (s *Service) CachedVideo(key string) *Submission {
	name := videoName(key)
	videoPath, err := s.storage.ResolveFile(name)
	if err != nil {
		return nil
	}

	return &Submission{
		FromCache: true,
		Done:      true,
		CacheKey:  key,
		VideoURL:  s.storage.URL(name),
		VideoPath: videoPath,
		Status:    StatusCompleted,
	}
}

func finalPrompt(prompt string, silent bool) string {
	if silent {
		return strings.TrimSpace(prompt) + " silent video"
	}

	return prompt
}

// Generate submits a video generation for imagePath, short-circuiting when
// the same image, prompt and aspect ratio were already rendered.
func (s *Service) Generate(ctx context.Context, imagePath, prompt, aspectRatio string, silent bool) (*Submission, error) {
	sourcePath := s.ResolveImagePath(imagePath)
	asset, err := s.loader.Load(ctx, sourcePath)
	if err != nil {
		if errors.Is(err, mediautil.ErrSourceNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrSourceNotFound, sourcePath)
		}
		return nil, err
	}

	prompt = finalPrompt(prompt, silent)
	key := CacheKey(asset.Data, prompt, aspectRatio)
	if cached := s.CachedVideo(key); cached != nil {
		s.logger.Info("video served from cache", zap.String("cache_key", key))
		return cached, nil
	}

	request := &gemini.PredictRequest{
		Instances: []gemini.Instance{{
			Prompt: prompt,
			Image: &gemini.InlineImage{
				BytesBase64Encoded: asset.Data,
				MIMEType:           asset.MIMEType,
			},
		}},
	}
	if aspectRatio != "" {
		request.Parameters = &gemini.Parameters{AspectRatio: aspectRatio}
	}

	op, err := s.client.Submit(ctx, s.model, request)
	if err != nil {
		return nil, fmt.Errorf("video generation failed: %w", err)
	}

	s.logger.Info("video generation started",
		zap.String("operation", op.Name),
		zap.String("cache_key", key),
		zap.String("image", sourcePath),
	)

	status := StatusRunning
	if op.Done {
		status = StatusCompleted
	}

	return &Submission{
		OperationName: op.Name,
		CacheKey:      key,
		Done:          op.Done,
		Status:        status,
	}, nil
}

// PollAndSave waits for operationName and stores the video under cacheKey,
// or under the operation id when cacheKey is empty.
func (s *Service) PollAndSave(ctx context.Context, operationName, cacheKey string) (*Result, error) {
	op, err := s.client.Poll(ctx, operationName, s.maxWait, s.pollInterval)
	if err != nil {
		if errors.Is(err, gemini.ErrOperationTimeout) {
			return nil, fmt.Errorf("video generation timeout after %s: %w", s.maxWait, err)
		}
		return nil, fmt.Errorf("video operation polling failed: %w", err)
	}

	sample, err := op.Result()
	if err != nil {
		if errors.Is(err, gemini.ErrNoAsset) {
			return nil, errors.New("no video URI found in completed operation response")
		}
		return nil, err
	}

	media := sample.Asset()
	if cacheKey == "" {
		cacheKey = gemini.OperationID(operationName)
	}

	name := videoName(cacheKey)
	videoPath, err := s.storage.WriteStream(name, func(w io.Writer) error {
		if data := media.Bytes(); len(data) > 0 {
			_, err := w.Write(data)
			return err
		}

		_, err := s.client.Download(ctx, media.URI, w)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to save video: %w", err)
	}

	result := &Result{
		VideoURL:  s.storage.URL(name),
		VideoPath: videoPath,
		Status:    StatusCompleted,
	}
	result.EmbedURL = EmbedHTML(result.VideoURL)

	s.logger.Info("video saved", zap.String("path", videoPath), zap.String("url", result.VideoURL))

	if s.mirror != nil {
		result.PublicURL = s.mirrorVideo(ctx, videoPath, cacheKey)
	}

	return result, nil
}

func (s *Service) mirrorVideo(ctx context.Context, videoPath, cacheKey string) string {
	f, err := os.Open(videoPath)
	if err != nil {
		s.logger.Warn("failed to open video for mirroring", zap.Error(err))
		return ""
	}
	defer f.Close()

	url, err := s.mirror.UploadAndWait(ctx, filestorage.NewFileInfo("veo_"+cacheKey, ".mp4", "video/mp4", f))
	if err != nil {
		s.logger.Warn("failed to mirror video", zap.String("path", videoPath), zap.Error(err))
		return ""
	}

	return url
}

// Run generates one video and reports the outcome; errors are folded into it.
func (s *Service) Run(ctx context.Context, req Request) *Outcome {
	outcome := &Outcome{ImagePath: req.ImagePath}
	aspectRatio := req.AspectRatio
	if aspectRatio == "" {
		aspectRatio = DefaultAspectRatio
	}

	submission, err := s.Generate(ctx, req.ImagePath, req.Prompt, aspectRatio, req.Silent)
	if err != nil {
		outcome.Err = err
		outcome.Error = err.Error()
		return outcome
	}

	if submission.FromCache {
		outcome.Success = true
		outcome.Status = StatusCompleted
		outcome.VideoURL = submission.VideoURL
		outcome.VideoPath = submission.VideoPath
		outcome.Cached = true
		return outcome
	}

	if !req.Poll {
		outcome.Success = true
		outcome.Status = StatusProcessing
		outcome.OperationName = submission.OperationName
		outcome.Message = processingMessage
		return outcome
	}

	result, err := s.PollAndSave(ctx, submission.OperationName, submission.CacheKey)
	if err != nil {
		outcome.OperationName = submission.OperationName
		outcome.Err = err
		outcome.Error = err.Error()
		return outcome
	}

	outcome.Success = true
	outcome.Status = result.Status
	outcome.VideoURL = result.VideoURL
	outcome.VideoPath = result.VideoPath
	outcome.EmbedURL = result.EmbedURL
	outcome.PublicURL = result.PublicURL
	return outcome
}

// RunBatch runs reqs on at most concurrency workers and keeps their order.
func (s *Service) RunBatch(ctx context.Context, reqs []Request, concurrency int) []*Outcome {
	if concurrency < 1 {
		concurrency = 1
	}

	outcomes := make([]*Outcome, len(reqs))
	wp := workerpool.New(concurrency)
	for i, req := range reqs {
		i, req := i, req
		wp.Submit(func() {
			outcomes[i] = s.Run(ctx, req)
		})
	}
	wp.StopWait()

	return outcomes
}
