// Package imagegen composes a "lookbook" image from a model photo and an
// optional look photo, either through the Gemini SDK or the long-running
// REST prediction endpoint.
package imagegen

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/genaker/agento/internal/config"
	"github.com/genaker/agento/internal/gemini"
	"github.com/genaker/agento/internal/services/filestorage"
	"github.com/genaker/agento/internal/utils/hashutil"
	"github.com/genaker/agento/internal/utils/imageutil"
	"github.com/genaker/agento/internal/utils/mediautil"
)

var (
	ErrNoImages        = errors.New("no generated images found in response")
	ErrUnknownBackend  = errors.New("unknown image backend")
	ErrBackendNotReady = errors.New("image backend is not configured")
)

// ContentGenerator is satisfied by the SDK's *genai.Models.
type ContentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Client is the subset of the Gemini REST client used by the http backend
// and for downloading URI referenced results.
type Client interface {
	Submit(ctx context.Context, model string, request *gemini.PredictRequest) (*gemini.Operation, error)
	Poll(ctx context.Context, name string, maxWait, interval time.Duration) (*gemini.Operation, error)
	Download(ctx context.Context, uri string, w io.Writer) (int64, error)
}

type Service struct {
	backend           string
	content           ContentGenerator
	client            Client
	storage           *filestorage.LocalFileStorage
	loader            *mediautil.Loader
	logger            *zap.Logger
	model             string
	maxWait           time.Duration
	pollInterval      time.Duration
	maxInputDimension int
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

func WithBackend(backend string) Option {
	return func(s *Service) {
		if backend != "" {
			s.backend = backend
		}
	}
}

func WithContentGenerator(content ContentGenerator) Option {
	return func(s *Service) {
		s.content = content
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

// WithMaxInputDimension downscales inputs whose longest side exceeds n pixels.
func WithMaxInputDimension(n int) Option {
	return func(s *Service) {
		s.maxInputDimension = n
	}
}

func WithLoader(loader *mediautil.Loader) Option {
	return func(s *Service) {
		s.loader = loader
	}
}

// NewService saves generated images into storage.
func NewService(client Client, storage *filestorage.LocalFileStorage, opts ...Option) *Service {
	s := &Service{
		backend:      config.ImageBackendSDK,
		client:       client,
		storage:      storage,
		loader:       mediautil.NewLoader(mediautil.DefaultTimeout),
		logger:       zap.NewNop(),
		model:        config.DefaultImageModel,
		maxWait:      120 * time.Second,
		pollInterval: 2 * time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}

	return s
}

// LoadImage reads a local file or downloads a URL and converts it into a
// format the API accepts.
func (s *Service) LoadImage(ctx context.Context, ref string) (*mediautil.Asset, error) {
	asset, err := s.loader.Load(ctx, ref)
	if err != nil {
		return nil, err
	}

	data, mimeType, err := imageutil.Normalize(asset.Data, asset.MIMEType, s.maxInputDimension)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare %s: %w", ref, err)
	}
	if mimeType != asset.MIMEType {
		s.logger.Debug("converted input image", zap.String("image", ref), zap.String("from", asset.MIMEType), zap.String("to", mimeType))
	}

	asset.Data = data
	asset.MIMEType = mimeType
	return asset, nil
}

// Generate runs one generation. lookImage may be empty. The returned
// operation is done unless the http backend gave up waiting.
func (s *Service) Generate(ctx context.Context, modelImage, lookImage, prompt string) (*gemini.Operation, error) {
	images := []string{modelImage}
	if lookImage != "" {
		images = append(images, lookImage)
	}

	assets := make([]*mediautil.Asset, 0, len(images))
	for _, ref := range images {
		asset, err := s.LoadImage(ctx, ref)
		if err != nil {
			return nil, err
		}
		assets = append(assets, asset)
	}

	s.logger.Debug("generating image",
		zap.String("backend", s.backend),
		zap.String("model", s.model),
		zap.Strings("images", images),
	)

	switch s.backend {
	case config.ImageBackendSDK:
		return s.generateWithSDK(ctx, assets, prompt)
	case config.ImageBackendHTTP:
		return s.generateWithHTTP(ctx, assets, prompt)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, s.backend)
	}
}

func (s *Service) generateWithSDK(ctx context.Context, assets []*mediautil.Asset, prompt string) (*gemini.Operation, error) {
	if s.content == nil {
		return nil, ErrBackendNotReady
	}

	parts := []*genai.Part{genai.NewPartFromText(prompt)}
	for _, asset := range assets {
		parts = append(parts, genai.NewPartFromBytes(asset.Data, asset.MIMEType))
	}
	contents := []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}

	resp, err := s.content.GenerateContent(ctx, s.model, contents, &genai.GenerateContentConfig{
		ResponseModalities: []string{"TEXT", "IMAGE"},
	})
	if err != nil {
		return nil, fmt.Errorf("gemini image API error: %w", err)
	}

	return operationFromContent(resp)
}

// operationFromContent reshapes an SDK response into a finished operation
// holding the inline image parts.
func operationFromContent(resp *genai.GenerateContentResponse) (*gemini.Operation, error) {
	if resp == nil {
		return nil, ErrNoImages
	}
	if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
		return nil, gemini.NewSafetyFilterError(gemini.Reasons{string(resp.PromptFeedback.BlockReason)}, 0)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil, ErrNoImages
	}

	candidate := resp.Candidates[0]
	var samples []gemini.Sample
	for _, part := range candidate.Content.Parts {
		if part.InlineData == nil || len(part.InlineData.Data) == 0 {
			continue
		}
		samples = append(samples, gemini.Sample{Image: &gemini.Media{
			Data:     part.InlineData.Data,
			MIMEType: part.InlineData.MIMEType,
		}})
	}

	if len(samples) == 0 {
		switch candidate.FinishReason {
		case genai.FinishReasonSafety, genai.FinishReasonProhibitedContent:
			return nil, gemini.NewSafetyFilterError(gemini.Reasons{string(candidate.FinishReason)}, 0)
		}
		return nil, ErrNoImages
	}

	return &gemini.Operation{
		Done: true,
		Response: &gemini.OperationResponse{
			GenerateImageResponse: &gemini.GenerateResponse{GeneratedSamples: samples},
		},
	}, nil
}

func (s *Service) generateWithHTTP(ctx context.Context, assets []*mediautil.Asset, prompt string) (*gemini.Operation, error) {
	if s.client == nil {
		return nil, ErrBackendNotReady
	}

	instance := gemini.Instance{
		Prompt:     prompt,
		ModelImage: inlineImage(assets[0]),
	}
	if len(assets) > 1 {
		instance.LookImage = inlineImage(assets[1])
	}

	op, err := s.client.Submit(ctx, s.model, &gemini.PredictRequest{Instances: []gemini.Instance{instance}})
	if err != nil {
		return nil, err
	}
	if op.Done {
		return op, nil
	}

	s.logger.Debug("waiting for image operation", zap.String("operation", op.Name))
	return s.client.Poll(ctx, op.Name, s.maxWait, s.pollInterval)
}

func inlineImage(asset *mediautil.Asset) *gemini.InlineImage {
	return &gemini.InlineImage{
		BytesBase64Encoded: asset.Data,
		MIMEType:           asset.MIMEType,
	}
}

// SaveAsset writes the first generated sample of op into the output
// directory as <name><ext> and returns its path. Without a name the file is
// named after its content hash.
func (s *Service) SaveAsset(ctx context.Context, op *gemini.Operation, name string) (string, error) {
	sample, err := op.Result()
	if err != nil {
		return "", err
	}

	media := sample.Asset()
	content := media.Bytes()
	if len(content) == 0 {
		if media.URI == "" {
			return "", errors.New("no URI or data found for generated asset")
		}

		var buf bytes.Buffer
		if _, err := s.client.Download(ctx, media.URI, &buf); err != nil {
			return "", err
		}
		content = buf.Bytes()
	}

	if name == "" {
		name = "lookbook_" + hashutil.Blake3Hash(content)[:16]
	}

	mimeType := media.MIMEType
	if mimeType == "" {
		mimeType = mediautil.DetectMIME(content)
	}
	filename := name + mediautil.ExtensionFor(mimeType)

	savedPath, err := s.storage.WriteStream(filename, func(w io.Writer) error {
		_, err := w.Write(content)
		return err
	})
	if err != nil {
		return "", fmt.Errorf("failed to save generated image: %w", err)
	}

	s.logger.Info("image saved", zap.String("path", savedPath))
	return savedPath, nil
}
