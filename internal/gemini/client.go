// Package gemini is a small REST client for the long-running prediction
// endpoints of the Gemini API: submit, poll and download of generated media.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/go-resty/resty/v2"
	"github.com/vbauerster/mpb/v7"
	"go.uber.org/zap"
)

const (
	DefaultRequestTimeout  = 60 * time.Second
	DefaultDownloadTimeout = 300 * time.Second
	maxRedirects           = 10
)

type Client struct {
	apiKey           string
	rest             *resty.Client
	download         *resty.Client
	logger           *zap.Logger
	maxDownloadBytes int64
	progress         *mpb.Progress
}

type Option func(c *Client)

func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithRetry retries polls that fail with a transport error, 429 or 5xx.
// Submissions are never retried.
func WithRetry(count int, wait time.Duration) Option {
	return func(c *Client) {
		c.rest.SetRetryCount(count).
			SetRetryWaitTime(wait).
			SetRetryMaxWaitTime(wait * 4)
	}
}

func WithMaxDownloadBytes(n int64) Option {
	return func(c *Client) {
		c.maxDownloadBytes = n
	}
}

// WithProgress adds a bar per download to p. Concurrent downloads share the
// container so their bars stack instead of overwriting each other.
func WithProgress(p *mpb.Progress) Option {
	return func(c *Client) {
		c.progress = p
	}
}

// NewProgress returns a progress container drawing on w. Callers Wait on it
// once all downloads are finished.
func NewProgress(ctx context.Context, w io.Writer) *mpb.Progress {
	return mpb.NewWithContext(ctx,
		mpb.WithOutput(w),
		mpb.WithWidth(60),
		mpb.WithRefreshRate(180*time.Millisecond),
	)
}

func NewClient(apiKey, baseURL string, opts ...Option) (*Client, error) {
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}

	rest := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetHeader("x-goog-api-key", apiKey).
		SetJSONMarshaler(sonic.Marshal).
		SetJSONUnmarshaler(sonic.Unmarshal).
		SetTimeout(DefaultRequestTimeout).
		AddRetryCondition(retryablePoll)

	download := resty.New().
		SetHeader("x-goog-api-key", apiKey).
		SetRedirectPolicy(resty.FlexibleRedirectPolicy(maxRedirects)).
		SetTimeout(DefaultDownloadTimeout)

	c := &Client{
		apiKey:   apiKey,
		rest:     rest,
		download: download,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

func retryablePoll(r *resty.Response, err error) bool {
	if r == nil || r.Request == nil || r.Request.Method != http.MethodGet {
		return false
	}
	if err != nil {
		return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
	}

	code := r.StatusCode()
	return code == http.StatusTooManyRequests || code >= http.StatusInternalServerError
}

// Submit starts a long-running prediction on model.
func (c *Client) Submit(ctx context.Context, model string, request *PredictRequest) (*Operation, error) {
	var op Operation
	resp, err := c.rest.R().
		SetContext(ctx).
		SetBody(request).
		SetResult(&op).
		Post(fmt.Sprintf("/models/%s:predictLongRunning", model))
	if err != nil {
		return nil, fmt.Errorf("gemini API request failed: %w", err)
	}
	if resp.IsError() {
		return nil, &APIError{StatusCode: resp.StatusCode(), Body: resp.String()}
	}
	if op.Name == "" {
		return nil, ErrMissingOperationName
	}

	c.logger.Debug("submitted operation", zap.String("model", model), zap.String("operation", op.Name))
	return &op, nil
}

func (c *Client) GetOperation(ctx context.Context, name string) (*Operation, error) {
	var op Operation
	resp, err := c.rest.R().
		SetContext(ctx).
		SetResult(&op).
		Get("/" + strings.TrimLeft(name, "/"))
	if err != nil {
		return nil, fmt.Errorf("operation polling failed: %w", err)
	}
	if resp.IsError() {
		return nil, &APIError{StatusCode: resp.StatusCode(), Body: resp.String()}
	}

	return &op, nil
}

// Poll fetches the operation every interval until it is done, the context is
// cancelled or maxWait has elapsed.
func (c *Client) Poll(ctx context.Context, name string, maxWait, interval time.Duration) (*Operation, error) {
	start := time.Now()
	for {
		if time.Since(start) > maxWait {
			return nil, fmt.Errorf("%w after %s", ErrOperationTimeout, maxWait)
		}

		reqCtx, cancel := context.WithTimeout(ctx, interval+5*time.Second)
		op, err := c.GetOperation(reqCtx, name)
		cancel()
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, err
		}

		if op.Done {
			c.logger.Debug("operation done", zap.String("operation", name), zap.Duration("elapsed", time.Since(start)))
			return op, nil
		}

		c.logger.Debug("operation pending", zap.String("operation", name), zap.Duration("elapsed", time.Since(start)))

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(interval):
		}
	}
}
