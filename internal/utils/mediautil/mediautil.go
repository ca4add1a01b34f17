// Package mediautil loads source media from local paths or http(s) URLs and
// maps between file contents, MIME types and file extensions.
package mediautil

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-resty/resty/v2"
)

const DefaultTimeout = 30 * time.Second

var (
	ErrSourceNotFound = errors.New("source file not found")
	ErrEmptySource    = errors.New("source is empty")
)

type Asset struct {
	Data     []byte
	MIMEType string
	Name     string
}

type Loader struct {
	client *resty.Client
}

func NewLoader(timeout time.Duration) *Loader {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	return &Loader{
		client: resty.New().SetTimeout(timeout),
	}
}

func IsURL(ref string) bool {
	return strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://")
}

// Load reads ref from disk, or fetches it when ref is an http(s) URL.
func (l *Loader) Load(ctx context.Context, ref string) (*Asset, error) {
	if IsURL(ref) {
		return l.fetch(ctx, ref)
	}

	data, err := os.ReadFile(ref)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrSourceNotFound, ref)
		}
		return nil, fmt.Errorf("failed to read %s: %w", ref, err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmptySource, ref)
	}

	return &Asset{
		Data:     data,
		MIMEType: DetectMIME(data),
		Name:     filepath.Base(ref),
	}, nil
}

func (l *Loader) fetch(ctx context.Context, rawURL string) (*Asset, error) {
	resp, err := l.client.R().SetContext(ctx).Get(rawURL)
	if err != nil {
		return nil, fmt.Errorf("failed to download %s: %w", rawURL, err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("failed to download %s: status %d", rawURL, resp.StatusCode())
	}

	data := resp.Body()
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmptySource, rawURL)
	}

	return &Asset{
		Data:     data,
		MIMEType: DetectMIME(data),
		Name:     BaseName(rawURL),
	}, nil
}

// BaseName returns the last path element of a URL or local path.
func BaseName(ref string) string {
	if IsURL(ref) {
		if u, err := url.Parse(ref); err == nil {
			return path.Base(u.Path)
		}
	}

	return filepath.Base(ref)
}

// DetectMIME sniffs data. Unrecognised content is assumed to be jpeg.
func DetectMIME(data []byte) string {
	mtype := mimetype.Detect(data)
	if mtype == nil || mtype.Is("application/octet-stream") {
		return "image/jpeg"
	}

	return mtype.String()
}

// ExtensionFor maps a MIME type to a file extension, ".jpg" when unknown.
func ExtensionFor(mimeType string) string {
	mtype := mimetype.Lookup(mimeType)
	if mtype == nil || mtype.Extension() == "" {
		return ".jpg"
	}

	return mtype.Extension()
}
