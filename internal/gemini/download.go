package gemini

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"path"
	"strings"

	"github.com/vbauerster/mpb/v7"
	"github.com/vbauerster/mpb/v7/decor"
	"go.uber.org/zap"
)

const googleAPIHost = "generativelanguage.googleapis.com"

// Download streams the media at uri into w and returns the number of bytes
// written. Redirects (e.g. to signed storage URLs) are followed.
func (c *Client) Download(ctx context.Context, uri string, w io.Writer) (int64, error) {
	uri = c.withKey(uri)

	resp, err := c.download.R().
		SetContext(ctx).
		SetDoNotParseResponse(true).
		Get(uri)
	if err != nil {
		return 0, fmt.Errorf("download failed: %w", err)
	}

	body := resp.RawBody()
	defer body.Close()

	if final := resp.RawResponse.Request.URL.String(); final != uri {
		c.logger.Info("followed redirect", zap.String("final_url", sanitizeURL(final)))
	}

	if resp.IsError() {
		snippet, _ := io.ReadAll(io.LimitReader(body, 1024))
		return 0, &APIError{StatusCode: resp.StatusCode(), Body: string(snippet)}
	}

	var reader io.Reader = body
	if c.maxDownloadBytes > 0 {
		reader = io.LimitReader(body, c.maxDownloadBytes+1)
	}

	var n int64
	if c.progress != nil && resp.RawResponse.ContentLength > 0 {
		n, err = c.copyWithProgress(w, reader, resp.RawResponse.ContentLength, path.Base(resp.RawResponse.Request.URL.Path))
	} else {
		n, err = io.Copy(w, reader)
	}
	if err != nil {
		return n, fmt.Errorf("download failed: %w", err)
	}

	if c.maxDownloadBytes > 0 && n > c.maxDownloadBytes {
		return n, fmt.Errorf("%w: limit %d bytes", ErrDownloadTooLarge, c.maxDownloadBytes)
	}
	if n == 0 {
		return 0, ErrEmptyDownload
	}

	return n, nil
}

func (c *Client) copyWithProgress(w io.Writer, r io.Reader, total int64, name string) (int64, error) {
	bar := c.progress.AddBar(total,
		mpb.PrependDecorators(
			decor.Name(name, decor.WC{W: 40, C: decor.DidentRight}),
			decor.CountersKibiByte("% .2f / % .2f"),
		),
		mpb.AppendDecorators(
			decor.EwmaETA(decor.ET_STYLE_GO, 90),
			decor.Name(" ] "),
			decor.EwmaSpeed(decor.UnitKiB, "% .2f", 60),
		),
	)

	reader := bar.ProxyReader(r)
	n, err := io.Copy(w, reader)
	reader.Close()

	if !bar.Completed() {
		bar.Abort(false)
	}

	return n, err
}

// withKey appends the API key as a query parameter for Google API hosts, so
// it survives redirects that drop request headers.
func (c *Client) withKey(uri string) string {
	if !strings.Contains(uri, googleAPIHost) || strings.Contains(uri, "key=") {
		return uri
	}

	separator := "?"
	if strings.Contains(uri, "?") {
		separator = "&"
	}

	return uri + separator + "key=" + url.QueryEscape(c.apiKey)
}

// sanitizeURL drops the query string so signed URLs and keys stay out of logs.
func sanitizeURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	u.RawQuery = ""
	u.Fragment = ""
	return u.String()
}
