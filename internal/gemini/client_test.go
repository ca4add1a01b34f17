package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, srv *httptest.Server, opts ...Option) *Client {
	t.Helper()
	c, err := NewClient("test-key", srv.URL+"/v1beta/", opts...)
	require.NoError(t, err)
	return c
}

func TestNewClientRequiresKey(t *testing.T) {
	_, err := NewClient("", "http://localhost")
	require.ErrorIs(t, err, ErrMissingAPIKey)
}

func TestSubmit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/v1beta/models/veo-3.1-generate-preview:predictLongRunning", r.URL.Path)
		require.Equal(t, "test-key", r.Header.Get("x-goog-api-key"))

		var req PredictRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Len(t, req.Instances, 1)
		require.Equal(t, "a cat walking", req.Instances[0].Prompt)
		require.Equal(t, []byte("img"), req.Instances[0].Image.BytesBase64Encoded)
		require.Equal(t, "16:9", req.Parameters.AspectRatio)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"name":"models/veo/operations/abc123","done":false}`))
	}))
	defer srv.Close()

	op, err := newTestClient(t, srv).Submit(context.Background(), "veo-3.1-generate-preview", &PredictRequest{
		Instances: []Instance{{
			Prompt: "a cat walking",
			Image:  &InlineImage{BytesBase64Encoded: []byte("img"), MIMEType: "image/png"},
		}},
		Parameters: &Parameters{AspectRatio: "16:9"},
	})
	require.NoError(t, err)
	require.Equal(t, "models/veo/operations/abc123", op.Name)
	require.Equal(t, "abc123", OperationID(op.Name))
	require.False(t, op.Done)
}

func TestSubmitErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if r.URL.Path == "/v1beta/models/bad:predictLongRunning" {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":{"message":"bad request"}}`))
			return
		}
		_, _ = w.Write([]byte(`{"done":false}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv)

	_, err := c.Submit(context.Background(), "nameless", &PredictRequest{})
	require.ErrorIs(t, err, ErrMissingOperationName)

	_, err = c.Submit(context.Background(), "bad", &PredictRequest{})
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	require.Contains(t, apiErr.Body, "bad request")
}

func TestPollUntilDone(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1beta/operations/xyz", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		if atomic.AddInt32(&calls, 1) < 3 {
			_, _ = w.Write([]byte(`{"name":"operations/xyz","done":false}`))
			return
		}
		_, _ = w.Write([]byte(`{"name":"operations/xyz","done":true,"response":{"generateVideoResponse":{"generatedSamples":[{"video":{"uri":"http://example.test/v.mp4"}}]}}}`))
	}))
	defer srv.Close()

	op, err := newTestClient(t, srv).Poll(context.Background(), "operations/xyz", time.Second, 10*time.Millisecond)
	require.NoError(t, err)
	require.True(t, op.Done)
	require.EqualValues(t, 3, atomic.LoadInt32(&calls))

	sample, err := op.Result()
	require.NoError(t, err)
	require.Equal(t, "http://example.test/v.mp4", sample.Video.URI)
}

func TestPollTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"name":"operations/slow","done":false}`))
	}))
	defer srv.Close()

	_, err := newTestClient(t, srv).Poll(context.Background(), "operations/slow", 50*time.Millisecond, 20*time.Millisecond)
	require.ErrorIs(t, err, ErrOperationTimeout)
}

func TestPollContextCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"name":"operations/slow","done":false}`))
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	_, err := newTestClient(t, srv).Poll(ctx, "operations/slow", time.Minute, 10*time.Millisecond)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestPollRetriesTransientErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"name":"operations/r","done":true}`))
	}))
	defer srv.Close()

	op, err := newTestClient(t, srv, WithRetry(2, 5*time.Millisecond)).
		Poll(context.Background(), "operations/r", time.Second, 10*time.Millisecond)
	require.NoError(t, err)
	require.True(t, op.Done)
}

func TestPollFailsOnClientError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	_, err := newTestClient(t, srv, WithRetry(2, 5*time.Millisecond)).
		Poll(context.Background(), "operations/r", time.Second, 10*time.Millisecond)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, http.StatusForbidden, apiErr.StatusCode)
}

func TestDownloadFollowsRedirects(t *testing.T) {
	payload := []byte("\x00\x00\x00\x20ftypisom")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/files/video":
			http.Redirect(w, r, "/signed/video.mp4?sig=secret", http.StatusFound)
		case "/signed/video.mp4":
			_, _ = w.Write(payload)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	var buf bytes.Buffer
	n, err := newTestClient(t, srv).Download(context.Background(), srv.URL+"/files/video", &buf)
	require.NoError(t, err)
	require.EqualValues(t, len(payload), n)
	require.Equal(t, payload, buf.Bytes())
}

func TestDownloadWithProgress(t *testing.T) {
	payload := bytes.Repeat([]byte("v"), 4096)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(payload)
	}))
	defer srv.Close()

	var out, rendered bytes.Buffer
	progress := NewProgress(context.Background(), &rendered)
	n, err := newTestClient(t, srv, WithProgress(progress)).Download(context.Background(), srv.URL+"/v.mp4", &out)
	require.NoError(t, err)
	require.EqualValues(t, len(payload), n)
	require.Equal(t, payload, out.Bytes())

	progress.Wait()
	require.Contains(t, rendered.String(), "v.mp4")
}

func TestConcurrentDownloadsShareProgress(t *testing.T) {
	payload := bytes.Repeat([]byte("v"), 4096)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(payload)
	}))
	defer srv.Close()

	var rendered bytes.Buffer
	progress := NewProgress(context.Background(), &rendered)
	c := newTestClient(t, srv, WithProgress(progress))

	var wg sync.WaitGroup
	for _, name := range []string{"first.mp4", "second.mp4"} {
		wg.Add(1)
		go func(name string) {
			defer wg.Done()
			var out bytes.Buffer
			_, err := c.Download(context.Background(), srv.URL+"/"+name, &out)
			assert.NoError(t, err)
		}(name)
	}
	wg.Wait()
	progress.Wait()

	require.Contains(t, rendered.String(), "first.mp4")
	require.Contains(t, rendered.String(), "second.mp4")
}

func TestDownloadErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/empty":
		case "/big":
			_, _ = w.Write(bytes.Repeat([]byte("x"), 64))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	c := newTestClient(t, srv, WithMaxDownloadBytes(32))
	var buf bytes.Buffer

	_, err := c.Download(context.Background(), srv.URL+"/empty", &buf)
	require.ErrorIs(t, err, ErrEmptyDownload)

	_, err = c.Download(context.Background(), srv.URL+"/big", &buf)
	require.ErrorIs(t, err, ErrDownloadTooLarge)

	_, err = c.Download(context.Background(), srv.URL+"/missing", &buf)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, http.StatusNotFound, apiErr.StatusCode)
}

func TestWithKey(t *testing.T) {
	c, err := NewClient("k y", "http://localhost")
	require.NoError(t, err)

	require.Equal(t,
		"https://generativelanguage.googleapis.com/v1beta/files/a:download?alt=media&key=k+y",
		c.withKey("https://generativelanguage.googleapis.com/v1beta/files/a:download?alt=media"))
	require.Equal(t,
		"https://generativelanguage.googleapis.com/files/a?key=k+y",
		c.withKey("https://generativelanguage.googleapis.com/files/a"))
	require.Equal(t,
		"https://generativelanguage.googleapis.com/files/a?key=other",
		c.withKey("https://generativelanguage.googleapis.com/files/a?key=other"))
	require.Equal(t, "http://127.0.0.1:8080/videos/1", c.withKey("http://127.0.0.1:8080/videos/1"))
}

func TestSanitizeURL(t *testing.T) {
	require.Equal(t, "https://storage.test/bucket/v.mp4", sanitizeURL("https://storage.test/bucket/v.mp4?X-Goog-Signature=abc#t"))
}
