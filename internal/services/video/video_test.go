package video

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/genaker/agento/internal/gemini"
	"github.com/genaker/agento/internal/services/filestorage"
	"github.com/stretchr/testify/require"
)

type fakeClient struct {
	mu        sync.Mutex
	submitted []*gemini.PredictRequest
	model     string
	operation *gemini.Operation
	pollErr   error
	payload   []byte
	downloads []string
}

func (f *fakeClient) Submit(_ context.Context, model string, request *gemini.PredictRequest) (*gemini.Operation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.model = model
	f.submitted = append(f.submitted, request)
	return &gemini.Operation{Name: "models/veo/operations/op-" + request.Instances[0].Prompt}, nil
}

func (f *fakeClient) Poll(_ context.Context, name string, _, _ time.Duration) (*gemini.Operation, error) {
	if f.pollErr != nil {
		return nil, f.pollErr
	}
	return f.operation, nil
}

func (f *fakeClient) Download(_ context.Context, uri string, w io.Writer) (int64, error) {
	f.mu.Lock()
	f.downloads = append(f.downloads, uri)
	f.mu.Unlock()
	n, err := w.Write(f.payload)
	return int64(n), err
}

func doneVideoOperation(uri string) *gemini.Operation {
	return &gemini.Operation{
		Name: "models/veo/operations/xyz",
		Done: true,
		Response: &gemini.OperationResponse{
			GenerateVideoResponse: &gemini.GenerateResponse{
				GeneratedSamples: []gemini.Sample{{Video: &gemini.Media{URI: uri}}},
			},
		},
	}
}

type fixture struct {
	base    string
	storage *filestorage.LocalFileStorage
	client  *fakeClient
	service *Service
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	base := t.TempDir()
	storage := filestorage.NewLocalFileStorage(filepath.Join(base, "pub", "media"), "https://shop.test/media")
	client := &fakeClient{payload: []byte("mp4-bytes")}

	return &fixture{
		base:    base,
		storage: storage,
		client:  client,
		service: NewService(client, storage, opts...),
	}
}

func (f *fixture) writeImage(t *testing.T, rel string, data []byte) {
	t.Helper()
	p := filepath.Join(f.storage.Root(), rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
	require.NoError(t, os.WriteFile(p, data, 0o644))
}

func md5hex(s string) string {
	sum := md5.Sum([]byte(s))
	return hex.EncodeToString(sum[:])
}

func TestCacheKey(t *testing.T) {
	want := md5hex(md5hex("image-bytes") + ":a cat walking:16:9")
	require.Equal(t, want, CacheKey([]byte("image-bytes"), "a cat walking", "16:9"))
	require.NotEqual(t, want, CacheKey([]byte("image-bytes"), "a cat walking", "9:16"))
}

func TestResolveImagePath(t *testing.T) {
	f := newFixture(t)
	root := f.storage.Root()

	require.Equal(t, "/abs/image.jpg", f.service.ResolveImagePath("/abs/image.jpg"))
	require.Equal(t, filepath.Join(root, "catalog/product/a.jpg"), f.service.ResolveImagePath("pub/media/catalog/product/a.jpg"))
	require.Equal(t, filepath.Join(root, "catalog/a.jpg"), f.service.ResolveImagePath("catalog/a.jpg"))
	require.Equal(t, "https://cdn.test/a.jpg", f.service.ResolveImagePath("https://cdn.test/a.jpg"))
}

func TestGenerateMissingImage(t *testing.T) {
	f := newFixture(t)
	_, err := f.service.Generate(context.Background(), "catalog/missing.jpg", "prompt", "16:9", false)
	require.ErrorIs(t, err, ErrSourceNotFound)
	require.Contains(t, err.Error(), filepath.Join("pub", "media", "catalog", "missing.jpg"))
}

func TestGenerateSubmitsRequest(t *testing.T) {
	f := newFixture(t)
	png := []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x06\x00\x00\x00")
	f.writeImage(t, "catalog/a.png", png)

	sub, err := f.service.Generate(context.Background(), "catalog/a.png", "  a cat walking  ", "9:16", true)
	require.NoError(t, err)
	require.Equal(t, "models/veo/operations/op-a cat walking silent video", sub.OperationName)
	require.Equal(t, StatusRunning, sub.Status)
	require.False(t, sub.FromCache)
	require.Equal(t, CacheKey(png, "a cat walking silent video", "9:16"), sub.CacheKey)

	require.Len(t, f.client.submitted, 1)
	req := f.client.submitted[0]
	require.Equal(t, "veo-3.1-generate-preview", f.client.model)
	require.Equal(t, "a cat walking silent video", req.Instances[0].Prompt)
	require.Equal(t, png, req.Instances[0].Image.BytesBase64Encoded)
	require.Equal(t, "image/png", req.Instances[0].Image.MIMEType)
	require.Equal(t, "9:16", req.Parameters.AspectRatio)
}

func TestGenerateServesCache(t *testing.T) {
	f := newFixture(t)
	f.writeImage(t, "catalog/a.jpg", []byte("jpeg"))
	key := CacheKey([]byte("jpeg"), "prompt", "16:9")
	f.writeImage(t, "video/veo_"+key+".mp4", []byte("cached"))

	sub, err := f.service.Generate(context.Background(), "pub/media/catalog/a.jpg", "prompt", "16:9", false)
	require.NoError(t, err)
	require.True(t, sub.FromCache)
	require.Equal(t, StatusCompleted, sub.Status)
	require.Equal(t, "https://shop.test/media/video/veo_"+key+".mp4", sub.VideoURL)
	require.Equal(t, filepath.Join(f.storage.Root(), "video", "veo_"+key+".mp4"), sub.VideoPath)
	require.Empty(t, f.client.submitted)
}

func TestPollAndSave(t *testing.T) {
	f := newFixture(t)
	f.client.operation = doneVideoOperation("https://generativelanguage.googleapis.com/v1beta/files/v:download")

	result, err := f.service.PollAndSave(context.Background(), "models/veo/operations/xyz", "abc")
	require.NoError(t, err)
	require.Equal(t, StatusCompleted, result.Status)
	require.Equal(t, "https://shop.test/media/video/veo_abc.mp4", result.VideoURL)
	require.Equal(t, EmbedHTML(result.VideoURL), result.EmbedURL)
	require.True(t, strings.HasPrefix(result.EmbedURL, `<video controls width="100%" height="auto"><source src="https://shop.test/media/video/veo_abc.mp4"`))

	data, err := os.ReadFile(result.VideoPath)
	require.NoError(t, err)
	require.Equal(t, "mp4-bytes", string(data))
	require.Equal(t, []string{"https://generativelanguage.googleapis.com/v1beta/files/v:download"}, f.client.downloads)
}

func TestPollAndSaveDefaultsToOperationID(t *testing.T) {
	f := newFixture(t)
	f.client.operation = doneVideoOperation("http://mock/videos/xyz")

	result, err := f.service.PollAndSave(context.Background(), "models/veo/operations/xyz", "")
	require.NoError(t, err)
	require.Equal(t, filepath.Join(f.storage.Root(), "video", "veo_xyz.mp4"), result.VideoPath)
}

func TestPollAndSaveErrors(t *testing.T) {
	f := newFixture(t)

	f.client.operation = &gemini.Operation{Done: true, Response: &gemini.OperationResponse{
		GenerateVideoResponse: &gemini.GenerateResponse{RaiMediaFilteredReasons: gemini.Reasons{"audio"}},
	}}
	_, err := f.service.PollAndSave(context.Background(), "operations/1", "k")
	require.True(t, gemini.IsSafetyFilterError(err))
	require.False(t, f.storage.Exists("video/veo_k.mp4"))

	f.client.operation = &gemini.Operation{Done: true, Response: &gemini.OperationResponse{
		GenerateVideoResponse: &gemini.GenerateResponse{},
	}}
	_, err = f.service.PollAndSave(context.Background(), "operations/1", "k")
	require.EqualError(t, err, "no video URI found in completed operation response")

	f.client.pollErr = gemini.ErrOperationTimeout
	_, err = f.service.PollAndSave(context.Background(), "operations/1", "k")
	require.ErrorIs(t, err, gemini.ErrOperationTimeout)
	require.Contains(t, err.Error(), "timeout after 5m0s")
}

func TestPollAndSaveSubSecondTimeout(t *testing.T) {
	f := newFixture(t, WithPolling(500*time.Millisecond, 10*time.Millisecond))
	f.client.pollErr = gemini.ErrOperationTimeout

	_, err := f.service.PollAndSave(context.Background(), "operations/1", "k")
	require.ErrorIs(t, err, gemini.ErrOperationTimeout)
	require.Contains(t, err.Error(), "timeout after 500ms")
}

type fakeMirror struct {
	err  error
	got  filestorage.FileInfo
	body string
}

func (m *fakeMirror) UploadAndWait(_ context.Context, file filestorage.FileInfo) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	m.got = file
	b, _ := io.ReadAll(file.Content)
	m.body = string(b)
	return "https://cdn.test/" + file.Name + file.Extension, nil
}

func TestPollAndSaveMirrors(t *testing.T) {
	mirror := &fakeMirror{}
	f := newFixture(t, WithMirror(mirror))
	f.client.operation = doneVideoOperation("http://mock/videos/xyz")

	result, err := f.service.PollAndSave(context.Background(), "operations/xyz", "abc")
	require.NoError(t, err)
	require.Equal(t, "https://cdn.test/veo_abc.mp4", result.PublicURL)
	require.Equal(t, "video/mp4", mirror.got.ContentType)
	require.Equal(t, "mp4-bytes", mirror.body)

	failing := &fakeMirror{err: errors.New("bucket down")}
	f = newFixture(t, WithMirror(failing))
	f.client.operation = doneVideoOperation("http://mock/videos/xyz")

	result, err = f.service.PollAndSave(context.Background(), "operations/xyz", "abc")
	require.NoError(t, err)
	require.Empty(t, result.PublicURL)
}

func TestRunBatch(t *testing.T) {
	f := newFixture(t)
	f.writeImage(t, "a.jpg", []byte("a"))
	f.writeImage(t, "b.jpg", []byte("b"))
	f.client.operation = doneVideoOperation("http://mock/videos/xyz")

	reqs := []Request{
		{ImagePath: "a.jpg", Prompt: "p", Poll: true},
		{ImagePath: "missing.jpg", Prompt: "p"},
		{ImagePath: "b.jpg", Prompt: "p"},
	}
	outcomes := f.service.RunBatch(context.Background(), reqs, 2)
	require.Len(t, outcomes, 3)

	require.True(t, outcomes[0].Success)
	require.Equal(t, StatusCompleted, outcomes[0].Status)
	require.Equal(t, "a.jpg", outcomes[0].ImagePath)
	require.NotEmpty(t, outcomes[0].EmbedURL)

	require.False(t, outcomes[1].Success)
	require.Contains(t, outcomes[1].Error, "source image not found")
	require.ErrorIs(t, outcomes[1].Err, ErrSourceNotFound)

	require.True(t, outcomes[2].Success)
	require.Equal(t, StatusProcessing, outcomes[2].Status)
	require.Equal(t, processingMessage, outcomes[2].Message)
	require.NotEmpty(t, outcomes[2].OperationName)

	// the saved video is now a cache hit
	cached := f.service.Run(context.Background(), Request{ImagePath: "a.jpg", Prompt: "p"})
	require.True(t, cached.Success)
	require.True(t, cached.Cached)

	report, failed := Report(outcomes)
	require.True(t, failed)
	summary := report.(*Summary)
	require.False(t, summary.Success)
	require.Equal(t, 3, summary.Total)
	require.Equal(t, 2, summary.Succeeded)
	require.Equal(t, 1, summary.Failed)
	require.Len(t, summary.Errors, 1)
}

func TestReportSingle(t *testing.T) {
	outcome := &Outcome{ImagePath: "a.jpg", Success: true}
	report, failed := Report([]*Outcome{outcome})
	require.False(t, failed)
	require.Same(t, outcome, report)
}
