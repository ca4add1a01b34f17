package filestorage

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/genaker/agento/internal/config"
	"github.com/stretchr/testify/require"
)

func TestS3Upload(t *testing.T) {
	var (
		gotPath        string
		gotContentType string
		gotBody        string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPut, r.Method)
		gotPath = r.URL.Path
		gotContentType = r.Header.Get("Content-Type")
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	s, err := NewS3FileStorage(&config.S3Config{
		EndpointURL:  srv.URL,
		Region:       "us-east-1",
		Bucket:       "media",
		AccessKey:    "access",
		SecretKey:    "secret",
		Folder:       "/video/",
		PublicURL:    "https://cdn.shop.test/",
		UsePathStyle: true,
	})
	require.NoError(t, err)

	url, err := s.Upload(context.Background(), NewFileInfo("veo_abc", ".mp4", "video/mp4", strings.NewReader("mp4-bytes")))
	require.NoError(t, err)
	require.Equal(t, "https://cdn.shop.test/video/veo_abc.mp4", url)
	require.Equal(t, "/media/video/veo_abc.mp4", gotPath)
	require.Equal(t, "video/mp4", gotContentType)
	require.Equal(t, "mp4-bytes", gotBody)
}

func TestS3PublicURL(t *testing.T) {
	cases := []struct {
		cfg  config.S3Config
		want string
	}{
		{
			cfg:  config.S3Config{EndpointURL: "https://nyc3.digitaloceanspaces.com", Bucket: "b", Region: "nyc3"},
			want: "https://b.nyc3.cdn.digitaloceanspaces.com/k.mp4",
		},
		{
			cfg:  config.S3Config{EndpointURL: "https://s3.us-east-1.amazonaws.com/", Bucket: "b"},
			want: "https://b.s3.us-east-1.amazonaws.com/k.mp4",
		},
	}

	for _, tc := range cases {
		cfg := tc.cfg
		s := &S3FileStorage{cfg: &cfg}
		got, err := s.publicURL("k.mp4")
		require.NoError(t, err)
		require.Equal(t, tc.want, got)
	}

	s := &S3FileStorage{cfg: &config.S3Config{EndpointURL: "https://r2.example.test"}}
	_, err := s.publicURL("k.mp4")
	require.ErrorIs(t, err, ErrPublicURLUnknown)
}
