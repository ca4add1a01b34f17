package filestorage

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/genaker/agento/internal/config"
	"github.com/genaker/agento/internal/utils/pathutil"
)

// LocalFileStorage stores files below root and links them below baseURL.
type LocalFileStorage struct {
	root    string
	baseURL string
}

func NewLocalFileStorage(root, baseURL string) *LocalFileStorage {
	return &LocalFileStorage{
		root:    root,
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

// NewMediaStorage is rooted at <base_path>/pub/media and links files as
// <media base URL>/media/<name>.
func NewMediaStorage(cfg *config.Config) *LocalFileStorage {
	baseURL := ""
	if cfg.Media != nil {
		baseURL = cfg.Media.BaseURL
	}

	return NewLocalFileStorage(filepath.Join(cfg.BasePath, "pub", "media"), strings.TrimRight(baseURL, "/")+"/media")
}

func (s *LocalFileStorage) Root() string {
	return s.root
}

func (s *LocalFileStorage) Path(name string) (string, error) {
	return pathutil.JoinWithin(s.root, filepath.FromSlash(name))
}

func (s *LocalFileStorage) URL(name string) string {
	return s.baseURL + "/" + path.Clean(filepath.ToSlash(name))
}

func (s *LocalFileStorage) Exists(name string) bool {
	_, err := s.ResolveFile(name)
	return err == nil
}

// ResolveFile returns the absolute path of an existing regular file.
func (s *LocalFileStorage) ResolveFile(name string) (string, error) {
	filename, err := s.Path(name)
	if err != nil {
		return "", err
	}

	info, err := os.Stat(filename)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("%w: %s", ErrFileNotFound, name)
		}
		return "", err
	}
	if info.IsDir() {
		return "", fmt.Errorf("%w: %s", ErrFileNotFound, name)
	}

	return filename, nil
}

// WriteStream hands write a temporary file and renames it to name once write
// succeeds, so readers never observe partial content.
func (s *LocalFileStorage) WriteStream(name string, write func(w io.Writer) error) (string, error) {
	filedest, err := s.Path(name)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(filepath.Dir(filedest), os.ModePerm); err != nil {
		return "", fmt.Errorf("failed to create directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(filedest), "."+filepath.Base(filedest)+".*.tmp")
	if err != nil {
		return "", fmt.Errorf("failed to create file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if err := write(tmp); err != nil {
		tmp.Close()
		return "", err
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("failed to save content to file: %w", err)
	}
	if err := os.Chmod(tmpPath, 0o644); err != nil {
		return "", err
	}

	if err := os.Rename(tmpPath, filedest); err != nil {
		return "", fmt.Errorf("failed to move file: %w", err)
	}

	return filedest, nil
}
