package filestorage

import (
	"context"
	"errors"
	"io"
)

var (
	ErrFileNotFound     = errors.New("file not found")
	ErrPublicURLUnknown = errors.New("cannot infer public URL for s3 endpoint, set s3.public_url")
)

type FileInfo struct {
	Name        string
	Extension   string
	ContentType string
	Content     io.Reader
}

type FileStorage interface {
	Upload(ctx context.Context, file FileInfo) (string, error)
}

func NewFileInfo(name string, extension string, contentType string, content io.Reader) FileInfo {
	return FileInfo{
		Name:        name,
		Extension:   extension,
		ContentType: contentType,
		Content:     content,
	}
}
