package fileuploader

import (
	"context"

	"github.com/genaker/agento/internal/services/filestorage"
	"github.com/gammazero/workerpool"
)

type Result struct {
	URL string
	Err error
}

// Uploader runs uploads to a FileStorage on a bounded worker pool.
type Uploader struct {
	wp          *workerpool.WorkerPool
	filestorage filestorage.FileStorage
}

func NewFileUploader(filestorage filestorage.FileStorage, maxWorkers int) *Uploader {
	wp := workerpool.New(maxWorkers)

	return &Uploader{
		wp:          wp,
		filestorage: filestorage,
	}
}

func (w *Uploader) Stop() {
	w.wp.StopWait()
}

// Upload queues file and delivers its outcome on response, which must be
// buffered or drained.
func (w *Uploader) Upload(ctx context.Context, file filestorage.FileInfo, response chan<- Result) {
	w.wp.Submit(func() {
		url, err := w.filestorage.Upload(ctx, file)
		response <- Result{URL: url, Err: err}
	})
}

// UploadAndWait queues file and blocks until it is stored or ctx is done.
func (w *Uploader) UploadAndWait(ctx context.Context, file filestorage.FileInfo) (string, error) {
	response := make(chan Result, 1)
	w.Upload(ctx, file, response)

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case result := <-response:
		return result.URL, result.Err
	}
}
