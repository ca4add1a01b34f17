package video

import "fmt"

const (
	StatusCompleted  = "completed"
	StatusRunning    = "running"
	StatusProcessing = "processing"

	DefaultAspectRatio = "16:9"

	processingMessage = "Video generation started. Use --poll option to wait for completion."
)

// Submission describes a started generation, or a cache hit.
type Submission struct {
	OperationName string `json:"operationName,omitempty"`
	CacheKey      string `json:"cacheKey,omitempty"`
	Done          bool   `json:"done"`
	Status        string `json:"status"`
	FromCache     bool   `json:"fromCache,omitempty"`
	VideoURL      string `json:"videoUrl,omitempty"`
	VideoPath     string `json:"videoPath,omitempty"`
}

// Result describes a saved video.
type Result struct {
	VideoURL  string `json:"videoUrl"`
	VideoPath string `json:"videoPath"`
	EmbedURL  string `json:"embedUrl"`
	Status    string `json:"status"`
	PublicURL string `json:"publicUrl,omitempty"`
}

type Request struct {
	ImagePath   string `json:"image_path"`
	Prompt      string `json:"prompt"`
	AspectRatio string `json:"aspect_ratio"`
	Silent      bool   `json:"silent_video"`
	Poll        bool   `json:"poll"`
}

// Outcome is the per-image report printed by the CLI and returned by the server.
type Outcome struct {
	ImagePath     string `json:"imagePath"`
	Success       bool   `json:"success"`
	Status        string `json:"status,omitempty"`
	VideoURL      string `json:"videoUrl,omitempty"`
	VideoPath     string `json:"videoPath,omitempty"`
	EmbedURL      string `json:"embedUrl,omitempty"`
	PublicURL     string `json:"publicUrl,omitempty"`
	Cached        bool   `json:"cached,omitempty"`
	OperationName string `json:"operationName,omitempty"`
	Message       string `json:"message,omitempty"`
	Error         string `json:"error,omitempty"`

	// Err is the failure behind Error, kept for callers that classify it.
	Err error `json:"-"`
}

type Summary struct {
	Success   bool       `json:"success"`
	Total     int        `json:"total"`
	Succeeded int        `json:"succeeded"`
	Failed    int        `json:"failed"`
	Results   []*Outcome `json:"results"`
	Errors    []*Outcome `json:"errors"`
}

// EmbedHTML is the player snippet stored alongside generated videos.
func EmbedHTML(videoURL string) string {
	return fmt.Sprintf(`<video controls width="100%%" height="auto"><source src="%s" type="video/mp4">Your browser does not support the video tag.</video>`, videoURL)
}

// Report folds per-image outcomes into the value to print: a lone outcome is
// reported as is, several are summarised. failed is true if any image failed.
func Report(outcomes []*Outcome) (report any, failed bool) {
	summary := &Summary{
		Total:   len(outcomes),
		Results: []*Outcome{},
		Errors:  []*Outcome{},
	}
	for _, outcome := range outcomes {
		if outcome.Success {
			summary.Results = append(summary.Results, outcome)
		} else {
			summary.Errors = append(summary.Errors, outcome)
		}
	}
	summary.Succeeded = len(summary.Results)
	summary.Failed = len(summary.Errors)
	summary.Success = summary.Failed == 0

	if len(outcomes) == 1 {
		return outcomes[0], !summary.Success
	}

	return summary, !summary.Success
}
