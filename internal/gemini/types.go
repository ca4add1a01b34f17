package gemini

import (
	"fmt"
	"strings"

	"github.com/bytedance/sonic"
)

type PredictRequest struct {
	Instances  []Instance  `json:"instances"`
	Parameters *Parameters `json:"parameters,omitempty"`
}

type Instance struct {
	Prompt     string       `json:"prompt"`
	Image      *InlineImage `json:"image,omitempty"`
	ModelImage *InlineImage `json:"modelImage,omitempty"`
	LookImage  *InlineImage `json:"lookImage,omitempty"`
}

type InlineImage struct {
	BytesBase64Encoded []byte `json:"bytesBase64Encoded"`
	MIMEType           string `json:"mimeType"`
}

type Parameters struct {
	AspectRatio string `json:"aspectRatio,omitempty"`
}

type Operation struct {
	Name     string             `json:"name"`
	Done     bool               `json:"done"`
	Response *OperationResponse `json:"response,omitempty"`
	Error    *OperationError    `json:"error,omitempty"`
}

type OperationResponse struct {
	GenerateVideoResponse *GenerateResponse `json:"generateVideoResponse,omitempty"`
	GenerateImageResponse *GenerateResponse `json:"generateImageResponse,omitempty"`
}

type GenerateResponse struct {
	GeneratedSamples        []Sample `json:"generatedSamples,omitempty"`
	RaiMediaFilteredCount   int      `json:"raiMediaFilteredCount,omitempty"`
	RaiMediaFilteredReasons Reasons  `json:"raiMediaFilteredReasons,omitempty"`
}

type Sample struct {
	Video *Media `json:"video,omitempty"`
	Image *Media `json:"image,omitempty"`
}

// Media is a generated asset, referenced by URI or carried inline.
type Media struct {
	URI                string `json:"uri,omitempty"`
	MIMEType           string `json:"mimeType,omitempty"`
	Data               []byte `json:"data,omitempty"`
	BytesBase64Encoded []byte `json:"bytesBase64Encoded,omitempty"`
}

func (m *Media) Bytes() []byte {
	if len(m.Data) > 0 {
		return m.Data
	}

	return m.BytesBase64Encoded
}

// Asset returns the video when present, otherwise the image.
func (s *Sample) Asset() *Media {
	if s.Video != nil {
		return s.Video
	}

	return s.Image
}

// Reasons accepts either a single string or a list of strings.
type Reasons []string

func (r *Reasons) UnmarshalJSON(data []byte) error {
	var list []string
	if err := sonic.Unmarshal(data, &list); err == nil {
		*r = list
		return nil
	}

	var single string
	if err := sonic.Unmarshal(data, &single); err != nil {
		return fmt.Errorf("raiMediaFilteredReasons must be a string or list: %w", err)
	}

	if single == "" {
		*r = nil
	} else {
		*r = Reasons{single}
	}

	return nil
}

func (r Reasons) String() string {
	return strings.Join(r, ", ")
}

type OperationError struct {
	Code    int    `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
	Status  string `json:"status,omitempty"`
}

func (e *OperationError) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("operation failed (%d): %s", e.Code, e.Message)
	}

	return fmt.Sprintf("operation failed: %s", e.Message)
}

// Result extracts the first generated sample of a finished operation.
func (op *Operation) Result() (*Sample, error) {
	if op.Error != nil {
		return nil, op.Error
	}
	if !op.Done {
		return nil, ErrOperationPending
	}
	if op.Response == nil {
		return nil, ErrNoAsset
	}

	generated := op.Response.GenerateVideoResponse
	if generated == nil {
		generated = op.Response.GenerateImageResponse
	}
	if generated == nil {
		return nil, ErrNoAsset
	}

	if len(generated.RaiMediaFilteredReasons) > 0 || generated.RaiMediaFilteredCount > 0 {
		return nil, NewSafetyFilterError(generated.RaiMediaFilteredReasons, generated.RaiMediaFilteredCount)
	}

	for i := range generated.GeneratedSamples {
		sample := &generated.GeneratedSamples[i]
		if asset := sample.Asset(); asset != nil && (asset.URI != "" || len(asset.Bytes()) > 0) {
			return sample, nil
		}
	}

	return nil, ErrNoAsset
}

// OperationID returns the id part of an operation name such as
// "models/veo/operations/abc".
func OperationID(name string) string {
	return name[strings.LastIndex(name, "/")+1:]
}
