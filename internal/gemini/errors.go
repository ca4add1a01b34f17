package gemini

import (
	"errors"
	"fmt"
)

var (
	ErrMissingAPIKey        = errors.New("gemini api key is not set")
	ErrMissingOperationName = errors.New("invalid API response: operation name not found")
	ErrOperationPending     = errors.New("operation is not done yet")
	ErrOperationTimeout     = errors.New("operation timed out")
	ErrNoAsset              = errors.New("no generated asset found in completed operation response")
	ErrEmptyDownload        = errors.New("download returned empty content")
	ErrDownloadTooLarge     = errors.New("download exceeds the maximum allowed size")
)

type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("gemini API request failed with status %d: %s", e.StatusCode, e.Body)
}

// SafetyFilterError is returned when generated media was withheld by the
// content safety filters. Blocked attempts are not billed.
type SafetyFilterError struct {
	Reasons Reasons
	Count   int
}

func NewSafetyFilterError(reasons Reasons, count int) *SafetyFilterError {
	if count == 0 {
		count = len(reasons)
	}

	return &SafetyFilterError{Reasons: reasons, Count: count}
}

func (e *SafetyFilterError) Error() string {
	return fmt.Sprintf(
		"generation was blocked by safety filters. Reason(s): %s. Filtered count: %d. "+
			"Suggestions: 1) Simplify your prompt (remove brand names, celebrities, or copyrighted content), "+
			"2) If audio is the issue, retry with --silent-video flag or add 'silent video' to your prompt, "+
			"3) Check that your image doesn't contain restricted content. "+
			"You have not been charged for this attempt.",
		e.Reasons, e.Count,
	)
}

func IsSafetyFilterError(err error) bool {
	var target *SafetyFilterError
	return errors.As(err, &target)
}
