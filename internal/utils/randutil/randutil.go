package randutil

import "strings"

// MaskString hides everything but the first visibleStart and last visibleEnd characters.
func MaskString(apiKey string, visibleStart, visibleEnd int) string {
	if len(apiKey) <= visibleStart+visibleEnd {
		return strings.Repeat("*", len(apiKey))
	}

	start := apiKey[:visibleStart]
	end := apiKey[len(apiKey)-visibleEnd:]
	masked := start + strings.Repeat("*", len(apiKey)-(visibleStart+visibleEnd)) + end
	return masked
}
