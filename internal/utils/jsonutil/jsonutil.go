package jsonutil

import (
	"encoding/json"
	"io"
)

// Print writes v to w as indented JSON followed by a newline. HTML
// characters are left unescaped so embed snippets stay readable.
func Print(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

// Failure is the report printed when a command cannot produce a result.
func Failure(err error) map[string]any {
	return map[string]any{
		"success": false,
		"error":   err.Error(),
	}
}
