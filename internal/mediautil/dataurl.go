// Package mediautil handles the browser-produced data URLs that carry media
// payloads through the API: `data:<mime>;base64,<payload>`.
package mediautil

import (
	"fmt"
	"regexp"
	"strings"
)

// videoMIMEPattern matches a well-formed video data URL prefix.
var videoMIMEPattern = regexp.MustCompile(`^data:(video/[-a-zA-Z0-9_.+]+);base64,`)

// SplitDataURL separates the MIME type and base64 payload of a data URL.
// Input without a data URL prefix is returned as-is with an empty MIME type,
// since clients sometimes send bare base64.
func SplitDataURL(s string) (mimeType, payload string) {
	if !strings.HasPrefix(s, "data:") {
		return "", s
	}
	idx := strings.Index(s, ";base64,")
	if idx < 0 {
		return "", s
	}
	return s[len("data:"):idx], s[idx+len(";base64,"):]
}

// ParseVideoMIME extracts the video MIME type from a data URL prefix.
//
// Safari on iOS can produce prefixes like `data:video/mp4; codecs="hvc1"` which
// fail the strict pattern but are valid video. Parsing is therefore lenient:
// any `data:video/...` prefix is accepted, and only input with no recognizable
// video marker at all is rejected.
func ParseVideoMIME(dataURL string) (string, error) {
	if m := videoMIMEPattern.FindStringSubmatch(dataURL); m != nil {
		return m[1], nil
	}

	idx := strings.Index(dataURL, ";base64,")
	if idx < 0 {
		return "", fmt.Errorf("no base64 data URL marker found")
	}
	mimePart := dataURL[:idx]
	if !strings.HasPrefix(mimePart, "data:video/") {
		return "", fmt.Errorf("could not parse video MIME type from data URL prefix %q", truncate(mimePart, 60))
	}

	// Drop any parameters (e.g. codecs) from the lenient match.
	mimeType := strings.TrimPrefix(mimePart, "data:")
	if semi := strings.Index(mimeType, ";"); semi >= 0 {
		mimeType = mimeType[:semi]
	}
	return strings.TrimSpace(mimeType), nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
