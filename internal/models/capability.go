package models

import "strings"

// multimodalTags are version tags of model families known to accept image
// and audio parts alongside text in one request.
var multimodalTags = []string{"1.5", "2.0", "2.5", "gemini-3"}

// SupportsMedia reports whether the named model can take image or audio
// content. The check is a static substring match against known capable
// version tags; unknown models are treated as text-only.
func SupportsMedia(modelName string) bool {
	for _, tag := range multimodalTags {
		if strings.Contains(modelName, tag) {
			return true
		}
	}
	return false
}
