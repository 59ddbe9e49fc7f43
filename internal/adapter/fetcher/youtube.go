package fetcher

import (
	"regexp"
	"strings"
)

var youtubeURLPattern = regexp.MustCompile(`(?i)^(https?://)?(www\.)?(youtube\.com/(watch\?v=|shorts/)|youtu\.be/)(?P<id>[\w-]{11})([&?].*)?$`)

// IsYouTubeURL reports whether raw is a single-video YouTube link.
func IsYouTubeURL(raw string) bool {
	return youtubeURLPattern.MatchString(strings.TrimSpace(raw))
}

// VideoID extracts the 11 character video id, or "" when raw is not a
// YouTube link.
func VideoID(raw string) string {
	m := youtubeURLPattern.FindStringSubmatch(strings.TrimSpace(raw))
	if m == nil {
		return ""
	}
	return m[youtubeURLPattern.SubexpIndex("id")]
}
