package domain

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

var audioMIMETypes = map[string]string{
	".wav":  "audio/wav",
	".mp3":  "audio/mpeg",
	".m4a":  "audio/mp4",
	".aac":  "audio/aac",
	".ogg":  "audio/ogg",
	".flac": "audio/flac",
	".webm": "audio/webm",
}

// AudioMIMEType guesses the MIME type from the file extension.
func AudioMIMEType(path string) string {
	if t, ok := audioMIMETypes[strings.ToLower(filepath.Ext(path))]; ok {
		return t
	}
	return "application/octet-stream"
}

// UnknownDuration marks an artifact whose length the fetcher could not
// determine. It is distinct from a zero duration.
const UnknownDuration time.Duration = -1

// AudioArtifact is a downloaded audio file owned by a single pipeline run.
// Release removes the backing file and is safe to call more than once.
type AudioArtifact struct {
	Path     string
	MIMEType string
	Duration time.Duration

	release func() error
	once    sync.Once
	err     error
}

// NewAudioArtifact wraps path. When release is nil the file itself is removed.
// An empty mimeType is derived from the extension.
func NewAudioArtifact(path, mimeType string, duration time.Duration, release func() error) *AudioArtifact {
	if mimeType == "" {
		mimeType = AudioMIMEType(path)
	}
	if release == nil {
		release = func() error {
			if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
				return err
			}
			return nil
		}
	}
	return &AudioArtifact{
		Path:     path,
		MIMEType: mimeType,
		Duration: duration,
		release:  release,
	}
}

func (a *AudioArtifact) Release() error {
	a.once.Do(func() {
		a.err = a.release()
	})
	return a.err
}
