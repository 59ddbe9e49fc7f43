package fetcher

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"quizly/internal/config"
	"quizly/internal/domain"

	"go.uber.org/zap"
)

const outputBaseName = "quizly_audio"

// probeExtensions are tried in order when the preferred codec did not
// produce a file.
var probeExtensions = []string{"m4a", "mp3", "wav", "aac", "ogg", "flac"}

var notFoundMarkers = []string{
	"video unavailable",
	"private video",
	"http error 404",
	"has been removed",
	"this video is not available",
	"does not exist",
	"members-only",
	"account associated with this video has been terminated",
}

var toolchainMarkers = []string{
	"ffmpeg not found",
	"ffprobe and ffmpeg not found",
	"ffmpeg is not installed",
}

// CommandRunner executes an external program and returns its output.
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) (stdout, stderr []byte, err error)
}

type execRunner struct{}

func (execRunner) Run(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	return stdout.Bytes(), stderr.Bytes(), err
}

// YTDLPFetcher downloads audio with yt-dlp into a private scratch directory.
type YTDLPFetcher struct {
	cfg      config.FetcherConfig
	runner   CommandRunner
	lookPath func(string) (string, error)
	logger   *zap.Logger
}

type Option func(*YTDLPFetcher)

// WithCommandRunner replaces the os/exec runner.
func WithCommandRunner(r CommandRunner) Option {
	return func(f *YTDLPFetcher) { f.runner = r }
}

// WithLookPath replaces exec.LookPath in CheckToolchain.
func WithLookPath(fn func(string) (string, error)) Option {
	return func(f *YTDLPFetcher) { f.lookPath = fn }
}

func NewYTDLPFetcher(cfg config.FetcherConfig, logger *zap.Logger, opts ...Option) *YTDLPFetcher {
	if cfg.YTDLPPath == "" {
		cfg.YTDLPPath = "yt-dlp"
	}
	if cfg.PreferredCodec == "" {
		cfg.PreferredCodec = "m4a"
	}
	f := &YTDLPFetcher{
		cfg:      cfg,
		runner:   execRunner{},
		lookPath: exec.LookPath,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// CheckToolchain verifies that yt-dlp and ffmpeg can be found.
func (f *YTDLPFetcher) CheckToolchain() error {
	if _, err := f.lookPath(f.cfg.YTDLPPath); err != nil {
		return fmt.Errorf("yt-dlp not available at %q: %w", f.cfg.YTDLPPath, err)
	}
	ffmpeg := "ffmpeg"
	if f.cfg.FFmpegLocation != "" {
		ffmpeg = filepath.Join(f.cfg.FFmpegLocation, "ffmpeg")
	}
	if _, err := f.lookPath(ffmpeg); err != nil {
		return fmt.Errorf("ffmpeg not available at %q: %w", ffmpeg, err)
	}
	return nil
}

// Fetch downloads the audio track of videoURL. On failure the scratch
// directory is already removed; on success the artifact owns it.
func (f *YTDLPFetcher) Fetch(ctx context.Context, videoURL string) (*domain.AudioArtifact, error) {
	if !IsYouTubeURL(videoURL) {
		return nil, &domain.UnsupportedSourceError{URL: videoURL}
	}
	if err := ctx.Err(); err != nil {
		return nil, contextError(videoURL, err)
	}

	dir, err := os.MkdirTemp(f.cfg.ScratchDir, outputBaseName+"_")
	if err != nil {
		return nil, &domain.FetchError{URL: videoURL, Kind: domain.FetchToolchain, Err: fmt.Errorf("create scratch dir: %w", err)}
	}
	cleanup := func() {
		if rmErr := os.RemoveAll(dir); rmErr != nil {
			f.logger.Warn("Failed to remove scratch dir", zap.String("dir", dir), zap.Error(rmErr))
		}
	}

	start := time.Now()
	stdout, stderr, err := f.runner.Run(ctx, f.cfg.YTDLPPath, f.args(dir, videoURL)...)
	if err != nil {
		cleanup()
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, contextError(videoURL, ctxErr)
		}
		fetchErr := classify(videoURL, err, stderr)
		f.logger.Warn("yt-dlp failed",
			zap.String("url", videoURL),
			zap.String("kind", string(fetchErr.Kind)),
			zap.String("stderr", lastLine(stderr)))
		return nil, fetchErr
	}

	path, ok := f.locate(dir)
	if !ok {
		cleanup()
		return nil, &domain.FetchError{URL: videoURL, Kind: domain.FetchToolchain, Err: errors.New("no audio file produced")}
	}

	duration := parseDuration(stdout)
	f.logger.Info("Audio fetched",
		zap.String("url", videoURL),
		zap.String("path", path),
		zap.Duration("duration", duration),
		zap.Duration("elapsed", time.Since(start)))

	return domain.NewAudioArtifact(path, "", duration, func() error {
		return os.RemoveAll(dir)
	}), nil
}

func (f *YTDLPFetcher) args(dir, videoURL string) []string {
	args := []string{
		"-f", "bestaudio/best",
		"--no-playlist",
		"-x",
		"--audio-format", f.cfg.PreferredCodec,
		"--no-simulate",
		"--print", "duration",
		"-o", filepath.Join(dir, outputBaseName+".%(ext)s"),
	}
	if f.cfg.FFmpegLocation != "" {
		args = append(args, "--ffmpeg-location", f.cfg.FFmpegLocation)
	}
	return append(args, videoURL)
}

func (f *YTDLPFetcher) locate(dir string) (string, bool) {
	exts := append([]string{f.cfg.PreferredCodec}, probeExtensions...)
	for _, ext := range exts {
		path := filepath.Join(dir, outputBaseName+"."+ext)
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path, true
		}
	}
	return "", false
}

// contextError reports an expired deadline as a transient fetch failure.
// Cancellation is returned unchanged.
func contextError(videoURL string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return &domain.FetchError{URL: videoURL, Kind: domain.FetchTransient, Err: err}
	}
	return err
}

func classify(videoURL string, err error, stderr []byte) *domain.FetchError {
	kind := domain.FetchTransient
	msg := strings.ToLower(string(stderr))

	switch {
	case errors.Is(err, exec.ErrNotFound), errors.Is(err, os.ErrNotExist):
		kind = domain.FetchToolchain
	case containsAny(msg, toolchainMarkers):
		kind = domain.FetchToolchain
	case containsAny(msg, notFoundMarkers):
		kind = domain.FetchNotFound
	}

	if line := lastLine(stderr); line != "" {
		err = fmt.Errorf("%w: %s", err, line)
	}
	return &domain.FetchError{URL: videoURL, Kind: kind, Err: err}
}

func containsAny(s string, markers []string) bool {
	for _, m := range markers {
		if strings.Contains(s, m) {
			return true
		}
	}
	return false
}

// parseDuration reads the seconds printed by --print duration. Unknown
// durations ("NA") yield domain.UnknownDuration.
func parseDuration(stdout []byte) time.Duration {
	scanner := bufio.NewScanner(bytes.NewReader(stdout))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		secs, err := strconv.ParseFloat(line, 64)
		if err != nil || secs < 0 {
			return domain.UnknownDuration
		}
		return time.Duration(secs * float64(time.Second))
	}
	return domain.UnknownDuration
}

func lastLine(b []byte) string {
	lines := strings.Split(strings.TrimSpace(string(b)), "\n")
	return strings.TrimSpace(lines[len(lines)-1])
}
