package fetcher

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"quizly/internal/config"
	"quizly/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testURL = "https://www.youtube.com/watch?v=dQw4w9WgXcQ"

// fakeRunner writes outputExt into the directory given by -o and returns the
// configured output.
type fakeRunner struct {
	outputExt string
	stdout    string
	stderr    string
	err       error
	calls     int
	args      []string
}

func (r *fakeRunner) Run(_ context.Context, _ string, args ...string) ([]byte, []byte, error) {
	r.calls++
	r.args = args
	if r.outputExt != "" {
		for i, a := range args {
			if a == "-o" {
				path := strings.Replace(args[i+1], "%(ext)s", r.outputExt, 1)
				if err := os.WriteFile(path, []byte("audio"), 0o600); err != nil {
					return nil, nil, err
				}
			}
		}
	}
	return []byte(r.stdout), []byte(r.stderr), r.err
}

func newTestFetcher(t *testing.T, runner CommandRunner, mutate ...func(*config.FetcherConfig)) (*YTDLPFetcher, string) {
	t.Helper()
	scratch := t.TempDir()
	cfg := config.FetcherConfig{ScratchDir: scratch}
	for _, m := range mutate {
		m(&cfg)
	}
	return NewYTDLPFetcher(cfg, zap.NewNop(), WithCommandRunner(runner)), scratch
}

func scratchEntries(t *testing.T, dir string) []os.DirEntry {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	return entries
}

func TestYTDLPFetcher_Fetch_Success(t *testing.T) {
	runner := &fakeRunner{outputExt: "m4a", stdout: "180.0\n"}
	f, scratch := newTestFetcher(t, runner)

	artifact, err := f.Fetch(context.Background(), testURL)
	require.NoError(t, err)

	assert.Equal(t, 180*time.Second, artifact.Duration)
	assert.Equal(t, "audio/mp4", artifact.MIMEType)
	assert.FileExists(t, artifact.Path)
	assert.Equal(t, testURL, runner.args[len(runner.args)-1])
	assert.Contains(t, runner.args, "--no-playlist")

	require.NoError(t, artifact.Release())
	require.NoError(t, artifact.Release())
	assert.NoFileExists(t, artifact.Path)
	assert.Empty(t, scratchEntries(t, scratch))
}

func TestYTDLPFetcher_Fetch_ProbesOtherExtensions(t *testing.T) {
	runner := &fakeRunner{outputExt: "mp3", stdout: "NA\n"}
	f, _ := newTestFetcher(t, runner)

	artifact, err := f.Fetch(context.Background(), testURL)
	require.NoError(t, err)
	defer artifact.Release()

	assert.Equal(t, ".mp3", filepath.Ext(artifact.Path))
	assert.Equal(t, "audio/mpeg", artifact.MIMEType)
	assert.Equal(t, domain.UnknownDuration, artifact.Duration)
}

func TestYTDLPFetcher_Fetch_FFmpegLocation(t *testing.T) {
	runner := &fakeRunner{outputExt: "m4a"}
	f, _ := newTestFetcher(t, runner, func(c *config.FetcherConfig) { c.FFmpegLocation = "/opt/ffmpeg/bin" })

	artifact, err := f.Fetch(context.Background(), testURL)
	require.NoError(t, err)
	defer artifact.Release()

	assert.Contains(t, strings.Join(runner.args, " "), "--ffmpeg-location /opt/ffmpeg/bin")
}

func TestYTDLPFetcher_Fetch_UnsupportedSource(t *testing.T) {
	runner := &fakeRunner{}
	f, scratch := newTestFetcher(t, runner)

	_, err := f.Fetch(context.Background(), "https://vimeo.com/1234")

	var unsupported *domain.UnsupportedSourceError
	require.ErrorAs(t, err, &unsupported)
	assert.Zero(t, runner.calls)
	assert.Empty(t, scratchEntries(t, scratch))
}

func TestYTDLPFetcher_Fetch_ErrorClassification(t *testing.T) {
	tests := []struct {
		name   string
		stderr string
		err    error
		want   domain.FetchErrorKind
	}{
		{name: "unavailable", stderr: "ERROR: [youtube] dQw4w9WgXcQ: Video unavailable", err: errors.New("exit status 1"), want: domain.FetchNotFound},
		{name: "private", stderr: "ERROR: Private video. Sign in if you've been granted access", err: errors.New("exit status 1"), want: domain.FetchNotFound},
		{name: "404", stderr: "ERROR: unable to download webpage: HTTP Error 404: Not Found", err: errors.New("exit status 1"), want: domain.FetchNotFound},
		{name: "network", stderr: "ERROR: unable to download video data: <urlopen error [Errno -3] Temporary failure in name resolution>", err: errors.New("exit status 1"), want: domain.FetchTransient},
		{name: "missing ffmpeg", stderr: "ERROR: Postprocessing: ffprobe and ffmpeg not found. Please install", err: errors.New("exit status 1"), want: domain.FetchToolchain},
		{name: "missing binary", err: &exec.Error{Name: "yt-dlp", Err: exec.ErrNotFound}, want: domain.FetchToolchain},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner := &fakeRunner{outputExt: "m4a", stderr: tt.stderr, err: tt.err}
			f, scratch := newTestFetcher(t, runner)

			artifact, err := f.Fetch(context.Background(), testURL)
			assert.Nil(t, artifact)

			var fetchErr *domain.FetchError
			require.ErrorAs(t, err, &fetchErr)
			assert.Equal(t, tt.want, fetchErr.Kind)
			assert.Equal(t, tt.want == domain.FetchTransient, domain.IsTransient(err))
			assert.Empty(t, scratchEntries(t, scratch), "scratch dir must be removed on failure")
		})
	}
}

func TestYTDLPFetcher_Fetch_NoFileProduced(t *testing.T) {
	runner := &fakeRunner{stdout: "12\n"}
	f, scratch := newTestFetcher(t, runner)

	_, err := f.Fetch(context.Background(), testURL)

	var fetchErr *domain.FetchError
	require.ErrorAs(t, err, &fetchErr)
	assert.Equal(t, domain.FetchToolchain, fetchErr.Kind)
	assert.Empty(t, scratchEntries(t, scratch))
}

func TestYTDLPFetcher_Fetch_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	runner := &fakeRunner{}
	f, _ := newTestFetcher(t, runner)

	_, err := f.Fetch(ctx, testURL)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, runner.calls)
}

// blockingRunner waits for its context like a stalled download.
type blockingRunner struct {
	calls int
}

func (r *blockingRunner) Run(ctx context.Context, _ string, _ ...string) ([]byte, []byte, error) {
	r.calls++
	<-ctx.Done()
	return nil, []byte("signal: killed"), errors.New("signal: killed")
}

func TestYTDLPFetcher_Fetch_DeadlineIsTransient(t *testing.T) {
	runner := &blockingRunner{}
	f, scratch := newTestFetcher(t, runner)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := f.Fetch(ctx, testURL)
	var fetchErr *domain.FetchError
	require.ErrorAs(t, err, &fetchErr)
	assert.Equal(t, domain.FetchTransient, fetchErr.Kind)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.True(t, domain.IsTransient(err))
	assert.Equal(t, 1, runner.calls)
	assert.Empty(t, scratchEntries(t, scratch))
}

func TestYTDLPFetcher_CheckToolchain(t *testing.T) {
	found := map[string]bool{"yt-dlp": true}
	lookPath := func(name string) (string, error) {
		if found[name] {
			return "/usr/bin/" + name, nil
		}
		return "", exec.ErrNotFound
	}
	f := NewYTDLPFetcher(config.FetcherConfig{}, zap.NewNop(), WithLookPath(lookPath))

	err := f.CheckToolchain()
	assert.ErrorContains(t, err, "ffmpeg")

	found["ffmpeg"] = true
	assert.NoError(t, f.CheckToolchain())
}

func TestParseDuration(t *testing.T) {
	assert.Equal(t, 90500*time.Millisecond, parseDuration([]byte("\n90.5\n")))
	assert.Zero(t, parseDuration([]byte("0\n")))
	assert.Equal(t, domain.UnknownDuration, parseDuration([]byte("NA")))
	assert.Equal(t, domain.UnknownDuration, parseDuration(nil))
}
