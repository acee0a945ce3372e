// Package downloader wraps the yt-dlp binary: metadata probing, the
// actual download with progress forwarding and cooperative cancellation,
// and classification of engine failures.
package downloader

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/driftbyte/fetchtube/internal/domain"
	"github.com/driftbyte/fetchtube/internal/format"
	"github.com/driftbyte/fetchtube/internal/infra/cache"
)

// TargetExtension is the container every download is merged into.
const TargetExtension = ".mp4"

// altExtensions are probed, in order, when the expected output path is
// missing. Bounded list, not a directory scan: these are the containers
// yt-dlp can leave behind when the remux step is skipped.
var altExtensions = []string{".mp4", ".mkv", ".webm"}

// Config holds engine constraints and tool locations.
type Config struct {
	YtDlpPath    string        // path to yt-dlp binary
	FFmpegPath   string        // path to ffmpeg binary (optional)
	DownloadDir  string        // directory for produced media files
	CookiesPath  string        // session cookies file; used when present on disk
	MaxFileSize  int64         // maximum file size in bytes
	MaxDuration  int           // maximum video duration in seconds
	Timeout      time.Duration // maximum time for a download
	ProbeTimeout time.Duration // maximum time for a metadata probe
}

// DefaultConfig returns the default engine configuration.
func DefaultConfig() *Config {
	return &Config{
		YtDlpPath:    "yt-dlp",
		FFmpegPath:   "ffmpeg",
		DownloadDir:  "./downloads",
		CookiesPath:  "youtube_cookies.txt",
		MaxFileSize:  500 * 1024 * 1024, // 500MB
		MaxDuration:  1800,              // 30 minutes
		Timeout:      10 * time.Minute,
		ProbeTimeout: 30 * time.Second,
	}
}

// Engine drives yt-dlp. It is safe for concurrent probes; downloads are
// serialized upstream by the admission gate.
type Engine struct {
	cfg    *Config
	probes *cache.ProbeCache
}

// New creates an Engine with the given configuration. The download
// directory is created lazily by Download, where the error can be
// reported.
func New(cfg *Config, probes *cache.ProbeCache) *Engine {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	return &Engine{cfg: cfg, probes: probes}
}

// Probe retrieves video metadata without downloading any media. Results
// are cached so repeated requests for the same URL skip the engine call.
func (e *Engine) Probe(ctx context.Context, url string) (*domain.VideoInfo, error) {
	if e.probes != nil {
		if info, ok := e.probes.Get(url); ok {
			return info, nil
		}
	}

	ctx, cancel := context.WithTimeout(ctx, e.cfg.ProbeTimeout)
	defer cancel()

	args := []string{
		"--no-download",
		"--print-json",
		"--no-playlist",
		"--no-warnings",
	}
	args = e.appendCookies(args)
	args = append(args, url)

	cmd := exec.CommandContext(ctx, e.cfg.YtDlpPath, args...)
	output, err := cmd.Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return nil, classify(string(exitErr.Stderr))
		}
		return nil, domain.NewUnexpectedError(err)
	}

	var info domain.VideoInfo
	if err := json.Unmarshal(output, &info); err != nil {
		return nil, domain.NewUnexpectedError(fmt.Errorf("parse video info: %w", err))
	}

	if e.probes != nil {
		e.probes.Set(url, &info)
	}
	return &info, nil
}

// Download fetches the requested video, forwarding a ProgressSample to
// onProgress for each engine progress line and polling isCancelled at the
// same points. When the flag is observed set, the engine process is torn
// down via context cancellation and ErrCancelled is returned; termination
// is therefore bounded by the engine's progress cadence, not immediate.
// On success it returns the path of the produced media file.
func (e *Engine) Download(ctx context.Context, req domain.DownloadRequest, info *domain.VideoInfo, onProgress func(domain.ProgressSample), isCancelled func() bool) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, e.cfg.Timeout)
	defer cancel()

	if err := os.MkdirAll(e.cfg.DownloadDir, 0755); err != nil {
		return "", domain.NewUnexpectedError(err)
	}

	base := fmt.Sprintf("%s_%s", SanitizeTitle(info.Title), format.Display(req.Resolution))
	outputTemplate := filepath.Join(e.cfg.DownloadDir, base+".%(ext)s")

	args := e.buildArgs(req, outputTemplate)

	cmd := exec.CommandContext(ctx, e.cfg.YtDlpPath, args...)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return "", domain.NewUnexpectedError(err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return "", domain.NewUnexpectedError(err)
	}

	if err := cmd.Start(); err != nil {
		return "", domain.NewUnexpectedError(fmt.Errorf("start yt-dlp: %w", err))
	}

	var (
		wg        sync.WaitGroup
		cancelled bool
	)
	wg.Add(2)

	go func() {
		defer wg.Done()
		scanner := bufio.NewScanner(stdout)
		for scanner.Scan() {
			sample, ok := ParseProgressLine(scanner.Text())
			if !ok {
				continue
			}
			// The cancel flag is only observed here, on the engine's
			// progress cadence. Cancelling the context kills the
			// process; keep draining so Wait does not block.
			if !cancelled && isCancelled != nil && isCancelled() {
				cancelled = true
				cancel()
				continue
			}
			if !cancelled && onProgress != nil {
				onProgress(sample)
			}
		}
	}()

	var stderrOutput strings.Builder
	go func() {
		defer wg.Done()
		scanner := bufio.NewScanner(stderr)
		for scanner.Scan() {
			stderrOutput.WriteString(scanner.Text())
			stderrOutput.WriteString("\n")
		}
	}()

	wg.Wait()

	if err := cmd.Wait(); err != nil {
		if cancelled {
			return "", domain.ErrCancelled
		}
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", domain.NewEngineError("download timed out")
		}
		if errors.Is(ctx.Err(), context.Canceled) {
			return "", domain.ErrCancelled
		}
		return "", classify(stderrOutput.String())
	}

	return e.resolveOutput(filepath.Join(e.cfg.DownloadDir, base+TargetExtension))
}

// buildArgs constructs the yt-dlp download arguments.
func (e *Engine) buildArgs(req domain.DownloadRequest, outputTemplate string) []string {
	args := []string{
		"--no-playlist",
		"--max-filesize", fmt.Sprintf("%d", e.cfg.MaxFileSize),
		"--match-filter", fmt.Sprintf("duration<%d", e.cfg.MaxDuration),

		"-f", format.Expression(req.Resolution),
		"-o", outputTemplate,
		"--merge-output-format", strings.TrimPrefix(TargetExtension, "."),

		// One progress line per callback, parseable by ParseProgressLine.
		"--newline",

		"--socket-timeout", "30",
		"--retries", "3",
		"--no-cache-dir",
	}

	if e.cfg.FFmpegPath != "" {
		args = append([]string{"--ffmpeg-location", e.cfg.FFmpegPath}, args...)
	}
	args = e.appendCookies(args)

	return append(args, req.URL)
}

// appendCookies adds the session cookies file when one exists on disk.
func (e *Engine) appendCookies(args []string) []string {
	if e.cfg.CookiesPath == "" {
		return args
	}
	if _, err := os.Stat(e.cfg.CookiesPath); err != nil {
		return args
	}
	return append(args, "--cookies", e.cfg.CookiesPath)
}

// resolveOutput locates the produced file. The merge step normally lands
// on the expected .mp4 path, but a skipped remux can leave the original
// container; probe the bounded alternate list before giving up.
func (e *Engine) resolveOutput(expected string) (string, error) {
	if _, err := os.Stat(expected); err == nil {
		return expected, nil
	}

	base := strings.TrimSuffix(expected, filepath.Ext(expected))
	for _, ext := range altExtensions {
		candidate := base + ext
		if _, err := os.Stat(candidate); err == nil {
			slog.Debug("Recovered output under alternate extension",
				"expected", expected,
				"actual", candidate,
			)
			return candidate, nil
		}
	}

	return "", domain.ErrFileNotFound
}

// Cleanup removes a produced file, refusing paths outside the download
// directory.
func (e *Engine) Cleanup(filePath string) error {
	if filePath == "" {
		return nil
	}

	absPath, err := filepath.Abs(filePath)
	if err != nil {
		return err
	}
	absDir, err := filepath.Abs(e.cfg.DownloadDir)
	if err != nil {
		return err
	}
	if !strings.HasPrefix(absPath, absDir+string(filepath.Separator)) {
		return errors.New("cannot delete file outside download directory")
	}

	return os.Remove(filePath)
}

// CheckBinary verifies that yt-dlp is installed and executable.
func (e *Engine) CheckBinary() error {
	cmd := exec.Command(e.cfg.YtDlpPath, "--version")
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("yt-dlp not found or not executable: %w", err)
	}
	return nil
}

// classify maps raw yt-dlp stderr to the outcome taxonomy. Unrecognized
// failures become EngineError with bounded detail.
func classify(output string) error {
	lower := strings.ToLower(output)
	switch {
	case strings.Contains(output, "Private video"):
		return domain.ErrPrivateVideo
	case strings.Contains(lower, "members-only") || strings.Contains(lower, "join this channel"):
		return domain.ErrMembersOnly
	case strings.Contains(output, "Sign in") || strings.Contains(lower, "login"):
		return domain.ErrAuthRequired
	default:
		return domain.NewEngineError(strings.TrimSpace(output))
	}
}
