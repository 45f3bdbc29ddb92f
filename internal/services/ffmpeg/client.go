package ffmpeg

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"

	"plinth/internal/services"
)

// audioExtensions lists the track formats eligible for the random pick.
var audioExtensions = map[string]struct{}{
	".mp3": {},
	".wav": {},
	".m4a": {},
}

// VideoOptions controls frame-sequence assembly.
type VideoOptions struct {
	Width  int
	Height int
	FPS    int
	CRF    int
	Preset string
}

// Compositor defines the behaviour required by the pipeline.
type Compositor interface {
	FramesToVideo(ctx context.Context, framesDir, outPath string, opts VideoOptions) (string, error)
	MuxAudio(ctx context.Context, videoPath, outPath, audioDir string) (string, error)
	ExtractThumbnail(ctx context.Context, videoPath, outPath, timestamp string) (string, error)
}

// Executor abstracts command execution for testability.
type Executor interface {
	Run(ctx context.Context, binary string, args []string, onLine func(string)) error
}

// Option configures the client.
type Option func(*CLI)

// WithExecutor injects a custom executor (primarily for tests).
func WithExecutor(exec Executor) Option {
	return func(c *CLI) {
		if exec != nil {
			c.exec = exec
		}
	}
}

// WithRand injects a deterministic random source for the audio pick.
func WithRand(rng *rand.Rand) Option {
	return func(c *CLI) {
		if rng != nil {
			c.rng = rng
		}
	}
}

// CLI wraps ffmpeg command-line invocations.
type CLI struct {
	binary string
	exec   Executor
	rng    *rand.Rand
}

// NewCLI constructs an ffmpeg client.
func NewCLI(binary string, opts ...Option) (*CLI, error) {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		return nil, errors.New("ffmpeg binary required")
	}
	client := &CLI{
		binary: binary,
		exec:   commandExecutor{},
		rng:    rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// FramesToVideo assembles frame_%04d.png files into a silent H.264 video.
func (c *CLI) FramesToVideo(ctx context.Context, framesDir, outPath string, opts VideoOptions) (string, error) {
	if framesDir == "" || outPath == "" {
		return "", errors.New("frames directory and output path required")
	}
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return "", fmt.Errorf("create output directory: %w", err)
	}

	args := []string{
		"-y",
		"-framerate", strconv.Itoa(opts.FPS),
		"-i", filepath.Join(framesDir, "frame_%04d.png"),
		"-vf", fmt.Sprintf("scale=%d:%d", opts.Width, opts.Height),
		"-c:v", "libx264",
		"-pix_fmt", "yuv420p",
		"-crf", strconv.Itoa(opts.CRF),
		"-preset", opts.Preset,
		"-movflags", "+faststart",
		outPath,
	}

	var tail diagnosticTail
	if err := c.exec.Run(ctx, c.binary, args, tail.add); err != nil {
		return "", services.Wrap(services.ErrComposition, "composite", "frames to video", tail.String(), err)
	}
	return outPath, nil
}

// MuxAudio attaches one audio track chosen uniformly at random from audioDir.
// With no eligible tracks the video is copied through verbatim.
func (c *CLI) MuxAudio(ctx context.Context, videoPath, outPath, audioDir string) (string, error) {
	if videoPath == "" || outPath == "" {
		return "", errors.New("video and output paths required")
	}

	tracks, err := listAudioTracks(audioDir)
	if err != nil {
		return "", services.Wrap(services.ErrAudioMux, "mux", "list audio tracks", audioDir, err)
	}
	if len(tracks) == 0 {
		if err := copyFile(videoPath, outPath); err != nil {
			return "", services.Wrap(services.ErrAudioMux, "mux", "copy video", "", err)
		}
		return outPath, nil
	}

	selected := tracks[c.rng.IntN(len(tracks))]
	args := []string{
		"-y",
		"-i", videoPath,
		"-i", selected,
		"-map", "0:v",
		"-map", "1:a",
		"-c:v", "copy",
		"-c:a", "aac",
		"-b:a", "192k",
		"-shortest",
		outPath,
	}

	var tail diagnosticTail
	if err := c.exec.Run(ctx, c.binary, args, tail.add); err != nil {
		return "", services.Wrap(services.ErrAudioMux, "mux", filepath.Base(selected), tail.String(), err)
	}
	return outPath, nil
}

// ExtractThumbnail grabs a single frame at the given HH:MM:SS timestamp.
func (c *CLI) ExtractThumbnail(ctx context.Context, videoPath, outPath, timestamp string) (string, error) {
	if videoPath == "" || outPath == "" {
		return "", errors.New("video and output paths required")
	}
	if timestamp == "" {
		timestamp = "00:00:05"
	}

	args := []string{
		"-y",
		"-ss", timestamp,
		"-i", videoPath,
		"-frames:v", "1",
		outPath,
	}

	var tail diagnosticTail
	if err := c.exec.Run(ctx, c.binary, args, tail.add); err != nil {
		return "", services.Wrap(services.ErrComposition, "thumbnail", timestamp, tail.String(), err)
	}
	return outPath, nil
}

func listAudioTracks(dir string) ([]string, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, nil
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	var tracks []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if _, ok := audioExtensions[ext]; ok {
			tracks = append(tracks, filepath.Join(dir, entry.Name()))
		}
	}
	sort.Strings(tracks)
	return tracks, nil
}

func copyFile(src, dest string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return err
	}
	out, err := os.Create(dest)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}

const diagnosticTailLines = 40

type diagnosticTail struct {
	mu    sync.Mutex
	lines []string
}

func (t *diagnosticTail) add(line string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.lines = append(t.lines, line)
	if len(t.lines) > diagnosticTailLines {
		t.lines = t.lines[len(t.lines)-diagnosticTailLines:]
	}
}

func (t *diagnosticTail) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return strings.TrimSpace(strings.Join(t.lines, "\n"))
}

type commandExecutor struct{}

func (commandExecutor) Run(ctx context.Context, binary string, args []string, onLine func(string)) error {
	cmd := exec.CommandContext(ctx, binary, args...) //nolint:gosec
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("stderr pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start command: %w", err)
	}

	var wg sync.WaitGroup
	scan := func(r io.Reader) {
		defer wg.Done()
		scanner := bufio.NewScanner(r)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			if onLine != nil {
				onLine(scanner.Text())
			}
		}
	}
	wg.Add(2)
	go scan(stdout)
	go scan(stderr)
	wg.Wait()

	if err := cmd.Wait(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return err
	}
	return nil
}

var _ Compositor = (*CLI)(nil)
