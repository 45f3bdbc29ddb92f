package ffmpeg

import (
	"context"
	"errors"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"plinth/internal/services"
	"plinth/internal/testsupport"
)

type fakeExecutor struct {
	calls  int
	binary string
	args   []string
	err    error
}

func (f *fakeExecutor) Run(ctx context.Context, binary string, args []string, onLine func(string)) error {
	f.calls++
	f.binary = binary
	f.args = args
	if f.err != nil {
		if onLine != nil {
			onLine("Conversion failed!")
		}
		return f.err
	}
	return nil
}

func newTestCLI(t *testing.T, exec *fakeExecutor, seed uint64) *CLI {
	t.Helper()
	client, err := NewCLI("ffmpeg", WithExecutor(exec), WithRand(rand.New(rand.NewPCG(seed, seed))))
	if err != nil {
		t.Fatalf("NewCLI: %v", err)
	}
	return client
}

func TestFramesToVideoArgs(t *testing.T) {
	exec := &fakeExecutor{}
	client := newTestCLI(t, exec, 1)
	base := t.TempDir()

	outPath := filepath.Join(base, "out", "widget_temp.mp4")
	opts := VideoOptions{Width: 640, Height: 740, FPS: 10, CRF: 18, Preset: "medium"}
	got, err := client.FramesToVideo(context.Background(), filepath.Join(base, "frames"), outPath, opts)
	if err != nil {
		t.Fatalf("FramesToVideo: %v", err)
	}
	if got != outPath {
		t.Fatalf("returned path %q, want %q", got, outPath)
	}

	joined := strings.Join(exec.args, " ")
	for _, fragment := range []string{
		"-framerate 10",
		"frame_%04d.png",
		"scale=640:740",
		"-c:v libx264",
		"-pix_fmt yuv420p",
		"-crf 18",
		"-preset medium",
		"-movflags +faststart",
	} {
		if !strings.Contains(joined, fragment) {
			t.Fatalf("args missing %q: %v", fragment, exec.args)
		}
	}
	if exec.args[len(exec.args)-1] != outPath {
		t.Fatalf("output path should be the final argument, got %v", exec.args)
	}
}

func TestFramesToVideoFailure(t *testing.T) {
	exec := &fakeExecutor{err: errors.New("exit status 1")}
	client := newTestCLI(t, exec, 1)
	base := t.TempDir()

	_, err := client.FramesToVideo(context.Background(), base, filepath.Join(base, "out.mp4"), VideoOptions{FPS: 10, Preset: "medium"})
	if err == nil {
		t.Fatal("expected failure")
	}
	if !errors.Is(err, services.ErrComposition) {
		t.Fatalf("expected composition error, got %v", err)
	}
	if !strings.Contains(err.Error(), "Conversion failed!") {
		t.Fatalf("error should carry diagnostic output, got %v", err)
	}
}

func TestMuxAudioPassThroughWithoutTracks(t *testing.T) {
	// The executor must never run: an empty audio directory copies the video
	// through byte for byte.
	exec := &fakeExecutor{err: errors.New("ffmpeg should not be invoked")}
	client := newTestCLI(t, exec, 1)
	base := t.TempDir()

	videoPath := testsupport.WriteFile(t, base, "widget_temp.mp4", []byte("video-bytes"))
	audioDir := filepath.Join(base, "audio")
	if err := os.MkdirAll(audioDir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	outPath := filepath.Join(base, "widget.mp4")
	got, err := client.MuxAudio(context.Background(), videoPath, outPath, audioDir)
	if err != nil {
		t.Fatalf("MuxAudio: %v", err)
	}
	if got != outPath {
		t.Fatalf("returned path %q, want %q", got, outPath)
	}
	if exec.calls != 0 {
		t.Fatalf("executor ran %d times, want 0", exec.calls)
	}

	copied, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if string(copied) != "video-bytes" {
		t.Fatalf("pass-through copy mismatch: %q", copied)
	}
}

func TestMuxAudioMissingDirPassThrough(t *testing.T) {
	exec := &fakeExecutor{err: errors.New("ffmpeg should not be invoked")}
	client := newTestCLI(t, exec, 1)
	base := t.TempDir()

	videoPath := testsupport.WriteFile(t, base, "in.mp4", []byte("x"))
	outPath := filepath.Join(base, "out.mp4")
	if _, err := client.MuxAudio(context.Background(), videoPath, outPath, filepath.Join(base, "nope")); err != nil {
		t.Fatalf("MuxAudio: %v", err)
	}
	if exec.calls != 0 {
		t.Fatalf("executor ran %d times, want 0", exec.calls)
	}
}

func TestMuxAudioPicksEligibleTrack(t *testing.T) {
	exec := &fakeExecutor{}
	client := newTestCLI(t, exec, 5)
	base := t.TempDir()

	videoPath := testsupport.WriteFile(t, base, "in.mp4", []byte("x"))
	audioDir := filepath.Join(base, "audio")
	testsupport.WriteFile(t, audioDir, "ambient.mp3", []byte("a"))
	testsupport.WriteFile(t, audioDir, "chimes.wav", []byte("b"))
	testsupport.WriteFile(t, audioDir, "notes.txt", []byte("not audio"))

	outPath := filepath.Join(base, "out.mp4")
	if _, err := client.MuxAudio(context.Background(), videoPath, outPath, audioDir); err != nil {
		t.Fatalf("MuxAudio: %v", err)
	}
	if exec.calls != 1 {
		t.Fatalf("executor ran %d times, want 1", exec.calls)
	}

	joined := strings.Join(exec.args, " ")
	if strings.Contains(joined, "notes.txt") {
		t.Fatalf("non-audio file selected: %v", exec.args)
	}
	if !strings.Contains(joined, ".mp3") && !strings.Contains(joined, ".wav") {
		t.Fatalf("no eligible track in args: %v", exec.args)
	}
	for _, fragment := range []string{"-map 0:v", "-map 1:a", "-c:v copy", "-c:a aac", "-b:a 192k", "-shortest"} {
		if !strings.Contains(joined, fragment) {
			t.Fatalf("args missing %q: %v", fragment, exec.args)
		}
	}
}

func TestMuxAudioPickIsSeedDeterministic(t *testing.T) {
	base := t.TempDir()
	videoPath := testsupport.WriteFile(t, base, "in.mp4", []byte("x"))
	audioDir := filepath.Join(base, "audio")
	for _, name := range []string{"a.mp3", "b.mp3", "c.mp3", "d.mp3"} {
		testsupport.WriteFile(t, audioDir, name, []byte("track"))
	}

	pick := func(seed uint64) string {
		exec := &fakeExecutor{}
		client := newTestCLI(t, exec, seed)
		if _, err := client.MuxAudio(context.Background(), videoPath, filepath.Join(base, "out.mp4"), audioDir); err != nil {
			t.Fatalf("MuxAudio: %v", err)
		}
		// Track path is the second input.
		return exec.args[4]
	}

	first := pick(9)
	second := pick(9)
	if first != second {
		t.Fatalf("same seed picked different tracks: %q vs %q", first, second)
	}
}

func TestExtractThumbnailDefaultsTimestamp(t *testing.T) {
	exec := &fakeExecutor{}
	client := newTestCLI(t, exec, 1)
	base := t.TempDir()

	outPath := filepath.Join(base, "thumb.png")
	if _, err := client.ExtractThumbnail(context.Background(), filepath.Join(base, "in.mp4"), outPath, ""); err != nil {
		t.Fatalf("ExtractThumbnail: %v", err)
	}
	joined := strings.Join(exec.args, " ")
	if !strings.Contains(joined, "-ss 00:00:05") {
		t.Fatalf("expected default timestamp, got %v", exec.args)
	}
	if !strings.Contains(joined, "-frames:v 1") {
		t.Fatalf("expected single frame extraction, got %v", exec.args)
	}
}

func TestNewCLIRequiresBinary(t *testing.T) {
	if _, err := NewCLI(""); err == nil {
		t.Fatal("expected error for blank binary")
	}
}
