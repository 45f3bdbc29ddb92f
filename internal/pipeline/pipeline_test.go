package pipeline_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"plinth/internal/config"
	"plinth/internal/palette"
	"plinth/internal/pipeline"
	"plinth/internal/services"
	"plinth/internal/services/blender"
	"plinth/internal/services/ffmpeg"
	"plinth/internal/store"
	"plinth/internal/testsupport"
)

type fakeRenderer struct {
	requests []blender.Request
	failOn   map[string]error
}

func (f *fakeRenderer) Render(ctx context.Context, req blender.Request) (blender.Result, error) {
	f.requests = append(f.requests, req)

	stem := filepath.Base(req.FramesDir)
	if err, ok := f.failOn[stem]; ok {
		return blender.Result{FramesDir: req.FramesDir}, err
	}

	if err := os.MkdirAll(req.FramesDir, 0o755); err != nil {
		return blender.Result{}, err
	}
	specPath := filepath.Join(req.FramesDir, "scene_spec.json")
	driverPath := filepath.Join(req.FramesDir, "render_driver.py")
	for _, path := range []string{specPath, driverPath} {
		if err := os.WriteFile(path, []byte("{}"), 0o644); err != nil {
			return blender.Result{}, err
		}
	}
	for i := 1; i <= req.TotalFrames; i++ {
		frame := filepath.Join(req.FramesDir, fmt.Sprintf("frame_%04d.png", i))
		if err := os.WriteFile(frame, []byte("png"), 0o644); err != nil {
			return blender.Result{}, err
		}
	}
	return blender.Result{
		FramesDir:  req.FramesDir,
		FrameCount: req.TotalFrames,
		SpecPath:   specPath,
		DriverPath: driverPath,
	}, nil
}

type fakeCompositor struct {
	videoCalls []string
	muxCalls   []string
}

func (f *fakeCompositor) FramesToVideo(ctx context.Context, framesDir, outPath string, opts ffmpeg.VideoOptions) (string, error) {
	f.videoCalls = append(f.videoCalls, outPath)
	if err := os.WriteFile(outPath, []byte("silent-video"), 0o644); err != nil {
		return "", err
	}
	return outPath, nil
}

func (f *fakeCompositor) MuxAudio(ctx context.Context, videoPath, outPath, audioDir string) (string, error) {
	f.muxCalls = append(f.muxCalls, outPath)
	data, err := os.ReadFile(videoPath)
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(outPath, data, 0o644); err != nil {
		return "", err
	}
	return outPath, nil
}

func (f *fakeCompositor) ExtractThumbnail(ctx context.Context, videoPath, outPath, timestamp string) (string, error) {
	return outPath, nil
}

func newTestOrchestrator(t *testing.T, cfg *config.Config, st *store.Store, renderer *fakeRenderer, compositor *fakeCompositor) *pipeline.Orchestrator {
	t.Helper()
	orch, err := pipeline.New(cfg, st, renderer, compositor,
		pipeline.WithPaletteGenerator(palette.NewSeeded(1)),
	)
	if err != nil {
		t.Fatalf("pipeline.New: %v", err)
	}
	return orch
}

func TestScanRegistersModelFiles(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	orch := newTestOrchestrator(t, cfg, st, &fakeRenderer{}, &fakeCompositor{})

	testsupport.WriteModelFile(t, cfg.Paths.ModelDir, "widget.stl")
	testsupport.WriteModelFile(t, filepath.Join(cfg.Paths.ModelDir, "nested"), "gear.STL")
	testsupport.WriteFile(t, cfg.Paths.ModelDir, "readme.txt", []byte("not a model"))

	report, err := orch.Scan(context.Background())
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if report.Found != 2 || report.New != 2 {
		t.Fatalf("expected 2 found and 2 new, got %+v", report)
	}

	// A second pass finds the same files but registers nothing new.
	report, err = orch.Scan(context.Background())
	if err != nil {
		t.Fatalf("second Scan: %v", err)
	}
	if report.Found != 2 || report.New != 0 {
		t.Fatalf("expected idempotent rescan, got %+v", report)
	}
}

func TestProcessQueueCompletesItems(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	renderer := &fakeRenderer{}
	compositor := &fakeCompositor{}
	orch := newTestOrchestrator(t, cfg, st, renderer, compositor)

	path := testsupport.WriteModelFile(t, cfg.Paths.ModelDir, "widget.stl")
	fileID := testsupport.RegisterFile(t, st, path)

	report, err := orch.ProcessQueue(context.Background(), 0)
	if err != nil {
		t.Fatalf("ProcessQueue: %v", err)
	}
	if report.Attempted != 1 || report.Succeeded != 1 {
		t.Fatalf("expected one successful item, got %+v", report)
	}

	wantOutput := filepath.Join(cfg.Paths.OutputDir, "widget.mp4")
	if report.Outcomes[0].OutputPath != wantOutput {
		t.Fatalf("output path %q, want %q", report.Outcomes[0].OutputPath, wantOutput)
	}
	if _, err := os.Stat(wantOutput); err != nil {
		t.Fatalf("final video missing: %v", err)
	}

	// The pre-audio intermediate and the renderer hand-off files are cleaned
	// up after success; rendered frames stay.
	for _, gone := range []string{
		filepath.Join(cfg.Paths.OutputDir, "widget_temp.mp4"),
		filepath.Join(cfg.Paths.RenderDir, "widget", "scene_spec.json"),
		filepath.Join(cfg.Paths.RenderDir, "widget", "render_driver.py"),
	} {
		if _, err := os.Stat(gone); !os.IsNotExist(err) {
			t.Fatalf("expected %s to be removed", gone)
		}
	}
	if _, err := os.Stat(filepath.Join(cfg.Paths.RenderDir, "widget", "frame_0001.png")); err != nil {
		t.Fatalf("rendered frames should remain: %v", err)
	}

	file, err := st.GetFile(context.Background(), fileID)
	if err != nil {
		t.Fatalf("GetFile: %v", err)
	}
	if file.Status != store.StatusCompleted {
		t.Fatalf("expected completed file, got %q", file.Status)
	}

	jobs, err := st.ListJobs(context.Background(), fileID)
	if err != nil {
		t.Fatalf("ListJobs: %v", err)
	}
	if len(jobs) != 1 {
		t.Fatalf("expected one job, got %d", len(jobs))
	}
	job := jobs[0]
	if job.Status != store.StatusCompleted {
		t.Fatalf("expected completed job, got %q", job.Status)
	}
	if job.OutputPath != wantOutput {
		t.Fatalf("job output %q, want %q", job.OutputPath, wantOutput)
	}
	if job.DurationSeconds == nil || *job.DurationSeconds < 0 {
		t.Fatalf("expected recorded duration, got %v", job.DurationSeconds)
	}

	if len(renderer.requests) != 1 {
		t.Fatalf("renderer ran %d times, want 1", len(renderer.requests))
	}
	req := renderer.requests[0]
	if req.TotalFrames != cfg.TotalFrames() {
		t.Fatalf("renderer got %d frames, want %d", req.TotalFrames, cfg.TotalFrames())
	}
	if [3]float64(req.ObjectColor) != job.ObjectColor {
		t.Fatalf("renderer color %v does not match job record %v", req.ObjectColor, job.ObjectColor)
	}
}

func TestProcessQueueContinuesPastFailures(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	renderer := &fakeRenderer{failOn: map[string]error{
		"broken": services.Wrap(services.ErrRender, "render", "blender", "exploded", nil),
	}}
	orch := newTestOrchestrator(t, cfg, st, renderer, &fakeCompositor{})

	brokenPath := testsupport.WriteModelFile(t, cfg.Paths.ModelDir, "broken.stl")
	healthyPath := testsupport.WriteModelFile(t, cfg.Paths.ModelDir, "healthy.stl")
	brokenID := testsupport.RegisterFile(t, st, brokenPath)
	healthyID := testsupport.RegisterFile(t, st, healthyPath)

	report, err := orch.ProcessQueue(context.Background(), 0)
	if err != nil {
		t.Fatalf("ProcessQueue: %v", err)
	}
	if report.Attempted != 2 || report.Succeeded != 1 {
		t.Fatalf("expected 1 of 2 to succeed, got %+v", report)
	}

	broken, err := st.GetFile(context.Background(), brokenID)
	if err != nil {
		t.Fatalf("GetFile: %v", err)
	}
	if broken.Status != store.StatusPending {
		t.Fatalf("failed file should stay pending, got %q", broken.Status)
	}

	healthy, err := st.GetFile(context.Background(), healthyID)
	if err != nil {
		t.Fatalf("GetFile: %v", err)
	}
	if healthy.Status != store.StatusCompleted {
		t.Fatalf("healthy file should complete, got %q", healthy.Status)
	}

	jobs, err := st.ListJobs(context.Background(), brokenID)
	if err != nil {
		t.Fatalf("ListJobs: %v", err)
	}
	if len(jobs) != 1 || jobs[0].Status != store.StatusFailed {
		t.Fatalf("expected one failed job for broken file, got %+v", jobs)
	}
	if jobs[0].ErrorMessage == "" {
		t.Fatal("failed job should record an error message")
	}
}

func TestProcessQueueHonorsLimit(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	renderer := &fakeRenderer{}
	orch := newTestOrchestrator(t, cfg, st, renderer, &fakeCompositor{})

	for _, name := range []string{"a.stl", "b.stl", "c.stl"} {
		path := testsupport.WriteModelFile(t, cfg.Paths.ModelDir, name)
		testsupport.RegisterFile(t, st, path)
	}

	report, err := orch.ProcessQueue(context.Background(), 2)
	if err != nil {
		t.Fatalf("ProcessQueue: %v", err)
	}
	if report.Attempted != 2 {
		t.Fatalf("expected 2 attempts with limit, got %d", report.Attempted)
	}
	if report.Stats.PendingFiles != 1 {
		t.Fatalf("expected 1 file left pending, got %d", report.Stats.PendingFiles)
	}
	if len(renderer.requests) != 2 {
		t.Fatalf("renderer ran %d times, want 2", len(renderer.requests))
	}
}

func TestRenderFileRegistersAndProcesses(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	orch := newTestOrchestrator(t, cfg, st, &fakeRenderer{}, &fakeCompositor{})

	path := testsupport.WriteModelFile(t, cfg.Paths.ModelDir, "solo.stl")

	outcome, err := orch.RenderFile(context.Background(), path)
	if err != nil {
		t.Fatalf("RenderFile: %v", err)
	}
	if !outcome.Succeeded() {
		t.Fatalf("expected success, got %v", outcome.Err)
	}
	if outcome.OutputPath != filepath.Join(cfg.Paths.OutputDir, "solo.mp4") {
		t.Fatalf("unexpected output path %q", outcome.OutputPath)
	}

	files, err := st.ListFiles(context.Background())
	if err != nil {
		t.Fatalf("ListFiles: %v", err)
	}
	if len(files) != 1 || files[0].Status != store.StatusCompleted {
		t.Fatalf("expected one completed file, got %+v", files)
	}
}

func TestRenderFileMissingInput(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	orch := newTestOrchestrator(t, cfg, st, &fakeRenderer{}, &fakeCompositor{})

	_, err := orch.RenderFile(context.Background(), filepath.Join(cfg.Paths.ModelDir, "ghost.stl"))
	if err == nil {
		t.Fatal("expected error for missing input")
	}
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not-found error, got %v", err)
	}
}

func TestRenderFileFailureReturnsOutcome(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	renderer := &fakeRenderer{failOn: map[string]error{
		"solo": services.Wrap(services.ErrRender, "render", "blender", "no gpu", nil),
	}}
	orch := newTestOrchestrator(t, cfg, st, renderer, &fakeCompositor{})

	path := testsupport.WriteModelFile(t, cfg.Paths.ModelDir, "solo.stl")

	outcome, err := orch.RenderFile(context.Background(), path)
	if err != nil {
		t.Fatalf("processing failures belong in the outcome, got error %v", err)
	}
	if outcome.Succeeded() {
		t.Fatal("expected failed outcome")
	}
	if !errors.Is(outcome.Err, services.ErrRender) {
		t.Fatalf("expected render error, got %v", outcome.Err)
	}
}

func TestProcessAllScansThenDrains(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	orch := newTestOrchestrator(t, cfg, st, &fakeRenderer{}, &fakeCompositor{})

	testsupport.WriteModelFile(t, cfg.Paths.ModelDir, "first.stl")
	testsupport.WriteModelFile(t, cfg.Paths.ModelDir, "second.stl")

	report, err := orch.ProcessAll(context.Background())
	if err != nil {
		t.Fatalf("ProcessAll: %v", err)
	}
	if report.Attempted != 2 || report.Succeeded != 2 {
		t.Fatalf("expected both discovered files processed, got %+v", report)
	}
	if report.Stats.CompletedFiles != 2 || report.Stats.PendingFiles != 0 {
		t.Fatalf("unexpected stats %+v", report.Stats)
	}
}
