package pipeline

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"plinth/internal/orbit"
	"plinth/internal/palette"
	"plinth/internal/services"
	"plinth/internal/services/blender"
	"plinth/internal/services/ffmpeg"
	"plinth/internal/store"
	"plinth/internal/textutil"
)

// Outcome is the per-item result of one render attempt.
type Outcome struct {
	File       store.ModelFile
	JobID      int64
	OutputPath string
	Duration   time.Duration
	Err        error
}

// Succeeded reports whether the item reached a completed job.
func (o Outcome) Succeeded() bool {
	return o.Err == nil
}

// BatchReport aggregates the outcomes of one queue drain.
type BatchReport struct {
	Attempted int
	Succeeded int
	Outcomes  []Outcome
	Stats     store.Statistics
}

// processItem drives one file through the full lifecycle:
// palette → job record → rendering → compositing → audio muxing → completed,
// with any stage error absorbing the job into failed. The file's own status
// only changes on success, so failed files stay eligible for reprocessing.
func (o *Orchestrator) processItem(ctx context.Context, file store.ModelFile) Outcome {
	start := time.Now()
	outcome := Outcome{File: file}

	requestID := uuid.NewString()
	ctx = services.WithRequestID(services.WithFileID(ctx, file.ID), requestID)
	logger := o.logger.With("request_id", requestID, "file_id", file.ID, "model", textutil.DisplayTitle(file.Filepath))
	logger.Info("processing model", "path", file.Filepath)

	pal := o.palettes.Generate()
	logger.Info("palette assigned", "object", pal.ObjectHex(), "background", pal.BackgroundHex())

	jobID, err := o.store.CreateJob(ctx, file.ID, [3]float64(pal.Object), [3]float64(pal.Background))
	if err != nil {
		logger.Error("create job failed", "error", err)
		outcome.Err = err
		return outcome
	}
	outcome.JobID = jobID
	ctx = services.WithJobID(ctx, jobID)

	stem := strings.TrimSuffix(file.Filename, filepath.Ext(file.Filename))
	finalPath, renderResult, err := o.runJob(ctx, logger, file, pal, stem)
	if err != nil {
		logger.Error("render job failed", "error", err)
		o.failJob(ctx, logger, jobID, err)
		outcome.Err = err
		return outcome
	}

	elapsed := time.Since(start)
	seconds := elapsed.Seconds()
	if err := o.store.UpdateJob(ctx, jobID, store.JobOutcome{
		Status:          store.StatusCompleted,
		OutputPath:      finalPath,
		DurationSeconds: &seconds,
	}); err != nil {
		logger.Error("persist job completion failed", "error", err)
		outcome.Err = err
		return outcome
	}

	o.cleanupArtifacts(logger, stem, renderResult)

	outcome.OutputPath = finalPath
	outcome.Duration = elapsed
	logger.Info("model completed", "output", finalPath, "duration", elapsed.Round(time.Millisecond))
	return outcome
}

// runJob executes the rendering, compositing, and muxing stages and returns
// the final output path.
func (o *Orchestrator) runJob(ctx context.Context, logger *slog.Logger, file store.ModelFile, pal palette.Palette, stem string) (string, blender.Result, error) {
	keyframes, err := orbit.Plan(o.cfg.TotalFrames())
	if err != nil {
		return "", blender.Result{}, services.Wrap(services.ErrRender, "render", "plan orbit", "", err)
	}

	framesDir := filepath.Join(o.cfg.Paths.RenderDir, stem)

	stageCtx := services.WithStage(ctx, "rendering")
	logger.Info("rendering frames", "frames_dir", framesDir, "total_frames", o.cfg.TotalFrames())
	renderResult, err := o.renderer.Render(stageCtx, blender.Request{
		SourcePath:      file.Filepath,
		FramesDir:       framesDir,
		ObjectColor:     pal.Object,
		BackgroundColor: pal.Background,
		Keyframes:       keyframes,
		TotalFrames:     o.cfg.TotalFrames(),
		FPS:             o.cfg.Video.FPS,
		Width:           o.cfg.Video.Width,
		Height:          o.cfg.Video.Height,
		Samples:         o.cfg.Render.Samples,
		UseGPU:          o.cfg.Render.UseGPU,
	})
	if err != nil {
		return "", renderResult, err
	}
	logger.Info("render complete", "frames", renderResult.FrameCount)

	stageCtx = services.WithStage(ctx, "compositing")
	tempVideo := filepath.Join(o.cfg.Paths.OutputDir, stem+"_temp.mp4")
	logger.Info("creating video from frames", "output", tempVideo)
	if _, err := o.compositor.FramesToVideo(stageCtx, framesDir, tempVideo, ffmpeg.VideoOptions{
		Width:  o.cfg.Video.Width,
		Height: o.cfg.Video.Height,
		FPS:    o.cfg.Video.FPS,
		CRF:    o.cfg.Video.CRF,
		Preset: o.cfg.Video.Preset,
	}); err != nil {
		return "", renderResult, err
	}

	stageCtx = services.WithStage(ctx, "audio-muxing")
	finalPath := filepath.Join(o.cfg.Paths.OutputDir, stem+".mp4")
	logger.Info("adding audio", "output", finalPath)
	if _, err := o.compositor.MuxAudio(stageCtx, tempVideo, finalPath, o.cfg.Paths.AudioDir); err != nil {
		return "", renderResult, err
	}

	return finalPath, renderResult, nil
}

func (o *Orchestrator) failJob(ctx context.Context, logger *slog.Logger, jobID int64, cause error) {
	outcome := store.JobOutcome{
		Status:       store.StatusFailed,
		ErrorMessage: cause.Error(),
	}
	if err := o.store.UpdateJob(ctx, jobID, outcome); err != nil {
		logger.Warn("persist job failure failed", "error", err)
	}
}

// cleanupArtifacts removes the intermediate pre-audio video and the scene
// spec handed to the renderer. Rendered frames stay on disk; failures keep
// everything for debugging.
func (o *Orchestrator) cleanupArtifacts(logger *slog.Logger, stem string, renderResult blender.Result) {
	targets := []string{
		filepath.Join(o.cfg.Paths.OutputDir, stem+"_temp.mp4"),
		renderResult.SpecPath,
		renderResult.DriverPath,
	}
	for _, target := range targets {
		if target == "" {
			continue
		}
		if err := os.Remove(target); err != nil && !os.IsNotExist(err) {
			logger.Warn("cleanup failed", "path", target, "error", err)
		}
	}
}
