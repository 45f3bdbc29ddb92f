package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/gofrs/flock"

	"plinth/internal/config"
	"plinth/internal/logging"
	"plinth/internal/palette"
	"plinth/internal/services"
	"plinth/internal/services/blender"
	"plinth/internal/services/ffmpeg"
	"plinth/internal/store"
)

// modelExtension is the input format the scanner registers.
const modelExtension = ".stl"

// Orchestrator coordinates discovery, palette assignment, rendering, and
// composition for every model file in the store.
type Orchestrator struct {
	cfg        *config.Config
	store      *store.Store
	palettes   *palette.Generator
	renderer   blender.Renderer
	compositor ffmpeg.Compositor
	logger     *slog.Logger
	lock       *flock.Flock
}

// Option configures the orchestrator.
type Option func(*Orchestrator)

// WithPaletteGenerator injects a palette generator (seeded in tests).
func WithPaletteGenerator(gen *palette.Generator) Option {
	return func(o *Orchestrator) {
		if gen != nil {
			o.palettes = gen
		}
	}
}

// WithLogger injects a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// New constructs an orchestrator over the given store and collaborators.
func New(cfg *config.Config, st *store.Store, renderer blender.Renderer, compositor ffmpeg.Compositor, opts ...Option) (*Orchestrator, error) {
	if cfg == nil || st == nil || renderer == nil || compositor == nil {
		return nil, errors.New("orchestrator requires config, store, renderer, and compositor")
	}
	o := &Orchestrator{
		cfg:        cfg,
		store:      st,
		palettes:   palette.New(),
		renderer:   renderer,
		compositor: compositor,
		logger:     logging.Discard(),
		lock:       flock.New(filepath.Join(cfg.Paths.LogDir, "plinth.lock")),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o, nil
}

// ScanReport summarizes one discovery pass.
type ScanReport struct {
	Found int
	New   int
}

// Scan walks the model directory tree and registers every model file.
// Registration is idempotent; files seen before keep their existing record.
func (o *Orchestrator) Scan(ctx context.Context) (ScanReport, error) {
	modelDir := o.cfg.Paths.ModelDir
	o.logger.Info("scanning for model files", "dir", modelDir)

	before, err := o.store.Statistics(ctx)
	if err != nil {
		return ScanReport{}, err
	}

	var found []string
	err = filepath.WalkDir(modelDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if strings.EqualFold(filepath.Ext(path), modelExtension) {
			found = append(found, path)
		}
		return nil
	})
	if err != nil {
		return ScanReport{}, fmt.Errorf("scan model directory: %w", err)
	}

	for _, path := range found {
		if _, err := o.store.RegisterFile(ctx, path); err != nil {
			return ScanReport{}, err
		}
	}

	after, err := o.store.Statistics(ctx)
	if err != nil {
		return ScanReport{}, err
	}

	report := ScanReport{Found: len(found), New: after.TotalFiles - before.TotalFiles}
	o.logger.Info("scan complete", "found", report.Found, "new", report.New)
	return report, nil
}

// ProcessQueue drains pending files oldest first, bounded by limit when
// positive. One item's failure never aborts the batch.
func (o *Orchestrator) ProcessQueue(ctx context.Context, limit int) (BatchReport, error) {
	release, err := o.acquireLock()
	if err != nil {
		return BatchReport{}, err
	}
	defer release()

	pending, err := o.store.ListPending(ctx, limit)
	if err != nil {
		return BatchReport{}, err
	}

	report := BatchReport{}
	if len(pending) == 0 {
		o.logger.Info("no pending files to process")
		return o.finishBatch(ctx, report)
	}

	o.logger.Info("processing queue", "count", len(pending))
	for _, file := range pending {
		outcome := o.processItem(ctx, file)
		report.Outcomes = append(report.Outcomes, outcome)
		report.Attempted++
		if outcome.Succeeded() {
			report.Succeeded++
		}
	}

	o.logger.Info("batch complete", "succeeded", report.Succeeded, "attempted", report.Attempted)
	return o.finishBatch(ctx, report)
}

// RenderFile processes exactly one model file, registering it if needed.
// A missing input is reported as a not-found error; processing failures are
// captured in the returned outcome rather than an error.
func (o *Orchestrator) RenderFile(ctx context.Context, path string) (*Outcome, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, services.Wrap(services.ErrNotFound, "render", "stat input", path, err)
	}

	release, err := o.acquireLock()
	if err != nil {
		return nil, err
	}
	defer release()

	fileID, err := o.store.RegisterFile(ctx, path)
	if err != nil {
		return nil, err
	}
	file, err := o.store.GetFile(ctx, fileID)
	if err != nil {
		return nil, err
	}
	if file == nil {
		return nil, services.Wrap(services.ErrStorage, "render", "load file", fmt.Sprintf("id %d", fileID), nil)
	}

	outcome := o.processItem(ctx, *file)
	return &outcome, nil
}

// ProcessAll scans the model directory and then drains the whole queue.
func (o *Orchestrator) ProcessAll(ctx context.Context) (BatchReport, error) {
	if _, err := o.Scan(ctx); err != nil {
		return BatchReport{}, err
	}
	return o.ProcessQueue(ctx, 0)
}

func (o *Orchestrator) finishBatch(ctx context.Context, report BatchReport) (BatchReport, error) {
	stats, err := o.store.Statistics(ctx)
	if err != nil {
		return report, err
	}
	report.Stats = stats
	o.logger.Info("queue statistics",
		"total", stats.TotalFiles,
		"completed", stats.CompletedFiles,
		"pending", stats.PendingFiles,
		"avg_render_seconds", stats.AvgRenderSeconds,
	)
	return report, nil
}

func (o *Orchestrator) acquireLock() (func(), error) {
	ok, err := o.lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire pipeline lock: %w", err)
	}
	if !ok {
		return nil, errors.New("another plinth process is already running")
	}
	return func() {
		if err := o.lock.Unlock(); err != nil {
			o.logger.Warn("failed to release pipeline lock", "error", err)
		}
	}, nil
}
