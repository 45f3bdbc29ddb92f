// Package testsupport provides shared helpers for plinth tests.
package testsupport

import (
	"path/filepath"
	"testing"

	"plinth/internal/config"
)

// NewConfig produces a config seeded with unique temp directories per test.
func NewConfig(t testing.TB) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.ModelDir = filepath.Join(base, "models")
	cfg.Paths.RenderDir = filepath.Join(base, "renders")
	cfg.Paths.OutputDir = filepath.Join(base, "output")
	cfg.Paths.AudioDir = filepath.Join(base, "audio-assets")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	// Keep tests quick: tiny clip, tiny frames.
	cfg.Video.DurationSeconds = 3
	cfg.Video.FPS = 2
	cfg.Render.TimeoutSeconds = 30

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	return &cfg
}
