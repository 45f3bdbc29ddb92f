package blender

import (
	"context"

	"plinth/internal/orbit"
	"plinth/internal/palette"
)

// Request carries everything the renderer needs for one frame sequence.
type Request struct {
	SourcePath      string           `json:"source_path"`
	FramesDir       string           `json:"frames_dir"`
	ObjectColor     palette.RGB      `json:"object_color"`
	BackgroundColor palette.RGB      `json:"background_color"`
	Keyframes       []orbit.Keyframe `json:"keyframes"`
	TotalFrames     int              `json:"total_frames"`
	FPS             int              `json:"fps"`
	Width           int              `json:"width"`
	Height          int              `json:"height"`
	Samples         int              `json:"samples"`
	UseGPU          bool             `json:"use_gpu"`
}

// Result reports the artifacts a successful render produced. SpecPath and
// DriverPath are temporary files the caller removes once the job completes.
type Result struct {
	FramesDir  string
	FrameCount int
	SpecPath   string
	DriverPath string
}

// Renderer defines the behaviour required by the pipeline.
type Renderer interface {
	Render(ctx context.Context, req Request) (Result, error)
}
