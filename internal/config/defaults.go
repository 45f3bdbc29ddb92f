package config

const (
	defaultModelDir  = "~/.local/share/plinth/models"
	defaultRenderDir = "~/.local/share/plinth/renders"
	defaultOutputDir = "~/.local/share/plinth/output"
	defaultAudioDir  = "~/.local/share/plinth/audio-assets"
	defaultLogDir    = "~/.local/share/plinth/logs"

	defaultVideoDurationSeconds = 75
	defaultVideoFPS             = 10
	defaultVideoWidth           = 640
	defaultVideoHeight          = 740 // portrait framing for shorts
	defaultVideoCRF             = 18
	defaultVideoPreset          = "medium"

	defaultRenderBinary         = "blender"
	defaultRenderSamples        = 128
	defaultRenderTimeoutSeconds = 3600

	defaultLogFormat = "console"
	defaultLogLevel  = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			ModelDir:  defaultModelDir,
			RenderDir: defaultRenderDir,
			OutputDir: defaultOutputDir,
			AudioDir:  defaultAudioDir,
			LogDir:    defaultLogDir,
		},
		Video: Video{
			DurationSeconds: defaultVideoDurationSeconds,
			FPS:             defaultVideoFPS,
			Width:           defaultVideoWidth,
			Height:          defaultVideoHeight,
			CRF:             defaultVideoCRF,
			Preset:          defaultVideoPreset,
		},
		Render: Render{
			Binary:         defaultRenderBinary,
			Samples:        defaultRenderSamples,
			UseGPU:         true,
			TimeoutSeconds: defaultRenderTimeoutSeconds,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
