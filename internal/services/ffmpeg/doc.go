// Package ffmpeg wraps the external media transcoder behind a narrow
// compositor contract: frame-sequence assembly, audio muxing with a random
// track pick, and thumbnail extraction. An empty audio directory is not an
// error; the silent video passes through as the final output.
package ffmpeg
