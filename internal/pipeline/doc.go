// Package pipeline drives model files through the render lifecycle.
//
// Processing is strictly sequential: one file moves through rendering,
// compositing, and audio muxing to completion or failure before the next
// begins. Failures are captured per item and never abort the batch. Mutating
// runs hold a process-level file lock so only one orchestrator writes to the
// store at a time.
package pipeline
