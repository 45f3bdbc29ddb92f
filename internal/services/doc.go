// Package services holds the shared error taxonomy and context annotation
// helpers used across the pipeline and its external tool clients.
//
// Errors are classified with sentinel markers wrapped via Wrap so callers can
// branch on errors.Is without parsing message text. Subpackages wrap the
// external collaborators (blender, ffmpeg) behind narrow interfaces.
package services
