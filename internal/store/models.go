package store

import "time"

// Status represents the lifecycle state of a model file or render job.
type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// ModelFile is a registered input model and its processing status.
//
// Filenames are unique; registering an existing filename returns the
// existing record. Status reflects only the latest job outcome: a completed
// job marks the file completed, a failed job leaves it pending so future
// runs pick it up again.
type ModelFile struct {
	ID       int64
	Filename string
	Filepath string
	Size     int64
	AddedAt  time.Time
	Status   Status
}

// RenderJob is one attempt to produce a video from a ModelFile. Its color
// pair is fixed at creation; its status transitions exactly once from
// pending to completed or failed.
type RenderJob struct {
	ID              int64
	FileID          int64
	OutputPath      string
	ObjectColor     [3]float64
	BackgroundColor [3]float64
	RenderedAt      *time.Time
	DurationSeconds *float64
	Status          Status
	ErrorMessage    string
}

// JobOutcome carries the terminal result written by UpdateJob.
type JobOutcome struct {
	Status          Status
	OutputPath      string
	DurationSeconds *float64
	ErrorMessage    string
}

// Statistics aggregates processing state across all files and jobs.
type Statistics struct {
	TotalFiles       int
	CompletedFiles   int
	PendingFiles     int
	AvgRenderSeconds float64
}
