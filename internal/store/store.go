package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"plinth/internal/config"
	"plinth/internal/services"
)

// Store manages model file and render job persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the job database.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	dbPath := cfg.DatabasePath()
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}

	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

// RegisterFile inserts a model file keyed by filename and returns its id.
// Re-registering an existing filename is a no-op returning the existing id.
// The byte size is recorded at call time; an unreadable path is a storage
// error.
func (s *Store) RegisterFile(ctx context.Context, path string) (int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, services.Wrap(services.ErrStorage, "register", "stat", path, err)
	}

	now := time.Now().UTC().Format(time.RFC3339Nano)
	filename := filepath.Base(path)

	_, err = s.db.ExecContext(
		ctx,
		`INSERT OR IGNORE INTO model_files (filename, filepath, file_size, added_at, status)
         VALUES (?, ?, ?, ?, ?)`,
		filename,
		path,
		info.Size(),
		now,
		StatusPending,
	)
	if err != nil {
		return 0, services.Wrap(services.ErrStorage, "register", "insert", filename, err)
	}

	var id int64
	row := s.db.QueryRowContext(ctx, `SELECT id FROM model_files WHERE filename = ?`, filename)
	if err := row.Scan(&id); err != nil {
		return 0, services.Wrap(services.ErrStorage, "register", "select", filename, err)
	}
	return id, nil
}

// ListPending returns pending model files ordered by discovery time, oldest
// first. A limit of zero or less means unbounded.
func (s *Store) ListPending(ctx context.Context, limit int) ([]ModelFile, error) {
	query := `SELECT ` + fileColumns + ` FROM model_files WHERE status = ? ORDER BY added_at ASC, id ASC`
	args := []any{StatusPending}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, services.Wrap(services.ErrStorage, "queue", "list pending", "", err)
	}
	defer rows.Close()

	var files []ModelFile
	for rows.Next() {
		file, err := scanFile(rows)
		if err != nil {
			return nil, err
		}
		files = append(files, file)
	}
	return files, rows.Err()
}

// ListFiles returns all model files ordered by discovery time.
func (s *Store) ListFiles(ctx context.Context) ([]ModelFile, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+fileColumns+` FROM model_files ORDER BY added_at ASC`)
	if err != nil {
		return nil, services.Wrap(services.ErrStorage, "queue", "list files", "", err)
	}
	defer rows.Close()

	var files []ModelFile
	for rows.Next() {
		file, err := scanFile(rows)
		if err != nil {
			return nil, err
		}
		files = append(files, file)
	}
	return files, rows.Err()
}

// GetFile fetches a model file by identifier. Returns nil when absent.
func (s *Store) GetFile(ctx context.Context, id int64) (*ModelFile, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+fileColumns+` FROM model_files WHERE id = ?`, id)
	file, err := scanFile(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, services.Wrap(services.ErrStorage, "queue", "get file", "", err)
	}
	return &file, nil
}

// CreateJob records a fresh pending render job for a file. Each call creates
// a new job; jobs are never merged or reused across attempts.
func (s *Store) CreateJob(ctx context.Context, fileID int64, objectColor, backgroundColor [3]float64) (int64, error) {
	objectJSON, err := json.Marshal(objectColor)
	if err != nil {
		return 0, services.Wrap(services.ErrStorage, "job", "encode object color", "", err)
	}
	backgroundJSON, err := json.Marshal(backgroundColor)
	if err != nil {
		return 0, services.Wrap(services.ErrStorage, "job", "encode background color", "", err)
	}

	res, err := s.db.ExecContext(
		ctx,
		`INSERT INTO render_jobs (model_file_id, object_color, background_color, status)
         VALUES (?, ?, ?, ?)`,
		fileID,
		string(objectJSON),
		string(backgroundJSON),
		StatusPending,
	)
	if err != nil {
		return 0, services.Wrap(services.ErrStorage, "job", "insert", "", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, services.Wrap(services.ErrStorage, "job", "last insert id", "", err)
	}
	return id, nil
}

// UpdateJob writes a job's terminal outcome. Completing a job cascades the
// owning file's status to completed; failing a job leaves the file pending so
// it stays eligible for reprocessing. An unknown job id is a storage error.
func (s *Store) UpdateJob(ctx context.Context, jobID int64, outcome JobOutcome) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	res, err := s.db.ExecContext(
		ctx,
		`UPDATE render_jobs
         SET status = ?, output_path = ?, rendered_at = ?, render_duration = ?, error_message = ?
         WHERE id = ?`,
		outcome.Status,
		nullableString(outcome.OutputPath),
		now,
		nullableFloat(outcome.DurationSeconds),
		nullableString(outcome.ErrorMessage),
		jobID,
	)
	if err != nil {
		return services.Wrap(services.ErrStorage, "job", "update", "", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return services.Wrap(services.ErrStorage, "job", "rows affected", "", err)
	}
	if affected == 0 {
		return services.Wrap(services.ErrStorage, "job", "update", fmt.Sprintf("unknown job id %d", jobID), nil)
	}

	if outcome.Status == StatusCompleted {
		_, err = s.db.ExecContext(
			ctx,
			`UPDATE model_files SET status = ?
             WHERE id = (SELECT model_file_id FROM render_jobs WHERE id = ?)`,
			StatusCompleted,
			jobID,
		)
		if err != nil {
			return services.Wrap(services.ErrStorage, "job", "cascade file status", "", err)
		}
	}
	return nil
}

// GetJob fetches a render job by identifier. Returns nil when absent.
func (s *Store) GetJob(ctx context.Context, id int64) (*RenderJob, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM render_jobs WHERE id = ?`, id)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, services.Wrap(services.ErrStorage, "job", "get", "", err)
	}
	return &job, nil
}

// ListJobs returns all jobs for a file, oldest first.
func (s *Store) ListJobs(ctx context.Context, fileID int64) ([]RenderJob, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+jobColumns+` FROM render_jobs WHERE model_file_id = ? ORDER BY id ASC`, fileID)
	if err != nil {
		return nil, services.Wrap(services.ErrStorage, "job", "list", "", err)
	}
	defer rows.Close()

	var jobs []RenderJob
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

// ClearCompleted deletes completed model files and their jobs, returning the
// number of files removed. Pending files and their failed jobs are untouched.
func (s *Store) ClearCompleted(ctx context.Context) (int64, error) {
	_, err := s.db.ExecContext(
		ctx,
		`DELETE FROM render_jobs
         WHERE model_file_id IN (SELECT id FROM model_files WHERE status = ?)`,
		StatusCompleted,
	)
	if err != nil {
		return 0, services.Wrap(services.ErrStorage, "queue", "clear completed jobs", "", err)
	}

	res, err := s.db.ExecContext(ctx, `DELETE FROM model_files WHERE status = ?`, StatusCompleted)
	if err != nil {
		return 0, services.Wrap(services.ErrStorage, "queue", "clear completed files", "", err)
	}
	removed, err := res.RowsAffected()
	if err != nil {
		return 0, services.Wrap(services.ErrStorage, "queue", "rows affected", "", err)
	}
	return removed, nil
}

// Statistics aggregates file counts and the mean render duration over
// completed jobs, rounded to two decimals. Zero when no job has completed.
func (s *Store) Statistics(ctx context.Context) (Statistics, error) {
	var stats Statistics

	row := s.db.QueryRowContext(
		ctx,
		`SELECT COUNT(*),
                COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0),
                COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0)
         FROM model_files`,
		StatusCompleted,
		StatusPending,
	)
	if err := row.Scan(&stats.TotalFiles, &stats.CompletedFiles, &stats.PendingFiles); err != nil {
		return Statistics{}, services.Wrap(services.ErrStorage, "stats", "count files", "", err)
	}

	var avg sql.NullFloat64
	row = s.db.QueryRowContext(ctx, `SELECT AVG(render_duration) FROM render_jobs WHERE status = ?`, StatusCompleted)
	if err := row.Scan(&avg); err != nil {
		return Statistics{}, services.Wrap(services.ErrStorage, "stats", "average duration", "", err)
	}
	if avg.Valid {
		stats.AvgRenderSeconds = math.Round(avg.Float64*100) / 100
	}

	return stats, nil
}

const fileColumns = "id, filename, filepath, file_size, added_at, status"

const jobColumns = "id, model_file_id, output_path, object_color, background_color, rendered_at, render_duration, status, error_message"

func scanFile(scanner interface{ Scan(dest ...any) error }) (ModelFile, error) {
	var (
		file     ModelFile
		addedRaw string
		status   string
	)
	if err := scanner.Scan(&file.ID, &file.Filename, &file.Filepath, &file.Size, &addedRaw, &status); err != nil {
		return ModelFile{}, err
	}
	file.Status = Status(status)
	if added, err := parseTimeString(addedRaw); err == nil {
		file.AddedAt = added
	}
	return file, nil
}

func scanJob(scanner interface{ Scan(dest ...any) error }) (RenderJob, error) {
	var (
		job           RenderJob
		outputPath    sql.NullString
		objectRaw     string
		backgroundRaw string
		renderedRaw   sql.NullString
		duration      sql.NullFloat64
		status        string
		errorMessage  sql.NullString
	)
	if err := scanner.Scan(
		&job.ID,
		&job.FileID,
		&outputPath,
		&objectRaw,
		&backgroundRaw,
		&renderedRaw,
		&duration,
		&status,
		&errorMessage,
	); err != nil {
		return RenderJob{}, err
	}

	job.OutputPath = outputPath.String
	job.Status = Status(status)
	job.ErrorMessage = errorMessage.String
	if duration.Valid {
		v := duration.Float64
		job.DurationSeconds = &v
	}
	if renderedRaw.Valid {
		if rendered, err := parseTimeString(renderedRaw.String); err == nil {
			job.RenderedAt = &rendered
		}
	}
	if err := json.Unmarshal([]byte(objectRaw), &job.ObjectColor); err != nil {
		return RenderJob{}, fmt.Errorf("decode object color: %w", err)
	}
	if err := json.Unmarshal([]byte(backgroundRaw), &job.BackgroundColor); err != nil {
		return RenderJob{}, fmt.Errorf("decode background color: %w", err)
	}
	return job, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func nullableFloat(value *float64) any {
	if value == nil {
		return nil
	}
	return *value
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}
