package store

import (
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// Job statuses. Linear pipeline states plus the two terminals.
const (
	StatusPending         = "PENDING"
	StatusValidating      = "VALIDATING"
	StatusTextProcessing  = "TEXT_PROCESSING"
	StatusTTSGeneration   = "TTS_GENERATION"
	StatusAudioProcessing = "AUDIO_PROCESSING"
	StatusVideoMerging    = "VIDEO_MERGING"
	StatusCompleted       = "COMPLETED"
	StatusFailed          = "FAILED"
)

// ErrNotFound is returned when no job exists for the given id.
var ErrNotFound = errors.New("job not found")

// Job is one request to narrate a video, tracked to a terminal outcome.
type Job struct {
	ID             string    `json:"id"`
	Status         string    `json:"status"`
	Progress       int       `json:"progress"`
	InputPath      string    `json:"-"`
	Description    string    `json:"description"`
	TargetLanguage string    `json:"targetLanguage"`
	OutputPath     string    `json:"outputPath,omitempty"`
	ErrorMessage   string    `json:"errorMessage,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// Terminal reports whether the job can no longer change state.
func (j *Job) Terminal() bool {
	return j.Status == StatusCompleted || j.Status == StatusFailed
}

// Store is the durable record of jobs. Writes are serialized with a
// process-level mutex; SQLite handles one writer at a time anyway.
type Store struct {
	db *sql.DB
	mu sync.Mutex
}

func Open(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	createTableSQL := `
	CREATE TABLE IF NOT EXISTS jobs (
		id TEXT PRIMARY KEY,
		status TEXT NOT NULL,
		progress INTEGER NOT NULL DEFAULT 0,
		input_path TEXT NOT NULL,
		description TEXT NOT NULL,
		target_language TEXT NOT NULL,
		output_path TEXT,
		error_message TEXT,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_jobs_created_at ON jobs(created_at);
	CREATE INDEX IF NOT EXISTS idx_jobs_status ON jobs(status);
	`

	if _, err := db.Exec(createTableSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create jobs table: %w", err)
	}

	return &Store{db: db}, nil
}

// Create inserts a new job in PENDING with progress 0.
func (s *Store) Create(inputPath, description, targetLanguage string) (*Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	j := &Job{
		ID:             uuid.New().String(),
		Status:         StatusPending,
		InputPath:      inputPath,
		Description:    description,
		TargetLanguage: targetLanguage,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	_, err := s.db.Exec(`
	INSERT INTO jobs (id, status, progress, input_path, description, target_language, output_path, error_message, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, '', '', ?, ?)`,
		j.ID, j.Status, j.Progress, j.InputPath, j.Description, j.TargetLanguage, j.CreatedAt, j.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to insert job: %w", err)
	}
	return j, nil
}

// Get returns the job for id, or ErrNotFound.
func (s *Store) Get(id string) (*Job, error) {
	row := s.db.QueryRow(`
	SELECT id, status, progress, input_path, description, target_language, output_path, error_message, created_at, updated_at
	FROM jobs WHERE id = ?`, id)
	return scanJob(row)
}

// List returns the most recent jobs, newest first.
func (s *Store) List(limit int) ([]*Job, error) {
	rows, err := s.db.Query(`
	SELECT id, status, progress, input_path, description, target_language, output_path, error_message, created_at, updated_at
	FROM jobs ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*Job
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, j)
	}
	return jobs, rows.Err()
}

// SetStatus records a non-terminal stage transition.
func (s *Store) SetStatus(id, status string, progress int) error {
	return s.update(id, `UPDATE jobs SET status = ?, progress = ?, updated_at = ? WHERE id = ?`,
		status, progress, time.Now().UTC(), id)
}

// Complete marks the job COMPLETED at 100% with its output path.
func (s *Store) Complete(id, outputPath string) error {
	return s.update(id, `UPDATE jobs SET status = ?, progress = 100, output_path = ?, updated_at = ? WHERE id = ?`,
		StatusCompleted, outputPath, time.Now().UTC(), id)
}

// Fail marks the job FAILED at 100% with an error message.
func (s *Store) Fail(id, message string) error {
	return s.update(id, `UPDATE jobs SET status = ?, progress = 100, error_message = ?, updated_at = ? WHERE id = ?`,
		StatusFailed, message, time.Now().UTC(), id)
}

func (s *Store) update(id, query string, args ...interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.Exec(query, args...)
	if err != nil {
		return fmt.Errorf("failed to update job %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanJob(row scanner) (*Job, error) {
	var j Job
	err := row.Scan(&j.ID, &j.Status, &j.Progress, &j.InputPath, &j.Description,
		&j.TargetLanguage, &j.OutputPath, &j.ErrorMessage, &j.CreatedAt, &j.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan job: %w", err)
	}
	return &j, nil
}
