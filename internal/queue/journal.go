package queue

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"slowjams/internal/media"
)

// ErrPersistence tags journal failures. Durability is best-effort: the
// engine logs these and keeps serving from memory.
var ErrPersistence = errors.New("persistence error")

// Journal persists the task store in SQLite so queue state survives
// restarts. Save writes a full snapshot; Load is called once at engine
// start.
type Journal struct {
	db   *sql.DB
	path string
}

// JournalFileName is the database file created inside the state directory.
const JournalFileName = "queue.db"

// OpenJournal initializes or connects to the journal database in stateDir.
func OpenJournal(stateDir string) (*Journal, error) {
	if err := os.MkdirAll(stateDir, 0o755); err != nil {
		return nil, fmt.Errorf("%w: create state directory: %w", ErrPersistence, err)
	}

	dbPath := filepath.Join(stateDir, JournalFileName)
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("%w: open sqlite db: %w", ErrPersistence, err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("%w: apply pragma %q: %w", ErrPersistence, pragma, execErr)
		}
	}

	journal := &Journal{db: db, path: dbPath}
	if err := journal.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}

	return journal, nil
}

// Path returns the location of the database file.
func (j *Journal) Path() string {
	if j == nil {
		return ""
	}
	return j.path
}

// Close closes the underlying database connection.
func (j *Journal) Close() error {
	if j == nil || j.db == nil {
		return nil
	}
	return j.db.Close()
}

// Save replaces the journal contents with the given snapshot. The caller
// produces the snapshot under the store lock; writing it here happens
// outside that lock so slow disks never stall workers.
func (j *Journal) Save(ctx context.Context, tasks []Snapshot) error {
	tx, err := j.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin save tx: %w", ErrPersistence, err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM tasks`); err != nil {
		return fmt.Errorf("%w: clear tasks: %w", ErrPersistence, err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO tasks (
        id, kind, status, priority, created_at, started_at, finished_at,
        url, input_path, download_format, convert_options_json, process_options_json,
        output_path, progress_percent, current_step, error_message, results_json, updated_at
    ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("%w: prepare insert: %w", ErrPersistence, err)
	}
	defer stmt.Close()

	now := time.Now().UTC().Format(time.RFC3339Nano)
	for _, task := range tasks {
		convertJSON, err := marshalOptions(task.ConvertOptions)
		if err != nil {
			return fmt.Errorf("%w: marshal convert options for %s: %w", ErrPersistence, task.ID, err)
		}
		processJSON, err := marshalOptions(task.ProcessOptions)
		if err != nil {
			return fmt.Errorf("%w: marshal process options for %s: %w", ErrPersistence, task.ID, err)
		}
		resultsJSON, err := marshalResults(task.Results)
		if err != nil {
			return fmt.Errorf("%w: marshal results for %s: %w", ErrPersistence, task.ID, err)
		}

		if _, err := stmt.ExecContext(ctx,
			task.ID,
			string(task.Kind),
			string(task.Status),
			task.Priority,
			task.CreatedAt.UTC().Format(time.RFC3339Nano),
			nullableTime(task.StartedAt),
			nullableTime(task.FinishedAt),
			nullableString(task.URL),
			nullableString(task.InputPath),
			nullableString(task.DownloadFormat),
			convertJSON,
			processJSON,
			nullableString(task.OutputPath),
			task.ProgressPercent,
			nullableString(task.CurrentStep),
			nullableString(task.ErrorMessage),
			resultsJSON,
			now,
		); err != nil {
			return fmt.Errorf("%w: insert task %s: %w", ErrPersistence, task.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit save: %w", ErrPersistence, err)
	}
	return nil
}

const taskColumns = "id, kind, status, priority, created_at, started_at, finished_at, url, input_path, download_format, convert_options_json, process_options_json, output_path, progress_percent, current_step, error_message, results_json"

// Load reads every persisted task ordered by creation time. Unknown fields
// inside the JSON option blobs are ignored, which keeps old binaries able
// to read journals written by newer ones.
func (j *Journal) Load(ctx context.Context) ([]*Task, error) {
	rows, err := j.db.QueryContext(ctx, `SELECT `+taskColumns+` FROM tasks ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("%w: query tasks: %w", ErrPersistence, err)
	}
	defer rows.Close()

	var tasks []*Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: scan task: %w", ErrPersistence, err)
		}
		tasks = append(tasks, task)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate tasks: %w", ErrPersistence, err)
	}
	return tasks, nil
}

func scanTask(scanner interface{ Scan(dest ...any) error }) (*Task, error) {
	var (
		id              string
		kindStr         string
		statusStr       string
		priority        int
		createdRaw      string
		startedRaw      sql.NullString
		finishedRaw     sql.NullString
		url             sql.NullString
		inputPath       sql.NullString
		downloadFormat  sql.NullString
		convertJSON     sql.NullString
		processJSON     sql.NullString
		outputPath      sql.NullString
		progressPercent sql.NullFloat64
		currentStep     sql.NullString
		errorMessage    sql.NullString
		resultsJSON     sql.NullString
	)

	if err := scanner.Scan(
		&id,
		&kindStr,
		&statusStr,
		&priority,
		&createdRaw,
		&startedRaw,
		&finishedRaw,
		&url,
		&inputPath,
		&downloadFormat,
		&convertJSON,
		&processJSON,
		&outputPath,
		&progressPercent,
		&currentStep,
		&errorMessage,
		&resultsJSON,
	); err != nil {
		return nil, err
	}

	task := &Task{
		ID:              id,
		Kind:            Kind(kindStr),
		Status:          Status(statusStr),
		Priority:        priority,
		URL:             url.String,
		InputPath:       inputPath.String,
		DownloadFormat:  downloadFormat.String,
		OutputPath:      outputPath.String,
		ProgressPercent: progressPercent.Float64,
		CurrentStep:     currentStep.String,
		ErrorMessage:    errorMessage.String,
	}

	if created, err := parseTimeString(createdRaw); err == nil {
		task.CreatedAt = created
	}
	if startedRaw.Valid {
		if started, err := parseTimeString(startedRaw.String); err == nil {
			task.StartedAt = &started
		}
	}
	if finishedRaw.Valid {
		if finished, err := parseTimeString(finishedRaw.String); err == nil {
			task.FinishedAt = &finished
		}
	}

	if convertJSON.Valid && convertJSON.String != "" {
		opts := new(media.ConvertOptions)
		if err := json.Unmarshal([]byte(convertJSON.String), opts); err == nil {
			task.ConvertOptions = opts
		}
	}
	if processJSON.Valid && processJSON.String != "" {
		opts := new(media.ProcessOptions)
		if err := json.Unmarshal([]byte(processJSON.String), opts); err == nil {
			task.ProcessOptions = opts
		}
	}
	if resultsJSON.Valid && resultsJSON.String != "" {
		results := make(map[string]string)
		if err := json.Unmarshal([]byte(resultsJSON.String), &results); err == nil && len(results) > 0 {
			task.Results = results
		}
	}

	return task, nil
}

func marshalOptions(value any) (any, error) {
	switch v := value.(type) {
	case *media.ConvertOptions:
		if v == nil {
			return nil, nil
		}
	case *media.ProcessOptions:
		if v == nil {
			return nil, nil
		}
	case nil:
		return nil, nil
	}
	data, err := json.Marshal(value)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

func marshalResults(results map[string]string) (any, error) {
	if len(results) == 0 {
		return nil, nil
	}
	data, err := json.Marshal(results)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func nullableTime(value *time.Time) any {
	if value == nil {
		return nil
	}
	return value.UTC().Format(time.RFC3339Nano)
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
