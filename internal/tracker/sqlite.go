package tracker

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // Pure Go driver

	"video-dubber/models"
)

const sqliteSchemaVersion = 1

// SqliteStore persists jobs as JSON rows so they survive restarts.
type SqliteStore struct {
	db *sql.DB
}

// OpenSqliteStore opens (or creates) the database at path with WAL enabled.
func OpenSqliteStore(path string) (*SqliteStore, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(%d)&_pragma=synchronous(NORMAL)",
		path, (5 * time.Second).Milliseconds())

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open failed: %w", err)
	}
	// A single connection serializes read-modify-write transactions.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: ping failed: %w", err)
	}

	s := &SqliteStore{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("job store: migration failed: %w", err)
	}
	return s, nil
}

func (s *SqliteStore) migrate() error {
	var current int
	if err := s.db.QueryRow("PRAGMA user_version").Scan(&current); err != nil {
		return err
	}
	if current >= sqliteSchemaVersion {
		return nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	schema := `
	CREATE TABLE IF NOT EXISTS jobs (
		id TEXT PRIMARY KEY,
		data TEXT NOT NULL,
		updated_at INTEGER NOT NULL
	);
	`
	if _, err := tx.Exec(schema); err != nil {
		return err
	}
	if _, err := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", sqliteSchemaVersion)); err != nil {
		return err
	}
	return tx.Commit()
}

type sqlExecer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func upsertJob(ctx context.Context, ex sqlExecer, job *models.Job) error {
	buf, err := json.Marshal(job)
	if err != nil {
		return err
	}
	_, err = ex.ExecContext(ctx, `
	INSERT INTO jobs (id, data, updated_at) VALUES (?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at
	`, job.ID, string(buf), time.Now().UnixMilli())
	return err
}

func scanJob(row *sql.Row) (*models.Job, error) {
	var data string
	if err := row.Scan(&data); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.ErrJobNotFound
		}
		return nil, err
	}
	var job models.Job
	if err := json.Unmarshal([]byte(data), &job); err != nil {
		return nil, fmt.Errorf("decode job: %w", err)
	}
	return &job, nil
}

func (s *SqliteStore) Put(ctx context.Context, job *models.Job) error {
	return upsertJob(ctx, s.db, job)
}

func (s *SqliteStore) Get(ctx context.Context, id string) (*models.Job, error) {
	return scanJob(s.db.QueryRowContext(ctx, `SELECT data FROM jobs WHERE id = ?`, id))
}

func (s *SqliteStore) Update(ctx context.Context, id string, fn func(*models.Job) error) (*models.Job, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	job, err := scanJob(tx.QueryRowContext(ctx, `SELECT data FROM jobs WHERE id = ?`, id))
	if err != nil {
		return nil, err
	}
	if err := fn(job); err != nil {
		return nil, err
	}
	if err := upsertJob(ctx, tx, job); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return job, nil
}

func (s *SqliteStore) Delete(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM jobs WHERE id = ?`, id)
	return err
}

func (s *SqliteStore) List(ctx context.Context) ([]*models.Job, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT data FROM jobs ORDER BY updated_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*models.Job
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}
		var job models.Job
		if err := json.Unmarshal([]byte(data), &job); err != nil {
			return nil, fmt.Errorf("decode job: %w", err)
		}
		out = append(out, &job)
	}
	return out, rows.Err()
}

func (s *SqliteStore) Close() error {
	return s.db.Close()
}
