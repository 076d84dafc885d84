package checkpoint

import (
	"database/sql"
	"time"

	"dbextract/pkg/errors"
	"dbextract/pkg/logger"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteStore keeps the checkpoint in a single-row SQLite table. SQLite's
// transactional writes give the same durability as the atomic file replace,
// and the backend survives output-directory cleanups.
type SQLiteStore struct {
	db     *sql.DB
	logger logger.Logger
}

// NewSQLiteStore opens (or creates) a SQLite-backed checkpoint store at path
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, errors.NewPersistence("open checkpoint database", err)
	}

	s := &SQLiteStore{
		db:     db,
		logger: logger.GetLogger(),
	}

	if err := s.createTable(); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

func (s *SQLiteStore) createTable() error {
	query := `
		CREATE TABLE IF NOT EXISTS checkpoint (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			last_processed INTEGER NOT NULL,
			complete INTEGER NOT NULL,
			created_at INTEGER NOT NULL,
			updated_at INTEGER NOT NULL,
			version INTEGER NOT NULL DEFAULT 1
		);
	`

	if _, err := s.db.Exec(query); err != nil {
		return errors.NewPersistence("create checkpoint table", err)
	}
	return nil
}

// Load returns the stored checkpoint, or (nil, nil) when the row is absent
func (s *SQLiteStore) Load() (*Checkpoint, error) {
	query := `
		SELECT last_processed, complete, created_at, updated_at, version
		FROM checkpoint
		WHERE id = 1
	`

	var lastProcessed, createdAt, updatedAt int64
	var complete int
	var cp Checkpoint

	err := s.db.QueryRow(query).Scan(&lastProcessed, &complete, &createdAt, &updatedAt, &cp.Version)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, errors.NewCorruptState("read checkpoint row", err)
	}

	cp.LastProcessed = time.Unix(lastProcessed, 0).UTC()
	cp.Complete = complete != 0
	cp.CreatedAt = time.Unix(createdAt, 0).UTC()
	cp.UpdatedAt = time.Unix(updatedAt, 0).UTC()

	return &cp, nil
}

// MarkAttempt records that the window starting at t is about to be processed
func (s *SQLiteStore) MarkAttempt(t time.Time) error {
	return s.write(t, false)
}

// MarkComplete records that all data up to t is safely persisted
func (s *SQLiteStore) MarkComplete(t time.Time) error {
	return s.write(t, true)
}

func (s *SQLiteStore) write(t time.Time, complete bool) error {
	now := time.Now().Unix()

	query := `
		INSERT INTO checkpoint (id, last_processed, complete, created_at, updated_at, version)
		VALUES (1, ?, ?, ?, ?, 1)
		ON CONFLICT (id) DO UPDATE SET
			last_processed = excluded.last_processed,
			complete = excluded.complete,
			updated_at = excluded.updated_at
	`

	completeInt := 0
	if complete {
		completeInt = 1
	}

	if _, err := s.db.Exec(query, t.Unix(), completeInt, now, now); err != nil {
		return errors.NewPersistence("write checkpoint row", err)
	}

	logger.LogCheckpoint(action(complete), t, complete)
	return nil
}

// Clear removes the checkpoint row
func (s *SQLiteStore) Clear() error {
	if _, err := s.db.Exec(`DELETE FROM checkpoint WHERE id = 1`); err != nil {
		return errors.NewPersistence("delete checkpoint row", err)
	}

	s.logger.Debug("Checkpoint cleared")
	return nil
}

// Exists reports whether a checkpoint row is present
func (s *SQLiteStore) Exists() bool {
	var one int
	err := s.db.QueryRow(`SELECT 1 FROM checkpoint WHERE id = 1`).Scan(&one)
	return err == nil
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

var _ Store = (*SQLiteStore)(nil)
