package checkpoint

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"dbextract/pkg/errors"
	"dbextract/pkg/logger"
)

// Checkpoint records how far an extraction run has progressed. While Complete
// is false, LastProcessed is the start of the window being attempted; once
// true, everything up to and including LastProcessed is durably written.
type Checkpoint struct {
	LastProcessed time.Time `json:"last_processed"`
	Complete      bool      `json:"complete"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
	Version       int       `json:"version"`
}

// Store persists extraction progress. Implementations must make MarkAttempt
// durable before returning, since the orchestrator writes output only after
// the attempt marker is on disk.
type Store interface {
	// Load returns the stored checkpoint, or (nil, nil) when none exists.
	// A present but unreadable checkpoint returns a corrupt_state error.
	Load() (*Checkpoint, error)

	// MarkAttempt durably records that the window starting at t is about to
	// be fetched and written.
	MarkAttempt(t time.Time) error

	// MarkComplete durably records that all data up to t is safely
	// persisted, overwriting a prior attempt record.
	MarkComplete(t time.Time) error

	// Clear removes the checkpoint. Clearing an absent checkpoint is a no-op.
	Clear() error

	// Exists reports whether a checkpoint is currently stored
	Exists() bool
}

// FileStore keeps the checkpoint in a single JSON file, replaced atomically
// on every update so a crash never leaves a torn checkpoint behind.
type FileStore struct {
	path   string
	logger logger.Logger
}

// NewFileStore creates a file-backed checkpoint store at the given path
func NewFileStore(path string) (*FileStore, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, errors.NewPersistence("create checkpoint directory", err)
	}

	return &FileStore{
		path:   path,
		logger: logger.GetLogger(),
	}, nil
}

// Load reads the checkpoint from disk
func (s *FileStore) Load() (*Checkpoint, error) {
	file, err := os.Open(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil // No checkpoint exists
		}
		return nil, errors.NewPersistence("open checkpoint file", err)
	}
	defer file.Close()

	var cp Checkpoint
	if err := json.NewDecoder(file).Decode(&cp); err != nil {
		return nil, errors.NewCorruptState("decode checkpoint", err)
	}

	s.logger.DebugWithFields("Checkpoint loaded", map[string]interface{}{
		"last_processed": cp.LastProcessed,
		"complete":       cp.Complete,
		"updated_at":     cp.UpdatedAt,
	})

	return &cp, nil
}

// MarkAttempt records that the window starting at t is about to be processed
func (s *FileStore) MarkAttempt(t time.Time) error {
	return s.write(t, false)
}

// MarkComplete records that all data up to t is safely persisted
func (s *FileStore) MarkComplete(t time.Time) error {
	return s.write(t, true)
}

func (s *FileStore) write(t time.Time, complete bool) error {
	cp := &Checkpoint{
		LastProcessed: t,
		Complete:      complete,
		CreatedAt:     time.Now(),
		UpdatedAt:     time.Now(),
		Version:       1,
	}

	// Preserve the original creation time across updates
	if existing, err := s.Load(); err == nil && existing != nil {
		cp.CreatedAt = existing.CreatedAt
	}

	if err := s.save(cp); err != nil {
		return err
	}

	logger.LogCheckpoint(action(complete), t, complete)
	return nil
}

// save writes the checkpoint to disk atomically
func (s *FileStore) save(cp *Checkpoint) error {
	tempPath := s.path + ".tmp"
	file, err := os.Create(tempPath)
	if err != nil {
		return errors.NewPersistence("create temporary checkpoint file", err)
	}

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(cp); err != nil {
		file.Close()
		os.Remove(tempPath)
		return errors.NewPersistence("encode checkpoint", err)
	}

	// Ensure data is written to disk before the rename makes it visible
	if err := file.Sync(); err != nil {
		file.Close()
		os.Remove(tempPath)
		return errors.NewPersistence("sync checkpoint file", err)
	}

	if err := file.Close(); err != nil {
		os.Remove(tempPath)
		return errors.NewPersistence("close checkpoint file", err)
	}

	if err := os.Rename(tempPath, s.path); err != nil {
		os.Remove(tempPath)
		return errors.NewPersistence("replace checkpoint file", err)
	}

	return nil
}

// Clear removes the checkpoint file
func (s *FileStore) Clear() error {
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return errors.NewPersistence("delete checkpoint", err)
	}

	s.logger.Debug("Checkpoint cleared")
	return nil
}

// Exists checks if a checkpoint file exists
func (s *FileStore) Exists() bool {
	_, err := os.Stat(s.path)
	return err == nil
}

// Path returns the checkpoint file location
func (s *FileStore) Path() string {
	return s.path
}

// Describe returns a summary of the stored checkpoint for display
func Describe(store Store) (map[string]interface{}, error) {
	cp, err := store.Load()
	if err != nil {
		return nil, err
	}
	if cp == nil {
		return nil, nil
	}

	return map[string]interface{}{
		"last_processed": cp.LastProcessed,
		"complete":       cp.Complete,
		"created_at":     cp.CreatedAt,
		"updated_at":     cp.UpdatedAt,
		"age":            time.Since(cp.UpdatedAt),
	}, nil
}

func action(complete bool) string {
	if complete {
		return "mark_complete"
	}
	return "mark_attempt"
}

// DefaultPath returns the checkpoint location inside an output directory
func DefaultPath(outputDir string) string {
	return filepath.Join(outputDir, "checkpoint.json")
}

// SQLitePath returns the SQLite checkpoint location inside an output directory
func SQLitePath(outputDir string) string {
	return filepath.Join(outputDir, "checkpoint.db")
}

var _ Store = (*FileStore)(nil)
