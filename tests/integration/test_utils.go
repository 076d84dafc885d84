package integration

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"dbextract/pkg/checkpoint"
	"dbextract/pkg/extractor"
	"dbextract/pkg/fetch"
	"dbextract/pkg/logger"
	"dbextract/pkg/models"
	"dbextract/pkg/naming"
	"dbextract/pkg/retry"
	"dbextract/pkg/storage"
	"dbextract/pkg/window"
	"dbextract/pkg/writer"
)

// TestHelper wires a real extraction pipeline against a seeded sqlite source
type TestHelper struct {
	t         *testing.T
	OutputDir string
	DB        *sql.DB
	Store     *checkpoint.FileStore
	Files     *storage.Manager
}

// NewTestHelper seeds a sqlite source database and prepares an output directory
func NewTestHelper(t *testing.T) *TestHelper {
	t.Helper()

	db, err := fetch.Open(context.Background(), "sqlite3", t.TempDir()+"/source.db")
	if err != nil {
		t.Fatalf("Failed to open sqlite source: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if _, err := db.Exec(`CREATE TABLE events (ts TEXT NOT NULL, name TEXT NOT NULL, value INTEGER)`); err != nil {
		t.Fatalf("Failed to create table: %v", err)
	}
	seed := [][]interface{}{
		{"2024-01-01 01:30:00", "alpha", 1},
		{"2024-01-01 05:15:00", "beta", 2},
		{"2024-01-01 10:00:00", "gamma", 3},
		{"2024-01-02 02:45:00", "delta", 4},
		{"2024-01-02 08:10:00", "epsilon", 5},
	}
	for _, r := range seed {
		if _, err := db.Exec(`INSERT INTO events (ts, name, value) VALUES (?, ?, ?)`, r...); err != nil {
			t.Fatalf("Failed to insert row: %v", err)
		}
	}

	outputDir := t.TempDir()
	strategy := naming.NewStrategy("data", naming.Daily)
	files, err := storage.NewManager(outputDir, strategy, writer.FormatCSV.Extension())
	if err != nil {
		t.Fatalf("Failed to create storage manager: %v", err)
	}

	store, err := checkpoint.NewFileStore(checkpoint.DefaultPath(outputDir))
	if err != nil {
		t.Fatalf("Failed to create checkpoint store: %v", err)
	}

	return &TestHelper{
		t:         t,
		OutputDir: outputDir,
		DB:        db,
		Store:     store,
		Files:     files,
	}
}

// Fetcher returns a real SQL fetcher over the seeded events table
func (h *TestHelper) Fetcher() fetch.Fetcher {
	return fetch.NewSQLFetcher(h.DB,
		"SELECT ts, name, value FROM events WHERE ts >= '{start}' AND ts < '{end}' ORDER BY ts")
}

// Run executes the pipeline over the given range in 6 hour windows
func (h *TestHelper) Run(fetcher fetch.Fetcher, opts extractor.Options) (*extractor.Result, error) {
	h.t.Helper()

	retrier := retry.NewFetchRetrier(1, time.Millisecond, time.Millisecond, logger.NewNopLogger())
	e := extractor.New(opts, h.Store, fetcher, writer.NewWriter(writer.FormatCSV), h.Files, retrier)
	return e.Run(context.Background())
}

// DefaultOptions covers two days in 6 hour windows with the continue policy
func (h *TestHelper) DefaultOptions() extractor.Options {
	return extractor.Options{
		Start:           time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		End:             time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC),
		Granularity:     6 * time.Hour,
		Policy:          extractor.PolicyContinue,
		ClearOnComplete: true,
	}
}

// ReadAll merges every bucket file in chronological order
func (h *TestHelper) ReadAll() models.Batch {
	h.t.Helper()

	paths, err := h.Files.ListFiles()
	if err != nil {
		h.t.Fatalf("Failed to list files: %v", err)
	}
	if len(paths) == 0 {
		return models.Batch{}
	}

	batch, err := writer.LoadDataset(paths)
	if err != nil {
		h.t.Fatalf("Failed to load dataset: %v", err)
	}
	return batch
}

// failingFetcher fails every fetch of one specific window, delegating the rest
type failingFetcher struct {
	inner  fetch.Fetcher
	failAt time.Time
	err    error
}

func (f *failingFetcher) FetchWindow(ctx context.Context, w window.Window) (models.Batch, error) {
	if w.Start.Equal(f.failAt) {
		return models.Batch{}, f.err
	}
	return f.inner.FetchWindow(ctx, w)
}
