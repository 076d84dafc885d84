package extractor

import (
	"context"
	stderrors "errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"dbextract/pkg/checkpoint"
	"dbextract/pkg/errors"
	"dbextract/pkg/fetch"
	"dbextract/pkg/logger"
	"dbextract/pkg/models"
	"dbextract/pkg/naming"
	"dbextract/pkg/retry"
	"dbextract/pkg/storage"
	"dbextract/pkg/window"
	"dbextract/pkg/writer"
)

func TestMain(m *testing.M) {
	logger.SetLogger(logger.NewNopLogger())
	os.Exit(m.Run())
}

// fetcherFunc adapts a function to the fetch.Fetcher interface
type fetcherFunc func(ctx context.Context, w window.Window) (models.Batch, error)

func (f fetcherFunc) FetchWindow(ctx context.Context, w window.Window) (models.Batch, error) {
	return f(ctx, w)
}

// oneRowPerWindow returns a single row naming the window it came from
func oneRowPerWindow() fetch.Fetcher {
	return fetcherFunc(func(ctx context.Context, w window.Window) (models.Batch, error) {
		return models.Batch{
			Columns: []string{"ts", "value"},
			Rows:    [][]string{{w.Start.Format("2006-01-02 15:04:05"), "1"}},
		}, nil
	})
}

// failingWriter fails the Nth write, then delegates
type failingWriter struct {
	inner  writer.Writer
	failOn int
	calls  int
}

func (f *failingWriter) Write(batch models.Batch, path string) error {
	f.calls++
	if f.calls == f.failOn {
		return errors.NewPersistence("write bucket", stderrors.New("disk full"))
	}
	return f.inner.Write(batch, path)
}

func (f *failingWriter) Extension() string {
	return f.inner.Extension()
}

type harness struct {
	store *checkpoint.FileStore
	files *storage.Manager
	dir   string
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	dir := t.TempDir()

	store, err := checkpoint.NewFileStore(filepath.Join(dir, "checkpoint.json"))
	if err != nil {
		t.Fatalf("Failed to create checkpoint store: %v", err)
	}

	files, err := storage.NewManager(dir, naming.NewStrategy("data", naming.Daily), ".csv")
	if err != nil {
		t.Fatalf("Failed to create storage manager: %v", err)
	}

	return &harness{store: store, files: files, dir: dir}
}

func defaultOpts() Options {
	return Options{
		Start:           time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		End:             time.Date(2024, 1, 1, 3, 0, 0, 0, time.UTC),
		Granularity:     time.Hour,
		Policy:          PolicyContinue,
		AdvanceOnEmpty:  false,
		ClearOnComplete: true,
	}
}

func (h *harness) run(t *testing.T, opts Options, fetcher fetch.Fetcher) (*Result, error) {
	t.Helper()
	retrier := retry.NewFetchRetrier(1, time.Millisecond, time.Millisecond, logger.NewNopLogger())
	e := New(opts, h.store, fetcher, writer.NewWriter(writer.FormatCSV), h.files, retrier)
	return e.Run(context.Background())
}

func (h *harness) readBucket(t *testing.T, name string) models.Batch {
	t.Helper()
	batch, err := writer.ReadFile(filepath.Join(h.dir, name))
	if err != nil {
		t.Fatalf("Failed to read bucket %s: %v", name, err)
	}
	return batch
}

func TestRunFullRange(t *testing.T) {
	h := newHarness(t)

	result, err := h.run(t, defaultOpts(), oneRowPerWindow())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if result.Status != StatusDone {
		t.Errorf("Expected done, got %s", result.Status)
	}
	if result.WindowsProcessed != 3 {
		t.Errorf("Expected 3 windows, got %d", result.WindowsProcessed)
	}
	if result.RowsWritten != 3 {
		t.Errorf("Expected 3 rows written, got %d", result.RowsWritten)
	}

	// All three hourly windows land in the same daily bucket
	batch := h.readBucket(t, "data_2024_01_01.csv")
	if batch.RowCount() != 3 {
		t.Errorf("Expected 3 rows in bucket, got %d", batch.RowCount())
	}

	// Successful run clears the checkpoint by default
	if h.store.Exists() {
		t.Error("Expected checkpoint cleared after successful run")
	}
}

func TestRunWriteFailureLeavesIncompleteCheckpoint(t *testing.T) {
	h := newHarness(t)
	failAt := time.Date(2024, 1, 1, 1, 0, 0, 0, time.UTC)

	// First window writes fine, second window's write fails
	broken := &failingWriter{inner: writer.NewWriter(writer.FormatCSV), failOn: 2}
	retrier := retry.NewFetchRetrier(1, time.Millisecond, time.Millisecond, logger.NewNopLogger())
	e := New(defaultOpts(), h.store, oneRowPerWindow(), broken, h.files, retrier)

	result, err := e.Run(context.Background())
	if err == nil {
		t.Fatal("Expected failure")
	}
	if result.Status != StatusFailed {
		t.Errorf("Expected failed status, got %s", result.Status)
	}
	if result.WindowsProcessed != 1 {
		t.Errorf("Expected 1 window processed before failure, got %d", result.WindowsProcessed)
	}

	cp, loadErr := h.store.Load()
	if loadErr != nil || cp == nil {
		t.Fatalf("Expected checkpoint after failure, got %v, %v", cp, loadErr)
	}
	if cp.Complete {
		t.Error("Expected incomplete checkpoint at the failed window")
	}
	if !cp.LastProcessed.Equal(failAt) {
		t.Errorf("Expected checkpoint at %v, got %v", failAt, cp.LastProcessed)
	}
}

func TestRunConnectivityFailureLeavesCheckpointUnchanged(t *testing.T) {
	h := newHarness(t)
	failAt := time.Date(2024, 1, 1, 1, 0, 0, 0, time.UTC)

	fetcher := fetcherFunc(func(ctx context.Context, w window.Window) (models.Batch, error) {
		if w.Start.Equal(failAt) {
			return models.Batch{}, errors.NewConnectivity("query window", stderrors.New("connection refused"))
		}
		return oneRowPerWindow().FetchWindow(ctx, w)
	})

	if _, err := h.run(t, defaultOpts(), fetcher); err == nil {
		t.Fatal("Expected failure")
	}

	// The failed window never touched the checkpoint: it still records the
	// previous window's confirmed completion
	cp, err := h.store.Load()
	if err != nil || cp == nil {
		t.Fatalf("Expected checkpoint after failure, got %v, %v", cp, err)
	}
	if !cp.Complete {
		t.Error("Expected completion marker from the last written window")
	}
	if !cp.LastProcessed.Equal(failAt) {
		t.Errorf("Expected checkpoint at previous window end %v, got %v", failAt, cp.LastProcessed)
	}
}

func TestRunResumesAfterWriteFailure(t *testing.T) {
	h := newHarness(t)
	failAt := time.Date(2024, 1, 1, 1, 0, 0, 0, time.UTC)

	broken := &failingWriter{inner: writer.NewWriter(writer.FormatCSV), failOn: 2}
	retrier := retry.NewFetchRetrier(1, time.Millisecond, time.Millisecond, logger.NewNopLogger())
	e := New(defaultOpts(), h.store, oneRowPerWindow(), broken, h.files, retrier)
	if _, err := e.Run(context.Background()); err == nil {
		t.Fatal("Expected first run to fail")
	}

	// Second run with a healthy sink redoes exactly the failed window
	result, err := h.run(t, defaultOpts(), oneRowPerWindow())
	if err != nil {
		t.Fatalf("Resume run failed: %v", err)
	}
	if result.Status != StatusDone {
		t.Errorf("Expected done, got %s", result.Status)
	}
	if !result.EffectiveStart.Equal(failAt) {
		t.Errorf("Expected resume at failed window %v, got %v", failAt, result.EffectiveStart)
	}
	if result.WindowsProcessed != 2 {
		t.Errorf("Expected 2 remaining windows, got %d", result.WindowsProcessed)
	}

	// No window was written twice, so exactly one row per window
	batch := h.readBucket(t, "data_2024_01_01.csv")
	if batch.RowCount() != 3 {
		t.Errorf("Expected 3 rows total without duplicates, got %d", batch.RowCount())
	}
}

func TestRunEmptyWindowRevisitedOnResume(t *testing.T) {
	h := newHarness(t)
	emptyAt := time.Date(2024, 1, 1, 1, 0, 0, 0, time.UTC)
	failAt := time.Date(2024, 1, 1, 2, 0, 0, 0, time.UTC)

	// First pass: the middle window has no rows yet, and the source dies
	// before the last window
	flaky := fetcherFunc(func(ctx context.Context, w window.Window) (models.Batch, error) {
		switch {
		case w.Start.Equal(emptyAt):
			return models.Batch{Columns: []string{"ts", "value"}}, nil
		case w.Start.Equal(failAt):
			return models.Batch{}, errors.NewConnectivity("query window", stderrors.New("connection refused"))
		default:
			return oneRowPerWindow().FetchWindow(ctx, w)
		}
	})

	if _, err := h.run(t, defaultOpts(), flaky); err == nil {
		t.Fatal("Expected first run to fail")
	}

	// Neither the empty window nor the failed fetch advanced the checkpoint,
	// so the resume starts right after the only confirmed write
	result, err := h.run(t, defaultOpts(), oneRowPerWindow())
	if err != nil {
		t.Fatalf("Resume run failed: %v", err)
	}

	wantStart := emptyAt.Add(time.Second)
	if !result.EffectiveStart.Equal(wantStart) {
		t.Errorf("Expected resume at %v, got %v", wantStart, result.EffectiveStart)
	}

	// The once-empty window's span is refetched: rows that appeared there
	// between the runs are not lost
	batch := h.readBucket(t, "data_2024_01_01.csv")
	if batch.RowCount() != 3 {
		t.Fatalf("Expected 3 rows after resume, got %d", batch.RowCount())
	}
	found := false
	for _, row := range batch.Rows {
		if row[0] == "2024-01-01 01:00:01" {
			found = true
		}
	}
	if !found {
		t.Errorf("Expected a row from the revisited window, got %v", batch.Rows)
	}
}

func TestRunIdempotentWhenCheckpointRetained(t *testing.T) {
	h := newHarness(t)

	opts := defaultOpts()
	opts.ClearOnComplete = false

	if _, err := h.run(t, opts, oneRowPerWindow()); err != nil {
		t.Fatalf("First run failed: %v", err)
	}

	first := h.readBucket(t, "data_2024_01_01.csv")

	result, err := h.run(t, opts, oneRowPerWindow())
	if err != nil {
		t.Fatalf("Second run failed: %v", err)
	}
	if result.WindowsProcessed != 0 {
		t.Errorf("Expected no windows on rerun, got %d", result.WindowsProcessed)
	}

	second := h.readBucket(t, "data_2024_01_01.csv")
	if second.RowCount() != first.RowCount() {
		t.Errorf("Expected unchanged output, got %d then %d rows", first.RowCount(), second.RowCount())
	}
}

func TestRunEmptyWindows(t *testing.T) {
	empty := fetcherFunc(func(ctx context.Context, w window.Window) (models.Batch, error) {
		return models.Batch{Columns: []string{"ts", "value"}}, nil
	})

	t.Run("HoldBack", func(t *testing.T) {
		h := newHarness(t)
		opts := defaultOpts()
		opts.ClearOnComplete = false

		result, err := h.run(t, opts, empty)
		if err != nil {
			t.Fatalf("Run failed: %v", err)
		}
		if result.WindowsEmpty != 3 {
			t.Errorf("Expected 3 empty windows, got %d", result.WindowsEmpty)
		}
		if result.RowsWritten != 0 {
			t.Errorf("Expected no rows written, got %d", result.RowsWritten)
		}

		files, _ := h.files.ListFiles()
		if len(files) != 0 {
			t.Errorf("Expected no bucket files for empty windows, got %v", files)
		}
	})

	t.Run("AdvanceOnEmpty", func(t *testing.T) {
		h := newHarness(t)
		opts := defaultOpts()
		opts.AdvanceOnEmpty = true
		opts.ClearOnComplete = false

		if _, err := h.run(t, opts, empty); err != nil {
			t.Fatalf("Run failed: %v", err)
		}

		cp, err := h.store.Load()
		if err != nil || cp == nil {
			t.Fatalf("Expected retained checkpoint, got %v, %v", cp, err)
		}
		if !cp.Complete {
			t.Error("Expected complete checkpoint after finalize")
		}
	})
}

func TestRunOverwritePurges(t *testing.T) {
	h := newHarness(t)

	if _, err := h.run(t, defaultOpts(), oneRowPerWindow()); err != nil {
		t.Fatalf("Seed run failed: %v", err)
	}

	// Leave a checkpoint behind so overwrite has something to react to
	if err := h.store.MarkComplete(defaultOpts().End); err != nil {
		t.Fatalf("Failed to seed checkpoint: %v", err)
	}

	opts := defaultOpts()
	opts.Policy = PolicyOverwrite

	result, err := h.run(t, opts, oneRowPerWindow())
	if err != nil {
		t.Fatalf("Overwrite run failed: %v", err)
	}

	if result.FilesPurged != 1 {
		t.Errorf("Expected 1 purged file, got %d", result.FilesPurged)
	}
	if result.WindowsProcessed != 3 {
		t.Errorf("Expected full rerun, got %d windows", result.WindowsProcessed)
	}

	// Fresh output, not seed output plus rerun output
	batch := h.readBucket(t, "data_2024_01_01.csv")
	if batch.RowCount() != 3 {
		t.Errorf("Expected 3 rows after overwrite, got %d", batch.RowCount())
	}
}

func TestRunAbortPolicy(t *testing.T) {
	h := newHarness(t)

	if err := h.store.MarkAttempt(defaultOpts().Start); err != nil {
		t.Fatalf("Failed to seed checkpoint: %v", err)
	}

	opts := defaultOpts()
	opts.Policy = PolicyAbort

	result, err := h.run(t, opts, oneRowPerWindow())
	if err != nil {
		t.Fatalf("Expected clean abort, got %v", err)
	}
	if result.Status != StatusAbortedByPolicy {
		t.Errorf("Expected aborted_by_policy, got %s", result.Status)
	}
	if result.WindowsProcessed != 0 {
		t.Errorf("Expected no windows processed, got %d", result.WindowsProcessed)
	}

	// The checkpoint must survive an aborted run untouched
	cp, _ := h.store.Load()
	if cp == nil || cp.Complete {
		t.Error("Expected original incomplete checkpoint to survive abort")
	}
}

func TestRunRetriesTransientFetchFailures(t *testing.T) {
	h := newHarness(t)

	attempts := 0
	flaky := fetcherFunc(func(ctx context.Context, w window.Window) (models.Batch, error) {
		attempts++
		if attempts == 1 {
			return models.Batch{}, errors.NewConnectivity("query window", stderrors.New("timeout"))
		}
		return oneRowPerWindow().FetchWindow(ctx, w)
	})

	retrier := retry.NewFetchRetrier(3, time.Millisecond, time.Millisecond, logger.NewNopLogger())
	e := New(defaultOpts(), h.store, flaky, writer.NewWriter(writer.FormatCSV), h.files, retrier)

	result, err := e.Run(context.Background())
	if err != nil {
		t.Fatalf("Expected retried success, got %v", err)
	}
	if result.Status != StatusDone {
		t.Errorf("Expected done, got %s", result.Status)
	}
	if attempts != 4 { // 1 failed + 3 windows
		t.Errorf("Expected 4 fetch attempts, got %d", attempts)
	}
}

func TestRunCorruptCheckpointTreatedAsAbsent(t *testing.T) {
	h := newHarness(t)

	if err := os.WriteFile(filepath.Join(h.dir, "checkpoint.json"), []byte("{broken"), 0644); err != nil {
		t.Fatalf("Failed to write corrupt checkpoint: %v", err)
	}

	result, err := h.run(t, defaultOpts(), oneRowPerWindow())
	if err != nil {
		t.Fatalf("Expected run to recover from corrupt checkpoint, got %v", err)
	}
	if result.Status != StatusDone {
		t.Errorf("Expected done, got %s", result.Status)
	}
	if !result.EffectiveStart.Equal(defaultOpts().Start) {
		t.Errorf("Expected start from requested range, got %v", result.EffectiveStart)
	}
}

func TestRunSpansMultipleBuckets(t *testing.T) {
	h := newHarness(t)

	opts := defaultOpts()
	opts.Start = time.Date(2024, 1, 1, 22, 0, 0, 0, time.UTC)
	opts.End = time.Date(2024, 1, 2, 2, 0, 0, 0, time.UTC)

	result, err := h.run(t, opts, oneRowPerWindow())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if result.WindowsProcessed != 4 {
		t.Errorf("Expected 4 windows, got %d", result.WindowsProcessed)
	}

	day1 := h.readBucket(t, "data_2024_01_01.csv")
	day2 := h.readBucket(t, "data_2024_01_02.csv")
	if day1.RowCount() != 2 || day2.RowCount() != 2 {
		t.Errorf("Expected rows split 2/2 across days, got %d/%d", day1.RowCount(), day2.RowCount())
	}
}

func TestRunCancelledContext(t *testing.T) {
	h := newHarness(t)

	ctx, cancel := context.WithCancel(context.Background())

	windows := 0
	fetcher := fetcherFunc(func(fctx context.Context, w window.Window) (models.Batch, error) {
		windows++
		if windows == 1 {
			cancel()
		}
		return oneRowPerWindow().FetchWindow(fctx, w)
	})

	retrier := retry.NewFetchRetrier(1, time.Millisecond, time.Millisecond, logger.NewNopLogger())
	e := New(defaultOpts(), h.store, fetcher, writer.NewWriter(writer.FormatCSV), h.files, retrier)

	result, err := e.Run(ctx)
	if err == nil {
		t.Fatal("Expected cancellation error")
	}
	if result.Status != StatusFailed {
		t.Errorf("Expected failed status, got %s", result.Status)
	}
	if result.WindowsProcessed >= 3 {
		t.Errorf("Expected early stop, processed %d windows", result.WindowsProcessed)
	}
}

func TestRunDegenerateRange(t *testing.T) {
	h := newHarness(t)

	opts := defaultOpts()
	opts.End = opts.Start

	result, err := h.run(t, opts, oneRowPerWindow())
	if err != nil {
		t.Fatalf("Expected empty run to succeed, got %v", err)
	}
	if result.Status != StatusDone {
		t.Errorf("Expected done, got %s", result.Status)
	}
	if result.WindowsProcessed != 0 {
		t.Errorf("Expected no windows, got %d", result.WindowsProcessed)
	}
}

func ExampleResolve() {
	cp := &checkpoint.Checkpoint{
		LastProcessed: time.Date(2024, 1, 1, 5, 0, 0, 0, time.UTC),
		Complete:      true,
	}

	r := Resolve(PolicyContinue, cp, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	fmt.Println(r.EffectiveStart.Format(time.RFC3339))
	// Output: 2024-01-01T05:00:01Z
}
