package extractor

import (
	"context"
	stderrors "errors"
	"time"

	"dbextract/pkg/checkpoint"
	"dbextract/pkg/errors"
	"dbextract/pkg/fetch"
	"dbextract/pkg/logger"
	"dbextract/pkg/models"
	"dbextract/pkg/retry"
	"dbextract/pkg/storage"
	"dbextract/pkg/window"
	"dbextract/pkg/writer"
)

// Status is the terminal state of an extraction run
type Status string

const (
	// StatusDone means the full range was extracted
	StatusDone Status = "done"
	// StatusAbortedByPolicy means the abort resume policy stopped the run
	StatusAbortedByPolicy Status = "aborted_by_policy"
	// StatusFailed means a window could not be fetched or written
	StatusFailed Status = "failed"
)

// Result summarizes a finished extraction run
type Result struct {
	Status           Status
	EffectiveStart   time.Time
	WindowsProcessed int
	WindowsEmpty     int
	RowsWritten      int
	FilesPurged      int
	Duration         time.Duration
}

// Options carries the policies that shape a run beyond the wiring itself
type Options struct {
	// Start and End bound the requested extraction range
	Start time.Time
	End   time.Time
	// Granularity is the fetch window size
	Granularity time.Duration
	// Policy decides how an existing checkpoint is treated
	Policy Policy
	// AdvanceOnEmpty marks empty windows complete so resumes skip them
	AdvanceOnEmpty bool
	// ClearOnComplete removes the checkpoint after a successful run
	ClearOnComplete bool
}

// Extractor drives the extraction loop: generate windows, fetch each one,
// write its rows into the period bucket, and checkpoint around every step.
type Extractor struct {
	opts    Options
	store   checkpoint.Store
	fetcher fetch.Fetcher
	writer  writer.Writer
	files   *storage.Manager
	retrier *retry.Retrier
	logger  logger.Logger
}

// New creates an extractor from its wired dependencies
func New(opts Options, store checkpoint.Store, fetcher fetch.Fetcher, w writer.Writer, files *storage.Manager, retrier *retry.Retrier) *Extractor {
	return &Extractor{
		opts:    opts,
		store:   store,
		fetcher: fetcher,
		writer:  w,
		files:   files,
		retrier: retrier,
		logger:  logger.GetLogger(),
	}
}

// Run executes the extraction. The returned Result always describes the
// terminal state; the error is non-nil only for StatusFailed.
//
// The checkpoint protocol makes interruption safe at any instant: the
// attempt marker is durable before a window's output is touched, and the
// complete marker only lands after the bucket file has been atomically
// replaced. A crash between those two leaves an incomplete checkpoint, and
// the next run redoes exactly that window.
func (e *Extractor) Run(ctx context.Context) (*Result, error) {
	started := time.Now()
	result := &Result{}

	resolution, err := e.resolveResume()
	if err != nil {
		result.Status = StatusFailed
		result.Duration = time.Since(started)
		return result, err
	}

	logger.LogResume(resolution.Reason, resolution.EffectiveStart)

	if resolution.Abort {
		result.Status = StatusAbortedByPolicy
		result.Duration = time.Since(started)
		e.logger.Warn("Extraction aborted: checkpoint present and policy is abort")
		return result, nil
	}

	if resolution.Purge {
		purged, err := e.files.Purge()
		if err != nil {
			result.Status = StatusFailed
			result.Duration = time.Since(started)
			return result, err
		}
		result.FilesPurged = purged

		if err := e.store.Clear(); err != nil {
			result.Status = StatusFailed
			result.Duration = time.Since(started)
			return result, err
		}
	}

	result.EffectiveStart = resolution.EffectiveStart

	gen, err := window.NewGenerator(resolution.EffectiveStart, e.opts.End, e.opts.Granularity)
	if err != nil {
		result.Status = StatusFailed
		result.Duration = time.Since(started)
		return result, err
	}

	total := gen.Count()
	e.logger.InfoWithFields("Extraction started", map[string]interface{}{
		"effective_start": resolution.EffectiveStart,
		"end":             e.opts.End,
		"granularity":     e.opts.Granularity,
		"windows":         total,
	})

	for {
		w, ok := gen.Next()
		if !ok {
			break
		}

		if err := ctx.Err(); err != nil {
			result.Status = StatusFailed
			result.Duration = time.Since(started)
			return result, errors.NewConnectivity("extraction cancelled", err)
		}

		if err := e.processWindow(ctx, w, result); err != nil {
			result.Status = StatusFailed
			result.Duration = time.Since(started)
			return result, err
		}

		result.WindowsProcessed++
		logger.LogExtractionProgress(result.WindowsProcessed, total)
	}

	if err := e.finalize(); err != nil {
		result.Status = StatusFailed
		result.Duration = time.Since(started)
		return result, err
	}

	result.Status = StatusDone
	result.Duration = time.Since(started)

	e.logger.InfoWithFields("Extraction finished", map[string]interface{}{
		"windows":      result.WindowsProcessed,
		"empty":        result.WindowsEmpty,
		"rows_written": result.RowsWritten,
		"duration":     result.Duration,
	})

	return result, nil
}

// resolveResume loads the checkpoint and applies the resume policy. An
// unreadable checkpoint is treated as absent after a warning: resuming from
// invalid state is worse than refetching.
func (e *Extractor) resolveResume() (Resolution, error) {
	cp, err := e.store.Load()
	if err != nil {
		var typed *errors.Error
		if stderrors.As(err, &typed) && typed.Type == errors.ErrorTypeCorruptState {
			e.logger.WithError(err).Warn("Checkpoint unreadable, treating as absent")
			cp = nil
		} else {
			return Resolution{}, err
		}
	}

	return Resolve(e.opts.Policy, cp, e.opts.Start), nil
}

// processWindow runs the fetch/attempt/write/complete sequence for one window.
// A fetch failure or an empty window leaves the checkpoint untouched, so a
// resume revisits everything after the last confirmed write.
func (e *Extractor) processWindow(ctx context.Context, w window.Window, result *Result) error {
	batch, err := e.fetchWithRetry(ctx, w)
	if err != nil {
		return err
	}

	if batch.IsEmpty() {
		result.WindowsEmpty++
		if e.opts.AdvanceOnEmpty {
			return e.store.MarkComplete(w.End)
		}
		return nil
	}

	// The attempt marker must be durable before any output write
	if err := e.store.MarkAttempt(w.Start); err != nil {
		return err
	}

	path := e.files.PathFor(w.Start)
	if err := e.writer.Write(batch, path); err != nil {
		return err
	}

	logger.LogWindowSaved(w.Start, w.End, path, batch.RowCount())
	result.RowsWritten += batch.RowCount()

	// Completion is recorded at the window's end: everything before it is
	// durably on disk.
	return e.store.MarkComplete(w.End)
}

// fetchWithRetry fetches a window, retrying transient source failures
func (e *Extractor) fetchWithRetry(ctx context.Context, w window.Window) (models.Batch, error) {
	var batch models.Batch

	err := e.retrier.WithContext(ctx).Do(func() error {
		var fetchErr error
		batch, fetchErr = e.fetcher.FetchWindow(ctx, w)
		return fetchErr
	})

	return batch, err
}

// finalize records that the whole range is done and, by default, clears the
// checkpoint so the next run starts fresh.
func (e *Extractor) finalize() error {
	if err := e.store.MarkComplete(e.opts.End); err != nil {
		return err
	}

	if e.opts.ClearOnComplete {
		return e.store.Clear()
	}
	return nil
}
