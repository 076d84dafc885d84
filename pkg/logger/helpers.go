package logger

import (
	"fmt"
	"time"
)

// LogWindowFetched logs the outcome of fetching a single window
func LogWindowFetched(start, end time.Time, rows int, duration time.Duration) {
	GetLogger().InfoWithFields("Window fetched", map[string]interface{}{
		"window_start": start,
		"window_end":   end,
		"rows":         rows,
		"duration":     duration,
	})
}

// LogWindowSaved logs a successful write of a window's rows to an output file
func LogWindowSaved(start, end time.Time, path string, rows int) {
	GetLogger().InfoWithFields("Window saved", map[string]interface{}{
		"window_start": start,
		"window_end":   end,
		"path":         path,
		"rows":         rows,
	})
}

// LogCheckpoint logs a checkpoint state transition
func LogCheckpoint(action string, lastProcessed time.Time, complete bool) {
	GetLogger().DebugWithFields("Checkpoint updated", map[string]interface{}{
		"action":         action,
		"last_processed": lastProcessed,
		"complete":       complete,
	})
}

// LogResume logs the resume decision taken at startup
func LogResume(decision string, effectiveStart time.Time) {
	GetLogger().InfoWithFields("Resume decision", map[string]interface{}{
		"decision":        decision,
		"effective_start": effectiveStart,
	})
}

// LogExtractionProgress logs progress through the planned windows
func LogExtractionProgress(processed, total int) {
	percentage := 0.0
	if total > 0 {
		percentage = float64(processed) / float64(total) * 100
	}

	GetLogger().WithFields(map[string]interface{}{
		"processed":  processed,
		"total":      total,
		"percentage": fmt.Sprintf("%.1f%%", percentage),
	}).Info("Extraction progress")
}

// LogRetry logs a retried fetch attempt
func LogRetry(attempt, maxAttempts int, delay time.Duration, err error) {
	GetLogger().WithFields(map[string]interface{}{
		"attempt":      attempt,
		"max_attempts": maxAttempts,
		"delay":        delay,
	}).WithError(err).Warn("Fetch failed, retrying")
}
