package storage

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"dbextract/pkg/errors"
	"dbextract/pkg/logger"
	"dbextract/pkg/naming"
)

// Manager handles the output directory: bucket file discovery, purging for
// overwrite runs, and latest-period lookup over existing files.
type Manager struct {
	outputDir string
	strategy  *naming.Strategy
	extension string
	logger    logger.Logger
}

// NewManager creates a storage manager over outputDir, creating the
// directory if needed. The extension carries the leading dot.
func NewManager(outputDir string, strategy *naming.Strategy, extension string) (*Manager, error) {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, errors.NewPersistence("create output directory", err)
	}

	return &Manager{
		outputDir: outputDir,
		strategy:  strategy,
		extension: extension,
		logger:    logger.GetLogger(),
	}, nil
}

// PathFor returns the bucket file path for the period containing t
func (m *Manager) PathFor(t time.Time) string {
	return filepath.Join(m.outputDir, m.strategy.FileName(t)+m.extension)
}

// ListFiles returns the bucket files currently in the output directory,
// sorted by name. Files that do not match the naming strategy are skipped.
func (m *Manager) ListFiles() ([]string, error) {
	entries, err := os.ReadDir(m.outputDir)
	if err != nil {
		return nil, errors.NewPersistence("read output directory", err)
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != m.extension {
			continue
		}
		base := strings.TrimSuffix(entry.Name(), m.extension)
		if _, err := m.strategy.PeriodStart(base); err != nil {
			continue
		}
		files = append(files, filepath.Join(m.outputDir, entry.Name()))
	}

	sort.Strings(files)
	return files, nil
}

// Purge removes every file with the configured extension from the output
// directory, returning how many were deleted. Matching is by extension alone,
// so stale output from an earlier base name or aggregation is cleared too.
// Used by the overwrite resume policy before extraction restarts from scratch.
func (m *Manager) Purge() (int, error) {
	entries, err := os.ReadDir(m.outputDir)
	if err != nil {
		return 0, errors.NewPersistence("read output directory", err)
	}

	count := 0
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != m.extension {
			continue
		}
		if err := os.Remove(filepath.Join(m.outputDir, entry.Name())); err != nil {
			return count, errors.NewPersistence("remove output file", err)
		}
		count++
	}

	if count > 0 {
		m.logger.InfoWithFields("Output files purged", map[string]interface{}{
			"directory": m.outputDir,
			"count":     count,
		})
	}

	return count, nil
}

// LatestPeriod returns the start of the most recent period that already has
// a bucket file. The second return value is false when no files exist.
func (m *Manager) LatestPeriod() (time.Time, bool, error) {
	files, err := m.ListFiles()
	if err != nil {
		return time.Time{}, false, err
	}

	var latest time.Time
	found := false
	for _, path := range files {
		base := strings.TrimSuffix(filepath.Base(path), m.extension)
		start, err := m.strategy.PeriodStart(base)
		if err != nil {
			continue
		}
		if !found || start.After(latest) {
			latest = start
			found = true
		}
	}

	return latest, found, nil
}

// Dir returns the output directory path
func (m *Manager) Dir() string {
	return m.outputDir
}
