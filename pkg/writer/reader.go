package writer

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"dbextract/pkg/errors"
	"dbextract/pkg/logger"
	"dbextract/pkg/models"
)

// ReadFile loads a previously written output file, dispatching on its
// extension.
func ReadFile(path string) (models.Batch, error) {
	ext := strings.TrimPrefix(filepath.Ext(path), ".")
	format, err := ParseFormat(ext)
	if err != nil {
		return models.Batch{}, err
	}

	var batch models.Batch
	switch format {
	case FormatCSV:
		batch, err = readCSV(path)
	case FormatXLSX:
		batch, err = readXLSX(path)
	default:
		batch, err = readGob(path)
	}
	if err != nil {
		return models.Batch{}, err
	}

	if batch.IsEmpty() && len(batch.Columns) == 0 {
		return models.Batch{}, errors.NewPersistence(fmt.Sprintf("read %s", path), fmt.Errorf("file is empty or missing"))
	}
	return batch, nil
}

// LoadDataset reads every file in paths and merges the rows into a single
// batch, ordered by file name so periods come out chronologically.
func LoadDataset(paths []string) (models.Batch, error) {
	sorted := make([]string, len(paths))
	copy(sorted, paths)
	sort.Strings(sorted)

	var dataset models.Batch
	for _, path := range sorted {
		batch, err := ReadFile(path)
		if err != nil {
			return models.Batch{}, err
		}
		dataset.Append(batch)
	}
	return dataset, nil
}

// LoadDir merges every readable output file in dir into one batch. Files with
// an unrecognized extension are skipped with a warning rather than failing the
// whole load.
func LoadDir(dir string) (models.Batch, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return models.Batch{}, errors.NewPersistence(fmt.Sprintf("read directory %s", dir), err)
	}

	var paths []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.TrimPrefix(filepath.Ext(entry.Name()), ".")
		if _, err := ParseFormat(ext); err != nil {
			logger.WithField("file", entry.Name()).Warn("Skipping file with unsupported extension")
			continue
		}
		paths = append(paths, filepath.Join(dir, entry.Name()))
	}

	return LoadDataset(paths)
}
