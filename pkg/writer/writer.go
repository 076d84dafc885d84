package writer

import (
	"io"
	"os"

	"dbextract/pkg/errors"
	"dbextract/pkg/models"
)

// Writer persists a batch of rows into a bucket file. Write has append
// semantics: rows already in the file are kept and the new rows are added
// after them, so several windows can share one output file.
//
// Appends are implemented as read-modify-replace with an atomic rename, so a
// crash mid-write leaves the previous file contents intact.
type Writer interface {
	Write(batch models.Batch, path string) error
	Extension() string
}

// writeAtomic streams content into a temp file next to path and renames it
// into place after a successful sync.
func writeAtomic(path string, write func(w io.Writer) error) error {
	tempPath := path + ".tmp"
	file, err := os.Create(tempPath)
	if err != nil {
		return errors.NewPersistence("create temporary output file", err)
	}

	if err := write(file); err != nil {
		file.Close()
		os.Remove(tempPath)
		return errors.NewPersistence("write output file", err)
	}

	if err := file.Sync(); err != nil {
		file.Close()
		os.Remove(tempPath)
		return errors.NewPersistence("sync output file", err)
	}

	if err := file.Close(); err != nil {
		os.Remove(tempPath)
		return errors.NewPersistence("close output file", err)
	}

	if err := os.Rename(tempPath, path); err != nil {
		os.Remove(tempPath)
		return errors.NewPersistence("replace output file", err)
	}

	return nil
}
