package writer

import (
	"encoding/gob"
	"io"
	"os"

	"dbextract/pkg/errors"
	"dbextract/pkg/models"
)

// GobWriter stores batches in Go's native binary encoding. This is the
// compact raw format for datasets that will be read back by this tool.
type GobWriter struct{}

func (w *GobWriter) Extension() string {
	return FormatGob.Extension()
}

// Write appends the batch to the gob file at path
func (w *GobWriter) Write(batch models.Batch, path string) error {
	existing, err := readGob(path)
	if err != nil {
		return err
	}

	existing.Append(batch)

	return writeAtomic(path, func(out io.Writer) error {
		return gob.NewEncoder(out).Encode(existing)
	})
}

// readGob loads an existing gob file, or an empty batch when absent
func readGob(path string) (models.Batch, error) {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return models.Batch{}, nil
		}
		return models.Batch{}, errors.NewPersistence("open existing output file", err)
	}
	defer file.Close()

	var batch models.Batch
	if err := gob.NewDecoder(file).Decode(&batch); err != nil {
		return models.Batch{}, errors.NewPersistence("decode existing output file", err)
	}
	return batch, nil
}

var _ Writer = (*GobWriter)(nil)
