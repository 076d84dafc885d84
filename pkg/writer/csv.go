package writer

import (
	"encoding/csv"
	"io"
	"os"

	"dbextract/pkg/errors"
	"dbextract/pkg/models"
)

// CSVWriter stores batches as delimited text. The first record is always the
// column header; appended windows reuse the existing header.
type CSVWriter struct{}

func (w *CSVWriter) Extension() string {
	return FormatCSV.Extension()
}

// Write appends the batch to the CSV file at path
func (w *CSVWriter) Write(batch models.Batch, path string) error {
	existing, err := readCSV(path)
	if err != nil {
		return err
	}

	existing.Append(batch)

	return writeAtomic(path, func(out io.Writer) error {
		cw := csv.NewWriter(out)
		if err := cw.Write(existing.Columns); err != nil {
			return err
		}
		if err := cw.WriteAll(existing.Rows); err != nil {
			return err
		}
		cw.Flush()
		return cw.Error()
	})
}

// readCSV loads an existing CSV file, or an empty batch when absent
func readCSV(path string) (models.Batch, error) {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return models.Batch{}, nil
		}
		return models.Batch{}, errors.NewPersistence("open existing output file", err)
	}
	defer file.Close()

	records, err := csv.NewReader(file).ReadAll()
	if err != nil {
		return models.Batch{}, errors.NewPersistence("parse existing output file", err)
	}
	if len(records) == 0 {
		return models.Batch{}, nil
	}

	return models.Batch{
		Columns: records[0],
		Rows:    records[1:],
	}, nil
}

var _ Writer = (*CSVWriter)(nil)
