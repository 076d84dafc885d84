package writer

import (
	"fmt"
	"io"
	"os"

	"dbextract/pkg/errors"
	"dbextract/pkg/models"

	"github.com/xuri/excelize/v2"
)

const sheetName = "Sheet1"

// XLSXWriter stores batches as a spreadsheet with a header row
type XLSXWriter struct{}

func (w *XLSXWriter) Extension() string {
	return FormatXLSX.Extension()
}

// Write appends the batch to the workbook at path
func (w *XLSXWriter) Write(batch models.Batch, path string) error {
	existing, err := readXLSX(path)
	if err != nil {
		return err
	}

	existing.Append(batch)

	f := excelize.NewFile()
	defer f.Close()

	if err := writeSheet(f, existing); err != nil {
		return errors.NewPersistence("build workbook", err)
	}

	return writeAtomic(path, func(out io.Writer) error {
		return f.Write(out)
	})
}

func writeSheet(f *excelize.File, batch models.Batch) error {
	header := make([]interface{}, len(batch.Columns))
	for i, c := range batch.Columns {
		header[i] = c
	}
	if err := f.SetSheetRow(sheetName, "A1", &header); err != nil {
		return err
	}

	for i, row := range batch.Rows {
		cells := make([]interface{}, len(row))
		for j, v := range row {
			cells[j] = v
		}
		cell := fmt.Sprintf("A%d", i+2)
		if err := f.SetSheetRow(sheetName, cell, &cells); err != nil {
			return err
		}
	}
	return nil
}

// readXLSX loads an existing workbook, or an empty batch when absent
func readXLSX(path string) (models.Batch, error) {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return models.Batch{}, nil
		}
		return models.Batch{}, errors.NewPersistence("stat existing output file", err)
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		return models.Batch{}, errors.NewPersistence("open existing workbook", err)
	}
	defer f.Close()

	rows, err := f.GetRows(sheetName)
	if err != nil {
		return models.Batch{}, errors.NewPersistence("read existing workbook", err)
	}
	if len(rows) == 0 {
		return models.Batch{}, nil
	}

	batch := models.Batch{Columns: rows[0]}
	for _, row := range rows[1:] {
		// GetRows trims trailing empty cells; pad back to the header width
		for len(row) < len(batch.Columns) {
			row = append(row, "")
		}
		batch.Rows = append(batch.Rows, row)
	}
	return batch, nil
}

var _ Writer = (*XLSXWriter)(nil)
