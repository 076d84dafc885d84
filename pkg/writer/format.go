package writer

import (
	"fmt"

	"dbextract/pkg/errors"
)

// Format selects the on-disk representation of extracted rows
type Format string

const (
	// FormatGob stores batches in Go's native binary encoding
	FormatGob Format = "gob"
	// FormatCSV stores batches as delimited text with a header row
	FormatCSV Format = "csv"
	// FormatXLSX stores batches as a spreadsheet
	FormatXLSX Format = "xlsx"
)

// ParseFormat validates a format string from configuration
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case FormatGob, FormatCSV, FormatXLSX:
		return Format(s), nil
	default:
		return "", errors.NewUnsupported(fmt.Sprintf("output format: %q", s))
	}
}

// Extension returns the file extension for the format, with the leading dot
func (f Format) Extension() string {
	return "." + string(f)
}

// NewWriter returns the writer implementation for the format. The format
// must already be validated via ParseFormat.
func NewWriter(f Format) Writer {
	switch f {
	case FormatCSV:
		return &CSVWriter{}
	case FormatXLSX:
		return &XLSXWriter{}
	default:
		return &GobWriter{}
	}
}
