package models

import (
	"fmt"
	"strconv"
	"time"
)

// Batch holds the rows fetched for a single time window. Values are kept as
// strings so every output format can render them without driver-specific
// type handling.
type Batch struct {
	Columns []string
	Rows    [][]string
}

// IsEmpty reports whether the batch holds no rows
func (b Batch) IsEmpty() bool {
	return len(b.Rows) == 0
}

// RowCount returns the number of rows in the batch
func (b Batch) RowCount() int {
	return len(b.Rows)
}

// Append merges another batch's rows into this one. Column sets must match;
// the caller guarantees that because both batches come from the same query.
func (b *Batch) Append(other Batch) {
	if len(b.Columns) == 0 {
		b.Columns = other.Columns
	}
	b.Rows = append(b.Rows, other.Rows...)
}

// ConvertValue renders a raw database/sql scan value as a string. Drivers
// return []byte for most text and numeric columns, so that case comes first.
func ConvertValue(value interface{}) string {
	switch v := value.(type) {
	case nil:
		return ""
	case []byte:
		return string(v)
	case string:
		return v
	case time.Time:
		return v.Format("2006-01-02 15:04:05")
	case bool:
		return strconv.FormatBool(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64)
	default:
		return fmt.Sprintf("%v", v)
	}
}
