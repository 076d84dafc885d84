package fetch

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"dbextract/pkg/errors"
	"dbextract/pkg/logger"
	"dbextract/pkg/models"
	"dbextract/pkg/window"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	_ "github.com/microsoft/go-mssqldb"
)

// Fetcher retrieves the rows belonging to a single time window
type Fetcher interface {
	FetchWindow(ctx context.Context, w window.Window) (models.Batch, error)
}

// timeFormat is how window bounds are rendered into the query template
const timeFormat = "2006-01-02 15:04:05"

// Open connects to the source database and verifies the connection with a
// ping. The driver name must match one of the registered drivers: postgres,
// sqlserver, or sqlite3.
func Open(ctx context.Context, driver, dsn string) (*sql.DB, error) {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, errors.NewConnectivity(fmt.Sprintf("open %s connection", driver), err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, errors.NewConnectivity(fmt.Sprintf("ping %s database", driver), err)
	}

	return db, nil
}

// SQLFetcher runs a templated query against a SQL database for each window.
// The query must carry {start} and {end} placeholders, which are replaced
// with the window bounds before execution.
type SQLFetcher struct {
	db     *sql.DB
	query  string
	logger logger.Logger
}

// NewSQLFetcher creates a fetcher over an open database connection
func NewSQLFetcher(db *sql.DB, query string) *SQLFetcher {
	return &SQLFetcher{
		db:     db,
		query:  query,
		logger: logger.GetLogger(),
	}
}

// FetchWindow executes the query for the window [w.Start, w.End). A query
// that returns no rows yields an empty batch and no error; only transport
// and execution failures are errors.
func (f *SQLFetcher) FetchWindow(ctx context.Context, w window.Window) (models.Batch, error) {
	query := RenderQuery(f.query, w)

	started := time.Now()
	rows, err := f.db.QueryContext(ctx, query)
	if err != nil {
		return models.Batch{}, errors.NewConnectivity(fmt.Sprintf("query window %s", w), err)
	}
	defer rows.Close()

	batch, err := scanRows(rows)
	if err != nil {
		return models.Batch{}, err
	}

	logger.LogWindowFetched(w.Start, w.End, batch.RowCount(), time.Since(started))
	return batch, nil
}

// RenderQuery substitutes the window bounds into the query template
func RenderQuery(template string, w window.Window) string {
	query := strings.ReplaceAll(template, "{start}", w.Start.Format(timeFormat))
	return strings.ReplaceAll(query, "{end}", w.End.Format(timeFormat))
}

// scanRows reads every row into string form without knowing the column set
// in advance
func scanRows(rows *sql.Rows) (models.Batch, error) {
	cols, err := rows.Columns()
	if err != nil {
		return models.Batch{}, errors.NewConnectivity("read result columns", err)
	}

	batch := models.Batch{Columns: cols}

	for rows.Next() {
		values := make([]interface{}, len(cols))
		pointers := make([]interface{}, len(cols))
		for i := range values {
			pointers[i] = &values[i]
		}

		if err := rows.Scan(pointers...); err != nil {
			return models.Batch{}, errors.NewConnectivity("scan result row", err)
		}

		row := make([]string, len(cols))
		for i := range values {
			row[i] = models.ConvertValue(values[i])
		}
		batch.Rows = append(batch.Rows, row)
	}

	if err := rows.Err(); err != nil {
		return models.Batch{}, errors.NewConnectivity("iterate result rows", err)
	}

	return batch, nil
}

var _ Fetcher = (*SQLFetcher)(nil)
