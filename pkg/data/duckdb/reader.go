// Package duckdb loads sample series out of a DuckDB database.
package duckdb

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"time"

	_ "github.com/marcboeker/go-duckdb"

	"github.com/driftline/driftline/pkg/timeseries"
)

type Reader struct {
	dataSourceName string
	db             *sql.DB
}

func NewReader(dataSourceName string) *Reader {
	return &Reader{
		dataSourceName: dataSourceName,
	}
}

func (r *Reader) Connect() error {
	db, err := sql.Open("duckdb", r.dataSourceName)
	if err != nil {
		return fmt.Errorf("opening duckdb: %w", err)
	}
	r.db = db
	return nil
}

func (r *Reader) Close() {
	_ = r.db.Close()
}

// validIdent accepts plain SQL identifiers, the only table names the query
// below may interpolate.
func validIdent(s string) bool {
	if s == "" {
		return false
	}
	for i, c := range s {
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c == '_':
		case c >= '0' && c <= '9':
			if i == 0 {
				return false
			}
		default:
			return false
		}
	}
	return true
}

// LoadSeries reads (ts, value) rows for one data source between from and to
// and materializes them on a regular grid at the given step. Steps with no
// row, and rows whose value is NULL, become gaps.
func (r *Reader) LoadSeries(ctx context.Context, table string, from, to time.Time, step time.Duration) (*timeseries.Series, error) {
	if step <= 0 {
		return nil, timeseries.ErrBadInterval
	}
	if !validIdent(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}

	query := fmt.Sprintf(`SELECT ts, value FROM %s WHERE ts BETWEEN ? AND ? ORDER BY ts`, table)

	rows, err := r.db.QueryContext(ctx, query, from, to)
	if err != nil {
		return nil, fmt.Errorf("querying samples: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	n := int(to.Sub(from)/step) + 1
	values := make([]float64, n)
	for i := range values {
		values[i] = math.NaN()
	}

	for rows.Next() {
		var (
			ts    time.Time
			value sql.NullFloat64
		)
		if err := rows.Scan(&ts, &value); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		if !value.Valid {
			continue
		}
		offset := ts.Sub(from)
		if offset < 0 || offset%step != 0 {
			return nil, fmt.Errorf("sample at %s is off the %s grid", ts, step)
		}
		idx := int(offset / step)
		if idx < n {
			values[idx] = value.Float64
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("scanning rows: %w", err)
	}

	return timeseries.New(from, step, values)
}
