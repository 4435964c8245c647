package executor

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"kustoscope/internal/logging"
	"kustoscope/internal/types"
)

// Local executes queries against a SQLite-backed telemetry store. It exists
// so the refinement loop has a real data source without any cloud account:
// the query dialect is plain SQL.
type Local struct {
	db   *sql.DB
	path string
	log  *logging.Logger
}

// OpenLocal opens (or creates) the telemetry store at path.
func OpenLocal(path string) (*Local, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open telemetry store %s: %w", path, err)
	}
	return &Local{
		db:   db,
		path: path,
		log:  logging.Get(logging.CategoryExecutor),
	}, nil
}

// Close closes the underlying database.
func (l *Local) Close() error {
	return l.db.Close()
}

// Execute runs a finalized query and adapts the rows into an
// ExecutionResult. Nulls are preserved as nil cells; every row carries
// exactly one cell per column.
func (l *Local) Execute(ctx context.Context, query string) (*types.ExecutionResult, error) {
	start := time.Now()

	rows, err := l.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	names, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to read columns: %w", err)
	}
	colTypes, err := rows.ColumnTypes()
	if err != nil {
		return nil, fmt.Errorf("failed to read column types: %w", err)
	}

	tbl := types.Table{Name: "results", Columns: make([]types.Column, len(names))}
	for i, name := range names {
		tbl.Columns[i] = types.Column{
			Name: name,
			Type: strings.ToLower(colTypes[i].DatabaseTypeName()),
		}
	}

	for rows.Next() {
		cells := make([]types.Value, len(names))
		dest := make([]any, len(names))
		for i := range cells {
			dest[i] = &cells[i]
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		for i, cell := range cells {
			// Drivers hand back []byte for text; keep cells printable.
			if b, ok := cell.([]byte); ok {
				cells[i] = string(b)
			}
		}
		if err := tbl.AppendRow(cells...); err != nil {
			return nil, err
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration failed: %w", err)
	}

	// Columns the driver could not type get inferred from the data.
	for i := range tbl.Columns {
		if tbl.Columns[i].Type == "" {
			tbl.Columns[i].Type = inferColumnType(tbl, i)
		}
	}

	l.log.Info("executed query: rows=%d elapsed=%s", len(tbl.Rows), time.Since(start))
	return &types.ExecutionResult{Tables: []types.Table{tbl}}, nil
}

// inferColumnType classifies a column from its first non-null cell.
func inferColumnType(tbl types.Table, ci int) string {
	for _, row := range tbl.Rows {
		if ci >= len(row) || types.IsNull(row[ci]) {
			continue
		}
		switch v := row[ci].(type) {
		case int64, int:
			return "integer"
		case float64, float32:
			return "real"
		case bool:
			return "boolean"
		case time.Time:
			return "datetime"
		case string:
			if _, ok := types.AsTime(v); ok {
				return "datetime"
			}
			return "text"
		default:
			return "text"
		}
	}
	return "text"
}
