package loader

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// LoadSQLite runs query against the database at dsn and returns the result
// set as a table. An empty query selects every row of the first user table.
func LoadSQLite(ctx context.Context, dsn, query string) (*Table, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite %s: %w", dsn, err)
	}
	defer db.Close()

	if strings.TrimSpace(query) == "" {
		var name string
		err := db.QueryRowContext(ctx,
			`SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY name LIMIT 1`).Scan(&name)
		if err != nil {
			return nil, fmt.Errorf("finding a table in %s: %w", dsn, ErrNoTable)
		}
		query = `SELECT * FROM "` + strings.ReplaceAll(name, `"`, `""`) + `"`
	}

	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("querying sqlite: %w", err)
	}
	defer rows.Close()

	names, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("reading sqlite columns: %w", err)
	}
	b := newBuilder()
	keys := make([]string, len(names))
	for i, n := range names {
		keys[i] = b.uniqueColumn(n)
	}

	vals := make([]any, len(names))
	ptrs := make([]any, len(names))
	for i := range vals {
		ptrs[i] = &vals[i]
	}
	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scanning sqlite row: %w", err)
		}
		row := make(map[string]string, len(keys))
		for i, key := range keys {
			row[key] = sqlText(vals[i])
		}
		b.add(row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating sqlite rows: %w", err)
	}

	t := b.table()
	if len(t.Columns) == 0 {
		return nil, ErrNoTable
	}
	InferTypes(t)
	return t, nil
}

func sqlText(v any) string {
	switch x := v.(type) {
	case []byte:
		return string(x)
	case time.Time:
		return formatValue(x)
	default:
		return formatValue(v)
	}
}
