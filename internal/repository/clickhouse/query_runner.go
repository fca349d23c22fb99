package clickhouse

import (
	"context"
	"reflect"

	"github.com/agenttrace/agenttrace/api/internal/pkg/database"
	"github.com/agenttrace/agenttrace/api/internal/pkg/querybuilder"
)

// runAggregateQuery executes a compiled rollup and returns one map per
// result row, keyed by the builder's column names. Aggregate results don't
// have a fixed Go struct shape (the column set depends on the requested
// dimensions and measures), so rows are scanned generically via reflection
// over each column's driver-reported type rather than into a struct slice.
func runAggregateQuery(ctx context.Context, db *database.ClickHouseDB, q *querybuilder.AggregateQuery) ([]map[string]interface{}, error) {
	rows, err := db.Query(ctx, q.SQL, q.Args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	columnTypes := rows.ColumnTypes()
	results := make([]map[string]interface{}, 0)

	for rows.Next() {
		dest := make([]interface{}, len(columnTypes))
		for i, ct := range columnTypes {
			dest[i] = reflect.New(ct.ScanType()).Interface()
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, err
		}

		row := make(map[string]interface{}, len(q.Columns))
		for i, name := range q.Columns {
			row[name] = reflect.ValueOf(dest[i]).Elem().Interface()
		}
		results = append(results, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return results, nil
}
