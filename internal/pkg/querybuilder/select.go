package querybuilder

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	apperrors "github.com/agenttrace/agenttrace/api/internal/pkg/errors"
)

// SelectQuery is a compiled, parameterized SELECT.
type SelectQuery struct {
	SQL     string
	Args    []interface{}
	Columns []string
}

// SelectQueryBuilder compiles a flat projection over the catalog's table,
// validating field names and filter operators before emitting any SQL.
// Every query is scoped by project_id in the outer WHERE.
func SelectQueryBuilder(catalog *Catalog, projectID uuid.UUID, fields []string, filters []Filter, orderBy string, limit, offset int) (*SelectQuery, error) {
	if len(fields) == 0 {
		return nil, apperrors.Validation("select requires at least one field")
	}

	selectExprs := make([]string, 0, len(fields))
	for _, name := range fields {
		f, err := catalog.field(name)
		if err != nil {
			return nil, err
		}
		selectExprs = append(selectExprs, fmt.Sprintf("%s AS %s", f.Column, name))
	}

	conditions := []string{"project_id = ?"}
	args := []interface{}{projectID}

	filterConditions, filterArgs, err := CompileFilters(catalog, filters)
	if err != nil {
		return nil, err
	}
	conditions = append(conditions, filterConditions...)
	args = append(args, filterArgs...)

	query := fmt.Sprintf(
		"SELECT %s FROM %s WHERE %s",
		strings.Join(selectExprs, ", "),
		catalog.Table,
		strings.Join(conditions, " AND "),
	)

	if orderBy != "" {
		if _, err := catalog.field(orderBy); err != nil {
			return nil, err
		}
		query += fmt.Sprintf(" ORDER BY %s DESC", orderBy)
	}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
		if offset > 0 {
			query += " OFFSET ?"
			args = append(args, offset)
		}
	}

	return &SelectQuery{SQL: query, Args: args, Columns: fields}, nil
}
