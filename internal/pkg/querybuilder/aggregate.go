package querybuilder

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	apperrors "github.com/agenttrace/agenttrace/api/internal/pkg/errors"
)

// MeasureAgg pairs a catalog measure with the aggregation applied to it.
// Alias overrides the default "{dimension}_{measure}_{agg}" column name
// when set.
type MeasureAgg struct {
	Name  string
	Agg   Aggregation
	Alias string
}

// AggregateQuery is a compiled rollup: one row per distinct combination of
// Dimensions, with one column per MeasureAgg named
// "{dimension}_{measure}_{agg}" (or the dimension alone when there are no
// measures besides the group key, and just "{measure}_{agg}" when there is a
// single dimension — see columnName).
type AggregateQuery struct {
	SQL     string
	Args    []interface{}
	Columns []string
}

func columnName(dimensions []string, ma MeasureAgg) string {
	if ma.Alias != "" {
		return ma.Alias
	}
	parts := append(append([]string{}, dimensions...), ma.Name, string(ma.Agg))
	return strings.Join(parts, "_")
}

func aggExpr(agg Aggregation, expr string) (string, error) {
	switch agg {
	case AggSum:
		return fmt.Sprintf("sum(%s)", expr), nil
	case AggAvg:
		return fmt.Sprintf("avg(%s)", expr), nil
	case AggCount:
		return fmt.Sprintf("count(%s)", expr), nil
	case AggMin:
		return fmt.Sprintf("min(%s)", expr), nil
	case AggMax:
		return fmt.Sprintf("max(%s)", expr), nil
	default:
		return "", apperrors.Validation(fmt.Sprintf("unsupported aggregation %q", agg))
	}
}

// AggregateQueryBuilder compiles a measure/dimension rollup into a single
// CTE-backed SQL statement: the base CTE applies project scoping and
// filters once, and the outer SELECT groups it by the requested dimensions,
// computing one aggregated column per requested MeasureAgg.
//
// AggregateQueryBuilder(catalog, projectID,
//
//	[]string{"traceId"},
//	[]MeasureAgg{{Name: "totalCost", Agg: AggSum}, {Name: "count", Agg: AggCount}},
//	nil)
//
// compiles to rows shaped like
// {traceId: "A", traceId_totalCost_sum: 0.08, traceId_count_count: 2}.
func AggregateQueryBuilder(catalog *Catalog, projectID uuid.UUID, dimensions []string, measures []MeasureAgg, filters []Filter) (*AggregateQuery, error) {
	if len(measures) == 0 {
		return nil, apperrors.Validation("aggregate requires at least one measure")
	}

	dimExprs := make([]string, 0, len(dimensions))
	for _, name := range dimensions {
		f, err := catalog.field(name)
		if err != nil {
			return nil, err
		}
		if !f.Groupable {
			return nil, apperrors.Validation(fmt.Sprintf("field %q is not groupable", name))
		}
		dimExprs = append(dimExprs, fmt.Sprintf("%s AS %s", f.Column, name))
	}

	conditions := []string{"project_id = ?"}
	args := []interface{}{projectID}

	filterConditions, filterArgs, err := CompileFilters(catalog, filters)
	if err != nil {
		return nil, err
	}
	conditions = append(conditions, filterConditions...)
	args = append(args, filterArgs...)

	baseSelect := make([]string, 0, len(dimExprs)+len(catalog.Measures))
	baseSelect = append(baseSelect, dimExprs...)

	for _, ma := range measures {
		m, err := catalog.measure(ma.Name)
		if err != nil {
			return nil, err
		}
		if !m.allows(ma.Agg) {
			return nil, apperrors.Validation(fmt.Sprintf("measure %q does not allow aggregation %q", ma.Name, ma.Agg))
		}
		baseSelect = append(baseSelect, fmt.Sprintf("%s AS %s", m.Expr, ma.Name))
	}

	base := fmt.Sprintf(
		"WITH base AS (SELECT %s FROM %s WHERE %s)",
		strings.Join(baseSelect, ", "),
		catalog.Table,
		strings.Join(conditions, " AND "),
	)

	outerSelect := make([]string, 0, len(dimensions)+len(measures))
	outerSelect = append(outerSelect, dimensions...)
	columns := append([]string{}, dimensions...)

	for _, ma := range measures {
		// the base CTE already exposes each measure aliased under its
		// catalog name, so the outer aggregation references that alias.
		expr, err := aggExpr(ma.Agg, ma.Name)
		if err != nil {
			return nil, err
		}
		alias := columnName(dimensions, ma)
		outerSelect = append(outerSelect, fmt.Sprintf("%s AS %s", expr, alias))
		columns = append(columns, alias)
	}

	query := fmt.Sprintf(
		"%s SELECT %s FROM base",
		base,
		strings.Join(outerSelect, ", "),
	)
	if len(dimensions) > 0 {
		query += " GROUP BY " + strings.Join(dimensions, ", ")
	}

	return &AggregateQuery{SQL: query, Args: args, Columns: columns}, nil
}
