// Package querybuilder compiles a declarative filter/measure/dimension model
// into parameterized ClickHouse SQL: a catalog of fields and measures,
// validated at build time, compiled into either a flat SELECT or a
// measure/dimension rollup with one CTE per distinct grouping key.
package querybuilder

import (
	"fmt"

	apperrors "github.com/agenttrace/agenttrace/api/internal/pkg/errors"
)

// FieldType constrains which operators a Field or Measure accepts.
type FieldType string

const (
	TypeString   FieldType = "string"
	TypeNumber   FieldType = "number"
	TypeDatetime FieldType = "datetime"
	TypeBoolean  FieldType = "boolean"
)

// Field is a scalar, selectable/groupable column in a catalog.
type Field struct {
	Name      string // the name clients refer to the column by
	Column    string // the underlying SQL expression or column name
	Type      FieldType
	Groupable bool
}

// Aggregation is a supported rollup function for a Measure.
type Aggregation string

const (
	AggSum   Aggregation = "sum"
	AggAvg   Aggregation = "avg"
	AggCount Aggregation = "count"
	AggMin   Aggregation = "min"
	AggMax   Aggregation = "max"
)

// Measure is an aggregatable expression with an allow-list of aggregations.
type Measure struct {
	Name   string
	Expr   string // the SQL expression the aggregation wraps, e.g. "total_cost"
	Type   FieldType
	Allows []Aggregation
}

func (m Measure) allows(agg Aggregation) bool {
	for _, a := range m.Allows {
		if a == agg {
			return true
		}
	}
	return false
}

// Catalog binds a table name to the fields and measures that may be
// referenced against it.
type Catalog struct {
	Table    string
	Fields   map[string]Field
	Measures map[string]Measure
}

func (c *Catalog) field(name string) (Field, error) {
	f, ok := c.Fields[name]
	if !ok {
		return Field{}, apperrors.Validation(fmt.Sprintf("unknown field %q", name))
	}
	return f, nil
}

func (c *Catalog) measure(name string) (Measure, error) {
	m, ok := c.Measures[name]
	if !ok {
		return Measure{}, apperrors.Validation(fmt.Sprintf("unknown measure %q", name))
	}
	return m, nil
}
