package querybuilder

import (
	"fmt"

	apperrors "github.com/agenttrace/agenttrace/api/internal/pkg/errors"
)

// Operator is a filter comparison, constrained per FieldType.
type Operator string

const (
	OpEquals     Operator = "="
	OpNotEquals  Operator = "!="
	OpGreater    Operator = ">"
	OpLess       Operator = "<"
	OpStartsWith Operator = "starts with"
	OpEndsWith   Operator = "ends with"
	OpContains   Operator = "contains"
	OpRegex      Operator = "regex"
	OpAnyOf      Operator = "any of"
	OpNoneOf     Operator = "none of"
)

var allowedOperators = map[FieldType]map[Operator]bool{
	TypeString: {
		OpEquals: true, OpNotEquals: true, OpStartsWith: true,
		OpEndsWith: true, OpContains: true, OpRegex: true,
	},
	TypeNumber: {
		OpEquals: true, OpNotEquals: true, OpGreater: true, OpLess: true,
	},
	TypeDatetime: {
		OpGreater: true, OpLess: true,
	},
	TypeBoolean: {
		OpEquals: true, OpNotEquals: true,
	},
}

// stringOptions is not a distinct FieldType; any TypeString field also
// accepts the set operators when the caller passes a slice Value.
var setOperators = map[Operator]bool{OpAnyOf: true, OpNoneOf: true}

// Filter is a single typed predicate: {column, operator, value}.
type Filter struct {
	Column   string
	Operator Operator
	Value    interface{}
}

// validate checks the operator against the field's type, raising at build
// time rather than deferring to a failed query execution.
func (f Filter) validate(field Field) error {
	if setOperators[f.Operator] {
		if field.Type != TypeString {
			return apperrors.Validation(fmt.Sprintf("operator %q is only valid for string fields", f.Operator))
		}
		return nil
	}
	allowed := allowedOperators[field.Type]
	if allowed == nil || !allowed[f.Operator] {
		return apperrors.Validation(fmt.Sprintf("operator %q is not valid for field %q", f.Operator, f.Column))
	}
	return nil
}

// CompileFilters validates each filter against the catalog and renders the
// full set as parameterized SQL conditions plus their bind args, in order.
// Repository List methods use this to share the exact predicate semantics
// Aggregate compiles, rather than hand-rolling equivalent SQL twice.
func CompileFilters(catalog *Catalog, filters []Filter) ([]string, []interface{}, error) {
	conditions := make([]string, 0, len(filters))
	var args []interface{}

	for _, f := range filters {
		field, err := catalog.field(f.Column)
		if err != nil {
			return nil, nil, err
		}
		if err := f.validate(field); err != nil {
			return nil, nil, err
		}
		sql, filterArgs, err := f.toSQL(field.Column)
		if err != nil {
			return nil, nil, err
		}
		conditions = append(conditions, sql)
		args = append(args, filterArgs...)
	}

	return conditions, args, nil
}

// toSQL renders the filter as a parameterized predicate plus its bind args.
func (f Filter) toSQL(columnExpr string) (string, []interface{}, error) {
	switch f.Operator {
	case OpEquals:
		return columnExpr + " = ?", []interface{}{f.Value}, nil
	case OpNotEquals:
		return columnExpr + " != ?", []interface{}{f.Value}, nil
	case OpGreater:
		return columnExpr + " > ?", []interface{}{f.Value}, nil
	case OpLess:
		return columnExpr + " < ?", []interface{}{f.Value}, nil
	case OpStartsWith:
		s, _ := f.Value.(string)
		return columnExpr + " LIKE ?", []interface{}{s + "%"}, nil
	case OpEndsWith:
		s, _ := f.Value.(string)
		return columnExpr + " LIKE ?", []interface{}{"%" + s}, nil
	case OpContains:
		s, _ := f.Value.(string)
		return columnExpr + " LIKE ?", []interface{}{"%" + s + "%"}, nil
	case OpRegex:
		return "match(" + columnExpr + ", ?)", []interface{}{f.Value}, nil
	case OpAnyOf:
		return "hasAny(" + columnExpr + ", ?)", []interface{}{f.Value}, nil
	case OpNoneOf:
		return "NOT hasAny(" + columnExpr + ", ?)", []interface{}{f.Value}, nil
	default:
		return "", nil, apperrors.Validation(fmt.Sprintf("unsupported operator %q", f.Operator))
	}
}
