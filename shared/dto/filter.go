package dto

import (
	"fmt"
	"maps"
	"reflect"
	"strings"
)

const (
	FilterOperatorEq     = "eq"
	FilterOperatorNotEq  = "not_eq"
	FilterOperatorIn     = "in"
	FilterOperatorLike   = "like"
	FilterOperatorIsNull = "is_null"
)

const (
	FilterGroupOperatorAnd = "AND"
	FilterGroupOperatorOr  = "OR"
)

// Filter is one named-parameter predicate. ArgName defaults to Field and must be
// unique inside a FilterGroup.
type Filter struct {
	ArgName  string
	Field    string
	Value    any
	Operator string
	Table    string
}

func (f Filter) column() string {
	if f.Table == "" {
		return f.Field
	}

	return f.Table + "." + f.Field
}

func (f Filter) arg() string {
	if f.ArgName == "" {
		return f.Field
	}

	return f.ArgName
}

// Where renders the predicate with sqlx named placeholders.
func (f Filter) Where() (string, map[string]any) {
	args := map[string]any{}
	column, name := f.column(), f.arg()

	switch f.Operator {
	case FilterOperatorEq:
		args[name] = f.Value

		return fmt.Sprintf("%s = :%s", column, name), args
	case FilterOperatorNotEq:
		args[name] = f.Value

		return fmt.Sprintf("%s != :%s", column, name), args
	case FilterOperatorLike:
		args[name] = fmt.Sprintf("%%%v%%", f.Value)

		return fmt.Sprintf("LOWER(%s) LIKE LOWER(:%s)", column, name), args
	case FilterOperatorIn:
		val := reflect.ValueOf(f.Value)
		if val.Kind() != reflect.Slice && val.Kind() != reflect.Array || val.Len() == 0 {
			return "FALSE", args
		}

		named := make([]string, val.Len())

		for idx := range val.Len() {
			key := fmt.Sprintf("%s_%d", name, idx)
			args[key] = val.Index(idx).Interface()
			named[idx] = ":" + key
		}

		return fmt.Sprintf("%s IN (%s)", column, strings.Join(named, ", ")), args
	case FilterOperatorIsNull:
		return column + " IS NULL", args
	default:
		return "", args
	}
}

// FilterGroup joins Filters and nested FilterGroups. An empty Operator means AND.
type FilterGroup struct {
	Filters  []any
	Operator string
}

func (g FilterGroup) Where() (string, map[string]any) {
	args := map[string]any{}
	clauses := []string{}

	for _, filter := range g.Filters {
		var (
			clause string
			arg    map[string]any
		)

		switch fill := filter.(type) {
		case Filter:
			clause, arg = fill.Where()
		case FilterGroup:
			clause, arg = fill.Where()
		default:
			continue
		}

		if clause == "" {
			continue
		}

		clauses = append(clauses, clause)
		maps.Copy(args, arg)
	}

	if len(clauses) == 0 {
		return "", args
	}

	operator := g.Operator
	if operator == "" {
		operator = FilterGroupOperatorAnd
	}

	return "(" + strings.Join(clauses, " "+operator+" ") + ")", args
}
