// Package query implements the list-read shaping pipeline: filtering,
// sorting, field projection and pagination, parsed once from the raw URL
// parameters into a typed intermediate representation and then translated
// into SQL fragments. Handlers never touch the raw parameter map and the
// store never sees an unvalidated field name.
//
// The recognized reserved keys are sort, fields, page and limit. Every other
// key is a filter; a comparison operator may be attached with a bracket
// suffix, e.g. price[gte]=100 or duration[lt]=10. Plain keys are equality
// matches.
package query

import (
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/user/natours-go/apperror"
)

// Op is a comparison operator in a filter term.
type Op string

// Supported operators, keyed by their URL suffix spelling.
const (
	OpEq  Op = "="
	OpGt  Op = ">"
	OpGte Op = ">="
	OpLt  Op = "<"
	OpLte Op = "<="
)

var opBySuffix = map[string]Op{
	"gt":  OpGt,
	"gte": OpGte,
	"lt":  OpLt,
	"lte": OpLte,
}

// Kind is the value type of a filterable column, used to coerce the raw
// string parameter into a properly typed query argument.
type Kind int

const (
	KindString Kind = iota
	KindInt
	KindFloat
	KindBool
	KindTime
)

// Field describes one exposed API field: the SQL column behind it and the
// column's value kind.
type Field struct {
	Column string
	Kind   Kind
}

// Schema maps exposed API field names (camelCase, as they appear in JSON
// payloads) to their columns. Any key, sort term or projection field outside
// the schema is rejected with a 400, which doubles as the SQL injection
// guard.
type Schema map[string]Field

// Defaults for the pagination window.
const (
	DefaultPage  = 1
	DefaultLimit = 100
)

// Filter is one parsed filter term: column OP value. The value is already
// coerced to the column's kind.
type Filter struct {
	Column string
	Op     Op
	Value  any
}

// SortField is one parsed sort term, applied left to right as tie-breakers.
type SortField struct {
	Column string
	Desc   bool
}

// Options is the fully parsed shape of a list read. It is built once by
// Parse and then translated to SQL fragments; execution happens in the
// resource service.
type Options struct {
	Filters []Filter
	Sort    []SortField
	Fields  []string // projected columns; empty means the caller's default set
	Page    int
	Limit   int

	// PageRequested records whether the client supplied page explicitly.
	// Only then does an out-of-range page become a "page does not exist"
	// failure; an implicit first page of an empty result is simply empty.
	PageRequested bool
}

// Parse consumes the raw parameter map against the resource schema.
func Parse(values url.Values, schema Schema) (*Options, error) {
	opts := &Options{Page: DefaultPage, Limit: DefaultLimit}

	// Deterministic iteration keeps generated SQL stable for identical input.
	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		switch key {
		case "sort":
			if err := opts.parseSort(values.Get(key), schema); err != nil {
				return nil, err
			}
		case "fields":
			if err := opts.parseFields(values.Get(key), schema); err != nil {
				return nil, err
			}
		case "page":
			page, err := parsePositiveInt(key, values.Get(key))
			if err != nil {
				return nil, err
			}
			opts.Page = page
			opts.PageRequested = true
		case "limit":
			limit, err := parsePositiveInt(key, values.Get(key))
			if err != nil {
				return nil, err
			}
			opts.Limit = limit
		default:
			for _, raw := range values[key] {
				f, err := parseFilter(key, raw, schema)
				if err != nil {
					return nil, err
				}
				opts.Filters = append(opts.Filters, f)
			}
		}
	}

	return opts, nil
}

// parseFilter interprets one key=value pair, peeling off a bracketed
// operator suffix when present.
func parseFilter(key, raw string, schema Schema) (Filter, error) {
	name, op := key, OpEq
	if open := strings.IndexByte(key, '['); open >= 0 {
		if !strings.HasSuffix(key, "]") {
			return Filter{}, apperror.NewBadRequestError(
				fmt.Sprintf("malformed filter parameter '%s'", key), nil)
		}
		suffix := key[open+1 : len(key)-1]
		parsedOp, ok := opBySuffix[suffix]
		if !ok {
			return Filter{}, apperror.NewBadRequestError(
				fmt.Sprintf("unsupported filter operator '%s'", suffix), nil)
		}
		name, op = key[:open], parsedOp
	}

	field, ok := schema[name]
	if !ok {
		return Filter{}, apperror.NewBadRequestError(
			fmt.Sprintf("cannot filter on unknown field '%s'", name), nil)
	}

	value, err := coerce(raw, field.Kind)
	if err != nil {
		return Filter{}, apperror.NewBadRequestError(
			fmt.Sprintf("invalid value '%s' for field '%s'", raw, name), err)
	}
	return Filter{Column: field.Column, Op: op, Value: value}, nil
}

// coerce converts the raw string parameter to the column's value kind.
func coerce(raw string, kind Kind) (any, error) {
	switch kind {
	case KindInt:
		return strconv.ParseInt(raw, 10, 64)
	case KindFloat:
		return strconv.ParseFloat(raw, 64)
	case KindBool:
		return strconv.ParseBool(raw)
	default:
		// Strings and timestamps pass through; the store parses timestamp
		// literals itself.
		return raw, nil
	}
}

// parseSort splits a comma separated sort expression. A leading '-' selects
// descending order for that term.
func (o *Options) parseSort(expr string, schema Schema) error {
	for _, term := range strings.Split(expr, ",") {
		term = strings.TrimSpace(term)
		if term == "" {
			continue
		}
		desc := strings.HasPrefix(term, "-")
		name := strings.TrimPrefix(term, "-")
		field, ok := schema[name]
		if !ok {
			return apperror.NewBadRequestError(
				fmt.Sprintf("cannot sort on unknown field '%s'", name), nil)
		}
		o.Sort = append(o.Sort, SortField{Column: field.Column, Desc: desc})
	}
	return nil
}

// parseFields splits a comma separated projection whitelist.
func (o *Options) parseFields(expr string, schema Schema) error {
	for _, name := range strings.Split(expr, ",") {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		field, ok := schema[name]
		if !ok {
			return apperror.NewBadRequestError(
				fmt.Sprintf("cannot select unknown field '%s'", name), nil)
		}
		o.Fields = append(o.Fields, field.Column)
	}
	return nil
}

// parsePositiveInt parses page/limit values strictly: a value that is not a
// positive integer is a 400, never a silent fallback.
func parsePositiveInt(key, value string) (int, error) {
	n, err := strconv.Atoi(value)
	if err != nil || n < 1 {
		return 0, apperror.NewBadRequestError(
			fmt.Sprintf("parameter '%s' must be a positive integer, got '%s'", key, value), nil)
	}
	return n, nil
}

// HasFilter reports whether a filter on the given column was supplied.
// Services use this to decide whether to inject their default filters
// (e.g. hiding secret tours) or respect an explicit override.
func (o *Options) HasFilter(column string) bool {
	for _, f := range o.Filters {
		if f.Column == column {
			return true
		}
	}
	return false
}

// AddFilter appends a filter term the service injects on top of the parsed
// client input.
func (o *Options) AddFilter(column string, op Op, value any) {
	o.Filters = append(o.Filters, Filter{Column: column, Op: op, Value: value})
}

// WhereClause renders the filters as an AND-joined SQL condition with
// positional placeholders starting at $1, plus the argument list. An empty
// filter set yields an empty clause.
func (o *Options) WhereClause() (string, []any) {
	if len(o.Filters) == 0 {
		return "", nil
	}
	conds := make([]string, 0, len(o.Filters))
	args := make([]any, 0, len(o.Filters))
	for i, f := range o.Filters {
		conds = append(conds, fmt.Sprintf("%s %s $%d", f.Column, f.Op, i+1))
		args = append(args, f.Value)
	}
	return "WHERE " + strings.Join(conds, " AND "), args
}

// SelectClause renders the projection. defaultColumns is the caller's full
// public column set, used when the client did not limit fields. An explicit
// projection always includes the id column.
func (o *Options) SelectClause(defaultColumns []string) string {
	if len(o.Fields) == 0 {
		return strings.Join(defaultColumns, ", ")
	}
	cols := o.Fields
	if !contains(cols, "id") {
		cols = append([]string{"id"}, cols...)
	}
	return strings.Join(cols, ", ")
}

// OrderByClause renders the sort terms. Without an explicit sort the order
// is descending creation time, with id as a stable tie-breaker.
func (o *Options) OrderByClause() string {
	if len(o.Sort) == 0 {
		return "ORDER BY created_at DESC, id DESC"
	}
	terms := make([]string, 0, len(o.Sort))
	for _, s := range o.Sort {
		dir := "ASC"
		if s.Desc {
			dir = "DESC"
		}
		terms = append(terms, s.Column+" "+dir)
	}
	return "ORDER BY " + strings.Join(terms, ", ")
}

// Skip returns the row offset implied by the pagination window.
func (o *Options) Skip() int {
	return (o.Page - 1) * o.Limit
}

// LimitOffsetClause renders the pagination window.
func (o *Options) LimitOffsetClause() string {
	return fmt.Sprintf("LIMIT %d OFFSET %d", o.Limit, o.Skip())
}

// CheckPageExists enforces the explicit-page contract against the total
// matching row count: a requested page whose offset is at or past the end
// does not exist.
func (o *Options) CheckPageExists(total int64) error {
	if !o.PageRequested {
		return nil
	}
	if int64(o.Skip()) >= total {
		return apperror.NewNotFoundError("This page does not exist", nil)
	}
	return nil
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
