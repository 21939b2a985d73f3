package store

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// Query selects documents by field. A plain value means equality; a Cond
// applies a comparison operator. An empty Query matches every document.
//
//	store.Query{"isRoot": true}
//	store.Query{"dtModify": store.Gte(cursor), "isRemoved": false}
type Query map[string]any

// Cond is a comparison against a single field.
type Cond struct {
	Op    string
	Value any
}

const (
	opGt  = "$gt"
	opGte = "$gte"
	opLt  = "$lt"
	opLte = "$lte"
	opNe  = "$ne"
	opIn  = "$in"
)

func Gt(v any) Cond  { return Cond{Op: opGt, Value: v} }
func Gte(v any) Cond { return Cond{Op: opGte, Value: v} }
func Lt(v any) Cond  { return Cond{Op: opLt, Value: v} }
func Lte(v any) Cond { return Cond{Op: opLte, Value: v} }
func Ne(v any) Cond  { return Cond{Op: opNe, Value: v} }

// In matches documents whose field equals any of vs.
func In(vs ...any) Cond { return Cond{Op: opIn, Value: vs} }

var fieldRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)*$`)

var sqlOps = map[string]string{
	opGt:  ">",
	opGte: ">=",
	opLt:  "<",
	opLte: "<=",
}

// compile turns q into a SQL predicate over the (id, doc) table layout.
// Keys are sorted so the same query always yields the same statement.
func (q Query) compile() (string, []any, error) {
	if len(q) == 0 {
		return "1=1", nil, nil
	}

	keys := make([]string, 0, len(q))
	for k := range q {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var (
		parts []string
		args  []any
	)
	for _, k := range keys {
		if !fieldRe.MatchString(k) {
			return "", nil, fmt.Errorf("invalid field name %q", k)
		}
		expr := "json_extract(doc, '$." + k + "')"
		if k == "id" {
			expr = "id"
		}

		switch v := q[k].(type) {
		case Cond:
			part, a, err := compileCond(expr, v)
			if err != nil {
				return "", nil, fmt.Errorf("field %q: %w", k, err)
			}
			parts = append(parts, part)
			args = append(args, a...)
		case nil:
			parts = append(parts, expr+" IS NULL")
		default:
			arg, err := sqlValue(v)
			if err != nil {
				return "", nil, fmt.Errorf("field %q: %w", k, err)
			}
			parts = append(parts, expr+" = ?")
			args = append(args, arg)
		}
	}
	return strings.Join(parts, " AND "), args, nil
}

func compileCond(expr string, c Cond) (string, []any, error) {
	switch c.Op {
	case opGt, opGte, opLt, opLte:
		arg, err := sqlValue(c.Value)
		if err != nil {
			return "", nil, err
		}
		return expr + " " + sqlOps[c.Op] + " ?", []any{arg}, nil
	case opNe:
		if c.Value == nil {
			return expr + " IS NOT NULL", nil, nil
		}
		arg, err := sqlValue(c.Value)
		if err != nil {
			return "", nil, err
		}
		return "(" + expr + " IS NULL OR " + expr + " <> ?)", []any{arg}, nil
	case opIn:
		vs, _ := c.Value.([]any)
		if len(vs) == 0 {
			return "0", nil, nil
		}
		args := make([]any, 0, len(vs))
		for _, v := range vs {
			arg, err := sqlValue(v)
			if err != nil {
				return "", nil, err
			}
			args = append(args, arg)
		}
		return expr + " IN (" + strings.TrimSuffix(strings.Repeat("?,", len(vs)), ",") + ")", args, nil
	default:
		return "", nil, fmt.Errorf("unsupported operator %q", c.Op)
	}
}

// sqlValue maps a Go scalar to what json_extract yields for it.
// JSON booleans come back from SQLite as 0/1.
func sqlValue(v any) (any, error) {
	switch x := v.(type) {
	case bool:
		if x {
			return 1, nil
		}
		return 0, nil
	case string, int, int32, int64, uint32, float32, float64:
		return x, nil
	default:
		return nil, fmt.Errorf("unsupported query value of type %T", v)
	}
}

// equalityTerms returns the plain equality terms of q. Used to seed
// an upserted document the way a document database would.
func (q Query) equalityTerms() Doc {
	d := Doc{}
	for k, v := range q {
		if _, ok := v.(Cond); ok || strings.Contains(k, ".") {
			continue
		}
		d[k] = v
	}
	return d
}
