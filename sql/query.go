package sql

import (
	"errors"
	"fmt"

	"github.com/relatadb/relata/schema"
)

// ErrInvalidArgument is returned when Select receives something that is
// not a usable table.
var ErrInvalidArgument = errors.New("sql: argument is not a table")

// Params maps placeholder names to their database-bound values.
type Params map[string]any

// Query accumulates a primary table, joined tables, and conditions, and
// compiles them into a SQL token tree plus a parameter map. A Query is a
// builder; it is not safe for concurrent use.
type Query struct {
	from    *schema.Table
	joined  []*schema.Table
	names   map[string]bool
	conds   []Condition
	builder error
}

// NewQuery starts a query targeting the given table.
func NewQuery(from *schema.Table) *Query {
	q := &Query{names: make(map[string]bool)}
	if from == nil {
		q.builder = fmt.Errorf("%w: nil primary table", ErrInvalidArgument)
		return q
	}
	q.from = from
	q.names[from.Name()] = true
	return q
}

// Select joins additional tables into the query. Each table is recorded
// under its name once, preserving first-registration order for field
// emission; the primary table is never re-added. Errors surface at
// Compile.
func (q *Query) Select(tables ...*schema.Table) *Query {
	for _, t := range tables {
		if t == nil {
			if q.builder == nil {
				q.builder = fmt.Errorf("%w: nil table in Select", ErrInvalidArgument)
			}
			continue
		}
		if q.names[t.Name()] {
			continue
		}
		q.names[t.Name()] = true
		q.joined = append(q.joined, t)
	}
	return q
}

// From returns the query's primary table, nil when NewQuery was given
// none.
func (q *Query) From() *schema.Table { return q.from }

// Where appends conditions in call order. Repeated calls accumulate.
func (q *Query) Where(conds ...Condition) *Query {
	q.conds = append(q.conds, conds...)
	return q
}

// Compile produces the token tree and parameter map for the current query
// state. Compilation is pure and repeatable: compiling twice without
// adding conditions in between yields structurally identical output,
// including identical placeholder names.
func (q *Query) Compile() (*SelectToken, Params, error) {
	if q.builder != nil {
		return nil, nil, q.builder
	}

	tok := &SelectToken{From: FromToken{Table: q.from.Name()}}
	for _, c := range q.from.Columns() {
		tok.Fields = append(tok.Fields, ColumnRef{Name: c.QualifiedName()})
	}
	for _, t := range q.joined {
		for _, c := range t.Columns() {
			tok.Fields = append(tok.Fields, ColumnRef{Name: c.QualifiedName()})
		}
	}

	if len(q.conds) == 0 {
		return tok, Params{}, nil
	}

	cp := &compiler{params: Params{}}
	where := &WhereToken{}
	for _, cond := range q.conds {
		node, err := cp.compile(cond)
		if err != nil {
			return nil, nil, err
		}
		where.Nodes = append(where.Nodes, node)
	}
	tok.Where = where
	return tok, cp.params, nil
}

// compiler numbers placeholders in first-encountered order across the
// whole condition list.
type compiler struct {
	params Params
	next   int
}

func (cp *compiler) compile(cond Condition) (WhereNode, error) {
	switch c := cond.(type) {
	case *Operator:
		return cp.operator(c)
	case *Combinator:
		group := GroupToken{Kind: string(c.Kind)}
		for _, child := range c.Conditions {
			node, err := cp.compile(child)
			if err != nil {
				return nil, err
			}
			group.Nodes = append(group.Nodes, node)
		}
		return group, nil
	default:
		return nil, fmt.Errorf("sql: unknown condition type %T", cond)
	}
}

func (cp *compiler) operator(op *Operator) (WhereNode, error) {
	if op.Column == nil || op.Column.Table() == nil {
		return nil, fmt.Errorf("%w: operator on unbound column", ErrInvalidArgument)
	}
	tok := CondToken{Left: op.Column.QualifiedName(), Op: string(op.Kind)}

	// Column operands stay inline; literals become named placeholders
	// carrying the column type's database-bound form.
	if col, ok := op.Operand.(*schema.Column); ok {
		if col.Table() == nil {
			return nil, fmt.Errorf("%w: operand column is unbound", ErrInvalidArgument)
		}
		tok.Right = col.QualifiedName()
		return tok, nil
	}

	bound, err := op.Column.Type().Serialize(op.Operand)
	if err != nil {
		return nil, fmt.Errorf("sql: operand for %s: %w", op.Column.QualifiedName(), err)
	}
	name := fmt.Sprintf("param_%d", cp.next)
	cp.next++
	cp.params[name] = bound
	tok.Right = "{" + name + "}"
	return tok, nil
}
