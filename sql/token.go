package sql

import (
	"strings"
)

// The token tree is the structured intermediate form of a query, handed
// to a dialect renderer: Select(fields, From(table), Where(conditions)?).
// Parameter references render as {param_name} and are substituted by the
// backend's placeholder emission.

// ColumnRef names one emitted field, already qualified and quoted.
type ColumnRef struct {
	Name string
}

// FromToken names the primary table of a SELECT.
type FromToken struct {
	Table string
}

// WhereNode is a flattened condition or a parenthesized group.
type WhereNode interface {
	writeSQL(b *strings.Builder)
}

// CondToken is a single rendered comparison. Right is either a {name}
// placeholder reference or an inline qualified column.
type CondToken struct {
	Left  string
	Op    string
	Right string
}

func (t CondToken) writeSQL(b *strings.Builder) {
	b.WriteString(t.Left)
	b.WriteByte(' ')
	b.WriteString(t.Op)
	b.WriteByte(' ')
	b.WriteString(t.Right)
}

// GroupToken is a combinator group. Groups always render parenthesized so
// a mixed AND/OR condition list keeps the boolean sense it was built with.
type GroupToken struct {
	Kind  string
	Nodes []WhereNode
}

func (t GroupToken) writeSQL(b *strings.Builder) {
	b.WriteByte('(')
	for i, n := range t.Nodes {
		if i > 0 {
			b.WriteByte(' ')
			b.WriteString(t.Kind)
			b.WriteByte(' ')
		}
		n.writeSQL(b)
	}
	b.WriteByte(')')
}

// WhereToken holds the top-level condition list, joined with AND.
type WhereToken struct {
	Nodes []WhereNode
}

// SelectToken is the root of a compiled query.
type SelectToken struct {
	Fields []ColumnRef
	From   FromToken
	Where  *WhereToken
}

// SQL renders the token tree in the common dialect, leaving {name} brace
// placeholders for the backend bind layer.
func (t *SelectToken) SQL() string {
	var b strings.Builder
	b.WriteString("SELECT ")
	for i, f := range t.Fields {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(f.Name)
	}
	b.WriteString(" FROM ")
	b.WriteString(quoteIdent(t.From.Table))
	if t.Where != nil && len(t.Where.Nodes) > 0 {
		b.WriteString(" WHERE ")
		for i, n := range t.Where.Nodes {
			if i > 0 {
				b.WriteString(" AND ")
			}
			n.writeSQL(&b)
		}
	}
	return b.String()
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
