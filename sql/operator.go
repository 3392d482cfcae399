package sql

import (
	"github.com/relatadb/relata/schema"
)

// Kind identifies a comparison operator as rendered in SQL.
type Kind string

const (
	KindEq   Kind = "="
	KindNe   Kind = "<>"
	KindLt   Kind = "<"
	KindLe   Kind = "<="
	KindGt   Kind = ">"
	KindGe   Kind = ">="
	KindLike Kind = "LIKE"
)

// BoolKind is the boolean sense of a combinator.
type BoolKind string

const (
	BoolAnd BoolKind = "AND"
	BoolOr  BoolKind = "OR"
)

// Condition is either a single Operator or a Combinator of conditions.
type Condition interface {
	isCondition()
}

// Operator is a single comparison of the shape (column, kind, operand).
// The operand is a literal value or another *schema.Column.
type Operator struct {
	Column  *schema.Column
	Kind    Kind
	Operand any
}

func (*Operator) isCondition() {}

// Combinator joins conditions with one boolean sense. Nested combinators
// are allowed; the kind is preserved through compilation.
type Combinator struct {
	Kind       BoolKind
	Conditions []Condition
}

func (*Combinator) isCondition() {}

// Eq builds `column = operand`.
func Eq(c *schema.Column, operand any) *Operator { return &Operator{c, KindEq, operand} }

// Ne builds `column <> operand`.
func Ne(c *schema.Column, operand any) *Operator { return &Operator{c, KindNe, operand} }

// Lt builds `column < operand`.
func Lt(c *schema.Column, operand any) *Operator { return &Operator{c, KindLt, operand} }

// Le builds `column <= operand`.
func Le(c *schema.Column, operand any) *Operator { return &Operator{c, KindLe, operand} }

// Gt builds `column > operand`.
func Gt(c *schema.Column, operand any) *Operator { return &Operator{c, KindGt, operand} }

// Ge builds `column >= operand`.
func Ge(c *schema.Column, operand any) *Operator { return &Operator{c, KindGe, operand} }

// Like builds `column LIKE operand`.
func Like(c *schema.Column, operand any) *Operator { return &Operator{c, KindLike, operand} }

// And combines conditions so that all must hold.
func And(conds ...Condition) *Combinator { return &Combinator{Kind: BoolAnd, Conditions: conds} }

// Or combines conditions so that any may hold.
func Or(conds ...Condition) *Combinator { return &Combinator{Kind: BoolOr, Conditions: conds} }
