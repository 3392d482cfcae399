// Package sql builds parameterized SELECT statements from schema columns.
//
// Conditions are ordinary expression values, not strings. A comparison
// constructor takes a column and an operand and returns an Operator node;
// it builds a query fragment rather than evaluating a boolean:
//
//	q := sql.NewQuery(users).Where(sql.Eq(users.C("id"), 2))
//	tok, params, err := q.Compile()
//	// tok.SQL()  => SELECT "users"."id", "users"."name" FROM "users"
//	//               WHERE "users"."id" = {param_0}
//	// params     => sql.Params{"param_0": int64(2)}
//
// Literal operands are replaced by uniquely named placeholders in
// first-encountered order; column operands stay inline, so
// column-to-column joins carry no parameters. The compiled token tree
// renders with {name} brace placeholders, which the backend bind layer
// rewrites into the dialect's positional style.
package sql
