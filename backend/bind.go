package backend

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// ErrMissingParam is returned when a query references a placeholder that
// is absent from the parameter map.
var ErrMissingParam = errors.New("backend: missing bind parameter")

// Bind rewrites {name} brace placeholders into the dialect's positional
// style and returns the argument values in placeholder order. The scanner
// skips single-quoted strings and double-quoted identifiers, so braces
// inside literals pass through untouched.
//
//	bound, args, err := backend.Bind(
//	    `SELECT * FROM "users" WHERE "id" = {param_0}`,
//	    map[string]any{"param_0": 2},
//	    dialect, // PlaceholderDollar
//	)
//	// bound => SELECT * FROM "users" WHERE "id" = $1
//	// args  => []any{2}
func Bind(query string, params map[string]any, d Dialect) (string, []any, error) {
	var b strings.Builder
	b.Grow(len(query))
	var args []any

	i := 0
	for i < len(query) {
		r, w := utf8.DecodeRuneInString(query[i:])
		switch r {
		case '\'':
			j, err := skipQuoted(query, i+w, '\'')
			if err != nil {
				return "", nil, err
			}
			b.WriteString(query[i:j])
			i = j
			continue
		case '"':
			j, err := skipQuoted(query, i+w, '"')
			if err != nil {
				return "", nil, err
			}
			b.WriteString(query[i:j])
			i = j
			continue
		case '{':
			name, j, ok := parseParamRef(query, i+w)
			if !ok {
				return "", nil, fmt.Errorf("backend: malformed placeholder at offset %d", i)
			}
			v, present := params[name]
			if !present {
				return "", nil, fmt.Errorf("%w: %q", ErrMissingParam, name)
			}
			args = append(args, v)
			b.WriteString(d.EmitParam(name, len(args)))
			i = j
			continue
		}
		b.WriteString(query[i : i+w])
		i += w
	}
	return b.String(), args, nil
}

// skipQuoted advances past a quoted region, honoring doubled-quote
// escapes.
func skipQuoted(s string, i int, quote byte) (int, error) {
	for i < len(s) {
		if s[i] == quote {
			if i+1 < len(s) && s[i+1] == quote {
				i += 2
				continue
			}
			return i + 1, nil
		}
		i++
	}
	return 0, fmt.Errorf("backend: unterminated %q-quoted region", string(quote))
}

// parseParamRef reads an identifier up to the closing brace.
func parseParamRef(s string, i int) (string, int, bool) {
	start := i
	for i < len(s) {
		r, w := utf8.DecodeRuneInString(s[i:])
		if r == '}' {
			if i == start {
				return "", 0, false
			}
			return s[start:i], i + w, true
		}
		if r != '_' && !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			return "", 0, false
		}
		i += w
	}
	return "", 0, false
}
