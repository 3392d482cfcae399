package schema

import (
	"fmt"
	"math"
	"time"
)

// ColumnType describes the validation and serialization contract for a
// scalar SQL type. Validate reports whether a raw value is acceptable for
// the type, Serialize produces the database-bound form, and Deserialize is
// the reverse transform applied to values materialized from a result set.
//
// Any implementation is substitutable wherever a Column's type is
// consulted; the concrete types below cover the common scalar types.
type ColumnType interface {
	Name() string
	Validate(v any) error
	Serialize(v any) (any, error)
	Deserialize(v any) (any, error)
}

// Integer returns a 32-bit integer column type.
func Integer() ColumnType { return integerType{name: "integer", bits: 32} }

// BigInt returns a 64-bit integer column type.
func BigInt() ColumnType { return integerType{name: "bigint", bits: 64} }

// Real returns a double precision column type.
func Real() ColumnType { return realType{} }

// Text returns a text column type. maxLen bounds the length in runes;
// zero means unbounded.
func Text(maxLen int) ColumnType { return textType{maxLen: maxLen} }

// Boolean returns a boolean column type.
func Boolean() ColumnType { return booleanType{} }

// Timestamp returns a timestamp column type carrying time.Time values.
func Timestamp() ColumnType { return timestampType{} }

type integerType struct {
	name string
	bits int
}

func (t integerType) Name() string { return t.name }

func (t integerType) Validate(v any) error {
	if v == nil {
		return nil
	}
	n, err := toInt64(v)
	if err != nil {
		return fmt.Errorf("%s: %w", t.name, err)
	}
	if t.bits == 32 && (n > 1<<31-1 || n < -(1<<31)) {
		return fmt.Errorf("%s: value %d out of range", t.name, n)
	}
	return nil
}

func (t integerType) Serialize(v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	n, err := toInt64(v)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", t.name, err)
	}
	return n, nil
}

func (t integerType) Deserialize(v any) (any, error) { return t.Serialize(v) }

type realType struct{}

func (realType) Name() string { return "double precision" }

func (realType) Validate(v any) error {
	if v == nil {
		return nil
	}
	_, err := toFloat64(v)
	return err
}

func (realType) Serialize(v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	return toFloat64(v)
}

func (t realType) Deserialize(v any) (any, error) { return t.Serialize(v) }

type textType struct {
	maxLen int
}

func (t textType) Name() string {
	if t.maxLen > 0 {
		return fmt.Sprintf("varchar(%d)", t.maxLen)
	}
	return "text"
}

func (t textType) Validate(v any) error {
	if v == nil {
		return nil
	}
	s, err := toString(v)
	if err != nil {
		return err
	}
	if t.maxLen > 0 && len([]rune(s)) > t.maxLen {
		return fmt.Errorf("text: value exceeds %d characters", t.maxLen)
	}
	return nil
}

func (t textType) Serialize(v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	if err := t.Validate(v); err != nil {
		return nil, err
	}
	return toString(v)
}

func (t textType) Deserialize(v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	return toString(v)
}

type booleanType struct{}

func (booleanType) Name() string { return "boolean" }

func (booleanType) Validate(v any) error {
	if v == nil {
		return nil
	}
	if _, ok := v.(bool); !ok {
		return fmt.Errorf("boolean: cannot represent %T", v)
	}
	return nil
}

func (t booleanType) Serialize(v any) (any, error) {
	if err := t.Validate(v); err != nil {
		return nil, err
	}
	return v, nil
}

func (t booleanType) Deserialize(v any) (any, error) {
	switch b := v.(type) {
	case nil:
		return nil, nil
	case bool:
		return b, nil
	case int64:
		return b != 0, nil
	default:
		return nil, fmt.Errorf("boolean: cannot represent %T", v)
	}
}

type timestampType struct{}

func (timestampType) Name() string { return "timestamp" }

func (timestampType) Validate(v any) error {
	if v == nil {
		return nil
	}
	if _, ok := v.(time.Time); !ok {
		return fmt.Errorf("timestamp: cannot represent %T", v)
	}
	return nil
}

func (t timestampType) Serialize(v any) (any, error) {
	if err := t.Validate(v); err != nil {
		return nil, err
	}
	return v, nil
}

func (timestampType) Deserialize(v any) (any, error) {
	switch ts := v.(type) {
	case nil:
		return nil, nil
	case time.Time:
		return ts, nil
	default:
		return nil, fmt.Errorf("timestamp: cannot represent %T", v)
	}
}

func toInt64(v any) (int64, error) {
	switch n := v.(type) {
	case int:
		return int64(n), nil
	case int8:
		return int64(n), nil
	case int16:
		return int64(n), nil
	case int32:
		return int64(n), nil
	case int64:
		return n, nil
	case uint8:
		return int64(n), nil
	case uint16:
		return int64(n), nil
	case uint32:
		return int64(n), nil
	case uint:
		if uint64(n) > math.MaxInt64 {
			return 0, fmt.Errorf("value %d overflows integer", n)
		}
		return int64(n), nil
	case uint64:
		if n > math.MaxInt64 {
			return 0, fmt.Errorf("value %d overflows integer", n)
		}
		return int64(n), nil
	default:
		return 0, fmt.Errorf("cannot represent %T as integer", v)
	}
}

func toFloat64(v any) (float64, error) {
	switch f := v.(type) {
	case float32:
		return float64(f), nil
	case float64:
		return f, nil
	case int:
		return float64(f), nil
	case int32:
		return float64(f), nil
	case int64:
		return float64(f), nil
	default:
		return 0, fmt.Errorf("cannot represent %T as double precision", v)
	}
}

func toString(v any) (string, error) {
	switch s := v.(type) {
	case string:
		return s, nil
	case []byte:
		return string(s), nil
	default:
		return "", fmt.Errorf("cannot represent %T as text", v)
	}
}
