// Package attr models the typed, optional side-values attached to every record of a stream.
//
// A stream declares its attributes once in the metadata preamble as an ordered schema
// ([]Info). Every record then carries exactly one Value per declared attribute, in schema
// order; a Value may be null when the record did not set the attribute.
package attr

import (
	"fmt"
	"strconv"
)

// Type is the declared type of an attribute.
type Type uint8

const (
	TypeString Type = 0x1 // TypeString represents a UTF-8 string attribute.
	TypeInt    Type = 0x2 // TypeInt represents a signed 64-bit integer attribute.
)

func (t Type) String() string {
	switch t {
	case TypeString:
		return "str"
	case TypeInt:
		return "int"
	default:
		return "unknown"
	}
}

// ParseType parses the schema spelling of a type ("str" or "int").
func ParseType(s string) (Type, error) {
	switch s {
	case "str":
		return TypeString, nil
	case "int":
		return TypeInt, nil
	default:
		return 0, fmt.Errorf("unknown attribute type %q", s)
	}
}

// Info describes one declared attribute.
type Info struct {
	Name string
	Type Type
}

// Value is a nullable attribute value. The zero Value is null.
type Value struct {
	typ Type
	str string
	num int64
}

// Null returns the null value.
func Null() Value { return Value{} }

// String returns a string value.
func String(s string) Value { return Value{typ: TypeString, str: s} }

// Int returns an integer value.
func Int(n int64) Value { return Value{typ: TypeInt, num: n} }

// IsNull reports whether the value is absent.
func (v Value) IsNull() bool { return v.typ == 0 }

// Type returns the value type, or 0 for null.
func (v Value) Type() Type { return v.typ }

// Str returns the string payload and whether the value is a string.
func (v Value) Str() (string, bool) { return v.str, v.typ == TypeString }

// Int returns the integer payload and whether the value is an integer.
func (v Value) Int() (int64, bool) { return v.num, v.typ == TypeInt }

// Equal reports whether both values are null, or have the same type and payload.
func (v Value) Equal(o Value) bool {
	if v.typ != o.typ {
		return false
	}

	switch v.typ {
	case TypeString:
		return v.str == o.str
	case TypeInt:
		return v.num == o.num
	default:
		return true
	}
}

// Any returns the payload as string, int64 or nil.
func (v Value) Any() any {
	switch v.typ {
	case TypeString:
		return v.str
	case TypeInt:
		return v.num
	default:
		return nil
	}
}

func (v Value) String() string {
	switch v.typ {
	case TypeString:
		return strconv.Quote(v.str)
	case TypeInt:
		return strconv.FormatInt(v.num, 10)
	default:
		return "null"
	}
}

// Matches reports whether the value is acceptable for the declared type.
// Null is acceptable for every type.
func (v Value) Matches(t Type) bool {
	return v.IsNull() || v.typ == t
}

// Validate checks decoded values against a schema.
func Validate(schema []Info, values []Value) bool {
	if len(schema) != len(values) {
		return false
	}

	for i, info := range schema {
		if !values[i].Matches(info.Type) {
			return false
		}
	}

	return true
}
