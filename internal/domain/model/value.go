// Package model contains domain models passed between layers.
package model

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Kind identifies what a Value carries.
type Kind uint8

const (
	KindAbsent Kind = iota
	KindString
	KindInt
	KindList
)

// String returns the lower-case kind name.
func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindInt:
		return "integer"
	case KindList:
		return "list"
	default:
		return "absent"
	}
}

// Value is a typed field value. The zero Value is absent.
type Value struct {
	kind Kind
	str  string
	num  int64
	list []string
}

// String builds a string Value.
func String(s string) Value { return Value{kind: KindString, str: s} }

// Int builds an integer Value.
func Int(n int64) Value { return Value{kind: KindInt, num: n} }

// List builds a list Value. The items are copied.
func List(items ...string) Value {
	cp := make([]string, len(items))
	copy(cp, items)
	return Value{kind: KindList, list: cp}
}

// Kind reports what the value carries.
func (v Value) Kind() Kind { return v.kind }

// IsAbsent reports whether the value was never set.
func (v Value) IsAbsent() bool { return v.kind == KindAbsent }

// IsEmpty reports whether the value is absent, an empty string or an empty list.
func (v Value) IsEmpty() bool {
	switch v.kind {
	case KindAbsent:
		return true
	case KindString:
		return v.str == ""
	case KindList:
		return len(v.list) == 0
	default:
		return false
	}
}

// Str returns the string payload.
func (v Value) Str() (string, bool) {
	if v.kind != KindString {
		return "", false
	}
	return v.str, true
}

// Int returns the integer payload.
func (v Value) Int() (int64, bool) {
	if v.kind != KindInt {
		return 0, false
	}
	return v.num, true
}

// Items returns a copy of the list payload.
func (v Value) Items() []string {
	if v.kind != KindList {
		return nil
	}
	cp := make([]string, len(v.list))
	copy(cp, v.list)
	return cp
}

// Text renders the value as a single cell of text.
func (v Value) Text() string {
	switch v.kind {
	case KindString:
		return v.str
	case KindInt:
		return strconv.FormatInt(v.num, 10)
	case KindList:
		return strings.Join(v.list, ", ")
	default:
		return ""
	}
}

// Interface returns the payload as a plain Go value (string, int64, []string or nil).
func (v Value) Interface() any {
	switch v.kind {
	case KindString:
		return v.str
	case KindInt:
		return v.num
	case KindList:
		return v.Items()
	default:
		return nil
	}
}

// Equal reports whether both values carry the same kind and payload.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindString:
		return v.str == o.str
	case KindInt:
		return v.num == o.num
	case KindList:
		if len(v.list) != len(o.list) {
			return false
		}
		for i := range v.list {
			if v.list[i] != o.list[i] {
				return false
			}
		}
	}
	return true
}

// MarshalJSON encodes the payload; absent values encode as null.
func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.Interface())
}
