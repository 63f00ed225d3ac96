package alarmclock

import (
	"strconv"
)

// Kind is the type tag of a stored Value.
type Kind uint8

const (
	KindString Kind = iota + 1
	KindInt
	KindBool
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindInt:
		return "int"
	case KindBool:
		return "bool"
	}
	return "kind(" + strconv.Itoa(int(k)) + ")"
}

// Value is a typed setting value.
type Value struct {
	Kind Kind
	Str  string
	Int  int64
	Bool bool
}

func StringValue(s string) Value { return Value{Kind: KindString, Str: s} }
func IntValue(n int64) Value { return Value{Kind: KindInt, Int: n} }
func BoolValue(b bool) Value { return Value{Kind: KindBool, Bool: b} }

func (v Value) String() string {
	switch v.Kind {
	case KindString:
		return strconv.Quote(v.Str)
	case KindInt:
		return strconv.FormatInt(v.Int, 10)
	case KindBool:
		return strconv.FormatBool(v.Bool)
	}
	return "<invalid>"
}

// Settings is a namespaced key-value store.
//
// Get reports whether key is present, so callers can tell an absent key from
// one holding a zero value. Set and Erase are buffered; Commit makes every
// buffered change durable at once.
type Settings interface {
	Get(key string) (Value, bool)
	Set(key string, v Value)
	Erase(key string)
	Commit() error
}

// GetString returns the string stored under key. It reports false if the key
// is absent or holds another kind.
func GetString(s Settings, key string) (string, bool) {
	v, ok := s.Get(key)
	if !ok || v.Kind != KindString {
		return "", false
	}
	return v.Str, true
}

// GetInt is like GetString for int values.
func GetInt(s Settings, key string) (int64, bool) {
	v, ok := s.Get(key)
	if !ok || v.Kind != KindInt {
		return 0, false
	}
	return v.Int, true
}

// GetBool is like GetString for bool values.
func GetBool(s Settings, key string) (bool, bool) {
	v, ok := s.Get(key)
	if !ok || v.Kind != KindBool {
		return false, false
	}
	return v.Bool, true
}
