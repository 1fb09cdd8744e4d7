package model

import (
	"bytes"
	"encoding/json"
	"strconv"

	"github.com/tidwall/gjson"
)

type Kind uint8

const (
	KindNull Kind = iota
	KindString
	KindInt
	KindFloat
	KindBool
	KindVector
	KindList
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindBool:
		return "bool"
	case KindVector:
		return "vector"
	case KindList:
		return "list"
	}
	return "null"
}

// Value is a single property value. The zero Value is null.
type Value struct {
	kind Kind
	s    string
	i    int64
	f    float64
	b    bool
	vec  []float64
	list []Value
}

func Null() Value              { return Value{} }
func String(s string) Value    { return Value{kind: KindString, s: s} }
func Int(i int64) Value        { return Value{kind: KindInt, i: i} }
func Float(f float64) Value    { return Value{kind: KindFloat, f: f} }
func Bool(b bool) Value        { return Value{kind: KindBool, b: b} }
func List(items ...Value) Value { return Value{kind: KindList, list: items} }

// Vector converts an embedding into a float list value.
func Vector(v []float32) Value {
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = float64(x)
	}
	return Value{kind: KindVector, vec: out}
}

func (v Value) Kind() Kind { return v.kind }

// IsZero reports whether the value is falsy: null, empty string, zero number,
// false or an empty list.
func (v Value) IsZero() bool {
	switch v.kind {
	case KindString:
		return v.s == ""
	case KindInt:
		return v.i == 0
	case KindFloat:
		return v.f == 0
	case KindBool:
		return !v.b
	case KindVector:
		return len(v.vec) == 0
	case KindList:
		return len(v.list) == 0
	}
	return true
}

// Text is the display form used in report lines and as embedding input.
func (v Value) Text() string {
	switch v.kind {
	case KindString:
		return v.s
	case KindInt:
		return strconv.FormatInt(v.i, 10)
	case KindFloat:
		return strconv.FormatFloat(v.f, 'g', -1, 64)
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindVector, KindList:
		data, _ := v.MarshalJSON()
		return string(data)
	}
	return ""
}

// Native returns the value in the form the bolt driver binds as a parameter.
func (v Value) Native() any {
	switch v.kind {
	case KindString:
		return v.s
	case KindInt:
		return v.i
	case KindFloat:
		return v.f
	case KindBool:
		return v.b
	case KindVector:
		return append([]float64(nil), v.vec...)
	case KindList:
		out := make([]any, len(v.list))
		for i, item := range v.list {
			out[i] = item.Native()
		}
		return out
	}
	return nil
}

func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindString:
		return marshalNoEscape(v.s)
	case KindInt:
		return []byte(strconv.FormatInt(v.i, 10)), nil
	case KindFloat:
		return json.Marshal(v.f)
	case KindBool:
		return json.Marshal(v.b)
	case KindVector:
		return json.Marshal(v.vec)
	case KindList:
		var buf bytes.Buffer
		buf.WriteByte('[')
		for i, item := range v.list {
			if i > 0 {
				buf.WriteByte(',')
			}
			data, err := item.MarshalJSON()
			if err != nil {
				return nil, err
			}
			buf.Write(data)
		}
		buf.WriteByte(']')
		return buf.Bytes(), nil
	}
	return []byte("null"), nil
}

func marshalNoEscape(s string) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// valueFromJSON converts a decoded JSON element. Objects become their compact
// JSON text because the store cannot hold map-valued properties.
func valueFromJSON(r gjson.Result) Value {
	switch r.Type {
	case gjson.String:
		return String(r.Str)
	case gjson.True:
		return Bool(true)
	case gjson.False:
		return Bool(false)
	case gjson.Number:
		if i, err := strconv.ParseInt(r.Raw, 10, 64); err == nil {
			return Int(i)
		}
		return Float(r.Num)
	case gjson.JSON:
		if r.IsArray() {
			return arrayFromJSON(r)
		}
		var buf bytes.Buffer
		if err := json.Compact(&buf, []byte(r.Raw)); err != nil {
			return String(r.Raw)
		}
		return String(buf.String())
	}
	return Null()
}

func arrayFromJSON(r gjson.Result) Value {
	elems := r.Array()
	allNumbers := len(elems) > 0
	hasFraction := false
	for _, e := range elems {
		if e.Type != gjson.Number {
			allNumbers = false
			break
		}
		if _, err := strconv.ParseInt(e.Raw, 10, 64); err != nil {
			hasFraction = true
		}
	}
	if allNumbers && hasFraction {
		vec := make([]float64, len(elems))
		for i, e := range elems {
			vec[i] = e.Num
		}
		return Value{kind: KindVector, vec: vec}
	}

	items := make([]Value, len(elems))
	for i, e := range elems {
		items[i] = valueFromJSON(e)
	}
	return List(items...)
}
