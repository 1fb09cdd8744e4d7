package model

import (
	"bytes"
	"fmt"

	"github.com/tidwall/gjson"
)

// PropertyMap is an open string-keyed property set that remembers insertion
// order. Keys outside the schema are kept.
type PropertyMap struct {
	keys   []string
	values map[string]Value
}

func NewPropertyMap() *PropertyMap {
	return &PropertyMap{values: make(map[string]Value)}
}

// Set stores v under key. New keys are appended to the iteration order.
func (m *PropertyMap) Set(key string, v Value) {
	if m.values == nil {
		m.values = make(map[string]Value)
	}
	if _, ok := m.values[key]; !ok {
		m.keys = append(m.keys, key)
	}
	m.values[key] = v
}

func (m *PropertyMap) Get(key string) (Value, bool) {
	if m == nil {
		return Value{}, false
	}
	v, ok := m.values[key]
	return v, ok
}

func (m *PropertyMap) Has(key string) bool {
	_, ok := m.Get(key)
	return ok
}

func (m *PropertyMap) Delete(key string) {
	if m == nil {
		return
	}
	if _, ok := m.values[key]; !ok {
		return
	}
	delete(m.values, key)
	for i, k := range m.keys {
		if k == key {
			m.keys = append(m.keys[:i], m.keys[i+1:]...)
			break
		}
	}
}

func (m *PropertyMap) Keys() []string {
	if m == nil {
		return nil
	}
	return append([]string(nil), m.keys...)
}

func (m *PropertyMap) Len() int {
	if m == nil {
		return 0
	}
	return len(m.keys)
}

func (m *PropertyMap) Clone() *PropertyMap {
	out := NewPropertyMap()
	if m == nil {
		return out
	}
	for _, k := range m.keys {
		out.Set(k, m.values[k])
	}
	return out
}

// Params converts the map into driver parameters.
func (m *PropertyMap) Params() map[string]any {
	out := make(map[string]any, m.Len())
	if m == nil {
		return out
	}
	for _, k := range m.keys {
		out[k] = m.values[k].Native()
	}
	return out
}

func (m *PropertyMap) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	if m != nil {
		for i, k := range m.keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			key, err := marshalNoEscape(k)
			if err != nil {
				return nil, err
			}
			buf.Write(key)
			buf.WriteByte(':')
			val, err := m.values[k].MarshalJSON()
			if err != nil {
				return nil, err
			}
			buf.Write(val)
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (m *PropertyMap) UnmarshalJSON(data []byte) error {
	if !gjson.ValidBytes(data) {
		return fmt.Errorf("%w: malformed property map", ErrInvalidBundle)
	}
	parsed, err := propertyMapFromJSON(gjson.ParseBytes(data))
	if err != nil {
		return err
	}
	*m = *parsed
	return nil
}

func propertyMapFromJSON(r gjson.Result) (*PropertyMap, error) {
	m := NewPropertyMap()
	if !r.Exists() || r.Type == gjson.Null {
		return m, nil
	}
	if !r.IsObject() {
		return nil, fmt.Errorf("%w: expected an object, got %s", ErrInvalidBundle, r.Type)
	}
	r.ForEach(func(key, value gjson.Result) bool {
		m.Set(key.String(), valueFromJSON(value))
		return true
	})
	return m, nil
}
