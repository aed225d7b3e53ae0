package ir

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Row is a result record sectioned by originating table. Each section maps
// column name to value. A nil section marks a left-joined table that had no
// matching row.
type Row map[string]Object

// Sections returns section names in canonical key order.
func (r Row) Sections() []string {
	return Object(r.asObject()).SortedKeys()
}

// AsValue converts the row into an Object of Objects (nil sections become
// Null) for comparison and canonical encoding.
func (r Row) AsValue() Object {
	return r.asObject()
}

func (r Row) asObject() Object {
	obj := make(Object, len(r))
	for name, section := range r {
		if section == nil {
			obj[name] = Null{}
			continue
		}
		obj[name] = section
	}
	return obj
}

// MarshalJSON implements json.Marshaler with sorted section keys.
func (r Row) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, name := range r.Sections() {
		if i > 0 {
			buf.WriteByte(',')
		}
		keyBytes, err := json.Marshal(name)
		if err != nil {
			return nil, fmt.Errorf("marshal section %q: %w", name, err)
		}
		buf.Write(keyBytes)
		buf.WriteByte(':')
		sectionBytes, err := r[name].MarshalJSON()
		if err != nil {
			return nil, fmt.Errorf("marshal section %q: %w", name, err)
		}
		buf.Write(sectionBytes)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
