package translator

import (
	"bytes"
	"encoding/json"
)

// AliasEntry maps a generated _extra key to its output name.
type AliasEntry struct {
	Key  string `json:"key"`
	Name string `json:"name"`
}

// AliasRegistry is the ordered key → output name table of one translation.
// It is created per Translate call and never shared between queries.
type AliasRegistry struct {
	entries []AliasEntry
}

// NewAliasRegistry returns an empty registry.
func NewAliasRegistry() *AliasRegistry {
	return &AliasRegistry{}
}

// Add appends an entry. A repeated key keeps its first position and takes
// the newer name.
func (r *AliasRegistry) Add(key, name string) {
	for i := range r.entries {
		if r.entries[i].Key == key {
			r.entries[i].Name = name
			return
		}
	}
	r.entries = append(r.entries, AliasEntry{Key: key, Name: name})
}

// Lookup returns the output name of a generated key.
func (r *AliasRegistry) Lookup(key string) (string, bool) {
	if r == nil {
		return "", false
	}
	for _, e := range r.entries {
		if e.Key == key {
			return e.Name, true
		}
	}
	return "", false
}

// Entries returns the entries in registration order.
func (r *AliasRegistry) Entries() []AliasEntry {
	if r == nil {
		return nil
	}
	out := make([]AliasEntry, len(r.entries))
	copy(out, r.entries)
	return out
}

// Len returns the number of entries.
func (r *AliasRegistry) Len() int {
	if r == nil {
		return 0
	}
	return len(r.entries)
}

// MarshalJSON renders the registry as an ordered JSON object.
func (r *AliasRegistry) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, e := range r.Entries() {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(e.Key)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(e.Name)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
