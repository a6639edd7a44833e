package derive

import (
	"bytes"

	"github.com/goccy/go-json"
)

// Document is an ordered set of key/value pairs. It preserves insertion
// order when encoded, so encoded output follows schema field order.
type Document struct {
	keys   []string
	values map[string]interface{}
}

// NewDocument creates an empty document
func NewDocument() *Document {
	return &Document{values: make(map[string]interface{})}
}

// Set stores value under key. Re-setting a key keeps its position.
func (d *Document) Set(key string, value interface{}) {
	if _, exists := d.values[key]; !exists {
		d.keys = append(d.keys, key)
	}
	d.values[key] = value
}

// Get returns the value stored under key.
func (d *Document) Get(key string) (interface{}, bool) {
	v, ok := d.values[key]
	return v, ok
}

// Value implements Record, so validated input can be viewed like a record.
func (d *Document) Value(key string) (interface{}, bool) {
	return d.Get(key)
}

// Keys returns the keys in insertion order.
func (d *Document) Keys() []string {
	return append([]string(nil), d.keys...)
}

// Len returns the number of keys.
func (d *Document) Len() int { return len(d.keys) }

// Map converts the document, and nested documents, to plain maps.
func (d *Document) Map() map[string]interface{} {
	out := make(map[string]interface{}, len(d.keys))
	for _, k := range d.keys {
		out[k] = plain(d.values[k])
	}
	return out
}

func plain(v interface{}) interface{} {
	switch x := v.(type) {
	case *Document:
		if x == nil {
			return nil
		}
		return x.Map()
	case []*Document:
		items := make([]interface{}, len(x))
		for i, item := range x {
			items[i] = item.Map()
		}
		return items
	default:
		return v
	}
}

// MarshalJSON encodes the document as an object in key order.
func (d *Document) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range d.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')

		val, err := json.Marshal(d.values[k])
		if err != nil {
			return nil, err
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
